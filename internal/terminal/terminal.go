// Package terminal runs the door-counter application loop: boot, login,
// clock entry, mode selection and the Scan, Alarm and Access modes with
// the password hotkey that returns to mode selection.
//
// A Terminal is owned by one goroutine. Its collaborators may be fed by
// other goroutines (keypad edges, the sensor sampler); the terminal only
// reads from them.
package terminal

import (
	"context"
	"crypto/subtle"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/sweeney/door-counter/internal/clock"
	"github.com/sweeney/door-counter/internal/keypad"
	"github.com/sweeney/door-counter/internal/logic"
	"github.com/sweeney/door-counter/internal/status"
	"github.com/sweeney/door-counter/internal/tone"
)

// Display is the 2x16 character display.
type Display interface {
	Reset()
	WriteString(s string)
	WriteChar(c byte)
	SetCursor(row, col int)
}

// Clock is the wall clock.
type Clock interface {
	CurrentHour() int
	CurrentTimeText() string
	Set(t time.Time)
}

// Tone plays a note and returns when it has finished.
type Tone interface {
	Play(n tone.Note)
}

// Sensor is the beam-break counter.
type Sensor interface {
	BreakCount() uint32
	Arm()
}

// Keys reads buffered keypad presses. The blocking reads wait until a key
// arrives or ctx is done.
type Keys interface {
	GetChar(ctx context.Context) (byte, error)
	GetInt(ctx context.Context) (int, error)
	GetCharNoBlock() byte
	GetKeyNoBlock() keypad.Key
}

// Credentials is the administrator account.
type Credentials struct {
	Name     string
	Username string
	Password string
}

// Options configures a Terminal.
type Options struct {
	Credentials  Credentials
	PromptClock  bool                // ask for date and time after login
	LoopInterval time.Duration       // pause between running iterations
	Location     *time.Location      // zone for the entered clock, default Local
	Delay        func(time.Duration) // display pacing, default time.Sleep
	Tracker      *status.Tracker     // optional
}

// Cues.
var (
	CueNote   = tone.Note{Letter: tone.C, Octave: 4, Duration: 250 * time.Millisecond}
	AlarmHigh = tone.Note{Letter: tone.C, Octave: 8, Duration: 250 * time.Millisecond}
	AlarmLow  = tone.Note{Letter: tone.C, Octave: 6, Duration: 250 * time.Millisecond}
)

// Pacing delays.
const (
	MenuDelay      = time.Second
	IncorrectDelay = 500 * time.Millisecond
	PromptDelay    = time.Second
)

// blankEntry erases the hotkey echo.
const blankEntry = "      "

// lineWidth is the number of display columns.
const lineWidth = 16

// Terminal is the application state machine.
type Terminal struct {
	display Display
	clock   Clock
	tone    Tone
	sensor  Sensor
	keys    Keys
	opts    Options

	mode    logic.Mode
	hist    logic.Histogram
	breaks  logic.BreakTracker
	alarmed bool
	entry   []byte

	lastTime      string
	lastCustomers int64
	lastBusiest   int
}

// New creates a Terminal in ModeInitialize.
func New(d Display, c Clock, t Tone, s Sensor, k Keys, opts Options) *Terminal {
	if opts.Delay == nil {
		opts.Delay = time.Sleep
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &Terminal{
		display: d,
		clock:   c,
		tone:    t,
		sensor:  s,
		keys:    k,
		opts:    opts,
		mode:    logic.ModeInitialize,
		entry:   make([]byte, 0, len(opts.Credentials.Password)),
	}
}

// Mode returns the current mode.
func (t *Terminal) Mode() logic.Mode { return t.mode }

// Alarmed reports whether the alarm has tripped.
func (t *Terminal) Alarmed() bool { return t.alarmed }

// Histogram returns a copy of the hourly break counts.
func (t *Terminal) Histogram() logic.Histogram { return t.hist }

// Run steps the terminal until ctx is done.
func (t *Terminal) Run(ctx context.Context) error {
	log.WithField("prompt_clock", t.opts.PromptClock).Info("terminal: starting")
	for {
		if err := t.Step(ctx); err != nil {
			return err
		}
		if t.opts.LoopInterval > 0 {
			timer := time.NewTimer(t.opts.LoopInterval)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}
	}
}

// Step runs one iteration of the state machine. It only returns an error
// when ctx is done during a blocking read.
func (t *Terminal) Step(ctx context.Context) error {
	if t.mode == logic.ModeInitialize {
		return t.Boot(ctx)
	}

	n := t.breaks.Advance(t.sensor.BreakCount())
	switch t.mode {
	case logic.ModeScan:
		t.count(n)
		t.showTime()
	case logic.ModeAlarm:
		if n > 0 && !t.alarmed {
			t.alarmed = true
			log.WithField("breaks", t.breaks.Seen()).Warn("terminal: alarm tripped")
			t.display.Reset()
			t.display.WriteString("ALARM!")
		}
		if t.alarmed {
			t.tone.Play(AlarmHigh)
			t.tone.Play(AlarmLow)
		}
	case logic.ModeAccess:
		t.count(n)
		t.showAccess()
	}

	switch t.CheckPassword() {
	case logic.ResultCorrect:
		t.resetEntry()
		if err := t.ChooseMode(ctx); err != nil {
			return err
		}
		t.alarmed = false
	case logic.ResultIncorrect:
		log.Info("terminal: incorrect hotkey password")
		t.resetEntry()
		t.display.SetCursor(1, 0)
		t.display.WriteString(blankEntry)
		t.display.SetCursor(1, 0)
		// The blank may have covered the busiest hour line.
		t.lastBusiest = -1
	}

	t.track()
	return nil
}

// Boot runs the power-on sequence: login until correct, optional clock
// entry, mode selection, then the sensor is armed.
func (t *Terminal) Boot(ctx context.Context) error {
	t.display.Reset()
	t.display.WriteString("Door counter")
	t.opts.Delay(PromptDelay)
	for {
		res, err := t.Login(ctx)
		if err != nil {
			return err
		}
		if res == logic.ResultCorrect {
			break
		}
		log.Warn("terminal: login failed")
		t.display.Reset()
		t.display.WriteString("Incorrect.")
		t.opts.Delay(IncorrectDelay)
	}
	log.WithField("admin", t.opts.Credentials.Name).Info("terminal: logged in")
	if t.opts.Tracker != nil {
		t.opts.Tracker.SetLoggedIn(true)
	}

	if t.opts.PromptClock {
		if err := t.EnterClock(ctx); err != nil {
			return err
		}
	}
	if err := t.ChooseMode(ctx); err != nil {
		return err
	}

	t.sensor.Arm()
	if t.opts.Tracker != nil {
		t.opts.Tracker.SetArmed(true)
	}
	t.track()
	return nil
}

// Login reads a username then a password of fixed lengths. Every
// character is read before comparing, and a wrong username ends the
// attempt before the password prompt.
func (t *Terminal) Login(ctx context.Context) (logic.Result, error) {
	creds := t.opts.Credentials

	t.display.Reset()
	t.display.WriteString("Username:")
	t.display.SetCursor(1, 0)
	user, err := t.readSecret(ctx, len(creds.Username), false)
	if err != nil {
		return logic.ResultIncorrect, err
	}
	if subtle.ConstantTimeCompare(user, []byte(creds.Username)) != 1 {
		return logic.ResultIncorrect, nil
	}

	t.display.Reset()
	t.display.WriteString("Password:")
	t.display.SetCursor(1, 0)
	pass, err := t.readSecret(ctx, len(creds.Password), true)
	if err != nil {
		return logic.ResultIncorrect, err
	}
	if subtle.ConstantTimeCompare(pass, []byte(creds.Password)) != 1 {
		return logic.ResultIncorrect, nil
	}

	t.display.Reset()
	return logic.ResultCorrect, nil
}

func (t *Terminal) readSecret(ctx context.Context, n int, masked bool) ([]byte, error) {
	buf := make([]byte, n)
	for i := range buf {
		c, err := t.keys.GetChar(ctx)
		if err != nil {
			return nil, err
		}
		buf[i] = c
		if masked {
			c = '*'
		}
		t.display.WriteChar(c)
	}
	return buf, nil
}

// ChooseMode shows the menu until key 1, 2 or 3 is pressed and enters
// that mode. Other keys are consumed and ignored.
func (t *Terminal) ChooseMode(ctx context.Context) error {
	t.display.Reset()
	t.display.WriteString("What should I do?")
	t.opts.Delay(MenuDelay)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		t.display.Reset()
		t.display.WriteString("1-Scan.")
		t.display.SetCursor(1, 0)
		t.display.WriteString("2-Alarm.")
		t.opts.Delay(MenuDelay)
		t.display.Reset()
		t.display.WriteString("3-Access.")
		t.opts.Delay(MenuDelay)

		key := t.keys.GetKeyNoBlock()
		if mode, ok := logic.ModeForChoice(int(key)); ok {
			t.enter(mode)
			return nil
		}
	}
}

func (t *Terminal) enter(mode logic.Mode) {
	log.WithFields(log.Fields{"from": t.mode, "to": mode}).Info("terminal: mode selected")
	t.mode = mode
	t.lastTime = ""
	t.lastCustomers = -1
	t.lastBusiest = -1

	t.display.Reset()
	if mode == logic.ModeAlarm {
		t.display.WriteString("Alarm set.")
	}
}

// CheckPassword consumes at most one buffered key into the hotkey entry
// and echoes a mask character at its column on row 1. Once the entry is
// as long as the password it is compared: the caller must then reset it.
func (t *Terminal) CheckPassword() logic.Result {
	want := t.opts.Credentials.Password
	if len(t.entry) >= len(want) {
		t.resetEntry()
	}

	c := t.keys.GetCharNoBlock()
	if c == 0 {
		return logic.ResultIncomplete
	}
	t.display.SetCursor(1, len(t.entry))
	t.display.WriteChar('*')
	t.entry = append(t.entry, c)

	if len(t.entry) < len(want) {
		return logic.ResultIncomplete
	}
	if subtle.ConstantTimeCompare(t.entry, []byte(want)) == 1 {
		return logic.ResultCorrect
	}
	return logic.ResultIncorrect
}

// EntryLen returns the number of hotkey characters buffered.
func (t *Terminal) EntryLen() int { return len(t.entry) }

func (t *Terminal) resetEntry() {
	for i := range t.entry {
		t.entry[i] = 0
	}
	t.entry = t.entry[:0]
}

// count adds n breaks to the current hour and sounds one cue.
func (t *Terminal) count(n uint32) {
	if n == 0 {
		return
	}
	hour := t.clock.CurrentHour()
	if !t.hist.Record(hour, n) {
		log.WithField("hour", hour).Warn("terminal: clock hour out of range")
		return
	}
	log.WithFields(log.Fields{"hour": hour, "n": n, "breaks": t.breaks.Seen()}).Debug("terminal: break counted")
	t.tone.Play(CueNote)
}

func (t *Terminal) showTime() {
	text := t.clock.CurrentTimeText()
	if text == t.lastTime {
		return
	}
	t.lastTime = text
	t.display.SetCursor(0, 0)
	t.display.WriteString(text)
}

func (t *Terminal) showAccess() {
	customers := int64(logic.CustomerCount(t.breaks.Seen()))
	if customers != t.lastCustomers {
		t.lastCustomers = customers
		t.display.SetCursor(0, 0)
		t.display.WriteString(fmt.Sprintf("%-*s", lineWidth, fmt.Sprintf("Tot Cust: %d", customers)))
	}

	busiest := t.hist.Busiest()
	if busiest != t.lastBusiest {
		t.lastBusiest = busiest
		h, suffix := logic.TwelveHour(busiest)
		t.display.SetCursor(1, 0)
		t.display.WriteString(fmt.Sprintf("%-*s", lineWidth, fmt.Sprintf("Busiest Hr: %d%s", h, suffix)))
	}
}

// EnterClock asks for the date (MM/DD/YY) and time (hh:mm:ss, then
// 0 for AM or 1 for PM) and sets the clock. Out-of-range values
// re-prompt.
func (t *Terminal) EnterClock(ctx context.Context) error {
	var e clock.Entry
	for {
		t.prompt("Enter the date:", "  /  /  ")
		f, err := t.readFields(ctx, '/')
		if err != nil {
			return err
		}
		e.Month, e.Day, e.Year = f[0], f[1], f[2]
		if err := e.ValidateDate(); err != nil {
			t.invalid("Invalid date.", err)
			continue
		}
		break
	}

	for {
		t.prompt("Enter the time:", "  :  :  ")
		f, err := t.readFields(ctx, ':')
		if err != nil {
			return err
		}
		e.Hour, e.Minute, e.Second = f[0], f[1], f[2]
		if err := e.ValidateTime(); err != nil {
			t.invalid("Invalid time.", err)
			continue
		}
		break
	}

	t.display.Reset()
	t.display.WriteString("0 - AM")
	t.display.SetCursor(1, 0)
	t.display.WriteString("1 - PM")
	for {
		n, err := t.keys.GetInt(ctx)
		if err != nil {
			return err
		}
		if n == 0 || n == 1 {
			e.PM = n == 1
			break
		}
	}

	now, err := e.Time(t.opts.Location)
	if err != nil {
		return err
	}
	t.clock.Set(now)
	log.WithField("time", now.Format(time.RFC3339)).Info("terminal: clock set")
	return nil
}

func (t *Terminal) prompt(title, template string) {
	t.display.Reset()
	t.display.WriteString(title)
	t.display.SetCursor(1, 0)
	t.display.WriteString(template)
	t.opts.Delay(PromptDelay)
	t.display.SetCursor(1, 0)
}

func (t *Terminal) invalid(msg string, err error) {
	log.WithError(err).Info("terminal: clock entry rejected")
	t.display.Reset()
	t.display.WriteString(msg)
	t.opts.Delay(IncorrectDelay)
}

// readFields reads three two-digit fields, echoing sep between them.
// Keys other than digits are ignored.
func (t *Terminal) readFields(ctx context.Context, sep byte) ([3]int, error) {
	var f [3]int
	for i := range f {
		if i > 0 {
			t.display.WriteChar(sep)
		}
		for d := 0; d < 2; d++ {
			c, err := t.readDigit(ctx)
			if err != nil {
				return f, err
			}
			t.display.WriteChar(c)
			f[i] = f[i]*10 + int(c-'0')
		}
	}
	return f, nil
}

func (t *Terminal) readDigit(ctx context.Context) (byte, error) {
	for {
		c, err := t.keys.GetChar(ctx)
		if err != nil {
			return 0, err
		}
		if c >= '0' && c <= '9' {
			return c, nil
		}
	}
}

func (t *Terminal) track() {
	if t.opts.Tracker == nil {
		return
	}
	t.opts.Tracker.Update(t.mode, t.alarmed, t.breaks.Seen(), t.hist)
}
