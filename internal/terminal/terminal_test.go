package terminal

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/door-counter/internal/clock"
	"github.com/sweeney/door-counter/internal/display"
	"github.com/sweeney/door-counter/internal/gpio"
	"github.com/sweeney/door-counter/internal/keypad"
	"github.com/sweeney/door-counter/internal/logic"
	"github.com/sweeney/door-counter/internal/status"
	"github.com/sweeney/door-counter/internal/tone"
)

type fakeSensor struct {
	breaks atomic.Uint32
	armed  atomic.Bool
}

func (s *fakeSensor) BreakCount() uint32 { return s.breaks.Load() }
func (s *fakeSensor) Arm()               { s.armed.Store(true) }

type rig struct {
	matrix  *gpio.FakeMatrix
	disp    *display.Buffer
	clk     *clock.Clock
	player  *tone.FakePlayer
	sensor  *fakeSensor
	tracker *status.Tracker
	delays  []time.Duration
	term    *Terminal
}

var testNow = time.Date(2026, 3, 1, 14, 0, 0, 0, time.UTC)

func newRig(t *testing.T, promptClock bool) *rig {
	t.Helper()
	r := &rig{
		matrix:  gpio.NewFakeMatrix(),
		disp:    display.NewBuffer(),
		clk:     clock.NewWithSource(func() time.Time { return testNow }),
		player:  &tone.FakePlayer{},
		sensor:  &fakeSensor{},
		tracker: status.NewTracker(testNow, status.Config{}),
	}
	keys, err := keypad.New(r.matrix)
	require.NoError(t, err)

	r.term = New(r.disp, r.clk, r.player, r.sensor, keys, Options{
		Credentials: Credentials{Name: "Mitchell", Username: "62653", Password: "123ABC"},
		PromptClock: promptClock,
		Location:    time.UTC,
		Delay:       func(d time.Duration) { r.delays = append(r.delays, d) },
		Tracker:     r.tracker,
	})
	return r
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func (r *rig) tap(s string) { keypad.TapString(r.matrix, s) }

func (r *rig) step(t *testing.T) {
	t.Helper()
	require.NoError(t, r.term.Step(testContext(t)))
}

// boot logs in and picks the mode for choice.
func (r *rig) boot(t *testing.T, choice string) {
	t.Helper()
	r.tap("62653" + "123ABC" + choice)
	r.step(t)
	r.delays = nil
}

func countDelays(delays []time.Duration, d time.Duration) int {
	n := 0
	for _, x := range delays {
		if x == d {
			n++
		}
	}
	return n
}

func TestBootLogsInAndArmsSensor(t *testing.T) {
	r := newRig(t, false)
	assert.Equal(t, logic.ModeInitialize, r.term.Mode())

	r.boot(t, "1")

	assert.Equal(t, logic.ModeScan, r.term.Mode())
	assert.True(t, r.sensor.armed.Load())
	snap := r.tracker.Snapshot()
	assert.True(t, snap.LoggedIn)
	assert.True(t, snap.Armed)
	assert.Equal(t, logic.ModeScan, snap.Mode)
}

func TestSensorNotArmedBeforeModeChosen(t *testing.T) {
	r := newRig(t, false)
	r.tap("62653123ABC")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := r.term.Step(ctx)

	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, r.sensor.armed.Load())
	assert.Equal(t, logic.ModeInitialize, r.term.Mode())
}

func TestLoginWrongUsernameRestartsBeforePassword(t *testing.T) {
	r := newRig(t, false)
	r.tap("11111" + "62653" + "123ABC" + "2")
	r.step(t)

	assert.Equal(t, logic.ModeAlarm, r.term.Mode())
	assert.Equal(t, 1, countDelays(r.delays, IncorrectDelay))
}

func TestLoginWrongPasswordRestarts(t *testing.T) {
	r := newRig(t, false)
	r.tap("62653" + "123ABD" + "62653" + "123ABC" + "3")
	r.step(t)

	assert.Equal(t, logic.ModeAccess, r.term.Mode())
	assert.Equal(t, 1, countDelays(r.delays, IncorrectDelay))
}

func TestLoginEchoesUsernameAndMasksPassword(t *testing.T) {
	r := newRig(t, false)
	r.tap("62653" + "654321")

	res, err := r.term.Login(testContext(t))
	require.NoError(t, err)
	assert.Equal(t, logic.ResultIncorrect, res)
	assert.Equal(t, "Password:", r.disp.Text(0))
	assert.Equal(t, "******", r.disp.Text(1))

	r.tap("6265A")
	res, err = r.term.Login(testContext(t))
	require.NoError(t, err)
	assert.Equal(t, logic.ResultIncorrect, res)
	assert.Equal(t, "Username:", r.disp.Text(0))
	assert.Equal(t, "6265A", r.disp.Text(1))
}

func TestLoginReadsFullLengthBeforeComparing(t *testing.T) {
	r := newRig(t, false)
	// Wrong from the first character: the remaining four are still consumed.
	r.tap("99999" + "62653" + "123ABC")

	res, err := r.term.Login(testContext(t))
	require.NoError(t, err)
	assert.Equal(t, logic.ResultIncorrect, res)

	res, err = r.term.Login(testContext(t))
	require.NoError(t, err)
	assert.Equal(t, logic.ResultCorrect, res)
}

func TestChooseModeIgnoresOtherKeys(t *testing.T) {
	r := newRig(t, false)
	r.tap("5" + "A" + "2")

	require.NoError(t, r.term.ChooseMode(testContext(t)))

	assert.Equal(t, logic.ModeAlarm, r.term.Mode())
	// Opening pause plus two per menu cycle.
	assert.Equal(t, 1+2*3, countDelays(r.delays, MenuDelay))
	assert.Equal(t, "Alarm set.", r.disp.Text(0))
}

func TestChooseModeStopsOnCancel(t *testing.T) {
	r := newRig(t, false)
	ctx, cancel := context.WithCancel(context.Background())
	r.term.opts.Delay = func(time.Duration) { cancel() }

	err := r.term.ChooseMode(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAlarmScenario(t *testing.T) {
	r := newRig(t, false)
	r.boot(t, "2")
	require.Equal(t, logic.ModeAlarm, r.term.Mode())

	r.step(t)
	assert.False(t, r.term.Alarmed())
	assert.Empty(t, r.player.Notes())

	r.sensor.breaks.Store(1)
	r.step(t)
	assert.True(t, r.term.Alarmed())
	assert.Equal(t, []tone.Note{AlarmHigh, AlarmLow}, r.player.Notes())
	assert.Equal(t, "ALARM!", r.disp.Text(0))

	// Sticky: no further breaks, still sounding every iteration.
	r.step(t)
	r.step(t)
	assert.Len(t, r.player.Notes(), 6)
	assert.True(t, r.tracker.Snapshot().Alarmed)

	r.tap("123ABC" + "1")
	for i := 0; i < 5; i++ {
		r.step(t)
		assert.True(t, r.term.Alarmed(), "still alarmed after %d hotkey chars", i+1)
		assert.Equal(t, logic.ModeAlarm, r.term.Mode())
	}
	r.player.Reset()
	r.step(t)

	assert.False(t, r.term.Alarmed())
	assert.Equal(t, logic.ModeScan, r.term.Mode())
	assert.Equal(t, 0, r.term.EntryLen())
	assert.Len(t, r.player.Notes(), 2, "the completing iteration still sounds once")
	assert.False(t, r.tracker.Snapshot().Alarmed)

	r.player.Reset()
	r.step(t)
	assert.Empty(t, r.player.Notes())
}

func TestAlarmBreaksAreNotCountedLater(t *testing.T) {
	r := newRig(t, false)
	r.boot(t, "2")

	r.sensor.breaks.Store(3)
	r.step(t)
	r.tap("123ABC" + "1")
	for i := 0; i < 6; i++ {
		r.step(t)
	}
	require.Equal(t, logic.ModeScan, r.term.Mode())

	hist := r.term.Histogram()
	assert.Equal(t, uint32(0), hist.Total())

	r.sensor.breaks.Store(4)
	r.step(t)
	hist = r.term.Histogram()
	assert.Equal(t, uint32(1), hist.Slot(14))
}

func TestAccessScenario(t *testing.T) {
	r := newRig(t, false)
	r.boot(t, "3")

	r.step(t)
	assert.Equal(t, "Tot Cust: 0", r.disp.Text(0))
	assert.Equal(t, "Busiest Hr: 12AM", r.disp.Text(1))

	for i := uint32(1); i <= 4; i++ {
		r.sensor.breaks.Store(i)
		r.step(t)
	}

	assert.Equal(t, "Tot Cust: 2", r.disp.Text(0))
	assert.Equal(t, "Busiest Hr: 2PM", r.disp.Text(1))
	assert.Len(t, r.player.Notes(), 4)
	hist := r.term.Histogram()
	assert.Equal(t, uint32(4), hist.Slot(14))

	snap := r.tracker.Snapshot()
	assert.Equal(t, uint32(4), snap.Breaks)
	assert.Equal(t, uint32(2), snap.Customers)
	assert.Equal(t, 14, snap.BusiestHour)
}

func TestAccessRedrawsOnlyOnChange(t *testing.T) {
	r := newRig(t, false)
	r.boot(t, "3")
	r.step(t)

	writes := r.disp.Writes()
	r.step(t)
	r.step(t)
	assert.Equal(t, writes, r.disp.Writes())

	r.sensor.breaks.Store(1)
	r.step(t)
	assert.Equal(t, "Tot Cust: 1", r.disp.Text(0))
}

func TestScanCountsSeveralBreaksWithOneCue(t *testing.T) {
	r := newRig(t, false)
	r.boot(t, "1")

	r.sensor.breaks.Store(3)
	r.step(t)

	hist := r.term.Histogram()
	assert.Equal(t, uint32(3), hist.Slot(14))
	assert.Equal(t, []tone.Note{CueNote}, r.player.Notes())
	assert.Equal(t, "02:00:00 PM", r.disp.Text(0))
}

func TestScanRedrawsTimeOnlyOnChange(t *testing.T) {
	r := newRig(t, false)
	r.boot(t, "1")
	r.step(t)

	writes := r.disp.Writes()
	r.step(t)
	assert.Equal(t, writes, r.disp.Writes())

	r.clk.Set(testNow.Add(time.Second))
	r.step(t)
	assert.Equal(t, "02:00:01 PM", r.disp.Text(0))
}

func TestIncorrectHotkey(t *testing.T) {
	r := newRig(t, false)
	r.boot(t, "1")

	r.tap("999999")
	for i := 0; i < 3; i++ {
		r.step(t)
	}
	assert.Equal(t, 3, r.term.EntryLen())
	assert.Equal(t, "***", r.disp.Text(1))

	for i := 0; i < 3; i++ {
		r.step(t)
	}
	assert.Equal(t, logic.ModeScan, r.term.Mode())
	assert.Equal(t, 0, r.term.EntryLen())
	assert.Equal(t, "", r.disp.Text(1))
	row, col := r.disp.Cursor()
	assert.Equal(t, 1, row)
	assert.Equal(t, 0, col)
}

func TestIncorrectHotkeyRedrawsBusiestHour(t *testing.T) {
	r := newRig(t, false)
	r.boot(t, "3")
	r.step(t)

	r.tap("000000")
	for i := 0; i < 6; i++ {
		r.step(t)
	}
	r.step(t)
	assert.Equal(t, "Busiest Hr: 12AM", r.disp.Text(1))
}

func TestCheckPasswordIncompleteWithoutKeys(t *testing.T) {
	r := newRig(t, false)
	assert.Equal(t, logic.ResultIncomplete, r.term.CheckPassword())
	assert.Equal(t, 0, r.term.EntryLen())
}

func TestCheckPasswordSkipsGhostedKeys(t *testing.T) {
	r := newRig(t, false)
	r.matrix.Press(0, 0)
	r.matrix.Press(1, 1)
	r.matrix.Fire(0)
	r.matrix.ReleaseAll()

	assert.Equal(t, logic.ResultIncomplete, r.term.CheckPassword())
	assert.Equal(t, 0, r.term.EntryLen())
}

func TestEnterClock(t *testing.T) {
	r := newRig(t, true)
	r.tap("62653" + "123ABC" + "021717" + "034510" + "1" + "1")
	r.step(t)

	require.Equal(t, logic.ModeScan, r.term.Mode())
	assert.Equal(t, "03:45:10 PM", r.clk.CurrentTimeText())
	assert.Equal(t, 15, r.clk.CurrentHour())
	assert.Equal(t, time.Date(2017, 2, 17, 15, 45, 10, 0, time.UTC), r.clk.Now())
}

func TestEnterClockRejectsInvalid(t *testing.T) {
	r := newRig(t, true)
	// Bad month, then a date with a stray letter; bad hour, then a good
	// time; 7 is not an AM/PM choice.
	r.tap("133117" + "01A0120" + "000000" + "120000" + "7" + "0")

	require.NoError(t, r.term.EnterClock(testContext(t)))

	assert.Equal(t, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), r.clk.Now())
	assert.Equal(t, 2, countDelays(r.delays, IncorrectDelay))
}

func TestEnterClockEchoesSeparators(t *testing.T) {
	r := newRig(t, true)
	r.tap("1225")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := r.term.EnterClock(ctx)

	require.Error(t, err)
	assert.Equal(t, "Enter the date:", r.disp.Text(0))
	assert.Equal(t, "12/25/", r.disp.Text(1))
}

func TestRunStopsOnCancel(t *testing.T) {
	r := newRig(t, false)
	r.boot(t, "1")
	r.term.opts.LoopInterval = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.term.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
