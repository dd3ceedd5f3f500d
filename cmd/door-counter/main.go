// Command door-counter runs the pedestrian counting terminal: a 4x4 keypad,
// an infrared beam on an ADC channel, a piezo buzzer and a 2x16 display.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sweeney/door-counter/internal/clock"
	"github.com/sweeney/door-counter/internal/config"
	"github.com/sweeney/door-counter/internal/display"
	"github.com/sweeney/door-counter/internal/door"
	"github.com/sweeney/door-counter/internal/keypad"
	"github.com/sweeney/door-counter/internal/status"
	"github.com/sweeney/door-counter/internal/terminal"
)

type flags struct {
	configPath string
	envFile    string
	sim        bool
	logLevel   string
	heartbeat  time.Duration
	noClock    bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func newRootCmd() *cobra.Command {
	var f flags

	root := &cobra.Command{
		Use:           "door-counter",
		Short:         "Pedestrian counting and access-control terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, f)
			if err != nil {
				return err
			}
			return run(cfg, f.sim)
		},
	}
	root.PersistentFlags().StringVarP(&f.configPath, "config", "c", "", "YAML config file (defaults when empty)")
	root.PersistentFlags().StringVar(&f.envFile, "env-file", ".env", "env file with DOOR_COUNTER_* overrides")
	root.PersistentFlags().StringVar(&f.logLevel, "log-level", "", "log level (overrides config)")
	root.PersistentFlags().BoolVar(&f.sim, "sim", false, "simulate keypad and beam from stdin")
	root.Flags().DurationVar(&f.heartbeat, "heartbeat", 0, "status heartbeat interval (overrides config, 0 keeps it)")
	root.Flags().BoolVar(&f.noClock, "no-clock", false, "trust the host clock instead of prompting for date and time")

	root.AddCommand(newProbeCmd(&f))
	return root
}

func newProbeCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Read the keypad lines and one beam sample, then exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, *f)
			if err != nil {
				return err
			}
			hw, err := openHardware(cfg, f.sim)
			if err != nil {
				return err
			}
			defer hw.Close()
			return probe(cmd.OutOrStdout(), hw, cfg.Scale(), cfg.Sensor.ThresholdMV)
		},
	}
}

// loadConfig applies, in order: defaults, YAML file, env file, process
// environment, command-line flags.
func loadConfig(cmd *cobra.Command, f flags) (*config.Config, error) {
	if err := config.LoadEnvFile(f.envFile); err != nil {
		return nil, err
	}
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if f.logLevel != "" {
		cfg.LogLevel = f.logLevel
	}
	if f.sim {
		cfg.Sensor.Source = config.SourceSim
	}
	if cmd.Flags().Changed("heartbeat") {
		cfg.HeartbeatMs = f.heartbeat.Milliseconds()
	}
	if f.noClock {
		cfg.Terminal.PromptClock = false
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if err := setupLogging(cfg.LogLevel); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setupLogging(level string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	log.SetLevel(lvl)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	return nil
}

func run(cfg *config.Config, sim bool) error {
	hw, err := openHardware(cfg, sim)
	if err != nil {
		return err
	}
	defer hw.Close()

	keys, err := keypad.New(hw.matrix)
	if err != nil {
		return fmt.Errorf("init keypad: %w", err)
	}
	detector := door.NewDetector(cfg.Sensor.ThresholdMV)
	sampler := door.NewSampler(hw.reader, detector, cfg.Scale(), cfg.SampleInterval())

	tracker := status.NewTracker(time.Now(), status.Config{
		AdminName:    cfg.Admin.Name,
		SensorSource: cfg.Sensor.Source,
		SampleMs:     cfg.Sensor.IntervalMs,
		ThresholdMV:  cfg.Sensor.ThresholdMV,
		HeartbeatMs:  cfg.HeartbeatMs,
		PromptClock:  cfg.Terminal.PromptClock,
	})

	term := terminal.New(display.NewConsole(os.Stdout), clock.New(), hw.player, sampler, keys, terminal.Options{
		Credentials: terminal.Credentials{
			Name:     cfg.Admin.Name,
			Username: cfg.Admin.Username,
			Password: cfg.Admin.Password,
		},
		PromptClock:  cfg.Terminal.PromptClock,
		LoopInterval: cfg.LoopInterval(),
		Tracker:      tracker,
	})

	if sim {
		go feedKeys(os.Stdin, hw.fake, hw.beam)
		log.Info("simulator: type keypad legend characters, x toggles the beam")
	}

	counters := func() status.Counters {
		return status.Counters{
			DroppedKeys:   keys.Dropped(),
			KeyFaults:     keys.Faults(),
			SensorSamples: sampler.Samples(),
			SensorErrors:  sampler.Errors(),
		}
	}
	logStatusEvent(tracker, counters, "STARTUP", "")

	var heartbeat <-chan time.Time
	if hb := cfg.Heartbeat(); hb > 0 {
		ticker := time.NewTicker(hb)
		defer ticker.Stop()
		heartbeat = ticker.C
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	log.WithFields(log.Fields{
		"sensor":    cfg.Sensor.Source,
		"interval":  cfg.SampleInterval(),
		"threshold": cfg.Sensor.ThresholdMV,
		"heartbeat": cfg.Heartbeat(),
	}).Info("started")

	reason, err := runLoop(context.Background(), term, sampler, tracker, counters, heartbeat, sigCh)
	logStatusEvent(tracker, counters, "SHUTDOWN", reason)
	return err
}

// runner is a long-lived loop that stops when its context is done.
type runner interface {
	Run(ctx context.Context) error
}

var errShutdown = errors.New("shutdown requested")

// runLoop supervises the terminal, the sampler and the heartbeat until a
// signal arrives or one of them fails. It returns the signal name, if any.
func runLoop(ctx context.Context, term, sampler runner, tracker *status.Tracker, counters func() status.Counters, heartbeat <-chan time.Time, sig <-chan os.Signal) (string, error) {
	g, gctx := errgroup.WithContext(ctx)
	var reason string

	g.Go(func() error { return ignoreCanceled(sampler.Run(gctx)) })
	g.Go(func() error { return ignoreCanceled(term.Run(gctx)) })
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-heartbeat:
				logStatusEvent(tracker, counters, "HEARTBEAT", "")
			}
		}
	})
	g.Go(func() error {
		select {
		case s := <-sig:
			reason = signalName(s)
			log.WithField("signal", reason).Info("shutting down")
			return errShutdown
		case <-gctx.Done():
			return nil
		}
	})

	err := g.Wait()
	if errors.Is(err, errShutdown) {
		err = nil
	}
	return reason, err
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}

// logStatusEvent refreshes the counters and logs a status snapshot.
func logStatusEvent(tracker *status.Tracker, counters func() status.Counters, event, reason string) {
	tracker.SetCounters(counters())
	snap := tracker.Snapshot()
	entry := log.WithFields(status.Fields(snap)).WithField("event", event)
	if reason != "" {
		entry = entry.WithField("reason", reason)
	}
	entry.Info("status")
	log.WithField("event", event).Debug(string(status.FormatStatusEvent(snap, event, reason)))
}
