package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/gyrocall/internal/engine"
	"github.com/verte-zerg/gyrocall/internal/logging"
	"github.com/verte-zerg/gyrocall/internal/model"
	"github.com/verte-zerg/gyrocall/internal/phrases"
	"github.com/verte-zerg/gyrocall/internal/result"
	"github.com/verte-zerg/gyrocall/internal/sensor"
)

const samplePoll = 10 * time.Millisecond

var errSourceEnded = errors.New("source ended")

var (
	runWait time.Duration

	recordOut      string
	recordDuration time.Duration
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Play one session without the TUI and print the summary",
		Long: "Play one session against a non-interactive source. The first valid " +
			"sample becomes the baseline.",
		Args: cobra.NoArgs,
		RunE: runHeadlessCmd,
	}
	cmd.Flags().DurationVar(&runWait, "wait", 10*time.Second, "how long to wait for the first sample")
	return cmd
}

func runHeadlessCmd(cmd *cobra.Command, _ []string) error {
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	logger := logging.Setup(cmd.ErrOrStderr(), s.logLevel, result.ShouldUseColor(os.Stderr))
	warnUnusualSettings(logger, s)
	if s.source == sourcePhone {
		return fmt.Errorf("run needs a non-interactive source (--source mqtt|nats|replay|mock)")
	}
	pack, err := loadPack(s)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clock := clockwork.NewRealClock()
	sampler := sensor.NewSampler()
	src, _, err := buildSource(s, clock, logger)
	if err != nil {
		return err
	}
	srcCtx, cancelSrc := context.WithCancel(ctx)
	defer cancelSrc()
	srcErr := startSource(srcCtx, src, sampler, s.source, logger)

	baseline, err := waitForSample(ctx, clock, sampler, runWait, srcErr)
	if err != nil {
		return err
	}
	logger.Info().
		Float64("alpha", baseline.Alpha).
		Float64("beta", baseline.Beta).
		Float64("gamma", baseline.Gamma).
		Msg("baseline captured")

	out := buildCue(s, pack, nil, cmd.ErrOrStderr(), logger)
	if err := out.Init(ctx); err != nil {
		logger.Warn().Err(err).Msg("cue output unavailable")
	}
	defer func() {
		if err := out.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close cue output")
		}
	}()

	session, err := engine.New(engine.Options{
		Config:   s.sessionConfig(),
		Baseline: baseline,
		Sampler:  sampler,
		Matcher:  s.classifier(),
		Picker:   s.picker(),
		Clock:    clock,
		Cue:      out,
		Phrases:  pack,
		Listener: roundLogger{log: logger, pack: pack},
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	if err := session.Run(ctx); err != nil {
		return fmt.Errorf("session interrupted: %w", err)
	}
	res, _ := session.Result()
	return result.RenderSummary(cmd.OutOrStdout(), res, pack, result.ShouldUseColor(os.Stdout))
}

// startSource runs src in the background and reports its exit on the
// returned channel.
func startSource(ctx context.Context, src sensor.Source, sink sensor.Sink, name string, logger zerolog.Logger) <-chan error {
	done := make(chan error, 1)
	go func() {
		err := src.Run(ctx, sink)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Str("source", name).Msg("sensor source stopped")
		}
		done <- err
	}()
	return done
}

// waitForSample polls sampler until it holds a valid sample.
func waitForSample(ctx context.Context, clock clockwork.Clock, sampler *sensor.Sampler, timeout time.Duration, srcErr <-chan error) (model.OrientationSample, error) {
	deadline := clock.After(timeout)
	ticker := clock.NewTicker(samplePoll)
	defer ticker.Stop()
	for {
		if sample, ok := sampler.Latest(); ok {
			return sample, nil
		}
		select {
		case <-ctx.Done():
			return model.OrientationSample{}, ctx.Err()
		case err := <-srcErr:
			if sample, ok := sampler.Latest(); ok {
				return sample, nil
			}
			if err == nil {
				err = errSourceEnded
			}
			return model.OrientationSample{}, fmt.Errorf("no orientation sample: %w", err)
		case <-deadline:
			return model.OrientationSample{}, fmt.Errorf("no orientation sample within %s", timeout)
		case <-ticker.Chan():
		}
	}
}

type roundLogger struct {
	log  zerolog.Logger
	pack *phrases.Pack
}

func (r roundLogger) RoundStarted(round int, target model.Direction) {
	r.log.Info().Int("round", round+1).Str("target", r.pack.Label(target)).Msg("round started")
}

func (r roundLogger) RoundResolved(round int, o model.RoundOutcome) {
	r.log.Info().
		Int("round", round+1).
		Bool("success", o.Success).
		Dur("elapsed", o.Elapsed).
		Msg("round resolved")
}

func (r roundLogger) Finished(res model.SessionResult) {
	r.log.Info().Int("correct", res.CorrectCount).Int("total", res.TotalCount).Msg("session finished")
}

func newRecordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record a live source to JSON lines for --source replay",
		Args:  cobra.NoArgs,
		RunE:  runRecordCmd,
	}
	cmd.Flags().StringVar(&recordOut, "out", "", "output file")
	cmd.Flags().DurationVar(&recordDuration, "duration", 0, "stop after this long (default: until interrupted)")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func runRecordCmd(cmd *cobra.Command, _ []string) error {
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	logger := logging.Setup(cmd.ErrOrStderr(), s.logLevel, result.ShouldUseColor(os.Stderr))
	warnUnusualSettings(logger, s)
	if s.source == sourceReplay {
		return fmt.Errorf("record needs a live source")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if recordDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, recordDuration)
		defer cancel()
	}

	f, err := os.Create(recordOut)
	if err != nil {
		return fmt.Errorf("failed to create recording: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			logErrf("failed to close recording: %v\n", cerr)
		}
	}()

	clock := clockwork.NewRealClock()
	src, gw, err := buildSource(s, clock, logger)
	if err != nil {
		return err
	}
	if gw != nil {
		go func() {
			if addr, err := gw.Addr(ctx); err == nil {
				logger.Info().Msg("open on your phone: " + joinURLs(phoneURLs(addr, s.cert != "")))
			}
		}()
	}

	rec := sensor.NewRecorder(f, sensor.NewSampler(), clock)
	logger.Info().Str("source", s.source).Str("out", recordOut).Msg("recording, press ctrl+c to stop")
	err = src.Run(ctx, rec)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if err := rec.Err(); err != nil {
		return err
	}
	logger.Info().Int("frames", rec.Count()).Str("out", recordOut).Msg("recording saved")
	return nil
}
