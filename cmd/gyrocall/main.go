// Package main provides the CLI entrypoint for gyrocall.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/gyrocall/internal/config"
	"github.com/verte-zerg/gyrocall/internal/logging"
	"github.com/verte-zerg/gyrocall/internal/sensor"
	"github.com/verte-zerg/gyrocall/internal/tui"
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "gyrocall",
		Short:         "Orientation reaction game for your phone",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runPlayCmd,
	}
	bindSettingsFlags(rootCmd)

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newRecordCmd())
	rootCmd.AddCommand(newPhrasesCmd())
	rootCmd.AddCommand(newConfigCmd())
	return rootCmd
}

func runPlayCmd(cmd *cobra.Command, _ []string) error {
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	logger, closer, err := logging.SetupFile(config.DefaultLogPath(), s.logLevel)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closer.Close(); cerr != nil {
			logErrf("failed to close log: %v\n", cerr)
		}
	}()
	warnUnusualSettings(logger, s)

	pack, err := loadPack(s)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clock := clockwork.NewRealClock()
	sampler := sensor.NewSampler()
	src, gw, err := buildSource(s, clock, logger)
	if err != nil {
		return err
	}
	srcErr := make(chan error, 1)
	go func() {
		srcErr <- src.Run(ctx, sampler)
	}()

	hint := fmt.Sprintf("source: %s", s.source)
	if gw != nil {
		addrCtx, addrCancel := context.WithTimeout(ctx, 5*time.Second)
		addr, err := gw.Addr(addrCtx)
		addrCancel()
		if err != nil {
			return fmt.Errorf("phone gateway did not start: %w", err)
		}
		hint = "Open on your phone: " + joinURLs(phoneURLs(addr, s.cert != ""))
	}

	out := buildCue(s, pack, gw, os.Stderr, logger)
	var phone tui.Presence
	if gw != nil {
		phone = gw
	}
	m := tui.NewModel(ctx, tui.Options{
		Config:     s.sessionConfig(),
		Sampler:    sampler,
		Capability: sensor.CapabilityOf(src),
		Classifier: s.classifier(),
		Picker:     s.picker(),
		Clock:      clock,
		Cue:        out,
		Pack:       pack,
		Hint:       hint,
		Phone:      phone,
		Logger:     logger,
	})
	program := tea.NewProgram(m, tea.WithAltScreen())
	_, runErr := program.Run()
	if cerr := m.Close(); cerr != nil {
		logger.Warn().Err(cerr).Msg("failed to close cue output")
	}
	cancel()
	if err := <-srcErr; err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Str("source", s.source).Msg("sensor source stopped")
		if runErr == nil {
			return fmt.Errorf("sensor source failed: %w", err)
		}
	}
	if runErr != nil {
		return fmt.Errorf("failed to run TUI: %w", runErr)
	}
	return nil
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
