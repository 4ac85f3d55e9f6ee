package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/gyrocall/internal/classify"
	"github.com/verte-zerg/gyrocall/internal/config"
	"github.com/verte-zerg/gyrocall/internal/cue"
	"github.com/verte-zerg/gyrocall/internal/model"
)

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# gyrocall configuration
# Uncomment a value to enable it. Environment (GYROCALL_*) overrides the
# file, CLI flags override both.

[game]
# seconds-per-round = %.1f  # Time to match each command
# rounds = %d               # Rounds per session
# lead-in-ms = %d          # Pause after the start tone
# settle-ms = %d          # Feedback pause between rounds
# frame-ms = %d             # Polling interval

[classifier]
# tolerance = %.1f         # Heading/tilt window in degrees
# tilt-threshold = %.1f    # Tilt needed for up/down

[sensor]
# source = %q          # phone, mqtt, nats, replay or mock
# listen = ":8090"          # Phone gateway address
# cert = ""                 # TLS certificate (iOS requires https for motion access)
# key = ""                  # TLS key
# mqtt-broker = "tcp://localhost:1883"
# mqtt-topic = %q
# nats-url = "nats://127.0.0.1:4222"
# nats-subject = %q
# replay-file = ""

[voice]
# lang = "en"               # Phrase pack language (default: $LANG)
# speech-cmd = %q
# bell = false              # Ring the terminal bell on start and timeout
# phrases-file = ""         # Custom phrase pack (YAML)
`,
		model.DefaultSecondsPerRound,
		model.DefaultTotalRounds,
		model.DefaultLeadIn.Milliseconds(),
		model.DefaultSettle.Milliseconds(),
		model.DefaultFrameInterval.Milliseconds(),
		classify.DefaultTolerance,
		classify.DefaultTiltThreshold,
		defaultSource,
		defaultMQTTTopic,
		defaultNATSSubject,
		cue.DefaultSpeechCommand,
	)
}

func newPhrasesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "phrases",
		Short: "List phrase packs",
		Args:  cobra.NoArgs,
		RunE:  runPhrasesCmd,
	}
}

func runPhrasesCmd(cmd *cobra.Command, _ []string) error {
	bundle, err := loadBundle()
	if err != nil {
		return err
	}
	for _, p := range bundle.Packs() {
		labels := make([]string, 0, len(model.AllDirections()))
		for _, d := range model.AllDirections() {
			labels = append(labels, p.Label(d))
		}
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%-6s %s voice=%-6s %s\n", p.Locale, runewidth.FillRight(p.Name, 10), p.Voice, strings.Join(labels, " ")); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}
