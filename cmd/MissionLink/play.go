package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"

	"github.com/BTreeMap/MissionLink/internal/feedback"
	"github.com/BTreeMap/MissionLink/internal/flow"
	"github.com/BTreeMap/MissionLink/internal/link"
	"github.com/BTreeMap/MissionLink/internal/terminal"
	"github.com/BTreeMap/MissionLink/internal/tone"
)

func runPlay(args []string, env Config, stdin *os.File, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("play", flag.ContinueOnError)
	fs.SetOutput(stderr)
	flags := registerCommonFlags(fs, env)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("play needs exactly one mission link or query string")
	}
	raw := fs.Arg(0)

	closeLog, err := setup(flags, stderr)
	if err != nil {
		return err
	}
	defer closeLog()

	mission, err := loadMission(flags)
	if err != nil {
		return err
	}

	kv, err := openStore(flags)
	if err != nil {
		return err
	}
	defer kv.Close()

	params := link.Decode(raw)
	tty := terminal.IsTerminal(stdin)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	screen := terminal.NewScreen(stdout, mission.Choices,
		terminal.WithMuted(*flags.muted),
		terminal.WithFullscreen(tty),
	)
	defer screen.Shutdown()

	ctrl := flow.NewController(mission, params,
		flow.WithEffects(screen),
		flow.WithSound(screen),
		flow.WithRenderer(screen),
		flow.WithNavigator(screen),
		flow.WithPublisher(feedback.NewChannel(kv)),
		flow.WithMissionURL(raw),
	)

	if tty {
		restore, err := terminal.EnterRaw(stdin)
		if err != nil {
			slog.Debug("runPlay: raw mode unavailable", "error", err)
		} else {
			defer restore()
		}
	}
	go terminal.Bind(ctx, terminal.ReadKeys(ctx, stdin), ctrl, cancel)

	preset := tone.Lookup(mission.Tones, params.Tone)
	prompt := lipgloss.NewStyle().Foreground(lipgloss.Color(preset.Accent)).Bold(true).
		Render("INCOMING TRANSMISSION FOR AGENT " + params.To + ". PRESS ENTER TO DECRYPT.")
	fmt.Fprint(stdout, prompt+"\r\n")

	err = ctrl.Run(ctx)
	if errors.Is(err, context.Canceled) {
		slog.Info("runPlay: mission abandoned", "phase", ctrl.Phase())
		return nil
	}
	return err
}
