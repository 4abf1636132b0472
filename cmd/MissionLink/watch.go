package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/BTreeMap/MissionLink/internal/config"
	"github.com/BTreeMap/MissionLink/internal/feedback"
	"github.com/BTreeMap/MissionLink/internal/lockfile"
	"github.com/BTreeMap/MissionLink/internal/terminal"
)

func runWatch(args []string, env Config, stdin *os.File, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	fs.SetOutput(stderr)
	flags := registerCommonFlags(fs, env)
	from := fs.String("from", "", "only show decisions on missions sent by this codename")
	if err := fs.Parse(args); err != nil {
		return err
	}

	closeLog, err := setup(flags, stderr)
	if err != nil {
		return err
	}
	defer closeLog()

	mission, err := loadMission(flags)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return watch(ctx, flags, mission, strings.ToUpper(strings.TrimSpace(*from)), stdin, stdout)
}

// watch polls the shared store and shows each decision as a toast until ctx
// ends or the user presses q. Enter dismisses the visible toast.
func watch(ctx context.Context, flags Flags, mission *config.Mission, from string, stdin *os.File, stdout io.Writer) error {
	lock, err := lockfile.AcquireLock(*flags.stateDir, "watch")
	if err != nil {
		return err
	}
	defer lock.Release()

	kv, err := openStore(flags)
	if err != nil {
		return err
	}
	defer kv.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	toaster := terminal.NewToaster(stdout, mission.ToastDuration, mission.ToastDismissDelay, *flags.muted)
	defer toaster.Close()

	if terminal.IsTerminal(stdin) {
		restore, err := terminal.EnterRaw(stdin)
		if err != nil {
			slog.Debug("watch: raw mode unavailable", "error", err)
		} else {
			defer restore()
		}
	}
	go func() {
		for k := range terminal.ReadKeys(ctx, stdin) {
			switch k {
			case '\r', '\n', ' ':
				toaster.Dismiss()
			case 'q', 3:
				cancel()
				return
			}
		}
	}()

	who := "any sender"
	if from != "" {
		who = "AGENT " + from
	}
	fmt.Fprintf(stdout, "Watching for mission feedback for %s. Press q to stop.\r\n", who)

	poller := feedback.NewPoller(feedback.NewChannel(kv), toaster, feedback.Filter{From: from}, mission.PollInterval)
	poller.Run(ctx)
	return nil
}
