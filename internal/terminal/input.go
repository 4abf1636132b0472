package terminal

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"os"
	"unicode"

	"golang.org/x/term"

	"github.com/BTreeMap/MissionLink/internal/models"
)

const ctrlC = 3

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// EnterRaw switches f to raw mode when it is a terminal so single key presses
// arrive without Enter and without echo. The returned restore func is never nil.
func EnterRaw(f *os.File) (func(), error) {
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return func() {}, nil
	}
	state, err := term.MakeRaw(fd)
	if err != nil {
		return func() {}, err
	}
	return func() {
		if err := term.Restore(fd, state); err != nil {
			slog.Warn("terminal.EnterRaw: restore failed", "error", err)
		}
	}, nil
}

// ReadKeys emits lower-cased runes read from r. The channel closes when r is
// exhausted or ctx ends.
func ReadKeys(ctx context.Context, r io.Reader) <-chan rune {
	keys := make(chan rune)
	go func() {
		defer close(keys)
		br := bufio.NewReader(r)
		for {
			ch, _, err := br.ReadRune()
			if err != nil {
				if err != io.EOF {
					slog.Debug("terminal.ReadKeys: read failed", "error", err)
				}
				return
			}
			select {
			case keys <- unicode.ToLower(ch):
			case <-ctx.Done():
				return
			}
		}
	}()
	return keys
}

// Sequence is the part of the controller driven by key presses.
type Sequence interface {
	Start()
	Decide(d models.Decision)
}

// Bind maps key presses onto seq until keys closes or ctx ends: Enter or
// Space starts, a/y/1 accepts, d/n/2 declines, q or Ctrl-C calls quit.
func Bind(ctx context.Context, keys <-chan rune, seq Sequence, quit func()) {
	for {
		select {
		case <-ctx.Done():
			return
		case k, ok := <-keys:
			if !ok {
				return
			}
			switch k {
			case '\r', '\n', ' ':
				seq.Start()
			case 'a', 'y', '1':
				seq.Decide(models.DecisionAccept)
			case 'd', 'n', '2':
				seq.Decide(models.DecisionDecline)
			case 'q', ctrlC:
				if quit != nil {
					quit()
				}
				return
			}
		}
	}
}
