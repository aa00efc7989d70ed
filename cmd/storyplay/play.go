package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"webstories/models"
	"webstories/playback"
)

func newPlayCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "play <story-id>",
		Short: "Play a story; n/p navigate, e ends a video, q quits",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			story, err := ctx.session().Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			reason, err := play(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), story, playback.SystemClock{})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "playback %s\n", reason)
			return nil
		},
	}
}

// terminal serializes writes from the input loop and timer callbacks.
type terminal struct {
	mu  sync.Mutex
	out io.Writer
}

func (t *terminal) println(a ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintln(t.out, a...)
}

// play runs story until it finishes, the viewer quits, input ends or ctx
// is cancelled.
func play(ctx context.Context, in io.Reader, out io.Writer, story *models.Story, clock playback.Clock) (playback.ExitReason, error) {
	if len(story.Slides) == 0 {
		return playback.Closed, errors.New("story has no slides")
	}

	term := &terminal{out: out}
	var (
		mu    sync.Mutex
		ended func()
	)
	exited := make(chan playback.ExitReason, 1)

	player := playback.New(story.Slides, playback.Options{
		Clock: clock,
		OnEnter: func(f playback.Frame) {
			mu.Lock()
			ended = f.Ended
			mu.Unlock()
			term.println(describe(f))
		},
		OnExit: func(r playback.ExitReason) { exited <- r },
	})

	term.println(fmt.Sprintf("%s [%s], %d slides", story.Title, story.Category, len(story.Slides)))

	done := make(chan struct{})
	defer close(done)
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- strings.TrimSpace(scanner.Text()):
			case <-done:
				return
			}
		}
	}()

	player.Start()

	for {
		select {
		case r := <-exited:
			return r, nil
		case <-ctx.Done():
			player.Close()
			return <-exited, nil
		case line, ok := <-lines:
			if !ok {
				lines = nil
				player.Close()
				continue
			}
			switch line {
			case "n", "next":
				player.Press(playback.ButtonNext)
			case "p", "prev":
				player.Press(playback.ButtonPrev)
			case "q", "quit":
				player.Press(playback.ButtonClose)
			case "e", "end":
				mu.Lock()
				fn := ended
				mu.Unlock()
				if fn == nil {
					term.println("not a video slide")
					continue
				}
				fn()
			case "":
			default:
				term.println("unknown command " + line + " (n, p, e, q)")
			}
		}
	}
}

func describe(f playback.Frame) string {
	s := f.Slide
	var b strings.Builder
	fmt.Fprintf(&b, "[%d/%d %3.0f%%] %s %s", f.Index+1, f.Total, f.Progress()*100, s.Kind, s.URL)
	if s.Kind == models.KindVideo {
		b.WriteString(" (e when it ends)")
	} else {
		fmt.Fprintf(&b, " for %s", s.DisplayDuration())
	}
	if s.Animation != "" {
		fmt.Fprintf(&b, " animation=%s", s.Animation)
	}
	return b.String()
}
