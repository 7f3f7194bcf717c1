package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/eliasbrown99/solicitation-dashboard/internal/core/domain"
	"github.com/eliasbrown99/solicitation-dashboard/internal/core/usecase"
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize FILE",
	Short: "Upload a document and follow its summarization",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		assumeYes, _ := cmd.Flags().GetBool("yes")

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if _, err := os.Stat(args[0]); err != nil {
			return fmt.Errorf("reading file: %w", err)
		}
		if err := a.Uploads.Select(domain.FileFromPath(args[0])); err != nil {
			return err
		}

		bar := newProgressBar(cmd.ErrOrStderr(), a.Config.ProgressStep, a.Config.ProgressTick)
		unsubscribe := a.Uploads.Subscribe(bar.track)
		defer unsubscribe()
		bar.start(cmd.Context())
		defer bar.stop()

		if err := a.Uploads.Submit(cmd.Context()); err != nil {
			return err
		}

		if snap := a.Uploads.Snapshot(); snap.State == domain.UploadAwaitingDecision {
			bar.pause()
			question := fmt.Sprintf("%q already has a summary (id %s). Overwrite it?", snap.Filename, idLabel(snap.ExistingID))
			ok, err := confirm(cmd.InOrStdin(), cmd.ErrOrStderr(), question, assumeYes)
			if err != nil || !ok {
				if cerr := a.Uploads.CancelOverwrite(); cerr != nil {
					return cerr
				}
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Upload cancelled.")
				return nil
			}
			bar.resume()
			if err := a.Uploads.ConfirmOverwrite(cmd.Context()); err != nil {
				return err
			}
		}
		bar.stop()

		snap := a.Uploads.Snapshot()
		if snap.DocumentID == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "Summarization finished without a record.")
			return nil
		}
		record, ok := a.Session.State().Tab(*snap.DocumentID)
		if !ok {
			return fmt.Errorf("document %s finished but is not open", snap.DocumentID)
		}
		renderRecord(cmd.OutOrStdout(), record)
		return nil
	},
}

func idLabel(id *domain.DocumentID) string {
	if id == nil {
		return "unknown"
	}
	return id.String()
}

// progressBar redraws the animated percentage on a terminal. On other
// writers it prints one line per phase change instead.
type progressBar struct {
	out      io.Writer
	progress *usecase.Progress
	tick     time.Duration
	redraw   bool

	mu        sync.Mutex
	phase     domain.Phase
	paused    bool
	cancel    context.CancelFunc
	done      chan struct{}
	stopOnce  sync.Once
	lastShown int
}

func newProgressBar(out io.Writer, step int, tick time.Duration) *progressBar {
	if tick <= 0 {
		tick = 100 * time.Millisecond
	}
	return &progressBar{
		out:       out,
		progress:  usecase.NewProgress(step),
		tick:      tick,
		redraw:    stderrIsTerminal(),
		lastShown: -1,
	}
}

func (b *progressBar) track(snap domain.UploadSnapshot) {
	b.progress.Track(snap)
	b.mu.Lock()
	defer b.mu.Unlock()
	if snap.Phase == "" || snap.Phase == b.phase {
		return
	}
	b.phase = snap.Phase
	if !b.redraw {
		fmt.Fprintf(b.out, "%s (target %d%%)\n", snap.Phase, snap.Target)
	}
}

func (b *progressBar) start(ctx context.Context) {
	ctx, b.cancel = context.WithCancel(ctx)
	b.done = make(chan struct{})
	go func() {
		defer close(b.done)
		ticker := time.NewTicker(b.tick)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				b.draw(b.progress.Tick())
			}
		}
	}()
}

func (b *progressBar) draw(value int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.redraw || b.paused || value == b.lastShown {
		return
	}
	b.lastShown = value
	fmt.Fprintf(b.out, "\r%-12s %3d%%", b.phase, value)
}

func (b *progressBar) pause() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.paused = true
	if b.redraw && b.lastShown >= 0 {
		fmt.Fprintln(b.out)
	}
}

func (b *progressBar) resume() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.paused = false
}

func (b *progressBar) stop() {
	b.stopOnce.Do(func() {
		if b.cancel == nil {
			return
		}
		b.cancel()
		<-b.done
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.redraw && b.lastShown >= 0 && !b.paused {
			fmt.Fprintf(b.out, "\r%-12s %3d%%\n", b.phase, b.progress.Target())
		}
	})
}
