// Package progress renders a console bar of processed items.
package progress

import (
	"fmt"
	"io"
	"sync/atomic"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

const barWidth = 48

// Tracker counts finished items. A nil *Tracker is a valid no-op.
type Tracker struct {
	p   *mpb.Progress
	bar *mpb.Bar

	failed atomic.Int64
}

// New starts a bar for total items rendered to w.
func New(w io.Writer, total int) *Tracker {
	p := mpb.New(mpb.WithOutput(w), mpb.WithWidth(barWidth), mpb.WithAutoRefresh())

	t := &Tracker{p: p}

	t.bar = p.AddBar(int64(total),
		mpb.PrependDecorators(
			decor.Name("items", decor.WC{C: decor.DSyncSpaceR}),
			decor.CountersNoUnit("%d / %d", decor.WCSyncWidth),
		),
		mpb.AppendDecorators(
			decor.Percentage(decor.WC{W: 5}),
			decor.Any(func(decor.Statistics) string {
				return fmt.Sprintf(" failed %d", t.failed.Load())
			}),
		),
	)

	return t
}

// Done advances the bar by one item.
func (t *Tracker) Done(ok bool) {
	if t == nil {
		return
	}

	if !ok {
		t.failed.Add(1)
	}

	t.bar.Increment()
}

// Failed returns how many items were reported as failed.
func (t *Tracker) Failed() int64 {
	if t == nil {
		return 0
	}

	return t.failed.Load()
}

// Wait completes the bar at its current count and waits for the final render.
// Skipped items leave the bar short of its total.
func (t *Tracker) Wait() {
	if t == nil {
		return
	}

	t.bar.SetTotal(-1, true)
	t.p.Wait()
}
