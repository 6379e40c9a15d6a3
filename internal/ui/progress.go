package ui

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

type MPBProgressManager struct {
	p *mpb.Progress
}

func NewProgressManager(out io.Writer) *MPBProgressManager {
	p := mpb.New(
		mpb.WithWidth(52),
		mpb.WithOutput(out),
		mpb.WithRefreshRate(120*time.Millisecond),
	)
	return &MPBProgressManager{p: p}
}

func (pm *MPBProgressManager) Close() {
	pm.p.Wait()
}

// Register adds a bar counting chapters; pages found so far are shown
// next to it.
func (pm *MPBProgressManager) Register(prefix string, total int) *ProgressHandle {
	h := &ProgressHandle{
		pm:     pm,
		prefix: prefix,
		total:  int64(total),
	}
	h.initBar()
	return h
}

type ProgressHandle struct {
	pm     *MPBProgressManager
	prefix string
	bar    *mpb.Bar

	total  int64
	pages  atomic.Int64
	failed atomic.Int64

	start   time.Time
	elapsed atomic.Int64

	final atomic.Bool
}

func (h *ProgressHandle) initBar() {
	h.start = time.Now()

	h.bar = h.pm.p.New(
		h.total,
		mpb.BarStyle().Rbound("]"),

		mpb.PrependDecorators(
			decor.Name(h.prefix+"  "),
		),

		mpb.AppendDecorators(
			decor.Percentage(decor.WCSyncWidth),
			decor.CountersNoUnit(" | %d/%d chapters", decor.WCSyncWidth),
			decor.Any(func(_ decor.Statistics) string {
				s := fmt.Sprintf(" | %d pages", h.pages.Load())
				if f := h.failed.Load(); f > 0 {
					s += fmt.Sprintf(", %d failed", f)
				}
				return s
			}),

			decor.Any(func(_ decor.Statistics) string {
				if h.final.Load() {
					return fmt.Sprintf(" | %ds", h.elapsed.Load())
				}
				return fmt.Sprintf(" | %ds", int(time.Since(h.start).Seconds()))
			}),
		),
	)
}

// Done records one finished chapter with the number of pages it yielded.
func (h *ProgressHandle) Done(pages int) {
	if h.final.Load() {
		return
	}
	h.pages.Add(int64(pages))
	h.bar.Increment()
}

func (h *ProgressHandle) Fail() {
	if h.final.Load() {
		return
	}
	h.failed.Add(1)
	h.bar.Increment()
}

func (h *ProgressHandle) MarkDone() {
	if h.final.Swap(true) {
		return
	}

	h.elapsed.Store(int64(time.Since(h.start).Seconds()))
	h.bar.SetTotal(h.total, true)
}
