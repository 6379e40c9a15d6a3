// Package batch resolves pages for many chapters on a bounded worker pool.
package batch

import (
	"context"
	"fmt"
	"sync"

	"github.com/brogergvhs/mangakit/internal/model"
)

// ResolveFunc resolves the pages of one chapter.
type ResolveFunc func(ctx context.Context, ch model.Chapter) ([]model.Page, error)

// Progress receives one call per finished chapter. *ui.ProgressHandle
// satisfies it.
type Progress interface {
	Done(pages int)
	Fail()
	MarkDone()
}

type Result struct {
	Chapter model.Chapter
	Pages   []model.Page
	Err     error
}

type Runner struct {
	Workers    int
	SkipBroken bool
	Log        interface{ Debugf(string, ...any) }
}

// Run resolves every chapter and returns results in input order. Unless
// SkipBroken is set, any failed chapter makes Run return an error alongside
// the results.
func (r *Runner) Run(ctx context.Context, chapters []model.Chapter, resolve ResolveFunc, ph Progress) ([]Result, error) {
	total := len(chapters)
	results := make([]Result, total)
	for i, ch := range chapters {
		results[i].Chapter = ch
	}

	workers := r.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > total && total > 0 {
		workers = total
	}

	var mu sync.Mutex
	failed := 0

	jobs := make(chan int)
	var wg sync.WaitGroup

	worker := func() {
		defer wg.Done()
		for i := range jobs {
			ch := chapters[i]

			pages, err := resolve(ctx, ch)
			if err == nil && len(pages) == 0 {
				err = fmt.Errorf("no pages")
			}

			mu.Lock()
			if err != nil {
				failed++
				results[i].Err = err
				if r.Log != nil {
					r.Log.Debugf("chapter %s (%s): %v\n", ch.Token, ch.URL, err)
				}
				if ph != nil {
					ph.Fail()
				}
			} else {
				results[i].Pages = pages
				if ph != nil {
					ph.Done(len(pages))
				}
			}
			mu.Unlock()
		}
	}

	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go worker()
	}

	finish := func() {
		close(jobs)
		wg.Wait()
		if ph != nil {
			ph.MarkDone()
		}
	}

	for i := range chapters {
		if ctx.Err() != nil {
			finish()
			return results, ctx.Err()
		}
		select {
		case <-ctx.Done():
			finish()
			return results, ctx.Err()
		case jobs <- i:
		}
	}

	finish()

	if failed > 0 && !r.SkipBroken {
		return results, fmt.Errorf("failed %d/%d chapters (use --skip-broken to continue)", failed, total)
	}

	return results, nil
}
