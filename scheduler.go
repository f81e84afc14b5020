package grabber

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/semaphore"

	"github.com/sandexzx/PDF-Matrix-Grabber/decode"
	"github.com/sandexzx/PDF-Matrix-Grabber/logger"
	"github.com/sandexzx/PDF-Matrix-Grabber/raster"
)

// Scheduler enumerates tasks across the input set, dispatches them to a
// worker pool (or runs them inline for W=1), and reorders completions
// back into the precomputed task order before handing them to the sink
// (§4.5).
type Scheduler struct {
	cfg   *Config
	rz    raster.Rasterizer
	dec   decode.Decoder
	sink  *Sink
	stats *SessionStats

	lastFile string
}

// NewScheduler wires a Scheduler from an already-validated Config, a
// ready Sink, and the SessionStats the driver owns.
func NewScheduler(cfg *Config, rz raster.Rasterizer, dec decode.Decoder, sink *Sink, stats *SessionStats) *Scheduler {
	return &Scheduler{cfg: cfg, rz: rz, dec: dec, sink: sink, stats: stats}
}

// Enumerate lists every *.pdf under cfg.InputDir (sorted lexicographically),
// queries each file's page count, and produces the full, filtered,
// limit-truncated task list (§4.5 "Enumeration"). Per-file errors are
// recorded against stats and do not abort enumeration of the rest.
func (s *Scheduler) Enumerate(ctx context.Context) ([]PdfTask, error) {
	names, err := doublestar.Glob(os.DirFS(s.cfg.InputDir), "*.pdf")
	if err != nil {
		return nil, fmt.Errorf("glob input dir: %w", err)
	}
	sort.Strings(names)

	if len(names) == 0 {
		return nil, &InputError{Reason: fmt.Sprintf("no PDFs found in %s", s.cfg.InputDir)}
	}
	s.stats.TotalFiles = len(names)

	var resumeSet map[ProgressEntry]struct{}
	if s.cfg.Resume {
		resumeSet, err = LoadProgress(s.cfg.OutputPath)
		if err != nil {
			return nil, fmt.Errorf("load progress: %w", err)
		}
		s.stats.ResumedFrom = len(resumeSet)
	}

	var tasks []PdfTask
	for _, name := range names {
		path := filepath.Join(s.cfg.InputDir, name)
		count, err := s.rz.PageCount(ctx, path)
		if err != nil {
			fileErr := &FileError{Path: path, Err: err}
			logger.Warn("skipping unreadable file", "path", path, "err", err)
			s.stats.Errors = append(s.stats.Errors, fileErr.Error())
			s.stats.FilesWithErrors++
			continue
		}
		s.stats.TotalPages += count

		for page := 0; page < count; page++ {
			entry := ProgressEntry{Filename: path, Page1Based: page + 1}
			if resumeSet != nil {
				if _, done := resumeSet[entry]; done {
					continue
				}
			}
			tasks = append(tasks, PdfTask{Path: path, PageIndex0: page})
		}
	}

	if s.cfg.Limit > 0 && len(tasks) > s.cfg.Limit {
		tasks = tasks[:s.cfg.Limit]
	}

	return tasks, nil
}

// Run dispatches tasks (single-worker inline, or a process pool for
// W > 1), committing outcomes to the sink strictly in task order, and
// folding each completed task into stats exactly once.
func (s *Scheduler) Run(ctx context.Context, tasks []PdfTask) error {
	if s.cfg.Workers <= 1 {
		return s.runInline(ctx, tasks)
	}
	return s.runPooled(ctx, tasks)
}

func (s *Scheduler) runInline(ctx context.Context, tasks []PdfTask) error {
	for _, task := range tasks {
		if ctx.Err() != nil {
			s.stats.Interrupted = true
			return nil
		}
		outcomes := PageWorker(ctx, s.rz, s.dec, task, s.cfg)
		if err := s.commit(task, outcomes); err != nil {
			return err
		}
	}
	return nil
}

type indexedResult struct {
	index    int
	task     PdfTask
	outcomes []PageOutcome
}

// runPooled implements §4.5's multi-worker mode: tasks dispatched to a
// bounded pool of process-level workers (SPEC_FULL.md's self-re-exec
// design), completions staged by task index, drained in order as the
// cursor advances.
func (s *Scheduler) runPooled(ctx context.Context, tasks []PdfTask) error {
	pool, err := newProcessPool(s.cfg.Workers)
	if err != nil {
		return fmt.Errorf("start worker pool: %w", err)
	}
	defer pool.closeAll()

	resultCh := make(chan indexedResult, len(tasks))
	sem := semaphore.NewWeighted(int64(s.cfg.Workers))

	var wg sync.WaitGroup
	dispatchCtx, cancelDispatch := context.WithCancel(ctx)
	defer cancelDispatch()

dispatchLoop:
	for i, task := range tasks {
		if ctx.Err() != nil {
			s.stats.Interrupted = true
			break dispatchLoop
		}
		if err := sem.Acquire(dispatchCtx, 1); err != nil {
			break dispatchLoop
		}

		wg.Add(1)
		go func(idx int, t PdfTask) {
			defer wg.Done()
			defer sem.Release(1)

			proc, ok := pool.checkout(dispatchCtx)
			if !ok {
				resultCh <- indexedResult{index: idx, task: t, outcomes: []PageOutcome{{
					Kind: OutcomeError, Filename: t.Path, Page1Based: t.PageIndex0 + 1,
					Message: "no worker process available",
				}}}
				return
			}

			outcomes, runErr := proc.run(t, s.cfg)
			if runErr != nil {
				logger.Warn("worker process failed, retiring it", "err", runErr)
				pool.retire(proc)
				resultCh <- indexedResult{index: idx, task: t, outcomes: []PageOutcome{{
					Kind: OutcomeError, Filename: t.Path, Page1Based: t.PageIndex0 + 1,
					Message: runErr.Error(),
				}}}
				return
			}
			pool.checkin(proc)
			resultCh <- indexedResult{index: idx, task: t, outcomes: outcomes}
		}(i, task)
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	return s.drainInOrder(resultCh, len(tasks))
}

// drainInOrder implements the §4.5 staging-map-plus-cursor idiom,
// generalized from page keys to task indices since the task list is
// already in the exact order the sink must see (same invariant, simpler
// key).
func (s *Scheduler) drainInOrder(resultCh <-chan indexedResult, total int) error {
	staging := make(map[int]indexedResult, s.cfg.Workers*2)
	cursor := 0

	for res := range resultCh {
		staging[res.index] = res
		for {
			next, ok := staging[cursor]
			if !ok {
				break
			}
			delete(staging, cursor)
			if err := s.commit(next.task, next.outcomes); err != nil {
				return err
			}
			cursor++
		}
	}

	if cursor < total {
		s.stats.Interrupted = true
	}
	return nil
}

// commit folds one completed task's outcomes into stats and appends them
// to the sink, exactly once per task (§4.5 "pages_processed increments
// once per completed task, not per outcome").
func (s *Scheduler) commit(task PdfTask, outcomes []PageOutcome) error {
	if err := s.sink.Append(outcomes); err != nil {
		return fmt.Errorf("append outcomes: %w", err)
	}
	s.stats.PagesProcessed++
	if task.Path != s.lastFile {
		s.stats.ProcessedFiles++
		s.lastFile = task.Path
	}
	for _, o := range outcomes {
		s.stats.RecordOutcome(o)
	}
	return nil
}
