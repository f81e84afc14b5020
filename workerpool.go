package grabber

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync/atomic"

	"github.com/sandexzx/PDF-Matrix-Grabber/gs1"
	"github.com/sandexzx/PDF-Matrix-Grabber/internal/workerproto"
	"github.com/sandexzx/PDF-Matrix-Grabber/raster"
)

// processPool is a fixed-size set of pre-spawned worker processes checked
// out by dispatching goroutines and returned (or retired, on crash) after
// each task. Checkout blocks until a worker is idle, every worker has
// been retired, or the context is done, matching SPEC_FULL.md's "a crashed worker's work is
// redistributed among the surviving workers" contract.
type processPool struct {
	idle  chan *workerProcess
	alive int32
	dead  chan struct{}
}

func newProcessPool(n int) (*processPool, error) {
	pool := &processPool{
		idle: make(chan *workerProcess, n),
		dead: make(chan struct{}),
	}
	for i := 0; i < n; i++ {
		wp, err := spawnWorkerProcess()
		if err != nil {
			pool.closeAll()
			return nil, err
		}
		pool.idle <- wp
	}
	pool.alive = int32(n)
	return pool, nil
}

// checkout returns an idle worker, or false if every worker has been
// retired and none is idle, or if ctx is done first.
func (p *processPool) checkout(ctx context.Context) (*workerProcess, bool) {
	select {
	case wp := <-p.idle:
		return wp, true
	case <-p.dead:
		select {
		case wp := <-p.idle:
			return wp, true
		default:
			return nil, false
		}
	case <-ctx.Done():
		return nil, false
	}
}

func (p *processPool) checkin(wp *workerProcess) {
	p.idle <- wp
}

// retire permanently removes a crashed worker from the pool. Once every
// spawned worker has been retired, checkout stops blocking and reports
// failure for the rest of the run.
func (p *processPool) retire(wp *workerProcess) {
	wp.kill()
	if atomic.AddInt32(&p.alive, -1) == 0 {
		close(p.dead)
	}
}

func (p *processPool) closeAll() {
	close(p.idle)
	for wp := range p.idle {
		wp.close()
	}
}

// workerProcess owns one re-exec'd child and the pipes to talk to it.
type workerProcess struct {
	cmd *exec.Cmd
	enc *workerproto.Encoder
	dec *workerproto.Decoder

	stdin  io.WriteCloser
	stdout io.ReadCloser
}

// spawnWorkerProcess re-execs the running binary with the hidden worker
// argument, per SPEC_FULL.md's process-level worker pool.
func spawnWorkerProcess() (*workerProcess, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("resolve own executable: %w", err)
	}

	cmd := exec.Command(exe, workerproto.WorkerArg) //nolint:gosec // exe is our own binary path
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start worker: %w", err)
	}

	return &workerProcess{
		cmd:    cmd,
		enc:    workerproto.NewEncoder(stdin),
		dec:    workerproto.NewDecoder(bufio.NewReader(stdout)),
		stdin:  stdin,
		stdout: stdout,
	}, nil
}

// run sends task, waits for the worker's reply, and converts it back into
// []PageOutcome. A pipe error or unexpected EOF is returned as an error;
// the scheduler turns it into a single Error outcome for the task and
// retires this worker process for the rest of the run.
func (wp *workerProcess) run(task PdfTask, cfg *Config) ([]PageOutcome, error) {
	wireTask := TaskToWire(task, cfg)
	if err := wp.enc.Encode(wireTask); err != nil {
		return nil, fmt.Errorf("send task: %w", err)
	}

	var result workerproto.WorkResult
	if err := wp.dec.Decode(&result); err != nil {
		return nil, fmt.Errorf("receive result: %w", err)
	}

	return OutcomesFromWire(result.Outcomes), nil
}

func (wp *workerProcess) close() {
	wp.stdin.Close()  //nolint:errcheck
	wp.stdout.Close() //nolint:errcheck
	_ = wp.cmd.Wait()
}

func (wp *workerProcess) kill() {
	if wp.cmd.Process != nil {
		_ = wp.cmd.Process.Kill()
	}
	_ = wp.cmd.Wait()
}

// TaskToWire converts one PdfTask plus the relevant Config fields into a
// workerproto.WorkTask, used by both the scheduler (sending) and tests.
func TaskToWire(task PdfTask, cfg *Config) workerproto.WorkTask {
	wt := workerproto.WorkTask{
		PdfPath:             task.Path,
		PageIndex0:          task.PageIndex0,
		DPI:                 cfg.DPI,
		ParseMarks:          cfg.ParseMarks,
		FirstPassTimeoutMS:  cfg.FirstPassTimeoutMS,
		SecondPassTimeoutMS: cfg.SecondPassTimeoutMS,
		MaxCodesPerPage:     cfg.MaxCodesPerPage,
		ThresholdBlockSize:  cfg.ThresholdBlockSize,
		ThresholdOffset:     cfg.ThresholdOffset,
	}
	if cfg.ROI != nil {
		wt.HasROI = true
		wt.ROIX0, wt.ROIY0, wt.ROIX1, wt.ROIY1 = cfg.ROI.X0, cfg.ROI.Y0, cfg.ROI.X1, cfg.ROI.Y1
	}
	return wt
}

// TaskFromWire is TaskToWire's inverse, used by the worker-process
// entrypoint to reconstruct the task and just enough Config to call
// PageWorker.
func TaskFromWire(wt workerproto.WorkTask) (PdfTask, *Config) {
	task := PdfTask{Path: wt.PdfPath, PageIndex0: wt.PageIndex0}
	cfg := &Config{
		DPI:                 wt.DPI,
		ParseMarks:          wt.ParseMarks,
		FirstPassTimeoutMS:  wt.FirstPassTimeoutMS,
		SecondPassTimeoutMS: wt.SecondPassTimeoutMS,
		MaxCodesPerPage:     wt.MaxCodesPerPage,
		ThresholdBlockSize:  wt.ThresholdBlockSize,
		ThresholdOffset:     wt.ThresholdOffset,
	}
	if wt.HasROI {
		cfg.ROI = &raster.Clip{X0: wt.ROIX0, Y0: wt.ROIY0, X1: wt.ROIX1, Y1: wt.ROIY1}
	}
	return task, cfg
}

// OutcomesToWire converts PageOutcomes into their wire form. Used by the
// worker-process entrypoint to encode its reply.
func OutcomesToWire(outcomes []PageOutcome) []workerproto.WorkOutcome {
	wire := make([]workerproto.WorkOutcome, 0, len(outcomes))
	for _, o := range outcomes {
		w := workerproto.WorkOutcome{
			Kind:       o.Kind.String(),
			Filename:   o.Filename,
			Page1Based: o.Page1Based,
			RawCode:    o.RawCode,
			Message:    o.Message,
		}
		if o.Parsed != nil {
			w.HasParsed = true
			w.Gtin = o.Parsed.Gtin
			w.Serial = o.Parsed.Serial
			w.Key = o.Parsed.VerificationKey
			w.Crypto = o.Parsed.Crypto
		}
		wire = append(wire, w)
	}
	return wire
}

// OutcomesFromWire is OutcomesToWire's inverse, used by the scheduler to
// decode a worker process's reply.
func OutcomesFromWire(wire []workerproto.WorkOutcome) []PageOutcome {
	outcomes := make([]PageOutcome, 0, len(wire))
	for _, w := range wire {
		o := PageOutcome{
			Filename:   w.Filename,
			Page1Based: w.Page1Based,
			RawCode:    w.RawCode,
			Message:    w.Message,
		}
		switch w.Kind {
		case "found":
			o.Kind = Found
		case "not_found":
			o.Kind = NotFound
		default:
			o.Kind = OutcomeError
		}
		if w.HasParsed {
			o.Parsed = &gs1.HonestMarkCode{
				Raw:             w.RawCode,
				Gtin:            w.Gtin,
				Serial:          w.Serial,
				VerificationKey: w.Key,
				Crypto:          w.Crypto,
			}
		}
		outcomes = append(outcomes, o)
	}
	return outcomes
}
