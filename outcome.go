package grabber

import "time"

// ProgressEntry is a (filename, page) pair written to the sidecar. It is
// written at-least-once; consumers must tolerate duplicates and treat the
// sidecar as a set (§9 open question, resolved that way).
type ProgressEntry struct {
	Filename   string
	Page1Based int
}

// SessionStats holds every counter the driver owns exclusively. Workers
// never touch it directly; the scheduler updates it on the main thread as
// each PageOutcome is committed in order.
type SessionStats struct {
	TotalFiles      int
	ProcessedFiles  int
	TotalPages      int
	PagesProcessed  int
	TotalCodes      int
	PagesEmpty      int
	FilesWithErrors int
	ResumedFrom     int
	Interrupted     bool
	Errors          []string

	StartedAt time.Time
	Elapsed   time.Duration
}

// SuccessRate is (pages_processed - pages_empty) / pages_processed, or 0
// when pages_processed is 0.
func (s *SessionStats) SuccessRate() float64 {
	if s.PagesProcessed == 0 {
		return 0
	}
	return float64(s.PagesProcessed-s.PagesEmpty) / float64(s.PagesProcessed)
}

// PagesPerSecond divides PagesProcessed by Elapsed, or 0 when Elapsed is
// zero — used for the CLI's throughput line (§ SUPPLEMENTED FEATURES).
func (s *SessionStats) PagesPerSecond() float64 {
	secs := s.Elapsed.Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(s.PagesProcessed) / secs
}

// RecordOutcome folds a single committed PageOutcome into the counters.
// Called by the scheduler once for each outcome of a completed task, in
// commit order, never by workers.
func (s *SessionStats) RecordOutcome(o PageOutcome) {
	switch o.Kind {
	case Found:
		s.TotalCodes++
	case NotFound:
		s.PagesEmpty++
	case OutcomeError:
		s.Errors = append(s.Errors, o.Filename+": "+o.Message)
	}
}
