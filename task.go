package grabber

import "github.com/sandexzx/PDF-Matrix-Grabber/gs1"

// PdfTask is a single (file, page) unit of work. It is immutable once
// created by the scheduler during enumeration and is consumed exactly
// once by a worker.
type PdfTask struct {
	Path       string
	PageIndex0 int
}

// OutcomeKind tags a PageOutcome's variant. Go has no sum types, so the
// tagged-union shape from §3 is expressed as a struct with a Kind enum and
// fields that only apply to some kinds.
type OutcomeKind int

const (
	Found OutcomeKind = iota
	NotFound
	OutcomeError
)

func (k OutcomeKind) String() string {
	switch k {
	case Found:
		return "found"
	case NotFound:
		return "not_found"
	case OutcomeError:
		return "error"
	default:
		return "unknown"
	}
}

// PageOutcome is what a worker produces for one page. Filename and
// Page1Based are always set; the remaining fields apply only to the
// matching Kind.
type PageOutcome struct {
	Kind       OutcomeKind
	Filename   string
	Page1Based int

	// Found-only.
	RawCode string
	Parsed  *gs1.HonestMarkCode

	// Error-only.
	Message string
}
