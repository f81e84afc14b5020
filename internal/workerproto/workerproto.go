// Package workerproto defines the newline-delimited JSON wire protocol
// between the scheduler and a self-re-exec worker process (SPEC_FULL.md's
// process-level worker pool).
package workerproto

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
)

// WorkerArg is the hidden CLI argument that puts the binary into worker
// mode instead of running the normal CLI.
const WorkerArg = "__dmxgrab-worker"

// WorkTask is one unit of work sent to a worker process.
type WorkTask struct {
	PdfPath    string `json:"pdf_path"`
	PageIndex0 int    `json:"page_index0"`
	DPI        int    `json:"dpi"`
	ParseMarks bool   `json:"parse_marks"`

	FirstPassTimeoutMS  int     `json:"first_pass_timeout_ms"`
	SecondPassTimeoutMS int     `json:"second_pass_timeout_ms"`
	MaxCodesPerPage     int     `json:"max_codes_per_page"`
	ThresholdBlockSize  int     `json:"threshold_block_size"`
	ThresholdOffset     int     `json:"threshold_offset"`
	HasROI              bool    `json:"has_roi"`
	ROIX0               float64 `json:"roi_x0"`
	ROIY0               float64 `json:"roi_y0"`
	ROIX1               float64 `json:"roi_x1"`
	ROIY1               float64 `json:"roi_y1"`
}

// WorkOutcome is one PageOutcome, flattened for the wire. A worker
// returns one or more per task (one per decoded payload, or a single
// NotFound/Error).
type WorkOutcome struct {
	Kind       string `json:"kind"` // "found" | "not_found" | "error"
	Filename   string `json:"filename"`
	Page1Based int    `json:"page1based"`
	RawCode    string `json:"raw_code,omitempty"`
	Gtin       string `json:"gtin,omitempty"`
	Serial     string `json:"serial,omitempty"`
	Key        string `json:"verification_key,omitempty"`
	Crypto     string `json:"crypto,omitempty"`
	HasParsed  bool   `json:"has_parsed,omitempty"`
	Message    string `json:"message,omitempty"`
}

// WorkResult is the full reply to one WorkTask: its outcomes.
type WorkResult struct {
	Outcomes []WorkOutcome `json:"outcomes"`
}

// Encoder writes one JSON value per line to w.
type Encoder struct {
	w io.Writer
}

func NewEncoder(w io.Writer) *Encoder { return &Encoder{w: w} }

func (e *Encoder) Encode(v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	b = append(b, '\n')
	_, err = e.w.Write(b)
	return err
}

// Decoder reads one JSON value per line from r.
type Decoder struct {
	scanner *bufio.Scanner
}

func NewDecoder(r io.Reader) *Decoder {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	return &Decoder{scanner: scanner}
}

// Decode reads the next line and unmarshals it into v. It returns
// io.EOF when the underlying stream is exhausted.
func (d *Decoder) Decode(v interface{}) error {
	if !d.scanner.Scan() {
		if err := d.scanner.Err(); err != nil {
			return err
		}
		return io.EOF
	}
	return json.Unmarshal(d.scanner.Bytes(), v)
}
