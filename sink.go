package grabber

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sandexzx/PDF-Matrix-Grabber/logger"
)

// ProgressFileSuffix is appended to the output path to get the sidecar
// progress log path (§4.7).
const ProgressFileSuffix = ".progress.csv"

// Sink owns the output CSV and the progress sidecar exclusively — no
// other component writes them (§3 ownership). Append uses O_APPEND
// semantics and batches; Flush forces pending writes to disk.
type Sink struct {
	mu sync.Mutex

	outputPath   string
	progressPath string

	outputFile   *os.File
	progressFile *os.File

	outputWriter   *bufio.Writer
	progressWriter *csv.Writer

	progressHeaderWritten bool
	pending               int
	saveEvery             int
}

// NewSink opens (creating if needed) the output CSV and progress sidecar
// for append, creating the output directory if missing (§6 persisted
// state layout).
func NewSink(outputPath string, saveEvery int) (*Sink, error) {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	progressPath := outputPath + ProgressFileSuffix

	progInfo, _ := os.Stat(progressPath)

	outFile, err := os.OpenFile(outputPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open output: %w", err)
	}
	progFile, err := os.OpenFile(progressPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		outFile.Close() //nolint:errcheck
		return nil, fmt.Errorf("open progress sidecar: %w", err)
	}

	s := &Sink{
		outputPath:            outputPath,
		progressPath:          progressPath,
		outputFile:            outFile,
		progressFile:          progFile,
		outputWriter:          bufio.NewWriter(outFile),
		progressWriter:        csv.NewWriter(progFile),
		saveEvery:             saveEvery,
		progressHeaderWritten: progInfo != nil && progInfo.Size() > 0,
	}
	return s, nil
}

// LoadProgress returns the set of (filename, page) pairs already recorded
// in outputPath's sidecar. A missing sidecar yields the empty set, not an
// error.
func LoadProgress(outputPath string) (map[ProgressEntry]struct{}, error) {
	progressPath := outputPath + ProgressFileSuffix
	f, err := os.Open(progressPath)
	if os.IsNotExist(err) {
		return map[ProgressEntry]struct{}{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open progress sidecar: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read progress sidecar: %w", err)
	}

	set := make(map[ProgressEntry]struct{}, len(records))
	for i, rec := range records {
		if i == 0 && len(rec) == 2 && rec[0] == "filename" && rec[1] == "page" {
			continue
		}
		if len(rec) != 2 {
			continue
		}
		var page int
		if _, err := fmt.Sscanf(rec[1], "%d", &page); err != nil {
			continue
		}
		set[ProgressEntry{Filename: rec[0], Page1Based: page}] = struct{}{}
	}
	return set, nil
}

// Append partitions outcomes into code lines for Found outcomes and
// progress entries for every outcome, writes both, and flushes once
// saveEvery entries have accumulated since the last flush (§4.7).
func (s *Sink) Append(outcomes []PageOutcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, o := range outcomes {
		if o.Kind == Found && o.RawCode != "" {
			if _, err := s.outputWriter.WriteString(csvSafe(o.RawCode) + "\n"); err != nil {
				return fmt.Errorf("write output line: %w", err)
			}
		}

		if !s.progressHeaderWritten {
			if err := s.progressWriter.Write([]string{"filename", "page"}); err != nil {
				return fmt.Errorf("write progress header: %w", err)
			}
			s.progressHeaderWritten = true
		}
		if err := s.progressWriter.Write([]string{o.Filename, fmt.Sprintf("%d", o.Page1Based)}); err != nil {
			return fmt.Errorf("write progress entry: %w", err)
		}
	}

	s.pending += len(outcomes)
	if s.pending >= s.saveEvery {
		if err := s.flushLocked(); err != nil {
			return err
		}
	}
	return nil
}

// Flush forces any buffered writes to disk.
func (s *Sink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked()
}

func (s *Sink) flushLocked() error {
	if err := s.outputWriter.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	s.progressWriter.Flush()
	if err := s.progressWriter.Error(); err != nil {
		return fmt.Errorf("flush progress: %w", err)
	}
	s.pending = 0
	logger.Debug("sink flushed", "output", s.outputPath)
	return nil
}

// Close flushes and closes both underlying files.
func (s *Sink) Close() error {
	if err := s.Flush(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	outErr := s.outputFile.Close()
	progErr := s.progressFile.Close()
	if outErr != nil {
		return outErr
	}
	return progErr
}

// csvSafe preserves 0x1D (the GS1 group separator) and escapes every
// other C0 control byte except tab/newline as a literal \xNN (§4.7).
func csvSafe(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == 0x1d || c == '\t' || c == '\n' || c >= 0x20 {
			b.WriteByte(c)
			continue
		}
		fmt.Fprintf(&b, "\\x%02X", c)
	}
	return b.String()
}
