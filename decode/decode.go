// Package decode adapts libdmtx's dmtxread binary behind the §4.3 contract:
// hand it a raw RGB8 image and a timeout, get back zero or more decoded
// DataMatrix payloads.
//
// Same exec-adapter idiom as package raster: dmtxread is the black-box
// library the spec calls out, reached as a subprocess rather than via cgo
// bindings to libdmtx.
package decode

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/sandexzx/PDF-Matrix-Grabber/raster"
)

// DecodeError reports a dmtxread invocation failure distinct from "found
// nothing" — a missing binary, a corrupt image, a killed process.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("decode error: %v", e.Err) }
func (e *DecodeError) Unwrap() error  { return e.Err }

// Decoder is the §4.3 contract. An empty, nil-error result means "no code
// found," not a failure.
type Decoder interface {
	Decode(ctx context.Context, img *raster.Image, timeout time.Duration, maxCodes int) ([][]byte, error)
}

// DmtxReadDecoder shells out to libdmtx's dmtxread CLI.
type DmtxReadDecoder struct {
	// Bin defaults to "dmtxread" on PATH.
	Bin string
}

// NewDmtxReadDecoder returns a Decoder backed by the system dmtxread
// installation.
func NewDmtxReadDecoder() *DmtxReadDecoder {
	return &DmtxReadDecoder{Bin: "dmtxread"}
}

// Decode runs dmtxread against img, respecting timeout and maxCodes. A
// dmtxread exit status of 1 (no codes found) is not an error; any other
// failure is wrapped in a DecodeError.
func (d *DmtxReadDecoder) Decode(ctx context.Context, img *raster.Image, timeout time.Duration, maxCodes int) ([][]byte, error) {
	bin := d.Bin
	if bin == "" {
		bin = "dmtxread"
	}

	tmpFile, err := os.CreateTemp("", "dmxgrab-decode-*.png")
	if err != nil {
		return nil, &DecodeError{Err: fmt.Errorf("create temp image: %w", err)}
	}
	defer os.Remove(tmpFile.Name()) //nolint:errcheck // best-effort cleanup

	if err := encodePNG(tmpFile, img); err != nil {
		tmpFile.Close() //nolint:errcheck
		return nil, &DecodeError{Err: err}
	}
	if err := tmpFile.Close(); err != nil {
		return nil, &DecodeError{Err: fmt.Errorf("close temp image: %w", err)}
	}

	runCtx := ctx
	cancel := func() {}
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()

	args := []string{
		"-N", strconv.Itoa(maxCodes),
		"-m", strconv.Itoa(int(timeout.Milliseconds())),
		"-C", // verify checksum, reject corrupt reads
		tmpFile.Name(),
	}
	cmd := exec.CommandContext(runCtx, bin, args...) //nolint:gosec // args built internally
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok && exitErr.ExitCode() == 1 {
			// dmtxread's documented "no barcode found" exit status.
			return nil, nil
		}
		return nil, &DecodeError{Err: fmt.Errorf("dmtxread: %s: %w", strings.TrimSpace(stderr.String()), err)}
	}

	return splitPayloads(stdout.Bytes()), nil
}

// splitPayloads splits dmtxread's stdout into one payload per decoded
// code. dmtxread default output separates multiple codes with a form-feed
// (0x0c) and trims a single trailing newline per code.
func splitPayloads(out []byte) [][]byte {
	if len(out) == 0 {
		return nil
	}
	parts := bytes.Split(out, []byte{0x0c})
	payloads := make([][]byte, 0, len(parts))
	for _, p := range parts {
		p = bytes.TrimSuffix(p, []byte("\n"))
		if len(p) == 0 {
			continue
		}
		payloads = append(payloads, p)
	}
	return payloads
}

func encodePNG(w *os.File, img *raster.Image) error {
	rgba := image.NewRGBA(image.Rect(0, 0, img.Width, img.Height))
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			off := (y*img.Width + x) * 3
			rgba.SetRGBA(x, y, color.RGBA{R: img.RGB[off], G: img.RGB[off+1], B: img.RGB[off+2], A: 255})
		}
	}
	return png.Encode(w, rgba)
}
