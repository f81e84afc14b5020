// Package raster adapts an external rasterizer binary (poppler-utils'
// pdftoppm/pdfinfo) behind the §4.1 contract: open a PDF, count its pages,
// and render one page at a given DPI with an optional normalized clip
// rectangle into a raw RGB8 pixel buffer.
//
// This mirrors the exec-adapter idiom other_examples/…cpcloud-micasa…
// ocr_progress.go uses for pdftoppm and vdmasek-go-ocr/ocrpdf.go uses for
// pdfimages/tesseract: the native rasterizer is treated as a black box
// reached over a process boundary rather than linked in via cgo.
package raster

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sandexzx/PDF-Matrix-Grabber/logger"
)

// NativeDPI is the PDF's own coordinate unit; render DPI is expressed as a
// scale factor relative to it (§4.1).
const NativeDPI = 72

// Image is a raw RGB8 pixel buffer, row-major, 3 bytes per pixel.
type Image struct {
	Width  int
	Height int
	RGB    []byte
}

// Clip is a normalized sub-rectangle of the page, (0,0) top-left, (1,1)
// bottom-right.
type Clip struct {
	X0, Y0, X1, Y1 float64
}

// Validate enforces §4.1's clip invariant: 0 ≤ x0 < x1 ≤ 1, 0 ≤ y0 < y1 ≤ 1.
func (c Clip) Validate() error {
	if !(0 <= c.X0 && c.X0 < c.X1 && c.X1 <= 1) {
		return fmt.Errorf("%w: x range [%g,%g) invalid", ErrInvalidClip, c.X0, c.X1)
	}
	if !(0 <= c.Y0 && c.Y0 < c.Y1 && c.Y1 <= 1) {
		return fmt.Errorf("%w: y range [%g,%g) invalid", ErrInvalidClip, c.Y0, c.Y1)
	}
	return nil
}

// ErrInvalidClip is wrapped into a ConfigError by callers that validate a
// Clip before using it.
var ErrInvalidClip = fmt.Errorf("invalid clip rectangle")

// ConfigError reports an invalid render request (bad clip, bad DPI) — a
// caller mistake, not a rasterizer failure.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string { return fmt.Sprintf("raster config error: %s", e.Reason) }

// RasterError reports a rasterizer-library failure: the PDF could not be
// opened, or the requested page could not be rendered.
type RasterError struct {
	Path string
	Err  error
}

func (e *RasterError) Error() string { return fmt.Sprintf("raster error: %s: %v", e.Path, e.Err) }
func (e *RasterError) Unwrap() error { return e.Err }

// Rasterizer is the §4.1 contract. Implementations open the PDF once per
// call; callers own any batching.
type Rasterizer interface {
	PageCount(ctx context.Context, path string) (int, error)
	Render(ctx context.Context, path string, pageIndex int, dpi int, clip *Clip) (*Image, error)
}

// PopplerRasterizer shells out to pdfinfo/pdftoppm, exactly the binaries
// the Python original leaned on via pdf2image (which itself wraps
// poppler-utils).
type PopplerRasterizer struct {
	// PdfInfoBin and PdfToPpmBin default to "pdfinfo"/"pdftoppm" on PATH;
	// overridable for tests that stub the binaries.
	PdfInfoBin  string
	PdfToPpmBin string
}

// NewPopplerRasterizer returns a Rasterizer backed by the system
// poppler-utils installation.
func NewPopplerRasterizer() *PopplerRasterizer {
	return &PopplerRasterizer{PdfInfoBin: "pdfinfo", PdfToPpmBin: "pdftoppm"}
}

func (r *PopplerRasterizer) bin(name, override string) string {
	if override != "" {
		return override
	}
	return name
}

// PageCount runs `pdfinfo` and parses its "Pages:" line.
func (r *PopplerRasterizer) PageCount(ctx context.Context, path string) (int, error) {
	bin := r.bin("pdfinfo", r.PdfInfoBin)
	cmd := exec.CommandContext(ctx, bin, path) //nolint:gosec // path is caller-controlled, not user input over a network boundary
	out, err := cmd.Output()
	if err != nil {
		return 0, &RasterError{Path: path, Err: fmt.Errorf("pdfinfo: %w", err)}
	}

	for _, line := range strings.Split(string(out), "\n") {
		if !strings.HasPrefix(line, "Pages:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			continue
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil {
			return 0, &RasterError{Path: path, Err: fmt.Errorf("pdfinfo: unparseable page count %q", fields[1])}
		}
		return n, nil
	}
	return 0, &RasterError{Path: path, Err: fmt.Errorf("pdfinfo: no Pages: line in output")}
}

// Render renders one page (0-based pageIndex) at dpi, optionally cropped to
// clip, and returns it as a raw RGB8 buffer.
func (r *PopplerRasterizer) Render(ctx context.Context, path string, pageIndex int, dpi int, clip *Clip) (*Image, error) {
	if dpi < NativeDPI {
		return nil, &ConfigError{Reason: fmt.Sprintf("dpi %d below native %d", dpi, NativeDPI)}
	}
	if clip != nil {
		if err := clip.Validate(); err != nil {
			return nil, &ConfigError{Reason: err.Error()}
		}
	}

	page1based := pageIndex + 1

	tmpDir, err := os.MkdirTemp("", "dmxgrab-raster-*")
	if err != nil {
		return nil, &RasterError{Path: path, Err: fmt.Errorf("mkdtemp: %w", err)}
	}
	defer os.RemoveAll(tmpDir) //nolint:errcheck // best-effort cleanup

	outPrefix := filepath.Join(tmpDir, "page")
	bin := r.bin("pdftoppm", r.PdfToPpmBin)
	args := []string{
		"-png",
		"-r", strconv.Itoa(dpi),
		"-f", strconv.Itoa(page1based),
		"-l", strconv.Itoa(page1based),
		path, outPrefix,
	}

	logger.Debug("rendering page", "path", path, "page", page1based, "dpi", dpi, "clip", clip != nil, true)

	cmd := exec.CommandContext(ctx, bin, args...) //nolint:gosec // args are built internally from validated ints
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, &RasterError{Path: path, Err: fmt.Errorf("pdftoppm: %s: %w", strings.TrimSpace(stderr.String()), err)}
	}

	pngPath, err := findSingleOutput(tmpDir)
	if err != nil {
		return nil, &RasterError{Path: path, Err: err}
	}

	img, err := decodePNG(pngPath)
	if err != nil {
		return nil, &RasterError{Path: path, Err: err}
	}
	if clip != nil {
		img = CropNormalized(img, *clip)
	}
	return img, nil
}

func findSingleOutput(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("read temp dir: %w", err)
	}
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".png") {
			return filepath.Join(dir, e.Name()), nil
		}
	}
	return "", fmt.Errorf("pdftoppm produced no output image")
}

func decodePNG(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open rendered page: %w", err)
	}
	defer f.Close()

	decoded, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode rendered page: %w", err)
	}

	bounds := decoded.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	rgb := make([]byte, w*h*3)
	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := decoded.At(x, y).RGBA()
			rgb[i] = byte(r >> 8)
			rgb[i+1] = byte(g >> 8)
			rgb[i+2] = byte(b >> 8)
			i += 3
		}
	}
	return &Image{Width: w, Height: h, RGB: rgb}, nil
}

// CropNormalized crops img to the pixel rectangle implied by clip against
// img's own dimensions — used once the full page has been rendered and
// decoded, avoiding any dependency on pdftoppm's own crop-flag semantics.
func CropNormalized(img *Image, clip Clip) *Image {
	x0 := int(clip.X0 * float64(img.Width))
	y0 := int(clip.Y0 * float64(img.Height))
	x1 := int(clip.X1 * float64(img.Width))
	y1 := int(clip.Y1 * float64(img.Height))
	if x1 <= x0 {
		x1 = x0 + 1
	}
	if y1 <= y0 {
		y1 = y0 + 1
	}
	w, h := x1-x0, y1-y0

	out := &Image{Width: w, Height: h, RGB: make([]byte, w*h*3)}
	for row := 0; row < h; row++ {
		srcOff := ((y0+row)*img.Width + x0) * 3
		dstOff := row * w * 3
		copy(out.RGB[dstOff:dstOff+w*3], img.RGB[srcOff:srcOff+w*3])
	}
	return out
}
