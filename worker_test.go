package grabber

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandexzx/PDF-Matrix-Grabber/raster"
)

type fakeRasterizer struct {
	renders       int
	err           error
	pagesOverride int // 0 means "use the default of 1"

	// pageCountErrPaths lets scheduler tests simulate one unreadable file
	// among several readable ones without touching a real PDF.
	pageCountErrPaths map[string]error
}

func (f *fakeRasterizer) PageCount(ctx context.Context, path string) (int, error) {
	if err, ok := f.pageCountErrPaths[path]; ok {
		return 0, err
	}
	if f.pagesOverride > 0 {
		return f.pagesOverride, nil
	}
	return 1, nil
}

func (f *fakeRasterizer) Render(ctx context.Context, path string, pageIndex int, dpi int, clip *raster.Clip) (*raster.Image, error) {
	f.renders++
	if f.err != nil {
		return nil, f.err
	}
	return &raster.Image{Width: 1, Height: 1, RGB: []byte{0, 0, 0}}, nil
}

// scriptedDecoder returns results keyed by call index, simulating the
// first-pass-empty / second-pass-found ladder.
type scriptedDecoder struct {
	calls   int
	results [][][]byte // one entry per call, nil means "found nothing"
	err     error
}

func (f *scriptedDecoder) Decode(ctx context.Context, img *raster.Image, timeout time.Duration, maxCodes int) ([][]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	idx := f.calls
	f.calls++
	if idx >= len(f.results) {
		return nil, nil
	}
	return f.results[idx], nil
}

func newDefaultTestConfig() *Config {
	cfg := NewDefaultConfig()
	cfg.ParseMarks = true
	return cfg
}

func TestPageWorker_FoundOnFirstPass(t *testing.T) {
	rz := &fakeRasterizer{}
	dec := &scriptedDecoder{results: [][][]byte{
		{[]byte("010460123456789021ABC123\x1d91XYZA92AAAA")},
	}}
	task := PdfTask{Path: "a.pdf", PageIndex0: 0}

	outcomes := PageWorker(context.Background(), rz, dec, task, newDefaultTestConfig())
	require.Len(t, outcomes, 1)
	assert.Equal(t, Found, outcomes[0].Kind)
	assert.Equal(t, "a.pdf", outcomes[0].Filename)
	assert.Equal(t, 1, outcomes[0].Page1Based)
	assert.Equal(t, "04601234567890", outcomes[0].Parsed.Gtin)
	assert.Equal(t, 1, rz.renders, "should only render once when first pass succeeds")
}

func TestPageWorker_FoundOnSecondPassAfterPreprocessing(t *testing.T) {
	rz := &fakeRasterizer{}
	dec := &scriptedDecoder{results: [][][]byte{
		nil,
		{[]byte("010460123456789021XYZ999\x1d91ABCD")},
	}}
	task := PdfTask{Path: "a.pdf", PageIndex0: 2}

	outcomes := PageWorker(context.Background(), rz, dec, task, newDefaultTestConfig())
	require.Len(t, outcomes, 1)
	assert.Equal(t, Found, outcomes[0].Kind)
	assert.Equal(t, 3, outcomes[0].Page1Based)
	assert.Equal(t, 1, rz.renders, "preprocessing reuses the same rendered image, no second render")
}

func TestPageWorker_NotFoundAfterAllPasses(t *testing.T) {
	rz := &fakeRasterizer{}
	dec := &scriptedDecoder{results: [][][]byte{nil, nil}}
	task := PdfTask{Path: "a.pdf", PageIndex0: 0}

	outcomes := PageWorker(context.Background(), rz, dec, task, newDefaultTestConfig())
	require.Len(t, outcomes, 1)
	assert.Equal(t, NotFound, outcomes[0].Kind)
}

func TestPageWorker_ROIFallbackToFullPage(t *testing.T) {
	rz := &fakeRasterizer{}
	cfg := newDefaultTestConfig()
	cfg.ROI = &raster.Clip{X0: 0, Y0: 0, X1: 0.5, Y1: 0.5}
	dec := &scriptedDecoder{results: [][][]byte{
		nil, // ROI raw
		nil, // ROI preprocessed
		{[]byte("010460123456789021FULL001\x1d9199ZZ")},
	}}
	task := PdfTask{Path: "a.pdf", PageIndex0: 0}

	outcomes := PageWorker(context.Background(), rz, dec, task, cfg)
	require.Len(t, outcomes, 1)
	assert.Equal(t, Found, outcomes[0].Kind)
	assert.Equal(t, 2, rz.renders, "ROI pass then one full-page render")
}

func TestPageWorker_RasterErrorBecomesErrorOutcome(t *testing.T) {
	rz := &fakeRasterizer{err: assert.AnError}
	dec := &scriptedDecoder{results: [][][]byte{nil}}
	task := PdfTask{Path: "a.pdf", PageIndex0: 0}

	outcomes := PageWorker(context.Background(), rz, dec, task, newDefaultTestConfig())
	require.Len(t, outcomes, 1)
	assert.Equal(t, OutcomeError, outcomes[0].Kind)
	assert.NotEmpty(t, outcomes[0].Message)
}

func TestPageWorker_NoParseStillNormalizes(t *testing.T) {
	rz := &fakeRasterizer{}
	dec := &scriptedDecoder{results: [][][]byte{
		{[]byte("010460123456789021ABC123\x1d91XYZA")},
	}}
	cfg := newDefaultTestConfig()
	cfg.ParseMarks = false
	task := PdfTask{Path: "a.pdf", PageIndex0: 0}

	outcomes := PageWorker(context.Background(), rz, dec, task, cfg)
	require.Len(t, outcomes, 1)
	assert.Nil(t, outcomes[0].Parsed)
	assert.Contains(t, outcomes[0].RawCode, "\x1d")
}
