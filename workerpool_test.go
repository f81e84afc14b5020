package grabber

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandexzx/PDF-Matrix-Grabber/gs1"
	"github.com/sandexzx/PDF-Matrix-Grabber/raster"
)

func TestTaskToWireAndBack_RoundTrips(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.ROI = &raster.Clip{X0: 0.1, Y0: 0.2, X1: 0.8, Y1: 0.9}
	task := PdfTask{Path: "a.pdf", PageIndex0: 4}

	wire := TaskToWire(task, cfg)
	gotTask, gotCfg := TaskFromWire(wire)

	assert.Equal(t, task, gotTask)
	assert.Equal(t, cfg.DPI, gotCfg.DPI)
	assert.Equal(t, cfg.ParseMarks, gotCfg.ParseMarks)
	assert.Equal(t, cfg.FirstPassTimeoutMS, gotCfg.FirstPassTimeoutMS)
	assert.Equal(t, cfg.SecondPassTimeoutMS, gotCfg.SecondPassTimeoutMS)
	assert.Equal(t, cfg.MaxCodesPerPage, gotCfg.MaxCodesPerPage)
	assert.Equal(t, cfg.ThresholdBlockSize, gotCfg.ThresholdBlockSize)
	assert.Equal(t, cfg.ThresholdOffset, gotCfg.ThresholdOffset)
	require.NotNil(t, gotCfg.ROI)
	assert.Equal(t, *cfg.ROI, *gotCfg.ROI)
}

func TestTaskToWire_NilROIStaysNil(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.ROI = nil
	wire := TaskToWire(PdfTask{Path: "a.pdf"}, cfg)
	assert.False(t, wire.HasROI)

	_, gotCfg := TaskFromWire(wire)
	assert.Nil(t, gotCfg.ROI)
}

func TestOutcomesToWireAndBack_RoundTrips(t *testing.T) {
	outcomes := []PageOutcome{
		{
			Kind: Found, Filename: "a.pdf", Page1Based: 1, RawCode: "raw",
			Parsed: &gs1.HonestMarkCode{Raw: "raw", Gtin: "04601234567890", Serial: "S1", VerificationKey: "K1", Crypto: "C1"},
		},
		{Kind: NotFound, Filename: "a.pdf", Page1Based: 2},
		{Kind: OutcomeError, Filename: "a.pdf", Page1Based: 3, Message: "boom"},
	}

	wire := OutcomesToWire(outcomes)
	assert.Len(t, wire, 3)

	back := OutcomesFromWire(wire)
	assert.Equal(t, outcomes, back)
}
