package grabber

import (
	"context"
	"time"

	"github.com/sandexzx/PDF-Matrix-Grabber/decode"
	"github.com/sandexzx/PDF-Matrix-Grabber/gs1"
	"github.com/sandexzx/PDF-Matrix-Grabber/logger"
	"github.com/sandexzx/PDF-Matrix-Grabber/preprocess"
	"github.com/sandexzx/PDF-Matrix-Grabber/raster"
)

// PageWorker is the pure unit of parallelism from §3/§4.4: given one task
// and the adapters/config it needs, it renders, decodes, falls back, and
// normalizes — never touching the sink or SessionStats, and never
// panicking (any adapter failure becomes a single Error outcome).
func PageWorker(ctx context.Context, rz raster.Rasterizer, dec decode.Decoder, task PdfTask, cfg *Config) []PageOutcome {
	page1 := task.PageIndex0 + 1
	filename := task.Path

	outcomes, err := tryDecodePage(ctx, rz, dec, task, cfg)
	if err != nil {
		logger.Warn("page failed", "file", filename, "page", page1, "err", err)
		return []PageOutcome{{
			Kind:       OutcomeError,
			Filename:   filename,
			Page1Based: page1,
			Message:    err.Error(),
		}}
	}
	if len(outcomes) == 0 {
		return []PageOutcome{{Kind: NotFound, Filename: filename, Page1Based: page1}}
	}
	return outcomes
}

// tryDecodePage implements the ROI→full, raw→preprocessed fallback ladder
// (§4.4 steps 1–3) and returns one Found outcome per decoded payload, or
// an empty slice if nothing was found at any step.
func tryDecodePage(ctx context.Context, rz raster.Rasterizer, dec decode.Decoder, task PdfTask, cfg *Config) ([]PageOutcome, error) {
	clips := []*raster.Clip{cfg.ROI}
	if cfg.ROI != nil {
		clips = append(clips, nil) // step 3: retry on the full page if the ROI pass found nothing.
	}

	for _, clip := range clips {
		img, err := rz.Render(ctx, task.Path, task.PageIndex0, cfg.DPI, clip)
		if err != nil {
			return nil, err
		}

		payloads, err := dec.Decode(ctx, img, time.Duration(cfg.FirstPassTimeoutMS)*time.Millisecond, cfg.MaxCodesPerPage)
		if err != nil {
			return nil, err
		}
		if len(payloads) == 0 {
			pre := preprocess.AdaptiveThreshold(img, preprocess.Params{BlockSize: cfg.ThresholdBlockSize, Offset: cfg.ThresholdOffset})
			payloads, err = dec.Decode(ctx, pre, time.Duration(cfg.SecondPassTimeoutMS)*time.Millisecond, cfg.MaxCodesPerPage)
			if err != nil {
				return nil, err
			}
		}

		if len(payloads) > 0 {
			return foundOutcomes(task, payloads, cfg.ParseMarks), nil
		}
	}

	return nil, nil
}

func foundOutcomes(task PdfTask, payloads [][]byte, parseMarks bool) []PageOutcome {
	page1 := task.PageIndex0 + 1
	outcomes := make([]PageOutcome, 0, len(payloads))
	for _, payload := range payloads {
		raw := gs1.Normalize(decodeLenient(payload))
		outcome := PageOutcome{
			Kind:       Found,
			Filename:   task.Path,
			Page1Based: page1,
			RawCode:    raw,
		}
		if parseMarks {
			parsed := gs1.Parse(raw)
			outcome.Parsed = &parsed
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

// decodeLenient converts raw decoder bytes to UTF-8, replacing invalid
// sequences rather than failing (§4.2).
func decodeLenient(b []byte) string {
	return string([]rune(string(b)))
}
