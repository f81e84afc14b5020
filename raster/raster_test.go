package raster

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClip_Validate(t *testing.T) {
	tests := []struct {
		name      string
		clip      Clip
		shouldErr bool
	}{
		{name: "full page", clip: Clip{X0: 0, Y0: 0, X1: 1, Y1: 1}, shouldErr: false},
		{name: "top-left quadrant", clip: Clip{X0: 0, Y0: 0, X1: 0.5, Y1: 0.5}, shouldErr: false},
		{name: "x0 equals x1", clip: Clip{X0: 0.2, Y0: 0, X1: 0.2, Y1: 1}, shouldErr: true},
		{name: "x1 exceeds 1", clip: Clip{X0: 0, Y0: 0, X1: 1.1, Y1: 1}, shouldErr: true},
		{name: "negative y0", clip: Clip{X0: 0, Y0: -0.1, X1: 1, Y1: 1}, shouldErr: true},
		{name: "y0 equals y1", clip: Clip{X0: 0, Y0: 0.5, X1: 1, Y1: 0.5}, shouldErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.clip.Validate()
			if tt.shouldErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCropNormalized(t *testing.T) {
	img := &Image{Width: 10, Height: 10, RGB: make([]byte, 10*10*3)}
	for i := range img.RGB {
		img.RGB[i] = byte(i % 256)
	}

	cropped := CropNormalized(img, Clip{X0: 0, Y0: 0, X1: 0.5, Y1: 0.5})
	assert.Equal(t, 5, cropped.Width)
	assert.Equal(t, 5, cropped.Height)
	assert.Len(t, cropped.RGB, 5*5*3)

	// first pixel of the crop matches the source's first pixel.
	assert.Equal(t, img.RGB[0:3], cropped.RGB[0:3])
}

func TestPopplerRasterizer_PageCount_ErrorsWithoutPagesLine(t *testing.T) {
	r := &PopplerRasterizer{PdfInfoBin: "/bin/echo"}
	// /bin/echo just prints the path arg back, so the output has no
	// "Pages:" line and PageCount must report an error rather than a count.
	_, err := r.PageCount(context.Background(), "unused")
	assert.Error(t, err)
}

func TestPopplerRasterizer_Render_RejectsLowDPI(t *testing.T) {
	r := NewPopplerRasterizer()
	_, err := r.Render(context.Background(), "unused.pdf", 0, 10, nil)
	assert.Error(t, err)
	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestPopplerRasterizer_Render_RejectsInvalidClip(t *testing.T) {
	r := NewPopplerRasterizer()
	bad := &Clip{X0: 0.9, Y0: 0, X1: 0.1, Y1: 1}
	_, err := r.Render(context.Background(), "unused.pdf", 0, 300, bad)
	assert.Error(t, err)
	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}
