package haikoo

import (
	"context"
	"errors"
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDescriber struct {
	desc Description
	err  error
}

func (s stubDescriber) Describe(ctx context.Context, imagePath string) (Description, error) {
	return s.desc, s.err
}

func gradient(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	return img
}

func saveSource(t *testing.T, w, h int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "msg1.jpeg")
	require.NoError(t, imaging.Save(gradient(w, h), path))
	return path
}

func TestDescribeAndCompose(t *testing.T) {
	source := saveSource(t, 320, 240)
	out := filepath.Join(filepath.Dir(source), "msg1_haikoo.png")

	engine := NewEngine(stubDescriber{desc: catDescription})
	path, err := engine.DescribeAndCompose(context.Background(), source, StyleFusion, out)
	require.NoError(t, err)
	assert.Equal(t, out, path)

	composite, err := imaging.Open(out)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 320, 240), composite.Bounds())
}

func TestDescribeAndComposeDescriberError(t *testing.T) {
	source := saveSource(t, 64, 64)
	out := filepath.Join(filepath.Dir(source), "msg1_haikoo.png")

	engine := NewEngine(stubDescriber{err: ErrCredentials})
	_, err := engine.DescribeAndCompose(context.Background(), source, StyleFusion, out)
	assert.ErrorIs(t, err, ErrCredentials)
	assert.NoFileExists(t, out)
}

func TestDescribeAndComposeCancelled(t *testing.T) {
	source := saveSource(t, 64, 64)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	engine := NewEngine(stubDescriber{desc: catDescription})
	_, err := engine.DescribeAndCompose(ctx, source, StyleFusion, filepath.Join(t.TempDir(), "out.png"))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestThumbnail(t *testing.T) {
	source := saveSource(t, 320, 240)
	out := filepath.Join(filepath.Dir(source), "msg1_thumb.png")

	path, err := NewEngine(nil).Thumbnail(context.Background(), source, out, 256, 256)
	require.NoError(t, err)
	assert.Equal(t, out, path)

	thumb, err := imaging.Open(out)
	require.NoError(t, err)
	assert.Equal(t, 256, thumb.Bounds().Dx())
	assert.Equal(t, 256, thumb.Bounds().Dy())
}

func TestThumbnailMissingSource(t *testing.T) {
	_, err := NewEngine(nil).Thumbnail(context.Background(), filepath.Join(t.TempDir(), "none.png"), "out.png", 256, 256)
	assert.ErrorContains(t, err, "open composite")
}

func TestOverlayDrawsNearBottom(t *testing.T) {
	src := gradient(200, 100)
	engine := NewEngine(nil)

	out := engine.Overlay(src, []string{"a cat sitting on", "a wooden table", "sunlight"})
	require.Equal(t, src.Bounds(), out.Bounds())

	// the top edge stays untouched, the band darkens the lower part
	assert.Equal(t, src.NRGBAAt(100, 2), out.NRGBAAt(100, 2))
	changed := false
	for y := 50; y < 100 && !changed; y++ {
		if src.NRGBAAt(100, y) != out.NRGBAAt(100, y) {
			changed = true
		}
	}
	assert.True(t, changed)
}

func TestOverlayBlankLines(t *testing.T) {
	src := gradient(40, 40)
	out := NewEngine(nil).Overlay(src, []string{"", "  "})
	assert.Equal(t, src.Pix, out.Pix)
}
