package haikoo

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const bandPadding = 4

// Engine describes photos, writes the verse over them and makes thumbnails.
type Engine struct {
	Describer Describer
	Face      font.Face
}

func NewEngine(describer Describer) *Engine {
	return &Engine{
		Describer: describer,
		Face:      basicfont.Face7x13,
	}
}

/*
DescribeAndCompose writes imagePath with a haiku about it to outPath. The
output format follows the outPath extension.

Returns:
- string: outPath.
- error: Describer failures, ErrNoDescription or an image error.
*/
func (e *Engine) DescribeAndCompose(ctx context.Context, imagePath, style, outPath string) (string, error) {
	desc, err := e.Describer.Describe(ctx, imagePath)
	if err != nil {
		return "", err
	}
	lines, err := Compose(desc, style)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	src, err := imaging.Open(imagePath, imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("open source image: %w", err)
	}

	if err := imaging.Save(e.Overlay(src, lines), outPath); err != nil {
		return "", fmt.Errorf("save composite: %w", err)
	}
	return outPath, nil
}

// Thumbnail crops and scales imagePath to exactly width x height.
func (e *Engine) Thumbnail(ctx context.Context, imagePath, outPath string, width, height int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	src, err := imaging.Open(imagePath)
	if err != nil {
		return "", fmt.Errorf("open composite: %w", err)
	}
	thumb := imaging.Fill(src, width, height, imaging.Center, imaging.Lanczos)
	if err := imaging.Save(thumb, outPath); err != nil {
		return "", fmt.Errorf("save thumbnail: %w", err)
	}
	return outPath, nil
}

// Overlay draws lines on a translucent band near the bottom of img. The band
// is rendered at the face's native size and scaled to 80% of the image width.
func (e *Engine) Overlay(img image.Image, lines []string) *image.NRGBA {
	base := imaging.Clone(img)
	var text []string
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			text = append(text, l)
		}
	}
	if len(text) == 0 {
		return base
	}

	lineHeight := e.Face.Metrics().Height.Ceil()
	ascent := e.Face.Metrics().Ascent.Ceil()
	bandWidth := 0
	for _, l := range text {
		if w := font.MeasureString(e.Face, l).Ceil(); w > bandWidth {
			bandWidth = w
		}
	}
	bandWidth += 2 * bandPadding
	bandHeight := lineHeight*len(text) + 2*bandPadding

	band := image.NewNRGBA(image.Rect(0, 0, bandWidth, bandHeight))
	draw.Draw(band, band.Bounds(), image.NewUniform(color.NRGBA{A: 150}), image.Point{}, draw.Src)

	drawer := &font.Drawer{Dst: band, Src: image.White, Face: e.Face}
	for i, l := range text {
		x := (bandWidth - font.MeasureString(e.Face, l).Ceil()) / 2
		drawer.Dot = fixed.P(x, bandPadding+ascent+i*lineHeight)
		drawer.DrawString(l)
	}

	bounds := base.Bounds()
	targetWidth := bounds.Dx() * 8 / 10
	if targetWidth < 1 {
		targetWidth = 1
	}
	scaled := imaging.Resize(band, targetWidth, 0, imaging.NearestNeighbor)
	pos := image.Pt(
		bounds.Min.X+(bounds.Dx()-scaled.Bounds().Dx())/2,
		bounds.Max.Y-scaled.Bounds().Dy()-bounds.Dy()/20,
	)
	return imaging.Overlay(base, scaled, pos, 1.0)
}
