package models

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// HaikuEngine describes an image, writes a captioned composite and thumbnails it.
type HaikuEngine interface {
	DescribeAndCompose(ctx context.Context, imagePath, style, outPath string) (string, error)
	Thumbnail(ctx context.Context, imagePath, outPath string, width, height int) (string, error)
}

// Suffixes of the two artifacts written next to each source image.
const (
	ComposedSuffix  = "_haikoo.png"
	ThumbnailSuffix = "_thumb.png"
)

// HaikuGenerator turns a fetched photo into the composite and thumbnail
// artifacts served back to the user.
type HaikuGenerator struct {
	Logger        *slog.Logger
	engine        HaikuEngine
	processingDir string
	style         string
	timeout       time.Duration
}

/*
NewHaikuGenerator creates a generator writing artifacts into processingDir.

Parameters:
- engine: Describes, composes and thumbnails the image.
- processingDir: Existing directory receiving the artifacts.
- timeout: Deadline for the whole generation; zero disables it.

Returns:
- *HaikuGenerator: Using the default haiku style.
*/
func NewHaikuGenerator(logger *slog.Logger, engine HaikuEngine, processingDir string, timeout time.Duration) *HaikuGenerator {
	return &HaikuGenerator{
		Logger:        logger,
		engine:        engine,
		processingDir: processingDir,
		style:         DefaultHaikuStyle,
		timeout:       timeout,
	}
}

// IsArtifactName reports whether name is a bare file name the generator
// produces: a non-empty prefix followed by ComposedSuffix or ThumbnailSuffix.
func IsArtifactName(name string) bool {
	if name == "" || filepath.Base(name) != name {
		return false
	}
	for _, suffix := range []string{ComposedSuffix, ThumbnailSuffix} {
		if len(name) > len(suffix) && strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

// ArtifactPrefix is the source file's base name without its extension.
func ArtifactPrefix(sourceImage string) string {
	base := filepath.Base(sourceImage)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

/*
Generate runs describe -> compose -> thumbnail for sourceImage.

Parameters:
- sourceImage: Local path of the fetched photo.

Returns:
- HaikuResult: Paths reported by the engine for the composite and the thumbnail.
- error: ErrHaikuGeneration if any step fails or the deadline passes.
*/
func (hg *HaikuGenerator) Generate(ctx context.Context, sourceImage string) (HaikuResult, error) {
	const function = "Generate"

	if hg.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, hg.timeout)
		defer cancel()
	}

	prefix := ArtifactPrefix(sourceImage)
	imageOut := filepath.Join(hg.processingDir, prefix+ComposedSuffix)
	thumbOut := filepath.Join(hg.processingDir, prefix+ThumbnailSuffix)

	image, err := hg.engine.DescribeAndCompose(ctx, sourceImage, hg.style, imageOut)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		hg.Logger.Error("Haiku composition failed", "function", function, "source", sourceImage, "error", err)
		return HaikuResult{}, newPipelineError(ErrorCodeHaikuGeneration, prefix, fmt.Errorf("compose: %w", err))
	}

	thumbnail, err := hg.engine.Thumbnail(ctx, image, thumbOut, ThumbnailWidth, ThumbnailHeight)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		hg.Logger.Error("Thumbnail generation failed", "function", function, "source", sourceImage, "error", err)
		if rmErr := os.Remove(image); rmErr != nil && !os.IsNotExist(rmErr) {
			hg.Logger.Warn("Unable to remove orphaned composite", "function", function, "path", image, "error", rmErr)
		}
		return HaikuResult{}, newPipelineError(ErrorCodeHaikuGeneration, prefix, fmt.Errorf("thumbnail: %w", err))
	}

	hg.Logger.Info("Haiku generated", "function", function, "image", image, "thumbnail", thumbnail)
	return HaikuResult{ImagePath: image, ThumbnailPath: thumbnail}, nil
}
