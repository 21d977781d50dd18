package models

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestArtifactPrefix(t *testing.T) {
	assert.Equal(t, "msg1", ArtifactPrefix("/tmp/processing/msg1.jpeg"))
	assert.Equal(t, "image", ArtifactPrefix("image.jpeg"))
	assert.Equal(t, "archive.tar", ArtifactPrefix("archive.tar.gz"))
	assert.Equal(t, "noext", ArtifactPrefix("dir/noext"))
}

func TestIsArtifactName(t *testing.T) {
	tests := []struct {
		name     string
		expected bool
	}{
		{"msg1_haikoo.png", true},
		{"msg1_thumb.png", true},
		{"msg1.jpeg", false},
		{"config.json", false},
		{".env", false},
		{"_haikoo.png", false},
		{"../msg1_haikoo.png", false},
		{"sub/msg1_thumb.png", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsArtifactName(tt.name))
		})
	}
}

func TestGenerateDerivesPathsAndOrder(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "msg1.jpeg")
	imageOut := filepath.Join(dir, "msg1_haikoo.png")
	thumbOut := filepath.Join(dir, "msg1_thumb.png")

	engine := new(MockHaikuEngine)
	compose := engine.On("DescribeAndCompose", mock.Anything, source, "fusion", imageOut).
		Return("/engine/reported/composite.png", nil).Once()
	engine.On("Thumbnail", mock.Anything, "/engine/reported/composite.png", thumbOut, 256, 256).
		Return("/engine/reported/thumb.png", nil).Once().NotBefore(compose)

	generator := NewHaikuGenerator(slog.Default(), engine, dir, time.Second)
	result, err := generator.Generate(context.Background(), source)
	require.NoError(t, err)

	assert.Equal(t, "/engine/reported/composite.png", result.ImagePath)
	assert.Equal(t, "/engine/reported/thumb.png", result.ThumbnailPath)
	engine.AssertExpectations(t)
}

func TestGenerateComposeFailure(t *testing.T) {
	dir := t.TempDir()
	engine := new(MockHaikuEngine)
	engine.On("DescribeAndCompose", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("", errors.New("credentials rejected"))

	generator := NewHaikuGenerator(slog.Default(), engine, dir, time.Second)
	_, err := generator.Generate(context.Background(), filepath.Join(dir, "msg1.jpeg"))

	assert.ErrorIs(t, err, ErrHaikuGeneration)
	assert.Contains(t, err.Error(), "credentials rejected")
	engine.AssertNotCalled(t, "Thumbnail", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGenerateThumbnailFailureRemovesComposite(t *testing.T) {
	dir := t.TempDir()
	composite := filepath.Join(dir, "msg1_haikoo.png")
	require.NoError(t, os.WriteFile(composite, []byte("png"), 0644))

	engine := new(MockHaikuEngine)
	engine.On("DescribeAndCompose", mock.Anything, mock.Anything, mock.Anything, composite).Return(composite, nil)
	engine.On("Thumbnail", mock.Anything, composite, mock.Anything, 256, 256).Return("", errors.New("decode failed"))

	generator := NewHaikuGenerator(slog.Default(), engine, dir, time.Second)
	_, err := generator.Generate(context.Background(), filepath.Join(dir, "msg1.jpeg"))

	assert.ErrorIs(t, err, ErrHaikuGeneration)
	assert.NoFileExists(t, composite)
}

func TestGenerateTimeout(t *testing.T) {
	dir := t.TempDir()
	engine := new(MockHaikuEngine)
	engine.On("DescribeAndCompose", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return("", context.DeadlineExceeded)

	generator := NewHaikuGenerator(slog.Default(), engine, dir, 20*time.Millisecond)
	_, err := generator.Generate(context.Background(), filepath.Join(dir, "msg1.jpeg"))

	assert.ErrorIs(t, err, ErrHaikuGeneration)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
