package models

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"net/http"
	"testing"

	"gobot/haikoobot/haikoo"

	"github.com/stretchr/testify/require"
)

// sampleJPEG encodes a small gradient photo.
func sampleJPEG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 320, 240))
	for y := 0; y < 240; y++ {
		for x := 0; x < 320; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func contentResponse(status int, contentType string, body []byte) *http.Response {
	header := http.Header{}
	if contentType != "" {
		header.Set("Content-Type", contentType)
	}
	return &http.Response{
		StatusCode: status,
		Header:     header,
		Body:       io.NopCloser(bytes.NewReader(body)),
	}
}

// fakeDescriber stands in for the vision service.
type fakeDescriber struct {
	desc haikoo.Description
	err  error
}

func (f fakeDescriber) Describe(ctx context.Context, imagePath string) (haikoo.Description, error) {
	return f.desc, f.err
}

func testDescription() haikoo.Description {
	return haikoo.Description{
		Captions: []string{TestData.Caption},
		Tags:     TestData.Tags,
	}
}
