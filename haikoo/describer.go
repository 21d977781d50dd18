package haikoo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

var (
	// ErrCredentials means the vision service rejected the configured key.
	ErrCredentials = errors.New("computer vision credentials rejected")
	// ErrNoDescription means the service returned nothing usable for the image.
	ErrNoDescription = errors.New("no description produced for image")
)

// Description is what the vision service saw in an image.
type Description struct {
	Captions []string
	Tags     []string
}

type Describer interface {
	Describe(ctx context.Context, imagePath string) (Description, error)
}

// AzureDescriber calls the Azure Computer Vision "describe" operation.
type AzureDescriber struct {
	Key        string
	Region     string
	Endpoint   string
	HTTPClient *http.Client
}

func NewAzureDescriber(key, region string) *AzureDescriber {
	return &AzureDescriber{
		Key:        key,
		Region:     region,
		Endpoint:   fmt.Sprintf("https://%s.api.cognitive.microsoft.com", region),
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type describeResponse struct {
	Description struct {
		Tags     []string `json:"tags"`
		Captions []struct {
			Text       string  `json:"text"`
			Confidence float64 `json:"confidence"`
		} `json:"captions"`
	} `json:"description"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (d *AzureDescriber) Describe(ctx context.Context, imagePath string) (Description, error) {
	file, err := os.Open(imagePath)
	if err != nil {
		return Description{}, fmt.Errorf("open image: %w", err)
	}
	defer file.Close()

	endpoint := strings.TrimRight(d.Endpoint, "/") + "/vision/v3.2/describe?maxCandidates=1&language=en"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, file)
	if err != nil {
		return Description{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("Ocp-Apim-Subscription-Key", d.Key)

	res, err := d.HTTPClient.Do(req)
	if err != nil {
		return Description{}, fmt.Errorf("describe request: %w", err)
	}
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return Description{}, fmt.Errorf("read describe response: %w", err)
	}

	switch {
	case res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden:
		return Description{}, fmt.Errorf("%w: status=%d", ErrCredentials, res.StatusCode)
	case res.StatusCode >= 300:
		return Description{}, fmt.Errorf("describe status=%d body=%s", res.StatusCode, string(body))
	}

	var payload describeResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return Description{}, fmt.Errorf("decode describe response: %w", err)
	}

	var desc Description
	for _, c := range payload.Description.Captions {
		if text := strings.TrimSpace(c.Text); text != "" {
			desc.Captions = append(desc.Captions, text)
		}
	}
	desc.Tags = payload.Description.Tags
	if len(desc.Captions) == 0 && len(desc.Tags) == 0 {
		return Description{}, ErrNoDescription
	}
	return desc, nil
}
