package models

// TestData contains all the test data constants used across test files
var TestData = struct {
	// Event identifiers
	ReplyToken     string
	ContentID      string
	WebhookEventID string
	UserID         string

	// Public root the formatter joins artifact names to
	ImageRootURL string

	// Describer output for the fake engine
	Caption string
	Tags    []string

	// Content served by the fake content API
	ContentType string
}{
	// Event identifiers
	ReplyToken:     "tok1",
	ContentID:      "msg1",
	WebhookEventID: "01FZ74A0TDDPYRVKNK77XKC3ZR",
	UserID:         "U4af4980629",

	ImageRootURL: "https://example.com/images/",

	Caption: "a cat sitting on a wooden table",
	Tags:    []string{"cat", "indoor", "table", "sunlight"},

	ContentType: "image/jpeg",
}

// GetTestImageEvent returns a message event carrying an image hosted by the given provider
func GetTestImageEvent(provider string) Event {
	return Event{
		Type:           EventTypeMessage,
		Mode:           "active",
		Timestamp:      1625665242211,
		WebhookEventID: TestData.WebhookEventID,
		ReplyToken:     TestData.ReplyToken,
		Source:         &EventSource{Type: "user", UserID: TestData.UserID},
		Message: &Message{
			Type:            MessageTypeImage,
			ID:              TestData.ContentID,
			ContentProvider: &ContentProvider{Type: provider},
		},
	}
}

// GetTestTextEvent returns a message event carrying plain text
func GetTestTextEvent(text string) Event {
	return Event{
		Type:       EventTypeMessage,
		ReplyToken: TestData.ReplyToken,
		Source:     &EventSource{Type: "user", UserID: TestData.UserID},
		Message: &Message{
			Type: MessageTypeText,
			ID:   "468789577898262530",
			Text: text,
		},
	}
}

// GetTestWebhookBody returns the raw webhook body for a single LINE-hosted image message
func GetTestWebhookBody() string {
	return `{"events":[{"type":"message","replyToken":"` + TestData.ReplyToken +
		`","message":{"type":"image","id":"` + TestData.ContentID +
		`","contentProvider":{"type":"line"}}}]}`
}
