package models

import (
	"encoding/json"
	"time"
)

type EventType string

const (
	EventTypeMessage  EventType = "message"
	EventTypeFollow   EventType = "follow"
	EventTypeUnfollow EventType = "unfollow"
	EventTypePostback EventType = "postback"
)

type MessageType string

const (
	MessageTypeText    MessageType = "text"
	MessageTypeImage   MessageType = "image"
	MessageTypeVideo   MessageType = "video"
	MessageTypeAudio   MessageType = "audio"
	MessageTypeSticker MessageType = "sticker"
)

// ContentProviderLine marks content hosted by LINE itself, the only kind the
// content API can return.
const ContentProviderLine = "line"

// WebhookPayload is the body LINE posts to the webhook endpoint.
type WebhookPayload struct {
	Destination string  `json:"destination,omitempty"`
	Events      []Event `json:"events"`
}

type Event struct {
	Type            EventType        `json:"type"`
	Mode            string           `json:"mode,omitempty"`
	Timestamp       int64            `json:"timestamp,omitempty"`
	WebhookEventID  string           `json:"webhookEventId,omitempty"`
	ReplyToken      string           `json:"replyToken,omitempty"`
	Source          *EventSource     `json:"source,omitempty"`
	DeliveryContext *DeliveryContext `json:"deliveryContext,omitempty"`
	Message         *Message         `json:"message,omitempty"`
}

type EventSource struct {
	Type    string `json:"type"`
	UserID  string `json:"userId,omitempty"`
	GroupID string `json:"groupId,omitempty"`
	RoomID  string `json:"roomId,omitempty"`
}

type DeliveryContext struct {
	IsRedelivery bool `json:"isRedelivery"`
}

type Message struct {
	Type            MessageType      `json:"type"`
	ID              string           `json:"id"`
	Text            string           `json:"text,omitempty"`
	ContentProvider *ContentProvider `json:"contentProvider,omitempty"`
}

type ContentProvider struct {
	Type               string `json:"type"`
	OriginalContentURL string `json:"originalContentUrl,omitempty"`
	PreviewImageURL    string `json:"previewImageUrl,omitempty"`
}

// Redelivered reports whether LINE flagged the event as a retry.
func (e Event) Redelivered() bool {
	return e.DeliveryContext != nil && e.DeliveryContext.IsRedelivery
}

// ContentID returns the id of the attached message, if any.
func (e Event) ContentID() string {
	if e.Message == nil {
		return ""
	}
	return e.Message.ID
}

// FetchedContent is a downloaded message attachment on local storage.
type FetchedContent struct {
	Path     string
	MimeType string
}

// HaikuResult holds the two artifacts produced for one source image.
type HaikuResult struct {
	ImagePath     string
	ThumbnailPath string
}

// ReplyMessage is an image reply referencing two public URLs.
type ReplyMessage struct {
	OriginalContentURL string `json:"originalContentUrl"`
	PreviewImageURL    string `json:"previewImageUrl"`
}

func (r ReplyMessage) MarshalJSON() ([]byte, error) {
	type alias ReplyMessage
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{Type: string(MessageTypeImage), alias: alias(r)})
}

// FailedEvent is published to the failed topic whenever an event cannot be processed.
type FailedEvent struct {
	ID             string    `json:"id"`
	TimeStamp      time.Time `json:"timestamp"`
	EventType      string    `json:"event_type"`
	WebhookEventID string    `json:"webhook_event_id,omitempty"`
	ReplyToken     string    `json:"reply_token,omitempty"`
	ContentID      string    `json:"content_id,omitempty"`
	ErrorCode      string    `json:"error_code"`
	Error          string    `json:"error"`
}

// HaikuRecord is a sent reply as stored in the history table.
type HaikuRecord struct {
	ID         string    `json:"id"`
	ContentID  string    `json:"content_id"`
	ReplyToken string    `json:"reply_token"`
	ImageURL   string    `json:"image_url"`
	PreviewURL string    `json:"preview_url"`
	CreatedAt  time.Time `json:"created_at"`
}
