package models

import (
	"context"
	"log/slog"
	"time"

	"github.com/lithammer/shortuuid/v4"
)

// EventHandler processes one webhook event and returns the reply it sent, if any.
type EventHandler interface {
	Handle(ctx context.Context, event Event) (*ReplyMessage, error)
}

// MessageHandler answers image messages with a captioned haiku image.
type MessageHandler struct {
	Logger    *slog.Logger
	Fetcher   *ContentFetcher
	Generator *HaikuGenerator
	Formatter *ReplyFormatter
	Sender    ReplySender
	Store     HaikuStore
	Publisher *EventPublisher
}

/*
Handle processes a message event.

Parameters:
- ctx: Request context.
- event: A message-typed event.

Returns:
- *ReplyMessage: The reply sent, nil when the message type is not handled.
- error: PipelineError for unsupported providers, fetch, generation or send failures.
*/
func (mh *MessageHandler) Handle(ctx context.Context, event Event) (*ReplyMessage, error) {
	const function = "Handle"

	msg := event.Message
	if msg == nil {
		mh.Logger.Warn("Message event without message body", "function", function, "webhook_event_id", event.WebhookEventID)
		return nil, nil
	}

	if msg.Type != MessageTypeImage {
		mh.Logger.Info("Unable to handle message type",
			"function", function,
			"msg_type", msg.Type,
			"content_id", msg.ID,
			"error_code", ErrorCodeUnsupportedMessageType,
		)
		return nil, nil
	}

	provider := ""
	if msg.ContentProvider != nil {
		provider = msg.ContentProvider.Type
	}
	if provider != ContentProviderLine {
		return nil, &PipelineError{
			Code:      ErrorCodeUnsupportedContentProvider,
			EventType: string(event.Type),
			ContentID: msg.ID,
			Err:       unsupportedProvider(provider),
		}
	}

	content, err := mh.Fetcher.Fetch(ctx, msg.ID)
	if err != nil {
		return nil, err
	}

	haiku, err := mh.Generator.Generate(ctx, content.Path)
	if err != nil {
		return nil, err
	}

	reply := mh.Formatter.Format(haiku.ImagePath, haiku.ThumbnailPath)
	if err := mh.Sender.Reply(ctx, event.ReplyToken, reply); err != nil {
		return nil, err
	}

	mh.record(ctx, msg.ID, event.ReplyToken, reply)
	return &reply, nil
}

// record keeps the sent reply in the history store and on the replies topic.
// Both are best effort: the reply has already reached the user.
func (mh *MessageHandler) record(ctx context.Context, contentID, replyToken string, reply ReplyMessage) {
	const function = "record"
	record := HaikuRecord{
		ID:         shortuuid.New(),
		ContentID:  contentID,
		ReplyToken: replyToken,
		ImageURL:   reply.OriginalContentURL,
		PreviewURL: reply.PreviewImageURL,
		CreatedAt:  time.Now().UTC(),
	}

	if mh.Store != nil {
		if _, err := mh.Store.SaveHaiku(ctx, record); err != nil {
			mh.Logger.Error("Failed to store haiku record", "function", function, "content_id", contentID, "error", err)
		}
	}
	if err := mh.Publisher.PublishReply(ctx, record); err != nil {
		mh.Logger.Error("Failed to publish reply", "function", function, "content_id", contentID, "error", err)
	}
}

type unsupportedProvider string

func (p unsupportedProvider) Error() string {
	return "unable to handle content provider: " + string(p)
}
