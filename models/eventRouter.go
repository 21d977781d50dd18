package models

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/lithammer/shortuuid/v4"
)

// Router dispatches webhook events to their handler by event type.
type Router struct {
	Logger    *slog.Logger
	message   EventHandler
	publisher *EventPublisher
}

// NewRouter wires the handler for message events. Other event types are skipped.
func NewRouter(logger *slog.Logger, message EventHandler, publisher *EventPublisher) *Router {
	return &Router{
		Logger:    logger,
		message:   message,
		publisher: publisher,
	}
}

/*
Handle processes the events of a webhook payload in order.

A failing event is logged, published to the failed topic and skipped; the
remaining events are still processed.

Returns:
- []ReplyMessage: Every reply sent, in event order.
- error: All per-event failures joined, or nil.
*/
func (r *Router) Handle(ctx context.Context, payload WebhookPayload) ([]ReplyMessage, error) {
	const function = "Handle"

	var replies []ReplyMessage
	var errs []error

	for i, event := range payload.Events {
		var handler EventHandler
		switch event.Type {
		case EventTypeMessage:
			handler = r.message
		default:
			r.Logger.Debug("Skipping unsupported event",
				"function", function,
				"event_type", event.Type,
				"webhook_event_id", event.WebhookEventID,
				"error_code", ErrorCodeUnsupportedEvent,
			)
			continue
		}

		if event.Redelivered() {
			r.Logger.Info("Processing redelivered event", "function", function, "webhook_event_id", event.WebhookEventID)
		}

		reply, err := handler.Handle(ctx, event)
		if err != nil {
			err = r.fail(ctx, i, event, err)
			errs = append(errs, err)
			continue
		}
		if reply != nil {
			replies = append(replies, *reply)
		}
	}

	return replies, errors.Join(errs...)
}

// fail tags err with the event context, logs it and publishes it.
func (r *Router) fail(ctx context.Context, index int, event Event, err error) error {
	const function = "fail"

	var pErr *PipelineError
	if errors.As(err, &pErr) {
		tagged := *pErr
		if tagged.EventType == "" {
			tagged.EventType = string(event.Type)
		}
		if tagged.ContentID == "" {
			tagged.ContentID = event.ContentID()
		}
		pErr = &tagged
		err = pErr
	} else {
		pErr = &PipelineError{EventType: string(event.Type), ContentID: event.ContentID(), Err: err}
		err = pErr
	}

	r.Logger.Error("Failed to handle event",
		"function", function,
		"index", index,
		"event_type", event.Type,
		"webhook_event_id", event.WebhookEventID,
		"reply_token", event.ReplyToken,
		"content_id", event.ContentID(),
		"error_code", pErr.Code,
		"error", err,
	)

	failed := FailedEvent{
		ID:             shortuuid.New(),
		TimeStamp:      time.Now().UTC(),
		EventType:      string(event.Type),
		WebhookEventID: event.WebhookEventID,
		ReplyToken:     event.ReplyToken,
		ContentID:      event.ContentID(),
		ErrorCode:      pErr.Code,
		Error:          err.Error(),
	}
	if pubErr := r.publisher.PublishFailure(ctx, failed); pubErr != nil {
		r.Logger.Warn("Unable to publish failed event", "function", function, "error", pubErr)
	}
	return err
}
