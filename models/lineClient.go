package models

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
)

const lineDataEndpoint = "https://api-data.line.me"

// ReplySender delivers a reply to the conversation identified by replyToken.
type ReplySender interface {
	Reply(ctx context.Context, replyToken string, reply ReplyMessage) error
}

// LineClient talks to the LINE Messaging API: replies go through the SDK,
// content downloads hit the data endpoint directly so they honour ctx.
type LineClient struct {
	Logger       *slog.Logger
	api          *messaging_api.MessagingApiAPI
	httpClient   *http.Client
	channelToken string
	dataEndpoint string
}

/*
NewLineClient builds a client authenticated with channelToken.

Parameters:
- channelToken: Long-lived channel access token.
- replyTimeout: Deadline for a reply API call.

Returns:
- *LineClient.
- error: If the SDK client cannot be created.
*/
func NewLineClient(logger *slog.Logger, channelToken string, replyTimeout time.Duration) (*LineClient, error) {
	api, err := messaging_api.NewMessagingApiAPI(
		channelToken,
		messaging_api.WithHTTPClient(&http.Client{Timeout: replyTimeout}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create LINE messaging client: %w", err)
	}
	return &LineClient{
		Logger:       logger,
		api:          api,
		httpClient:   &http.Client{},
		channelToken: channelToken,
		dataEndpoint: lineDataEndpoint,
	}, nil
}

// GetContent opens the content stream of a message; the caller closes the body.
func (lc *LineClient) GetContent(ctx context.Context, contentID string) (*http.Response, error) {
	endpoint := fmt.Sprintf("%s/v2/bot/message/%s/content", lc.dataEndpoint, url.PathEscape(contentID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+lc.channelToken)
	return lc.httpClient.Do(req)
}

// Reply sends a single image message; LINE reply tokens are single use so
// there is no retry.
func (lc *LineClient) Reply(ctx context.Context, replyToken string, reply ReplyMessage) error {
	const function = "Reply"
	if err := ctx.Err(); err != nil {
		return newPipelineError(ErrorCodeReplySend, "", err)
	}

	_, err := lc.api.ReplyMessage(&messaging_api.ReplyMessageRequest{
		ReplyToken: replyToken,
		Messages: []messaging_api.MessageInterface{
			messaging_api.ImageMessage{
				OriginalContentUrl: reply.OriginalContentURL,
				PreviewImageUrl:    reply.PreviewImageURL,
			},
		},
	})
	if err != nil {
		lc.Logger.Error("Failed to send reply", "function", function, "error", err)
		return newPipelineError(ErrorCodeReplySend, "", err)
	}

	lc.Logger.Info("Reply sent successfully", "function", function, "image", reply.OriginalContentURL)
	return nil
}
