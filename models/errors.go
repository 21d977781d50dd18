package models

import (
	"fmt"
	"strings"
)

// Associated Error codes
const (
	ErrorCodeConfiguration              = "CONFIGURATION_ERROR"
	ErrorCodeUnsupportedEvent           = "UNSUPPORTED_EVENT"
	ErrorCodeUnsupportedMessageType     = "UNSUPPORTED_MESSAGE_TYPE"
	ErrorCodeUnsupportedContentProvider = "UNSUPPORTED_CONTENT_PROVIDER"
	ErrorCodeContentFetch               = "CONTENT_FETCH_FAILED"
	ErrorCodeHaikuGeneration            = "HAIKU_GENERATION_FAILED"
	ErrorCodeReplySend                  = "REPLY_SEND_FAILED"
)

// Sentinels for errors.Is; they match any PipelineError carrying the same code.
var (
	ErrUnsupportedEvent           = &PipelineError{Code: ErrorCodeUnsupportedEvent}
	ErrUnsupportedMessageType     = &PipelineError{Code: ErrorCodeUnsupportedMessageType}
	ErrUnsupportedContentProvider = &PipelineError{Code: ErrorCodeUnsupportedContentProvider}
	ErrContentFetch               = &PipelineError{Code: ErrorCodeContentFetch}
	ErrHaikuGeneration            = &PipelineError{Code: ErrorCodeHaikuGeneration}
	ErrReplySend                  = &PipelineError{Code: ErrorCodeReplySend}
)

// PipelineError is a failure raised while processing a single webhook event.
type PipelineError struct {
	Code      string
	EventType string
	ContentID string
	Err       error
}

func (e *PipelineError) Error() string {
	var b strings.Builder
	b.WriteString(strings.ToLower(strings.ReplaceAll(e.Code, "_", " ")))
	if e.EventType != "" {
		fmt.Fprintf(&b, " (event=%s", e.EventType)
		if e.ContentID != "" {
			fmt.Fprintf(&b, ", content=%s", e.ContentID)
		}
		b.WriteString(")")
	} else if e.ContentID != "" {
		fmt.Fprintf(&b, " (content=%s)", e.ContentID)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

func (e *PipelineError) Is(target error) bool {
	t, ok := target.(*PipelineError)
	return ok && t.Code == e.Code
}

// newPipelineError wraps err under the given code.
func newPipelineError(code, contentID string, err error) *PipelineError {
	return &PipelineError{Code: code, ContentID: contentID, Err: err}
}

// ConfigError reports a missing or malformed start-up setting.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

// Code returns the error code shared with the pipeline errors.
func (e *ConfigError) Code() string {
	return ErrorCodeConfiguration
}
