package models

import (
	"context"
	"net/http"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/mock"
)

// MockHaikuStore mocks the PostgresRepository
type MockHaikuStore struct {
	mock.Mock
}

// SaveHaiku mocks the SaveHaiku method
func (m *MockHaikuStore) SaveHaiku(ctx context.Context, record HaikuRecord) (HaikuRecord, error) {
	args := m.Called(ctx, record)
	return args.Get(0).(HaikuRecord), args.Error(1)
}

// LatestHaiku mocks the LatestHaiku method
func (m *MockHaikuStore) LatestHaiku(ctx context.Context, contentID string) (HaikuRecord, error) {
	args := m.Called(ctx, contentID)
	return args.Get(0).(HaikuRecord), args.Error(1)
}

// MockReplySender mocks the LINE reply API
type MockReplySender struct {
	mock.Mock
}

func (m *MockReplySender) Reply(ctx context.Context, replyToken string, reply ReplyMessage) error {
	args := m.Called(ctx, replyToken, reply)
	return args.Error(0)
}

// MockContentClient mocks the LINE content API
type MockContentClient struct {
	mock.Mock
}

func (m *MockContentClient) GetContent(ctx context.Context, contentID string) (*http.Response, error) {
	args := m.Called(ctx, contentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	if fn, ok := args.Get(0).(func(context.Context, string) *http.Response); ok {
		return fn(ctx, contentID), args.Error(1)
	}
	return args.Get(0).(*http.Response), args.Error(1)
}

// MockHaikuEngine mocks the describe/compose/thumbnail engine
type MockHaikuEngine struct {
	mock.Mock
}

func (m *MockHaikuEngine) DescribeAndCompose(ctx context.Context, imagePath, style, outPath string) (string, error) {
	args := m.Called(ctx, imagePath, style, outPath)
	return args.String(0), args.Error(1)
}

func (m *MockHaikuEngine) Thumbnail(ctx context.Context, imagePath, outPath string, width, height int) (string, error) {
	args := m.Called(ctx, imagePath, outPath, width, height)
	return args.String(0), args.Error(1)
}

// MockKafkaWriter is a mock for kafka.Writer
type MockKafkaWriter struct {
	mock.Mock
}

func (m *MockKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func (m *MockKafkaWriter) Close() error {
	args := m.Called()
	return args.Error(0)
}
