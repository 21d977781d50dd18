package server

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gobot/haikoobot/logger"
	"gobot/haikoobot/models"

	"github.com/gin-gonic/gin"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockEventRouter struct {
	mock.Mock
}

func (m *mockEventRouter) Handle(ctx context.Context, payload models.WebhookPayload) ([]models.ReplyMessage, error) {
	args := m.Called(ctx, payload)
	replies, _ := args.Get(0).([]models.ReplyMessage)
	return replies, args.Error(1)
}

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(router EventRouter) *Server {
	return &Server{
		Logger:        slog.Default(),
		WebhookLogger: slog.Default(),
		Router:        router,
	}
}

func sign(secret, body string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(body))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func perform(engine *gin.Engine, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestEventsDispatchesPayload(t *testing.T) {
	router := new(mockEventRouter)
	router.On("Handle", mock.Anything, mock.MatchedBy(func(p models.WebhookPayload) bool {
		return len(p.Events) == 1 && p.Events[0].ReplyToken == models.TestData.ReplyToken && p.Events[0].ContentID() == models.TestData.ContentID
	})).Return([]models.ReplyMessage{{OriginalContentURL: "a", PreviewImageURL: "b"}}, nil).Once()

	w := perform(newTestServer(router).Engine(), http.MethodPost, "/events", models.GetTestWebhookBody(), nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))
	router.AssertExpectations(t)
}

func TestEventsAlwaysAcknowledges(t *testing.T) {
	t.Run("processing failure", func(t *testing.T) {
		router := new(mockEventRouter)
		router.On("Handle", mock.Anything, mock.Anything).Return(nil, models.ErrContentFetch).Once()

		w := perform(newTestServer(router).Engine(), http.MethodPost, "/events", models.GetTestWebhookBody(), nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "OK", w.Body.String())
	})

	t.Run("malformed json", func(t *testing.T) {
		router := new(mockEventRouter)

		w := perform(newTestServer(router).Engine(), http.MethodPost, "/events", `{"events":[`, nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "OK", w.Body.String())
		router.AssertNotCalled(t, "Handle", mock.Anything, mock.Anything)
	})

	t.Run("empty events", func(t *testing.T) {
		router := new(mockEventRouter)
		router.On("Handle", mock.Anything, models.WebhookPayload{Events: []models.Event{}}).Return(nil, nil).Once()

		w := perform(newTestServer(router).Engine(), http.MethodPost, "/events", `{"events":[]}`, nil)
		assert.Equal(t, http.StatusOK, w.Code)
		router.AssertExpectations(t)
	})
}

func TestEventsSignature(t *testing.T) {
	body := models.GetTestWebhookBody()

	router := new(mockEventRouter)
	router.On("Handle", mock.Anything, mock.Anything).Return(nil, nil).Once()
	s := newTestServer(router)
	s.ChannelSecret = "channel-secret"
	engine := s.Engine()

	w := perform(engine, http.MethodPost, "/events", body, map[string]string{"X-Line-Signature": "bm90LXZhbGlk"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = perform(engine, http.MethodPost, "/events", body, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = perform(engine, http.MethodPost, "/events", body, map[string]string{"X-Line-Signature": sign("channel-secret", body)})
	assert.Equal(t, http.StatusOK, w.Code)
	router.AssertNumberOfCalls(t, "Handle", 1)
}

func TestEventsPublishesRawBody(t *testing.T) {
	body := models.GetTestWebhookBody()
	writer := new(models.MockKafkaWriter)
	writer.On("WriteMessages", mock.Anything, mock.MatchedBy(func(msgs []kafka.Message) bool {
		return len(msgs) == 1 && string(msgs[0].Value) == body
	})).Return(nil).Once()

	router := new(mockEventRouter)
	router.On("Handle", mock.Anything, mock.Anything).Return(nil, nil)

	s := newTestServer(router)
	s.Publisher = models.NewEventPublisher(slog.Default(), map[string]models.KafkaWriter{models.TopicRaw: writer})

	w := perform(s.Engine(), http.MethodPost, "/events", body, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	writer.AssertExpectations(t)
}

func TestValidSignature(t *testing.T) {
	body := []byte(`{"events":[]}`)
	assert.True(t, ValidSignature("s3cret", sign("s3cret", string(body)), body))
	assert.False(t, ValidSignature("other", sign("s3cret", string(body)), body))
	assert.False(t, ValidSignature("s3cret", "%%%not-base64", body))
}

func TestHello(t *testing.T) {
	engine := newTestServer(nil).Engine()

	w := perform(engine, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Hello, World (default)!", w.Body.String())

	w = perform(engine, http.MethodGet, "/?name=%3Cb%3EBash%3C%2Fb%3E", "", nil)
	assert.Equal(t, "Hello, &lt;b&gt;Bash&lt;/b&gt;!", w.Body.String())
}

func TestHealth(t *testing.T) {
	w := perform(newTestServer(nil).Engine(), http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestLogWritesWebhookLog(t *testing.T) {
	dir := t.TempDir()
	webhookLogger, closer := logger.NewWebhookLogger(logger.LogConfig{FilePath: dir})

	s := newTestServer(nil)
	s.WebhookLogger = webhookLogger
	w := perform(s.Engine(), http.MethodPost, "/log", `{"foo":"bar"}`, map[string]string{"X-Request-Id": "req-42"})
	require.NoError(t, closer.Close())

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "req-42", w.Header().Get("X-Request-Id"))

	content, err := os.ReadFile(filepath.Join(dir, "webhook.log"))
	require.NoError(t, err)
	assert.Contains(t, string(content), "Incoming webhook")
	assert.Contains(t, string(content), "webhook_log")
	assert.Contains(t, string(content), "req-42")
	assert.Contains(t, string(content), "foo")
	assert.Contains(t, string(content), "bar")
}

func TestLatestHaiku(t *testing.T) {
	t.Run("history disabled", func(t *testing.T) {
		w := perform(newTestServer(nil).Engine(), http.MethodGet, "/haikus/msg1", "", nil)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("not found", func(t *testing.T) {
		store := new(models.MockHaikuStore)
		store.On("LatestHaiku", mock.Anything, "missing").Return(models.HaikuRecord{}, models.ErrHaikuNotFound)

		s := newTestServer(nil)
		s.Store = store
		w := perform(s.Engine(), http.MethodGet, "/haikus/missing", "", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("store failure", func(t *testing.T) {
		store := new(models.MockHaikuStore)
		store.On("LatestHaiku", mock.Anything, "msg1").Return(models.HaikuRecord{}, errors.New("connection refused"))

		s := newTestServer(nil)
		s.Store = store
		w := perform(s.Engine(), http.MethodGet, "/haikus/msg1", "", nil)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "connection refused")
	})

	t.Run("found", func(t *testing.T) {
		record := models.HaikuRecord{
			ID:        "id1",
			ContentID: "msg1",
			ImageURL:  "https://example.com/images/msg1_haikoo.png",
			CreatedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		}
		store := new(models.MockHaikuStore)
		store.On("LatestHaiku", mock.Anything, "msg1").Return(record, nil)

		s := newTestServer(nil)
		s.Store = store
		w := perform(s.Engine(), http.MethodGet, "/haikus/msg1", "", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var got models.HaikuRecord
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, record, got)
	})
}

func TestStaticImages(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "msg1_thumb.png"), []byte("png-bytes"), 0644))

	s := newTestServer(nil)
	s.ImagesDir = dir
	w := perform(s.Engine(), http.MethodGet, "/images/msg1_thumb.png", "", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "png-bytes", w.Body.String())
}

func TestImagesServesOnlyArtifacts(t *testing.T) {
	dir := t.TempDir()
	for name, body := range map[string]string{
		"config.json":     `{"line_channel_secret":"s3cret"}`,
		".env":            "LINE_CHANNEL_TOKEN=tok",
		"msg1.jpeg":       "source",
		"msg1_haikoo.png": "composite",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0644))
	}

	s := newTestServer(nil)
	s.ImagesDir = dir
	engine := s.Engine()

	for _, target := range []string{"/images/config.json", "/images/.env", "/images/msg1.jpeg", "/images/_haikoo.png", "/images/missing_thumb.png"} {
		t.Run(target, func(t *testing.T) {
			w := perform(engine, http.MethodGet, target, "", nil)
			assert.Equal(t, http.StatusNotFound, w.Code)
			assert.NotContains(t, w.Body.String(), "s3cret")
		})
	}

	w := perform(engine, http.MethodGet, "/images/msg1_haikoo.png", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "composite", w.Body.String())
}

func TestImagesDisabledWithoutDir(t *testing.T) {
	w := perform(newTestServer(nil).Engine(), http.MethodGet, "/images/msg1_haikoo.png", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
