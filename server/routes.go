package server

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"html"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"

	"gobot/haikoobot/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// EventRouter is the part of models.Router the ingress depends on.
type EventRouter interface {
	Handle(ctx context.Context, payload models.WebhookPayload) ([]models.ReplyMessage, error)
}

type Server struct {
	Logger        *slog.Logger
	WebhookLogger *slog.Logger
	Router        EventRouter
	Publisher     *models.EventPublisher
	Store         models.HaikuStore
	// ChannelSecret enables X-Line-Signature verification when set.
	ChannelSecret string
	// ImagesDir holds the generated artifacts served under /images when non-empty.
	ImagesDir string
}

// Engine builds the gin engine with every route registered.
func (s *Server) Engine() *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery(), s.requestID())

	engine.GET("/", s.Hello)
	engine.GET("/health", s.Health)
	engine.POST("/events", s.Events)
	engine.POST("/log", s.Log)
	engine.GET("/haikus/:contentId", s.LatestHaiku)
	if s.ImagesDir != "" {
		engine.GET("/images/:name", s.Image)
	}
	return engine
}

func (s *Server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader("X-Request-Id")
		if reqID == "" {
			reqID = uuid.New().String()
		}
		c.Set("reqid", reqID)
		c.Header("X-Request-Id", reqID)
		c.Next()
	}
}

func (s *Server) Hello(c *gin.Context) {
	name := c.DefaultQuery("name", "World (default)")
	c.String(http.StatusOK, "Hello, %s!", html.EscapeString(name))
}

func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

/*
Events receives LINE webhook deliveries. Every delivery with a valid signature
is acknowledged with 200 "OK" whatever happens while processing it, since
LINE retries on the HTTP status only.
*/
func (s *Server) Events(c *gin.Context) {
	const function = "Events"
	reqID := c.GetString("reqid")

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		s.Logger.Error("Failed to read request body", "function", function, "reqid", reqID, "error", err)
		c.String(http.StatusOK, "OK")
		return
	}

	if s.ChannelSecret != "" && !ValidSignature(s.ChannelSecret, c.GetHeader("X-Line-Signature"), body) {
		s.Logger.Warn("Rejected webhook with invalid signature", "function", function, "reqid", reqID)
		c.String(http.StatusBadRequest, "invalid signature")
		return
	}

	ctx := c.Request.Context()
	if err := s.Publisher.PublishRaw(ctx, body); err != nil {
		s.Logger.Warn("Unable to publish raw webhook", "function", function, "reqid", reqID, "error", err)
	}

	var payload models.WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		s.Logger.Error("JSON decode error", "function", function, "reqid", reqID, "error", err)
		c.String(http.StatusOK, "OK")
		return
	}

	replies, err := s.Router.Handle(ctx, payload)
	if err != nil {
		s.Logger.Error("Webhook processed with errors", "function", function, "reqid", reqID, "events", len(payload.Events), "error", err)
	}
	s.Logger.Info("Webhook processed", "function", function, "reqid", reqID, "events", len(payload.Events), "replies", len(replies))

	c.String(http.StatusOK, "OK")
}

// Log dumps the pretty-printed JSON body into the webhook log for debugging.
func (s *Server) Log(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.String(http.StatusBadRequest, "unreadable body")
		return
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, body, "", "    "); err != nil {
		pretty.Reset()
		pretty.Write(body)
	}
	s.WebhookLogger.Debug("Incoming webhook", "reqid", c.GetString("reqid"), "body", pretty.String())
	c.String(http.StatusOK, "OK")
}

func (s *Server) LatestHaiku(c *gin.Context) {
	if s.Store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "haiku history is not configured"})
		return
	}

	record, err := s.Store.LatestHaiku(c.Request.Context(), c.Param("contentId"))
	if errors.Is(err, models.ErrHaikuNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no haiku for this content"})
		return
	}
	if err != nil {
		s.Logger.Error("Failed to load haiku record", "function", "LatestHaiku", "reqid", c.GetString("reqid"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, record)
}

// Image serves one generated artifact. Any other file in ImagesDir, such as
// the downloaded source photos, answers 404.
func (s *Server) Image(c *gin.Context) {
	name := c.Param("name")
	if !models.IsArtifactName(name) {
		c.Status(http.StatusNotFound)
		return
	}
	c.File(filepath.Join(s.ImagesDir, name))
}

// ValidSignature checks the base64 HMAC-SHA256 of body under the channel secret.
func ValidSignature(channelSecret, signature string, body []byte) bool {
	decoded, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(channelSecret))
	mac.Write(body)
	return hmac.Equal(decoded, mac.Sum(nil))
}
