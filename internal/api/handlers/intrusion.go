package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"intrusion-worker-go/internal/config"
	"intrusion-worker-go/internal/logging"
	"intrusion-worker-go/internal/models"
	"intrusion-worker-go/internal/services/streamcapture"
	"intrusion-worker-go/internal/session"
	"intrusion-worker-go/internal/ws"
)

// Snapshotter grabs a preview frame from a source.
type Snapshotter interface {
	Snapshot(ctx context.Context, ref models.SourceRef) streamcapture.SnapshotResult
}

// SourceSetter records the source later sessions stream from.
type SourceSetter interface {
	Set(ref models.SourceRef)
}

// SessionServer runs a session on an upgraded connection.
type SessionServer interface {
	Serve(ctx context.Context, t session.Transport) error
}

type IntrusionHandler struct {
	cfg      *config.Config
	sources  SourceSetter
	snapshot Snapshotter
	picker   streamcapture.FilePicker
	sessions SessionServer
	upgrader websocket.Upgrader
}

func NewIntrusionHandler(cfg *config.Config, sources SourceSetter, snapshot Snapshotter, picker streamcapture.FilePicker, sessions SessionServer) *IntrusionHandler {
	return &IntrusionHandler{
		cfg:      cfg,
		sources:  sources,
		snapshot: snapshot,
		picker:   picker,
		sessions: sessions,
		upgrader: ws.NewUpgrader(cfg.AllowedOrigins),
	}
}

// ImageRequest selects the source to preview and stream from.
type ImageRequest struct {
	Command string `json:"command" binding:"required" example:"webcam"`
	// Path skips the file dialog when command is "file".
	Path string `json:"path,omitempty" example:"/videos/lobby.mp4"`
}

func failedImage(message string) streamcapture.SnapshotResult {
	return streamcapture.SnapshotResult{Success: false, Message: message}
}

// GetIntrusionImage godoc
// @Summary Select a video source and preview it
// @Description Configures the webcam or a video file as the source for intrusion sessions and returns its first frame
// @Tags intrusion
// @Accept json
// @Produce json
// @Param request body ImageRequest true "Source selection"
// @Success 200 {object} streamcapture.SnapshotResult
// @Failure 422 {object} streamcapture.SnapshotResult
// @Router /getIntrusionImage [post]
func (h *IntrusionHandler) GetIntrusionImage(c *gin.Context) {
	var req ImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logging.Warn(c).Err(err).Msg("Invalid image request")
		c.JSON(http.StatusUnprocessableEntity, failedImage(err.Error()))
		return
	}

	var ref models.SourceRef
	switch strings.TrimSpace(req.Command) {
	case "webcam":
		ref = models.CameraSource(0)
	case "file":
		path := strings.TrimSpace(req.Path)
		if path == "" {
			picked, err := h.picker.Pick(c.Request.Context())
			if err != nil {
				if !errors.Is(err, streamcapture.ErrNoFileSelected) {
					logging.Warn(c).Err(err).Msg("File picker failed")
				}
				c.JSON(http.StatusOK, failedImage("No file selected"))
				return
			}
			path = picked
		}
		ref = models.FileSource(path)
	default:
		c.JSON(http.StatusOK, failedImage("Invalid input"))
		return
	}

	h.sources.Set(ref)
	logging.Info(c).Str("source", ref.String()).Msg("Video source configured")

	c.JSON(http.StatusOK, h.snapshot.Snapshot(c.Request.Context(), ref))
}

// Stream godoc
// @Summary Intrusion detection stream
// @Description WebSocket endpoint. Send {"polygon":[{"x":..,"y":..},...]} and receive annotated frames {"frame","intruder","frame_count"} plus status text messages
// @Tags intrusion
// @Success 101 {string} string "Switching Protocols"
// @Router /ws/intrusion [get]
func (h *IntrusionHandler) Stream(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		logging.Warn(c).Err(err).Msg("WebSocket upgrade failed")
		return
	}

	t := ws.NewConn(conn, h.cfg.WSReadLimit, h.cfg.WSWriteTimeout, logging.NewServiceLogger(h.cfg, "ws"))
	if err := h.sessions.Serve(c.Request.Context(), t); err != nil {
		logging.Error(c).Err(err).Msg("Session ended with error")
	}
}
