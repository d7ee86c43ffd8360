package detection

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"intrusion-worker-go/internal/models"
)

type HTTPConfig struct {
	Endpoint      string // base URL, /detect and /health are appended
	Timeout       time.Duration
	JPEGQuality   int
	ConfThreshold float64
	ClassesFilter string
}

type healthResponse struct {
	Status      string `json:"status"`
	Device      string `json:"device"`
	ModelLoaded bool   `json:"model_loaded"`
}

// HTTPDetector posts frames as multipart uploads to a YOLO HTTP service.
type HTTPDetector struct {
	cfg     HTTPConfig
	client  *http.Client
	encoder Encoder
	logger  zerolog.Logger
}

func NewHTTPDetector(cfg HTTPConfig, encoder Encoder, logger zerolog.Logger) *HTTPDetector {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	cfg.Endpoint = strings.TrimRight(cfg.Endpoint, "/")
	return &HTTPDetector{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		encoder: encoder,
		logger:  logger,
	}
}

func (d *HTTPDetector) Detect(ctx context.Context, frame models.Frame) ([]models.Detection, error) {
	payload, err := d.encoder.EncodeJPEG(frame, d.cfg.JPEGQuality)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}

	var b bytes.Buffer
	w := multipart.NewWriter(&b)
	fw, err := w.CreateFormFile("file", "frame.jpg")
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write(payload); err != nil {
		return nil, err
	}
	w.WriteField("conf_threshold", fmt.Sprintf("%.3f", d.cfg.ConfThreshold))
	if d.cfg.ClassesFilter != "" {
		w.WriteField("classes_filter", d.cfg.ClassesFilter)
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.cfg.Endpoint+"/detect", &b)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("detect request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read detect response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("YOLO detection failed: %d %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return decodeResult(body)
}

// Ready requires /health to answer 200 with model_loaded set.
func (d *HTTPDetector) Ready(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.cfg.Endpoint+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to check YOLO health: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("YOLO health check returned status %d", resp.StatusCode)
	}
	var health healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return fmt.Errorf("failed to decode health response: %w", err)
	}
	if !health.ModelLoaded {
		return fmt.Errorf("YOLO model not loaded (status %q)", health.Status)
	}
	return nil
}

func (d *HTTPDetector) Close() error {
	d.client.CloseIdleConnections()
	return nil
}
