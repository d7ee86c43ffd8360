package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"intrusion-worker-go/internal/config"
	"intrusion-worker-go/internal/logging"
	"intrusion-worker-go/internal/metrics"
	"intrusion-worker-go/internal/services/detection"
	"intrusion-worker-go/internal/services/frameprocessing"
	"intrusion-worker-go/internal/services/messaging"
	"intrusion-worker-go/internal/services/postprocessing"
	"intrusion-worker-go/internal/services/streamcapture"
	"intrusion-worker-go/internal/session"
	"intrusion-worker-go/internal/stream"
	"intrusion-worker-go/internal/vision"
)

// Detector backends selectable with DETECTOR_BACKEND.
const (
	BackendDNN  = "dnn"
	BackendGRPC = "grpc"
	BackendHTTP = "http"
	BackendNone = "none"
)

// ServiceContainer holds all services
type ServiceContainer struct {
	Config    *config.Config
	Metrics   *metrics.Metrics
	Registry  *streamcapture.Registry
	Capture   *streamcapture.Service
	Picker    streamcapture.FilePicker
	Detectors *frameprocessing.Pool
	Pipeline  *stream.Pipeline
	Messaging *messaging.Service
	Alerts    *postprocessing.Service
	Sessions  *session.Controller
}

// NewServiceContainer creates a new service container
func NewServiceContainer(cfg *config.Config) (*ServiceContainer, error) {
	m := metrics.New()
	renderer := vision.NewRenderer()

	factory, err := DetectorFactory(cfg, renderer)
	if err != nil {
		return nil, err
	}
	detLogger := logging.NewServiceLogger(cfg, "detector")
	pool, err := frameprocessing.NewPool(cfg.DetectorWorkers, factory, detLogger)
	if err != nil {
		log.Error().Err(err).Str("backend", cfg.DetectorBackend).Msg("Detector unavailable, streams will report ModelError")
		pool, err = frameprocessing.NewPool(1, frameprocessing.Unavailable(err), detLogger)
		if err != nil {
			return nil, fmt.Errorf("start detector pool: %w", err)
		}
	}
	pool.OnDetect(m.ObserveDetect)

	registry := streamcapture.NewRegistry()
	capture := streamcapture.NewService(cfg, vision.CaptureOpener{}, renderer)
	pipeline := stream.NewPipeline(stream.OptionsFromConfig(cfg), capture, pool, renderer)

	sc := &ServiceContainer{
		Config:    cfg,
		Metrics:   m,
		Registry:  registry,
		Capture:   capture,
		Picker:    streamcapture.NewCommandPicker(cfg.FilePickerCommand),
		Detectors: pool,
		Pipeline:  pipeline,
	}

	sc.Sessions = session.NewController(cfg, registry, capture, pipeline, logging.NewServiceLogger(cfg, "session")).
		WithMetrics(m)

	if cfg.NatsEnabled {
		// Alerts are optional; streaming works without a broker.
		msg, err := messaging.NewService(cfg)
		if err != nil {
			log.Warn().Err(err).Str("url", cfg.NatsURL).Msg("NATS unavailable, intrusion alerts disabled")
		} else {
			alerts, err := postprocessing.NewService(cfg, msg)
			if err != nil {
				msg.Shutdown(context.Background())
				pool.Close()
				return nil, err
			}
			sc.Messaging = msg
			sc.Alerts = alerts
			sc.Sessions.WithAlerter(alerts)
		}
	}

	return sc, nil
}

// DetectorFactory builds the per-worker detector constructor for the configured backend.
func DetectorFactory(cfg *config.Config, encoder detection.Encoder) (frameprocessing.Factory, error) {
	logger := logging.NewServiceLogger(cfg, "detector")
	switch strings.ToLower(cfg.DetectorBackend) {
	case BackendDNN:
		return vision.NewDNNFactory(vision.DNNConfig{
			ModelPath:     cfg.AIModelPath,
			MinConfidence: float32(cfg.MinConfidence),
			NMSThreshold:  float32(cfg.NMSThreshold),
		}, logger), nil
	case BackendGRPC:
		return func() (frameprocessing.Detector, error) {
			return detection.NewGRPCDetector(detection.GRPCConfig{
				Endpoint:    cfg.AIGRPCURL,
				Timeout:     cfg.AITimeout,
				JPEGQuality: cfg.StreamJPEGQuality,
			}, encoder, logger)
		}, nil
	case BackendHTTP:
		return func() (frameprocessing.Detector, error) {
			return detection.NewHTTPDetector(detection.HTTPConfig{
				Endpoint:      cfg.AIHTTPURL,
				Timeout:       cfg.AITimeout,
				JPEGQuality:   cfg.StreamJPEGQuality,
				ConfThreshold: cfg.MinConfidence,
				ClassesFilter: "person",
			}, encoder, logger), nil
		}, nil
	case BackendNone:
		return func() (frameprocessing.Detector, error) { return frameprocessing.NopDetector{}, nil }, nil
	default:
		return nil, fmt.Errorf("unknown detector backend %q", cfg.DetectorBackend)
	}
}

// Shutdown gracefully shuts down all services
func (sc *ServiceContainer) Shutdown(ctx context.Context) error {
	var errs []error

	if sc.Alerts != nil {
		errs = append(errs, sc.Alerts.Shutdown(ctx))
	}
	if sc.Messaging != nil {
		errs = append(errs, sc.Messaging.Shutdown(ctx))
	}
	if sc.Detectors != nil {
		errs = append(errs, sc.Detectors.Close())
	}

	return errors.Join(errs...)
}
