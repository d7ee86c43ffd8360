package detection

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"intrusion-worker-go/internal/models"
)

const (
	// DetectMethod takes a JPEG as BytesValue and answers with a Struct
	// holding {"detections": [{"class_id", "label", "confidence", "bbox"}]}.
	DetectMethod = "/detection.v1.DetectionService/Detect"
	// HealthService is the name checked through grpc.health.v1.
	HealthService = "detection.v1.DetectionService"
)

// ErrBackoff is returned while the detector waits out consecutive failures.
var ErrBackoff = errors.New("detector in backoff after consecutive failures")

type GRPCConfig struct {
	Endpoint    string
	Timeout     time.Duration
	JPEGQuality int
}

// GRPCDetector sends frames to a remote inference service.
type GRPCDetector struct {
	cfg     GRPCConfig
	conn    *grpc.ClientConn
	health  healthpb.HealthClient
	encoder Encoder
	logger  zerolog.Logger

	mu               sync.Mutex
	consecutiveFails int
	lastFailTime     time.Time
	maxRetryBackoff  time.Duration
	now              func() time.Time
}

// NewGRPCDetector creates the client connection. Dial options replace the
// endpoint parsing, which tests use to plug in an in-memory listener.
func NewGRPCDetector(cfg GRPCConfig, encoder Encoder, logger zerolog.Logger, opts ...grpc.DialOption) (*GRPCDetector, error) {
	target := cfg.Endpoint
	if len(opts) == 0 {
		host, creds, err := ParseEndpoint(cfg.Endpoint)
		if err != nil {
			return nil, fmt.Errorf("failed to parse AI endpoint %s: %w", cfg.Endpoint, err)
		}
		target = host
		opts = []grpc.DialOption{grpc.WithTransportCredentials(creds)}
		logger.Info().
			Str("original_endpoint", cfg.Endpoint).
			Str("normalized_endpoint", host).
			Bool("use_tls", creds.Info().SecurityProtocol == "tls").
			Msg("Connecting to AI gRPC service")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}

	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to AI service at %s: %w", target, err)
	}
	return &GRPCDetector{
		cfg:             cfg,
		conn:            conn,
		health:          healthpb.NewHealthClient(conn),
		encoder:         encoder,
		logger:          logger,
		maxRetryBackoff: 30 * time.Second,
		now:             time.Now,
	}, nil
}

func (d *GRPCDetector) Detect(ctx context.Context, frame models.Frame) ([]models.Detection, error) {
	if !d.shouldRetry() {
		return nil, ErrBackoff
	}
	payload, err := d.encoder.EncodeJPEG(frame, d.cfg.JPEGQuality)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()

	resp := &structpb.Struct{}
	if err := d.conn.Invoke(ctx, DetectMethod, wrapperspb.Bytes(payload), resp); err != nil {
		d.recordFailure()
		return nil, fmt.Errorf("inference failed: %w", err)
	}
	d.recordSuccess()

	data, err := resp.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return decodeResult(data)
}

// Ready runs a grpc.health.v1 check against the detection service.
func (d *GRPCDetector) Ready(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()
	resp, err := d.health.Check(ctx, &healthpb.HealthCheckRequest{Service: HealthService})
	if err != nil {
		return fmt.Errorf("detection service health check failed: %w", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("detection service not serving: %s", resp.GetStatus())
	}
	return nil
}

func (d *GRPCDetector) Close() error {
	return d.conn.Close()
}

// shouldRetry applies exponential backoff: 1s, 2s, 4s ... capped at maxRetryBackoff.
func (d *GRPCDetector) shouldRetry() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.consecutiveFails == 0 {
		return true
	}
	backoff := time.Duration(1<<uint(min(d.consecutiveFails-1, 16))) * time.Second
	if backoff > d.maxRetryBackoff {
		backoff = d.maxRetryBackoff
	}
	return d.now().Sub(d.lastFailTime) >= backoff
}

func (d *GRPCDetector) recordFailure() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.consecutiveFails++
	d.lastFailTime = d.now()
	if d.consecutiveFails <= 5 {
		d.logger.Warn().Int("consecutive_fails", d.consecutiveFails).Msg("AI inference failure recorded")
	}
}

func (d *GRPCDetector) recordSuccess() {
	d.mu.Lock()
	d.consecutiveFails = 0
	d.mu.Unlock()
}
