package streamcapture

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"intrusion-worker-go/internal/config"
	"intrusion-worker-go/internal/models"
	"intrusion-worker-go/internal/retry"
)

// Service opens frame sources: bounded acquisition for streaming, a single
// probe before streaming, and one-shot snapshots.
type Service struct {
	cfg     *config.Config
	opener  Opener
	imager  Imager
	acquire retry.Policy
	probe   retry.Policy
	sleep   func(ctx context.Context, d time.Duration) error
	logger  zerolog.Logger
}

// NewService creates a new stream capture service
func NewService(cfg *config.Config, opener Opener, imager Imager) *Service {
	return &Service{
		cfg:     cfg,
		opener:  opener,
		imager:  imager,
		acquire: retry.Policy{MaxAttempts: cfg.SourceMaxAttempts, Interval: cfg.SourceRetryInterval},
		probe:   retry.Once(),
		sleep:   retry.SleepContext,
		logger:  log.With().Str("service", "streamcapture").Logger(),
	}
}

// WithSleep replaces the wait used for warm-up and retries. Tests use it to skip real delays.
func (s *Service) WithSleep(sleep func(ctx context.Context, d time.Duration) error) *Service {
	s.sleep = sleep
	s.acquire.Sleep = sleep
	s.probe.Sleep = sleep
	return s
}

// loggerFor prefers the caller's logger carried in ctx.
func (s *Service) loggerFor(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		ll := l.With().Str("component", "streamcapture").Logger()
		return &ll
	}
	return &s.logger
}

func (s *Service) captureOptions() CaptureOptions {
	return CaptureOptions{
		Width:      s.cfg.FrameWidth,
		Height:     s.cfg.FrameHeight,
		FPS:        s.cfg.TargetFPS,
		BufferSize: 1,
	}
}

// Acquire opens ref for streaming. Every attempt opens the source, warms up
// live cameras and reads one test frame which is discarded. A handle that
// fails is released before the next attempt.
func (s *Service) Acquire(ctx context.Context, ref models.SourceRef) (Source, error) {
	var src Source
	err := s.acquire.Do(ctx, func(ctx context.Context, attempt int) error {
		l := s.loggerFor(ctx).With().Str("source", ref.String()).Int("attempt", attempt).Logger()

		opened, err := s.open(ctx, ref, s.cfg.CameraWarmup)
		if err != nil {
			l.Warn().Err(err).Msg("Source acquisition attempt failed")
			return err
		}
		src = opened
		l.Info().Msg("Source acquired")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return src, nil
}

// Probe checks that ref opens and yields a frame, then releases it.
func (s *Service) Probe(ctx context.Context, ref models.SourceRef) error {
	return s.probe.Do(ctx, func(ctx context.Context, _ int) error {
		src, err := s.open(ctx, ref, 0)
		if err != nil {
			s.loggerFor(ctx).Warn().Err(err).Str("source", ref.String()).Msg("Source probe failed")
			return err
		}
		return src.Close()
	})
}

func (s *Service) open(ctx context.Context, ref models.SourceRef, warmup time.Duration) (Source, error) {
	src, err := s.opener.Open(ctx, ref, s.captureOptions())
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", ref, err)
	}
	if ref.IsLive() && warmup > 0 {
		if err := s.sleep(ctx, warmup); err != nil {
			src.Close()
			return nil, err
		}
	}
	frame, err := src.Read()
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("test read from %s: %w", ref, err)
	}
	frame.Close()
	return src, nil
}

// SnapshotResult mirrors the JSON body of the snapshot endpoint.
type SnapshotResult struct {
	Success bool    `json:"success"`
	Message string  `json:"message"`
	Image   *string `json:"image"`
}

// Snapshot grabs one frame from ref, resized and encoded as a JPEG data URL.
// Live cameras get a short warm-up and a few reads to settle exposure.
func (s *Service) Snapshot(ctx context.Context, ref models.SourceRef) SnapshotResult {
	l := s.logger.With().Str("source", ref.String()).Logger()

	src, err := s.opener.Open(ctx, ref, s.captureOptions())
	if err != nil {
		l.Warn().Err(err).Msg("Snapshot source could not be opened")
		return SnapshotResult{Message: fmt.Sprintf("Could not open video source: %s", ref)}
	}
	defer src.Close()

	if ref.IsLive() && s.cfg.SnapshotWarmup > 0 {
		if err := s.sleep(ctx, s.cfg.SnapshotWarmup); err != nil {
			return SnapshotResult{Message: fmt.Sprintf("Error processing image: %v", err)}
		}
	}

	frame, err := s.readSettled(src)
	if err != nil {
		l.Warn().Err(err).Msg("Snapshot read failed")
		return SnapshotResult{Message: "Could not read frame from video source"}
	}
	defer frame.Close()

	resized, err := s.imager.Resize(frame, s.cfg.FrameWidth, s.cfg.FrameHeight)
	if err != nil {
		return SnapshotResult{Message: fmt.Sprintf("Error processing image: %v", err)}
	}
	defer resized.Close()

	data, err := s.imager.EncodeJPEG(resized, s.cfg.SnapshotJPEGQuality)
	if err != nil {
		return SnapshotResult{Message: fmt.Sprintf("Error processing image: %v", err)}
	}

	img := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(data)
	l.Info().Int("bytes", len(data)).Msg("Snapshot captured")
	return SnapshotResult{Success: true, Message: "Image sent successfully", Image: &img}
}

// readSettled reads SnapshotReadTries frames and keeps the last one.
// Any failed read fails the snapshot.
func (s *Service) readSettled(src Source) (models.Frame, error) {
	tries := s.cfg.SnapshotReadTries
	if tries < 1 {
		tries = 1
	}
	var last models.Frame
	for i := 0; i < tries; i++ {
		f, err := src.Read()
		if err != nil {
			if last != nil {
				last.Close()
			}
			return nil, err
		}
		if last != nil {
			last.Close()
		}
		last = f
	}
	return last, nil
}
