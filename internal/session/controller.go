// Package session drives one client connection: it waits for zone requests,
// validates them and streams annotated frames until the client leaves.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"intrusion-worker-go/internal/config"
	"intrusion-worker-go/internal/logging"
	"intrusion-worker-go/internal/metrics"
	"intrusion-worker-go/internal/models"
	"intrusion-worker-go/internal/services/postprocessing"
	"intrusion-worker-go/internal/stream"
	"intrusion-worker-go/internal/zone"
)

// Transport is one client connection. Messages is closed and Done fires
// when the peer goes away.
type Transport interface {
	stream.Sink
	Messages() <-chan []byte
	Done() <-chan struct{}
	Close() error
}

// Sources yields the configured video source, if any.
type Sources interface {
	Get() (models.SourceRef, bool)
}

// Prober checks a source can be opened before streaming starts.
type Prober interface {
	Probe(ctx context.Context, ref models.SourceRef) error
}

// Runner streams one zone request.
type Runner interface {
	Run(ctx context.Context, req stream.Request) (stream.Outcome, error)
}

// Alerter receives every sent frame's intruders.
type Alerter interface {
	ProcessFrame(r postprocessing.FrameResult) (bool, error)
	EndSession(sessionID string)
}

var (
	errRequestTimeout = errors.New("no zone request received")
	errPeerGone       = errors.New("peer disconnected")
)

// Controller serves sessions. One Controller is shared by all connections.
type Controller struct {
	cfg       *config.Config
	sources   Sources
	prober    Prober
	runner    Runner
	alerter   Alerter
	metrics   *metrics.Metrics
	logger    zerolog.Logger
	newID     func() string
	validator func(log zerolog.Logger) *zone.Validator
}

func NewController(cfg *config.Config, sources Sources, prober Prober, runner Runner, logger zerolog.Logger) *Controller {
	return &Controller{
		cfg:     cfg,
		sources: sources,
		prober:  prober,
		runner:  runner,
		logger:  logger,
		newID:   uuid.NewString,
		validator: func(log zerolog.Logger) *zone.Validator {
			return zone.NewValidator(cfg.FrameWidth, cfg.FrameHeight, log)
		},
	}
}

// WithAlerter enables intrusion alerts.
func (c *Controller) WithAlerter(a Alerter) *Controller {
	c.alerter = a
	return c
}

func (c *Controller) WithMetrics(m *metrics.Metrics) *Controller {
	c.metrics = m
	return c
}

// Serve runs a session on t until the client leaves, the zone request times
// out or streaming fails fatally. t is closed on return.
func (c *Controller) Serve(ctx context.Context, t Transport) error {
	s := &Session{
		ID:        c.newID(),
		ctrl:      c,
		transport: t,
	}
	s.log = logging.WithSession(c.logger, s.ID)
	s.setPhase(PhaseConnected)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-t.Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	if c.metrics != nil {
		c.metrics.SessionStarted()
		defer c.metrics.SessionEnded()
	}
	if c.alerter != nil {
		defer c.alerter.EndSession(s.ID)
	}
	defer func() {
		s.setPhase(PhaseClosed)
		if err := t.Close(); err != nil {
			s.log.Debug().Err(err).Msg("Transport close failed")
		}
		s.log.Info().Int("frames", s.Frames()).Msg("Session closed")
	}()

	ref, ok := c.sources.Get()
	if !ok {
		s.log.Warn().Msg("No video source configured")
		s.sendStatus(ctx, models.StatusNoSourceConfigured)
		return nil
	}
	s.Source = ref
	s.log = logging.WithSource(s.log, ref.String())
	ctx = s.log.WithContext(ctx)
	s.log.Info().Msg("Session started")

	for {
		s.setPhase(PhaseAwaitingZone)
		msg, err := s.awaitRequest(ctx)
		switch {
		case errors.Is(err, errRequestTimeout):
			s.log.Info().Dur("timeout", c.cfg.ZoneRequestTimeout).Msg("Zone request timed out")
			s.sendStatus(ctx, models.StatusTimeout)
			return nil
		case err != nil:
			s.log.Info().Msg("Client disconnected")
			return nil
		}

		stop, err := s.handle(ctx, msg)
		if stop {
			return err
		}
	}
}

// Session is one connection's state. It is only touched by the goroutine
// running Serve.
type Session struct {
	ID     string
	Source models.SourceRef

	ctrl      *Controller
	transport Transport
	log       zerolog.Logger
	phase     atomic.Int32
	zone      zone.Zone
	frames    int
}

func (s *Session) Phase() Phase { return Phase(s.phase.Load()) }

func (s *Session) setPhase(p Phase) { s.phase.Store(int32(p)) }

// Frames is the number of frames sent over the session's lifetime.
func (s *Session) Frames() int { return s.frames }

func (s *Session) awaitRequest(ctx context.Context) ([]byte, error) {
	timer := time.NewTimer(s.ctrl.cfg.ZoneRequestTimeout)
	defer timer.Stop()

	select {
	case msg, ok := <-s.transport.Messages():
		if !ok {
			return nil, errPeerGone
		}
		return msg, nil
	case <-ctx.Done():
		return nil, errPeerGone
	case <-timer.C:
		return nil, errRequestTimeout
	}
}

// handle processes one zone request. stop ends the session.
func (s *Session) handle(ctx context.Context, msg []byte) (stop bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).Msg("Recovered while handling zone request")
			s.sendStatus(ctx, models.StatusDetail(models.StatusProcessingError, r))
			stop, err = false, nil
		}
	}()

	s.setPhase(PhaseValidating)
	req, err := zone.ParseRequest(msg)
	if err != nil {
		s.log.Warn().Err(err).Msg("Malformed zone request")
		s.sendStatus(ctx, models.StatusDetail(models.StatusInvalidJSON, err))
		return false, nil
	}

	z, err := s.ctrl.validator(s.log).Validate(req.Polygon)
	if err != nil {
		s.log.Warn().Err(err).Msg("Rejected zone")
		s.sendStatus(ctx, models.StatusDetail(models.StatusInvalidPolygon, err))
		return false, nil
	}
	s.zone = z
	s.log.Info().Int("points", z.Len()).Msg("Zone accepted")

	s.setPhase(PhaseProbing)
	if err := s.ctrl.prober.Probe(ctx, s.Source); err != nil {
		if s.ctrl.metrics != nil {
			s.ctrl.metrics.AcquireFailures.Add(1)
		}
		s.sendStatus(ctx, models.StatusDetail(models.StatusVideoError, err))
		return false, nil
	}

	s.setPhase(PhaseStreaming)
	out, err := s.ctrl.runner.Run(ctx, stream.Request{
		Source:   s.Source,
		Zone:     z,
		Sink:     s.transport,
		Observer: s,
		Logger:   s.log,
	})
	s.frames += out.Frames
	if err != nil {
		s.log.Error().Err(err).Msg("Stream failed")
		s.sendStatus(ctx, models.StatusDetail(models.StatusStreamError, err))
		return true, fmt.Errorf("session %s: %w", s.ID, err)
	}
	if out.State == stream.StateDisconnected {
		return true, nil
	}
	return false, nil
}

// FrameSent feeds metrics and alerts.
func (s *Session) FrameSent(r stream.FrameReport) {
	if m := s.ctrl.metrics; m != nil {
		m.FrameSent(r.Bytes, r.Analysis.Alarm(), r.Processing)
	}
	a := s.ctrl.alerter
	if a == nil {
		return
	}
	published, err := a.ProcessFrame(postprocessing.FrameResult{
		SessionID:  s.ID,
		Source:     s.Source,
		FrameIndex: s.frames + r.Index,
		Intruders:  r.Analysis.InsideDetections(),
		Zone:       s.zone.Points(),
		Image:      r.JPEG,
	})
	if err != nil {
		s.log.Warn().Err(err).Msg("Intrusion alert not published")
		return
	}
	if published && s.ctrl.metrics != nil {
		s.ctrl.metrics.AlertsPublished.Add(1)
	}
}

func (s *Session) StageFailed(stage stream.Stage, err error) {
	if m := s.ctrl.metrics; m != nil {
		m.StageFailed(stage.String())
	}
}

func (s *Session) sendStatus(ctx context.Context, msg string) {
	if err := s.transport.SendText(context.WithoutCancel(ctx), msg); err != nil {
		s.log.Debug().Err(err).Str("status", msg).Msg("Status not delivered")
	}
}
