package postprocessing

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"intrusion-worker-go/internal/config"
	"intrusion-worker-go/internal/models"
)

// MaxContextImageSize caps the frame attached to an alert; larger frames are sent without one.
const MaxContextImageSize = 500 * 1024

// Publisher delivers alert payloads to the message bus.
type Publisher interface {
	Publish(subject string, data interface{}) error
}

// FrameResult is what a session reports for every frame it sent.
type FrameResult struct {
	SessionID  string
	Source     models.SourceRef
	FrameIndex int
	Intruders  []models.Detection
	Zone       []models.Point
	// Image is the annotated JPEG of the frame.
	Image []byte
}

// Service turns per-frame intrusion results into alerts. An alert is raised
// when a session's alarm goes from clear to set, and at most once per
// cooldown for the same source.
type Service struct {
	cfg        *config.Config
	publisher  Publisher
	cooldownMu sync.RWMutex
	lastSent   map[string]time.Time
	cooldown   time.Duration

	alarmMu sync.Mutex
	alarmed map[string]bool

	now func() time.Time
}

// NewService creates a new postprocessing service
func NewService(cfg *config.Config, publisher Publisher) (*Service, error) {
	if publisher == nil {
		return nil, fmt.Errorf("message publisher is required")
	}

	s := &Service{
		cfg:       cfg,
		publisher: publisher,
		lastSent:  make(map[string]time.Time),
		cooldown:  cfg.AlertsCooldown,
		alarmed:   make(map[string]bool),
		now:       time.Now,
	}

	log.Info().
		Dur("cooldown", s.cooldown).
		Str("subject", cfg.AlertsSubject).
		Msg("Post-processing service initialized")

	return s, nil
}

// Shutdown stops the service gracefully
func (s *Service) Shutdown(ctx context.Context) error {
	log.Info().Msg("Post-processing service shutdown")
	return nil
}

// ProcessFrame publishes an IntrusionEvent on the rising edge of a session's
// alarm. It reports whether an event went out.
func (s *Service) ProcessFrame(r FrameResult) (bool, error) {
	if !s.rising(r.SessionID, len(r.Intruders) > 0) {
		return false, nil
	}

	key := r.Source.String()
	release, ok := s.reserveCooldown(key)
	if !ok {
		log.Debug().
			Str("session_id", r.SessionID).
			Str("source", key).
			Msg("Alert blocked by cooldown")
		return false, nil
	}

	event := models.IntrusionEvent{
		EventID:    uuid.NewString(),
		Type:       models.AlertTypeIntrusion,
		Severity:   models.SeverityFor(len(r.Intruders)),
		WorkerID:   s.cfg.WorkerID,
		SessionID:  r.SessionID,
		Source:     key,
		FrameIndex: r.FrameIndex,
		Intruders:  r.Intruders,
		Zone:       r.Zone,
		Timestamp:  s.now().UTC(),
	}
	if n := len(r.Image); n > 0 && n <= MaxContextImageSize {
		event.ContextImage = "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(r.Image)
	}
	if err := s.publisher.Publish(s.cfg.AlertsSubject, event); err != nil {
		release()
		s.clearAlarm(r.SessionID)
		return false, fmt.Errorf("publish intrusion alert: %w", err)
	}

	log.Info().
		Str("event_id", event.EventID).
		Str("session_id", r.SessionID).
		Str("severity", string(event.Severity)).
		Int("intruders", len(r.Intruders)).
		Msg("🚨 Intrusion alert published")
	return true, nil
}

// EndSession forgets a session's alarm state.
func (s *Service) EndSession(sessionID string) {
	s.alarmMu.Lock()
	defer s.alarmMu.Unlock()
	delete(s.alarmed, sessionID)
}

// clearAlarm lets the next alarmed frame of the session count as a rising edge.
func (s *Service) clearAlarm(sessionID string) {
	s.alarmMu.Lock()
	defer s.alarmMu.Unlock()
	delete(s.alarmed, sessionID)
}

func (s *Service) rising(sessionID string, alarm bool) bool {
	s.alarmMu.Lock()
	defer s.alarmMu.Unlock()
	prev := s.alarmed[sessionID]
	if alarm {
		s.alarmed[sessionID] = true
	} else {
		delete(s.alarmed, sessionID)
	}
	return alarm && !prev
}

// CheckCooldown checks if enough time has passed since the last alert
func (s *Service) CheckCooldown(key string) bool {
	s.cooldownMu.RLock()
	defer s.cooldownMu.RUnlock()

	lastSent, exists := s.lastSent[key]
	if !exists {
		return true
	}

	return s.now().Sub(lastSent) >= s.cooldown
}

// reserveCooldown claims the cooldown slot for key if it is free. release
// hands the slot back when the alert could not be delivered.
func (s *Service) reserveCooldown(key string) (release func(), ok bool) {
	s.cooldownMu.Lock()
	defer s.cooldownMu.Unlock()

	prev, existed := s.lastSent[key]
	now := s.now()
	if existed && now.Sub(prev) < s.cooldown {
		return nil, false
	}
	s.lastSent[key] = now

	return func() {
		s.cooldownMu.Lock()
		defer s.cooldownMu.Unlock()
		if !s.lastSent[key].Equal(now) {
			return
		}
		if existed {
			s.lastSent[key] = prev
		} else {
			delete(s.lastSent, key)
		}
	}, true
}
