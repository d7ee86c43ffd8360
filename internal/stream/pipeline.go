package stream

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"intrusion-worker-go/internal/config"
	"intrusion-worker-go/internal/models"
	"intrusion-worker-go/internal/services/frameprocessing"
	"intrusion-worker-go/internal/services/streamcapture"
	"intrusion-worker-go/internal/zone"
)

// Sink is the client side of a session.
type Sink interface {
	SendText(ctx context.Context, msg string) error
	SendFrame(ctx context.Context, msg models.FrameMessage) error
	// Open is false once the peer has gone away.
	Open() bool
}

// Acquirer opens the source for a run.
type Acquirer interface {
	Acquire(ctx context.Context, ref models.SourceRef) (streamcapture.Source, error)
}

// Detector is satisfied by the frameprocessing pool.
type Detector interface {
	Detect(ctx context.Context, frame models.Frame) ([]models.Detection, error)
	Ready(ctx context.Context) error
}

// Renderer resizes, draws and encodes frames.
type Renderer interface {
	Resize(f models.Frame, width, height int) (models.Frame, error)
	DrawZone(f models.Frame, z zone.Zone) error
	DrawDetection(f models.Frame, d models.ClassifiedDetection) error
	EncodeJPEG(f models.Frame, quality int) ([]byte, error)
}

// FrameReport describes a frame that reached the client.
type FrameReport struct {
	Index      int
	Analysis   frameprocessing.Analysis
	Processing time.Duration
	Bytes      int
	// JPEG is the encoded frame as sent. Observers must not modify it.
	JPEG []byte
}

// Observer is told about sent frames and stage failures.
type Observer interface {
	FrameSent(r FrameReport)
	StageFailed(stage Stage, err error)
}

type nopObserver struct{}

func (nopObserver) FrameSent(FrameReport)   {}
func (nopObserver) StageFailed(Stage, error) {}

type Options struct {
	Width         int
	Height        int
	JPEGQuality   int
	Tick          time.Duration
	MinFrameDelay time.Duration
	PollInterval  time.Duration
	Filter        frameprocessing.Filter
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Width:         cfg.FrameWidth,
		Height:        cfg.FrameHeight,
		JPEGQuality:   cfg.StreamJPEGQuality,
		Tick:          cfg.FrameInterval(),
		MinFrameDelay: cfg.MinFrameDelay,
		PollInterval:  cfg.PacingPollInterval,
		Filter:        frameprocessing.Filter{ClassID: cfg.PersonClassID, MinConfidence: cfg.MinConfidence},
	}
}

// Pipeline streams annotated frames for one zone until the source ends or
// the client leaves. It is shared by all sessions; per-run state lives in run.
type Pipeline struct {
	opts     Options
	acquirer Acquirer
	detector Detector
	renderer Renderer
	clock    Clock
}

func NewPipeline(opts Options, acquirer Acquirer, detector Detector, renderer Renderer) *Pipeline {
	return &Pipeline{
		opts:     opts,
		acquirer: acquirer,
		detector: detector,
		renderer: renderer,
		clock:    RealClock,
	}
}

// WithClock replaces the time source.
func (p *Pipeline) WithClock(c Clock) *Pipeline {
	p.clock = c
	return p
}

// Request is one streaming run.
type Request struct {
	Source   models.SourceRef
	Zone     zone.Zone
	Sink     Sink
	Observer Observer
	Logger   zerolog.Logger
}

// Outcome summarizes a finished run.
type Outcome struct {
	State  State
	Frames int
}

type run struct {
	*Pipeline
	req      Request
	obs      Observer
	log      zerolog.Logger
	state    State
	frames   int
	lastTick time.Time
}

// Run executes the pipeline. Setup and per-frame failures are reported to
// the client and return a nil error; the session carries on. A non-nil error
// means the client could not be told the stream started.
func (p *Pipeline) Run(ctx context.Context, req Request) (Outcome, error) {
	r := &run{Pipeline: p, req: req, obs: req.Observer, log: req.Logger, state: StateInit}
	if r.obs == nil {
		r.obs = nopObserver{}
	}
	err := r.execute(ctx)
	r.log.Info().Stringer("state", r.state).Int("frames", r.frames).Msg("Stream finished")
	return Outcome{State: r.state, Frames: r.frames}, err
}

func (r *run) execute(ctx context.Context) error {
	if r.req.Zone.Empty() {
		r.state = StateError
		r.sendStatus(ctx, models.StatusDetail(models.StatusPolygonError, zone.ErrInvalidPolygon))
		return nil
	}

	src, err := r.acquirer.Acquire(ctx, r.req.Source)
	if err != nil {
		r.state = StateError
		r.log.Warn().Err(err).Msg("Could not acquire video source")
		r.sendStatus(ctx, models.StatusDetail(models.StatusVideoError, err))
		return nil
	}
	released := false
	release := func() {
		if released {
			return
		}
		released = true
		if cerr := src.Close(); cerr != nil {
			r.log.Debug().Err(cerr).Msg("Source close failed")
		}
	}
	defer release()

	if err := r.detector.Ready(ctx); err != nil {
		r.state = StateError
		r.log.Error().Err(err).Msg("Detector not ready")
		r.sendStatus(ctx, models.StatusDetail(models.StatusModelError, err))
		return nil
	}

	if err := r.req.Sink.SendText(ctx, models.StatusStreamReady); err != nil {
		r.state = StateError
		return fmt.Errorf("send %s: %w", models.StatusStreamReady, err)
	}
	r.state = StateReady
	// Every run that announced StreamReady releases the source, then says StreamEnded.
	defer func() {
		release()
		r.sendStatus(ctx, models.StatusStreamEnded)
	}()

	return r.loop(ctx, src)
}

func (r *run) loop(ctx context.Context, src streamcapture.Source) error {
	for {
		if ctx.Err() != nil {
			r.state = StateDisconnected
			return nil
		}

		raw, err := src.Read()
		if err != nil {
			return r.readFailed(ctx, err)
		}

		now := r.clock.Now()
		if tooEarly(r.lastTick, now, r.opts.Tick) {
			raw.Close()
			if err := r.clock.Sleep(ctx, r.opts.PollInterval); err != nil {
				r.state = StateDisconnected
				return nil
			}
			continue
		}
		r.lastTick = now

		res := r.processFrame(ctx, raw, now)
		if res.Fatal() {
			r.state = StateError
			r.obs.StageFailed(res.Stage, res.Err)
			serr := &StageError{Stage: res.Stage, Err: res.Err}
			r.log.Error().Err(serr).Int("frame", r.frames).Msg("Stream stopped")
			r.sendStatus(ctx, models.StatusDetail(models.StatusStreamError, serr))
			return nil
		}
		if r.state == StateDisconnected {
			return nil
		}

		delay := AdaptiveDelay(r.opts.Tick, r.clock.Now().Sub(now), r.opts.MinFrameDelay)
		if err := r.clock.Sleep(ctx, delay); err != nil {
			r.state = StateDisconnected
			return nil
		}
	}
}

func (r *run) readFailed(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, streamcapture.ErrEndOfStream):
		r.state = StateEnded
		r.sendStatus(ctx, models.StatusVideoEnded)
		return nil
	default:
		r.state = StateError
		r.obs.StageFailed(StageRead, err)
		r.log.Warn().Err(err).Msg("Live source stopped delivering frames")
		r.sendStatus(ctx, models.StatusDetail(models.StatusVideoError, err))
		return nil
	}
}

// processFrame runs one frame through resize, annotate, detect, encode and
// send. raw is released here whatever happens.
func (r *run) processFrame(ctx context.Context, raw models.Frame, start time.Time) Result {
	frame, err := r.renderer.Resize(raw, r.opts.Width, r.opts.Height)
	raw.Close()
	if err != nil {
		return Failed(StageResize, err)
	}
	defer frame.Close()

	if !r.req.Sink.Open() {
		r.state = StateDisconnected
		return Ok(StageResize)
	}

	if res := r.soft(StageZone, r.renderer.DrawZone(frame, r.req.Zone)); !res.OK() {
		r.log.Debug().Err(res.Err).Msg("Zone overlay skipped")
	}

	dets, err := r.detector.Detect(ctx, frame)
	if res := r.soft(StageDetect, err); !res.OK() {
		r.log.Warn().Err(err).Int("frame", r.frames).Msg("Detection failed, sending frame without detections")
		dets = nil
	}

	analysis := frameprocessing.Analyze(dets, r.req.Zone, r.opts.Filter)
	for _, d := range analysis.Detections {
		if res := r.soft(StageAnnotate, r.renderer.DrawDetection(frame, d)); !res.OK() {
			r.log.Debug().Err(res.Err).Msg("Detection overlay skipped")
		}
	}

	data, err := r.renderer.EncodeJPEG(frame, r.opts.JPEGQuality)
	if err != nil {
		return Failed(StageEncode, err)
	}

	msg := models.FrameMessage{
		Frame:      base64.StdEncoding.EncodeToString(data),
		Intruder:   analysis.Alarm(),
		FrameCount: r.frames,
	}
	if err := r.req.Sink.SendFrame(ctx, msg); err != nil {
		if !r.req.Sink.Open() || ctx.Err() != nil {
			r.state = StateDisconnected
			return Ok(StageSend)
		}
		return Failed(StageSend, err)
	}

	r.obs.FrameSent(FrameReport{
		Index:      r.frames,
		Analysis:   analysis,
		Processing: r.clock.Now().Sub(start),
		Bytes:      len(data),
		JPEG:       data,
	})
	r.frames++
	return Ok(StageSend)
}

// soft records a failure of a stage that does not end the stream.
func (r *run) soft(stage Stage, err error) Result {
	if err == nil {
		return Ok(stage)
	}
	r.obs.StageFailed(stage, err)
	return Failed(stage, err)
}

// sendStatus is best effort: the client may already be gone.
func (r *run) sendStatus(ctx context.Context, msg string) {
	if err := r.req.Sink.SendText(context.WithoutCancel(ctx), msg); err != nil {
		r.log.Debug().Err(err).Str("status", msg).Msg("Status not delivered")
	}
}
