package frameprocessing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"intrusion-worker-go/internal/models"
)

var ErrPoolClosed = errors.New("detector pool closed")

type detectJob struct {
	ctx   context.Context
	frame models.Frame
	reply chan detectReply
}

type detectReply struct {
	detections []models.Detection
	err        error
	elapsed    time.Duration
}

// Pool runs detection on a fixed set of workers. Sessions submit a frame and
// wait for the reply; the frame stays owned by the caller.
type Pool struct {
	jobs      chan detectJob
	quit      chan struct{}
	wg        sync.WaitGroup
	detectors []Detector
	closeOnce sync.Once
	logger    zerolog.Logger
	observe   func(elapsed time.Duration, err error)
}

// NewPool starts size workers, each with a detector from factory.
func NewPool(size int, factory Factory, logger zerolog.Logger) (*Pool, error) {
	if size < 1 {
		size = 1
	}
	p := &Pool{
		jobs:   make(chan detectJob),
		quit:   make(chan struct{}),
		logger: logger,
	}
	for i := 0; i < size; i++ {
		d, err := factory()
		if err != nil {
			for _, created := range p.detectors {
				created.Close()
			}
			return nil, fmt.Errorf("create detector %d: %w", i, err)
		}
		p.detectors = append(p.detectors, d)
	}
	for i, d := range p.detectors {
		p.wg.Add(1)
		go p.worker(i, d)
	}
	logger.Info().Int("workers", size).Msg("Detector pool started")
	return p, nil
}

// OnDetect registers a callback invoked after every detection. Set it before use.
func (p *Pool) OnDetect(fn func(elapsed time.Duration, err error)) {
	p.observe = fn
}

func (p *Pool) worker(id int, d Detector) {
	defer p.wg.Done()
	for {
		select {
		case <-p.quit:
			return
		case j := <-p.jobs:
			j.reply <- p.run(id, d, j)
		}
	}
}

func (p *Pool) run(id int, d Detector, j detectJob) (r detectReply) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			p.logger.Error().Int("worker", id).Interface("panic", rec).Msg("Detector panicked")
			r = detectReply{err: fmt.Errorf("detector panic: %v", rec)}
		}
		r.elapsed = time.Since(start)
		if p.observe != nil {
			p.observe(r.elapsed, r.err)
		}
	}()
	dets, err := d.Detect(j.ctx, j.frame)
	return detectReply{detections: dets, err: err}
}

// Detect hands frame to a free worker and waits for its result. Once a worker
// has accepted the frame Detect waits for it even if ctx is cancelled, so the
// caller can release the frame safely afterwards.
func (p *Pool) Detect(ctx context.Context, frame models.Frame) ([]models.Detection, error) {
	reply := make(chan detectReply, 1)
	select {
	case p.jobs <- detectJob{ctx: ctx, frame: frame, reply: reply}:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.quit:
		return nil, ErrPoolClosed
	}
	r := <-reply
	return r.detections, r.err
}

// Ready checks the first worker's detector.
func (p *Pool) Ready(ctx context.Context) error {
	select {
	case <-p.quit:
		return ErrPoolClosed
	default:
	}
	if len(p.detectors) == 0 {
		return errors.New("no detectors")
	}
	return p.detectors[0].Ready(ctx)
}

func (p *Pool) Size() int { return len(p.detectors) }

// Close stops the workers and releases every detector.
func (p *Pool) Close() error {
	var errs []error
	p.closeOnce.Do(func() {
		close(p.quit)
		p.wg.Wait()
		for _, d := range p.detectors {
			if err := d.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		p.logger.Info().Msg("Detector pool stopped")
	})
	return errors.Join(errs...)
}
