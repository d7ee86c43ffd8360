package frameprocessing

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intrusion-worker-go/internal/models"
)

type stubFrame struct{}

func (stubFrame) Cols() int    { return 1280 }
func (stubFrame) Rows() int    { return 720 }
func (stubFrame) Close() error { return nil }

type stubDetector struct {
	mu       sync.Mutex
	dets     []models.Detection
	err      error
	panicMsg string
	block    chan struct{}
	inFlight *atomic.Int32
	maxSeen  *atomic.Int32
	closed   bool
	readyErr error
}

func (s *stubDetector) Detect(context.Context, models.Frame) ([]models.Detection, error) {
	if s.inFlight != nil {
		n := s.inFlight.Add(1)
		defer s.inFlight.Add(-1)
		for {
			m := s.maxSeen.Load()
			if n <= m || s.maxSeen.CompareAndSwap(m, n) {
				break
			}
		}
	}
	if s.block != nil {
		<-s.block
	}
	if s.panicMsg != "" {
		panic(s.panicMsg)
	}
	return s.dets, s.err
}

func (s *stubDetector) Ready(context.Context) error { return s.readyErr }

func (s *stubDetector) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func TestPoolReturnsDetections(t *testing.T) {
	want := []models.Detection{{ClassID: 0, Label: "person", Confidence: 0.9}}
	p, err := NewPool(2, func() (Detector, error) { return &stubDetector{dets: want}, nil }, zerolog.Nop())
	require.NoError(t, err)
	defer p.Close()

	var observed atomic.Int32
	p.OnDetect(func(time.Duration, error) { observed.Add(1) })

	got, err := p.Detect(context.Background(), stubFrame{})

	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, 2, p.Size())
	assert.Equal(t, int32(1), observed.Load())
}

func TestPoolPropagatesErrorsAndPanics(t *testing.T) {
	p, err := NewPool(1, func() (Detector, error) { return &stubDetector{err: errors.New("model failed")}, nil }, zerolog.Nop())
	require.NoError(t, err)
	_, err = p.Detect(context.Background(), stubFrame{})
	assert.EqualError(t, err, "model failed")
	require.NoError(t, p.Close())

	p, err = NewPool(1, func() (Detector, error) { return &stubDetector{panicMsg: "bad tensor"}, nil }, zerolog.Nop())
	require.NoError(t, err)
	defer p.Close()
	_, err = p.Detect(context.Background(), stubFrame{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad tensor")

	_, err = p.Detect(context.Background(), stubFrame{})
	assert.Error(t, err, "worker survives a panic")
}

func TestPoolRunsWorkersConcurrently(t *testing.T) {
	block := make(chan struct{})
	var inFlight, maxSeen atomic.Int32
	p, err := NewPool(3, func() (Detector, error) {
		return &stubDetector{block: block, inFlight: &inFlight, maxSeen: &maxSeen}, nil
	}, zerolog.Nop())
	require.NoError(t, err)
	defer p.Close()

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = p.Detect(context.Background(), stubFrame{})
		}()
	}
	require.Eventually(t, func() bool { return inFlight.Load() == 3 }, time.Second, 5*time.Millisecond)
	close(block)
	wg.Wait()
	assert.Equal(t, int32(3), maxSeen.Load())
}

func TestPoolDetectWaitsForAcceptedJob(t *testing.T) {
	block := make(chan struct{})
	p, err := NewPool(1, func() (Detector, error) { return &stubDetector{block: block}, nil }, zerolog.Nop())
	require.NoError(t, err)
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_, _ = p.Detect(ctx, stubFrame{})
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case <-done:
		t.Fatal("Detect returned while the worker still held the frame")
	case <-time.After(20 * time.Millisecond):
	}
	close(block)
	<-done
}

func TestPoolDetectCancelledWhileQueued(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	p, err := NewPool(1, func() (Detector, error) { return &stubDetector{block: block}, nil }, zerolog.Nop())
	require.NoError(t, err)

	go func() { _, _ = p.Detect(context.Background(), stubFrame{}) }()
	time.Sleep(10 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = p.Detect(ctx, stubFrame{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPoolFactoryFailureClosesCreated(t *testing.T) {
	var created []*stubDetector
	n := 0
	_, err := NewPool(3, func() (Detector, error) {
		n++
		if n == 3 {
			return nil, errors.New("no model file")
		}
		d := &stubDetector{}
		created = append(created, d)
		return d, nil
	}, zerolog.Nop())

	require.Error(t, err)
	require.Len(t, created, 2)
	for _, d := range created {
		assert.True(t, d.closed)
	}
}

func TestPoolCloseAndReady(t *testing.T) {
	d := &stubDetector{readyErr: errors.New("not loaded")}
	p, err := NewPool(1, func() (Detector, error) { return d, nil }, zerolog.Nop())
	require.NoError(t, err)

	assert.EqualError(t, p.Ready(context.Background()), "not loaded")
	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.True(t, d.closed)

	_, err = p.Detect(context.Background(), stubFrame{})
	assert.ErrorIs(t, err, ErrPoolClosed)
	assert.ErrorIs(t, p.Ready(context.Background()), ErrPoolClosed)
}
