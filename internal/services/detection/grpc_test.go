package detection

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"intrusion-worker-go/internal/models"
)

type fakeFrame struct{}

func (fakeFrame) Cols() int    { return 1280 }
func (fakeFrame) Rows() int    { return 720 }
func (fakeFrame) Close() error { return nil }

type fakeEncoder struct {
	payload []byte
	err     error
	quality int
}

func (e *fakeEncoder) EncodeJPEG(_ models.Frame, quality int) ([]byte, error) {
	e.quality = quality
	return e.payload, e.err
}

type detectServer struct {
	received []byte
	reply    map[string]any
	fail     bool
}

func (s *detectServer) handle(_ any, stream grpc.ServerStream) error {
	method, _ := grpc.MethodFromServerStream(stream)
	if method != DetectMethod {
		return status.Errorf(codes.Unimplemented, "unknown method %s", method)
	}
	in := &wrapperspb.BytesValue{}
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	s.received = in.GetValue()
	if s.fail {
		return status.Error(codes.Unavailable, "model warming up")
	}
	out, err := structpb.NewStruct(s.reply)
	if err != nil {
		return err
	}
	return stream.SendMsg(out)
}

func startServer(t *testing.T, srv *detectServer, serving healthpb.HealthCheckResponse_ServingStatus) *bufconn.Listener {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer(grpc.UnknownServiceHandler(srv.handle))
	hs := health.NewServer()
	hs.SetServingStatus(HealthService, serving)
	healthpb.RegisterHealthServer(s, hs)
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)
	return lis
}

func newTestDetector(t *testing.T, lis *bufconn.Listener, enc Encoder) *GRPCDetector {
	t.Helper()
	d, err := NewGRPCDetector(
		GRPCConfig{Endpoint: "passthrough:///bufnet", Timeout: 2 * time.Second, JPEGQuality: 80},
		enc,
		zerolog.Nop(),
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d
}

func TestGRPCDetect(t *testing.T) {
	srv := &detectServer{reply: map[string]any{
		"detections": []any{
			map[string]any{"class_id": 0, "label": "person", "confidence": 0.91, "bbox": []any{10, 20, 110, 220}},
			map[string]any{"class_id": 2, "class": "car", "confidence": 0.7, "bbox": []any{0, 0, 5, 5}},
		},
	}}
	lis := startServer(t, srv, healthpb.HealthCheckResponse_SERVING)
	enc := &fakeEncoder{payload: []byte("jpeg-bytes")}
	d := newTestDetector(t, lis, enc)

	dets, err := d.Detect(context.Background(), fakeFrame{})

	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg-bytes"), srv.received)
	assert.Equal(t, 80, enc.quality)
	require.Len(t, dets, 2)
	assert.Equal(t, models.Detection{ClassID: 0, Label: "person", Confidence: 0.91, BBox: models.BBox{X1: 10, Y1: 20, X2: 110, Y2: 220}}, dets[0])
	assert.Equal(t, "car", dets[1].Label)
	assert.NoError(t, d.Ready(context.Background()))
}

func TestGRPCBackoffAfterFailure(t *testing.T) {
	srv := &detectServer{fail: true}
	lis := startServer(t, srv, healthpb.HealthCheckResponse_NOT_SERVING)
	d := newTestDetector(t, lis, &fakeEncoder{payload: []byte("x")})
	now := time.Unix(1000, 0)
	d.now = func() time.Time { return now }

	_, err := d.Detect(context.Background(), fakeFrame{})
	require.Error(t, err)
	assert.Equal(t, codes.Unavailable, status.Code(errors.Unwrap(err)))

	_, err = d.Detect(context.Background(), fakeFrame{})
	assert.ErrorIs(t, err, ErrBackoff)

	now = now.Add(time.Second)
	srv.fail = false
	srv.reply = map[string]any{"detections": []any{}}
	dets, err := d.Detect(context.Background(), fakeFrame{})
	require.NoError(t, err)
	assert.Empty(t, dets)

	assert.Error(t, d.Ready(context.Background()), "NOT_SERVING is not ready")
}

func TestGRPCEncodeFailure(t *testing.T) {
	lis := startServer(t, &detectServer{}, healthpb.HealthCheckResponse_SERVING)
	d := newTestDetector(t, lis, &fakeEncoder{err: errors.New("empty mat")})

	_, err := d.Detect(context.Background(), fakeFrame{})

	assert.ErrorContains(t, err, "empty mat")
}

func TestGRPCRejectsMalformedBoxes(t *testing.T) {
	srv := &detectServer{reply: map[string]any{
		"detections": []any{map[string]any{"class_id": 0, "confidence": 0.9, "bbox": []any{1, 2}}},
	}}
	lis := startServer(t, srv, healthpb.HealthCheckResponse_SERVING)
	d := newTestDetector(t, lis, &fakeEncoder{payload: []byte("x")})

	_, err := d.Detect(context.Background(), fakeFrame{})

	assert.ErrorContains(t, err, "bbox has 2 values")
}

func TestParseEndpoint(t *testing.T) {
	tests := []struct {
		in      string
		host    string
		tls     bool
		wantErr bool
	}{
		{"localhost:50052", "localhost:50052", false, false},
		{"ai.example.com", "ai.example.com:443", true, false},
		{"ai.example.com:443", "ai.example.com:443", true, false},
		{"https://ai.example.com", "ai.example.com:443", true, false},
		{"http://10.0.0.5", "10.0.0.5:80", false, false},
		{"ftp://files.example.com", "", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			host, creds, err := ParseEndpoint(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.host, host)
			assert.Equal(t, tt.tls, creds.Info().SecurityProtocol == "tls")
		})
	}
}
