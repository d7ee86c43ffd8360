package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	// Application
	Version     string
	Environment string
	WorkerID    string
	Port        int
	LogLevel    string
	LogFormat   string // console or json

	// Logdy (lightweight web log viewer)
	LogdyEnabled bool
	LogdyHost    string
	LogdyPort    int

	// HTTP / WebSocket
	AllowedOrigins []string
	WSWriteTimeout time.Duration
	WSReadLimit    int64

	// Frame geometry and encoding
	FrameWidth          int
	FrameHeight         int
	StreamJPEGQuality   int
	SnapshotJPEGQuality int

	// Stream pacing
	TargetFPS          int
	MinFrameDelay      time.Duration // floor for the adaptive delay
	PacingPollInterval time.Duration // sleep when a frame arrives early

	// Source acquisition
	SourceMaxAttempts   int
	SourceRetryInterval time.Duration
	CameraWarmup        time.Duration
	SnapshotWarmup      time.Duration
	SnapshotReadTries   int
	FilePickerCommand   string

	// Session
	ZoneRequestTimeout time.Duration

	// Detection
	// DetectorBackend selects dnn (local ONNX), grpc, http or none
	DetectorBackend string
	AIGRPCURL       string
	AIHTTPURL       string
	AIModelPath     string
	AITimeout       time.Duration
	DetectorWorkers int
	PersonClassID   int
	MinConfidence   float64
	NMSThreshold    float64

	// NATS (for intrusion alerts)
	// Default: nats://localhost:4222 (works with Docker Compose setup)
	// Docker: Use nats://nats:4222 if running worker in Docker
	NatsEnabled        bool
	NatsURL            string
	NatsConnectTimeout time.Duration
	NatsReconnectWait  time.Duration
	NatsMaxReconnects  int
	NatsDrainTimeout   time.Duration // For graceful shutdown

	// Alerting via NATS
	AlertsSubject  string
	AlertsCooldown time.Duration

	// Metrics
	MetricsEnabled bool

	// Swagger Configuration
	SwaggerHost string

	// Graceful Shutdown
	ShutdownTimeout time.Duration
}

func Load() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("No .env file found or error loading .env file, using environment variables and defaults")
	} else {
		log.Info().Msg("Loaded configuration from .env file")
	}

	return &Config{
		// Application
		Version:     getEnv("VERSION", "1.0.0"),
		Environment: getEnv("ENVIRONMENT", "development"),
		WorkerID:    getEnv("WORKER_ID", "intrusion-1"),
		Port:        getEnvInt("PORT", 8000),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "console"),

		// Logdy
		LogdyEnabled: getEnvBool("LOGDY_ENABLED", false),
		LogdyHost:    getEnv("LOGDY_HOST", "localhost"),
		LogdyPort:    getEnvInt("LOGDY_PORT", 8080),

		// HTTP / WebSocket
		AllowedOrigins: getEnvList("ALLOWED_ORIGINS", []string{
			"http://localhost:3000",
			"http://localhost:5173",
			"http://localhost:5174",
			"http://127.0.0.1:5173",
			"http://127.0.0.1:5174",
		}),
		WSWriteTimeout: getEnvDuration("WS_WRITE_TIMEOUT", 10*time.Second),
		WSReadLimit:    int64(getEnvInt("WS_READ_LIMIT", 1<<20)),

		// Frame geometry and encoding
		FrameWidth:          getEnvInt("FRAME_WIDTH", 1280),
		FrameHeight:         getEnvInt("FRAME_HEIGHT", 720),
		StreamJPEGQuality:   getEnvInt("STREAM_JPEG_QUALITY", 85),
		SnapshotJPEGQuality: getEnvInt("SNAPSHOT_JPEG_QUALITY", 95),

		// Stream pacing
		TargetFPS:          getEnvInt("TARGET_FPS", 30),
		MinFrameDelay:      getEnvDuration("MIN_FRAME_DELAY", 10*time.Millisecond),
		PacingPollInterval: getEnvDuration("PACING_POLL_INTERVAL", 10*time.Millisecond),

		// Source acquisition
		SourceMaxAttempts:   getEnvInt("SOURCE_MAX_ATTEMPTS", 3),
		SourceRetryInterval: getEnvDuration("SOURCE_RETRY_INTERVAL", 1*time.Second),
		CameraWarmup:        getEnvDuration("CAMERA_WARMUP", 2*time.Second),
		SnapshotWarmup:      getEnvDuration("SNAPSHOT_WARMUP", 1*time.Second),
		SnapshotReadTries:   getEnvInt("SNAPSHOT_READ_TRIES", 3),
		FilePickerCommand:   getEnv("FILE_PICKER_COMMAND", "zenity"),

		// Session
		ZoneRequestTimeout: getEnvDuration("ZONE_REQUEST_TIMEOUT", 30*time.Second),

		// Detection
		DetectorBackend: getEnv("DETECTOR_BACKEND", "dnn"),
		AIGRPCURL:       getEnv("AI_GRPC_URL", "localhost:50052"),
		AIHTTPURL:       getEnv("AI_HTTP_URL", "http://localhost:8001"),
		AIModelPath:     getEnv("AI_MODEL_PATH", "yolo11n.onnx"),
		AITimeout:       getEnvDuration("AI_TIMEOUT", 5*time.Second),
		DetectorWorkers: getEnvInt("DETECTOR_WORKERS", 2),
		PersonClassID:   getEnvInt("PERSON_CLASS_ID", 0),
		MinConfidence:   getEnvFloat("MIN_CONFIDENCE", 0.5),
		NMSThreshold:    getEnvFloat("NMS_THRESHOLD", 0.45),

		// NATS (configured for Docker Compose setup)
		NatsEnabled:        getEnvBool("NATS_ENABLED", false),
		NatsURL:            getNatsURL(),
		NatsConnectTimeout: getEnvDuration("NATS_CONNECT_TIMEOUT", 10*time.Second),
		NatsReconnectWait:  getEnvDuration("NATS_RECONNECT_WAIT", 2*time.Second),
		NatsMaxReconnects:  getEnvInt("NATS_MAX_RECONNECTS", -1), // -1 = unlimited
		NatsDrainTimeout:   getEnvDuration("NATS_DRAIN_TIMEOUT", 5*time.Second),

		// Alerting via NATS
		AlertsSubject:  getEnv("ALERTS_SUBJECT", "alerts.intrusion"),
		AlertsCooldown: getEnvDuration("ALERTS_COOLDOWN", 10*time.Second),

		// Metrics
		MetricsEnabled: getEnvBool("METRICS_ENABLED", true),

		// Swagger
		SwaggerHost: getEnv("SWAGGER_HOST", "localhost:8000"),

		// Graceful Shutdown
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
	}
}

// FrameInterval is the minimum spacing between processed frames.
func (c *Config) FrameInterval() time.Duration {
	if c.TargetFPS <= 0 {
		return 0
	}
	return time.Second / time.Duration(c.TargetFPS)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated value, skipping blanks
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func isRunningInDocker() bool {
	if os.Getenv("DOCKER_CONTAINER") == "true" {
		return true
	}
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}
	return false
}

// getNatsURL returns the appropriate NATS URL based on environment
func getNatsURL() string {
	if envURL := os.Getenv("NATS_URL"); envURL != "" {
		return envURL
	}
	if isRunningInDocker() {
		return "nats://nats:4222"
	}
	return "nats://localhost:4222"
}
