package logging

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/logdyhq/logdy-core/logdy"
	"github.com/rs/zerolog/log"

	"intrusion-worker-go/internal/config"
)

// lineWriter forwards each complete log line to emit.
type lineWriter struct {
	emit func(string)
}

func (w *lineWriter) Write(p []byte) (int, error) {
	for _, line := range bytes.Split(p, []byte{'\n'}) {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		w.emit(string(line))
	}
	return len(p), nil
}

// StartLogdy serves the Logdy web UI and returns a writer that feeds it,
// plus the UI address. Session and frame logs show up there live.
func StartLogdy(cfg *config.Config) (io.Writer, string, error) {
	if cfg.LogdyPort <= 0 || cfg.LogdyPort > 65535 {
		return nil, "", errors.New("invalid logdy port " + strconv.Itoa(cfg.LogdyPort))
	}
	portStr := strconv.Itoa(cfg.LogdyPort)
	ld := logdy.InitializeLogdy(logdy.Config{
		ServerIp:   cfg.LogdyHost,
		ServerPort: portStr,
	}, nil)

	url := fmt.Sprintf("http://%s:%s", cfg.LogdyHost, portStr)
	log.Info().Str("url", url).Str("worker_id", cfg.WorkerID).Msg("Logdy UI available")
	return &lineWriter{emit: func(s string) { ld.LogString(s) }}, url, nil
}
