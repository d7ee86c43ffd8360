package streamcapture

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrNoFileSelected is returned when the user closes the picker without choosing.
var ErrNoFileSelected = errors.New("no file selected")

// FilePicker asks the operator for a video file on the worker host.
type FilePicker interface {
	Pick(ctx context.Context) (string, error)
}

// CommandPicker runs a zenity compatible file dialog.
type CommandPicker struct {
	Command string
	// run is swapped in tests
	run func(ctx context.Context, name string, args ...string) ([]byte, error)
}

func NewCommandPicker(command string) *CommandPicker {
	return &CommandPicker{Command: command, run: runCommand}
}

func (p *CommandPicker) Pick(ctx context.Context) (string, error) {
	out, err := p.run(ctx, p.Command,
		"--file-selection",
		"--title=Select a Video File",
		"--file-filter=Videos | *.mp4 *.avi *.mov *.mkv *.flv *.webm",
	)
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", ErrNoFileSelected
		}
		return "", fmt.Errorf("file picker %s: %w", p.Command, err)
	}
	path := strings.TrimSpace(string(out))
	if path == "" {
		return "", ErrNoFileSelected
	}
	return path, nil
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}
