package streamcapture

import (
	"context"
	"errors"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandPicker(t *testing.T) {
	var gotName string
	var gotArgs []string
	p := &CommandPicker{Command: "zenity", run: func(_ context.Context, name string, args ...string) ([]byte, error) {
		gotName, gotArgs = name, args
		return []byte("/home/me/video.mp4\n"), nil
	}}

	path, err := p.Pick(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "/home/me/video.mp4", path)
	assert.Equal(t, "zenity", gotName)
	assert.Contains(t, gotArgs, "--file-selection")
}

func TestCommandPickerCancelled(t *testing.T) {
	p := &CommandPicker{Command: "zenity", run: func(context.Context, string, ...string) ([]byte, error) {
		return nil, &exec.ExitError{}
	}}

	_, err := p.Pick(context.Background())

	assert.ErrorIs(t, err, ErrNoFileSelected)
}

func TestCommandPickerEmptyOutput(t *testing.T) {
	p := &CommandPicker{Command: "zenity", run: func(context.Context, string, ...string) ([]byte, error) {
		return []byte("  \n"), nil
	}}

	_, err := p.Pick(context.Background())

	assert.ErrorIs(t, err, ErrNoFileSelected)
}

func TestCommandPickerMissingBinary(t *testing.T) {
	p := &CommandPicker{Command: "zenity", run: func(context.Context, string, ...string) ([]byte, error) {
		return nil, exec.ErrNotFound
	}}

	_, err := p.Pick(context.Background())

	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNoFileSelected))
	assert.ErrorIs(t, err, exec.ErrNotFound)
}
