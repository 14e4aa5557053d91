package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cartera-salud/glosas/internal/glosas"
)

func TestRootRegistersCommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"range", "check", "export", "warmup"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err)
		require.Equal(t, name, cmd.Name())
	}
}

func TestWindowFlags(t *testing.T) {
	opts := &rootOptions{}
	w, err := opts.window()
	require.NoError(t, err)
	require.True(t, w.IsZero())

	opts.from, opts.to = "2024-01-01", "2024-01-31"
	w, err = opts.window()
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), w.From)

	opts.to = ""
	_, err = opts.window()
	require.ErrorIs(t, err, glosas.ErrValidation)
}
