package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gocoherence/internal/acquisition"
)

func TestApplyCommand(t *testing.T) {
	control := acquisition.NewController(acquisition.ModeContinuous)
	control.Register("A")

	stop, err := applyCommand(control, "  ")
	require.NoError(t, err)
	assert.False(t, stop)

	_, err = applyCommand(control, "trigger 2")
	assert.Error(t, err, "continuous mode rejects triggers")

	_, err = applyCommand(control, "mode user_initiated")
	require.NoError(t, err)
	_, err = applyCommand(control, "trigger 2")
	require.NoError(t, err)
	_, err = applyCommand(control, "trigger")
	require.NoError(t, err)
	assert.Equal(t, 3, control.State().Pending["A"])

	_, err = applyCommand(control, "trigger many")
	assert.Error(t, err)
	_, err = applyCommand(control, "mode")
	assert.Error(t, err)
	_, err = applyCommand(control, "dance")
	assert.Error(t, err)

	stop, err = applyCommand(control, "stop")
	require.NoError(t, err)
	assert.True(t, stop)
	assert.True(t, control.State().Stopped)
}
