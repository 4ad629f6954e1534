package botmgr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommand(t *testing.T) {
	cmd, err := ParseCommand("chat", map[string]any{"message": "hi"})
	require.NoError(t, err)
	assert.Equal(t, ChatCommand{Message: "hi"}, cmd)

	cmd, err = ParseCommand("move", map[string]any{"x": 1.0, "y": 64.0, "z": 2.0})
	require.NoError(t, err)
	assert.Equal(t, MoveCommand{X: 1, Y: 64, Z: 2}, cmd)

	// moveTo 是 move 的别名
	cmd, err = ParseCommand("moveTo", map[string]any{"x": 1, "y": 64, "z": 2})
	require.NoError(t, err)
	assert.Equal(t, MoveCommand{X: 1, Y: 64, Z: 2}, cmd)

	cmd, err = ParseCommand("place", map[string]any{"x": 0, "y": 0, "z": 0, "blockName": "dirt"})
	require.NoError(t, err)
	assert.Equal(t, PlaceCommand{BlockName: "dirt"}, cmd)

	cmd, err = ParseCommand("recall", nil)
	require.NoError(t, err)
	assert.Equal(t, RecallCommand{}, cmd)
}

func TestParseCommandRejectsMissingArgs(t *testing.T) {
	cases := []struct {
		name string
		args map[string]any
	}{
		{"chat", nil},
		{"chat", map[string]any{"message": ""}},
		{"move", map[string]any{"x": 1, "y": 2}},
		{"move", map[string]any{"x": "east", "y": 2, "z": 3}},
		{"place", map[string]any{"x": 0, "y": 0, "z": 0}},
		{"placeHere", nil},
		{"placeBelow", map[string]any{"blockName": ""}},
		{"remember", map[string]any{"key": "k"}},
		{"look", nil},
	}
	for _, tc := range cases {
		_, err := ParseCommand(tc.name, tc.args)
		assert.Error(t, err, "command %s with %v should be rejected", tc.name, tc.args)
	}
}

func TestParseCommandUnknownName(t *testing.T) {
	_, err := ParseCommand("fly", nil)
	assert.ErrorContains(t, err, "unknown command: fly")
}

func TestParseCommandNoArgVariants(t *testing.T) {
	for _, name := range []string{"attack", "digHere", "digBelow", "inventory", "status", "observe"} {
		cmd, err := ParseCommand(name, nil)
		require.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
	}
}
