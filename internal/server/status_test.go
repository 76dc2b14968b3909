package server

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardroom/dealerd/internal/game"
)

func TestStatusFileLifecycle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "status")
	sf := NewStatusFile(path)

	require.NoError(t, sf.Running())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "RUNNING\n", string(data))

	require.NoError(t, sf.Done(map[game.PlayerID]int{2: -30, 1: 30}))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "DONE 1:30 2:-30\n", string(data))
}
