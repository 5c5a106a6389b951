package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("invalid level", func(t *testing.T) {
		_, err := New("", "verbose", FormatJSON)
		require.Error(t, err)
	})

	t.Run("writes to file", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "logs", "app.log")

		l, err := New(file, "info", FormatJSON)
		require.NoError(t, err)

		l.Info("booking %d assigned", 42)
		l.Debug("hidden")
		_ = l.Close()

		data, err := os.ReadFile(file)
		require.NoError(t, err)
		assert.Contains(t, string(data), "booking 42 assigned")
		assert.NotContains(t, string(data), "hidden")
	})

	t.Run("nop", func(t *testing.T) {
		l := NewNop()
		l.Warn("nothing %s", "here")
		assert.NoError(t, l.Close())
	})
}
