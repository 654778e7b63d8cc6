package logger_test

import (
	"os"
	"path/filepath"
	"testing"

	"taskprogress/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_WritesToFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "app.log")

	l, err := logger.New("info", file)
	require.NoError(t, err)

	l.Infow("task created", "task_id", 42)
	_ = l.Sync()

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"task created"`)
	assert.Contains(t, string(data), `"task_id":42`)
}

func TestNew_InvalidLevel(t *testing.T) {
	_, err := logger.New("loud", "")
	assert.Error(t, err)
}

func TestGorm_ReturnsLogger(t *testing.T) {
	l, err := logger.New("debug", "")
	require.NoError(t, err)

	assert.NotNil(t, logger.Gorm(l))
}
