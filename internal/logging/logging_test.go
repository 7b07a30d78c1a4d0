// internal/logging/logging_test.go
package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/javajoker/storefront-backend/internal/config"
)

func TestSetupLevelAndFormatter(t *testing.T) {
	defer logrus.SetOutput(os.Stderr)

	Setup("production", config.LoggingConfig{Level: "warn"})
	assert.Equal(t, logrus.WarnLevel, logrus.GetLevel())
	_, isJSON := logrus.StandardLogger().Formatter.(*logrus.JSONFormatter)
	assert.True(t, isJSON)

	Setup("development", config.LoggingConfig{Level: "nonsense"})
	assert.Equal(t, logrus.InfoLevel, logrus.GetLevel())
}

func TestOutputWritesRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	w := Output(config.LoggingConfig{File: path, MaxSizeMB: 1})

	_, err := w.Write([]byte("hello\n"))
	assert.NoError(t, err)

	data, err := os.ReadFile(path)
	assert.NoError(t, err)
	assert.Equal(t, "hello\n", string(data))
}
