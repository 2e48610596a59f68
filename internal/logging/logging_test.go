package logging

import (
	"os"
	"path/filepath"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geomap/internal/config"
)

func TestSetupFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "geomap.log")
	closer, err := Setup(config.LogConfig{Level: "debug", Format: "json", File: path})
	require.NoError(t, err)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	log.WithField("tile", "1/0/0").Debug("built")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"tile":"1/0/0"`)
	assert.Equal(t, log.DebugLevel, log.GetLevel())
}

func TestSetupErrors(t *testing.T) {
	_, err := Setup(config.LogConfig{Level: "loud"})
	assert.Error(t, err)
	_, err = Setup(config.LogConfig{Format: "xml"})
	assert.Error(t, err)
	_, err = Setup(config.LogConfig{File: filepath.Join(t.TempDir(), "missing", "x.log")})
	assert.Error(t, err)
	log.SetLevel(log.InfoLevel)
	log.SetFormatter(&log.TextFormatter{})
}
