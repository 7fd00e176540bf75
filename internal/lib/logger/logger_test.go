package logger_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/linemk/tm-watch/internal/lib/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Prod(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.EnvProd, &buf)

	log.Debug("hidden")
	assert.Empty(t, buf.String(), "debug must be filtered in prod")

	log.Info("order placed")
	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "order placed", rec["msg"])
	assert.Equal(t, "tm-watch", rec["service"])
	assert.Equal(t, "prod", rec["env"])
}

func TestNew_Dev(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.EnvDev, &buf)

	log.Debug("visible")
	assert.Contains(t, buf.String(), `"level":"DEBUG"`)
}

func TestNew_Local(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.EnvLocal, &buf)

	log.Debug("pretty")
	assert.Contains(t, buf.String(), "pretty")
}
