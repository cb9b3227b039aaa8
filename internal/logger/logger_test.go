package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	Init(false, &buf)
	defer Init(false, nil)

	WithFields(logrus.Fields{"ip": "8.8.8.8"}).Info("access denied")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "8.8.8.8", line["ip"])
	assert.Equal(t, "access denied", line["msg"])
}

func TestInit_DebugLevel(t *testing.T) {
	var buf bytes.Buffer
	Init(true, &buf)
	defer Init(false, nil)

	Log().Debug("cache miss")
	assert.Contains(t, buf.String(), "cache miss")
}

func TestRotatingWriter_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	w := RotatingWriter(dir, "geogate.log")
	require.NotNil(t, w)

	_, err := w.Write([]byte("hello\n"))
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "geogate.log"))
	assert.NoError(t, err)
}
