package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlainFormatter(t *testing.T) {
	f := PlainFormatter{TimestampFormat: TimestampFormat}
	entry := &logrus.Entry{
		Level:   logrus.InfoLevel,
		Time:    time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC),
		Message: "no improving move, stopping",
		Data:    logrus.Fields{"round": 3, "variance": 0.5},
	}
	out, err := f.Format(entry)
	require.NoError(t, err)
	assert.Equal(t, "INFO  2024-03-01 12:30:00 no improving move, stopping round=3 variance=0.5\n", string(out))
}

func TestNewFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mvp.log")
	l, closer, err := New("debug", path)
	require.NoError(t, err)

	l.Debug("round complete")
	l.Trace("hidden")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "DEBUG "))
	assert.Contains(t, string(data), "round complete")
	assert.NotContains(t, string(data), "hidden")
}

func TestNewBadLevel(t *testing.T) {
	_, _, err := New("loud", "")
	assert.Error(t, err)
}
