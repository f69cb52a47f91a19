package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{"", zapcore.InfoLevel, false},
		{"debug", zapcore.DebugLevel, false},
		{"INFO", zapcore.InfoLevel, false},
		{"warning", zapcore.WarnLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"loud", zapcore.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuild_RejectsUnknownFormat(t *testing.T) {
	_, err := Build("info", "xml")
	assert.Error(t, err)
}

func TestBuild_Formats(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		l, err := Build("debug", format)
		require.NoError(t, err, format)
		assert.True(t, l.Core().Enabled(zapcore.DebugLevel), format)
	}
}

func TestGet_NamesCategoryLoggers(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	SetRoot(zap.New(core))
	t.Cleanup(func() { SetRoot(nil) })

	Get(CategorySync).Info("hello")
	Get(CategoryTactile).Debug("running")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "sync", entries[0].LoggerName)
	assert.Equal(t, "tactile", entries[1].LoggerName)
}

func TestGet_CachesUntilRootChanges(t *testing.T) {
	t.Cleanup(func() { SetRoot(nil) })

	first := Get(CategoryBoot)
	assert.Same(t, first, Get(CategoryBoot))

	SetRoot(zap.NewExample())
	assert.NotSame(t, first, Get(CategoryBoot))
}
