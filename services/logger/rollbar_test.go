package logsvc

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/trezcool/peereval/core"
	"github.com/trezcool/peereval/core/user"
)

func TestRollbarLogger_prepare(t *testing.T) {
	l := NewNopLogger()
	usr := user.User{ID: "u1", Name: "김철수", Email: "kim@x.io"}
	err := errors.New("boom")

	rbArgs, fields := l.prepare("oops", []interface{}{err, usr, map[string]interface{}{"session_id": 3}, usr})

	assert.Equal(t, []interface{}{"oops", err, map[string]interface{}{"session_id": 3}}, rbArgs)
	require.Len(t, fields, 3)
	assert.Equal(t, "error", fields[0].Key)
	assert.Equal(t, "user_id", fields[1].Key)
	assert.Equal(t, "session_id", fields[2].Key)
}

func TestRollbarLogger_logsLocally(t *testing.T) {
	obsCore, logs := observer.New(zapcore.DebugLevel)
	l := &RollbarLogger{zl: zap.New(obsCore)}
	l.Enable(false)

	l.Warn("publishing review.submitted event", errors.New("redis down"))
	l.Debug("hello")

	entries := logs.AllUntimed()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "redis down", entries[0].ContextMap()["error"])
	assert.Equal(t, "hello", entries[1].Message)
}

func TestNewZap(t *testing.T) {
	_, err := NewZap(&core.Config{AppName: "peereval", LogLevel: "debug"})
	require.NoError(t, err)

	_, err = NewZap(&core.Config{LogLevel: "loud"})
	assert.Error(t, err)
}
