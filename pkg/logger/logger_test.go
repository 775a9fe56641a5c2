package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicworks/notifyhub/pkg/environment"
	"github.com/civicworks/notifyhub/pkg/logger"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	return rec
}

func TestNew_Defaults(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(logger.WithOutput(&buf))

	log.Debug("hidden")
	assert.Zero(t, buf.Len())

	log.LogAttrs(context.Background(), slog.LevelInfo, "delivery sent",
		logger.RecipientID("u1"),
		logger.FlowID("f1"),
		logger.Channel("email"),
		logger.Status("sent"),
		logger.Duration(1500*time.Millisecond),
	)
	rec := decode(t, &buf)
	assert.Equal(t, "delivery sent", rec["msg"])
	assert.Equal(t, "u1", rec["recipient_id"])
	assert.Equal(t, "f1", rec["flow_id"])
	assert.Equal(t, "email", rec["channel"])
	assert.Equal(t, "sent", rec["status"])
	assert.EqualValues(t, 1.5e9, rec["duration"])
}

func TestNew_Environment(t *testing.T) {
	t.Parallel()

	t.Run("production is json at info", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := logger.New(logger.WithOutput(&buf), logger.WithEnvironment(environment.Production, "notify-worker"))
		log.Debug("hidden")
		assert.Zero(t, buf.Len())

		log.Info("up")
		rec := decode(t, &buf)
		assert.Equal(t, "notify-worker", rec["service"])
		assert.Equal(t, "production", rec["env"])
	})

	t.Run("development is text at debug", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := logger.New(logger.WithOutput(&buf), logger.WithEnvironment(environment.Development, "svc"))
		log.Debug("visible")
		assert.Contains(t, buf.String(), "msg=visible")
		assert.Contains(t, buf.String(), "env=development")
	})
}

func TestContextExtractors(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(
		logger.WithOutput(&buf),
		logger.WithContextExtractors(nil, environment.LoggerExtractor()),
	).With(logger.Component("queue.worker"))

	ctx := environment.WithContext(context.Background(), environment.Staging)
	log.InfoContext(ctx, "claimed")

	rec := decode(t, &buf)
	assert.Equal(t, "staging", rec["env"])
	assert.Equal(t, "queue.worker", rec["component"])
}

func TestAttrs(t *testing.T) {
	t.Parallel()

	assert.True(t, logger.Error(nil).Equal(slog.Attr{}))
	assert.Equal(t, "error", logger.Error(errors.New("x")).Key)
	assert.True(t, logger.TaskID(nil).Equal(slog.Attr{}))
	assert.Equal(t, "task_id", logger.TaskID("t1").Key)
	assert.Equal(t, int64(2), logger.RetryCount(2).Value.Int64())
	assert.Equal(t, "song_uploaded", logger.EventType("song_uploaded").Value.String())
}
