package webhook_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicworks/notifyhub/pkg/webhook"
)

func TestSignature(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	payload := []byte(`{"recipient_id":"fan-1"}`)

	sig, err := webhook.SignPayload("s3cret", payload, now)
	require.NoError(t, err)
	assert.Equal(t, now.Unix(), sig.Timestamp)
	assert.Len(t, sig.Value, 64)

	t.Run("round trip through headers", func(t *testing.T) {
		t.Parallel()

		h := http.Header{}
		sig.Apply(h)
		parsed, err := webhook.ParseSignature(h)
		require.NoError(t, err)
		assert.Equal(t, sig, parsed)
		assert.NoError(t, webhook.VerifySignature("s3cret", payload, parsed, 5*time.Minute, now.Add(time.Minute)))
	})

	t.Run("wrong secret", func(t *testing.T) {
		t.Parallel()
		assert.ErrorIs(t, webhook.VerifySignature("other", payload, sig, 0, now), webhook.ErrSignatureMismatch)
	})

	t.Run("tampered payload", func(t *testing.T) {
		t.Parallel()
		assert.ErrorIs(t, webhook.VerifySignature("s3cret", []byte(`{}`), sig, 0, now), webhook.ErrSignatureMismatch)
	})

	t.Run("stale and future", func(t *testing.T) {
		t.Parallel()
		assert.ErrorIs(t, webhook.VerifySignature("s3cret", payload, sig, time.Minute, now.Add(time.Hour)), webhook.ErrSignatureMismatch)
		assert.ErrorIs(t, webhook.VerifySignature("s3cret", payload, sig, time.Minute, now.Add(-time.Hour)), webhook.ErrSignatureMismatch)
	})

	t.Run("bad input", func(t *testing.T) {
		t.Parallel()

		_, err := webhook.SignPayload("", payload, now)
		assert.ErrorIs(t, err, webhook.ErrInvalidConfig)
		_, err = webhook.SignPayload("s3cret", nil, now)
		assert.ErrorIs(t, err, webhook.ErrInvalidPayload)
		_, err = webhook.ParseSignature(http.Header{})
		assert.ErrorIs(t, err, webhook.ErrInvalidConfig)

		h := http.Header{}
		h.Set(webhook.HeaderSignature, "abc")
		h.Set(webhook.HeaderTimestamp, "yesterday")
		_, err = webhook.ParseSignature(h)
		assert.ErrorIs(t, err, webhook.ErrInvalidConfig)
	})
}
