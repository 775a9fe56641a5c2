package pgstore_test

import (
	"context"
	"database/sql/driver"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicworks/notifyhub/pkg/notify"
	"github.com/civicworks/notifyhub/pkg/pgstore"
)

var now = time.Date(2026, 5, 2, 18, 30, 0, 0, time.UTC)

// sliceConverter lets string slices through to the mock, as pgx does for ANY($n).
type sliceConverter struct{}

func (sliceConverter) ConvertValue(v any) (driver.Value, error) {
	if s, ok := v.([]string); ok {
		return s, nil
	}
	return driver.DefaultParameterConverter.ConvertValue(v)
}

func newMock(t *testing.T) (*pgstore.Store, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.ValueConverterOption(sliceConverter{}))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return pgstore.New(db, pgstore.WithClock(func() time.Time { return now })), mock
}

var flowCols = []string{"id", "event_type", "recipient_class", "channel", "template_id", "priority", "delay_minutes", "condition", "is_active"}

func TestStore_ListFlows(t *testing.T) {
	t.Parallel()

	store, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, event_type")).
		WithArgs("song_uploaded", "fan").
		WillReturnRows(sqlmock.NewRows(flowCols).
			AddRow("push-fans", "song_uploaded", "fan", "push", "new_song", 10, 0, []byte(`{"genre":"jazz","plays":3}`), true).
			AddRow("email-fans", "song_uploaded", "fan", "email", "new_song_email", 5, 30, nil, true))

	flows, err := store.ListFlows(context.Background(), "song_uploaded", notify.ClassFan)
	require.NoError(t, err)
	require.Len(t, flows, 2)

	assert.Equal(t, notify.ChannelPush, flows[0].Channel)
	assert.Equal(t, "jazz", flows[0].Condition["genre"])
	assert.Equal(t, float64(3), flows[0].Condition["plays"])
	assert.Equal(t, 30, flows[1].DelayMinutes)
	assert.Nil(t, flows[1].Condition)
}

func TestStore_GetFlow(t *testing.T) {
	t.Parallel()

	t.Run("found", func(t *testing.T) {
		t.Parallel()

		store, mock := newMock(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM flows WHERE id = $1")).
			WithArgs("reminder").
			WillReturnRows(sqlmock.NewRows(flowCols).
				AddRow("reminder", "ticket_purchased", "fan", "email", "reminder_tpl", 0, 60, nil, false))

		f, err := store.GetFlow(context.Background(), "reminder")
		require.NoError(t, err)
		assert.Equal(t, notify.ClassFan, f.RecipientClass)
		assert.False(t, f.IsActive)
	})

	t.Run("missing", func(t *testing.T) {
		t.Parallel()

		store, mock := newMock(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM flows WHERE id = $1")).
			WithArgs("nope").
			WillReturnRows(sqlmock.NewRows(flowCols))

		_, err := store.GetFlow(context.Background(), "nope")
		assert.ErrorIs(t, err, notify.ErrFlowNotFound)
	})

	t.Run("bad condition", func(t *testing.T) {
		t.Parallel()

		store, mock := newMock(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM flows WHERE id = $1")).
			WithArgs("broken").
			WillReturnRows(sqlmock.NewRows(flowCols).
				AddRow("broken", "x", "fan", "email", "t", 0, 0, []byte(`{`), true))

		_, err := store.GetFlow(context.Background(), "broken")
		assert.ErrorIs(t, err, pgstore.ErrDecode)
	})
}

func TestStore_ApplyCatalog(t *testing.T) {
	t.Parallel()

	store, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO flows")).
		WithArgs("welcome", "song_uploaded", "artist", "email", "upload_confirmation", 10, 0, sqlmock.AnyArg(), true, now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO trigger_aliases")).
		WithArgs("new_song", "song_uploaded").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.ApplyCatalog(context.Background(), &notify.Catalog{
		Aliases: map[string]string{"new_song": "song_uploaded"},
		Flows: []notify.Flow{{
			ID: "welcome", EventType: "song_uploaded", RecipientClass: notify.ClassArtist,
			Channel: notify.ChannelEmail, TemplateID: "upload_confirmation", Priority: 10, IsActive: true,
		}},
	})
	require.NoError(t, err)
}

func TestStore_SetFlowActive(t *testing.T) {
	t.Parallel()

	store, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE flows SET is_active")).
		WithArgs("gone", false, now).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, store.SetFlowActive(context.Background(), "gone", false), notify.ErrFlowNotFound)
}

func TestStore_Aliases(t *testing.T) {
	t.Parallel()

	store, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT alias, event_type FROM trigger_aliases")).
		WillReturnRows(sqlmock.NewRows([]string{"alias", "event_type"}).AddRow("new_follower", "follower_added"))

	aliases, err := store.Aliases(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"new_follower": "follower_added"}, aliases)
}

func TestStore_Preferences(t *testing.T) {
	t.Parallel()

	t.Run("missing row", func(t *testing.T) {
		t.Parallel()

		store, mock := newMock(t)
		mock.ExpectQuery(regexp.QuoteMeta("SELECT is_enabled FROM preferences")).
			WithArgs("fan-1", "song_uploaded", "push").
			WillReturnRows(sqlmock.NewRows([]string{"is_enabled"}))

		p, err := store.FindPreference(context.Background(), "fan-1", "song_uploaded", notify.ChannelPush)
		require.NoError(t, err)
		assert.Nil(t, p)
	})

	t.Run("opt out", func(t *testing.T) {
		t.Parallel()

		store, mock := newMock(t)
		mock.ExpectQuery(regexp.QuoteMeta("SELECT is_enabled FROM preferences")).
			WithArgs("fan-1", "song_uploaded", "push").
			WillReturnRows(sqlmock.NewRows([]string{"is_enabled"}).AddRow(false))

		p, err := store.FindPreference(context.Background(), "fan-1", "song_uploaded", notify.ChannelPush)
		require.NoError(t, err)
		require.NotNil(t, p)
		assert.False(t, p.IsEnabled)
	})

	t.Run("upsert", func(t *testing.T) {
		t.Parallel()

		store, mock := newMock(t)
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO preferences")).
			WithArgs("fan-1", "song_uploaded", "push", true, now).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, store.SetPreference(context.Background(), notify.Preference{
			RecipientID: "fan-1", EventType: "song_uploaded", Channel: notify.ChannelPush, IsEnabled: true,
		}))
	})

	t.Run("storage error", func(t *testing.T) {
		t.Parallel()

		store, mock := newMock(t)
		mock.ExpectQuery(regexp.QuoteMeta("SELECT is_enabled FROM preferences")).
			WillReturnError(assert.AnError)

		_, err := store.FindPreference(context.Background(), "fan-1", "song_uploaded", notify.ChannelPush)
		assert.ErrorIs(t, err, assert.AnError)
	})
}

var deliveryCols = []string{"id", "flow_id", "recipient_id", "event_type", "channel", "status", "template_data", "reason", "error", "sent_at", "created_at"}

func TestStore_Deliveries(t *testing.T) {
	t.Parallel()

	t.Run("append", func(t *testing.T) {
		t.Parallel()

		store, mock := newMock(t)
		sent := now
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO delivery_log")).
			WithArgs(sqlmock.AnyArg(), "push-fans", "fan-1", "song_uploaded", "push", "sent",
				[]byte(`{"title":"Blue"}`), "", "", &sent, now).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, store.AppendDelivery(context.Background(), notify.DeliveryLogEntry{
			FlowID: "push-fans", RecipientID: "fan-1", EventType: "song_uploaded",
			Channel: notify.ChannelPush, Status: notify.StatusSent,
			TemplateData: notify.TemplateData{"title": "Blue"}, SentAt: &sent,
		}))
	})

	t.Run("list with filter", func(t *testing.T) {
		t.Parallel()

		store, mock := newMock(t)
		since := now.Add(-time.Hour)
		mock.ExpectQuery(regexp.QuoteMeta(
			"FROM delivery_log WHERE recipient_id = $1 AND status = $2 AND created_at >= $3 ORDER BY created_at DESC, id DESC LIMIT $4 OFFSET $5")).
			WithArgs("fan-1", "skipped", since, 10, 20).
			WillReturnRows(sqlmock.NewRows(deliveryCols).
				AddRow("d1", "push-fans", "fan-1", "song_uploaded", "push", "skipped", nil, "preference_disabled", "", nil, now))

		entries, err := store.ListDeliveries(context.Background(), notify.DeliveryFilter{
			RecipientID: "fan-1", Status: notify.StatusSkipped, Since: &since, Limit: 10, Offset: 20,
		})
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, notify.ReasonPreferenceDisabled, entries[0].Reason)
		assert.Nil(t, entries[0].SentAt)
	})

	t.Run("list all", func(t *testing.T) {
		t.Parallel()

		store, mock := newMock(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM delivery_log ORDER BY created_at DESC")).
			WillReturnRows(sqlmock.NewRows(deliveryCols).
				AddRow("d2", "f", "u", "e", "email", "sent", []byte(`{"a":1}`), "", "", now, now))

		entries, err := store.ListDeliveries(context.Background(), notify.DeliveryFilter{})
		require.NoError(t, err)
		require.Len(t, entries, 1)
		require.NotNil(t, entries[0].SentAt)
		assert.Equal(t, float64(1), entries[0].TemplateData["a"])
	})
}

func TestStore_Audience(t *testing.T) {
	t.Parallel()

	store, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM follows f JOIN recipients r")).
		WithArgs("artist-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "class"}).AddRow("fan-1", "fan").AddRow("fan-2", "fan"))
	mock.ExpectQuery(regexp.QuoteMeta("FROM recipients WHERE class = $1")).
		WithArgs("admin").
		WillReturnRows(sqlmock.NewRows([]string{"id", "class"}).AddRow("root", "admin"))

	followers, err := store.Followers(context.Background(), "artist-1")
	require.NoError(t, err)
	assert.Equal(t, []notify.Recipient{{ID: "fan-1", Class: notify.ClassFan}, {ID: "fan-2", Class: notify.ClassFan}}, followers)

	admins, err := store.Admins(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []notify.Recipient{{ID: "root", Class: notify.ClassAdmin}}, admins)
}
