package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"timetablebot/internal/external/telegram"
	"timetablebot/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSnapshot() *model.Snapshot {
	return model.NewSnapshot(time.Date(2024, time.September, 2, 0, 0, 0, 0, time.UTC), []model.Group{
		model.NewGroup("Ир1-21", []model.Lecture{model.NewLecture("1", "Математика", "101", "", "Иванов")}),
		model.NewGroup("Ир3-21", []model.Lecture{model.NewLecture("2", "Физика", "202", "", "Петров")}),
	})
}

func TestNotifier_BlockedRecipient(t *testing.T) {
	store := &fakeStore{subscribers: []model.Subscriber{
		{ID: 1, Groups: []string{"Ир1-21"}},
		{ID: 2, Groups: []string{"Ир1-21", "Ир3-21"}},
		{ID: 3, Groups: []string{"Ир3-21"}},
	}}
	transport := newFakeTransport()
	transport.fail = func(chatID int64, attempt int) error {
		if chatID == 2 {
			return errBlocked
		}
		return nil
	}

	report, err := newTestNotifier(store, transport).Notify(context.Background(), testSnapshot(), []string{"Ир1-21", "Ир3-21"})
	require.NoError(t, err)

	assert.Equal(t, []int64{2}, store.disabled, "disable must be called exactly once")
	assert.Equal(t, []int64{1, 3}, transport.recipients())
	assert.Equal(t, 1, transport.attempts[2], "unreachable recipient is not retried")

	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 2, report.Success)
	assert.Equal(t, 1, report.Disabled)

	require.Len(t, report.Results, 3)
	blocked := report.Results[1]
	assert.Equal(t, int64(2), blocked.SubscriberID)
	assert.True(t, blocked.Disabled)
	assert.ErrorIs(t, blocked.Err, model.ErrRecipientUnreachable)
	var deliveryErr *model.DeliveryError
	assert.ErrorAs(t, blocked.Err, &deliveryErr)
}

func TestNotifier_DisableFailureIsNotEscalated(t *testing.T) {
	store := &fakeStore{
		subscribers: []model.Subscriber{{ID: 7, Groups: []string{"Ир1-21"}}},
		disableErr:  errors.New("db is down"),
	}
	transport := newFakeTransport()
	transport.fail = func(chatID int64, attempt int) error { return errBlocked }

	report, err := newTestNotifier(store, transport).Notify(context.Background(), testSnapshot(), []string{"Ир1-21"})
	require.NoError(t, err)

	assert.Equal(t, []int64{7}, store.disabled)
	assert.Equal(t, 0, report.Disabled)
	assert.Equal(t, 0, report.Success)
	assert.Equal(t, 1, report.Total)
}

func TestNotifier_StoreError(t *testing.T) {
	store := &fakeStore{listErr: errors.New("connection refused")}
	transport := newFakeTransport()

	report, err := newTestNotifier(store, transport).Notify(context.Background(), testSnapshot(), []string{"Ир1-21"})
	require.Error(t, err)

	var storeErr *model.StoreError
	assert.ErrorAs(t, err, &storeErr)
	assert.Zero(t, report.Total)
	assert.Empty(t, transport.recipients())
}

func TestNotifier_RetriesTransientFailure(t *testing.T) {
	store := &fakeStore{subscribers: []model.Subscriber{{ID: 1, Groups: []string{"Ир1-21"}}}}
	transport := newFakeTransport()
	transport.fail = func(chatID int64, attempt int) error {
		if attempt == 1 {
			return errFlaky
		}
		return nil
	}

	report, err := newTestNotifier(store, transport).Notify(context.Background(), testSnapshot(), []string{"Ир1-21"})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Success)
	assert.Equal(t, 2, transport.attempts[1])
	assert.Empty(t, store.disabled)
}

func TestNotifier_WaitsForRateLimit(t *testing.T) {
	const after = 40 * time.Millisecond

	store := &fakeStore{subscribers: []model.Subscriber{{ID: 1, Groups: []string{"Ир1-21"}}}}
	transport := newFakeTransport()
	var attempts []time.Time
	transport.fail = func(chatID int64, attempt int) error {
		attempts = append(attempts, time.Now())
		if attempt == 1 {
			return &telegram.RetryAfterError{After: after, Err: errors.New("Too Many Requests")}
		}
		return nil
	}

	report, err := newTestNotifier(store, transport).Notify(context.Background(), testSnapshot(), []string{"Ир1-21"})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Success)
	require.Len(t, attempts, 2)
	assert.GreaterOrEqual(t, attempts[1].Sub(attempts[0]), after)
	assert.Empty(t, store.disabled)
}

func TestNotifier_PersistentFailure(t *testing.T) {
	store := &fakeStore{subscribers: []model.Subscriber{
		{ID: 1, Groups: []string{"Ир1-21"}},
		{ID: 2, Groups: []string{"Ир1-21"}},
	}}
	transport := newFakeTransport()
	transport.fail = func(chatID int64, attempt int) error {
		if chatID == 1 {
			return errFlaky
		}
		return nil
	}

	report, err := newTestNotifier(store, transport).Notify(context.Background(), testSnapshot(), []string{"Ир1-21"})
	require.NoError(t, err)

	assert.Equal(t, 2, report.Total)
	assert.Equal(t, 1, report.Success)
	assert.Equal(t, testRetry().MaxRetries+1, transport.attempts[1])
	assert.ErrorIs(t, report.Results[0].Err, errFlaky)
	assert.Empty(t, store.disabled)
	assert.Equal(t, []int64{2}, transport.recipients())
}

func TestNotifier_Fanout(t *testing.T) {
	tests := []struct {
		name    string
		groups  []string
		changes []string
		want    []string
	}{
		{name: "no relevant groups", groups: []string{"Ир1-21"}, changes: []string{"Ир3-21"}, want: nil},
		{name: "single group", groups: []string{"Ир1-21", "С1-21"}, changes: []string{"Ир1-21"}, want: []string{"Ир1-21"}},
		{name: "message per group", groups: []string{"Ир3-21", "Ир1-21"}, changes: []string{"Ир1-21", "Ир3-21"}, want: []string{"Ир3-21", "Ир1-21"}},
		{name: "no groups", groups: nil, changes: []string{"Ир1-21"}, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{subscribers: []model.Subscriber{{ID: 42, Groups: tt.groups}}}
			transport := newFakeTransport()

			report, err := newTestNotifier(store, transport).Notify(context.Background(), testSnapshot(), tt.changes)
			require.NoError(t, err)

			assert.Equal(t, tt.want, transport.messages(42))
			if tt.want == nil {
				assert.Zero(t, report.Total)
			} else {
				assert.Equal(t, 1, report.Total)
				assert.Equal(t, len(tt.want), report.Results[0].Sent)
			}
		})
	}
}

func TestNotifier_NoChanges(t *testing.T) {
	store := &fakeStore{listErr: errors.New("must not be called")}

	report, err := newTestNotifier(store, newFakeTransport()).Notify(context.Background(), testSnapshot(), nil)
	require.NoError(t, err)
	assert.Zero(t, report.Total)

	_, err = newTestNotifier(store, newFakeTransport()).Notify(context.Background(), nil, []string{"Ир1-21"})
	assert.NoError(t, err)
}

func TestNotifier_DeliversAfterCancel(t *testing.T) {
	store := &fakeStore{subscribers: []model.Subscriber{{ID: 1, Groups: []string{"Ир1-21"}}}}
	transport := newFakeTransport()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := newTestNotifier(store, transport).Notify(ctx, testSnapshot(), []string{"Ир1-21"})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Success)
	assert.Equal(t, []int64{1}, transport.recipients())
}

func TestRelevantGroups(t *testing.T) {
	changed := map[string]struct{}{"Ир1-21": {}, "Ир3-21": {}}

	assert.Equal(t, []string{"Ир3-21", "Ир1-21"}, relevantGroups([]string{"Ир3-21", "С1-21", "Ир1-21", "Ир3-21"}, changed))
	assert.Nil(t, relevantGroups([]string{"С1-21"}, changed))
}
