package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"timetablebot/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoller_FirstRoundSuppressed(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.set(todayURL, timetablePage("Математика", "Физика"), nil)

	recorder := &updateRecorder{}
	poller := newTestPoller(fetcher, recorder.handle, 1)
	ctx := context.Background()

	poller.Poll(ctx)
	assert.Empty(t, recorder.all(), "first round only seeds the cache")

	snapshot, ok := poller.Latest(FeedToday)
	require.True(t, ok)
	assert.Len(t, snapshot.Groups(), 2)

	poller.Poll(ctx)
	updates := recorder.all()
	require.Len(t, updates, 1)
	assert.NoError(t, updates[0].Err)
	assert.Empty(t, updates[0].Changes)

	fetcher.set(todayURL, timetablePage("Математика", "Химия"), nil)
	poller.Poll(ctx)
	updates = recorder.all()
	require.Len(t, updates, 2)
	assert.Equal(t, []string{"Ир3-21"}, updates[1].Changes)
	assert.Equal(t, FeedToday, updates[1].Feed)
}

func TestPoller_NoSuppression(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.set(todayURL, timetablePage("Математика", "Физика"), nil)

	recorder := &updateRecorder{}
	poller := newTestPoller(fetcher, recorder.handle, 0)

	poller.Poll(context.Background())

	updates := recorder.all()
	require.Len(t, updates, 1)
	assert.Equal(t, testRoster, updates[0].Changes)
}

func TestPoller_OutsideActiveWindow(t *testing.T) {
	tests := []struct {
		name string
		hour int
		want int
	}{
		{name: "before window", hour: 6, want: 0},
		{name: "window start", hour: 7, want: 1},
		{name: "last hour", hour: 17, want: 1},
		{name: "window end is exclusive", hour: 18, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher := newFakeFetcher()
			fetcher.set(todayURL, timetablePage("Математика", "Физика"), nil)

			poller := newTestPoller(fetcher, nil, 1)
			poller.now = func() time.Time {
				return time.Date(2024, time.September, 2, tt.hour, 30, 0, 0, time.UTC)
			}

			poller.Poll(context.Background())
			assert.Equal(t, tt.want, fetcher.callCount())
		})
	}
}

func TestPoller_FetchErrorKeepsCache(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.set(todayURL, timetablePage("Математика", "Физика"), nil)

	recorder := &updateRecorder{}
	poller := newTestPoller(fetcher, recorder.handle, 1)
	poller.config.URLs[FeedNext] = nextURL
	fetcher.set(nextURL, timetablePage("История", "Физика"), nil)
	ctx := context.Background()

	poller.Poll(ctx)
	before, ok := poller.Latest(FeedToday)
	require.True(t, ok)

	fetcher.set(todayURL, "", errors.New("connection refused"))
	poller.Poll(ctx)

	updates := recorder.all()
	require.Len(t, updates, 2)

	assert.Equal(t, FeedToday, updates[0].Feed)
	var fetchErr *model.FetchError
	assert.ErrorAs(t, updates[0].Err, &fetchErr)
	assert.False(t, model.IsSkippable(updates[0].Err))
	assert.Empty(t, updates[0].Changes)

	// Ошибка одной страницы не мешает второй
	assert.Equal(t, FeedNext, updates[1].Feed)
	assert.NoError(t, updates[1].Err)

	after, ok := poller.Latest(FeedToday)
	require.True(t, ok)
	assert.True(t, before.Equal(after))
}

func TestPoller_NoHTMLTable(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.set(todayURL, "<html><body><p>Расписание обновляется</p></body></html>", nil)

	recorder := &updateRecorder{}
	poller := newTestPoller(fetcher, recorder.handle, 1)

	poller.Poll(context.Background())

	updates := recorder.all()
	require.Len(t, updates, 1)
	assert.ErrorIs(t, updates[0].Err, model.ErrNoHTMLTable)
	assert.True(t, model.IsSkippable(updates[0].Err))

	_, ok := poller.Latest(FeedToday)
	assert.False(t, ok)
}

func TestPoller_DegradedContent(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.set(todayURL, `<table><tr><td>Без даты</td></tr><tr><td>Ир9-99</td><td>1</td><td>Физика</td></tr></table>`, nil)

	recorder := &updateRecorder{}
	poller := newTestPoller(fetcher, recorder.handle, 0)

	poller.Poll(context.Background())

	updates := recorder.all()
	require.Len(t, updates, 1)
	assert.True(t, updates[0].Degraded())
	assert.Equal(t, time.Date(2024, time.September, 2, 0, 0, 0, 0, time.UTC), updates[0].Snapshot.Date())
}

func TestPoller_StartStop(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.set(todayURL, timetablePage("Математика", "Физика"), nil)

	poller := newTestPoller(fetcher, nil, 1)

	require.NoError(t, poller.Start(context.Background()))
	assert.Error(t, poller.Start(context.Background()))

	require.Eventually(t, func() bool {
		_, ok := poller.Latest(FeedToday)
		return ok
	}, time.Second, 10*time.Millisecond)

	poller.Stop()
	poller.Stop()
	assert.Equal(t, 1, fetcher.callCount())
}

func TestPoller_EndToEndNotifications(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.set(todayURL, timetablePage("Математика", "Физика"), nil)

	store := &fakeStore{subscribers: []model.Subscriber{
		{ID: 1, Groups: []string{"Ир1-21"}, NotifyEnabled: true},
		{ID: 2, Groups: []string{"Ир3-21"}, NotifyEnabled: true},
		{ID: 3, Groups: []string{"Ир1-21", "Ир3-21"}, NotifyEnabled: true},
	}}
	transport := newFakeTransport()
	notifier := newTestNotifier(store, transport)

	poller := newTestPoller(fetcher, NotifyHandler(notifier, notifier.logger), 1)
	ctx := context.Background()

	poller.Poll(ctx)
	assert.Empty(t, transport.recipients(), "first successful poll never notifies")

	fetcher.set(todayURL, timetablePage("Математика", "Химия"), nil)
	poller.Poll(ctx)

	assert.Equal(t, []int64{2, 3}, transport.recipients())
	assert.Equal(t, []string{"Ир3-21"}, transport.messages(2))
	assert.Equal(t, []string{"Ир3-21"}, transport.messages(3))
	assert.Empty(t, store.disabled)
}
