package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"timetablebot/internal/model"
	"timetablebot/internal/parser"
	"timetablebot/pkg/retry"

	"go.uber.org/zap"
)

const (
	todayURL = "http://timetable.test/today.htm"
	nextURL  = "http://timetable.test/next.htm"
)

var testRoster = []string{"Ир1-21", "Ир3-21"}

// testNow понедельник 2 сентября 2024, внутри окна 7-18
var testNow = time.Date(2024, time.September, 2, 10, 0, 0, 0, time.UTC)

func timetablePage(first, second string) string {
	return fmt.Sprintf(`<html><body><table>
<tr><td>Изменения в расписании на 2 сентября</td></tr>
<tr><td>Ир1-21</td><td>1</td><td>%s, Иванов</td><td>101</td></tr>
<tr><td>Ир3-21</td><td>2</td><td>%s, Петров</td><td>202</td></tr>
</table></body></html>`, first, second)
}

type fakeFetcher struct {
	mu    sync.Mutex
	pages map[string]string
	errs  map[string]error
	calls int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{pages: make(map[string]string), errs: make(map[string]error)}
}

func (f *fakeFetcher) set(url, page string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages[url] = page
	f.errs[url] = err
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err := f.errs[url]; err != nil {
		return "", &model.FetchError{URL: url, Err: err}
	}
	return f.pages[url], nil
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeStore struct {
	mu          sync.Mutex
	subscribers []model.Subscriber
	listErr     error
	disableErr  error
	disabled    []int64
}

func (s *fakeStore) ListNotifiable(ctx context.Context) ([]model.Subscriber, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.subscribers, nil
}

func (s *fakeStore) DisableNotifications(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disabled = append(s.disabled, id)
	return s.disableErr
}

type fakeTransport struct {
	mu       sync.Mutex
	sent     map[int64][]string
	attempts map[int64]int
	fail     func(chatID int64, attempt int) error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{sent: make(map[int64][]string), attempts: make(map[int64]int)}
}

func (t *fakeTransport) Send(ctx context.Context, chatID int64, text string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.attempts[chatID]++
	if t.fail != nil {
		if err := t.fail(chatID, t.attempts[chatID]); err != nil {
			return err
		}
	}
	t.sent[chatID] = append(t.sent[chatID], text)
	return nil
}

func (t *fakeTransport) recipients() []int64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	ids := make([]int64, 0, len(t.sent))
	for id := range t.sent {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (t *fakeTransport) messages(chatID int64) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.sent[chatID]...)
}

type fakeFormatter struct{}

func (fakeFormatter) FormatGroup(snapshot *model.Snapshot, name string) string {
	return name
}

var errBlocked = fmt.Errorf("%w: bot was blocked by the user", model.ErrRecipientUnreachable)

var errFlaky = errors.New("connection reset")

func testRetry() retry.Config {
	return retry.Config{MaxRetries: 2, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, BackoffMultiplier: 2}
}

func newTestNotifier(store SubscriberStore, transport Transport) *Notifier {
	return NewNotifier(store, transport, fakeFormatter{}, testRetry(), nil, zap.NewNop())
}

func newTestPoller(fetcher *fakeFetcher, handler UpdateHandler, suppress int) *Poller {
	p := NewPoller(PollerConfig{
		Interval:       time.Hour,
		ActiveFrom:     7,
		ActiveTo:       18,
		Location:       time.UTC,
		URLs:           map[Feed]string{FeedToday: todayURL},
		SuppressRounds: suppress,
	}, fetcher, parser.NewParser(testRoster, model.DefaultLectures{}, time.UTC), handler, nil, zap.NewNop())
	p.now = func() time.Time { return testNow }
	return p
}

type updateRecorder struct {
	mu      sync.Mutex
	updates []FeedUpdate
}

func (r *updateRecorder) handle(ctx context.Context, update FeedUpdate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, update)
}

func (r *updateRecorder) all() []FeedUpdate {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]FeedUpdate(nil), r.updates...)
}
