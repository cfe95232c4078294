package app

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"timetablebot/internal/formatter"
	"timetablebot/internal/metrics"
	"timetablebot/internal/model"
	"timetablebot/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []string
}

func (s *fakeSender) Send(ctx context.Context, chatID int64, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, text)
	return nil
}

func (s *fakeSender) last() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sent) == 0 {
		return ""
	}
	return s.sent[len(s.sent)-1]
}

type fakeSnapshots struct {
	latest map[service.Feed]*model.Snapshot
}

func (s *fakeSnapshots) Latest(feed service.Feed) (*model.Snapshot, bool) {
	snapshot, ok := s.latest[feed]
	return snapshot, ok
}

func (s *fakeSnapshots) Roster() []string {
	return []string{"Ир1-21", "Ир3-21"}
}

type fakeSubscribers struct {
	users map[int64]*model.User
	err   error
}

func (s *fakeSubscribers) Register(ctx context.Context, id int64, fullname string) (*model.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	u := &model.User{ID: id, CachedFullname: fullname, IsNotifiesEnabled: true}
	s.users[id] = u
	return u, nil
}

func (s *fakeSubscribers) Get(ctx context.Context, id int64) (*model.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", id, model.ErrUserNotFound)
	}
	return u, nil
}

func (s *fakeSubscribers) Subscribe(ctx context.Context, id int64, group string) error {
	if group != "Ир1-21" && group != "Ир3-21" {
		return fmt.Errorf("%q: %w", group, model.ErrUnknownGroup)
	}
	u := s.users[id]
	u.Groups = append(u.Groups, &model.TargetGroup{UserID: id, GroupName: group})
	return nil
}

func (s *fakeSubscribers) Unsubscribe(ctx context.Context, id int64, group string) error {
	u := s.users[id]
	u.Groups = nil
	return nil
}

func (s *fakeSubscribers) SetNotifications(ctx context.Context, id int64, enabled bool) error {
	u, ok := s.users[id]
	if !ok {
		return fmt.Errorf("user %d: %w", id, model.ErrUserNotFound)
	}
	u.IsNotifiesEnabled = enabled
	return nil
}

func commandUpdate(chatID int64, text string) tgbotapi.Update {
	command := strings.Fields(text)[0]
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Text: text,
		Chat: &tgbotapi.Chat{ID: chatID, Type: "private"},
		From: &tgbotapi.User{ID: chatID, UserName: "student"},
		Entities: []tgbotapi.MessageEntity{
			{Type: "bot_command", Offset: 0, Length: len(command)},
		},
	}}
}

type routerFixture struct {
	router      *Router
	sender      *fakeSender
	snapshots   *fakeSnapshots
	subscribers *fakeSubscribers
	metrics     *metrics.Metrics
}

func newRouterFixture() *routerFixture {
	sender := &fakeSender{}
	snapshots := &fakeSnapshots{latest: make(map[service.Feed]*model.Snapshot)}
	subscribers := &fakeSubscribers{users: make(map[int64]*model.User)}
	m := metrics.NewMetrics(zap.NewNop())

	handlers := NewHandlers(sender, snapshots, subscribers, formatter.New(), zap.NewNop())
	return &routerFixture{
		router:      NewRouter(handlers, m, zap.NewNop()),
		sender:      sender,
		snapshots:   snapshots,
		subscribers: subscribers,
		metrics:     m,
	}
}

func (f *routerFixture) send(chatID int64, text string) string {
	f.router.HandleUpdate(context.Background(), commandUpdate(chatID, text))
	return f.sender.last()
}

func TestRouter_SubscriptionFlow(t *testing.T) {
	f := newRouterFixture()

	assert.Contains(t, f.send(1, "/start"), "@student")
	assert.Contains(t, f.send(1, "/subscribe"), "Укажи группу")
	assert.Contains(t, f.send(1, "/subscribe Ир9-99"), "не найдена")
	assert.Equal(t, "Подписка на Ир3-21 оформлена", f.send(1, "/subscribe Ир3-21"))
	assert.Contains(t, f.send(1, "/groups"), "Твои группы: Ир3-21")

	assert.Equal(t, "Уведомления выключены", f.send(1, "/notify off"))
	assert.False(t, f.subscribers.users[1].IsNotifiesEnabled)
	assert.Contains(t, f.send(1, "/notify maybe"), "Использование")

	assert.Equal(t, "Подписка на Ир3-21 отменена", f.send(1, "/unsubscribe Ир3-21"))
	assert.Contains(t, f.send(1, "/groups"), "не подписан")

	activity := f.metrics.GetStats()["user_activity"].(map[string]interface{})
	assert.Equal(t, int64(9), activity["total_commands"])
	assert.Equal(t, 1, activity["unique_users"])
}

func TestRouter_Today(t *testing.T) {
	f := newRouterFixture()

	assert.Contains(t, f.send(1, "/today"), "Сначала подпишись")

	f.send(1, "/subscribe Ир1-21")
	assert.Contains(t, f.send(1, "/today"), "ещё не получено")

	f.snapshots.latest[service.FeedToday] = model.NewSnapshot(
		time.Date(2024, time.September, 2, 0, 0, 0, 0, time.UTC),
		[]model.Group{model.NewGroup("Ир1-21", []model.Lecture{model.NewLecture("1", "Математика", "101", "", "")})},
	)

	reply := f.send(1, "/today")
	assert.Contains(t, reply, "Понедельник, 02.09.2024")
	assert.Contains(t, reply, "<b>#1</b> 101 <b>· Математика</b>")

	assert.Contains(t, f.send(1, "/next"), "ещё не получено")
}

func TestRouter_UnknownAndNonCommands(t *testing.T) {
	f := newRouterFixture()

	assert.Contains(t, f.send(1, "/homework"), "Неизвестная команда")
	assert.Contains(t, f.send(1, "/help"), "/subscribe")

	sent := len(f.sender.sent)
	f.router.HandleUpdate(context.Background(), tgbotapi.Update{Message: &tgbotapi.Message{
		Text: "просто текст",
		Chat: &tgbotapi.Chat{ID: 1},
	}})
	f.router.HandleUpdate(context.Background(), tgbotapi.Update{})
	assert.Len(t, f.sender.sent, sent)
}

func TestRouter_StoreFailure(t *testing.T) {
	f := newRouterFixture()
	f.subscribers.err = &model.StoreError{Op: "get", Err: errors.New("timeout")}

	assert.Contains(t, f.send(1, "/start"), "попробуйте позже")
	assert.Contains(t, f.send(1, "/today"), "попробуйте позже")
}

func TestRouter_RegisterBotCommands(t *testing.T) {
	f := newRouterFixture()

	commands := f.router.RegisterBotCommands()
	require.NotEmpty(t, commands)
	for _, c := range commands {
		f.send(1, "/"+c.Command)
		assert.NotContains(t, f.sender.last(), "Неизвестная команда", c.Command)
	}
}

var (
	telegramTags     = regexp.MustCompile(`</?(b|i|u|s|code|pre|a)(\s[^<>]*)?>`)
	telegramEntities = regexp.MustCompile(`&(lt|gt|amp|quot|#[0-9]+);`)
)

// assertTelegramHTML проверяет, что текст разбирается в режиме ModeHTML
func assertTelegramHTML(t *testing.T, text string) {
	t.Helper()
	stripped := telegramEntities.ReplaceAllString(telegramTags.ReplaceAllString(text, ""), "")
	assert.NotContains(t, stripped, "<", text)
	assert.NotContains(t, stripped, ">", text)
	assert.NotContains(t, stripped, "&", text)
}

func TestHandlers_RepliesAreValidHTML(t *testing.T) {
	f := newRouterFixture()

	start := commandUpdate(1, "/start")
	start.Message.From = &tgbotapi.User{ID: 1, FirstName: "A<b", LastName: "&Co"}
	f.router.HandleUpdate(context.Background(), start)
	assert.Contains(t, f.sender.last(), "Привет, A&lt;b &amp;Co!")

	f.send(1, "/today")
	f.send(1, "/next")
	f.send(1, "/help")
	assert.Equal(t, "Группа &lt;script&gt; не найдена, список групп: /groups", f.send(1, "/subscribe <script>"))
	f.send(1, "/subscribe Ир1-21")
	f.send(1, "/groups")
	assert.Equal(t, "Подписка на a&amp;b отменена", f.send(1, "/unsubscribe a&b"))

	f.snapshots.latest[service.FeedToday] = model.NewSnapshot(
		time.Date(2024, time.September, 2, 0, 0, 0, 0, time.UTC),
		[]model.Group{model.NewGroup("Ир1-21", []model.Lecture{model.NewLecture("1", "Физика <лаб>", "101", "", "")})},
	)
	f.send(1, "/subscribe Ир1-21")
	f.send(1, "/today")

	require.Len(t, f.sender.sent, 10)
	for _, text := range f.sender.sent {
		assertTelegramHTML(t, text)
	}
}

func TestRouter_NotifyBeforeStart(t *testing.T) {
	f := newRouterFixture()

	assert.Equal(t, "Уведомления включены", f.send(7, "/notify on"))
	require.Contains(t, f.subscribers.users, int64(7))
	assert.True(t, f.subscribers.users[7].IsNotifiesEnabled)

	assert.Equal(t, "Уведомления выключены", f.send(7, "/notify off"))
	assert.False(t, f.subscribers.users[7].IsNotifiesEnabled)
}
