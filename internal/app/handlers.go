package app

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"timetablebot/internal/external/telegram"
	"timetablebot/internal/formatter"
	"timetablebot/internal/model"
	"timetablebot/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Sender отправляет ответы пользователям
type Sender interface {
	Send(ctx context.Context, chatID int64, text string) error
}

// SnapshotSource отдает последние разобранные снимки
type SnapshotSource interface {
	Latest(feed service.Feed) (*model.Snapshot, bool)
	Roster() []string
}

// SubscriberManager управляет подписками пользователя
type SubscriberManager interface {
	Register(ctx context.Context, id int64, fullname string) (*model.User, error)
	Get(ctx context.Context, id int64) (*model.User, error)
	Subscribe(ctx context.Context, id int64, group string) error
	Unsubscribe(ctx context.Context, id int64, group string) error
	SetNotifications(ctx context.Context, id int64, enabled bool) error
}

// Handlers содержит обработчики команд бота
type Handlers struct {
	sender      Sender
	snapshots   SnapshotSource
	subscribers SubscriberManager
	formatter   formatter.MessageFormatter
	logger      *zap.Logger
}

// NewHandlers создает обработчики команд
func NewHandlers(sender Sender, snapshots SnapshotSource, subscribers SubscriberManager, f formatter.MessageFormatter, logger *zap.Logger) *Handlers {
	return &Handlers{
		sender:      sender,
		snapshots:   snapshots,
		subscribers: subscribers,
		formatter:   f,
		logger:      logger,
	}
}

// Start обрабатывает команду /start
func (h *Handlers) Start(ctx context.Context, message *tgbotapi.Message) {
	name := telegram.UserIdentifier(message.From)
	if _, err := h.subscribers.Register(ctx, message.Chat.ID, name); err != nil {
		h.logger.Error("Failed to register user", zap.Int64("chat_id", message.Chat.ID), zap.Error(err))
		h.reply(ctx, message, "Не удалось зарегистрироваться, попробуйте позже")
		return
	}

	text := fmt.Sprintf("Привет, %s!\n\n", html.EscapeString(name)) +
		"Я присылаю изменения в расписании твоих групп.\n" +
		"Подпишись на группу: /subscribe [группа]\n" +
		"Список групп: /groups"
	h.reply(ctx, message, text)
}

// Help обрабатывает команду /help
func (h *Handlers) Help(ctx context.Context, message *tgbotapi.Message) {
	text := "Доступные команды:\n" +
		"\n/start - Начать работу с ботом\n" +
		"/help - Показать это сообщение\n" +
		"/today - Расписание на сегодня\n" +
		"/next - Расписание на следующий день\n" +
		"/groups - Список групп и твои подписки\n" +
		"/subscribe [группа] - Подписаться на группу\n" +
		"/unsubscribe [группа] - Отписаться от группы\n" +
		"/notify on|off - Включить или выключить уведомления"
	h.reply(ctx, message, text)
}

// Today обрабатывает команду /today
func (h *Handlers) Today(ctx context.Context, message *tgbotapi.Message) {
	h.replySnapshot(ctx, message, service.FeedToday)
}

// Next обрабатывает команду /next
func (h *Handlers) Next(ctx context.Context, message *tgbotapi.Message) {
	h.replySnapshot(ctx, message, service.FeedNext)
}

// Groups показывает список групп и подписки пользователя
func (h *Handlers) Groups(ctx context.Context, message *tgbotapi.Message) {
	var b strings.Builder
	b.WriteString("Группы:\n")
	b.WriteString(html.EscapeString(strings.Join(h.snapshots.Roster(), ", ")))

	user, err := h.subscribers.Get(ctx, message.Chat.ID)
	switch {
	case err == nil && len(user.Groups) > 0:
		b.WriteString("\n\nТвои группы: ")
		b.WriteString(html.EscapeString(strings.Join(user.GroupNames(), ", ")))
	case err == nil || errors.Is(err, model.ErrUserNotFound):
		b.WriteString("\n\nТы ещё не подписан ни на одну группу")
	default:
		h.logger.Error("Failed to load user groups", zap.Int64("chat_id", message.Chat.ID), zap.Error(err))
	}

	h.reply(ctx, message, b.String())
}

// Subscribe обрабатывает команду /subscribe
func (h *Handlers) Subscribe(ctx context.Context, message *tgbotapi.Message) {
	group := strings.TrimSpace(message.CommandArguments())
	if group == "" {
		h.reply(ctx, message, "Укажи группу: /subscribe Ир3-21")
		return
	}

	if _, err := h.subscribers.Register(ctx, message.Chat.ID, telegram.UserIdentifier(message.From)); err != nil {
		h.logger.Error("Failed to register user", zap.Int64("chat_id", message.Chat.ID), zap.Error(err))
		h.reply(ctx, message, "Не удалось сохранить подписку, попробуйте позже")
		return
	}

	err := h.subscribers.Subscribe(ctx, message.Chat.ID, group)
	switch {
	case errors.Is(err, model.ErrUnknownGroup):
		h.reply(ctx, message, fmt.Sprintf("Группа %s не найдена, список групп: /groups", html.EscapeString(group)))
	case err != nil:
		h.logger.Error("Failed to subscribe", zap.Int64("chat_id", message.Chat.ID), zap.String("group", group), zap.Error(err))
		h.reply(ctx, message, "Не удалось сохранить подписку, попробуйте позже")
	default:
		h.reply(ctx, message, fmt.Sprintf("Подписка на %s оформлена", html.EscapeString(group)))
	}
}

// Unsubscribe обрабатывает команду /unsubscribe
func (h *Handlers) Unsubscribe(ctx context.Context, message *tgbotapi.Message) {
	group := strings.TrimSpace(message.CommandArguments())
	if group == "" {
		h.reply(ctx, message, "Укажи группу: /unsubscribe Ир3-21")
		return
	}

	if err := h.subscribers.Unsubscribe(ctx, message.Chat.ID, group); err != nil {
		h.logger.Error("Failed to unsubscribe", zap.Int64("chat_id", message.Chat.ID), zap.String("group", group), zap.Error(err))
		h.reply(ctx, message, "Не удалось отменить подписку, попробуйте позже")
		return
	}

	h.reply(ctx, message, fmt.Sprintf("Подписка на %s отменена", html.EscapeString(group)))
}

// Notify обрабатывает команду /notify
func (h *Handlers) Notify(ctx context.Context, message *tgbotapi.Message) {
	var enabled bool
	switch strings.ToLower(strings.TrimSpace(message.CommandArguments())) {
	case "on":
		enabled = true
	case "off":
		enabled = false
	default:
		h.reply(ctx, message, "Использование: /notify on или /notify off")
		return
	}

	if _, err := h.subscribers.Register(ctx, message.Chat.ID, telegram.UserIdentifier(message.From)); err != nil {
		h.logger.Error("Failed to register user", zap.Int64("chat_id", message.Chat.ID), zap.Error(err))
		h.reply(ctx, message, "Не удалось изменить настройки, попробуйте позже")
		return
	}

	if err := h.subscribers.SetNotifications(ctx, message.Chat.ID, enabled); err != nil {
		h.logger.Error("Failed to update notifications", zap.Int64("chat_id", message.Chat.ID), zap.Error(err))
		h.reply(ctx, message, "Не удалось изменить настройки, попробуйте позже")
		return
	}

	if enabled {
		h.reply(ctx, message, "Уведомления включены")
	} else {
		h.reply(ctx, message, "Уведомления выключены")
	}
}

// Unknown обрабатывает неизвестные команды
func (h *Handlers) Unknown(ctx context.Context, message *tgbotapi.Message) {
	h.reply(ctx, message, "Неизвестная команда, список команд: /help")
}

// replySnapshot отправляет расписание групп пользователя из последнего снимка
func (h *Handlers) replySnapshot(ctx context.Context, message *tgbotapi.Message, feed service.Feed) {
	user, err := h.subscribers.Get(ctx, message.Chat.ID)
	if err != nil && !errors.Is(err, model.ErrUserNotFound) {
		h.logger.Error("Failed to load user", zap.Int64("chat_id", message.Chat.ID), zap.Error(err))
		h.reply(ctx, message, "Не удалось загрузить подписки, попробуйте позже")
		return
	}
	if user == nil || len(user.Groups) == 0 {
		h.reply(ctx, message, "Сначала подпишись на группу: /subscribe [группа]")
		return
	}

	snapshot, ok := h.snapshots.Latest(feed)
	if !ok {
		h.reply(ctx, message, "Расписание ещё не получено, попробуй позже")
		return
	}

	for _, group := range user.GroupNames() {
		h.reply(ctx, message, h.formatter.FormatGroup(snapshot, group))
	}
}

func (h *Handlers) reply(ctx context.Context, message *tgbotapi.Message, text string) {
	if err := h.sender.Send(ctx, message.Chat.ID, text); err != nil {
		h.logger.Error("Failed to send reply", zap.Int64("chat_id", message.Chat.ID), zap.Error(err))
	}
}
