package app

import (
	"context"
	"strings"

	"timetablebot/internal/metrics"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Router обрабатывает маршрутизацию команд
type Router struct {
	handlers *Handlers
	metrics  metrics.Interface
	logger   *zap.Logger
}

// NewRouter создает новый роутер
func NewRouter(handlers *Handlers, m metrics.Interface, logger *zap.Logger) *Router {
	return &Router{
		handlers: handlers,
		metrics:  m,
		logger:   logger,
	}
}

// HandleUpdate обрабатывает обновление от Telegram
func (r *Router) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	message := update.Message
	if message == nil || !message.IsCommand() {
		return
	}

	command := strings.ToLower(message.Command())
	if r.metrics != nil {
		r.metrics.RecordUserCommand(command, message.Chat.ID)
	}

	switch command {
	case "start":
		r.handlers.Start(ctx, message)
	case "help":
		r.handlers.Help(ctx, message)
	case "today":
		r.handlers.Today(ctx, message)
	case "next":
		r.handlers.Next(ctx, message)
	case "groups":
		r.handlers.Groups(ctx, message)
	case "subscribe":
		r.handlers.Subscribe(ctx, message)
	case "unsubscribe":
		r.handlers.Unsubscribe(ctx, message)
	case "notify":
		r.handlers.Notify(ctx, message)
	default:
		r.handlers.Unknown(ctx, message)
	}
}

// RegisterBotCommands возвращает команды для меню бота
func (r *Router) RegisterBotCommands() []tgbotapi.BotCommand {
	return []tgbotapi.BotCommand{
		{Command: "today", Description: "Расписание на сегодня"},
		{Command: "next", Description: "Расписание на следующий день"},
		{Command: "groups", Description: "Список групп и подписки"},
		{Command: "subscribe", Description: "Подписаться на группу"},
		{Command: "unsubscribe", Description: "Отписаться от группы"},
		{Command: "notify", Description: "Уведомления on/off"},
		{Command: "help", Description: "Помощь"},
	}
}
