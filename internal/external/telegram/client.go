// Package telegram содержит интеграцию с Telegram Bot API.
package telegram

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// BotAPI определяет используемую часть tgbotapi.BotAPI
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// RouterInterface определяет интерфейс для роутера
type RouterInterface interface {
	HandleUpdate(ctx context.Context, update tgbotapi.Update)
	RegisterBotCommands() []tgbotapi.BotCommand
}

// Config представляет конфигурацию клиента
type Config struct {
	RatePerSecond int
	Debug         bool
}

// Client представляет клиент Telegram Bot API
type Client struct {
	bot     BotAPI
	self    tgbotapi.User
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewClient создает новый клиент Telegram
func NewClient(botToken string, config Config, logger *zap.Logger) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}

	bot.Debug = config.Debug
	logger.Info("Telegram bot created", zap.String("username", bot.Self.UserName))

	client := NewClientWithAPI(bot, config, logger)
	client.self = bot.Self
	return client, nil
}

// NewClientWithAPI создает клиент поверх готового BotAPI
func NewClientWithAPI(bot BotAPI, config Config, logger *zap.Logger) *Client {
	rps := config.RatePerSecond
	if rps <= 0 {
		rps = 25
	}

	return &Client{
		bot:     bot,
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
		logger:  logger,
	}
}

// Send отправляет HTML-сообщение подписчику.
// Если получатель заблокировал бота, ошибка совпадает с model.ErrRecipientUnreachable.
func (c *Client) Send(ctx context.Context, chatID int64, text string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	if _, err := c.bot.Send(msg); err != nil {
		return classifyError(chatID, err)
	}
	return nil
}

// Reply отвечает на сообщение пользователя
func (c *Client) Reply(ctx context.Context, message *tgbotapi.Message, text string) error {
	return c.Send(ctx, message.Chat.ID, text)
}

// Self возвращает информацию о боте
func (c *Client) Self() tgbotapi.User {
	return c.self
}

// Start запускает обработку обновлений и блокируется до отмены ctx
func (c *Client) Start(ctx context.Context, router RouterInterface) error {
	c.logger.Info("Bot started", zap.String("username", c.self.UserName))

	// Удаляем webhook если есть
	if _, err := c.bot.Request(tgbotapi.DeleteWebhookConfig{DropPendingUpdates: true}); err != nil {
		return fmt.Errorf("failed to delete webhook: %w", err)
	}

	// Настраиваем команды бота
	if _, err := c.bot.Request(tgbotapi.NewSetMyCommands(router.RegisterBotCommands()...)); err != nil {
		return fmt.Errorf("failed to set bot commands: %w", err)
	}

	// Настраиваем long polling
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	u.AllowedUpdates = []string{"message"}

	c.logger.Info("Starting to fetch updates")
	updates := c.bot.GetUpdatesChan(u)
	defer c.bot.StopReceivingUpdates()

	reconnectDelay := 10 * time.Second

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Update loop cancelled by context")
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				c.logger.Warn("Update channel closed, will try to reconnect after delay")
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(reconnectDelay):
					return fmt.Errorf("update channel closed, reconnecting")
				}
			}
			c.processUpdate(ctx, router, update)
		}
	}
}

// processUpdate обрабатывает одно обновление
func (c *Client) processUpdate(ctx context.Context, router RouterInterface, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("Panic in update handler", zap.Any("panic", r))
		}
	}()

	if update.Message == nil || !update.Message.IsCommand() {
		return
	}

	c.logger.Debug("Received command",
		zap.Int("update_id", update.UpdateID),
		zap.String("command", update.Message.Command()),
		zap.Int64("chat_id", update.Message.Chat.ID),
		zap.String("user", UserIdentifier(update.Message.From)))

	router.HandleUpdate(ctx, update)
}

// UserIdentifier возвращает идентификатор пользователя для логов и профиля
func UserIdentifier(user *tgbotapi.User) string {
	if user == nil {
		return "unknown"
	}

	if user.UserName != "" {
		return "@" + user.UserName
	}

	if user.FirstName != "" {
		if user.LastName != "" {
			return user.FirstName + " " + user.LastName
		}
		return user.FirstName
	}

	return fmt.Sprintf("user_%d", user.ID)
}
