package telegram

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"timetablebot/internal/model"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Описания ошибок API, после которых писать пользователю бессмысленно
var unreachableDescriptions = []string{
	"chat not found",
	"user is deactivated",
	"bot was blocked by the user",
	"bot was kicked",
	"have no rights to send a message",
}

// RetryAfterError сообщает, что Telegram просит подождать перед следующей отправкой
type RetryAfterError struct {
	After time.Duration
	Err   error
}

func (e *RetryAfterError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s: %v", e.After, e.Err)
}

func (e *RetryAfterError) Unwrap() error {
	return e.Err
}

// RetryAfter возвращает паузу, запрошенную Telegram
func (e *RetryAfterError) RetryAfter() time.Duration {
	return e.After
}

// apiError извлекает ошибку Telegram API из цепочки
func apiError(err error) (tgbotapi.Error, bool) {
	var ptr *tgbotapi.Error
	if errors.As(err, &ptr) && ptr != nil {
		return *ptr, true
	}
	var val tgbotapi.Error
	if errors.As(err, &val) {
		return val, true
	}
	return tgbotapi.Error{}, false
}

// classifyError переводит ошибку отправки в доменную.
// Получатель недоступен: 403 от API или 400 с описанием недоступного чата.
func classifyError(chatID int64, err error) error {
	if err == nil {
		return nil
	}

	apiErr, ok := apiError(err)
	if !ok {
		return fmt.Errorf("failed to send message to %d: %w", chatID, err)
	}

	switch {
	case apiErr.Code == http.StatusForbidden:
		return fmt.Errorf("%w: chat %d: %s", model.ErrRecipientUnreachable, chatID, apiErr.Message)
	case apiErr.Code == http.StatusBadRequest && isUnreachableDescription(apiErr.Message):
		return fmt.Errorf("%w: chat %d: %s", model.ErrRecipientUnreachable, chatID, apiErr.Message)
	case apiErr.Code == http.StatusTooManyRequests && apiErr.RetryAfter > 0:
		return &RetryAfterError{After: time.Duration(apiErr.RetryAfter) * time.Second, Err: err}
	default:
		return fmt.Errorf("failed to send message to %d: %w", chatID, err)
	}
}

func isUnreachableDescription(message string) bool {
	message = strings.ToLower(message)
	for _, d := range unreachableDescriptions {
		if strings.Contains(message, d) {
			return true
		}
	}
	return false
}
