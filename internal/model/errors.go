package model

import (
	"errors"
	"fmt"
)

var (
	// ErrNoHTMLTable страница получена, но нужной таблицы на ней нет
	ErrNoHTMLTable = errors.New("no html table found")

	// ErrRecipientUnreachable получатель заблокировал бота или удалил чат
	ErrRecipientUnreachable = errors.New("recipient unreachable")

	// ErrUnknownGroup группы нет в списке колледжа
	ErrUnknownGroup = errors.New("unknown group")

	// ErrUserNotFound пользователь не зарегистрирован
	ErrUserNotFound = errors.New("user not found")
)

// FetchError представляет ошибку получения страницы расписания
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// StoreError представляет ошибку хранилища подписчиков
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("subscriber store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// DeliveryError представляет ошибку доставки сообщения одному подписчику
type DeliveryError struct {
	SubscriberID int64
	Err          error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery to %d failed: %v", e.SubscriberID, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// IsSkippable проверяет, можно ли пропустить ошибку без оповещения
func IsSkippable(err error) bool {
	return errors.Is(err, ErrNoHTMLTable)
}

// IsUnreachable проверяет, что получатель недоступен
func IsUnreachable(err error) bool {
	return errors.Is(err, ErrRecipientUnreachable)
}
