package service

import (
	"context"
	"fmt"

	"timetablebot/internal/model"

	"go.uber.org/zap"
)

// SubscriberService управляет подписками пользователей на группы
type SubscriberService struct {
	repo   model.SubscriberRepository
	roster map[string]struct{}
	logger *zap.Logger
}

// NewSubscriberService создает сервис подписок
func NewSubscriberService(repo model.SubscriberRepository, roster []string, logger *zap.Logger) *SubscriberService {
	known := make(map[string]struct{}, len(roster))
	for _, name := range roster {
		known[name] = struct{}{}
	}

	return &SubscriberService{
		repo:   repo,
		roster: known,
		logger: logger,
	}
}

// Register регистрирует пользователя или обновляет его имя
func (s *SubscriberService) Register(ctx context.Context, id int64, fullname string) (*model.User, error) {
	user, err := s.repo.Register(ctx, id, fullname)
	if err != nil {
		return nil, fmt.Errorf("failed to register user %d: %w", id, err)
	}
	return user, nil
}

// Get возвращает пользователя с группами
func (s *SubscriberService) Get(ctx context.Context, id int64) (*model.User, error) {
	user, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user %d: %w", id, err)
	}
	if user == nil {
		return nil, fmt.Errorf("user %d: %w", id, model.ErrUserNotFound)
	}
	return user, nil
}

// Subscribe подписывает пользователя на группу из списка колледжа
func (s *SubscriberService) Subscribe(ctx context.Context, id int64, group string) error {
	if _, ok := s.roster[group]; !ok {
		return fmt.Errorf("%q: %w", group, model.ErrUnknownGroup)
	}

	if err := s.repo.AddGroup(ctx, id, group); err != nil {
		return fmt.Errorf("failed to subscribe user %d to %s: %w", id, group, err)
	}

	s.logger.Info("User subscribed to group", zap.Int64("user_id", id), zap.String("group", group))
	return nil
}

// Unsubscribe отписывает пользователя от группы
func (s *SubscriberService) Unsubscribe(ctx context.Context, id int64, group string) error {
	if err := s.repo.RemoveGroup(ctx, id, group); err != nil {
		return fmt.Errorf("failed to unsubscribe user %d from %s: %w", id, group, err)
	}

	s.logger.Info("User unsubscribed from group", zap.Int64("user_id", id), zap.String("group", group))
	return nil
}

// SetNotifications включает или выключает уведомления
func (s *SubscriberService) SetNotifications(ctx context.Context, id int64, enabled bool) error {
	if err := s.repo.SetNotifications(ctx, id, enabled); err != nil {
		return fmt.Errorf("failed to update notifications for user %d: %w", id, err)
	}
	return nil
}
