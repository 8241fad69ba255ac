package service

import (
	"context"
	"fmt"
	"strconv"

	repository "github.com/ds124wfegd/calendar-reminders/internal/database/postgres"
	"github.com/ds124wfegd/calendar-reminders/internal/delivery"
	"github.com/ds124wfegd/calendar-reminders/internal/entity"
)

type SubscribeRequest struct {
	UserID       string `json:"userId" binding:"required"`
	Subscription struct {
		Endpoint string `json:"endpoint" binding:"required,url"`
		Keys     struct {
			P256dh string `json:"p256dh" binding:"required"`
			Auth   string `json:"auth" binding:"required"`
		} `json:"keys"`
	} `json:"subscription"`
}

type UnsubscribeRequest struct {
	UserID   string `json:"userId" binding:"required"`
	Endpoint string `json:"endpoint" binding:"required"`
}

type SendPushRequest struct {
	UserID string         `json:"userId" binding:"required"`
	Title  string         `json:"title" binding:"required"`
	Body   string         `json:"body"`
	Data   map[string]any `json:"data"`
}

type LinkTelegramRequest struct {
	UserID     string `json:"userId" binding:"required"`
	TelegramID string `json:"telegramId" binding:"required"`
}

// Pusher is implemented by delivery.PushSender.
type Pusher interface {
	SendPush(ctx context.Context, userID string, payload delivery.PushPayload) (*entity.PushResult, error)
}

type subscriptionService struct {
	userRepo repository.UserRepository
	subRepo  repository.SubscriptionRepository
	pusher   Pusher
}

// NewSubscriptionService creates the push subscription service. pusher is nil
// when web push is disabled.
func NewSubscriptionService(userRepo repository.UserRepository, subRepo repository.SubscriptionRepository, pusher Pusher) SubscriptionService {
	return &subscriptionService{
		userRepo: userRepo,
		subRepo:  subRepo,
		pusher:   pusher,
	}
}

func (s *subscriptionService) Subscribe(ctx context.Context, req *SubscribeRequest) (*entity.PushSubscription, error) {
	if _, err := s.userRepo.GetByID(ctx, req.UserID); err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	sub := &entity.PushSubscription{
		UserID:   req.UserID,
		Endpoint: req.Subscription.Endpoint,
		P256dh:   req.Subscription.Keys.P256dh,
		Auth:     req.Subscription.Keys.Auth,
	}
	if err := s.subRepo.Upsert(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to save subscription: %w", err)
	}
	return sub, nil
}

func (s *subscriptionService) Unsubscribe(ctx context.Context, req *UnsubscribeRequest) error {
	if err := s.subRepo.DeleteByUserAndEndpoint(ctx, req.UserID, req.Endpoint); err != nil {
		return fmt.Errorf("failed to remove subscription: %w", err)
	}
	return nil
}

func (s *subscriptionService) SendPush(ctx context.Context, req *SendPushRequest) (*entity.PushResult, error) {
	if s.pusher == nil {
		return nil, fmt.Errorf("web push: %w", entity.ErrChannelNotApplicable)
	}
	return s.pusher.SendPush(ctx, req.UserID, delivery.NewPushPayload(req.Title, req.Body, req.Data))
}

// LinkTelegram stores the chat id telegram reminders go to.
func (s *subscriptionService) LinkTelegram(ctx context.Context, req *LinkTelegramRequest) error {
	if _, err := strconv.ParseInt(req.TelegramID, 10, 64); err != nil {
		return fmt.Errorf("%w: telegram id must be a numeric chat id", entity.ErrInvalidInput)
	}
	if err := s.userRepo.UpdateTelegramID(ctx, req.UserID, req.TelegramID); err != nil {
		return fmt.Errorf("failed to link telegram: %w", err)
	}
	return nil
}
