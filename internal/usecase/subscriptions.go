package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/naka-gawa/trending-digest/internal/domain"
	"github.com/naka-gawa/trending-digest/internal/store"
)

// UnsubscribeOutcome distinguishes the results an unsubscribe link can have.
type UnsubscribeOutcome int

const (
	Unsubscribed UnsubscribeOutcome = iota
	UnsubscribeAlreadyDone
	UnsubscribeInvalidLink
)

// SubscriberStore is the subset of the store the registry uses.
type SubscriberStore interface {
	CreateSubscriber(ctx context.Context, sub *domain.Subscriber) error
	GetSubscriberByToken(ctx context.Context, token string) (*domain.Subscriber, error)
	Unsubscribe(ctx context.Context, token string, at time.Time) (bool, error)
}

// Registry manages newsletter signups and unsubscribes.
type Registry struct {
	store  SubscriberStore
	logger *slog.Logger
	now    func() time.Time
}

// NewRegistry creates a new Registry instance.
func NewRegistry(store SubscriberStore, logger *slog.Logger) *Registry {
	return &Registry{store: store, logger: logger, now: time.Now}
}

// Subscribe registers email with a fresh unsubscribe token. It returns
// domain.ErrInvalidEmail for a malformed address and domain.ErrAlreadySubscribed
// when the address has ever been registered.
func (r *Registry) Subscribe(ctx context.Context, rawEmail string) (*domain.Subscriber, error) {
	email, err := domain.NormalizeEmail(rawEmail)
	if err != nil {
		return nil, err
	}
	sub := &domain.Subscriber{
		Email:     email,
		Token:     uuid.NewString(),
		Status:    domain.StatusActive,
		CreatedAt: r.now().UTC(),
	}
	if err := r.store.CreateSubscriber(ctx, sub); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, fmt.Errorf("%w: %s", domain.ErrAlreadySubscribed, email)
		}
		return nil, fmt.Errorf("failed to create subscriber: %w", err)
	}
	r.logger.Info("subscriber added", "email", email)
	return sub, nil
}

// Unsubscribe deactivates the subscriber holding token.
func (r *Registry) Unsubscribe(ctx context.Context, token string) (UnsubscribeOutcome, error) {
	if token == "" {
		return UnsubscribeInvalidLink, nil
	}
	changed, err := r.store.Unsubscribe(ctx, token, r.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to unsubscribe: %w", err)
	}
	if changed {
		r.logger.Info("subscriber removed")
		return Unsubscribed, nil
	}

	if _, err := r.store.GetSubscriberByToken(ctx, token); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return UnsubscribeInvalidLink, nil
		}
		return 0, fmt.Errorf("failed to look up subscriber: %w", err)
	}
	return UnsubscribeAlreadyDone, nil
}
