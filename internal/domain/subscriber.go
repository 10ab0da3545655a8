package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// SubscriberStatus is the lifecycle state of a subscriber. It only moves from active to unsubscribed.
type SubscriberStatus string

const (
	StatusActive       SubscriberStatus = "active"
	StatusUnsubscribed SubscriberStatus = "unsubscribed"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Subscriber is a newsletter recipient.
type Subscriber struct {
	ID             int64            `json:"id"`
	Email          string           `json:"email"`
	Token          string           `json:"-"`
	Status         SubscriberStatus `json:"status"`
	CreatedAt      time.Time        `json:"created_at"`
	UnsubscribedAt *time.Time       `json:"unsubscribed_at,omitempty"`
}

// NormalizeEmail trims and lowercases an address and checks its basic shape.
func NormalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if !emailPattern.MatchString(email) {
		return "", fmt.Errorf("%w: %q", ErrInvalidEmail, raw)
	}
	return email, nil
}
