package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/naka-gawa/trending-digest/internal/domain"
)

const subscriberColumns = `id, email, token, status, created_at, unsubscribed_at`

// CreateSubscriber inserts sub and sets its ID. It returns ErrAlreadyExists when
// the email or token is taken, whatever the existing row's status.
func (db *SQLStore) CreateSubscriber(ctx context.Context, sub *domain.Subscriber) error {
	if sub.Status == "" {
		sub.Status = domain.StatusActive
	}
	err := db.conn.QueryRowContext(ctx, db.rebind(`
		INSERT INTO subscribers (email, token, status, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT DO NOTHING
		RETURNING id`),
		sub.Email, sub.Token, string(sub.Status), formatTime(sub.CreatedAt),
	).Scan(&sub.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert subscriber: %w", err)
	}
	return nil
}

func scanSubscriber(row rowScanner) (*domain.Subscriber, error) {
	var (
		s              domain.Subscriber
		status         string
		createdAt      string
		unsubscribedAt sql.NullString
	)
	if err := row.Scan(&s.ID, &s.Email, &s.Token, &status, &createdAt, &unsubscribedAt); err != nil {
		return nil, err
	}
	s.Status = domain.SubscriberStatus(status)
	s.CreatedAt = parseTime(createdAt)
	if unsubscribedAt.Valid {
		t := parseTime(unsubscribedAt.String)
		s.UnsubscribedAt = &t
	}
	return &s, nil
}

func (db *SQLStore) GetSubscriberByToken(ctx context.Context, token string) (*domain.Subscriber, error) {
	row := db.conn.QueryRowContext(ctx, db.rebind(`SELECT `+subscriberColumns+` FROM subscribers WHERE token = ?`), token)
	s, err := scanSubscriber(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return s, err
}

// Unsubscribe moves the active subscriber holding token to unsubscribed.
// It reports false when no active subscriber holds the token.
func (db *SQLStore) Unsubscribe(ctx context.Context, token string, at time.Time) (bool, error) {
	res, err := db.conn.ExecContext(ctx, db.rebind(`
		UPDATE subscribers SET status = ?, unsubscribed_at = ?
		WHERE token = ? AND status = ?`),
		string(domain.StatusUnsubscribed), formatTime(at), token, string(domain.StatusActive))
	if err != nil {
		return false, fmt.Errorf("unsubscribe: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("unsubscribe: %w", err)
	}
	return n > 0, nil
}

func (db *SQLStore) ListActiveSubscribers(ctx context.Context) ([]domain.Subscriber, error) {
	rows, err := db.conn.QueryContext(ctx, db.rebind(`
		SELECT `+subscriberColumns+` FROM subscribers WHERE status = ? ORDER BY id`), string(domain.StatusActive))
	if err != nil {
		return nil, fmt.Errorf("list active subscribers: %w", err)
	}
	defer rows.Close()

	var subs []domain.Subscriber
	for rows.Next() {
		s, err := scanSubscriber(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, *s)
	}
	return subs, rows.Err()
}
