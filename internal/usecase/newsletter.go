package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/naka-gawa/trending-digest/internal/digest"
	"github.com/naka-gawa/trending-digest/internal/domain"
	"github.com/naka-gawa/trending-digest/internal/gateway"
	"golang.org/x/sync/errgroup"
)

// DigestStore is the subset of the store the newsletter reads from.
type DigestStore interface {
	ListActiveSubscribers(ctx context.Context) ([]domain.Subscriber, error)
	ListDailyAnalysesSince(ctx context.Context, since string) ([]domain.DailyAnalysis, error)
}

// NewsletterOptions configures the weekly dispatch.
type NewsletterOptions struct {
	SenderEmail string
	// PublicBaseURL is the externally reachable API origin used in unsubscribe links.
	PublicBaseURL string
	// LookbackDays is how many days of analyses the digest covers.
	LookbackDays int
	// Concurrency is the number of sends in flight. 1 sends strictly in order.
	Concurrency int
}

// DeliveryReport summarizes one newsletter batch.
type DeliveryReport struct {
	Delivered int      `json:"delivered"`
	Total     int      `json:"total"`
	Failed    []string `json:"failed,omitempty"`
	Skipped   string   `json:"skipped,omitempty"`
}

// Dispatcher renders the weekly digest and mails it to every active subscriber.
type Dispatcher struct {
	store    DigestStore
	mailer   gateway.Mailer
	renderer *digest.Renderer
	opts     NewsletterOptions
	logger   *slog.Logger
	now      func() time.Time
}

// NewDispatcher creates a new Dispatcher instance.
func NewDispatcher(store DigestStore, mailer gateway.Mailer, renderer *digest.Renderer, opts NewsletterOptions, logger *slog.Logger) *Dispatcher {
	if opts.LookbackDays <= 0 {
		opts.LookbackDays = 7
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	return &Dispatcher{
		store:    store,
		mailer:   mailer,
		renderer: renderer,
		opts:     opts,
		logger:   logger,
		now:      time.Now,
	}
}

// UnsubscribeURL builds the link that unsubscribes the holder of token.
func UnsubscribeURL(baseURL, token string) string {
	return strings.TrimRight(baseURL, "/") + "/api/unsubscribe?token=" + url.QueryEscape(token)
}

// SendWeekly mails the digest of the last LookbackDays to each active subscriber.
// A failed send is logged and counted; it never stops the batch and is not retried.
func (d *Dispatcher) SendWeekly(ctx context.Context) (*DeliveryReport, error) {
	subscribers, err := d.store.ListActiveSubscribers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load subscribers: %w", err)
	}
	if len(subscribers) == 0 {
		d.logger.Info("no active subscribers, skipping newsletter")
		return &DeliveryReport{Skipped: "no active subscribers"}, nil
	}

	today := d.now().UTC()
	since := today.AddDate(0, 0, -d.opts.LookbackDays).Format(domain.DateLayout)
	days, err := d.store.ListDailyAnalysesSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load analyses: %w", err)
	}
	if len(days) == 0 {
		d.logger.Info("no analyses in window, skipping newsletter", "since", since)
		return &DeliveryReport{Skipped: "no analyses in window"}, nil
	}

	body, err := d.renderer.WeeklyDigest(days)
	if err != nil {
		return nil, err
	}
	site := d.renderer.Site()
	subject := fmt.Sprintf("%s - Week of %s", site.Name, today.Format(domain.DateLayout))
	from := fmt.Sprintf("%s <%s>", site.Name, d.opts.SenderEmail)

	report := &DeliveryReport{Total: len(subscribers)}
	var mu sync.Mutex

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(d.opts.Concurrency)
	for _, sub := range subscribers {
		eg.Go(func() error {
			unsubscribeURL := UnsubscribeURL(d.opts.PublicBaseURL, sub.Token)
			err := d.mailer.Send(egCtx, &gateway.Email{
				From:    from,
				To:      sub.Email,
				Subject: subject,
				HTML:    digest.Personalize(body, unsubscribeURL),
				Headers: map[string]string{"List-Unsubscribe": "<" + unsubscribeURL + ">"},
			})

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				d.logger.Error("failed to send newsletter", "email", sub.Email, "error", err)
				report.Failed = append(report.Failed, sub.Email)
				return nil
			}
			report.Delivered++
			return nil
		})
	}
	// Workers never return an error; failures are recorded per recipient.
	_ = eg.Wait()

	sort.Strings(report.Failed)
	d.logger.Info("newsletter sent", "delivered", report.Delivered, "total", report.Total, "days", len(days))
	return report, nil
}
