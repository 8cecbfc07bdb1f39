package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"sabeo/internal/models"
)

// SubscriptionStore is the device-registration persistence contract.
type SubscriptionStore interface {
	All() ([]models.Subscription, error)
	ByPlayer(player string) ([]models.Subscription, error)
	DeleteByEndpoint(endpoint string) error
}

// DeliveryService attempts best-effort delivery of one payload to one
// subscription. Implementations return ErrSubscriptionGone when the push
// service reports the endpoint permanently dead.
type DeliveryService interface {
	Send(ctx context.Context, sub models.Subscription, payload []byte) error
}

// ErrSubscriptionGone marks an endpoint the push service will never deliver
// to again; the notifier drops its registration.
var ErrSubscriptionGone = errors.New("subscription endpoint gone")

// ErrNoRecipients is reported when a broadcast finds no registered devices.
// Not a failure of the reveal; the challenge is started either way.
var ErrNoRecipients = errors.New("no subscriptions to notify")

// BroadcastRequest describes one notification send.
type BroadcastRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Icon  string `json:"icon,omitempty"`

	// Player limits the broadcast to one player's devices (manual/test sends).
	// Empty means everyone.
	Player string `json:"-"`
}

// BroadcastReport aggregates per-subscription outcomes. Used for logging only;
// delivery failures never gate the reveal.
type BroadcastReport struct {
	Recipients int `json:"recipients"`
	Delivered  int `json:"delivered"`
	Failed     int `json:"failed"`
	Gone       int `json:"gone"`
}

func (r *BroadcastReport) String() string {
	return fmt.Sprintf("%d delivered, %d failed, %d gone of %d recipients",
		r.Delivered, r.Failed, r.Gone, r.Recipients)
}

// Notifier fans a notification out to every registered device. Deliveries run
// concurrently and independently; every one settles (success or failure)
// before the report is assembled. Detached broadcasts are tracked so the
// process can wait them out on shutdown instead of dropping in-flight work.
type Notifier struct {
	subscriptions SubscriptionStore
	delivery      DeliveryService
	timeout       time.Duration
	defaultIcon   string

	wg sync.WaitGroup
}

// NewNotifier creates a notifier. timeout bounds each individual delivery;
// zero means 30 seconds.
func NewNotifier(subscriptions SubscriptionStore, delivery DeliveryService, timeout time.Duration, defaultIcon string) *Notifier {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Notifier{
		subscriptions: subscriptions,
		delivery:      delivery,
		timeout:       timeout,
		defaultIcon:   defaultIcon,
	}
}

// Broadcast delivers to every matching subscription and settles all outcomes.
// Returns ErrNoRecipients when nothing is registered.
func (n *Notifier) Broadcast(ctx context.Context, req BroadcastRequest) (*BroadcastReport, error) {
	var subs []models.Subscription
	var err error
	if req.Player != "" {
		subs, err = n.subscriptions.ByPlayer(req.Player)
	} else {
		subs, err = n.subscriptions.All()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch subscriptions: %w", err)
	}

	if len(subs) == 0 {
		return &BroadcastReport{}, ErrNoRecipients
	}

	if req.Icon == "" {
		req.Icon = n.defaultIcon
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode notification payload: %w", err)
	}

	type outcome struct {
		endpoint string
		err      error
	}

	results := make(chan outcome, len(subs))
	var deliveries sync.WaitGroup
	for _, sub := range subs {
		deliveries.Add(1)
		go func(sub models.Subscription) {
			defer deliveries.Done()
			sendCtx, cancel := context.WithTimeout(ctx, n.timeout)
			defer cancel()
			results <- outcome{endpoint: sub.Endpoint, err: n.delivery.Send(sendCtx, sub, payload)}
		}(sub)
	}
	deliveries.Wait()
	close(results)

	report := &BroadcastReport{Recipients: len(subs)}
	for result := range results {
		switch {
		case result.err == nil:
			report.Delivered++
		case errors.Is(result.err, ErrSubscriptionGone):
			report.Gone++
			if err := n.subscriptions.DeleteByEndpoint(result.endpoint); err != nil {
				log.Printf("Failed to remove gone subscription %s: %v", result.endpoint, err)
			}
		default:
			report.Failed++
			log.Printf("Delivery to %s failed: %v", result.endpoint, result.err)
		}
	}

	return report, nil
}

// SendWelcome pushes a confirmation to a single freshly registered device.
func (n *Notifier) SendWelcome(ctx context.Context, sub models.Subscription, title, body string) error {
	payload, err := json.Marshal(BroadcastRequest{Title: title, Body: body, Icon: n.defaultIcon})
	if err != nil {
		return err
	}
	sendCtx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()
	return n.delivery.Send(sendCtx, sub, payload)
}

// Go runs fn on a tracked goroutine. The HTTP caller can return immediately;
// Wait blocks until every tracked broadcast has settled.
func (n *Notifier) Go(fn func(ctx context.Context)) {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		fn(context.Background())
	}()
}

// Wait blocks until all detached broadcasts finish. Called during shutdown so
// the process never exits with fan-out work outstanding.
func (n *Notifier) Wait() {
	n.wg.Wait()
}
