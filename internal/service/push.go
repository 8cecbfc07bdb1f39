package service

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"

	"sabeo/internal/models"
)

// WebPushDelivery sends notifications through the Web Push protocol with
// VAPID authentication. When no key pair is configured the service runs
// disabled: sends are logged and skipped so the rest of the engine keeps
// working in development.
type WebPushDelivery struct {
	options webpush.Options
	enabled bool
}

// NewWebPushDelivery creates a delivery service from a VAPID key pair.
func NewWebPushDelivery(publicKey, privateKey, subscriber string) *WebPushDelivery {
	if publicKey == "" || privateKey == "" {
		log.Println("Push delivery disabled: VAPID keys not configured")
		return &WebPushDelivery{enabled: false}
	}

	return &WebPushDelivery{
		enabled: true,
		options: webpush.Options{
			Subscriber:      subscriber,
			VAPIDPublicKey:  publicKey,
			VAPIDPrivateKey: privateKey,
			TTL:             3600,
		},
	}
}

// Enabled reports whether deliveries actually go out.
func (d *WebPushDelivery) Enabled() bool {
	return d.enabled
}

// Send pushes one payload to one device. HTTP 404/410 from the push service
// mean the endpoint is permanently dead and map to ErrSubscriptionGone.
func (d *WebPushDelivery) Send(ctx context.Context, sub models.Subscription, payload []byte) error {
	if !d.enabled {
		log.Printf("Push delivery disabled, skipping send to %s", sub.Endpoint)
		return nil
	}

	target := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.Keys.P256dh,
			Auth:   sub.Keys.Auth,
		},
	}

	options := d.options
	resp, err := webpush.SendNotificationWithContext(ctx, payload, target, &options)
	if err != nil {
		return fmt.Errorf("push send failed: %w", err)
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return ErrSubscriptionGone
	case resp.StatusCode >= 400:
		return fmt.Errorf("push service returned status %d", resp.StatusCode)
	}

	return nil
}
