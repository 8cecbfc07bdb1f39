package models

import "time"

// Subscription is one device's push registration. The endpoint is unique: the
// same device re-registering replaces its previous row.
type Subscription struct {
	ID        int64            `json:"id"`
	Player    string           `json:"player"`
	Endpoint  string           `json:"endpoint"`
	Keys      SubscriptionKeys `json:"keys"`
	CreatedAt time.Time        `json:"createdAt"`
}

// SubscriptionKeys carries the browser-generated encryption material for one
// push endpoint. Opaque to everything except the delivery transport.
type SubscriptionKeys struct {
	P256dh string `json:"p256dh"`
	Auth   string `json:"auth"`
}
