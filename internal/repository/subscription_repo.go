package repository

import (
	"database/sql"
	"time"

	"sabeo/internal/database"
	"sabeo/internal/models"
)

// SubscriptionRepository handles push subscription database operations
type SubscriptionRepository struct {
	db *database.DB
}

// NewSubscriptionRepository creates a new subscription repository
func NewSubscriptionRepository(db *database.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// Create stores a device registration. A device re-registering the same
// endpoint replaces its previous row, so stale keys never linger.
func (r *SubscriptionRepository) Create(sub *models.Subscription) error {
	if err := r.DeleteByEndpoint(sub.Endpoint); err != nil {
		return err
	}

	query := `
		INSERT INTO subscriptions (player, endpoint, p256dh, auth, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	id, err := r.db.ExecReturningID(query, sub.Player, sub.Endpoint, sub.Keys.P256dh, sub.Keys.Auth, time.Now().UTC())
	if err != nil {
		return err
	}

	sub.ID = id
	return nil
}

// DeleteByEndpoint removes a subscription; used on unsubscribe and when the
// push service reports the endpoint permanently gone.
func (r *SubscriptionRepository) DeleteByEndpoint(endpoint string) error {
	query := "DELETE FROM subscriptions WHERE endpoint = ?"
	_, err := r.db.Exec(query, endpoint)
	return err
}

// All retrieves every stored subscription
func (r *SubscriptionRepository) All() ([]models.Subscription, error) {
	query := `
		SELECT id, player, endpoint, p256dh, auth, created_at
		FROM subscriptions
		ORDER BY id ASC
	`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSubscriptions(rows)
}

// ByPlayer retrieves the subscriptions owned by one player
func (r *SubscriptionRepository) ByPlayer(player string) ([]models.Subscription, error) {
	query := `
		SELECT id, player, endpoint, p256dh, auth, created_at
		FROM subscriptions
		WHERE player = ?
		ORDER BY id ASC
	`
	rows, err := r.db.Query(query, player)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSubscriptions(rows)
}

func scanSubscriptions(rows *sql.Rows) ([]models.Subscription, error) {
	var subs []models.Subscription
	for rows.Next() {
		var sub models.Subscription
		err := rows.Scan(
			&sub.ID,
			&sub.Player,
			&sub.Endpoint,
			&sub.Keys.P256dh,
			&sub.Keys.Auth,
			&sub.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}
