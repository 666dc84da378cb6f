package converter

import "time"

// VerificationModel представляет запись таблицы verifications в PostgreSQL.
type VerificationModel struct {
	ID             string    `db:"id"`
	QueryKey       *string   `db:"query_key"`
	BestMatchID    string    `db:"best_match_id"`
	BestMatchKey   string    `db:"best_match_key"`
	Score          float64   `db:"score"`
	IsMatch        bool      `db:"is_match"`
	Threshold      float64   `db:"threshold"`
	ModelVersion   string    `db:"model_version"`
	ReferenceCount int       `db:"reference_count"`
	CreatedAt      time.Time `db:"created_at"`
}

// OutboxEventModel представляет запись таблицы outbox_events в PostgreSQL.
type OutboxEventModel struct {
	ID             int64      `db:"id"`
	EventID        string     `db:"event_id"`
	EventType      string     `db:"event_type"`
	VerificationID string     `db:"verification_id"`
	Payload        []byte     `db:"payload"`
	Status         string     `db:"status"`
	CreatedAt      time.Time  `db:"created_at"`
	ProcessedAt    *time.Time `db:"processed_at"`
}
