package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Temutjin2k/droply/internal/domain/models"
)

type EventRepo struct {
	db *pgxpool.Pool
}

func NewEventRepo(db *pgxpool.Pool) *EventRepo {
	return &EventRepo{db: db}
}

// CreateEvent inserts a new package event into the database.
func (r *EventRepo) CreateEvent(ctx context.Context, rec models.PackageEventRecord) (err error) {
	defer recordQuery("package_event_insert", time.Now(), &err)
	q := TxorDB(ctx, r.db)

	data := rec.EventData
	if len(data) == 0 {
		data = []byte("{}")
	}

	query := `INSERT INTO package_events (package_id, event_type, actor_id, event_data)
			  VALUES ($1, $2, $3, $4);`

	if _, err := q.Exec(ctx, query, rec.PackageID, rec.EventType.String(), rec.ActorID, data); err != nil {
		return fmt.Errorf("event repo: CreateEvent: %w", err)
	}
	return nil
}
