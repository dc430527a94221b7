// README: Append-only journal of status transitions, backed by PostgreSQL.
package order

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Journal records status transitions for audit. Appends are best-effort; the
// coordinator never blocks an assignment on the journal.
type Journal interface {
	Append(ctx context.Context, e Event) error
}

type PGJournal struct {
	db *pgxpool.Pool
}

func NewPGJournal(db *pgxpool.Pool) *PGJournal {
	return &PGJournal{db: db}
}

func (j *PGJournal) Append(ctx context.Context, e Event) error {
	var actorID *string
	if e.ActorID != nil {
		v := string(*e.ActorID)
		actorID = &v
	}
	_, err := j.db.Exec(ctx, `
        INSERT INTO order_state_events (
            order_id, from_status, to_status, actor_type, actor_id, created_at
        ) VALUES ($1, $2, $3, $4, $5, $6)`,
		string(e.OrderID),
		string(e.FromStatus),
		string(e.ToStatus),
		e.ActorType,
		actorID,
		e.CreatedAt,
	)
	return err
}

// NopJournal is used when no database is configured.
type NopJournal struct{}

func (NopJournal) Append(context.Context, Event) error { return nil }
