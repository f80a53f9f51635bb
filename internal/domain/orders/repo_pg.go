package orders

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zelalemgb/linkclinic/internal/domain/encounter"
	"github.com/zelalemgb/linkclinic/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type orderRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &orderRepoPG{pool: pool}
}

func (r *orderRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const orderCols = `id, encounter_id, kind, code, description, status, ordered_by, created_at, updated_at`

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.EncounterID, &o.Kind, &o.Code, &o.Description,
		&o.Status, &o.OrderedBy, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &o, err
}

func (r *orderRepoPG) Create(ctx context.Context, o *Order) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO clinical_order (id, encounter_id, kind, code, description, status, ordered_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		o.ID, o.EncounterID, o.Kind, o.Code, o.Description, o.Status, o.OrderedBy)
	return err
}

func (r *orderRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	return scanOrder(r.conn(ctx).QueryRow(ctx, `SELECT `+orderCols+` FROM clinical_order WHERE id = $1`, id))
}

func (r *orderRepoPG) ListByEncounter(ctx context.Context, encounterID uuid.UUID) ([]*Order, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+orderCols+` FROM clinical_order
		WHERE encounter_id = $1 ORDER BY created_at ASC`, encounterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, o)
	}
	return items, rows.Err()
}

func (r *orderRepoPG) ExistsPending(ctx context.Context, encounterID uuid.UUID, kind encounter.OrderKind) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM clinical_order
			WHERE encounter_id = $1 AND kind = $2 AND status = $3
		)`, encounterID, kind, StatusPending).Scan(&exists)
	return exists, err
}

func (r *orderRepoPG) SetStatus(ctx context.Context, id uuid.UUID, status OrderStatus) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE clinical_order SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
