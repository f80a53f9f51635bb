package billing

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zelalemgb/linkclinic/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type billingRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &billingRepoPG{pool: pool}
}

func (r *billingRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const itemCols = `id, encounter_id, facility_id, kind, description, amount,
	payment_status, settled_at, settled_by, created_at, updated_at`

func scanItem(row pgx.Row) (*ChargeableLineItem, error) {
	var it ChargeableLineItem
	err := row.Scan(&it.ID, &it.EncounterID, &it.FacilityID, &it.Kind, &it.Description,
		&it.Amount, &it.PaymentStatus, &it.SettledAt, &it.SettledBy, &it.CreatedAt, &it.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &it, err
}

func (r *billingRepoPG) Create(ctx context.Context, item *ChargeableLineItem) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO chargeable_line_item (id, encounter_id, facility_id, kind, description, amount, payment_status)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		item.ID, item.EncounterID, item.FacilityID, item.Kind, item.Description, item.Amount, item.PaymentStatus)
	return err
}

func (r *billingRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*ChargeableLineItem, error) {
	return scanItem(r.conn(ctx).QueryRow(ctx, `SELECT `+itemCols+` FROM chargeable_line_item WHERE id = $1`, id))
}

func (r *billingRepoPG) ListByEncounter(ctx context.Context, encounterID uuid.UUID) ([]*ChargeableLineItem, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+itemCols+` FROM chargeable_line_item
		WHERE encounter_id = $1 ORDER BY created_at ASC`, encounterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*ChargeableLineItem
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *billingRepoPG) SetStatus(ctx context.Context, id uuid.UUID, status PaymentStatus, settledAt *time.Time, settledBy *string) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE chargeable_line_item
		SET payment_status = $2, settled_at = $3, settled_by = $4, updated_at = NOW()
		WHERE id = $1`,
		id, status, settledAt, settledBy)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *billingRepoPG) AddToEncounterTotal(ctx context.Context, encounterID uuid.UUID, amount float64) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE encounter SET total_charged = total_charged + $2, updated_at = NOW()
		WHERE id = $1`, encounterID, amount)
	return err
}
