package encounter

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

type encounterRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &encounterRepoPG{pool: pool}
}

func (r *encounterRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const encounterCols = `id, patient_id, facility_id, current_stage, current_stage_entered_at,
	routing_status, consultation_fee, total_charged, created_at, updated_at`

func scanEncounter(row pgx.Row) (*Encounter, error) {
	var e Encounter
	err := row.Scan(&e.ID, &e.PatientID, &e.FacilityID, &e.CurrentStage, &e.StageEnteredAt,
		&e.RoutingStatus, &e.ConsultationFee, &e.TotalCharged, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &e, err
}

func (r *encounterRepoPG) Create(ctx context.Context, e *Encounter) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO encounter (id, patient_id, facility_id, current_stage,
			current_stage_entered_at, routing_status, consultation_fee, total_charged)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		e.ID, e.PatientID, e.FacilityID, e.CurrentStage,
		e.StageEnteredAt, e.RoutingStatus, e.ConsultationFee, e.TotalCharged)
	return err
}

func (r *encounterRepoPG) get(ctx context.Context, id, facilityID uuid.UUID, lock string) (*Encounter, error) {
	query := `SELECT ` + encounterCols + ` FROM encounter WHERE id = $1`
	args := []interface{}{id}
	if facilityID != uuid.Nil {
		query += ` AND facility_id = $2`
		args = append(args, facilityID)
	}
	query += lock
	e, err := scanEncounter(r.conn(ctx).QueryRow(ctx, query, args...))
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (r *encounterRepoPG) GetByID(ctx context.Context, id, facilityID uuid.UUID) (*Encounter, error) {
	return r.get(ctx, id, facilityID, ``)
}

func (r *encounterRepoPG) GetForUpdate(ctx context.Context, id, facilityID uuid.UUID) (*Encounter, error) {
	return r.get(ctx, id, facilityID, ` FOR UPDATE`)
}

func (r *encounterRepoPG) UpdateStage(ctx context.Context, id uuid.UUID, expected, next Stage, enteredAt time.Time, routing RoutingStatus) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE encounter
		SET current_stage = $3, current_stage_entered_at = $4, routing_status = $5, updated_at = NOW()
		WHERE id = $1 AND current_stage = $2`,
		id, expected, next, enteredAt, routing)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *encounterRepoPG) SetRoutingStatus(ctx context.Context, id uuid.UUID, status RoutingStatus) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE encounter SET routing_status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *encounterRepoPG) ListActiveByFacility(ctx context.Context, facilityID uuid.UUID) ([]*Encounter, error) {
	query := `SELECT ` + encounterCols + ` FROM encounter
		WHERE current_stage NOT IN ($1, $2)`
	args := []interface{}{StageDischarged, StageCancelled}
	if facilityID != uuid.Nil {
		query += ` AND facility_id = $3`
		args = append(args, facilityID)
	}
	query += ` ORDER BY current_stage_entered_at ASC`
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Encounter
	for rows.Next() {
		e, err := scanEncounter(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

const timelineCols = `id, encounter_id, stage, arrived_at, completed_at, completed_by, wait_minutes`

func scanTimelineEntry(row pgx.Row) (*TimelineEntry, error) {
	var t TimelineEntry
	err := row.Scan(&t.ID, &t.EncounterID, &t.Stage, &t.ArrivedAt,
		&t.CompletedAt, &t.CompletedBy, &t.WaitMinutes)
	return &t, err
}

func (r *encounterRepoPG) OpenEntry(ctx context.Context, encounterID uuid.UUID) (*TimelineEntry, error) {
	t, err := scanTimelineEntry(r.conn(ctx).QueryRow(ctx, `
		SELECT `+timelineCols+` FROM encounter_timeline
		WHERE encounter_id = $1 AND completed_at IS NULL
		ORDER BY arrived_at DESC LIMIT 1`, encounterID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *encounterRepoPG) HasEntries(ctx context.Context, encounterID uuid.UUID) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM encounter_timeline WHERE encounter_id = $1)`, encounterID).Scan(&exists)
	return exists, err
}

func (r *encounterRepoPG) CloseEntry(ctx context.Context, entryID uuid.UUID, completedAt time.Time, completedBy *string, waitMinutes int) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE encounter_timeline
		SET completed_at = $2, completed_by = $3, wait_minutes = $4
		WHERE id = $1 AND completed_at IS NULL`,
		entryID, completedAt, completedBy, waitMinutes)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *encounterRepoPG) AppendEntry(ctx context.Context, entry *TimelineEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO encounter_timeline (id, encounter_id, stage, arrived_at, completed_at, completed_by, wait_minutes)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		entry.ID, entry.EncounterID, entry.Stage, entry.ArrivedAt,
		entry.CompletedAt, entry.CompletedBy, entry.WaitMinutes)
	return err
}

func (r *encounterRepoPG) Timeline(ctx context.Context, encounterID uuid.UUID) ([]*TimelineEntry, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+timelineCols+` FROM encounter_timeline
		WHERE encounter_id = $1 ORDER BY arrived_at ASC`, encounterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*TimelineEntry
	for rows.Next() {
		t, err := scanTimelineEntry(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

const eventCols = `id, encounter_id, previous_stage, new_stage, actor, occurred_at, context`

func scanEvent(row pgx.Row) (*StageTransitionEvent, error) {
	var ev StageTransitionEvent
	err := row.Scan(&ev.ID, &ev.EncounterID, &ev.PreviousStage, &ev.NewStage,
		&ev.Actor, &ev.OccurredAt, &ev.Context)
	return &ev, err
}

func (r *encounterRepoPG) AppendEvent(ctx context.Context, ev *StageTransitionEvent) error {
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO stage_transition_event (id, encounter_id, previous_stage, new_stage, actor, occurred_at, context)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		ev.ID, ev.EncounterID, ev.PreviousStage, ev.NewStage, ev.Actor, ev.OccurredAt, ev.Context)
	return err
}

func (r *encounterRepoPG) LatestEvent(ctx context.Context, encounterID uuid.UUID) (*StageTransitionEvent, error) {
	ev, err := scanEvent(r.conn(ctx).QueryRow(ctx, `
		SELECT `+eventCols+` FROM stage_transition_event
		WHERE encounter_id = $1 ORDER BY occurred_at DESC, id DESC LIMIT 1`, encounterID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return ev, nil
}

func (r *encounterRepoPG) Events(ctx context.Context, encounterID uuid.UUID) ([]*StageTransitionEvent, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+eventCols+` FROM stage_transition_event
		WHERE encounter_id = $1 ORDER BY occurred_at ASC, id ASC`, encounterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*StageTransitionEvent
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, ev)
	}
	return items, rows.Err()
}
