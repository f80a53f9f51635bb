package queue

import (
	"context"
	"errors"
	"fmt"

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

type queueRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &queueRepoPG{pool: pool}
}

func (r *queueRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

func (r *queueRepoPG) ReplaceForEncounter(ctx context.Context, encounterID uuid.UUID, rows []*ProjectionRow) error {
	return db.RunInTx(ctx, func(ctx context.Context) error {
		if err := r.DeleteForEncounter(ctx, encounterID); err != nil {
			return err
		}
		for _, row := range rows {
			_, err := r.conn(ctx).Exec(ctx, `
				INSERT INTO queue_projection (encounter_id, dashboard, facility_id, patient_id,
					patient_summary, vitals_summary, stage, stage_entered_at, wait_minutes,
					routing_status, consultation_payment_status, overall_payment_status,
					has_unpaid_items, refreshed_at)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
				row.EncounterID, row.Dashboard, row.FacilityID, row.PatientID,
				row.PatientSummary, row.VitalsSummary, row.Stage, row.StageEnteredAt,
				row.WaitMinutes, row.RoutingStatus,
				row.PaymentSummary.ConsultationPaymentStatus,
				row.PaymentSummary.OverallPaymentStatus,
				row.PaymentSummary.HasUnpaidItems, row.RefreshedAt)
			if err != nil {
				return fmt.Errorf("insert projection row: %w", err)
			}
		}
		return nil
	})
}

func (r *queueRepoPG) DeleteForEncounter(ctx context.Context, encounterID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM queue_projection WHERE encounter_id = $1`, encounterID)
	return err
}

func (r *queueRepoPG) ListByDashboard(ctx context.Context, dashboard Dashboard, facilityID uuid.UUID) ([]*ProjectionRow, error) {
	query := `
		SELECT encounter_id, dashboard, facility_id, patient_id, patient_summary,
			vitals_summary, stage, stage_entered_at, wait_minutes, routing_status,
			consultation_payment_status, overall_payment_status, has_unpaid_items, refreshed_at
		FROM queue_projection WHERE dashboard = $1`
	args := []interface{}{dashboard}
	if facilityID != uuid.Nil {
		query += ` AND facility_id = $2`
		args = append(args, facilityID)
	}
	query += ` ORDER BY stage_entered_at ASC`

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*ProjectionRow
	for rows.Next() {
		var p ProjectionRow
		err := rows.Scan(&p.EncounterID, &p.Dashboard, &p.FacilityID, &p.PatientID,
			&p.PatientSummary, &p.VitalsSummary, &p.Stage, &p.StageEnteredAt,
			&p.WaitMinutes, &p.RoutingStatus,
			&p.PaymentSummary.ConsultationPaymentStatus,
			&p.PaymentSummary.OverallPaymentStatus,
			&p.PaymentSummary.HasUnpaidItems, &p.RefreshedAt)
		if err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

func (r *queueRepoPG) LoadSummaries(ctx context.Context, encounterID uuid.UUID) (string, string, error) {
	var patient, vitals *string
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT
			(SELECT p.full_name || ' (' || COALESCE(p.mrn, '-') || ')'
			 FROM patient p JOIN encounter e ON e.patient_id = p.id
			 WHERE e.id = $1),
			(SELECT 'BP ' || v.systolic || '/' || v.diastolic || ' T ' || v.temperature
			 FROM vitals v WHERE v.encounter_id = $1
			 ORDER BY v.recorded_at DESC LIMIT 1)`, encounterID).Scan(&patient, &vitals)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", "", nil
	}
	if err != nil {
		return "", "", err
	}
	deref := func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	}
	return deref(patient), deref(vitals), nil
}
