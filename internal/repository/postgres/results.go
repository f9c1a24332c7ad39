package postgres

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"argus/internal/domain/results"
	"argus/pkg/errors"
)

// Compile-time check
var _ results.Repository = (*ResultRepository)(nil)

// ResultRepository implements results.Repository using sqlx. Each Replace
// runs the delete and the inserts in one transaction: a unit's output slice
// is either fully replaced or untouched.
type ResultRepository struct {
	db *sqlx.DB
}

// NewResultRepository creates a new result repository
func NewResultRepository(db *sqlx.DB) *ResultRepository {
	return &ResultRepository{db: db}
}

// ReplaceSelections replaces the strike selections for one unit
func (r *ResultRepository) ReplaceSelections(ctx context.Context, instrumentID string, baselineDate time.Time, rows []results.StrikeSelection) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`DELETE FROM strike_selections WHERE instrument_id = $1 AND baseline_date = $2`,
		instrumentID, baselineDate,
	)
	if err != nil {
		return errors.Wrap(err, "delete strike selections")
	}

	query := `
		INSERT INTO strike_selections (
			instrument_id, baseline_date, reference_value, strike_price,
			option_class, rank, distance, expiry_date, close_price,
			partial, run_timestamp
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	for _, row := range rows {
		_, err = tx.ExecContext(ctx, query,
			row.InstrumentID, row.BaselineDate, row.ReferenceValue, row.StrikePrice,
			row.OptionClass, row.Rank, row.Distance, row.ExpiryDate, row.ClosePrice,
			row.Partial, row.RunTimestamp,
		)
		if err != nil {
			return errors.Wrap(err, "insert strike selection")
		}
	}

	return tx.Commit()
}

// ReplaceReductionEvents replaces the reduction events for one unit
func (r *ResultRepository) ReplaceReductionEvents(ctx context.Context, instrumentID string, baselineDate time.Time, rows []results.ReductionEvent) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`DELETE FROM reduction_events WHERE instrument_id = $1 AND baseline_date = $2`,
		instrumentID, baselineDate,
	)
	if err != nil {
		return errors.Wrap(err, "delete reduction events")
	}

	query := `
		INSERT INTO reduction_events (
			instrument_id, strike_price, option_class, baseline_date,
			baseline_price, target_date, target_price, pct_change,
			run_timestamp
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	for _, row := range rows {
		_, err = tx.ExecContext(ctx, query,
			row.InstrumentID, row.StrikePrice, row.OptionClass, row.BaselineDate,
			row.BaselinePrice, row.TargetDate, row.TargetPrice, row.PctChange,
			row.RunTimestamp,
		)
		if err != nil {
			return errors.Wrap(err, "insert reduction event")
		}
	}

	return tx.Commit()
}

// GetSelections retrieves the persisted selections for one unit
func (r *ResultRepository) GetSelections(ctx context.Context, instrumentID string, baselineDate time.Time) ([]results.StrikeSelection, error) {
	var rows []results.StrikeSelection

	query := `
		SELECT * FROM strike_selections
		WHERE instrument_id = $1 AND baseline_date = $2
		ORDER BY option_class, rank`

	if err := r.db.SelectContext(ctx, &rows, query, instrumentID, baselineDate); err != nil {
		return nil, errors.Wrap(err, "select strike selections")
	}
	return rows, nil
}

// GetReductionEvents retrieves the persisted events for one unit
func (r *ResultRepository) GetReductionEvents(ctx context.Context, instrumentID string, baselineDate time.Time) ([]results.ReductionEvent, error) {
	var rows []results.ReductionEvent

	query := `
		SELECT * FROM reduction_events
		WHERE instrument_id = $1 AND baseline_date = $2
		ORDER BY target_date ASC`

	if err := r.db.SelectContext(ctx, &rows, query, instrumentID, baselineDate); err != nil {
		return nil, errors.Wrap(err, "select reduction events")
	}
	return rows, nil
}
