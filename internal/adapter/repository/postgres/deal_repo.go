package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/simaogato/dealflow-backend/internal/domain"
)

// dealRepository implements domain.DealRepository using PostgreSQL
type dealRepository struct {
	db *DB
}

// NewDealRepository creates a new PostgreSQL deal repository
func NewDealRepository(db *DB) domain.DealRepository {
	return &dealRepository{db: db}
}

const dealColumns = `id, company_name, stage, status,
	deal_size, valuation, raising_amount, confirmed_amount, revenue_amount,
	sourcing_meeting_booked_at, partner_review_started_at, close_date,
	created_at, updated_at`

const (
	insertDealQuery = `
		INSERT INTO deals (` + dealColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	insertFounderQuery = `
		INSERT INTO deal_founders (deal_id, position, name, email, bio, linkedin)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	getDealQuery = `SELECT ` + dealColumns + ` FROM deals WHERE id = $1`

	lockDealQuery = getDealQuery + ` FOR UPDATE`

	listDealsQuery = `SELECT ` + dealColumns + ` FROM deals ORDER BY created_at, id`

	listDealsByStatusQuery = `SELECT ` + dealColumns + ` FROM deals WHERE status = $1 ORDER BY created_at, id`

	listFoundersQuery = `
		SELECT deal_id, name, email, bio, linkedin
		FROM deal_founders
		WHERE deal_id = ANY($1::uuid[])
		ORDER BY deal_id, position
	`

	// Stamps are only ever filled, never overwritten or cleared
	updateStageQuery = `
		UPDATE deals
		SET stage = $2,
			sourcing_meeting_booked_at = COALESCE(sourcing_meeting_booked_at, $3),
			partner_review_started_at = COALESCE(partner_review_started_at, $4),
			close_date = COALESCE(close_date, $5),
			updated_at = $6
		WHERE id = $1
	`

	updateDetailsQuery = `
		UPDATE deals
		SET status = $2,
			deal_size = $3,
			valuation = $4,
			raising_amount = $5,
			confirmed_amount = $6,
			revenue_amount = $7,
			updated_at = $8
		WHERE id = $1
	`
)

// Create creates a new deal together with its founders
func (r *dealRepository) Create(ctx context.Context, deal *domain.Deal) error {
	if err := deal.Validate(); err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, insertDealQuery,
		deal.ID,
		deal.CompanyName,
		string(deal.Stage),
		string(deal.Status),
		nullDecimal(deal.DealSize),
		nullDecimal(deal.Valuation),
		nullDecimal(deal.RaisingAmount),
		nullDecimal(deal.ConfirmedAmount),
		nullDecimal(deal.RevenueAmount),
		nullTime(deal.SourcingMeetingBookedAt),
		nullTime(deal.PartnerReviewStartedAt),
		nullTime(deal.CloseDate),
		deal.CreatedAt,
		deal.UpdatedAt,
	)
	if err != nil {
		return mapWriteError(err, "create deal")
	}

	for i, f := range deal.Founders {
		if _, err := tx.ExecContext(ctx, insertFounderQuery, deal.ID, i, f.Name, f.Email, f.Bio, f.LinkedIn); err != nil {
			return fmt.Errorf("failed to create founder: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetByID retrieves a deal by its ID
func (r *dealRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Deal, error) {
	return getDeal(ctx, r.db, getDealQuery, id)
}

// List retrieves deals, optionally filtered by status
func (r *dealRepository) List(ctx context.Context, statusFilter domain.DealStatus) ([]*domain.Deal, error) {
	var rows *sql.Rows
	var err error
	if statusFilter != "" {
		rows, err = r.db.QueryContext(ctx, listDealsByStatusQuery, string(statusFilter))
	} else {
		rows, err = r.db.QueryContext(ctx, listDealsQuery)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list deals: %w", err)
	}
	defer rows.Close()

	deals := make([]*domain.Deal, 0)
	for rows.Next() {
		deal, err := scanDeal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan deal: %w", err)
		}
		deals = append(deals, deal)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating deals: %w", err)
	}

	if err := loadFounders(ctx, r.db, deals); err != nil {
		return nil, err
	}

	return deals, nil
}

// Transition locks the deal row with SELECT ... FOR UPDATE, applies fn to the
// locked state and writes the result before releasing the lock
func (r *dealRepository) Transition(ctx context.Context, id uuid.UUID, fn domain.TransitionFunc) (*domain.Deal, error) {
	return r.withLockedDeal(ctx, id, fn, func(tx *sql.Tx, next domain.Deal) error {
		_, err := tx.ExecContext(ctx, updateStageQuery,
			id,
			string(next.Stage),
			nullTime(next.SourcingMeetingBookedAt),
			nullTime(next.PartnerReviewStartedAt),
			nullTime(next.CloseDate),
			next.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to update deal stage: %w", err)
		}
		return nil
	})
}

// Update locks the deal row like Transition but writes status and financial fields
func (r *dealRepository) Update(ctx context.Context, id uuid.UUID, fn domain.TransitionFunc) (*domain.Deal, error) {
	return r.withLockedDeal(ctx, id, fn, func(tx *sql.Tx, next domain.Deal) error {
		if err := next.Validate(); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, updateDetailsQuery,
			id,
			string(next.Status),
			nullDecimal(next.DealSize),
			nullDecimal(next.Valuation),
			nullDecimal(next.RaisingAmount),
			nullDecimal(next.ConfirmedAmount),
			nullDecimal(next.RevenueAmount),
			next.UpdatedAt,
		)
		if err != nil {
			return mapWriteError(err, "update deal")
		}
		return nil
	})
}

// withLockedDeal runs fn on the row-locked deal and persists the result with write
// If fn or write fails the transaction is rolled back.
func (r *dealRepository) withLockedDeal(ctx context.Context, id uuid.UUID, fn domain.TransitionFunc, write func(*sql.Tx, domain.Deal) error) (*domain.Deal, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	current, err := getDeal(ctx, tx, lockDealQuery, id)
	if err != nil {
		return nil, err
	}

	next, err := fn(*current)
	if err != nil {
		return nil, err
	}

	if err := write(tx, next); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &next, nil
}

func getDeal(ctx context.Context, q querier, query string, id uuid.UUID) (*domain.Deal, error) {
	deal, err := scanDeal(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("deal %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get deal: %w", err)
	}

	if err := loadFounders(ctx, q, []*domain.Deal{deal}); err != nil {
		return nil, err
	}

	return deal, nil
}

func scanDeal(row rowScanner) (*domain.Deal, error) {
	var deal domain.Deal
	var stage, status string
	var dealSize, valuation, raising, confirmed, revenue decimal.NullDecimal
	var booked, review, closed sql.NullTime

	err := row.Scan(
		&deal.ID,
		&deal.CompanyName,
		&stage,
		&status,
		&dealSize,
		&valuation,
		&raising,
		&confirmed,
		&revenue,
		&booked,
		&review,
		&closed,
		&deal.CreatedAt,
		&deal.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	deal.Stage = domain.Stage(stage)
	deal.Status = domain.DealStatus(status)
	deal.DealSize = decimalPtr(dealSize)
	deal.Valuation = decimalPtr(valuation)
	deal.RaisingAmount = decimalPtr(raising)
	deal.ConfirmedAmount = decimalPtr(confirmed)
	deal.RevenueAmount = decimalPtr(revenue)
	deal.SourcingMeetingBookedAt = timePtr(booked)
	deal.PartnerReviewStartedAt = timePtr(review)
	deal.CloseDate = timePtr(closed)
	deal.Founders = []domain.Founder{}

	return &deal, nil
}

// loadFounders fills Founders for all deals with a single query
func loadFounders(ctx context.Context, q querier, deals []*domain.Deal) error {
	if len(deals) == 0 {
		return nil
	}

	byID := make(map[uuid.UUID]*domain.Deal, len(deals))
	ids := make([]string, 0, len(deals))
	for _, d := range deals {
		byID[d.ID] = d
		ids = append(ids, d.ID.String())
	}

	rows, err := q.QueryContext(ctx, listFoundersQuery, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to list founders: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var dealID uuid.UUID
		var f domain.Founder
		if err := rows.Scan(&dealID, &f.Name, &f.Email, &f.Bio, &f.LinkedIn); err != nil {
			return fmt.Errorf("failed to scan founder: %w", err)
		}
		if d, ok := byID[dealID]; ok {
			d.Founders = append(d.Founders, f)
		}
	}

	return rows.Err()
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func decimalPtr(d decimal.NullDecimal) *decimal.Decimal {
	if !d.Valid {
		return nil
	}
	v := d.Decimal
	return &v
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
