package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/globalmoves/community/internal/logger"
	"github.com/globalmoves/community/internal/model"
)

const opportunityCols = `id, title, description, field, country, COALESCE(url,''), deadline, is_active, created_at`

// OpportunityRepository reads the opportunity catalog. The catalog is written
// by an external sync job only, this service never mutates it.
type OpportunityRepository struct {
	pool *pgxpool.Pool
}

func NewOpportunityRepository(pool *pgxpool.Pool) *OpportunityRepository {
	return &OpportunityRepository{pool: pool}
}

func scanOpportunity(s interface{ Scan(dest ...any) error }, o *model.Opportunity) error {
	return s.Scan(&o.ID, &o.Title, &o.Description, &o.Field, &o.Country, &o.URL, &o.Deadline, &o.IsActive, &o.CreatedAt)
}

func (r *OpportunityRepository) GetByID(ctx context.Context, id string) (*model.Opportunity, error) {
	defer logger.DeferLogDuration("opportunity.GetByID", time.Now())()
	o := &model.Opportunity{}
	row := r.pool.QueryRow(ctx, `SELECT `+opportunityCols+` FROM opportunities WHERE id = $1`, id)
	if err := scanOpportunity(row, o); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("opportunityRepo.GetByID: %w", err)
	}
	return o, nil
}

func (r *OpportunityRepository) ListActive(ctx context.Context) ([]model.Opportunity, error) {
	defer logger.DeferLogDuration("opportunity.ListActive", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT `+opportunityCols+` FROM opportunities WHERE is_active ORDER BY title`,
	)
	if err != nil {
		return nil, fmt.Errorf("opportunityRepo.ListActive query: %w", err)
	}
	defer rows.Close()

	out := make([]model.Opportunity, 0, 32)
	for rows.Next() {
		var o model.Opportunity
		if err := scanOpportunity(rows, &o); err != nil {
			return nil, fmt.Errorf("opportunityRepo.ListActive scan: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("opportunityRepo.ListActive rows: %w", err)
	}
	return out, nil
}
