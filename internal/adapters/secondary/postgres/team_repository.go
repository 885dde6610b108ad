package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chiillbro/aether-incident-response-sub000/internal/core/ports"
)

// TeamRepository resolves team rosters.
type TeamRepository struct {
	pool *pgxpool.Pool
}

var _ ports.TeamRepository = (*TeamRepository)(nil)

func NewTeamRepository(pool *pgxpool.Pool) *TeamRepository {
	return &TeamRepository{pool: pool}
}

const fetchTeamMemberIDsSQL = `
SELECT id FROM users
WHERE team_id = $1 AND is_active
ORDER BY created_at, id`

const insertTeamSQL = `INSERT INTO teams (id, name) VALUES ($1, $2)`

// FetchTeamMemberIDs returns the active members of a team. An unknown team
// has no members.
func (r *TeamRepository) FetchTeamMemberIDs(ctx context.Context, teamID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := GetDBTX(ctx, r.pool).Query(ctx, fetchTeamMemberIDsSQL, teamID)
	if err != nil {
		return nil, fmt.Errorf("fetch team %s members: %w", teamID, err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, fmt.Errorf("scan team %s members: %w", teamID, err)
	}
	return ids, nil
}

// Create inserts a team and returns its id.
func (r *TeamRepository) Create(ctx context.Context, name string) (uuid.UUID, error) {
	id := uuid.New()
	if _, err := GetDBTX(ctx, r.pool).Exec(ctx, insertTeamSQL, id, name); err != nil {
		return uuid.Nil, fmt.Errorf("create team: %w", err)
	}
	return id, nil
}
