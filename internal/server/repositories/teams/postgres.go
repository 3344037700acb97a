// Package teams provides the PostgreSQL repository for teams.
package teams

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/flagkeeper/internal/common"
	"github.com/dmitrijs2005/flagkeeper/internal/dbx"
	"github.com/dmitrijs2005/flagkeeper/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const selectTeam = `SELECT id, name, captain_id, invite_code, created_at FROM teams`

// Create inserts team. A taken name (or, improbably, invite code) yields
// common.ErrorAlreadyExists.
func (r *PostgresRepository) Create(ctx context.Context, team *models.Team) (*models.Team, error) {
	query := `
		INSERT INTO teams (name, captain_id, invite_code)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query, team.Name, team.CaptainID, team.InviteCode).
		Scan(&team.ID, &team.CreatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return team, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Team, error) {
	return r.getOne(ctx, selectTeam+` WHERE id = $1`, id)
}

func (r *PostgresRepository) GetByInviteCode(ctx context.Context, code string) (*models.Team, error) {
	return r.getOne(ctx, selectTeam+` WHERE invite_code = $1`, code)
}

func (r *PostgresRepository) getOne(ctx context.Context, query, arg string) (*models.Team, error) {
	t := &models.Team{}
	var captain sql.NullString
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&t.ID, &t.Name, &captain, &t.InviteCode, &t.CreatedAt)
	if err != nil {
		// a malformed id or code cannot name a team
		if errors.Is(err, sql.ErrNoRows) || dbx.IsInvalidText(err) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if captain.Valid {
		t.CaptainID = &captain.String
	}
	return t, nil
}

func (r *PostgresRepository) SetCaptain(ctx context.Context, teamID string, captainID *string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE teams SET captain_id = $2 WHERE id = $1`, teamID, captainID)
	if dbx.IsInvalidText(err) {
		return common.ErrorNotFound
	}
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

// List returns every team with its member count and score, by name.
func (r *PostgresRepository) List(ctx context.Context) ([]models.TeamSummary, error) {
	query := `
		SELECT t.id, t.name,
		       (SELECT COUNT(*) FROM users u WHERE u.team_id = t.id),
		       (SELECT COALESCE(SUM(s.points_awarded), 0) FROM solves s WHERE s.team_id = t.id)
		FROM teams t
		ORDER BY t.name
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []models.TeamSummary
	for rows.Next() {
		var s models.TeamSummary
		if err := rows.Scan(&s.ID, &s.Name, &s.Members, &s.Score); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}
