// Package solves provides the PostgreSQL solve ledger.
package solves

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

func (r *PostgresRepository) LockChallenge(ctx context.Context, challengeID string) error {
	if _, err := r.db.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, challengeID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Find(ctx context.Context, teamID, challengeID string) (*models.Solve, error) {
	query := `
		SELECT id, team_id, challenge_id, user_id, points_awarded, created_at
		FROM solves
		WHERE team_id = $1 AND challenge_id = $2
	`
	s := &models.Solve{}
	var userID sql.NullString
	err := r.db.QueryRowContext(ctx, query, teamID, challengeID).
		Scan(&s.ID, &s.TeamID, &s.ChallengeID, &userID, &s.PointsAwarded, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if userID.Valid {
		s.UserID = &userID.String
	}
	return s, nil
}

func (r *PostgresRepository) CountByChallenge(ctx context.Context, challengeID string) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM solves WHERE challenge_id = $1`, challengeID).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) CountsByChallenge(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT challenge_id, COUNT(*) FROM solves GROUP BY challenge_id`)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out[id] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) Create(ctx context.Context, solve *models.Solve) (bool, error) {
	query := `
		INSERT INTO solves (team_id, challenge_id, user_id, points_awarded)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (team_id, challenge_id) DO NOTHING
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query, solve.TeamID, solve.ChallengeID, solve.UserID, solve.PointsAwarded).
		Scan(&solve.ID, &solve.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("db error: %w", err)
	}
	return true, nil
}

func (r *PostgresRepository) ListByTeam(ctx context.Context, teamID string) ([]*models.Solve, error) {
	query := `
		SELECT id, team_id, challenge_id, user_id, points_awarded, created_at
		FROM solves
		WHERE team_id = $1
		ORDER BY created_at, id
	`
	rows, err := r.db.QueryContext(ctx, query, teamID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*models.Solve
	for rows.Next() {
		s := &models.Solve{}
		var userID sql.NullString
		if err := rows.Scan(&s.ID, &s.TeamID, &s.ChallengeID, &userID, &s.PointsAwarded, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		if userID.Valid {
			s.UserID = &userID.String
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) TeamScore(ctx context.Context, teamID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(points_awarded), 0) FROM solves WHERE team_id = $1`, teamID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

// Standings returns one aggregate per team, including teams without
// solves. Ordering is left to the caller.
func (r *PostgresRepository) Standings(ctx context.Context) ([]models.TeamStanding, error) {
	query := `
		SELECT t.id, t.name, COALESCE(agg.score, 0), agg.last_solve_at, last.username
		FROM teams t
		LEFT JOIN (
			SELECT team_id, SUM(points_awarded) AS score, MAX(created_at) AS last_solve_at
			FROM solves
			GROUP BY team_id
		) agg ON agg.team_id = t.id
		LEFT JOIN LATERAL (
			SELECT u.username
			FROM solves s
			JOIN users u ON u.id = s.user_id
			WHERE s.team_id = t.id
			ORDER BY s.created_at DESC, s.id DESC
			LIMIT 1
		) last ON TRUE
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []models.TeamStanding
	for rows.Next() {
		var st models.TeamStanding
		var last sql.NullTime
		var by sql.NullString
		if err := rows.Scan(&st.TeamID, &st.TeamName, &st.Score, &last, &by); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		if last.Valid {
			t := last.Time
			st.LastSolveAt = &t
		}
		if by.Valid {
			st.LastSolveBy = &by.String
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}
