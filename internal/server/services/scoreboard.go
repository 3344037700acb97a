package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/dmitrijs2005/flagkeeper/internal/logging"
	"github.com/dmitrijs2005/flagkeeper/internal/server/models"
	"github.com/dmitrijs2005/flagkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/flagkeeper/internal/server/scorecache"
	"golang.org/x/sync/singleflight"
)

const (
	scoreboardKey = "scoreboard:v1"
	// bumped on every invalidation; boards are stored per generation
	scoreboardGenKey = "scoreboard:gen"
	// upper bound in case an invalidation is lost
	scoreboardTTL = 5 * time.Minute
)

type ScoreboardRow struct {
	Rank        int        `json:"rank"`
	TeamID      string     `json:"team_id"`
	TeamName    string     `json:"team_name"`
	Score       int        `json:"score"`
	LastSolveAt *time.Time `json:"last_solve_at,omitempty"`
	LastSolveBy *string    `json:"last_solve_by,omitempty"`
}

// ScoreboardService ranks teams from the ledger behind a read-through cache.
type ScoreboardService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	cache       scorecache.Cache
	logger      logging.Logger

	group singleflight.Group
}

func NewScoreboardService(db *sql.DB, m repomanager.RepositoryManager, cache scorecache.Cache, logger logging.Logger) *ScoreboardService {
	return &ScoreboardService{db: db, repomanager: m, cache: cache, logger: logger.With("module", "scoreboard")}
}

// Scoreboard returns the ranked board. Cache errors fall back to the ledger.
//
// Boards are cached under the generation current when the rebuild started,
// so a fill that races an Invalidate lands on a key nobody reads again.
func (s *ScoreboardService) Scoreboard(ctx context.Context) ([]ScoreboardRow, error) {
	key, cached := s.boardKey(ctx)
	if cached {
		b, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			s.logger.Warn(ctx, "scoreboard cache read failed", "error", err.Error())
		}
		if ok {
			var rows []ScoreboardRow
			if err := json.Unmarshal(b, &rows); err == nil {
				return rows, nil
			}
			s.logger.Warn(ctx, "scoreboard cache entry unreadable, rebuilding")
		}
	}

	// A caller going away must not fail the readers sharing this fill.
	fillCtx := context.WithoutCancel(ctx)
	v, err, _ := s.group.Do(key, func() (any, error) {
		return s.rebuild(fillCtx, key, cached)
	})
	if err != nil {
		return nil, err
	}
	return v.([]ScoreboardRow), nil
}

// Invalidate moves readers to a fresh generation. Failures are logged; the
// TTL bounds staleness.
func (s *ScoreboardService) Invalidate(ctx context.Context) {
	if _, err := s.cache.Incr(ctx, scoreboardGenKey); err != nil {
		s.logger.Warn(ctx, "scoreboard cache invalidation failed", "error", err.Error())
	}
}

// boardKey returns the cache key for the current generation. cached is false
// when the generation cannot be read and the cache must be bypassed.
func (s *ScoreboardService) boardKey(ctx context.Context) (key string, cached bool) {
	b, ok, err := s.cache.Get(ctx, scoreboardGenKey)
	if err != nil {
		s.logger.Warn(ctx, "scoreboard generation read failed", "error", err.Error())
		return scoreboardKey + ":uncached", false
	}
	var gen int64
	if ok {
		gen, err = strconv.ParseInt(string(b), 10, 64)
		if err != nil {
			s.logger.Warn(ctx, "scoreboard generation unreadable", "value", string(b))
			return scoreboardKey + ":uncached", false
		}
	}
	return generationKey(gen), true
}

func generationKey(gen int64) string {
	return scoreboardKey + ":" + strconv.FormatInt(gen, 10)
}

func (s *ScoreboardService) rebuild(ctx context.Context, key string, cached bool) ([]ScoreboardRow, error) {
	ctx, span := tracer.Start(ctx, "scoreboard.rebuild")
	defer span.End()

	standings, err := s.repomanager.Solves(s.db).Standings(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("error loading standings: %w", err)
	}
	rows := rankStandings(standings)
	if !cached {
		return rows, nil
	}

	b, err := json.Marshal(rows)
	if err == nil {
		err = s.cache.Set(ctx, key, b, scoreboardTTL)
	}
	if err != nil {
		s.logger.Warn(ctx, "scoreboard cache write failed", "error", err.Error())
	}
	return rows, nil
}

// rankStandings orders teams by score desc, earlier last solve, then name.
// Teams without solves follow every team with solves.
func rankStandings(in []models.TeamStanding) []ScoreboardRow {
	list := append([]models.TeamStanding(nil), in...)
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if (a.LastSolveAt == nil) != (b.LastSolveAt == nil) {
			return a.LastSolveAt != nil
		}
		if a.LastSolveAt == nil {
			return a.TeamName < b.TeamName
		}
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.LastSolveAt.Equal(*b.LastSolveAt) {
			return a.LastSolveAt.Before(*b.LastSolveAt)
		}
		return a.TeamName < b.TeamName
	})

	rows := make([]ScoreboardRow, len(list))
	for i, st := range list {
		rows[i] = ScoreboardRow{
			Rank:        i + 1,
			TeamID:      st.TeamID,
			TeamName:    st.TeamName,
			Score:       st.Score,
			LastSolveAt: st.LastSolveAt,
			LastSolveBy: st.LastSolveBy,
		}
		if st.LastSolveAt == nil {
			rows[i].Score = 0
		}
	}
	return rows
}
