package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dmitrijs2005/flagkeeper/internal/common"
	"github.com/dmitrijs2005/flagkeeper/internal/logging"
	"github.com/dmitrijs2005/flagkeeper/internal/server/challenges"
	"github.com/dmitrijs2005/flagkeeper/internal/server/repositories/repomanager"
)

// BoardEntry is one challenge as the player sees it on the board.
type BoardEntry struct {
	ID         string
	Title      string
	Category   string
	Value      int
	SolveCount int
	Solved     bool
	// Available is false when the challenge could not be priced.
	Available bool
}

type CategoryGroup struct {
	Category   string
	Challenges []BoardEntry
}

type TeamSolve struct {
	Points   int
	SolvedAt time.Time
}

type ChallengeDetail struct {
	BoardEntry
	DescriptionHTML string
	Author          string
	Hint            string
	Files           []string
	TeamSolve       *TeamSolve
}

// BoardService renders the challenge board with live values.
type BoardService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	challenges  ChallengeSource
	logger      logging.Logger
}

func NewBoardService(db *sql.DB, m repomanager.RepositoryManager, source ChallengeSource, logger logging.Logger) *BoardService {
	return &BoardService{db: db, repomanager: m, challenges: source, logger: logger.With("module", "board")}
}

// Board lists every challenge grouped by category, categories sorted.
func (s *BoardService) Board(ctx context.Context, userID string) ([]CategoryGroup, error) {
	counts, err := s.repomanager.Solves(s.db).CountsByChallenge(ctx)
	if err != nil {
		return nil, fmt.Errorf("error counting solves: %w", err)
	}
	solved, err := s.teamSolves(ctx, userID)
	if err != nil {
		return nil, err
	}

	groups := map[string]*CategoryGroup{}
	for _, ch := range s.challenges.List() {
		_, ok := solved[ch.Meta.ID]
		e := s.entry(ctx, ch, counts[ch.Meta.ID], ok)
		g, found := groups[e.Category]
		if !found {
			g = &CategoryGroup{Category: e.Category}
			groups[e.Category] = g
		}
		g.Challenges = append(g.Challenges, e)
	}

	out := make([]CategoryGroup, 0, len(groups))
	for _, g := range groups {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, nil
}

// Detail returns one challenge with the caller's team solve, if any.
func (s *BoardService) Detail(ctx context.Context, userID, id string) (*ChallengeDetail, error) {
	ch, ok := s.challenges.Get(id)
	if !ok {
		return nil, common.ErrorNotFound
	}
	count, err := s.repomanager.Solves(s.db).CountByChallenge(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("error counting solves: %w", err)
	}
	solved, err := s.teamSolves(ctx, userID)
	if err != nil {
		return nil, err
	}

	ts, isSolved := solved[id]
	d := &ChallengeDetail{
		BoardEntry:      s.entry(ctx, ch, count, isSolved),
		DescriptionHTML: ch.DescriptionHTML,
		Author:          ch.Meta.Author,
		Hint:            ch.Meta.Hint,
		Files:           append([]string(nil), ch.Meta.Files...),
	}
	if isSolved {
		d.TeamSolve = &ts
	}
	return d, nil
}

func (s *BoardService) entry(ctx context.Context, ch *challenges.Challenge, count int, solved bool) BoardEntry {
	e := BoardEntry{
		ID:         ch.Meta.ID,
		Title:      ch.Meta.Title,
		Category:   ch.Meta.Category,
		SolveCount: count,
		Solved:     solved,
		Available:  true,
	}
	v, err := ch.Value(ctx, count)
	if err != nil {
		s.logger.Warn(ctx, "challenge value unavailable", "challenge_id", ch.Meta.ID, "error", err.Error())
		e.Available = false
		return e
	}
	e.Value = v
	return e
}

// teamSolves maps challenge id to the solve of userID's team. Users
// without a team get an empty map.
func (s *BoardService) teamSolves(ctx context.Context, userID string) (map[string]TeamSolve, error) {
	out := map[string]TeamSolve{}
	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("error loading user: %w", err)
	}
	if user.TeamID == nil {
		return out, nil
	}
	list, err := s.repomanager.Solves(s.db).ListByTeam(ctx, *user.TeamID)
	if err != nil {
		return nil, fmt.Errorf("error loading solves: %w", err)
	}
	for _, sv := range list {
		out[sv.ChallengeID] = TeamSolve{Points: sv.PointsAwarded, SolvedAt: sv.CreatedAt}
	}
	return out, nil
}
