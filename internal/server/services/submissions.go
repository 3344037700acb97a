package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/flagkeeper/internal/common"
	"github.com/dmitrijs2005/flagkeeper/internal/dbx"
	"github.com/dmitrijs2005/flagkeeper/internal/logging"
	"github.com/dmitrijs2005/flagkeeper/internal/server/challenges"
	"github.com/dmitrijs2005/flagkeeper/internal/server/models"
	"github.com/dmitrijs2005/flagkeeper/internal/server/repositories/repomanager"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("github.com/dmitrijs2005/flagkeeper/internal/server/services")

// ChallengeSource is the read side of the challenge registry.
type ChallengeSource interface {
	Get(id string) (*challenges.Challenge, bool)
	List() []*challenges.Challenge
}

// AttemptLimiter may refuse a submission before the flag is checked.
// A non-nil error is returned to the caller unchanged.
type AttemptLimiter interface {
	Allow(ctx context.Context, teamID, challengeID string) error
}

type Outcome string

const (
	OutcomeAccepted      Outcome = "accepted"
	OutcomeAlreadySolved Outcome = "already_solved"
)

type SubmissionResult struct {
	Outcome     Outcome
	Points      int
	ChallengeID string
}

// SubmissionService checks flags and appends solves to the ledger.
type SubmissionService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	challenges  ChallengeSource
	scoreboard  ScoreboardInvalidator
	limiter     AttemptLimiter
	logger      logging.Logger

	locks *keyedMutex
}

func NewSubmissionService(db *sql.DB, m repomanager.RepositoryManager, source ChallengeSource, scoreboard ScoreboardInvalidator, logger logging.Logger) *SubmissionService {
	return &SubmissionService{
		db:          db,
		repomanager: m,
		challenges:  source,
		scoreboard:  scoreboard,
		logger:      logger.With("module", "submissions"),
		locks:       newKeyedMutex(),
	}
}

// WithAttemptLimiter installs l. Without one every attempt is allowed.
func (s *SubmissionService) WithAttemptLimiter(l AttemptLimiter) *SubmissionService {
	s.limiter = l
	return s
}

// Submit checks flag for challengeID on behalf of userID's team and, when
// correct, records the solve at the value it has right now. A team that
// already solved the challenge gets OutcomeAlreadySolved whatever it sends.
func (s *SubmissionService) Submit(ctx context.Context, userID, challengeID, flag string) (res *SubmissionResult, err error) {
	ctx, span := tracer.Start(ctx, "submissions.submit")
	span.SetAttributes(attribute.String("challenge.id", challengeID))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "submit")
		} else {
			span.SetAttributes(attribute.String("outcome", string(res.Outcome)))
		}
		span.End()
	}()

	ch, ok := s.challenges.Get(challengeID)
	if !ok {
		return nil, common.ErrorNotFound
	}

	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("error loading user: %w", err)
	}
	if user.TeamID == nil {
		return nil, common.ErrNotOnTeam
	}
	teamID := *user.TeamID

	if s.limiter != nil {
		if err := s.limiter.Allow(ctx, teamID, challengeID); err != nil {
			return nil, err
		}
	}

	unlock := s.locks.Lock(challengeID)
	defer unlock()

	res = &SubmissionResult{ChallengeID: challengeID}
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		solves := s.repomanager.Solves(tx)
		if err := solves.LockChallenge(ctx, challengeID); err != nil {
			return err
		}

		if _, err := solves.Find(ctx, teamID, challengeID); err == nil {
			res.Outcome = OutcomeAlreadySolved
			return nil
		} else if !errors.Is(err, common.ErrorNotFound) {
			return err
		}

		flag = strings.TrimSpace(flag)
		if flag == "" {
			return common.ErrEmptyFlag
		}
		correct, err := ch.Solve(ctx, flag)
		if err != nil {
			return err
		}
		if !correct {
			return common.ErrIncorrectFlag
		}

		prior, err := solves.CountByChallenge(ctx, challengeID)
		if err != nil {
			return err
		}
		points, err := ch.Value(ctx, prior)
		if err != nil {
			return err
		}

		created, err := solves.Create(ctx, &models.Solve{
			TeamID:        teamID,
			ChallengeID:   challengeID,
			UserID:        &user.ID,
			PointsAwarded: points,
		})
		if err != nil {
			return err
		}
		if !created {
			res.Outcome = OutcomeAlreadySolved
			return nil
		}
		res.Outcome = OutcomeAccepted
		res.Points = points
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, common.ErrIncorrectFlag), errors.Is(err, common.ErrEmptyFlag):
			s.logger.Debug(ctx, "flag rejected", "challenge_id", challengeID, "team_id", teamID, "reason", err.Error())
		case errors.Is(err, common.ErrChallengeFault):
			s.logger.Error(ctx, "challenge fault", "challenge_id", challengeID, "team_id", teamID, "error", err.Error())
			return nil, common.ErrChallengeFault
		}
		return nil, err
	}

	if res.Outcome == OutcomeAccepted {
		s.scoreboard.Invalidate(ctx)
		s.logger.Info(ctx, "challenge solved", "challenge_id", challengeID, "team_id", teamID, "user_id", userID, "points", res.Points)
	}
	return res, nil
}
