package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/flagkeeper/internal/common"
	"github.com/dmitrijs2005/flagkeeper/internal/dbx"
	"github.com/dmitrijs2005/flagkeeper/internal/logging"
	"github.com/dmitrijs2005/flagkeeper/internal/server/models"
	"github.com/dmitrijs2005/flagkeeper/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

const maxTeamNameLen = 64

// ScoreboardInvalidator drops the cached scoreboard.
type ScoreboardInvalidator interface {
	Invalidate(ctx context.Context)
}

type TeamMember struct {
	ID        string
	UserName  string
	IsCaptain bool
}

// TeamView is a team page. InviteCode is empty unless the viewer is a member.
type TeamView struct {
	Team       *models.Team
	InviteCode string
	Members    []TeamMember
	Score      int
	Solves     []*models.Solve
}

type TeamService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	scoreboard  ScoreboardInvalidator
	logger      logging.Logger

	newInviteCode func() string
}

func NewTeamService(db *sql.DB, m repomanager.RepositoryManager, scoreboard ScoreboardInvalidator, logger logging.Logger) *TeamService {
	return &TeamService{
		db:            db,
		repomanager:   m,
		scoreboard:    scoreboard,
		logger:        logger.With("module", "teams"),
		newInviteCode: uuid.NewString,
	}
}

// Create makes a team with userID as its first member and captain.
func (s *TeamService) Create(ctx context.Context, userID, name string) (*models.Team, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxTeamNameLen {
		return nil, fmt.Errorf("%w: team name must be 1-%d characters", common.ErrorValidation, maxTeamNameLen)
	}

	var team *models.Team
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		user, err := s.lockUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		if user.TeamID != nil {
			return common.ErrAlreadyOnTeam
		}

		team, err = s.repomanager.Teams(tx).Create(ctx, &models.Team{
			Name:       name,
			CaptainID:  &user.ID,
			InviteCode: s.newInviteCode(),
		})
		if err != nil {
			return err
		}
		return s.repomanager.Users(tx).SetTeam(ctx, user.ID, &team.ID)
	})
	if err != nil {
		return nil, err
	}

	s.scoreboard.Invalidate(ctx)
	s.logger.Info(ctx, "team created", "team_id", team.ID, "name", team.Name, "captain", userID)
	return team, nil
}

// Join adds userID to the team owning inviteCode.
func (s *TeamService) Join(ctx context.Context, userID, inviteCode string) (*models.Team, error) {
	inviteCode = strings.TrimSpace(inviteCode)
	if inviteCode == "" {
		return nil, fmt.Errorf("%w: invite code required", common.ErrorValidation)
	}

	var team *models.Team
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		team, err = s.repomanager.Teams(tx).GetByInviteCode(ctx, inviteCode)
		if err != nil {
			return err
		}
		user, err := s.lockUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		if user.TeamID != nil {
			return common.ErrAlreadyOnTeam
		}
		if err := s.repomanager.Users(tx).SetTeam(ctx, user.ID, &team.ID); err != nil {
			return err
		}
		if team.CaptainID == nil {
			team.CaptainID = &user.ID
			return s.repomanager.Teams(tx).SetCaptain(ctx, team.ID, &user.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.scoreboard.Invalidate(ctx)
	s.logger.Info(ctx, "team joined", "team_id", team.ID, "user_id", userID)
	return team, nil
}

// Leave takes userID off its team. A captain may leave only as the last
// member; the team is then left without a captain.
func (s *TeamService) Leave(ctx context.Context, userID string) error {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		user, err := s.lockUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		if user.TeamID == nil {
			return common.ErrNotOnTeam
		}
		team, err := s.repomanager.Teams(tx).GetByID(ctx, *user.TeamID)
		if err != nil {
			return err
		}

		isCaptain := team.CaptainID != nil && *team.CaptainID == user.ID
		if isCaptain {
			members, err := s.repomanager.Users(tx).ListByTeam(ctx, team.ID)
			if err != nil {
				return err
			}
			if len(members) > 1 {
				return fmt.Errorf("%w: hand over captaincy before leaving", common.ErrorValidation)
			}
		}

		if err := s.repomanager.Users(tx).SetTeam(ctx, user.ID, nil); err != nil {
			return err
		}
		if isCaptain {
			return s.repomanager.Teams(tx).SetCaptain(ctx, team.ID, nil)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.scoreboard.Invalidate(ctx)
	s.logger.Info(ctx, "team left", "user_id", userID)
	return nil
}

// RemoveMember lets the captain of teamID remove userID.
func (s *TeamService) RemoveMember(ctx context.Context, actorID, teamID, userID string) error {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.captainTeam(ctx, tx, actorID, teamID); err != nil {
			return err
		}
		if userID == actorID {
			return fmt.Errorf("%w: the captain cannot remove themselves", common.ErrorValidation)
		}
		target, err := s.repomanager.Users(tx).GetByIDForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if target.TeamID == nil || *target.TeamID != teamID {
			return common.ErrorNotFound
		}
		return s.repomanager.Users(tx).SetTeam(ctx, target.ID, nil)
	})
	if err != nil {
		return err
	}

	s.scoreboard.Invalidate(ctx)
	s.logger.Info(ctx, "team member removed", "team_id", teamID, "user_id", userID, "by", actorID)
	return nil
}

// SetCaptain lets the captain of teamID hand captaincy to member userID.
func (s *TeamService) SetCaptain(ctx context.Context, actorID, teamID, userID string) error {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.captainTeam(ctx, tx, actorID, teamID); err != nil {
			return err
		}
		target, err := s.repomanager.Users(tx).GetByID(ctx, userID)
		if err != nil {
			return err
		}
		if target.TeamID == nil || *target.TeamID != teamID {
			return common.ErrorNotFound
		}
		return s.repomanager.Teams(tx).SetCaptain(ctx, teamID, &target.ID)
	})
	if err != nil {
		return err
	}

	s.logger.Info(ctx, "team captain changed", "team_id", teamID, "captain", userID, "by", actorID)
	return nil
}

// Get returns the team page for teamID as seen by viewerID.
func (s *TeamService) Get(ctx context.Context, viewerID, teamID string) (*TeamView, error) {
	team, err := s.repomanager.Teams(s.db).GetByID(ctx, teamID)
	if err != nil {
		return nil, err
	}
	members, err := s.repomanager.Users(s.db).ListByTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	solves, err := s.repomanager.Solves(s.db).ListByTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	score, err := s.repomanager.Solves(s.db).TeamScore(ctx, teamID)
	if err != nil {
		return nil, err
	}

	view := &TeamView{Team: team, Solves: solves, Score: score}
	for _, m := range members {
		isCaptain := team.CaptainID != nil && *team.CaptainID == m.ID
		view.Members = append(view.Members, TeamMember{ID: m.ID, UserName: m.UserName, IsCaptain: isCaptain})
		if m.ID == viewerID {
			view.InviteCode = team.InviteCode
		}
	}
	return view, nil
}

func (s *TeamService) List(ctx context.Context) ([]models.TeamSummary, error) {
	return s.repomanager.Teams(s.db).List(ctx)
}

func (s *TeamService) lockUser(ctx context.Context, tx dbx.DBTX, userID string) (*models.User, error) {
	u, err := s.repomanager.Users(tx).GetByIDForUpdate(ctx, userID)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, common.ErrorUnauthorized
	}
	return u, err
}

func (s *TeamService) captainTeam(ctx context.Context, tx dbx.DBTX, actorID, teamID string) (*models.Team, error) {
	team, err := s.repomanager.Teams(tx).GetByID(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if team.CaptainID == nil || *team.CaptainID != actorID {
		return nil, fmt.Errorf("%w: only the team captain can do that", common.ErrForbidden)
	}
	return team, nil
}
