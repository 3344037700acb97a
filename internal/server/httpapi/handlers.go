package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	u, err := s.deps.Accounts.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUser(u))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	pair, err := s.deps.Accounts.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenPairResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	pair, err := s.deps.Accounts.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenPairResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Accounts.Logout(r.Context(), userID(r.Context())); err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	u, err := s.deps.Accounts.Me(r.Context(), userID(r.Context()))
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toUser(u))
}

func (s *Server) handleBoard(w http.ResponseWriter, r *http.Request) {
	groups, err := s.deps.Board.Board(r.Context(), userID(r.Context()))
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toBoard(groups))
}

func (s *Server) handleDetail(w http.ResponseWriter, r *http.Request) {
	d, err := s.deps.Board.Detail(r.Context(), userID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toDetail(d))
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	res, err := s.deps.Submissions.Submit(r.Context(), userID(r.Context()), chi.URLParam(r, "id"), req.Flag)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toSubmit(res))
}

func (s *Server) handleAttachment(w http.ResponseWriter, r *http.Request) {
	url, err := s.deps.Attachments.URL(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

func (s *Server) handleScoreboard(w http.ResponseWriter, r *http.Request) {
	rows, err := s.deps.Scoreboard.Scoreboard(r.Context())
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleTeamList(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Teams.List(r.Context())
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	out := make([]teamSummaryResponse, 0, len(list))
	for _, t := range list {
		out = append(out, teamSummaryResponse{ID: t.ID, Name: t.Name, Members: t.Members, Score: t.Score})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleTeamCreate(w http.ResponseWriter, r *http.Request) {
	var req createTeamRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	team, err := s.deps.Teams.Create(r.Context(), userID(r.Context()), req.Name)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTeam(team))
}

func (s *Server) handleTeamJoin(w http.ResponseWriter, r *http.Request) {
	var req joinTeamRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	team, err := s.deps.Teams.Join(r.Context(), userID(r.Context()), req.InviteCode)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toTeam(team))
}

func (s *Server) handleTeamLeave(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Teams.Leave(r.Context(), userID(r.Context())); err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTeamGet(w http.ResponseWriter, r *http.Request) {
	v, err := s.deps.Teams.Get(r.Context(), userID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toTeamView(v))
}

func (s *Server) handleTeamRemove(w http.ResponseWriter, r *http.Request) {
	err := s.deps.Teams.RemoveMember(r.Context(), userID(r.Context()), chi.URLParam(r, "id"), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTeamCaptain(w http.ResponseWriter, r *http.Request) {
	err := s.deps.Teams.SetCaptain(r.Context(), userID(r.Context()), chi.URLParam(r, "id"), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	rep, err := s.deps.Reloader.Load(r.Context())
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	s.logger.Info(r.Context(), "challenges reloaded", "by", userID(r.Context()), "loaded", rep.Loaded, "skipped", len(rep.Diagnostics))
	writeJSON(w, http.StatusOK, toReload(rep))
}
