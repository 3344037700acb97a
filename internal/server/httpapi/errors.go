package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/flagkeeper/internal/common"
	"github.com/dmitrijs2005/flagkeeper/internal/logging"
)

// Error classes carried in the "error" field of failure bodies.
const (
	ClassNotFound            = "not_found"
	ClassUnauthorized        = "unauthorized"
	ClassTokenExpired        = "token_expired"
	ClassRefreshTokenExpired = "refresh_token_expired"
	ClassForbidden           = "forbidden"
	ClassMustJoinTeam        = "must_join_team"
	ClassIncorrectFlag       = "incorrect_flag"
	ClassEmptyFlag           = "empty_flag"
	ClassValidation          = "validation"
	ClassConflict            = "conflict"
	ClassChallengeError      = "challenge_error"
	ClassBadRequest          = "bad_request"
	ClassInternal            = "internal"
)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// errBadRequest marks malformed request bodies.
var errBadRequest = errors.New("malformed request body")

func classify(err error) (int, string, string) {
	switch {
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, ClassNotFound, "not found"
	case errors.Is(err, common.ErrTokenExpired):
		return http.StatusUnauthorized, ClassTokenExpired, "access token expired"
	case errors.Is(err, common.ErrRefreshTokenExpired):
		return http.StatusUnauthorized, ClassRefreshTokenExpired, "refresh token expired, log in again"
	case errors.Is(err, common.ErrorUnauthorized), errors.Is(err, common.ErrInvalidToken):
		return http.StatusUnauthorized, ClassUnauthorized, "unauthorized"
	case errors.Is(err, common.ErrNotOnTeam):
		return http.StatusForbidden, ClassMustJoinTeam, common.ErrNotOnTeam.Error()
	case errors.Is(err, common.ErrForbidden):
		return http.StatusForbidden, ClassForbidden, err.Error()
	case errors.Is(err, common.ErrIncorrectFlag):
		return http.StatusUnprocessableEntity, ClassIncorrectFlag, common.ErrIncorrectFlag.Error()
	case errors.Is(err, common.ErrEmptyFlag):
		return http.StatusBadRequest, ClassEmptyFlag, common.ErrEmptyFlag.Error()
	case errors.Is(err, common.ErrorValidation):
		return http.StatusBadRequest, ClassValidation, strings.TrimPrefix(err.Error(), common.ErrorValidation.Error()+": ")
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, ClassBadRequest, err.Error()
	case errors.Is(err, common.ErrorAlreadyExists):
		return http.StatusConflict, ClassConflict, "already exists"
	case errors.Is(err, common.ErrAlreadyOnTeam):
		return http.StatusConflict, ClassConflict, common.ErrAlreadyOnTeam.Error()
	case errors.Is(err, common.ErrChallengeFault):
		return http.StatusInternalServerError, ClassChallengeError, "this challenge is temporarily unavailable"
	default:
		return http.StatusInternalServerError, ClassInternal, "internal error"
	}
}

func writeError(w http.ResponseWriter, r *http.Request, logger logging.Logger, err error) {
	status, class, msg := classify(err)
	if status >= http.StatusInternalServerError {
		logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err.Error())
	}
	writeJSON(w, status, errorBody{Error: class, Message: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

const maxBodyBytes = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return errBadRequest
	}
	return nil
}
