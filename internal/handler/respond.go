// Package handler serves the JSON API: auth flows, profiles, skills, chat,
// leaderboard, and the contribution calendar.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/mojomaniac/skillswap/internal/apperror"
)

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	kind := apperror.KindOf(err)
	writeJSON(w, statusForKind(kind), errorBody{
		Error: apperror.MessageOf(err),
		Kind:  string(kind),
	})
}

// statusForKind maps the error taxonomy onto HTTP statuses. Client mistakes
// around the OAuth exchange are 400s, credential problems 401s, and upstream
// trouble surfaces as 502.
func statusForKind(kind apperror.Kind) int {
	switch kind {
	case apperror.KindReplayRejected,
		apperror.KindCodeExchangeFailed,
		apperror.KindProfileFetchFailed,
		apperror.KindNoEmailAvailable,
		apperror.KindValidation:
		return http.StatusBadRequest
	case apperror.KindTokenExpired,
		apperror.KindTokenInvalid,
		apperror.KindUnauthorized,
		apperror.KindCredentialExpired:
		return http.StatusUnauthorized
	case apperror.KindForbidden:
		return http.StatusForbidden
	case apperror.KindNotFound:
		return http.StatusNotFound
	case apperror.KindConflict:
		return http.StatusConflict
	case apperror.KindRateLimited, apperror.KindUpstreamUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return apperror.Wrap(apperror.KindValidation, "invalid request body", err)
	}
	return nil
}
