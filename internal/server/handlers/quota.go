package handlers

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/translens/translens/internal/errors"
)

// QuotaResponse reports the shared request window status. Reading it never
// consumes quota.
type QuotaResponse struct {
	RemainingRequests int  `json:"remainingRequests"`
	WaitTime          *int `json:"waitTime,omitempty"`
}

// QuotaHandler reports the current window status.
func QuotaHandler(w http.ResponseWriter, r *http.Request) {
	api := translationAPI
	if api == nil || api.Governor == nil {
		respondWithError(w, r, apperrors.NewInternalError("translation API not initialized"))
		return
	}

	status := api.Governor.Quota()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(QuotaResponse{
		RemainingRequests: status.Remaining,
		WaitTime:          status.WaitSeconds,
	})
}
