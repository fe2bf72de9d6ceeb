package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"estatebid-auction-service/internal/domain/shared"

	"github.com/rs/zerolog"
)

// errorBody is the JSON error envelope.
type errorBody struct {
	Error   string                 `json:"error"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// writeError maps domain errors onto HTTP status codes. Bid rejections carry
// machine-readable detail so clients can react without parsing the message:
// a too-low bid reports the current minimum, a missing deposit answers 402.
func writeError(w http.ResponseWriter, logger zerolog.Logger, err error) {
	var bidTooLow *shared.BidTooLowError
	if errors.As(err, &bidTooLow) {
		writeJSON(w, http.StatusBadRequest, errorBody{
			Error:   bidTooLow.Error(),
			Details: map[string]interface{}{"minimum_bid": bidTooLow.Minimum},
		})
		return
	}

	var ineligible *shared.IneligibleError
	if errors.As(err, &ineligible) {
		status := http.StatusForbidden
		if ineligible.Reason == shared.ReasonDepositRequired {
			status = http.StatusPaymentRequired
		}
		writeJSON(w, status, errorBody{
			Error:   ineligible.Error(),
			Details: map[string]interface{}{"reason": string(ineligible.Reason)},
		})
		return
	}

	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error().Err(err).Msg("Internal error handling request")
		writeJSON(w, status, errorBody{Error: "internal server error"})
		return
	}

	writeJSON(w, status, errorBody{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, shared.ErrAuctionNotFound),
		errors.Is(err, shared.ErrBidNotFound),
		errors.Is(err, shared.ErrDepositNotFound),
		errors.Is(err, shared.ErrWatchNotFound):
		return http.StatusNotFound

	case errors.Is(err, shared.ErrConflict),
		errors.Is(err, shared.ErrAuctionAlreadyEnded),
		errors.Is(err, shared.ErrAuctionNotEditable),
		errors.Is(err, shared.ErrInvalidStatusTransition),
		errors.Is(err, shared.ErrDepositAlreadyExists),
		errors.Is(err, shared.ErrDepositAlreadyConfirmed),
		errors.Is(err, shared.ErrInvalidDepositTransition):
		return http.StatusConflict

	case errors.Is(err, shared.ErrNotSeller):
		return http.StatusForbidden

	case errors.Is(err, shared.ErrAuctionNotDue):
		return http.StatusUnprocessableEntity

	case errors.Is(err, shared.ErrInvalidStartTime),
		errors.Is(err, shared.ErrInvalidEndTime),
		errors.Is(err, shared.ErrInvalidStartingPrice),
		errors.Is(err, shared.ErrInvalidBidIncrement),
		errors.Is(err, shared.ErrInvalidTimeFormat),
		errors.Is(err, shared.ErrInvalidAmount),
		errors.Is(err, shared.ErrNoWinningBid):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
