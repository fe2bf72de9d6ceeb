package shared

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AuctionEndResult represents the result of ending an auction. It is handed
// to the settlement collaborator when the status transitions to ended or sold.
type AuctionEndResult struct {
	AuctionID     uuid.UUID
	WinnerID      *uuid.UUID
	WinningAmount *decimal.Decimal
	Status        string
}
