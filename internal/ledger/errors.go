package ledger

import (
	"errors"
	"fmt"
)

// BuyRejectReason enumerates the non-fatal reasons a buy is refused.
type BuyRejectReason string

const (
	RejectMaxPositionsReached    BuyRejectReason = "MaxPositionsReached"
	RejectInsufficientCash       BuyRejectReason = "InsufficientCash"
	RejectPositionWeightExceeded BuyRejectReason = "PositionWeightExceeded"
	RejectMinCashRatioViolated   BuyRejectReason = "MinCashRatioViolated"
)

// SellRejectReason enumerates the non-fatal reasons a sell is refused.
type SellRejectReason string

const (
	RejectNoPosition           SellRejectReason = "NoPosition"
	RejectInsufficientQuantity SellRejectReason = "InsufficientQuantity"
)

// BuyRejectedError reports a refused buy. The ledger is guaranteed unchanged.
type BuyRejectedError struct {
	Symbol string
	Reason BuyRejectReason
	Detail string
}

func (e *BuyRejectedError) Error() string {
	return fmt.Sprintf("buy rejected for %s: %s (%s)", e.Symbol, e.Reason, e.Detail)
}

// SellRejectedError reports a refused sell. The ledger is guaranteed unchanged.
type SellRejectedError struct {
	Symbol string
	Reason SellRejectReason
	Detail string
}

func (e *SellRejectedError) Error() string {
	return fmt.Sprintf("sell rejected for %s: %s (%s)", e.Symbol, e.Reason, e.Detail)
}

// AsBuyRejected unwraps err into a BuyRejectedError if it is one.
func AsBuyRejected(err error) (*BuyRejectedError, bool) {
	var br *BuyRejectedError
	if errors.As(err, &br) {
		return br, true
	}
	return nil, false
}

// AsSellRejected unwraps err into a SellRejectedError if it is one.
func AsSellRejected(err error) (*SellRejectedError, bool) {
	var sr *SellRejectedError
	if errors.As(err, &sr) {
		return sr, true
	}
	return nil, false
}
