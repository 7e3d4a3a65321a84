package city

import "errors"

// Reason is the wire code for a rejected placement.
type Reason string

const (
	ReasonNone              Reason = ""
	ReasonNoToolSelected    Reason = "no-tool-selected"
	ReasonOutOfBounds       Reason = "out-of-bounds"
	ReasonInsufficientFunds Reason = "insufficient-funds"
	ReasonCellOccupied      Reason = "cell-occupied"
)

// Placement rejections. A rejected placement leaves the state unchanged.
var (
	ErrNoToolSelected    = errors.New(string(ReasonNoToolSelected))
	ErrOutOfBounds       = errors.New(string(ReasonOutOfBounds))
	ErrInsufficientFunds = errors.New(string(ReasonInsufficientFunds))
	ErrCellOccupied      = errors.New(string(ReasonCellOccupied))
)

// ReasonOf returns the rejection code carried by err, or ReasonNone if err
// is nil or not a placement rejection.
func ReasonOf(err error) Reason {
	switch {
	case err == nil:
		return ReasonNone
	case errors.Is(err, ErrNoToolSelected):
		return ReasonNoToolSelected
	case errors.Is(err, ErrOutOfBounds):
		return ReasonOutOfBounds
	case errors.Is(err, ErrInsufficientFunds):
		return ReasonInsufficientFunds
	case errors.Is(err, ErrCellOccupied):
		return ReasonCellOccupied
	default:
		return ReasonNone
	}
}

// IsRejection reports whether err is a placement rejection.
func IsRejection(err error) bool {
	return ReasonOf(err) != ReasonNone
}
