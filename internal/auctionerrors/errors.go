package auctionerrors

import "errors"

// Repository-level errors
var (
	ErrAuctionNotFound = errors.New("auction not found")
	ErrOrderNotFound   = errors.New("order not found")
)

// business logic errors
var (
	ErrInvalidBid            = errors.New("invalid bid")
	ErrInvalidAmount         = errors.New("bid amount must be positive")
	ErrInvalidAuctionState   = errors.New("auction is not open")
	ErrAlreadyResolved       = errors.New("auction already resolved")
	ErrOrderAssignmentFailed = errors.New("order assignment failed")
)
