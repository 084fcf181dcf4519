package domain

import "errors"

var (
	ErrNotFound               = errors.New("not found")
	ErrUnauthorized           = errors.New("unauthorized")
	ErrInvalidTransition      = errors.New("invalid transition")
	ErrWindowExpired          = errors.New("dispute window expired")
	ErrInvalidInput           = errors.New("invalid input")
	ErrDonationLimitReached   = errors.New("monthly donation limit reached")
	ErrPaymentFailed          = errors.New("payment failed")
	ErrConcurrentModification = errors.New("order has been modified by another transaction")
)
