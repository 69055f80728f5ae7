package domain

import "errors"

var (
	ErrValidation       = errors.New("invalid input")
	ErrNotFound         = errors.New("payment not found")
	ErrDuplicateBooking = errors.New("payment already initiated for this booking")
	ErrGateway          = errors.New("payment provider error")
)
