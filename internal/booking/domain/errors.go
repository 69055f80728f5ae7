package domain

import "errors"

var (
	ErrNotFound   = errors.New("booking not found")
	ErrValidation = errors.New("invalid input")
)
