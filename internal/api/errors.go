package api

import "errors"

// Business-rule errors, rejected with 400 before any mutation survives
var (
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInsufficientPoints  = errors.New("insufficient game points")
)

// errAlreadyAttributed aborts the attribution transaction when a concurrent
// request linked the profile first. The caller gets the same benign response
// as the already-attributed guard, never an error.
var errAlreadyAttributed = errors.New("profile already attributed")
