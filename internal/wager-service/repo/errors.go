package repo

import "errors"

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrWagerNotFound   = errors.New("wager not found")
	// ErrConflict indica falha de serialização/deadlock; a transação foi abortada
	ErrConflict = errors.New("serialization conflict")
)
