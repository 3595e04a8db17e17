package vault

import (
	"errors"
	"fmt"
)

// Abort conditions for contract operations. Every public operation
// validates against these before touching state, so a failed call
// leaves no partial writes behind.
var (
	ErrUnauthorized      = errors.New("vault: unauthorized")
	ErrInsufficientFunds = errors.New("vault: insufficient funds")
	ErrInvalidParameters = errors.New("vault: invalid parameters")
	ErrAlreadyExists     = errors.New("vault: already exists")
	ErrAlreadyProcessed  = errors.New("vault: already processed")
	ErrNotFound          = errors.New("vault: not found")
)

// Sub-kinds of ErrInvalidParameters; errors.Is matches the parent.
var (
	ErrCapacityExceeded = fmt.Errorf("%w: capacity exceeded", ErrInvalidParameters)
	ErrNotAnchored      = fmt.Errorf("%w: payment not anchored", ErrInvalidParameters)
	ErrNotConfirmed     = fmt.Errorf("%w: confirmations pending", ErrInvalidParameters)
)
