package multisig

import (
	"errors"
	"fmt"
)

var (
	ErrSubmissionPending = errors.New("a submission for this action is already pending")
	ErrNotConnected      = errors.New("wallet not connected")
	ErrTxNotFound        = errors.New("transaction not found")
	ErrActionUnavailable = errors.New("action is not available for this proposal")
)

// ValidationError is a local, recoverable input error. The action is not submitted.
type ValidationError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}

	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// BroadcastError means the signer or the network rejected the transaction
type BroadcastError struct {
	TxHash  string
	Message string
	Err     error
}

func (e *BroadcastError) Error() string {
	if e.TxHash != "" {
		return fmt.Sprintf("transaction %s failed: %s", e.TxHash, e.Message)
	}

	return e.Message
}

func (e *BroadcastError) Unwrap() error {
	return e.Err
}

// QueryError means a read against the chain failed
type QueryError struct {
	Contract string
	Query    string
	Err      error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query %s on %s: %v", e.Query, e.Contract, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// TimeoutError means the transaction was broadcast but not observed in time.
// It may still be included later.
type TimeoutError struct {
	TxHash   string
	Attempts uint
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("transaction %s not confirmed after %d attempts, it may still be included", e.TxHash, e.Attempts)
}

// UserMessage converts any error into the text shown next to the triggering control
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Reason
	}

	var berr *BroadcastError
	if errors.As(err, &berr) {
		return berr.Error()
	}

	var terr *TimeoutError
	if errors.As(err, &terr) {
		return terr.Error()
	}

	var qerr *QueryError
	if errors.As(err, &qerr) {
		return fmt.Sprintf("could not load data from chain: %v", qerr.Err)
	}

	return err.Error()
}
