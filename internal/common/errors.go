package common

import (
	"errors"
	"net/http"

	"github.com/citizenwallet/multisig/pkg/multisig"
	"github.com/getsentry/sentry-go"
)

// StatusFor maps an error to the status code returned to the client
func StatusFor(err error) int {
	var (
		verr *multisig.ValidationError
		berr *multisig.BroadcastError
		qerr *multisig.QueryError
		terr *multisig.TimeoutError
	)

	switch {
	case errors.As(err, &verr),
		errors.Is(err, multisig.ErrInvalidProposalID),
		errors.Is(err, ErrInvalidAddress):
		return http.StatusBadRequest
	case errors.Is(err, multisig.ErrNotConnected):
		return http.StatusPreconditionRequired
	case errors.Is(err, multisig.ErrSubmissionPending),
		errors.Is(err, multisig.ErrActionUnavailable):
		return http.StatusConflict
	case errors.As(err, &terr):
		return http.StatusAccepted
	case errors.As(err, &berr), errors.As(err, &qerr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ErrorFrom writes err with its status code. Unexpected errors are reported to sentry.
func ErrorFrom(w http.ResponseWriter, err error) error {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		sentry.CaptureException(err)
	}

	var body any
	var verr *multisig.ValidationError
	if errors.As(err, &verr) {
		body = verr
	}

	return Error(w, status, multisig.UserMessage(err), body)
}

// Submission writes the outcome of a submitted action. The result is always
// included so that the transaction hash of a failed or pending action is kept.
func Submission(w http.ResponseWriter, result *multisig.SubmissionResult, err error) error {
	if err == nil {
		return Body(w, result, nil)
	}

	if result == nil {
		return ErrorFrom(w, err)
	}

	status := StatusFor(err)
	if status == http.StatusAccepted {
		return BodyStatus(w, status, result, nil)
	}

	if status == http.StatusInternalServerError {
		sentry.CaptureException(err)
	}

	return Error(w, status, multisig.UserMessage(err), result)
}
