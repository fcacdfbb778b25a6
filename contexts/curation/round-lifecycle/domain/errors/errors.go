package errors

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrInvalidRequest     = errors.New("invalid request")
	ErrRoundNotFound      = errors.New("round not found")
	ErrNominationNotFound = errors.New("could not find nomination by this id")
	ErrNoNominations      = errors.New("no nominations were found for this round")

	ErrPollMissing        = errors.New("a nomination is missing a poll, thus this round cannot be closed")
	ErrPollStillOpen      = errors.New("polls for this round are not yet complete")
	ErrPollAlreadyTallied = errors.New("poll results have already been processed and stored on the forum")
	ErrPollNotTallied     = errors.New("poll results have not been recorded for this round yet")
	ErrMainThreadMissing  = errors.New("no main thread is registered for this round and game mode")

	ErrUnexpectedPollShape = errors.New("unexpected topic poll data")
	ErrGateway             = errors.New("remote gateway call failed")
	ErrRoundBusy           = errors.New("another lifecycle operation is already running for this round")
)

// PollShapeError reports remote poll data that does not match the fixed
// two-option Yes/No contract. The raw thread payload is kept for operator
// diagnosis.
type PollShapeError struct {
	NominationID int64
	Payload      json.RawMessage
}

func (e *PollShapeError) Error() string {
	return fmt.Sprintf("unexpected topic poll data encountered for nomination #%d", e.NominationID)
}

func (e *PollShapeError) Is(target error) bool {
	return target == ErrUnexpectedPollShape
}

// GatewayError wraps a failed remote create/edit call. The operation aborts
// without compensating rollback; completed steps stay committed and a re-run
// resumes idempotently.
type GatewayError struct {
	Op  string
	Err error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway %s: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

func (e *GatewayError) Is(target error) bool {
	return target == ErrGateway
}
