package domain

import (
	"errors"
	"fmt"
)

// NotFoundError represents a missing resource.
type NotFoundError struct {
	Resource string
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// Is enables errors.Is matching on NotFoundError.
func (e NotFoundError) Is(target error) bool {
	_, ok := target.(NotFoundError)
	if ok {
		return true
	}
	_, ok = target.(*NotFoundError)
	return ok
}

// ErrNotFound is the sentinel error for missing resources.
var ErrNotFound = NotFoundError{}

var (
	ErrNoEligibleReviewers   = errors.New("No eligible reviewers found")
	ErrInsufficientReviewers = errors.New("insufficient eligible reviewers")
	ErrConsensusRace         = errors.New("paper status already transitioned")
	ErrInvalidRequest        = errors.New("invalid request")
	ErrInvalidVerdict        = errors.New("verdict must be between 1 and 4")
	ErrAlreadyClaimed        = errors.New("reviewer already claimed this paper")
	ErrClaimsFull            = errors.New("paper already has the required number of reviewers")
	ErrSelfReview            = errors.New("authors cannot review their own paper")
	ErrStakeTooLow           = errors.New("stake amount below minimum")
	ErrNotClaimed            = errors.New("review is not in claimed state")
	ErrNotReviewOwner        = errors.New("review belongs to another reviewer")
	ErrPaperClosed           = errors.New("paper is not accepting reviews")
)

// InsufficientReviewersError reports an assignment shortfall.
type InsufficientReviewersError struct {
	Found int
	Need  int
}

func (e InsufficientReviewersError) Error() string {
	return fmt.Sprintf("Insufficient eligible reviewers: found %d, need %d", e.Found, e.Need)
}

func (e InsufficientReviewersError) Unwrap() error {
	return ErrInsufficientReviewers
}

// DirectoryFetchError wraps an I/O failure of the reviewer directory.
type DirectoryFetchError struct {
	Op  string
	Err error
}

func (e DirectoryFetchError) Error() string {
	return fmt.Sprintf("reviewer directory %s failed: %v", e.Op, e.Err)
}

func (e DirectoryFetchError) Unwrap() error {
	return e.Err
}

// InvalidTransitionError is returned for edges outside the paper lifecycle.
type InvalidTransitionError struct {
	From PaperStatus
	To   PaperStatus
}

func (e InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid paper transition %s -> %s", e.From, e.To)
}
