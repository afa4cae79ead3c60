package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrPuzzleNotFound is returned when no puzzle has been published for a date.
	ErrPuzzleNotFound = errors.New("puzzle not found")
	// ErrInvalidSelection groups every rejected clause selection; see SelectionError for the reason.
	ErrInvalidSelection = errors.New("invalid selection")
	// ErrStoreUnavailable indicates the puzzle backing store failed after retries.
	ErrStoreUnavailable = errors.New("puzzle store unavailable")
	// ErrInvalidDate indicates a date key that is not a calendar date in YYYY-MM-DD form.
	ErrInvalidDate = errors.New("invalid date, use YYYY-MM-DD")
	// ErrInvalidCompletionTime is returned for a negative completion time.
	ErrInvalidCompletionTime = errors.New("completion time must not be negative")
	// ErrInvalidPuzzle marks puzzle content that breaks the published-puzzle invariants.
	ErrInvalidPuzzle = errors.New("invalid puzzle")
	// ErrPuzzleExists is returned when publishing a date that already has a puzzle.
	ErrPuzzleExists = errors.New("puzzle already exists for this date")
	// ErrNotRevealed is returned when the answer key is requested before a recorded submission.
	ErrNotRevealed = errors.New("answer key is revealed only after a recorded submission")
	// ErrPublishDisabled is returned when no writable puzzle store is configured.
	ErrPublishDisabled = errors.New("puzzle publishing is not configured")
)

// SelectionReason tells apart the ways a selection can be malformed.
type SelectionReason string

const (
	ReasonWrongCount  SelectionReason = "wrong_count"
	ReasonUnknownID   SelectionReason = "unknown_id"
	ReasonDuplicateID SelectionReason = "duplicate_id"
)

// SelectionError describes a rejected selection. It matches ErrInvalidSelection via errors.Is.
type SelectionError struct {
	Reason SelectionReason
	Got    int
	Want   int
	IDs    []string
}

func (e *SelectionError) Error() string {
	switch e.Reason {
	case ReasonWrongCount:
		return fmt.Sprintf("%s: expected %d clause ids, got %d", ErrInvalidSelection, e.Want, e.Got)
	case ReasonUnknownID:
		return fmt.Sprintf("%s: unknown clause ids %s", ErrInvalidSelection, strings.Join(e.IDs, ", "))
	case ReasonDuplicateID:
		return fmt.Sprintf("%s: duplicate clause ids %s", ErrInvalidSelection, strings.Join(e.IDs, ", "))
	default:
		return ErrInvalidSelection.Error()
	}
}

func (e *SelectionError) Is(target error) bool {
	return target == ErrInvalidSelection
}

// SelectionReasonOf extracts the reason from a wrapped SelectionError.
func SelectionReasonOf(err error) (SelectionReason, bool) {
	var se *SelectionError
	if errors.As(err, &se) {
		return se.Reason, true
	}
	return "", false
}

// PuzzleError lists every invariant a puzzle violates. It matches ErrInvalidPuzzle via errors.Is.
type PuzzleError struct {
	Date     string
	Problems []string
}

func (e *PuzzleError) Error() string {
	return fmt.Sprintf("%s %s: %s", ErrInvalidPuzzle, e.Date, strings.Join(e.Problems, "; "))
}

func (e *PuzzleError) Is(target error) bool {
	return target == ErrInvalidPuzzle
}
