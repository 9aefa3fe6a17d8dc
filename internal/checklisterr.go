package internal

import (
	"errors"
	"fmt"
)

// Completion conflicts. A planned intervention leaves its state exactly
// once; a second completion or skip attempt observes one of these.
var (
	ErrAlreadyCompleted = errors.New("intervention already completed")
	ErrAlreadySkipped   = errors.New("intervention already skipped")
)

// MissingRequiredAnswerError reports a required checklist item without a
// conforming answer
type MissingRequiredAnswerError struct {
	ItemID int64
}

func (e *MissingRequiredAnswerError) Error() string {
	return fmt.Sprintf("missing required answer for item %d", e.ItemID)
}

// TypeMismatchError reports an answer whose value does not match the item's
// declared type
type TypeMismatchError struct {
	ItemID   int64
	Expected string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("answer for item %d does not match declared type %s", e.ItemID, e.Expected)
}

// UnknownItemError reports an answer referencing an item that is not part
// of the intervention's checklist
type UnknownItemError struct {
	ItemID int64
}

func (e *UnknownItemError) Error() string {
	return fmt.Sprintf("item %d does not belong to this intervention", e.ItemID)
}

// DuplicateAnswerError reports two answers submitted for the same item
type DuplicateAnswerError struct {
	ItemID int64
}

func (e *DuplicateAnswerError) Error() string {
	return fmt.Sprintf("duplicate answer for item %d", e.ItemID)
}

// UnknownPhotoError reports a photo answer whose handle was never uploaded
type UnknownPhotoError struct {
	ItemID int64
	Handle string
}

func (e *UnknownPhotoError) Error() string {
	return fmt.Sprintf("photo answer for item %d references unknown upload %q", e.ItemID, e.Handle)
}
