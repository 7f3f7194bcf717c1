package domain

import (
	"errors"
	"fmt"
)

var (
	ErrDocumentNotFound    = errors.New("document not found")
	ErrInvalidInput        = errors.New("invalid input")
	ErrTemporary           = errors.New("temporary failure")
	ErrSubmission          = errors.New("submission failed")
	ErrDelete              = errors.New("delete failed")
	ErrUploadInProgress    = errors.New("upload already in progress")
	ErrConfirmationPending = errors.New("another confirmation is pending")
	ErrStaleResult         = errors.New("superseded by a newer request")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
