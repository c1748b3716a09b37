package storage

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/leca/dt-image-store/internal/imageproc"
	"github.com/leca/dt-image-store/internal/model"
)

var (
	// ErrInvalidFormat: the stream is not a decodable image.
	ErrInvalidFormat = imageproc.ErrInvalidFormat
	// ErrValidationRejected: the caller's validator rejected the image.
	ErrValidationRejected = errors.New("image rejected by validation")
	// ErrInvalidArgument: malformed size tag, key or missing editor.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrUnsupportedOptions: the editor/format/quality combination is not implemented.
	ErrUnsupportedOptions = errors.New("unsupported options")
	// ErrConflict: the destination file already exists.
	ErrConflict = errors.New("file already exists")
	// ErrNotFound: the primary file (or requested size) does not exist.
	ErrNotFound = errors.New("image not found")
	// ErrPartialDelete: one or more files of an artifact could not be removed.
	ErrPartialDelete = errors.New("partial delete failure")
	// ErrUnsupported: the operation needs a cleanup directory that was not configured.
	ErrUnsupported = errors.New("cleanup is not configured")
	// ErrLockContention: another sweep holds the cleanup lock.
	ErrLockContention = errors.New("cleanup already in progress")
)

// AggregateError collects every failure of a single artifact delete.
type AggregateError struct {
	ID   uuid.UUID
	Errs []error
}

func (e *AggregateError) Error() string {
	msgs := make([]string, len(e.Errs))
	for i, err := range e.Errs {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("deleting %s: %d file(s) could not be removed: %s",
		model.IDHex(e.ID), len(e.Errs), strings.Join(msgs, "; "))
}

// Unwrap exposes the individual failures to errors.Is and errors.As.
func (e *AggregateError) Unwrap() []error {
	return e.Errs
}

// Is makes every AggregateError match ErrPartialDelete.
func (e *AggregateError) Is(target error) bool {
	return target == ErrPartialDelete
}

// Detail renders one failure per line for cleanup records.
func (e *AggregateError) Detail() string {
	var b strings.Builder
	for _, err := range e.Errs {
		b.WriteString("  ")
		b.WriteString(err.Error())
		b.WriteByte('\n')
	}
	return b.String()
}
