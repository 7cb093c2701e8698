package service

import (
	"errors"
	"fmt"

	"taxcalc/internal/engine"
	"taxcalc/internal/repository"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

func invalid(field, reason string) error {
	return engine.NewValidationError(field, reason)
}

// lookupErr maps repository misses to ErrNotFound and wraps everything else.
func lookupErr(entity string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%s %w", entity, ErrNotFound)
	}
	return fmt.Errorf("failed to fetch %s: %w", entity, err)
}

// wrapWrite keeps conflict messages readable and annotates storage failures.
func wrapWrite(op string, err error) error {
	if errors.Is(err, ErrConflict) || engine.IsValidation(err) {
		return err
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
