package members

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"fellowship/internal/apperr"
)

// FirstFellowshipNumber is allocated when no member exists yet.
const FirstFellowshipNumber = "AAA001"

const maxSerial = 999

var (
	// ErrIdentifierSpaceExhausted is returned after ZZZ999. The number space
	// does not wrap around.
	ErrIdentifierSpaceExhausted = apperr.New(apperr.CodeConflict, "fellowship number space exhausted")

	// ErrAllocationConflict is returned when every allocation attempt collided
	// with a concurrent registration.
	ErrAllocationConflict = apperr.New(apperr.CodeConflict, "could not allocate a unique fellowship number, please retry")

	errMalformedNumber = errors.New("malformed fellowship number")
)

// ValidFellowshipNumber reports whether s is three uppercase letters followed
// by three digits.
func ValidFellowshipNumber(s string) bool {
	if len(s) != 6 {
		return false
	}
	for i := 0; i < 3; i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return false
		}
	}
	for i := 3; i < 6; i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// NextFellowshipNumber returns the successor of last. The digits count 001-999;
// on overflow they reset to 001 and the letters advance as a base-26 counter
// carrying right to left (AAZ999 -> ABA001).
func NextFellowshipNumber(last string) (string, error) {
	if last == "" {
		return FirstFellowshipNumber, nil
	}
	if !ValidFellowshipNumber(last) {
		return "", fmt.Errorf("%w: %q", errMalformedNumber, last)
	}

	letters := []byte(last[:3])
	serial, _ := strconv.Atoi(last[3:])
	if serial < maxSerial {
		return fmt.Sprintf("%s%03d", letters, serial+1), nil
	}

	for i := 2; i >= 0; i-- {
		if letters[i] != 'Z' {
			letters[i]++
			return fmt.Sprintf("%s%03d", letters, 1), nil
		}
		letters[i] = 'A'
	}
	return "", ErrIdentifierSpaceExhausted
}

// LastNumberReader returns the lexicographically greatest stored fellowship
// number, or "" when there are no members.
type LastNumberReader interface {
	LastFellowshipNumber(ctx context.Context) (string, error)
}

// Allocator computes the next fellowship number from the store. It does not
// reserve the number: the members.fellowship_number UNIQUE constraint rejects
// a duplicate at insert time, and callers retry the allocate-and-insert
// sequence on conflict.
type Allocator struct {
	src LastNumberReader
}

// NewAllocator builds an allocator over src.
func NewAllocator(src LastNumberReader) *Allocator {
	return &Allocator{src: src}
}

// Allocate returns the successor of the greatest stored number.
func (a *Allocator) Allocate(ctx context.Context) (string, error) {
	last, err := a.src.LastFellowshipNumber(ctx)
	if err != nil {
		return "", apperr.Wrap(err, apperr.CodeInternal, "read last fellowship number")
	}
	next, err := NextFellowshipNumber(last)
	if err != nil {
		if errors.Is(err, ErrIdentifierSpaceExhausted) {
			return "", err
		}
		return "", apperr.Wrap(err, apperr.CodeInternal, "compute next fellowship number")
	}
	return next, nil
}
