package members

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fellowship/internal/apperr"
)

func TestNextFellowshipNumber(t *testing.T) {
	cases := []struct {
		last string
		want string
	}{
		{"", "AAA001"},
		{"AAA001", "AAA002"},
		{"AAA009", "AAA010"},
		{"AAA998", "AAA999"},
		{"AAA999", "AAB001"},
		{"AAZ999", "ABA001"},
		{"AZZ999", "BAA001"},
		{"ZZY999", "ZZZ001"},
		{"AAA000", "AAA001"},
	}
	for _, tc := range cases {
		got, err := NextFellowshipNumber(tc.last)
		require.NoError(t, err, tc.last)
		assert.Equal(t, tc.want, got, "successor of %q", tc.last)
	}
}

func TestNextFellowshipNumberDoesNotWrap(t *testing.T) {
	_, err := NextFellowshipNumber("ZZZ999")
	assert.ErrorIs(t, err, ErrIdentifierSpaceExhausted)
}

func TestNextFellowshipNumberRejectsMalformed(t *testing.T) {
	for _, last := range []string{"AA001", "aaa001", "AAA01A", "AAAA001"} {
		_, err := NextFellowshipNumber(last)
		assert.Error(t, err, last)
	}
}

type fixedLast struct {
	last string
	err  error
}

func (f fixedLast) LastFellowshipNumber(context.Context) (string, error) {
	return f.last, f.err
}

func TestAllocator(t *testing.T) {
	ctx := context.Background()

	got, err := NewAllocator(fixedLast{}).Allocate(ctx)
	require.NoError(t, err)
	assert.Equal(t, "AAA001", got)

	got, err = NewAllocator(fixedLast{last: "AAZ999"}).Allocate(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ABA001", got)

	_, err = NewAllocator(fixedLast{err: errors.New("connection refused")}).Allocate(ctx)
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeInternal))

	_, err = NewAllocator(fixedLast{last: "ZZZ999"}).Allocate(ctx)
	assert.ErrorIs(t, err, ErrIdentifierSpaceExhausted)
}
