//go:build integration

package members_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"fellowship/internal/members"
	"fellowship/internal/testutil"
)

func TestPostgresConcurrentRegistrations(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewPostgres(t)

	const n = 10
	// Each round admits at least one caller, so n attempts always suffice.
	svc := members.NewService(db, members.NewRepository(db), members.WithAllocationAttempts(n))

	numbers := make([]string, n)
	var g errgroup.Group
	for i := range n {
		g.Go(func() error {
			m, err := svc.Register(ctx, jane())
			if err != nil {
				return err
			}
			numbers[i] = m.FellowshipNumber
			return nil
		})
	}
	require.NoError(t, g.Wait())

	seen := make(map[string]bool, n)
	for _, num := range numbers {
		assert.False(t, seen[num], "duplicate %s", num)
		seen[num] = true
	}
	assert.True(t, seen["AAA001"])
	assert.True(t, seen["AAA010"])

	count, err := svc.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, n, count)
}
