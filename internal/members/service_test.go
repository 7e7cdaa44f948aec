package members_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"fellowship/internal/apperr"
	"fellowship/internal/members"
	"fellowship/internal/metrics"
	"fellowship/internal/store"
	"fellowship/internal/testutil"
)

func jane() members.RegisterInput {
	return members.RegisterInput{
		FullName:    "Jane Doe",
		PhoneNumber: "0711111111",
		Gender:      members.GenderFemale,
	}
}

func newService(t *testing.T, opts ...members.Option) (*members.Service, *members.Repository, *store.DB) {
	t.Helper()
	db := testutil.NewDB(t)
	repo := members.NewRepository(db)
	return members.NewService(db, repo, opts...), repo, db
}

func TestRegisterAllocatesSequentialNumbers(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t)

	first, err := svc.Register(ctx, jane())
	require.NoError(t, err)
	assert.Equal(t, "AAA001", first.FellowshipNumber)
	assert.NotEmpty(t, first.Credential)
	assert.Equal(t, "Jane Doe", first.FullName)

	second, err := svc.Register(ctx, members.RegisterInput{
		FullName:    "John Doe",
		PhoneNumber: "0722222222",
		Gender:      "male",
	})
	require.NoError(t, err)
	assert.Equal(t, "AAA002", second.FellowshipNumber)
	assert.Equal(t, members.GenderMale, second.Gender)
	assert.NotEqual(t, first.Credential, second.Credential)

	found, err := svc.GetByCredential(ctx, first.Credential)
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)
}

func TestRegisterCarriesLettersOnOverflow(t *testing.T) {
	cases := map[string]string{
		"AAA999": "AAB001",
		"AAZ999": "ABA001",
	}
	for seeded, want := range cases {
		t.Run(seeded, func(t *testing.T) {
			ctx := context.Background()
			svc, repo, _ := newService(t)
			require.NoError(t, repo.Insert(ctx, &members.Member{
				ID:               "seed",
				FullName:         "Seed Member",
				PhoneNumber:      "0700000000",
				Gender:           members.GenderMale,
				FellowshipNumber: seeded,
				Credential:       "seed-credential",
				CreatedAt:        time.Now().UTC(),
			}))

			m, err := svc.Register(ctx, jane())
			require.NoError(t, err)
			assert.Equal(t, want, m.FellowshipNumber)
		})
	}
}

func TestRegisterValidation(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t)
	year := 7

	cases := map[string]members.RegisterInput{
		"short name":  {FullName: "J", PhoneNumber: "0711111111", Gender: members.GenderFemale},
		"short phone": {FullName: "Jane", PhoneNumber: "0711", Gender: members.GenderFemale},
		"gender":      {FullName: "Jane", PhoneNumber: "0711111111", Gender: "OTHER"},
		"year":        {FullName: "Jane", PhoneNumber: "0711111111", Gender: members.GenderFemale, YearOfStudy: &year},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Register(ctx, in)
			require.Error(t, err)
			assert.True(t, apperr.HasCode(err, apperr.CodeValidation))
		})
	}
}

// staleStore simulates a concurrent registration: its first reads of the last
// fellowship number miss a row that has already been committed.
type staleStore struct {
	*members.Repository
	staleReads atomic.Int32
}

func (s *staleStore) LastFellowshipNumber(ctx context.Context) (string, error) {
	if s.staleReads.Add(-1) >= 0 {
		return "", nil
	}
	return s.Repository.LastFellowshipNumber(ctx)
}

func TestRegisterRetriesOnNumberCollision(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	repo := members.NewRepository(db)
	m := metrics.New(prometheus.NewRegistry())

	_, err := members.NewService(db, repo).Register(ctx, jane())
	require.NoError(t, err)

	stale := &staleStore{Repository: repo}
	stale.staleReads.Store(2)
	svc := members.NewService(db, stale, members.WithMetrics(m), members.WithAllocationAttempts(5))

	got, err := svc.Register(ctx, jane())
	require.NoError(t, err)
	assert.Equal(t, "AAA002", got.FellowshipNumber)
	assert.Equal(t, 2.0, promtest.ToFloat64(m.AllocationRetries))
}

func TestRegisterGivesUpAfterBoundedAttempts(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	repo := members.NewRepository(db)

	_, err := members.NewService(db, repo).Register(ctx, jane())
	require.NoError(t, err)

	stale := &staleStore{Repository: repo}
	stale.staleReads.Store(100)
	svc := members.NewService(db, stale, members.WithAllocationAttempts(3))

	_, err = svc.Register(ctx, jane())
	require.ErrorIs(t, err, members.ErrAllocationConflict)
	assert.True(t, apperr.HasCode(err, apperr.CodeConflict))

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestConcurrentRegistrationsGetDistinctNumbers(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t)

	const n = 20
	numbers := make([]string, n)
	var g errgroup.Group
	for i := 0; i < n; i++ {
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
	assert.True(t, seen["AAA020"])
}

func TestLookupsReturnNotFound(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t)

	_, err := svc.GetByCredential(ctx, "unknown")
	assert.ErrorIs(t, err, members.ErrMemberNotFound)

	_, err = svc.GetByPhone(ctx, "0799999999")
	assert.ErrorIs(t, err, members.ErrMemberNotFound)

	_, err = svc.GetByFellowshipNumber(ctx, "AAA001")
	assert.ErrorIs(t, err, members.ErrMemberNotFound)

	m, err := svc.Register(ctx, jane())
	require.NoError(t, err)

	byPhone, err := svc.GetByPhone(ctx, "0711111111")
	require.NoError(t, err)
	assert.Equal(t, m.ID, byPhone.ID)

	byNumber, err := svc.GetByFellowshipNumber(ctx, m.FellowshipNumber)
	require.NoError(t, err)
	assert.Equal(t, m.ID, byNumber.ID)

	count, err := svc.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
