package activate

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cohort/internal/querygen"
	"github.com/roach88/cohort/internal/segment"
	"github.com/roach88/cohort/internal/testutil"
	"github.com/roach88/cohort/internal/validate"
)

func validatedQuery(text string, rows int64) (*querygen.GeneratedQuery, *validate.Result) {
	q := &querygen.GeneratedQuery{
		Text:       text,
		TablesUsed: []string{"bank_customers"},
		Limit:      1000,
	}
	return q, &validate.Result{IsValid: true, RowCount: rows}
}

func TestActivatePublishesSegment(t *testing.T) {
	cat := testutil.NewBankCatalog(t)
	store := segment.NewStore()
	clock := testutil.NewDefaultClock()

	a := New(cat, store, Options{
		IDs:        NewFixedIDGenerator("SEG_0000AAAA"),
		Targets:    []string{"CRM_System", "Email_Marketing_Platform"},
		SampleSize: 2,
		Now:        clock.Now,
	})

	q, vr := validatedQuery("SELECT * FROM bank_customers WHERE housing = 'yes' AND balance > 1000 LIMIT 1000", 3)
	seg, err := a.Activate(context.Background(), q, vr, nil)
	require.NoError(t, err)

	assert.Equal(t, "SEG_0000AAAA", seg.ID)
	assert.Equal(t, 3, seg.CustomerCount)
	assert.Len(t, seg.Sample, 2)
	assert.Equal(t, int64(3), seg.EstimatedRows)
	assert.Equal(t, []string{"CRM_System", "Email_Marketing_Platform"}, seg.DownstreamTargets)
	assert.Equal(t, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), seg.CreatedAt)

	stored, err := store.Get(seg.ID)
	require.NoError(t, err)
	assert.Same(t, seg, stored)
}

func TestActivateSampleSmallerThanCap(t *testing.T) {
	cat := testutil.NewBankCatalog(t)
	a := New(cat, segment.NewStore(), Options{SampleSize: 5})

	q, vr := validatedQuery("SELECT * FROM bank_customers WHERE housing = 'yes' AND balance > 1000 LIMIT 1000", 3)
	seg, err := a.Activate(context.Background(), q, vr, nil)
	require.NoError(t, err)

	assert.Equal(t, 3, seg.CustomerCount)
	assert.Len(t, seg.Sample, 3)
}

func TestActivateRandomIDFormat(t *testing.T) {
	cat := testutil.NewBankCatalog(t)
	a := New(cat, segment.NewStore(), Options{})

	q, vr := validatedQuery("SELECT * FROM bank_customers WHERE balance > 0 LIMIT 1000", 8)
	seg, err := a.Activate(context.Background(), q, vr, nil)
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^SEG_[0-9A-F]{8}$`), seg.ID)
}

func TestActivateRetriesOnIDConflict(t *testing.T) {
	cat := testutil.NewBankCatalog(t)
	store := segment.NewStore()

	require.NoError(t, store.Create(&segment.Segment{ID: "SEG_TAKEN001"}))

	a := New(cat, store, Options{
		IDs: NewFixedIDGenerator("SEG_TAKEN001", "SEG_FREE0002"),
	})
	q, vr := validatedQuery("SELECT * FROM bank_customers WHERE balance > 0 LIMIT 1000", 8)
	seg, err := a.Activate(context.Background(), q, vr, nil)
	require.NoError(t, err)
	assert.Equal(t, "SEG_FREE0002", seg.ID)
}

func TestActivateRejectsUnvalidatedQuery(t *testing.T) {
	cat := testutil.NewBankCatalog(t)
	a := New(cat, segment.NewStore(), Options{})

	q := &querygen.GeneratedQuery{Text: "SELECT * FROM bank_customers LIMIT 1000"}

	_, err := a.Activate(context.Background(), q, nil, nil)
	var actErr *ActivationError
	require.ErrorAs(t, err, &actErr)

	_, err = a.Activate(context.Background(), q, &validate.Result{IsValid: false}, nil)
	require.ErrorAs(t, err, &actErr)
	assert.False(t, actErr.TimedOut)
}

func TestActivateExecutionFailureLeavesStoreEmpty(t *testing.T) {
	cat := testutil.NewBankCatalog(t)
	store := segment.NewStore()
	a := New(cat, store, Options{})

	q, vr := validatedQuery("SELECT * FROM no_such_table LIMIT 1000", querygen.RowsUnknown)
	_, err := a.Activate(context.Background(), q, vr, nil)
	var actErr *ActivationError
	require.ErrorAs(t, err, &actErr)
	assert.False(t, actErr.TimedOut)
	assert.Equal(t, 0, store.Len())
}

func TestActivateTimeout(t *testing.T) {
	cat := testutil.NewBankCatalog(t)
	store := segment.NewStore()
	a := New(cat, store, Options{})

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	q, vr := validatedQuery("SELECT * FROM bank_customers LIMIT 1000", 8)
	_, err := a.Activate(ctx, q, vr, nil)
	var actErr *ActivationError
	require.ErrorAs(t, err, &actErr)
	assert.True(t, actErr.TimedOut)
	assert.Equal(t, 0, store.Len())
}
