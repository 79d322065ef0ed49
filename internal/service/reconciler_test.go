package service

import (
	"context"
	"testing"

	"github.com/jjenkins/lottosync/internal/store"
	"github.com/jjenkins/lottosync/internal/testutil"
	"github.com/stretchr/testify/require"
)

// seedRaw inserts rows as a legacy writer would have, with unnormalized dates
func seedRaw(t *testing.T, db *store.DB, rows [][4]string) {
	t.Helper()
	for _, r := range rows {
		var source any
		if r[3] != "" {
			source = r[3]
		}
		_, err := db.ExecContext(context.Background(), `
			INSERT INTO draws (draw_date, lotto_type, winning_numbers, machine_numbers, source, metadata)
			VALUES ($1, $2, $3, '{}', $4, '{}')
		`, r[0], r[1], r[2], source)
		require.NoError(t, err)
	}
}

func TestReconcileCollapsesDuplicates(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenDB(t)
	draws := store.NewDrawStore(db)

	seedRaw(t, db, [][4]string{
		{"5-Jan-2024", "Monday Special", "{10,20,30,40,50}", ""},
		{"05-January-2024", "Monday Special", "{10,20,30,40,50}", "theb2blotto"},
		{"Jan 5, 2024", "Monday Special", "{10,20,30,40,50}", ""},
		{"2024-01-06", "Lucky Tuesday", "{1,2,3,4,5}", "theb2blotto"},
		{"6-Jan-2024", "Lucky Tuesday", "{1,2,3,4,5}", ""},
		{"whenever", "Midweek", "{7,8,9}", ""},
	})

	r := NewReconciler(draws, testutil.Logger(t))

	result, err := r.Reconcile(ctx, false)
	require.NoError(t, err)
	require.Equal(t, 6, result.Rows)
	require.Equal(t, 2, result.Groups)
	require.Equal(t, 3, result.Deleted)
	// The Lucky Tuesday keeper is already canonical.
	require.Equal(t, 1, result.Rewritten)
	require.Equal(t, 0, result.Conflicts)
	require.Equal(t, 1, result.Unparseable)

	stored, err := draws.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 3)

	// The keeper is the row that carried a source.
	require.Equal(t, int64(2), stored[0].ID)
	require.Equal(t, "2024-01-05", stored[0].DrawDate)
	require.Equal(t, int64(4), stored[1].ID)
	require.Equal(t, "2024-01-06", stored[1].DrawDate)
	require.Equal(t, "whenever", stored[2].DrawDate)

	again, err := r.Reconcile(ctx, false)
	require.NoError(t, err)
	require.Zero(t, again.Deleted)
	require.Zero(t, again.Rewritten)
	require.Zero(t, again.Groups)
}

func TestReconcileKeepsDistinctNumbers(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenDB(t)
	draws := store.NewDrawStore(db)

	seedRaw(t, db, [][4]string{
		{"5-Jan-2024", "Monday Special", "{10,20,30,40,50}", ""},
		{"05-January-2024", "Monday Special", "{11,20,30,40,50}", ""},
	})

	result, err := NewReconciler(draws, testutil.Logger(t)).Reconcile(ctx, false)
	require.NoError(t, err)
	require.Zero(t, result.Groups)

	count, err := draws.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, count)
}

func TestReconcileRewriteConflict(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenDB(t)
	draws := store.NewDrawStore(db)

	seedRaw(t, db, [][4]string{
		// Canonical slot is held by a row with different numbers.
		{"2024-01-05", "Monday Special", "{1,2,3,4,5}", ""},
		{"5-Jan-2024", "Monday Special", "{10,20,30,40,50}", ""},
		{"05-January-2024", "Monday Special", "{10,20,30,40,50}", ""},
	})

	result, err := NewReconciler(draws, testutil.Logger(t)).Reconcile(ctx, false)
	require.NoError(t, err)
	require.Equal(t, 1, result.Deleted)
	require.Equal(t, 0, result.Rewritten)
	require.Equal(t, 1, result.Conflicts)

	stored, err := draws.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	require.Equal(t, "2024-01-05", stored[0].DrawDate)
	require.Equal(t, "5-Jan-2024", stored[1].DrawDate)
}

func TestReconcileDryRun(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenDB(t)
	draws := store.NewDrawStore(db)

	seedRaw(t, db, [][4]string{
		{"5-Jan-2024", "Monday Special", "{10,20,30,40,50}", ""},
		{"05-January-2024", "Monday Special", "{10,20,30,40,50}", ""},
	})

	result, err := NewReconciler(draws, testutil.Logger(t)).Reconcile(ctx, true)
	require.NoError(t, err)
	require.Equal(t, 1, result.Deleted)
	require.Equal(t, 1, result.Rewritten)

	count, err := draws.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, count)
}
