package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/logger"
	"github.com/jjenkins/lottosync/internal/drawdate"
	"github.com/jjenkins/lottosync/internal/model"
)

// ErrReconcileDrift means duplicates survived a reconcile pass
var ErrReconcileDrift = errors.New("duplicate draws remain after reconcile")

// DedupStore is the slice of the draw store the reconciler needs
type DedupStore interface {
	ListAll(ctx context.Context) ([]model.Draw, error)
	ApplyDedup(ctx context.Context, deletes []int64, rewrites map[int64]string) error
}

// ReconcileResult tracks reconcile statistics
type ReconcileResult struct {
	Rows        int
	Groups      int // groups with more than one member
	Rewritten   int
	Deleted     int
	Conflicts   int // keeper rewrites skipped because the canonical key was taken
	Unparseable int
}

// Reconciler collapses stored draws that are identical once dates are normalized
type Reconciler struct {
	store DedupStore
	log   *logger.Logger
}

// NewReconciler creates a new Reconciler
func NewReconciler(store DedupStore, log *logger.Logger) *Reconciler {
	return &Reconciler{store: store, log: log}
}

type slotKey struct {
	date      string
	lottoType string
}

// Reconcile groups rows by normalized date, lotto type and numbers. In each
// group with several members one row survives: the first with a source,
// else the first seen. The others are deleted and the survivor's date is
// rewritten to canonical form. With dryRun nothing is written.
func (r *Reconciler) Reconcile(ctx context.Context, dryRun bool) (*ReconcileResult, error) {
	draws, err := r.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load draws: %w", err)
	}

	result := &ReconcileResult{Rows: len(draws)}
	groups, order, unparseable := groupDraws(draws)
	result.Unparseable = unparseable

	occupied := make(map[slotKey]int64, len(draws))
	for _, d := range draws {
		occupied[slotKey{d.DrawDate, d.LottoType}] = d.ID
	}

	var deletes []int64
	var keepers []model.Draw
	for _, key := range order {
		members := groups[key]
		if len(members) < 2 {
			continue
		}
		result.Groups++

		keeper := pickKeeper(members)
		for _, d := range members {
			if d.ID == keeper.ID {
				continue
			}
			deletes = append(deletes, d.ID)
			delete(occupied, slotKey{d.DrawDate, d.LottoType})
		}
		keepers = append(keepers, keeper)
	}

	rewrites := make(map[int64]string)
	for _, keeper := range keepers {
		normalized, err := drawdate.Normalize(keeper.DrawDate)
		if err != nil || normalized.String() == keeper.DrawDate {
			continue
		}
		target := slotKey{normalized.String(), keeper.LottoType}
		if holder, taken := occupied[target]; taken && holder != keeper.ID {
			r.log.Warningf("Draw %d: %s/%s already taken by draw %d, date left as %q",
				keeper.ID, target.date, target.lottoType, holder, keeper.DrawDate)
			result.Conflicts++
			continue
		}
		delete(occupied, slotKey{keeper.DrawDate, keeper.LottoType})
		occupied[target] = keeper.ID
		rewrites[keeper.ID] = target.date
	}

	result.Deleted = len(deletes)
	result.Rewritten = len(rewrites)

	if dryRun {
		return result, nil
	}

	if len(deletes) > 0 || len(rewrites) > 0 {
		if err := r.store.ApplyDedup(ctx, deletes, rewrites); err != nil {
			return nil, fmt.Errorf("failed to apply dedup: %w", err)
		}
	}

	if err := r.verify(ctx); err != nil {
		return result, err
	}

	return result, nil
}

// verify reloads the table and fails if any key still has several rows
func (r *Reconciler) verify(ctx context.Context) error {
	draws, err := r.store.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to reload draws: %w", err)
	}

	groups, _, _ := groupDraws(draws)
	remaining := 0
	for _, members := range groups {
		if len(members) > 1 {
			remaining++
		}
	}
	if remaining > 0 {
		return fmt.Errorf("%w: %d groups", ErrReconcileDrift, remaining)
	}
	return nil
}

// groupDraws buckets draws by dedupKey, preserving first-seen order
func groupDraws(draws []model.Draw) (map[string][]model.Draw, []string, int) {
	groups := make(map[string][]model.Draw)
	var order []string
	unparseable := 0

	for _, d := range draws {
		date := d.DrawDate
		if normalized, err := drawdate.Normalize(d.DrawDate); err == nil {
			date = normalized.String()
		} else {
			unparseable++
		}

		key := dedupKey(date, d)
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], d)
	}

	return groups, order, unparseable
}

func dedupKey(date string, d model.Draw) string {
	return strings.Join([]string{date, d.LottoType, joinInts(d.WinningNumbers), joinInts(d.MachineNumbers)}, "|")
}

func joinInts(nums []int) string {
	parts := make([]string, len(nums))
	for i, n := range nums {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}

// pickKeeper prefers the first member with a source; best-effort only
func pickKeeper(members []model.Draw) model.Draw {
	for _, d := range members {
		if d.Source.Valid && d.Source.String != "" {
			return d
		}
	}
	return members[0]
}
