package app

import (
	"errors"

	"github.com/samber/lo"

	"github.com/glabrego/itmonitor-cli/internal/feedstate"
	"github.com/glabrego/itmonitor-cli/internal/itmonitor"
)

// Apply folds a snapshot into the state manager: categories first, with the
// one-time category filter normalization, then entries. When trackVisit is
// set and entries were applied, the last-seen set is advanced and the number
// of entries new since the previous visit is returned.
//
// Persistence errors do not stop the remaining steps; they are joined.
func Apply(state *feedstate.Manager, snap Snapshot, trackVisit bool) (int, error) {
	var errs []error
	if snap.CategoriesFetched {
		state.SetCategories(snap.Categories)
		if !state.Normalized() {
			keys := lo.Map(snap.Categories, func(c itmonitor.Category, _ int) string { return c.Key })
			if _, err := state.NormalizeCategoryFilterOnFirstLoad(keys); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if !snap.EntriesFetched {
		return 0, errors.Join(errs...)
	}
	state.SetEntries(snap.Entries)
	if !trackVisit {
		return 0, errors.Join(errs...)
	}
	fresh, err := state.ComputeNewSinceLastVisit()
	if err != nil {
		errs = append(errs, err)
	}
	return fresh, errors.Join(errs...)
}
