// Package draws reconciles incoming draw payloads into the stored draw history.
package draws

import (
	"errors"
	"slices"

	"github.com/aristath/lotofacil/internal/domain"
	"github.com/rs/zerolog"
)

// MergeStats summarises what a merge did to the collection.
type MergeStats struct {
	Inserted  int
	Updated   int
	Unchanged int
}

// Changed reports whether the merge produced anything worth persisting.
func (s MergeStats) Changed() bool {
	return s.Inserted > 0 || s.Updated > 0
}

// Reconciler merges incoming draws into an existing collection keyed by draw_id.
// It works on copies and never persists anything itself.
type Reconciler struct {
	rules domain.Rules
	log   zerolog.Logger
}

// NewReconciler creates a reconciler validating payloads against rules.
func NewReconciler(rules domain.Rules, log zerolog.Logger) *Reconciler {
	return &Reconciler{
		rules: rules,
		log:   log.With().Str("component", "draw_reconciler").Logger(),
	}
}

// Merge applies incoming payloads to existing by draw_id equality.
//
// A known draw_id has its date and numbers overwritten in place; an unknown one
// is appended. The whole batch is validated before anything is merged: if any
// payload is malformed the returned error wraps domain.ErrMalformedRecord for
// every bad payload and no merged collection is returned.
//
// Merging the same batch twice yields the same collection as merging it once.
func (r *Reconciler) Merge(existing []domain.DrawRecord, incoming []domain.RawDraw) ([]domain.DrawRecord, MergeStats, error) {
	var stats MergeStats

	records := make([]domain.DrawRecord, 0, len(incoming))
	var errs []error
	for _, raw := range incoming {
		rec, err := raw.ToRecord(r.rules)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		records = append(records, rec)
	}
	if len(errs) > 0 {
		r.log.Error().
			Int("malformed", len(errs)).
			Int("incoming", len(incoming)).
			Msg("Rejecting batch with malformed draw records")
		return nil, stats, errors.Join(errs...)
	}

	merged, position := r.collapse(existing)

	for _, rec := range records {
		idx, found := position[rec.DrawID]
		if !found {
			position[rec.DrawID] = len(merged)
			merged = append(merged, rec)
			stats.Inserted++
			continue
		}

		current := merged[idx]
		if current.DrawDate.Equal(rec.DrawDate) && slices.Equal(current.Numbers, rec.Numbers) {
			stats.Unchanged++
			continue
		}

		// Re-delivered ids always overwrite the stored payload.
		merged[idx].DrawDate = rec.DrawDate
		merged[idx].Numbers = rec.Numbers
		stats.Updated++

		r.log.Info().
			Int("draw_id", rec.DrawID).
			Ints("old_numbers", current.Numbers).
			Ints("new_numbers", rec.Numbers).
			Msg("Draw record overwritten by re-fetched payload")
	}

	r.log.Debug().
		Int("inserted", stats.Inserted).
		Int("updated", stats.Updated).
		Int("unchanged", stats.Unchanged).
		Int("total", len(merged)).
		Msg("Merge complete")

	return merged, stats, nil
}

// collapse deep-copies existing and folds duplicate draw_ids (possible in
// hand-edited legacy sheets) onto their first position, later rows winning.
func (r *Reconciler) collapse(existing []domain.DrawRecord) ([]domain.DrawRecord, map[int]int) {
	copied := domain.CloneDraws(existing)
	merged := make([]domain.DrawRecord, 0, len(copied))
	position := make(map[int]int, len(copied))

	for _, rec := range copied {
		if idx, dup := position[rec.DrawID]; dup {
			r.log.Warn().Int("draw_id", rec.DrawID).Msg("Duplicate draw_id in stored history, keeping latest row")
			merged[idx] = rec
			continue
		}
		position[rec.DrawID] = len(merged)
		merged = append(merged, rec)
	}
	return merged, position
}
