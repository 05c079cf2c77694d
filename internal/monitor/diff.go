package monitor

import (
	"context"
	"errors"
	"fmt"

	"certwatch/pkg/domain"
	"certwatch/pkg/serrors"
	"certwatch/pkg/storage"
)

// Differ compares a fetched subdomain set against the persisted one and
// writes the merged set back. The stored set only ever grows: subdomains
// that disappear from later fetches are kept.
type Differ struct {
	store storage.Store
}

// NewDiffer constructs a Differ on top of the given store.
func NewDiffer(store storage.Store) *Differ {
	return &Differ{store: store}
}

// Apply diffs fetched against the stored set for name and persists the
// union. It returns the sorted list of subdomains absent from the stored set
// and whether this was the domain's first successful scan (which seeds
// storage and must not alert).
//
// The write is skipped when the union equals the stored set, except on a
// first scan where the entry is always created. When the write fails the
// error is returned and the caller must suppress the alert: the unsaved
// subdomains will re-diff as new on the next pass, so the alert is deferred
// rather than lost, and duplicates cannot occur.
func (d *Differ) Apply(ctx context.Context, name string, fetched domain.SubdomainSet) ([]string, bool, error) {
	stored, err := d.store.Load(ctx, name)
	firstScan := false
	switch {
	case errors.Is(err, serrors.ErrNotFound):
		firstScan = true
		stored = domain.NewSubdomainSet()
	case err != nil:
		return nil, false, fmt.Errorf("could not load stored set: %w", err)
	}

	newSubdomains := fetched.Diff(stored)
	updated := stored.Union(fetched)

	if firstScan || !updated.Equal(stored) {
		if err := d.store.Save(ctx, name, updated); err != nil {
			return nil, firstScan, fmt.Errorf("could not save updated set: %w", err)
		}
	}

	return newSubdomains, firstScan, nil
}
