// Package storage defines the persistence contract for per-domain sets of
// known subdomains. Implementations must survive crashes mid-write: a save is
// either fully applied or not applied at all.
//
//go:generate mockgen -package mockstorage -source=interface.go -destination=mock/mockstorage.go *
package storage

import (
	"context"

	"certwatch/pkg/domain"
)

// Store persists one subdomain set per monitored root domain.
type Store interface {
	// Load returns the stored set for name. It returns serrors.ErrNotFound
	// when no entry exists yet (first scan of a domain) and
	// serrors.ErrPersistence when the entry exists but cannot be read or
	// decoded; corrupt data is never silently treated as an empty set.
	Load(ctx context.Context, name string) (domain.SubdomainSet, error)

	// Save atomically replaces the stored set for name.
	Save(ctx context.Context, name string, set domain.SubdomainSet) error

	// Delete removes the stored set for name. Deleting an absent entry is
	// not an error.
	Delete(ctx context.Context, name string) error
}
