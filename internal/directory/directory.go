package directory

import (
	"context"
	"fmt"
)

// Directory resolves user ids to human-readable display names. The profile
// service owning those names lives elsewhere; this is the lookup edge the
// roster code consumes. Absence of a name is normal and handled by Mask.
type Directory interface {
	DisplayNames(ctx context.Context, userIDs []string) (map[string]string, error)
}

// Store is the subset of the key-value store the redis-backed directory
// needs.
type Store interface {
	GetDisplayNames(ctx context.Context, userIDs []string) (map[string]string, error)
}

// StoreDirectory reads display names straight from the key-value store.
type StoreDirectory struct {
	store Store
}

func NewStoreDirectory(store Store) *StoreDirectory {
	return &StoreDirectory{store: store}
}

func (d *StoreDirectory) DisplayNames(ctx context.Context, userIDs []string) (map[string]string, error) {
	return d.store.GetDisplayNames(ctx, userIDs)
}

// Mask derives a stable pseudonym from a user id so responses never carry
// raw identifiers when no display name exists. Same id, same label.
func Mask(userID string) string {
	if userID == "" {
		return ""
	}
	var h uint32
	for i := 0; i < len(userID); i++ {
		h = h*31 + uint32(userID[i])
	}
	code := fmt.Sprintf("%06x", h)
	return "Player-" + code[:6]
}

// Label picks the resolved display name for a user, falling back to the
// masked pseudonym.
func Label(names map[string]string, userID string) string {
	if name := names[userID]; name != "" {
		return name
	}
	return Mask(userID)
}
