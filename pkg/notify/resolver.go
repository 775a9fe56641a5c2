package notify

import (
	"cmp"
	"context"
	"errors"
	"maps"
	"slices"
)

// DefaultAliases maps human-facing trigger names to stored canonical event types.
var DefaultAliases = map[string]string{
	"song_upload":         EventSongUploaded,
	"new_song":            EventSongUploaded,
	"ticket_purchase":     EventTicketPurchased,
	"ticket_sold":         EventTicketPurchased,
	"artist_verification": EventArtistVerified,
	"artist_approved":     EventArtistVerified,
	"milestone":           EventMilestoneReached,
	"new_follower":        EventFollowerAdded,
	"follow":              EventFollowerAdded,
}

// Resolver maps an event to the ordered list of flows that should handle it.
type Resolver struct {
	store   FlowStore
	aliases map[string]string
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithAliases replaces the canonicalization table.
func WithAliases(aliases map[string]string) ResolverOption {
	return func(r *Resolver) {
		r.aliases = maps.Clone(aliases)
	}
}

// WithExtraAliases adds entries on top of the current table.
func WithExtraAliases(aliases map[string]string) ResolverOption {
	return func(r *Resolver) {
		if r.aliases == nil {
			r.aliases = make(map[string]string, len(aliases))
		}
		maps.Copy(r.aliases, aliases)
	}
}

// NewResolver creates a resolver over store using DefaultAliases.
func NewResolver(store FlowStore, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		store:   store,
		aliases: maps.Clone(DefaultAliases),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Canonicalize returns the stored event type for a trigger name.
// Unknown names are returned unchanged.
func (r *Resolver) Canonicalize(eventType string) string {
	if canonical, ok := r.aliases[eventType]; ok && canonical != "" {
		return canonical
	}
	return eventType
}

// Resolve returns the active flows for the canonical form of eventType and
// class, ordered by descending priority. Equal priorities keep the store's
// order. This order is the dispatch order and the tie-break for any
// first-match policy built on top of it.
func (r *Resolver) Resolve(ctx context.Context, eventType string, class RecipientClass) ([]Flow, error) {
	canonical := r.Canonicalize(eventType)

	flows, err := r.store.ListFlows(ctx, canonical, class)
	if err != nil {
		return nil, errors.Join(ErrStorage, err)
	}

	active := slices.DeleteFunc(slices.Clone(flows), func(f Flow) bool {
		return !f.IsActive
	})
	slices.SortStableFunc(active, func(a, b Flow) int {
		return cmp.Compare(b.Priority, a.Priority)
	})
	return active, nil
}
