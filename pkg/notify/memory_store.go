package notify

import (
	"context"
	"maps"
	"slices"
	"sync"
)

// MemoryStore is an in-process Store. Flows with equal priority keep the
// order they were added in. Useful for tests and single-node development.
type MemoryStore struct {
	mu         sync.RWMutex
	flows      []Flow
	prefs      map[prefKey]Preference
	deliveries []DeliveryLogEntry
	followers  map[string][]Recipient
	admins     []Recipient
}

type prefKey struct {
	recipientID string
	eventType   string
	channel     Channel
}

// NewMemoryStore creates a store holding the given flows.
func NewMemoryStore(flows ...Flow) *MemoryStore {
	s := &MemoryStore{
		prefs:     make(map[prefKey]Preference),
		followers: make(map[string][]Recipient),
	}
	for _, f := range flows {
		s.AddFlow(f)
	}
	return s
}

// AddFlow inserts or replaces a flow by ID. A replaced flow keeps its position.
func (s *MemoryStore) AddFlow(f Flow) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f.Condition = maps.Clone(f.Condition)
	if i := slices.IndexFunc(s.flows, func(x Flow) bool { return x.ID == f.ID }); i >= 0 {
		s.flows[i] = f
		return
	}
	s.flows = append(s.flows, f)
}

// SetFlowActive toggles a flow. It reports whether the flow exists.
func (s *MemoryStore) SetFlowActive(id string, active bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := slices.IndexFunc(s.flows, func(x Flow) bool { return x.ID == id })
	if i < 0 {
		return false
	}
	s.flows[i].IsActive = active
	return true
}

// RemoveFlow deletes a flow by ID.
func (s *MemoryStore) RemoveFlow(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.flows = slices.DeleteFunc(s.flows, func(x Flow) bool { return x.ID == id })
}

func (s *MemoryStore) ListFlows(_ context.Context, eventType string, class RecipientClass) ([]Flow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Flow
	for _, f := range s.flows {
		if f.EventType == eventType && f.RecipientClass == class {
			f.Condition = maps.Clone(f.Condition)
			out = append(out, f)
		}
	}
	return out, nil
}

func (s *MemoryStore) GetFlow(_ context.Context, flowID string) (*Flow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, f := range s.flows {
		if f.ID == flowID {
			f.Condition = maps.Clone(f.Condition)
			return &f, nil
		}
	}
	return nil, ErrFlowNotFound
}

func (s *MemoryStore) FindPreference(_ context.Context, recipientID, eventType string, channel Channel) (*Preference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.prefs[prefKey{recipientID, eventType, channel}]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (s *MemoryStore) SetPreference(_ context.Context, pref Preference) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.prefs[prefKey{pref.RecipientID, pref.EventType, pref.Channel}] = pref
	return nil
}

func (s *MemoryStore) AppendDelivery(_ context.Context, entry DeliveryLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry.TemplateData = maps.Clone(entry.TemplateData)
	s.deliveries = append(s.deliveries, entry)
	return nil
}

// ListDeliveries returns matching entries ordered by CreatedAt, oldest first.
func (s *MemoryStore) ListDeliveries(_ context.Context, filter DeliveryFilter) ([]DeliveryLogEntry, error) {
	s.mu.RLock()
	out := make([]DeliveryLogEntry, 0, len(s.deliveries))
	for _, e := range s.deliveries {
		if filter.matches(e) {
			out = append(out, e)
		}
	}
	s.mu.RUnlock()

	slices.SortStableFunc(out, func(a, b DeliveryLogEntry) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})

	if filter.Offset > 0 {
		out = out[min(filter.Offset, len(out)):]
	}
	if filter.Limit > 0 {
		out = out[:min(filter.Limit, len(out))]
	}
	return out, nil
}

// Deliveries returns every recorded entry in append order.
func (s *MemoryStore) Deliveries() []DeliveryLogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Clone(s.deliveries)
}

// AddFollower registers r as a follower of entityID.
func (s *MemoryStore) AddFollower(entityID string, r Recipient) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.followers[entityID] = append(s.followers[entityID], r)
}

// SetAdmins replaces the administrator audience.
func (s *MemoryStore) SetAdmins(admins ...Recipient) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.admins = slices.Clone(admins)
}

func (s *MemoryStore) Followers(_ context.Context, entityID string) ([]Recipient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Clone(s.followers[entityID]), nil
}

func (s *MemoryStore) Admins(context.Context) ([]Recipient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Clone(s.admins), nil
}

func (f DeliveryFilter) matches(e DeliveryLogEntry) bool {
	switch {
	case f.RecipientID != "" && e.RecipientID != f.RecipientID:
		return false
	case f.FlowID != "" && e.FlowID != f.FlowID:
		return false
	case f.EventType != "" && e.EventType != f.EventType:
		return false
	case f.Status != "" && e.Status != f.Status:
		return false
	case f.Since != nil && e.CreatedAt.Before(*f.Since):
		return false
	}
	return true
}
