package notify

import (
	"context"
	"errors"
)

// PreferencePolicy decides what happens when preferences cannot be read.
type PreferencePolicy string

const (
	// FailOpen treats an unreadable preference as enabled so notifications
	// are not silently dropped. This is the default.
	FailOpen PreferencePolicy = "fail_open"
	// FailClosed skips the flow when preferences cannot be read.
	FailClosed PreferencePolicy = "fail_closed"
)

// Preferences answers whether a recipient accepts an event type on a channel.
type Preferences struct {
	store PreferenceStore
}

// NewPreferences wraps a preference store.
func NewPreferences(store PreferenceStore) *Preferences {
	return &Preferences{store: store}
}

// IsEnabled returns true when no preference row exists. It only fails when the
// store itself fails, in which case the error wraps ErrStorage.
func (p *Preferences) IsEnabled(ctx context.Context, recipientID, eventType string, channel Channel) (bool, error) {
	pref, err := p.store.FindPreference(ctx, recipientID, eventType, channel)
	if err != nil {
		return false, errors.Join(ErrStorage, err)
	}
	if pref == nil {
		return true, nil
	}
	return pref.IsEnabled, nil
}

// Set stores a recipient preference.
func (p *Preferences) Set(ctx context.Context, pref Preference) error {
	if err := p.store.SetPreference(ctx, pref); err != nil {
		return errors.Join(ErrStorage, err)
	}
	return nil
}
