package notify

import "maps"

// Kind is a typed event payload. The set of kinds is closed: every kind lives
// in this file, and Custom carries anything the platform has not modelled yet.
type Kind interface {
	EventType() string
	Metadata() map[string]any
	kind()
}

// Canonical event types of the built-in kinds.
const (
	EventSongUploaded     = "song_uploaded"
	EventTicketPurchased  = "ticket_purchased"
	EventArtistVerified   = "artist_verified"
	EventMilestoneReached = "milestone_reached"
	EventFollowerAdded    = "follower_added"
)

// SongUploaded is emitted when an artist publishes a new track.
type SongUploaded struct {
	SongID     string
	SongTitle  string
	ArtistID   string
	ArtistName string
}

func (SongUploaded) EventType() string { return EventSongUploaded }

func (k SongUploaded) Metadata() map[string]any {
	return map[string]any{
		"song_id":     k.SongID,
		"song_title":  k.SongTitle,
		"artist_id":   k.ArtistID,
		"artist_name": k.ArtistName,
	}
}

func (SongUploaded) kind() {}

// TicketPurchased is emitted for the buyer and the performing artist of a show.
type TicketPurchased struct {
	ShowID   string
	ShowName string
	TicketID string
	Quantity int
	BuyerID  string
}

func (TicketPurchased) EventType() string { return EventTicketPurchased }

func (k TicketPurchased) Metadata() map[string]any {
	return map[string]any{
		"show_id":   k.ShowID,
		"show_name": k.ShowName,
		"ticket_id": k.TicketID,
		"quantity":  k.Quantity,
		"buyer_id":  k.BuyerID,
	}
}

func (TicketPurchased) kind() {}

// ArtistVerified is emitted once an administrator approves an artist profile.
type ArtistVerified struct {
	ArtistID   string
	ArtistName string
	VerifiedBy string
}

func (ArtistVerified) EventType() string { return EventArtistVerified }

func (k ArtistVerified) Metadata() map[string]any {
	return map[string]any{
		"artist_id":   k.ArtistID,
		"artist_name": k.ArtistName,
		"verified_by": k.VerifiedBy,
	}
}

func (ArtistVerified) kind() {}

// MilestoneReached reports a counter crossing a threshold, e.g. "streams_1000".
type MilestoneReached struct {
	MilestoneType string
	Value         int64
	SubjectID     string
}

func (MilestoneReached) EventType() string { return EventMilestoneReached }

func (k MilestoneReached) Metadata() map[string]any {
	return map[string]any{
		"milestone_type": k.MilestoneType,
		"value":          k.Value,
		"subject_id":     k.SubjectID,
	}
}

func (MilestoneReached) kind() {}

// FollowerAdded tells an entity owner that someone followed them.
type FollowerAdded struct {
	FollowerID   string
	FollowerName string
	EntityID     string
}

func (FollowerAdded) EventType() string { return EventFollowerAdded }

func (k FollowerAdded) Metadata() map[string]any {
	return map[string]any{
		"follower_id":   k.FollowerID,
		"follower_name": k.FollowerName,
		"entity_id":     k.EntityID,
	}
}

func (FollowerAdded) kind() {}

// Custom passes an arbitrary event type and metadata through unshaped.
type Custom struct {
	Type string
	Data map[string]any
}

func (k Custom) EventType() string { return k.Type }

func (k Custom) Metadata() map[string]any {
	return maps.Clone(k.Data)
}

func (Custom) kind() {}
