package models

import "time"

// User is an account that owns uploaded videos. Email is the natural key used
// as the token subject and is matched exactly (case-sensitive) everywhere.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Phone        *string   `json:"phone,omitempty"`
	PasswordHash string    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"`
}

// VideoRecord is a stored clip. VideoData holds the base64 payload exactly as
// it was uploaded. Records are immutable after creation except for deletion.
type VideoRecord struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	VideoData   string    `json:"videoData"`
	LocationLat *float64  `json:"locationLat,omitempty"`
	LocationLng *float64  `json:"locationLng,omitempty"`
	PhoneNumber *string   `json:"phoneNumber,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// VideoSummary is the list-view projection of a VideoRecord. It omits the
// payload so listings stay cheap regardless of clip size.
type VideoSummary struct {
	ID          string    `json:"id"`
	LocationLat *float64  `json:"locationLat,omitempty"`
	LocationLng *float64  `json:"locationLng,omitempty"`
	PhoneNumber *string   `json:"phoneNumber,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Summary returns the list projection of the record.
func (v VideoRecord) Summary() VideoSummary {
	return VideoSummary{
		ID:          v.ID,
		LocationLat: v.LocationLat,
		LocationLng: v.LocationLng,
		PhoneNumber: v.PhoneNumber,
		Timestamp:   v.Timestamp,
	}
}
