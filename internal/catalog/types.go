// Package catalog is the typed data-access layer over the track store. It
// converts the store's native rows into Track values so nothing above it
// depends on pgx types.
package catalog

import (
	"errors"
	"time"
)

var (
	// ErrInvalidInput marks a request the caller has to fix.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound marks a lookup that matched nothing.
	ErrNotFound = errors.New("not found")
)

// DateLayout is the calendar-date format used on the wire.
const DateLayout = "2006-01-02"

// Features is the nine-dimensional audio descriptor of a track.
type Features struct {
	Danceability     float64 `json:"danceability"`
	Energy           float64 `json:"energy"`
	Loudness         float64 `json:"loudness"`
	Speechiness      float64 `json:"speechiness"`
	Acousticness     float64 `json:"acousticness"`
	Instrumentalness float64 `json:"instrumentalness"`
	Liveness         float64 `json:"liveness"`
	Valence          float64 `json:"valence"`
	Tempo            float64 `json:"tempo"`
}

// Date is a calendar date that marshals as YYYY-MM-DD.
type Date struct {
	time.Time
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(DateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" {
		return nil
	}
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return errors.New("catalog: date must be a string")
	}
	t, err := time.Parse(DateLayout, s[1:len(s)-1])
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// Summary is the lightweight projection returned by search.
type Summary struct {
	ID          int64   `json:"id"`
	SpotifyID   string  `json:"spotify_id"`
	Name        string  `json:"name"`
	Artist      string  `json:"artist"`
	Album       *string `json:"album"`
	ReleaseDate *Date   `json:"release_date"`
}

// Track is one stored song with its full feature vector. Tracks are never
// updated after creation.
type Track struct {
	Summary
	Features
	Lyrics     string    `json:"lyrics"`
	Popularity int       `json:"track_popularity"`
	Genre      string    `json:"playlist_genre"`
	Subgenre   string    `json:"playlist_subgenre"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewTrack is the input for creating a track.
type NewTrack struct {
	SpotifyID   string
	Name        string
	Artist      string
	Album       *string
	ReleaseDate *time.Time
	Features    Features
	Lyrics      string
	Popularity  int
	Genre       string
	Subgenre    string
}
