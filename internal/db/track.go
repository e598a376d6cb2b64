package db

import (
	"errors"

	"github.com/jackc/pgx/v5/pgtype"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("db: no matching row")

// SearchLimit caps the number of rows returned by SearchTracks.
const SearchLimit = 20

// TrackRow mirrors one row of the songs table. Search results only populate
// the identity and descriptive columns.
type TrackRow struct {
	ID          int64
	SpotifyID   string
	Name        string
	Artist      string
	Album       pgtype.Text
	ReleaseDate pgtype.Date

	Danceability     pgtype.Float8
	Energy           pgtype.Float8
	Loudness         pgtype.Float8
	Speechiness      pgtype.Float8
	Acousticness     pgtype.Float8
	Instrumentalness pgtype.Float8
	Liveness         pgtype.Float8
	Valence          pgtype.Float8
	Tempo            pgtype.Float8

	Lyrics     pgtype.Text
	Popularity pgtype.Int4
	Genre      pgtype.Text
	Subgenre   pgtype.Text
	CreatedAt  pgtype.Timestamptz
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrackRow(row rowScanner) (*TrackRow, error) {
	var t TrackRow
	err := row.Scan(
		&t.ID,
		&t.SpotifyID,
		&t.Name,
		&t.Artist,
		&t.Album,
		&t.ReleaseDate,
		&t.Danceability,
		&t.Energy,
		&t.Loudness,
		&t.Speechiness,
		&t.Acousticness,
		&t.Instrumentalness,
		&t.Liveness,
		&t.Valence,
		&t.Tempo,
		&t.Lyrics,
		&t.Popularity,
		&t.Genre,
		&t.Subgenre,
		&t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func scanSummaryRow(row rowScanner) (*TrackRow, error) {
	var t TrackRow
	err := row.Scan(
		&t.ID,
		&t.SpotifyID,
		&t.Name,
		&t.Artist,
		&t.Album,
		&t.ReleaseDate,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (t *TrackRow) insertParams() []any {
	return []any{
		t.Name,
		t.Artist,
		t.Album,
		t.SpotifyID,
		t.ReleaseDate,
		t.Danceability,
		t.Energy,
		t.Loudness,
		t.Speechiness,
		t.Acousticness,
		t.Instrumentalness,
		t.Liveness,
		t.Valence,
		t.Tempo,
		t.Lyrics,
		t.Popularity,
		t.Genre,
		t.Subgenre,
	}
}
