package catalog

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/rcong315/TuneMatchServer/internal/db"
)

// TrackStore is the persistence surface the repository needs. *db.Store
// implements it.
type TrackStore interface {
	SearchTracks(ctx context.Context, rawQuery string) ([]*db.TrackRow, error)
	GetTrackByID(ctx context.Context, id int64) (*db.TrackRow, error)
	GetTracksByExternalIDs(ctx context.Context, ids []string) ([]*db.TrackRow, error)
	InsertTrack(ctx context.Context, track *db.TrackRow) (*db.TrackRow, error)
}

// Repository exposes tracks as domain values.
type Repository struct {
	store TrackStore
}

func NewRepository(store TrackStore) *Repository {
	return &Repository{store: store}
}

// Search returns the summaries matching every token of query.
func (r *Repository) Search(ctx context.Context, query string) ([]Summary, error) {
	rows, err := r.store.SearchTracks(ctx, query)
	if err != nil {
		return nil, err
	}

	summaries := make([]Summary, 0, len(rows))
	for _, row := range rows {
		summaries = append(summaries, toSummary(row))
	}
	return summaries, nil
}

// GetByID returns the track with the given internal id or ErrNotFound.
func (r *Repository) GetByID(ctx context.Context, id int64) (*Track, error) {
	row, err := r.store.GetTrackByID(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return nil, fmt.Errorf("track %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	track := toTrack(row)
	return &track, nil
}

// GetByExternalIDs returns the tracks whose external id is in ids. Unknown
// ids are skipped; an empty result is not an error here.
func (r *Repository) GetByExternalIDs(ctx context.Context, ids []string) ([]Track, error) {
	rows, err := r.store.GetTracksByExternalIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	tracks := make([]Track, 0, len(rows))
	for _, row := range rows {
		tracks = append(tracks, toTrack(row))
	}
	return tracks, nil
}

// Create stores a new track and returns it with its assigned id.
func (r *Repository) Create(ctx context.Context, t NewTrack) (*Track, error) {
	if strings.TrimSpace(t.SpotifyID) == "" {
		return nil, fmt.Errorf("spotify id is required: %w", ErrInvalidInput)
	}

	saved, err := r.store.InsertTrack(ctx, fromNewTrack(t))
	if err != nil {
		return nil, err
	}

	track := toTrack(saved)
	return &track, nil
}

func toSummary(row *db.TrackRow) Summary {
	s := Summary{
		ID:        row.ID,
		SpotifyID: row.SpotifyID,
		Name:      row.Name,
		Artist:    row.Artist,
	}
	if row.Album.Valid {
		album := row.Album.String
		s.Album = &album
	}
	if row.ReleaseDate.Valid {
		s.ReleaseDate = &Date{Time: row.ReleaseDate.Time}
	}
	return s
}

func toTrack(row *db.TrackRow) Track {
	return Track{
		Summary: toSummary(row),
		Features: Features{
			Danceability:     floatOrZero(row.Danceability),
			Energy:           floatOrZero(row.Energy),
			Loudness:         floatOrZero(row.Loudness),
			Speechiness:      floatOrZero(row.Speechiness),
			Acousticness:     floatOrZero(row.Acousticness),
			Instrumentalness: floatOrZero(row.Instrumentalness),
			Liveness:         floatOrZero(row.Liveness),
			Valence:          floatOrZero(row.Valence),
			Tempo:            floatOrZero(row.Tempo),
		},
		Lyrics:     row.Lyrics.String,
		Popularity: int(row.Popularity.Int32),
		Genre:      row.Genre.String,
		Subgenre:   row.Subgenre.String,
		CreatedAt:  row.CreatedAt.Time,
	}
}

func fromNewTrack(t NewTrack) *db.TrackRow {
	row := &db.TrackRow{
		SpotifyID:        t.SpotifyID,
		Name:             t.Name,
		Artist:           t.Artist,
		Danceability:     validFloat(t.Features.Danceability),
		Energy:           validFloat(t.Features.Energy),
		Loudness:         validFloat(t.Features.Loudness),
		Speechiness:      validFloat(t.Features.Speechiness),
		Acousticness:     validFloat(t.Features.Acousticness),
		Instrumentalness: validFloat(t.Features.Instrumentalness),
		Liveness:         validFloat(t.Features.Liveness),
		Valence:          validFloat(t.Features.Valence),
		Tempo:            validFloat(t.Features.Tempo),
		Lyrics:           pgtype.Text{String: t.Lyrics, Valid: true},
		Popularity:       pgtype.Int4{Int32: int32(t.Popularity), Valid: true},
		Genre:            pgtype.Text{String: t.Genre, Valid: true},
		Subgenre:         pgtype.Text{String: t.Subgenre, Valid: true},
	}
	if t.Album != nil {
		row.Album = pgtype.Text{String: *t.Album, Valid: true}
	}
	if t.ReleaseDate != nil {
		d := t.ReleaseDate.UTC()
		row.ReleaseDate = pgtype.Date{Time: time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC), Valid: true}
	}
	return row
}

func floatOrZero(f pgtype.Float8) float64 {
	if !f.Valid || math.IsNaN(f.Float64) || math.IsInf(f.Float64, 0) {
		return 0
	}
	return f.Float64
}

func validFloat(f float64) pgtype.Float8 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		f = 0
	}
	return pgtype.Float8{Float64: f, Valid: true}
}
