package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// SearchTracks returns up to SearchLimit rows whose name, artist or album
// contain every whitespace-separated token of rawQuery as a word prefix.
// Only identity and descriptive columns are populated.
func (s *Store) SearchTracks(ctx context.Context, rawQuery string) ([]*TrackRow, error) {
	tsQuery := buildPrefixQuery(rawQuery)
	if tsQuery == "" {
		return []*TrackRow{}, nil
	}

	rows, err := s.executeSelect(ctx, "selectSongsSearch", tsQuery, SearchLimit)
	if err != nil {
		return nil, fmt.Errorf("error searching tracks: %w", err)
	}
	defer rows.Close()

	tracks := make([]*TrackRow, 0)
	for rows.Next() {
		track, err := scanSummaryRow(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning track: %w", err)
		}
		tracks = append(tracks, track)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating search results: %w", err)
	}

	logger.Debug("Searched tracks", zap.String("tsquery", tsQuery), zap.Int("count", len(tracks)))
	return tracks, nil
}

// GetTrackByID returns the full row with the given internal id, or ErrNotFound.
func (s *Store) GetTrackByID(ctx context.Context, id int64) (*TrackRow, error) {
	row, err := s.executeSelectOne(ctx, "selectSongById", id)
	if err != nil {
		return nil, err
	}

	track, err := scanTrackRow(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("track %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("error getting track %d: %w", id, err)
	}
	return track, nil
}

// GetTracksByExternalIDs returns every row whose spotify_id is in ids. Ids
// without a match are omitted and the order is unspecified.
func (s *Store) GetTracksByExternalIDs(ctx context.Context, ids []string) ([]*TrackRow, error) {
	if len(ids) == 0 {
		return []*TrackRow{}, nil
	}

	rows, err := s.executeSelect(ctx, "selectSongsBySpotifyIds", ids)
	if err != nil {
		return nil, fmt.Errorf("error getting tracks by spotify ids: %w", err)
	}
	defer rows.Close()

	tracks := make([]*TrackRow, 0, len(ids))
	for rows.Next() {
		track, err := scanTrackRow(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning track: %w", err)
		}
		tracks = append(tracks, track)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tracks: %w", err)
	}

	logger.Debug("Resolved tracks by spotify id",
		zap.Int("requested", len(ids)),
		zap.Int("found", len(tracks)))
	return tracks, nil
}

// InsertTrack appends one row and returns it as stored, including the
// assigned id and creation timestamp.
func (s *Store) InsertTrack(ctx context.Context, track *TrackRow) (*TrackRow, error) {
	row, err := s.executeSelectOne(ctx, "insertSong", track.insertParams()...)
	if err != nil {
		return nil, err
	}

	saved, err := scanTrackRow(row)
	if err != nil {
		return nil, fmt.Errorf("error saving track %s: %w", track.SpotifyID, err)
	}
	return saved, nil
}
