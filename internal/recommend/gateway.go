// Package recommend bridges stored track features and the external scorer.
// A call runs Validate, Resolve, Normalize, Invoke and Map in order and stops
// at the first failure. Nothing is kept between calls.
package recommend

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/rcong315/TuneMatchServer/internal/catalog"
	"github.com/rcong315/TuneMatchServer/internal/scorer"
)

// DefaultCount is the number of recommendations requested when the caller
// does not ask for a specific amount.
const DefaultCount = 5

// Recommendation is one ranked track as returned by the scorer.
type Recommendation = scorer.Recommendation

// TrackResolver looks up stored tracks by external id.
type TrackResolver interface {
	GetByExternalIDs(ctx context.Context, ids []string) ([]catalog.Track, error)
}

// Scorer ranks similar tracks for a set of seed songs.
type Scorer interface {
	Recommend(ctx context.Context, req scorer.Request) ([]scorer.Recommendation, error)
}

type Gateway struct {
	tracks       TrackResolver
	scorer       Scorer
	defaultCount int
	logger       *zap.Logger
}

func NewGateway(tracks TrackResolver, s Scorer, defaultCount int, logger *zap.Logger) *Gateway {
	if defaultCount <= 0 {
		defaultCount = DefaultCount
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{
		tracks:       tracks,
		scorer:       s,
		defaultCount: defaultCount,
		logger:       logger,
	}
}

// Recommend returns the scorer's recommendations for the tracks identified by
// externalIDs. Ids that match no stored track are ignored as long as at least
// one matches. A count of zero or less uses the gateway default.
func (g *Gateway) Recommend(ctx context.Context, externalIDs []string, count int) ([]Recommendation, error) {
	if len(externalIDs) == 0 {
		return nil, fmt.Errorf("at least one spotify id is required: %w", catalog.ErrInvalidInput)
	}
	if count <= 0 {
		count = g.defaultCount
	}

	tracks, err := g.tracks.GetByExternalIDs(ctx, externalIDs)
	if err != nil {
		return nil, fmt.Errorf("resolving spotify ids: %w", err)
	}
	if len(tracks) == 0 {
		return nil, fmt.Errorf("no songs found with provided spotify ids: %w", catalog.ErrNotFound)
	}
	if len(tracks) < len(externalIDs) {
		g.logger.Debug("Some spotify ids did not resolve",
			zap.Int("requested", len(externalIDs)),
			zap.Int("resolved", len(tracks)))
	}

	songs := make([]scorer.Song, 0, len(tracks))
	for _, track := range tracks {
		songs = append(songs, toSong(track))
	}

	recs, err := g.scorer.Recommend(ctx, scorer.Request{
		Songs:            songs,
		NRecommendations: count,
	})
	if err != nil {
		return nil, err
	}
	return recs, nil
}

func toSong(t catalog.Track) scorer.Song {
	song := scorer.Song{
		SpotifyID: t.SpotifyID,
		AudioFeatures: scorer.AudioFeatures{
			Danceability:     finite(t.Danceability),
			Energy:           finite(t.Energy),
			Loudness:         finite(t.Loudness),
			Speechiness:      finite(t.Speechiness),
			Acousticness:     finite(t.Acousticness),
			Instrumentalness: finite(t.Instrumentalness),
			Liveness:         finite(t.Liveness),
			Valence:          finite(t.Valence),
			Tempo:            finite(t.Tempo),
		},
		Lyrics:           t.Lyrics,
		TrackPopularity:  t.Popularity,
		PlaylistGenre:    t.Genre,
		PlaylistSubgenre: t.Subgenre,
	}
	if t.ReleaseDate != nil {
		date := t.ReleaseDate.Format(catalog.DateLayout)
		song.ReleaseDate = &date
	}
	return song
}

func finite(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
