package scorer

import (
	"github.com/goccy/go-json"
)

// AudioFeatures is the feature vector as the scorer expects it.
type AudioFeatures struct {
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

// Song is one seed track in a recommendation request.
type Song struct {
	SpotifyID        string        `json:"spotify_id"`
	AudioFeatures    AudioFeatures `json:"audio_features"`
	Lyrics           string        `json:"lyrics"`
	ReleaseDate      *string       `json:"release_date"`
	TrackPopularity  int           `json:"track_popularity"`
	PlaylistGenre    string        `json:"playlist_genre"`
	PlaylistSubgenre string        `json:"playlist_subgenre"`
}

// Request is the body of POST /recommend.
type Request struct {
	Songs            []Song `json:"songs"`
	NRecommendations int    `json:"n_recommendations"`
}

type response struct {
	Recommendations []Recommendation `json:"recommendations"`
}

// Recommendation is one ranked track exactly as the scorer sent it. The raw
// bytes are written back out unchanged.
type Recommendation json.RawMessage

func (r *Recommendation) UnmarshalJSON(data []byte) error {
	*r = append((*r)[:0], data...)
	return nil
}

func (r Recommendation) MarshalJSON() ([]byte, error) {
	if len(r) == 0 {
		return []byte("null"), nil
	}
	return r, nil
}
