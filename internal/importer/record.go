package importer

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rcong315/TuneMatchServer/internal/catalog"
)

// Column names of the songs dataset.
const (
	colTrackID          = "track_id"
	colTrackName        = "track_name"
	colTrackArtist      = "track_artist"
	colAlbumName        = "track_album_name"
	colAlbumReleaseDate = "track_album_release_date"
	colDanceability     = "danceability"
	colEnergy           = "energy"
	colLoudness         = "loudness"
	colSpeechiness      = "speechiness"
	colAcousticness     = "acousticness"
	colInstrumentalness = "instrumentalness"
	colLiveness         = "liveness"
	colValence          = "valence"
	colTempo            = "tempo"
	colLyrics           = "lyrics"
	colPopularity       = "track_popularity"
	colGenre            = "playlist_genre"
	colSubgenre         = "playlist_subgenre"
)

var errMissingTrackID = errors.New("missing track_id")

// Header maps column names to their position in a record.
type Header map[string]int

// NewHeader indexes a header row. The track_id column is required; every
// other column is optional and reads as empty when absent.
func NewHeader(record []string) (Header, error) {
	h := make(Header, len(record))
	for i, name := range record {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, dup := h[name]; !dup {
			h[name] = i
		}
	}
	if _, ok := h[colTrackID]; !ok {
		return nil, fmt.Errorf("header has no %s column", colTrackID)
	}
	return h, nil
}

func (h Header) get(record []string, column string) string {
	i, ok := h[column]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// ParseRecord maps one dataset row to a track. Numbers that do not parse
// read as 0 and an unrecognised release date reads as unknown; only a
// missing track_id rejects the row.
func ParseRecord(h Header, record []string) (catalog.NewTrack, error) {
	id := h.get(record, colTrackID)
	if id == "" {
		return catalog.NewTrack{}, errMissingTrackID
	}

	track := catalog.NewTrack{
		SpotifyID: id,
		Name:      h.get(record, colTrackName),
		Artist:    h.get(record, colTrackArtist),
		Features: catalog.Features{
			Danceability:     parseFloat(h.get(record, colDanceability)),
			Energy:           parseFloat(h.get(record, colEnergy)),
			Loudness:         parseFloat(h.get(record, colLoudness)),
			Speechiness:      parseFloat(h.get(record, colSpeechiness)),
			Acousticness:     parseFloat(h.get(record, colAcousticness)),
			Instrumentalness: parseFloat(h.get(record, colInstrumentalness)),
			Liveness:         parseFloat(h.get(record, colLiveness)),
			Valence:          parseFloat(h.get(record, colValence)),
			Tempo:            parseFloat(h.get(record, colTempo)),
		},
		Lyrics:      h.get(record, colLyrics),
		Popularity:  parseInt(h.get(record, colPopularity)),
		Genre:       h.get(record, colGenre),
		Subgenre:    h.get(record, colSubgenre),
		ReleaseDate: normalizeDate(h.get(record, colAlbumReleaseDate)),
	}
	if album := h.get(record, colAlbumName); album != "" {
		track.Album = &album
	}
	return track, nil
}

var dateLayouts = []string{"2006-01-02", "2006-01", "2006"}

// normalizeDate accepts YYYY, YYYY-MM and YYYY-MM-DD, filling a missing
// month or day with 01. Anything else is unknown.
func normalizeDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if len(s) != len(layout) {
			continue
		}
		t, err := time.Parse(layout, s)
		if err != nil {
			return nil
		}
		return &t
	}
	return nil
}

var numericPrefix = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

// parseFloat reads the leading number of s ("0.5abc" is 0.5). No number,
// NaN and infinities read as 0.
func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(numericPrefix.FindString(strings.TrimSpace(s)), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// parseInt reads integers written either plainly or as floats ("66.0").
// Values outside the int32 column range read as 0.
func parseInt(s string) int {
	var f float64
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		f = float64(n)
	} else {
		f = parseFloat(s)
	}
	if f > math.MaxInt32 || f < math.MinInt32 {
		return 0
	}
	return int(f)
}
