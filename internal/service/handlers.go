package service

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rcong315/TuneMatchServer/internal/catalog"
	"github.com/rcong315/TuneMatchServer/internal/recommend"
	"github.com/rcong315/TuneMatchServer/internal/scorer"
)

const (
	serviceName    = "TuneMatch API"
	serviceVersion = "1.0.0"

	healthTimeout = 2 * time.Second
)

// TrackFinder is the read side of the track catalog.
type TrackFinder interface {
	Search(ctx context.Context, query string) ([]catalog.Summary, error)
	GetByID(ctx context.Context, id int64) (*catalog.Track, error)
}

// Recommender produces recommendations for a set of seed tracks.
type Recommender interface {
	Recommend(ctx context.Context, externalIDs []string, count int) ([]recommend.Recommendation, error)
}

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	tracks      TrackFinder
	recommender Recommender
	store       Pinger
	logger      *zap.Logger
}

func NewHandler(tracks TrackFinder, recommender Recommender, store Pinger, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		tracks:      tracks,
		recommender: recommender,
		store:       store,
		logger:      logger,
	}
}

type recommendationRequest struct {
	SpotifyIDs []string `json:"spotifyIds" binding:"required,min=1"`
}

type recommendationQuery struct {
	Count int `form:"count" binding:"omitempty,min=1,max=50"`
}

func (h *Handler) HomeHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": serviceName,
		"version": serviceVersion,
		"status":  "healthy",
	})
}

func (h *Handler) HealthHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	if h.store != nil {
		if err := h.store.Ping(ctx); err != nil {
			h.logger.Error("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"timestamp": time.Now().UTC().Format(time.RFC3339),
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// SearchHandler serves GET /api/songs/search?q=.
func (h *Handler) SearchHandler(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Query parameter is required"})
		return
	}

	songs, err := h.tracks.Search(c.Request.Context(), query)
	if err != nil {
		h.respondError(c, "Error searching songs", err)
		return
	}
	c.JSON(http.StatusOK, songs)
}

// SongHandler serves GET /api/songs/:id.
func (h *Handler) SongHandler(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid song id"})
		return
	}

	song, err := h.tracks.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Song not found"})
			return
		}
		h.respondError(c, "Error getting song", err)
		return
	}
	c.JSON(http.StatusOK, song)
}

// RecommendationsHandler serves POST /api/songs/recommendations.
func (h *Handler) RecommendationsHandler(c *gin.Context) {
	var query recommendationQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindingMessage(err)})
		return
	}

	var body recommendationRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindingMessage(err)})
		return
	}

	recs, err := h.recommender.Recommend(c.Request.Context(), body.SpotifyIDs, query.Count)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			h.logger.Warn("No seed songs resolved",
				zap.String("request_id", requestID(c)),
				zap.Strings("spotifyIds", body.SpotifyIDs))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "No songs found with provided spotify IDs"})
			return
		}
		h.respondError(c, "Error getting recommendations", err)
		return
	}
	c.JSON(http.StatusOK, recs)
}

// respondError maps a domain error to a status code. Only the messages of
// input errors and upstream failures reach the client; everything else is
// logged and answered with fallback.
func (h *Handler) respondError(c *gin.Context, fallback string, err error) {
	var upstreamErr *scorer.UpstreamError
	switch {
	case errors.Is(err, catalog.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &upstreamErr):
		h.logger.Error(fallback,
			zap.String("request_id", requestID(c)),
			zap.Error(err),
			zap.NamedError("cause", upstreamErr.Unwrap()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": upstreamErr.Error()})
	default:
		h.logger.Error(fallback,
			zap.String("request_id", requestID(c)),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}
