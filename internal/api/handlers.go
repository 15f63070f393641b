package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/star/satview/internal/elements"
	"github.com/star/satview/internal/ingest"
)

type epochRangeJSON struct {
	Min time.Time `json:"min"`
	Max time.Time `json:"max"`
}

type metadataResponse struct {
	Generation uint64         `json:"generation"`
	Source     string         `json:"source"`
	FetchedAt  time.Time      `json:"fetched_at"`
	AgeSeconds float64        `json:"age_seconds"`
	Objects    int            `json:"objects"`
	Capacity   int            `json:"capacity"`
	EpochRange epochRangeJSON `json:"epoch_range"`
}

type refreshResponse struct {
	Objects    int    `json:"objects"`
	Generation uint64 `json:"generation"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func metadataHandler(store *elements.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		set := store.Get()
		if set == nil {
			writeError(w, http.StatusServiceUnavailable, "no element set loaded")
			return
		}
		writeJSON(w, http.StatusOK, metadataResponse{
			Generation: set.Generation,
			Source:     set.Source,
			FetchedAt:  set.FetchedAt,
			AgeSeconds: store.AgeSeconds(),
			Objects:    set.Len(),
			Capacity:   store.Capacity(),
			EpochRange: epochRangeJSON{Min: set.EpochRange.Min, Max: set.EpochRange.Max},
		})
	}
}

// refreshHandler runs a refresh synchronously. Concurrent requests and the
// scheduled refresh share one upstream fetch.
func refreshHandler(logger *slog.Logger, refresher Refresher, store *elements.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if refresher == nil {
			writeError(w, http.StatusServiceUnavailable, "refresh not available")
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 45*time.Second)
		defer cancel()

		n, err := refresher.Refresh(ctx)
		var fe *ingest.FetchError
		switch {
		case err == nil:
		case errors.As(err, &fe):
			writeError(w, http.StatusBadGateway, err.Error())
			return
		case errors.Is(err, ingest.ErrNoElements):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
			writeError(w, http.StatusGatewayTimeout, "refresh still running")
			return
		default:
			logger.Error("manual refresh failed", "component", "api", "error", err)
			writeError(w, http.StatusInternalServerError, "refresh failed")
			return
		}

		resp := refreshResponse{Objects: n}
		if set := store.Get(); set != nil {
			resp.Generation = set.Generation
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func frameStatsHandler(frames FrameStats) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if frames == nil || frames.Last() == nil {
			writeError(w, http.StatusServiceUnavailable, "no frame rendered yet")
			return
		}
		writeJSON(w, http.StatusOK, frames.Last())
	}
}
