package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/couchcryptid/aqi-map-service/internal/domain"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// pointQuery holds the coordinates of an on-demand query.
type pointQuery struct {
	Lat *float64 `validate:"required,gte=-90,lte=90"`
	Lon *float64 `validate:"required,gte=-180,lte=180"`
}

func parsePointQuery(r *http.Request) (pointQuery, error) {
	var q pointQuery
	var err error
	if q.Lat, err = parseOptionalFloat(r, "lat"); err != nil {
		return q, err
	}
	if q.Lon, err = parseOptionalFloat(r, "lon"); err != nil {
		return q, err
	}
	if err := validate.Struct(q); err != nil {
		return q, err
	}
	return q, nil
}

func parseOptionalFloat(r *http.Request, key string) (*float64, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q", key, s)
	}
	return &v, nil
}

func (s *Server) handleReference(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, newBatchView(s.feed.Batch.Snapshot()))
}

func (s *Server) handleRefresh(w http.ResponseWriter, _ *http.Request) {
	err := s.feed.Batch.Start(s.feed.BaseContext, s.feed.Locations)
	if errors.Is(err, domain.ErrAlreadyRunning) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		s.logger.Error("refresh failed to start", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to start refresh")
		return
	}
	snap := s.feed.Batch.Snapshot()
	sharedobs.WriteJSON(w, http.StatusAccepted, map[string]any{
		"status": "started",
		"run":    snap.Run,
		"total":  snap.Total,
	})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	q, err := parsePointQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.feed.Lane.Query(r.Context(), *q.Lat, *q.Lon)
	if err != nil {
		s.writeQueryError(w, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, res)
}

func (s *Server) handleSelection(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, newSelectionView(s.feed.Lane.Snapshot()))
}

func (s *Server) handleLocate(w http.ResponseWriter, r *http.Request) {
	if s.feed.Geolocator == nil {
		writeError(w, http.StatusNotImplemented, "no location provider configured")
		return
	}
	res, err := s.feed.Lane.Locate(r.Context(), s.feed.Geolocator)
	if err != nil {
		s.writeQueryError(w, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, res)
}

func (s *Server) writeQueryError(w http.ResponseWriter, err error) {
	var transport *domain.TransportError
	var malformed *domain.MalformedResponseError
	switch {
	case errors.Is(err, domain.ErrSuperseded):
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &transport), errors.As(err, &malformed):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		s.logger.Error("on-demand query failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
