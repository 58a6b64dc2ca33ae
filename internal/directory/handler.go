package directory

import (
	"context"
	"net/http"

	"github.com/frahmantamala/metro-ticketing/internal/transport"
)

type ServiceAPI interface {
	ListStationNames(ctx context.Context) ([]string, error)
	ListStations(ctx context.Context) ([]*Station, error)
	CreateStation(ctx context.Context, dto CreateStationDTO) (*Station, error)
	ListLines(ctx context.Context) ([]*Line, error)
	CreateLine(ctx context.Context, dto CreateLineDTO) (*Line, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

func (h *Handler) GetStationNames(w http.ResponseWriter, r *http.Request) {
	names, err := h.Service.ListStationNames(r.Context())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, StationNamesResponse{Stations: names})
}

func (h *Handler) GetStations(w http.ResponseWriter, r *http.Request) {
	stations, err := h.Service.ListStations(r.Context())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, StationsResponse{Stations: stations})
}

func (h *Handler) CreateStation(w http.ResponseWriter, r *http.Request) {
	var dto CreateStationDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	station, err := h.Service.CreateStation(r.Context(), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, station)
}

func (h *Handler) GetLines(w http.ResponseWriter, r *http.Request) {
	lines, err := h.Service.ListLines(r.Context())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, LinesResponse{Lines: lines})
}

func (h *Handler) CreateLine(w http.ResponseWriter, r *http.Request) {
	var dto CreateLineDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	line, err := h.Service.CreateLine(r.Context(), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, line)
}
