package directory

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/frahmantamala/metro-ticketing/internal"
	stationDatamodel "github.com/frahmantamala/metro-ticketing/internal/core/datamodel/station"
)

type RepositoryAPI interface {
	FindStationByName(ctx context.Context, name string) (*stationDatamodel.Station, error)
	GetStationByID(ctx context.Context, id int64) (*stationDatamodel.Station, error)
	ListStationNames(ctx context.Context) ([]string, error)
	ListStations(ctx context.Context) ([]*stationDatamodel.Station, error)
	CreateStation(ctx context.Context, st *stationDatamodel.Station) error
	CountStations(ctx context.Context, ids []int64) (int, error)
	ListLines(ctx context.Context) ([]*stationDatamodel.Line, []*stationDatamodel.LineStop, error)
	CreateLine(ctx context.Context, line *stationDatamodel.Line, stops []stationDatamodel.LineStation) error
}

type Service struct {
	repo       RepositoryAPI
	logger     *slog.Logger
	bcryptCost int
}

func NewService(repo RepositoryAPI, logger *slog.Logger, bcryptCost int) *Service {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		repo:       repo,
		logger:     logger,
		bcryptCost: bcryptCost,
	}
}

// ResolveStationID maps a station name to its id. Unknown names yield
// internal.ErrStationNotFound; anything else is an infrastructure failure.
func (s *Service) ResolveStationID(ctx context.Context, name string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, internal.ErrStationNotFound
	}

	st, err := s.repo.FindStationByName(ctx, name)
	if err != nil {
		if errors.Is(err, internal.ErrStationNotFound) {
			return 0, internal.ErrStationNotFound.WithDetails(map[string]string{"station": name})
		}
		s.logger.Error("failed to resolve station", "name", name, "error", err)
		return 0, internal.NewInternalError("failed to resolve station", err)
	}
	return st.ID, nil
}

func (s *Service) GetStation(ctx context.Context, id int64) (*Station, error) {
	st, err := s.repo.GetStationByID(ctx, id)
	if err != nil {
		if errors.Is(err, internal.ErrStationNotFound) {
			return nil, err
		}
		return nil, internal.NewInternalError("failed to load station", err)
	}
	return FromDataModel(st), nil
}

func (s *Service) ListStationNames(ctx context.Context) ([]string, error) {
	names, err := s.repo.ListStationNames(ctx)
	if err != nil {
		s.logger.Error("failed to list station names", "error", err)
		return nil, internal.NewInternalError("failed to list stations", err)
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

func (s *Service) ListStations(ctx context.Context) ([]*Station, error) {
	rows, err := s.repo.ListStations(ctx)
	if err != nil {
		s.logger.Error("failed to list stations", "error", err)
		return nil, internal.NewInternalError("failed to list stations", err)
	}
	stations := make([]*Station, 0, len(rows))
	for _, row := range rows {
		stations = append(stations, FromDataModel(row))
	}
	return stations, nil
}

func (s *Service) CreateStation(ctx context.Context, dto CreateStationDTO) (*Station, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.repo.FindStationByName(ctx, dto.Name); err == nil {
		return nil, internal.NewConflictError("station already exists", internal.ErrCodeDuplicate)
	} else if !errors.Is(err, internal.ErrStationNotFound) {
		return nil, internal.NewInternalError("failed to check station", err)
	}

	row := &stationDatamodel.Station{Name: dto.Name, Location: dto.Location}
	if dto.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(dto.Password), s.bcryptCost)
		if err != nil {
			return nil, internal.NewInternalError("failed to hash password", err)
		}
		h := string(hash)
		row.PasswordHash = &h
	}

	if err := s.repo.CreateStation(ctx, row); err != nil {
		s.logger.Error("failed to create station", "name", dto.Name, "error", err)
		return nil, internal.NewInternalError("failed to create station", err)
	}

	s.logger.Info("station created", "station_id", row.ID, "name", row.Name)
	return FromDataModel(row), nil
}

func (s *Service) ListLines(ctx context.Context) ([]*Line, error) {
	lines, stops, err := s.repo.ListLines(ctx)
	if err != nil {
		s.logger.Error("failed to list lines", "error", err)
		return nil, internal.NewInternalError("failed to list lines", err)
	}
	return LinesFromRows(lines, stops), nil
}

func (s *Service) CreateLine(ctx context.Context, dto CreateLineDTO) (*Line, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	ids := make([]int64, len(dto.Stations))
	for i, st := range dto.Stations {
		ids[i] = st.StationID
	}
	found, err := s.repo.CountStations(ctx, ids)
	if err != nil {
		return nil, internal.NewInternalError("failed to check stations", err)
	}
	if found != len(ids) {
		return nil, internal.NewValidationFieldError("stations", "line references unknown stations", internal.ErrCodeStationNotFound)
	}

	line := &stationDatamodel.Line{Color: dto.Color}
	stops := make([]stationDatamodel.LineStation, len(dto.Stations))
	for i, st := range dto.Stations {
		stops[i] = stationDatamodel.LineStation{StationID: st.StationID, StationOrder: st.Order}
	}

	if err := s.repo.CreateLine(ctx, line, stops); err != nil {
		s.logger.Error("failed to create line", "color", dto.Color, "error", err)
		return nil, internal.NewInternalError("failed to create line", err)
	}

	s.logger.Info("line created", "line_id", line.ID, "color", line.Color, "stations", len(stops))

	created := &Line{ID: line.ID, Color: line.Color}
	for _, st := range stops {
		created.Stops = append(created.Stops, Stop{StationID: st.StationID, Order: st.StationOrder})
	}
	sort.Slice(created.Stops, func(i, j int) bool { return created.Stops[i].Order < created.Stops[j].Order })
	return created, nil
}

// LineSequences returns every line as station ids in travel order.
func (s *Service) LineSequences(ctx context.Context) ([][]int64, error) {
	lines, err := s.ListLines(ctx)
	if err != nil {
		return nil, err
	}
	seqs := make([][]int64, 0, len(lines))
	for _, l := range lines {
		seqs = append(seqs, l.StationIDs())
	}
	return seqs, nil
}
