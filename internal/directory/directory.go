package directory

import (
	"sort"

	stationDatamodel "github.com/frahmantamala/metro-ticketing/internal/core/datamodel/station"
)

type Station struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	Location        string `json:"location,omitempty"`
	HasCounterLogin bool   `json:"has_counter_login"`
}

type Stop struct {
	StationID   int64  `json:"station_id"`
	StationName string `json:"station_name,omitempty"`
	Order       int    `json:"order"`
}

type Line struct {
	ID    int64  `json:"id"`
	Color string `json:"color"`
	Stops []Stop `json:"stations"`
}

// StationIDs returns the line's station ids in travel order.
func (l *Line) StationIDs() []int64 {
	stops := make([]Stop, len(l.Stops))
	copy(stops, l.Stops)
	sort.Slice(stops, func(i, j int) bool { return stops[i].Order < stops[j].Order })

	ids := make([]int64, len(stops))
	for i, s := range stops {
		ids[i] = s.StationID
	}
	return ids
}

func FromDataModel(s *stationDatamodel.Station) *Station {
	return &Station{
		ID:              s.ID,
		Name:            s.Name,
		Location:        s.Location,
		HasCounterLogin: s.PasswordHash != nil && *s.PasswordHash != "",
	}
}

// LinesFromRows groups joined membership rows under their lines, keeping
// the order of lines as given.
func LinesFromRows(lines []*stationDatamodel.Line, stops []*stationDatamodel.LineStop) []*Line {
	byID := make(map[int64]*Line, len(lines))
	out := make([]*Line, 0, len(lines))
	for _, l := range lines {
		line := &Line{ID: l.ID, Color: l.Color, Stops: []Stop{}}
		byID[l.ID] = line
		out = append(out, line)
	}
	for _, s := range stops {
		line, ok := byID[s.LineID]
		if !ok {
			continue
		}
		line.Stops = append(line.Stops, Stop{
			StationID:   s.StationID,
			StationName: s.StationName,
			Order:       s.StationOrder,
		})
	}
	for _, line := range out {
		sort.Slice(line.Stops, func(i, j int) bool { return line.Stops[i].Order < line.Stops[j].Order })
	}
	return out
}
