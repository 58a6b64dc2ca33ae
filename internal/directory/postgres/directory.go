package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/frahmantamala/metro-ticketing/internal"
	stationDatamodel "github.com/frahmantamala/metro-ticketing/internal/core/datamodel/station"
	"github.com/frahmantamala/metro-ticketing/internal/directory"
)

// DirectoryRepository reads and writes stations and lines with plain SQL.
// Queries are written with ? placeholders and rebound for the driver.
type DirectoryRepository struct {
	db *sqlx.DB
}

func NewDirectoryRepository(db *sqlx.DB) directory.RepositoryAPI {
	return &DirectoryRepository{db: db}
}

const stationColumns = `id, name, location, password_hash`

func (r *DirectoryRepository) FindStationByName(ctx context.Context, name string) (*stationDatamodel.Station, error) {
	var st stationDatamodel.Station
	query := r.db.Rebind(`SELECT ` + stationColumns + ` FROM stations WHERE LOWER(name) = LOWER(?)`)
	if err := r.db.GetContext(ctx, &st, query, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, internal.ErrStationNotFound
		}
		return nil, err
	}
	return &st, nil
}

func (r *DirectoryRepository) GetStationByID(ctx context.Context, id int64) (*stationDatamodel.Station, error) {
	var st stationDatamodel.Station
	query := r.db.Rebind(`SELECT ` + stationColumns + ` FROM stations WHERE id = ?`)
	if err := r.db.GetContext(ctx, &st, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, internal.ErrStationNotFound
		}
		return nil, err
	}
	return &st, nil
}

func (r *DirectoryRepository) ListStationNames(ctx context.Context) ([]string, error) {
	var names []string
	err := r.db.SelectContext(ctx, &names, `SELECT DISTINCT name FROM stations ORDER BY name ASC`)
	return names, err
}

func (r *DirectoryRepository) ListStations(ctx context.Context) ([]*stationDatamodel.Station, error) {
	var stations []*stationDatamodel.Station
	err := r.db.SelectContext(ctx, &stations, `SELECT `+stationColumns+` FROM stations ORDER BY name ASC`)
	return stations, err
}

func (r *DirectoryRepository) CreateStation(ctx context.Context, st *stationDatamodel.Station) error {
	query := r.db.Rebind(`INSERT INTO stations (name, location, password_hash) VALUES (?, ?, ?) RETURNING id`)
	return r.db.QueryRowxContext(ctx, query, st.Name, st.Location, st.PasswordHash).Scan(&st.ID)
}

func (r *DirectoryRepository) CountStations(ctx context.Context, ids []int64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query, args, err := sqlx.In(`SELECT COUNT(DISTINCT id) FROM stations WHERE id IN (?)`, ids)
	if err != nil {
		return 0, fmt.Errorf("build station count query: %w", err)
	}
	var count int
	if err := r.db.GetContext(ctx, &count, r.db.Rebind(query), args...); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *DirectoryRepository) ListLines(ctx context.Context) ([]*stationDatamodel.Line, []*stationDatamodel.LineStop, error) {
	var lines []*stationDatamodel.Line
	if err := r.db.SelectContext(ctx, &lines, `SELECT id, color FROM lines ORDER BY color ASC`); err != nil {
		return nil, nil, err
	}

	var stops []*stationDatamodel.LineStop
	err := r.db.SelectContext(ctx, &stops, `
		SELECT ls.line_id, ls.station_order, ls.station_id, s.name AS station_name
		FROM line_stations ls
		JOIN stations s ON s.id = ls.station_id
		ORDER BY ls.line_id, ls.station_order`)
	if err != nil {
		return nil, nil, err
	}
	return lines, stops, nil
}

// CreateLine inserts the line and all of its memberships in one transaction.
func (r *DirectoryRepository) CreateLine(ctx context.Context, line *stationDatamodel.Line, stops []stationDatamodel.LineStation) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = tx.QueryRowxContext(ctx, tx.Rebind(`INSERT INTO lines (color) VALUES (?) RETURNING id`), line.Color).Scan(&line.ID); err != nil {
		return fmt.Errorf("insert line: %w", err)
	}

	insertStop := tx.Rebind(`INSERT INTO line_stations (line_id, station_order, station_id) VALUES (?, ?, ?)`)
	for i := range stops {
		stops[i].LineID = line.ID
		if _, err = tx.ExecContext(ctx, insertStop, line.ID, stops[i].StationOrder, stops[i].StationID); err != nil {
			return fmt.Errorf("insert line station %d: %w", stops[i].StationID, err)
		}
	}

	return tx.Commit()
}
