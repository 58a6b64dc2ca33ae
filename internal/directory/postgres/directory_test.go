package postgres_test

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/metro-ticketing/internal"
	stationDatamodel "github.com/frahmantamala/metro-ticketing/internal/core/datamodel/station"
	"github.com/frahmantamala/metro-ticketing/internal/directory"
	directoryPostgres "github.com/frahmantamala/metro-ticketing/internal/directory/postgres"
)

func TestDirectoryPostgres(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Directory Postgres Suite")
}

const sqliteSchema = `
CREATE TABLE stations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE,
	location TEXT NOT NULL DEFAULT '',
	password_hash TEXT,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE lines (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	color TEXT NOT NULL UNIQUE,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE line_stations (
	line_id INTEGER NOT NULL REFERENCES lines(id),
	station_order INTEGER NOT NULL,
	station_id INTEGER NOT NULL REFERENCES stations(id),
	PRIMARY KEY (line_id, station_order),
	UNIQUE (line_id, station_id)
);`

var _ = Describe("Directory Repository", func() {
	var (
		db   *sqlx.DB
		repo directory.RepositoryAPI
		ctx  context.Context
	)

	seedStation := func(name string) int64 {
		st := &stationDatamodel.Station{Name: name, Location: "Pune"}
		Expect(repo.CreateStation(ctx, st)).To(Succeed())
		return st.ID
	}

	BeforeEach(func() {
		var err error
		db, err = sqlx.Open("sqlite3", ":memory:")
		Expect(err).NotTo(HaveOccurred())
		// every pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)

		_, err = db.Exec(sqliteSchema)
		Expect(err).NotTo(HaveOccurred())

		repo = directoryPostgres.NewDirectoryRepository(db)
		ctx = context.Background()
	})

	AfterEach(func() {
		Expect(db.Close()).To(Succeed())
	})

	Describe("FindStationByName", func() {
		It("matches names case-insensitively", func() {
			id := seedStation("Swargate")

			st, err := repo.FindStationByName(ctx, "swargate")
			Expect(err).NotTo(HaveOccurred())
			Expect(st.ID).To(Equal(id))
			Expect(st.Name).To(Equal("Swargate"))
			Expect(st.PasswordHash).To(BeNil())
		})

		It("returns the station not found error for unknown names", func() {
			_, err := repo.FindStationByName(ctx, "Atlantis")
			Expect(err).To(MatchError(internal.ErrStationNotFound))
		})
	})

	Describe("ListStationNames", func() {
		It("returns names in alphabetical order", func() {
			seedStation("Swargate")
			seedStation("Civil Court")
			seedStation("PCMC")

			names, err := repo.ListStationNames(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(names).To(Equal([]string{"Civil Court", "PCMC", "Swargate"}))
		})
	})

	Describe("CountStations", func() {
		It("counts only existing ids", func() {
			a := seedStation("A")
			b := seedStation("B")

			count, err := repo.CountStations(ctx, []int64{a, b, 999})
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(2))
		})
	})

	Describe("CreateLine", func() {
		It("stores the line with its ordered stations", func() {
			a := seedStation("A")
			b := seedStation("B")
			c := seedStation("C")

			line := &stationDatamodel.Line{Color: "Purple"}
			err := repo.CreateLine(ctx, line, []stationDatamodel.LineStation{
				{StationID: c, StationOrder: 3},
				{StationID: a, StationOrder: 1},
				{StationID: b, StationOrder: 2},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(line.ID).To(BeNumerically(">", 0))

			lines, stops, err := repo.ListLines(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(lines).To(HaveLen(1))
			Expect(stops).To(HaveLen(3))
			Expect(stops[0].StationName).To(Equal("A"))
			Expect(stops[2].StationName).To(Equal("C"))
		})

		It("rolls back the line when a membership insert fails", func() {
			a := seedStation("A")

			line := &stationDatamodel.Line{Color: "Aqua"}
			err := repo.CreateLine(ctx, line, []stationDatamodel.LineStation{
				{StationID: a, StationOrder: 1},
				{StationID: a, StationOrder: 2},
			})
			Expect(err).To(HaveOccurred())

			lines, stops, err := repo.ListLines(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(lines).To(BeEmpty())
			Expect(stops).To(BeEmpty())
		})
	})
})
