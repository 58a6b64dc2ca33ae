package cmd

import (
	"fmt"
	"log"

	stationDatamodel "github.com/frahmantamala/metro-ticketing/internal/core/datamodel/station"
	userDatamodel "github.com/frahmantamala/metro-ticketing/internal/core/datamodel/user"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	adminStationID       int64 = 101
	adminStationName           = "Pune Central"
	adminStationPassword       = "pune_metro_123"

	demoEmail    = "commuter@metro.local"
	demoPassword = "password123"
)

type seedLine struct {
	Color    string
	Stations []string
}

var seedStations = []struct {
	Name     string
	Location string
}{
	{"PCMC", "Pimpri"},
	{"Sant Tukaram Nagar", "Pimpri"},
	{"Bhosari", "Nashik Phata"},
	{"Kasarwadi", "Kasarwadi"},
	{"Phugewadi", "Phugewadi"},
	{"Dapodi", "Dapodi"},
	{"Bopodi", "Bopodi"},
	{"Shivajinagar", "Shivajinagar"},
	{"Civil Court", "Shivajinagar"},
	{"Budhwar Peth", "Budhwar Peth"},
	{"Mandai", "Mandai"},
	{"Swargate", "Swargate"},
	{"Vanaz", "Kothrud"},
	{"Anand Nagar", "Kothrud"},
	{"Ideal Colony", "Kothrud"},
	{"Nal Stop", "Erandwane"},
	{"Garware College", "Deccan"},
	{"Deccan Gymkhana", "Deccan"},
	{"PMC", "Shivajinagar"},
	{"Mangalwar Peth", "Mangalwar Peth"},
	{"Pune Railway Station", "Agarkar Nagar"},
	{"Ruby Hall Clinic", "Sassoon Road"},
	{"Bund Garden", "Bund Garden"},
	{"Yerawada", "Yerawada"},
	{"Kalyani Nagar", "Kalyani Nagar"},
	{"Ramwadi", "Ramwadi"},
}

var seedLines = []seedLine{
	{
		Color: "purple",
		Stations: []string{
			"PCMC", "Sant Tukaram Nagar", "Bhosari", "Kasarwadi", "Phugewadi", "Dapodi",
			"Bopodi", "Shivajinagar", "Civil Court", "Budhwar Peth", "Mandai", "Swargate",
		},
	},
	{
		Color: "aqua",
		Stations: []string{
			"Vanaz", "Anand Nagar", "Ideal Colony", "Nal Stop", "Garware College", "Deccan Gymkhana",
			"PMC", "Civil Court", "Mangalwar Peth", "Pune Railway Station", "Ruby Hall Clinic",
			"Bund Garden", "Yerawada", "Kalyani Nagar", "Ramwadi",
		},
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed stations, metro lines, the station admin login and a demo commuter for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		sqlDB, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer sqlDB.Close()

		db, err := initGorm(sqlDB)
		if err != nil {
			log.Fatalf("failed to init gorm: %v", err)
		}

		if err := db.Transaction(func(tx *gorm.DB) error {
			if clearData {
				if err := clearSeedData(tx); err != nil {
					return err
				}
			}
			return seed(tx, cfg.Security.BCryptCost)
		}); err != nil {
			log.Fatalf("seeding failed: %v", err)
		}

		fmt.Printf("Login as station admin with Station ID: %d and Password: %s\n", adminStationID, adminStationPassword)
		fmt.Printf("Login as commuter with Email: %s and Password: %s\n", demoEmail, demoPassword)
	},
}

func clearSeedData(tx *gorm.DB) error {
	for _, table := range []string{"tickets", "payments", "line_stations", "lines", "users", "stations"} {
		if err := tx.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	fmt.Println("Cleared existing data")
	return nil
}

func seed(tx *gorm.DB, bcryptCost int) error {
	adminHash, err := bcrypt.GenerateFromPassword([]byte(adminStationPassword), bcryptCost)
	if err != nil {
		return fmt.Errorf("hash station password: %w", err)
	}
	hash := string(adminHash)

	admin := stationDatamodel.Station{ID: adminStationID}
	if err := tx.Where(stationDatamodel.Station{ID: adminStationID}).
		Assign(stationDatamodel.Station{Name: adminStationName, Location: "Pune City", PasswordHash: &hash}).
		FirstOrCreate(&admin).Error; err != nil {
		return fmt.Errorf("seed admin station: %w", err)
	}
	fmt.Println("Seeded admin station:", adminStationName)

	ids := make(map[string]int64, len(seedStations))
	for _, s := range seedStations {
		st := stationDatamodel.Station{}
		if err := tx.Where(stationDatamodel.Station{Name: s.Name}).
			Attrs(stationDatamodel.Station{Location: s.Location}).
			FirstOrCreate(&st).Error; err != nil {
			return fmt.Errorf("seed station %s: %w", s.Name, err)
		}
		ids[s.Name] = st.ID
	}
	fmt.Printf("Seeded %d stations\n", len(seedStations))

	// explicit ids above leave the sequence behind
	if err := tx.Exec("SELECT setval(pg_get_serial_sequence('stations', 'id'), (SELECT MAX(id) FROM stations))").Error; err != nil {
		return fmt.Errorf("advance station sequence: %w", err)
	}

	for _, l := range seedLines {
		line := stationDatamodel.Line{}
		if err := tx.Where(stationDatamodel.Line{Color: l.Color}).FirstOrCreate(&line).Error; err != nil {
			return fmt.Errorf("seed line %s: %w", l.Color, err)
		}
		for i, name := range l.Stations {
			stop := stationDatamodel.LineStation{LineID: line.ID, StationOrder: i + 1, StationID: ids[name]}
			if err := tx.Where(stationDatamodel.LineStation{LineID: line.ID, StationOrder: i + 1}).
				FirstOrCreate(&stop).Error; err != nil {
				return fmt.Errorf("seed %s line stop %s: %w", l.Color, name, err)
			}
		}
		fmt.Printf("Seeded %s line with %d stations\n", l.Color, len(l.Stations))
	}

	demoHash, err := bcrypt.GenerateFromPassword([]byte(demoPassword), bcryptCost)
	if err != nil {
		return fmt.Errorf("hash commuter password: %w", err)
	}
	commuter := userDatamodel.User{}
	if err := tx.Where(userDatamodel.User{Email: demoEmail}).
		Attrs(userDatamodel.User{FullName: "Demo Commuter", PhoneNumber: "9800000000", PasswordHash: string(demoHash)}).
		FirstOrCreate(&commuter).Error; err != nil {
		return fmt.Errorf("seed commuter: %w", err)
	}
	fmt.Println("Seeded commuter:", demoEmail)

	return nil
}
