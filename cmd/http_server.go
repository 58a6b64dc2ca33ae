package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/metro-ticketing/internal"
	"github.com/frahmantamala/metro-ticketing/internal/auth"
	authPostgres "github.com/frahmantamala/metro-ticketing/internal/auth/postgres"
	"github.com/frahmantamala/metro-ticketing/internal/booking"
	"github.com/frahmantamala/metro-ticketing/internal/core/events"
	"github.com/frahmantamala/metro-ticketing/internal/directory"
	directoryPostgres "github.com/frahmantamala/metro-ticketing/internal/directory/postgres"
	"github.com/frahmantamala/metro-ticketing/internal/fare"
	"github.com/frahmantamala/metro-ticketing/internal/metrics"
	"github.com/frahmantamala/metro-ticketing/internal/paymentgateway"
	"github.com/frahmantamala/metro-ticketing/internal/ticket"
	ticketPostgres "github.com/frahmantamala/metro-ticketing/internal/ticket/postgres"
	"github.com/frahmantamala/metro-ticketing/internal/transport"
	"github.com/frahmantamala/metro-ticketing/internal/transport/rest"
	"github.com/frahmantamala/metro-ticketing/internal/transport/swagger"
	"github.com/frahmantamala/metro-ticketing/internal/user"
	userPostgres "github.com/frahmantamala/metro-ticketing/internal/user/postgres"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config  *internal.Config
	DB      *sqlx.DB
	Gorm    *gorm.DB
	Bus     *events.EventBus
	Metrics *metrics.Registry
	Logger  *slog.Logger

	Directory *directory.Service
	Tickets   *ticket.Service
	Booking   *booking.Service
	Auth      *auth.Service
	Users     *user.Service
}

func startHTTPServer() {
	deps, err := initializeDependencies(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	if _, err := swagger.Load(context.Background()); err != nil {
		deps.Logger.Error("invalid API description", "error", err)
		os.Exit(1)
	}

	router := chi.NewRouter()
	setupRoutes(router, deps)

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("Server shutdown error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			deps.Logger.Error("Server failed to start", "error", err)
			deps.Close()
			os.Exit(1)
		}
	}

	deps.Close()
	deps.Logger.Info("Server stopped")
}

func setupRoutes(router *chi.Mux, deps *Dependencies) {
	base := transport.NewBaseHandler(deps.Logger)

	handlers := rest.Handlers{
		Auth:      auth.NewHandler(base, deps.Auth),
		Roles:     auth.NewRoleAuthorization(deps.Logger),
		User:      user.NewHandler(base, deps.Users),
		Directory: directory.NewHandler(base, deps.Directory),
		Booking:   booking.NewHandler(base, deps.Booking),
		Webhook:   booking.NewWebhookHandler(base, deps.Booking),
		Checks:    map[string]rest.Pinger{"database": deps.DB},
	}
	if deps.Config.Observability.Metrics.Enabled {
		handlers.Metrics = deps.Metrics
		handlers.MetricsPath = deps.Config.Observability.Metrics.Path
	}

	rest.RegisterAllRoutes(router, handlers, deps.Logger)
}

// Close drains in-flight event handlers before releasing the database.
func (d *Dependencies) Close() {
	d.Bus.Close()
	if err := d.DB.Close(); err != nil {
		d.Logger.Error("Database close error", "error", err)
	}
}

func initializeDependencies(ctx context.Context) (*Dependencies, error) {
	config, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	log := setupLogger(config)

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gdb, err := initGorm(db)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize gorm: %w", err)
	}

	registry := metrics.New()
	bus := events.NewEventBus(log)
	registry.Subscribe(bus)
	subscribeAuditLog(bus, log)

	directoryService := directory.NewService(directoryPostgres.NewDirectoryRepository(db), log, config.Security.BCryptCost)
	lines, err := directoryService.LineSequences(ctx)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to load lines: %w", err)
	}
	fares, err := fare.FromConfig(config.Fare, lines)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to build fare policy: %w", err)
	}

	ticketService := ticket.NewService(ticketPostgres.NewTicketRepository(gdb), log, config.Booking.GraceWindow)

	gateway := paymentgateway.NewClient(paymentgateway.Config{
		BaseURL:   config.Payment.GatewayURL,
		KeyID:     config.Payment.KeyID,
		KeySecret: config.Payment.KeySecret,
		Currency:  config.Payment.Currency,
		Timeout:   config.Payment.Timeout,
	}, log).WithObserver(registry)

	bookingService := booking.NewService(directoryService, fares, ticketService, gateway, bus, log, booking.Options{
		Currency:       config.Payment.Currency,
		KeySecret:      config.Payment.KeySecret,
		WebhookSecret:  config.Payment.WebhookSecret,
		Location:       config.Booking.Location(),
		PendingExpiry:  config.Booking.PendingExpiry,
		CheckoutExpiry: config.Booking.CheckoutExpiry,
	}).WithRecorder(registry)

	tokens := auth.NewJWTTokenGenerator(config.Security.JWTSecret, config.Security.AccessTokenDuration)
	authService := auth.NewService(authPostgres.NewRepository(gdb), tokens, log, config.Security.BCryptCost)
	userService := user.NewService(userPostgres.NewUserRepository(gdb), log)

	return &Dependencies{
		Config:    config,
		DB:        db,
		Gorm:      gdb,
		Bus:       bus,
		Metrics:   registry,
		Logger:    log,
		Directory: directoryService,
		Tickets:   ticketService,
		Booking:   bookingService,
		Auth:      authService,
		Users:     userService,
	}, nil
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// verify connection; close underlying *sql.DB on failure
	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}

// initGorm shares the sqlx connection pool with gorm.
func initGorm(db *sqlx.DB) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{Conn: db.DB}), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Warn),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
}
