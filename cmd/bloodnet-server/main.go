package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/bloodnet/bloodnet/internal/config"
	"github.com/bloodnet/bloodnet/internal/domain/camp"
	"github.com/bloodnet/bloodnet/internal/domain/donor"
	"github.com/bloodnet/bloodnet/internal/domain/organization"
	"github.com/bloodnet/bloodnet/internal/domain/request"
	"github.com/bloodnet/bloodnet/internal/domain/resource"
	"github.com/bloodnet/bloodnet/internal/domain/stock"
	"github.com/bloodnet/bloodnet/internal/platform/auth"
	"github.com/bloodnet/bloodnet/internal/platform/db"
	"github.com/bloodnet/bloodnet/internal/platform/geo"
	"github.com/bloodnet/bloodnet/internal/platform/middleware"
	"github.com/bloodnet/bloodnet/internal/platform/priority"
	"github.com/bloodnet/bloodnet/internal/platform/proximity"
	"github.com/bloodnet/bloodnet/internal/platform/redisutil"
	"github.com/bloodnet/bloodnet/internal/platform/sandbox"
	"github.com/bloodnet/bloodnet/pkg/blood"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "bloodnet-server",
		Short: "Smart emergency blood network API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(tenantCmd())
	rootCmd.AddCommand(seedCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, _ := cmd.Flags().GetString("schema")
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			fmt.Printf("Running migrations on schema: %s\n", schema)

			count, err := migrator.Up(ctx, schema)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("schema", "tenant_default", "Target schema for migrations")
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, _ := cmd.Flags().GetString("schema")
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx, schema)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("Migration status for schema: %s\n", schema)
			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("schema", "tenant_default", "Target schema for migrations")
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func tenantCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenant",
		Short: "Manage tenants",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new tenant schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			if name == "" {
				return fmt.Errorf("--name is required")
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			fmt.Printf("Creating tenant schema: tenant_%s\n", name)
			if err := db.CreateTenantSchema(ctx, pool, name, ""); err != nil {
				return err
			}
			fmt.Println("Tenant created. Apply migrations with: bloodnet-server migrate up --schema tenant_" + name)
			return nil
		},
	}
	createCmd.Flags().String("name", "", "Tenant identifier (alphanumeric)")

	cmd.AddCommand(createCmd)
	return cmd
}

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Populate a tenant with sandbox data",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, _ := cmd.Flags().GetString("schema")
			seed, _ := cmd.Flags().GetUint64("seed")

			logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			if _, err := pool.Exec(ctx, fmt.Sprintf("SET search_path TO %s, public", schema)); err != nil {
				return fmt.Errorf("set search path: %w", err)
			}

			app := buildApp(pool, redisutil.NoopLocker{}, logger)
			seeder := sandbox.NewSeeder(app.orgSvc, app.stockSvc, app.donorSvc, app.requestSvc, app.campSvc, seed, logger)
			if err := seeder.Seed(ctx); err != nil {
				return err
			}
			fmt.Println("Sandbox data seeded.")
			return nil
		},
	}
	cmd.Flags().String("schema", "tenant_default", "Target tenant schema")
	cmd.Flags().Uint64("seed", 0, "Deterministic random seed (0 for random)")
	return cmd
}

// app bundles the wired services and handlers.
type app struct {
	orgSvc      *organization.Service
	stockSvc    *stock.Service
	donorSvc    *donor.Service
	requestSvc  *request.Service
	campSvc     *camp.Service
	resourceSvc *resource.Service

	handlers []interface{ RegisterRoutes(api *echo.Group) }
}

func buildApp(pool *pgxpool.Pool, locker redisutil.Locker, logger zerolog.Logger) *app {
	orgRepo := organization.NewRepoPG(pool)
	stockRepo := stock.NewRepoPG(pool)
	donorRepo := donor.NewRepoPG(pool)
	requestRepo := request.NewRepoPG(pool)
	campRepo := camp.NewRepoPG(pool)
	resourceRepo := resource.NewRepoPG(pool)

	dir := &repoDirectory{stocks: stockRepo, donors: donorRepo}
	searcher := proximity.NewSearcher(dir)

	orgSvc := organization.NewService(orgRepo, logger)
	stockSvc := stock.NewService(stockRepo, orgRepo, logger)
	donorSvc := donor.NewService(donorRepo, logger)
	requestSvc := request.NewService(requestRepo,
		&groupStockReader{stocks: stockRepo},
		&orgOriginResolver{orgs: orgRepo},
		searcher, locker, logger)
	campSvc := camp.NewService(campRepo, logger)
	resourceSvc := resource.NewService(resourceRepo, logger)

	return &app{
		orgSvc:      orgSvc,
		stockSvc:    stockSvc,
		donorSvc:    donorSvc,
		requestSvc:  requestSvc,
		campSvc:     campSvc,
		resourceSvc: resourceSvc,
		handlers: []interface{ RegisterRoutes(api *echo.Group) }{
			organization.NewHandler(orgSvc),
			stock.NewHandler(stockSvc),
			donor.NewHandler(donorSvc),
			request.NewHandler(requestSvc),
			camp.NewHandler(campSvc),
			resource.NewHandler(resourceSvc),
		},
	}
}

func runServer() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	var locker redisutil.Locker = redisutil.NoopLocker{}
	if cfg.RedisURL != "" {
		client, err := redisutil.NewClient(cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer client.Close()
		locker = redisutil.NewRequestLocker(client, 10*time.Second)
		logger.Info().Msg("connected to redis")
	} else {
		logger.Warn().Msg("no REDIS_URL configured, request locking runs in-process only")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID", "X-Tenant-ID"},
	}))

	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware())
	} else {
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:   cfg.AuthIssuer,
			Audience: cfg.AuthAudience,
			JWKSURL:  cfg.AuthJWKSURL,
		}))
	}

	e.Use(db.TenantMiddleware(pool, cfg.DefaultTenant))
	e.Use(middleware.Audit(logger))

	apiV1 := e.Group("/api/v1")

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1.Use(middleware.RateLimit(rateLimitCfg))

	application := buildApp(pool, locker, logger)
	for _, h := range application.handlers {
		h.RegisterRoutes(apiV1)
	}

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}

// repoDirectory adapts the stock and donor repositories to the
// proximity.Directory interface, avoiding circular imports between the
// search engine and the domain packages. It over-fetches by group; the
// searcher re-checks distance and stock itself.
type repoDirectory struct {
	stocks stock.Repository
	donors donor.Repository
}

func (d *repoDirectory) ListBloodBanksNear(ctx context.Context, _ geo.Point, _ float64, group blood.Group) ([]proximity.BankCandidate, error) {
	rows, err := d.stocks.ListBankCandidates(ctx, group)
	if err != nil {
		return nil, err
	}
	return bankCandidates(rows), nil
}

func (d *repoDirectory) ListBloodBanksByCity(ctx context.Context, city string, group blood.Group) ([]proximity.BankCandidate, error) {
	rows, err := d.stocks.ListBankCandidatesByCity(ctx, group, city)
	if err != nil {
		return nil, err
	}
	return bankCandidates(rows), nil
}

func (d *repoDirectory) ListDonorsNear(ctx context.Context, _ geo.Point, _ float64, group blood.Group) ([]proximity.DonorCandidate, error) {
	rows, err := d.donors.ListContactable(ctx, group)
	if err != nil {
		return nil, err
	}
	return donorCandidates(rows), nil
}

func (d *repoDirectory) ListDonorsByCity(ctx context.Context, city string, group blood.Group) ([]proximity.DonorCandidate, error) {
	rows, err := d.donors.ListContactableByCity(ctx, group, city)
	if err != nil {
		return nil, err
	}
	return donorCandidates(rows), nil
}

func bankCandidates(rows []*stock.BankCandidate) []proximity.BankCandidate {
	out := make([]proximity.BankCandidate, 0, len(rows))
	for _, r := range rows {
		c := proximity.BankCandidate{
			ID:    r.OrganizationID,
			Name:  r.Name,
			City:  r.City,
			Units: r.Units,
		}
		if r.Phone != nil {
			c.Contact = *r.Phone
		}
		if r.Latitude != nil && r.Longitude != nil {
			c.Coordinates = &geo.Point{Lat: *r.Latitude, Lng: *r.Longitude}
		}
		out = append(out, c)
	}
	return out
}

func donorCandidates(rows []*donor.Donor) []proximity.DonorCandidate {
	out := make([]proximity.DonorCandidate, 0, len(rows))
	for _, d := range rows {
		c := proximity.DonorCandidate{
			ID:          d.ID,
			Name:        d.Name,
			City:        d.City,
			Group:       d.BloodGroup,
			Coordinates: d.Location(),
		}
		if d.Phone != nil {
			c.Contact = *d.Phone
		}
		out = append(out, c)
	}
	return out
}

// groupStockReader adapts stock rows to the scoring engine's availability
// input by summing units for the group across approved banks.
type groupStockReader struct {
	stocks stock.Repository
}

func (r *groupStockReader) GroupStock(ctx context.Context, group blood.Group) (*priority.Stock, error) {
	total, ok, err := r.stocks.GroupTotal(ctx, group)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return &priority.Stock{Units: total, LastUpdated: time.Now()}, nil
}

// orgOriginResolver maps the requesting hospital to search coordinates.
type orgOriginResolver struct {
	orgs organization.Repository
}

func (r *orgOriginResolver) ResolveOrigin(ctx context.Context, orgID uuid.UUID) (*geo.Point, string, error) {
	o, err := r.orgs.GetByID(ctx, orgID)
	if err != nil {
		return nil, "", err
	}
	return o.Location(), o.City, nil
}
