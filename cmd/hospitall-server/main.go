package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/hospitall/hospitall/internal/config"
	"github.com/hospitall/hospitall/internal/domain/appointment"
	"github.com/hospitall/hospitall/internal/domain/doctor"
	"github.com/hospitall/hospitall/internal/domain/medicalrecord"
	"github.com/hospitall/hospitall/internal/domain/patient"
	"github.com/hospitall/hospitall/internal/domain/specialty"
	"github.com/hospitall/hospitall/internal/domain/user"
	"github.com/hospitall/hospitall/internal/platform/auth"
	"github.com/hospitall/hospitall/internal/platform/db"
	"github.com/hospitall/hospitall/internal/platform/middleware"
	"github.com/hospitall/hospitall/internal/platform/telemetry"
	"github.com/hospitall/hospitall/internal/platform/validate"
	"github.com/hospitall/hospitall/migrations"
)

const (
	serviceName    = "hospitall"
	serviceVersion = "0.1.0"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "hospitall-server",
		Short: "Hospital management API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(userCmd())

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

// openPool loads the configuration and connects to the configured schema.
func openPool(ctx context.Context) (*config.Config, *pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBSchema, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, nil, err
	}
	return cfg, pool, nil
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
			target, _ := cmd.Flags().GetInt("to")

			ctx := context.Background()
			cfg, pool, err := openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, migrations.FS, cfg.DBSchema)
			fmt.Printf("Running migrations on schema: %s\n", cfg.DBSchema)

			var count int
			if target > 0 {
				count, err = migrator.UpTo(ctx, target)
			} else {
				count, err = migrator.Up(ctx)
			}
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().Int("to", 0, "Stop after this migration version (0 applies everything)")
	cmd.AddCommand(upCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			cfg, pool, err := openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, migrations.FS, cfg.DBSchema).Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("Migration status for schema: %s\n", cfg.DBSchema)
			printMigrationStatus(cmd.OutOrStdout(), statuses)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Rollback last migration (not supported)",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("WARNING: migrate down is destructive and not supported by the built-in runner.")
			fmt.Println("Restore from a backup or write a forward migration instead.")
			return nil
		},
	})

	return cmd
}

func printMigrationStatus(w io.Writer, statuses []db.MigrationStatus) {
	fmt.Fprintf(w, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
	fmt.Fprintln(w, "---------- ---------------------------------------- ---------- --------------------")
	for _, s := range statuses {
		status := "pending"
		appliedAt := ""
		if s.Applied {
			status = "applied"
			if s.AppliedAt != nil {
				appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
			}
		}
		fmt.Fprintf(w, "%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
	}
}

// userCmd bootstraps accounts that the public API refuses to create,
// namely the first administrator.
func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}

	createAdmin := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := &user.CreateRequest{}
			req.Name, _ = cmd.Flags().GetString("name")
			req.Email, _ = cmd.Flags().GetString("email")
			req.Password, _ = cmd.Flags().GetString("password")
			req.CPF, _ = cmd.Flags().GetString("cpf")
			req.Role = auth.RoleAdmin
			if req.Name == "" || req.Email == "" || req.Password == "" || req.CPF == "" {
				return fmt.Errorf("--name, --email, --password and --cpf are required")
			}
			if err := validate.New().Validate(req); err != nil {
				return err
			}

			ctx := context.Background()
			cfg, pool, err := openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			svc := user.NewService(user.NewRepoPG(pool), newTokenIssuer(cfg), auth.NewTokenRevocationStore())
			u, err := svc.CreateUser(ctx, req)
			if err != nil {
				return fmt.Errorf("create admin: %w", err)
			}
			fmt.Printf("Created administrator %s (%s)\n", u.Email, u.ID)
			return nil
		},
	}
	createAdmin.Flags().String("name", "", "Full name")
	createAdmin.Flags().String("email", "", "Login email")
	createAdmin.Flags().String("password", "", "Initial password")
	createAdmin.Flags().String("cpf", "", "CPF formatted as ddd.ddd.ddd-dd")
	cmd.AddCommand(createAdmin)

	return cmd
}

func newTokenIssuer(cfg *config.Config) *auth.TokenIssuer {
	return auth.NewTokenIssuer(auth.IssuerConfig{
		SigningKey: []byte(cfg.JWTSecret),
		Issuer:     cfg.JWTIssuer,
		AccessTTL:  cfg.JWTAccessTTL,
		RefreshTTL: cfg.JWTRefreshTTL,
	})
}

// newLogger writes JSON to stdout (console format in development) and,
// when LOG_FILE is set, also to a rotated file.
func newLogger(cfg *config.Config) (zerolog.Logger, io.Closer) {
	var out io.Writer = os.Stdout
	if cfg.IsDev() {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	var closer io.Closer = io.NopCloser(nil)
	if cfg.LogFile != "" {
		file := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    100,
			MaxBackups: 5,
			MaxAge:     30,
			Compress:   true,
		}
		out = zerolog.MultiLevelWriter(out, file)
		closer = file
	}

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	return zerolog.New(out).Level(level).With().Timestamp().Str("service", serviceName).Logger(), closer
}

func runServer() error {
	bootLogger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		bootLogger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		bootLogger.Fatal().Err(err).Msg("invalid config")
	}
	loc, _ := cfg.Location()

	logger, logCloser := newLogger(cfg)
	defer logCloser.Close()
	log.Logger = logger
	zerolog.DefaultContextLogger = &logger

	ctx := context.Background()

	// Telemetry first: services capture the global tracer at construction.
	tp, err := telemetry.NewTelemetryProvider(ctx, telemetry.TelemetryConfig{
		ServiceName:    serviceName,
		ServiceVersion: serviceVersion,
		Environment:    cfg.Env,
		TracingEnabled: cfg.TracingEnabled,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SampleRate:     cfg.TraceSampleRate,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialise telemetry")
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBSchema, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Str("schema", cfg.DBSchema).Msg("connected to database")

	tp.Metrics.RegisterDBPool(serviceName, func() (int32, int32, int32) {
		s := pool.Stat()
		return s.AcquiredConns(), s.IdleConns(), s.TotalConns()
	})

	// Revocation: Redis when configured so revocations survive restarts and
	// are shared between replicas.
	var revoked auth.RevocationStore
	var healthChecks []db.Check
	if cfg.RedisURL != "" {
		rdb, err := auth.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		store := auth.NewRedisRevocationStore(rdb)
		defer store.Close()
		revoked = store
		healthChecks = append(healthChecks, db.Check{Name: "redis", Ping: store.Ping})
		logger.Info().Msg("token revocation backed by redis")
	} else {
		store := auth.NewTokenRevocationStore()
		defer store.Close()
		revoked = store
		logger.Warn().Msg("REDIS_URL not set: token revocations are kept in memory")
	}

	tokens := newTokenIssuer(cfg)

	// Services
	userRepo := user.NewRepoPG(pool)
	userSvc := user.NewService(userRepo, tokens, revoked)

	specialtySvc := specialty.NewService(specialty.NewRepoPG(pool))
	doctorSvc := doctor.NewService(doctor.NewRepoPG(pool), specialtySvc, userSvc)
	patientSvc := patient.NewService(patient.NewRepoPG(pool), userSvc)

	appointmentRepo := appointment.NewRepoPG(pool)
	appointmentSvc := appointment.NewService(
		appointmentRepo,
		appointment.NewDoctorLockerPG(pool),
		schedulingDoctors{doctors: doctorSvc},
		schedulingPatients{patients: patientSvc},
		loc,
		appointment.WithRecorder(tp.Metrics),
	)

	recordSvc := medicalrecord.NewService(
		medicalrecord.NewRepoPG(pool),
		recordPatients{patients: patientSvc},
		recordDoctors{doctors: doctorSvc},
		recordAppointments{appointments: appointmentRepo},
	)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validate.New()

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(tp.TracingMiddleware())
	e.Use(tp.MetricsMiddleware())
	e.Use(middleware.SecurityHeaders(cfg.TLSEnabled))
	e.Use(middleware.Sanitize(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:  cfg.CORSOrigins,
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders:  []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposeHeaders: []string{auth.TokenExpiringHeader, middleware.RequestIDHeader},
	}))
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))

	// Auth middleware
	jwtCfg := auth.JWTConfig{
		Tokens:  tokens,
		Revoked: revoked,
		Users:   userSvc,
		Skipper: auth.AuthSkipper,
	}
	if cfg.ResolvedAuthMode() == "development" {
		e.Use(auth.DevAuthMiddleware(jwtCfg))
	} else {
		e.Use(auth.JWTMiddleware(jwtCfg))
	}

	e.Use(middleware.Audit(logger))

	apiV1 := e.Group("/api/v1")

	rateLimitCfg := middleware.DefaultRateLimitConfig()
	if cfg.RateLimitRPS > 0 {
		rateLimitCfg.RequestsPerSecond = cfg.RateLimitRPS
		rateLimitCfg.BurstSize = cfg.RateLimitBurst
	}
	apiV1.Use(middleware.RateLimit(rateLimitCfg))

	auth.RegisterRevocationRoutes(apiV1, revoked, tokens)
	user.NewHandler(userSvc).RegisterRoutes(apiV1)
	specialty.NewHandler(specialtySvc).RegisterRoutes(apiV1)
	doctor.NewHandler(doctorSvc).RegisterRoutes(apiV1)
	patient.NewHandler(patientSvc).RegisterRoutes(apiV1)
	appointment.NewHandler(appointmentSvc).RegisterRoutes(apiV1)
	medicalrecord.NewHandler(recordSvc).RegisterRoutes(apiV1)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": serviceVersion,
		})
	})
	e.GET("/health/db", db.HealthHandler(pool, healthChecks...))
	e.GET("/metrics", tp.PrometheusHandler())

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Bool("tls", cfg.TLSEnabled).Str("auth_mode", cfg.ResolvedAuthMode()).Msg("starting server")
		var err error
		if cfg.TLSEnabled {
			err = e.StartTLS(addr, cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			err = e.Start(addr)
		}
		if err != nil && err != http.ErrServerClosed {
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
		logger.Error().Err(err).Msg("server shutdown failed")
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("telemetry shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
