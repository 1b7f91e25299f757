package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/cryptonique0/basero-yield-engine/internal/config"
	"github.com/cryptonique0/basero-yield-engine/internal/ledger"
	"github.com/cryptonique0/basero-yield-engine/internal/logger"
	"github.com/cryptonique0/basero-yield-engine/internal/monitor"
	"github.com/cryptonique0/basero-yield-engine/internal/state"
	"github.com/cryptonique0/basero-yield-engine/internal/strategy"
	"github.com/cryptonique0/basero-yield-engine/internal/web"
)

const (
	DEFAULT_CONFIG_NAME    = "default_yield_strategy"
	DEFAULT_CONFIG_VERSION = 1
)

// main is the entry point for the yield strategy engine.
func main() {
	// --- 1. Initialization Phase ---
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("Warning: .env file not found. Relying on OS environment variables.")
	}

	// Load configuration from environment variables
	if err := config.LoadConfig(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Initialize(os.Getenv("LOG_LEVEL"))
	log.Info().Msg("Yield Strategy Engine starting...")

	// Initialize Database Connection
	dbCfg := state.DBConfig{
		Host: config.DBHost, Port: config.DBPort,
		User: config.DBUser, Password: config.DBPassword,
		DBName: config.DBName, SSLMode: config.DBSSLMode,
	}
	if err := state.InitDB(dbCfg); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer state.CloseDB()
	if err := state.EnsureSchema(); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure database schema")
	}

	// --- 2. Collaborator Initialization (with Safety Switch) ---
	var vaultLedger ledger.VaultLedger
	var tokenLedger ledger.TokenLedger

	if config.Mode == "live" {
		log.Warn().Msg("Initializing engine in LIVE mode against the vault bookkeeping tables.")
		pgVault, err := ledger.NewPostgresVault(state.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize vault ledger")
		}
		pgToken, err := ledger.NewPostgresToken(state.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize token ledger")
		}
		vaultLedger = pgVault
		tokenLedger = pgToken
	} else {
		log.Warn().Str("mode", config.Mode).Msg("Running in simulation mode with a synthetic in-memory vault.")
		memVault := ledger.NewMemoryVault(sdkmath.NewIntWithDecimal(1, 24), "treasury")
		memVault.Authorize("governance", true)
		vaultLedger = memVault
		tokenLedger = ledger.NewMemoryToken(sdkmath.ZeroInt(), sdkmath.ZeroInt())
	}

	// --- 3. Load Strategy Parameters ---
	params, err := state.LoadActiveStrategyParameters(DEFAULT_CONFIG_NAME)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load active strategy parameters, using defaults and saving.")
		defaults := config.DefaultStrategyParameters
		if recipient, rerr := vaultLedger.FeeRecipient(); rerr == nil && !recipient.IsNull() {
			defaults.Fee.Recipient = recipient
		}
		if _, serr := state.SaveStrategyParameters(defaults, DEFAULT_CONFIG_NAME, DEFAULT_CONFIG_VERSION, true); serr != nil {
			log.Fatal().Err(serr).Msg("Failed to save initial default strategy parameters.")
		}
		params = &defaults
	}
	log.Info().Msg("Strategy parameters loaded successfully.")

	// --- 4. Restore Engine State ---
	locks, err := state.LoadUserLocks()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load persisted user locks")
	}
	userMarks, err := state.LoadUserHighWaterMarks()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load persisted user high-water marks")
	}
	globalMark := sdkmath.NewInt(strategy.DefaultHighWaterMark)
	if mark, found, merr := state.LoadGlobalHighWaterMark(); merr != nil {
		log.Fatal().Err(merr).Msg("Failed to load persisted global high-water mark")
	} else if found {
		globalMark = mark
	}

	// --- 5. Create Engine Instance with Dependency Injection ---
	engine, err := strategy.NewEngine(strategy.Config{
		Vault:       vaultLedger,
		Token:       tokenLedger,
		Params:      *params,
		Sink:        state.EventRecorder{},
		Persistence: state.EngineStore{ConfigName: DEFAULT_CONFIG_NAME},
		Locks:       locks,
		UserMarks:   userMarks,
		GlobalMark:  globalMark,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create strategy engine")
	}
	log.Info().Msg("Strategy engine created successfully")

	// --- 6. Start Web Server ---
	webServer := web.NewWebServer(config.WebPort, engine)
	go func() {
		log.Info().Str("port", config.WebPort).Str("url", "http://localhost:"+config.WebPort).Msg("Starting engine HTTP API")
		if err := webServer.Start(); err != nil {
			log.Error().Err(err).Msg("Web server failed to start")
		}
	}()

	// --- 7. Start gRPC Health Service ---
	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)

	listener, err := net.Listen("tcp", ":"+config.HealthGRPCPort)
	if err != nil {
		log.Fatal().Err(err).Str("port", config.HealthGRPCPort).Msg("Failed to listen for gRPC health service")
	}
	go func() {
		log.Info().Str("port", config.HealthGRPCPort).Msg("Starting gRPC health service")
		if err := grpcServer.Serve(listener); err != nil {
			log.Error().Err(err).Msg("gRPC health service stopped")
		}
	}()

	// --- 8. Start Monitor Loop ---
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mon, err := monitor.New(monitor.Config{Engine: engine, Vault: vaultLedger})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create monitor")
	}

	interval := time.Duration(config.MonitorIntervalSeconds) * time.Second
	log.Info().Str("interval", interval.String()).Msg("Starting monitor loop")
	mon.RunLoop(ctx, interval)

	healthServer.Shutdown()
	grpcServer.GracefulStop()
	log.Info().Msg("Yield Strategy Engine stopped")
}
