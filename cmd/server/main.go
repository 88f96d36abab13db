package main

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/splitpay/internal/auth"
	"github.com/mmynk/splitpay/internal/engine"
	"github.com/mmynk/splitpay/internal/ledger"
	"github.com/mmynk/splitpay/internal/middleware"
	"github.com/mmynk/splitpay/internal/server"
	"github.com/mmynk/splitpay/internal/storage/sqlite"
	"github.com/mmynk/splitpay/pkg/logging"
)

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func main() {
	logging.Setup()

	addr := getEnv("ADDR", ":8080")
	dbPath := getEnv("DB_PATH", "./data/splits.db")
	networkID := getEnv("NETWORK_ID", "simnet")
	instanceID := getEnv("INSTANCE_ID", "dev")
	spender := getEnv("SPENDER_ID", "splitpay-coordinator")

	jwtSecret := os.Getenv("JWT_SECRET")
	clientID := os.Getenv("CLIENT_ID")
	clientSecretHash := os.Getenv("CLIENT_SECRET_HASH")
	if jwtSecret == "" || clientID == "" || clientSecretHash == "" {
		slog.Error("JWT_SECRET, CLIENT_ID and CLIENT_SECRET_HASH must be set")
		os.Exit(1)
	}

	store, err := sqlite.New(dbPath)
	if err != nil {
		slog.Error("failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("storage initialized", "database", dbPath)

	// The in-memory ledger backs single-node development. Production wires a
	// client for the real external token ledger here instead.
	tokens := ledger.NewMemLedger()

	coord := engine.New(store, tokens, engine.Config{
		NetworkID:  networkID,
		InstanceID: instanceID,
		Spender:    spender,
	})

	jwtManager := auth.NewJWTManager(jwtSecret, 24*time.Hour)
	clients := auth.NewClientAuthenticator(clientID, clientSecretHash, jwtManager)

	handler := middleware.Logging(server.New(coord, clients, jwtManager).Handler())

	// HTTP/2 without TLS, so clients behind a terminating proxy can multiplex.
	h2cHandler := h2c.NewHandler(handler, &http2.Server{})

	slog.Info("coordinator starting",
		"address", addr,
		"network_id", networkID,
		"instance_id", instanceID,
		"spender", spender,
	)
	if err := http.ListenAndServe(addr, h2cHandler); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
