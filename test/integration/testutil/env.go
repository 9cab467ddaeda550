package testutil

import (
	"context"
	"lodgr/internal/availability/coordinator"
	"lodgr/internal/availability/events"
	"lodgr/internal/availability/handler"
	"lodgr/internal/availability/repository"
	"lodgr/internal/availability/router"
	"lodgr/internal/availability/service"
	"lodgr/internal/availability/validator"
	"lodgr/pkg/app"
	"lodgr/pkg/client"
	"lodgr/pkg/clock"
	"lodgr/pkg/config"
	"lodgr/pkg/logger"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"
)

// TestEnv describes the MongoDB the integration suite runs against. The suite
// is skipped unless TEST_MONGO_URI is set.
type TestEnv struct {
	MongoURI     string
	DatabaseName string
}

func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	mongoURI := os.Getenv("TEST_MONGO_URI")
	if mongoURI == "" {
		t.Skip("TEST_MONGO_URI not set")
	}
	return &TestEnv{
		MongoURI:     mongoURI,
		DatabaseName: getEnv("TEST_DB_NAME", DefaultDatabaseName),
	}
}

func (e *TestEnv) Setup(t *testing.T) *MongoHelper {
	t.Helper()

	mongo := NewMongoHelper(t, e.MongoURI, e.DatabaseName)
	mongo.CleanCollection(t, HoldsCollection)
	t.Cleanup(func() {
		mongo.CleanCollection(t, HoldsCollection)
		mongo.Close(t)
	})
	return mongo
}

// Config returns a service configuration bound to the helper's connection.
func (e *TestEnv) Config(mongo *MongoHelper) *config.Config {
	cfg := config.FromEnv("integration")
	cfg.MongoURI = e.MongoURI
	cfg.MongoDatabaseName = mongo.DBName
	cfg.APISigningSecret = ""
	cfg.Log = logger.Discard()
	cfg.Client.Mongo = mongo.Client
	return cfg
}

// Server is one coordinator process: router, journal and HTTP stack.
type Server struct {
	Units  *router.Router
	Holds  repository.HoldRepository
	Client *client.AvailabilityClient
	http   *httptest.Server
	stop   sync.Once
}

// StartServer assembles the coordinator the way the availability binary does,
// minus Kafka, and serves it over a local listener.
func StartServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()

	holds := repository.NewMongoHoldRepository(cfg)
	units := router.New(router.Config{
		IdleAfter:       cfg.UnitIdleTimeout,
		JanitorInterval: cfg.UnitJanitorInterval,
		RestoreTimeout:  cfg.UnitRestoreTimeout,
		Actor: coordinator.Settings{
			SweepInterval:     cfg.HoldSweepInterval,
			TerminalRetention: cfg.HoldTerminalRetention,
			PersistTimeout:    cfg.HoldPersistTimeout,
		},
	}, coordinator.Deps{
		Clock:   clock.NewSystem(),
		Journal: holds,
		Events:  events.Noop{},
		Log:     cfg.Log,
	}, holds)
	units.Start()

	svc := service.NewAvailabilityService(units, validator.NewHoldValidator(), cfg)
	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(
		handler.NewAvailabilityHandler(svc, cfg.Log),
		handler.NewHealthHandler(cfg.Client.Mongo, units, holds, nil, nil, cfg.Log),
	)

	srv := &Server{
		Units: units,
		Holds: holds,
		http:  httptest.NewServer(serverApp.Handler()),
	}
	srv.Client = client.NewAvailabilityClient(srv.http.URL, client.Options{
		AttemptTimeout: 5 * time.Second,
		ClientID:       t.Name(),
	})
	t.Cleanup(srv.Stop)
	return srv
}

// URL is the base address of the local listener.
func (s *Server) URL() string {
	return s.http.URL
}

// Stop closes the listener and retires every unit actor. Safe to call twice.
func (s *Server) Stop() {
	s.stop.Do(func() {
		s.http.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Units.Close(ctx)
	})
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
