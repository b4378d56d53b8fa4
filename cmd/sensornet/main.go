package main

/*
Target architecture:

Incoming REST call --> http.go --> controllers (bind + validate + existence
checks) --> orchestrator (sequences the multi-store fan-out) --> one package
per backing store. The orchestrator holds no state beyond the store handles;
consistency across stores is best-effort and every fan-out step lands in the
step log for out-of-band reconciliation.
*/

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/heptiolabs/healthcheck"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sensornet-io/sensornet/cmd/sensornet/aggregate"
	"github.com/sensornet-io/sensornet/cmd/sensornet/controllers"
	"github.com/sensornet-io/sensornet/cmd/sensornet/hotcache"
	"github.com/sensornet-io/sensornet/cmd/sensornet/identity"
	"github.com/sensornet-io/sensornet/cmd/sensornet/orchestrator"
	"github.com/sensornet-io/sensornet/cmd/sensornet/profile"
	"github.com/sensornet-io/sensornet/cmd/sensornet/publisher"
	"github.com/sensornet-io/sensornet/cmd/sensornet/searchindex"
	"github.com/sensornet-io/sensornet/cmd/sensornet/steplog"
	"github.com/sensornet-io/sensornet/cmd/sensornet/timeseries"
	"github.com/united-manufacturing-hub/umh-utils/env"
	"go.elastic.co/ecszap"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var buildtime string

func main() {
	InitLogging()
	zap.S().Infof("This is sensornet build date: %s", buildtime)

	ctx := context.Background()

	// Identity store (PostgreSQL). The step log shares its pool.
	PQHost, _ := env.GetAsString("POSTGRES_HOST", false, "db")
	PQPort, err := env.GetAsInt("POSTGRES_PORT", false, 5432)
	if err != nil {
		zap.S().Fatalf("Failed to get POSTGRES_PORT from env: %s", err)
	}
	PQUser, err := env.GetAsString("POSTGRES_USER", true, "")
	if err != nil {
		zap.S().Fatalf("Failed to get POSTGRES_USER from env: %s", err)
	}
	PQPassword, err := env.GetAsString("POSTGRES_PASSWORD", true, "")
	if err != nil {
		zap.S().Fatalf("Failed to get POSTGRES_PASSWORD from env: %s", err)
	}
	PQDBName, err := env.GetAsString("POSTGRES_DATABASE", true, "")
	if err != nil {
		zap.S().Fatalf("Failed to get POSTGRES_DATABASE from env: %s", err)
	}
	PQSSLMode, _ := env.GetAsString("POSTGRES_SSL_MODE", false, "require")

	identityStore, err := identity.Connect(ctx, PQUser, PQPassword, PQDBName, PQHost, PQPort, PQSSLMode)
	if err != nil {
		zap.S().Fatalf("Failed to connect identity store: %s", err)
	}

	stepRecorder, err := steplog.NewPostgresRecorder(ctx, identityStore.Pool())
	if err != nil {
		zap.S().Fatalf("Failed to set up fan-out step log: %s", err)
	}

	// Time-series store (TimescaleDB).
	TSHost, _ := env.GetAsString("TIMESCALE_HOST", false, "timescale")
	TSPort, err := env.GetAsInt("TIMESCALE_PORT", false, 5432)
	if err != nil {
		zap.S().Fatalf("Failed to get TIMESCALE_PORT from env: %s", err)
	}
	TSUser, err := env.GetAsString("TIMESCALE_USER", true, "")
	if err != nil {
		zap.S().Fatalf("Failed to get TIMESCALE_USER from env: %s", err)
	}
	TSPassword, err := env.GetAsString("TIMESCALE_PASSWORD", true, "")
	if err != nil {
		zap.S().Fatalf("Failed to get TIMESCALE_PASSWORD from env: %s", err)
	}
	TSDBName, err := env.GetAsString("TIMESCALE_DATABASE", true, "")
	if err != nil {
		zap.S().Fatalf("Failed to get TIMESCALE_DATABASE from env: %s", err)
	}
	TSSSLMode, _ := env.GetAsString("TIMESCALE_SSL_MODE", false, "require")

	seriesStore, err := timeseries.Connect(ctx, TSUser, TSPassword, TSDBName, TSHost, TSPort, TSSSLMode)
	if err != nil {
		zap.S().Fatalf("Failed to connect time-series store: %s", err)
	}

	// Profile store (MongoDB).
	mongoURI, _ := env.GetAsString("MONGODB_URI", false, "mongodb://mongodb:27017")
	profileStore, err := profile.Connect(ctx, mongoURI)
	if err != nil {
		zap.S().Fatalf("Failed to connect profile store: %s", err)
	}

	// Search index (Elasticsearch).
	esAddresses, _ := env.GetAsString("ELASTICSEARCH_ADDRESSES", false, "http://elasticsearch:9200")
	esUser, _ := env.GetAsString("ELASTICSEARCH_USER", false, "")
	esPassword, _ := env.GetAsString("ELASTICSEARCH_PASSWORD", false, "")
	search, err := searchindex.Connect(strings.Split(esAddresses, ","), esUser, esPassword)
	if err != nil {
		zap.S().Fatalf("Failed to connect search index: %s", err)
	}

	// Hot cache (Redis).
	redisURI, _ := env.GetAsString("REDIS_URI", false, "redis:6379")
	redisPassword, _ := env.GetAsString("REDIS_PASSWORD", false, "")
	redisDB, _ := env.GetAsInt("REDIS_DB", false, 0)
	cache, err := hotcache.Connect(redisURI, redisPassword, redisDB)
	if err != nil {
		zap.S().Fatalf("Failed to connect hot cache: %s", err)
	}

	// Aggregation store (Cassandra).
	cassandraHosts, _ := env.GetAsString("CASSANDRA_HOSTS", false, "cassandra")
	aggregates, err := aggregate.Connect(strings.Split(cassandraHosts, ","))
	if err != nil {
		zap.S().Fatalf("Failed to connect aggregation store: %s", err)
	}

	// Event publishing is optional: no broker URL, no events.
	var events orchestrator.EventPublisher
	mqttBrokerURL, _ := env.GetAsString("MQTT_BROKER_URL", false, "")
	if mqttBrokerURL != "" {
		podName, _ := env.GetAsString("MY_POD_NAME", false, "sensornet")
		mqttUser, _ := env.GetAsString("MQTT_USER", false, "")
		mqttPassword, _ := env.GetAsString("MQTT_PASSWORD", false, "")
		mqttPublisher, err := publisher.Connect(mqttBrokerURL, podName, mqttUser, mqttPassword)
		if err != nil {
			zap.S().Fatalf("Failed to connect MQTT publisher: %s", err)
		}
		defer mqttPublisher.Close()
		events = mqttPublisher
	}

	InitPrometheus()
	InitHealthCheck(identityStore, seriesStore, profileStore, search, cache, aggregates)

	controllers.Init(orchestrator.New(
		identityStore,
		profileStore,
		search,
		cache,
		seriesStore,
		aggregates,
		stepRecorder,
		events,
	))

	// Allow graceful shutdown
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		zap.S().Infof("Received SIG %v, shutting down", sig)
		identityStore.Close()
		seriesStore.Close()
		aggregates.Close()
		_ = cache.Close()
		_ = profileStore.Close(ctx)
		os.Exit(0)
	}()

	listenAddress, _ := env.GetAsString("LISTEN_ADDRESS", false, ":80")
	SetupRestAPI(listenAddress)
}

func InitLogging() {
	logLevel, _ := env.GetAsString("LOGGING_LEVEL", false, "PRODUCTION")
	encoderConfig := ecszap.NewDefaultEncoderConfig()
	var core zapcore.Core
	switch logLevel {
	case "DEVELOPMENT":
		core = ecszap.NewCore(encoderConfig, os.Stdout, zap.DebugLevel)
	default:
		core = ecszap.NewCore(encoderConfig, os.Stdout, zap.InfoLevel)
	}
	logger := zap.New(core, zap.AddCaller())
	zap.ReplaceGlobals(logger)
}

func InitPrometheus() {
	metricsPath := "/metrics"
	metricsPort := ":2112"
	zap.S().Debugf("Setting up metrics %s %v", metricsPath, metricsPort)

	http.Handle(metricsPath, promhttp.Handler())
	go func() {
		/* #nosec G114 */
		err := http.ListenAndServe(metricsPort, nil)
		if err != nil {
			zap.S().Errorf("Error starting metrics: %s", err)
		}
	}()
}

func InitHealthCheck(
	identityStore *identity.Store,
	seriesStore *timeseries.Store,
	profileStore *profile.Store,
	search *searchindex.Index,
	cache *hotcache.Cache,
	aggregates *aggregate.Store) {
	zap.S().Debugf("Setting up healthcheck")

	health := healthcheck.NewHandler()
	health.AddLivenessCheck("goroutine-threshold", healthcheck.GoroutineCountCheck(1000))
	health.AddReadinessCheck("identity", identityStore.HealthCheck())
	health.AddReadinessCheck("timeseries", seriesStore.HealthCheck())
	health.AddReadinessCheck("profile", profileStore.HealthCheck())
	health.AddReadinessCheck("search", search.HealthCheck())
	health.AddReadinessCheck("cache", cache.HealthCheck())
	health.AddReadinessCheck("aggregation", aggregates.HealthCheck())
	go func() {
		/* #nosec G114 */
		err := http.ListenAndServe("0.0.0.0:8086", health)
		if err != nil {
			zap.S().Errorf("Error starting healthcheck: %s", err)
		}
	}()
}
