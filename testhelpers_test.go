//go:build integration

package main_test

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	kafkamodule "github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/moplan-logistics/service-routing/internal/application"
	"github.com/moplan-logistics/service-routing/internal/events"
	"github.com/moplan-logistics/service-routing/internal/osrm"
	"github.com/moplan-logistics/service-routing/internal/platform/database"
	"github.com/moplan-logistics/service-routing/internal/platform/kafka"
	"github.com/moplan-logistics/service-routing/internal/repository"
	"github.com/moplan-logistics/service-routing/internal/upstream"
)

// testInfra holds shared test infrastructure.
type testInfra struct {
	DB           *gorm.DB
	KafkaBrokers []string
	Cleanup      func()
}

// routingStack holds wired-up routing service components.
type routingStack struct {
	Cache           *repository.GormRouteCacheRepository
	Routes          *application.RouteService
	Planning        *application.PlanningService
	Consumer        *events.PlanningCommandConsumer
	ProviderCalls   *atomic.Int64
	CleanupProducer func()
}

// setupContainers starts PostgreSQL and Kafka testcontainers, applies the
// migrations and returns a connected GORM DB.
func setupContainers(t *testing.T) *testInfra {
	t.Helper()
	ctx := context.Background()

	// Start PostgreSQL (PostGIS) container with log-based wait strategy.
	pgReq := testcontainers.ContainerRequest{
		Image:        "postgis/postgis:16-3.4-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "test_routing",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: pgReq,
		Started:          true,
	})
	require.NoError(t, err, "failed to start PostgreSQL container")

	pgHost, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	pgPort, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dbConfig := database.PostgresConfig{
		Host:     pgHost,
		Port:     pgPort.Port(),
		User:     "test",
		Password: "test",
		DBName:   "test_routing",
		SSLMode:  "disable",
	}
	logger := zap.NewNop()

	// Poll until GORM can actually connect and ping.
	var db *gorm.DB
	require.Eventually(t, func() bool {
		var err error
		db, err = database.Connect(dbConfig, logger)
		return err == nil
	}, 30*time.Second, 1*time.Second, "PostgreSQL not ready for connections")

	require.NoError(t, database.RunMigrations(dbConfig.DatabaseURL(), "migrations", logger))

	// Start Kafka container using confluent-local (supports KRaft natively).
	kafkaContainer, err := kafkamodule.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err, "failed to start Kafka container")

	kafkaBrokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err, "failed to get Kafka brokers")

	// Pre-create required topics.
	createTopics(t, kafkaBrokers, events.TopicRoutingEvents, events.TopicPlanningCommands)

	cleanup := func() {
		if err := kafkaContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate Kafka container: %v", err)
		}
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate PostgreSQL container: %v", err)
		}
	}

	return &testInfra{
		DB:           db,
		KafkaBrokers: kafkaBrokers,
		Cleanup:      cleanup,
	}
}

// setupRoutingStack wires the services against stub OSRM and planning servers.
func setupRoutingStack(t *testing.T, db *gorm.DB, brokers []string) *routingStack {
	t.Helper()
	logger, _ := zap.NewDevelopment()

	calls := &atomic.Int64{}
	osrmServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"code":"Ok","routes":[{"geometry":{"type":"LineString",` +
			`"coordinates":[[-3.7038,40.4168],[-2.1,40.0],[-0.3763,39.4699]]},"distance":506000,"duration":16800}]}`))
	}))
	t.Cleanup(osrmServer.Close)

	planningServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/proc/p_manCargaderos":
			_, _ = w.Write([]byte(`[{"codigo":"C01","nombre":"Cargadero Madrid","latitud":"40,4168","longitud":"-3,7038"}]`))
		case "/proc/p_manPlantas":
			_, _ = w.Write([]byte(`[{"codigoPlanta":"P10","nombre":"Planta Valencia","latitud":39.4699,"longitud":-0.3763}]`))
		case "/proc/p_planificaciones":
			_, _ = w.Write([]byte(`[{"pedido":900001,"codigoPlanta":"P10","codigoCargadero":"C01"}]`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(planningServer.Close)

	producer := kafka.NewProducer(brokers, logger)
	publisher := events.NewPublisher(producer, logger)

	cacheRepo := repository.NewGormRouteCacheRepository(db)
	routeSvc := application.NewRouteService(
		cacheRepo,
		osrm.NewClient(osrmServer.URL+"/route/v1/driving/", 5*time.Second, logger),
		publisher,
		logger,
	)
	require.NoError(t, routeSvc.EnsureSchema(context.Background()))

	planningSvc := application.NewPlanningService(
		repository.NewGormPlanningRepository(db),
		upstream.NewClient(planningServer.URL, "", 5*time.Second, logger),
		routeSvc,
		publisher,
		logger,
	)

	groupID := fmt.Sprintf("test-routing-%s", uuid.New().String()[:8])
	consumer := events.NewPlanningCommandConsumer(brokers, groupID, planningSvc, logger)

	return &routingStack{
		Cache:           cacheRepo,
		Routes:          routeSvc,
		Planning:        planningSvc,
		Consumer:        consumer,
		ProviderCalls:   calls,
		CleanupProducer: func() { _ = producer.Close() },
	}
}

// publishTestEvent publishes a CloudEvent to Kafka.
func publishTestEvent(t *testing.T, brokers []string, topic, source, eventType string, data interface{}) {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	producer := kafka.NewProducer(brokers, logger)
	defer func() { _ = producer.Close() }()

	ce, err := kafka.NewCloudEvent(source, eventType, data)
	require.NoError(t, err, "failed to create cloud event")

	err = producer.PublishEvent(context.Background(), topic, ce)
	require.NoError(t, err, "failed to publish event")
}

// waitForRows polls table until it holds want rows.
func waitForRows(t *testing.T, db *gorm.DB, table string, want int64, timeout time.Duration) {
	t.Helper()
	require.Eventually(t, func() bool {
		var n int64
		if err := db.Table(table).Count(&n).Error; err != nil {
			return false
		}
		return n == want
	}, timeout, 200*time.Millisecond, "%s did not reach %d rows", table, want)
}

// consumeOneEvent reads from a Kafka topic until it finds an event of the expected type.
func consumeOneEvent(t *testing.T, brokers []string, topic, expectedType string, timeout time.Duration) kafka.CloudEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	groupID := fmt.Sprintf("test-assert-%s", uuid.New().String()[:8])
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     brokers,
		GroupID:     groupID,
		Topic:       topic,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafkago.FirstOffset,
	})
	defer func() { _ = reader.Close() }()

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				t.Fatalf("timed out waiting for event type %q on topic %q", expectedType, topic)
			}
			continue
		}
		ce, err := kafka.ParseCloudEvent(msg.Value)
		if err != nil {
			continue
		}
		if ce.Type == expectedType {
			return ce
		}
	}
}

// createTopics pre-creates Kafka topics so producers don't fail with "Unknown Topic".
func createTopics(t *testing.T, brokers []string, topics ...string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", brokers[0])
	require.NoError(t, err, "failed to dial Kafka for topic creation")
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err, "failed to get Kafka controller")

	controllerConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, fmt.Sprintf("%d", controller.Port)))
	require.NoError(t, err, "failed to connect to Kafka controller")
	defer controllerConn.Close()

	topicConfigs := make([]kafkago.TopicConfig, len(topics))
	for i, topic := range topics {
		topicConfigs[i] = kafkago.TopicConfig{
			Topic:             topic,
			NumPartitions:     1,
			ReplicationFactor: 1,
		}
	}
	err = controllerConn.CreateTopics(topicConfigs...)
	require.NoError(t, err, "failed to create Kafka topics")

	// Give Kafka a moment to propagate topic metadata.
	time.Sleep(1 * time.Second)
}
