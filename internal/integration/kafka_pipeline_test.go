//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/couchcryptid/shelter-data-etl/internal/adapter/kafka"
	"github.com/couchcryptid/shelter-data-etl/internal/adapter/localfile"
	"github.com/couchcryptid/shelter-data-etl/internal/domain"
	"github.com/couchcryptid/shelter-data-etl/internal/observability"
	"github.com/couchcryptid/shelter-data-etl/internal/pipeline"
	"github.com/couchcryptid/shelter-data-etl/internal/storage/sqlite"
)

const testTopic = "test-shelter-snapshots"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka runs a single-node KRaft broker and returns its address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	kc, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("shelter-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = kc.Terminate(context.Background()) })

	brokers, err := kc.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

// createTopic creates a single-partition topic through the cluster controller.
func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	ctrl, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrl.Close()

	require.NoError(t, ctrl.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// writeLocalData writes a dog_info.json export in the local file schema.
func writeLocalData(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	records := []map[string]any{
		{"desertion_no": "448001", "shelter_name": "강남동물보호센터", "animal_name": "초코", "species": "[개] 믹스견",
			"notice_date": "2024-06-01", "process_state": "보호중", "care_addr": "서울특별시 강남구 역삼로 1"},
		{"desertion_no": "448002", "shelter_name": "강남동물보호센터", "animal_name": "보리", "species": "[개] 믹스견",
			"notice_date": "2024-06-10", "process_state": "종료(입양)", "care_addr": "서울특별시 강남구 역삼로 1"},
		{"desertion_no": "448003", "shelter_name": "해운대보호소", "animal_name": "정보 없음", "species": "[개] 진돗개",
			"notice_date": "2024-06-12", "process_state": "보호중", "care_addr": "부산광역시 해운대구 좌동"},
	}
	data, err := json.Marshal(records)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dog_info.json"), data, 0o600))
	return dir
}

// TestPublisherRoundTrip verifies the publisher's keys, headers, and payload
// against a real broker.
func TestPublisherRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testTopic)

	pub := kafka.NewPublisher([]string{broker}, testTopic, discardLogger())
	t.Cleanup(func() { _ = pub.Close() })

	generated := time.Date(2024, 6, 15, 3, 0, 0, 0, time.UTC)
	shelters := []domain.ShelterSummary{
		{Name: "강남동물보호센터", Address: "서울특별시 강남구", Region: "서울특별시", Count: 2},
		{Name: "해운대보호소", Address: "부산광역시 해운대구", Region: "부산광역시", Count: 1},
	}
	require.NoError(t, pub.Publish(ctx, "run-42", generated, shelters))

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	got := readShelters(ctx, t, consumer, len(shelters))
	for _, msg := range got {
		assert.Equal(t, "run-42", msg.Headers["run_id"])
		assert.Equal(t, "2024-06-15T03:00:00Z", msg.Headers["generated_at"])
		assert.Equal(t, msg.Key, msg.Shelter.Name)
	}
	assert.Equal(t, 2, got["강남동물보호센터"].Shelter.Count)
	assert.Equal(t, "부산광역시", got["해운대보호소"].Shelter.Region)
}

// TestRunnerEndToEnd wires local files, SQLite, and Kafka through one run.
func TestRunnerEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testTopic)

	store, err := sqlite.New(filepath.Join(t.TempDir(), "shelters.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate(ctx))

	pub := kafka.NewPublisher([]string{broker}, testTopic, discardLogger())
	t.Cleanup(func() { _ = pub.Close() })

	source := localfile.NewSource(writeLocalData(t), nil, discardLogger())
	merger := domain.NewMerger(nil, discardLogger(), domain.MergeOptions{})
	runner := pipeline.New([]pipeline.AnimalSource{source}, nil, merger, store,
		discardLogger(), observability.NewMetricsForTesting(), pipeline.WithPublisher(pub))

	report, err := runner.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Animals)
	assert.Equal(t, 2, report.Shelters)
	assert.NoError(t, runner.CheckReadiness(ctx))

	stored, err := store.Shelters(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 2)

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testTopic,
		GroupID:     fmt.Sprintf("test-e2e-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	got := readShelters(ctx, t, consumer, 2)
	gangnam := got["강남동물보호센터"]
	assert.Equal(t, report.ID, gangnam.Headers["run_id"])
	assert.Equal(t, 2, gangnam.Shelter.Count)
	assert.Equal(t, 1, gangnam.Shelter.Adopted)
	assert.Equal(t, "서울특별시", gangnam.Shelter.Region)
	assert.Nil(t, gangnam.Shelter.Geo, "no registry or geocoder, coordinates stay unresolved")
}

type shelterMessage struct {
	Key     string
	Headers map[string]string
	Shelter domain.ShelterSummary
}

// readShelters reads n messages and indexes them by key.
func readShelters(ctx context.Context, t *testing.T, consumer *kafkago.Reader, n int) map[string]shelterMessage {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	out := make(map[string]shelterMessage, n)
	for len(out) < n {
		msg, err := consumer.ReadMessage(readCtx)
		require.NoError(t, err, "read from snapshot topic")

		headers := make(map[string]string, len(msg.Headers))
		for _, h := range msg.Headers {
			headers[h.Key] = string(h.Value)
		}
		var s domain.ShelterSummary
		require.NoError(t, json.Unmarshal(msg.Value, &s), "unmarshal snapshot message")
		out[string(msg.Key)] = shelterMessage{Key: string(msg.Key), Headers: headers, Shelter: s}
	}
	return out
}
