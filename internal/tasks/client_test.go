package tasks

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mikestefanello/backlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	cfg := DefaultConfig()
	cfg.Workers = 1

	client, err := NewClient(dbPath, cfg)
	require.NoError(t, err)
	require.NotNil(t, client)

	// Verify tasks database was created
	tasksDBPath := filepath.Join(tmpDir, "test-tasks.db")
	_, err = os.Stat(tasksDBPath)
	assert.NoError(t, err, "tasks database should be created")

	err = client.Close()
	assert.NoError(t, err)
}

func TestClientStartStop(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	cfg := DefaultConfig()
	cfg.Workers = 1

	client, err := NewClient(dbPath, cfg)
	require.NoError(t, err)
	defer client.Close()

	// Start client in background
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go client.Start(ctx)

	// Give it time to start
	time.Sleep(50 * time.Millisecond)

	// Stop should complete successfully
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()

	success := client.Stop(stopCtx)
	assert.True(t, success, "stop should succeed gracefully")
}

// TestTask is a simple task for testing
type TestTask struct {
	Value string `json:"value"`
}

func (t TestTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "test_task",
		MaxAttempts: 1,
		Backoff:     time.Second,
		Timeout:     5 * time.Second,
	}
}

func TestTaskEnqueue(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	cfg := DefaultConfig()
	cfg.Workers = 1

	client, err := NewClient(dbPath, cfg)
	require.NoError(t, err)
	defer client.Close()

	// Create and register a test queue
	executed := make(chan string, 1)
	queue := backlite.NewQueue(func(ctx context.Context, task TestTask) error {
		executed <- task.Value
		return nil
	})
	client.Register(queue)

	// Start client
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Start(ctx)

	// Enqueue a task
	ids, err := client.Add(TestTask{Value: "hello"}).Save()
	require.NoError(t, err)
	assert.Len(t, ids, 1)

	// Wait for task to be executed
	select {
	case val := <-executed:
		assert.Equal(t, "hello", val)
	case <-time.After(5 * time.Second):
		t.Fatal("task was not executed within timeout")
	}
}

func TestCleanupOrphanTagsTaskConfig(t *testing.T) {
	cfg := CleanupOrphanTagsTask{}.Config()

	assert.Equal(t, "cleanup_orphan_tags", cfg.Name)
	assert.Equal(t, 1, cfg.MaxAttempts)
	assert.Equal(t, time.Minute, cfg.Timeout)
	assert.NotNil(t, cfg.Retention)
}

func TestCleanupAuditEventsTaskConfig(t *testing.T) {
	cfg := CleanupAuditEventsTask{RetentionDays: 30}.Config()

	assert.Equal(t, "cleanup_audit_events", cfg.Name)
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, 2*time.Minute, cfg.Timeout)
}

func TestRecountVariantPointsTaskConfig(t *testing.T) {
	cfg := RecountVariantPointsTask{VariantID: uuid.New()}.Config()

	assert.Equal(t, "recount_variant_points", cfg.Name)
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, time.Minute, cfg.Timeout)
	assert.NotNil(t, cfg.Retention)
}

type stubRecounter struct {
	recounted []uuid.UUID
	total     int
}

func (s *stubRecounter) RecountTotalPoints(variantID uuid.UUID) (int, error) {
	s.recounted = append(s.recounted, variantID)
	return s.total, nil
}

func TestRecountVariantPointsProcessor(t *testing.T) {
	stub := &stubRecounter{total: 90}
	processor := RecountVariantPointsProcessor(stub)

	variantID := uuid.New()
	err := processor(context.Background(), RecountVariantPointsTask{VariantID: variantID})
	require.NoError(t, err)
	require.Len(t, stub.recounted, 1)
	assert.Equal(t, variantID, stub.recounted[0])

	err = processor(context.Background(), RecountVariantPointsTask{})
	assert.Error(t, err)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, time.Minute, cfg.RetryDelay)
	assert.Equal(t, 5*time.Minute, cfg.TaskTimeout)
	assert.Equal(t, 15*time.Minute, cfg.ReleaseAfter)
	assert.Equal(t, time.Hour, cfg.CleanupInterval)
	assert.Equal(t, 24*time.Hour, cfg.RetentionDuration)
}
