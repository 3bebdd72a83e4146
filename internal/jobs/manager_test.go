package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/maltedev/affiliate-product-fetcher/internal/metrics"
	"github.com/maltedev/affiliate-product-fetcher/internal/models"
	"github.com/maltedev/affiliate-product-fetcher/internal/queue"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockRenderer is a mock for video.Renderer
type MockRenderer struct {
	mock.Mock
}

func (m *MockRenderer) Render(ctx context.Context, p *models.SavedProduct) (string, error) {
	args := m.Called(ctx, p)
	return args.String(0), args.Error(1)
}

func product(id string) *models.SavedProduct {
	return &models.SavedProduct{Product: *models.NewProduct(models.StoreAmazon, id)}
}

func counterValue(t *testing.T, m *metrics.Metrics, status string) float64 {
	t.Helper()
	var out dto.Metric
	require.NoError(t, m.VideoJobsTotal.WithLabelValues(status).Write(&out))
	return out.GetCounter().GetValue()
}

func waitForStatus(t *testing.T, mgr *Manager, id string, want Status) *Job {
	t.Helper()
	var job *Job
	require.Eventually(t, func() bool {
		var err error
		job, err = mgr.Get(context.Background(), id)
		return err == nil && job.Status == want
	}, 2*time.Second, 10*time.Millisecond)
	return job
}

func TestManager_SubmitAndProcess(t *testing.T) {
	renderer := new(MockRenderer)
	m := metrics.New()
	q := queue.NewInMemoryQueue()
	mgr := NewManager(NewMemoryStore(), q, renderer, m, nil)

	ok, bad := product("B08N5WRWNW"), product("B012345678")
	renderer.On("Render", mock.Anything, ok).Return("/videos/amazon_B08N5WRWNW.json", nil)
	renderer.On("Render", mock.Anything, bad).Return("", errors.New("no media"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	okJob, err := mgr.Submit(ctx, ok)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, okJob.Status)
	assert.Equal(t, "B08N5WRWNW", okJob.ProductID)
	assert.Len(t, okJob.ID, 36)

	badJob, err := mgr.Submit(ctx, bad)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		mgr.Start(ctx, 2)
		close(done)
	}()

	completed := waitForStatus(t, mgr, okJob.ID, StatusCompleted)
	assert.Equal(t, "/videos/amazon_B08N5WRWNW.json", completed.Result)
	assert.Empty(t, completed.Error)

	failed := waitForStatus(t, mgr, badJob.ID, StatusFailed)
	assert.Equal(t, "no media", failed.Error)
	assert.False(t, failed.UpdatedAt.Before(failed.CreatedAt))

	assert.Equal(t, 1.0, counterValue(t, m, "completed"))
	assert.Equal(t, 1.0, counterValue(t, m, "failed"))

	require.NoError(t, q.Close())
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after queue close")
	}
	renderer.AssertExpectations(t)
}

func TestManager_SubmitValidation(t *testing.T) {
	mgr := NewManager(NewMemoryStore(), queue.NewInMemoryQueue(), new(MockRenderer), nil, nil)

	_, err := mgr.Submit(context.Background(), nil)
	assert.Error(t, err)

	_, err = mgr.Submit(context.Background(), &models.SavedProduct{})
	assert.Error(t, err)
}

func TestManager_SubmitOnClosedQueue(t *testing.T) {
	store := NewMemoryStore()
	q := queue.NewInMemoryQueue()
	require.NoError(t, q.Close())
	mgr := NewManager(store, q, new(MockRenderer), nil, nil)

	_, err := mgr.Submit(context.Background(), product("B08N5WRWNW"))
	assert.ErrorIs(t, err, queue.ErrQueueClosed)

	// the rejected job is still recorded as failed
	require.Len(t, store.jobs, 1)
	for _, job := range store.jobs {
		assert.Equal(t, StatusFailed, job.Status)
	}
}

func TestManager_StartStopsOnCancel(t *testing.T) {
	mgr := NewManager(NewMemoryStore(), queue.NewInMemoryQueue(), new(MockRenderer), nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		mgr.Start(ctx, 0)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
}

func TestMemoryStore_GetMissing(t *testing.T) {
	_, err := NewMemoryStore().Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrJobNotFound)
}
