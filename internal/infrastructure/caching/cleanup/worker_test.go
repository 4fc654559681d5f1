package cleanup

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtRiskMedia/atomic-builder-go/internal/domain/document"
	"github.com/AtRiskMedia/atomic-builder-go/internal/domain/entities/project"
	"github.com/AtRiskMedia/atomic-builder-go/internal/infrastructure/caching/stores"
	"github.com/AtRiskMedia/atomic-builder-go/internal/infrastructure/media"
	"github.com/AtRiskMedia/atomic-builder-go/internal/infrastructure/observability/logging"
)

func TestRunOncePrunesUnreachableEntries(t *testing.T) {
	store := document.NewStore()
	_, err := store.AddImage(project.Image{ID: 0, Width: 100, Height: 100})
	require.NoError(t, err)
	parent, _, err := store.CreateRegion(0, nil, nil)
	require.NoError(t, err)
	child, _, err := store.CreateRegion(0, nil, project.Ref(parent.ID))
	require.NoError(t, err)
	gone, _, err := store.CreateRegion(0, nil, nil)
	require.NoError(t, err)

	cache := stores.NewRenderStore(nil)
	for _, id := range []int{parent.ID, child.ID, gone.ID} {
		abs, err := store.View().AbsoluteBox(id)
		require.NoError(t, err)
		cache.Set(id, stores.RenderSignature{ImageID: 0, Source: media.Digest(""), Box: abs}, "bitmap")
	}

	_, err = store.RemoveRegion(gone.ID)
	require.NoError(t, err)
	parent.X = 0.5
	_, _, err = store.UpdateRegion(parent)
	require.NoError(t, err)

	worker := NewWorker(store, cache, logging.Discard(), &Config{CleanupInterval: time.Minute})
	removed := worker.RunOnce()

	// the parent moved, which also moves the child
	assert.Equal(t, 3, removed)
	assert.Equal(t, 0, cache.Len())
}

func TestRunOnceKeepsCurrentEntries(t *testing.T) {
	store := document.NewStore()
	_, err := store.AddImage(project.Image{ID: 0, Width: 100, Height: 100})
	require.NoError(t, err)
	r, _, err := store.CreateRegion(0, nil, nil)
	require.NoError(t, err)
	abs, err := store.View().AbsoluteBox(r.ID)
	require.NoError(t, err)

	cache := stores.NewRenderStore(nil)
	cache.Set(r.ID, stores.RenderSignature{ImageID: 0, Source: media.Digest(""), Box: abs}, "bitmap")

	worker := NewWorker(store, cache, logging.Discard(), &Config{CleanupInterval: time.Minute, VerboseReporting: true})
	var out bytes.Buffer
	worker.reporter.out = &out

	assert.Equal(t, 0, worker.RunOnce())
	assert.Equal(t, 1, cache.Len())
	assert.Contains(t, out.String(), "Render cache")
}

func TestStartStopsWithContext(t *testing.T) {
	worker := NewWorker(document.NewStore(), stores.NewRenderStore(nil), logging.Discard(), &Config{CleanupInterval: time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		worker.Start(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestRunOncePrunesEntriesOfResavedImages(t *testing.T) {
	store := document.NewStore()
	_, err := store.AddImage(project.Image{ID: 0, Data: "data:image/png;base64,AAAA", Width: 100, Height: 100})
	require.NoError(t, err)
	r, _, err := store.CreateRegion(0, nil, nil)
	require.NoError(t, err)
	abs, err := store.View().AbsoluteBox(r.ID)
	require.NoError(t, err)

	cache := stores.NewRenderStore(nil)
	cache.Set(r.ID, stores.RenderSignature{ImageID: 0, Source: media.Digest("data:image/png;base64,AAAA"), Box: abs}, "bitmap")

	_, err = store.AddImage(project.Image{ID: 0, Data: "data:image/png;base64,BBBB", Width: 100, Height: 100})
	require.NoError(t, err)

	worker := NewWorker(store, cache, logging.Discard(), &Config{CleanupInterval: time.Minute})
	assert.Equal(t, 1, worker.RunOnce())
	assert.Equal(t, 0, cache.Len())
}
