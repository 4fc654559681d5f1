package services

import (
	"bytes"
	"context"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtRiskMedia/atomic-builder-go/internal/domain/document"
	"github.com/AtRiskMedia/atomic-builder-go/internal/domain/entities/project"
	"github.com/AtRiskMedia/atomic-builder-go/internal/domain/geometry"
	"github.com/AtRiskMedia/atomic-builder-go/internal/infrastructure/caching/stores"
	"github.com/AtRiskMedia/atomic-builder-go/internal/infrastructure/media"
	"github.com/AtRiskMedia/atomic-builder-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/atomic-builder-go/internal/infrastructure/persistence/projectfile"
)

type renderFixture struct {
	store  *document.Store
	cache  *stores.RenderStore
	render *RenderService
}

func newRenderFixture(t *testing.T, w, h int) renderFixture {
	t.Helper()
	store := document.NewStore()
	_, err := store.AddImage(project.Image{ID: 0, Name: "img0", Data: pngURI(t, w, h), Width: w, Height: h})
	require.NoError(t, err)
	cache := stores.NewRenderStore(nil)
	processor := media.NewImageProcessor(media.FormatPNG, 80)
	return renderFixture{
		store:  store,
		cache:  cache,
		render: NewRenderService(store, cache, processor, logging.Discard(), 2),
	}
}

func (f renderFixture) region(t *testing.T, parent *int, box geometry.Box) project.Region {
	t.Helper()
	r, _, err := f.store.CreateRegion(0, nil, parent)
	require.NoError(t, err)
	r.X, r.Y, r.Width, r.Height = box.X, box.Y, box.Width, box.Height
	r, _, err = f.store.UpdateRegion(r)
	require.NoError(t, err)
	return r
}

func waitForJobs(t *testing.T, svc *RenderService) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, svc.Wait(ctx))
}

func TestBitmapLoadsThenHits(t *testing.T) {
	f := newRenderFixture(t, 800, 600)
	r0 := f.region(t, nil, geometry.Box{X: 0.1, Y: 0.1, Width: 0.3, Height: 0.2})
	r1 := f.region(t, project.Ref(r0.ID), geometry.Box{X: 0.5, Y: 0.5, Width: 0.5, Height: 0.5})

	first, err := f.render.Bitmap(r1.ID)
	require.NoError(t, err)
	assert.Equal(t, RenderLoading, first.Status)
	assert.NotEmpty(t, first.JobID)
	assert.True(t, first.Box.ApproxEqual(geometry.Box{X: 200, Y: 120, Width: 120, Height: 60}, 1e-9))

	waitForJobs(t, f.render)

	ready, err := f.render.Bitmap(r1.ID)
	require.NoError(t, err)
	assert.Equal(t, RenderReady, ready.Status)
	require.NotEmpty(t, ready.Data)
	assert.Equal(t, 0, f.render.Pending())

	raw, _, err := media.DecodeDataURI(ready.Data)
	require.NoError(t, err)
	img, err := media.DecodeImage(raw)
	require.NoError(t, err)
	assert.Equal(t, 120, img.Bounds().Dx())
	assert.Equal(t, 60, img.Bounds().Dy())
}

func TestBitmapMissesAfterGeometryChange(t *testing.T) {
	f := newRenderFixture(t, 100, 100)
	r := f.region(t, nil, geometry.Box{X: 0, Y: 0, Width: 0.5, Height: 0.5})

	result, err := f.render.Render(context.Background(), r.ID)
	require.NoError(t, err)
	require.Equal(t, RenderReady, result.Status)
	old := result.Data

	r.Width = 0.25
	_, _, err = f.store.UpdateRegion(r)
	require.NoError(t, err)

	after, err := f.render.Bitmap(r.ID)
	require.NoError(t, err)
	assert.Equal(t, RenderLoading, after.Status, "a stale bitmap is never returned")

	waitForJobs(t, f.render)
	fresh, err := f.render.Bitmap(r.ID)
	require.NoError(t, err)
	assert.Equal(t, RenderReady, fresh.Status)
	assert.NotEqual(t, old, fresh.Data)
}

func TestBitmapMissesWhenAncestorMoves(t *testing.T) {
	f := newRenderFixture(t, 100, 100)
	parent := f.region(t, nil, geometry.Box{X: 0, Y: 0, Width: 0.5, Height: 0.5})
	child := f.region(t, project.Ref(parent.ID), geometry.Box{X: 0, Y: 0, Width: 0.5, Height: 0.5})

	_, err := f.render.Render(context.Background(), child.ID)
	require.NoError(t, err)

	parent.X = 0.5
	_, _, err = f.store.UpdateRegion(parent)
	require.NoError(t, err)

	result, err := f.render.Bitmap(child.ID)
	require.NoError(t, err)
	assert.Equal(t, RenderLoading, result.Status)
	waitForJobs(t, f.render)
}

func TestBitmapReportsFailureOnce(t *testing.T) {
	f := newRenderFixture(t, 100, 100)
	r := f.region(t, nil, geometry.Box{X: 0.5, Y: 0.5, Width: 0, Height: 0})

	_, err := f.render.Bitmap(r.ID)
	require.NoError(t, err)
	waitForJobs(t, f.render)

	failed, err := f.render.Bitmap(r.ID)
	require.NoError(t, err)
	assert.Equal(t, RenderFailed, failed.Status)
	assert.Contains(t, failed.Error, "empty")

	retry, err := f.render.Bitmap(r.ID)
	require.NoError(t, err)
	assert.Equal(t, RenderLoading, retry.Status)
	assert.NotEqual(t, failed.JobID, retry.JobID)
	waitForJobs(t, f.render)
}

func TestBitmapUnknownRegionOrImage(t *testing.T) {
	f := newRenderFixture(t, 10, 10)
	r := f.region(t, nil, geometry.Box{Width: 1, Height: 1})

	_, err := f.render.Bitmap(42)
	assert.ErrorIs(t, err, document.ErrNotFound)

	_, err = f.store.RemoveImage(0)
	require.NoError(t, err)
	_, err = f.render.Render(context.Background(), r.ID)
	assert.ErrorIs(t, err, document.ErrNotFound)
}

func TestRenderRespectsContext(t *testing.T) {
	f := newRenderFixture(t, 10, 10)
	r := f.region(t, nil, geometry.Box{Width: 1, Height: 1})

	// occupy every slot
	f.render.slots <- struct{}{}
	f.render.slots <- struct{}{}
	defer func() {
		<-f.render.slots
		<-f.render.slots
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := f.render.Render(ctx, r.ID)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestForgetDropsCachedCrop(t *testing.T) {
	f := newRenderFixture(t, 10, 10)
	r := f.region(t, nil, geometry.Box{Width: 1, Height: 1})

	_, err := f.render.Render(context.Background(), r.ID)
	require.NoError(t, err)
	require.Len(t, f.render.CacheEntries(), 1)

	f.render.Forget(r.ID)

	assert.Empty(t, f.render.CacheEntries())
	result, err := f.render.Bitmap(r.ID)
	require.NoError(t, err)
	assert.Equal(t, RenderLoading, result.Status)
	waitForJobs(t, f.render)
}

var (
	red   = color.NRGBA{R: 255, A: 255}
	blue  = color.NRGBA{B: 255, A: 255}
	green = color.NRGBA{G: 255, A: 255}
)

func solidURI(t *testing.T, c color.NRGBA) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, imaging.New(100, 100, c)))
	return media.EncodeDataURI(buf.Bytes(), "png")
}

// editor wires a project service and a render service to one store the way
// the container does.
type editor struct {
	store    *document.Store
	projects *ProjectService
	render   *RenderService
	cache    *stores.RenderStore
}

func newEditor() editor {
	store := document.NewStore()
	processor := media.NewImageProcessor(media.FormatPNG, 80)
	cache := stores.NewRenderStore(nil)
	render := NewRenderService(store, cache, processor, logging.Discard(), 2)
	store.Subscribe(render.HandleChange)
	return editor{
		store:    store,
		projects: NewProjectService(store, processor, logging.Discard()),
		render:   render,
		cache:    cache,
	}
}

func (e editor) uploadWithRegion(t *testing.T, c color.NRGBA) project.Region {
	t.Helper()
	img, _, err := e.projects.UploadImage("shot", solidURI(t, c))
	require.NoError(t, err)
	r, _, err := e.projects.CreateRegion(img.ID, nil, nil)
	require.NoError(t, err)
	return r
}

func (e editor) centre(t *testing.T, regionID int) color.NRGBA {
	t.Helper()
	result, err := e.render.Render(context.Background(), regionID)
	require.NoError(t, err)
	require.Equal(t, RenderReady, result.Status, result.Error)
	raw, _, err := media.DecodeDataURI(result.Data)
	require.NoError(t, err)
	img, err := media.DecodeImage(raw)
	require.NoError(t, err)
	b := img.Bounds()
	return color.NRGBAModel.Convert(img.At(b.Min.X+b.Dx()/2, b.Min.Y+b.Dy()/2)).(color.NRGBA)
}

func TestRenderAfterResetCropsTheNewImage(t *testing.T) {
	e := newEditor()
	r := e.uploadWithRegion(t, red)
	assert.Equal(t, red, e.centre(t, r.ID))

	_, err := e.projects.Reset()
	require.NoError(t, err)
	assert.Equal(t, 0, e.cache.Len())

	again := e.uploadWithRegion(t, blue)
	require.Equal(t, r.ID, again.ID)
	require.Equal(t, r.X, again.X)
	assert.Equal(t, blue, e.centre(t, again.ID))
}

func TestRenderAfterImportCropsTheImportedImage(t *testing.T) {
	e := newEditor()
	r := e.uploadWithRegion(t, red)
	assert.Equal(t, red, e.centre(t, r.ID))

	doc := e.store.Snapshot()
	doc.Images[0].Data = solidURI(t, green)
	raw, err := projectfile.Encode(doc)
	require.NoError(t, err)

	_, err = e.projects.Import(raw)
	require.NoError(t, err)
	assert.Equal(t, 0, e.cache.Len())
	assert.Equal(t, green, e.centre(t, r.ID))
}

func TestRenderAfterResaveCropsTheNewPixels(t *testing.T) {
	e := newEditor()
	r := e.uploadWithRegion(t, red)
	assert.Equal(t, red, e.centre(t, r.ID))

	_, _, err := e.projects.ResaveImage(0, solidURI(t, green))
	require.NoError(t, err)
	assert.Equal(t, green, e.centre(t, r.ID))

	img, ok := e.store.View().Image(0)
	require.True(t, ok)
	img.Data = solidURI(t, blue)
	_, err = e.projects.AddImage(img)
	require.NoError(t, err)
	assert.Equal(t, blue, e.centre(t, r.ID))
}

func TestHandleChangeDropsPendingJobs(t *testing.T) {
	e := newEditor()
	r := e.uploadWithRegion(t, red)

	// hold every slot so the job cannot finish before the reset
	e.render.slots <- struct{}{}
	e.render.slots <- struct{}{}
	started, err := e.render.Bitmap(r.ID)
	require.NoError(t, err)
	require.Equal(t, RenderLoading, started.Status)
	require.Equal(t, 1, e.render.Pending())

	_, err = e.projects.Reset()
	require.NoError(t, err)
	assert.Equal(t, 0, e.render.Pending())

	<-e.render.slots
	<-e.render.slots
	waitForJobs(t, e.render)
	assert.Equal(t, 0, e.cache.Len(), "a crop started before the reset is not cached")

	again := e.uploadWithRegion(t, blue)
	assert.Equal(t, blue, e.centre(t, again.ID))
	e.render.HandleChange(document.Change{Revision: 99, Command: "updateRegion"})
	assert.Equal(t, 1, e.cache.Len(), "other commands leave the cache alone")
}
