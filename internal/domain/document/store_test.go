package document

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtRiskMedia/atomic-builder-go/internal/domain/entities/project"
	"github.com/AtRiskMedia/atomic-builder-go/internal/domain/geometry"
)

func newStoreWithImage(t *testing.T, width, height int) *Store {
	t.Helper()
	s := NewStore()
	_, err := s.AddImage(project.Image{ID: 0, Name: "img0", Data: "data:image/png;base64,", Width: width, Height: height})
	require.NoError(t, err)
	return s
}

func setBox(t *testing.T, s *Store, id int, box geometry.Box) project.Region {
	t.Helper()
	r, ok := s.View().Region(id)
	require.True(t, ok)
	r.X, r.Y, r.Width, r.Height = box.X, box.Y, box.Width, box.Height
	out, _, err := s.UpdateRegion(r)
	require.NoError(t, err)
	return out
}

func rename(t *testing.T, s *Store, id int, name string) {
	t.Helper()
	r, ok := s.View().Region(id)
	require.True(t, ok)
	if name == "" {
		r.ComponentName = nil
	} else {
		r.ComponentName = project.Ref(name)
	}
	_, _, err := s.UpdateRegion(r)
	require.NoError(t, err)
}

func TestCreateRegionAssignsMonotonicIDs(t *testing.T) {
	s := newStoreWithImage(t, 100, 100)

	for want := 0; want < 5; want++ {
		r, _, err := s.CreateRegion(0, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, want, r.ID)
	}

	require.NoError(t, must(s.RemoveRegion(1)))
	r, _, err := s.CreateRegion(0, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 5, r.ID, "next id is max+1, not the count")

	require.NoError(t, must(s.RemoveRegion(5)))
	require.NoError(t, must(s.RemoveRegion(4)))
	r, _, err = s.CreateRegion(0, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, r.ID)
}

func TestCreateRegionDefaults(t *testing.T) {
	s := newStoreWithImage(t, 100, 100)

	r, change, err := s.CreateRegion(0, project.Ref(3), nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultRegionBox, regionBox(r))
	assert.Nil(t, r.ComponentID)
	assert.Nil(t, r.ComponentName)
	assert.Nil(t, r.ParentRegionID)
	assert.Equal(t, 3, *r.ParentComponentID)
	assert.Equal(t, "createRegion", change.Command)
	assert.Equal(t, uint64(2), change.Revision)
}

func TestCreateRegionRejectsBadReferences(t *testing.T) {
	s := newStoreWithImage(t, 100, 100)
	_, err := s.AddImage(project.Image{ID: 1, Name: "img1", Width: 10, Height: 10})
	require.NoError(t, err)
	onOther, _, err := s.CreateRegion(1, nil, nil)
	require.NoError(t, err)
	before := s.Revision()

	_, _, err = s.CreateRegion(42, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidReference)

	_, _, err = s.CreateRegion(0, nil, project.Ref(99))
	assert.ErrorIs(t, err, ErrInvalidReference)

	_, _, err = s.CreateRegion(0, nil, project.Ref(onOther.ID))
	assert.ErrorIs(t, err, ErrInvalidReference)

	assert.Equal(t, before, s.Revision())
	assert.Len(t, s.View().Regions(), 1)
}

func TestUpdateRegionKeepsDerivedComponentID(t *testing.T) {
	s := newStoreWithImage(t, 100, 100)
	r, _, err := s.CreateRegion(0, nil, nil)
	require.NoError(t, err)
	rename(t, s, r.ID, "Button")
	require.NoError(t, must(s.BuildComponents()))

	r, _ = s.View().Region(r.ID)
	require.NotNil(t, r.ComponentID)
	r.ComponentID = project.Ref(77)
	r.Width = 0.5
	updated, _, err := s.UpdateRegion(r)
	require.NoError(t, err)

	assert.Equal(t, 0, *updated.ComponentID)
	assert.Equal(t, 0.5, updated.Width)
}

func TestUpdateRegionValidation(t *testing.T) {
	s := newStoreWithImage(t, 100, 100)
	_, err := s.AddImage(project.Image{ID: 1, Width: 10, Height: 10})
	require.NoError(t, err)
	parent, _, err := s.CreateRegion(0, nil, nil)
	require.NoError(t, err)
	child, _, err := s.CreateRegion(0, nil, project.Ref(parent.ID))
	require.NoError(t, err)

	tests := []struct {
		name   string
		modify func(r project.Region) project.Region
		target int
		want   error
	}{
		{"missing region", func(r project.Region) project.Region { r.ID = 50; return r }, child.ID, ErrNotFound},
		{"self parent", func(r project.Region) project.Region { r.ParentRegionID = project.Ref(r.ID); return r }, child.ID, ErrCycle},
		{"descendant parent", func(r project.Region) project.Region { r.ParentRegionID = project.Ref(child.ID); return r }, parent.ID, ErrCycle},
		{"missing parent", func(r project.Region) project.Region { r.ParentRegionID = project.Ref(99); return r }, child.ID, ErrInvalidReference},
		{"missing image", func(r project.Region) project.Region { r.ImageID = 9; return r }, parent.ID, ErrInvalidReference},
		{"move parent with children", func(r project.Region) project.Region { r.ImageID = 1; return r }, parent.ID, ErrInvalidReference},
		{"move away from parent image", func(r project.Region) project.Region { r.ImageID = 1; return r }, child.ID, ErrInvalidReference},
		{"nan geometry", func(r project.Region) project.Region { r.X = math.NaN(); return r }, child.ID, ErrInvalidValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := s.Snapshot()
			r, ok := s.View().Region(tt.target)
			require.True(t, ok)

			_, _, err := s.UpdateRegion(tt.modify(r))

			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, before, s.Snapshot())
		})
	}
}

func TestRemoveRegionLeavesOrphans(t *testing.T) {
	s := newStoreWithImage(t, 100, 100)
	parent, _, err := s.CreateRegion(0, nil, nil)
	require.NoError(t, err)
	child, _, err := s.CreateRegion(0, nil, project.Ref(parent.ID))
	require.NoError(t, err)
	setBox(t, s, child.ID, geometry.Box{X: 0.5, Y: 0.5, Width: 0.5, Height: 0.5})

	require.NoError(t, must(s.RemoveRegion(parent.ID)))

	orphan, ok := s.View().Region(child.ID)
	require.True(t, ok)
	assert.Equal(t, parent.ID, *orphan.ParentRegionID)

	roots := s.View().RegionsOf(0, nil)
	require.Len(t, roots, 1)
	assert.Equal(t, child.ID, roots[0].ID)

	abs, err := s.View().AbsoluteBox(child.ID)
	require.NoError(t, err)
	assert.Equal(t, geometry.Box{X: 0.5, Y: 0.5, Width: 0.5, Height: 0.5}, abs)

	orphan.Width = 0.25
	_, _, err = s.UpdateRegion(orphan)
	assert.NoError(t, err, "an unchanged dangling parent is tolerated")

	_, err = s.RemoveRegion(parent.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRemoveImageLeavesRegions(t *testing.T) {
	s := newStoreWithImage(t, 100, 100)
	r, _, err := s.CreateRegion(0, nil, nil)
	require.NoError(t, err)

	require.NoError(t, must(s.RemoveImage(0)))

	_, ok := s.View().Region(r.ID)
	assert.True(t, ok)
	_, _, err = s.View().PixelBox(r.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.RemoveImage(0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAddImageReplacesByID(t *testing.T) {
	s := newStoreWithImage(t, 100, 100)
	_, err := s.AddImage(project.Image{ID: 1, Name: "second"})
	require.NoError(t, err)

	_, err = s.AddImage(project.Image{ID: 0, Name: "cropped", Width: 50, Height: 40})
	require.NoError(t, err)

	images := s.View().Images()
	require.Len(t, images, 2)
	assert.Equal(t, "second", images[0].Name)
	assert.Equal(t, "cropped", images[1].Name)
	assert.Equal(t, 2, s.Snapshot().NextImageID())

	_, err = s.AddImage(project.Image{ID: 2, Width: -1})
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestColorsAreASet(t *testing.T) {
	s := NewStore()

	require.NoError(t, must(s.AddColor(project.Color{Hex: "#ff0000"})))
	require.NoError(t, must(s.AddColor(project.Color{Hex: "#00ff00"})))
	require.NoError(t, must(s.AddColor(project.Color{Hex: "#ff0000"})))
	assert.Equal(t, []project.Color{{Hex: "#ff0000"}, {Hex: "#00ff00"}}, s.View().Colors())

	require.NoError(t, must(s.RemoveColor(project.Color{Hex: "#ff0000"})))
	require.NoError(t, must(s.RemoveColor(project.Color{Hex: "#123456"})))
	assert.Equal(t, []project.Color{{Hex: "#00ff00"}}, s.View().Colors())

	_, err := s.AddColor(project.Color{})
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestUpdateComponent(t *testing.T) {
	s := newStoreWithImage(t, 100, 100)
	for _, name := range []string{"Button", "Card"} {
		r, _, err := s.CreateRegion(0, nil, nil)
		require.NoError(t, err)
		rename(t, s, r.ID, name)
	}
	require.NoError(t, must(s.BuildComponents()))

	c, ok := s.View().Component(0)
	require.True(t, ok)
	c.Category = project.Ref("atoms")
	c.Props = project.Props{"label": {Type: project.PropString}}
	require.NoError(t, must(s.UpdateComponent(c)))

	got, _ := s.View().Component(0)
	assert.Equal(t, "atoms", *got.Category)
	assert.Equal(t, project.PropString, got.Props["label"].Type)

	c.Name = "Card"
	_, err := s.UpdateComponent(c)
	assert.ErrorIs(t, err, ErrDuplicateName)

	_, err = s.UpdateComponent(project.Component{ID: 9, Name: "Ghost"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestImportProjectIsAtomic(t *testing.T) {
	s := newStoreWithImage(t, 100, 100)
	before := s.Snapshot()

	bad := []*project.Document{
		{Images: []project.Image{{ID: 1}, {ID: 1}}},
		{Regions: []project.Region{{ID: 0}, {ID: 0}}},
		{
			Images: []project.Image{{ID: 0}, {ID: 1}},
			Regions: []project.Region{
				{ID: 0, ImageID: 0},
				{ID: 1, ImageID: 1, ParentRegionID: project.Ref(0)},
			},
		},
		{Regions: []project.Region{
			{ID: 0, ParentRegionID: project.Ref(1)},
			{ID: 1, ParentRegionID: project.Ref(0)},
		}},
		{Components: []project.Component{{ID: 0, Name: "A"}, {ID: 1, Name: "A"}}},
		{Colors: []project.Color{{Hex: "#fff"}, {Hex: "#fff"}}},
	}
	for i, doc := range bad {
		_, err := s.ImportProject(doc)
		assert.Error(t, err, "document %d", i)
	}
	assert.Equal(t, before, s.Snapshot())

	good := &project.Document{
		Name:    "imported",
		Images:  []project.Image{{ID: 3, Name: "shot", Width: 10, Height: 10}},
		Regions: []project.Region{{ID: 7, ImageID: 3, ParentRegionID: project.Ref(2), Width: 1, Height: 1}},
	}
	require.NoError(t, must(s.ImportProject(good)))
	got := s.Snapshot()
	assert.Equal(t, "imported", got.Name)
	assert.Equal(t, []project.Component{}, got.Components)
	assert.Equal(t, []project.Color{}, got.Colors)
	assert.Equal(t, 8, got.NextRegionID())

	good.Name = "changed after import"
	assert.Equal(t, "imported", s.View().Name())
}

func TestResetProject(t *testing.T) {
	s := newStoreWithImage(t, 100, 100)
	_, _, err := s.CreateRegion(0, nil, nil)
	require.NoError(t, err)

	require.NoError(t, must(s.ResetProject()))

	assert.Equal(t, project.NewDocument(), s.Snapshot())
	assert.Equal(t, 0, s.Snapshot().NextImageID())
}

func TestObserversSeeCommittedChanges(t *testing.T) {
	s := NewStore()
	var changes []Change
	s.Subscribe(func(c Change) {
		changes = append(changes, c)
		assert.Equal(t, c.Revision, s.Revision())
	})

	require.NoError(t, must(s.AddColor(project.Color{Hex: "#000"})))
	_, err := s.RemoveImage(5)
	require.Error(t, err)
	require.NoError(t, must(s.BuildComponents()))

	assert.Equal(t, []Change{{Revision: 1, Command: "addColor"}, {Revision: 2, Command: "buildComponents"}}, changes)
}

func TestViewIsAStableSnapshot(t *testing.T) {
	s := newStoreWithImage(t, 100, 100)
	view := s.View()

	_, _, err := s.CreateRegion(0, nil, nil)
	require.NoError(t, err)

	assert.Empty(t, view.Regions())
	assert.Len(t, s.View().Regions(), 1)

	regions := s.View().Regions()
	regions[0].X = 0.9
	r, _ := s.View().Region(regions[0].ID)
	assert.Equal(t, DefaultRegionBox.X, r.X)
}

func TestUpdateSurvivesPanickingMutation(t *testing.T) {
	s := newStoreWithImage(t, 100, 100)
	before := s.Revision()

	assert.Panics(t, func() {
		_, _ = s.Update("explode", func(tx *Tx) error {
			_, err := tx.CreateRegion(0, nil, nil)
			require.NoError(t, err)
			panic("boom")
		})
	})

	assert.Equal(t, before, s.Revision())
	assert.Empty(t, s.View().Regions())

	done := make(chan error, 1)
	go func() {
		_, _, err := s.CreateRegion(0, nil, nil)
		done <- err
	}()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("store is still locked after a panicking mutation")
	}
	assert.Len(t, s.View().Regions(), 1)
}

func must(_ Change, err error) error {
	return err
}
