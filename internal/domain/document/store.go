package document

import (
	"fmt"
	"sync"

	"github.com/AtRiskMedia/atomic-builder-go/internal/domain/entities/project"
)

// Change describes a committed mutation.
type Change struct {
	Revision uint64 `json:"revision"`
	Command  string `json:"command"`
}

// Commands that replace the whole document.
const (
	CommandImportProject = "importProject"
	CommandResetProject  = "resetProject"
)

// Observer is notified after every committed mutation, outside the store lock.
type Observer func(Change)

// Store owns the project document. Mutations run against a private copy and
// are swapped in only when every invariant holds, so readers only ever see
// committed documents. A committed document is never modified in place.
type Store struct {
	mu        sync.RWMutex
	doc       *project.Document
	revision  uint64
	observers []Observer
}

// NewStore creates a store holding an empty document.
func NewStore() *Store {
	return &Store{doc: project.NewDocument()}
}

// Subscribe registers an observer for committed changes.
func (s *Store) Subscribe(fn Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// Revision returns the number of mutations committed so far.
func (s *Store) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

// View returns a read model over the current committed document.
func (s *Store) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return View{doc: s.doc, revision: s.revision}
}

// Snapshot returns a deep copy of the committed document.
func (s *Store) Snapshot() *project.Document {
	return s.View().Document()
}

// Update runs fn against a copy of the document and commits the copy if fn
// succeeds and the result passes validation. On any error, or if fn panics,
// the committed document is left untouched.
func (s *Store) Update(command string, fn func(tx *Tx) error) (Change, error) {
	change, observers, err := s.commit(command, fn)
	if err != nil {
		return Change{}, err
	}
	for _, observe := range observers {
		observe(change)
	}
	return change, nil
}

func (s *Store) commit(command string, fn func(tx *Tx) error) (Change, []Observer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &Tx{doc: s.doc.Clone()}
	if err := fn(tx); err != nil {
		return Change{}, nil, fmt.Errorf("%s: %w", command, err)
	}
	if err := validateDocument(tx.doc); err != nil {
		return Change{}, nil, fmt.Errorf("%s: %w", command, err)
	}
	s.doc = tx.doc
	s.revision++

	observers := make([]Observer, len(s.observers))
	copy(observers, s.observers)
	return Change{Revision: s.revision, Command: command}, observers, nil
}

// AddImage inserts img, replacing any image with the same id.
func (s *Store) AddImage(img project.Image) (Change, error) {
	return s.Update("addImage", func(tx *Tx) error {
		return tx.AddImage(img)
	})
}

// RemoveImage deletes an image. Regions on it are left in place.
func (s *Store) RemoveImage(imageID int) (Change, error) {
	return s.Update("removeImage", func(tx *Tx) error {
		return tx.RemoveImage(imageID)
	})
}

// CreateRegion adds a placeholder region on an image or inside a region.
func (s *Store) CreateRegion(imageID int, parentComponentID, parentRegionID *int) (project.Region, Change, error) {
	var created project.Region
	change, err := s.Update("createRegion", func(tx *Tx) error {
		r, err := tx.CreateRegion(imageID, parentComponentID, parentRegionID)
		created = r
		return err
	})
	return created, change, err
}

// UpdateRegion replaces a region by id.
func (s *Store) UpdateRegion(r project.Region) (project.Region, Change, error) {
	var updated project.Region
	change, err := s.Update("updateRegion", func(tx *Tx) error {
		out, err := tx.UpdateRegion(r)
		updated = out
		return err
	})
	return updated, change, err
}

// RemoveRegion deletes a region by id. Its children are left in place.
func (s *Store) RemoveRegion(regionID int) (Change, error) {
	return s.Update("removeRegion", func(tx *Tx) error {
		return tx.RemoveRegion(regionID)
	})
}

// UpdateComponent replaces a component by id.
func (s *Store) UpdateComponent(c project.Component) (Change, error) {
	return s.Update("updateComponent", func(tx *Tx) error {
		return tx.UpdateComponent(c)
	})
}

// AddColor adds a colour unless one with the same hex exists.
func (s *Store) AddColor(c project.Color) (Change, error) {
	return s.Update("addColor", func(tx *Tx) error {
		return tx.AddColor(c)
	})
}

// RemoveColor removes the colour with the same hex, if any.
func (s *Store) RemoveColor(c project.Color) (Change, error) {
	return s.Update("removeColor", func(tx *Tx) error {
		tx.RemoveColor(c)
		return nil
	})
}

// BuildComponents rebuilds the component catalogue from region names.
func (s *Store) BuildComponents() (Change, error) {
	return s.Update("buildComponents", func(tx *Tx) error {
		tx.BuildComponents()
		return nil
	})
}

// ImportProject replaces the whole document after validating it.
func (s *Store) ImportProject(doc *project.Document) (Change, error) {
	return s.Update(CommandImportProject, func(tx *Tx) error {
		tx.Replace(doc)
		return nil
	})
}

// ResetProject replaces the document with an empty one.
func (s *Store) ResetProject() (Change, error) {
	return s.Update(CommandResetProject, func(tx *Tx) error {
		tx.Replace(project.NewDocument())
		return nil
	})
}
