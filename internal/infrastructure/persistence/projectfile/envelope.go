// Package projectfile reads and writes the project file envelope used to save
// and load whole documents.
package projectfile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/AtRiskMedia/atomic-builder-go/internal/domain/entities/project"
)

const (
	// FileType marks a file as a builder project.
	FileType = "atomic-builder"
	// Version is written on export. Any non-empty version is accepted on import.
	Version = "0.1"
)

// ErrMalformed is returned when bytes are not a valid project file.
var ErrMalformed = errors.New("malformed project file")

// Envelope is the on-disk wrapper around a document. The render cache is not
// part of the document and is never written.
type Envelope struct {
	Type    string            `json:"type" validate:"required,eq=atomic-builder"`
	Version string            `json:"version" validate:"required"`
	Data    *project.Document `json:"data" validate:"required"`
}

var validate = validator.New()

// legacyRegions picks up files written before regions were called regions.
type legacyRegions struct {
	Data struct {
		Regions   json.RawMessage  `json:"regions"`
		ImageRefs []project.Region `json:"imageRefs"`
	} `json:"data"`
}

// Encode wraps doc in an envelope and marshals it as indented JSON.
func Encode(doc *project.Document) ([]byte, error) {
	data := doc.Clone()
	data.Normalize()
	out, err := json.MarshalIndent(Envelope{Type: FileType, Version: Version, Data: data}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode project file: %w", err)
	}
	return out, nil
}

// Decode parses a project file and returns its document. Unknown fields,
// such as a serialized image cache, are ignored. Regions stored under
// "imageRefs" are read when "regions" is absent. Referential checks are left
// to the store's import.
func Decode(raw []byte) (*project.Document, error) {
	var env Envelope
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after envelope", ErrMalformed)
	}
	if err := validate.Struct(env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var legacy legacyRegions
	if err := json.Unmarshal(raw, &legacy); err != nil {
		return nil, fmt.Errorf("%w: imageRefs: %v", ErrMalformed, err)
	}
	if legacy.Data.Regions == nil && legacy.Data.ImageRefs != nil {
		env.Data.Regions = legacy.Data.ImageRefs
	}
	env.Data.Normalize()
	return env.Data, nil
}
