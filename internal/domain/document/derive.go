package document

import (
	"github.com/AtRiskMedia/atomic-builder-go/internal/domain/entities/project"
)

// Derive builds the component catalogue from region names.
//
// Regions are visited in stored order and the first region carrying a name
// creates the component for it, so ids follow first occurrence. Names match
// exactly. A new component copies category and props from the component of
// the same name in previous, which is how hand-edited props survive a
// rebuild. Components in previous that no region names any more are dropped.
//
// The second result holds the component id for each region, index-aligned
// with regions; unnamed regions get nil.
func Derive(regions []project.Region, previous []project.Component) ([]project.Component, []*int) {
	prior := make(map[string]project.Component, len(previous))
	for _, c := range previous {
		if _, exists := prior[c.Name]; !exists {
			prior[c.Name] = c
		}
	}

	components := make([]project.Component, 0)
	byName := make(map[string]int)
	assigned := make([]*int, len(regions))

	for i, r := range regions {
		name := r.Name()
		if name == "" {
			continue
		}
		id, exists := byName[name]
		if !exists {
			id = len(components)
			c := project.Component{ID: id, Name: name, Props: project.Props{}}
			if old, ok := prior[name]; ok {
				seeded := old.Clone()
				c.Category = seeded.Category
				c.Props = seeded.Props
			}
			components = append(components, c)
			byName[name] = id
		}
		assigned[i] = project.Ref(id)
	}
	return components, assigned
}
