package project

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// PropType names the value type of a component prop.
type PropType string

const (
	PropNumber      PropType = "number"
	PropString      PropType = "string"
	PropBoolean     PropType = "boolean"
	PropChildren    PropType = "children"
	PropComponentID PropType = "componentId"
)

// Known reports whether t is one of the built-in prop types. Other type
// tokens are kept as written.
func (t PropType) Known() bool {
	switch t {
	case PropNumber, PropString, PropBoolean, PropChildren, PropComponentID:
		return true
	}
	return false
}

// Prop describes a single component prop.
type Prop struct {
	Type       PropType `json:"type"`
	IsOptional bool     `json:"isOptional"`
}

// Props maps prop names to their description.
type Props map[string]Prop

// Clone returns a copy of the map.
func (p Props) Clone() Props {
	if p == nil {
		return Props{}
	}
	out := make(Props, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

var propLine = regexp.MustCompile(`(\w+)(\??): *([\w\[\]<>]+)[; ]*$`)

// ParseProps reads the props text form, one `name?: type;` per line.
// Lines that do not match are ignored; a later line wins over an earlier one
// with the same name.
func ParseProps(text string) Props {
	props := Props{}
	for _, line := range strings.Split(text, "\n") {
		m := propLine.FindStringSubmatch(strings.TrimRight(line, "\r"))
		if m == nil {
			continue
		}
		props[m[1]] = Prop{Type: PropType(m[3]), IsOptional: m[2] == "?"}
	}
	return props
}

// FormatProps renders props in the text form accepted by ParseProps, sorted
// by name.
func FormatProps(props Props) string {
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		prop := props[name]
		optional := ""
		if prop.IsOptional {
			optional = "?"
		}
		fmt.Fprintf(&b, "%s%s: %s;\n", name, optional, prop.Type)
	}
	return b.String()
}
