package netentity

import (
	"sort"

	"github.com/automoto/nafsync/shared/messages"
	"github.com/automoto/nafsync/shared/netconfig"
	"github.com/rotisserie/eris"
)

// Template is a named archetype and the custom components every entity
// spawned from it runs. Component indices are unique within a template.
type Template struct {
	id            string
	registrations []ComponentRegistration
}

// NewTemplate validates and builds a template. The id may carry the wire
// marker ("#avatar"); it is stripped.
func NewTemplate(id string, regs ...ComponentRegistration) (*Template, error) {
	id = messages.StripTemplateMarker(id)
	if id == "" {
		return nil, eris.New("template id cannot be empty")
	}

	seen := make(map[int]bool, len(regs))
	for _, reg := range regs {
		if reg.New == nil {
			return nil, eris.Errorf("template %s: component %d has no factory", id, reg.Index)
		}
		if reg.Index < 0 || netconfig.SchemaForKey(indexKey(reg.Index)) != netconfig.SchemaNone {
			return nil, eris.Wrapf(ErrReservedComponentIndex, "template %s index %d", id, reg.Index)
		}
		if seen[reg.Index] {
			return nil, eris.Wrapf(ErrDuplicateComponentIndex, "template %s index %d", id, reg.Index)
		}
		seen[reg.Index] = true
	}

	return &Template{
		id:            id,
		registrations: append([]ComponentRegistration(nil), regs...),
	}, nil
}

// MustTemplate is NewTemplate for static catalogs; it panics on error.
func MustTemplate(id string, regs ...ComponentRegistration) *Template {
	t, err := NewTemplate(id, regs...)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Template) ID() string {
	return t.id
}

// Indices returns the declared custom component indices in registration order.
func (t *Template) Indices() []int {
	out := make([]int, 0, len(t.registrations))
	for _, reg := range t.registrations {
		out = append(out, reg.Index)
	}
	return out
}

func (t *Template) instantiate(obj Object) []boundComponent {
	bound := make([]boundComponent, 0, len(t.registrations))
	for _, reg := range t.registrations {
		bound = append(bound, boundComponent{index: reg.Index, impl: reg.New(obj)})
	}
	return bound
}

// Catalog maps template ids to templates. It is populated at startup and
// read-only while a session runs.
type Catalog struct {
	templates map[string]*Template
}

func NewCatalog(templates ...*Template) (*Catalog, error) {
	c := &Catalog{templates: make(map[string]*Template, len(templates))}
	for _, t := range templates {
		if err := c.Register(t); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Catalog) Register(t *Template) error {
	if t == nil {
		return eris.New("nil template")
	}
	if _, ok := c.templates[t.id]; ok {
		return eris.Wrapf(ErrDuplicateTemplate, "template %s", t.id)
	}
	c.templates[t.id] = t
	return nil
}

// Resolve looks up a template by wire reference or bare id.
func (c *Catalog) Resolve(ref string) (*Template, error) {
	t, ok := c.templates[messages.StripTemplateMarker(ref)]
	if !ok {
		return nil, eris.Wrapf(ErrTemplateNotRegistered, "template %q", ref)
	}
	return t, nil
}

// IDs returns every registered template id, sorted.
func (c *Catalog) IDs() []string {
	ids := make([]string, 0, len(c.templates))
	for id := range c.templates {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
