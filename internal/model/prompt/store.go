package prompt

// Store exposes template retrieval for the prompt composer.
type Store interface {
	Find(name string) (Template, bool)
	Default() Template
	List() []Template
}

// MemoryStore implements Store with an in-memory slice.
type MemoryStore struct {
	items []Template
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied templates.
func NewMemoryStore(items []Template) *MemoryStore {
	return &MemoryStore{items: append([]Template(nil), items...)}
}

// Find looks up a template by context name.
func (s *MemoryStore) Find(name string) (Template, bool) {
	for _, item := range s.items {
		if item.Name == name {
			return item, true
		}
	}
	return Template{}, false
}

// Default returns the fallback template. A store seeded without one still
// yields a usable empty template rather than failing the turn.
func (s *MemoryStore) Default() Template {
	if tpl, ok := s.Find(DefaultName); ok {
		return tpl
	}
	return Template{Name: DefaultName}
}

// List returns the registered templates.
func (s *MemoryStore) List() []Template {
	return append([]Template(nil), s.items...)
}
