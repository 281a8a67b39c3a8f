package tables

import (
	"fmt"
	"sort"
	"sync"
)

var (
	registry   = make(map[string]Table)
	registryMu sync.RWMutex
)

// Register adds a table definition to the registry.
// Panics if a table with the same name is already registered.
func Register(t Table) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[t.Name]; exists {
		panic(fmt.Sprintf("table already registered: %s", t.Name))
	}
	registry[t.Name] = t
}

// Get returns a table definition by name.
// Returns false if not found.
func Get(name string) (Table, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	t, ok := registry[name]
	return t, ok
}

// Lookup is Get returning ErrUnknownTable for unregistered names.
func Lookup(name string) (Table, error) {
	t, ok := Get(name)
	if !ok {
		return Table{}, fmt.Errorf("%w: %q", ErrUnknownTable, name)
	}
	return t, nil
}

// All returns all registered table definitions sorted by name.
func All() []Table {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]Table, 0, len(registry))
	for _, t := range registry {
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result
}

// Names returns the registered table names in sorted order.
func Names() []string {
	all := All()
	names := make([]string, len(all))
	for i, t := range all {
		names[i] = t.Name
	}
	return names
}
