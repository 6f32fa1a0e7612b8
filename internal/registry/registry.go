package registry

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Definition describes a permission known to the platform. The registry is
// the configured vocabulary, not an enforcement boundary: the evaluator
// accepts any string as a query, registered or not.
type Definition struct {
	Name         string `json:"name"`
	Title        string `json:"title"`
	GuardName    string `json:"guard_name"`
	CategoryName string `json:"category_name"`
}

// RoleDefinition describes a role name in the configured vocabulary.
type RoleDefinition struct {
	Name  string `json:"name"`
	Title string `json:"title"`
}

type vocabulary struct {
	mu          sync.RWMutex
	permissions map[string]*Definition
	roles       map[string]*RoleDefinition
}

var globalVocabulary = &vocabulary{
	permissions: make(map[string]*Definition),
	roles:       make(map[string]*RoleDefinition),
}

var (
	errNilDefinition = errors.New("registry: nil definition")
	errEmptyName     = errors.New("registry: name is required")
	errDuplicate     = errors.New("registry: already registered")
)

// Register adds a permission definition to the global vocabulary.
func Register(def *Definition) error {
	if def == nil {
		return errNilDefinition
	}

	name := strings.TrimSpace(def.Name)
	if name == "" {
		return errEmptyName
	}

	cp := *def
	cp.Name = name
	cp.GuardName = strings.TrimSpace(cp.GuardName)
	cp.CategoryName = strings.TrimSpace(cp.CategoryName)

	globalVocabulary.mu.Lock()
	defer globalVocabulary.mu.Unlock()

	if _, exists := globalVocabulary.permissions[name]; exists {
		return fmt.Errorf("%w: %s", errDuplicate, name)
	}

	globalVocabulary.permissions[name] = &cp
	return nil
}

// RegisterRole adds a role definition to the global vocabulary.
func RegisterRole(def *RoleDefinition) error {
	if def == nil {
		return errNilDefinition
	}

	name := strings.TrimSpace(def.Name)
	if name == "" {
		return errEmptyName
	}

	cp := *def
	cp.Name = name

	globalVocabulary.mu.Lock()
	defer globalVocabulary.mu.Unlock()

	if _, exists := globalVocabulary.roles[name]; exists {
		return fmt.Errorf("%w: %s", errDuplicate, name)
	}

	globalVocabulary.roles[name] = &cp
	return nil
}

// Get returns a copy of the permission definition when registered.
func Get(name string) (*Definition, bool) {
	globalVocabulary.mu.RLock()
	defer globalVocabulary.mu.RUnlock()

	def, ok := globalVocabulary.permissions[name]
	if !ok {
		return nil, false
	}
	cp := *def
	return &cp, true
}

// GetAll returns a copy of all registered permission definitions keyed by name.
func GetAll() map[string]*Definition {
	globalVocabulary.mu.RLock()
	defer globalVocabulary.mu.RUnlock()

	out := make(map[string]*Definition, len(globalVocabulary.permissions))
	for name, def := range globalVocabulary.permissions {
		cp := *def
		out[name] = &cp
	}
	return out
}

// GetByCategory gathers permission definitions under the specified category.
func GetByCategory(category string) []*Definition {
	globalVocabulary.mu.RLock()
	defer globalVocabulary.mu.RUnlock()

	category = strings.TrimSpace(category)
	var defs []*Definition
	for _, def := range globalVocabulary.permissions {
		if def.CategoryName == category {
			cp := *def
			defs = append(defs, &cp)
		}
	}

	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// Names returns every registered permission name in sorted order.
func Names() []string {
	globalVocabulary.mu.RLock()
	defer globalVocabulary.mu.RUnlock()

	names := make([]string, 0, len(globalVocabulary.permissions))
	for name := range globalVocabulary.permissions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Roles returns every registered role definition in sorted name order.
func Roles() []*RoleDefinition {
	globalVocabulary.mu.RLock()
	defer globalVocabulary.mu.RUnlock()

	defs := make([]*RoleDefinition, 0, len(globalVocabulary.roles))
	for _, def := range globalVocabulary.roles {
		cp := *def
		defs = append(defs, &cp)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// GuardNames returns the distinct guard names across all registered
// permissions in sorted order.
func GuardNames() []string {
	globalVocabulary.mu.RLock()
	defer globalVocabulary.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, def := range globalVocabulary.permissions {
		if def.GuardName != "" {
			seen[def.GuardName] = struct{}{}
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// reset clears vocabulary entries. Intended for testing only.
func reset() {
	globalVocabulary.mu.Lock()
	defer globalVocabulary.mu.Unlock()
	globalVocabulary.permissions = make(map[string]*Definition)
	globalVocabulary.roles = make(map[string]*RoleDefinition)
}

// remove drops a single permission entry. Intended for testing only.
func remove(name string) {
	globalVocabulary.mu.Lock()
	defer globalVocabulary.mu.Unlock()
	delete(globalVocabulary.permissions, name)
}
