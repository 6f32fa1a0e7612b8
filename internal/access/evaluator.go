// Package access evaluates permission, role, and guard queries against an
// immutable snapshot of a user's grants. Lookups are memoized per evaluator
// instance; a new snapshot requires a new evaluator.
package access

import (
	"errors"
	"fmt"
	"sync"
)

// ErrNotAuthenticated is raised internally when a combined check runs against
// a nil snapshot. Evaluate converts it into Result.Error rather than
// returning it to the caller.
var ErrNotAuthenticated = errors.New("access: not authenticated")

// Evaluator answers access-control queries for a single user snapshot.
// Membership results are cached on first lookup and never invalidated; the
// calling layer constructs a fresh evaluator whenever the snapshot changes.
// The zero value is not usable; use NewEvaluator.
type Evaluator struct {
	snapshot *Snapshot

	mu         sync.Mutex
	permCache  map[string]bool
	roleCache  map[string]bool
	guardCache map[string]bool
}

// NewEvaluator constructs an evaluator over the supplied snapshot.
// A nil snapshot is valid and represents an unauthenticated caller: every
// query returns false and Evaluate reports an authentication error.
func NewEvaluator(snapshot *Snapshot) *Evaluator {
	return &Evaluator{
		snapshot:   snapshot,
		permCache:  make(map[string]bool),
		roleCache:  make(map[string]bool),
		guardCache: make(map[string]bool),
	}
}

// IsAuthenticated reports whether the evaluator holds a user snapshot.
func (e *Evaluator) IsAuthenticated() bool {
	return e != nil && e.snapshot != nil
}

// HasPermission reports whether the snapshot contains a permission with the
// exact (case-sensitive) name.
func (e *Evaluator) HasPermission(name string) bool {
	return e.lookup(name, &e.permCache, func(s *Snapshot) bool {
		for _, perm := range s.Permissions {
			if perm.Name == name {
				return true
			}
		}
		return false
	})
}

// HasGuard reports whether any permission in the snapshot carries the exact
// guard name.
func (e *Evaluator) HasGuard(guardName string) bool {
	return e.lookup(guardName, &e.guardCache, func(s *Snapshot) bool {
		for _, perm := range s.Permissions {
			if perm.GuardName == guardName {
				return true
			}
		}
		return false
	})
}

// HasRole reports whether the snapshot contains a role with the exact name.
func (e *Evaluator) HasRole(name string) bool {
	return e.lookup(name, &e.roleCache, func(s *Snapshot) bool {
		for _, role := range s.Roles {
			if role.Name == name {
				return true
			}
		}
		return false
	})
}

// HasAnyPermission reports whether at least one of the names is granted.
// An empty list yields false.
func (e *Evaluator) HasAnyPermission(names []string) bool {
	return anyOf(names, e.HasPermission)
}

// HasAllPermissions reports whether every name is granted.
// An empty list yields true: no requirement means satisfied.
func (e *Evaluator) HasAllPermissions(names []string) bool {
	return allOf(names, e.HasPermission)
}

// HasAnyRole reports whether at least one of the role names is held.
func (e *Evaluator) HasAnyRole(names []string) bool {
	return anyOf(names, e.HasRole)
}

// HasAllRoles reports whether every role name is held.
func (e *Evaluator) HasAllRoles(names []string) bool {
	return allOf(names, e.HasRole)
}

// HasAnyGuard reports whether at least one guard name is present.
func (e *Evaluator) HasAnyGuard(names []string) bool {
	return anyOf(names, e.HasGuard)
}

// HasAllGuards reports whether every guard name is present.
func (e *Evaluator) HasAllGuards(names []string) bool {
	return allOf(names, e.HasGuard)
}

// Permissions returns a copy of the snapshot's permission list.
func (e *Evaluator) Permissions() []Permission {
	if !e.IsAuthenticated() {
		return nil
	}
	return append([]Permission(nil), e.snapshot.Permissions...)
}

// Roles returns a copy of the snapshot's role list.
func (e *Evaluator) Roles() []Role {
	if !e.IsAuthenticated() {
		return nil
	}
	return append([]Role(nil), e.snapshot.Roles...)
}

// PermissionNames returns the names of all granted permissions in snapshot order.
func (e *Evaluator) PermissionNames() []string {
	if !e.IsAuthenticated() {
		return []string{}
	}
	names := make([]string, 0, len(e.snapshot.Permissions))
	for _, perm := range e.snapshot.Permissions {
		names = append(names, perm.Name)
	}
	return names
}

// RoleNames returns the names of all held roles in snapshot order.
func (e *Evaluator) RoleNames() []string {
	if !e.IsAuthenticated() {
		return []string{}
	}
	names := make([]string, 0, len(e.snapshot.Roles))
	for _, role := range e.snapshot.Roles {
		names = append(names, role.Name)
	}
	return names
}

// Evaluate runs the combined access check. The three dimensions are combined
// with AND: every dimension with at least one required entry must pass its own
// ANY/ALL rule as selected by Query.RequireAll. Guard misses are reported
// through MissingPermissions; guards are a permission-scoped dimension.
// Evaluate never returns a Go error: authentication and internal failures are
// reported through Result.Error with Granted=false.
func (e *Evaluator) Evaluate(query Query) (result Result) {
	result = Result{
		MissingPermissions: []string{},
		MissingRoles:       []string{},
		UserPermissions:    []string{},
		UserRoles:          []string{},
	}

	defer func() {
		if r := recover(); r != nil {
			result = Result{
				MissingPermissions: []string{},
				MissingRoles:       []string{},
				UserPermissions:    []string{},
				UserRoles:          []string{},
				Error: &ErrorInfo{
					Code:    CodeEvaluationFailed,
					Message: fmt.Sprintf("access evaluation failed: %v", r),
				},
			}
		}
	}()

	if !e.IsAuthenticated() {
		result.Error = &ErrorInfo{
			Code:    CodeNotAuthenticated,
			Message: ErrNotAuthenticated.Error(),
		}
		return result
	}

	result.UserPermissions = e.PermissionNames()
	result.UserRoles = e.RoleNames()

	permsOK := dimensionSatisfied(query.Permissions, query.RequireAll, e.HasPermission)
	rolesOK := dimensionSatisfied(query.Roles, query.RequireAll, e.HasRole)
	guardsOK := dimensionSatisfied(query.Guards, query.RequireAll, e.HasGuard)

	if !permsOK {
		for _, name := range query.Permissions {
			if !e.HasPermission(name) {
				result.MissingPermissions = append(result.MissingPermissions, name)
			}
		}
	}
	if !guardsOK {
		for _, name := range query.Guards {
			if !e.HasGuard(name) {
				result.MissingPermissions = append(result.MissingPermissions, name)
			}
		}
	}
	if !rolesOK {
		for _, name := range query.Roles {
			if !e.HasRole(name) {
				result.MissingRoles = append(result.MissingRoles, name)
			}
		}
	}

	result.Granted = permsOK && rolesOK && guardsOK
	return result
}

// dimensionSatisfied applies the ANY/ALL rule to one dimension. A dimension
// with no required entries is trivially satisfied.
func dimensionSatisfied(names []string, requireAll bool, has func(string) bool) bool {
	if len(names) == 0 {
		return true
	}
	if requireAll {
		return allOf(names, has)
	}
	return anyOf(names, has)
}

func anyOf(names []string, has func(string) bool) bool {
	for _, name := range names {
		if has(name) {
			return true
		}
	}
	return false
}

func allOf(names []string, has func(string) bool) bool {
	for _, name := range names {
		if !has(name) {
			return false
		}
	}
	return true
}

// lookup consults the supplied cache before scanning the snapshot. Cache
// entries are append-only for the life of the evaluator.
func (e *Evaluator) lookup(key string, cache *map[string]bool, scan func(*Snapshot) bool) bool {
	if !e.IsAuthenticated() {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if hit, ok := (*cache)[key]; ok {
		return hit
	}

	found := scan(e.snapshot)
	(*cache)[key] = found
	return found
}
