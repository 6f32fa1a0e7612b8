package registry

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegisterPreventsDuplicates(t *testing.T) {
	name := "test.unique.permission"
	err := Register(&Definition{Name: name, GuardName: "web", CategoryName: "Test"})
	require.NoError(t, err)
	t.Cleanup(func() {
		remove(name)
	})

	err = Register(&Definition{Name: name, GuardName: "web", CategoryName: "Test"})
	require.Error(t, err)
}

func TestRegisterRejectsEmptyName(t *testing.T) {
	require.Error(t, Register(&Definition{Name: "   "}))
	require.Error(t, Register(nil))
}

func TestGetReturnsCopy(t *testing.T) {
	def, ok := Get("user.read")
	require.True(t, ok)

	def.Title = "mutated"
	again, ok := Get("user.read")
	require.True(t, ok)
	require.NotEqual(t, "mutated", again.Title)
}

func TestGetByCategoryIsSorted(t *testing.T) {
	defs := GetByCategory("Users")
	require.NotEmpty(t, defs)

	for i := 1; i < len(defs); i++ {
		require.Less(t, defs[i-1].Name, defs[i].Name)
	}
	for _, def := range defs {
		require.Equal(t, "Users", def.CategoryName)
	}
}

func TestGuardNamesCoverBuiltinVocabulary(t *testing.T) {
	guards := GuardNames()
	require.Contains(t, guards, "web")
	require.Contains(t, guards, "api")
}

func TestRolesIncludeBuiltins(t *testing.T) {
	roles := Roles()

	names := make([]string, 0, len(roles))
	for _, role := range roles {
		names = append(names, role.Name)
	}
	require.Contains(t, names, "admin")
	require.Contains(t, names, "viewer")
}
