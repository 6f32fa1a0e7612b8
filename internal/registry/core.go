package registry

func init() {
	perms := []*Definition{
		{
			Name:         "dashboard.view",
			Title:        "View dashboard",
			GuardName:    "web",
			CategoryName: "Dashboard",
		},
		{
			Name:         "user.read",
			Title:        "View users",
			GuardName:    "web",
			CategoryName: "Users",
		},
		{
			Name:         "user.create",
			Title:        "Create users",
			GuardName:    "web",
			CategoryName: "Users",
		},
		{
			Name:         "user.update",
			Title:        "Update users",
			GuardName:    "web",
			CategoryName: "Users",
		},
		{
			Name:         "user.delete",
			Title:        "Delete users",
			GuardName:    "web",
			CategoryName: "Users",
		},
		{
			Name:         "role.read",
			Title:        "View roles",
			GuardName:    "web",
			CategoryName: "Roles",
		},
		{
			Name:         "role.create",
			Title:        "Create roles",
			GuardName:    "web",
			CategoryName: "Roles",
		},
		{
			Name:         "role.update",
			Title:        "Update roles",
			GuardName:    "web",
			CategoryName: "Roles",
		},
		{
			Name:         "role.delete",
			Title:        "Delete roles",
			GuardName:    "web",
			CategoryName: "Roles",
		},
		{
			Name:         "role.assign",
			Title:        "Assign roles to users",
			GuardName:    "web",
			CategoryName: "Roles",
		},
		{
			Name:         "report.view",
			Title:        "View reports",
			GuardName:    "web",
			CategoryName: "Reports",
		},
		{
			Name:         "report.export",
			Title:        "Export reports",
			GuardName:    "api",
			CategoryName: "Reports",
		},
		{
			Name:         "settings.read",
			Title:        "View settings",
			GuardName:    "web",
			CategoryName: "Settings",
		},
		{
			Name:         "settings.update",
			Title:        "Update settings",
			GuardName:    "web",
			CategoryName: "Settings",
		},
		{
			Name:         "token.issue",
			Title:        "Issue API tokens",
			GuardName:    "api",
			CategoryName: "Integrations",
		},
	}

	for _, perm := range perms {
		if err := Register(perm); err != nil {
			panic(err)
		}
	}

	roles := []*RoleDefinition{
		{Name: "admin", Title: "Administrator"},
		{Name: "manager", Title: "Manager"},
		{Name: "viewer", Title: "Viewer"},
	}

	for _, role := range roles {
		if err := RegisterRole(role); err != nil {
			panic(err)
		}
	}
}
