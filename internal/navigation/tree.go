package navigation

// tree is the built-in navigation layout. Requirements reference permission
// and role names registered in internal/registry.
var tree = []Item{
	{
		Key:         "dashboard",
		Title:       "Dashboard",
		Path:        "/dashboard",
		Icon:        "layout-dashboard",
		Permissions: []string{"dashboard.view"},
	},
	{
		Key:   "administration",
		Title: "Administration",
		Icon:  "shield",
		Children: []Item{
			{
				Key:         "users",
				Title:       "Users",
				Path:        "/admin/users",
				Icon:        "users",
				Permissions: []string{"user.read"},
			},
			{
				Key:         "roles",
				Title:       "Roles",
				Path:        "/admin/roles",
				Icon:        "user-check",
				Permissions: []string{"role.read"},
			},
			{
				Key:         "settings",
				Title:       "Settings",
				Path:        "/admin/settings",
				Icon:        "settings",
				Permissions: []string{"settings.read"},
			},
		},
	},
	{
		Key:   "reports",
		Title: "Reports",
		Icon:  "bar-chart",
		Children: []Item{
			{
				Key:         "reports-overview",
				Title:       "Overview",
				Path:        "/reports",
				Icon:        "file-text",
				Permissions: []string{"report.view"},
			},
			{
				Key:         "reports-export",
				Title:       "Export",
				Path:        "/reports/export",
				Icon:        "download",
				Permissions: []string{"report.export"},
				Guards:      []string{"api"},
			},
		},
	},
	{
		Key:   "admin-tools",
		Title: "Admin Tools",
		Path:  "/admin/tools",
		Icon:  "wrench",
		Roles: []string{"admin"},
	},
}
