package models

// Role is a named bundle of permissions assignable to users.
type Role struct {
	BaseModel

	Name     string `gorm:"uniqueIndex;not null" json:"name"`
	Title    string `json:"title"`
	IsSystem bool   `gorm:"default:false" json:"is_system"`

	Permissions []Permission `gorm:"many2many:role_permissions;" json:"permissions,omitempty"`
	Users       []User       `gorm:"many2many:user_roles;" json:"users,omitempty"`
}
