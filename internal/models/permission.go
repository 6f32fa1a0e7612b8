package models

// Permission is a persisted permission definition. Name carries identity for
// access checks; the UUID primary key only anchors relations.
type Permission struct {
	BaseModel

	Name         string `gorm:"uniqueIndex;not null" json:"name"`
	Title        string `json:"title"`
	GuardName    string `gorm:"index;not null" json:"guard_name"`
	CategoryName string `gorm:"index" json:"category_name"`

	Roles []Role `gorm:"many2many:role_permissions;" json:"roles,omitempty"`
	Users []User `gorm:"many2many:user_permissions;" json:"users,omitempty"`
}
