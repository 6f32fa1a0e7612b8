package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// User describes platform users together with their role and direct
// permission grants. Access decisions never consult this model directly;
// grants are flattened into an access snapshot first.
type User struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	Username string `gorm:"uniqueIndex;not null" json:"username"`
	Email    string `gorm:"uniqueIndex;not null" json:"email"`
	Password string `gorm:"not null" json:"-"`

	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Avatar    string `json:"avatar"`

	// No column default; gorm skips zero values on insert when one is set,
	// which would silently activate users created inactive.
	IsActive bool `gorm:"not null" json:"is_active"`

	// Preferences holds profile settings opaque to access evaluation.
	Preferences datatypes.JSON `json:"preferences,omitempty"`

	Roles       []Role       `gorm:"many2many:user_roles;" json:"roles,omitempty"`
	Permissions []Permission `gorm:"many2many:user_permissions;" json:"permissions,omitempty"`
	Sessions    []Session    `gorm:"foreignKey:UserID" json:"-"`

	LastLoginAt *time.Time `json:"last_login_at"`
	LastLoginIP string     `json:"last_login_ip"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate ensures a UUID is present before persisting.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}
