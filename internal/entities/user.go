package entities

import (
	"time"

	"gorm.io/gorm"
)

type UserRole string

const (
	UserRoleAdmin     UserRole = "admin"
	UserRoleLibrarian UserRole = "librarian"
	UserRoleMember    UserRole = "member"
)

// Permission codenames.
const (
	PermCanMarkReturned = "catalog.can_mark_returned"
	PermCanEdit         = "catalog.can_edit"
)

// Permission is a grantable capability, identified by its codename.
type Permission struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Codename string `gorm:"uniqueIndex;size:100;not null" json:"codename"`
	Name     string `gorm:"size:255" json:"name"`
}

// DefaultPermissions is the permission table seeded on startup.
var DefaultPermissions = []Permission{
	{Codename: PermCanMarkReturned, Name: "Set book as returned"},
	{Codename: PermCanEdit, Name: "Edit catalog entries"},
}

// rolePermissions lists the permissions implied by a role.
var rolePermissions = map[UserRole][]string{
	UserRoleLibrarian: {PermCanMarkReturned, PermCanEdit},
}

type User struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	Username         string         `gorm:"uniqueIndex;size:100" json:"username"`
	Email            string         `gorm:"uniqueIndex;size:255" json:"email"`
	PasswordHash     string         `gorm:"size:255" json:"-"`
	Role             UserRole       `gorm:"size:20;default:'member'" json:"role"`
	Permissions      []Permission   `gorm:"many2many:user_permissions;" json:"permissions,omitempty"`
	TokenHash        string         `gorm:"index;size:64" json:"-"`
	TokenCreatedAt   *time.Time     `json:"-"`
	FailedLoginCount int            `gorm:"default:0" json:"-"`
	LockedUntil      *time.Time     `json:"-"`
	LastLoginAt      *time.Time     `json:"last_login_at,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string {
	return "users"
}

func (Permission) TableName() string {
	return "permissions"
}

// IsValidRole reports whether role is one of the known roles.
func IsValidRole(role UserRole) bool {
	switch role {
	case UserRoleAdmin, UserRoleLibrarian, UserRoleMember:
		return true
	}
	return false
}

// PermissionSet returns every codename the user holds, explicit grants and
// role defaults combined. Admins are handled by HasPermission.
func (u User) PermissionSet() map[string]bool {
	set := make(map[string]bool)
	for _, codename := range rolePermissions[u.Role] {
		set[codename] = true
	}
	for _, p := range u.Permissions {
		set[p.Codename] = true
	}
	return set
}

// HasPermission reports whether the user holds the permission.
func (u User) HasPermission(codename string) bool {
	if u.Role == UserRoleAdmin {
		return true
	}
	return u.PermissionSet()[codename]
}
