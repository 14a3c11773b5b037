package auth

import "errors"

// RBAC роли и разрешения
const (
	RoleAdmin  = "admin"
	RoleEditor = "editor"
	RoleUser   = "user"
)

const (
	PermContentRead     = "content:read"
	PermContentWriteOwn = "content:write:self"
	PermContentModerate = "content:moderate" // publish/hide any experience, edit jobs
	PermJobsWrite       = "jobs:write"
	PermCompaniesAdmin  = "companies:admin"
	PermOfficialContent = "content:official"
)

// Permissions список разрешений
var Permissions = map[string][]string{
	RoleAdmin: {
		PermContentRead,
		PermContentWriteOwn,
		PermContentModerate,
		PermJobsWrite,
		PermCompaniesAdmin,
		PermOfficialContent,
	},
	RoleEditor: {
		PermContentRead,
		PermContentWriteOwn,
		PermContentModerate,
		PermJobsWrite,
		PermOfficialContent,
	},
	RoleUser: {
		PermContentRead,
		PermContentWriteOwn,
	},
}

// HasPermission проверяет есть ли у роли указанное разрешение
func HasPermission(role, permission string) bool {
	permissions, exists := Permissions[role]
	if !exists {
		return false
	}

	for _, p := range permissions {
		if p == permission {
			return true
		}
	}
	return false
}

func IsAdmin(role string) bool {
	return role == RoleAdmin
}

// IsEditorOrHigher проверяет является ли пользователь редактором или выше
func IsEditorOrHigher(role string) bool {
	return role == RoleEditor || role == RoleAdmin
}

// ValidateRole проверяет валидность роли
func ValidateRole(role string) error {
	switch role {
	case RoleAdmin, RoleEditor, RoleUser:
		return nil
	default:
		return errors.New("invalid role")
	}
}
