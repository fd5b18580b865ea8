package user

import (
	"encoding/json"
	"time"

	id "dojotrack/pkg/domain"
	dErrors "dojotrack/pkg/domain-errors"
)

// Role enumerates the assignable roles. Exactly one per user.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// ParseRole validates role values read from storage or input.
func ParseRole(raw string) (Role, error) {
	switch Role(raw) {
	case RoleAdmin, RoleUser:
		return Role(raw), nil
	default:
		return "", dErrors.New(dErrors.CodeBadRequest, "unknown role: "+raw)
	}
}

// Union returns the most privileged of two roles. Merging accounts must never
// silently revoke administrative access.
func (r Role) Union(other Role) Role {
	if r == RoleAdmin || other == RoleAdmin {
		return RoleAdmin
	}
	return RoleUser
}

// User is the canonical account record: the role row plus the profile fields
// shared with the settings row.
type User struct {
	ID          id.UserID
	Email       string
	DisplayName string
	ImageURL    string
	Role        Role
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Settings is the per-user settings row. Only its survival across merges is
// interesting here: the target's row is canonical, the source's is deleted.
type Settings struct {
	UserID       id.UserID
	Email        string
	DisplayName  string
	ImageURL     string
	SettingsJSON json.RawMessage
	Version      int64
	UpdatedAt    time.Time
}
