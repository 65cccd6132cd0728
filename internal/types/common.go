// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package types

import "github.com/gofrs/uuid"

// HTTP Header Constants
const (
	HeaderUID           = "uid"
	HeaderAuthorization = "Authorization"
	HeaderContentType   = "Content-Type"
	HeaderCacheStatus   = "X-Cache"
	HeaderCacheSource   = "X-Cache-Source"
)

// Authentication Constants
const (
	BearerPrefix = "Bearer "

	// AccessTokenCookie carries the session token for browser clients
	AccessTokenCookie = "access_token"
)

// Common Values
const (
	UserRole   = "user"
	EditorRole = "editor"
	AdminRole  = "admin"
)

// UserCtxName is the fiber Locals key holding the authenticated UserContext.
const UserCtxName = "user"

// UserContext is the caller identity carried in a session token.
type UserContext struct {
	UserID      uuid.UUID `json:"uid"`
	Username    string    `json:"username"`
	DisplayName string    `json:"displayName"`
	SystemRole  string    `json:"role"`
	CreatedDate int64     `json:"createdDate"`
}

// IsAdmin reports whether the user holds the admin system role.
func (u UserContext) IsAdmin() bool {
	return u.SystemRole == AdminRole
}

// CanReadReferences reports whether the user may list reference tables.
func (u UserContext) CanReadReferences() bool {
	switch u.SystemRole {
	case AdminRole, EditorRole, UserRole:
		return true
	default:
		return false
	}
}
