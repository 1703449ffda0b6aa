package auth

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Session storage slots.
const (
	KeyToken       = "token"
	KeyUser        = "user"
	KeyRole        = "role"
	KeyRoleData    = "roleData"
	KeyPermissions = "permissions"
)

var sessionKeys = []string{KeyToken, KeyUser, KeyRole, KeyRoleData, KeyPermissions}

// Identity is the signed-in admin as restored from the session.
type Identity struct {
	UserID      string          `json:"user_id"`
	Name        string          `json:"name,omitempty"`
	Email       string          `json:"email,omitempty"`
	Role        string          `json:"role"`
	Permissions []string        `json:"permissions"`
	User        json.RawMessage `json:"user,omitempty"`
	RoleData    json.RawMessage `json:"role_data,omitempty"`
	Token       string          `json:"-"`

	granted map[string]struct{}
}

// NewIdentity builds an identity from the stored session slots.
func NewIdentity(token, role string, user, roleData json.RawMessage, perms []string) *Identity {
	id := &Identity{
		Token:       token,
		Role:        role,
		User:        user,
		RoleData:    roleData,
		Permissions: make([]string, 0, len(perms)),
		granted:     make(map[string]struct{}, len(perms)),
	}
	for _, p := range perms {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, dup := id.granted[p]; dup {
			continue
		}
		id.granted[p] = struct{}{}
		id.Permissions = append(id.Permissions, p)
	}
	id.UserID, id.Name, id.Email = profile(user)
	return id
}

// HasPermission reports whether perm was granted. Safe on nil.
func (i *Identity) HasPermission(perm string) bool {
	if i == nil || i.granted == nil {
		return false
	}
	_, ok := i.granted[perm]
	return ok
}

// HasAnyPermission reports whether at least one of perms was granted.
func (i *Identity) HasAnyPermission(perms []string) bool {
	for _, p := range perms {
		if i.HasPermission(p) {
			return true
		}
	}
	return false
}

// HasAllPermissions reports whether every perm was granted. An empty list
// is satisfied only by a signed-in identity.
func (i *Identity) HasAllPermissions(perms []string) bool {
	if i == nil {
		return false
	}
	for _, p := range perms {
		if !i.HasPermission(p) {
			return false
		}
	}
	return true
}

func profile(user json.RawMessage) (id, name, email string) {
	if len(user) == 0 {
		return "", "", ""
	}
	var fields struct {
		ID    any    `json:"id"`
		Nama  string `json:"nama"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := json.Unmarshal(user, &fields); err != nil {
		return "", "", ""
	}
	switch v := fields.ID.(type) {
	case float64:
		id = strconv.FormatFloat(v, 'f', -1, 64)
	case string:
		id = v
	}
	name = fields.Nama
	if name == "" {
		name = fields.Name
	}
	return id, name, fields.Email
}
