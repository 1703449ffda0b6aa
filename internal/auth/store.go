package auth

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mendaur/mendaur-admin/internal/gateway"
	"github.com/mendaur/mendaur-admin/internal/rbac"
	"github.com/mendaur/mendaur-admin/internal/shared"
)

var (
	// ErrRoleNotAllowed is returned when a non-admin account signs in.
	ErrRoleNotAllowed = errors.New("auth: role may not use the admin console")
	// ErrMalformedLogin is returned when the backend payload lacks a token or role.
	ErrMalformedLogin = errors.New("auth: malformed login payload")
)

// Store persists the identity in the session and restores it. It is the
// only writer of the session slots.
type Store struct {
	logger *slog.Logger
}

// NewStore constructs a Store.
func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{logger: logger}
}

// Login validates the backend auth payload and writes it into sess.
func (s *Store) Login(sess *shared.Session, resp gateway.LoginResponse) (*Identity, error) {
	if sess == nil {
		return nil, errors.New("auth: session missing")
	}
	token := strings.TrimSpace(resp.Token)
	role := strings.ToLower(strings.TrimSpace(resp.Role))
	if token == "" || !rbac.ValidRole(role) {
		return nil, ErrMalformedLogin
	}
	if !rbac.ConsoleRole(role) {
		return nil, ErrRoleNotAllowed
	}
	perms := resp.Permissions
	if perms == nil {
		perms = []string{}
	}
	permJSON, err := json.Marshal(perms)
	if err != nil {
		return nil, fmt.Errorf("auth: encode permissions: %w", err)
	}
	identity := NewIdentity(token, role, compact(resp.User), compact(resp.RoleData), perms)

	sess.Set(KeyToken, token)
	sess.Set(KeyUser, string(identity.User))
	sess.Set(KeyRole, role)
	sess.Set(KeyRoleData, string(identity.RoleData))
	sess.Set(KeyPermissions, string(permJSON))
	sess.SetUser(identity.UserID)
	return identity, nil
}

// Logout clears every identity slot.
func (s *Store) Logout(sess *shared.Session) {
	if sess == nil {
		return
	}
	sess.Delete(sessionKeys...)
	sess.SetUser("")
}

// Load restores the identity. Stored data that cannot be parsed is cleared
// and reported as signed out.
func (s *Store) Load(sess *shared.Session) (*Identity, bool) {
	if sess == nil || !sess.Has(KeyToken) {
		return nil, false
	}
	identity, err := s.restore(sess)
	if err != nil {
		s.logger.Warn("discarding stored identity", slog.Any("error", err), slog.String("session", sess.ID))
		s.Logout(sess)
		return nil, false
	}
	return identity, true
}

func (s *Store) restore(sess *shared.Session) (*Identity, error) {
	token := strings.TrimSpace(sess.Get(KeyToken))
	if token == "" {
		return nil, errors.New("empty token")
	}
	role := sess.Get(KeyRole)
	if !rbac.ConsoleRole(role) {
		return nil, fmt.Errorf("role %q", role)
	}
	var perms []string
	if err := json.Unmarshal([]byte(sess.Get(KeyPermissions)), &perms); err != nil {
		return nil, fmt.Errorf("permissions: %w", err)
	}
	user, err := rawSlot(sess, KeyUser)
	if err != nil {
		return nil, err
	}
	roleData, err := rawSlot(sess, KeyRoleData)
	if err != nil {
		return nil, err
	}
	return NewIdentity(token, role, user, roleData, perms), nil
}

func rawSlot(sess *shared.Session, key string) (json.RawMessage, error) {
	value := sess.Get(key)
	if value == "" {
		return nil, nil
	}
	if !json.Valid([]byte(value)) {
		return nil, fmt.Errorf("%s: invalid json", key)
	}
	return json.RawMessage(value), nil
}

func compact(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return nil
	}
	if buf.String() == "null" {
		return nil
	}
	return buf.Bytes()
}
