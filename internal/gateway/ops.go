package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Login exchanges credentials for a bearer token and the admin's grants.
func (c *Client) Login(ctx context.Context, creds Credentials) (LoginResponse, error) {
	body, err := c.send(ctx, "auth.login", http.MethodPost, "/login", "", nil, Payload{
		"email":    creds.Email,
		"password": creds.Password,
	})
	if err != nil {
		return LoginResponse{}, err
	}
	return decodeLogin(body)
}

// Logout revokes the token on the backend.
func (c *Client) Logout(ctx context.Context, token string) error {
	_, err := c.send(ctx, "auth.logout", http.MethodPost, "/logout", token, nil, nil)
	return err
}

// Overview fetches the dashboard counters. The bool reports fixture data.
func (c *Client) Overview(ctx context.Context, token string) (Overview, bool, error) {
	op := Dashboard.Name + ".get"
	body, err := c.fetch(ctx, op, Dashboard.Path, token, nil)
	if err == nil {
		out, derr := decodeOne[Overview](body, Dashboard.Keys...)
		return out, false, derr
	}
	if c.canFallback(ctx, err) {
		if out, ferr := FixtureOverview(); ferr == nil {
			c.degraded(op, err)
			return out, true, nil
		}
	}
	return Overview{}, false, err
}

// ListItems fetches an approval queue.
func (c *Client) ListItems(ctx context.Context, token string, res Resource, query url.Values) ([]Item, bool, error) {
	return list[Item](ctx, c, token, res, query)
}

// GetItem fetches one submission. It never falls back to fixtures.
func (c *Client) GetItem(ctx context.Context, token string, res Resource, id string) (Item, error) {
	body, err := c.fetch(ctx, res.Name+".get", res.item(id), token, nil)
	if err != nil {
		return Item{}, err
	}
	return decodeOne[Item](body, res.Keys...)
}

// ApproveItem issues the approve transition once. The returned item is
// whatever the backend echoed and may be zero.
func (c *Client) ApproveItem(ctx context.Context, token string, res Resource, id string, payload Payload) (Item, error) {
	return c.transition(ctx, token, res, id, "approve", payload)
}

// RejectItem issues the reject transition once.
func (c *Client) RejectItem(ctx context.Context, token string, res Resource, id string, payload Payload) (Item, error) {
	return c.transition(ctx, token, res, id, "reject", payload)
}

func (c *Client) transition(ctx context.Context, token string, res Resource, id, action string, payload Payload) (Item, error) {
	body, err := c.send(ctx, res.Name+"."+action, http.MethodPatch, res.item(id)+"/"+action, token, nil, payload)
	if err != nil {
		return Item{}, err
	}
	item, derr := decodeOne[Item](body, res.Keys...)
	if derr != nil {
		return Item{}, nil
	}
	return item, nil
}

// ListRecords fetches a content collection.
func (c *Client) ListRecords(ctx context.Context, token string, res Resource, query url.Values) ([]Record, bool, error) {
	return list[Record](ctx, c, token, res, query)
}

// GetRecord fetches one content entity.
func (c *Client) GetRecord(ctx context.Context, token string, res Resource, id string) (Record, error) {
	body, err := c.fetch(ctx, res.Name+".get", res.item(id), token, nil)
	if err != nil {
		return nil, err
	}
	return decodeOne[Record](body, res.Keys...)
}

// CreateRecord posts a new entity.
func (c *Client) CreateRecord(ctx context.Context, token string, res Resource, payload Payload) (Record, error) {
	body, err := c.send(ctx, res.Name+".create", http.MethodPost, res.Path, token, nil, payload)
	if err != nil {
		return nil, err
	}
	return echoed(body, res), nil
}

// UpdateRecord replaces an entity.
func (c *Client) UpdateRecord(ctx context.Context, token string, res Resource, id string, payload Payload) (Record, error) {
	body, err := c.send(ctx, res.Name+".update", http.MethodPut, res.item(id), token, nil, payload)
	if err != nil {
		return nil, err
	}
	return echoed(body, res), nil
}

// DeleteRecord removes an entity. Deletes are never retried.
func (c *Client) DeleteRecord(ctx context.Context, token string, res Resource, id string) error {
	_, err := c.send(ctx, res.Name+".delete", http.MethodDelete, res.item(id), token, nil, nil)
	return err
}

// CreateNotification sends one notification to a user.
func (c *Client) CreateNotification(ctx context.Context, token string, n Notification) error {
	payload := Payload{
		"user_id": n.UserID,
		"judul":   n.Judul,
		"pesan":   n.Pesan,
		"tipe":    n.Tipe,
	}
	if n.RelatedID != "" {
		payload["related_id"] = n.RelatedID
		payload["related_type"] = n.RelatedRef
	}
	_, err := c.send(ctx, Notifications.Name+".create", http.MethodPost, Notifications.Path, token, nil, payload)
	return err
}

func list[T any](ctx context.Context, c *Client, token string, res Resource, query url.Values) ([]T, bool, error) {
	op := res.Name + ".list"
	body, err := c.fetch(ctx, op, res.Path, token, query)
	if err == nil {
		items, derr := decodeList[T](body, res.Keys...)
		return items, false, derr
	}
	if c.canFallback(ctx, err) {
		if items, ferr := FixtureList[T](res); ferr == nil {
			c.degraded(op, err)
			return items, true, nil
		}
	}
	return nil, false, err
}

func echoed(body []byte, res Resource) Record {
	rec, err := decodeOne[Record](body, res.Keys...)
	if err != nil {
		return Record{}
	}
	return rec
}

func decodeLogin(body []byte) (LoginResponse, error) {
	raw, err := Unwrap(body)
	if err != nil {
		return LoginResponse{}, err
	}
	var payload struct {
		Token       string          `json:"token"`
		AccessToken string          `json:"access_token"`
		User        json.RawMessage `json:"user"`
		Role        json.RawMessage `json:"role"`
		RoleData    json.RawMessage `json:"role_data"`
		RoleDataAlt json.RawMessage `json:"roleData"`
		Permissions json.RawMessage `json:"permissions"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return LoginResponse{}, fmt.Errorf("%w: login: %v", ErrUnexpectedShape, err)
	}
	out := LoginResponse{
		Token:    strings.TrimSpace(payload.Token),
		User:     payload.User,
		RoleData: payload.RoleData,
	}
	if out.Token == "" {
		out.Token = strings.TrimSpace(payload.AccessToken)
	}
	if out.Token == "" {
		return LoginResponse{}, fmt.Errorf("%w: login: missing token", ErrUnexpectedShape)
	}
	if len(out.RoleData) == 0 {
		out.RoleData = payload.RoleDataAlt
	}

	out.Role = roleName(payload.Role)
	if out.Role == "" && len(payload.User) > 0 {
		var user struct {
			Role json.RawMessage `json:"role"`
		}
		if json.Unmarshal(payload.User, &user) == nil {
			out.Role = roleName(user.Role)
			if len(out.RoleData) == 0 && len(user.Role) > 0 && user.Role[0] == '{' {
				out.RoleData = user.Role
			}
		}
	}
	if len(out.RoleData) == 0 && len(payload.Role) > 0 && payload.Role[0] == '{' {
		out.RoleData = payload.Role
	}

	perms, err := permissionNames(payload.Permissions)
	if err != nil {
		return LoginResponse{}, err
	}
	if len(perms) == 0 && len(out.RoleData) > 0 {
		var rd struct {
			Permissions json.RawMessage `json:"permissions"`
		}
		if json.Unmarshal(out.RoleData, &rd) == nil {
			if perms, err = permissionNames(rd.Permissions); err != nil {
				return LoginResponse{}, err
			}
		}
	}
	out.Permissions = perms
	return out, nil
}

// roleName accepts "admin" or {"nama_role":"admin"} / {"name":"admin"}.
func roleName(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var name string
	if json.Unmarshal(raw, &name) == nil {
		return strings.ToLower(strings.TrimSpace(name))
	}
	var obj struct {
		NamaRole string `json:"nama_role"`
		Name     string `json:"name"`
	}
	if json.Unmarshal(raw, &obj) == nil {
		if obj.NamaRole != "" {
			return strings.ToLower(strings.TrimSpace(obj.NamaRole))
		}
		return strings.ToLower(strings.TrimSpace(obj.Name))
	}
	return ""
}

// permissionNames accepts ["a","b"] or [{"name":"a"}] / [{"nama_permission":"a"}].
func permissionNames(raw json.RawMessage) ([]string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	var names []string
	if err := json.Unmarshal(raw, &names); err == nil {
		return names, nil
	}
	var objs []struct {
		Name           string `json:"name"`
		NamaPermission string `json:"nama_permission"`
	}
	if err := json.Unmarshal(raw, &objs); err != nil {
		return nil, fmt.Errorf("%w: permissions: %v", ErrUnexpectedShape, err)
	}
	names = make([]string, 0, len(objs))
	for _, o := range objs {
		name := o.Name
		if name == "" {
			name = o.NamaPermission
		}
		if name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}
