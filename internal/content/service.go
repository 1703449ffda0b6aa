package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/mendaur/mendaur-admin/internal/auth"
	"github.com/mendaur/mendaur-admin/internal/confirm"
	"github.com/mendaur/mendaur-admin/internal/gateway"
	"github.com/mendaur/mendaur-admin/internal/rbac"
	"github.com/mendaur/mendaur-admin/internal/shared"
)

// Backend is the slice of the gateway client content management uses.
type Backend interface {
	ListRecords(ctx context.Context, token string, res gateway.Resource, query url.Values) ([]gateway.Record, bool, error)
	GetRecord(ctx context.Context, token string, res gateway.Resource, id string) (gateway.Record, error)
	CreateRecord(ctx context.Context, token string, res gateway.Resource, payload gateway.Payload) (gateway.Record, error)
	UpdateRecord(ctx context.Context, token string, res gateway.Resource, id string, payload gateway.Payload) (gateway.Record, error)
	DeleteRecord(ctx context.Context, token string, res gateway.Resource, id string) error
	CreateNotification(ctx context.Context, token string, n gateway.Notification) error
}

// Auditor records successful mutations.
type Auditor interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Locker allows one in-flight mutation per key.
type Locker interface {
	Acquire(ctx context.Context, key string) (func(), error)
}

// Service implements content management.
type Service struct {
	backend  Backend
	auditor  Auditor
	locker   Locker
	logger   *slog.Logger
	validate *validator.Validate
	guard    rbac.Guard
}

// NewService constructs the service. auditor and locker may be nil.
func NewService(backend Backend, auditor Auditor, locker Locker, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		backend:  backend,
		auditor:  auditor,
		locker:   locker,
		logger:   logger,
		validate: validator.New(),
	}
}

// List fetches the resource and narrows it by search, when given.
func (s *Service) List(ctx context.Context, identity *auth.Identity, name, search string) (Listing, error) {
	sp, err := s.authorize(identity, name)
	if err != nil {
		return Listing{}, err
	}
	listing, err := s.fetch(ctx, identity, sp)
	if err != nil {
		return Listing{}, err
	}
	listing.Items = Search(listing.Items, search)
	return listing, nil
}

// Get fetches one entity.
func (s *Service) Get(ctx context.Context, identity *auth.Identity, name, id string) (gateway.Record, error) {
	sp, err := s.authorize(identity, name)
	if err != nil {
		return nil, err
	}
	if err := validateID(id); err != nil {
		return nil, err
	}
	return s.backend.GetRecord(ctx, identity.Token, sp.resource, id)
}

// Create validates and creates an entity, then re-fetches the list.
func (s *Service) Create(ctx context.Context, identity *auth.Identity, name string, sub Submission) (Mutation, error) {
	sp, err := s.authorize(identity, name)
	if err != nil {
		return Mutation{}, err
	}
	input, err := s.decode(sp, sub)
	if err != nil {
		return Mutation{}, err
	}
	release, err := s.acquire(ctx, sp, "new:"+identity.UserID)
	if err != nil {
		return Mutation{}, err
	}
	defer release()

	var created gateway.Record
	if n, ok := input.(*NotificationInput); ok {
		msg := n.Notification()
		if err := s.backend.CreateNotification(ctx, identity.Token, msg); err != nil {
			return Mutation{}, err
		}
		created = gateway.Record{"user_id": msg.UserID, "judul": msg.Judul, "pesan": msg.Pesan, "tipe": msg.Tipe}
	} else {
		payload, err := payloadOf(sp, input, sub.Image)
		if err != nil {
			return Mutation{}, err
		}
		if created, err = s.backend.CreateRecord(ctx, identity.Token, sp.resource, payload); err != nil {
			return Mutation{}, err
		}
	}
	s.audit(ctx, identity, "create", sp, created.ID())
	return Mutation{Record: created, List: s.refetch(ctx, identity, sp)}, nil
}

// Update validates and replaces an entity, then re-fetches the list.
func (s *Service) Update(ctx context.Context, identity *auth.Identity, name, id string, sub Submission) (Mutation, error) {
	sp, err := s.authorize(identity, name)
	if err != nil {
		return Mutation{}, err
	}
	if sp.createOnly {
		return Mutation{}, ErrReadOnly
	}
	if err := validateID(id); err != nil {
		return Mutation{}, err
	}
	input, err := s.decode(sp, sub)
	if err != nil {
		return Mutation{}, err
	}
	payload, err := payloadOf(sp, input, sub.Image)
	if err != nil {
		return Mutation{}, err
	}
	release, err := s.acquire(ctx, sp, id)
	if err != nil {
		return Mutation{}, err
	}
	defer release()

	updated, err := s.backend.UpdateRecord(ctx, identity.Token, sp.resource, id, payload)
	if err != nil {
		return Mutation{}, err
	}
	if updated.ID() == "" {
		updated = gateway.Record(payload)
		updated["id"] = id
		delete(updated, sp.image)
	}
	s.audit(ctx, identity, "update", sp, id)
	return Mutation{Record: updated, List: s.refetch(ctx, identity, sp)}, nil
}

// Delete removes an entity once typed equals confirm.DeletePhrase.
func (s *Service) Delete(ctx context.Context, identity *auth.Identity, name, id, typed string) (Listing, error) {
	sp, err := s.authorize(identity, name)
	if err != nil {
		return Listing{}, err
	}
	if sp.createOnly {
		return Listing{}, ErrReadOnly
	}
	if err := validateID(id); err != nil {
		return Listing{}, err
	}
	dialog := confirm.Dialog{
		Title:      "Hapus " + sp.label,
		Message:    "Data yang dihapus tidak dapat dikembalikan.",
		Phrase:     confirm.DeletePhrase,
		Permission: sp.permission,
	}
	release, err := s.acquire(ctx, sp, id)
	if err != nil {
		return Listing{}, err
	}
	defer release()

	err = dialog.Confirm(identity, typed, false, func() error {
		return s.backend.DeleteRecord(ctx, identity.Token, sp.resource, id)
	})
	switch {
	case errors.Is(err, confirm.ErrPhraseMismatch):
		return Listing{}, ErrConfirmationRequired
	case errors.Is(err, confirm.ErrForbidden):
		return Listing{}, ErrForbidden
	case err != nil:
		return Listing{}, err
	}
	s.audit(ctx, identity, "delete", sp, id)
	return s.refetch(ctx, identity, sp), nil
}

func (s *Service) authorize(identity *auth.Identity, name string) (spec, error) {
	sp, err := lookup(name)
	if err != nil {
		return spec{}, err
	}
	if err := s.guard.Authorize(identity, sp.permission); err != nil {
		return spec{}, fmt.Errorf("%w: requires %s", ErrForbidden, sp.permission)
	}
	return sp, nil
}

func (s *Service) fetch(ctx context.Context, identity *auth.Identity, sp spec) (Listing, error) {
	items, degraded, err := s.backend.ListRecords(ctx, identity.Token, sp.resource, url.Values{"per_page": {"500"}})
	if err != nil {
		return Listing{}, err
	}
	if items == nil {
		items = []gateway.Record{}
	}
	return Listing{Resource: sp.resource.Name, Items: items, Degraded: degraded}, nil
}

// refetch returns the authoritative list after a mutation. The mutation
// already succeeded, so a failed read only marks the listing stale.
func (s *Service) refetch(ctx context.Context, identity *auth.Identity, sp spec) Listing {
	listing, err := s.fetch(ctx, identity, sp)
	if err != nil {
		s.logger.Warn("re-fetch after mutation", slog.String("resource", sp.resource.Name), slog.Any("error", err))
		return Listing{Resource: sp.resource.Name, Items: []gateway.Record{}, Stale: true}
	}
	return listing
}

func (s *Service) decode(sp spec, sub Submission) (any, error) {
	input := sp.input()
	raw, err := json.Marshal(sub.Fields)
	if err != nil {
		return nil, &ValidationError{Fields: map[string]string{"body": "invalid"}}
	}
	if err := json.Unmarshal(raw, input); err != nil {
		field := "body"
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			field = typeErr.Field
		}
		return nil, &ValidationError{Fields: map[string]string{field: "invalid"}}
	}
	if err := s.validate.Struct(input); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return nil, err
		}
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[jsonName(input, fe.StructField())] = fe.Tag()
		}
		return nil, &ValidationError{Fields: fields}
	}
	return input, nil
}

func (s *Service) acquire(ctx context.Context, sp spec, id string) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}
	release, err := s.locker.Acquire(ctx, shared.SubmissionKey(sp.resource.Name, id))
	if errors.Is(err, shared.ErrSubmissionInFlight) {
		return nil, ErrInFlight
	}
	if err != nil {
		return nil, err
	}
	return release, nil
}

func (s *Service) audit(ctx context.Context, identity *auth.Identity, action string, sp spec, id string) {
	if s.auditor == nil {
		return
	}
	if id == "" {
		id = "-"
	}
	err := s.auditor.Record(ctx, shared.AuditLog{
		ActorID:  identity.UserID,
		Action:   action,
		Entity:   sp.resource.Name,
		EntityID: id,
		Meta:     map[string]any{"role": identity.Role},
	})
	if err != nil {
		s.logger.Warn("audit content mutation", slog.String("resource", sp.resource.Name), slog.String("action", action), slog.Any("error", err))
	}
}

// payloadOf turns a validated input into the request body, adding the
// upload under the resource's image field.
func payloadOf(sp spec, input any, image *gateway.File) (gateway.Payload, error) {
	raw, err := json.Marshal(input)
	if err != nil {
		return nil, err
	}
	payload := gateway.Payload{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}
	if image != nil && sp.image != "" && len(image.Data) > 0 {
		payload[sp.image] = image
	}
	return payload, nil
}

func validateID(id string) error {
	if n, err := strconv.ParseInt(id, 10, 64); err != nil || n <= 0 {
		return &ValidationError{Fields: map[string]string{"id": "invalid"}}
	}
	return nil
}

// Search keeps records where any string or number field contains term,
// case-insensitively. An empty term keeps everything.
func Search(items []gateway.Record, term string) []gateway.Record {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return items
	}
	out := make([]gateway.Record, 0, len(items))
	for _, item := range items {
		for _, v := range item {
			var text string
			switch val := v.(type) {
			case string:
				text = val
			case float64:
				text = strconv.FormatFloat(val, 'f', -1, 64)
			}
			if text != "" && strings.Contains(strings.ToLower(text), term) {
				out = append(out, item)
				break
			}
		}
	}
	return out
}
