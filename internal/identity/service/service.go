// Package service registers pseudonymous identities and resolves UINs.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"safeharbour/internal/identity/models"
	id "safeharbour/pkg/domain"
	dErrors "safeharbour/pkg/domain-errors"
	audit "safeharbour/pkg/platform/audit"
	"safeharbour/pkg/platform/sentinel"
	"safeharbour/pkg/requestcontext"
)

// Store persists identities by sequence id. Create must insert the identity,
// its email index entry and its vault entry atomically, returning
// sentinel.ErrConflict when the email hash is already indexed.
type Store interface {
	Create(ctx context.Context, in models.NewIdentity) (*models.Record, error)
	FindBySeq(ctx context.Context, seq uint32) (*models.Record, error)
	FindByEmailHash(ctx context.Context, emailHash string) (*models.Record, error)
	VaultSecret(ctx context.Context, seq uint32) (string, error)
}

// Codec maps sequence ids to UINs.
type Codec interface {
	Encode(seq uint32) string
	Decode(uin string) (uint32, error)
}

// Hasher computes the blind index of an email.
type Hasher interface {
	Hash(email string) string
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	store          Store
	codec          Codec
	hasher         Hasher
	logger         *slog.Logger
	auditPublisher AuditPublisher
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func New(store Store, codec Codec, hasher Hasher, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("identity store is required")
	}
	if codec == nil || hasher == nil {
		return nil, dErrors.New(dErrors.CodeConfiguration, "identity codec and blind index are required")
	}
	s := &Service{store: store, codec: codec, hasher: hasher, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

type RegisterRequest struct {
	OrgID     id.OrgID
	Role      id.Role
	Email     string
	SecretRef string
}

// Register creates an identity and returns it with its UIN. The email is
// only ever hashed; SecretRef is handed to the vault.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*models.Identity, error) {
	if req.OrgID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "organization id is required")
	}
	if !req.Role.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "invalid role")
	}
	email := strings.TrimSpace(req.Email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, dErrors.New(dErrors.CodeValidation, "a valid email is required")
	}
	if strings.TrimSpace(req.SecretRef) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "secret reference is required")
	}

	rec, err := s.store.Create(ctx, models.NewIdentity{
		OrgID:     req.OrgID,
		Role:      req.Role,
		EmailHash: s.hasher.Hash(email),
		SecretRef: req.SecretRef,
		CreatedAt: requestcontext.Now(ctx),
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "an identity with this email already exists")
		}
		return nil, translate(err, "failed to register identity")
	}

	identity := s.toIdentity(rec)
	s.emit(ctx, audit.New(audit.EventIdentityRegistered, "", identity.UIN))
	return identity, nil
}

// LookupByEmail finds an identity through its blind index.
func (s *Service) LookupByEmail(ctx context.Context, email string) (*models.Identity, error) {
	rec, err := s.store.FindByEmailHash(ctx, s.hasher.Hash(email))
	if err != nil {
		return nil, translate(err, "identity not found")
	}
	return s.toIdentity(rec), nil
}

// Resolve decodes a UIN and loads the identity it names.
func (s *Service) Resolve(ctx context.Context, uin string) (*models.Identity, error) {
	seq, err := s.codec.Decode(uin)
	if err != nil {
		return nil, err
	}
	rec, err := s.store.FindBySeq(ctx, seq)
	if err != nil {
		return nil, translate(err, "identity not found")
	}
	return s.toIdentity(rec), nil
}

// OrgOf returns the organization a UIN belongs to.
func (s *Service) OrgOf(ctx context.Context, uin string) (id.OrgID, error) {
	identity, err := s.Resolve(ctx, uin)
	if err != nil {
		return id.OrgID{}, err
	}
	return identity.OrgID, nil
}

// RetrieveSecret returns the vault reference for a UIN. Only reveal
// execution calls this.
func (s *Service) RetrieveSecret(ctx context.Context, uin string) (string, error) {
	seq, err := s.codec.Decode(uin)
	if err != nil {
		return "", err
	}
	secret, err := s.store.VaultSecret(ctx, seq)
	if err != nil {
		return "", translate(err, "no vault entry for identity")
	}
	return secret, nil
}

func (s *Service) toIdentity(rec *models.Record) *models.Identity {
	return &models.Identity{
		UIN:       s.codec.Encode(rec.SeqID),
		OrgID:     rec.OrgID,
		Role:      rec.Role,
		CreatedAt: rec.CreatedAt,
	}
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditPublisher == nil {
		return
	}
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to emit identity audit event", "action", event.Action, "error", err)
	}
}

func translate(err error, notFound string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, notFound)
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeTransient, "identity store unavailable")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "identity store failure")
	}
}
