// Package token issues and verifies the time-boxed QR pickup credential.
package token

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	domainerrors "geopickup/internal/errors"
	"geopickup/internal/identity"
	"geopickup/internal/models"
	"geopickup/internal/repositories"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Lifetime is how long a credential stays valid after generation. Scanners
// derive validity from the embedded timestamp alone, so it is not configurable.
const Lifetime = 15 * time.Minute

const fallbackAuthToken = "mock-token"

var tracer = otel.Tracer("geopickup/services/token")

// CheckInRegistrar records a pickup once a credential is redeemed.
type CheckInRegistrar interface {
	RegisterCheckIn(ctx context.Context, userID, studentID, schoolID, tokenID string) (*models.CheckIn, error)
}

type Config struct {
	Policy AuthorizationPolicy
	Now    func() time.Time
}

type Service struct {
	identity identity.Provider
	store    repositories.KVStore
	consumed repositories.ConsumedTokenRegistry
	ledger   CheckInRegistrar
	policy   AuthorizationPolicy
	now      func() time.Time
}

func NewService(
	provider identity.Provider,
	store repositories.KVStore,
	consumed repositories.ConsumedTokenRegistry,
	ledger CheckInRegistrar,
	cfg Config,
) *Service {
	if cfg.Policy == nil {
		cfg.Policy = AllowAll
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{
		identity: provider,
		store:    store,
		consumed: consumed,
		ledger:   ledger,
		policy:   cfg.Policy,
		now:      cfg.Now,
	}
}

// GenerateToken issues a new credential for the signed-in user and makes it
// their current token, replacing any previous one.
func (s *Service) GenerateToken(ctx context.Context, studentID, schoolID string) (*models.PickupToken, error) {
	ctx, span := tracer.Start(ctx, "token.Generate")
	defer span.End()
	span.SetAttributes(attribute.String("student.id", studentID), attribute.String("school.id", schoolID))

	user, err := s.identity.CurrentUser(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("resolve principal: %w", err)
	}
	if user == nil {
		span.SetStatus(codes.Error, "not authenticated")
		return nil, domainerrors.ErrNotAuthenticated
	}

	now := s.now()
	allowed, err := s.policy.Authorize(ctx, user, studentID, schoolID, now)
	if err != nil {
		return nil, fmt.Errorf("authorization check: %w", err)
	}
	if !allowed {
		span.SetStatus(codes.Error, "not authorized")
		return nil, domainerrors.ErrNotAuthorized
	}

	authToken, err := s.identity.AuthToken(ctx)
	if err != nil {
		log.Printf("Auth token unavailable for user %s: %v", user.ID, err)
	}
	if authToken == "" {
		authToken = fallbackAuthToken
	}

	uri, err := EncodeURI(models.TokenPayload{
		UserID:    user.ID,
		StudentID: studentID,
		SchoolID:  schoolID,
		Timestamp: FormatTimestamp(now),
		AuthToken: authToken,
		Version:   models.TokenVersion,
	})
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(uri, Scheme) {
		return nil, fmt.Errorf("failed to generate QR code URL")
	}

	t := &models.PickupToken{
		ID:          newTokenID(now),
		UserID:      user.ID,
		StudentID:   studentID,
		SchoolID:    schoolID,
		GeneratedAt: now,
		ExpiresAt:   now.Add(Lifetime),
		QRCodeData:  uri,
	}
	if err := s.store.Set(ctx, repositories.CurrentTokenKey(user.ID), t); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%w: %v", domainerrors.ErrStorageFailure, err)
	}

	log.Printf("Token %s generated for user %s student %s", t.ID, user.ID, studentID)
	return t, nil
}

// GetCurrentToken returns the user's live token, or nil when there is none,
// it expired or it was used.
func (s *Service) GetCurrentToken(ctx context.Context) (*models.PickupToken, error) {
	user, err := s.identity.CurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve principal: %w", err)
	}
	if user == nil {
		return nil, domainerrors.ErrNotAuthenticated
	}

	var t models.PickupToken
	found, err := s.store.Get(ctx, repositories.CurrentTokenKey(user.ID), &t)
	if err != nil {
		log.Printf("Failed to load current token for user %s: %v", user.ID, err)
		return nil, nil
	}
	if !found || t.IsUsed || t.IsExpired(s.now()) {
		return nil, nil
	}
	return &t, nil
}

// InvalidateToken marks the current token used and clears it. The credential
// is also claimed in the consumed registry so it can no longer be redeemed.
func (s *Service) InvalidateToken(ctx context.Context) error {
	user, err := s.identity.CurrentUser(ctx)
	if err != nil {
		return fmt.Errorf("resolve principal: %w", err)
	}
	if user == nil {
		return domainerrors.ErrNotAuthenticated
	}

	key := repositories.CurrentTokenKey(user.ID)
	var t models.PickupToken
	found, err := s.store.Get(ctx, key, &t)
	if err != nil {
		log.Printf("Failed to load current token for user %s: %v", user.ID, err)
	}
	if found && !t.IsUsed {
		t.IsUsed = true
		if err := s.store.Set(ctx, key, &t); err != nil {
			log.Printf("Failed to persist used token %s: %v", t.ID, err)
		}
		if _, raw, err := DecodePayload(ExtractToken(t.QRCodeData)); err == nil {
			if _, err := s.consumed.Consume(ctx, Digest(raw), Lifetime); err != nil {
				log.Printf("Failed to retire token %s: %v", t.ID, err)
			}
		}
	}
	if err := s.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("%w: %v", domainerrors.ErrStorageFailure, err)
	}
	return nil
}

// ValidateToken checks a scanned credential. It never fails; the reason for
// rejection is carried in the result.
func (s *Service) ValidateToken(ctx context.Context, scanned string) models.ValidationResult {
	_, span := tracer.Start(ctx, "token.Validate")
	defer span.End()

	res, _, _ := s.validate(scanned)
	span.SetAttributes(attribute.Bool("token.valid", res.Valid))
	return res
}

func (s *Service) validate(scanned string) (models.ValidationResult, []byte, error) {
	payload, raw, err := DecodePayload(ExtractToken(scanned))
	if err != nil {
		log.Printf("Validate token error: %v", err)
		return invalid(domainerrors.ErrInvalidTokenFormat), nil, domainerrors.ErrInvalidTokenFormat
	}
	issuedAt, err := parseTimestamp(payload.Timestamp)
	if err != nil {
		log.Printf("Validate token error: bad timestamp %q", payload.Timestamp)
		return invalid(domainerrors.ErrInvalidTokenFormat), nil, domainerrors.ErrInvalidTokenFormat
	}
	if s.now().Sub(issuedAt) > Lifetime {
		return invalid(domainerrors.ErrTokenExpired), nil, domainerrors.ErrTokenExpired
	}
	return models.ValidationResult{
		Valid: true,
		StudentInfo: &models.StudentInfo{
			StudentID: payload.StudentID,
			UserID:    payload.UserID,
			SchoolID:  payload.SchoolID,
			Timestamp: payload.Timestamp,
			Version:   payload.Version,
		},
	}, raw, nil
}

// RedeemResult is the outcome of a successful scan at the gate.
type RedeemResult struct {
	Validation models.ValidationResult `json:"validation"`
	CheckIn    *models.CheckIn         `json:"checkIn"`
}

// Redeem validates a credential, claims it so it cannot be used twice and
// checks the parent in. staff may be nil when the caller is not scoped to
// particular schools.
func (s *Service) Redeem(ctx context.Context, scanned string, staff *models.User) (*RedeemResult, error) {
	ctx, span := tracer.Start(ctx, "token.Redeem")
	defer span.End()

	res, raw, err := s.validate(scanned)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return &RedeemResult{Validation: res}, err
	}
	info := res.StudentInfo
	span.SetAttributes(attribute.String("school.id", info.SchoolID), attribute.String("user.id", info.UserID))

	if staff != nil && !staff.OperatesSchool(info.SchoolID) {
		return &RedeemResult{Validation: res}, domainerrors.ErrNotAuthorized.WithMessage("Not authorized to validate pickups for %s", info.SchoolID)
	}

	digest := Digest(raw)
	claimed, err := s.consumed.Consume(ctx, digest, Lifetime)
	if err != nil {
		span.RecordError(err)
		return &RedeemResult{Validation: res}, fmt.Errorf("%w: %v", domainerrors.ErrStorageFailure, err)
	}
	if !claimed {
		span.SetStatus(codes.Error, "already used")
		return &RedeemResult{Validation: res}, domainerrors.ErrTokenAlreadyUsed
	}

	checkIn, err := s.ledger.RegisterCheckIn(ctx, info.UserID, info.StudentID, info.SchoolID, digest[:16])
	if err != nil {
		if rerr := s.consumed.Release(ctx, digest); rerr != nil {
			log.Printf("Failed to release token after check-in error: %v", rerr)
		}
		return &RedeemResult{Validation: res}, fmt.Errorf("register check-in: %w", err)
	}
	return &RedeemResult{Validation: res, CheckIn: checkIn}, nil
}

func invalid(reason *domainerrors.DomainError) models.ValidationResult {
	return models.ValidationResult{Valid: false, Error: reason.Message}
}

func newTokenID(now time.Time) string {
	return fmt.Sprintf("token-%d-%s", now.UnixMilli(), strings.ReplaceAll(uuid.NewString(), "-", "")[:9])
}
