package service

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/avollmer/oauthd/internal/keys"
	"github.com/avollmer/oauthd/internal/logger"
	"github.com/avollmer/oauthd/internal/model"
)

// TokenConfig carries issuance parameters.
type TokenConfig struct {
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	ClockSkew  time.Duration
}

// TokenService issues, refreshes, introspects and revokes tokens. Access
// tokens are RS256 JWTs signed with the key manager's active key; refresh
// tokens are opaque random values stored hashed, rotated on every use.
type TokenService struct {
	keys          *keys.Manager
	refreshTokens model.RefreshTokenStore
	users         model.UserStore
	audit         *AuditRecorder
	cfg           TokenConfig
	logger        *logger.Logger
}

func NewTokenService(
	keys *keys.Manager,
	refreshTokens model.RefreshTokenStore,
	users model.UserStore,
	audit *AuditRecorder,
	cfg TokenConfig,
	logger *logger.Logger,
) *TokenService {
	return &TokenService{
		keys:          keys,
		refreshTokens: refreshTokens,
		users:         users,
		audit:         audit,
		cfg:           cfg,
		logger:        logger,
	}
}

const opaqueTokenBytes = 32

// accessClaims are the claims carried by issued access tokens.
type accessClaims struct {
	jwt.RegisteredClaims
	ClientID string `json:"client_id"`
	Scope    string `json:"scope"`
}

// IssueRequest describes a token issuance after a successful grant.
type IssueRequest struct {
	UserID   uuid.UUID
	ClientID string
	Scopes   []string
	Nonce    string
}

// Issue creates a fresh token pair with a new refresh token family. The
// caller is responsible for auditing the surrounding grant.
func (s *TokenService) Issue(ctx context.Context, req IssueRequest) (model.TokenPair, error) {
	return s.issue(ctx, req, uuid.New(), nil)
}

func (s *TokenService) issue(ctx context.Context, req IssueRequest, familyID uuid.UUID, replaces *model.RefreshToken) (model.TokenPair, error) {
	kid, private, err := s.keys.Signer(ctx)
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("failed to resolve signing key: %w", err)
	}

	now := time.Now()
	access, err := s.signAccessToken(kid, private, req, now)
	if err != nil {
		return model.TokenPair{}, err
	}

	refresh, refreshHash, err := newOpaqueToken()
	if err != nil {
		return model.TokenPair{}, err
	}

	record := model.RefreshToken{
		ID:        uuid.New(),
		TokenHash: refreshHash,
		UserID:    req.UserID,
		ClientID:  req.ClientID,
		FamilyID:  familyID,
		Scopes:    req.Scopes,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.cfg.RefreshTTL),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if replaces == nil {
		if err := s.refreshTokens.Create(ctx, record); err != nil {
			return model.TokenPair{}, fmt.Errorf("failed to persist refresh token: %w", err)
		}
	} else {
		if err := s.refreshTokens.Rotate(ctx, replaces.ID, record); err != nil {
			return model.TokenPair{}, err
		}
	}

	pair := model.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.cfg.AccessTTL.Seconds()),
		Scopes:       req.Scopes,
	}

	if containsScope(req.Scopes, "openid") {
		idToken, err := s.signIDToken(ctx, kid, private, req, now)
		if err != nil {
			return model.TokenPair{}, err
		}
		pair.IDToken = idToken
	}

	return pair, nil
}

// Refresh rotates a presented refresh token. Presenting a token that was
// already rotated or revoked is treated as theft: the whole family is
// revoked and the call fails with model.ErrReuseDetected.
func (s *TokenService) Refresh(ctx context.Context, presented string, clientID string) (model.TokenPair, error) {
	record, err := s.refreshTokens.GetByHash(ctx, hashToken(presented))
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			if auditErr := s.auditRefresh(ctx, clientID, uuid.Nil, model.AuditFailure, model.SeverityWarn, "unknown refresh token"); auditErr != nil {
				return model.TokenPair{}, auditErr
			}
			return model.TokenPair{}, model.ErrNotFound
		}
		return model.TokenPair{}, fmt.Errorf("failed to load refresh token: %w", err)
	}

	if record.ClientID != clientID {
		if auditErr := s.auditRefresh(ctx, clientID, record.UserID, model.AuditFailure, model.SeverityAttack, "refresh token presented by wrong client"); auditErr != nil {
			return model.TokenPair{}, auditErr
		}
		return model.TokenPair{}, model.ErrTokenMismatch
	}

	if record.Revoked() {
		return model.TokenPair{}, s.containFamilyBreach(ctx, record)
	}

	if time.Now().After(record.ExpiresAt.Add(s.cfg.ClockSkew)) {
		if auditErr := s.auditRefresh(ctx, clientID, record.UserID, model.AuditFailure, model.SeverityInfo, "refresh token expired"); auditErr != nil {
			return model.TokenPair{}, auditErr
		}
		return model.TokenPair{}, model.ErrTokenExpired
	}

	pair, err := s.issue(ctx, IssueRequest{
		UserID:   record.UserID,
		ClientID: record.ClientID,
		Scopes:   record.Scopes,
	}, record.FamilyID, &record)
	if err != nil {
		// Losing the rotation race means another request already rotated
		// this token, which is reuse from our point of view.
		if errors.Is(err, model.ErrTokenRevoked) {
			return model.TokenPair{}, s.containFamilyBreach(ctx, record)
		}
		return model.TokenPair{}, err
	}

	if auditErr := s.auditRefresh(ctx, clientID, record.UserID, model.AuditSuccess, model.SeverityInfo, "refresh token rotated"); auditErr != nil {
		return model.TokenPair{}, auditErr
	}
	return pair, nil
}

// containFamilyBreach revokes the whole token family and records the
// highest-severity audit event. Always returns model.ErrReuseDetected.
func (s *TokenService) containFamilyBreach(ctx context.Context, record model.RefreshToken) error {
	if err := s.refreshTokens.RevokeFamily(ctx, record.FamilyID); err != nil {
		s.logger.Error("Token service: family revocation failed",
			"family_id", record.FamilyID,
			"error", err.Error())
		return fmt.Errorf("failed to revoke token family: %w", err)
	}

	s.logger.Warn("Token service: refresh token reuse detected",
		"user_id", record.UserID,
		"client_id", record.ClientID,
		"family_id", record.FamilyID)

	if auditErr := s.audit.Record(ctx, model.AuditEvent{
		ActorID:      record.ClientID,
		Action:       "token.refresh",
		ResourceType: "refresh_token_family",
		ResourceID:   record.FamilyID.String(),
		Status:       model.AuditFailure,
		Severity:     model.SeverityAttack,
		Detail:       "reuse detected, family revoked",
	}); auditErr != nil {
		return auditErr
	}
	return model.ErrReuseDetected
}

// Introspect reports the state of a presented token. It never fails for
// invalid, expired or revoked tokens; those come back inactive.
func (s *TokenService) Introspect(ctx context.Context, token string) (model.Introspection, error) {
	if claims, err := s.parseAccessToken(ctx, token); err == nil {
		userID, _ := uuid.Parse(claims.Subject)
		return model.Introspection{
			Active:    true,
			Scopes:    splitScope(claims.Scope),
			ClientID:  claims.ClientID,
			UserID:    userID,
			ExpiresAt: claims.ExpiresAt.Time,
		}, nil
	}

	record, err := s.refreshTokens.GetByHash(ctx, hashToken(token))
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.Introspection{}, nil
		}
		return model.Introspection{}, fmt.Errorf("failed to load refresh token: %w", err)
	}
	if record.Revoked() || time.Now().After(record.ExpiresAt) {
		return model.Introspection{}, nil
	}

	return model.Introspection{
		Active:    true,
		Scopes:    record.Scopes,
		ClientID:  record.ClientID,
		UserID:    record.UserID,
		ExpiresAt: record.ExpiresAt,
	}, nil
}

// Revoke invalidates the refresh token record matching the presented
// value. It is idempotent and succeeds whether or not the token exists,
// per RFC 7009.
func (s *TokenService) Revoke(ctx context.Context, token string, clientID string) error {
	record, err := s.refreshTokens.GetByHash(ctx, hashToken(token))
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return s.auditRevoke(ctx, clientID, "", model.AuditSuccess, "token unknown, nothing revoked")
		}
		return fmt.Errorf("failed to load refresh token: %w", err)
	}

	if err := s.refreshTokens.Revoke(ctx, record.ID); err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}

	return s.auditRevoke(ctx, clientID, record.ID.String(), model.AuditSuccess, "refresh token revoked")
}

// RevokeAllForUser revokes every refresh token of a user (logout).
func (s *TokenService) RevokeAllForUser(ctx context.Context, userID uuid.UUID) error {
	if err := s.refreshTokens.RevokeAllByUser(ctx, userID); err != nil {
		return fmt.Errorf("failed to revoke user tokens: %w", err)
	}
	return s.audit.Record(ctx, model.AuditEvent{
		ActorID:      userID.String(),
		Action:       "token.revoke_all",
		ResourceType: "user",
		ResourceID:   userID.String(),
		Status:       model.AuditSuccess,
	})
}

func (s *TokenService) signAccessToken(kid string, private *rsa.PrivateKey, req IssueRequest, now time.Time) (string, error) {
	claims := accessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			Subject:   req.UserID.String(),
			Audience:  jwt.ClaimStrings{req.ClientID},
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.AccessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
		ClientID: req.ClientID,
		Scope:    joinScope(req.Scopes),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = kid

	signed, err := token.SignedString(private)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}

// idClaims are the claims carried by ID tokens when identity scopes are
// requested.
type idClaims struct {
	jwt.RegisteredClaims
	AuthTime          int64  `json:"auth_time"`
	Nonce             string `json:"nonce,omitempty"`
	PreferredUsername string `json:"preferred_username,omitempty"`
}

func (s *TokenService) signIDToken(ctx context.Context, kid string, private *rsa.PrivateKey, req IssueRequest, now time.Time) (string, error) {
	claims := idClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			Subject:   req.UserID.String(),
			Audience:  jwt.ClaimStrings{req.ClientID},
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.AccessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		AuthTime: now.Unix(),
		Nonce:    req.Nonce,
	}

	if containsScope(req.Scopes, "profile") && s.users != nil {
		user, err := s.users.GetByID(ctx, req.UserID)
		if err == nil {
			claims.PreferredUsername = user.Login
		} else if !errors.Is(err, model.ErrNotFound) {
			return "", fmt.Errorf("failed to load user for id token: %w", err)
		}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = kid

	signed, err := token.SignedString(private)
	if err != nil {
		return "", fmt.Errorf("failed to sign id token: %w", err)
	}
	return signed, nil
}

// parseAccessToken verifies signature and temporal claims, resolving the
// signing key per request by kid so rotation never invalidates in-flight
// verification.
func (s *TokenService) parseAccessToken(ctx context.Context, tokenString string) (*accessClaims, error) {
	claims := &accessClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("wrong signing method %v", t.Header["alg"])
		}
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, model.ErrKeyNotFound
		}
		return s.keys.VerificationKey(ctx, kid)
	},
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithIssuer(s.cfg.Issuer),
		jwt.WithLeeway(s.cfg.ClockSkew),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to parse access token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("access token is invalid")
	}
	return claims, nil
}

func (s *TokenService) auditRefresh(ctx context.Context, clientID string, userID uuid.UUID, status string, severity model.AuditSeverity, detail string) error {
	actor := clientID
	event := model.AuditEvent{
		ActorID:      actor,
		Action:       "token.refresh",
		ResourceType: "refresh_token",
		Status:       status,
		Severity:     severity,
		Detail:       detail,
	}
	if userID != uuid.Nil {
		event.ResourceID = userID.String()
	}
	return s.audit.Record(ctx, event)
}

func (s *TokenService) auditRevoke(ctx context.Context, clientID, resourceID, status, detail string) error {
	return s.audit.Record(ctx, model.AuditEvent{
		ActorID:      clientID,
		Action:       "token.revoke",
		ResourceType: "refresh_token",
		ResourceID:   resourceID,
		Status:       status,
		Detail:       detail,
	})
}

func newOpaqueToken() (string, []byte, error) {
	raw := make([]byte, opaqueTokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", nil, fmt.Errorf("failed to generate token: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(raw)
	return token, hashToken(token), nil
}

func hashToken(token string) []byte {
	h := sha256.Sum256([]byte(token))
	return h[:]
}

func joinScope(scopes []string) string {
	return strings.Join(scopes, " ")
}

func splitScope(scope string) []string {
	if scope == "" {
		return nil
	}
	return strings.Fields(scope)
}

func containsScope(scopes []string, want string) bool {
	for _, s := range scopes {
		if s == want {
			return true
		}
	}
	return false
}
