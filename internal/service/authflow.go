package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/avollmer/oauthd/internal/logger"
	"github.com/avollmer/oauthd/internal/model"
	"github.com/avollmer/oauthd/internal/pkce"
)

// FlowConfig carries authorization flow policy.
type FlowConfig struct {
	CodeTTL            time.Duration
	AllowPartialScopes bool
	AllowPlainPKCE     bool
}

// pendingConsentTTL bounds how long an initiated request may wait for
// the user's consent decision.
const pendingConsentTTL = 10 * time.Minute

const authorizationCodeBytes = 32

// AuthorizationFlow drives an authorization request from initiation
// through consent to code exchange:
//
//	Requested -> PendingConsent -> Authorized -> {Consumed | Expired | Denied}
type AuthorizationFlow struct {
	clients  model.ClientStore
	requests model.AuthorizationRequestStore
	codes    model.AuthorizationCodeStore
	tokens   *TokenService
	audit    *AuditRecorder
	cfg      FlowConfig
	logger   *logger.Logger
}

func NewAuthorizationFlow(
	clients model.ClientStore,
	requests model.AuthorizationRequestStore,
	codes model.AuthorizationCodeStore,
	tokens *TokenService,
	audit *AuditRecorder,
	cfg FlowConfig,
	logger *logger.Logger,
) *AuthorizationFlow {
	return &AuthorizationFlow{
		clients:  clients,
		requests: requests,
		codes:    codes,
		tokens:   tokens,
		audit:    audit,
		cfg:      cfg,
		logger:   logger,
	}
}

// InitiateRequest mirrors the authorization endpoint inputs.
type InitiateRequest struct {
	ClientID            string
	RedirectURI         string
	ResponseType        string
	Scopes              []string
	State               string
	CodeChallenge       string
	CodeChallengeMethod string
	Nonce               string
}

// Initiate validates an incoming authorization request and parks it
// pending consent. The returned handle is opaque to the client.
func (f *AuthorizationFlow) Initiate(ctx context.Context, req InitiateRequest) (string, error) {
	client, err := f.clients.GetByID(ctx, req.ClientID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return "", f.failInitiate(ctx, req, model.ErrInvalidClient, model.SeverityWarn, "unknown client")
		}
		return "", fmt.Errorf("failed to load client: %w", err)
	}
	if !client.Active {
		return "", f.failInitiate(ctx, req, model.ErrInvalidClient, model.SeverityWarn, "client inactive")
	}
	if !client.AllowsRedirectURI(req.RedirectURI) {
		return "", f.failInitiate(ctx, req, model.ErrInvalidRedirectURI, model.SeverityAttack, "redirect uri not registered")
	}
	if req.ResponseType != "code" {
		return "", f.failInitiate(ctx, req, model.ErrInvalidRequest, model.SeverityWarn, "unsupported response type")
	}
	if !client.AllowsGrantType("authorization_code") {
		return "", f.failInitiate(ctx, req, model.ErrUnsupportedGrant, model.SeverityWarn, "authorization_code grant not allowed")
	}
	if len(req.Scopes) == 0 || !client.AllowsScopes(req.Scopes) {
		return "", f.failInitiate(ctx, req, model.ErrInvalidScope, model.SeverityWarn, "scope not allowed")
	}
	if req.CodeChallenge == "" || !pkce.SupportedMethod(req.CodeChallengeMethod, f.cfg.AllowPlainPKCE) {
		return "", f.failInitiate(ctx, req, model.ErrInvalidRequest, model.SeverityWarn, "missing or unsupported pkce challenge")
	}

	now := time.Now()
	request := model.AuthorizationRequest{
		Handle:              uuid.NewString(),
		ClientID:            req.ClientID,
		RedirectURI:         req.RedirectURI,
		RequestedScopes:     req.Scopes,
		State:               model.StatePendingConsent,
		ClientState:         req.State,
		CodeChallenge:       req.CodeChallenge,
		CodeChallengeMethod: req.CodeChallengeMethod,
		Nonce:               req.Nonce,
		ExpiresAt:           now.Add(pendingConsentTTL),
		CreatedAt:           now,
	}

	if err := f.requests.Create(ctx, request); err != nil {
		return "", fmt.Errorf("failed to persist authorization request: %w", err)
	}

	if err := f.audit.Record(ctx, model.AuditEvent{
		ActorID:      req.ClientID,
		Action:       "authorize.initiate",
		ResourceType: "authorization_request",
		ResourceID:   request.Handle,
		Status:       model.AuditSuccess,
	}); err != nil {
		return "", err
	}

	return request.Handle, nil
}

// ConsentResult carries what the authorization endpoint needs to build
// the redirect back to the client.
type ConsentResult struct {
	Code        string
	RedirectURI string
	ClientState string
}

// SubmitConsent applies the user's consent decision. Approval mints a
// single-use authorization code bound to the request's PKCE challenge.
func (f *AuthorizationFlow) SubmitConsent(ctx context.Context, handle string, userID uuid.UUID, approved bool, approvedScopes []string) (ConsentResult, error) {
	request, err := f.requests.GetByHandle(ctx, handle)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return ConsentResult{}, model.ErrStaleConsent
		}
		return ConsentResult{}, fmt.Errorf("failed to load authorization request: %w", err)
	}

	if time.Now().After(request.ExpiresAt) {
		_ = f.requests.TransitionState(ctx, handle, model.StatePendingConsent, model.StateExpired)
		if err := f.auditConsent(ctx, request, userID, model.AuditFailure, "consent window expired"); err != nil {
			return ConsentResult{}, err
		}
		return ConsentResult{}, model.ErrStaleConsent
	}

	if !approved {
		if err := f.requests.TransitionState(ctx, handle, model.StatePendingConsent, model.StateDenied); err != nil {
			if errors.Is(err, model.ErrStaleConsent) {
				return ConsentResult{}, model.ErrStaleConsent
			}
			return ConsentResult{}, fmt.Errorf("failed to record denial: %w", err)
		}
		if err := f.auditConsent(ctx, request, userID, model.AuditFailure, "user denied consent"); err != nil {
			return ConsentResult{}, err
		}
		return ConsentResult{RedirectURI: request.RedirectURI, ClientState: request.ClientState}, model.ErrAccessDenied
	}

	scopes, err := resolveApprovedScopes(request.RequestedScopes, approvedScopes, f.cfg.AllowPartialScopes)
	if err != nil {
		return ConsentResult{}, err
	}

	code, codeHash, err := newAuthorizationCode()
	if err != nil {
		return ConsentResult{}, err
	}

	now := time.Now()
	record := model.AuthorizationCode{
		ID:                  uuid.New(),
		CodeHash:            codeHash,
		ClientID:            request.ClientID,
		UserID:              userID,
		RedirectURI:         request.RedirectURI,
		Scopes:              scopes,
		CodeChallenge:       request.CodeChallenge,
		CodeChallengeMethod: request.CodeChallengeMethod,
		Nonce:               request.Nonce,
		ExpiresAt:           now.Add(f.cfg.CodeTTL),
		CreatedAt:           now,
	}

	// The state transition guards against double-submitted consent: only
	// one submission may move the request out of PendingConsent.
	if err := f.requests.TransitionState(ctx, handle, model.StatePendingConsent, model.StateAuthorized); err != nil {
		return ConsentResult{}, err
	}
	if err := f.codes.Create(ctx, record); err != nil {
		return ConsentResult{}, fmt.Errorf("failed to persist authorization code: %w", err)
	}

	if err := f.auditConsent(ctx, request, userID, model.AuditSuccess, "consent approved"); err != nil {
		return ConsentResult{}, err
	}

	return ConsentResult{
		Code:        code,
		RedirectURI: request.RedirectURI,
		ClientState: request.ClientState,
	}, nil
}

// Exchange trades an authorization code for a token pair. Consumption is
// atomic: of two concurrent exchanges for the same code, exactly one can
// succeed. Mismatched client, redirect or PKCE is audited as a potential
// attack.
func (f *AuthorizationFlow) Exchange(ctx context.Context, code, clientID, redirectURI, verifier string) (model.TokenPair, error) {
	record, err := f.codes.Consume(ctx, hashToken(code))
	if err != nil {
		switch {
		case errors.Is(err, model.ErrNotFound):
			if auditErr := f.auditExchange(ctx, clientID, "", model.AuditFailure, model.SeverityWarn, "unknown authorization code"); auditErr != nil {
				return model.TokenPair{}, auditErr
			}
			return model.TokenPair{}, model.ErrNotFound
		case errors.Is(err, model.ErrCodeConsumed):
			// Replay of a consumed code is the classic stolen-code signal.
			if auditErr := f.auditExchange(ctx, clientID, "", model.AuditFailure, model.SeverityAttack, "authorization code replayed"); auditErr != nil {
				return model.TokenPair{}, auditErr
			}
			return model.TokenPair{}, model.ErrCodeConsumed
		default:
			return model.TokenPair{}, fmt.Errorf("failed to consume authorization code: %w", err)
		}
	}

	resourceID := record.ID.String()

	if time.Now().After(record.ExpiresAt) {
		if auditErr := f.auditExchange(ctx, clientID, resourceID, model.AuditFailure, model.SeverityInfo, "authorization code expired"); auditErr != nil {
			return model.TokenPair{}, auditErr
		}
		return model.TokenPair{}, model.ErrCodeExpired
	}
	if record.ClientID != clientID || record.RedirectURI != redirectURI {
		if auditErr := f.auditExchange(ctx, clientID, resourceID, model.AuditFailure, model.SeverityAttack, "client or redirect uri mismatch"); auditErr != nil {
			return model.TokenPair{}, auditErr
		}
		return model.TokenPair{}, model.ErrCodeMismatch
	}
	if err := pkce.Validate(record.CodeChallenge, record.CodeChallengeMethod, verifier, f.cfg.AllowPlainPKCE); err != nil {
		if auditErr := f.auditExchange(ctx, clientID, resourceID, model.AuditFailure, model.SeverityAttack, "pkce verification failed"); auditErr != nil {
			return model.TokenPair{}, auditErr
		}
		return model.TokenPair{}, err
	}

	pair, err := f.tokens.Issue(ctx, IssueRequest{
		UserID:   record.UserID,
		ClientID: record.ClientID,
		Scopes:   record.Scopes,
		Nonce:    record.Nonce,
	})
	if err != nil {
		return model.TokenPair{}, err
	}

	if auditErr := f.auditExchange(ctx, clientID, resourceID, model.AuditSuccess, model.SeverityInfo, "authorization code exchanged"); auditErr != nil {
		return model.TokenPair{}, auditErr
	}
	return pair, nil
}

// resolveApprovedScopes applies the consent policy. With partial consent
// allowed the user may approve any non-empty subset of the requested
// scopes; otherwise consent is all-or-nothing.
func resolveApprovedScopes(requested, approved []string, allowPartial bool) ([]string, error) {
	if len(approved) == 0 {
		return nil, model.ErrInvalidScope
	}
	for _, scope := range approved {
		if !containsScope(requested, scope) {
			return nil, model.ErrInvalidScope
		}
	}
	if !allowPartial && len(approved) != len(requested) {
		return nil, model.ErrInvalidScope
	}
	return approved, nil
}

func (f *AuthorizationFlow) failInitiate(ctx context.Context, req InitiateRequest, cause error, severity model.AuditSeverity, detail string) error {
	if auditErr := f.audit.Record(ctx, model.AuditEvent{
		ActorID:      req.ClientID,
		Action:       "authorize.initiate",
		ResourceType: "authorization_request",
		Status:       model.AuditFailure,
		Severity:     severity,
		Detail:       detail,
	}); auditErr != nil {
		return auditErr
	}
	return cause
}

func (f *AuthorizationFlow) auditConsent(ctx context.Context, request model.AuthorizationRequest, userID uuid.UUID, status, detail string) error {
	return f.audit.Record(ctx, model.AuditEvent{
		ActorID:      userID.String(),
		Action:       "authorize.consent",
		ResourceType: "authorization_request",
		ResourceID:   request.Handle,
		Status:       status,
		Detail:       detail,
	})
}

func (f *AuthorizationFlow) auditExchange(ctx context.Context, clientID, resourceID, status string, severity model.AuditSeverity, detail string) error {
	return f.audit.Record(ctx, model.AuditEvent{
		ActorID:      clientID,
		Action:       "code.exchange",
		ResourceType: "authorization_code",
		ResourceID:   resourceID,
		Status:       status,
		Severity:     severity,
		Detail:       detail,
	})
}

func newAuthorizationCode() (string, []byte, error) {
	raw := make([]byte, authorizationCodeBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", nil, fmt.Errorf("failed to generate authorization code: %w", err)
	}
	code := base64.RawURLEncoding.EncodeToString(raw)
	return code, hashToken(code), nil
}
