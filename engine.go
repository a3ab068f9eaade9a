package authgate

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	internalaudit "github.com/mwalcott3/authgate/internal/audit"
	"github.com/mwalcott3/authgate/internal/flows"
	"github.com/mwalcott3/authgate/jwt"
	"github.com/mwalcott3/authgate/token"
)

// Engine is the credential lifecycle manager. Construct it through
// [Builder.Build]; the zero value is not usable.
type Engine struct {
	config  Config
	issuer  *jwt.Issuer
	tokens  token.Store
	users   UserProvider
	audit   *internalaudit.Dispatcher
	metrics *Metrics
}

// RegisterRequest is the input for [Engine.Register].
type RegisterRequest struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// Register creates an account and issues its first token pair. New accounts
// start active and carry the configured default role.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (*AuthResult, error) {
	if e == nil || e.users == nil {
		return nil, ErrEngineNotReady
	}

	input := flows.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	}
	res := flows.RunRegister(ctx, input, flows.RegisterDeps{
		LookupByEmail: e.lookupByEmail,
		CreateUser: func(ctx context.Context, in flows.RegisterInput) (flows.User, error) {
			created, err := e.users.CreateUser(ctx, CreateUserInput{
				Email:     in.Email,
				Password:  in.Password,
				FirstName: in.FirstName,
				LastName:  in.LastName,
				Active:    true,
			})
			if err != nil {
				return flows.User{}, err
			}
			return flowUser(created), nil
		},
		IsRejection: func(err error) bool {
			var rejection *RegistrationError
			return errors.As(err, &rejection)
		},
		AssignRole:  e.users.AddToRole,
		DefaultRole: e.config.Account.DefaultRole,
		Issuance:    e.issuance(),
	})

	switch res.Failure {
	case flows.RegisterFailureNone:
		e.metrics.Inc(MetricRegisterSuccess)
		e.metrics.Inc(MetricTokenPairIssued)
		e.emitAudit(ctx, auditEventRegisterSuccess, true, res.UserID, res.JTI, nil, nil)
		return successResult(res.AccessToken, res.RefreshToken), nil
	case flows.RegisterFailureDuplicate:
		e.metrics.Inc(MetricRegisterDuplicate)
		e.emitAudit(ctx, auditEventRegisterDuplicate, false, "", "", ErrDuplicateUser, nil)
		return failureResult(ErrDuplicateUser), nil
	case flows.RegisterFailureRejected:
		e.metrics.Inc(MetricRegisterRejected)
		e.emitAudit(ctx, auditEventRegisterRejected, false, "", "", ErrRegistrationRejected, nil)
		var rejection *RegistrationError
		if errors.As(res.Err, &rejection) && len(rejection.Reasons) > 0 {
			return &AuthResult{Errors: append([]string(nil), rejection.Reasons...)}, nil
		}
		return failureResult(ErrRegistrationRejected), nil
	default:
		e.emitAudit(ctx, auditEventRegisterFailure, false, res.UserID, "", res.Err, nil)
		return nil, fmt.Errorf("register: %w", res.Err)
	}
}

// Login authenticates email/password credentials and issues a fresh token
// pair. Any live refresh tokens of the user are revoked first, so a
// successful login leaves exactly one live chain.
func (e *Engine) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	if e == nil || e.users == nil {
		return nil, ErrEngineNotReady
	}

	res := flows.RunLogin(ctx, email, password, flows.LoginDeps{
		LookupByEmail:    e.lookupByEmail,
		VerifyPassword:   e.users.VerifyPassword,
		RevokeAllForUser: e.tokens.RevokeAllForUser,
		Issuance:         e.issuance(),
	})

	switch res.Failure {
	case flows.LoginFailureNone:
		e.metrics.Inc(MetricLoginSuccess)
		e.metrics.Inc(MetricTokenPairIssued)
		e.metrics.Add(MetricTokensRevoked, uint64(res.Revoked))
		e.emitAudit(ctx, auditEventLoginSuccess, true, res.UserID, res.JTI, nil, func() map[string]string {
			return map[string]string{"revoked": strconv.FormatInt(res.Revoked, 10)}
		})
		return successResult(res.AccessToken, res.RefreshToken), nil
	case flows.LoginFailureUserNotFound, flows.LoginFailureBadPassword:
		// Unknown email and wrong password are indistinguishable on the wire.
		e.metrics.Inc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, res.UserID, "", ErrInvalidCredentials, nil)
		return failureResult(ErrInvalidCredentials), nil
	case flows.LoginFailureInactive:
		e.metrics.Inc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, res.UserID, "", ErrInactiveAccount, nil)
		return failureResult(ErrInactiveAccount), nil
	default:
		e.emitAudit(ctx, auditEventLoginFailure, false, res.UserID, "", res.Err, nil)
		return nil, fmt.Errorf("login: %w", res.Err)
	}
}

// Refresh redeems a refresh token presented alongside its (typically
// expired) access token and rotates the pair. The presented refresh token is
// consumed whether or not issuance of the replacement succeeds.
func (e *Engine) Refresh(ctx context.Context, accessToken, refreshToken string) (*AuthResult, error) {
	if e == nil || e.users == nil {
		return nil, ErrEngineNotReady
	}

	res := flows.RunRefresh(ctx, accessToken, refreshToken, flows.RefreshDeps{
		SubjectFromExpired: e.subjectFromExpired,
		LookupByID:         e.lookupByID,
		Redeem: func(ctx context.Context, value, userID string) (*token.Record, error) {
			return e.tokens.Redeem(ctx, value, userID, time.Now())
		},
		RevokeAllForUser: e.tokens.RevokeAllForUser,
		RevokeOnReuse:    e.config.Security.RevokeOnReuse,
		NotFoundErr:      token.ErrNotFound,
		ExpiredErr:       token.ErrExpired,
		ReusedErr:        token.ErrReused,
		Issuance:         e.issuance(),
	})

	switch res.Failure {
	case flows.RefreshFailureNone:
		e.metrics.Inc(MetricRefreshSuccess)
		e.metrics.Inc(MetricTokenPairIssued)
		e.emitAudit(ctx, auditEventRefreshSuccess, true, res.UserID, res.JTI, nil, nil)
		return successResult(res.AccessToken, res.RefreshToken), nil
	case flows.RefreshFailureBadAccessToken:
		e.metrics.Inc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, "", "", ErrTokenInvalid, nil)
		return failureResult(ErrTokenInvalid), nil
	case flows.RefreshFailureUserNotFound:
		e.metrics.Inc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, res.UserID, "", ErrUserNotFoundOrInactive, nil)
		return failureResult(ErrUserNotFoundOrInactive), nil
	case flows.RefreshFailureTokenNotFound:
		e.metrics.Inc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, res.UserID, "", ErrRefreshNotFound, nil)
		return failureResult(ErrRefreshNotFound), nil
	case flows.RefreshFailureTokenExpired:
		e.metrics.Inc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, res.UserID, "", ErrRefreshExpired, nil)
		return failureResult(ErrRefreshExpired), nil
	case flows.RefreshFailureReuse:
		e.metrics.Inc(MetricRefreshFailure)
		e.metrics.Inc(MetricRefreshReuseDetected)
		e.emitAudit(ctx, auditEventRefreshReuseDetected, false, res.UserID, "", ErrRefreshReuse, nil)
		return failureResult(ErrRefreshReuse), nil
	default:
		e.emitAudit(ctx, auditEventRefreshInvalid, false, res.UserID, "", res.Err, nil)
		return nil, fmt.Errorf("refresh: %w", res.Err)
	}
}

// Revoke invalidates every live refresh token of userID. Revoking a user
// with nothing live succeeds and reports zero revocations.
func (e *Engine) Revoke(ctx context.Context, userID string) (bool, error) {
	if e == nil || e.tokens == nil {
		return false, ErrEngineNotReady
	}

	res := flows.RunRevoke(ctx, userID, flows.RevokeDeps{
		RevokeAllForUser: e.tokens.RevokeAllForUser,
	})
	if res.Err != nil {
		return false, fmt.Errorf("revoke: %w", res.Err)
	}

	e.metrics.Add(MetricTokensRevoked, uint64(res.Revoked))
	e.emitAudit(ctx, auditEventTokensRevoked, true, userID, "", nil, func() map[string]string {
		return map[string]string{"revoked": strconv.FormatInt(res.Revoked, 10)}
	})

	return true, nil
}

// Validate fully verifies a presented access token (signature, method,
// lifetime, issuer/audience) and returns its claims.
func (e *Engine) Validate(ctx context.Context, accessToken string) (*jwt.Claims, error) {
	if e == nil || e.issuer == nil {
		return nil, ErrEngineNotReady
	}

	start := time.Now()
	claims, err := e.issuer.Parse(accessToken)
	e.metrics.Observe(MetricValidateLatency, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	return claims, nil
}

// MetricsSnapshot returns a point-in-time copy of the engine's counters and
// histograms for exporters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil {
		return MetricsSnapshot{}
	}
	return e.metrics.Snapshot()
}

// Close flushes and stops the audit dispatcher. The engine must not be used
// afterwards.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
}

func (e *Engine) issuance() flows.Issuance {
	return flows.Issuance{
		Roles: e.users.GetRoles,
		IssueAccess: func(user flows.User, roles []string) (string, string, error) {
			return e.issuer.Issue(jwt.Identity{
				UserID:    user.ID,
				Email:     user.Email,
				FirstName: user.FirstName,
				LastName:  user.LastName,
				Roles:     roles,
			})
		},
		NewRefreshValue: token.NewValue,
		AddRecord:       e.tokens.Add,
		Now:             time.Now,
		RefreshLifetime: e.config.JWT.RefreshTTL,
	}
}

func (e *Engine) lookupByEmail(ctx context.Context, email string) (flows.User, bool, error) {
	user, err := e.users.GetUserByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return flows.User{}, false, nil
	}
	if err != nil {
		return flows.User{}, false, err
	}
	return flowUser(user), true, nil
}

func (e *Engine) lookupByID(ctx context.Context, userID string) (flows.User, bool, error) {
	user, err := e.users.GetUserByID(ctx, userID)
	if errors.Is(err, ErrUserNotFound) {
		return flows.User{}, false, nil
	}
	if err != nil {
		return flows.User{}, false, err
	}
	return flowUser(user), true, nil
}

// subjectFromExpired extracts the user ID from an access token whose
// lifetime may have elapsed. Signature and signing method are still
// enforced.
func (e *Engine) subjectFromExpired(accessToken string) (string, error) {
	claims, err := e.issuer.ExtractExpired(accessToken)
	if err != nil {
		return "", err
	}
	if claims.UserID == "" {
		return "", errors.New("token has no user id claim")
	}
	return claims.UserID, nil
}

func flowUser(u UserRecord) flows.User {
	return flows.User{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Active:    u.Active,
	}
}

func successResult(access, refresh string) *AuthResult {
	return &AuthResult{
		Success:      true,
		AccessToken:  access,
		RefreshToken: refresh,
	}
}

func failureResult(err error) *AuthResult {
	return &AuthResult{
		Errors: []string{responseMessage(err)},
	}
}
