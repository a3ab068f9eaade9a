package authgate

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventRegisterSuccess      = "register_success"
	auditEventRegisterDuplicate    = "register_duplicate"
	auditEventRegisterRejected     = "register_rejected"
	auditEventRegisterFailure      = "register_failure"
	auditEventLoginSuccess         = "login_success"
	auditEventLoginFailure         = "login_failure"
	auditEventRefreshSuccess       = "refresh_success"
	auditEventRefreshInvalid       = "refresh_invalid"
	auditEventRefreshReuseDetected = "refresh_reuse_detected"
	auditEventTokensRevoked        = "tokens_revoked"
)

// AuditErrorCode is the stable machine-readable code recorded on failed
// audit events.
type AuditErrorCode string

const (
	auditErrDuplicate            AuditErrorCode = "duplicate"
	auditErrRegistrationRejected AuditErrorCode = "registration_rejected"
	auditErrInvalidCredentials   AuditErrorCode = "invalid_credentials"
	auditErrInactiveAccount      AuditErrorCode = "inactive_account"
	auditErrInvalidToken         AuditErrorCode = "invalid_token"
	auditErrUserNotFoundInactive AuditErrorCode = "user_not_found_or_inactive"
	auditErrRefreshNotFound      AuditErrorCode = "refresh_not_found"
	auditErrRefreshExpired       AuditErrorCode = "refresh_expired"
	auditErrRefreshReuse         AuditErrorCode = "refresh_reuse"
	auditErrInternal             AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	jti string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		UserID:    userID,
		JTI:       jti,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrDuplicateUser):
		return auditErrDuplicate
	case errors.Is(err, ErrRegistrationRejected):
		return auditErrRegistrationRejected
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrInactiveAccount):
		return auditErrInactiveAccount
	case errors.Is(err, ErrTokenInvalid):
		return auditErrInvalidToken
	case errors.Is(err, ErrUserNotFoundOrInactive):
		return auditErrUserNotFoundInactive
	case errors.Is(err, ErrRefreshNotFound):
		return auditErrRefreshNotFound
	case errors.Is(err, ErrRefreshExpired):
		return auditErrRefreshExpired
	case errors.Is(err, ErrRefreshReuse):
		return auditErrRefreshReuse
	default:
		return auditErrInternal
	}
}

// AuditDropped reports how many audit events the dispatcher discarded
// because its buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}
