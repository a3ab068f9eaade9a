package authgate

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDuplicateUser reports a registration attempt for an email that
	// already has an account.
	ErrDuplicateUser = errors.New("user with this email already exists")
	// ErrRegistrationRejected reports that the user store refused to create
	// the account (password policy, malformed email, ...). The concrete
	// reasons travel in [RegistrationError].
	ErrRegistrationRejected = errors.New("registration rejected")
	// ErrInvalidCredentials covers both unknown email and wrong password so
	// callers cannot probe which accounts exist.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInactiveAccount reports a login attempt against a deactivated account.
	ErrInactiveAccount = errors.New("account inactive")
	// ErrTokenInvalid reports an access token whose signature, signing method,
	// or claim shape is unacceptable.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrUserNotFoundOrInactive reports a refresh attempt whose token subject
	// no longer maps to an active account.
	ErrUserNotFoundOrInactive = errors.New("user not found or inactive")
	// ErrRefreshNotFound reports a refresh value with no matching row for the
	// presenting user.
	ErrRefreshNotFound = errors.New("refresh token not found")
	// ErrRefreshExpired reports a refresh row past its expiry instant.
	ErrRefreshExpired = errors.New("refresh token expired")
	// ErrRefreshReuse reports redemption of a row already used or revoked.
	ErrRefreshReuse = errors.New("refresh token reuse detected")
	// ErrUserNotFound is the sentinel a [UserProvider] returns from lookups
	// when no account matches.
	ErrUserNotFound = errors.New("user not found")
	// ErrEngineNotReady is returned by Engine methods before Build completed.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// RegistrationError carries the individual reasons a [UserProvider] rejected
// account creation. It unwraps to [ErrRegistrationRejected] so callers can
// match with errors.Is.
type RegistrationError struct {
	Reasons []string
}

func (e *RegistrationError) Error() string {
	if len(e.Reasons) == 0 {
		return ErrRegistrationRejected.Error()
	}
	return fmt.Sprintf("registration rejected: %s", strings.Join(e.Reasons, "; "))
}

func (e *RegistrationError) Unwrap() error { return ErrRegistrationRejected }

// responseMessages maps business-failure sentinels to the strings surfaced in
// [AuthResult.Errors]. These are part of the caller-facing contract and must
// not change casually.
var responseMessages = map[error]string{
	ErrDuplicateUser:          "User with this email already exists.",
	ErrInvalidCredentials:     "Invalid credentials.",
	ErrInactiveAccount:        "User account is inactive.",
	ErrTokenInvalid:           "Invalid token.",
	ErrUserNotFoundOrInactive: "User not found or inactive.",
	ErrRefreshNotFound:        "Refresh token not found.",
	ErrRefreshExpired:         "Refresh token expired.",
	ErrRefreshReuse:           "Refresh token has been used or revoked.",
}

func responseMessage(err error) string {
	for sentinel, msg := range responseMessages {
		if errors.Is(err, sentinel) {
			return msg
		}
	}
	return "Authentication failed."
}
