package provider

import (
	"context"
	"strings"
	"sync"
	"unicode"

	"github.com/google/uuid"

	"github.com/mwalcott3/authgate"
	"github.com/mwalcott3/authgate/password"
)

const minPasswordLength = 8

type account struct {
	user  authgate.UserRecord
	hash  string
	roles []string
}

// Memory is an in-memory [authgate.UserProvider] with argon2id password
// hashing. Safe for concurrent use.
type Memory struct {
	mu      sync.RWMutex
	hasher  *password.Argon2
	byEmail map[string]*account
	byID    map[string]*account
}

func NewMemory() (*Memory, error) {
	hasher, err := password.NewArgon2(password.DefaultConfig())
	if err != nil {
		return nil, err
	}

	return &Memory{
		hasher:  hasher,
		byEmail: make(map[string]*account),
		byID:    make(map[string]*account),
	}, nil
}

func (m *Memory) GetUserByEmail(ctx context.Context, email string) (authgate.UserRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	acct, ok := m.byEmail[normalizeEmail(email)]
	if !ok {
		return authgate.UserRecord{}, authgate.ErrUserNotFound
	}
	return acct.user, nil
}

func (m *Memory) GetUserByID(ctx context.Context, userID string) (authgate.UserRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	acct, ok := m.byID[userID]
	if !ok {
		return authgate.UserRecord{}, authgate.ErrUserNotFound
	}
	return acct.user, nil
}

func (m *Memory) CreateUser(ctx context.Context, input authgate.CreateUserInput) (authgate.UserRecord, error) {
	if reasons := validateInput(input); len(reasons) > 0 {
		return authgate.UserRecord{}, &authgate.RegistrationError{Reasons: reasons}
	}

	hash, err := m.hasher.Hash(input.Password)
	if err != nil {
		return authgate.UserRecord{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	email := normalizeEmail(input.Email)
	if _, exists := m.byEmail[email]; exists {
		return authgate.UserRecord{}, authgate.ErrDuplicateUser
	}

	acct := &account{
		user: authgate.UserRecord{
			ID:        uuid.NewString(),
			Email:     email,
			FirstName: input.FirstName,
			LastName:  input.LastName,
			Active:    input.Active,
		},
		hash: hash,
	}
	m.byEmail[email] = acct
	m.byID[acct.user.ID] = acct

	return acct.user, nil
}

func (m *Memory) VerifyPassword(ctx context.Context, userID, pass string) (bool, error) {
	m.mu.RLock()
	acct, ok := m.byID[userID]
	m.mu.RUnlock()
	if !ok {
		return false, authgate.ErrUserNotFound
	}

	return m.hasher.Verify(pass, acct.hash)
}

func (m *Memory) AddToRole(ctx context.Context, userID, role string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	acct, ok := m.byID[userID]
	if !ok {
		return authgate.ErrUserNotFound
	}

	for _, existing := range acct.roles {
		if existing == role {
			return nil
		}
	}
	acct.roles = append(acct.roles, role)

	return nil
}

func (m *Memory) GetRoles(ctx context.Context, userID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	acct, ok := m.byID[userID]
	if !ok {
		return nil, authgate.ErrUserNotFound
	}

	return append([]string(nil), acct.roles...), nil
}

// SetActive flips the active flag on an account. Exists so operators (and
// tests) can deactivate accounts; the engine itself never calls it.
func (m *Memory) SetActive(userID string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	acct, ok := m.byID[userID]
	if !ok {
		return authgate.ErrUserNotFound
	}
	acct.user.Active = active

	return nil
}

// Seed creates the bootstrap admin account with the Admin role when no
// account exists for adminEmail. Idempotent.
func (m *Memory) Seed(ctx context.Context, adminEmail, adminPassword string) error {
	if _, err := m.GetUserByEmail(ctx, adminEmail); err == nil {
		return nil
	}

	admin, err := m.CreateUser(ctx, authgate.CreateUserInput{
		Email:     adminEmail,
		Password:  adminPassword,
		FirstName: "Admin",
		LastName:  "User",
		Active:    true,
	})
	if err != nil {
		return err
	}

	return m.AddToRole(ctx, admin.ID, "Admin")
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateInput(input authgate.CreateUserInput) []string {
	var reasons []string

	email := normalizeEmail(input.Email)
	at := strings.Index(email, "@")
	if email == "" || at <= 0 || at == len(email)-1 || strings.Count(email, "@") != 1 {
		reasons = append(reasons, "Email is invalid.")
	}

	if len(input.Password) < minPasswordLength {
		reasons = append(reasons, "Passwords must be at least 8 characters.")
	}

	var hasUpper, hasLower, hasDigit bool
	for _, r := range input.Password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasUpper {
		reasons = append(reasons, "Passwords must have at least one uppercase ('A'-'Z').")
	}
	if !hasLower {
		reasons = append(reasons, "Passwords must have at least one lowercase ('a'-'z').")
	}
	if !hasDigit {
		reasons = append(reasons, "Passwords must have at least one digit ('0'-'9').")
	}

	return reasons
}
