package flows

import "context"

// RegisterFailureKind classifies register flow failures for root-level mapping.
type RegisterFailureKind int

const (
	RegisterFailureNone RegisterFailureKind = iota
	RegisterFailureDuplicate
	RegisterFailureLookup
	RegisterFailureRejected
	RegisterFailureCreate
	RegisterFailureRole
	RegisterFailureIssue
)

// RegisterResult carries either the issued token pair or failure metadata.
type RegisterResult struct {
	Failure      RegisterFailureKind
	Err          error
	UserID       string
	JTI          string
	AccessToken  string
	RefreshToken string
}

// RegisterInput is the caller-supplied account data.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// RegisterDeps captures register flow dependencies.
type RegisterDeps struct {
	LookupByEmail func(ctx context.Context, email string) (User, bool, error)
	CreateUser    func(ctx context.Context, input RegisterInput) (User, error)
	IsRejection   func(error) bool
	AssignRole    func(ctx context.Context, userID, role string) error
	DefaultRole   string
	Issuance      Issuance
}

// RunRegister creates the account, assigns the default role, and issues the
// first token pair. New accounts start active.
func RunRegister(ctx context.Context, input RegisterInput, deps RegisterDeps) RegisterResult {
	_, found, err := deps.LookupByEmail(ctx, input.Email)
	if err != nil {
		return RegisterResult{
			Failure: RegisterFailureLookup,
			Err:     err,
		}
	}
	if found {
		return RegisterResult{
			Failure: RegisterFailureDuplicate,
		}
	}

	user, err := deps.CreateUser(ctx, input)
	if err != nil {
		if deps.IsRejection != nil && deps.IsRejection(err) {
			return RegisterResult{
				Failure: RegisterFailureRejected,
				Err:     err,
			}
		}
		return RegisterResult{
			Failure: RegisterFailureCreate,
			Err:     err,
		}
	}

	if err := deps.AssignRole(ctx, user.ID, deps.DefaultRole); err != nil {
		return RegisterResult{
			Failure: RegisterFailureRole,
			Err:     err,
			UserID:  user.ID,
		}
	}

	access, refresh, jti, _, err := deps.Issuance.IssuePair(ctx, user)
	if err != nil {
		return RegisterResult{
			Failure: RegisterFailureIssue,
			Err:     err,
			UserID:  user.ID,
		}
	}

	return RegisterResult{
		Failure:      RegisterFailureNone,
		UserID:       user.ID,
		JTI:          jti,
		AccessToken:  access,
		RefreshToken: refresh,
	}
}
