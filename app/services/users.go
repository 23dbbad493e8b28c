package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/escomrepo/users-service/app/config"
	"github.com/escomrepo/users-service/app/dto"
	"github.com/escomrepo/users-service/app/email"
	appErrors "github.com/escomrepo/users-service/app/errors"
	"github.com/escomrepo/users-service/app/logger"
	"github.com/escomrepo/users-service/app/metrics"
	"github.com/escomrepo/users-service/app/models"
	"github.com/escomrepo/users-service/app/outbox"
	"github.com/escomrepo/users-service/app/store"
	"github.com/rs/zerolog"
)

// Mailer is the minimal capability UserService needs to dispatch codes.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// UserService orchestrates signup, signin, code verification and the CRUD
// surface. It never talks to the external author registry directly; role
// transitions only append outbox events, which the dispatcher drains on its
// own schedule.
type UserService struct {
	store  store.Storage
	mailer Mailer
	issuer *CodeIssuer
	cfg    config.App
}

func NewUserService(store store.Storage, mailer Mailer, issuer *CodeIssuer, cfg config.App) *UserService {
	return &UserService{
		store:  store,
		mailer: mailer,
		issuer: issuer,
		cfg:    cfg,
	}
}

// SignUp registers a new account, or degrades to a resend when the email
// already belongs to an unverified user. A verified duplicate is a conflict.
func (s *UserService) SignUp(ctx context.Context, req dto.SignUpRequest) (*dto.SignUpData, string, *appErrors.AppError) {
	existing, err := s.store.Users.GetByEmail(ctx, req.Email)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, "", appErrors.NewInternal("database error while checking email")
	}

	if existing != nil {
		if existing.IsEmailVerified {
			return nil, "", appErrors.NewConflict("a user with this email already exists")
		}
		// Unverified duplicate: invalidate the old code, mail a fresh one.
		if appErr := s.issueAndSendCode(ctx, existing, email.KindVerification); appErr != nil {
			return nil, "", appErr
		}
		return &dto.SignUpData{ID: existing.ID},
			"a new verification code has been sent to your email", nil
	}

	role := models.RoleGeneral
	if strings.HasSuffix(strings.ToLower(req.Email), s.cfg.StaffDomain) {
		// Staff accounts are promoted optimistically; the outbox reconciles
		// the external registry afterwards.
		role = models.RoleAuthor
	}

	user := &models.User{
		Name:            req.Name,
		LastNameP:       req.LastNameP,
		LastNameM:       req.LastNameM,
		Email:           req.Email,
		Boleta:          req.Boleta,
		Role:            role,
		IsEmailVerified: false,
	}
	if err := s.store.Users.Create(ctx, user); err != nil {
		return nil, "", appErrors.NewInternal("error creating user")
	}

	if role == models.RoleAuthor {
		if appErr := s.appendRoleEvent(ctx, user, models.RoleGeneral, role); appErr != nil {
			return nil, "", appErr
		}
	}

	if appErr := s.issueAndSendCode(ctx, user, email.KindVerification); appErr != nil {
		// The user row is already committed; a retry degrades to a resend.
		return nil, "", appErr
	}

	metrics.SignupsTotal.Inc()
	return &dto.SignUpData{ID: user.ID},
		"a verification code has been sent to your email", nil
}

// SignIn starts a session attempt for a verified account by mailing a
// confirmation code. Unknown emails and unverified accounts never receive a
// code here.
func (s *UserService) SignIn(ctx context.Context, req dto.SignInRequest) (*dto.SignInData, *appErrors.AppError) {
	user, err := s.store.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Deliberately indistinct from a bad code: no email enumeration.
			return nil, appErrors.NewUnauthorized("invalid credentials")
		}
		return nil, appErrors.NewInternal("error getting user by email")
	}

	if !user.IsEmailVerified {
		return nil, appErrors.NewUnauthorized("account not verified; complete email verification before signing in")
	}

	if appErr := s.issueAndSendCode(ctx, user, email.KindSigninConfirmation); appErr != nil {
		return nil, appErr
	}

	metrics.SigninsTotal.Inc()
	return &dto.SignInData{ID: user.ID}, nil
}

// VerifyCode consumes a code and issues a session token. The same operation
// completes a registration and confirms a signin; the user's current
// verification flag is the only discriminator.
func (s *UserService) VerifyCode(ctx context.Context, req dto.VerifyCodeRequest) (*dto.SessionData, *appErrors.AppError) {
	user, err := s.store.Users.GetByID(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewNotFound("user")
		}
		return nil, appErrors.NewInternal("error loading user")
	}

	code, err := s.store.Codes.Lookup(ctx, req.Code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewNotFound("verification code")
		}
		return nil, appErrors.NewInternal("error looking up verification code")
	}

	// The code stays in place here: a caller guessing associations must not
	// be able to burn someone else's code.
	if code.UserID != user.ID {
		return nil, appErrors.NewUnauthorized("verification code does not belong to this user")
	}

	if s.issuer.Expired(code.ExpiresAt) {
		if err := s.store.Codes.Invalidate(ctx, code.Code); err != nil {
			log := getLoggerFromContext(ctx)
			log.Error().Err(err).
				Int64("user_id", user.ID).
				Msg("failed to delete expired verification code")
		}
		return nil, appErrors.NewExpired("verification code expired; request a new one")
	}

	if !user.IsEmailVerified {
		// Registration-completion path.
		if err := s.store.Users.SetEmailVerified(ctx, user.ID, true); err != nil {
			return nil, appErrors.NewInternal("failed to update verification status")
		}
		user.IsEmailVerified = true
	}

	// Single use: the code dies with this attempt.
	if err := s.store.Codes.Invalidate(ctx, code.Code); err != nil {
		return nil, appErrors.NewInternal("failed to invalidate verification code")
	}

	expiresAt := s.issuer.SessionExpiry()
	token, err := GenerateSessionToken(user, expiresAt)
	if err != nil {
		return nil, appErrors.NewInternal("error generating session token")
	}

	metrics.VerificationsTotal.Inc()
	return &dto.SessionData{
		AccessToken: token,
		ExpiresAt:   expiresAt.Unix(),
	}, nil
}

// List returns all users.
func (s *UserService) List(ctx context.Context) ([]dto.UserResponse, *appErrors.AppError) {
	users, err := s.store.Users.GetAll(ctx)
	if err != nil {
		return nil, appErrors.NewInternal("error listing users")
	}
	out := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		out = append(out, toUserResponse(&users[i]))
	}
	return out, nil
}

// Get returns a single user by id.
func (s *UserService) Get(ctx context.Context, id int64) (*dto.UserResponse, *appErrors.AppError) {
	user, err := s.store.Users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewNotFound("user")
		}
		return nil, appErrors.NewInternal("error loading user")
	}
	resp := toUserResponse(user)
	return &resp, nil
}

// Update applies a partial update. A role change is classified once and, when
// it crosses the author boundary in either direction, enqueues the matching
// integration event. Local state is authoritative: the role flips now, the
// registry catches up later.
func (s *UserService) Update(ctx context.Context, id int64, req dto.UpdateUserRequest) (*dto.UserResponse, *appErrors.AppError) {
	user, err := s.store.Users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewNotFound("user")
		}
		return nil, appErrors.NewInternal("error loading user")
	}

	if req.Email != nil && !strings.EqualFold(*req.Email, user.Email) {
		other, err := s.store.Users.GetByEmail(ctx, *req.Email)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewInternal("database error while checking email")
		}
		if other != nil {
			return nil, appErrors.NewConflict("a user with this email already exists")
		}
		user.Email = *req.Email
	}

	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.LastNameP != nil {
		user.LastNameP = *req.LastNameP
	}
	if req.LastNameM != nil {
		user.LastNameM = *req.LastNameM
	}
	if req.Boleta != nil {
		user.Boleta = *req.Boleta
	}

	prevRole := user.Role
	if req.Role != nil {
		user.Role = *req.Role
	}

	if err := s.store.Users.Update(ctx, user); err != nil {
		return nil, appErrors.NewInternal("error updating user")
	}

	if ClassifyTransition(prevRole, user.Role) != TransitionNone {
		if appErr := s.appendRoleEvent(ctx, user, prevRole, user.Role); appErr != nil {
			return nil, appErr
		}
	}

	resp := toUserResponse(user)
	return &resp, nil
}

// Delete removes a user. Role transitions are the only outbox trigger, so a
// plain delete enqueues nothing.
func (s *UserService) Delete(ctx context.Context, id int64) *appErrors.AppError {
	if _, err := s.store.Users.GetByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.NewNotFound("user")
		}
		return appErrors.NewInternal("error loading user")
	}
	if err := s.store.Users.Delete(ctx, id); err != nil {
		return appErrors.NewInternal("error deleting user")
	}
	return nil
}

// issueAndSendCode replaces any live code for the user in one transaction and
// mails the new one.
func (s *UserService) issueAndSendCode(ctx context.Context, user *models.User, kind email.Kind) *appErrors.AppError {
	code, err := s.issuer.GenerateCode()
	if err != nil {
		return appErrors.NewInternal("error generating verification code")
	}

	if err := s.store.Codes.Replace(ctx, user.ID, code, s.issuer.CodeExpiry()); err != nil {
		return appErrors.NewInternal("error storing verification code")
	}

	subject, body := email.Render(kind, email.CodeMail{
		Name:     user.Name,
		LastName: user.LastNameP,
		Email:    user.Email,
		Boleta:   user.Boleta,
		Code:     FormatCode(code),
	})
	if err := s.mailer.Send(ctx, user.Email, subject, body); err != nil {
		metrics.EmailsFailedTotal.Inc()
		log := getLoggerFromContext(ctx)
		log.Error().Err(err).
			Int64("user_id", user.ID).
			Str("email", user.Email).
			Msg("failed to send verification code email")
		return appErrors.NewInternal("error sending verification email")
	}

	metrics.EmailsSentTotal.Inc()
	return nil
}

// appendRoleEvent snapshots the user into the outbox so the dispatcher can
// reconcile the external registry later.
func (s *UserService) appendRoleEvent(ctx context.Context, user *models.User, prevRole, newRole string) *appErrors.AppError {
	eventType := models.EventCreateAuthor
	if ClassifyTransition(prevRole, newRole) == TransitionRevokeAuthor {
		eventType = models.EventDeleteLink
	}

	payload, err := outbox.EncodeUserEvent(outbox.UserEvent{
		UserID:    user.ID,
		Email:     user.Email,
		Name:      user.Name,
		LastNameP: user.LastNameP,
		LastNameM: user.LastNameM,
		PrevRole:  prevRole,
		NewRole:   newRole,
	})
	if err != nil {
		return appErrors.NewInternal("error encoding integration event")
	}

	if err := s.store.Outbox.Append(ctx, eventType, payload, user.ID); err != nil {
		return appErrors.NewInternal("error enqueueing integration event")
	}
	return nil
}

func toUserResponse(user *models.User) dto.UserResponse {
	return dto.UserResponse{
		ID:              user.ID,
		Name:            user.Name,
		LastNameP:       user.LastNameP,
		LastNameM:       user.LastNameM,
		Email:           user.Email,
		Boleta:          user.Boleta,
		Role:            user.Role,
		IsEmailVerified: user.IsEmailVerified,
		CreatedAt:       user.CreatedAt.Format("2006-01-02 15:04:05"),
		UpdatedAt:       user.UpdatedAt.Format("2006-01-02 15:04:05"),
	}
}

// getLoggerFromContext retrieves logger from context or returns global logger
func getLoggerFromContext(ctx context.Context) zerolog.Logger {
	if log := zerolog.Ctx(ctx); log.GetLevel() != zerolog.Disabled {
		return *log
	}
	return logger.Logger
}
