package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"

	"github.com/resumekit/resume-auth/internal/identity"
	"github.com/resumekit/resume-auth/internal/logging"
	"github.com/resumekit/resume-auth/internal/notification"
	"github.com/resumekit/resume-auth/internal/otp"
	"github.com/resumekit/resume-auth/internal/password"
)

// CodeIssuer mints a fresh one-time code challenge for an account.
type CodeIssuer interface {
	Issue(account string) (otp.Code, error)
}

// CodeVerifier checks a submitted code against a challenge.
type CodeVerifier interface {
	Verify(secret, code string, issuedAt, now time.Time) error
}

// Deps groups the collaborators of Service.
type Deps struct {
	Users     identity.Repository
	Passwords password.Hasher
	Codes     CodeIssuer
	Verifier  CodeVerifier
	Tokens    *TokenIssuer
	Notifier  notification.Notifier
	Logger    *slog.Logger
	// Meter defaults to the global provider.
	Meter metric.MeterProvider
}

// Service runs the signup, verification, login and resend flows.
type Service struct {
	users     identity.Repository
	passwords password.Hasher
	codes     CodeIssuer
	verifier  CodeVerifier
	tokens    *TokenIssuer
	notifier  notification.Notifier
	logger    *slog.Logger
	metrics   *flowMetrics
	validate  *validator.Validate
	now       func() time.Time
}

func NewService(d Deps) (*Service, error) {
	if d.Users == nil || d.Passwords == nil || d.Codes == nil || d.Verifier == nil || d.Tokens == nil || d.Notifier == nil {
		return nil, errors.New("auth: missing dependency")
	}
	logger := d.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	m, err := newFlowMetrics(d.Meter)
	if err != nil {
		return nil, fmt.Errorf("auth metrics: %w", err)
	}
	return &Service{
		users:     d.Users,
		passwords: d.Passwords,
		codes:     d.Codes,
		verifier:  d.Verifier,
		tokens:    d.Tokens,
		notifier:  d.Notifier,
		logger:    logger,
		metrics:   m,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		now:       time.Now,
	}, nil
}

type RegisterInput struct {
	FullName      string `validate:"required"`
	Email         string `validate:"required,email"`
	CompanyName   string
	MobileNumber  string
	Password      string `validate:"required"`
	AgreedToTerms bool
}

type VerifyInput struct {
	Secret   string    `validate:"required"`
	Code     string    `validate:"required"`
	IssuedAt time.Time `validate:"required"`
	Email    string    `validate:"required"`
}

type LoginInput struct {
	Email    string `validate:"required"`
	Password string `validate:"required"`
}

// Challenge is handed back to the client, which must present it again
// together with the emailed code.
type Challenge struct {
	Secret   string
	Email    string
	IssuedAt time.Time
}

// PublicUser is the account view safe to return to clients.
type PublicUser struct {
	ID            string
	FullName      string
	Email         string
	CompanyName   string
	MobileNumber  string
	AgreedToTerms bool
}

type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      PublicUser
}

// Register creates an unverified account and emails it a code.
func (s *Service) Register(ctx context.Context, in RegisterInput) (ch Challenge, err error) {
	defer func() { s.metrics.record(ctx, "register", err) }()

	if err := s.validate.Struct(in); err != nil {
		return Challenge{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if len(in.Password) > password.MaxLength {
		return Challenge{}, fmt.Errorf("%w: password longer than %d bytes", ErrValidation, password.MaxLength)
	}
	if _, err := s.users.FindByEmail(ctx, in.Email); err == nil {
		return Challenge{}, ErrDuplicateEmail
	} else if !errors.Is(err, identity.ErrNotFound) {
		return Challenge{}, fmt.Errorf("lookup user: %w", err)
	}

	digest, err := s.passwords.Hash(in.Password)
	if err != nil {
		if errors.Is(err, password.ErrTooLong) {
			return Challenge{}, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		return Challenge{}, err
	}
	code, err := s.codes.Issue(in.Email)
	if err != nil {
		return Challenge{}, fmt.Errorf("issue code: %w", err)
	}

	user := identity.User{
		ID:            uuid.NewString(),
		FullName:      in.FullName,
		Email:         in.Email,
		CompanyName:   in.CompanyName,
		MobileNumber:  in.MobileNumber,
		AgreedToTerms: in.AgreedToTerms,
		PasswordHash:  digest,
		OTPExpiry:     code.IssuedAt.Add(otp.Validity),
		CreatedAt:     s.now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, identity.ErrDuplicateEmail) {
			return Challenge{}, ErrDuplicateEmail
		}
		return Challenge{}, fmt.Errorf("create user: %w", err)
	}
	s.logger.Info("user registered", "user_id", user.ID, "email", logging.MaskEmail(user.Email))

	if err := s.dispatch(ctx, user.Email, code); err != nil {
		return Challenge{}, err
	}
	return Challenge{Secret: code.Secret, Email: user.Email, IssuedAt: code.IssuedAt}, nil
}

// VerifyOTP marks the account verified when the code matches the challenge.
// Verifying an already verified account succeeds again.
func (s *Service) VerifyOTP(ctx context.Context, in VerifyInput) (err error) {
	defer func() { s.metrics.record(ctx, "verify", err) }()

	if err := s.validate.Struct(in); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := s.verifier.Verify(in.Secret, in.Code, in.IssuedAt, s.now()); err != nil {
		if errors.Is(err, otp.ErrExpired) {
			return ErrExpiredOTP
		}
		return ErrInvalidOTP
	}
	ok, err := s.users.MarkVerified(ctx, in.Email)
	if err != nil {
		return fmt.Errorf("mark verified: %w", err)
	}
	if !ok {
		return ErrUserNotFound
	}
	s.logger.Info("email verified", "email", logging.MaskEmail(in.Email))
	return nil
}

// Login checks credentials of a verified account and issues a session token.
func (s *Service) Login(ctx context.Context, in LoginInput) (res LoginResult, err error) {
	defer func() { s.metrics.record(ctx, "login", err) }()

	if err := s.validate.Struct(in); err != nil {
		return LoginResult{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	user, err := s.findByEmail(ctx, in.Email)
	if err != nil {
		return LoginResult{}, err
	}
	if !user.IsVerified {
		return LoginResult{}, ErrAccountNotVerified
	}
	if !s.passwords.Compare(user.PasswordHash, in.Password) {
		return LoginResult{}, ErrInvalidCredentials
	}
	token, exp, err := s.tokens.Issue(user)
	if err != nil {
		return LoginResult{}, err
	}
	s.logger.Info("user logged in", "user_id", user.ID)
	return LoginResult{Token: token, ExpiresAt: exp, User: publicUser(user)}, nil
}

// ResendOTP issues a new challenge for an unverified account. Earlier
// challenges stay usable until they expire.
func (s *Service) ResendOTP(ctx context.Context, email string) (ch Challenge, err error) {
	defer func() { s.metrics.record(ctx, "resend", err) }()

	if email == "" {
		return Challenge{}, fmt.Errorf("%w: email is required", ErrValidation)
	}
	user, err := s.findByEmail(ctx, email)
	if err != nil {
		return Challenge{}, err
	}
	if user.IsVerified {
		return Challenge{}, ErrAlreadyVerified
	}
	code, err := s.codes.Issue(user.Email)
	if err != nil {
		return Challenge{}, fmt.Errorf("issue code: %w", err)
	}
	if err := s.users.UpdateOTPExpiry(ctx, user.Email, code.IssuedAt.Add(otp.Validity)); err != nil {
		s.logger.Warn("otp expiry not updated", "user_id", user.ID, "error", err)
	}
	if err := s.dispatch(ctx, user.Email, code); err != nil {
		return Challenge{}, err
	}
	return Challenge{Secret: code.Secret, Email: user.Email, IssuedAt: code.IssuedAt}, nil
}

// Profile returns the public view of the account with id userID.
func (s *Service) Profile(ctx context.Context, userID string) (PublicUser, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return PublicUser{}, ErrUserNotFound
		}
		return PublicUser{}, fmt.Errorf("lookup user: %w", err)
	}
	return publicUser(user), nil
}

func (s *Service) findByEmail(ctx context.Context, email string) (identity.User, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return identity.User{}, ErrUserNotFound
		}
		return identity.User{}, fmt.Errorf("lookup user: %w", err)
	}
	return user, nil
}

func (s *Service) dispatch(ctx context.Context, email string, code otp.Code) error {
	if err := s.notifier.Send(ctx, notification.OTPMessage(email, code.Passcode, otp.Validity)); err != nil {
		s.logger.Error("otp dispatch failed", "email", logging.MaskEmail(email), "error", err)
		return fmt.Errorf("send otp: %w", err)
	}
	return nil
}

func publicUser(u identity.User) PublicUser {
	return PublicUser{
		ID:            u.ID,
		FullName:      u.FullName,
		Email:         u.Email,
		CompanyName:   u.CompanyName,
		MobileNumber:  u.MobileNumber,
		AgreedToTerms: u.AgreedToTerms,
	}
}
