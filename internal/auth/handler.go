package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/resumekit/resume-auth/internal/logging"
	"github.com/resumekit/resume-auth/internal/response"
)

// Handler exposes the auth flows over HTTP.
type Handler struct {
	svc    *Service
	logger *slog.Logger
}

func NewHandler(svc *Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Handler{svc: svc, logger: logger}
}

type signupRequest struct {
	FullName      string `json:"full_name"`
	Email         string `json:"email"`
	CompanyName   string `json:"company_name"`
	MobileNumber  string `json:"mobile_number"`
	Password      string `json:"password"`
	AgreedToTerms bool   `json:"agreed_to_terms"`
}

type verifyRequest struct {
	Secret string `json:"secret"`
	OTP    otpCode `json:"otp"`
	// Timestamp is the challenge issuance time in Unix milliseconds.
	Timestamp int64  `json:"timestamp"`
	Email     string `json:"email"`
}

// otpCode accepts the code as a JSON string or number. Numbers lose their
// leading zeros, so they are padded back to six digits.
type otpCode string

func (o *otpCode) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*o = otpCode(s)
		return nil
	}
	if string(b) == "null" {
		return nil
	}
	n, err := strconv.ParseUint(string(b), 10, 32)
	if err != nil {
		return fmt.Errorf("otp must be a string or a non-negative integer: %w", err)
	}
	*o = otpCode(fmt.Sprintf("%06d", n))
	return nil
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type resendRequest struct {
	Email string `json:"email"`
}

type challengeResponse struct {
	Secret    string `json:"secret"`
	Email     string `json:"email"`
	Timestamp int64  `json:"timestamp"`
}

type userResponse struct {
	ID            string `json:"id"`
	FullName      string `json:"full_name"`
	Email         string `json:"email"`
	CompanyName   string `json:"company_name"`
	MobileNumber  string `json:"mobile_number"`
	AgreedToTerms bool   `json:"agreed_to_terms"`
}

type loginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      userResponse `json:"user"`
}

// Signup registers an account and emails it a verification code.
func (h *Handler) Signup(c *fiber.Ctx) error {
	var req signupRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "Invalid request body")
	}
	ch, err := h.svc.Register(c.UserContext(), RegisterInput{
		FullName:      req.FullName,
		Email:         req.Email,
		CompanyName:   req.CompanyName,
		MobileNumber:  req.MobileNumber,
		Password:      req.Password,
		AgreedToTerms: req.AgreedToTerms,
	})
	if err != nil {
		return h.fail(c, err, "Please provide full_name, email and password")
	}
	return response.OK(c, "User registered successfully. OTP sent to your email", toChallenge(ch))
}

// VerifyOTP checks a code against the challenge issued at signup or resend.
func (h *Handler) VerifyOTP(c *fiber.Ctx) error {
	var req verifyRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "Invalid request body")
	}
	in := VerifyInput{Secret: req.Secret, Code: string(req.OTP), Email: req.Email}
	if req.Timestamp != 0 {
		in.IssuedAt = time.UnixMilli(req.Timestamp)
	}
	if err := h.svc.VerifyOTP(c.UserContext(), in); err != nil {
		return h.fail(c, err, "Please provide secret, otp, timestamp, and email")
	}
	return response.OK(c, "OTP Verified successfully")
}

// Login exchanges credentials for a session token.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "Invalid request body")
	}
	res, err := h.svc.Login(c.UserContext(), LoginInput{Email: req.Email, Password: req.Password})
	if err != nil {
		return h.fail(c, err, "Please provide email and password")
	}
	return response.OK(c, "Login successful", loginResponse{
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt.UTC(),
		User:      toUser(res.User),
	})
}

// ResendOTP issues a fresh challenge for an unverified account.
func (h *Handler) ResendOTP(c *fiber.Ctx) error {
	var req resendRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "Invalid request body")
	}
	ch, err := h.svc.ResendOTP(c.UserContext(), req.Email)
	if err != nil {
		return h.fail(c, err, "Please provide email")
	}
	return response.OK(c, "OTP resent successfully to your email", toChallenge(ch))
}

// Me returns the profile of the authenticated caller.
func (h *Handler) Me(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	if userID == "" {
		return fiber.NewError(http.StatusUnauthorized, "Unauthorized")
	}
	u, err := h.svc.Profile(c.UserContext(), userID)
	if err != nil {
		return h.fail(c, err, "")
	}
	return response.OK(c, "Profile fetched successfully", toUser(u))
}

func (h *Handler) fail(c *fiber.Ctx, err error, validationMsg string) error {
	status, msg := classify(err)
	if errors.Is(err, ErrValidation) && validationMsg != "" {
		msg = validationMsg
	}
	if status == http.StatusInternalServerError {
		h.logger.Error("auth request failed", "method", c.Method(), "path", c.Path(), "error", err)
	}
	return response.Fail(c, status, msg)
}

// classify maps a flow error to its status and client message.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest, "Invalid request"
	case errors.Is(err, ErrDuplicateEmail):
		return http.StatusBadRequest, "Email Already Exists"
	case errors.Is(err, ErrUserNotFound):
		return http.StatusNotFound, "User not found"
	case errors.Is(err, ErrAccountNotVerified):
		return http.StatusBadRequest, "Please verify your email first"
	case errors.Is(err, ErrInvalidCredentials):
		return http.StatusBadRequest, "Invalid credentials"
	case errors.Is(err, ErrExpiredOTP):
		return http.StatusBadRequest, "OTP has expired"
	case errors.Is(err, ErrInvalidOTP):
		return http.StatusBadRequest, "Invalid OTP"
	case errors.Is(err, ErrAlreadyVerified):
		return http.StatusBadRequest, "Email is already verified"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

func toChallenge(ch Challenge) challengeResponse {
	return challengeResponse{Secret: ch.Secret, Email: ch.Email, Timestamp: ch.IssuedAt.UnixMilli()}
}

func toUser(u PublicUser) userResponse {
	return userResponse{
		ID:            u.ID,
		FullName:      u.FullName,
		Email:         u.Email,
		CompanyName:   u.CompanyName,
		MobileNumber:  u.MobileNumber,
		AgreedToTerms: u.AgreedToTerms,
	}
}
