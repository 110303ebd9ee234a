package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/resumekit/resume-auth/internal/auth"
)

// AuthMiddleware holds the per-route guards of the auth endpoints. Nil
// entries are skipped. On signup, idempotent replays are answered before the
// rate limiter so they do not spend the caller's budget.
type AuthMiddleware struct {
	Idempotency fiber.Handler
	Signup      fiber.Handler
	Login       fiber.Handler
	Resend      fiber.Handler
	Session     fiber.Handler
}

// RegisterAuthRoutes wires authentication endpoints.
func RegisterAuthRoutes(r fiber.Router, h *auth.Handler, mw AuthMiddleware) {
	group := r.Group("/auth")
	group.Post("/signup", chain(h.Signup, mw.Idempotency, mw.Signup)...)
	group.Patch("/verify-otp", h.VerifyOTP)
	group.Post("/login", chain(h.Login, mw.Login)...)
	group.Post("/resend-otp", chain(h.ResendOTP, mw.Resend)...)
	group.Get("/me", chain(h.Me, mw.Session)...)
}

func chain(h fiber.Handler, guards ...fiber.Handler) []fiber.Handler {
	out := make([]fiber.Handler, 0, len(guards)+1)
	for _, g := range guards {
		if g != nil {
			out = append(out, g)
		}
	}
	return append(out, h)
}
