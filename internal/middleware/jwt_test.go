package middleware

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/resumekit/resume-auth/internal/auth"
	"github.com/resumekit/resume-auth/internal/identity"
)

func jwtApp(t *testing.T) (*fiber.App, *auth.TokenIssuer) {
	t.Helper()
	tokens, err := auth.NewTokenIssuer("test-secret", "resume-auth", time.Hour)
	if err != nil {
		t.Fatalf("token issuer: %v", err)
	}
	app := fiber.New()
	app.Get("/me", JWTAuth(tokens), func(c *fiber.Ctx) error {
		return c.SendString(c.Locals("user_id").(string))
	})
	return app, tokens
}

func TestJWTAuthAcceptsValidToken(t *testing.T) {
	app, tokens := jwtApp(t)
	token, _, err := tokens.Issue(identity.User{ID: "user-1", Email: "a@x.com"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	req := httptest.NewRequest(fiber.MethodGet, "/me", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected %d got %d", fiber.StatusOK, resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "user-1" {
		t.Fatalf("unexpected user id %q", body)
	}
}

func TestJWTAuthRejects(t *testing.T) {
	app, _ := jwtApp(t)
	for name, header := range map[string]string{
		"missing": "",
		"scheme":  "Basic abc",
		"garbage": "Bearer not-a-token",
	} {
		req := httptest.NewRequest(fiber.MethodGet, "/me", nil)
		if header != "" {
			req.Header.Set(fiber.HeaderAuthorization, header)
		}
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("%s: app.Test: %v", name, err)
		}
		if resp.StatusCode != fiber.StatusUnauthorized {
			t.Fatalf("%s: expected %d got %d", name, fiber.StatusUnauthorized, resp.StatusCode)
		}
	}
}
