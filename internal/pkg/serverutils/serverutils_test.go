package serverutils

import (
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionToken(t *testing.T) {
	token, err := IssueSessionToken("secret", "sess-1", time.Hour)
	require.NoError(t, err)

	id, err := ParseSessionToken("secret", token)
	require.NoError(t, err)
	assert.Equal(t, "sess-1", id)

	_, err = ParseSessionToken("other", token)
	assert.Error(t, err)

	expired, err := IssueSessionToken("secret", "sess-1", -time.Minute)
	require.NoError(t, err)
	_, err = ParseSessionToken("secret", expired)
	assert.Error(t, err)
}

func TestSessionMiddleware(t *testing.T) {
	app := fiber.New()
	app.Get("/whoami", SessionMiddleware("secret"), func(ctx *fiber.Ctx) error {
		return ctx.SendString(ctx.Locals(SessionLocal).(string))
	})
	token, err := IssueSessionToken("secret", "sess-1", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name   string
		target string
		header string
		status int
	}{
		{name: "bearer", target: "/whoami", header: "Bearer " + token, status: 200},
		{name: "query token", target: "/whoami?token=" + token, status: 200},
		{name: "missing", target: "/whoami", status: 401},
		{name: "garbage", target: "/whoami", header: "Bearer nope", status: 401},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
			if tt.status == 200 {
				body, _ := io.ReadAll(resp.Body)
				assert.Equal(t, "sess-1", string(body))
			}
		})
	}
}

func TestValidateRequest(t *testing.T) {
	type req struct {
		Email string `validate:"required,email"`
	}
	assert.NoError(t, ValidateRequest(req{Email: "a@b.de"}))

	err := ValidateRequest(req{})
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "required", ve.Fields["Email"])
}

func TestErrorHandlerMiddleware(t *testing.T) {
	errBusy := errors.New("busy")
	app := fiber.New()
	app.Use(ErrorHandlerMiddleware(func(err error) int {
		if errors.Is(err, errBusy) {
			return fiber.StatusConflict
		}
		return 0
	}))
	app.Get("/busy", func(*fiber.Ctx) error { return errBusy })
	app.Get("/fiber", func(*fiber.Ctx) error { return fiber.ErrNotFound })
	app.Get("/unknown", func(*fiber.Ctx) error { return errors.New("boom") })

	tests := map[string]int{"/busy": 409, "/fiber": 404, "/unknown": 500}
	for path, status := range tests {
		resp, err := app.Test(httptest.NewRequest("GET", path, nil))
		require.NoError(t, err)
		assert.Equal(t, status, resp.StatusCode, path)

		var body Response
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.False(t, body.Success)
		assert.Equal(t, status, body.Code)
	}
}
