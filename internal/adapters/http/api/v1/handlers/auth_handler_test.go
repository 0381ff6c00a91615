package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/contacts-api/internal/domain"
	"github.com/example/contacts-api/internal/usecase"
	res "github.com/example/contacts-api/pkg/http"
)

type mockAuthService struct {
	registerFn func(ctx context.Context, traceID, email, username, password string) (*domain.User, error)
	loginFn    func(ctx context.Context, traceID, email, password string) (*usecase.Tokens, error)
	refreshFn  func(ctx context.Context, traceID, refreshToken string) (*usecase.Tokens, error)
	currentFn  func(ctx context.Context, accessToken string) (*domain.User, error)
	logoutFn   func(ctx context.Context, traceID, accessToken string) error
	confirmFn  func(ctx context.Context, traceID, tokenStr string) (bool, error)
	resendFn   func(ctx context.Context, traceID, email string) (bool, error)
	forgotFn   func(ctx context.Context, traceID, email string) error
	validateFn func(ctx context.Context, tokenStr string) error
	resetFn    func(ctx context.Context, traceID, tokenStr, newPassword, confirmPassword string) error
}

func (m *mockAuthService) Register(ctx context.Context, traceID, email, username, password string) (*domain.User, error) {
	return m.registerFn(ctx, traceID, email, username, password)
}

func (m *mockAuthService) Login(ctx context.Context, traceID, email, password string) (*usecase.Tokens, error) {
	return m.loginFn(ctx, traceID, email, password)
}

func (m *mockAuthService) Refresh(ctx context.Context, traceID, refreshToken string) (*usecase.Tokens, error) {
	return m.refreshFn(ctx, traceID, refreshToken)
}

func (m *mockAuthService) CurrentUser(ctx context.Context, accessToken string) (*domain.User, error) {
	return m.currentFn(ctx, accessToken)
}

func (m *mockAuthService) Logout(ctx context.Context, traceID, accessToken string) error {
	return m.logoutFn(ctx, traceID, accessToken)
}

func (m *mockAuthService) ConfirmEmail(ctx context.Context, traceID, tokenStr string) (bool, error) {
	return m.confirmFn(ctx, traceID, tokenStr)
}

func (m *mockAuthService) ResendConfirmation(ctx context.Context, traceID, email string) (bool, error) {
	return m.resendFn(ctx, traceID, email)
}

func (m *mockAuthService) ForgotPassword(ctx context.Context, traceID, email string) error {
	return m.forgotFn(ctx, traceID, email)
}

func (m *mockAuthService) ValidateResetToken(ctx context.Context, tokenStr string) error {
	return m.validateFn(ctx, tokenStr)
}

func (m *mockAuthService) ResetPassword(ctx context.Context, traceID, tokenStr, newPassword, confirmPassword string) error {
	return m.resetFn(ctx, traceID, tokenStr, newPassword, confirmPassword)
}

func jsonRequest(t *testing.T, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) res.ErrorResponse {
	t.Helper()
	var body res.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body struct {
		Data map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Data
}

func TestSignup(t *testing.T) {
	svc := &mockAuthService{
		registerFn: func(_ context.Context, _, email, username, _ string) (*domain.User, error) {
			return &domain.User{ID: 1, Email: email, Username: username}, nil
		},
	}
	h := NewAuthHandler(svc)

	c, rec := jsonRequest(t, http.MethodPost, "/auth/signup", `{"email":"a@x.com","username":"alice1","password":"secret1"}`)
	require.NoError(t, h.Signup(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	data := decodeData(t, rec)
	assert.Equal(t, "User successfully created. Check your email for confirmation.", data["detail"])
	user, ok := data["user"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "a@x.com", user["email"])
	_, leaked := user["password_hash"]
	assert.False(t, leaked)
}

func TestSignupValidation(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	cases := []struct {
		name string
		body string
	}{
		{"bad email", `{"email":"not-an-email","username":"alice1","password":"secret1"}`},
		{"short username", `{"email":"a@x.com","username":"ab","password":"secret1"}`},
		{"short password", `{"email":"a@x.com","username":"alice1","password":"abc"}`},
		{"long password", `{"email":"a@x.com","username":"alice1","password":"` + strings.Repeat("x", 21) + `"}`},
		{"malformed json", `{"email":`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, rec := jsonRequest(t, http.MethodPost, "/auth/signup", tc.body)
			require.NoError(t, h.Signup(c))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "bad_request", decodeError(t, rec).Error.Code)
		})
	}
}

func TestSignupDuplicate(t *testing.T) {
	svc := &mockAuthService{
		registerFn: func(context.Context, string, string, string, string) (*domain.User, error) {
			return nil, domain.ErrDuplicateEmail
		},
	}
	h := NewAuthHandler(svc)

	c, rec := jsonRequest(t, http.MethodPost, "/auth/signup", `{"email":"a@x.com","username":"alice1","password":"secret1"}`)
	require.NoError(t, h.Signup(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "duplicate_email", decodeError(t, rec).Error.Code)
}

func TestSignupDuplicateUsername(t *testing.T) {
	svc := &mockAuthService{
		registerFn: func(context.Context, string, string, string, string) (*domain.User, error) {
			return nil, domain.ErrDuplicateUsername
		},
	}
	h := NewAuthHandler(svc)

	c, rec := jsonRequest(t, http.MethodPost, "/auth/signup", `{"email":"b@x.com","username":"alice1","password":"secret1"}`)
	require.NoError(t, h.Signup(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "duplicate_username", body.Error.Code)
	assert.Equal(t, "username already taken", body.Error.Message)
}

func TestLogin(t *testing.T) {
	svc := &mockAuthService{
		loginFn: func(_ context.Context, _, email, password string) (*usecase.Tokens, error) {
			if password != "secret1" {
				return nil, domain.ErrBadPassword
			}
			return &usecase.Tokens{AccessToken: "acc", RefreshToken: "ref", TokenType: "bearer"}, nil
		},
	}
	h := NewAuthHandler(svc)

	c, rec := jsonRequest(t, http.MethodPost, "/auth/login", `{"email":"a@x.com","password":"secret1"}`)
	require.NoError(t, h.Login(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	data := decodeData(t, rec)
	assert.Equal(t, "acc", data["access_token"])
	assert.Equal(t, "ref", data["refresh_token"])
	assert.Equal(t, "bearer", data["token_type"])

	c, rec = jsonRequest(t, http.MethodPost, "/auth/login", `{"email":"a@x.com","password":"wrong00"}`)
	require.NoError(t, h.Login(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "invalid_credentials", body.Error.Code)
	assert.Equal(t, "invalid credentials", body.Error.Message)
}

func TestLoginNotConfirmed(t *testing.T) {
	svc := &mockAuthService{
		loginFn: func(context.Context, string, string, string) (*usecase.Tokens, error) {
			return nil, domain.ErrEmailNotConfirmed
		},
	}
	h := NewAuthHandler(svc)

	c, rec := jsonRequest(t, http.MethodPost, "/auth/login", `{"email":"a@x.com","password":"secret1"}`)
	require.NoError(t, h.Login(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "email_not_confirmed", decodeError(t, rec).Error.Code)
}

func TestRefresh(t *testing.T) {
	svc := &mockAuthService{
		refreshFn: func(_ context.Context, _, refreshToken string) (*usecase.Tokens, error) {
			if refreshToken != "valid-refresh" {
				return nil, domain.ErrInvalidRefreshToken
			}
			return &usecase.Tokens{AccessToken: "acc2", RefreshToken: "ref2", TokenType: "bearer"}, nil
		},
	}
	h := NewAuthHandler(svc)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/auth/refresh_token", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer valid-refresh")
	rec := httptest.NewRecorder()
	require.NoError(t, h.Refresh(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "acc2", decodeData(t, rec)["access_token"])

	req = httptest.NewRequest(http.MethodGet, "/auth/refresh_token", nil)
	rec = httptest.NewRecorder()
	require.NoError(t, h.Refresh(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid_refresh_token", decodeError(t, rec).Error.Code)

	req = httptest.NewRequest(http.MethodGet, "/auth/refresh_token", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer stale")
	rec = httptest.NewRecorder()
	require.NoError(t, h.Refresh(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestConfirmEmail(t *testing.T) {
	svc := &mockAuthService{
		confirmFn: func(_ context.Context, _, tokenStr string) (bool, error) {
			switch tokenStr {
			case "fresh":
				return false, nil
			case "again":
				return true, nil
			default:
				return false, domain.ErrVerification
			}
		},
	}
	h := NewAuthHandler(svc)
	e := echo.New()

	confirm := func(token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/auth/confirmed_email/"+token, nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("token")
		c.SetParamValues(token)
		require.NoError(t, h.ConfirmEmail(c))
		return rec
	}

	rec := confirm("fresh")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Email confirmed", decodeData(t, rec)["message"])

	rec = confirm("again")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Your email is already confirmed", decodeData(t, rec)["message"])

	rec = confirm("garbage")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "verification_error", decodeError(t, rec).Error.Code)
}

func TestResendConfirmation(t *testing.T) {
	svc := &mockAuthService{
		resendFn: func(_ context.Context, _, email string) (bool, error) {
			return email == "done@x.com", nil
		},
	}
	h := NewAuthHandler(svc)

	c, rec := jsonRequest(t, http.MethodPost, "/auth/verify_by_email", `{"email":"a@x.com"}`)
	require.NoError(t, h.ResendConfirmation(c))
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "Check your email for confirmation.", decodeData(t, rec)["message"])

	c, rec = jsonRequest(t, http.MethodPost, "/auth/verify_by_email", `{"email":"done@x.com"}`)
	require.NoError(t, h.ResendConfirmation(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Your email is already confirmed", decodeData(t, rec)["message"])
}

func TestForgotPassword(t *testing.T) {
	svc := &mockAuthService{
		forgotFn: func(context.Context, string, string) error { return nil },
	}
	h := NewAuthHandler(svc)

	// Registered or not, the acknowledgment is identical.
	c, rec := jsonRequest(t, http.MethodPost, "/auth/forgot_password", `{"email":"whoever@x.com"}`)
	require.NoError(t, h.ForgotPassword(c))
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "Check your email for reset password.", decodeData(t, rec)["message"])
}

// The emailed reset link lands on the form route; it must resolve and post
// back to the reset endpoint.
func TestResetPasswordForm(t *testing.T) {
	svc := &mockAuthService{
		validateFn: func(_ context.Context, tokenStr string) error {
			if tokenStr != "reset-ok" {
				return domain.ErrVerification
			}
			return nil
		},
	}
	h := NewAuthHandler(svc)
	e := echo.New()

	form := func(token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/auth/reset_password_template/"+token, nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("token")
		c.SetParamValues(token)
		require.NoError(t, h.ResetPasswordForm(c))
		return rec
	}

	rec := form("reset-ok")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentType), echo.MIMETextHTML)
	assert.Contains(t, rec.Body.String(), `action="../reset_password/reset-ok"`)
	assert.Contains(t, rec.Body.String(), `name="new_password"`)
	assert.Contains(t, rec.Body.String(), `name="confirm_password"`)

	rec = form("expired")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "verification_error", decodeError(t, rec).Error.Code)
}

func TestResetPassword(t *testing.T) {
	svc := &mockAuthService{
		resetFn: func(_ context.Context, _, tokenStr, newPassword, confirmPassword string) error {
			if newPassword != confirmPassword {
				return domain.ErrPasswordMismatch
			}
			if tokenStr != "reset-ok" {
				return domain.ErrVerification
			}
			return nil
		},
	}
	h := NewAuthHandler(svc)
	e := echo.New()

	reset := func(token, newPassword, confirmPassword string) *httptest.ResponseRecorder {
		form := url.Values{"new_password": {newPassword}, "confirm_password": {confirmPassword}}
		req := httptest.NewRequest(http.MethodPost, "/auth/reset_password/"+token, strings.NewReader(form.Encode()))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("token")
		c.SetParamValues(token)
		require.NoError(t, h.ResetPassword(c))
		return rec
	}

	rec := reset("reset-ok", "newpass1", "newpass1")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Password reset successfully", decodeData(t, rec)["message"])

	rec = reset("reset-ok", "newpass1", "other")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "password_mismatch", decodeError(t, rec).Error.Code)

	rec = reset("expired", "newpass1", "newpass1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "verification_error", decodeError(t, rec).Error.Code)
}
