package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/giftflow/giftflow/internal/service"
	"github.com/giftflow/giftflow/pkg/httputil"
	"github.com/giftflow/giftflow/pkg/middleware"
	"github.com/giftflow/giftflow/pkg/validator"
)

// AuthHandler handles sign-up, email confirmation, sessions, and account
// lifecycle endpoints.
type AuthHandler struct {
	onboarding *service.OnboardingService
	logger     *slog.Logger
}

// NewAuthHandler creates a new auth HTTP handler.
func NewAuthHandler(onboarding *service.OnboardingService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{onboarding: onboarding, logger: logger}
}

// --- Request DTOs ---

// LoginRequest is the JSON request body for login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UpdatePasswordRequest is the JSON request body for a password change.
type UpdatePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

// ForgotPasswordRequest is the JSON request body for a password reset.
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// --- Response types ---

// AuthResponse wraps user data with a token pair.
type AuthResponse struct {
	User        any    `json:"user"`
	Tokens      any    `json:"tokens"`
	AccountTier string `json:"account_tier,omitempty"`
}

// bearerToken extracts the token from the Authorization header. Used by the
// endpoints that carry a token but run outside the auth middleware.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return parts[1]
	}
	return ""
}

// registerInputFromForm builds the registration input from a parsed
// multipart form.
func registerInputFromForm(r *http.Request) (service.RegisterInput, error) {
	addr, err := formAddress(r)
	if err != nil {
		return service.RegisterInput{}, err
	}

	input := service.RegisterInput{
		Email:         strings.TrimSpace(r.FormValue("email")),
		Password:      r.FormValue("password"),
		FirstName:     strings.TrimSpace(r.FormValue("first_name")),
		LastName:      strings.TrimSpace(r.FormValue("last_name")),
		Phone:         strings.TrimSpace(r.FormValue("phone")),
		Address:       addr,
		RoutingNumber: strings.TrimSpace(r.FormValue("routing_number")),
		AccountNumber: strings.TrimSpace(r.FormValue("account_number")),
	}

	if dob := r.FormValue("date_of_birth"); dob != "" {
		parsed, err := formDate(dob)
		if err != nil {
			return service.RegisterInput{}, err
		}
		input.DateOfBirth = parsed
	}

	for _, doc := range []struct {
		field string
		dst   **service.FileUpload
	}{
		{"front", &input.DocumentFront},
		{"back", &input.DocumentBack},
		{"additional", &input.DocumentAdditional},
	} {
		file, err := formFile(r, doc.field)
		if err != nil {
			return service.RegisterInput{}, err
		}
		*doc.dst = file
	}

	return input, nil
}

// --- Handlers ---

// SignUp handles POST /api/v1/auth/sign-up (multipart form).
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid multipart form: " + err.Error()},
		})
		return
	}

	input, err := registerInputFromForm(r)
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: err.Error()},
		})
		return
	}

	result, err := h.onboarding.Register(r.Context(), input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{
		Data: AuthResponse{
			User:        result.User,
			Tokens:      result.Tokens,
			AccountTier: result.AccountTier,
		},
	})
}

// Confirm handles GET /api/v1/auth/sign-up/confirm. The verification token
// arrives in the Authorization header.
func (h *AuthHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		httputil.WriteJSON(w, http.StatusUnauthorized, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "UNAUTHORIZED", Message: "missing verification token"},
		})
		return
	}

	user, tokens, err := h.onboarding.Verify(r.Context(), token)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: AuthResponse{User: user, Tokens: tokens},
	})
}

// Login handles POST /api/v1/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	user, tokens, err := h.onboarding.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: AuthResponse{User: user, Tokens: tokens},
	})
}

// Refresh handles GET /api/v1/auth/refresh. The refresh token arrives in
// the Authorization header.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		httputil.WriteJSON(w, http.StatusUnauthorized, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "UNAUTHORIZED", Message: "missing refresh token"},
		})
		return
	}

	tokens, err := h.onboarding.Refresh(r.Context(), token)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: tokens})
}

// UpdatePassword handles POST /api/v1/auth/update-password (auth required).
func (h *AuthHandler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	var req UpdatePasswordRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	if err := h.onboarding.UpdatePassword(r.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: map[string]string{"message": "password updated"},
	})
}

// ForgotPassword handles POST /api/v1/auth/forgot-password. The response is
// identical whether or not the email is registered.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	if err := h.onboarding.ForgotPassword(r.Context(), req.Email); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: map[string]string{"message": "if the email exists, a temporary password has been sent"},
	})
}

// UpdateProfile handles POST /api/v1/auth/update-profile (auth required,
// multipart form). Only the fields present in the form are changed.
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid multipart form: " + err.Error()},
		})
		return
	}

	var input service.UpdateProfileInput
	for _, field := range []struct {
		name string
		dst  **string
	}{
		{"first_name", &input.FirstName},
		{"last_name", &input.LastName},
		{"phone", &input.Phone},
		{"routing_number", &input.RoutingNumber},
		{"account_number", &input.AccountNumber},
	} {
		if values, ok := r.Form[field.name]; ok && len(values) > 0 {
			v := strings.TrimSpace(values[0])
			*field.dst = &v
		}
	}

	if hasAddressFields(r) {
		addr, err := formAddress(r)
		if err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: err.Error()},
			})
			return
		}
		input.Address = &addr
	}

	for _, doc := range []struct {
		field string
		dst   **service.FileUpload
	}{
		{"front", &input.DocumentFront},
		{"back", &input.DocumentBack},
		{"additional", &input.DocumentAdditional},
	} {
		file, err := formFile(r, doc.field)
		if err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: err.Error()},
			})
			return
		}
		*doc.dst = file
	}

	user, err := h.onboarding.UpdateProfile(r.Context(), userID, input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: user})
}

// DeleteAccount handles DELETE /api/v1/auth/account (auth required).
func (h *AuthHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	if err := h.onboarding.DeleteAccount(r.Context(), userID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: map[string]string{"message": "account deleted"},
	})
}
