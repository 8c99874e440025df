package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"time"

	"short-link-service/auth"
	"short-link-service/store"

	"github.com/rs/zerolog/log"
)

const (
	minUsernameLength  = 3
	minAccountPassword = 8
	maxAccountPassword = 128
	maxEmailLength     = 255
)

// UserHandler exposes registration and login for the authentication
// collaborator.
type UserHandler struct {
	users      *store.UserStore
	jwtManager *auth.JWTManager
}

func NewUserHandler(users *store.UserStore, jwtManager *auth.JWTManager) *UserHandler {
	return &UserHandler{users: users, jwtManager: jwtManager}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Register handles POST /api/auth/register.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var input registerRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		SendJSONError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	if err := validateRegistration(input); err != nil {
		SendJSONError(w, http.StatusBadRequest, err, "")
		return
	}

	user, err := h.users.CreateUser(r.Context(), input.Username, input.Email, input.Password)
	switch {
	case errors.Is(err, store.ErrDuplicateUsername), errors.Is(err, store.ErrDuplicateEmail):
		SendJSONError(w, http.StatusConflict, err, "")
		return
	case err != nil:
		log.Error().Err(err).Msg("Failed to register user")
		SendJSONError(w, http.StatusInternalServerError, errors.New("internal server error"), "")
		return
	}

	token, err := h.jwtManager.Issue(user.ID, user.Username)
	if err != nil {
		log.Error().Err(err).Msg("Failed to issue token")
		SendJSONError(w, http.StatusInternalServerError, errors.New("internal server error"), "")
		return
	}

	SendJSONSuccess(w, http.StatusCreated, tokenResponse{
		Token:     token,
		UserID:    user.ID,
		Username:  user.Username,
		CreatedAt: user.CreatedAt,
	})
}

// Login handles POST /api/auth/login. Unknown username and wrong password
// answer identically.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input loginRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		SendJSONError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	invalidCredentials := errors.New("invalid username or password")

	user, err := h.users.FindByUsername(r.Context(), input.Username)
	if errors.Is(err, store.ErrUserNotFound) {
		SendJSONError(w, http.StatusUnauthorized, invalidCredentials, "")
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("Failed to load user")
		SendJSONError(w, http.StatusInternalServerError, errors.New("internal server error"), "")
		return
	}

	if !h.users.VerifyPassword(user, input.Password) {
		SendJSONError(w, http.StatusUnauthorized, invalidCredentials, "")
		return
	}

	token, err := h.jwtManager.Issue(user.ID, user.Username)
	if err != nil {
		log.Error().Err(err).Msg("Failed to issue token")
		SendJSONError(w, http.StatusInternalServerError, errors.New("internal server error"), "")
		return
	}

	SendJSONSuccess(w, http.StatusOK, tokenResponse{
		Token:    token,
		UserID:   user.ID,
		Username: user.Username,
	})
}

func validateRegistration(input registerRequest) error {
	if len(input.Username) < minUsernameLength {
		return errors.New("username must be at least 3 characters long")
	}
	if input.Email == "" || len(input.Email) > maxEmailLength {
		return errors.New("invalid email address")
	}
	if _, err := mail.ParseAddress(input.Email); err != nil {
		return errors.New("invalid email address")
	}
	if len(input.Password) < minAccountPassword || len(input.Password) > maxAccountPassword {
		return errors.New("password must be between 8 and 128 characters long")
	}
	return nil
}
