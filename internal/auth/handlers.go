package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"orghub-backend/internal/models"
	"orghub-backend/internal/storage"
)

type Store interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	RegisterUser(ctx context.Context, user *models.User, org *models.Organisation) error
}

type Handler struct {
	store  Store
	tokens *TokenService
}

func NewHandler(store Store, tokens *TokenService) *Handler {
	return &Handler{store: store, tokens: tokens}
}

type registerRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Phone     string `json:"phone"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Register creates a user together with their default organisation
// @Summary Register a new user
// @Description Creates the user, a default "<firstName>'s Organisation" and the self-membership, then returns a token
// @Tags auth
// @Accept json
// @Produce json
// @Param user body registerRequest true "Registration fields"
// @Success 201 {object} map[string]interface{} "Token"
// @Failure 400 {object} map[string]interface{} "Duplicate email"
// @Failure 422 {object} map[string]interface{} "Per-field validation errors"
// @Failure 500 {string} string "Server error"
// @Router /auth/register [post]
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFieldErrors(w, http.StatusUnprocessableEntity, []fieldError{
			{Field: "body", Message: "Invalid request body"},
		})
		return
	}

	if errs := validateRegister(req); len(errs) > 0 {
		writeFieldErrors(w, http.StatusUnprocessableEntity, errs)
		return
	}

	existing, err := h.store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		log.Printf("register: lookup by email: %v", err)
		http.Error(w, "Server error", http.StatusInternalServerError)
		return
	}
	if existing != nil {
		writeFieldErrors(w, http.StatusBadRequest, []fieldError{
			{Field: "email", Message: "User already exists"},
		})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("register: hash password: %v", err)
		http.Error(w, "Server error", http.StatusInternalServerError)
		return
	}

	user := &models.User{
		ID:           uuid.New().String(),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		PasswordHash: string(hash),
		Phone:        req.Phone,
	}
	org := &models.Organisation{
		ID:        uuid.New().String(),
		Name:      fmt.Sprintf("%s's Organisation", req.FirstName),
		CreatorID: user.ID,
	}

	if err := h.store.RegisterUser(r.Context(), user, org); err != nil {
		if errors.Is(err, storage.ErrEmailTaken) {
			writeFieldErrors(w, http.StatusBadRequest, []fieldError{
				{Field: "email", Message: "User already exists"},
			})
			return
		}
		log.Printf("register: create user: %v", err)
		http.Error(w, "Server error", http.StatusInternalServerError)
		return
	}

	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		log.Printf("register: issue token: %v", err)
		http.Error(w, "Server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{"token": token})
}

// Login authenticates a user and returns a token
// @Summary User login
// @Description Authenticates with email and password; the failure response never reveals whether the email exists
// @Tags auth
// @Accept json
// @Produce json
// @Param credentials body loginRequest true "Login credentials"
// @Success 200 {object} map[string]interface{} "Access token and public user fields"
// @Failure 401 {object} map[string]interface{} "Authentication failed"
// @Failure 422 {object} map[string]interface{} "Per-field validation errors"
// @Failure 500 {string} string "Server error"
// @Router /auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFieldErrors(w, http.StatusUnprocessableEntity, []fieldError{
			{Field: "body", Message: "Invalid request body"},
		})
		return
	}

	if errs := validateLogin(req); len(errs) > 0 {
		writeFieldErrors(w, http.StatusUnprocessableEntity, errs)
		return
	}

	user, err := h.store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		log.Printf("login: lookup by email: %v", err)
		http.Error(w, "Server error", http.StatusInternalServerError)
		return
	}
	// One uniform failure for unknown email and wrong password.
	if user == nil {
		writeAuthFailed(w)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		writeAuthFailed(w)
		return
	}

	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		log.Printf("login: issue token: %v", err)
		http.Error(w, "Server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":  "success",
		"message": "Login successful",
		"data": map[string]any{
			"accessToken": token,
			"user": map[string]any{
				"userId":    user.ID,
				"firstName": user.FirstName,
				"lastName":  user.LastName,
				"email":     user.Email,
				"phone":     user.Phone,
			},
		},
	})
}

func validateRegister(req registerRequest) []fieldError {
	var errs []fieldError
	if strings.TrimSpace(req.FirstName) == "" {
		errs = append(errs, fieldError{Field: "firstName", Message: "First name is required"})
	}
	if strings.TrimSpace(req.LastName) == "" {
		errs = append(errs, fieldError{Field: "lastName", Message: "Last name is required"})
	}
	if !validEmail(req.Email) {
		errs = append(errs, fieldError{Field: "email", Message: "Please include a valid email"})
	}
	if len(req.Password) < 6 {
		errs = append(errs, fieldError{Field: "password", Message: "Password must be at least 6 characters long"})
	}
	return errs
}

func validateLogin(req loginRequest) []fieldError {
	var errs []fieldError
	if !validEmail(req.Email) {
		errs = append(errs, fieldError{Field: "email", Message: "Please include a valid email"})
	}
	if req.Password == "" {
		errs = append(errs, fieldError{Field: "password", Message: "Password is required"})
	}
	return errs
}

func validEmail(email string) bool {
	if email == "" {
		return false
	}
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

func writeFieldErrors(w http.ResponseWriter, status int, errs []fieldError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{"errors": errs})
}

func writeAuthFailed(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]any{
		"status":     "Bad request",
		"message":    "Authentication failed",
		"statusCode": http.StatusUnauthorized,
	})
}
