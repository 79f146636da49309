package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"orghub-backend/internal/auth"
	"orghub-backend/internal/authz"
	"orghub-backend/internal/models"
	"orghub-backend/internal/storage"
)

type Store interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetOrganisation(ctx context.Context, id string) (*models.Organisation, error)
	CreateOrganisation(ctx context.Context, org *models.Organisation) error
	AddMember(ctx context.Context, m models.Membership) error
	OrganisationsWithMember(ctx context.Context, userID string) ([]models.Organisation, error)
}

type Handler struct {
	store Store
	authz *authz.Engine
}

func New(store Store, engine *authz.Engine) *Handler {
	return &Handler{store: store, authz: engine}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/my-organisations", h.MyOrganisations)
	r.Get("/organisations", h.ListOrganisations)
	r.Post("/organisations", h.CreateOrganisation)
	r.Get("/organisations/{orgId}", h.GetOrganisation)
	r.Post("/organisations/{orgId}/users", h.AddOrganisationMember)
	r.Get("/users/{id}", h.GetUser)
	r.Get("/protected", h.Protected)
}

// MyOrganisations lists the organisations the caller is a member of
// @Summary List the caller's member organisations
// @Tags organisations
// @Produce json
// @Success 200 {array} models.Organisation
// @Failure 404 {object} map[string]interface{} "User not found"
// @Security BearerAuth
// @Router /api/my-organisations [get]
func (h *Handler) MyOrganisations(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	user, err := h.store.GetUser(r.Context(), userID)
	if err != nil {
		h.serverError(w, "my-organisations: load user", err)
		return
	}
	if user == nil {
		writeJSON(w, http.StatusNotFound, map[string]any{"msg": "User not found"})
		return
	}

	orgs, err := h.store.OrganisationsWithMember(r.Context(), userID)
	if err != nil {
		h.serverError(w, "my-organisations: list", err)
		return
	}

	writeJSON(w, http.StatusOK, orgs)
}

// ListOrganisations lists every organisation visible to the caller
// @Summary List organisations created by or containing the caller
// @Tags organisations
// @Produce json
// @Success 200 {object} map[string]interface{} "Organisations"
// @Security BearerAuth
// @Router /api/organisations [get]
func (h *Handler) ListOrganisations(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	orgs, err := h.authz.VisibleOrganisations(r.Context(), userID)
	if err != nil {
		h.serverError(w, "organisations: list visible", err)
		return
	}

	data := make([]map[string]any, 0, len(orgs))
	for _, org := range orgs {
		data = append(data, map[string]any{
			"orgId":       org.ID,
			"name":        org.Name,
			"description": org.Description,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "success",
		"message": "Organisations retrieved successfully",
		"data":    map[string]any{"organisations": data},
	})
}

// GetOrganisation returns one organisation's details
// @Summary Get an organisation
// @Description Not-found is reported before the access check, so a 404 never implies access
// @Tags organisations
// @Produce json
// @Success 200 {object} map[string]interface{} "Organisation"
// @Failure 403 {object} map[string]interface{} "Access denied"
// @Failure 404 {object} map[string]interface{} "Organisation not found"
// @Security BearerAuth
// @Router /api/organisations/{orgId} [get]
func (h *Handler) GetOrganisation(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	orgID := chi.URLParam(r, "orgId")

	org, err := h.store.GetOrganisation(r.Context(), orgID)
	if errors.Is(err, storage.ErrOrgNotFound) {
		writeError(w, http.StatusNotFound, "Organisation not found")
		return
	}
	if err != nil {
		h.serverError(w, "organisation: load", err)
		return
	}

	allowed, err := h.authz.CanViewOrganisation(r.Context(), userID, org)
	if err != nil {
		h.serverError(w, "organisation: access check", err)
		return
	}
	if !allowed {
		writeError(w, http.StatusForbidden, "Access denied")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "success",
		"message": "Organisation retrieved successfully",
		"data": map[string]any{
			"orgId":       org.ID,
			"name":        org.Name,
			"description": org.Description,
		},
	})
}

type createOrganisationRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// CreateOrganisation creates an organisation with the caller as creator
// @Summary Create an organisation
// @Tags organisations
// @Accept json
// @Produce json
// @Param organisation body createOrganisationRequest true "Organisation fields"
// @Success 201 {object} map[string]interface{} "Organisation"
// @Failure 400 {object} map[string]interface{} "Validation errors"
// @Security BearerAuth
// @Router /api/organisations [post]
func (h *Handler) CreateOrganisation(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req createOrganisationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeClientError(w, []fieldError{{Field: "body", Message: "Invalid request body"}})
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeClientError(w, []fieldError{{Field: "name", Message: "Name is required"}})
		return
	}

	org := &models.Organisation{
		ID:          uuid.New().String(),
		Name:        req.Name,
		Description: req.Description,
		CreatorID:   userID,
	}
	if err := h.store.CreateOrganisation(r.Context(), org); err != nil {
		h.serverError(w, "organisation: create", err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"status":  "success",
		"message": "Organisation created successfully",
		"data": map[string]any{
			"orgId":       org.ID,
			"name":        org.Name,
			"description": org.Description,
		},
	})
}

type addMemberRequest struct {
	UserID string `json:"userId"`
}

// AddOrganisationMember adds a user to an organisation
// @Summary Add a user to an organisation
// @Description Only the organisation's creator may add members
// @Tags organisations
// @Accept json
// @Produce json
// @Param member body addMemberRequest true "User to add"
// @Success 200 {object} map[string]interface{} "Added"
// @Failure 400 {object} map[string]interface{} "Validation errors"
// @Failure 403 {object} map[string]interface{} "Access denied"
// @Failure 404 {object} map[string]interface{} "Organisation or user not found"
// @Security BearerAuth
// @Router /api/organisations/{orgId}/users [post]
func (h *Handler) AddOrganisationMember(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	orgID := chi.URLParam(r, "orgId")

	var req addMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeClientError(w, []fieldError{{Field: "body", Message: "Invalid request body"}})
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		writeClientError(w, []fieldError{{Field: "userId", Message: "User ID is required"}})
		return
	}

	org, err := h.store.GetOrganisation(r.Context(), orgID)
	if errors.Is(err, storage.ErrOrgNotFound) {
		writeError(w, http.StatusNotFound, "Organisation not found")
		return
	}
	if err != nil {
		h.serverError(w, "add member: load organisation", err)
		return
	}

	allowed, err := h.authz.CanManageMembers(r.Context(), userID, org)
	if err != nil {
		h.serverError(w, "add member: access check", err)
		return
	}
	if !allowed {
		writeError(w, http.StatusForbidden, "Access denied")
		return
	}

	target, err := h.store.GetUser(r.Context(), req.UserID)
	if err != nil {
		h.serverError(w, "add member: load user", err)
		return
	}
	if target == nil {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}

	if err := h.store.AddMember(r.Context(), models.Membership{UserID: target.ID, OrgID: org.ID}); err != nil {
		h.serverError(w, "add member: insert", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "success",
		"message": "User added to organisation successfully",
	})
}

// GetUser returns a user record
// @Summary Get a user
// @Description Allowed for self-lookups and for creators of an organisation the target belongs to
// @Tags users
// @Produce json
// @Success 200 {object} map[string]interface{} "User"
// @Failure 403 {object} map[string]interface{} "Access denied"
// @Failure 404 {object} map[string]interface{} "User not found"
// @Security BearerAuth
// @Router /api/users/{id} [get]
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	requesterID, _ := auth.UserIDFromContext(r.Context())
	targetID := chi.URLParam(r, "id")

	target, err := h.store.GetUser(r.Context(), targetID)
	if err != nil {
		h.serverError(w, "user: load", err)
		return
	}
	if target == nil {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}

	allowed, err := h.authz.CanViewUser(r.Context(), requesterID, target.ID)
	if err != nil {
		h.serverError(w, "user: access check", err)
		return
	}
	if !allowed {
		writeError(w, http.StatusForbidden, "Access denied")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "success",
		"message": "User retrieved successfully",
		"data": map[string]any{
			"userId":    target.ID,
			"firstName": target.FirstName,
			"lastName":  target.LastName,
			"email":     target.Email,
			"phone":     target.Phone,
		},
	})
}

// Protected is a bare probe route for checking bearer authentication.
func (h *Handler) Protected(w http.ResponseWriter, _ *http.Request) {
	w.Write([]byte("This is a protected route"))
}

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (h *Handler) serverError(w http.ResponseWriter, op string, err error) {
	log.Printf("%s: %v", op, err)
	writeJSON(w, http.StatusInternalServerError, map[string]any{
		"status":  "error",
		"message": "Server error",
	})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"status":  "error",
		"message": message,
	})
}

func writeClientError(w http.ResponseWriter, errs []fieldError) {
	writeJSON(w, http.StatusBadRequest, map[string]any{
		"status":  "Bad Request",
		"message": "Client error",
		"errors":  errs,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
