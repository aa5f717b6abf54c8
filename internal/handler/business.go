package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/dineflow/api/internal/database"
	"github.com/dineflow/api/internal/enum"
	"github.com/dineflow/api/internal/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// BusinessStore defines the database methods needed by business handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type BusinessStore interface {
	GetBusiness(ctx context.Context, id int64) (database.Business, error)
	UpdateBusiness(ctx context.Context, arg database.UpdateBusinessParams) (database.Business, error)
	UpdateBusinessLogo(ctx context.Context, arg database.UpdateBusinessLogoParams) (database.Business, error)
	GetWhatsappCredential(ctx context.Context, businessID int64) (database.WhatsappCredential, error)
	UpsertWhatsappCredential(ctx context.Context, arg database.UpsertWhatsappCredentialParams) (database.WhatsappCredential, error)
}

// BusinessHandler serves the owner's business profile and its messaging
// credentials.
type BusinessHandler struct {
	store    BusinessStore
	uploader ImageUploader
}

func NewBusinessHandler(store BusinessStore, uploader ImageUploader) *BusinessHandler {
	return &BusinessHandler{store: store, uploader: uploader}
}

// RegisterRoutes registers /business and /whatsapp/credentials on an
// owner-authenticated router.
func (h *BusinessHandler) RegisterRoutes(r chi.Router) {
	r.Get("/business", h.Get)
	r.Put("/business", h.Update)
	r.Post("/business/logo", h.UploadLogo)
	r.Get("/whatsapp/credentials", h.GetCredentials)
	r.Put("/whatsapp/credentials", h.PutCredentials)
}

type businessResponse struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Phone        *string   `json:"phone"`
	Address      *string   `json:"address"`
	LogoURL      *string   `json:"logo_url"`
	ProfileEdits int32     `json:"profile_edits"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toBusinessResponse(b database.Business) businessResponse {
	return businessResponse{
		ID:           b.ID,
		Name:         b.Name,
		Email:        b.Email,
		Phone:        textPtr(b.Phone),
		Address:      textPtr(b.Address),
		LogoURL:      textPtr(b.LogoUrl),
		ProfileEdits: b.ProfileEdits,
		CreatedAt:    b.CreatedAt.Time,
		UpdatedAt:    b.UpdatedAt.Time,
	}
}

type updateBusinessRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

func (h *BusinessHandler) Get(w http.ResponseWriter, r *http.Request) {
	businessID, ok := ownerBusiness(w, r)
	if !ok {
		return
	}
	b, err := h.store.GetBusiness(r.Context(), businessID)
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "business not found")
			return
		}
		writeInternal(w, "get business", err)
		return
	}
	writeJSON(w, http.StatusOK, toBusinessResponse(b))
}

// Update edits the business profile. A plain owner gets a single edit;
// SuperAdmin is unrestricted.
func (h *BusinessHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req updateBusinessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		writeError(w, http.StatusBadRequest, "a valid email is required")
		return
	}

	current, err := h.store.GetBusiness(r.Context(), claims.BusinessID)
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "business not found")
			return
		}
		writeInternal(w, "get business", err)
		return
	}
	if claims.Role != enum.OwnerRoleSuperAdmin && current.ProfileEdits > 0 {
		writeError(w, http.StatusForbidden, "business profile can only be edited once")
		return
	}

	b, err := h.store.UpdateBusiness(r.Context(), database.UpdateBusinessParams{
		ID:      claims.BusinessID,
		Name:    req.Name,
		Email:   req.Email,
		Phone:   optionalText(strings.TrimSpace(req.Phone)),
		Address: optionalText(strings.TrimSpace(req.Address)),
	})
	if err != nil {
		if isConflict(err) {
			writeError(w, http.StatusConflict, "email is already in use")
			return
		}
		writeInternal(w, "update business", err)
		return
	}
	writeJSON(w, http.StatusOK, toBusinessResponse(b))
}

// UploadLogo stores a new logo. Logo changes do not count as profile edits.
func (h *BusinessHandler) UploadLogo(w http.ResponseWriter, r *http.Request) {
	businessID, ok := ownerBusiness(w, r)
	if !ok {
		return
	}

	url, ok := receiveImage(w, r, h.uploader, fmt.Sprintf("businesses/%d/logo", businessID))
	if !ok {
		return
	}

	b, err := h.store.UpdateBusinessLogo(r.Context(), database.UpdateBusinessLogoParams{
		ID:      businessID,
		LogoUrl: pgtype.Text{String: url, Valid: true},
	})
	if err != nil {
		writeInternal(w, "update business logo", err)
		return
	}
	writeJSON(w, http.StatusOK, toBusinessResponse(b))
}

// --- WhatsApp credentials ---

type credentialsRequest struct {
	EndpointID  string `json:"endpoint_id"`
	AccessToken string `json:"access_token"`
	SenderID    string `json:"sender_id"`
}

type credentialsResponse struct {
	EndpointID  string    `json:"endpoint_id"`
	AccessToken string    `json:"access_token"`
	SenderID    string    `json:"sender_id"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// maskSecret keeps the last four characters of a token.
func maskSecret(s string) string {
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return strings.Repeat("*", len(s)-4) + s[len(s)-4:]
}

func toCredentialsResponse(c database.WhatsappCredential) credentialsResponse {
	return credentialsResponse{
		EndpointID:  c.EndpointID,
		AccessToken: maskSecret(c.AccessToken),
		SenderID:    c.SenderID,
		UpdatedAt:   c.UpdatedAt.Time,
	}
}

func (h *BusinessHandler) GetCredentials(w http.ResponseWriter, r *http.Request) {
	businessID, ok := ownerBusiness(w, r)
	if !ok {
		return
	}
	c, err := h.store.GetWhatsappCredential(r.Context(), businessID)
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "whatsapp credentials not configured")
			return
		}
		writeInternal(w, "get whatsapp credentials", err)
		return
	}
	writeJSON(w, http.StatusOK, toCredentialsResponse(c))
}

func (h *BusinessHandler) PutCredentials(w http.ResponseWriter, r *http.Request) {
	businessID, ok := ownerBusiness(w, r)
	if !ok {
		return
	}
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.EndpointID = strings.TrimSpace(req.EndpointID)
	req.AccessToken = strings.TrimSpace(req.AccessToken)
	req.SenderID = strings.TrimSpace(req.SenderID)
	if req.EndpointID == "" || req.AccessToken == "" || req.SenderID == "" {
		writeError(w, http.StatusBadRequest, "endpoint_id, access_token and sender_id are required")
		return
	}

	c, err := h.store.UpsertWhatsappCredential(r.Context(), database.UpsertWhatsappCredentialParams{
		BusinessID:  businessID,
		EndpointID:  req.EndpointID,
		AccessToken: req.AccessToken,
		SenderID:    req.SenderID,
	})
	if err != nil {
		writeInternal(w, "save whatsapp credentials", err)
		return
	}
	writeJSON(w, http.StatusOK, toCredentialsResponse(c))
}
