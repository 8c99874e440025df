package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"short-link-service/cache"
	"short-link-service/config"
	"short-link-service/middleware"
	"short-link-service/model"
	"short-link-service/resolver"
	"short-link-service/store"
	"short-link-service/utils"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// URLHandler exposes link creation, resolution and owner operations.
type URLHandler struct {
	engine  *resolver.Engine
	links   *store.LinkStore
	cache   *cache.Cache
	db      *store.DB
	baseURL string
}

// NewURLHandler wires the handler. The base URL for rendered short links
// falls back to scheme://ip:port when not configured.
func NewURLHandler(engine *resolver.Engine, links *store.LinkStore, cacheLayer *cache.Cache, db *store.DB, cfg config.WebServerConfig) *URLHandler {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = fmt.Sprintf("%s://%s:%s", cfg.Scheme, cfg.IP, cfg.Port)
	}
	return &URLHandler{
		engine:  engine,
		links:   links,
		cache:   cacheLayer,
		db:      db,
		baseURL: baseURL,
	}
}

type shortenRequest struct {
	OriginalURL string `json:"original_url"`
	CustomAlias string `json:"custom_alias"`
}

type createRequest struct {
	OriginalURL       string `json:"original_url"`
	CustomAlias       string `json:"custom_alias"`
	ExpiresAt         string `json:"expires_at"`
	Password          string `json:"password"`
	PlatformReference string `json:"platform_reference"`
}

type linkResponse struct {
	ShortCode         string     `json:"short_code"`
	ShortURL          string     `json:"short_url"`
	OriginalURL       string     `json:"original_url"`
	CustomAlias       string     `json:"custom_alias,omitempty"`
	ExpiresAt         *time.Time `json:"expires_at,omitempty"`
	HasPassword       bool       `json:"has_password"`
	ClickCount        int64      `json:"click_count"`
	PlatformReference string     `json:"platform_reference,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

func (h *URLHandler) linkResponse(link *model.Link) linkResponse {
	return linkResponse{
		ShortCode:         link.ShortCode,
		ShortURL:          fmt.Sprintf("%s/%s", h.baseURL, link.ShortCode),
		OriginalURL:       link.OriginalURL,
		CustomAlias:       link.CustomAlias,
		ExpiresAt:         link.ExpiresAt,
		HasPassword:       link.IsPasswordProtected(),
		ClickCount:        link.ClickCount,
		PlatformReference: link.PlatformReference,
		CreatedAt:         link.CreatedAt,
	}
}

// Shorten handles POST /api/shorten, the public creation endpoint:
// destination plus optional alias, ownership attached when the caller is
// logged in.
func (h *URLHandler) Shorten(w http.ResponseWriter, r *http.Request) {
	var input shortenRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		SendJSONError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	spec := &model.LinkSpec{
		OriginalURL: input.OriginalURL,
		CustomAlias: input.CustomAlias,
		UserID:      middleware.GetUserID(r),
	}

	if err := validateSpec(spec); err != nil {
		SendJSONError(w, http.StatusBadRequest, err, "")
		return
	}

	h.create(w, r, spec)
}

// Create handles POST /api/urls, the authenticated full-featured variant
// with expiry, password protection and a platform tag.
func (h *URLHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input createRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		SendJSONError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	spec := &model.LinkSpec{
		OriginalURL:       input.OriginalURL,
		CustomAlias:       input.CustomAlias,
		Password:          input.Password,
		PlatformReference: input.PlatformReference,
		UserID:            middleware.GetUserID(r),
	}

	if input.ExpiresAt != "" {
		expiry, err := time.Parse(time.RFC3339, input.ExpiresAt)
		if err != nil {
			SendJSONError(w, http.StatusBadRequest, err, "Invalid expiry time format (use RFC3339)")
			return
		}
		if !expiry.After(time.Now()) {
			SendJSONError(w, http.StatusBadRequest, utils.ErrExpiryInPast, "")
			return
		}
		spec.ExpiresAt = &expiry
	}

	if spec.Password != "" {
		if err := utils.ValidateLinkPassword(spec.Password); err != nil {
			SendJSONError(w, http.StatusBadRequest, err, "")
			return
		}
	}
	if err := utils.ValidatePlatformReference(spec.PlatformReference); err != nil {
		SendJSONError(w, http.StatusBadRequest, err, "")
		return
	}

	if err := validateSpec(spec); err != nil {
		SendJSONError(w, http.StatusBadRequest, err, "")
		return
	}

	h.create(w, r, spec)
}

func (h *URLHandler) create(w http.ResponseWriter, r *http.Request, spec *model.LinkSpec) {
	link, err := h.engine.Create(r.Context(), spec)
	switch {
	case errors.Is(err, store.ErrDuplicateAlias):
		SendJSONError(w, http.StatusConflict, err,
			fmt.Sprintf("The alias '%s' is already in use. Try a different alias or leave it blank.", spec.CustomAlias))
		return
	case err != nil:
		log.Error().Err(err).Msg("Failed to create link")
		SendJSONError(w, http.StatusInternalServerError, errors.New("internal server error"), "")
		return
	}

	SendJSONSuccess(w, http.StatusCreated, h.linkResponse(link))
}

func validateSpec(spec *model.LinkSpec) error {
	if err := utils.ValidateURL(spec.OriginalURL); err != nil {
		return err
	}
	if spec.CustomAlias != "" {
		if err := utils.ValidateAlias(spec.CustomAlias); err != nil {
			return err
		}
	}
	return nil
}

// Redirect handles GET /{shortCode}. Outcomes: 301 to the destination,
// 404 for absent or expired codes, 401 when a password is required but
// missing, 403 when the supplied password is wrong.
func (h *URLHandler) Redirect(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	shortCode := vars["shortCode"]
	password := r.URL.Query().Get("password")

	destination, err := h.engine.Resolve(r.Context(), shortCode, password)
	switch {
	case errors.Is(err, resolver.ErrNotFound):
		SendJSONError(w, http.StatusNotFound, errors.New("URL not found"), "")
		return
	case errors.Is(err, resolver.ErrPasswordRequired):
		SendPasswordRequired(w, err)
		return
	case errors.Is(err, resolver.ErrWrongPassword):
		SendJSONError(w, http.StatusForbidden, err, "")
		return
	case err != nil:
		log.Error().Err(err).Str("short_code", shortCode).Msg("Resolution failed")
		SendJSONError(w, http.StatusInternalServerError, errors.New("internal server error"), "")
		return
	}

	log.Info().
		Str("short_code", shortCode).
		Str("original_url", destination).
		Msg("Redirecting")

	http.Redirect(w, r, destination, http.StatusMovedPermanently)
}

// List handles GET /api/urls: the owner's links, newest first, paginated
// with page/limit query parameters.
func (h *URLHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	links, err := h.links.FindByUser(r.Context(), userID, limit, (page-1)*limit)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to list links")
		SendJSONError(w, http.StatusInternalServerError, errors.New("internal server error"), "")
		return
	}

	responses := make([]linkResponse, 0, len(links))
	for _, link := range links {
		responses = append(responses, h.linkResponse(link))
	}

	SendJSONSuccess(w, http.StatusOK, map[string]interface{}{
		"urls": responses,
		"pagination": map[string]interface{}{
			"page":     page,
			"limit":    limit,
			"has_more": len(links) == limit,
		},
	})
}

// Analytics handles GET /api/urls/{shortCode}/analytics. Owner-only. The
// authoritative count comes from the store; the cache counter rides along
// as a recent-activity hint.
func (h *URLHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	shortCode := mux.Vars(r)["shortCode"]
	userID := middleware.GetUserID(r)

	link, err := h.links.FindByCode(r.Context(), shortCode)
	if errors.Is(err, store.ErrLinkNotFound) {
		SendJSONError(w, http.StatusNotFound, errors.New("URL not found"), "")
		return
	}
	if err != nil {
		log.Error().Err(err).Str("short_code", shortCode).Msg("Failed to load link")
		SendJSONError(w, http.StatusInternalServerError, errors.New("internal server error"), "")
		return
	}
	if link.UserID != userID {
		SendJSONError(w, http.StatusForbidden, errors.New("access denied"), "")
		return
	}

	analytics := map[string]interface{}{
		"short_code":         link.ShortCode,
		"original_url":       link.OriginalURL,
		"click_count":        link.ClickCount,
		"created_at":         link.CreatedAt,
		"expires_at":         link.ExpiresAt,
		"platform_reference": link.PlatformReference,
	}
	if recent := h.cache.CachedClicks(r.Context(), shortCode); recent > 0 {
		analytics["recent_clicks"] = recent
	}

	SendJSONSuccess(w, http.StatusOK, analytics)
}

// Delete handles DELETE /api/urls/{shortCode}. Owner-only; the engine
// invalidates the cache synchronously with the store delete.
func (h *URLHandler) Delete(w http.ResponseWriter, r *http.Request) {
	shortCode := mux.Vars(r)["shortCode"]
	userID := middleware.GetUserID(r)

	err := h.engine.Delete(r.Context(), shortCode, userID)
	switch {
	case errors.Is(err, resolver.ErrNotFound):
		SendJSONError(w, http.StatusNotFound, errors.New("URL not found"), "")
		return
	case errors.Is(err, resolver.ErrAccessDenied):
		SendJSONError(w, http.StatusForbidden, err, "")
		return
	case err != nil:
		log.Error().Err(err).Str("short_code", shortCode).Msg("Failed to delete link")
		SendJSONError(w, http.StatusInternalServerError, errors.New("internal server error"), "")
		return
	}

	SendJSONSuccess(w, http.StatusOK, map[string]string{"message": "URL deleted successfully"})
}

// Health handles GET /health. The store is required; the cache is
// reported but a cache outage alone never makes the service unhealthy.
func (h *URLHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := map[string]string{"status": "healthy", "store": "connected", "cache": "connected"}
	code := http.StatusOK

	if err := h.db.Ping(ctx); err != nil {
		log.Error().Err(err).Msg("Store health check failed")
		status["status"] = "unhealthy"
		status["store"] = "unavailable"
		code = http.StatusServiceUnavailable
	}
	if !h.cache.Ping(ctx) {
		// Degraded, not unhealthy: resolution falls back to the store.
		status["cache"] = "unavailable"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(status)
}
