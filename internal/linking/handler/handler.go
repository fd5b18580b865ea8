// Package handler exposes the sign-in and identity-linking flows over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"dojotrack/internal/identity"
	"dojotrack/internal/linking"
	"dojotrack/internal/platform/metrics"
	"dojotrack/internal/platform/middleware"
	"dojotrack/internal/ratelimit"
	"dojotrack/internal/transport/http/shared"
	id "dojotrack/pkg/domain"
	dErrors "dojotrack/pkg/domain-errors"
)

// Service defines the linking operations the handler exposes.
type Service interface {
	Login(ctx context.Context, provider identity.Provider, cred linking.Credential, returnTo string) (linking.LoginResult, error)
	Link(ctx context.Context, provider identity.Provider, cred linking.Credential) (linking.LinkResult, error)
	ConfirmPendingLink(ctx context.Context, provider identity.Provider, code string) (linking.LinkResult, error)
	Unlink(ctx context.Context, provider identity.Provider) ([]identity.Provider, error)
	LinkedAccounts(ctx context.Context) (linking.Profile, error)
}

// EmailRegistrar creates credentials for the email provider.
type EmailRegistrar interface {
	Register(ctx context.Context, email, password string) error
}

// loginRateLimit bounds credential attempts per client IP on the public
// endpoints.
const (
	loginRateLimit  = 10
	loginRateWindow = time.Minute
)

// Handler handles auth and linking endpoints.
type Handler struct {
	logger       *slog.Logger
	service      Service
	registrar    EmailRegistrar
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
	limiter      ratelimit.Store
}

func New(service Service, registrar EmailRegistrar, logger *slog.Logger, m *metrics.Metrics, jwtValidator middleware.JWTValidator, limiter ratelimit.Store) *Handler {
	return &Handler{
		logger:       logger,
		service:      service,
		registrar:    registrar,
		metrics:      m,
		jwtValidator: jwtValidator,
		limiter:      limiter,
	}
}

// Register registers the auth routes with the chi router. Login and email
// registration are public; everything under /auth/link requires a session.
func (h *Handler) Register(r chi.Router) {
	authRouter := chi.NewRouter()
	authRouter.Use(middleware.Recovery(h.logger))
	authRouter.Use(middleware.RequestID)
	authRouter.Use(middleware.Logger(h.logger))
	authRouter.Use(middleware.Timeout(30 * time.Second))
	authRouter.Use(middleware.ContentTypeJSON)
	authRouter.Use(middleware.Latency(h.metrics))
	authRouter.Use(middleware.ClientMetadata)

	authRouter.Group(func(pub chi.Router) {
		if h.limiter != nil {
			pub.Use(ratelimit.LimitByIP(h.limiter, loginRateLimit, loginRateWindow, h.logger))
		}
		pub.Post("/auth/{provider}/start", h.handleLogin)
		pub.Post("/auth/email/register", h.handleEmailRegister)
	})

	authRouter.Group(func(pr chi.Router) {
		pr.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		pr.Get("/auth/link", h.handleLinkedAccounts)
		pr.Post("/auth/link/{provider}/consume", h.handleConfirm)
		pr.Post("/auth/link/{provider}", h.handleLink)
		pr.Delete("/auth/link/{provider}", h.handleUnlink)
	})

	r.Mount("/", authRouter)
}

type credentialRequest struct {
	Token    string `json:"token,omitempty"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password,omitempty"`
	ReturnTo string `json:"return_to,omitempty"`
}

func (req credentialRequest) credential() linking.Credential {
	return linking.Credential{Token: req.Token, Email: req.Email, Password: req.Password}
}

type loginResponse struct {
	Status          string `json:"status"`
	Token           string `json:"token,omitempty"`
	UserID          string `json:"user_id,omitempty"`
	PendingLinkCode string `json:"pending_link_code,omitempty"`
	ReturnTo        string `json:"return_to,omitempty"`
}

type linkResponse struct {
	Outcome   string   `json:"outcome"`
	UserID    string   `json:"user_id"`
	Providers []string `json:"providers"`
	ReturnTo  string   `json:"return_to,omitempty"`
}

func providerNames(providers []identity.Provider) []string {
	names := make([]string, 0, len(providers))
	for _, p := range providers {
		names = append(names, string(p))
	}
	return names
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	provider, err := identity.ParseProvider(chi.URLParam(r, "provider"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var req credentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	result, err := h.service.Login(ctx, provider, req.credential(), req.ReturnTo)
	if err != nil {
		h.writeServiceError(ctx, w, "login failed", err)
		return
	}

	status := http.StatusOK
	if result.Status == linking.LoginLinkRequired {
		status = http.StatusConflict
	}
	shared.WriteJSON(w, status, loginResponse{
		Status:          string(result.Status),
		Token:           result.Token,
		UserID:          userIDString(result.UserID),
		PendingLinkCode: result.PendingLinkCode,
		ReturnTo:        result.ReturnTo,
	})
}

func (h *Handler) handleEmailRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req credentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	if err := h.registrar.Register(ctx, req.Email, req.Password); err != nil {
		h.writeServiceError(ctx, w, "email registration failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	provider, err := identity.ParseProvider(chi.URLParam(r, "provider"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var req credentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	result, err := h.service.Link(ctx, provider, req.credential())
	if err != nil {
		h.writeServiceError(ctx, w, "link failed", err)
		return
	}
	h.writeLinkResult(w, result)
}

type confirmRequest struct {
	Code string `json:"code"`
}

func (h *Handler) handleConfirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	provider, err := identity.ParseProvider(chi.URLParam(r, "provider"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	result, err := h.service.ConfirmPendingLink(ctx, provider, req.Code)
	if err != nil {
		h.writeServiceError(ctx, w, "pending link confirmation failed", err)
		return
	}
	h.writeLinkResult(w, result)
}

func (h *Handler) handleUnlink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	provider, err := identity.ParseProvider(chi.URLParam(r, "provider"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	providers, err := h.service.Unlink(ctx, provider)
	if err != nil {
		h.writeServiceError(ctx, w, "unlink failed", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{
		"providers": providerNames(providers),
	})
}

type linkedAccountResponse struct {
	Provider string    `json:"provider"`
	LinkedAt time.Time `json:"linked_at"`
}

type profileResponse struct {
	UserID      string                  `json:"user_id"`
	Email       string                  `json:"email"`
	DisplayName string                  `json:"display_name,omitempty"`
	ImageURL    string                  `json:"image_url,omitempty"`
	Role        string                  `json:"role"`
	Accounts    []linkedAccountResponse `json:"accounts"`
}

func (h *Handler) handleLinkedAccounts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	profile, err := h.service.LinkedAccounts(ctx)
	if err != nil {
		h.writeServiceError(ctx, w, "list linked accounts failed", err)
		return
	}

	accounts := make([]linkedAccountResponse, 0, len(profile.Accounts))
	for _, acct := range profile.Accounts {
		accounts = append(accounts, linkedAccountResponse{
			Provider: string(acct.Provider),
			LinkedAt: acct.LinkedAt,
		})
	}
	shared.WriteJSON(w, http.StatusOK, profileResponse{
		UserID:      profile.UserID.String(),
		Email:       profile.Email,
		DisplayName: profile.DisplayName,
		ImageURL:    profile.ImageURL,
		Role:        string(profile.Role),
		Accounts:    accounts,
	})
}

func (h *Handler) writeLinkResult(w http.ResponseWriter, result linking.LinkResult) {
	shared.WriteJSON(w, http.StatusOK, linkResponse{
		Outcome:   string(result.Outcome),
		UserID:    result.UserID.String(),
		Providers: providerNames(result.Providers),
		ReturnTo:  result.ReturnTo,
	})
}

// writeServiceError logs and maps a service error. Coded client errors pass
// through; everything else is logged and becomes an opaque 500.
func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	code := dErrors.CodeOf(err)
	if dErrors.ToHTTPStatus(code) < http.StatusInternalServerError {
		h.logger.WarnContext(ctx, msg, "error", err.Error())
		shared.WriteError(w, err)
		return
	}
	h.logger.ErrorContext(ctx, msg, "error", err.Error())
	shared.WriteError(w, dErrors.New(code, msg))
}

func userIDString(userID id.UserID) string {
	if userID.IsNil() {
		return ""
	}
	return userID.String()
}
