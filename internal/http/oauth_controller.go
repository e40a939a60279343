package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/dropDatabas3/tokengate/internal/flow"
	"github.com/dropDatabas3/tokengate/internal/observability/logger"
)

// OAuthController maneja los endpoints OAuth2 del gateway.
type OAuthController struct {
	controller *flow.Controller
}

// Authorize maneja POST /oauth2/authorize. El subject llega ya autenticado
// por el gateway (header interno); este servicio nunca ve credenciales de
// usuario final.
func (c *OAuthController) Authorize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("oauth.authorize"))

	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	if err := r.ParseForm(); err != nil {
		log.Warn("failed to parse form", logger.Err(err))
		writeOAuthError(w, http.StatusBadRequest, "invalid_request", "Invalid form data")
		return
	}

	res, err := c.controller.Authorize(ctx, flow.AuthorizeRequest{
		ClientID:    strings.TrimSpace(r.PostForm.Get("client_id")),
		RedirectURI: strings.TrimSpace(r.PostForm.Get("redirect_uri")),
		Scope:       strings.TrimSpace(r.PostForm.Get("scope")),
		Subject:     strings.TrimSpace(r.Header.Get("X-Authenticated-Subject")),
	})
	if err != nil {
		writeFlowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"code":         res.Code,
		"redirect_uri": res.RedirectURI,
		"expires_in":   res.ExpiresIn,
	})
}

// Token maneja POST /oauth2/token.
// Implementa: authorization_code y refresh_token.
func (c *OAuthController) Token(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("oauth.token"))

	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	if err := r.ParseForm(); err != nil {
		log.Warn("failed to parse form", logger.Err(err))
		writeOAuthError(w, http.StatusBadRequest, "invalid_request", "Invalid form data")
		return
	}

	grantType := strings.TrimSpace(r.PostForm.Get("grant_type"))

	var pair *flow.TokenPair
	var err error
	switch grantType {
	case "authorization_code":
		pair, err = c.controller.ExchangeCode(ctx, flow.ExchangeRequest{
			ClientID:     strings.TrimSpace(r.PostForm.Get("client_id")),
			ClientSecret: strings.TrimSpace(r.PostForm.Get("client_secret")),
			Code:         strings.TrimSpace(r.PostForm.Get("code")),
			RedirectURI:  strings.TrimSpace(r.PostForm.Get("redirect_uri")),
		})
	case "refresh_token":
		pair, err = c.controller.Refresh(ctx, flow.RefreshRequest{
			ClientID:     strings.TrimSpace(r.PostForm.Get("client_id")),
			ClientSecret: strings.TrimSpace(r.PostForm.Get("client_secret")),
			RefreshToken: strings.TrimSpace(r.PostForm.Get("refresh_token")),
		})
	default:
		writeOAuthError(w, http.StatusBadRequest, "unsupported_grant_type", "Grant type not supported")
		return
	}
	if err != nil {
		writeFlowError(w, err)
		return
	}

	out := map[string]any{
		"access_token": pair.AccessToken,
		"token_type":   pair.TokenType,
		"expires_in":   pair.ExpiresIn,
	}
	if pair.RefreshToken != "" {
		out["refresh_token"] = pair.RefreshToken
	}
	if pair.Scope != "" {
		out["scope"] = pair.Scope
	}
	writeJSON(w, http.StatusOK, out)
}

// Introspect maneja POST /oauth2/introspect: validación read-only de un
// access token. Responde el shape de RFC 7662 reducido.
func (c *OAuthController) Introspect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	if err := r.ParseForm(); err != nil {
		writeOAuthError(w, http.StatusBadRequest, "invalid_request", "Invalid form data")
		return
	}

	rec, err := c.controller.ValidateAccess(ctx,
		strings.TrimSpace(r.PostForm.Get("client_id")),
		strings.TrimSpace(r.PostForm.Get("token")),
	)
	if err != nil {
		if errors.Is(err, flow.ErrInvalidGrant) {
			// RFC 7662: token inválido es 200 con active=false, no un error.
			writeJSON(w, http.StatusOK, map[string]any{"active": false})
			return
		}
		writeFlowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"active":    true,
		"client_id": rec.ClientID,
		"sub":       rec.Subject,
		"scope":     rec.Scope,
		"iat":       rec.IssuedAt.Unix(),
		"exp":       rec.ExpiresAt().Unix(),
	})
}

// MintJWT maneja POST /internal/jwt: camino de firma dedicado. Solo expuesto
// en la red interna del gateway.
func (c *OAuthController) MintJWT(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	var body struct {
		Subject string         `json:"sub"`
		Claims  map[string]any `json:"claims"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeOAuthError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	signed, err := c.controller.MintJWT(ctx, body.Subject, body.Claims)
	if err != nil {
		writeFlowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"jwt": signed})
}

// writeFlowError mapea la taxonomía del flow a status codes y JSON OAuth2.
func writeFlowError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, flow.ErrInvalidRequest):
		writeOAuthError(w, http.StatusBadRequest, "invalid_request", "Missing or invalid parameters")
	case errors.Is(err, flow.ErrInvalidClient):
		writeOAuthError(w, http.StatusUnauthorized, "invalid_client", "Client authentication failed")
	case errors.Is(err, flow.ErrInvalidGrant):
		writeOAuthError(w, http.StatusBadRequest, "invalid_grant", "Invalid or expired grant")
	case errors.Is(err, flow.ErrInvalidScope):
		writeOAuthError(w, http.StatusBadRequest, "invalid_scope", "Requested scope is invalid or not allowed")
	case errors.Is(err, flow.ErrUnsupportedGrantType):
		writeOAuthError(w, http.StatusBadRequest, "unsupported_grant_type", "Grant type not supported")
	default:
		writeOAuthError(w, http.StatusServiceUnavailable, "server_error", "Temporary failure, retry the exchange")
	}
}

func writeOAuthError(w http.ResponseWriter, status int, errorCode, description string) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
	writeJSON(w, status, map[string]any{
		"error":             errorCode,
		"error_description": description,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
