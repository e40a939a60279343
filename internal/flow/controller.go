package flow

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dropDatabas3/tokengate/internal/backend"
	"github.com/dropDatabas3/tokengate/internal/clients"
	"github.com/dropDatabas3/tokengate/internal/credential"
	"github.com/dropDatabas3/tokengate/internal/jwtenc"
	"github.com/dropDatabas3/tokengate/internal/metrics"
	"github.com/dropDatabas3/tokengate/internal/observability/logger"
	"github.com/dropDatabas3/tokengate/internal/security/clientsecret"
	"go.uber.org/zap"
)

// scopeOffline en el grant habilita la emisión de refresh token.
const scopeOffline = "offline_access"

// TTLs por defecto por clase de credencial.
const (
	defaultCodeTTL    = 10 * time.Minute
	defaultAccessTTL  = time.Hour
	defaultRefreshTTL = 30 * 24 * time.Hour
)

// Deps contiene las dependencias del Controller.
type Deps struct {
	Clients clients.Directory
	Store   backend.Store
	Encoder *jwtenc.Encoder // opcional; habilita MintJWT

	ServiceID  string
	CodeTTL    time.Duration
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Controller secuencia las tasks de backend que implementan cada transición.
// No tiene locks que crucen requests: los invariantes de un solo uso y de
// rotación los garantiza el take atómico del backend.
type Controller struct {
	clients clients.Directory
	store   backend.Store
	encoder *jwtenc.Encoder

	serviceID  string
	codeTTL    time.Duration
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewController crea el controller aplicando defaults.
func NewController(d Deps) *Controller {
	c := &Controller{
		clients:    d.Clients,
		store:      d.Store,
		encoder:    d.Encoder,
		serviceID:  d.ServiceID,
		codeTTL:    d.CodeTTL,
		accessTTL:  d.AccessTTL,
		refreshTTL: d.RefreshTTL,
	}
	if c.serviceID == "" {
		c.serviceID = "tokengate"
	}
	if c.codeTTL <= 0 {
		c.codeTTL = defaultCodeTTL
	}
	if c.accessTTL <= 0 {
		c.accessTTL = defaultAccessTTL
	}
	if c.refreshTTL <= 0 {
		c.refreshTTL = defaultRefreshTTL
	}
	return c
}

// AuthorizeRequest son los parámetros decodificados del paso de autorización.
// Subject llega ya autenticado por la capa HTTP del gateway.
type AuthorizeRequest struct {
	ClientID    string
	RedirectURI string
	Scope       string
	Subject     string
}

// AuthorizeResult entrega el código; la capa HTTP lo devuelve vía redirect.
type AuthorizeResult struct {
	Code        string
	RedirectURI string
	ExpiresIn   int64
}

// ExchangeRequest son los parámetros de grant_type=authorization_code.
type ExchangeRequest struct {
	ClientID     string
	ClientSecret string
	Code         string
	RedirectURI  string
}

// RefreshRequest son los parámetros de grant_type=refresh_token.
type RefreshRequest struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
}

// TokenPair es el resultado de un canje exitoso.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresIn    int64
	Scope        string
}

// Authorize implementa Start -> CodeIssued: valida cliente, redirect y scope,
// y emite el authorization code.
func (c *Controller) Authorize(ctx context.Context, req AuthorizeRequest) (*AuthorizeResult, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("flow.authorize"), logger.ClientID(req.ClientID))

	if req.ClientID == "" || req.Subject == "" {
		return nil, ErrInvalidRequest
	}

	client, err := c.lookupClient(ctx, req.ClientID)
	if err != nil {
		log.Warn("client lookup failed", logger.Err(err))
		return nil, err
	}

	redirect := req.RedirectURI
	switch {
	case client.AllowsRedirect(redirect):
		// registrado, ok
	case redirect == "" && client.RFCBypass && len(client.RedirectURIs) > 0:
		redirect = client.RedirectURIs[0]
		log.Warn("redirect_uri omitted, rfc_bypass fallback to registered", logger.String("redirect_uri", redirect))
	default:
		log.Warn("redirect_uri not registered", logger.String("redirect_uri", redirect))
		return nil, ErrInvalidRequest
	}

	cred := c.credentialFor(credential.KindAuthCode, client, redirect)
	code, task, err := cred.Issue(ctx, credential.Record{
		Subject:     req.Subject,
		Scope:       req.Scope,
		RedirectURI: redirect,
	})
	if err != nil {
		if errors.Is(err, credential.ErrInvalidScope) {
			log.Warn("scope not allowed", logger.String("scope", req.Scope))
			return nil, ErrInvalidScope
		}
		log.Error("code generation failed", logger.Err(err))
		return nil, ErrServerError
	}
	if _, err := task.Await(ctx); err != nil {
		log.Error("code store write failed", logger.Err(err))
		return nil, ErrServerError
	}

	metrics.CredentialsIssued.WithLabelValues(credential.KindAuthCode.String()).Inc()
	log.Info("authorization code issued", logger.Kind(credential.KindAuthCode.String()))

	return &AuthorizeResult{
		Code:        code,
		RedirectURI: redirect,
		ExpiresIn:   int64(c.codeTTL / time.Second),
	}, nil
}

// ExchangeCode implementa CodeIssued -> Redeemed: canje destructivo del
// código y emisión del par access/refresh. El código se consume primero;
// si la emisión posterior falla, el intercambio completo falla con
// server_error y el código NO es reutilizable.
func (c *Controller) ExchangeCode(ctx context.Context, req ExchangeRequest) (*TokenPair, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("flow.exchange_code"), logger.ClientID(req.ClientID))

	if req.ClientID == "" || req.Code == "" {
		return nil, ErrInvalidRequest
	}

	client, err := c.lookupClient(ctx, req.ClientID)
	if err != nil {
		log.Warn("client lookup failed", logger.Err(err))
		return nil, err
	}
	if err := c.authenticateClient(ctx, client, req.ClientSecret); err != nil {
		return nil, err
	}

	// Canje destructivo primero: take atómico. A lo sumo un request concurrente
	// obtiene el record; el resto ve not found.
	cred := c.credentialFor(credential.KindAuthCode, client, req.RedirectURI)
	raw, err := cred.Redeem(ctx, req.Code).Await(ctx)
	if err != nil {
		metrics.Redemptions.WithLabelValues(credential.KindAuthCode.String(), "denied").Inc()
		return nil, c.redeemError(log, "code redeem failed", err)
	}

	rec, err := cred.Open(raw, time.Now().UTC())
	if err != nil {
		metrics.Redemptions.WithLabelValues(credential.KindAuthCode.String(), "denied").Inc()
		log.Warn("code record rejected", logger.Err(err))
		return nil, ErrInvalidGrant
	}
	if tolerated, err := cred.CheckRedirect(rec); err != nil {
		metrics.Redemptions.WithLabelValues(credential.KindAuthCode.String(), "denied").Inc()
		log.Warn("redirect_uri mismatch on redemption")
		return nil, ErrInvalidGrant
	} else if tolerated {
		log.Warn("redirect_uri mismatch tolerated (rfc_bypass)")
	}

	metrics.Redemptions.WithLabelValues(credential.KindAuthCode.String(), "ok").Inc()

	pair, err := c.issuePair(ctx, client, rec.Subject, rec.Scope)
	if err != nil {
		// El código ya fue consumido: no hay vuelta atrás, el caller debe
		// reiniciar la autorización.
		return nil, err
	}
	log.Info("authorization code exchanged", logger.String("sub", rec.Subject))
	return pair, nil
}

// Refresh implementa Redeemed -> Refreshing -> RefreshRotated: el take del
// refresh token viejo lo invalida en el instante en que sucede; después se
// emite el par nuevo. Si la emisión falla, el viejo sigue inválido y el
// caller debe re-autorizar (error duro, no reintentable como redeem).
func (c *Controller) Refresh(ctx context.Context, req RefreshRequest) (*TokenPair, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("flow.refresh"), logger.ClientID(req.ClientID))

	if req.ClientID == "" || req.RefreshToken == "" {
		return nil, ErrInvalidRequest
	}

	client, err := c.lookupClient(ctx, req.ClientID)
	if err != nil {
		log.Warn("client lookup failed", logger.Err(err))
		return nil, err
	}
	if err := c.authenticateClient(ctx, client, req.ClientSecret); err != nil {
		return nil, err
	}

	cred := c.credentialFor(credential.KindRefreshToken, client, "")
	raw, err := cred.Redeem(ctx, req.RefreshToken).Await(ctx)
	if err != nil {
		metrics.Redemptions.WithLabelValues(credential.KindRefreshToken.String(), "denied").Inc()
		return nil, c.redeemError(log, "refresh redeem failed", err)
	}

	rec, err := cred.Open(raw, time.Now().UTC())
	if err != nil {
		metrics.Redemptions.WithLabelValues(credential.KindRefreshToken.String(), "denied").Inc()
		log.Warn("refresh record rejected", logger.Err(err))
		return nil, ErrInvalidGrant
	}

	metrics.Redemptions.WithLabelValues(credential.KindRefreshToken.String(), "ok").Inc()

	pair, err := c.issuePair(ctx, client, rec.Subject, rec.Scope)
	if err != nil {
		log.Error("rotation issuance failed, re-authorization required", logger.Err(err))
		return nil, err
	}
	log.Info("refresh token rotated", logger.String("sub", rec.Subject))
	return pair, nil
}

// ValidateAccess resuelve un access token sin consumirlo. Expirado, ausente
// y nunca emitido colapsan en invalid_grant.
func (c *Controller) ValidateAccess(ctx context.Context, clientID, token string) (*credential.Record, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("flow.validate_access"), logger.ClientID(clientID))

	if clientID == "" || token == "" {
		return nil, ErrInvalidRequest
	}
	client, err := c.lookupClient(ctx, clientID)
	if err != nil {
		return nil, err
	}

	cred := c.credentialFor(credential.KindAccessToken, client, "")
	raw, err := cred.Validate(ctx, token).Await(ctx)
	if err != nil {
		metrics.Redemptions.WithLabelValues(credential.KindAccessToken.String(), "denied").Inc()
		return nil, c.redeemError(log, "access validation failed", err)
	}
	rec, err := cred.Open(raw, time.Now().UTC())
	if err != nil {
		metrics.Redemptions.WithLabelValues(credential.KindAccessToken.String(), "denied").Inc()
		log.Warn("access record rejected", logger.Err(err))
		return nil, ErrInvalidGrant
	}
	metrics.Redemptions.WithLabelValues(credential.KindAccessToken.String(), "ok").Inc()
	return &rec, nil
}

// MintJWT firma un JWT por el camino dedicado del encoder. Issuer y duración
// son del operador; el caller solo aporta subject y claims extra.
func (c *Controller) MintJWT(ctx context.Context, subject string, extra map[string]any) (string, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("flow.mint_jwt"))

	if c.encoder == nil {
		log.Error("jwt encoder not configured")
		return "", ErrServerError
	}
	signed, err := c.encoder.Encode(subject, extra)
	if err != nil {
		if errors.Is(err, jwtenc.ErrClaimsMissing) {
			return "", ErrInvalidRequest
		}
		log.Error("jwt signing failed", logger.Err(err))
		return "", ErrServerError
	}
	return signed, nil
}

// issuePair emite refresh (si el scope lo pide) y access token, con el access
// referenciando al refresh que lo originó. Si el access falla después de
// persistir el refresh, se revoca el refresh para no dejar un grant huérfano.
func (c *Controller) issuePair(ctx context.Context, client *clients.Client, subject, scope string) (*TokenPair, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("flow.issue_pair"), logger.ClientID(client.ClientID))

	var refreshSecret, refreshKey string
	offline := hasScope(scope, scopeOffline)

	refreshCred := c.credentialFor(credential.KindRefreshToken, client, "")
	if offline {
		sec, task, err := refreshCred.Issue(ctx, credential.Record{
			Subject: subject,
			Scope:   scope,
		})
		if err != nil {
			// El scope del grant puede haber dejado de estar registrado desde
			// la emisión original: error permanente, no reintentable.
			if errors.Is(err, credential.ErrInvalidScope) {
				log.Warn("grant scope no longer allowed", logger.String("scope", scope))
				return nil, ErrInvalidScope
			}
			log.Error("refresh issuance failed", logger.Err(err))
			return nil, ErrServerError
		}
		if _, err := task.Await(ctx); err != nil {
			log.Error("refresh store write failed", logger.Err(err))
			return nil, ErrServerError
		}
		refreshSecret = sec
		refreshKey = refreshCred.Key(sec)
		metrics.CredentialsIssued.WithLabelValues(credential.KindRefreshToken.String()).Inc()
	}

	accessCred := c.credentialFor(credential.KindAccessToken, client, "")
	accessSecret, task, err := accessCred.Issue(ctx, credential.Record{
		Subject:   subject,
		Scope:     scope,
		ParentKey: refreshKey,
	})
	if err == nil {
		_, err = task.Await(ctx)
	}
	if err != nil {
		if errors.Is(err, credential.ErrInvalidScope) {
			log.Warn("grant scope no longer allowed", logger.String("scope", scope))
			if refreshKey != "" {
				refreshCred.Revoke(ctx, refreshKey)
			}
			return nil, ErrInvalidScope
		}
		log.Error("access issuance failed", logger.Err(err))
		if refreshKey != "" {
			// Best effort: la task corre a término aunque el request muera.
			refreshCred.Revoke(ctx, refreshKey)
		}
		return nil, ErrServerError
	}
	metrics.CredentialsIssued.WithLabelValues(credential.KindAccessToken.String()).Inc()

	return &TokenPair{
		AccessToken:  accessSecret,
		RefreshToken: refreshSecret,
		TokenType:    "Bearer",
		ExpiresIn:    int64(c.accessTTL / time.Second),
		Scope:        scope,
	}, nil
}

// credentialFor copia la identidad del cliente en el wrapper de la clase dada.
func (c *Controller) credentialFor(kind credential.Kind, client *clients.Client, redirect string) *credential.Credential {
	ttl := c.accessTTL
	switch kind {
	case credential.KindAuthCode:
		ttl = c.codeTTL
	case credential.KindRefreshToken:
		ttl = c.refreshTTL
	}
	return credential.New(kind, c.store, credential.Params{
		ServiceID:    c.serviceID,
		ClientID:     client.ClientID,
		RedirectURI:  redirect,
		RFCBypass:    client.RFCBypass,
		AllowedScope: client.Scope,
		TTL:          ttl,
	})
}

func (c *Controller) lookupClient(ctx context.Context, clientID string) (*clients.Client, error) {
	client, err := c.clients.GetClient(ctx, clientID)
	if errors.Is(err, clients.ErrNotFound) {
		return nil, ErrInvalidClient
	}
	if err != nil {
		return nil, ErrServerError
	}
	return client, nil
}

// authenticateClient aplica la política de client_secret. Secreto incorrecto
// es invalid_client siempre; secreto ausente en cliente confidencial depende
// del modo RFC: estricto falla, bypass acepta con warning.
func (c *Controller) authenticateClient(ctx context.Context, client *clients.Client, presented string) error {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("flow.client_auth"), logger.ClientID(client.ClientID))

	if !client.Confidential() {
		return nil
	}
	if presented == "" {
		if client.RFCBypass {
			log.Warn("missing client_secret accepted (rfc_bypass)")
			return nil
		}
		log.Warn("missing client_secret for confidential client")
		return ErrInvalidClient
	}
	if !clientsecret.Verify(presented, client.SecretHash) {
		log.Warn("client_secret mismatch")
		return ErrInvalidClient
	}
	return nil
}

// redeemError colapsa la causa precisa (queda solo en logs) en la taxonomía.
func (c *Controller) redeemError(log *zap.Logger, msg string, err error) error {
	if errors.Is(err, backend.ErrNotFound) {
		// Ya usado, expirado o nunca emitido: indistinguibles hacia afuera.
		log.Warn(msg, logger.Err(err))
		return ErrInvalidGrant
	}
	log.Error(msg, logger.Err(err))
	return ErrServerError
}

func hasScope(scope, want string) bool {
	for _, s := range strings.Fields(scope) {
		if s == want {
			return true
		}
	}
	return false
}
