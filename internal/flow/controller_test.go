package flow

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/tokengate/internal/backend"
	"github.com/dropDatabas3/tokengate/internal/clients"
	"github.com/dropDatabas3/tokengate/internal/security/clientsecret"
)

const (
	testRedirect = "https://app.example.com/cb"
	testSecret   = "hunter2-but-long"
)

func testController(t *testing.T, cs ...*clients.Client) *Controller {
	t.Helper()
	if len(cs) == 0 {
		cs = []*clients.Client{{
			ClientID:     "web",
			RedirectURIs: []string{testRedirect},
			Scope:        "profile email offline_access",
		}}
	}
	return NewController(Deps{
		Clients: clients.NewStatic(cs...),
		Store:   backend.NewMemory("t"),
	})
}

func authorize(t *testing.T, c *Controller, scope string) *AuthorizeResult {
	t.Helper()
	res, err := c.Authorize(context.Background(), AuthorizeRequest{
		ClientID:    "web",
		RedirectURI: testRedirect,
		Scope:       scope,
		Subject:     "user-1",
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.Code)
	return res
}

func TestFullFlow_CodeToTokensToRotation(t *testing.T) {
	ctx := context.Background()
	c := testController(t)

	// Start -> CodeIssued
	res := authorize(t, c, "profile offline_access")

	// CodeIssued -> Redeemed
	pair, err := c.ExchangeCode(ctx, ExchangeRequest{
		ClientID:    "web",
		Code:        res.Code,
		RedirectURI: testRedirect,
	})
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken, "offline_access pide refresh token")
	require.Equal(t, "Bearer", pair.TokenType)

	// El access token valida read-only.
	rec, err := c.ValidateAccess(ctx, "web", pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "user-1", rec.Subject)

	// Redeemed -> RefreshRotated
	pair2, err := c.Refresh(ctx, RefreshRequest{ClientID: "web", RefreshToken: pair.RefreshToken})
	require.NoError(t, err)
	require.NotEmpty(t, pair2.RefreshToken)
	require.NotEqual(t, pair.RefreshToken, pair2.RefreshToken)

	// Invariante de rotación: R0 quedó inválido al emitir R1.
	_, err = c.Refresh(ctx, RefreshRequest{ClientID: "web", RefreshToken: pair.RefreshToken})
	require.ErrorIs(t, err, ErrInvalidGrant)

	// R1 sigue vivo.
	_, err = c.Refresh(ctx, RefreshRequest{ClientID: "web", RefreshToken: pair2.RefreshToken})
	require.NoError(t, err)
}

func TestExchangeCode_SingleUse(t *testing.T) {
	ctx := context.Background()
	c := testController(t)
	res := authorize(t, c, "profile")

	_, err := c.ExchangeCode(ctx, ExchangeRequest{ClientID: "web", Code: res.Code, RedirectURI: testRedirect})
	require.NoError(t, err)

	// El canje es destructivo: el segundo intento falla siempre.
	_, err = c.ExchangeCode(ctx, ExchangeRequest{ClientID: "web", Code: res.Code, RedirectURI: testRedirect})
	require.ErrorIs(t, err, ErrInvalidGrant)
}

func TestExchangeCode_ConcurrentExactlyOneWins(t *testing.T) {
	ctx := context.Background()
	c := testController(t)
	res := authorize(t, c, "profile")

	const racers = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins, invalid := 0, 0

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.ExchangeCode(ctx, ExchangeRequest{ClientID: "web", Code: res.Code, RedirectURI: testRedirect})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case err == ErrInvalidGrant:
				invalid++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, wins, "exactamente un canje concurrente debe ganar")
	require.Equal(t, racers-1, invalid)
}

func TestExchangeCode_NoRefreshWithoutOfflineAccess(t *testing.T) {
	ctx := context.Background()
	c := testController(t)
	res := authorize(t, c, "profile")

	pair, err := c.ExchangeCode(ctx, ExchangeRequest{ClientID: "web", Code: res.Code, RedirectURI: testRedirect})
	require.NoError(t, err)
	require.Empty(t, pair.RefreshToken)
}

func TestExchangeCode_RedirectMismatch(t *testing.T) {
	ctx := context.Background()

	t.Run("strict rejects", func(t *testing.T) {
		c := testController(t)
		res := authorize(t, c, "profile")
		_, err := c.ExchangeCode(ctx, ExchangeRequest{
			ClientID:    "web",
			Code:        res.Code,
			RedirectURI: "https://evil.example.com/cb",
		})
		require.ErrorIs(t, err, ErrInvalidGrant)
	})

	t.Run("bypass tolerates", func(t *testing.T) {
		c := testController(t, &clients.Client{
			ClientID:     "web",
			RedirectURIs: []string{testRedirect},
			Scope:        "profile",
			RFCBypass:    true,
		})
		res := authorize(t, c, "profile")
		_, err := c.ExchangeCode(ctx, ExchangeRequest{
			ClientID: "web",
			Code:     res.Code,
			// redirect omitido: modo compatibilidad lo acepta
		})
		require.NoError(t, err)
	})
}

func TestClientSecretPolicy(t *testing.T) {
	ctx := context.Background()
	phc, err := clientsecret.Hash(clientsecret.Default, testSecret)
	require.NoError(t, err)

	mkClient := func(bypass bool) *clients.Client {
		return &clients.Client{
			ClientID:     "web",
			SecretHash:   phc,
			RedirectURIs: []string{testRedirect},
			Scope:        "profile",
			RFCBypass:    bypass,
		}
	}

	t.Run("strict requires secret", func(t *testing.T) {
		c := testController(t, mkClient(false))
		res := authorize(t, c, "profile")
		_, err := c.ExchangeCode(ctx, ExchangeRequest{ClientID: "web", Code: res.Code, RedirectURI: testRedirect})
		require.ErrorIs(t, err, ErrInvalidClient)
	})

	t.Run("bypass accepts missing secret", func(t *testing.T) {
		c := testController(t, mkClient(true))
		res := authorize(t, c, "profile")
		_, err := c.ExchangeCode(ctx, ExchangeRequest{ClientID: "web", Code: res.Code, RedirectURI: testRedirect})
		require.NoError(t, err)
	})

	t.Run("wrong secret always rejected", func(t *testing.T) {
		c := testController(t, mkClient(true))
		res := authorize(t, c, "profile")
		_, err := c.ExchangeCode(ctx, ExchangeRequest{
			ClientID:     "web",
			ClientSecret: "not-the-secret",
			Code:         res.Code,
			RedirectURI:  testRedirect,
		})
		require.ErrorIs(t, err, ErrInvalidClient)
	})

	t.Run("correct secret accepted", func(t *testing.T) {
		c := testController(t, mkClient(false))
		res := authorize(t, c, "profile")
		_, err := c.ExchangeCode(ctx, ExchangeRequest{
			ClientID:     "web",
			ClientSecret: testSecret,
			Code:         res.Code,
			RedirectURI:  testRedirect,
		})
		require.NoError(t, err)
	})
}

func TestRefresh_ScopeNoLongerAllowed(t *testing.T) {
	ctx := context.Background()
	c := testController(t)

	res := authorize(t, c, "profile offline_access")
	pair, err := c.ExchangeCode(ctx, ExchangeRequest{ClientID: "web", Code: res.Code, RedirectURI: testRedirect})
	require.NoError(t, err)
	require.NotEmpty(t, pair.RefreshToken)

	// El registro del cliente se achicó después de emitir el refresh: la
	// rotación no puede re-emitir ese scope y el error es permanente.
	c.clients = clients.NewStatic(&clients.Client{
		ClientID:     "web",
		RedirectURIs: []string{testRedirect},
		Scope:        "profile",
	})

	_, err = c.Refresh(ctx, RefreshRequest{ClientID: "web", RefreshToken: pair.RefreshToken})
	require.ErrorIs(t, err, ErrInvalidScope)
	require.False(t, Retryable(err))
}

func TestAuthorize_Validation(t *testing.T) {
	ctx := context.Background()
	c := testController(t)

	_, err := c.Authorize(ctx, AuthorizeRequest{ClientID: "", Subject: "u"})
	require.ErrorIs(t, err, ErrInvalidRequest)

	_, err = c.Authorize(ctx, AuthorizeRequest{ClientID: "nope", RedirectURI: testRedirect, Subject: "u"})
	require.ErrorIs(t, err, ErrInvalidClient)

	_, err = c.Authorize(ctx, AuthorizeRequest{ClientID: "web", RedirectURI: "https://evil.example.com", Subject: "u"})
	require.ErrorIs(t, err, ErrInvalidRequest)

	_, err = c.Authorize(ctx, AuthorizeRequest{ClientID: "web", RedirectURI: testRedirect, Scope: "admin", Subject: "u"})
	require.ErrorIs(t, err, ErrInvalidScope)
}

func TestValidateAccess_CollapsesCauses(t *testing.T) {
	ctx := context.Background()
	c := testController(t)

	// Nunca emitido.
	_, err := c.ValidateAccess(ctx, "web", "never-issued")
	require.ErrorIs(t, err, ErrInvalidGrant)
}

func TestAuthCode_ExpiresByTTL(t *testing.T) {
	ctx := context.Background()
	c := NewController(Deps{
		Clients: clients.NewStatic(&clients.Client{
			ClientID:     "web",
			RedirectURIs: []string{testRedirect},
			Scope:        "profile",
		}),
		Store:   backend.NewMemory("t"),
		CodeTTL: 30 * time.Millisecond,
	})
	res := authorize(t, c, "profile")

	time.Sleep(60 * time.Millisecond)

	_, err := c.ExchangeCode(ctx, ExchangeRequest{ClientID: "web", Code: res.Code, RedirectURI: testRedirect})
	require.ErrorIs(t, err, ErrInvalidGrant)
}

func TestRetryable(t *testing.T) {
	require.True(t, Retryable(ErrServerError))
	require.False(t, Retryable(ErrInvalidGrant))
	require.False(t, Retryable(ErrInvalidClient))
}
