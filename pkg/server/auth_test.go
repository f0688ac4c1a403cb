package server

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/go-jose/go-jose/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridsolph/gridsolph/pkg/storage/storagemock"
)

const (
	testIssuer   = "https://issuer.test"
	testAudience = "test-audience"
)

type testProvider struct {
	key      *rsa.PrivateKey
	verifier tokenVerifier
}

func newTestProvider(t *testing.T) *testProvider {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	keySet := &oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{key.Public()}}
	return &testProvider{
		key:      key,
		verifier: oidc.NewVerifier(testIssuer, keySet, &oidc.Config{ClientID: testAudience}).Verify,
	}
}

// token signs an id token for email. Extra claims override the defaults.
func (p *testProvider) token(t *testing.T, email string, extra map[string]any) string {
	t.Helper()
	claims := map[string]any{
		"iss":            testIssuer,
		"aud":            testAudience,
		"sub":            "subject-" + email,
		"email":          email,
		"email_verified": true,
		"iat":            time.Now().Unix(),
		"exp":            time.Now().Add(time.Hour).Unix(),
	}
	for k, v := range extra {
		claims[k] = v
	}
	payload, err := json.Marshal(claims)
	require.NoError(t, err)

	signer, err := jose.NewSigner(jose.SigningKey{Algorithm: jose.RS256, Key: p.key}, (&jose.SignerOptions{}).WithType("JWT"))
	require.NoError(t, err)
	jws, err := signer.Sign(payload)
	require.NoError(t, err)
	raw, err := jws.CompactSerialize()
	require.NoError(t, err)
	return raw
}

func TestAuthMiddleware(t *testing.T) {
	provider := newTestProvider(t)
	srv := &Server{
		storage:       &storagemock.MockDatabase{},
		verifier:      provider.verifier,
		allowedEmails: []string{"user@example.com"},
	}

	var gotEmail, gotRunID string
	handler := srv.authMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotEmail, _ = r.Context().Value(emailContextKey).(string)
		gotRunID = runID(r)
		w.WriteHeader(http.StatusOK)
	}))

	do := func(auth string) *httptest.ResponseRecorder {
		gotEmail, gotRunID = "", ""
		req := httptest.NewRequest(http.MethodPost, "/api/optimize", nil)
		if auth != "" {
			req.Header.Set("Authorization", auth)
		}
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w
	}

	t.Run("valid token", func(t *testing.T) {
		w := do("Bearer " + provider.token(t, "user@example.com", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "user@example.com", gotEmail)
		assert.NotEmpty(t, gotRunID)
		assert.Equal(t, gotRunID, w.Header().Get("X-Run-Id"))
	})

	t.Run("missing header", func(t *testing.T) {
		w := do("")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Empty(t, gotEmail)
	})

	t.Run("not bearer", func(t *testing.T) {
		w := do("Basic dXNlcjpwYXNz")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		w := do("Bearer not-a-token")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "invalid auth token", decodeError(t, w))
	})

	t.Run("wrong audience", func(t *testing.T) {
		w := do("Bearer " + provider.token(t, "user@example.com", map[string]any{"aud": "other"}))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("expired", func(t *testing.T) {
		w := do("Bearer " + provider.token(t, "user@example.com", map[string]any{
			"exp": time.Now().Add(-time.Hour).Unix(),
		}))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("foreign key", func(t *testing.T) {
		other := newTestProvider(t)
		w := do("Bearer " + other.token(t, "user@example.com", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("unverified email", func(t *testing.T) {
		w := do("Bearer " + provider.token(t, "user@example.com", map[string]any{"email_verified": false}))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("email not allowed", func(t *testing.T) {
		w := do("Bearer " + provider.token(t, "intruder@example.com", nil))
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "access denied", decodeError(t, w))
		assert.Empty(t, gotEmail)
	})

	t.Run("any email without allow list", func(t *testing.T) {
		open := &Server{verifier: provider.verifier}
		req := httptest.NewRequest(http.MethodPost, "/api/optimize", nil)
		req.Header.Set("Authorization", "Bearer "+provider.token(t, "someone@example.com", nil))
		w := httptest.NewRecorder()
		open.authMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})).ServeHTTP(w, req)
		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("no verifier", func(t *testing.T) {
		broken := &Server{}
		_, _, err := broken.authenticateToken(context.Background(), "token")
		assert.Error(t, err)
	})
}

func TestAuthBypass(t *testing.T) {
	srv := newTestServer(&storagemock.MockDatabase{})
	srv.verifier = func(ctx context.Context, rawIDToken string) (*oidc.IDToken, error) {
		t.Fatal("verifier must not be called when auth is bypassed")
		return nil, nil
	}
	w := serve(srv, http.MethodPost, "/api/lp", dispatchModel(t, "gonum"))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Run-Id"))
}

func TestAuthProtectsAPIOnly(t *testing.T) {
	srv := newTestServer(&storagemock.MockDatabase{})
	srv.bypassAuth = false
	srv.verifier = newTestProvider(t).verifier

	w := serve(srv, http.MethodPost, "/api/lp", dispatchModel(t, "gonum"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = serve(srv, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
