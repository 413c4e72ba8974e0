package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"vexillum/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestStateStore_SingleUse(t *testing.T) {
	mr, rdb := newTestRedis(t)
	store := NewStateStore(rdb)
	ctx := context.Background()

	state, err := store.Issue(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, state)
	assert.Equal(t, StateTTL, mr.TTL("oauth_state:"+state))

	require.NoError(t, store.Consume(ctx, state))
	assert.ErrorIs(t, store.Consume(ctx, state), ErrInvalidState)
	assert.ErrorIs(t, store.Consume(ctx, "forged"), ErrInvalidState)
	assert.ErrorIs(t, store.Consume(ctx, ""), ErrInvalidState)
}

func TestStateStore_Expiry(t *testing.T) {
	mr, rdb := newTestRedis(t)
	store := NewStateStore(rdb)
	ctx := context.Background()

	state, err := store.Issue(ctx)
	require.NoError(t, err)
	mr.FastForward(StateTTL + time.Second)
	assert.ErrorIs(t, store.Consume(ctx, state), ErrInvalidState)
}

func TestStateStore_NoRedis(t *testing.T) {
	store := NewStateStore(nil)
	_, err := store.Issue(context.Background())
	assert.Error(t, err)
}

// fakeGoogle serves the token and userinfo endpoints.
func fakeGoogle(t *testing.T, profile map[string]interface{}) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.Form.Get("code") != "good-code" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at-123","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer at-123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(profile)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testProvider(srv *httptest.Server) *GoogleProvider {
	p := NewGoogleProvider(GoogleConfig{ClientID: "cid", ClientSecret: "secret", RedirectURL: "http://localhost/cb"})
	p.oauth.Endpoint = oauth2.Endpoint{
		AuthURL:   srv.URL + "/auth",
		TokenURL:  srv.URL + "/token",
		AuthStyle: oauth2.AuthStyleInParams,
	}
	p.userInfoURL = srv.URL + "/userinfo"
	return p
}

func TestGoogleProvider_Exchange(t *testing.T) {
	srv := fakeGoogle(t, map[string]interface{}{
		"sub":            "10987",
		"email":          "ada@example.com",
		"email_verified": true,
		"name":           "Ada",
		"picture":        "https://example.com/ada.png",
	})
	p := testProvider(srv)

	got, err := p.Exchange(context.Background(), "good-code")
	require.NoError(t, err)
	assert.Equal(t, &models.ExternalIdentity{
		Provider:   ProviderGoogle,
		Subject:    "10987",
		Email:      "ada@example.com",
		Name:       "Ada",
		PictureURL: "https://example.com/ada.png",
	}, got)

	_, err = p.Exchange(context.Background(), "bad-code")
	require.Error(t, err)
	assert.Equal(t, models.CodeUnauthorized, models.ErrorCode(err))

	_, err = p.Exchange(context.Background(), "")
	assert.Equal(t, models.CodeValidation, models.ErrorCode(err))
}

func TestGoogleProvider_UnverifiedEmail(t *testing.T) {
	srv := fakeGoogle(t, map[string]interface{}{
		"sub": "1", "email": "x@example.com", "email_verified": false,
	})
	_, err := testProvider(srv).Exchange(context.Background(), "good-code")
	assert.Equal(t, models.CodeUnauthorized, models.ErrorCode(err))
}

func TestGoogleProvider_AuthCodeURL(t *testing.T) {
	p := NewGoogleProvider(GoogleConfig{ClientID: "cid", ClientSecret: "s", RedirectURL: "http://localhost/cb"})
	raw := p.AuthCodeURL("st-1")
	u, err := url.Parse(raw)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "st-1", q.Get("state"))
	assert.Equal(t, "cid", q.Get("client_id"))
	assert.Equal(t, "http://localhost/cb", q.Get("redirect_uri"))
	assert.Equal(t, "openid email profile", q.Get("scope"))

	assert.False(t, NewGoogleProvider(GoogleConfig{}).Configured())
	_, err = NewGoogleProvider(GoogleConfig{}).Exchange(context.Background(), "x")
	assert.ErrorIs(t, err, ErrNotConfigured)
}
