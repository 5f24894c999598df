package gcs

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	defaultTokenURI  = "https://oauth2.googleapis.com/token"
	storageScope     = "https://www.googleapis.com/auth/devstorage.read_write"
	metadataTokenURL = "http://metadata.google.internal/computeMetadata/v1/instance/service-accounts/default/token"

	// tokens are refreshed this long before they expire
	refreshSkew = time.Minute
)

// tokenSource hands out a cached OAuth access token, refreshing it through
// fetch when it is close to expiry.
type tokenSource struct {
	fetch func(context.Context) (accessToken, error)

	mu      sync.Mutex
	current accessToken
}

type accessToken struct {
	value  string
	expiry time.Time
}

// tokenResponse is shared by the OAuth token endpoint and the metadata server.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

func (t *tokenSource) Token(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.current.value != "" && time.Until(t.current.expiry) > refreshSkew {
		return t.current.value, nil
	}
	next, err := t.fetch(ctx)
	if err != nil {
		return "", err
	}
	t.current = next
	return next.value, nil
}

type serviceAccount struct {
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
	TokenURI    string `json:"token_uri"`
}

// newServiceAccountTokenSource exchanges a self-signed RS256 assertion for an
// access token (the OAuth 2.0 JWT bearer grant).
func newServiceAccountTokenSource(hc *http.Client, rawJSON string) (*tokenSource, error) {
	var sa serviceAccount
	if err := json.Unmarshal([]byte(rawJSON), &sa); err != nil {
		return nil, fmt.Errorf("parsing service account credentials: %w", err)
	}
	if sa.ClientEmail == "" || sa.PrivateKey == "" {
		return nil, errors.New("invalid service account credentials")
	}
	if sa.TokenURI == "" {
		sa.TokenURI = defaultTokenURI
	}
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(sa.PrivateKey))
	if err != nil {
		return nil, fmt.Errorf("service account private key: %w", err)
	}

	return &tokenSource{fetch: func(ctx context.Context) (accessToken, error) {
		assertion, err := signAssertion(sa, key, time.Now())
		if err != nil {
			return accessToken{}, err
		}
		form := url.Values{
			"grant_type": {"urn:ietf:params:oauth:grant-type:jwt-bearer"},
			"assertion":  {assertion},
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, sa.TokenURI, strings.NewReader(form.Encode()))
		if err != nil {
			return accessToken{}, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return exchange(hc, req, "token endpoint")
	}}, nil
}

func signAssertion(sa serviceAccount, key *rsa.PrivateKey, now time.Time) (string, error) {
	claims := jwt.MapClaims{
		"iss":   sa.ClientEmail,
		"scope": storageScope,
		"aud":   sa.TokenURI,
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("signing assertion: %w", err)
	}
	return signed, nil
}

// newMetadataTokenSource asks the GCE/Cloud Run metadata server for the
// attached service account's token.
func newMetadataTokenSource(hc *http.Client) *tokenSource {
	return &tokenSource{fetch: func(ctx context.Context) (accessToken, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, metadataTokenURL, nil)
		if err != nil {
			return accessToken{}, err
		}
		req.Header.Set("Metadata-Flavor", "Google")
		return exchange(hc, req, "metadata server")
	}}
}

func exchange(hc *http.Client, req *http.Request, source string) (accessToken, error) {
	resp, err := hc.Do(req)
	if err != nil {
		return accessToken{}, fmt.Errorf("%s: %w", source, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return accessToken{}, statusError(source, resp)
	}
	var body tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return accessToken{}, fmt.Errorf("%s: decoding token: %w", source, err)
	}
	if body.AccessToken == "" {
		return accessToken{}, fmt.Errorf("%s returned an empty token", source)
	}
	return accessToken{
		value:  body.AccessToken,
		expiry: time.Now().Add(time.Duration(body.ExpiresIn) * time.Second),
	}, nil
}
