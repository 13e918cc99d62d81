// Package identity verifies bearer credentials issued by the external
// identity provider. Tokens are RS256-signed ID tokens; the provider
// publishes its current signing certificates at a well-known URL, keyed by
// kid. There is no local credential store and no retry: a verification
// failure is terminal for the request.
package identity

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const defaultCertsURL = "https://www.googleapis.com/robot/v1/metadata/x509/securetoken@system.gserviceaccount.com"

var (
	// ErrTokenExpired is distinct from ErrTokenInvalid so callers can tell
	// the client to re-login rather than reject it outright.
	ErrTokenExpired = errors.New("credential has expired")
	ErrTokenInvalid = errors.New("credential is invalid")
)

// Claims is the verified subject attached to the request context.
type Claims struct {
	SubjectID string
	Email     string
	Name      string
}

// Verifier checks a bearer credential and returns the verified claims.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Claims, error)
}

type providerClaims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// TokenVerifier validates ID tokens against the provider's published
// certificates. Certificates are fetched lazily and cached until the
// Cache-Control max-age from the provider elapses.
type TokenVerifier struct {
	projectID  string
	certsURL   string
	httpClient *http.Client

	mu           sync.RWMutex
	keys         map[string]*rsa.PublicKey
	refreshAfter time.Time
}

func NewTokenVerifier(projectID, certsURL string) *TokenVerifier {
	if certsURL == "" {
		certsURL = defaultCertsURL
	}
	return &TokenVerifier{
		projectID:  projectID,
		certsURL:   certsURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		keys:       map[string]*rsa.PublicKey{},
	}
}

func (v *TokenVerifier) Verify(ctx context.Context, tokenString string) (*Claims, error) {
	claims := &providerClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("token has no kid header")
		}
		return v.keyFor(ctx, kid)
	},
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithAudience(v.projectID),
		jwt.WithIssuer("https://securetoken.google.com/"+v.projectID),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, ErrTokenInvalid
	}

	return &Claims{
		SubjectID: claims.Subject,
		Email:     claims.Email,
		Name:      claims.Name,
	}, nil
}

// keyFor returns the signing key for kid, refreshing the certificate cache
// when the kid is unknown or the cache is stale.
func (v *TokenVerifier) keyFor(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	v.mu.RLock()
	key, ok := v.keys[kid]
	fresh := time.Now().Before(v.refreshAfter)
	v.mu.RUnlock()
	if ok && fresh {
		return key, nil
	}

	if err := v.refreshKeys(ctx); err != nil {
		// A known key is still usable when the provider is briefly
		// unreachable; an unknown kid is not.
		if ok {
			return key, nil
		}
		return nil, err
	}

	v.mu.RLock()
	defer v.mu.RUnlock()
	key, ok = v.keys[kid]
	if !ok {
		return nil, fmt.Errorf("no certificate for kid %q", kid)
	}
	return key, nil
}

func (v *TokenVerifier) refreshKeys(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.certsURL, nil)
	if err != nil {
		return err
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch signing certificates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch signing certificates: unexpected status %d", resp.StatusCode)
	}

	var certs map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&certs); err != nil {
		return fmt.Errorf("decode signing certificates: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(certs))
	for kid, pemCert := range certs {
		key, err := parseCertPEM(pemCert)
		if err != nil {
			return fmt.Errorf("parse certificate %q: %w", kid, err)
		}
		keys[kid] = key
	}

	v.mu.Lock()
	v.keys = keys
	v.refreshAfter = time.Now().Add(maxAge(resp.Header.Get("Cache-Control")))
	v.mu.Unlock()
	return nil
}

func parseCertPEM(pemCert string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(pemCert))
	if block == nil {
		return nil, errors.New("no PEM block found")
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, err
	}
	key, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("certificate does not carry an RSA key")
	}
	return key, nil
}

// maxAge extracts max-age from a Cache-Control header, falling back to a
// conservative refresh interval.
func maxAge(cacheControl string) time.Duration {
	for _, directive := range strings.Split(cacheControl, ",") {
		directive = strings.TrimSpace(directive)
		if value, ok := strings.CutPrefix(directive, "max-age="); ok {
			if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
				return time.Duration(seconds) * time.Second
			}
		}
	}
	return 5 * time.Minute
}
