// Package csrf supplies the cross-site-request-forgery token the server
// expects on state-changing requests.
package csrf

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// Source looks up a cookie by name. A missing cookie is not an error; the
// server decides whether the request needs one.
type Source interface {
	Cookie(name string) (string, bool)
}

// SourceFunc adapts a function to a Source.
type SourceFunc func(name string) (string, bool)

// Cookie calls f.
func (f SourceFunc) Cookie(name string) (string, bool) {
	return f(name)
}

// JarSource reads cookies a cookie jar holds for the server's base URL.
type JarSource struct {
	jar  http.CookieJar
	base *url.URL
}

// NewJarSource creates a JarSource for cookies scoped to baseURL.
func NewJarSource(jar http.CookieJar, baseURL string) (*JarSource, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", baseURL, err)
	}
	return &JarSource{jar: jar, base: u}, nil
}

// Cookie returns the named cookie's value.
func (s *JarSource) Cookie(name string) (string, bool) {
	for _, c := range s.jar.Cookies(s.base) {
		if c.Name == name && c.Value != "" {
			return c.Value, true
		}
	}
	return "", false
}

type tokenResponse struct {
	CSRFToken string `json:"csrfToken"`
}

// Prime asks the server for a token so the jar holds the CSRF cookie. If the
// server only returns the token in the body, it is stored in the jar under
// cookieName.
func (s *JarSource) Prime(ctx context.Context, client *http.Client, cookieName string) (string, error) {
	endpoint := s.base.JoinPath("csrf/")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("csrf endpoint error: status %d", resp.StatusCode)
	}

	if token, ok := s.Cookie(cookieName); ok {
		return token, nil
	}

	var body tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if body.CSRFToken == "" {
		return "", fmt.Errorf("csrf endpoint returned no token")
	}
	s.jar.SetCookies(s.base, []*http.Cookie{{Name: cookieName, Value: body.CSRFToken, Path: "/"}})
	return body.CSRFToken, nil
}
