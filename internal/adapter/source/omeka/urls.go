package omeka

import (
	"net/url"
	"strings"

	"github.com/mmcdole/folio/internal/domain"
)

// Credential query parameter names required by the API
const (
	ParamKeyIdentity   = "key_identity"
	ParamKeyCredential = "key_credential"
)

// JoinURL joins base and path with exactly one slash between them
func JoinURL(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

// Composer builds authenticated API URLs
type Composer struct {
	base       string
	identity   string
	credential string
}

// NewComposer validates the endpoint and credentials. Missing values yield a
// *domain.ConfigError so no request is ever attempted without them.
func NewComposer(base, identity, credential string) (*Composer, error) {
	base = strings.TrimSpace(base)
	switch {
	case base == "":
		return nil, &domain.ConfigError{Field: "api.base_url"}
	case identity == "":
		return nil, &domain.ConfigError{Field: "api.key_identity"}
	case credential == "":
		return nil, &domain.ConfigError{Field: "api.key_credential"}
	}
	return &Composer{base: strings.TrimRight(base, "/"), identity: identity, credential: credential}, nil
}

// Base returns the API endpoint without a trailing slash
func (c *Composer) Base() string {
	return c.base
}

// BuildURL joins path onto the API endpoint
func (c *Composer) BuildURL(path string) string {
	return JoinURL(c.base, path)
}

// WithCredentials appends the identity and credential parameters to the
// query of u, ahead of any fragment
func (c *Composer) WithCredentials(u string) string {
	var fragment string
	if i := strings.IndexByte(u, '#'); i >= 0 {
		u, fragment = u[:i], u[i:]
	}
	sep := "?"
	if strings.Contains(u, "?") {
		sep = "&"
		if strings.HasSuffix(u, "?") || strings.HasSuffix(u, "&") {
			sep = ""
		}
	}
	return u + sep +
		ParamKeyIdentity + "=" + url.QueryEscape(c.identity) + "&" +
		ParamKeyCredential + "=" + url.QueryEscape(c.credential) +
		fragment
}

// API returns the authenticated URL for path with optional query parameters
func (c *Composer) API(path string, q *Query) string {
	u := c.BuildURL(path)
	if q != nil && !q.Empty() {
		u += "?" + q.Encode()
	}
	return c.WithCredentials(u)
}

// Redact replaces credential values in u, for logs and error messages
func (c *Composer) Redact(u string) string {
	for _, secret := range []string{url.QueryEscape(c.credential), url.QueryEscape(c.identity)} {
		if secret != "" {
			u = strings.ReplaceAll(u, secret, "REDACTED")
		}
	}
	return u
}
