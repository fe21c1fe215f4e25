// Package portal implements the session/protocol client for the tax
// authority's web portal. The portal has no machine API: login is a
// multi-phase form handshake over plain HTTP, the session token is scraped
// out of bootstrap HTML, and documents are submitted to the portlet's
// JSON endpoint with a browser-like header set.
package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avigliano/scontrino/internal/logging"
	"github.com/avigliano/scontrino/internal/portal/cookiejar"
)

// Portal paths, relative to the configured base URL. The portal is a portlet
// container; these are the observed subset of its surface, nothing more.
const (
	landingPath   = "/portale/web/guest/home"
	loginPath     = "/portale/home?p_p_id=login&p_p_lifecycle=1&_login_struts_action=%2Flogin%2Flogin"
	bootstrapPath = "/portale/web/area-riservata/home"
	selectPath    = "/portale/api/profilo/working-identity"
	statusPath    = "/portale/api/profilo/status"
	fiscalPath    = "/portale/api/fiscal-data"
	documentsPath = "/portale/api/commercial-documents"
	voidPath      = "/portale/api/commercial-documents/void"
)

// authenticatedAreaMarker is the path fragment the post-login redirect must
// contain for the login to count as successful. The redirect target is
// inspected without being followed, so bad credentials are detected before
// cookies even matter.
const authenticatedAreaMarker = "/area-riservata"

// logoutPaths are hit best-effort during Logout; failures are ignored.
var logoutPaths = []string{
	"/portale/api/profilo/working-identity/release",
	"/portale/c/portal/logout",
}

const defaultTimeout = 60 * time.Second

// browserHeaders mimic the official web client. The portlet rejects requests
// that do not look like its own front-end.
var browserHeaders = map[string]string{
	"User-Agent":       "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36",
	"Accept":           "application/json, text/javascript, */*; q=0.01",
	"Accept-Language":  "it-IT,it;q=0.9,en;q=0.8",
	"X-Requested-With": "XMLHttpRequest",
}

// Client drives one logical portal session: it owns the cookie jar and the
// session state, and serializes its phases. It is not safe for concurrent
// use; one Client equals one login cycle.
type Client struct {
	baseURL    string
	httpClient *http.Client
	jar        *cookiejar.Jar
	logger     logging.Logger

	session *Session
	// creds from the last successful Login, kept for the single transparent
	// re-authentication SubmitDocument is allowed to perform.
	creds *Credentials
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. Redirect suppression
// is enforced regardless, because the login flow inspects Location headers
// without following them.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the transport timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// NewClient builds a Client for the given portal base URL.
func NewClient(baseURL string, logger logging.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		jar:        cookiejar.New(),
		logger:     logger.With("component", "portal"),
	}
	for _, opt := range opts {
		opt(c)
	}
	// every phase depends on cookies set by the previous one; redirects are
	// always followed manually
	c.httpClient.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return c
}

// Login performs the five-phase handshake and returns the established
// session. Any prior session state is discarded first.
func (c *Client) Login(ctx context.Context, creds Credentials) (*Session, error) {
	c.jar.Clear()
	c.session = nil
	c.creds = nil

	// phase 1: warm the jar with the anonymous landing page
	if _, _, err := c.do(ctx, http.MethodGet, landingPath, "", nil); err != nil {
		return nil, err
	}

	// phase 2: POST the credentials form with redirects suppressed and
	// inspect the redirect target
	form := url.Values{}
	form.Set("login", creds.TaxCode)
	form.Set("password", creds.Password)
	form.Set("pin", creds.PIN)
	resp, _, err := c.do(ctx, http.MethodPost, loginPath,
		"application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	location := resp.Header.Get("Location")
	if resp.StatusCode < 300 || resp.StatusCode > 399 || !strings.Contains(location, authenticatedAreaMarker) {
		c.logger.Warn(ctx, "login rejected", "status", resp.StatusCode)
		return nil, &AuthError{Reason: "credentials rejected by the portal"}
	}
	// follow the redirect once, manually, to collect the session cookies
	if _, _, err := c.do(ctx, http.MethodGet, location, "", nil); err != nil {
		return nil, err
	}

	// phase 3: fetch the bootstrap page and scrape the session token
	resp, body, err := c.do(ctx, http.MethodGet, bootstrapPath, "", nil)
	if err != nil {
		return nil, err
	}
	token, ok := extractSessionToken(string(body))
	if !ok {
		return nil, &PortalError{Op: "bootstrap", StatusCode: resp.StatusCode, Detail: "session token not found"}
	}

	// phase 4: select the working tax identity
	entityID := deriveEntityID(creds.TaxCode)
	form = url.Values{}
	form.Set("authToken", token)
	form.Set("taxId", entityID)
	resp, _, err = c.do(ctx, http.MethodPost, selectPath,
		"application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &PortalError{Op: "select working identity", StatusCode: resp.StatusCode}
	}

	// phase 5: readiness probe
	resp, _, err = c.do(ctx, http.MethodGet, statusPath, "", nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &PortalError{Op: "readiness probe", StatusCode: resp.StatusCode}
	}

	c.session = &Session{Token: token, SelectedTaxID: entityID, CreatedAt: time.Now()}
	c.creds = &creds
	c.logger.Info(ctx, "portal session established", "tax_id", entityID)
	return c.session, nil
}

// SubmitDocument POSTs a mapped payload to the authority. On an
// authentication-expired answer it transparently re-runs the full login with
// the credentials from the last Login call and retries exactly once; a
// second expiry fails with SessionExpiredError. Calling before Login is a
// programmer error.
func (c *Client) SubmitDocument(ctx context.Context, kind DocumentKind, payload any) (*AuthorityResponse, error) {
	if c.session == nil {
		return nil, ErrNotLoggedIn
	}

	path := documentsPath
	if kind == KindVoid {
		path = voidPath
	}

	resp, body, err := c.postJSON(ctx, path, payload)
	if err != nil {
		return nil, err
	}

	if c.isSessionExpired(resp) {
		c.logger.Warn(ctx, "session expired mid-submission, re-authenticating")
		creds := *c.creds
		if _, err := c.Login(ctx, creds); err != nil {
			return nil, &SessionExpiredError{}
		}
		resp, body, err = c.postJSON(ctx, path, payload)
		if err != nil {
			return nil, err
		}
		if c.isSessionExpired(resp) {
			// no third attempt, ever
			return nil, &SessionExpiredError{}
		}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &PortalError{Op: "submit document", StatusCode: resp.StatusCode}
	}

	var ar AuthorityResponse
	if err := json.Unmarshal(body, &ar); err != nil {
		return nil, &PortalError{Op: "submit document", StatusCode: resp.StatusCode, Detail: "malformed response body"}
	}
	return &ar, nil
}

// GetFiscalData fetches the authority-held identity record of the selected
// business.
func (c *Client) GetFiscalData(ctx context.Context) (*FiscalIdentity, error) {
	if c.session == nil {
		return nil, ErrNotLoggedIn
	}
	resp, body, err := c.do(ctx, http.MethodGet, fiscalPath, "", nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &PortalError{Op: "fiscal data", StatusCode: resp.StatusCode}
	}
	var fi FiscalIdentity
	if err := json.Unmarshal(body, &fi); err != nil {
		return nil, &PortalError{Op: "fiscal data", StatusCode: resp.StatusCode, Detail: "malformed response body"}
	}
	return &fi, nil
}

// GetDocument fetches the authority's own record of a previously submitted
// document, needed before a void so the void payload carries the authority's
// line identifiers.
func (c *Client) GetDocument(ctx context.Context, transactionID string) (*DocumentDetail, error) {
	if c.session == nil {
		return nil, ErrNotLoggedIn
	}
	path := documentsPath + "/" + url.PathEscape(transactionID)
	resp, body, err := c.do(ctx, http.MethodGet, path, "", nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &PortalError{Op: "document detail", StatusCode: resp.StatusCode}
	}
	var dd DocumentDetail
	if err := json.Unmarshal(body, &dd); err != nil {
		return nil, &PortalError{Op: "document detail", StatusCode: resp.StatusCode, Detail: "malformed response body"}
	}
	return &dd, nil
}

// Logout hits the cleanup endpoints best-effort and always clears the local
// session and jar. It never returns an error.
func (c *Client) Logout(ctx context.Context) {
	for _, p := range logoutPaths {
		if _, _, err := c.do(ctx, http.MethodPost, p, "", nil); err != nil {
			c.logger.Warn(ctx, "logout cleanup call failed", "path", p)
		}
	}
	c.jar.Clear()
	c.session = nil
	c.creds = nil
}

// Session returns the current session, or nil when not logged in.
func (c *Client) Session() *Session {
	return c.session
}

// isSessionExpired recognizes the portal's two ways of reporting a stale
// session: a 401, or a redirect back to the login area.
func (c *Client) isSessionExpired(resp *http.Response) bool {
	if resp.StatusCode == http.StatusUnauthorized {
		return true
	}
	if resp.StatusCode >= 300 && resp.StatusCode <= 399 {
		return strings.Contains(resp.Header.Get("Location"), "login")
	}
	return false
}

func (c *Client) postJSON(ctx context.Context, path string, payload any) (*http.Response, []byte, error) {
	buf, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, fmt.Errorf("encoding payload: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, "application/json", bytes.NewReader(buf))
}

// do issues one request with the browser header set and the accumulated
// cookies, harvests Set-Cookie values from the response into the jar, and
// returns the response with its fully read body. Transport failures are
// wrapped as NetworkError and never leaked raw.
func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader) (*http.Response, []byte, error) {
	u := path
	if !strings.HasPrefix(u, "http") {
		u = c.baseURL + path
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, nil, &NetworkError{Op: method + " " + path, Err: err}
	}
	for k, v := range browserHeaders {
		req.Header.Set(k, v)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.jar.Len() > 0 {
		req.Header.Set("Cookie", c.jar.Header())
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, &NetworkError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	for _, sc := range resp.Header.Values("Set-Cookie") {
		c.jar.SetFromHeader(sc)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, &NetworkError{Op: method + " " + path, Err: err}
	}
	return resp, data, nil
}
