package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/Punshui30/NF2/internal/models"
)

const (
	// DefaultFetchTimeout bounds a single source fetch.
	DefaultFetchTimeout = 30 * time.Second
	// DefaultUserAgent identifies the service to fetched sites.
	DefaultUserAgent = "NorthFormBot/1.0 (+https://northform.example)"
	// MaxSourceChars caps the text extracted from a single URL.
	MaxSourceChars = 20000
	// maxResponseBytes bounds how much of a response body is read.
	maxResponseBytes = 2 << 20
)

// loginWallPattern matches the phrasing login-gated pages show anonymous
// visitors. It only counts against hosts known to gate public content.
var (
	loginWallPattern  = regexp.MustCompile(`(?i)log in|login|sign in|must log in|create an account`)
	gatedHostsPattern = regexp.MustCompile(`(?i)facebook|instagram|linkedin|threads\.net`)
)

// Fetcher retrieves public pages and reduces them to plain text.
type Fetcher struct {
	client    *http.Client
	userAgent string
}

// NewFetcher creates a fetcher with a bounded HTTP client.
func NewFetcher() *Fetcher {
	return &Fetcher{
		client:    &http.Client{Timeout: DefaultFetchTimeout},
		userAgent: DefaultUserAgent,
	}
}

// Fetch retrieves one source URL and returns its extracted text alongside a
// status record. Fetch never returns an error: every failure mode is folded
// into the status so one bad source cannot abort a batch.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, models.SourceStatus) {
	status := models.SourceStatus{URL: rawURL, Status: models.SourceError}

	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", status
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", status
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", status
	}
	defer resp.Body.Close()

	status.Code = resp.StatusCode
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", status
	}
	html := string(body)

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden || isLoginWall(rawURL, html) {
		status.Status = models.SourceBlockedAuth
		return "", status
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", status
	}

	text := extractText(html)
	if len(text) > MaxSourceChars {
		text = text[:MaxSourceChars]
	}
	status.Status = models.SourceOK
	status.Chars = len(text)
	return text, status
}

// isLoginWall reports whether a 2xx page is actually a login prompt. Sites
// like Facebook and Instagram serve these instead of a 401.
func isLoginWall(rawURL, html string) bool {
	return gatedHostsPattern.MatchString(rawURL) && loginWallPattern.MatchString(html)
}

// extractText strips chrome and markup from an HTML page, leaving readable
// body text with collapsed whitespace.
func extractText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	doc.Find("nav, footer, header, script, style, noscript, iframe").Remove()
	return collapseWhitespace(doc.Find("body").Text())
}

func collapseWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// sourceHeader labels one source's contribution to the corpus.
func sourceHeader(label string) string {
	return fmt.Sprintf("\n\n=== SOURCE: %s ===\n", label)
}
