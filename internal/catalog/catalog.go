// Package catalog resolves a title code to candidate artwork URLs. The
// CID is scraped from the avbase search page; the candidate URLs derive
// from the CID by the upstream image host's fixed naming scheme.
package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"artkeeper/internal/config"
	"artkeeper/internal/models"
)

// LookupError carries the upstream failure reason verbatim; callers
// surface it to the user for a manual retry.
type LookupError struct {
	Code   string
	Reason string
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("lookup %s: %s", e.Code, e.Reason)
}

var cidPattern = regexp.MustCompile(`cid=([a-zA-Z0-9_]+)`)

// Client talks to the external catalog.
type Client struct {
	httpClient *http.Client
	cfg        config.CatalogConfig
	log        zerolog.Logger
}

func NewClient(cfg config.CatalogConfig, log zerolog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cfg:        cfg,
		log:        log,
	}
}

// LookupCandidates scrapes the CID for a title code and derives its
// candidate record. Zero usable results come back as a LookupError.
func (c *Client) LookupCandidates(ctx context.Context, code string) ([]models.CandidateRecord, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, &LookupError{Code: code, Reason: "title code is empty"}
	}

	cid, err := c.scrapeCID(ctx, code)
	if err != nil {
		return nil, err
	}

	return []models.CandidateRecord{c.recordFromCID(cid)}, nil
}

// LookupByCID is the manual-identifier path: no scrape, same derivation.
func (c *Client) LookupByCID(cid string) ([]models.CandidateRecord, error) {
	cid = strings.TrimSpace(cid)
	if cid == "" {
		return nil, &LookupError{Code: cid, Reason: "cid is empty"}
	}
	return []models.CandidateRecord{c.recordFromCID(cid)}, nil
}

// scrapeCID loads the search page for code and pulls the CID out of the
// FANZA anchor's cid= query parameter.
func (c *Client) scrapeCID(ctx context.Context, code string) (string, error) {
	searchURL := fmt.Sprintf("%s/works?q=%s", strings.TrimRight(c.cfg.BaseURL, "/"), url.QueryEscape(code))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return "", &LookupError{Code: code, Reason: err.Error()}
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &LookupError{Code: code, Reason: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &LookupError{Code: code, Reason: fmt.Sprintf("search page returned %d", resp.StatusCode)}
	}

	cid, err := ParseCID(resp.Body)
	if err != nil {
		return "", &LookupError{Code: code, Reason: err.Error()}
	}

	c.log.Debug().Str("code", code).Str("cid", cid).Msg("cid scraped")
	return cid, nil
}

// ParseCID extracts the CID from search-page HTML. Kept pure so it can
// be tested against fixture pages.
func ParseCID(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("parse search page: %w", err)
	}

	var cid string
	doc.Find("a").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if !strings.Contains(strings.TrimSpace(sel.Text()), "FANZA") {
			return true
		}
		href, ok := sel.Attr("href")
		if !ok {
			return true
		}
		decoded, err := url.QueryUnescape(href)
		if err != nil {
			decoded = href
		}
		if m := cidPattern.FindStringSubmatch(decoded); m != nil {
			cid = m[1]
			return false
		}
		return true
	})

	if cid == "" {
		return "", fmt.Errorf("no FANZA anchor with a cid parameter")
	}
	return cid, nil
}

// PicsCode converts a CID into the image host's directory code: the CID
// splits on "00" and the tail zero-pads to five digits. CIDs without a
// "00" separator pass through unchanged.
func PicsCode(cid string) string {
	parts := strings.Split(cid, "00")
	if len(parts) < 2 {
		return cid
	}
	tail := parts[len(parts)-1]
	for len(tail) < 5 {
		tail = "0" + tail
	}
	return parts[0] + tail
}

func (c *Client) recordFromCID(cid string) models.CandidateRecord {
	code := PicsCode(cid)
	base := strings.TrimRight(c.cfg.ImageBase, "/")

	wallpaper := fmt.Sprintf("%s/%s/%spl.jpg", base, code, code)
	cover := fmt.Sprintf("%s/%s/%sps.jpg", base, code, code)

	return models.CandidateRecord{
		CID: cid,
		Wallpaper: models.CandidateURL{
			URL:      wallpaper,
			Domain:   domainOf(wallpaper),
			Validity: models.LinkUnknown,
		},
		Cover: models.CandidateURL{
			URL:      cover,
			Domain:   domainOf(cover),
			Validity: models.LinkUnknown,
		},
	}
}

func domainOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
