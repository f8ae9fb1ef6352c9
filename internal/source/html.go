package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// HTMLClient scrapes an arbitrary torrent site for magnet links using
// heuristics. It keeps no state between queries: every call walks the
// candidate search URLs from scratch on a fresh transport.
type HTMLClient struct {
	info    Info
	timeout time.Duration
}

// NewHTMLClient creates a scraper for a registry entry of KindHTML.
func NewHTMLClient(info Info, timeout time.Duration) *HTMLClient {
	return &HTMLClient{
		info:    info,
		timeout: timeout,
	}
}

// ID returns the source ID.
func (c *HTMLClient) ID() ID {
	return c.info.ID
}

// Query scrapes search results, or the front page in trending mode.
func (c *HTMLClient) Query(ctx context.Context, q Query) ([]RawItem, error) {
	client, release := newHTTPClient(c.timeout)
	defer release()

	base := strings.TrimRight(c.info.Endpoint, "/")
	var candidates []string
	if q.Trending {
		candidates = []string{base + "/"}
	} else {
		term := strings.TrimSpace(q.Term)
		candidates = []string{
			base + "/search/" + url.PathEscape(term) + "/",
			base + "/search/" + url.PathEscape(term),
			base + "/search?q=" + url.QueryEscape(term),
			base + "/?s=" + url.QueryEscape(term),
			base + "/torrents/?search=" + url.QueryEscape(term),
		}
	}

	var lastErr error
	for _, candidate := range candidates {
		if ctx.Err() != nil {
			return nil, Classify(c.info.ID, ctx.Err())
		}
		items, err := c.scrape(ctx, client, candidate)
		if err != nil {
			lastErr = err
			continue
		}
		if len(items) > 0 {
			return truncate(items, q.Limit), nil
		}
	}

	if lastErr != nil {
		return nil, Classify(c.info.ID, lastErr)
	}
	return nil, nil
}

func truncate(items []RawItem, limit int) []RawItem {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}

func (c *HTMLClient) scrape(ctx context.Context, client *http.Client, pageURL string) ([]RawItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Code: resp.StatusCode}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, Malformed(c.info.ID, err)
	}
	return c.extract(doc), nil
}

// extract collects one raw item per distinct magnet link, reading the
// surrounding row or block for the title, counts and size.
func (c *HTMLClient) extract(doc *goquery.Document) []RawItem {
	var items []RawItem
	seen := make(map[string]bool)

	doc.Find("a[href^='magnet:']").Each(func(_ int, link *goquery.Selection) {
		magnet, _ := link.Attr("href")
		if seen[magnet] {
			return
		}
		seen[magnet] = true

		fields := map[string]any{
			"magnet": magnet,
			"name":   magnetName(magnet),
		}
		c.readContext(link, fields)
		if fields["name"] == "" {
			return
		}
		items = append(items, RawFromMap(fields))
	})
	return items
}

func (c *HTMLClient) readContext(link *goquery.Selection, fields map[string]any) {
	for _, sel := range []string{"tr", "div.torrent", "div.result", "li", "article", "div"} {
		container := link.Closest(sel)
		if container.Length() == 0 {
			continue
		}
		text := container.Text()

		container.Find("a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
			href, _ := a.Attr("href")
			if href == "" || strings.HasPrefix(href, "magnet:") {
				return true
			}
			title := strings.TrimSpace(a.Text())
			if isBoilerplate(title) {
				return true
			}
			if fields["name"] == "" {
				fields["name"] = title
			}
			if _, ok := fields["url"]; !ok {
				fields["url"] = c.absolute(href)
			}
			return false
		})

		seeders := numberNear(text, "seed", "se", "s:")
		size := sizeIn(text)
		if seeders != "" {
			fields["seeders"] = seeders
		}
		if leechers := numberNear(text, "leech", "le", "l:", "peer"); leechers != "" {
			fields["leechers"] = leechers
		}
		if size != "" {
			fields["size"] = size
		}
		if seeders != "" || size != "" {
			return
		}
	}
}

func (c *HTMLClient) absolute(href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	return strings.TrimRight(c.info.Endpoint, "/") + "/" + strings.TrimLeft(href, "/")
}

// Probe checks that rawURL is reachable and looks like a torrent site.
// It returns the normalized scheme://host form on success.
func Probe(ctx context.Context, rawURL string) (string, error) {
	info, err := customInfo(Custom{URL: rawURL})
	if err != nil {
		return "", err
	}

	client, release := newHTTPClient(10 * time.Second)
	defer release()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, info.Endpoint, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("site unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("site returned HTTP %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("couldn't parse page: %w", err)
	}

	pageText := strings.ToLower(doc.Text())
	hasMagnet := doc.Find("a[href^='magnet:']").Length() > 0
	hasSearch := doc.Find("input[type='search'], input[name='q'], input[name='search'], form[action*='search']").Length() > 0
	hasTorrentWords := strings.Contains(pageText, "torrent") ||
		strings.Contains(pageText, "magnet") ||
		strings.Contains(pageText, "seeders")

	if !hasMagnet && !hasSearch && !hasTorrentWords {
		return "", errors.New("doesn't look like a torrent site")
	}
	return info.Endpoint, nil
}

// magnetName decodes the dn (display name) parameter of a magnet link.
func magnetName(magnet string) string {
	query := strings.TrimPrefix(magnet, "magnet:?")
	values, _ := url.ParseQuery(query)
	return strings.TrimSpace(values.Get("dn"))
}

var (
	sizePattern   = regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*(TiB|GiB|MiB|KiB|TB|GB|MB|KB|B)\b`)
	numberPattern = regexp.MustCompile(`\d[\d,]*`)
)

func sizeIn(text string) string {
	m := sizePattern.FindStringSubmatch(text)
	if len(m) < 3 {
		return ""
	}
	unit := strings.Replace(strings.ToUpper(m[2]), "IB", "iB", 1)
	return m[1] + " " + unit
}

// numberNear returns the first plausible count within a small window of any
// hint word, as text so the normalizer applies its usual coercion. Numbers
// after the hint win over numbers before it.
func numberNear(text string, hints ...string) string {
	lower := strings.ToLower(text)
	const window = 50

	for _, hint := range hints {
		idx := strings.Index(lower, hint)
		if idx == -1 {
			continue
		}
		after := idx + len(hint)
		if m := firstCount(lower[after:min(after+window, len(lower))]); m != "" {
			return m
		}
		if m := firstCount(lower[max(idx-window, 0):idx]); m != "" {
			return m
		}
	}
	return ""
}

func firstCount(s string) string {
	for _, m := range numberPattern.FindAllString(s, -1) {
		n, err := strconv.Atoi(strings.ReplaceAll(m, ",", ""))
		if err == nil && n < 10_000_000 {
			return m
		}
	}
	return ""
}

func isBoilerplate(text string) bool {
	switch strings.ToLower(text) {
	case "home", "search", "login", "register", "about", "contact",
		"download", "magnet", "torrent", "category", "browse":
		return true
	}
	return len(text) < 3 || len(text) > 300
}
