package scraper

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"bankbang/internal/logger"

	"github.com/PuerkitoBio/goquery"
)

const googleFaviconService = "https://www.google.com/s2/favicons?sz=128&domain="

// DiscoverFavicon finds the best icon URL for a company website: <link rel~=icon>
// on the homepage, then /favicon.ico, then Google's favicon service.
func (f *Fetcher) DiscoverFavicon(ctx context.Context, website string) (string, error) {
	base, err := normalizeWebsite(website)
	if err != nil {
		return "", err
	}

	if resp, err := f.Get(ctx, base.String()); err == nil {
		if icon := findIconLink(resp.Body, resp.URL); icon != "" {
			return icon, nil
		}
	} else {
		logger.Debug("homepage fetch failed", "website", website, "error", err)
	}

	fallback := base.ResolveReference(&url.URL{Path: "/favicon.ico"}).String()
	if resp, err := f.Get(ctx, fallback); err == nil && len(resp.Body) > 0 && !looksLikeHTML(resp) {
		return fallback, nil
	}

	return googleFaviconService + url.QueryEscape(base.Hostname()), nil
}

func normalizeWebsite(website string) (*url.URL, error) {
	website = strings.TrimSpace(website)
	if website == "" {
		return nil, fmt.Errorf("empty website")
	}
	if !strings.Contains(website, "://") {
		website = "https://" + website
	}
	u, err := url.Parse(website)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid website %q", website)
	}
	if u.Path == "" {
		u.Path = "/"
	}
	return u, nil
}

// findIconLink prefers apple-touch-icon / larger declared sizes over plain icons.
func findIconLink(body []byte, pageURL *url.URL) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}

	base := pageURL
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if u, err := pageURL.Parse(strings.TrimSpace(href)); err == nil {
			base = u
		}
	}

	best, bestScore := "", -1
	doc.Find("link[rel]").Each(func(_ int, s *goquery.Selection) {
		rel := strings.ToLower(s.AttrOr("rel", ""))
		if !strings.Contains(rel, "icon") {
			return
		}
		href := strings.TrimSpace(s.AttrOr("href", ""))
		if href == "" || strings.HasPrefix(href, "data:") {
			return
		}
		u, err := base.Parse(href)
		if err != nil {
			return
		}

		score := 1
		if strings.Contains(rel, "apple-touch-icon") {
			score = 3
		}
		if sizes := s.AttrOr("sizes", ""); sizes != "" && sizes != "16x16" {
			score++
		}
		if score > bestScore {
			best, bestScore = u.String(), score
		}
	})
	return best
}

func looksLikeHTML(resp *Response) bool {
	return strings.Contains(strings.ToLower(resp.ContentType), "text/html")
}
