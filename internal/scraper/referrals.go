package scraper

import (
	"bytes"
	"context"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode"

	"bankbang/internal/config"
	"bankbang/internal/models"

	"github.com/PuerkitoBio/goquery"
)

// Selectors describe a forum list page. Link falls back to Title when empty.
type Selectors struct {
	Item   string
	Title  string
	Link   string
	Author string
	Time   string
}

func SelectorsFromConfig(cfg *config.Config) Selectors {
	s := cfg.Scraper.ReferralSelector
	return Selectors{Item: s.Item, Title: s.Title, Link: s.Link, Author: s.Author, Time: s.Time}
}

var chinaTZ = time.FixedZone("CST", 8*3600)

var postTimeLayouts = []string{
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02 15:04",
	"2006/01/02",
}

// ScrapeReferralList fetches a forum list page and parses it into referrals.
func (f *Fetcher) ScrapeReferralList(ctx context.Context, pageURL, source string, sel Selectors) ([]models.Referral, error) {
	resp, err := f.Get(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	return ParseReferralList(resp.Body, resp.URL, source, sel)
}

func ParseReferralList(body []byte, pageURL *url.URL, source string, sel Selectors) ([]models.Referral, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	linkSel := sel.Link
	if linkSel == "" {
		linkSel = sel.Title
	}

	seen := map[string]bool{}
	var out []models.Referral
	doc.Find(sel.Item).Each(func(_ int, item *goquery.Selection) {
		title := cleanText(item.Find(sel.Title).First().Text())
		if title == "" {
			return
		}

		link := item.Find(linkSel).First()
		if !link.Is("a") {
			link = link.Find("a[href]").First()
		}
		href := strings.TrimSpace(link.AttrOr("href", ""))
		if href == "" {
			return
		}
		abs, err := pageURL.Parse(href)
		if err != nil {
			return
		}
		abs.Fragment = ""
		sourceURL := abs.String()
		if seen[sourceURL] {
			return
		}
		seen[sourceURL] = true

		r := models.Referral{
			Source:      source,
			SourceURL:   sourceURL,
			Title:       title,
			Content:     title,
			CompanyName: InferCompany(title),
			Status:      models.ReferralStatusActive,
		}
		if sel.Author != "" {
			r.AuthorName = cleanText(item.Find(sel.Author).First().Text())
		}
		if sel.Time != "" {
			timeNode := item.Find(sel.Time).First()
			raw := timeNode.AttrOr("datetime", "")
			if raw == "" {
				raw = timeNode.AttrOr("title", "")
			}
			if raw == "" {
				raw = timeNode.Text()
			}
			if t, ok := ParsePostTime(raw); ok {
				r.PostedAt = &t
			}
		}
		out = append(out, r)
	})
	return out, nil
}

// ParsePostTime accepts "2006-01-02 15:04" and "2006-01-02" style stamps in China time.
func ParsePostTime(raw string) (time.Time, bool) {
	raw = cleanText(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, true
	}
	for _, layout := range postTimeLayouts {
		if t, err := time.ParseInLocation(layout, raw, chinaTZ); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

var (
	bracketRe   = regexp.MustCompile(`[【\[]([^】\]]+)[】\]]`)
	companyHead = regexp.MustCompile(`^[^\d\s]+`)
)

// InferCompany takes the text in 【】 or, failing that, the leading token before 内推.
func InferCompany(title string) string {
	if m := bracketRe.FindStringSubmatch(title); m != nil {
		if name := strings.TrimSpace(m[1]); name != "" && !strings.Contains(name, "内推") {
			return name
		}
	}

	idx := strings.Index(title, "内推")
	if idx <= 0 {
		return ""
	}
	prefix := bracketRe.ReplaceAllString(title[:idx], " ")
	fields := strings.FieldsFunc(prefix, func(r rune) bool {
		return unicode.IsSpace(r) || strings.ContainsRune("|｜-—/／:：,，、", r)
	})
	if len(fields) == 0 {
		return ""
	}
	return companyHead.FindString(fields[0])
}

func cleanText(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return strings.Join(strings.Fields(s), " ")
}
