package knowledge

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/kiosk404/sankhya-agent/pkg/logger"
	"github.com/kiosk404/sankhya-agent/pkg/utils/json"
)

const (
	// DefaultHelpCenterURL is the first page of the Sankhya help center.
	DefaultHelpCenterURL = "https://ajuda.sankhya.com.br/api/v2/help_center/articles.json"
	// DefaultLocale keeps the Portuguese articles.
	DefaultLocale = "pt-br"

	maxRateLimitRetries = 3
)

// helpCenterPage is one page of the help center articles API.
type helpCenterPage struct {
	Articles []helpCenterArticle `json:"articles"`
	NextPage *string             `json:"next_page"`
}

type helpCenterArticle struct {
	ID        int64  `json:"id"`
	HTMLURL   string `json:"html_url"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	Draft     bool   `json:"draft"`
	Locale    string `json:"locale"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// Fetcher downloads published articles from a Zendesk help center, following
// next_page links.
type Fetcher struct {
	URL        string
	Locale     string
	HTTPClient *http.Client
	// RateLimitWait is the pause after a 429 answer.
	RateLimitWait time.Duration
}

// Fetch returns every published article of the configured locale. A page
// failure stops the walk and returns what was collected with the error.
func (f *Fetcher) Fetch(ctx context.Context) ([]Article, error) {
	url := f.URL
	if url == "" {
		url = DefaultHelpCenterURL
	}
	locale := f.Locale
	if locale == "" {
		locale = DefaultLocale
	}
	client := f.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	wait := f.RateLimitWait
	if wait <= 0 {
		wait = 10 * time.Second
	}

	var out []Article
	retries := 0
	for page := 1; url != ""; {
		logger.InfoX(ModuleName, "downloading page %d", page)
		data, status, err := get(ctx, client, url)
		if err != nil {
			return out, fmt.Errorf("page %d: %w", page, err)
		}
		if status == http.StatusTooManyRequests && retries < maxRateLimitRetries {
			retries++
			logger.WarnX(ModuleName, "rate limited, waiting %s", wait)
			select {
			case <-ctx.Done():
				return out, ctx.Err()
			case <-time.After(wait):
			}
			continue
		}
		if status != http.StatusOK {
			return out, fmt.Errorf("page %d: status %d", page, status)
		}
		retries = 0

		p, err := parsePage(data)
		if err != nil {
			return out, fmt.Errorf("page %d: %w", page, err)
		}
		out = append(out, publishedArticles(p, locale)...)
		url = ""
		if p.NextPage != nil {
			url = *p.NextPage
		}
		page++
	}
	return out, nil
}

func get(ctx context.Context, client *http.Client, url string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	return data, resp.StatusCode, err
}

// parsePage decodes one page of the articles API.
func parsePage(data []byte) (*helpCenterPage, error) {
	var p helpCenterPage
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode articles: %w", err)
	}
	return &p, nil
}

// LoadExport reads a saved articles page, for offline indexing.
func LoadExport(path, locale string) ([]Article, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	p, err := parsePage(data)
	if err != nil {
		return nil, err
	}
	if locale == "" {
		locale = DefaultLocale
	}
	return publishedArticles(p, locale), nil
}

func publishedArticles(p *helpCenterPage, locale string) []Article {
	out := make([]Article, 0, len(p.Articles))
	for _, a := range p.Articles {
		if a.Draft || a.Locale != locale {
			continue
		}
		out = append(out, Article{
			ID:        a.ID,
			URL:       a.HTMLURL,
			Title:     a.Title,
			Body:      a.Body,
			CreatedAt: a.CreatedAt,
			UpdatedAt: a.UpdatedAt,
		})
	}
	return out
}
