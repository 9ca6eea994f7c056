package builtins

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"

	"github.com/skosovsky/toolbridge"
)

const (
	userAgent       = "Mozilla/5.0 (compatible; assist/1.0)"
	maxPageBytes    = 4 << 20
	maxPageMarkdown = 40000
)

type websiteArgs struct {
	URL string `json:"url"`
}

func newWebsiteTextTool(o Options) (toolbridge.Tool, error) {
	return toolbridge.NewTool("get_website_text_content", `Fetch a web page and return its text content as markdown.
Only text and links are kept.

Args:
    url: The URL of the web page.

Returns:
    The page content in markdown.
`, func(ctx context.Context, a websiteArgs) (string, error) {
		u, err := url.Parse(a.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return "", &toolbridge.ClientError{Reason: fmt.Sprintf("url %q must be an absolute http(s) URL", a.URL), Err: toolbridge.ErrInvalidArguments}
		}
		return fetchMarkdown(ctx, o.HTTPClient, u)
	}, toolbridge.WithTags("web"))
}

func fetchMarkdown(ctx context.Context, client *http.Client, u *url.URL) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,text/plain;q=0.8")
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", u, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("fetch %s: %s", u, resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", u, err)
	}
	if ct := resp.Header.Get("Content-Type"); strings.HasPrefix(ct, "text/plain") {
		return limitText(string(body)), nil
	}
	md, err := htmltomarkdown.ConvertString(string(body), converter.WithDomain(u.Scheme+"://"+u.Host))
	if err != nil {
		return "", fmt.Errorf("convert %s: %w", u, err)
	}
	return limitText(strings.TrimSpace(md)), nil
}

func limitText(s string) string {
	r := []rune(s)
	if len(r) <= maxPageMarkdown {
		return s
	}
	return string(r[:maxPageMarkdown]) + "\n\n[content truncated]"
}
