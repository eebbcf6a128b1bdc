package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DiscoverManifest scrapes a dataset index page for review shards (*.jsonl.gz that
// are not meta_ files) and returns them as a manifest in page order.
func (f *Fetcher) DiscoverManifest(ctx context.Context, indexURL string) (Manifest, error) {
	base, err := url.Parse(indexURL)
	if err != nil {
		return nil, fmt.Errorf("invalid index url '%s': %w", indexURL, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, indexURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch index '%s': %w", indexURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch index '%s': status %d", indexURL, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse index page: %w", err)
	}

	var m Manifest
	seen := make(map[string]bool)
	doc.Find("a[href]").Each(func(i int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		name := path.Base(href)
		if !strings.HasSuffix(name, ".jsonl.gz") || strings.HasPrefix(name, "meta_") {
			return
		}
		category := strings.TrimSuffix(name, ".jsonl.gz")
		if seen[category] {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		seen[category] = true
		m = append(m, Entry{Category: category, URL: base.ResolveReference(ref).String()})
	})

	f.log.Info("discovered manifest", "index", indexURL, "categories", len(m))
	return m, nil
}
