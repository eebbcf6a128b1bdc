package fetch

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/agenthands/reviewgraph/internal/logger"
)

// Files are the local artifacts for one category. Empty paths mean the
// corresponding download or extraction failed.
type Files struct {
	Reviews  string
	Metadata string
}

type Fetcher struct {
	client      *http.Client
	dataDir     string
	metaURLBase string
	log         *logger.Logger
}

func NewFetcher(client *http.Client, dataDir, metaURLBase string, log *logger.Logger) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &Fetcher{client: client, dataDir: dataDir, metaURLBase: metaURLBase, log: log}
}

// MetaURL is the metadata shard URL for a category.
func (f *Fetcher) MetaURL(category string) string {
	return f.metaURLBase + category + ".jsonl.gz"
}

// Download stores url at target unless target already exists.
func (f *Fetcher) Download(ctx context.Context, url, target string) (string, error) {
	if _, err := os.Stat(target); err == nil {
		f.log.Debug("download skipped, file exists", "path", target)
		return target, nil
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory for '%s': %w", target, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request for '%s': %w", url, err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download '%s': %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("failed to download '%s': status %d", url, resp.StatusCode)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), filepath.Base(target)+".part-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	n, copyErr := io.Copy(tmp, resp.Body)
	closeErr := tmp.Close()
	if copyErr != nil || closeErr != nil {
		os.Remove(tmp.Name())
		if copyErr == nil {
			copyErr = closeErr
		}
		return "", fmt.Errorf("failed to write '%s': %w", target, copyErr)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to move download into place: %w", err)
	}

	f.log.Info("downloaded", "url", url, "path", target, "bytes", n, "content_length", resp.ContentLength)
	return target, nil
}

// Extract gunzips gzPath into outPath unless outPath already exists.
// An empty outPath strips the ".gz" suffix.
func (f *Fetcher) Extract(gzPath, outPath string) (string, error) {
	if outPath == "" {
		outPath = strings.TrimSuffix(gzPath, ".gz")
	}
	if _, err := os.Stat(outPath); err == nil {
		f.log.Debug("extract skipped, file exists", "path", outPath)
		return outPath, nil
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory for '%s': %w", outPath, err)
	}

	in, err := os.Open(gzPath)
	if err != nil {
		return "", fmt.Errorf("failed to open archive '%s': %w", gzPath, err)
	}
	defer in.Close()

	zr, err := gzip.NewReader(in)
	if err != nil {
		return "", fmt.Errorf("failed to read gzip header of '%s': %w", gzPath, err)
	}
	defer zr.Close()

	tmp, err := os.CreateTemp(filepath.Dir(outPath), filepath.Base(outPath)+".part-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	_, copyErr := io.Copy(tmp, zr)
	closeErr := tmp.Close()
	if copyErr != nil || closeErr != nil {
		os.Remove(tmp.Name())
		if copyErr == nil {
			copyErr = closeErr
		}
		return "", fmt.Errorf("failed to extract '%s': %w", gzPath, copyErr)
	}
	if err := os.Rename(tmp.Name(), outPath); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to move extracted file into place: %w", err)
	}

	f.log.Info("extracted", "archive", gzPath, "path", outPath)
	return outPath, nil
}

// FetchCategory downloads and extracts the review and metadata shards of a category.
// Failures are logged and leave the corresponding path empty.
func (f *Fetcher) FetchCategory(ctx context.Context, category, reviewURL string) Files {
	var files Files
	log := f.log.With("category", category)

	gzPath := filepath.Join(f.dataDir, "downloads", category+".jsonl.gz")
	if _, err := f.Download(ctx, reviewURL, gzPath); err != nil {
		log.Error("review download failed", "error", err)
	} else if out, err := f.Extract(gzPath, filepath.Join(f.dataDir, "extracted", category+".jsonl")); err != nil {
		log.Error("review extraction failed", "error", err)
	} else {
		files.Reviews = out
	}

	metaGz := filepath.Join(f.dataDir, "downloads", "meta_"+category+".jsonl.gz")
	if _, err := f.Download(ctx, f.MetaURL(category), metaGz); err != nil {
		log.Warn("metadata download failed", "error", err)
	} else if out, err := f.Extract(metaGz, filepath.Join(f.dataDir, "extracted", "meta_"+category+".jsonl")); err != nil {
		log.Warn("metadata extraction failed", "error", err)
	} else {
		files.Metadata = out
	}

	return files
}
