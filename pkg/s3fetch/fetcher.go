package s3fetch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"
)

// FetchConfig configures a multi-capture fetch.
type FetchConfig struct {
	// URIs are the s3://bucket/key locations of the captures to fetch.
	URIs []string
	// DownloadDir is the local directory to download captures to.
	DownloadDir string
	// Concurrency is the number of captures fetched in parallel (default: 4).
	Concurrency int
	// KeepFiles if true, don't delete downloaded files on Cleanup.
	KeepFiles bool
}

// Fetcher downloads sets of capture files, e.g. one deployment's worth of
// hourly uploads, for local indexing.
type Fetcher struct {
	downloader *Downloader
	cfg        FetchConfig
}

// NewFetcher creates a capture fetcher.
func NewFetcher(client *Client, cfg FetchConfig) *Fetcher {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	return &Fetcher{
		downloader: NewDownloader(client.S3(), DefaultDownloaderConfig()),
		cfg:        cfg,
	}
}

// Fetch downloads all configured captures concurrently and returns the
// local paths in the same order as the configured URIs.
func (f *Fetcher) Fetch(ctx context.Context) ([]string, error) {
	if err := os.MkdirAll(f.cfg.DownloadDir, 0755); err != nil {
		return nil, fmt.Errorf("create download dir: %w", err)
	}

	localFiles := make([]string, len(f.cfg.URIs))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(f.cfg.Concurrency)

	for i, uri := range f.cfg.URIs {
		g.Go(func() error {
			bucket, key, err := ParseS3URI(uri)
			if err != nil {
				return fmt.Errorf("parse %s: %w", uri, err)
			}

			localPath := filepath.Join(f.cfg.DownloadDir, filepath.Base(key))
			if _, err := f.downloader.DownloadToFile(ctx, bucket, key, localPath); err != nil {
				return fmt.Errorf("download %s: %w", uri, err)
			}

			mu.Lock()
			localFiles[i] = localPath
			mu.Unlock()

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("wait for downloads: %w", err)
	}

	return localFiles, nil
}

// Cleanup removes downloaded files.
func (f *Fetcher) Cleanup() error {
	if f.cfg.KeepFiles {
		return nil
	}
	return os.RemoveAll(f.cfg.DownloadDir)
}
