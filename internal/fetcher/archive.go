package fetcher

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Fetcher downloads and extracts product archives, dispatching on URL
// scheme.
type Fetcher struct {
	http *HTTPFetcher
	ftp  *FTPFetcher
}

// New creates a Fetcher with shared HTTP options.
func New(opts HTTPOptions) *Fetcher {
	return &Fetcher{
		http: NewHTTPFetcher(opts),
		ftp:  NewFTPFetcher(opts.Timeout),
	}
}

// FetchArchive downloads the archive at rawURL into destDir (skipping the
// download when a non-empty copy already exists) and extracts it. Returns
// the extraction directory.
func (f *Fetcher) FetchArchive(ctx context.Context, rawURL, destDir string) (string, error) {
	log := zap.L().With(
		zap.String("component", "fetcher"),
		zap.String("url", rawURL),
	)

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", eris.Wrap(err, "fetcher: create dest dir")
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", eris.Wrap(err, "fetcher: parse url")
	}

	zipName := filepath.Base(u.Path)
	if !strings.HasSuffix(zipName, ".zip") {
		return "", eris.Errorf("fetcher: expected a .zip archive, got %q", zipName)
	}
	zipPath := filepath.Join(destDir, zipName)

	if info, statErr := os.Stat(zipPath); statErr == nil && info.Size() > 0 {
		log.Debug("archive already present, skipping download", zap.String("path", zipPath))
	} else {
		log.Info("downloading archive")
		var n int64
		switch u.Scheme {
		case "http", "https":
			n, err = f.http.DownloadToFile(ctx, rawURL, zipPath)
		case "ftp":
			n, err = f.ftp.DownloadToFile(ctx, rawURL, zipPath)
		default:
			return "", eris.Errorf("fetcher: unsupported scheme %q", u.Scheme)
		}
		if err != nil {
			return "", eris.Wrapf(err, "fetcher: download %s", rawURL)
		}
		log.Info("archive downloaded", zap.Int64("bytes", n))
	}

	extractDir := filepath.Join(destDir, strings.TrimSuffix(zipName, ".zip"))
	if err := os.MkdirAll(extractDir, 0o755); err != nil {
		return "", eris.Wrap(err, "fetcher: create extract dir")
	}

	if _, err := ExtractZIP(zipPath, extractDir); err != nil {
		return "", eris.Wrapf(err, "fetcher: extract %s", zipName)
	}

	return extractDir, nil
}
