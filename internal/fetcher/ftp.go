package fetcher

import (
	"context"
	"io"
	"net"
	"net/url"
	"os"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// IGN's mirror allows anonymous access only.
const (
	ftpUser     = "anonymous"
	ftpPassword = "anonymous@"
	ftpPort     = "21"
)

// FTPFetcher downloads distribution archives from the IGN FTP mirror
// (ftp.ign.fr), which carries the ADMIN-EXPRESS territories.
type FTPFetcher struct {
	timeout time.Duration
}

// NewFTPFetcher creates an FTPFetcher. A zero timeout defaults to one
// minute; territory archives run to several hundred MB.
func NewFTPFetcher(timeout time.Duration) *FTPFetcher {
	if timeout == 0 {
		timeout = time.Minute
	}
	return &FTPFetcher{timeout: timeout}
}

// ftpAddr splits an ftp:// URL into a dialable host:port and the remote
// file path.
func ftpAddr(rawURL string) (addr string, remotePath string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", eris.Wrap(err, "parse ftp url")
	}
	if u.Scheme != "ftp" {
		return "", "", eris.Errorf("expected ftp scheme, got %q", u.Scheme)
	}
	if u.Path == "" {
		return "", "", eris.New("empty path in ftp url")
	}

	addr = u.Host
	if _, _, splitErr := net.SplitHostPort(addr); splitErr != nil {
		addr = net.JoinHostPort(addr, ftpPort)
	}
	return addr, u.Path, nil
}

// ftpDownload keeps the control connection alive for as long as the data
// stream is being read. Closing it releases both.
type ftpDownload struct {
	resp *ftp.Response
	conn *ftp.ServerConn
}

func (d *ftpDownload) Read(p []byte) (int, error) { return d.resp.Read(p) }

func (d *ftpDownload) Close() error {
	respErr := d.resp.Close()
	if quitErr := d.conn.Quit(); respErr == nil {
		respErr = quitErr
	}
	return eris.Wrap(respErr, "close ftp download")
}

// Download opens an anonymous session and starts retrieving the remote
// file. The caller must close the returned ReadCloser to release the
// connection.
func (f *FTPFetcher) Download(ctx context.Context, ftpURL string) (io.ReadCloser, error) {
	addr, remotePath, err := ftpAddr(ftpURL)
	if err != nil {
		return nil, err
	}

	zap.L().Debug("ftp: retrieving",
		zap.String("component", "fetcher"),
		zap.String("addr", addr),
		zap.String("path", remotePath),
	)

	conn, err := ftp.Dial(addr, ftp.DialWithTimeout(f.timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return nil, eris.Wrapf(err, "ftp dial %s", addr)
	}
	if err := conn.Login(ftpUser, ftpPassword); err != nil {
		_ = conn.Quit()
		return nil, eris.Wrap(err, "ftp login")
	}

	resp, err := conn.Retr(remotePath)
	if err != nil {
		_ = conn.Quit()
		return nil, eris.Wrapf(err, "ftp retrieve %s", remotePath)
	}
	return &ftpDownload{resp: resp, conn: conn}, nil
}

// DownloadToFile streams the remote file to path, writing through a .part
// file and renaming on success so an interrupted transfer never leaves a
// truncated archive that a later run would mistake for a cached one.
// Returns bytes written.
func (f *FTPFetcher) DownloadToFile(ctx context.Context, ftpURL, path string) (int64, error) {
	rc, err := f.Download(ctx, ftpURL)
	if err != nil {
		return 0, err
	}
	defer rc.Close() //nolint:errcheck

	partial := path + ".part"
	file, err := os.Create(partial)
	if err != nil {
		return 0, eris.Wrapf(err, "create %s", partial)
	}

	n, err := io.Copy(file, rc)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(partial)
		return n, eris.Wrap(err, "write ftp download")
	}

	if err := os.Rename(partial, path); err != nil {
		_ = os.Remove(partial)
		return n, eris.Wrapf(err, "finalize %s", path)
	}
	return n, nil
}
