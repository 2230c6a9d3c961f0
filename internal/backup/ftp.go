// Package backup uploads database snapshots to a remote FTP server.
package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"time"

	"github.com/jlaffaye/ftp"
	log "github.com/sirupsen/logrus"
)

// ErrDisabled is returned when no FTP endpoint is configured.
var ErrDisabled = errors.New("backup: ftp endpoint not configured")

// ErrUnsupported is returned when the configured database has no local
// file to snapshot, such as a Postgres DSN.
var ErrUnsupported = errors.New("backup: database has no local snapshot file")

const dialTimeout = 15 * time.Second

// Uploader pushes SQLite snapshot files to a remote FTP directory.
type Uploader struct {
	addr     string
	user     string
	password string
	dir      string
	dbPath   string
}

// NewUploader builds an Uploader. dbPath is the local SQLite file to
// snapshot and may be empty for server-based databases.
func NewUploader(addr, user, password, dir, dbPath string) *Uploader {
	return &Uploader{addr: addr, user: user, password: password, dir: dir, dbPath: dbPath}
}

// Enabled reports whether an FTP endpoint is configured.
func (u *Uploader) Enabled() bool {
	return u != nil && u.addr != ""
}

// Run uploads the current database file under a timestamped name and
// returns the remote path written.
func (u *Uploader) Run(ctx context.Context) (string, error) {
	if !u.Enabled() {
		return "", ErrDisabled
	}
	if u.dbPath == "" {
		return "", ErrUnsupported
	}

	file, err := os.Open(u.dbPath)
	if err != nil {
		return "", fmt.Errorf("backup: open snapshot source: %w", err)
	}
	defer file.Close()

	conn, err := ftp.Dial(u.addr, ftp.DialWithContext(ctx), ftp.DialWithTimeout(dialTimeout))
	if err != nil {
		return "", fmt.Errorf("backup: dial ftp %s: %w", u.addr, err)
	}
	defer func() {
		if err := conn.Quit(); err != nil {
			log.WithError(err).Warn("ftp quit failed")
		}
	}()

	if err := conn.Login(u.user, u.password); err != nil {
		return "", fmt.Errorf("backup: ftp login: %w", err)
	}

	if u.dir != "" {
		// MakeDir fails when the directory already exists, that is fine.
		_ = conn.MakeDir(u.dir)
		if err := conn.ChangeDir(u.dir); err != nil {
			return "", fmt.Errorf("backup: change to remote dir %s: %w", u.dir, err)
		}
	}

	name := fmt.Sprintf("daiko-%s.db", time.Now().UTC().Format("20060102-150405"))
	if err := conn.Stor(name, file); err != nil {
		return "", fmt.Errorf("backup: upload %s: %w", name, err)
	}

	remote := path.Join(u.dir, name)
	log.WithField("path", remote).Info("database snapshot uploaded")
	return remote, nil
}
