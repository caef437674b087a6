package sftputil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"time"

	"github.com/kjk/recstore/log"
	"github.com/kjk/recstore/snapshot"
	"github.com/kjk/recstore/u"

	"github.com/google/uuid"
	"github.com/melbahja/goph"
	"github.com/pkg/sftp"
)

type Config struct {
	ServerUser string
	// ip or host name of the server
	ServerIP string
	// e.g. ~/.ssh/id_ed25519
	PrivateKeyPath string
	Passphrase     string
	// don't verify server's key against ~/.ssh/known_hosts
	IgnoreHostKey bool
}

func validateConfig(c *Config) error {
	if c == nil {
		return errors.New("must provide config")
	}
	if c.ServerUser == "" || c.ServerIP == "" || c.PrivateKeyPath == "" {
		return errors.New("must provide ServerUser, ServerIP and PrivateKeyPath")
	}
	return nil
}

// Connect opens ssh and sftp connections to the server.
// Caller must close both.
func Connect(c *Config) (*goph.Client, *sftp.Client, error) {
	if err := validateConfig(c); err != nil {
		return nil, nil, err
	}
	keyPath := u.ExpandTildeInPath(c.PrivateKeyPath)
	if !u.FileExists(keyPath) {
		return nil, nil, fmt.Errorf("key file '%s' doesn't exist", keyPath)
	}
	auth, err := goph.Key(keyPath, c.Passphrase)
	if err != nil {
		return nil, nil, fmt.Errorf("goph.Key() failed with '%w'", err)
	}
	var client *goph.Client
	if c.IgnoreHostKey {
		client, err = goph.NewUnknown(c.ServerUser, c.ServerIP, auth)
	} else {
		client, err = goph.New(c.ServerUser, c.ServerIP, auth)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("goph.New() failed with '%w'", err)
	}
	sc, err := client.NewSftp()
	if err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("client.NewSftp() failed with '%w'", err)
	}
	return client, sc, nil
}

// Target stores snapshots in a file on a server accessed over sftp.
// A connection is opened for each read / write.
type Target struct {
	Config *Config
	// absolute path of the snapshot file on the server
	Path string
}

var _ snapshot.Target = &Target{}

func NewTarget(config *Config, remotePath string) *Target {
	return &Target{
		Config: config,
		Path:   remotePath,
	}
}

func (t *Target) String() string {
	return fmt.Sprintf("sftp://%s@%s%s", t.Config.ServerUser, t.Config.ServerIP, t.Path)
}

// tempPath returns a unique path in the same directory as remotePath
// so that concurrent uploads don't write to the same file
func tempPath(remotePath string) string {
	dir, name := path.Split(remotePath)
	return path.Join(dir, "."+name+".tmp-"+uuid.NewString())
}

// closeOnCancel closes c when ctx is cancelled, which unblocks
// a transfer in progress. Call stop when done with c.
func closeOnCancel(ctx context.Context, c io.Closer) (stop func() bool) {
	return context.AfterFunc(ctx, func() {
		_ = c.Close()
	})
}

// ctxErr prefers the context error over err caused by closing
// the connection on cancellation
func ctxErr(ctx context.Context, err error) error {
	if cerr := ctx.Err(); cerr != nil {
		return cerr
	}
	return err
}

// writeAtomically writes to a temp file and renames it to remotePath
// so that readers never see a partially written file
func writeAtomically(sc *sftp.Client, remotePath string, data []byte) error {
	if err := sc.MkdirAll(path.Dir(remotePath)); err != nil {
		return fmt.Errorf("sftp.MkdirAll('%s') failed with '%w'", path.Dir(remotePath), err)
	}
	tmpPath := tempPath(remotePath)
	f, err := sc.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("sftp.Create('%s') failed with '%w'", tmpPath, err)
	}
	_, err = f.Write(data)
	errClose := f.Close()
	if err == nil {
		err = errClose
	}
	if err == nil {
		err = sc.PosixRename(tmpPath, remotePath)
	}
	if err != nil {
		_ = sc.Remove(tmpPath)
		return err
	}
	return nil
}

// WriteSnapshot uploads data to Path. ctx is checked before connecting
// and cancels the upload once connected. Setting up the connection
// itself can't be interrupted.
func (t *Target) WriteSnapshot(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	timeStart := time.Now()
	client, sc, err := Connect(t.Config)
	if err != nil {
		return err
	}
	defer client.Close()
	defer sc.Close()
	stop := closeOnCancel(ctx, client)
	defer stop()

	if err = writeAtomically(sc, t.Path, data); err != nil {
		return ctxErr(ctx, err)
	}
	log.Verbosef("sftputil: uploaded %s to '%s' in %s\n", u.FormatSize(int64(len(data))), t, u.FormatDuration(time.Since(timeStart)))
	return nil
}

// ReadSnapshot downloads Path. Cancellation works like in WriteSnapshot.
func (t *Target) ReadSnapshot(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	client, sc, err := Connect(t.Config)
	if err != nil {
		return nil, err
	}
	defer client.Close()
	defer sc.Close()
	stop := closeOnCancel(ctx, client)
	defer stop()

	f, err := sc.Open(t.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, snapshot.ErrNoSnapshot
		}
		return nil, ctxErr(ctx, fmt.Errorf("sftp.Open('%s') failed with '%w'", t.Path, err))
	}
	defer f.Close()
	d, err := io.ReadAll(f)
	if err != nil {
		return nil, ctxErr(ctx, err)
	}
	return d, nil
}
