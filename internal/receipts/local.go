package receipts

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Local writes receipts below a directory served under urlPrefix.
type Local struct {
	dir       string
	urlPrefix string
	now       func() time.Time
}

func NewLocal(dir, urlPrefix string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Local{dir: dir, urlPrefix: strings.TrimSuffix(urlPrefix, "/"), now: time.Now}, nil
}

// Dir is the directory to serve receipts from.
func (l *Local) Dir() string { return l.dir }

func (l *Local) Save(ctx context.Context, r io.Reader) (string, error) {
	ct, ext, body, err := sniff(r)
	if err != nil {
		return "", err
	}
	key := objectKey(l.now(), ext)
	dst := filepath.Join(l.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("create receipt dir: %w", err)
	}

	f, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("create receipt file: %w", err)
	}
	n, err := io.Copy(f, body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(dst)
		return "", fmt.Errorf("write receipt: %w", err)
	}

	slog.InfoContext(ctx, "Receipt stored", "component", "receipts", "key", key, "content_type", ct, "bytes", n)
	return l.urlPrefix + "/" + key, nil
}
