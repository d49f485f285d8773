// Package receipts stores uploaded purchase receipts and returns the URL
// recorded on the purchase.
package receipts

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"time"

	"github.com/google/uuid"
)

var ErrUnsupportedType = errors.New("unsupported receipt type")

// allowed maps sniffed content types to file extensions.
var allowed = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/webp":      ".webp",
	"application/pdf": ".pdf",
}

type Store interface {
	// Save stores the receipt and returns the URL to show next to the purchase.
	Save(ctx context.Context, r io.Reader) (string, error)
}

// sniff peeks at the content and returns its type, extension and a reader
// that still yields the full content.
func sniff(r io.Reader) (string, string, io.Reader, error) {
	br := bufio.NewReaderSize(r, 512)
	head, err := br.Peek(512)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return "", "", nil, fmt.Errorf("read receipt: %w", err)
	}
	if len(head) == 0 {
		return "", "", nil, fmt.Errorf("empty receipt: %w", ErrUnsupportedType)
	}
	ct := http.DetectContentType(head)
	ext, ok := allowed[ct]
	if !ok {
		return "", "", nil, fmt.Errorf("%s: %w", ct, ErrUnsupportedType)
	}
	return ct, ext, br, nil
}

// objectKey lays receipts out by upload month.
func objectKey(now time.Time, ext string) string {
	return path.Join(now.Format("2006"), now.Format("01"), uuid.NewString()+ext)
}
