package receipts

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestLocalSave(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLocal(dir, "/receipts/")
	if err != nil {
		t.Fatal(err)
	}
	l.now = func() time.Time { return time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC) }

	body := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0}, 2048)...)
	url, err := l.Save(context.Background(), bytes.NewReader(body))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if !strings.HasPrefix(url, "/receipts/2024/03/") || !strings.HasSuffix(url, ".png") {
		t.Fatalf("url = %q", url)
	}

	stored, err := os.ReadFile(filepath.Join(dir, strings.TrimPrefix(url, "/receipts/")))
	if err != nil {
		t.Fatalf("read stored file: %v", err)
	}
	if !bytes.Equal(stored, body) {
		t.Fatalf("stored %d bytes, want %d", len(stored), len(body))
	}
}

func TestLocalSaveRejectsUnsupported(t *testing.T) {
	l, err := NewLocal(t.TempDir(), "/receipts")
	if err != nil {
		t.Fatal(err)
	}
	for name, body := range map[string]string{"text": "hello, receipt", "empty": ""} {
		if _, err := l.Save(context.Background(), strings.NewReader(body)); !errors.Is(err, ErrUnsupportedType) {
			t.Errorf("%s: expected ErrUnsupportedType, got %v", name, err)
		}
	}
}

type fakeUploader struct {
	s3manageriface.UploaderAPI
	input *s3manager.UploadInput
	body  []byte
	err   error
}

func (f *fakeUploader) UploadWithContext(ctx aws.Context, in *s3manager.UploadInput, _ ...func(*s3manager.Uploader)) (*s3manager.UploadOutput, error) {
	f.input = in
	f.body, _ = io.ReadAll(in.Body)
	if f.err != nil {
		return nil, f.err
	}
	return &s3manager.UploadOutput{Location: "https://bucket.s3.amazonaws.com/" + aws.StringValue(in.Key)}, nil
}

func TestS3Save(t *testing.T) {
	up := &fakeUploader{}
	s := NewS3WithUploader(up, "bucket")

	pdf := []byte("%PDF-1.4\n%âãÏÓ\n")
	url, err := s.Save(context.Background(), bytes.NewReader(pdf))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if aws.StringValue(up.input.Bucket) != "bucket" || aws.StringValue(up.input.ContentType) != "application/pdf" {
		t.Fatalf("input = %+v", up.input)
	}
	if !strings.HasPrefix(aws.StringValue(up.input.Key), "receipts/") || !strings.HasSuffix(url, ".pdf") {
		t.Fatalf("key %q url %q", aws.StringValue(up.input.Key), url)
	}
	if !bytes.Equal(up.body, pdf) {
		t.Fatal("uploaded body differs from input")
	}
}

func TestS3SaveError(t *testing.T) {
	s := NewS3WithUploader(&fakeUploader{err: errors.New("access denied")}, "bucket")
	if _, err := s.Save(context.Background(), bytes.NewReader(pngHeader)); err == nil || !strings.Contains(err.Error(), "access denied") {
		t.Fatalf("expected wrapped upload error, got %v", err)
	}
}
