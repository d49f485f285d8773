package receipts

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
)

// S3 uploads receipts to a bucket with the multipart upload manager.
type S3 struct {
	uploader s3manageriface.UploaderAPI
	bucket   string
	now      func() time.Time
}

// NewS3 builds an uploader from the default credential chain.
func NewS3(region, bucket string) (*S3, error) {
	sess, err := session.NewSession(&aws.Config{Region: aws.String(region)})
	if err != nil {
		return nil, fmt.Errorf("create aws session: %w", err)
	}
	return NewS3WithUploader(s3manager.NewUploader(sess), bucket), nil
}

func NewS3WithUploader(u s3manageriface.UploaderAPI, bucket string) *S3 {
	return &S3{uploader: u, bucket: bucket, now: time.Now}
}

func (s *S3) Save(ctx context.Context, r io.Reader) (string, error) {
	ct, ext, body, err := sniff(r)
	if err != nil {
		return "", err
	}
	key := "receipts/" + objectKey(s.now(), ext)

	out, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(ct),
	})
	if err != nil {
		return "", fmt.Errorf("upload receipt to s3: %w", err)
	}

	slog.InfoContext(ctx, "Receipt uploaded", "component", "receipts", "bucket", s.bucket, "key", key)
	if out.Location != "" {
		return out.Location, nil
	}
	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", s.bucket, key), nil
}
