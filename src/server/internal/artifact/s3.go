package artifact

import (
	"context"
	"fmt"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/cockroachdb/errors"
	"github.com/veedubyou/stem-splitter-be/src/shared/config"
	"github.com/veedubyou/stem-splitter-be/src/shared/lib/errors/mark"
	"io"
	"net/http"
)

var _ Store = S3Store{}

type S3Store struct {
	client   s3iface.S3API
	uploader *s3manager.Uploader
	bucket   string
	urls     func(key string) string
}

func NewS3StoreFromConfig(storageConfig config.S3Storage) (S3Store, error) {
	awsConfig := aws.NewConfig().WithRegion(storageConfig.Region)

	if storageConfig.AccessKeyID != "" {
		awsConfig = awsConfig.WithCredentials(credentials.NewStaticCredentials(
			storageConfig.AccessKeyID,
			storageConfig.SecretAccessKey,
			"",
		))
	}

	if storageConfig.Endpoint != "" {
		awsConfig = awsConfig.
			WithEndpoint(storageConfig.Endpoint).
			WithS3ForcePathStyle(true)
	}

	awsSession, err := session.NewSession(awsConfig)
	if err != nil {
		return S3Store{}, errors.Wrap(err, "Failed to create AWS session")
	}

	return NewS3Store(s3.New(awsSession), storageConfig), nil
}

func NewS3Store(client s3iface.S3API, storageConfig config.S3Storage) S3Store {
	bucket := storageConfig.BucketName

	urls := func(key string) string {
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, storageConfig.Region, key)
	}
	if storageConfig.Endpoint != "" {
		urls = URLGenerator{Host: storageConfig.Endpoint, Bucket: bucket}.URL
	}

	return S3Store{
		client:   client,
		uploader: s3manager.NewUploaderWithClient(client),
		bucket:   bucket,
		urls:     urls,
	}
}

func (s S3Store) Put(ctx context.Context, key string, content io.Reader, _ int64, contentType string) error {
	_, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        content,
		ContentType: aws.String(contentType),
	})

	if err != nil {
		return mark.Wrap(err, StorageWriteMark, fmt.Sprintf("Failed to upload %s to S3", key))
	}

	return nil
}

func (s S3Store) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})

	switch {
	case err == nil:
		return true, nil
	case isS3NotFound(err):
		return false, nil
	default:
		return false, mark.Wrap(err, StorageReadMark, fmt.Sprintf("Failed to head %s on S3", key))
	}
}

// HeadObject has no body, so a missing key surfaces as a bare 404 rather
// than a NoSuchKey code.
func isS3NotFound(err error) bool {
	var requestFailure awserr.RequestFailure
	if errors.As(err, &requestFailure) && requestFailure.StatusCode() == http.StatusNotFound {
		return true
	}

	var awsErr awserr.Error
	if errors.As(err, &awsErr) {
		switch awsErr.Code() {
		case "NotFound", s3.ErrCodeNoSuchKey:
			return true
		}
	}

	return false
}

func (s S3Store) PublicURL(key string) string {
	return s.urls(key)
}

func (s S3Store) Bucket() string {
	return s.bucket
}
