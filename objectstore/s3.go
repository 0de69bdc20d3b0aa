package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/cast-iron/crucible/iox"
	"github.com/cast-iron/crucible/log"
	"github.com/cast-iron/crucible/types"
)

// S3Config holds connection settings for an S3-compatible object store.
type S3Config struct {
	// Endpoint is the host:port of the store (e.g. localhost:9000).
	Endpoint string
	// AccessKey and SecretKey are static credentials.
	AccessKey string
	SecretKey string
	// Secure selects https.
	Secure bool
	// Region is the signing region (optional, defaults to us-east-1;
	// MinIO accepts any value).
	Region string
	// Bucket, when set, is created at startup if missing.
	Bucket string
	// NotificationARN, when set, subscribes the bucket's put and delete
	// events to the given target at startup.
	NotificationARN string
}

// Validate checks that required connection settings are present.
func (c *S3Config) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("object store endpoint is required")
	}
	return nil
}

// S3Store implements Store against an S3-compatible endpoint using
// path-style addressing, as required by MinIO.
type S3Store struct {
	client *s3.Client
	logger *log.Logger
}

var _ Store = (*S3Store)(nil)

// NewS3Store connects to the endpoint and bootstraps the configured bucket:
// the bucket is created if missing and, when an ARN is configured, its
// notifications are wired to the task queue.
func NewS3Store(ctx context.Context, cfg S3Config, logger *log.Logger) (*S3Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsConfig, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	scheme := "http"
	if cfg.Secure {
		scheme = "https"
	}
	endpoint := scheme + "://" + cfg.Endpoint

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		o.BaseEndpoint = &endpoint
		o.UsePathStyle = true
	})

	store := &S3Store{client: client, logger: logger}

	if cfg.Bucket != "" {
		if err := store.bootstrapBucket(ctx, cfg.Bucket, cfg.NotificationARN); err != nil {
			return nil, err
		}
	}

	return store, nil
}

// bootstrapBucket creates the bucket if missing and installs the event
// subscription when an ARN is configured.
func (s *S3Store) bootstrapBucket(ctx context.Context, bucket, arn string) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)})
	if err != nil {
		_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(bucket)})
		if err != nil {
			return fmt.Errorf("create bucket %s: %w", bucket, err)
		}
		s.logger.Info("created bucket", map[string]any{"bucket": bucket})
	}

	if arn == "" {
		return nil
	}

	_, err = s.client.PutBucketNotificationConfiguration(ctx, &s3.PutBucketNotificationConfigurationInput{
		Bucket: aws.String(bucket),
		NotificationConfiguration: &s3types.NotificationConfiguration{
			QueueConfigurations: []s3types.QueueConfiguration{
				{
					QueueArn: aws.String(arn),
					Events: []s3types.Event{
						s3types.EventS3ObjectCreated,
						s3types.EventS3ObjectRemoved,
					},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("configure bucket notifications %s: %w", bucket, err)
	}
	s.logger.Info("configured bucket notifications", map[string]any{"bucket": bucket, "arn": arn})
	return nil
}

// List returns the identifiers under prefix. Non-recursive listings stop at
// the first path separator past the prefix.
func (s *S3Store) List(ctx context.Context, namespace, prefix string, recursive bool) ([]types.ObjectID, error) {
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(namespace),
		Prefix: aws.String(prefix),
	}
	if !recursive {
		input.Delimiter = aws.String("/")
	}

	var ids []types.ObjectID
	paginator := s3.NewListObjectsV2Paginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list %s/%s: %w", namespace, prefix, err)
		}
		for _, obj := range page.Contents {
			ids = append(ids, types.NewObjectID(namespace, aws.ToString(obj.Key)))
		}
	}
	return ids, nil
}

// Read returns the full content of an object.
func (s *S3Store) Read(ctx context.Context, obj types.ObjectID) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(obj.Namespace),
		Key:    aws.String(obj.Path),
	})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", obj, err)
	}
	defer iox.DiscardClose(out.Body)

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", obj, err)
	}
	return data, nil
}

// Write stores data under the identifier.
func (s *S3Store) Write(ctx context.Context, obj types.ObjectID, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(obj.Namespace),
		Key:    aws.String(obj.Path),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", obj, err)
	}
	return nil
}

// Download copies an object to a local file.
func (s *S3Store) Download(ctx context.Context, obj types.ObjectID, localPath string) error {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(obj.Namespace),
		Key:    aws.String(obj.Path),
	})
	if err != nil {
		return fmt.Errorf("get %s: %w", obj, err)
	}
	defer iox.DiscardClose(out.Body)

	f, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", localPath, err)
	}
	if _, err := io.Copy(f, out.Body); err != nil {
		iox.DiscardClose(f)
		return fmt.Errorf("download %s: %w", obj, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", localPath, err)
	}
	return nil
}

// Upload stores a local file under the identifier.
func (s *S3Store) Upload(ctx context.Context, localPath string, obj types.ObjectID) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", localPath, err)
	}
	defer iox.DiscardClose(f)

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(obj.Namespace),
		Key:    aws.String(obj.Path),
		Body:   f,
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", obj, err)
	}
	return nil
}

// Move relocates an object: server-side copy, then delete of the source.
func (s *S3Store) Move(ctx context.Context, src, dst types.ObjectID) error {
	source := (&url.URL{Path: src.Namespace + "/" + src.Path}).EscapedPath()
	_, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(dst.Namespace),
		Key:        aws.String(dst.Path),
		CopySource: aws.String(source),
	})
	if err != nil {
		return fmt.Errorf("copy %s to %s: %w", src, dst, err)
	}
	return s.Delete(ctx, src)
}

// Delete removes an object.
func (s *S3Store) Delete(ctx context.Context, obj types.ObjectID) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(obj.Namespace),
		Key:    aws.String(obj.Path),
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", obj, err)
	}
	return nil
}

// Metadata returns the object's user metadata plus content-type and
// content-length entries.
func (s *S3Store) Metadata(ctx context.Context, obj types.ObjectID) (map[string]string, error) {
	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(obj.Namespace),
		Key:    aws.String(obj.Path),
	})
	if err != nil {
		return nil, fmt.Errorf("head %s: %w", obj, err)
	}

	meta := make(map[string]string, len(head.Metadata)+2)
	for k, v := range head.Metadata {
		meta[k] = v
	}
	if head.ContentType != nil {
		meta["content-type"] = *head.ContentType
	}
	if head.ContentLength != nil {
		meta["content-length"] = strconv.FormatInt(*head.ContentLength, 10)
	}
	return meta, nil
}

// EnsureDirectory writes the sentinel object when nothing lives under the
// directory prefix yet.
func (s *S3Store) EnsureDirectory(ctx context.Context, dir types.ObjectID) error {
	out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(dir.Namespace),
		Prefix:  aws.String(dir.Path + "/"),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return fmt.Errorf("list %s: %w", dir, err)
	}
	if aws.ToInt32(out.KeyCount) > 0 {
		return nil
	}
	return s.Write(ctx, dir.Join(KeepFilename), nil)
}
