package artifacts

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const rowsMetadataKey = "rows"

// S3 stores artifacts as objects in one bucket. The row count travels as
// object metadata so List can rebuild full descriptors.
type S3 struct {
	client *s3.Client
	bucket string
}

// S3Config carries explicit construction parameters. Credentials come from
// the default AWS chain unless the endpoint setup provides its own.
type S3Config struct {
	Bucket    string
	Region    string // default us-east-1
	Endpoint  string // optional, for MinIO and other S3 compatibles
	PathStyle bool
}

// NewS3 opens an artifact store over an S3-compatible bucket.
func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 artifacts: bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return &S3{client: client, bucket: cfg.Bucket}, nil
}

// OpenS3FromEnv opens the store from process environment:
//
//	STORECORE_BLOB_S3_BUCKET (required)
//	STORECORE_BLOB_S3_REGION (default us-east-1)
//	STORECORE_BLOB_S3_ENDPOINT (optional)
//	STORECORE_BLOB_S3_PATH_STYLE true|false (default false)
func OpenS3FromEnv(ctx context.Context) (*S3, error) {
	bucket := os.Getenv("STORECORE_BLOB_S3_BUCKET")
	if bucket == "" {
		return nil, fmt.Errorf("STORECORE_BLOB_S3_BUCKET required for s3 driver")
	}
	return NewS3(ctx, S3Config{
		Bucket:    bucket,
		Region:    os.Getenv("STORECORE_BLOB_S3_REGION"),
		Endpoint:  os.Getenv("STORECORE_BLOB_S3_ENDPOINT"),
		PathStyle: strings.EqualFold(os.Getenv("STORECORE_BLOB_S3_PATH_STYLE"), "true"),
	})
}

func (s *S3) Driver() Driver { return DriverS3 }

func (s *S3) Save(ctx context.Context, ref Ref, payload []byte, contentType string, rows int) (Descriptor, error) {
	if err := ref.validate(); err != nil {
		return Descriptor{}, err
	}
	key := ref.Key()
	if _, err := s.head(ctx, key); err == nil {
		return Descriptor{}, fmt.Errorf("artifact %s already exists", key)
	}
	input := &s3.PutObjectInput{
		Bucket:   &s.bucket,
		Key:      &key,
		Body:     bytes.NewReader(payload),
		Metadata: map[string]string{rowsMetadataKey: strconv.Itoa(rows)},
	}
	if contentType != "" {
		input.ContentType = &contentType
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return Descriptor{}, err
	}
	return Descriptor{
		Ref:         ref,
		ContentType: contentType,
		SizeBytes:   int64(len(payload)),
		Rows:        rows,
		StoredAt:    time.Now().UTC(),
		Location:    s.location(key),
	}, nil
}

func (s *S3) Open(ctx context.Context, ref Ref) (Descriptor, io.ReadCloser, error) {
	if err := ref.validate(); err != nil {
		return Descriptor{}, nil, err
	}
	key := ref.Key()
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &s.bucket, Key: &key})
	if err != nil {
		return Descriptor{}, nil, fmt.Errorf("%w: %s: %v", ErrNotFound, key, err)
	}
	desc := Descriptor{
		Ref:         ref,
		ContentType: aws.ToString(out.ContentType),
		SizeBytes:   aws.ToInt64(out.ContentLength),
		Rows:        rowsFromMetadata(out.Metadata),
		StoredAt:    aws.ToTime(out.LastModified),
		Location:    s.location(key),
	}
	return desc, out.Body, nil
}

func (s *S3) List(ctx context.Context, kind string) ([]Descriptor, error) {
	prefix := kind + "/"
	var descs []Descriptor
	var token *string
	for {
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            &s.bucket,
			Prefix:            &prefix,
			ContinuationToken: token,
		})
		if err != nil {
			return nil, err
		}
		for _, obj := range out.Contents {
			ref, err := parseKey(aws.ToString(obj.Key))
			if err != nil {
				continue // foreign object in the bucket
			}
			head, err := s.head(ctx, ref.Key())
			if err != nil {
				return nil, err
			}
			descs = append(descs, Descriptor{
				Ref:         ref,
				ContentType: aws.ToString(head.ContentType),
				SizeBytes:   aws.ToInt64(head.ContentLength),
				Rows:        rowsFromMetadata(head.Metadata),
				StoredAt:    aws.ToTime(head.LastModified),
				Location:    s.location(ref.Key()),
			})
		}
		if aws.ToBool(out.IsTruncated) && out.NextContinuationToken != nil {
			token = out.NextContinuationToken
			continue
		}
		break
	}
	sort.Slice(descs, func(i, j int) bool { return descs[i].Ref.Key() < descs[j].Ref.Key() })
	return descs, nil
}

func (s *S3) Remove(ctx context.Context, ref Ref) (bool, error) {
	if err := ref.validate(); err != nil {
		return false, err
	}
	key := ref.Key()
	if _, err := s.head(ctx, key); err != nil {
		return false, nil
	}
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: &s.bucket, Key: &key}); err != nil {
		return false, err
	}
	return true, nil
}

func (s *S3) head(ctx context.Context, key string) (*s3.HeadObjectOutput, error) {
	return s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &s.bucket, Key: &key})
}

func (s *S3) location(key string) string {
	return "s3://" + s.bucket + "/" + key
}

func rowsFromMetadata(md map[string]string) int {
	for k, v := range md {
		if strings.EqualFold(k, rowsMetadataKey) {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
	}
	return 0
}
