package preferences

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/tkeith/wallet-hopper-2/types"
)

// S3API is the part of the S3 client the store uses.
type S3API interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3ContentStore keeps documents in a bucket keyed by their SHA-256 and
// returns "sha256:<hex>" handles.
type S3ContentStore struct {
	client S3API
	bucket string
	prefix string
}

// NewS3ContentStore loads the default AWS config for cfg.Region.
func NewS3ContentStore(ctx context.Context, cfg types.S3Config) (*S3ContentStore, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, types.NewError(types.ErrConfigError, "failed to load AWS config", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3ContentStoreWithClient(client, cfg.Bucket, cfg.Prefix), nil
}

func NewS3ContentStoreWithClient(client S3API, bucket, prefix string) *S3ContentStore {
	return &S3ContentStore{client: client, bucket: bucket, prefix: prefix}
}

func (s *S3ContentStore) Put(ctx context.Context, data []byte) (string, error) {
	sum := sha256.Sum256(data)
	hashStr := hex.EncodeToString(sum[:])
	handle := "sha256:" + hashStr
	key := s.prefix + hashStr + ".json"

	// already stored
	if _, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}); err == nil {
		return handle, nil
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", types.NewError(types.ErrStorageUnavailable, "s3 put failed", err)
	}
	return handle, nil
}
