package vault

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"slices"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/dmitrijs2005/passvault/internal/cryptox"
	"github.com/dmitrijs2005/passvault/internal/logging"
)

// S3API is the subset of *s3.Client used by S3Backend.
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Config locates the bucket. An empty Endpoint means AWS itself; any other
// value (MinIO and friends) switches to path-style addressing.
type S3Config struct {
	Bucket    string
	Prefix    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) S3API {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// S3Backend stores each entry as a JSON object under
// <prefix>/vaults/<user>/entries/<label> and keeps the label order in
// <prefix>/vaults/<user>/index.json.
type S3Backend struct {
	client S3API
	bucket string
	prefix string
	log    logging.Logger
}

type s3Index struct {
	Labels []string `json:"labels"`
}

// NewS3Backend builds an S3 client from cfg. Static credentials are used
// when both keys are set; otherwise the default AWS credential chain applies.
func NewS3Backend(ctx context.Context, cfg S3Config, log logging.Logger) (*S3Backend, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 bucket is not configured")
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return NewS3BackendWithClient(client, cfg.Bucket, cfg.Prefix, log), nil
}

func NewS3BackendWithClient(client S3API, bucket, prefix string, log logging.Logger) *S3Backend {
	return &S3Backend{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		log:    log.With("backend", "s3", "bucket", bucket),
	}
}

func (b *S3Backend) userDir(username string) string {
	return path.Join(b.prefix, "vaults", url.PathEscape(username))
}

func (b *S3Backend) entryKey(username, label string) string {
	return path.Join(b.userDir(username), "entries", url.PathEscape(label))
}

func (b *S3Backend) indexKey(username string) string {
	return path.Join(b.userDir(username), "index.json")
}

func (b *S3Backend) Put(ctx context.Context, username, label string, entry cryptox.Sealed) error {
	idx, err := b.readIndex(ctx, username)
	if err != nil {
		return err
	}
	key := b.entryKey(username, label)
	if err := b.putJSON(ctx, key, entry); err != nil {
		return err
	}
	if slices.Contains(idx.Labels, label) {
		return nil
	}
	idx.Labels = append(idx.Labels, label)
	if err := b.putJSON(ctx, b.indexKey(username), idx); err != nil {
		// an unlisted entry must not outlive a failed Put
		if derr := b.deleteObject(ctx, key); derr != nil {
			b.log.Warn(ctx, "failed to roll back entry", "key", key, "error", derr)
		}
		return err
	}
	return nil
}

func (b *S3Backend) Update(ctx context.Context, username, label string, entry cryptox.Sealed) error {
	idx, err := b.readIndex(ctx, username)
	if err != nil {
		return err
	}
	if !slices.Contains(idx.Labels, label) {
		return ErrNotFound
	}
	return b.putJSON(ctx, b.entryKey(username, label), entry)
}

func (b *S3Backend) Get(ctx context.Context, username, label string) (cryptox.Sealed, error) {
	var out cryptox.Sealed
	if err := b.getJSON(ctx, b.entryKey(username, label), &out); err != nil {
		return cryptox.Sealed{}, err
	}
	return out, nil
}

func (b *S3Backend) Delete(ctx context.Context, username, label string) error {
	idx, err := b.readIndex(ctx, username)
	if err != nil {
		return err
	}
	i := slices.Index(idx.Labels, label)
	if i < 0 {
		return ErrNotFound
	}

	// Index first: an orphaned entry object is unreachable.
	idx.Labels = slices.Delete(idx.Labels, i, i+1)
	if err := b.putJSON(ctx, b.indexKey(username), idx); err != nil {
		return err
	}

	key := b.entryKey(username, label)
	if err := b.deleteObject(ctx, key); err != nil {
		b.log.Warn(ctx, "entry object left behind", "key", key, "error", err)
	}
	return nil
}

func (b *S3Backend) deleteObject(ctx context.Context, key string) error {
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object from S3: %w", err)
	}
	return nil
}

func (b *S3Backend) List(ctx context.Context, username string) ([]string, error) {
	idx, err := b.readIndex(ctx, username)
	if err != nil {
		return nil, err
	}
	return idx.Labels, nil
}

func (b *S3Backend) readIndex(ctx context.Context, username string) (*s3Index, error) {
	idx := &s3Index{}
	err := b.getJSON(ctx, b.indexKey(username), idx)
	if errors.Is(err, ErrNotFound) {
		return &s3Index{Labels: []string{}}, nil
	}
	if err != nil {
		return nil, err
	}
	if idx.Labels == nil {
		idx.Labels = []string{}
	}
	return idx, nil
}

func (b *S3Backend) putJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	_, err = b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		b.log.Error(ctx, "failed to put object", "key", key, "error", err)
		return fmt.Errorf("failed to upload object to S3: %w", err)
	}
	b.log.Debug(ctx, "stored object", "key", key, "size", len(data))
	return nil
}

func (b *S3Backend) getJSON(ctx context.Context, key string, v any) error {
	res, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return ErrNotFound
		}
		b.log.Error(ctx, "failed to get object", "key", key, "error", err)
		return fmt.Errorf("failed to get object from S3: %w", err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("failed to read object body: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}
