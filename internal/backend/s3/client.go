// Package s3 implements the backend.Client interface on top of S3-compatible
// object storage. Single-request uploads map to PutObject; chunked sessions
// map to multipart uploads staged under a random key and committed to their
// destination on finish, because the destination is only known at commit
// time. Parts must be at least 5 MiB on S3, so the declared chunk size is
// larger than the Dropbox one.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/dropship/internal/backend"
)

const chunkSize = 8 * 1024 * 1024

// Config holds the settings of the S3 backend. AccessKey/SecretKey are
// optional; when empty the SDK default credential chain is used.
type Config struct {
	Bucket       string
	Region       string
	BaseEndpoint string
	AccessKey    string
	SecretKey    string
}

type session struct {
	uploadID   string
	stagingKey string
	parts      []types.CompletedPart
	size       uint64
}

// Client is an S3 backend client. Not safe for concurrent use: session
// bookkeeping is unsynchronized by design, the engine drives one upload at a
// time.
type Client struct {
	api      api
	bucket   string
	sessions map[string]*session
}

// NewClient builds a Client from cfg, using static credentials when provided
// and the default chain otherwise.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3: bucket is required")
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("s3 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	return &Client{api: client, bucket: cfg.Bucket, sessions: make(map[string]*session)}, nil
}

func (c *Client) CurrentAccount(ctx context.Context) (*backend.Account, error) {
	_, err := c.api.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(c.bucket)})
	if err != nil {
		return nil, wrap("head_bucket", err)
	}
	return &backend.Account{DisplayName: "s3://" + c.bucket}, nil
}

func (c *Client) Upload(ctx context.Context, commit backend.CommitInfo, content []byte) (*backend.Metadata, error) {
	key := objectKey(commit.Path)

	in := &s3.PutObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(content),
	}
	if !commit.Overwrite {
		in.IfNoneMatch = aws.String("*")
	}

	if _, err := c.api.PutObject(ctx, in); err != nil {
		return nil, wrap("put_object", err)
	}

	return &backend.Metadata{
		Name:        path.Base(key),
		PathDisplay: commit.Path,
		Size:        uint64(len(content)),
	}, nil
}

func (c *Client) StartSession(ctx context.Context, content []byte) (string, error) {
	stagingKey := "staging/" + uuid.NewString()

	out, err := c.api.CreateMultipartUpload(ctx, &s3.CreateMultipartUploadInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(stagingKey),
	})
	if err != nil {
		return "", wrap("create_multipart_upload", err)
	}

	id := uuid.NewString()
	s := &session{uploadID: aws.ToString(out.UploadId), stagingKey: stagingKey}
	c.sessions[id] = s

	if err := c.uploadPart(ctx, s, content); err != nil {
		return "", err
	}
	return id, nil
}

func (c *Client) AppendSession(ctx context.Context, cursor backend.Cursor, content []byte) error {
	s, err := c.session(cursor.SessionID)
	if err != nil {
		return err
	}
	return c.uploadPart(ctx, s, content)
}

func (c *Client) FinishSession(ctx context.Context, cursor backend.Cursor, commit backend.CommitInfo, content []byte) (*backend.Metadata, error) {
	s, err := c.session(cursor.SessionID)
	if err != nil {
		return nil, err
	}
	defer delete(c.sessions, cursor.SessionID)

	if err := c.uploadPart(ctx, s, content); err != nil {
		return nil, err
	}

	_, err = c.api.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:          aws.String(c.bucket),
		Key:             aws.String(s.stagingKey),
		UploadId:        aws.String(s.uploadID),
		MultipartUpload: &types.CompletedMultipartUpload{Parts: s.parts},
	})
	if err != nil {
		return nil, wrap("complete_multipart_upload", err)
	}

	key := objectKey(commit.Path)
	if err := c.commitStaged(ctx, s.stagingKey, key, commit.Overwrite); err != nil {
		return nil, err
	}

	return &backend.Metadata{
		Name:        path.Base(key),
		PathDisplay: commit.Path,
		Size:        s.size,
	}, nil
}

// commitStaged moves the assembled staging object to its destination key.
// CopyObject has no conditional-write support for the destination, so
// overwrite protection is a HeadObject check; the small race is acceptable
// for a sequential uploader.
func (c *Client) commitStaged(ctx context.Context, stagingKey, key string, overwrite bool) error {
	if !overwrite {
		_, err := c.api.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(c.bucket),
			Key:    aws.String(key),
		})
		if err == nil {
			return fmt.Errorf("s3 head_object: object %q exists: %w", key, backend.ErrPathConflict)
		}
		if !isNotFound(err) {
			return wrap("head_object", err)
		}
	}

	_, err := c.api.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(c.bucket),
		Key:        aws.String(key),
		CopySource: aws.String(c.bucket + "/" + stagingKey),
	})
	if err != nil {
		return wrap("copy_object", err)
	}

	_, err = c.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(stagingKey),
	})
	if err != nil {
		return wrap("delete_object", err)
	}
	return nil
}

func (c *Client) uploadPart(ctx context.Context, s *session, content []byte) error {
	partNumber := int32(len(s.parts) + 1)

	out, err := c.api.UploadPart(ctx, &s3.UploadPartInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(s.stagingKey),
		UploadId:      aws.String(s.uploadID),
		PartNumber:    aws.Int32(partNumber),
		Body:          bytes.NewReader(content),
		ContentLength: aws.Int64(int64(len(content))),
	})
	if err != nil {
		return wrap("upload_part", err)
	}

	s.parts = append(s.parts, types.CompletedPart{ETag: out.ETag, PartNumber: aws.Int32(partNumber)})
	s.size += uint64(len(content))
	return nil
}

func (c *Client) session(id string) (*session, error) {
	s, ok := c.sessions[id]
	if !ok {
		return nil, fmt.Errorf("s3: unknown upload session %q", id)
	}
	return s, nil
}

func (c *Client) ChunkSize() int64 { return chunkSize }

func (c *Client) Close() error { return nil }

// objectKey converts a canonical remote path into an S3 object key.
func objectKey(p string) string {
	return strings.TrimPrefix(p, "/")
}

// wrap translates recognizable S3 error codes into classification sentinels.
func wrap(op string, err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "InvalidAccessKeyId", "SignatureDoesNotMatch", "AccessDenied", "ExpiredToken", "TokenRefreshRequired":
			return fmt.Errorf("s3 %s: %s: %w", op, apiErr.ErrorCode(), backend.ErrAuth)
		case "PreconditionFailed":
			return fmt.Errorf("s3 %s: %s: %w", op, apiErr.ErrorCode(), backend.ErrPathConflict)
		case "QuotaExceeded", "ServiceQuotaExceededException":
			return fmt.Errorf("s3 %s: %s: %w", op, apiErr.ErrorCode(), backend.ErrInsufficientSpace)
		}
	}
	return fmt.Errorf("s3 %s: %w", op, err)
}

func isNotFound(err error) bool {
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "NotFound"
}
