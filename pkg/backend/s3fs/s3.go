// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package s3fs implements the s3 backend over the AWS SDK. The endpoint
// host is the bucket; endpoint paths are object keys. Directories are the
// usual S3 fiction: a trailing-slash prefix.
package s3fs

import (
	"context"
	"encoding/hex"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
	"github.com/walteh/ucp/pkg/backend"
	"gitlab.com/tozd/go/errors"
)

func init() {
	backend.Register(backend.SchemeS3, func(ctx context.Context, ep *backend.Endpoint) (backend.Backend, error) {
		return New(ctx, ep)
	})
}

// Client is the subset of the S3 API the backend uses; tests substitute a
// fake for it
type Client interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, opts ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// ☁️ Backend implements backend.Backend against one S3 bucket
type Backend struct {
	bucket string
	cli    Client
}

// 🏭 New resolves AWS credentials from the environment (endpoint
// credentials override, AWS_ENDPOINT_URL_S3 honored) and binds the backend
// to the endpoint's bucket
func New(ctx context.Context, ep *backend.Endpoint) (*Backend, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if ep.User != "" && ep.Password != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(ep.User, ep.Password, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, &backend.ConnectionError{Host: ep.Host, Err: err}
	}

	endpoint := os.Getenv("AWS_ENDPOINT_URL_S3")
	if endpoint == "" {
		endpoint = os.Getenv("AWS_ENDPOINT_URL")
	}

	cli := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	zerolog.Ctx(ctx).Debug().Str("bucket", ep.Host).Msg("s3 client ready")
	return &Backend{bucket: ep.Host, cli: cli}, nil
}

// 🏭 NewWithClient binds the backend to an injected client, for tests
func NewWithClient(bucket string, cli Client) *Backend {
	return &Backend{bucket: bucket, cli: cli}
}

// Name implements backend.Backend
func (b *Backend) Name() string {
	return "s3"
}

// key normalizes an endpoint path into an object key
func key(p string) string {
	return strings.TrimLeft(p, "/")
}

func isLocal(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

// CopyFile implements backend.Backend. An existing local source uploads to
// the destination key; otherwise the source is a key and downloads to the
// local destination.
func (b *Backend) CopyFile(ctx context.Context, src, dst string, opts *backend.CopyOptions) (int64, error) {
	if opts != nil && opts.DryRun {
		opts.Echof("[dry run] would transfer %s -> %s via s3://%s", src, dst, b.bucket)
		return 0, nil
	}
	if isLocal(src) {
		return b.upload(ctx, src, key(dst))
	}
	return b.download(ctx, key(src), dst)
}

func (b *Backend) upload(ctx context.Context, src, dstKey string) (int64, error) {
	f, err := os.Open(src)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, &backend.NotFoundError{Path: src}
		}
		return 0, errors.Errorf("opening %s: %w", src, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, errors.Errorf("stat %s: %w", src, err)
	}

	_, err = b.cli.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(b.bucket),
		Key:           aws.String(dstKey),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
	})
	if err != nil {
		return 0, errors.Errorf("putting s3://%s/%s: %w", b.bucket, dstKey, err)
	}
	return info.Size(), nil
}

func (b *Backend) download(ctx context.Context, srcKey, dst string) (int64, error) {
	out, err := b.cli.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(srcKey),
	})
	if err != nil {
		if isNoSuchKey(err) {
			return 0, &backend.NotFoundError{Path: srcKey}
		}
		return 0, errors.Errorf("getting s3://%s/%s: %w", b.bucket, srcKey, err)
	}
	defer out.Body.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, errors.Errorf("creating directory %s: %w", filepath.Dir(dst), err)
	}
	f, err := os.Create(dst)
	if err != nil {
		return 0, errors.Errorf("creating %s: %w", dst, err)
	}
	defer f.Close()

	n, err := io.Copy(f, out.Body)
	if err != nil {
		return n, errors.Errorf("downloading s3://%s/%s: %w", b.bucket, srcKey, err)
	}
	return n, nil
}

// isNoSuchKey matches the API error codes for an absent object
func isNoSuchKey(err error) bool {
	var apiErr interface{ ErrorCode() string }
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NoSuchKey" || code == "NotFound"
	}
	return false
}

// CopyDir implements backend.Backend: local tree to prefix, or prefix to
// local tree
func (b *Backend) CopyDir(ctx context.Context, src, dst string, opts *backend.CopyOptions) (*backend.CopyStats, error) {
	if opts == nil || !opts.Recursive {
		return nil, &backend.UnsupportedOperationError{Op: "copy directory", Reason: "recursive option not set"}
	}

	var stats *backend.CopyStats
	if opts.Verbose || opts.Progress {
		stats = backend.NewCopyStats()
	} else {
		stats = backend.NewMinimalCopyStats()
	}

	if opts.DryRun {
		opts.Echof("[dry run] would transfer directory %s -> %s via s3://%s", src, dst, b.bucket)
		return stats, nil
	}

	if isLocal(src) {
		err := filepath.Walk(src, func(p string, info os.FileInfo, err error) error {
			if err != nil || info.IsDir() {
				return err
			}
			rel, err := filepath.Rel(src, p)
			if err != nil {
				return err
			}
			if !opts.Accepts(backend.FileEntry{Path: p, Size: info.Size(), Modified: info.ModTime().Unix()}) {
				stats.RecordSkip()
				return nil
			}
			n, err := b.upload(ctx, p, path.Join(key(dst), filepath.ToSlash(rel)))
			if err != nil {
				return err
			}
			stats.RecordFile(n)
			return nil
		})
		if err != nil {
			return nil, err
		}
		return stats, nil
	}

	// Download every object under the prefix
	prefix := strings.TrimSuffix(key(src), "/") + "/"
	paginated := &s3.ListObjectsV2Input{
		Bucket: aws.String(b.bucket),
		Prefix: aws.String(prefix),
	}
	for {
		page, err := b.cli.ListObjectsV2(ctx, paginated)
		if err != nil {
			return nil, errors.Errorf("listing s3://%s/%s: %w", b.bucket, prefix, err)
		}
		for _, obj := range page.Contents {
			k := aws.ToString(obj.Key)
			if strings.HasSuffix(k, "/") {
				continue
			}
			rel := strings.TrimPrefix(k, prefix)
			entry := backend.FileEntry{Path: k, Size: aws.ToInt64(obj.Size)}
			if obj.LastModified != nil {
				entry.Modified = obj.LastModified.Unix()
			}
			if !opts.Accepts(entry) {
				stats.RecordSkip()
				continue
			}
			n, err := b.download(ctx, k, filepath.Join(dst, filepath.FromSlash(rel)))
			if err != nil {
				return nil, err
			}
			stats.RecordFile(n)
		}
		if page.NextContinuationToken == nil {
			break
		}
		paginated.ContinuationToken = page.NextContinuationToken
	}
	return stats, nil
}

// List implements backend.Backend: an exact key yields a single entry; a
// prefix yields its immediate children via a delimited listing
func (b *Backend) List(ctx context.Context, p string) ([]backend.FileEntry, error) {
	k := key(p)

	if k != "" && !strings.HasSuffix(k, "/") {
		head, err := b.cli.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(b.bucket),
			Key:    aws.String(k),
		})
		if err == nil {
			entry := backend.FileEntry{Path: "/" + k, Size: aws.ToInt64(head.ContentLength)}
			if head.LastModified != nil {
				entry.Modified = head.LastModified.Unix()
			}
			return []backend.FileEntry{entry}, nil
		}
		if !isNoSuchKey(err) {
			return nil, errors.Errorf("head s3://%s/%s: %w", b.bucket, k, err)
		}
	}

	prefix := k
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	var entries []backend.FileEntry
	paginated := &s3.ListObjectsV2Input{
		Bucket:    aws.String(b.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	}
	for {
		page, err := b.cli.ListObjectsV2(ctx, paginated)
		if err != nil {
			return nil, errors.Errorf("listing s3://%s/%s: %w", b.bucket, prefix, err)
		}
		for _, dir := range page.CommonPrefixes {
			entries = append(entries, backend.FileEntry{
				Path:  "/" + strings.TrimSuffix(aws.ToString(dir.Prefix), "/"),
				IsDir: true,
			})
		}
		for _, obj := range page.Contents {
			k := aws.ToString(obj.Key)
			if k == prefix {
				continue
			}
			entry := backend.FileEntry{Path: "/" + k, Size: aws.ToInt64(obj.Size)}
			if obj.LastModified != nil {
				entry.Modified = obj.LastModified.Unix()
			}
			entries = append(entries, entry)
		}
		if page.NextContinuationToken == nil {
			break
		}
		paginated.ContinuationToken = page.NextContinuationToken
	}

	if len(entries) == 0 {
		return nil, &backend.NotFoundError{Path: p}
	}
	return entries, nil
}

// Delete implements backend.Backend: one object, or everything under a
// prefix
func (b *Backend) Delete(ctx context.Context, p string) error {
	k := key(p)

	if _, err := b.cli.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(k),
	}); err == nil {
		_, err := b.cli.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(b.bucket),
			Key:    aws.String(k),
		})
		if err != nil {
			return errors.Errorf("deleting s3://%s/%s: %w", b.bucket, k, err)
		}
		return nil
	}

	prefix := strings.TrimSuffix(k, "/") + "/"
	deleted := false
	paginated := &s3.ListObjectsV2Input{
		Bucket: aws.String(b.bucket),
		Prefix: aws.String(prefix),
	}
	for {
		page, err := b.cli.ListObjectsV2(ctx, paginated)
		if err != nil {
			return errors.Errorf("listing s3://%s/%s: %w", b.bucket, prefix, err)
		}
		for _, obj := range page.Contents {
			if _, err := b.cli.DeleteObject(ctx, &s3.DeleteObjectInput{
				Bucket: aws.String(b.bucket),
				Key:    obj.Key,
			}); err != nil {
				return errors.Errorf("deleting s3://%s/%s: %w", b.bucket, aws.ToString(obj.Key), err)
			}
			deleted = true
		}
		if page.NextContinuationToken == nil {
			break
		}
		paginated.ContinuationToken = page.NextContinuationToken
	}
	if !deleted {
		return &backend.NotFoundError{Path: p}
	}
	return nil
}

// Checksum implements backend.Backend by streaming the object body through
// a local digest
func (b *Backend) Checksum(ctx context.Context, p string, algo backend.ChecksumAlgorithm) (string, error) {
	hasher, err := algo.Hasher()
	if err != nil {
		return "", err
	}

	out, err := b.cli.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key(p)),
	})
	if err != nil {
		if isNoSuchKey(err) {
			return "", &backend.NotFoundError{Path: p}
		}
		return "", errors.Errorf("getting s3://%s/%s: %w", b.bucket, key(p), err)
	}
	defer out.Body.Close()

	if _, err := io.Copy(hasher, out.Body); err != nil {
		return "", errors.Errorf("hashing s3://%s/%s: %w", b.bucket, key(p), err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}
