// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

// Package storage wraps the S3 SDK for streamed, checksummed transfers
// under refreshable credentials.
package storage

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"hash"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/sirupsen/logrus"

	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/credentials"
	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/errs"
	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/logging"
)

type ChecksumMode string

const (
	ChecksumNone   ChecksumMode = "none"
	ChecksumSHA256 ChecksumMode = "sha256"
)

func ParseChecksumMode(s string) (ChecksumMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return ChecksumNone, nil
	case "sha256":
		return ChecksumSHA256, nil
	}
	return "", errs.New(errs.Config, "checksum mode", "unsupported checksum mode %q", s)
}

const defaultRegion = "us-east-1"

// CredentialsFunc is the refresh hook of a Gateway. It is called when the
// session is first built and whenever the current credentials are about
// to expire.
type CredentialsFunc func(ctx context.Context) (credentials.Credentials, error)

type Options struct {
	Checksum     ChecksumMode
	EndpointURL  string
	UsePathStyle bool
	// Region is used when the credentials carry none.
	Region string
	// ChunkTimeout aborts an operation when no chunk moved for that long.
	ChunkTimeout time.Duration
	// ExpiryWindow refreshes credentials that early before expiry.
	ExpiryWindow time.Duration
	// PartSize of multipart uploads; zero lets the size decide.
	PartSize    int64
	Concurrency int
	HTTPClient  *http.Client
	Logger      logrus.FieldLogger
}

type ObjectInfo struct {
	Size           int64
	ContentType    string
	ETag           string
	ChecksumSHA256 string
	Metadata       map[string]string
}

type PutExtras struct {
	ContentType string
	Metadata    map[string]string
	// OnProgress receives the running byte total after every chunk.
	OnProgress func(total int64)
}

type GetExtras struct {
	OnProgress func(total int64)
}

// Gateway is built per batch and is safe for concurrent use by the
// batch's workers.
type Gateway struct {
	creds CredentialsFunc
	opts  Options
	log   logrus.FieldLogger

	mu      sync.Mutex
	client  *s3.Client
	pending *credentials.Credentials
}

func NewGateway(creds CredentialsFunc, opts Options) *Gateway {
	if opts.Checksum == "" {
		opts.Checksum = ChecksumNone
	}
	if opts.ExpiryWindow <= 0 {
		opts.ExpiryWindow = credentials.DefaultRefreshSlack
	}
	return &Gateway{creds: creds, opts: opts, log: logging.OrDiscard(opts.Logger)}
}

// Retrieve adapts the refresh hook to the SDK credentials provider; the
// SDK credentials cache calls it again once the previous value expires.
func (g *Gateway) Retrieve(ctx context.Context) (aws.Credentials, error) {
	g.mu.Lock()
	primed := g.pending
	g.pending = nil
	g.mu.Unlock()

	var c credentials.Credentials
	if primed != nil {
		c = *primed
	} else {
		var err error
		if c, err = g.creds(ctx); err != nil {
			return aws.Credentials{}, errs.Wrap(errs.Auth, "refresh session", err)
		}
		g.log.WithField("credentials", c.String()).Debug("session credentials refreshed")
	}
	return aws.Credentials{
		AccessKeyID:     c.AccessKey,
		SecretAccessKey: c.SecretKey,
		SessionToken:    c.SessionToken,
		Source:          "dataset-transfer",
		CanExpire:       c.CanExpire(),
		Expires:         c.Expiration,
	}, nil
}

func (g *Gateway) session(ctx context.Context) (*s3.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.client != nil {
		return g.client, nil
	}

	creds, err := g.creds(ctx)
	if err != nil {
		return nil, errs.Wrap(errs.Auth, "open session", err)
	}
	region := creds.Region
	if region == "" {
		region = g.opts.Region
	}
	if region == "" {
		region = defaultRegion
	}

	provider := aws.NewCredentialsCache(g, func(o *aws.CredentialsCacheOptions) {
		o.ExpiryWindow = g.opts.ExpiryWindow
	})
	var httpClient aws.HTTPClient = awshttp.NewBuildableClient()
	if g.opts.HTTPClient != nil {
		httpClient = g.opts.HTTPClient
	}
	// credentials and region come from the caller; local AWS profiles
	// must not interfere
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(provider),
		awsconfig.WithRegion(region),
		awsconfig.WithSharedConfigFiles([]string{}),
		awsconfig.WithSharedCredentialsFiles([]string{}),
		awsconfig.WithRequestChecksumCalculation(aws.RequestChecksumCalculationWhenRequired),
		awsconfig.WithResponseChecksumValidation(aws.ResponseChecksumValidationWhenRequired),
		awsconfig.WithHTTPClient(watchedClient{next: httpClient}),
	)
	if err != nil {
		return nil, errs.Wrap(errs.Config, "open session", fmt.Errorf("failed to load AWS config: %w", err))
	}

	g.client = s3.NewFromConfig(cfg, func(o *s3.Options) {
		if g.opts.EndpointURL != "" {
			o.BaseEndpoint = aws.String(g.opts.EndpointURL)
		}
		o.UsePathStyle = g.opts.UsePathStyle
	})
	g.pending = &creds
	return g.client, nil
}

// PutStream uploads size bytes from r. Large bodies go multipart with a
// part size that keeps any object within the 10 000 part limit.
func (g *Gateway) PutStream(ctx context.Context, bucket, key string, r io.Reader, size int64, extras PutExtras) error {
	op := "put " + key
	client, err := g.session(ctx)
	if err != nil {
		return err
	}

	wctx, _, stop := watchChunks(ctx, g.opts.ChunkTimeout)
	defer stop()

	input := &s3.PutObjectInput{
		Bucket:   aws.String(bucket),
		Key:      aws.String(key),
		Body:     &progressReader{ctx: wctx, r: r, onProgress: extras.OnProgress},
		Metadata: extras.Metadata,
	}
	if extras.ContentType != "" {
		input.ContentType = aws.String(extras.ContentType)
	}
	if g.opts.Checksum == ChecksumSHA256 {
		input.ChecksumAlgorithm = s3types.ChecksumAlgorithmSha256
	}

	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = partSize(size, g.opts.PartSize)
		if g.opts.Concurrency > 0 {
			u.Concurrency = g.opts.Concurrency
		}
	})
	if _, err := uploader.Upload(wctx, input); err != nil {
		return classify(wctx, op, err)
	}
	return nil
}

// GetStream copies an object into w. The byte count always has to match
// the advertised length; in SHA-256 mode the body also has to match the
// stored checksum. Mismatches are IntegrityErrors.
func (g *Gateway) GetStream(ctx context.Context, bucket, key string, w io.Writer, extras GetExtras) (int64, error) {
	op := "get " + key
	client, err := g.session(ctx)
	if err != nil {
		return 0, err
	}

	wctx, touch, stop := watchChunks(ctx, g.opts.ChunkTimeout)
	defer stop()

	input := &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}
	if g.opts.Checksum == ChecksumSHA256 {
		input.ChecksumMode = s3types.ChecksumModeEnabled
	}
	out, err := client.GetObject(wctx, input)
	if err != nil {
		return 0, classify(wctx, op, err)
	}
	defer out.Body.Close()
	touch()

	var h hash.Hash
	dst := io.Writer(localWriter{w: w})
	if g.opts.Checksum == ChecksumSHA256 {
		h = sha256.New()
		dst = io.MultiWriter(dst, h)
	}
	src := &progressReader{ctx: wctx, r: out.Body, onProgress: extras.OnProgress}
	n, err := io.CopyBuffer(dst, src, make([]byte, 1<<20))
	if err != nil {
		return n, classify(wctx, op, err)
	}

	if out.ContentLength != nil && n != *out.ContentLength {
		return n, errs.New(errs.Integrity, op, "size mismatch: got %d bytes, expected %d", n, *out.ContentLength)
	}
	if h != nil {
		if want := aws.ToString(out.ChecksumSHA256); want != "" && !isComposite(want) {
			if got := base64.StdEncoding.EncodeToString(h.Sum(nil)); got != want {
				return n, errs.New(errs.Integrity, op, "sha256 mismatch: got %s, expected %s", got, want)
			}
		}
	}
	return n, nil
}

func (g *Gateway) PutSmallObject(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	op := "put " + key
	client, err := g.session(ctx)
	if err != nil {
		return err
	}
	input := &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	}
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	input.ContentType = aws.String(contentType)
	if g.opts.Checksum == ChecksumSHA256 {
		input.ChecksumAlgorithm = s3types.ChecksumAlgorithmSha256
	}
	if _, err := client.PutObject(ctx, input); err != nil {
		return classify(ctx, op, err)
	}
	return nil
}

func (g *Gateway) GetSmallObject(ctx context.Context, bucket, key string) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := g.GetStream(ctx, bucket, key, &buf, GetExtras{}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (g *Gateway) Head(ctx context.Context, bucket, key string) (ObjectInfo, error) {
	op := "head " + key
	client, err := g.session(ctx)
	if err != nil {
		return ObjectInfo{}, err
	}
	input := &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}
	if g.opts.Checksum == ChecksumSHA256 {
		input.ChecksumMode = s3types.ChecksumModeEnabled
	}
	out, err := client.HeadObject(ctx, input)
	if err != nil {
		return ObjectInfo{}, classify(ctx, op, err)
	}
	return ObjectInfo{
		Size:           aws.ToInt64(out.ContentLength),
		ContentType:    aws.ToString(out.ContentType),
		ETag:           aws.ToString(out.ETag),
		ChecksumSHA256: aws.ToString(out.ChecksumSHA256),
		Metadata:       out.Metadata,
	}, nil
}

// partSize picks the multipart part size: the configured one, or the SDK
// minimum, grown until size fits in MaxUploadParts parts.
func partSize(size, configured int64) int64 {
	ps := max(configured, manager.MinUploadPartSize)
	if size > 0 {
		const mib = 1024 * 1024
		need := (size + int64(manager.MaxUploadParts) - 1) / int64(manager.MaxUploadParts)
		if need > ps {
			ps = (need + mib - 1) / mib * mib
		}
	}
	return ps
}

// Multipart objects carry a checksum of checksums ("<b64>-<parts>") that
// cannot be compared with a whole-body digest.
func isComposite(sum string) bool {
	return strings.Contains(sum, "-")
}
