// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

// Package transfer is the public entry point for dataset transfers.
package transfer

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/access"
	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/config"
	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/credentials"
	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/engine"
	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/errs"
	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/logging"
	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/manifest"
	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/metrics"
	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/storage"
)

// TransferService owns the credential cache; its lifetime is the cache's.
type TransferService struct {
	conf       config.Config
	cache      *credentials.Cache
	lister     manifest.Lister
	httpClient *http.Client
	log        logrus.FieldLogger
	metrics    *metrics.Metrics
}

type options struct {
	provider   credentials.Provider
	cache      *credentials.Cache
	lister     manifest.Lister
	httpClient *http.Client
	logger     logrus.FieldLogger
	registerer prometheus.Registerer
}

type Option func(*options)

// WithProvider replaces the control-plane credential provider.
func WithProvider(p credentials.Provider) Option {
	return func(o *options) { o.provider = p }
}

// WithCache injects a ready credential cache; it wins over WithProvider.
func WithCache(c *credentials.Cache) Option {
	return func(o *options) { o.cache = c }
}

func WithLister(l manifest.Lister) Option {
	return func(o *options) { o.lister = l }
}

// WithHTTPClient is used for the control plane and the object store.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics registers the transfer collectors with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

func NewTransferService(_ context.Context, conf config.Config, opts ...Option) (*TransferService, error) {
	conf = conf.WithDefaults()
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	log := o.logger
	if log == nil {
		log = logging.New(conf.LogLevel, nil)
	}
	m := metrics.New(o.registerer)

	lister := o.lister
	if lister == nil && conf.Core.BaseURL != "" {
		lister = manifest.NewCoreLister(config.NewHTTPCore(config.NewRetryClient(o.httpClient, conf.Core.Retries), conf.Core))
	}

	cache := o.cache
	if cache == nil {
		provider := o.provider
		switch {
		case provider != nil:
		case conf.Core.BaseURL != "":
			// credential requests are not retried here: a failure is an AuthError
			provider = credentials.NewCoreProvider(config.NewHTTPCore(config.NewRetryClient(o.httpClient, 0), conf.Core))
		case conf.S3.AccessKey != "":
			provider = credentials.NewStaticProvider(conf.S3)
		default:
			return nil, errs.New(errs.Config, "transfer service", "no control plane endpoint and no static object-store keys configured")
		}
		cache = credentials.NewCache(provider,
			credentials.WithRefreshSlack(conf.Transfer.RefreshSlack()),
			credentials.WithLogger(log),
			credentials.WithMetrics(m),
		)
	}

	return &TransferService{
		conf:       conf,
		cache:      cache,
		lister:     lister,
		httpClient: o.httpClient,
		log:        log,
		metrics:    m,
	}, nil
}

// gateway builds the object-store gateway of one batch and context. The
// gateway asks the cache whenever its session needs credentials.
func (s *TransferService) gateway(ac access.Context, mode storage.ChecksumMode) *storage.Gateway {
	return storage.NewGateway(func(ctx context.Context) (credentials.Credentials, error) {
		return s.cache.Get(ctx, ac)
	}, storage.Options{
		Checksum:     mode,
		EndpointURL:  s.conf.S3.EndpointURL,
		UsePathStyle: s.conf.S3.UsePathStyle,
		Region:       s.conf.S3.Region,
		ChunkTimeout: s.conf.Transfer.ChunkTimeout(),
		ExpiryWindow: s.conf.Transfer.RefreshSlack(),
		PartSize:     s.conf.Transfer.PartSize(),
		HTTPClient:   s.httpClient,
		Logger:       s.log,
	})
}

func (s *TransferService) engine(opts Options, followSymlinks bool) (*engine.Engine, error) {
	mode, err := s.checksumMode(opts.Checksum)
	if err != nil {
		return nil, err
	}
	retries := opts.MaxRetries
	if retries == 0 {
		retries = s.conf.Transfer.MaxRetries
	}
	parallelism := opts.Parallelism
	if parallelism == 0 {
		parallelism = s.conf.Transfer.Parallelism
	}
	if parallelism < 0 {
		return nil, errs.New(errs.Config, "transfer", "parallelism must be positive, got %d", parallelism)
	}
	fileTimeout := opts.FileTimeout
	if fileTimeout == 0 {
		fileTimeout = s.conf.Transfer.FileTimeout()
	}
	if fileTimeout < 0 {
		return nil, errs.New(errs.Config, "transfer", "file timeout must not be negative")
	}
	return engine.New(func(ac access.Context) engine.Store {
		return s.gateway(ac, mode)
	}, engine.Options{
		MaxRetries:     retries,
		Parallelism:    parallelism,
		Sink:           opts.Progress,
		FileTimeout:    fileTimeout,
		FollowSymlinks: followSymlinks,
		Logger:         s.log,
		Metrics:        s.metrics,
		OnAuthError:    s.cache.Invalidate,
	}), nil
}

func (s *TransferService) checksumMode(requested string) (storage.ChecksumMode, error) {
	if requested == "" {
		requested = s.conf.Transfer.ChecksumMode
	}
	return storage.ParseChecksumMode(requested)
}

// withLifetime applies the configured token lifetime to contexts that
// carry none.
func (s *TransferService) withLifetime(ac access.Context) access.Context {
	if ac.IsZero() || ac.TokenLifetimeHours() > 0 || s.conf.Transfer.TokenLifetimeHours <= 0 {
		return ac
	}
	return ac.WithTokenLifetime(s.conf.Transfer.TokenLifetimeHours)
}

func (s *TransferService) filesWithLifetime(files []access.File) []access.File {
	out := make([]access.File, len(files))
	for i, f := range files {
		f.Context = s.withLifetime(f.Context)
		out[i] = f
	}
	return out
}
