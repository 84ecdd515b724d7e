// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package credentials

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/access"
	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/errs"
	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/logging"
	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/metrics"
)

const DefaultRefreshSlack = 60 * time.Second

type cacheKey struct {
	project string
	kind    access.Kind
}

func (k cacheKey) String() string { return k.project + "/" + string(k.kind) }

// Cache decorates a Provider. Download credentials are cached per
// (project, kind) and refreshed once less than the slack is left before
// expiry; upload credentials are scoped and always fetched fresh.
// Concurrent misses for the same key share one in-flight request.
type Cache struct {
	provider Provider
	slack    time.Duration
	now      func() time.Time
	log      logrus.FieldLogger
	metrics  *metrics.Metrics

	mu      sync.Mutex
	entries map[cacheKey]Credentials
	flight  singleflight.Group
}

type CacheOption func(*Cache)

func WithRefreshSlack(d time.Duration) CacheOption {
	return func(c *Cache) { c.slack = d }
}

func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) { c.now = now }
}

func WithLogger(l logrus.FieldLogger) CacheOption {
	return func(c *Cache) { c.log = l }
}

func WithMetrics(m *metrics.Metrics) CacheOption {
	return func(c *Cache) { c.metrics = m }
}

func NewCache(provider Provider, opts ...CacheOption) *Cache {
	c := &Cache{
		provider: provider,
		slack:    DefaultRefreshSlack,
		now:      time.Now,
		entries:  make(map[cacheKey]Credentials),
	}
	for _, o := range opts {
		o(c)
	}
	c.log = logging.OrDiscard(c.log)
	return c
}

// Fetch makes Cache a Provider itself.
func (c *Cache) Fetch(ctx context.Context, ac access.Context) (Credentials, error) {
	return c.Get(ctx, ac)
}

func (c *Cache) Get(ctx context.Context, ac access.Context) (Credentials, error) {
	if ac.Kind().IsUpload() {
		return c.fetch(ctx, ac)
	}

	key := cacheKey{project: ac.ProjectID(), kind: ac.Kind()}
	if creds, ok := c.lookup(key); ok {
		return creds, nil
	}

	ch := c.flight.DoChan(key.String(), func() (any, error) {
		// a flight that just finished may have stored a fresh value
		if creds, ok := c.lookup(key); ok {
			return creds, nil
		}
		// detached so that one caller giving up does not fail the others
		creds, err := c.fetch(context.WithoutCancel(ctx), ac)
		c.mu.Lock()
		defer c.mu.Unlock()
		if err != nil {
			delete(c.entries, key)
			return Credentials{}, err
		}
		c.entries[key] = creds
		return creds, nil
	})

	select {
	case <-ctx.Done():
		return Credentials{}, errs.Wrap(errs.Cancelled, "credentials", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return Credentials{}, res.Err
		}
		return res.Val.(Credentials), nil
	}
}

// Invalidate drops the cached entry of ac, e.g. after the object store
// rejected its token.
func (c *Cache) Invalidate(ac access.Context) {
	key := cacheKey{project: ac.ProjectID(), kind: ac.Kind()}
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	c.log.WithField("key", key.String()).Debug("credentials invalidated")
}

func (c *Cache) lookup(key cacheKey) (Credentials, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	creds, ok := c.entries[key]
	if !ok {
		return Credentials{}, false
	}
	if !creds.ValidFor(c.now(), c.slack) {
		delete(c.entries, key)
		return Credentials{}, false
	}
	return creds, true
}

func (c *Cache) fetch(ctx context.Context, ac access.Context) (Credentials, error) {
	log := c.log.WithFields(logrus.Fields{"project": ac.ProjectID(), "kind": ac.Kind()})
	log.Debug("requesting credentials")
	creds, err := c.provider.Fetch(ctx, ac)
	c.metrics.CredentialFetch(string(ac.Kind()), err)
	if err != nil {
		log.WithError(err).Warn("credential request failed")
		if errs.KindOf(err) == errs.Unknown {
			err = errs.Wrap(errs.Auth, "credentials", err)
		}
		return Credentials{}, err
	}
	log.WithField("credentials", creds.String()).Debug("credentials issued")
	return creds, nil
}
