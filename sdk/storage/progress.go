// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/errs"
)

// progressReader counts bytes, reports the running total after every
// chunk and stops at the first chunk boundary after ctx is done.
type progressReader struct {
	ctx        context.Context
	r          io.Reader
	read       int64
	onProgress func(total int64)
}

func (pr *progressReader) Read(p []byte) (int, error) {
	if err := pr.ctx.Err(); err != nil {
		return 0, context.Cause(pr.ctx)
	}
	n, err := pr.r.Read(p)
	if n > 0 {
		pr.read += int64(n)
		if pr.onProgress != nil {
			pr.onProgress(pr.read)
		}
	}
	return n, err
}

// localWriter marks write failures as local IO errors so they are not
// mistaken for network errors.
type localWriter struct {
	w io.Writer
}

func (lw localWriter) Write(p []byte) (int, error) {
	n, err := lw.w.Write(p)
	if err != nil {
		return n, errs.Wrap(errs.IO, "write", err)
	}
	return n, nil
}

type touchKey struct{}

// watchChunks derives a context that is cancelled with a TransientError
// when no chunk moved for idle. touch re-arms the timer, stop releases it.
// The context carries touch, so requests sent under it through a
// watchedClient re-arm the timer as their bodies move on the wire.
func watchChunks(ctx context.Context, idle time.Duration) (context.Context, func(), func()) {
	if idle <= 0 {
		return ctx, func() {}, func() {}
	}
	wctx, cancel := context.WithCancelCause(ctx)
	timer := time.AfterFunc(idle, func() {
		cancel(errs.New(errs.Transient, "transfer", "no data moved for %s", idle))
	})
	var mu sync.Mutex
	touch := func() {
		mu.Lock()
		timer.Reset(idle)
		mu.Unlock()
	}
	stop := func() {
		mu.Lock()
		timer.Stop()
		mu.Unlock()
		cancel(nil)
	}
	return context.WithValue(wctx, touchKey{}, touch), touch, stop
}

func touchFrom(ctx context.Context) func() {
	touch, _ := ctx.Value(touchKey{}).(func())
	return touch
}

// watchedClient re-arms the watchdog of a request's context whenever its
// body is read by the transport, its response arrives, or its response
// body is read. Idleness is measured on the connection, not on the
// uploader's part buffers.
type watchedClient struct {
	next aws.HTTPClient
}

func (c watchedClient) Do(req *http.Request) (*http.Response, error) {
	touch := touchFrom(req.Context())
	if touch == nil {
		return c.next.Do(req)
	}
	if req.Body != nil && req.Body != http.NoBody {
		req = req.Clone(req.Context())
		req.Body = &touchBody{ReadCloser: req.Body, touch: touch}
	}
	resp, err := c.next.Do(req)
	if err != nil {
		return resp, err
	}
	touch()
	if resp.Body != nil && resp.Body != http.NoBody {
		resp.Body = &touchBody{ReadCloser: resp.Body, touch: touch}
	}
	return resp, nil
}

type touchBody struct {
	io.ReadCloser
	touch func()
}

func (b *touchBody) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	if n > 0 {
		b.touch()
	}
	return n, err
}
