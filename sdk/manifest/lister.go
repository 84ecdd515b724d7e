// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package manifest

import (
	"context"
	"errors"
	"net/http"

	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/config"
	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/errs"
)

// Lister fetches the file listing of a dataset.
type Lister interface {
	List(ctx context.Context, projectID, datasetID string) (Listing, error)
}

// CoreLister reads listings from the control plane:
// GET /api/{v}/-/{project}/datasets/{id}/files.
type CoreLister struct {
	http config.CoreHTTP
}

func NewCoreLister(core config.CoreHTTP) *CoreLister {
	return &CoreLister{http: core}
}

func (l *CoreLister) List(ctx context.Context, projectID, datasetID string) (Listing, error) {
	op := "list dataset " + datasetID
	if projectID == "" || datasetID == "" {
		return Listing{}, errs.New(errs.Config, op, "project and dataset are required")
	}
	url := l.http.BuildURL(projectID, "datasets", datasetID+"/files", nil)
	body, _, err := l.http.Do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Listing{}, classifyCore(ctx, op, err)
	}
	listing, err := Parse(body)
	if err != nil {
		return Listing{}, err
	}
	return listing, nil
}

func classifyCore(ctx context.Context, op string, err error) error {
	if ctx.Err() != nil {
		return errs.Wrap(errs.Cancelled, op, ctx.Err())
	}
	var serr *config.StatusError
	if errors.As(err, &serr) {
		switch {
		case serr.Code == http.StatusUnauthorized || serr.Code == http.StatusForbidden:
			return errs.Wrap(errs.Auth, op, err)
		case serr.Code == http.StatusNotFound:
			return errs.Wrap(errs.Config, op, err)
		case serr.Code == http.StatusTooManyRequests || serr.Code >= 500:
			return errs.Wrap(errs.Transient, op, err)
		}
		return errs.Wrap(errs.Unknown, op, err)
	}
	// retryablehttp already gave up on connection errors
	return errs.Wrap(errs.Transient, op, err)
}
