// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package transfer

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/engine"
	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/errs"
	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/walker"
)

// UploadFiles uploads a batch. The report lists every file; the error is
// set when nothing succeeded, when the batch was cancelled, or, with a
// nil report, when the request itself is invalid.
func (s *TransferService) UploadFiles(ctx context.Context, req UploadRequest) (*engine.Report, error) {
	if len(req.Paths) > 0 && len(req.Files) > 0 {
		return nil, errs.New(errs.Config, "upload", "paths and files cannot be mixed in one batch")
	}
	e, err := s.engine(req.Options, req.FollowSymlinks)
	if err != nil {
		return nil, err
	}
	if len(req.Files) > 0 {
		return e.UploadFiles(ctx, req.LocalRoot, s.filesWithLifetime(req.Files))
	}
	return e.Upload(ctx, s.withLifetime(req.Context), req.LocalRoot, req.Paths)
}

// UploadDirectory uploads every file under LocalRoot, keeping the layout
// below Context's prefix.
func (s *TransferService) UploadDirectory(ctx context.Context, req UploadDirectoryRequest) (*engine.Report, error) {
	if req.Context.IsZero() {
		return nil, errs.New(errs.Config, "upload directory", "missing access context")
	}
	files, err := walker.Walk(req.LocalRoot, walker.Options{
		IncludeHidden:  req.IncludeHidden || s.conf.Transfer.HiddenFiles,
		FollowSymlinks: req.FollowSymlinks,
	})
	if err != nil {
		return nil, err
	}
	if files, err = walker.Glob(req.Pattern, files); err != nil {
		return nil, err
	}
	stats, err := walker.Stat(req.LocalRoot, files)
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{
		"project": req.Context.ProjectID(),
		"files":   stats.FileCount,
		"size":    stats.Human,
	}).Infof("Preparing upload %s → %s", req.LocalRoot, req.Context.BaseURI())

	return s.UploadFiles(ctx, UploadRequest{
		Context:        req.Context,
		LocalRoot:      req.LocalRoot,
		Paths:          files,
		FollowSymlinks: req.FollowSymlinks,
		Options:        req.Options,
	})
}
