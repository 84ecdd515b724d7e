// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package transfer

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/access"
	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/engine"
	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/errs"
	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/manifest"
	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/utils"
	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/walker"
)

// DownloadFiles downloads a batch into LocalRoot. Structured files are
// read from their own contexts, not from req.Context.
func (s *TransferService) DownloadFiles(ctx context.Context, req DownloadRequest) (*engine.Report, error) {
	if len(req.Paths) > 0 && len(req.Files) > 0 {
		return nil, errs.New(errs.Config, "download", "paths and files cannot be mixed in one batch")
	}
	e, err := s.engine(req.Options, false)
	if err != nil {
		return nil, err
	}
	if len(req.Files) > 0 {
		return e.DownloadFiles(ctx, req.LocalRoot, s.filesWithLifetime(req.Files))
	}
	return e.Download(ctx, s.withLifetime(req.Context), req.LocalRoot, req.Paths)
}

// DownloadDataset lists a dataset on the control plane and downloads the
// files matching Pattern, or all of them.
func (s *TransferService) DownloadDataset(ctx context.Context, req DownloadDatasetRequest) (*engine.Report, error) {
	const op = "download dataset"
	if s.lister == nil {
		return nil, errs.New(errs.Config, op, "no control plane configured for listings")
	}
	listing, err := s.lister.List(ctx, req.ProjectID, req.DatasetID)
	if err != nil {
		return nil, err
	}
	if listing.BaseURI == "" {
		return nil, errs.New(errs.Config, op, "listing of %s has no base uri", req.DatasetID)
	}
	ac, err := access.Download(req.ProjectID, listing.BaseURI)
	if err != nil {
		return nil, err
	}
	files, err := manifest.Files(ac, listing)
	if err != nil {
		return nil, err
	}
	if files, err = filterFiles(req.Pattern, files); err != nil {
		return nil, err
	}

	var total int64
	for _, f := range files {
		total += f.Size
	}
	s.log.WithFields(logrus.Fields{
		"project": req.ProjectID,
		"dataset": req.DatasetID,
		"files":   len(files),
		"size":    utils.HumanSize(total),
	}).Infof("Preparing download %s → %s", listing.BaseURI, req.Destination)

	return s.DownloadFiles(ctx, DownloadRequest{
		LocalRoot: req.Destination,
		Files:     files,
		Options:   req.Options,
	})
}

func filterFiles(pattern string, files []access.File) ([]access.File, error) {
	if pattern == "" {
		return files, nil
	}
	rels := make([]string, 0, len(files))
	for _, f := range files {
		rels = append(rels, f.RelPath)
	}
	kept, err := walker.Glob(pattern, rels)
	if err != nil {
		return nil, err
	}
	keep := make(map[string]bool, len(kept))
	for _, k := range kept {
		keep[k] = true
	}
	out := files[:0:0]
	for _, f := range files {
		if keep[f.RelPath] {
			out = append(out, f)
		}
	}
	return out, nil
}
