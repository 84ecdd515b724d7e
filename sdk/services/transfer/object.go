// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package transfer

import (
	"context"

	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/access"
	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/errs"
)

// GetFile reads one object, relative to the context's prefix, into memory.
// Meant for manifests and other small artifacts.
func (s *TransferService) GetFile(ctx context.Context, ac access.Context, relPath string) ([]byte, error) {
	if ac.IsZero() {
		return nil, errs.New(errs.Config, "get file", "missing access context")
	}
	rel, err := access.CleanRelPath(relPath)
	if err != nil {
		return nil, err
	}
	mode, err := s.checksumMode("")
	if err != nil {
		return nil, err
	}
	ac = s.withLifetime(ac)
	data, err := s.gateway(ac, mode).GetSmallObject(ctx, ac.Bucket(), ac.Key(rel))
	if errs.Is(err, errs.Auth) {
		s.cache.Invalidate(ac)
	}
	return data, err
}

// PutSmallFile writes a small control file (a JSON manifest, a
// samplesheet) at Key under the context's prefix.
func (s *TransferService) PutSmallFile(ctx context.Context, req PutSmallFileRequest) error {
	if req.Context.IsZero() {
		return errs.New(errs.Config, "put file", "missing access context")
	}
	if !req.Context.Kind().IsUpload() {
		return errs.New(errs.Config, "put file", "access kind %s does not allow uploads", req.Context.Kind())
	}
	rel, err := access.CleanRelPath(req.Key)
	if err != nil {
		return err
	}
	mode, err := s.checksumMode(req.Checksum)
	if err != nil {
		return err
	}
	ac := s.withLifetime(req.Context)
	err = s.gateway(ac, mode).PutSmallObject(ctx, ac.Bucket(), ac.Key(rel), req.Data, req.ContentType)
	if errs.Is(err, errs.Auth) {
		s.cache.Invalidate(ac)
	}
	return err
}
