// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/access"
	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/errs"
	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/storage"
	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/utils"
)

// Download fetches the objects at paths, relative to the location of ac,
// into localRoot.
func (e *Engine) Download(ctx context.Context, ac access.Context, localRoot string, paths []string) (*Report, error) {
	if len(paths) == 0 {
		return newReport(DirectionDownload, nil), nil
	}
	if ac.IsZero() {
		return nil, errs.New(errs.Config, "download", "missing access context")
	}
	files := make([]access.File, 0, len(paths))
	for _, p := range paths {
		files = append(files, access.File{RelPath: p, Context: ac})
	}
	return e.DownloadFiles(ctx, localRoot, files)
}

// DownloadFiles fetches structured files, each from its own context. A
// non-zero File.Size is checked against the bytes received.
func (e *Engine) DownloadFiles(ctx context.Context, localRoot string, files []access.File) (*Report, error) {
	if len(files) == 0 {
		return newReport(DirectionDownload, nil), nil
	}
	items, err := prepare(localRoot, files, func(f access.File, local string) (access.File, error) {
		if f.Context.Kind() != access.ProjectDownload {
			return f, errs.New(errs.Config, "download", "%s: access kind %s does not allow downloads", f.RelPath, f.Context.Kind())
		}
		if f.Size < 0 {
			return f, errs.New(errs.Config, "download", "%s: negative size %d", f.RelPath, f.Size)
		}
		if fi, err := os.Stat(local); err == nil && fi.IsDir() {
			return f, errs.New(errs.Config, "download", "%s: target is a directory", f.RelPath)
		}
		return f, nil
	})
	if err != nil {
		return nil, err
	}
	e.storesFor(items)
	return e.run(ctx, DirectionDownload, items, e.downloadOnce)
}

// downloadOnce streams into <target>.part-<random> and renames it over the
// target only once every byte arrived and checked out.
func (e *Engine) downloadOnce(ctx context.Context, it *item, progress func(int64)) (n int64, err error) {
	op := "download " + it.file.RelPath
	if err := os.MkdirAll(filepath.Dir(it.local), 0o755); err != nil {
		return 0, errs.Wrap(errs.IO, op, err)
	}
	tmp := it.local + utils.PartSuffix()
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return 0, errs.Wrap(errs.IO, op, err)
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			if rerr := os.Remove(tmp); rerr != nil && !errors.Is(rerr, fs.ErrNotExist) {
				e.log.WithError(rerr).WithField("path", tmp).Warn("cannot remove partial download")
			}
		}
	}()

	n, err = it.store.GetStream(ctx, it.file.Context.Bucket(), it.file.Key(), f, storage.GetExtras{OnProgress: progress})
	if err != nil {
		return n, err
	}
	if it.file.Size > 0 && n != it.file.Size {
		return n, errs.New(errs.Integrity, op, "size mismatch: got %d bytes, listed %d", n, it.file.Size)
	}
	if err = f.Sync(); err != nil {
		return n, errs.Wrap(errs.IO, op, err)
	}
	if err = f.Close(); err != nil {
		return n, errs.Wrap(errs.IO, op, err)
	}
	if err = os.Rename(tmp, it.local); err != nil {
		return n, errs.Wrap(errs.IO, op, err)
	}
	return n, nil
}
