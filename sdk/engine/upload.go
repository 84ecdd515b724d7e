// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/access"
	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/errs"
	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/storage"
)

// Upload sends the files at paths, relative to localRoot, to the location
// of ac. Every path has to name a regular file under localRoot; a symlink
// resolving outside localRoot is refused unless Options.FollowSymlinks.
func (e *Engine) Upload(ctx context.Context, ac access.Context, localRoot string, paths []string) (*Report, error) {
	if len(paths) == 0 {
		return newReport(DirectionUpload, nil), nil
	}
	if ac.IsZero() {
		return nil, errs.New(errs.Config, "upload", "missing access context")
	}
	files := make([]access.File, 0, len(paths))
	for _, p := range paths {
		files = append(files, access.File{RelPath: p, Context: ac})
	}
	return e.UploadFiles(ctx, localRoot, files)
}

// UploadFiles is Upload for structured files; each file is sent under its
// own context.
func (e *Engine) UploadFiles(ctx context.Context, localRoot string, files []access.File) (*Report, error) {
	if len(files) == 0 {
		return newReport(DirectionUpload, nil), nil
	}
	realRoot, err := resolveRoot(localRoot)
	if err != nil {
		return nil, err
	}
	items, err := prepare(localRoot, files, func(f access.File, local string) (access.File, error) {
		if !f.Context.Kind().IsUpload() {
			return f, errs.New(errs.Config, "upload", "%s: access kind %s does not allow uploads", f.RelPath, f.Context.Kind())
		}
		fi, err := os.Stat(local)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return f, errs.New(errs.Config, "upload", "%s: no such file under %s", f.RelPath, localRoot)
		case err != nil:
			return f, errs.Wrap(errs.IO, "upload", err)
		case !fi.Mode().IsRegular():
			return f, errs.New(errs.Config, "upload", "%s: not a regular file", f.RelPath)
		}
		if !e.followSymlinks {
			real, err := filepath.EvalSymlinks(local)
			if err != nil {
				return f, errs.Wrap(errs.IO, "upload", err)
			}
			if !within(realRoot, real) {
				return f, errs.New(errs.Config, "upload", "%s: resolves to %s, outside %s", f.RelPath, real, localRoot)
			}
		}
		f.Size = fi.Size()
		return f, nil
	})
	if err != nil {
		return nil, err
	}
	e.storesFor(items)
	return e.run(ctx, DirectionUpload, items, e.uploadOnce)
}

func (e *Engine) uploadOnce(ctx context.Context, it *item, progress func(int64)) (int64, error) {
	op := "upload " + it.file.RelPath
	f, err := os.Open(it.local)
	if err != nil {
		return 0, errs.Wrap(errs.IO, op, err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return 0, errs.Wrap(errs.IO, op, err)
	}
	contentType, err := sniffContentType(f)
	if err != nil {
		return 0, errs.Wrap(errs.IO, op, err)
	}

	err = it.store.PutStream(ctx, it.file.Context.Bucket(), it.file.Key(), f, fi.Size(), storage.PutExtras{
		ContentType: contentType,
		Metadata:    it.file.Metadata,
		OnProgress:  progress,
	})
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

// resolveRoot returns localRoot with every symlink resolved. An empty
// root is left for prepare to reject.
func resolveRoot(localRoot string) (string, error) {
	if localRoot == "" {
		return "", nil
	}
	real, err := filepath.EvalSymlinks(localRoot)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return "", errs.New(errs.Config, "upload", "local root %s does not exist", localRoot)
	case err != nil:
		return "", errs.Wrap(errs.IO, "upload", err)
	}
	return real, nil
}

func within(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

// sniffContentType reads the first 512 bytes and rewinds.
func sniffContentType(f *os.File) (string, error) {
	header := make([]byte, 512)
	n, err := io.ReadFull(f, header)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	return http.DetectContentType(header[:n]), nil
}

// prepare validates the batch up front: any bad path fails the whole
// batch with a ConfigError before a single byte moves.
func prepare(localRoot string, files []access.File, check func(f access.File, local string) (access.File, error)) ([]*item, error) {
	if localRoot == "" {
		return nil, errs.New(errs.Config, "transfer", "missing local root")
	}
	items := make([]*item, 0, len(files))
	targets := make(map[string]string, len(files))
	for _, f := range files {
		if f.Context.IsZero() {
			return nil, errs.New(errs.Config, "transfer", "%s: missing access context", f.RelPath)
		}
		rel, err := access.CleanRelPath(f.RelPath)
		if err != nil {
			return nil, err
		}
		f.RelPath = rel
		local := filepath.Join(localRoot, filepath.FromSlash(rel))
		if prev, dup := targets[local]; dup {
			return nil, errs.New(errs.Config, "transfer", "%s and %s map to the same local path", prev, f.URI())
		}
		targets[local] = f.URI()
		if f, err = check(f, local); err != nil {
			return nil, err
		}
		items = append(items, &item{file: f, local: local})
	}
	return items, nil
}
