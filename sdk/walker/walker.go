// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

// Package walker lists the regular files under a local root.
package walker

import (
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/karrick/godirwalk"

	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/errs"
	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/utils"
)

type Options struct {
	IncludeHidden  bool
	FollowSymlinks bool
}

// Stats summarizes a set of files.
type Stats struct {
	TotalBytes int64
	FileCount  int
	Human      string
}

// Walk returns the regular files under root, relative to it, with forward
// slashes, sorted and unique. Hidden entries (dot names, or the hidden and
// system attributes on Windows) are skipped unless opts.IncludeHidden; a
// hidden directory is skipped with everything below it.
func Walk(root string, opts Options) ([]string, error) {
	const op = "walk"
	fi, err := os.Stat(root)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, errs.New(errs.Config, op, "local root %s does not exist", root)
	case err != nil:
		return nil, errs.Wrap(errs.IO, op, err)
	case !fi.IsDir():
		return nil, errs.New(errs.Config, op, "local root %s is not a directory", root)
	}
	root = filepath.Clean(root)

	var files []string
	err = godirwalk.Walk(root, &godirwalk.Options{
		FollowSymbolicLinks: opts.FollowSymlinks,
		Callback: func(pathname string, de *godirwalk.Dirent) error {
			if pathname == root {
				return nil
			}
			if !opts.IncludeHidden && isHidden(pathname, de.Name()) {
				if de.IsDir() {
					return godirwalk.SkipThis
				}
				return nil
			}
			if de.IsDir() {
				return nil
			}
			if !de.IsRegular() {
				if !de.IsSymlink() || !opts.FollowSymlinks {
					return nil
				}
				// symlinked directories are descended by godirwalk itself
				target, err := os.Stat(pathname)
				if err != nil || !target.Mode().IsRegular() {
					return nil
				}
			}
			rel, err := filepath.Rel(root, pathname)
			if err != nil {
				return err
			}
			files = append(files, filepath.ToSlash(rel))
			return nil
		},
		ErrorCallback: func(pathname string, err error) godirwalk.ErrorAction {
			if errors.Is(err, fs.ErrNotExist) {
				// removed while walking
				return godirwalk.SkipNode
			}
			return godirwalk.Halt
		},
	})
	if err != nil {
		return nil, errs.Wrap(errs.IO, op, err)
	}

	slices.Sort(files)
	return slices.Compact(files), nil
}

// Glob keeps the files matching pattern. Patterns are shell-style with
// doublestar's `**`; a pattern without a slash is matched against the
// base name only, so "*.fastq.gz" selects files at any depth.
func Glob(pattern string, files []string) ([]string, error) {
	pattern = filepath.ToSlash(strings.TrimSpace(pattern))
	if pattern == "" {
		return slices.Clone(files), nil
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, errs.New(errs.Config, "glob", "invalid pattern %q", pattern)
	}
	baseOnly := !strings.Contains(pattern, "/")

	out := make([]string, 0, len(files))
	for _, f := range files {
		name := f
		if baseOnly {
			name = path.Base(f)
		}
		ok, err := doublestar.Match(pattern, name)
		if err != nil {
			return nil, errs.Wrap(errs.Config, "glob", err)
		}
		if ok {
			out = append(out, f)
		}
	}
	return out, nil
}

// Stat sums the sizes of files, given relative to root.
func Stat(root string, files []string) (Stats, error) {
	var st Stats
	for _, f := range files {
		fi, err := os.Stat(filepath.Join(root, filepath.FromSlash(f)))
		if err != nil {
			return Stats{}, errs.Wrap(errs.IO, "stat "+f, err)
		}
		st.TotalBytes += fi.Size()
		st.FileCount++
	}
	st.Human = utils.HumanSize(st.TotalBytes)
	return st, nil
}
