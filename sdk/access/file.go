// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package access

// File is a dataset file addressed relative to its access context.
type File struct {
	RelPath  string
	Size     int64
	Context  Context
	Metadata map[string]string
}

// NewFile validates relPath and size.
func NewFile(ctx Context, relPath string, size int64) (File, error) {
	clean, err := CleanRelPath(relPath)
	if err != nil {
		return File{}, err
	}
	if size < 0 {
		size = 0
	}
	return File{RelPath: clean, Size: size, Context: ctx}, nil
}

func (f File) Key() string { return f.Context.Key(f.RelPath) }

// URI is the absolute location <context.base>/<relative_path>.
func (f File) URI() string { return f.Context.URI(f.RelPath) }

// Equal compares relative paths within the same context.
func (f File) Equal(o File) bool {
	return f.RelPath == o.RelPath && f.Context == o.Context
}
