// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package transfer

import (
	"time"

	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/access"
	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/engine"
)

// Options of a batch. Zero values take the configured defaults; a
// negative MaxRetries disables retries.
type Options struct {
	MaxRetries  int
	Parallelism int
	// Checksum is "none" or "sha256".
	Checksum string
	Progress engine.Sink
	// FileTimeout bounds every attempt of a single file.
	FileTimeout time.Duration
}

// -------- Upload --------

// UploadRequest carries either Paths, relative to LocalRoot and sent
// under Context, or Files, each sent under its own context. Setting both
// is a ConfigError.
type UploadRequest struct {
	Context   access.Context
	LocalRoot string
	Paths     []string
	Files     []access.File
	// FollowSymlinks allows paths that resolve outside LocalRoot.
	FollowSymlinks bool
	Options
}

type UploadDirectoryRequest struct {
	Context   access.Context
	LocalRoot string
	// Pattern optionally filters the walked files, e.g. "*.fastq.gz".
	Pattern        string
	IncludeHidden  bool
	FollowSymlinks bool
	Options
}

// -------- Download --------

type DownloadRequest struct {
	Context   access.Context
	LocalRoot string
	Paths     []string
	Files     []access.File
	Options
}

type DownloadDatasetRequest struct {
	ProjectID   string
	DatasetID   string
	Destination string
	Pattern     string
	Options
}

// -------- Small objects --------

type PutSmallFileRequest struct {
	Context     access.Context
	Key         string
	Data        []byte
	ContentType string
	Checksum    string
}
