// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

// Package access describes where and how a caller may read or write
// dataset files in the object store.
package access

import (
	"fmt"

	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/errs"
)

// Kind is the operation an access request is scoped to.
type Kind string

const (
	ProjectDownload   Kind = "PROJECT_DOWNLOAD"
	DatasetUpload     Kind = "DATASET_UPLOAD"
	ReferenceUpload   Kind = "REFERENCE_UPLOAD"
	SampleSheetUpload Kind = "SAMPLESHEET_UPLOAD"
)

func (k Kind) RequiresDataset() bool {
	return k == DatasetUpload || k == SampleSheetUpload
}

func (k Kind) IsUpload() bool {
	return k == DatasetUpload || k == ReferenceUpload || k == SampleSheetUpload
}

func (k Kind) valid() bool {
	return k == ProjectDownload || k.IsUpload()
}

// Context is an immutable access request. The zero value is invalid; use
// one of the constructors. Context values are comparable.
type Context struct {
	projectID     string
	kind          Kind
	datasetID     string
	tokenLifetime int
	bucket        string
	prefix        string
}

// New validates and builds a Context.
func New(projectID string, kind Kind, datasetID, baseURI string) (Context, error) {
	if projectID == "" {
		return Context{}, errs.New(errs.Config, "access context", "project id is required")
	}
	if !kind.valid() {
		return Context{}, errs.New(errs.Config, "access context", "unknown access kind %q", kind)
	}
	if kind.RequiresDataset() && datasetID == "" {
		return Context{}, errs.New(errs.Config, "access context", "%s requires a dataset id", kind)
	}
	if kind == ProjectDownload && datasetID != "" {
		return Context{}, errs.New(errs.Config, "access context", "%s does not take a dataset id", kind)
	}
	bucket, prefix, err := ParseURI(baseURI)
	if err != nil {
		return Context{}, err
	}
	return Context{
		projectID: projectID,
		kind:      kind,
		datasetID: datasetID,
		bucket:    bucket,
		prefix:    prefix,
	}, nil
}

func Download(projectID, baseURI string) (Context, error) {
	return New(projectID, ProjectDownload, "", baseURI)
}

func UploadDataset(projectID, datasetID, baseURI string) (Context, error) {
	return New(projectID, DatasetUpload, datasetID, baseURI)
}

func UploadReference(projectID, baseURI string) (Context, error) {
	return New(projectID, ReferenceUpload, "", baseURI)
}

func UploadSampleSheet(projectID, datasetID, baseURI string) (Context, error) {
	return New(projectID, SampleSheetUpload, datasetID, baseURI)
}

func (c Context) ProjectID() string { return c.projectID }
func (c Context) Kind() Kind         { return c.kind }
func (c Context) DatasetID() string  { return c.datasetID }
func (c Context) Bucket() string     { return c.bucket }
func (c Context) Prefix() string     { return c.prefix }

// TokenLifetimeHours is the lifetime hint passed to the control plane;
// zero means unset.
func (c Context) TokenLifetimeHours() int { return c.tokenLifetime }

func (c Context) IsZero() bool { return c == Context{} }

// BaseURI returns s3://bucket/prefix.
func (c Context) BaseURI() string { return FormatURI(c.bucket, c.prefix) }

// WithTokenLifetime returns a copy carrying the lifetime hint.
func (c Context) WithTokenLifetime(hours int) Context {
	if hours < 0 {
		hours = 0
	}
	c.tokenLifetime = hours
	return c
}

// WithBase returns a copy pointing at another base URI.
func (c Context) WithBase(baseURI string) (Context, error) {
	bucket, prefix, err := ParseURI(baseURI)
	if err != nil {
		return Context{}, err
	}
	c.bucket, c.prefix = bucket, prefix
	return c, nil
}

// Key composes the object key of a relative path under the prefix.
func (c Context) Key(relPath string) string {
	return JoinKey(c.prefix, relPath)
}

func (c Context) URI(relPath string) string {
	return FormatURI(c.bucket, c.Key(relPath))
}

func (c Context) String() string {
	if c.datasetID != "" {
		return fmt.Sprintf("%s(project=%s, dataset=%s, base=%s)", c.kind, c.projectID, c.datasetID, c.BaseURI())
	}
	return fmt.Sprintf("%s(project=%s, base=%s)", c.kind, c.projectID, c.BaseURI())
}
