// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package access

import (
	"strings"

	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/errs"
)

const scheme = "s3"

// ParseURI splits s3://bucket/prefix into bucket and a normalized prefix.
func ParseURI(uri string) (bucket, prefix string, err error) {
	sch, rest, ok := strings.Cut(uri, "://")
	if !ok {
		return "", "", errs.New(errs.Config, "parse uri", "missing scheme in %q", uri)
	}
	if !strings.EqualFold(sch, scheme) {
		return "", "", errs.New(errs.Config, "parse uri", "unsupported scheme %q in %q", sch, uri)
	}
	bucket, prefix, _ = strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", errs.New(errs.Config, "parse uri", "empty bucket in %q", uri)
	}
	return bucket, JoinKey(prefix), nil
}

// FormatURI is the inverse of ParseURI.
func FormatURI(bucket, prefix string) string {
	prefix = JoinKey(prefix)
	if prefix == "" {
		return scheme + "://" + bucket
	}
	return scheme + "://" + bucket + "/" + prefix
}

// JoinKey joins key segments with forward slashes, dropping empty
// segments so that leading, trailing and doubled slashes disappear.
func JoinKey(parts ...string) string {
	var segs []string
	for _, p := range parts {
		for _, s := range strings.Split(strings.ReplaceAll(p, "\\", "/"), "/") {
			if s != "" {
				segs = append(segs, s)
			}
		}
	}
	return strings.Join(segs, "/")
}

// CleanRelPath validates a relative transfer path and returns it in
// forward-slash form. Absolute paths, drive letters and ".." segments are
// rejected with a ConfigError.
func CleanRelPath(p string) (string, error) {
	slashed := strings.ReplaceAll(p, "\\", "/")
	if strings.HasPrefix(slashed, "/") || (len(slashed) > 1 && slashed[1] == ':') {
		return "", errs.New(errs.Config, "relative path", "absolute path %q not allowed", p)
	}
	for _, s := range strings.Split(slashed, "/") {
		if s == ".." {
			return "", errs.New(errs.Config, "relative path", "path traversal in %q", p)
		}
	}
	var segs []string
	for _, s := range strings.Split(slashed, "/") {
		if s != "" && s != "." {
			segs = append(segs, s)
		}
	}
	if len(segs) == 0 {
		return "", errs.New(errs.Config, "relative path", "empty path %q", p)
	}
	return strings.Join(segs, "/"), nil
}
