// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

// Package manifest turns control-plane file listings into transfer inputs.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"strings"

	"sigs.k8s.io/yaml"

	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/access"
	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/errs"
)

type Record struct {
	Path     string         `json:"path"`
	Size     int64          `json:"size"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type Listing struct {
	BaseURI string   `json:"base_uri"`
	Files   []Record `json:"files"`
}

// Parse reads a listing in JSON or YAML.
func Parse(data []byte) (Listing, error) {
	jsonBytes, err := yaml.YAMLToJSON(data)
	if err != nil {
		return Listing{}, errs.Wrap(errs.Config, "parse listing", err)
	}
	var l Listing
	if err := json.Unmarshal(jsonBytes, &l); err != nil {
		return Listing{}, errs.Wrap(errs.Config, "parse listing", err)
	}
	return l, nil
}

func Load(filename string) (Listing, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return Listing{}, errs.Wrap(errs.IO, "load listing", err)
	}
	return Parse(data)
}

// Files builds the File values of a listing. The listing's base URI, when
// set, replaces the one of ac. A relative record path is joined to the
// base; an absolute s3:// path overrides it: under the base it becomes
// relative to it, elsewhere the file gets a context of its own rooted at
// the object's parent.
func Files(ac access.Context, l Listing) ([]access.File, error) {
	const op = "listing"
	if ac.IsZero() {
		return nil, errs.New(errs.Config, op, "missing access context")
	}
	base := ac
	if l.BaseURI != "" {
		var err error
		if base, err = ac.WithBase(l.BaseURI); err != nil {
			return nil, err
		}
	}

	files := make([]access.File, 0, len(l.Files))
	for i, rec := range l.Files {
		if rec.Size < 0 {
			return nil, errs.New(errs.Config, op, "record %d (%s): negative size %d", i, rec.Path, rec.Size)
		}
		fctx, rel, err := resolve(base, rec.Path)
		if err != nil {
			return nil, err
		}
		f, err := access.NewFile(fctx, rel, rec.Size)
		if err != nil {
			return nil, err
		}
		f.Metadata = stringify(rec.Metadata)
		files = append(files, f)
	}
	return files, nil
}

func resolve(base access.Context, p string) (access.Context, string, error) {
	if !isAbsoluteURI(p) {
		return base, strings.TrimLeft(p, "/"), nil
	}
	bucket, key, err := access.ParseURI(p)
	if err != nil {
		return access.Context{}, "", err
	}
	if key == "" {
		return access.Context{}, "", errs.New(errs.Config, "listing", "%s names a bucket, not a file", p)
	}
	if bucket == base.Bucket() {
		if base.Prefix() == "" {
			return base, key, nil
		}
		if rel, ok := strings.CutPrefix(key, base.Prefix()+"/"); ok {
			return base, rel, nil
		}
	}
	dir, name := path.Split(key)
	own, err := base.WithBase(access.FormatURI(bucket, dir))
	if err != nil {
		return access.Context{}, "", err
	}
	return own, name, nil
}

func isAbsoluteURI(p string) bool {
	scheme, _, ok := strings.Cut(p, "://")
	return ok && !strings.ContainsAny(scheme, "/\\")
}

func stringify(m map[string]any) map[string]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		switch v := v.(type) {
		case string:
			out[k] = v
		case nil:
			out[k] = ""
		case float64, bool:
			out[k] = fmt.Sprint(v)
		default:
			b, err := json.Marshal(v)
			if err != nil {
				continue
			}
			out[k] = string(b)
		}
	}
	return out
}
