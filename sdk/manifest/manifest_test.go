// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package manifest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/access"
	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/config"
	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/errs"
)

func projectContext(t *testing.T) access.Context {
	t.Helper()
	ac, err := access.Download("p", "s3://bkt/data/d")
	if err != nil {
		t.Fatal(err)
	}
	return ac
}

func TestParseJSONAndYAML(t *testing.T) {
	jsonListing := `{"base_uri":"s3://bkt/data/d","files":[{"path":"x","size":3,"metadata":{"md5":"abc","lane":2}}]}`
	yamlListing := "base_uri: s3://bkt/data/d\nfiles:\n  - path: x\n    size: 3\n    metadata:\n      md5: abc\n      lane: 2\n"

	for name, in := range map[string]string{"json": jsonListing, "yaml": yamlListing} {
		t.Run(name, func(t *testing.T) {
			l, err := Parse([]byte(in))
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if l.BaseURI != "s3://bkt/data/d" || len(l.Files) != 1 || l.Files[0].Path != "x" || l.Files[0].Size != 3 {
				t.Fatalf("listing = %+v", l)
			}
			files, err := Files(projectContext(t), l)
			if err != nil {
				t.Fatal(err)
			}
			if md := files[0].Metadata; md["md5"] != "abc" || md["lane"] != "2" {
				t.Fatalf("metadata = %v", md)
			}
		})
	}
	if _, err := Parse([]byte("files: [")); !errs.Is(err, errs.Config) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

func TestFilesResolvesPaths(t *testing.T) {
	ac := projectContext(t)
	l := Listing{
		BaseURI: "s3://bkt/data/d",
		Files: []Record{
			{Path: "x", Size: 3},
			{Path: "/sub//y.txt", Size: 1},
			{Path: "s3://bkt/data/d/reads/r1.fq", Size: 10},
			{Path: "s3://other/refs/hg38.fa", Size: 20},
		},
	}
	files, err := Files(ac, l)
	if err != nil {
		t.Fatalf("Files: %v", err)
	}

	want := []struct{ rel, uri string }{
		{"x", "s3://bkt/data/d/x"},
		{"sub/y.txt", "s3://bkt/data/d/sub/y.txt"},
		{"reads/r1.fq", "s3://bkt/data/d/reads/r1.fq"},
		{"hg38.fa", "s3://other/refs/hg38.fa"},
	}
	for i, w := range want {
		if files[i].RelPath != w.rel || files[i].URI() != w.uri {
			t.Errorf("file %d = %s (%s), want %s (%s)", i, files[i].RelPath, files[i].URI(), w.rel, w.uri)
		}
	}
	if files[0].Context != files[2].Context {
		t.Fatal("files under the base should share its context")
	}
	if files[3].Context.Bucket() != "other" || files[3].Context.ProjectID() != "p" {
		t.Fatalf("outside file context = %s", files[3].Context)
	}
}

func TestFilesBaseOverride(t *testing.T) {
	files, err := Files(projectContext(t), Listing{BaseURI: "s3://elsewhere/run/1", Files: []Record{{Path: "out.vcf"}}})
	if err != nil {
		t.Fatal(err)
	}
	if got := files[0].URI(); got != "s3://elsewhere/run/1/out.vcf" {
		t.Fatalf("uri = %s", got)
	}
	files, err = Files(projectContext(t), Listing{Files: []Record{{Path: "out.vcf"}}})
	if err != nil {
		t.Fatal(err)
	}
	if got := files[0].URI(); got != "s3://bkt/data/d/out.vcf" {
		t.Fatalf("uri without listing base = %s", got)
	}
}

func TestFilesRejectsBadRecords(t *testing.T) {
	ac := projectContext(t)
	for name, rec := range map[string]Record{
		"traversal": {Path: "../x"},
		"negative":  {Path: "x", Size: -1},
		"bucket":    {Path: "s3://bkt"},
		"scheme":    {Path: "gs://bkt/x"},
		"empty":     {Path: ""},
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := Files(ac, Listing{Files: []Record{rec}}); !errs.Is(err, errs.Config) {
				t.Fatalf("expected ConfigError, got %v", err)
			}
		})
	}
	if _, err := Files(access.Context{}, Listing{}); !errs.Is(err, errs.Config) {
		t.Fatal("missing context accepted")
	}
	if _, err := Files(ac, Listing{BaseURI: "http://x/y"}); !errs.Is(err, errs.Config) {
		t.Fatal("bad base accepted")
	}
}

func TestLoad(t *testing.T) {
	p := filepath.Join(t.TempDir(), "listing.yaml")
	if err := os.WriteFile(p, []byte("files:\n  - path: a\n    size: 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	l, err := Load(p)
	if err != nil || len(l.Files) != 1 {
		t.Fatalf("Load = %+v, %v", l, err)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing")); !errs.Is(err, errs.IO) {
		t.Fatalf("expected IOError, got %v", err)
	}
}

func TestCoreLister(t *testing.T) {
	var gotPath, gotAuth string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotAuth = r.URL.Path, r.Header.Get("Authorization")
		switch r.URL.Path {
		case "/api/v1/-/p/datasets/d/files":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"base_uri":"s3://bkt/data/d","files":[{"path":"x","size":3}]}`))
		case "/api/v1/-/p/datasets/gone/files":
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"dataset not found"}`))
		default:
			w.WriteHeader(http.StatusForbidden)
		}
	}))
	defer ts.Close()

	core := config.NewHTTPCore(config.NewRetryClient(ts.Client(), 0), config.CoreConfig{BaseURL: ts.URL, APIVersion: "v1", AccessToken: "tok"})
	lister := NewCoreLister(core)
	ctx := context.Background()

	l, err := lister.List(ctx, "p", "d")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if gotPath != "/api/v1/-/p/datasets/d/files" || gotAuth != "Bearer tok" {
		t.Fatalf("request %s auth %q", gotPath, gotAuth)
	}
	if len(l.Files) != 1 || l.BaseURI != "s3://bkt/data/d" {
		t.Fatalf("listing = %+v", l)
	}

	if _, err := lister.List(ctx, "p", "gone"); !errs.Is(err, errs.Config) {
		t.Fatalf("404: %v", err)
	}
	if _, err := lister.List(ctx, "p", "secret"); !errs.Is(err, errs.Auth) {
		t.Fatalf("403: %v", err)
	}
	if _, err := lister.List(ctx, "", "d"); !errs.Is(err, errs.Config) {
		t.Fatalf("missing project: %v", err)
	}
}
