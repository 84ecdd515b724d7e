// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package access_test

import (
	"testing"

	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/access"
	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/errs"
)

func TestParseURI(t *testing.T) {
	cases := []struct {
		uri            string
		bucket, prefix string
		wantErr        bool
	}{
		{"s3://bkt/data/d", "bkt", "data/d", false},
		{"s3://bkt", "bkt", "", false},
		{"s3://bkt/", "bkt", "", false},
		{"S3://bkt//data///d/", "bkt", "data/d", false},
		{"s3:///data", "", "", true},
		{"gs://bkt/data", "", "", true},
		{"bkt/data", "", "", true},
	}
	for _, tc := range cases {
		bucket, prefix, err := access.ParseURI(tc.uri)
		if tc.wantErr {
			if !errs.Is(err, errs.Config) {
				t.Errorf("%q: expected ConfigError, got %v", tc.uri, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("%q: unexpected error %v", tc.uri, err)
			continue
		}
		if bucket != tc.bucket || prefix != tc.prefix {
			t.Errorf("%q: got (%q, %q), want (%q, %q)", tc.uri, bucket, prefix, tc.bucket, tc.prefix)
		}
	}
}

func TestURIRoundTrip(t *testing.T) {
	for _, base := range []string{"s3://bkt/data/d", "s3://bkt", "s3://b/x//y/", "s3://b/projects/p/resources/r1"} {
		ctx, err := access.Download("p", base)
		if err != nil {
			t.Fatalf("%q: %v", base, err)
		}
		bucket, prefix, err := access.ParseURI(ctx.BaseURI())
		if err != nil {
			t.Fatalf("%q: %v", base, err)
		}
		if bucket != ctx.Bucket() || prefix != ctx.Prefix() {
			t.Errorf("%q: round trip gave (%q, %q), want (%q, %q)", base, bucket, prefix, ctx.Bucket(), ctx.Prefix())
		}
	}
}

func TestConstructorsEnforceDataset(t *testing.T) {
	if _, err := access.UploadDataset("p", "", "s3://bkt/data"); !errs.Is(err, errs.Config) {
		t.Errorf("dataset upload without dataset id: got %v", err)
	}
	if _, err := access.UploadSampleSheet("p", "", "s3://bkt/data"); !errs.Is(err, errs.Config) {
		t.Errorf("samplesheet upload without dataset id: got %v", err)
	}
	if _, err := access.New("p", access.ProjectDownload, "d", "s3://bkt/data"); !errs.Is(err, errs.Config) {
		t.Errorf("project download with dataset id: got %v", err)
	}
	if _, err := access.UploadReference("", "s3://bkt/ref"); !errs.Is(err, errs.Config) {
		t.Errorf("missing project id: got %v", err)
	}
	if _, err := access.New("p", access.Kind("BOGUS"), "", "s3://bkt"); !errs.Is(err, errs.Config) {
		t.Errorf("unknown kind: got %v", err)
	}

	ctx, err := access.UploadDataset("p", "d", "s3://bkt/data/d")
	if err != nil {
		t.Fatal(err)
	}
	if ctx.Kind() != access.DatasetUpload || ctx.DatasetID() != "d" || ctx.ProjectID() != "p" {
		t.Errorf("unexpected context %v", ctx)
	}
}

func TestKeyComposition(t *testing.T) {
	ctx, err := access.UploadDataset("p", "d", "s3://bkt/data/d")
	if err != nil {
		t.Fatal(err)
	}
	cases := map[string]string{
		"a.txt":       "data/d/a.txt",
		"sub/b.bin":   "data/d/sub/b.bin",
		"/lead.txt":   "data/d/lead.txt",
		"x//y///z":    "data/d/x/y/z",
		`win\dir\f.c`: "data/d/win/dir/f.c",
	}
	for rel, want := range cases {
		if got := ctx.Key(rel); got != want {
			t.Errorf("Key(%q) = %q, want %q", rel, got, want)
		}
	}
	if got := ctx.URI("a.txt"); got != "s3://bkt/data/d/a.txt" {
		t.Errorf("URI = %q", got)
	}
}

func TestCleanRelPath(t *testing.T) {
	good := map[string]string{
		"a.txt":      "a.txt",
		"./sub/b":    "sub/b",
		`sub\c.bin`:  "sub/c.bin",
		"x//y":       "x/y",
		"dots..name": "dots..name",
	}
	for in, want := range good {
		got, err := access.CleanRelPath(in)
		if err != nil || got != want {
			t.Errorf("CleanRelPath(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	for _, bad := range []string{"", "/etc/passwd", "../x", "a/../../b", `C:\x`, "."} {
		if _, err := access.CleanRelPath(bad); !errs.Is(err, errs.Config) {
			t.Errorf("CleanRelPath(%q): expected ConfigError, got %v", bad, err)
		}
	}
}

func TestFileEquality(t *testing.T) {
	a, _ := access.Download("p", "s3://bkt/data/d")
	b, _ := access.Download("p", "s3://bkt/data/other")
	f1, _ := access.NewFile(a, "x", 3)
	f2, _ := access.NewFile(a, "x", 5)
	f3, _ := access.NewFile(b, "x", 3)
	if !f1.Equal(f2) {
		t.Error("same path in same context should be equal")
	}
	if f1.Equal(f3) {
		t.Error("same path in different contexts should differ")
	}
	if f1.URI() != "s3://bkt/data/d/x" {
		t.Errorf("URI = %q", f1.URI())
	}
}
