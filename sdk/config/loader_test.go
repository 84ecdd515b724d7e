// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/errs"
)

const sampleIni = `[DEFAULT]
current_environment = staging
dhcore_api_version = v1
transfer_parallelism = 2

[staging]
dhcore_endpoint = https://core.staging.example.org
dhcore_access_token = tok-staging
transfer_checksum_mode = sha256
transfer_hidden_files = true

[prod]
dhcore_endpoint = https://core.example.org
transfer_max_retries = 5
`

func writeIni(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), IniName)
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadCurrentEnvironment(t *testing.T) {
	conf, err := Load(writeIni(t, sampleIni), "")
	if err != nil {
		t.Fatal(err)
	}
	if conf.Core.BaseURL != "https://core.staging.example.org" || conf.Core.AccessToken != "tok-staging" {
		t.Errorf("unexpected core config %+v", conf.Core)
	}
	if conf.Transfer.Parallelism != 2 {
		t.Errorf("parallelism = %d, want 2 from DEFAULT", conf.Transfer.Parallelism)
	}
	if conf.Transfer.ChecksumMode != "sha256" || !conf.Transfer.HiddenFiles {
		t.Errorf("unexpected transfer config %+v", conf.Transfer)
	}
	if conf.Transfer.MaxRetries != DefaultMaxRetries || conf.Transfer.ChunkTimeoutSeconds != 60 {
		t.Errorf("defaults not applied: %+v", conf.Transfer)
	}
}

func TestLoadExplicitEnvironmentAndEnvOverride(t *testing.T) {
	t.Setenv("TRANSFER_PARALLELISM", "8")
	conf, err := Load(writeIni(t, sampleIni), "prod")
	if err != nil {
		t.Fatal(err)
	}
	if conf.Core.BaseURL != "https://core.example.org" {
		t.Errorf("BaseURL = %q", conf.Core.BaseURL)
	}
	if conf.Transfer.MaxRetries != 5 {
		t.Errorf("MaxRetries = %d, want 5", conf.Transfer.MaxRetries)
	}
	if conf.Transfer.Parallelism != 8 {
		t.Errorf("Parallelism = %d, want env override 8", conf.Transfer.Parallelism)
	}
}

func TestLoadMissingIniUsesEnv(t *testing.T) {
	t.Setenv("DHCORE_ENDPOINT", "http://localhost:8080")
	t.Setenv("TRANSFER_TOKEN_LIFETIME_HOURS", "12")
	conf, err := Load(filepath.Join(t.TempDir(), "missing.ini"), "")
	if err != nil {
		t.Fatal(err)
	}
	if conf.Core.BaseURL != "http://localhost:8080" || conf.Transfer.TokenLifetimeHours != 12 {
		t.Errorf("unexpected config %+v", conf)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	p := writeIni(t, "[DEFAULT]\ntransfer_checksum_mode = md5\n")
	if _, err := Load(p, ""); !errs.Is(err, errs.Config) {
		t.Errorf("bad checksum mode: got %v", err)
	}
	p = writeIni(t, "[DEFAULT]\ntransfer_parallelism = many\n")
	if _, err := Load(p, ""); !errs.Is(err, errs.Config) {
		t.Errorf("non-integer parallelism: got %v", err)
	}
	if _, err := Load(writeIni(t, sampleIni), "nope"); !errs.Is(err, errs.Config) {
		t.Errorf("unknown environment: got %v", err)
	}
}

func TestWithDefaults(t *testing.T) {
	conf := Config{}.WithDefaults()
	if conf.Core.APIVersion != "v1" || conf.Transfer.Parallelism != 4 || conf.Transfer.RefreshSlack().Seconds() != 60 {
		t.Errorf("unexpected defaults %+v", conf)
	}
	conf = Config{Transfer: TransferConfig{MaxRetries: -1}}.WithDefaults()
	if conf.Transfer.MaxRetries != -1 {
		t.Errorf("negative MaxRetries should be kept, got %d", conf.Transfer.MaxRetries)
	}
}
