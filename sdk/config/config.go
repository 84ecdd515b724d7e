// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"time"

	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/errs"
)

// Config complessiva passata all’SDK (niente viper/INI qui)
type Config struct {
	Core     CoreConfig
	S3       S3Config
	Transfer TransferConfig
	LogLevel string
}

type CoreConfig struct {
	BaseURL           string
	APIVersion        string
	AccessToken       string
	BasicAuthUsername string
	BasicAuthPassword string
	// retries of idempotent control-plane reads (listings)
	Retries int
}

// S3Config overrides the object-store endpoint. Static keys are only used
// when no control plane is configured.
type S3Config struct {
	AccessKey    string
	SecretKey    string
	AccessToken  string
	Region       string
	EndpointURL  string
	UsePathStyle bool
}

type TransferConfig struct {
	MaxRetries          int
	Parallelism         int
	ChecksumMode        string
	HiddenFiles         bool
	ChunkTimeoutSeconds int
	RefreshSlackSeconds int
	TokenLifetimeHours  int
	PartSizeMB          int
	// FileTimeoutSeconds bounds each attempt of a file; 0 is unbounded.
	FileTimeoutSeconds int
}

const (
	DefaultMaxRetries          = 10
	DefaultParallelism         = 4
	DefaultChunkTimeoutSeconds = 60
	DefaultRefreshSlackSeconds = 60
	DefaultAPIVersion          = "v1"
	DefaultCoreRetries         = 3
)

func DefaultTransferConfig() TransferConfig {
	return TransferConfig{
		MaxRetries:          DefaultMaxRetries,
		Parallelism:         DefaultParallelism,
		ChecksumMode:        "none",
		ChunkTimeoutSeconds: DefaultChunkTimeoutSeconds,
		RefreshSlackSeconds: DefaultRefreshSlackSeconds,
	}
}

// WithDefaults fills unset fields.
func (c Config) WithDefaults() Config {
	if c.Core.APIVersion == "" {
		c.Core.APIVersion = DefaultAPIVersion
	}
	if c.Core.Retries == 0 {
		c.Core.Retries = DefaultCoreRetries
	}
	t := &c.Transfer
	if t.MaxRetries == 0 {
		t.MaxRetries = DefaultMaxRetries
	}
	if t.Parallelism == 0 {
		t.Parallelism = DefaultParallelism
	}
	if t.ChecksumMode == "" {
		t.ChecksumMode = "none"
	}
	if t.ChunkTimeoutSeconds == 0 {
		t.ChunkTimeoutSeconds = DefaultChunkTimeoutSeconds
	}
	if t.RefreshSlackSeconds == 0 {
		t.RefreshSlackSeconds = DefaultRefreshSlackSeconds
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	return c
}

func (c Config) Validate() error {
	t := c.Transfer
	switch {
	case t.Parallelism < 0:
		return errs.New(errs.Config, "config", "parallelism must be positive, got %d", t.Parallelism)
	case t.ChecksumMode != "" && t.ChecksumMode != "none" && t.ChecksumMode != "sha256":
		return errs.New(errs.Config, "config", "checksum mode must be none or sha256, got %q", t.ChecksumMode)
	case t.ChunkTimeoutSeconds < 0:
		return errs.New(errs.Config, "config", "chunk timeout must not be negative")
	case t.RefreshSlackSeconds < 0:
		return errs.New(errs.Config, "config", "refresh slack must not be negative")
	case t.TokenLifetimeHours < 0:
		return errs.New(errs.Config, "config", "token lifetime must not be negative")
	case t.PartSizeMB < 0:
		return errs.New(errs.Config, "config", "part size must not be negative")
	case t.FileTimeoutSeconds < 0:
		return errs.New(errs.Config, "config", "file timeout must not be negative")
	case c.Core.Retries < 0:
		return errs.New(errs.Config, "config", "core retries must not be negative")
	}
	return nil
}

func (t TransferConfig) ChunkTimeout() time.Duration {
	return time.Duration(t.ChunkTimeoutSeconds) * time.Second
}

func (t TransferConfig) RefreshSlack() time.Duration {
	return time.Duration(t.RefreshSlackSeconds) * time.Second
}

func (t TransferConfig) FileTimeout() time.Duration {
	return time.Duration(t.FileTimeoutSeconds) * time.Second
}

func (t TransferConfig) PartSize() int64 {
	return int64(t.PartSizeMB) * 1024 * 1024
}
