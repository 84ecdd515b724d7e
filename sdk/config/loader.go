// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/ini.v1"

	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/errs"
)

const (
	IniName            = ".dhcore.ini"
	CurrentEnvironment = "current_environment"
)

// settings holds all logical keys. Tags:
// - vkey: key in the INI section and in viper
// - env: environment variable overriding the INI value
// - default: value used when neither is set
type settings struct {
	DhcoreEndpoint      string `vkey:"dhcore_endpoint"                env:"DHCORE_ENDPOINT"`
	DhcoreApiVersion    string `vkey:"dhcore_api_version"             env:"DHCORE_API_VERSION"             default:"v1"`
	DhcoreAccessToken   string `vkey:"dhcore_access_token"            env:"DHCORE_ACCESS_TOKEN"`
	DhcoreUser          string `vkey:"dhcore_user"                    env:"DHCORE_USER"`
	DhcorePassword      string `vkey:"dhcore_password"                env:"DHCORE_PASSWORD"`
	DhcoreRetries       int    `vkey:"dhcore_retries"                 env:"DHCORE_RETRIES"                 default:"3"`
	AwsAccessKeyID      string `vkey:"aws_access_key_id"              env:"AWS_ACCESS_KEY_ID"`
	AwsSecretAccessKey  string `vkey:"aws_secret_access_key"          env:"AWS_SECRET_ACCESS_KEY"`
	AwsSessionToken     string `vkey:"aws_session_token"              env:"AWS_SESSION_TOKEN"`
	AwsRegion           string `vkey:"aws_region"                     env:"AWS_REGION"`
	AwsEndpointURL      string `vkey:"aws_endpoint_url"               env:"AWS_ENDPOINT_URL"`
	S3PathStyle         bool   `vkey:"s3_path_style"                  env:"S3_PATH_STYLE"`
	MaxRetries          int    `vkey:"transfer_max_retries"           env:"TRANSFER_MAX_RETRIES"           default:"10"`
	Parallelism         int    `vkey:"transfer_parallelism"           env:"TRANSFER_PARALLELISM"           default:"4"`
	ChecksumMode        string `vkey:"transfer_checksum_mode"         env:"TRANSFER_CHECKSUM_MODE"         default:"none"`
	HiddenFiles         bool   `vkey:"transfer_hidden_files"          env:"TRANSFER_HIDDEN_FILES"`
	ChunkTimeoutSeconds int    `vkey:"transfer_chunk_timeout_seconds" env:"TRANSFER_CHUNK_TIMEOUT_SECONDS" default:"60"`
	RefreshSlackSeconds int    `vkey:"transfer_refresh_slack_seconds" env:"TRANSFER_REFRESH_SLACK_SECONDS" default:"60"`
	TokenLifetimeHours  int    `vkey:"transfer_token_lifetime_hours"  env:"TRANSFER_TOKEN_LIFETIME_HOURS"`
	PartSizeMB          int    `vkey:"transfer_part_size_mb"          env:"TRANSFER_PART_SIZE_MB"`
	FileTimeoutSeconds  int    `vkey:"transfer_file_timeout_seconds"  env:"TRANSFER_FILE_TIMEOUT_SECONDS"`
	LogLevel            string `vkey:"log_level"                      env:"LOG_LEVEL"                      default:"info"`
}

// DefaultIniPath is ~/.dhcore.ini, or ./.dhcore.ini without a home dir.
func DefaultIniPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, IniName)
}

// Load reads [DEFAULT] merged with the [env] section of the INI file at
// iniPath, then lets environment variables override single keys. A
// missing INI file is not an error: the environment alone is used.
// An empty env selects DEFAULT.current_environment.
func Load(iniPath, env string) (Config, error) {
	v := viper.New()
	bindFromStruct(v)

	if iniPath != "" {
		cfg, err := ini.Load(iniPath)
		switch {
		case err == nil:
			if err := loadIniSection(v, cfg, resolveEnvName(cfg, env)); err != nil {
				return Config{}, err
			}
		case errors.Is(err, fs.ErrNotExist):
		default:
			return Config{}, errs.Wrap(errs.Config, "load "+iniPath, err)
		}
	}

	var s settings
	if err := decode(v, &s); err != nil {
		return Config{}, err
	}
	conf := s.toConfig()
	if err := conf.Validate(); err != nil {
		return Config{}, err
	}
	return conf, nil
}

func resolveEnvName(cfg *ini.File, env string) string {
	if env != "" && !strings.EqualFold(env, "null") {
		return env
	}
	return cfg.Section(ini.DefaultSection).Key(CurrentEnvironment).String()
}

func bindFromStruct(v *viper.Viper) {
	rt := reflect.TypeOf(settings{})
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		key := f.Tag.Get("vkey")
		if key == "" {
			continue
		}
		env := f.Tag.Get("env")
		if env == "" {
			env = strings.ToUpper(key)
		}
		_ = v.BindEnv(key, env)
		if def := f.Tag.Get("default"); def != "" {
			v.SetDefault(key, def)
		}
	}
}

// Load [DEFAULT] + [env] into viper; ENV still overrides on Get().
func loadIniSection(v *viper.Viper, cfg *ini.File, env string) error {
	values := map[string]any{}
	for _, k := range cfg.Section(ini.DefaultSection).Keys() {
		values[k.Name()] = k.Value()
	}
	if env != "" && !strings.EqualFold(env, ini.DefaultSection) {
		if !cfg.HasSection(env) {
			return errs.New(errs.Config, "load ini", "environment %q not found", env)
		}
		for _, k := range cfg.Section(env).Keys() {
			values[k.Name()] = k.Value()
		}
	}
	return v.MergeConfigMap(values)
}

func decode(v *viper.Viper, s *settings) error {
	rv := reflect.ValueOf(s).Elem()
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		key := rt.Field(i).Tag.Get("vkey")
		field := rv.Field(i)
		switch field.Kind() {
		case reflect.String:
			field.SetString(v.GetString(key))
		case reflect.Int:
			raw := strings.TrimSpace(v.GetString(key))
			if raw == "" {
				continue
			}
			var n int
			if _, err := fmt.Sscan(raw, &n); err != nil {
				return errs.New(errs.Config, "config", "%s: %q is not an integer", key, raw)
			}
			field.SetInt(int64(n))
		case reflect.Bool:
			field.SetBool(v.GetBool(key))
		}
	}
	return nil
}

func (s settings) toConfig() Config {
	return Config{
		Core: CoreConfig{
			BaseURL:           s.DhcoreEndpoint,
			APIVersion:        s.DhcoreApiVersion,
			AccessToken:       s.DhcoreAccessToken,
			BasicAuthUsername: s.DhcoreUser,
			BasicAuthPassword: s.DhcorePassword,
			Retries:           s.DhcoreRetries,
		},
		S3: S3Config{
			AccessKey:    s.AwsAccessKeyID,
			SecretKey:    s.AwsSecretAccessKey,
			AccessToken:  s.AwsSessionToken,
			Region:       s.AwsRegion,
			EndpointURL:  s.AwsEndpointURL,
			UsePathStyle: s.S3PathStyle,
		},
		Transfer: TransferConfig{
			MaxRetries:          s.MaxRetries,
			Parallelism:         s.Parallelism,
			ChecksumMode:        strings.ToLower(s.ChecksumMode),
			HiddenFiles:         s.HiddenFiles,
			ChunkTimeoutSeconds: s.ChunkTimeoutSeconds,
			RefreshSlackSeconds: s.RefreshSlackSeconds,
			TokenLifetimeHours:  s.TokenLifetimeHours,
			PartSizeMB:          s.PartSizeMB,
			FileTimeoutSeconds:  s.FileTimeoutSeconds,
		},
		LogLevel: s.LogLevel,
	}
}
