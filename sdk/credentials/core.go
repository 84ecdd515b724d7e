// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package credentials

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/access"
	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/config"
	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/errs"
)

const credentialsResource = "credentials"

type credentialsRequest struct {
	AccessType         access.Kind `json:"access_type"`
	DatasetID          string      `json:"dataset_id,omitempty"`
	TokenLifetimeHours int         `json:"token_lifetime_hours,omitempty"`
}

type credentialsResponse struct {
	AccessKey    string `json:"access_key"`
	SecretKey    string `json:"secret_key"`
	SessionToken string `json:"session_token"`
	Region       string `json:"region"`
	Expiration   string `json:"expiration"`
}

// CoreProvider asks the control-plane credential endpoint for scoped
// object-store credentials. Every failure surfaces as an AuthError.
type CoreProvider struct {
	http config.CoreHTTP
}

func NewCoreProvider(core config.CoreHTTP) *CoreProvider {
	return &CoreProvider{http: core}
}

func (p *CoreProvider) Fetch(ctx context.Context, ac access.Context) (Credentials, error) {
	op := fmt.Sprintf("fetch credentials for %s", ac.Kind())
	payload, err := json.Marshal(credentialsRequest{
		AccessType:         ac.Kind(),
		DatasetID:          ac.DatasetID(),
		TokenLifetimeHours: ac.TokenLifetimeHours(),
	})
	if err != nil {
		return Credentials{}, errs.Wrap(errs.Auth, op, err)
	}

	url := p.http.BuildURL(ac.ProjectID(), credentialsResource, "", nil)
	body, _, err := p.http.Do(ctx, http.MethodPost, url, payload)
	if err != nil {
		if ctx.Err() != nil {
			return Credentials{}, errs.Wrap(errs.Cancelled, op, ctx.Err())
		}
		return Credentials{}, errs.Wrap(errs.Auth, op, err)
	}

	var resp credentialsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return Credentials{}, errs.Wrap(errs.Auth, op, fmt.Errorf("failed to parse response: %w", err))
	}
	if resp.AccessKey == "" || resp.SecretKey == "" {
		return Credentials{}, errs.New(errs.Auth, op, "response carries no access key")
	}

	creds := Credentials{
		AccessKey:    resp.AccessKey,
		SecretKey:    resp.SecretKey,
		SessionToken: resp.SessionToken,
		Region:       resp.Region,
	}
	if resp.Expiration != "" {
		exp, err := time.Parse(time.RFC3339, resp.Expiration)
		if err != nil {
			return Credentials{}, errs.Wrap(errs.Auth, op, fmt.Errorf("invalid expiration %q: %w", resp.Expiration, err))
		}
		creds.Expiration = exp
	}
	return creds, nil
}
