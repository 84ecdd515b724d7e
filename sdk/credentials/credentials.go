// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

// Package credentials obtains short-lived object-store credentials from
// the control plane and caches the ones that may be reused.
package credentials

import (
	"context"
	"fmt"
	"time"

	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/access"
)

// Credentials are never logged: String redacts the secrets.
type Credentials struct {
	AccessKey    string
	SecretKey    string
	SessionToken string
	Region       string
	// Expiration is zero when the credentials do not expire.
	Expiration time.Time
}

func (c Credentials) CanExpire() bool { return !c.Expiration.IsZero() }

// ValidFor reports whether c is still usable at now with at least slack
// left before expiry.
func (c Credentials) ValidFor(now time.Time, slack time.Duration) bool {
	return !c.CanExpire() || c.Expiration.Sub(now) > slack
}

func (c Credentials) String() string {
	exp := "never"
	if c.CanExpire() {
		exp = c.Expiration.UTC().Format(time.RFC3339)
	}
	return fmt.Sprintf("Credentials{region=%s, expires=%s}", c.Region, exp)
}

func (c Credentials) GoString() string { return c.String() }

type Provider interface {
	Fetch(ctx context.Context, ac access.Context) (Credentials, error)
}

type ProviderFunc func(ctx context.Context, ac access.Context) (Credentials, error)

func (f ProviderFunc) Fetch(ctx context.Context, ac access.Context) (Credentials, error) {
	return f(ctx, ac)
}
