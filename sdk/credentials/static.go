// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package credentials

import (
	"context"

	awscreds "github.com/aws/aws-sdk-go-v2/credentials"

	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/access"
	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/config"
	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/errs"
)

// StaticProvider serves fixed keys for every context, for deployments
// that hand out object-store keys out of band.
type StaticProvider struct {
	static awscreds.StaticCredentialsProvider
	region string
}

func NewStaticProvider(s3 config.S3Config) *StaticProvider {
	return &StaticProvider{
		static: awscreds.NewStaticCredentialsProvider(s3.AccessKey, s3.SecretKey, s3.AccessToken),
		region: s3.Region,
	}
}

func (p *StaticProvider) Fetch(ctx context.Context, _ access.Context) (Credentials, error) {
	v, err := p.static.Retrieve(ctx)
	if err != nil {
		return Credentials{}, errs.Wrap(errs.Auth, "static credentials", err)
	}
	return Credentials{
		AccessKey:    v.AccessKeyID,
		SecretKey:    v.SecretAccessKey,
		SessionToken: v.SessionToken,
		Region:       p.region,
	}, nil
}
