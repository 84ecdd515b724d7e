// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/aws/retry"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/errs"
)

var (
	authCodes = map[string]bool{
		"AccessDenied":          true,
		"Forbidden":             true,
		"InvalidAccessKeyId":    true,
		"InvalidToken":          true,
		"ExpiredToken":          true,
		"TokenRefreshRequired":  true,
		"SignatureDoesNotMatch": true,
		"AllAccessDisabled":     true,
	}
	configCodes = map[string]bool{
		"NoSuchKey":         true,
		"NoSuchBucket":      true,
		"NotFound":          true,
		"InvalidBucketName": true,
		"KeyTooLongError":   true,
		"InvalidArgument":   true,
		"EntityTooLarge":    true,
	}
	transientCodes = map[string]bool{
		"RequestTimeout":            true,
		"RequestTimeTooSkewed":      true,
		"SlowDown":                  true,
		"InternalError":             true,
		"ServiceUnavailable":        true,
		"BadDigest":                 true,
		"XAmzContentSHA256Mismatch": true,
		"IncompleteBody":            true,
	}
)

// classify maps an SDK or network error to an error kind. ctx is the
// context the operation ran under; its cause wins when it is done.
func classify(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	if k := errs.KindOf(err); k != errs.Unknown && k != errs.Cancelled {
		return err
	}
	if ctx.Err() != nil {
		cause := context.Cause(ctx)
		switch {
		case errs.Is(cause, errs.Transient):
			return fmt.Errorf("%s: %w", op, cause)
		case errors.Is(cause, context.DeadlineExceeded):
			return errs.Wrap(errs.Transient, op, cause)
		default:
			return errs.Wrap(errs.Cancelled, op, cause)
		}
	}
	if strings.Contains(err.Error(), "checksum did not match") {
		return errs.Wrap(errs.Integrity, op, err)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		switch {
		case authCodes[code]:
			return errs.Wrap(errs.Auth, op, err)
		case configCodes[code]:
			return errs.Wrap(errs.Config, op, err)
		case transientCodes[code], apiErr.ErrorFault() == smithy.FaultServer:
			return errs.Wrap(errs.Transient, op, err)
		}
	}

	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) {
		switch status := respErr.HTTPStatusCode(); {
		case status == http.StatusUnauthorized || status == http.StatusForbidden:
			return errs.Wrap(errs.Auth, op, err)
		case status == http.StatusNotFound:
			return errs.Wrap(errs.Config, op, err)
		case status == http.StatusRequestTimeout || status == http.StatusTooManyRequests || status >= 500:
			return errs.Wrap(errs.Transient, op, err)
		}
	}

	var multiErr manager.MultiUploadFailure
	if errors.As(err, &multiErr) {
		return errs.Wrap(errs.Transient, op, err)
	}
	var maxAttempts *retry.MaxAttemptsError
	if errors.As(err, &maxAttempts) {
		return errs.Wrap(errs.Transient, op, err)
	}
	if isNetworkError(err) {
		return errs.Wrap(errs.Transient, op, err)
	}
	return errs.Wrap(errs.Unknown, op, err)
}

func isNetworkError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	switch {
	case errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNABORTED),
		errors.Is(err, syscall.EPIPE):
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "connection reset") || strings.Contains(msg, "broken pipe")
}
