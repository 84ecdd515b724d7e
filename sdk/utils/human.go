// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package utils

import (
	"time"

	"github.com/dustin/go-humanize"
)

// HumanSize renders a byte count like "1.2 GB".
func HumanSize(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.Bytes(uint64(n))
}

// HumanRate renders bytes moved over an interval like "12 MB/s".
func HumanRate(n int64, took time.Duration) string {
	if took <= 0 || n <= 0 {
		return "0 B/s"
	}
	perSec := float64(n) / took.Seconds()
	return humanize.Bytes(uint64(perSec)) + "/s"
}
