// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

//go:build !windows

package walker

import "strings"

func isHidden(_ string, name string) bool {
	return strings.HasPrefix(name, ".")
}
