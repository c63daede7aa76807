// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package stdlib holds the prelude loaded before every program.
package stdlib

import _ "embed"

// PreludeName is the file name diagnostics use for the prelude.
const PreludeName = "<prelude>"

//go:embed prelude.hexp
var Prelude string
