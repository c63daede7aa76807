// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package hexproc

import "nickandperla.net/hexproc/internal/stdlib"

// DefaultPrelude contains the labels that are automatically defined unless
// WithNoPrelude is given.
var DefaultPrelude = stdlib.Prelude
