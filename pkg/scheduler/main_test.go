// Copyright 2026 HardCard Authors
// SPDX-License-Identifier: Apache-2.0

package scheduler_test

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain verifies no worker goroutine outlives its run.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
