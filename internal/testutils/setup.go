// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package testutils

import (
	"github.com/stretchr/testify/require"
)

// T is satisfied by *testing.T and ginkgo's GinkgoT().
type T interface {
	require.TestingT
	Helper()
	Cleanup(func())
}
