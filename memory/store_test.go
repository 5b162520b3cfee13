// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package memory_test

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/diffeo/go-modelserve/memory"
	"github.com/diffeo/go-modelserve/serving/servingtest"
)

// TestStore runs the generic store tests.
func TestStore(t *testing.T) {
	suite.Run(t, &servingtest.StoreSuite{Store: memory.New()})
}
