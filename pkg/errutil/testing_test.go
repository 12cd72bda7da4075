// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Deckhall Contributors

package errutil_test

import (
	"testing"

	"github.com/samber/oops"

	"github.com/deckhall/deckhall/pkg/errutil"
)

func TestAssertErrorCode_MatchingCode(t *testing.T) {
	err := oops.Code("USER_ALREADY_EXISTS").Errorf("username taken")
	errutil.AssertErrorCode(t, err, "USER_ALREADY_EXISTS")
}

func TestAssertErrorContext_MatchingKeyValue(t *testing.T) {
	err := oops.With("username", "alice").Errorf("test error")
	errutil.AssertErrorContext(t, err, "username", "alice")
}
