package domain

import (
	"testing"

	"storecore/testutil"
)

// The domain layer depends on nothing but the standard library: not on
// internal implementation packages and not on third-party modules.
func TestDomainImportsNothing(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.InternalImportForbidden,
		"domain must not depend on internal packages")
	testutil.AssertNoDirectImports(t, ".", testutil.ThirdPartyImportForbidden,
		"domain must stay free of third-party dependencies")
}
