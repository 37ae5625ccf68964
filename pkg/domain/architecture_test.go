package domain

import (
	"testing"

	"carbonledger/testutil"
)

// The public model must stay importable without dragging in internal packages.
func TestDomainDoesNotImportInternal(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.InternalImportForbidden, "pkg/domain is a public contract")
}

func TestDomainHasNoInternalTransitiveDeps(t *testing.T) {
	if testing.Short() {
		t.Skip("loads package graph")
	}
	testutil.AssertNoTransitiveDependency(t, ".", testutil.InternalImportForbidden, "pkg/domain is a public contract")
}
