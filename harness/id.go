package harness

import "github.com/google/uuid"

// harnessNamespace is the UUID namespace of harness identifiers.
var harnessNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/crytic/seedfuzz"))

// HarnessID returns a stable identifier for the harness of the named test body in the package with the given import
// path. The identifier does not change across regenerations, so listings and logs can be correlated.
func HarnessID(pkgPath string, name string) uuid.UUID {
	return uuid.NewSHA1(harnessNamespace, []byte(pkgPath+"."+name))
}
