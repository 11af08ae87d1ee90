// SPDX-License-Identifier: Apache-2.0

package shadow

import "golang.org/x/mod/semver"

// VersionCompatibility is the result of comparing the qail binary
// running a promote/abort against the version that created the
// pending shadow migration being acted on.
type VersionCompatibility int

const (
	VersionCompatCheckSkipped VersionCompatibility = iota
	VersionCompatOlder
	VersionCompatEqual
	VersionCompatNewer
)

// checkVersionCompatibility compares binaryVersion (the running qail
// CLI) against createdByVersion (recorded on the state row by
// SaveState). Development builds on either side skip the check, since
// they carry no meaningful ordering.
func checkVersionCompatibility(binaryVersion, createdByVersion string) VersionCompatibility {
	if binaryVersion == "" || binaryVersion == "development" || createdByVersion == "" || createdByVersion == "development" {
		return VersionCompatCheckSkipped
	}

	bv, cv := toSemver(binaryVersion), toSemver(createdByVersion)
	switch semver.Compare(bv, cv) {
	case -1:
		return VersionCompatOlder
	case 1:
		return VersionCompatNewer
	default:
		return VersionCompatEqual
	}
}

func toSemver(v string) string {
	if len(v) > 0 && v[0] != 'v' {
		return "v" + v
	}
	return v
}
