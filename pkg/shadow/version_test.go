// SPDX-License-Identifier: Apache-2.0

package shadow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckVersionCompatibility(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name             string
		binaryVersion    string
		createdByVersion string
		want             VersionCompatibility
	}{
		{"equal versions", "1.2.3", "1.2.3", VersionCompatEqual},
		{"binary newer", "1.3.0", "1.2.3", VersionCompatNewer},
		{"binary older", "1.1.0", "1.2.3", VersionCompatOlder},
		{"binary is development build", "development", "1.2.3", VersionCompatCheckSkipped},
		{"created by development build", "1.2.3", "development", VersionCompatCheckSkipped},
		{"missing created-by version", "1.2.3", "", VersionCompatCheckSkipped},
		{"v-prefixed versions compare the same", "v1.2.3", "1.2.0", VersionCompatNewer},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := checkVersionCompatibility(tc.binaryVersion, tc.createdByVersion)
			assert.Equal(t, tc.want, got)
		})
	}
}
