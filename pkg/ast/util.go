// SPDX-License-Identifier: Apache-2.0

package ast

import "strconv"

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
