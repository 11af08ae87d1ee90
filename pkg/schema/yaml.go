// SPDX-License-Identifier: Apache-2.0

package schema

import "sigs.k8s.io/yaml"

// ToYAML renders the schema document as YAML, an alternate machine
// readable form to the default JSON encoding used by Value/Scan.
func (s *Schema) ToYAML() ([]byte, error) {
	return yaml.Marshal(s)
}

// FromYAML parses a YAML schema document produced by ToYAML.
func FromYAML(data []byte) (*Schema, error) {
	s := New()
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, err
	}
	return s, nil
}
