// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/qail-io/qail/pkg/schema"
)

// loadSchemaDocument reads a schema document at path, dispatching on
// extension: .json decodes the JSON form Schema.Scan/Value already
// produce, anything else (.qail, .txt, or no extension) goes through
// the human-authored text grammar in schema.ParseDocument.
func loadSchemaDocument(path string) (*schema.Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if filepath.Ext(path) == ".json" {
		var s schema.Schema
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("parsing %s as JSON schema document: %w", path, err)
		}
		return &s, nil
	}

	s, err := schema.ParseDocument(string(data))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return s, nil
}
