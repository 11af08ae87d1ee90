// SPDX-License-Identifier: Apache-2.0

package schema

import "sort"

// Validate walks every foreign key in the schema and returns all errors
// found (not just the first), for missing referenced tables or columns.
func (s *Schema) Validate() []error {
	var errs []error

	names := make([]string, 0, len(s.Tables))
	for name := range s.Tables {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, tableName := range names {
		table := s.Tables[tableName]
		if table.Deleted {
			continue
		}

		fkNames := make([]string, 0, len(table.ForeignKeys))
		for name := range table.ForeignKeys {
			fkNames = append(fkNames, name)
		}
		sort.Strings(fkNames)

		for _, fkName := range fkNames {
			fk := table.ForeignKeys[fkName]
			refTable := s.GetTable(fk.ReferencedTable)
			if refTable == nil {
				errs = append(errs, newSchemaError(tableName, "", "foreign key %q references unknown table %q", fkName, fk.ReferencedTable))
				continue
			}
			for _, col := range fk.ReferencedColumns {
				if refTable.GetColumn(col) == nil {
					errs = append(errs, newSchemaError(tableName, "", "foreign key %q references unknown column %q on table %q", fkName, col, fk.ReferencedTable))
				}
			}
		}
	}

	return errs
}

// MarkPrimaryKey checks that the column may be part of a primary key. It
// refuses types for which ColType.CanBePrimaryKey() is false; it records
// nothing on the column, since the key's columns live in Table.PrimaryKey.
func (c *Column) MarkPrimaryKey() error {
	if c.ColType != "" && !c.ColType.CanBePrimaryKey() {
		return newSchemaError("", c.Name, "type %q cannot be used as a primary key", c.ColType)
	}
	return nil
}

// MarkUnique marks the column as unique. It refuses types for which
// ColType.SupportsIndexing() is false.
func (c *Column) MarkUnique() error {
	if c.ColType != "" && !c.ColType.SupportsIndexing() {
		return newSchemaError("", c.Name, "type %q does not support indexing and cannot be unique", c.ColType)
	}
	c.Unique = true
	return nil
}
