// SPDX-License-Identifier: Apache-2.0

package impact

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var excludedDirs = map[string]bool{
	"target":       true,
	"node_modules": true,
	".git":         true,
	"vendor":       true,
	"__pycache__":  true,
	"dist":         true,
}

// scannableExt are extensions scanWithRegex reads; other languages in
// a polyglot repo still get caught by these regexes as long as their
// call syntax looks like the ones below (common across Go, Python,
// JS/TS, Ruby, and Java client libraries alike).
var scannableExt = map[string]bool{
	".go": true, ".py": true, ".js": true, ".ts": true,
	".rb": true, ".java": true, ".rs": true, ".sql": true,
}

// QAIL v2 surface syntax: get("table"), make("table"), del("table")...
var qailCallRE = regexp.MustCompile(`\b(?:get|set|del|add|make|drop|mod|upsert)\(\s*["'` + "`" + `]([a-zA-Z_][a-zA-Z0-9_]*)["'` + "`" + `]\s*\)(?:\.\w+\(\s*["'` + "`" + `]([a-zA-Z_][a-zA-Z0-9_]*)["'` + "`" + `])?`)

// Legacy symbolic syntax this surface replaced: @table.column or
// @table alone (a bare leading-@ identifier path).
var legacySymbolRE = regexp.MustCompile(`@([a-zA-Z_][a-zA-Z0-9_]*)(?:\.([a-zA-Z_][a-zA-Z0-9_]*))?`)

// Raw SQL statements embedded as string literals.
var rawSQLRE = regexp.MustCompile(`(?i)\b(?:SELECT|INSERT\s+INTO|UPDATE|DELETE\s+FROM|ALTER\s+TABLE|DROP\s+TABLE)\b[^"'` + "`" + `;\n]*`)
var rawSQLTableRE = regexp.MustCompile(`(?i)(?:FROM|INTO|UPDATE|TABLE)\s+"?([a-zA-Z_][a-zA-Z0-9_]*)"?`)
var rawSQLColumnRE = regexp.MustCompile(`(?i)"?([a-zA-Z_][a-zA-Z0-9_]*)"?\s*=`)

// scanWithRegex walks dir and extracts CodeReferences from every
// scannable file using the QAIL, legacy, and raw-SQL patterns.
func scanWithRegex(dir string) ([]CodeReference, error) {
	var refs []CodeReference

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if excludedDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !scannableExt[filepath.Ext(path)] {
			return nil
		}

		fileRefs, ferr := scanFile(path)
		if ferr != nil {
			return nil // unreadable file: skip, don't fail the whole scan
		}
		refs = append(refs, fileRefs...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return refs, nil
}

func scanFile(path string) ([]CodeReference, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var refs []CodeReference
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()

		for _, m := range qailCallRE.FindAllStringSubmatch(line, -1) {
			refs = append(refs, CodeReference{
				File: path, Line: lineNo, Kind: KindQail,
				Table: m[1], Column: m[2], Raw: strings.TrimSpace(line),
			})
		}

		for _, m := range legacySymbolRE.FindAllStringSubmatch(line, -1) {
			refs = append(refs, CodeReference{
				File: path, Line: lineNo, Kind: KindLegacy,
				Table: m[1], Column: m[2], Raw: strings.TrimSpace(line),
			})
		}

		for _, stmt := range rawSQLRE.FindAllString(line, -1) {
			tableMatch := rawSQLTableRE.FindStringSubmatch(stmt)
			if tableMatch == nil {
				continue
			}
			table := tableMatch[1]
			for _, colMatch := range rawSQLColumnRE.FindAllStringSubmatch(stmt, -1) {
				refs = append(refs, CodeReference{
					File: path, Line: lineNo, Kind: KindRawSQL,
					Table: table, Column: colMatch[1], Raw: strings.TrimSpace(stmt),
				})
			}
			refs = append(refs, CodeReference{
				File: path, Line: lineNo, Kind: KindRawSQL,
				Table: table, Raw: strings.TrimSpace(stmt),
			})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return refs, nil
}
