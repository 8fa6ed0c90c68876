package compiler

import (
	"bufio"
	"bytes"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// locRe matches "file.go:line:col: message" and "file.go:line: message".
var locRe = regexp.MustCompile(`^(.+?\.go):(\d+)(?::(\d+))?:\s*(.*)$`)

// ParseToolOutput converts go toolchain output into diagnostics of the given
// severity. Package headers ("# pkg") are dropped, tab-indented lines continue the
// previous diagnostic, and anything without a location becomes an unlocated
// diagnostic. Relative paths are resolved against dir when dir is set.
func ParseToolOutput(out []byte, sev Severity, code, dir string) []Diagnostic {
	var diags []Diagnostic
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		raw := sc.Text()
		if strings.TrimSpace(raw) == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		if strings.HasPrefix(raw, "\t") && len(diags) > 0 {
			last := &diags[len(diags)-1]
			last.Message += "\n" + strings.TrimSpace(raw)
			continue
		}
		line := strings.TrimPrefix(strings.TrimSpace(raw), "vet: ")

		m := locRe.FindStringSubmatch(line)
		if m == nil {
			diags = append(diags, Diagnostic{Severity: sev, Code: code, Message: line})
			continue
		}
		ln, _ := strconv.Atoi(m[2])
		col, _ := strconv.Atoi(m[3])
		diags = append(diags, Diagnostic{
			Severity: sev,
			File:     resolve(dir, m[1]),
			Line:     ln,
			Column:   col,
			Code:     code,
			Message:  m[4],
		})
	}
	return diags
}

func resolve(dir, file string) string {
	if dir == "" || filepath.IsAbs(file) {
		return filepath.Clean(file)
	}
	return filepath.Join(dir, file)
}
