package tabular

import (
	"fmt"
	"strings"
)

const (
	workspaceURIPrefix = "powerbi://api.powerbi.com/v1.0/myorg/"
	dataSourceKey      = "DataSource"
)

// WorkspaceURI returns the XMLA endpoint URI for a workspace.
func WorkspaceURI(workspace string) string {
	return workspaceURIPrefix + workspace
}

// ConnectionString returns the connection string for a workspace. A value
// holding a separator, a quote or trailing space is double-quoted with
// embedded quotes doubled, so ParseConnectionString returns it intact.
func ConnectionString(workspace string) string {
	return dataSourceKey + "=" + quoteValue(WorkspaceURI(workspace)) + ";"
}

func quoteValue(v string) string {
	if !strings.ContainsAny(v, `;"'`) && strings.TrimSpace(v) == v {
		return v
	}
	return `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
}

// ParseConnectionString recovers the workspace name from a connection string
// produced by ConnectionString.
func ParseConnectionString(s string) (string, error) {
	pairs, err := splitPairs(s)
	if err != nil {
		return "", err
	}
	for _, p := range pairs {
		if !strings.EqualFold(p.key, dataSourceKey) {
			continue
		}
		if !strings.HasPrefix(p.value, workspaceURIPrefix) {
			return "", fmt.Errorf("unsupported data source %q", p.value)
		}
		workspace := strings.TrimPrefix(p.value, workspaceURIPrefix)
		if workspace == "" {
			return "", fmt.Errorf("data source %q names no workspace", p.value)
		}
		return workspace, nil
	}
	return "", fmt.Errorf("connection string has no DataSource")
}

type pair struct {
	key   string
	value string
}

// splitPairs reads key=value pairs separated by ';'. A value opened with a
// single or double quote runs to the matching quote; a doubled quote inside
// it stands for one literal quote.
func splitPairs(s string) ([]pair, error) {
	var out []pair
	i := 0
	for i < len(s) {
		for i < len(s) && (s[i] == ';' || s[i] == ' ' || s[i] == '\t') {
			i++
		}
		if i == len(s) {
			break
		}

		eq := strings.IndexByte(s[i:], '=')
		semi := strings.IndexByte(s[i:], ';')
		if eq < 0 || (semi >= 0 && semi < eq) {
			return nil, fmt.Errorf("connection string segment %q has no '='", segment(s[i:]))
		}
		key := strings.TrimSpace(s[i : i+eq])
		i += eq + 1
		for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
			i++
		}

		var value string
		if i < len(s) && (s[i] == '"' || s[i] == '\'') {
			v, next, err := readQuoted(s, i)
			if err != nil {
				return nil, fmt.Errorf("value of %s: %w", key, err)
			}
			value, i = v, next
			for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
				i++
			}
			if i < len(s) && s[i] != ';' {
				return nil, fmt.Errorf("value of %s: unexpected text after closing quote", key)
			}
		} else {
			end := strings.IndexByte(s[i:], ';')
			if end < 0 {
				end = len(s) - i
			}
			value = strings.TrimSpace(s[i : i+end])
			i += end
		}
		out = append(out, pair{key: key, value: value})
	}
	return out, nil
}

func readQuoted(s string, start int) (string, int, error) {
	q := s[start]
	var b strings.Builder
	for i := start + 1; i < len(s); i++ {
		if s[i] != q {
			b.WriteByte(s[i])
			continue
		}
		if i+1 < len(s) && s[i+1] == q {
			b.WriteByte(q)
			i++
			continue
		}
		return b.String(), i + 1, nil
	}
	return "", 0, fmt.Errorf("unterminated quoted value")
}

func segment(s string) string {
	if end := strings.IndexByte(s, ';'); end >= 0 {
		return s[:end]
	}
	return s
}
