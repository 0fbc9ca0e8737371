package notebook

import "regexp"

var orgIDRe = regexp.MustCompile(`\b(?:read_api|write_db)_(\d+)\b`)
var useOrgIDRe = regexp.MustCompile(`(?i)\bUSE\s+((?:read_api|write_db)_\d+)\b`)

// ResolveOrgID implements §4.3's org-id resolution: in-query wins (first
// match of read_api_<N>/write_db_<N> anywhere in the SQL text); otherwise
// the notebook-default from the first `USE read_api_<N>|write_db_<N>` in
// the whole notebook's source; otherwise "".
func ResolveOrgID(sql string, notebookSource string) string {
	if m := orgIDRe.FindString(sql); m != "" {
		return m
	}
	if m := useOrgIDRe.FindStringSubmatch(notebookSource); m != nil {
		return m[1]
	}
	return ""
}
