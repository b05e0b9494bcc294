package ticket

import (
	"regexp"
	"strings"
)

var branchPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)branch[:\s]+([a-zA-Z0-9/_-]+)`),
	regexp.MustCompile(`(?i)use\s+branch[:\s]+([a-zA-Z0-9/_-]+)`),
	regexp.MustCompile(`(?i)from\s+branch[:\s]+([a-zA-Z0-9/_-]+)`),
	regexp.MustCompile(`(?i)checkout\s+([a-zA-Z0-9/_-]+)`),
}

var branchName = regexp.MustCompile(`^[a-zA-Z0-9/_-]+$`)

// extractBranchHint finds the first branch request like "branch: feature/x"
// or "use branch feature/x" in the ticket text.
func extractBranchHint(description string, comments []string) string {
	text := description + " " + strings.Join(comments, " ")
	for _, pat := range branchPatterns {
		m := pat.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if branchName.MatchString(m[1]) {
			return m[1]
		}
	}
	return ""
}
