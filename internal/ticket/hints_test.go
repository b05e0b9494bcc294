package ticket

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBranchHint(t *testing.T) {
	cases := []struct {
		name        string
		description string
		comments    []string
		want        string
	}{
		{"colon form", "Please work on branch: feature/login", nil, "feature/login"},
		{"use branch", "use branch hotfix/nav-menu", nil, "hotfix/nav-menu"},
		{"from branch", "continue from branch develop", nil, "develop"},
		{"checkout", "checkout release-2", nil, "release-2"},
		{"in comment", "no hint here", []string{"nothing", "branch: feature/x"}, "feature/x"},
		{"case insensitive", "BRANCH: Feature/Caps", nil, "Feature/Caps"},
		{"none", "just a description", []string{"plain comment"}, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tk := Ticket{Description: tc.description}
			for _, c := range tc.comments {
				tk.Comments = append(tk.Comments, Comment{Body: c})
			}
			assert.Equal(t, tc.want, tk.BranchHint())
		})
	}
}
