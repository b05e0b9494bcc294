package coder

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// Elements that never take a closing tag.
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}

var markupExtensions = map[string]bool{
	".html": true, ".htm": true, ".xml": true,
}

var tagPattern = regexp.MustCompile(`<(/?)([a-zA-Z][a-zA-Z0-9-]*)[^>]*?(/?)>`)

func isMarkupPath(path string) bool {
	return markupExtensions[strings.ToLower(filepath.Ext(path))]
}

// checkMarkup scans content for closing tags with no matching opening
// tag. Void elements and self-closed tags are ignored. Returns the
// offending tag names, sorted.
func checkMarkup(content string) []string {
	opens := map[string]int{}
	var unbalanced []string
	seen := map[string]bool{}

	for _, m := range tagPattern.FindAllStringSubmatch(content, -1) {
		name := strings.ToLower(m[2])
		if voidElements[name] {
			continue
		}
		switch {
		case m[1] == "/":
			if opens[name] > 0 {
				opens[name]--
			} else if !seen[name] {
				unbalanced = append(unbalanced, name)
				seen[name] = true
			}
		case m[3] == "/":
			// self-closing
		default:
			opens[name]++
		}
	}
	sort.Strings(unbalanced)
	return unbalanced
}

// markupProblems validates every cached markup file and describes any
// closing tags that lack an opening tag.
func markupProblems(cache map[string]string) string {
	paths := make([]string, 0, len(cache))
	for p := range cache {
		if isMarkupPath(p) {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)

	var problems []string
	for _, p := range paths {
		if tags := checkMarkup(cache[p]); len(tags) > 0 {
			problems = append(problems, fmt.Sprintf("%s: closing tag(s) without opening tag: %s", p, strings.Join(tags, ", ")))
		}
	}
	return strings.Join(problems, "; ")
}
