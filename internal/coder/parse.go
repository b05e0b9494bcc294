package coder

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// ParseFailure means no structured operation could be extracted from the
// model output.
type ParseFailure struct {
	Reason string
}

func (e *ParseFailure) Error() string { return "parse failure: " + e.Reason }

// ValidationFailure means the extracted record is not a well-formed
// operation.
type ValidationFailure struct {
	Reason string
}

func (e *ValidationFailure) Error() string { return "validation failure: " + e.Reason }

var fencePatterns = []*regexp.Regexp{
	regexp.MustCompile("(?m)^```+\\s*json\\s*\n"),
	regexp.MustCompile("(?m)^```+\\s*\n"),
	regexp.MustCompile("(?m)\n```+\\s*$"),
	regexp.MustCompile("(?m)^```+\\s*$"),
	regexp.MustCompile("```+\\s*json\\s*"),
	regexp.MustCompile("```+\\s*"),
}

var trailingComma = regexp.MustCompile(`,(\s*[}\]])`)

type wireOp struct {
	Operation   string  `json:"operation"`
	FilePath    string  `json:"file_path"`
	FileContent *string `json:"file_content"`
	StartLine   int     `json:"start_line"`
	EndLine     int     `json:"end_line"`
	Find        *string `json:"find"`
	Replace     *string `json:"replace"`
	SourcePath  string  `json:"source_path"`
	TargetPath  string  `json:"target_path"`
	Reason      string  `json:"reason"`
	Summary     string  `json:"summary"`
}

// Parse extracts one Operation from raw model output. A literal
// "CHANGES DONE" anywhere in the text, any casing, is an immediate
// completion signal and takes priority over JSON content.
func Parse(raw string) (Operation, error) {
	if strings.Contains(strings.ToUpper(raw), "CHANGES DONE") {
		return Operation{Kind: OpComplete}, nil
	}

	body := extractJSON(raw)
	var w wireOp
	if err := json.Unmarshal([]byte(body), &w); err != nil {
		return Operation{}, &ParseFailure{Reason: err.Error()}
	}
	return validate(w)
}

// extractJSON strips code fences, takes the first '{' through the last
// '}', trims anything past the final brace, and removes trailing commas
// before closing braces and brackets.
func extractJSON(raw string) string {
	text := strings.TrimSpace(raw)
	for _, pat := range fencePatterns {
		text = pat.ReplaceAllString(text, "")
	}
	text = strings.TrimSpace(text)

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return text
	}
	body := strings.TrimSpace(text[start : end+1])
	body = trailingComma.ReplaceAllString(body, "$1")
	if final := strings.LastIndex(body, "}"); final != -1 {
		body = body[:final+1]
	}
	return body
}

func validate(w wireOp) (Operation, error) {
	switch w.Operation {
	case OpGetFile:
		if w.FilePath == "" {
			return Operation{}, &ValidationFailure{Reason: "get_file requires file_path"}
		}
		return Operation{Kind: OpGetFile, Path: w.FilePath, Reason: w.Reason}, nil

	case OpReplaceLines:
		if w.FilePath == "" {
			return Operation{}, &ValidationFailure{Reason: "replace_lines requires file_path"}
		}
		if w.FileContent == nil {
			return Operation{}, &ValidationFailure{Reason: "replace_lines requires file_content"}
		}
		if w.StartLine <= 0 || w.EndLine <= 0 {
			return Operation{}, &ValidationFailure{Reason: "replace_lines requires positive start_line and end_line"}
		}
		if w.StartLine > w.EndLine {
			return Operation{}, &ValidationFailure{Reason: fmt.Sprintf("replace_lines start_line %d is after end_line %d", w.StartLine, w.EndLine)}
		}
		return Operation{Kind: OpReplaceLines, Path: w.FilePath, Start: w.StartLine, End: w.EndLine, Content: *w.FileContent}, nil

	case OpFindAndReplace:
		if w.FilePath == "" {
			return Operation{}, &ValidationFailure{Reason: "find_replace requires file_path"}
		}
		if w.Find == nil || *w.Find == "" {
			return Operation{}, &ValidationFailure{Reason: "find_replace requires a non-empty find"}
		}
		if w.Replace == nil {
			return Operation{}, &ValidationFailure{Reason: "find_replace requires replace"}
		}
		return Operation{Kind: OpFindAndReplace, Path: w.FilePath, Find: *w.Find, Replace: *w.Replace}, nil

	case OpWriteFile, OpCreateFile:
		if w.FilePath == "" {
			return Operation{}, &ValidationFailure{Reason: w.Operation + " requires file_path"}
		}
		if w.FileContent == nil {
			return Operation{}, &ValidationFailure{Reason: w.Operation + " requires file_content"}
		}
		return Operation{Kind: w.Operation, Path: w.FilePath, Content: *w.FileContent}, nil

	case OpDeleteFile:
		if w.FilePath == "" {
			return Operation{}, &ValidationFailure{Reason: "delete_file requires file_path"}
		}
		return Operation{Kind: OpDeleteFile, Path: w.FilePath}, nil

	case OpCopyFile:
		if w.SourcePath == "" || w.TargetPath == "" {
			return Operation{}, &ValidationFailure{Reason: "copy_file requires source_path and target_path"}
		}
		return Operation{Kind: OpCopyFile, SourcePath: w.SourcePath, TargetPath: w.TargetPath}, nil

	case OpComplete:
		return Operation{Kind: OpComplete, Summary: w.Summary}, nil

	case "":
		return Operation{}, &ValidationFailure{Reason: "missing operation field"}

	default:
		return Operation{}, &ValidationFailure{Reason: fmt.Sprintf("unknown operation %q", w.Operation)}
	}
}
