package coder

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_ChangesDoneTakesPriority(t *testing.T) {
	cases := []string{
		"CHANGES DONE",
		"changes done",
		"All finished. Changes Done.",
		`{"operation": "write_file"} CHANGES DONE`,
		"```\nCHANGES DONE\n```",
	}
	for _, raw := range cases {
		op, err := Parse(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, OpComplete, op.Kind, raw)
	}
}

func TestParse_FenceVariants(t *testing.T) {
	body := `{"operation": "get_file", "file_path": "index.html", "reason": "inspect"}`
	variants := []string{
		body,
		"```\n" + body + "\n```",
		"```json\n" + body + "\n```",
		"````json\n" + body + "\n````",
		"Here is the operation:\n```json\n" + body + "\n```\nLet me know.",
	}
	for _, raw := range variants {
		op, err := Parse(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, OpGetFile, op.Kind)
		assert.Equal(t, "index.html", op.Path)
		assert.Equal(t, "inspect", op.Reason)
	}
}

func TestParse_TrailingCommaRepair(t *testing.T) {
	raw := `{"operation": "delete_file", "file_path": "old.css",}`
	op, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, OpDeleteFile, op.Kind)
	assert.Equal(t, "old.css", op.Path)
}

func TestParse_TrailingGarbageTrimmed(t *testing.T) {
	raw := `{"operation": "get_file", "file_path": "a.txt"} trailing explanation`
	op, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "a.txt", op.Path)
}

func TestParse_InvalidJSON(t *testing.T) {
	_, err := Parse("I will now edit the file.")
	var pf *ParseFailure
	require.ErrorAs(t, err, &pf)
}

func TestParse_UnknownOperation(t *testing.T) {
	_, err := Parse(`{"operation": "rename_file", "file_path": "a"}`)
	var vf *ValidationFailure
	require.ErrorAs(t, err, &vf)
	assert.Contains(t, vf.Reason, "rename_file")
}

func TestParse_MissingOperation(t *testing.T) {
	_, err := Parse(`{"file_path": "a"}`)
	var vf *ValidationFailure
	require.ErrorAs(t, err, &vf)
}

func TestParse_ReplaceLinesBounds(t *testing.T) {
	invalid := []string{
		fmt.Sprintf(`{"operation": "replace_lines", "file_path": "a", "start_line": %d, "end_line": %d, "file_content": "x"}`, 5, 2),
		`{"operation": "replace_lines", "file_path": "a", "start_line": 0, "end_line": 2, "file_content": "x"}`,
		`{"operation": "replace_lines", "file_path": "a", "start_line": -1, "end_line": -1, "file_content": "x"}`,
		`{"operation": "replace_lines", "file_path": "a", "start_line": 1, "end_line": 2}`,
	}
	for _, raw := range invalid {
		_, err := Parse(raw)
		var vf *ValidationFailure
		require.ErrorAs(t, err, &vf, raw)
	}

	op, err := Parse(`{"operation": "replace_lines", "file_path": "a", "start_line": 2, "end_line": 4, "file_content": "x"}`)
	require.NoError(t, err)
	assert.Equal(t, 2, op.Start)
	assert.Equal(t, 4, op.End)
}

func TestParse_FindReplace(t *testing.T) {
	_, err := Parse(`{"operation": "find_replace", "file_path": "a", "replace": "x"}`)
	var vf *ValidationFailure
	require.ErrorAs(t, err, &vf)

	// empty replacement is a deletion, valid
	op, err := Parse(`{"operation": "find_replace", "file_path": "a", "find": "old", "replace": ""}`)
	require.NoError(t, err)
	assert.Equal(t, "old", op.Find)
	assert.Equal(t, "", op.Replace)
}

func TestParse_WriteFileRequiresContent(t *testing.T) {
	_, err := Parse(`{"operation": "write_file", "file_path": "a.txt"}`)
	var vf *ValidationFailure
	require.ErrorAs(t, err, &vf)

	// empty content is valid
	op, err := Parse(`{"operation": "write_file", "file_path": "a.txt", "file_content": ""}`)
	require.NoError(t, err)
	assert.Equal(t, "", op.Content)
}

func TestParse_CopyFile(t *testing.T) {
	_, err := Parse(`{"operation": "copy_file", "source_path": "logo.png"}`)
	var vf *ValidationFailure
	require.ErrorAs(t, err, &vf)

	op, err := Parse(`{"operation": "copy_file", "source_path": "attachments/logo.png", "target_path": "img/logo.png"}`)
	require.NoError(t, err)
	assert.Equal(t, "attachments/logo.png", op.SourcePath)
	assert.Equal(t, "img/logo.png", op.TargetPath)
}

func TestParse_CompleteWithSummary(t *testing.T) {
	op, err := Parse(`{"operation": "complete", "summary": "Added the footer"}`)
	require.NoError(t, err)
	assert.Equal(t, OpComplete, op.Kind)
	assert.Equal(t, "Added the footer", op.Summary)
}
