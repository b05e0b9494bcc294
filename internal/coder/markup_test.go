package coder

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckMarkup(t *testing.T) {
	assert.Empty(t, checkMarkup(`<html><body><div class="x"><p>hi</p></div></body></html>`))
	assert.Empty(t, checkMarkup(`<div><br><img src="a.png"><input type="text"></div>`))
	assert.Empty(t, checkMarkup(`<svg><path d="M0 0"/></svg>`))

	assert.Equal(t, []string{"section"}, checkMarkup(`<div><p>x</p></div></section>`))
	assert.Equal(t, []string{"div"}, checkMarkup(`<p>x</p></div></div>`))
}

func TestCheckMarkup_CaseInsensitiveNames(t *testing.T) {
	assert.Empty(t, checkMarkup(`<DIV>text</div>`))
}

func TestIsMarkupPath(t *testing.T) {
	assert.True(t, isMarkupPath("index.html"))
	assert.True(t, isMarkupPath("pages/about.HTM"))
	assert.True(t, isMarkupPath("feed.xml"))
	assert.False(t, isMarkupPath("style.css"))
	assert.False(t, isMarkupPath("app.js"))
}

func TestMarkupProblems(t *testing.T) {
	cache := map[string]string{
		"index.html": "<html><body></body></html>",
		"bad.html":   "<div></div></footer>",
		"notes.txt":  "</div> this is not markup",
	}
	problems := markupProblems(cache)
	assert.Contains(t, problems, "bad.html")
	assert.Contains(t, problems, "footer")
	assert.NotContains(t, problems, "notes.txt")
}
