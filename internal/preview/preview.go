// Package preview composes a single self-contained HTML document from an
// extension's files by inlining the scripts and stylesheets its entry page
// references.
package preview

import (
	"regexp"
	"strings"

	"github.com/extforge/extforge/internal/fileset"
)

// Fallback is returned when the file set has no HTML page to render.
const Fallback = `<body style="background-color: #111827; color: #d1d5db; font-family: sans-serif; display: flex; align-items: center; justify-content: center; height: 100vh; text-align: center;"><div><h2>Preview Not Available</h2><p>This extension runs on web pages, not in a popup. Follow the instructions to test it.</p></div></body>`

const (
	ScriptNotFound     = "<!-- script not found -->"
	StylesheetNotFound = "<!-- stylesheet not found -->"
)

var (
	scriptTag = regexp.MustCompile(`(?i)<script\s+[^>]*?src="([^"]+)"[^>]*?></script>`)
	linkTag   = regexp.MustCompile(`(?i)<link\s+[^>]*>`)
	hrefAttr  = regexp.MustCompile(`(?i)\shref="([^"]+)"`)
	relAttr   = regexp.MustCompile(`(?i)\srel="stylesheet"`)

	scriptClose = regexp.MustCompile(`(?i)</script`)
	styleClose  = regexp.MustCompile(`(?i)</style`)
)

// Compose renders set as one HTML document. It is pure: the same set always
// yields the same document.
func Compose(set *fileset.Set) string {
	page, ok := set.EntryPage()
	if !ok {
		return Fallback
	}
	return Inline(page.Content, set)
}

// Inline replaces same-set script and stylesheet references in doc with the
// referenced content. Unresolved references become placeholder comments.
func Inline(doc string, set *fileset.Set) string {
	doc = scriptTag.ReplaceAllStringFunc(doc, func(tag string) string {
		ref := scriptTag.FindStringSubmatch(tag)[1]
		f, ok := set.Resolve(ref)
		if !ok {
			return ScriptNotFound
		}
		return "<script>" + escapeClose(scriptClose, f.Content, `<\/script`) + "</script>"
	})

	doc = linkTag.ReplaceAllStringFunc(doc, func(tag string) string {
		ref, ok := stylesheetRef(tag)
		if !ok {
			return tag
		}
		f, found := set.Resolve(ref)
		if !found {
			return StylesheetNotFound
		}
		return "<style>" + escapeClose(styleClose, f.Content, `<\/style`) + "</style>"
	})

	return doc
}

// stylesheetRef returns the href of a <link rel="stylesheet"> tag.
func stylesheetRef(tag string) (string, bool) {
	if !relAttr.MatchString(tag) {
		return "", false
	}
	m := hrefAttr.FindStringSubmatch(tag)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// escapeClose keeps inlined content from terminating its element early.
func escapeClose(re *regexp.Regexp, content, repl string) string {
	if !strings.Contains(strings.ToLower(content), "</") {
		return content
	}
	return re.ReplaceAllLiteralString(content, repl)
}
