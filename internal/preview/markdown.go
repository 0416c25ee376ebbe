package preview

import (
	md "github.com/JohannesKaufmann/html-to-markdown"
)

// Markdown renders a composed document as Markdown for terminal display.
// Inlined scripts and styles are dropped.
func Markdown(doc string) (string, error) {
	converter := md.NewConverter("", true, &md.Options{
		HeadingStyle:     "atx",
		HorizontalRule:   "---",
		BulletListMarker: "-",
		CodeBlockStyle:   "fenced",
		EmDelimiter:      "*",
	})
	converter.Remove("script", "style", "meta", "link")

	return converter.ConvertString(doc)
}
