package preview

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/agnivade/levenshtein"

	"github.com/extforge/extforge/internal/fileset"
)

// RefKind is the kind of asset a page reference points at.
type RefKind string

const (
	RefScript     RefKind = "script"
	RefStylesheet RefKind = "stylesheet"
)

// Reference is one script or stylesheet reference found in the entry page.
type Reference struct {
	Kind     RefKind `json:"kind"`
	Ref      string  `json:"ref"`
	Resolved bool    `json:"resolved"`
	// Suggestion is the closest filename in the set for an unresolved reference.
	Suggestion string `json:"suggestion,omitempty"`
}

// Report describes what Compose will inline for a set.
type Report struct {
	EntryPage  string      `json:"entryPage,omitempty"`
	References []Reference `json:"references"`
}

// Unresolved returns the references that will render as placeholders.
func (r Report) Unresolved() []Reference {
	var out []Reference
	for _, ref := range r.References {
		if !ref.Resolved {
			out = append(out, ref)
		}
	}
	return out
}

// maxSuggestDistance bounds how different a suggestion may be from the reference.
const maxSuggestDistance = 4

// Analyze lists the script and stylesheet references of the set's entry page
// and whether each resolves within the set.
func Analyze(set *fileset.Set) (Report, error) {
	page, ok := set.EntryPage()
	if !ok {
		return Report{References: []Reference{}}, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.Content))
	if err != nil {
		return Report{}, err
	}

	report := Report{EntryPage: page.Filename, References: []Reference{}}
	add := func(kind RefKind, ref string) {
		r := Reference{Kind: kind, Ref: ref}
		if _, ok := set.Resolve(ref); ok {
			r.Resolved = true
		} else {
			r.Suggestion = suggest(set, ref)
		}
		report.References = append(report.References, r)
	}

	doc.Find("script[src]").Each(func(_ int, sel *goquery.Selection) {
		if strings.TrimSpace(sel.Text()) != "" {
			return
		}
		src, _ := sel.Attr("src")
		add(RefScript, src)
	})
	doc.Find("link[href]").Each(func(_ int, sel *goquery.Selection) {
		rel, _ := sel.Attr("rel")
		if !strings.EqualFold(rel, "stylesheet") {
			return
		}
		href, _ := sel.Attr("href")
		add(RefStylesheet, href)
	})

	return report, nil
}

func suggest(set *fileset.Set, ref string) string {
	target := strings.TrimPrefix(ref, "./")
	best, bestDist := "", maxSuggestDistance+1
	for _, name := range set.Names() {
		d := levenshtein.ComputeDistance(target, name)
		if d < bestDist {
			best, bestDist = name, d
		}
	}
	return best
}
