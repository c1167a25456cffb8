package source

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/shanehull/petcatalog/internal/fetch"
	"github.com/shanehull/petcatalog/internal/model"
	"github.com/shanehull/petcatalog/internal/textmatch"
)

// sectionHeadings maps a content heading onto a breed section field. Fun
// facts come first so "Health fun facts" is not filed as health.
var sectionHeadings = textmatch.NewTable(
	textmatch.Category{Key: model.FieldFunFacts, Keywords: []string{"fun fact", "did you know", "trivia"}},
	textmatch.Category{Key: model.FieldHealthIssues, Keywords: []string{"health"}},
	textmatch.Category{Key: model.FieldGroomingNeeds, Keywords: []string{"grooming", "coat care"}},
	textmatch.Category{Key: model.FieldTrainingTips, Keywords: []string{"training", "trainability"}},
	textmatch.Category{Key: model.FieldPersonality, Keywords: []string{"personality", "temperament", "character"}},
	textmatch.Category{Key: model.FieldHistory, Keywords: []string{"history", "origin"}},
)

// headingSections collects the text under each recognised heading in root.
// A section runs until the next heading. The first heading for a field
// wins and empty sections are dropped.
func headingSections(root *goquery.Selection, headings string) map[string]string {
	stop := headings + ", .mw-heading"
	out := make(map[string]string)
	root.Find(headings).Each(func(_ int, h *goquery.Selection) {
		field, ok := sectionHeadings.Match(h.Text())
		if !ok {
			return
		}
		if _, seen := out[field]; seen {
			return
		}
		anchor := h
		// Wikipedia wraps headings in <div class="mw-heading">.
		if h.Parent().HasClass("mw-heading") {
			anchor = h.Parent()
		}
		body := strings.TrimSpace(fetch.SelectionText(anchor.NextUntil(stop)))
		if body != "" {
			out[field] = body
		}
	})
	return out
}
