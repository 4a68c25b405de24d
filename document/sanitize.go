package document

import (
	"html"
	"regexp"
	"sync"

	"github.com/microcosm-cc/bluemonday"

	"github.com/mbolis/survey-builder/model"
)

var (
	reTag = regexp.MustCompile(`<[/!]?[a-zA-Z][^<>]*>`)

	textPolicyOnce sync.Once
	textPolicy     *bluemonday.Policy
)

// Sanitize strips markup from every free-text field of the document. Text
// stays unescaped; escaping is left to whoever renders it.
func Sanitize(doc model.Survey) model.Survey {
	out := doc.Clone()
	out.Title = stripMarkup(out.Title)
	out.Description = stripMarkup(out.Description)
	for i := range out.Pages {
		for j := range out.Pages[i].Questions {
			q := &out.Pages[i].Questions[j]
			q.Title = stripMarkup(q.Title)
			q.Description = stripMarkup(q.Description)
			q.Placeholder = stripMarkup(q.Placeholder)
			for k := range q.Options {
				q.Options[k] = stripMarkup(q.Options[k])
			}
		}
	}
	return out
}

// stripMarkup leaves text without tags untouched, so a lone '<' or an
// escaped entity survives. When unescaping would bring tags back, the
// escaped form is kept.
func stripMarkup(raw string) string {
	if !reTag.MatchString(raw) {
		return raw
	}
	cleaned := sanitizer().Sanitize(raw)
	text := html.UnescapeString(cleaned)
	if reTag.MatchString(text) {
		return cleaned
	}
	return text
}

func sanitizer() *bluemonday.Policy {
	textPolicyOnce.Do(func() {
		textPolicy = bluemonday.StrictPolicy()
	})
	return textPolicy
}
