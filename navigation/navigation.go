// Package navigation derives which page is presented and whether moving
// forward or backward is allowed. Navigation is strictly linear over the
// page sequence; a question's nextAction is authored metadata only.
package navigation

import (
	"fmt"

	"github.com/mbolis/survey-builder/model"
	"github.com/mbolis/survey-builder/questiontype"
)

// Step moves index one page in dir within [0, count-1]. At either boundary
// the index is returned unchanged with ok false.
func Step(index, count int, dir model.Direction) (next int, ok bool) {
	switch dir {
	case model.Next:
		if index < count-1 {
			return index + 1, true
		}
	case model.Prev:
		if index > 0 {
			return index - 1, true
		}
	}
	return index, false
}

func HasNext(index, count int) bool {
	return index < count-1
}

func HasPrev(index int) bool {
	return index > 0
}

// PageLabel renders the one-based position, e.g. "Page 2 of 3".
func PageLabel(index, count int) string {
	return fmt.Sprintf("Page %d of %d", index+1, count)
}

// Preview is the derived render state of the builder's live preview.
type Preview struct {
	Title       string               `json:"title"`
	Description string               `json:"description,omitempty"`
	PageIndex   int                  `json:"pageIndex"`
	PageCount   int                  `json:"pageCount"`
	PageLabel   string               `json:"pageLabel"`
	Inputs      []questiontype.Input `json:"inputs"`
	HasPrev     bool                 `json:"hasPrev"`
	HasNext     bool                 `json:"hasNext"`
	Device      model.DeviceView     `json:"device"`
}

// Derive computes the preview for the active page. ok is false when active
// does not address a page. Preview inputs are never graded.
func Derive(doc model.Survey, active int, device model.DeviceView, reg *questiontype.Registry) (Preview, bool) {
	if active < 0 || active >= len(doc.Pages) {
		return Preview{}, false
	}
	page := doc.Pages[active]

	inputs := make([]questiontype.Input, len(page.Questions))
	for i, q := range page.Questions {
		inputs[i] = reg.Describe(q, i)
	}

	return Preview{
		Title:       doc.DisplayTitle(),
		Description: doc.Description,
		PageIndex:   active,
		PageCount:   len(doc.Pages),
		PageLabel:   PageLabel(active, len(doc.Pages)),
		Inputs:      inputs,
		HasPrev:     HasPrev(active),
		HasNext:     HasNext(active, len(doc.Pages)),
		Device:      device,
	}, true
}
