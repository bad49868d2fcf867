package extract

import (
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/jobingest/internal/textnorm"
)

// minRequirementRunes drops bullets such as "-", "N/A" or stray numbering.
const minRequirementRunes = 4

// Requirements collects the cleaned text of every <li> under list, in
// document order. A nil or empty selection yields an empty slice.
func Requirements(list *goquery.Selection) []string {
	items := []string{}
	if list == nil || list.Length() == 0 {
		return items
	}
	list.Find("li").Each(func(_ int, li *goquery.Selection) {
		text := textnorm.Clean(li.Text())
		if utf8.RuneCountInString(text) >= minRequirementRunes {
			items = append(items, text)
		}
	})
	return items
}
