package interact

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/agnivade/levenshtein"
)

// SuggestSelectors extracts id and class selectors from the given page HTML
// and returns the (at most max) candidates closest to the selector that
// failed to resolve. Candidates further away than half the selector's length
// are not worth suggesting.
func SuggestSelectors(pageHTML, sel string, max int) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return nil
	}

	seen := map[string]bool{}
	candidates := []string{}
	doc.Find("*").Each(func(_ int, s *goquery.Selection) {
		if id, ok := s.Attr("id"); ok && id != "" {
			addCandidate("#"+id, seen, &candidates)
		}
		if class, ok := s.Attr("class"); ok {
			for _, c := range strings.Fields(class) {
				addCandidate("."+c, seen, &candidates)
			}
		}
	})

	// rune count, since ComputeDistance is rune based
	maxDist := utf8.RuneCountInString(sel)/2 + 1
	type scored struct {
		sel  string
		dist int
	}
	scoredCandidates := []scored{}
	for _, c := range candidates {
		d := levenshtein.ComputeDistance(sel, c)
		if d <= maxDist {
			scoredCandidates = append(scoredCandidates, scored{sel: c, dist: d})
		}
	}
	sort.SliceStable(scoredCandidates, func(i, j int) bool {
		return scoredCandidates[i].dist < scoredCandidates[j].dist
	})

	result := []string{}
	for _, sc := range scoredCandidates {
		if len(result) == max {
			break
		}
		result = append(result, sc.sel)
	}
	return result
}

func addCandidate(c string, seen map[string]bool, candidates *[]string) {
	if !seen[c] {
		seen[c] = true
		*candidates = append(*candidates, c)
	}
}
