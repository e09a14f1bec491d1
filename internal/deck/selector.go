package deck

import (
	"math/rand"
	"strings"
	"sync"

	"slideforge/internal/model"
)

// Selector picks a slide layout for an outline section based on its content
// and which layouts the deck has already used. Tie-breaks are uniformly random;
// the random source is injected so tests can seed it.
type Selector struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSelector creates a Selector backed by the given random source.
func NewSelector(rng *rand.Rand) *Selector {
	return &Selector{rng: rng}
}

var comparisonKeywords = []string{"versus", " vs ", "vs.", "comparison", "compare", "pros and cons", "before and after"}

var sequenceKeywords = []string{"step", "phase", "stage", "process", "timeline", "roadmap", "milestone"}

var quoteKeywords = []string{"quote", "testimonial", "said", "famous words"}

// Select implements the layout-selection heuristic.
//
// Priority: forced accent layout for the first slide; forced non-image layout
// for the last slide preferring conclusion styles; otherwise an unused layout
// matching the content-fit bucket, then any unused layout, then a fit-matching
// layout that differs from the previous slide's, then (for middle slides of
// larger decks) the least-frequently-used layout, then a random fit match.
func (s *Selector) Select(title string, bullets []string, index, total int, history []model.TemplateType) model.TemplateType {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index == 0 {
		return AccentTemplates[s.rng.Intn(len(AccentTemplates))]
	}

	fit := contentFit(title, bullets)
	if len(fit) == 0 {
		fit = append([]model.TemplateType(nil), AllTemplates...)
	}

	if index == total-1 {
		return s.pickLast(fit)
	}

	usage := make(map[model.TemplateType]int, len(history))
	for _, t := range history {
		usage[t]++
	}

	// Unused layout that also fits the content.
	if pick, ok := s.pickRandom(filterTemplates(fit, func(t model.TemplateType) bool { return usage[t] == 0 })); ok {
		return pick
	}

	// Any unused layout.
	if pick, ok := s.pickRandom(filterTemplates(AllTemplates, func(t model.TemplateType) bool { return usage[t] == 0 })); ok {
		return pick
	}

	// Fit match different from the immediately preceding slide; for longer
	// decks prefer layouts not used in the last 3 slides.
	var previous model.TemplateType
	if len(history) > 0 {
		previous = history[len(history)-1]
	}
	notPrevious := filterTemplates(fit, func(t model.TemplateType) bool { return t != previous })
	if total > 5 {
		recent := make(map[model.TemplateType]bool)
		for _, t := range history[maxInt(0, len(history)-3):] {
			recent[t] = true
		}
		if pick, ok := s.pickRandom(filterTemplates(notPrevious, func(t model.TemplateType) bool { return !recent[t] })); ok {
			return pick
		}
	}
	if len(notPrevious) > 0 && total > 3 {
		// Middle slides of larger decks: least-frequently-used so far.
		return s.leastUsed(notPrevious, usage)
	}
	if pick, ok := s.pickRandom(notPrevious); ok {
		return pick
	}

	pick, _ := s.pickRandom(fit)
	return pick
}

// pickLast chooses the final slide's layout: never an image layout, with
// conclusion-style layouts preferred when any of them fit.
func (s *Selector) pickLast(fit []model.TemplateType) model.TemplateType {
	conclusionFit := filterTemplates(fit, func(t model.TemplateType) bool {
		return contains(ConclusionTemplates, t)
	})
	if pick, ok := s.pickRandom(conclusionFit); ok {
		return pick
	}
	nonImage := filterTemplates(fit, func(t model.TemplateType) bool { return !IsImage(t) })
	if pick, ok := s.pickRandom(nonImage); ok {
		return pick
	}
	return ConclusionTemplates[s.rng.Intn(len(ConclusionTemplates))]
}

func (s *Selector) pickRandom(candidates []model.TemplateType) (model.TemplateType, bool) {
	if len(candidates) == 0 {
		return "", false
	}
	return candidates[s.rng.Intn(len(candidates))], true
}

func (s *Selector) leastUsed(candidates []model.TemplateType, usage map[model.TemplateType]int) model.TemplateType {
	best := candidates[0]
	for _, t := range candidates[1:] {
		if usage[t] < usage[best] {
			best = t
		}
	}
	return best
}

// contentFit classifies the section into a bucket of candidate layouts by
// keyword presence and raw bullet count.
func contentFit(title string, bullets []string) []model.TemplateType {
	corpus := strings.ToLower(title + " " + strings.Join(bullets, " "))

	if containsAny(corpus, quoteKeywords) {
		return []model.TemplateType{model.TemplateQuote, model.TemplateParagraph}
	}
	if containsAny(corpus, comparisonKeywords) {
		return []model.TemplateType{model.TemplateTwoColumns, model.TemplateTwoColumnsHeadings}
	}
	if containsAny(corpus, sequenceKeywords) && len(bullets) >= 4 {
		return []model.TemplateType{model.TemplateFourColumnsHead, model.TemplateTimeline}
	}

	switch {
	case len(bullets) <= 1:
		return []model.TemplateType{model.TemplateParagraph, model.TemplateBulletsWithImage}
	case len(bullets) == 2:
		return []model.TemplateType{model.TemplateTwoColumns, model.TemplateTwoColumnsHeadings}
	case len(bullets) == 3:
		return []model.TemplateType{model.TemplateThreeColumns, model.TemplateThreeColumnsHead}
	default:
		return []model.TemplateType{model.TemplateFourColumns, model.TemplateFourColumnsHead, model.TemplateBullets, model.TemplateBulletsWithImage}
	}
}

func containsAny(corpus string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(corpus, kw) {
			return true
		}
	}
	return false
}

func filterTemplates(set []model.TemplateType, keep func(model.TemplateType) bool) []model.TemplateType {
	var out []model.TemplateType
	for _, t := range set {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
