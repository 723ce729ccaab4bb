// Package intent classifies free-text queries into a primary intent and the
// set of content collections worth searching.
package intent

import (
	"sort"
	"strings"
	"unicode"

	"github.com/hrygo/curio/store"
)

// Intent is the detected primary intent of a query.
type Intent string

const (
	IntentLearn    Intent = "learn"
	IntentCompare  Intent = "compare"
	IntentPractice Intent = "practice"
	IntentBrowse   Intent = "browse"
)

// Result is the outcome of query analysis. Derived per query, never
// persisted.
type Result struct {
	PrimaryIntent  Intent
	ContentTypes   []store.ContentType
	Confidence     float64
	ExtractedTopic string
}

// Router performs deterministic keyword and pattern based intent routing.
// No model calls, no I/O: the same query always yields the same result.
type Router struct {
	typeKeywords   map[store.ContentType]map[string]bool
	intentKeywords map[Intent]map[string]bool
	stopwords      map[string]bool
}

// NewRouter creates a router with the predefined vocabularies.
func NewRouter() *Router {
	return &Router{
		typeKeywords: map[store.ContentType]map[string]bool{
			store.ContentTypeTool: toSet(
				"tool", "tools", "app", "apps", "software", "plugin",
				"extension", "library", "framework", "platform", "sdk", "api"),
			store.ContentTypeLesson: toSet(
				"lesson", "lessons", "course", "courses", "tutorial",
				"tutorials", "guide", "chapter", "class", "walkthrough"),
			store.ContentTypeQuiz: toSet(
				"quiz", "quizzes", "test", "tests", "exam", "exams",
				"assessment", "flashcard", "flashcards", "questions"),
			store.ContentTypeProject: toSet(
				"project", "projects", "example", "examples", "demo",
				"demos", "showcase", "portfolio", "template", "templates"),
		},
		intentKeywords: map[Intent]map[string]bool{
			IntentLearn: toSet(
				"learn", "learning", "understand", "study", "teach",
				"explain", "basics", "introduction", "beginner"),
			IntentCompare: toSet(
				"compare", "comparison", "vs", "versus", "alternative",
				"alternatives", "better", "best", "difference"),
			IntentPractice: toSet(
				"practice", "practise", "exercise", "exercises", "drill",
				"review", "challenge"),
		},
		stopwords: toSet(
			"a", "an", "the", "about", "for", "on", "of", "to", "with",
			"in", "me", "my", "some", "find", "show", "get", "i", "want"),
	}
}

// Analyze classifies a query. An empty query returns all content types with
// confidence 0.5.
func (r *Router) Analyze(query string) Result {
	tokens := tokenize(query)

	hits := make(map[store.ContentType]int)
	for _, tok := range tokens {
		for contentType, vocab := range r.typeKeywords {
			if vocab[tok] {
				hits[contentType]++
			}
		}
	}

	primary := r.detectIntent(tokens)
	contentTypes, maxHits, ambiguous := r.resolveTypes(hits, primary)

	confidence := 0.5 + 0.15*float64(maxHits)
	if confidence > 0.95 {
		confidence = 0.95
	}
	if ambiguous {
		confidence *= 0.85
	}

	return Result{
		PrimaryIntent:  primary,
		ContentTypes:   contentTypes,
		Confidence:     confidence,
		ExtractedTopic: r.extractTopic(tokens),
	}
}

// resolveTypes picks the collections to search. When a single type dominates
// (at least two hits and strictly more than any other), the search narrows
// to it alone; otherwise every type with hits participates, ordered by hit
// count. With no hits at all, the detected intent picks the defaults.
func (r *Router) resolveTypes(hits map[store.ContentType]int, primary Intent) (types []store.ContentType, maxHits int, ambiguous bool) {
	type typeHits struct {
		contentType store.ContentType
		count       int
	}

	ranked := make([]typeHits, 0, len(hits))
	for _, t := range store.AllContentTypes() {
		if hits[t] > 0 {
			ranked = append(ranked, typeHits{t, hits[t]})
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].count > ranked[j].count
	})

	if len(ranked) == 0 {
		return r.defaultTypes(primary), 0, false
	}

	maxHits = ranked[0].count
	if len(ranked) >= 2 && maxHits-ranked[1].count <= 1 {
		ambiguous = true
	}

	if maxHits >= 2 && (len(ranked) == 1 || maxHits > ranked[1].count) {
		return []store.ContentType{ranked[0].contentType}, maxHits, false
	}

	types = make([]store.ContentType, 0, len(ranked))
	for _, th := range ranked {
		types = append(types, th.contentType)
	}
	if len(types) == 1 {
		ambiguous = false
	}
	return types, maxHits, ambiguous
}

func (r *Router) defaultTypes(primary Intent) []store.ContentType {
	switch primary {
	case IntentLearn:
		return []store.ContentType{store.ContentTypeLesson, store.ContentTypeProject, store.ContentTypeQuiz}
	case IntentCompare:
		return []store.ContentType{store.ContentTypeTool}
	case IntentPractice:
		return []store.ContentType{store.ContentTypeQuiz, store.ContentTypeProject}
	default:
		return store.AllContentTypes()
	}
}

func (r *Router) detectIntent(tokens []string) Intent {
	scores := make(map[Intent]int)
	for _, tok := range tokens {
		for intent, vocab := range r.intentKeywords {
			if vocab[tok] {
				scores[intent]++
			}
		}
	}

	best := IntentBrowse
	bestScore := 0
	for _, intent := range []Intent{IntentLearn, IntentCompare, IntentPractice} {
		if scores[intent] > bestScore {
			best = intent
			bestScore = scores[intent]
		}
	}
	return best
}

// extractTopic returns the query minus routing keywords and stopwords.
func (r *Router) extractTopic(tokens []string) string {
	var topic []string
	for _, tok := range tokens {
		if r.stopwords[tok] {
			continue
		}
		if r.isRoutingKeyword(tok) {
			continue
		}
		topic = append(topic, tok)
	}
	return strings.Join(topic, " ")
}

func (r *Router) isRoutingKeyword(tok string) bool {
	for _, vocab := range r.typeKeywords {
		if vocab[tok] {
			return true
		}
	}
	for _, vocab := range r.intentKeywords {
		if vocab[tok] {
			return true
		}
	}
	return false
}

func tokenize(query string) []string {
	return strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func toSet(words ...string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}
