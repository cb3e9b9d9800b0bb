package parser

import (
	"regexp"
	"strings"
	"sync"

	"github.com/newsystem-ai/recording-insights/internal/config"
)

// keywordPatterns caches compiled matchers; the keyword table is small and
// stable for the life of the process, and normalization runs concurrently.
var keywordPatterns sync.Map // lowered keyword -> *regexp.Regexp

func keywordPattern(kw string) *regexp.Regexp {
	if cached, ok := keywordPatterns.Load(kw); ok {
		return cached.(*regexp.Regexp)
	}
	re := regexp.MustCompile(`\b` + regexp.QuoteMeta(kw) + `\b`)
	keywordPatterns.Store(kw, re)
	return re
}

// InferWorkflowType classifies free text against the ordered keyword
// table. Keywords match on word boundaries ("check" never matches
// "checkout") and every occurrence counts, so repeated mentions outweigh
// one-off hits. The category with the most hits wins; ties break in favor
// of the earlier table entry; no hits at all yields "other".
func InferWorkflowType(categories []config.WorkflowCategory, text string) string {
	lowered := strings.ToLower(text)

	best := "other"
	bestHits := 0
	for _, cat := range categories {
		hits := 0
		for _, kw := range cat.Keywords {
			hits += len(keywordPattern(strings.ToLower(kw)).FindAllStringIndex(lowered, -1))
		}
		if hits > bestHits {
			best = cat.Name
			bestHits = hits
		}
	}
	return best
}

// workflowSearchText concatenates the fields keyword inference runs over.
func workflowSearchText(description string, applications, steps []string) string {
	var b strings.Builder
	b.WriteString(description)
	for _, a := range applications {
		b.WriteByte(' ')
		b.WriteString(a)
	}
	for _, s := range steps {
		b.WriteByte(' ')
		b.WriteString(s)
	}
	return b.String()
}
