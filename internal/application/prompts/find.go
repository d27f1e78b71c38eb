package prompts

import (
	"context"
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/doeshing/promptkeep/internal/domain"
)

// ConfidentMatch is the score at which a single find result is taken as the answer.
const ConfidentMatch = 0.8

// Match is a record ranked by Find.
type Match struct {
	Record domain.PromptRecord
	Score  float64
}

// Find ranks current records by fuzzy similarity of query to their name,
// description and template, best first. limit <= 0 returns every record.
func (s *Service) Find(ctx context.Context, query string, limit int) ([]Match, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.InvalidInputf("search query is empty")
	}
	recs, err := s.Records.List(ctx, domain.ListOptions{SortBy: domain.SortByID})
	if err != nil {
		return nil, err
	}

	matches := make([]Match, 0, len(recs))
	for _, r := range recs {
		text := strings.Join([]string{r.Name, r.Description, r.Template}, " ")
		matches = append(matches, Match{Record: r, Score: Similarity(query, text)})
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// Similarity is the case-insensitive character match ratio of a and b, in [0, 1].
func Similarity(a, b string) float64 {
	return difflib.NewMatcher(chars(strings.ToLower(a)), chars(strings.ToLower(b))).Ratio()
}

func chars(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
