package domain

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the canonical puzzle date key layout.
const DateLayout = "2006-01-02"

// ParseDate validates a YYYY-MM-DD calendar date key and returns it unchanged.
func ParseDate(raw string) (string, error) {
	t, err := time.Parse(DateLayout, raw)
	if err != nil || t.Format(DateLayout) != raw {
		return "", fmt.Errorf("%w: %q", ErrInvalidDate, raw)
	}
	return raw, nil
}

// DateKey formats t as a puzzle date key in t's own location.
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

// Validate checks the published-puzzle invariants and reports every violation at once.
func (p Puzzle) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if _, err := ParseDate(p.Date); err != nil {
		add("date %q is not YYYY-MM-DD", p.Date)
	}
	if strings.TrimSpace(p.Title) == "" {
		add("title is empty")
	}
	if strings.TrimSpace(p.DocumentText) == "" {
		add("document text is empty")
	}
	if len(p.RealClauses) != RealClauseCount {
		add("expected %d real clauses, got %d", RealClauseCount, len(p.RealClauses))
	}
	if len(p.DecoyClauses) != DecoyClauseCount {
		add("expected %d decoy clauses, got %d", DecoyClauseCount, len(p.DecoyClauses))
	}

	ids := make(map[string]struct{}, RealClauseCount+DecoyClauseCount)
	check := func(c Clause, real bool) {
		switch {
		case c.ID == "":
			add("clause with empty id")
			return
		case strings.TrimSpace(c.Text) == "":
			add("clause %s has empty text", c.ID)
		}
		if _, dup := ids[c.ID]; dup {
			add("clause id %s is not unique", c.ID)
		}
		ids[c.ID] = struct{}{}
		if real && !c.Rarity.Valid() {
			add("real clause %s has unknown rarity %q", c.ID, c.Rarity)
		}
		if !real && c.Rarity != "" {
			add("decoy clause %s must not carry a rarity", c.ID)
		}
	}
	for _, c := range p.RealClauses {
		check(c, true)
	}
	for _, c := range p.DecoyClauses {
		check(c, false)
	}

	if len(p.PresentationOrder) != len(ids) {
		add("presentation order has %d ids, expected %d", len(p.PresentationOrder), len(ids))
	}
	seen := make(map[string]struct{}, len(p.PresentationOrder))
	for _, id := range p.PresentationOrder {
		if _, ok := ids[id]; !ok {
			add("presentation order references unknown id %s", id)
		}
		if _, dup := seen[id]; dup {
			add("presentation order repeats id %s", id)
		}
		seen[id] = struct{}{}
	}
	for id := range ids {
		if _, ok := seen[id]; !ok {
			add("presentation order omits id %s", id)
		}
	}

	if len(problems) > 0 {
		return &PuzzleError{Date: p.Date, Problems: problems}
	}
	return nil
}

// ClauseIDs returns the union of real and decoy ids.
func (p Puzzle) ClauseIDs() map[string]struct{} {
	ids := make(map[string]struct{}, len(p.RealClauses)+len(p.DecoyClauses))
	for _, c := range p.RealClauses {
		ids[c.ID] = struct{}{}
	}
	for _, c := range p.DecoyClauses {
		ids[c.ID] = struct{}{}
	}
	return ids
}

// RealClause looks up a real clause by id.
func (p Puzzle) RealClause(id string) (Clause, bool) {
	for _, c := range p.RealClauses {
		if c.ID == id {
			return c, true
		}
	}
	return Clause{}, false
}

// IsReal reports whether id names a real clause.
func (p Puzzle) IsReal(id string) bool {
	_, ok := p.RealClause(id)
	return ok
}

// Clause looks up any clause, real or decoy, by id.
func (p Puzzle) Clause(id string) (Clause, bool) {
	if c, ok := p.RealClause(id); ok {
		return c, true
	}
	for _, c := range p.DecoyClauses {
		if c.ID == id {
			return c, true
		}
	}
	return Clause{}, false
}

// PlayView strips the answer key: candidates come in presentation order without labels or rarity.
func (p Puzzle) PlayView() PlayView {
	candidates := make([]CandidateClause, 0, len(p.PresentationOrder))
	for _, id := range p.PresentationOrder {
		c, ok := p.Clause(id)
		if !ok {
			continue
		}
		candidates = append(candidates, CandidateClause{ID: c.ID, Text: c.Text})
	}
	return PlayView{
		Date:         p.Date,
		Title:        p.Title,
		DocumentText: p.DocumentText,
		Candidates:   candidates,
	}
}

// ReviewView reveals every clause together with the outcome of a recorded result.
func (p Puzzle) ReviewView(result GameResult) ReviewView {
	answers := make(map[string]UserAnswer, len(result.Answers))
	for _, a := range result.Answers {
		answers[a.ClauseID] = a
	}

	clauses := make([]RevealedClause, 0, len(p.PresentationOrder))
	for _, id := range p.PresentationOrder {
		c, ok := p.Clause(id)
		if !ok {
			continue
		}
		a := answers[id]
		clauses = append(clauses, RevealedClause{
			ID:          c.ID,
			Text:        c.Text,
			IsReal:      p.IsReal(id),
			Rarity:      c.Rarity,
			WasSelected: a.WasSelected,
			Correct:     a.Correct,
		})
	}
	return ReviewView{
		Date:    p.Date,
		Title:   p.Title,
		Clauses: clauses,
		Score:   result.Score,
	}
}
