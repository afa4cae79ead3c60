// Package testutil builds puzzle fixtures for tests.
package testutil

import (
	"fmt"
	"math/rand"

	"tc-auditor-service/internal/domain"
)

var rarities = []domain.Rarity{domain.RarityCommon, domain.RarityModerate, domain.RarityRare}

// GeneratePuzzle builds a valid puzzle for date with random rarities and a shuffled
// presentation order. The same rng seed always yields the same puzzle.
func GeneratePuzzle(rng *rand.Rand, date string) domain.Puzzle {
	p := domain.Puzzle{
		Date:         date,
		Title:        fmt.Sprintf("Terms of Service %s", date),
		DocumentText: "TERMS OF SERVICE\n",
	}
	for i := 1; i <= domain.RealClauseCount; i++ {
		c := domain.Clause{
			ID:     fmt.Sprintf("real-%d", i),
			Text:   fmt.Sprintf("The user agrees to clause number %d of %s.", rng.Intn(1000), date),
			Rarity: rarities[rng.Intn(len(rarities))],
		}
		p.RealClauses = append(p.RealClauses, c)
		p.DocumentText += fmt.Sprintf("%d. %s\n", i, c.Text)
	}
	for i := 1; i <= domain.DecoyClauseCount; i++ {
		p.DecoyClauses = append(p.DecoyClauses, domain.Clause{
			ID:   fmt.Sprintf("decoy-%d", i),
			Text: fmt.Sprintf("The company may invoke decoy provision %d at any time.", i),
		})
	}
	for _, c := range p.RealClauses {
		p.PresentationOrder = append(p.PresentationOrder, c.ID)
	}
	for _, c := range p.DecoyClauses {
		p.PresentationOrder = append(p.PresentationOrder, c.ID)
	}
	rng.Shuffle(len(p.PresentationOrder), func(i, j int) {
		p.PresentationOrder[i], p.PresentationOrder[j] = p.PresentationOrder[j], p.PresentationOrder[i]
	})
	return p
}

// RealIDs returns the real clause ids of p in declaration order.
func RealIDs(p domain.Puzzle) []string {
	ids := make([]string, 0, len(p.RealClauses))
	for _, c := range p.RealClauses {
		ids = append(ids, c.ID)
	}
	return ids
}

// DecoyIDs returns the decoy clause ids of p in declaration order.
func DecoyIDs(p domain.Puzzle) []string {
	ids := make([]string, 0, len(p.DecoyClauses))
	for _, c := range p.DecoyClauses {
		ids = append(ids, c.ID)
	}
	return ids
}
