package content

import (
	"context"
	"encoding/json"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"tc-auditor-service/internal/domain"
	"tc-auditor-service/internal/testutil"
)

func TestSampleIsValid(t *testing.T) {
	p, err := Sample()
	require.NoError(t, err)

	assert.Equal(t, SampleDate, p.Date)
	assert.Equal(t, []string{"rac1", "fac2", "rac3", "fac1", "rac2", "fac4", "rac4", "rac5", "fac5", "fac3"}, p.PresentationOrder)
	require.NoError(t, Validate(p))
}

func TestLoadDirReadsYAMLAndJSON(t *testing.T) {
	dir := t.TempDir()
	rng := rand.New(rand.NewSource(3))

	a := testutil.GeneratePuzzle(rng, "2025-02-02")
	b := testutil.GeneratePuzzle(rng, "2025-02-01")
	writeYAML(t, filepath.Join(dir, "2025-02-02.yaml"), a)
	writeJSON(t, filepath.Join(dir, "2025-02-01.json"), b)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("ignored"), 0o644))

	puzzles, err := LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, puzzles, 2)
	assert.Equal(t, "2025-02-01", puzzles[0].Date)
	assert.Equal(t, b, puzzles[0])
	assert.Equal(t, a, puzzles[1])
}

func TestLoadDirRejectsDuplicateDates(t *testing.T) {
	dir := t.TempDir()
	p := testutil.GeneratePuzzle(rand.New(rand.NewSource(3)), "2025-02-02")
	writeYAML(t, filepath.Join(dir, "a.yaml"), p)
	writeJSON(t, filepath.Join(dir, "b.json"), p)

	_, err := LoadDir(dir)
	assert.ErrorIs(t, err, domain.ErrPuzzleExists)
}

func TestDecodeRejectsUnknownFields(t *testing.T) {
	_, err := Decode([]byte("date: \"2025-01-01\"\nanswer_key: [a]\n"), ".yaml")
	assert.Error(t, err)

	_, err = Decode([]byte(`{"date":"2025-01-01","answers":[]}`), ".json")
	assert.Error(t, err)

	_, err = Decode([]byte(`date = 1`), ".toml")
	assert.Error(t, err)
}

func TestDirLoader(t *testing.T) {
	dir := t.TempDir()
	p := testutil.GeneratePuzzle(rand.New(rand.NewSource(5)), "2025-03-03")
	writeYAML(t, filepath.Join(dir, "2025-03-03.yml"), p)

	loader := NewDirLoader(dir)
	got, err := loader.LoadPuzzle(context.Background(), "2025-03-03")
	require.NoError(t, err)
	assert.Equal(t, p, got)

	_, err = loader.LoadPuzzle(context.Background(), "2025-03-04")
	assert.ErrorIs(t, err, domain.ErrPuzzleNotFound)

	writeYAML(t, filepath.Join(dir, "2025-03-05.yaml"), p)
	_, err = loader.LoadPuzzle(context.Background(), "2025-03-05")
	assert.ErrorIs(t, err, domain.ErrInvalidPuzzle)
}

func TestCheckSchema(t *testing.T) {
	p := testutil.GeneratePuzzle(rand.New(rand.NewSource(9)), "2025-04-04")
	require.NoError(t, CheckSchema(p))

	missingRarity := p
	missingRarity.RealClauses = append([]domain.Clause(nil), p.RealClauses...)
	missingRarity.RealClauses[0].Rarity = ""
	assert.ErrorIs(t, CheckSchema(missingRarity), domain.ErrInvalidPuzzle)

	badRarity := p
	badRarity.RealClauses = append([]domain.Clause(nil), p.RealClauses...)
	badRarity.RealClauses[0].Rarity = "legendary"
	assert.ErrorIs(t, CheckSchema(badRarity), domain.ErrInvalidPuzzle)

	decoyRarity := p
	decoyRarity.DecoyClauses = append([]domain.Clause(nil), p.DecoyClauses...)
	decoyRarity.DecoyClauses[0].Rarity = domain.RarityRare
	assert.ErrorIs(t, CheckSchema(decoyRarity), domain.ErrInvalidPuzzle)

	short := p
	short.PresentationOrder = p.PresentationOrder[:9]
	assert.ErrorIs(t, CheckSchema(short), domain.ErrInvalidPuzzle)
}

func TestVerifyVerbatim(t *testing.T) {
	p := testutil.GeneratePuzzle(rand.New(rand.NewSource(11)), "2025-05-05")
	require.NoError(t, VerifyVerbatim(p))

	reworded := p
	reworded.RealClauses = append([]domain.Clause(nil), p.RealClauses...)
	reworded.RealClauses[1].Text = "Something the document never says."
	err := VerifyVerbatim(reworded)
	require.ErrorIs(t, err, domain.ErrInvalidPuzzle)
	assert.Contains(t, err.Error(), "real-2")

	leaked := p
	leaked.DocumentText = p.DocumentText + "\n" + p.DecoyClauses[0].Text
	err = VerifyVerbatim(leaked)
	require.ErrorIs(t, err, domain.ErrInvalidPuzzle)
	assert.Contains(t, err.Error(), "decoy-1")
}

func TestVerifyVerbatimIgnoresWhitespaceAndNormalization(t *testing.T) {
	p := testutil.GeneratePuzzle(rand.New(rand.NewSource(11)), "2025-05-05")
	p.RealClauses[0].Text = "Café credits expire   after one year."
	// decomposed e + combining acute, wrapped across lines
	p.DocumentText += "Cafe\u0301 credits expire\n after one year.\n"
	assert.NoError(t, VerifyVerbatim(p))
}

func TestVerifyVerbatimHTMLDocument(t *testing.T) {
	p := testutil.GeneratePuzzle(rand.New(rand.NewSource(13)), "2025-06-06")
	html := "<html><body><h1>Terms</h1><ol>"
	for _, c := range p.RealClauses {
		html += "<li><b>" + c.Text + "</b></li>"
	}
	html += "</ol><script>var hidden = \"" + p.DecoyClauses[0].Text + "\";</script></body></html>"
	p.DocumentText = html

	assert.NoError(t, VerifyVerbatim(p))
}

func writeYAML(t *testing.T, path string, p domain.Puzzle) {
	t.Helper()
	data, err := yaml.Marshal(p)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func writeJSON(t *testing.T, path string, p domain.Puzzle) {
	t.Helper()
	data, err := json.Marshal(p)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
}
