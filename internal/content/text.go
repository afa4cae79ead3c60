package content

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/unicode/norm"

	"tc-auditor-service/internal/domain"
)

// NormalizeText puts s into NFC form and collapses every whitespace run to a
// single space.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}

// DocumentPlainText returns the readable text of a document. HTML documents
// are reduced to their text nodes, anything else is returned as is.
func DocumentPlainText(document string) (string, error) {
	if !looksLikeHTML(document) {
		return document, nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(document))
	if err != nil {
		return "", fmt.Errorf("parse html document: %w", err)
	}
	doc.Find("script, style").Remove()
	doc.Find("p, li, div, section, br, h1, h2, h3, h4, h5, h6, td, tr").AppendHtml(" ")
	return doc.Find("body").Text(), nil
}

func looksLikeHTML(s string) bool {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "<") {
		return false
	}
	lower := strings.ToLower(t)
	for _, tag := range []string{"<html", "<body", "<p", "<div", "<section", "<h1", "<h2", "<ol", "<ul", "<!doctype"} {
		if strings.HasPrefix(lower, tag) {
			return true
		}
	}
	return false
}

// VerifyVerbatim checks that every real clause is quoted verbatim in the
// document and that no decoy clause is.
func VerifyVerbatim(p domain.Puzzle) error {
	plain, err := DocumentPlainText(p.DocumentText)
	if err != nil {
		return &domain.PuzzleError{Date: p.Date, Problems: []string{err.Error()}}
	}
	doc := NormalizeText(plain)

	var problems []string
	for _, c := range p.RealClauses {
		text := NormalizeText(c.Text)
		if text == "" || !strings.Contains(doc, text) {
			problems = append(problems, fmt.Sprintf("real clause %s is not quoted verbatim in the document", c.ID))
		}
	}
	for _, c := range p.DecoyClauses {
		text := NormalizeText(c.Text)
		if text != "" && strings.Contains(doc, text) {
			problems = append(problems, fmt.Sprintf("decoy clause %s appears in the document", c.ID))
		}
	}
	if len(problems) > 0 {
		return &domain.PuzzleError{Date: p.Date, Problems: problems}
	}
	return nil
}
