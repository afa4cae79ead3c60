package content

import (
	"encoding/json"
	"errors"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"

	"tc-auditor-service/internal/domain"
)

const puzzleSchema = `
import "list"

#Rarity: "common" | "moderate" | "rare"

#RealClause: {
	id:     string & =~"^[A-Za-z0-9_-]+$"
	text:   string & !=""
	rarity: #Rarity
}

#DecoyClause: {
	id:   string & =~"^[A-Za-z0-9_-]+$"
	text: string & !=""
}

#Puzzle: {
	date:               string & =~"^[0-9]{4}-[0-9]{2}-[0-9]{2}$"
	title:              string & !=""
	document_text:      string & !=""
	real_clauses:       [...#RealClause] & list.MinItems(5) & list.MaxItems(5)
	decoy_clauses:      [...#DecoyClause] & list.MinItems(5) & list.MaxItems(5)
	presentation_order: [...string] & list.MinItems(10) & list.MaxItems(10) & list.UniqueItems()
}
`

// cue.Context is not safe for concurrent use.
var schemaMu sync.Mutex

var (
	schemaOnce sync.Once
	schemaCtx  *cue.Context
	schemaDef  cue.Value
	schemaErr  error
)

func puzzleDefinition() (*cue.Context, cue.Value, error) {
	schemaOnce.Do(func() {
		schemaCtx = cuecontext.New()
		v := schemaCtx.CompileString(puzzleSchema)
		if err := v.Err(); err != nil {
			schemaErr = err
			return
		}
		schemaDef = v.LookupPath(cue.ParsePath("#Puzzle"))
		schemaErr = schemaDef.Err()
	})
	return schemaCtx, schemaDef, schemaErr
}

// CheckSchema validates the field shape of a puzzle against the CUE schema.
func CheckSchema(p domain.Puzzle) error {
	schemaMu.Lock()
	defer schemaMu.Unlock()

	ctx, def, err := puzzleDefinition()
	if err != nil {
		return err
	}

	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	v := ctx.CompileBytes(data)
	if err := v.Err(); err != nil {
		return err
	}

	if err := def.Unify(v).Validate(cue.Concrete(true)); err != nil {
		var problems []string
		for _, e := range cueerrors.Errors(err) {
			problems = append(problems, e.Error())
		}
		return &domain.PuzzleError{Date: p.Date, Problems: problems}
	}
	return nil
}

// Validate runs every content check: schema shape, puzzle invariants and
// the verbatim relation between clauses and document.
func Validate(p domain.Puzzle) error {
	return errors.Join(CheckSchema(p), p.Validate(), VerifyVerbatim(p))
}
