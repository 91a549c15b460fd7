package reconciler

import (
	"sort"

	"contra-reconciliation-service/internal/identity"
	"contra-reconciliation-service/internal/models"
	"contra-reconciliation-service/pkg/errors"
)

// Pairing links every statement to its final sheet through the canonical
// account identity.
type Pairing struct {
	Accounts   []string
	Statements map[string]*models.Statement
	Sheets     map[string]*models.ReferenceSheet
}

// PairSheets canonicalizes statement keys and final sheet names and checks
// that both sides name the same set of accounts. Identifiers that cannot be
// canonicalized, two inputs for one account, and accounts present on one
// side only are reported as errors.
func PairSheets(statements []*models.Statement, sheets []*models.ReferenceSheet) (*Pairing, error) {
	p := &Pairing{
		Statements: make(map[string]*models.Statement, len(statements)),
		Sheets:     make(map[string]*models.ReferenceSheet, len(sheets)),
	}

	var badStatements, badSheets []string
	seenStatements := make(map[string][]string)
	for _, s := range statements {
		canon := identity.Canonicalize(s.Key)
		if canon == "" {
			badStatements = append(badStatements, s.Key)
			continue
		}
		seenStatements[canon] = append(seenStatements[canon], s.Key)
		p.Statements[canon] = s
	}
	seenSheets := make(map[string][]string)
	for _, sh := range sheets {
		canon := identity.Canonicalize(sh.Name)
		if canon == "" {
			badSheets = append(badSheets, sh.Name)
			continue
		}
		seenSheets[canon] = append(seenSheets[canon], sh.Name)
		p.Sheets[canon] = sh
	}

	switch {
	case len(badStatements) > 0 && len(badSheets) > 0:
		return nil, errors.UnresolvedIdentifierError("statement and final sheet", append(badStatements, badSheets...)).
			WithContext("statements", badStatements).
			WithContext("final_sheets", badSheets)
	case len(badStatements) > 0:
		return nil, errors.UnresolvedIdentifierError("statement", badStatements)
	case len(badSheets) > 0:
		return nil, errors.UnresolvedIdentifierError("final sheet", badSheets)
	}
	if err := duplicates(seenStatements); err != nil {
		return nil, err
	}
	if err := duplicates(seenSheets); err != nil {
		return nil, err
	}

	var missingInFinal, missingInStatements []string
	for canon, s := range p.Statements {
		if _, ok := p.Sheets[canon]; !ok {
			missingInFinal = append(missingInFinal, s.Key)
		}
	}
	for canon, sh := range p.Sheets {
		if _, ok := p.Statements[canon]; !ok {
			missingInStatements = append(missingInStatements, sh.Name)
		}
	}
	if len(missingInFinal) > 0 || len(missingInStatements) > 0 {
		return nil, errors.SheetPairingError(missingInFinal, missingInStatements).
			WithContext("software_sheets", sortedKeys(p.Statements)).
			WithContext("final_sheets", sortedKeys(p.Sheets))
	}

	p.Accounts = sortedKeys(p.Statements)
	return p, nil
}

func duplicates(seen map[string][]string) error {
	canons := make([]string, 0, len(seen))
	for canon := range seen {
		canons = append(canons, canon)
	}
	sort.Strings(canons)
	for _, canon := range canons {
		if raw := seen[canon]; len(raw) > 1 {
			return errors.DuplicateIdentifierError(canon, raw)
		}
	}
	return nil
}

func sortedKeys[T any](m map[string]T) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
