package pipeline

import (
	"fmt"
	"path/filepath"
	"strings"

	"contra-reconciliation-service/internal/workbook"
	"contra-reconciliation-service/pkg/errors"
)

// FinalMarker identifies the curated workbook by file name.
const FinalMarker = "final"

// Upload is a classified set of input workbooks.
type Upload struct {
	Statements []workbook.Source
	Final      workbook.Source
}

// Classify sorts sources into statement exports and the final workbook.
// Every source must be .xlsx, exactly one name must contain "final" and at
// least two statements must remain.
func Classify(sources []workbook.Source) (*Upload, error) {
	if len(sources) == 0 {
		return nil, errors.InputError(errors.CodeNoFiles, "upload")
	}

	u := &Upload{}
	finals := 0
	for _, src := range sources {
		name := filepath.Base(src.Name)
		if err := checkExtension(name); err != nil {
			return nil, err
		}
		if strings.Contains(strings.ToLower(name), FinalMarker) {
			finals++
			if finals > 1 {
				return nil, errors.InputError(errors.CodeMultipleReferences, name)
			}
			u.Final = src
			continue
		}
		u.Statements = append(u.Statements, src)
	}

	if finals == 0 {
		return nil, errors.InputError(errors.CodeMissingReference, "upload")
	}
	if err := checkStatementCount(u.Statements); err != nil {
		return nil, err
	}
	return u, nil
}

// ClassifyPaths is Classify for files on disk.
func ClassifyPaths(paths []string) (*Upload, error) {
	sources := make([]workbook.Source, 0, len(paths))
	for _, p := range paths {
		sources = append(sources, workbook.FileSource(p))
	}
	return Classify(sources)
}

// UploadFromPaths builds an upload from an explicit final workbook, so the
// final file need not carry the marker in its name.
func UploadFromPaths(statements []string, final string) (*Upload, error) {
	if final == "" {
		return nil, errors.InputError(errors.CodeMissingReference, "final")
	}
	if err := checkExtension(filepath.Base(final)); err != nil {
		return nil, err
	}

	u := &Upload{Final: workbook.FileSource(final)}
	for _, p := range statements {
		if err := checkExtension(filepath.Base(p)); err != nil {
			return nil, err
		}
		u.Statements = append(u.Statements, workbook.FileSource(p))
	}
	if err := checkStatementCount(u.Statements); err != nil {
		return nil, err
	}
	return u, nil
}

func checkExtension(name string) error {
	if strings.ToLower(filepath.Ext(name)) != ".xlsx" {
		return errors.InputError(errors.CodeUnsupportedFile, name)
	}
	return nil
}

func checkStatementCount(statements []workbook.Source) error {
	if len(statements) < 2 {
		return errors.InputError(errors.CodeTooFewStatements, fmt.Sprintf("%d statement file(s)", len(statements)))
	}
	return nil
}
