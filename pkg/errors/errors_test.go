package errors

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
)

func TestReconcilerError(t *testing.T) {
	tests := []struct {
		name       string
		category   ErrorCategory
		code       ErrorCode
		message    string
		cause      error
		expectCode int
	}{
		{
			name:       "input error",
			category:   CategoryInput,
			code:       CodeUnsupportedFile,
			message:    "only xlsx",
			cause:      errors.New("bad extension"),
			expectCode: 2,
		},
		{
			name:       "identity error",
			category:   CategoryIdentity,
			code:       CodeUnresolvedIdentifier,
			message:    "unresolved",
			expectCode: 3,
		},
		{
			name:       "configuration error",
			category:   CategoryConfiguration,
			code:       CodeInvalidConfig,
			message:    "invalid config",
			cause:      errors.New("missing field"),
			expectCode: 4,
		},
		{
			name:       "storage error",
			category:   CategoryStorage,
			code:       CodeStorageWrite,
			message:    "insert failed",
			expectCode: 6,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var err *ReconcilerError
			if tt.cause != nil {
				err = Wrap(tt.cause, tt.category, tt.code, tt.message)
			} else {
				err = New(tt.category, tt.code, tt.message)
			}

			if err.Category != tt.category {
				t.Errorf("expected category %s, got %s", tt.category, err.Category)
			}
			if err.Code != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, err.Code)
			}
			if err.Message != tt.message {
				t.Errorf("expected message %s, got %s", tt.message, err.Message)
			}
			if err.GetExitCode() != tt.expectCode {
				t.Errorf("expected exit code %d, got %d", tt.expectCode, err.GetExitCode())
			}
			if tt.cause != nil && !errors.Is(err, tt.cause) {
				t.Error("expected wrapped cause to be reachable through errors.Is")
			}
			if len(err.StackTrace) == 0 {
				t.Error("expected a stack trace to be captured")
			}
		})
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(nil, CategoryInternal, CodeUnexpectedError, "x") != nil {
		t.Error("expected Wrap(nil) to return nil")
	}
}

func TestUnresolvedIdentifierError(t *testing.T) {
	err := UnresolvedIdentifierError("statement", []string{"XNS", "FOO-BAR"})

	if err.Code != CodeUnresolvedIdentifier {
		t.Fatalf("expected code %s, got %s", CodeUnresolvedIdentifier, err.Code)
	}
	ids, ok := err.Context["identifiers"].([]string)
	if !ok {
		t.Fatalf("expected identifiers in context, got %T", err.Context["identifiers"])
	}
	if !reflect.DeepEqual(ids, []string{"FOO-BAR", "XNS"}) {
		t.Errorf("expected sorted identifiers, got %v", ids)
	}
	if !strings.Contains(err.Message, "2 statement identifier") {
		t.Errorf("unexpected message: %s", err.Message)
	}
}

func TestSheetPairingError(t *testing.T) {
	err := SheetPairingError([]string{"SBI-1234-CA"}, []string{"IOB-X361-OD", "BOB-0001-CA"})

	if err.Category != CategoryPairing {
		t.Errorf("expected pairing category, got %s", err.Category)
	}
	if got := err.Context["missing_in_final"]; !reflect.DeepEqual(got, []string{"SBI-1234-CA"}) {
		t.Errorf("unexpected missing_in_final: %v", got)
	}
	if got := err.Context["missing_in_separate"]; !reflect.DeepEqual(got, []string{"BOB-0001-CA", "IOB-X361-OD"}) {
		t.Errorf("unexpected missing_in_separate: %v", got)
	}
	if !strings.Contains(err.Message, "missing in final: SBI-1234-CA") {
		t.Errorf("message should list the missing final sheet: %s", err.Message)
	}
}

func TestInputErrorMessages(t *testing.T) {
	tests := []struct {
		code     ErrorCode
		contains string
	}{
		{CodeNoFiles, "no files"},
		{CodeUnsupportedFile, "statement.xls"},
		{CodeMultipleReferences, "multiple files"},
		{CodeMissingReference, "no file containing 'final'"},
		{CodeTooFewStatements, "at least two"},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			err := InputError(tt.code, "statement.xls")
			if !strings.Contains(err.Message, tt.contains) {
				t.Errorf("expected message to contain %q, got %q", tt.contains, err.Message)
			}
			if err.Suggestion == "" {
				t.Error("expected a suggestion")
			}
		})
	}
}

func TestWorkbookError(t *testing.T) {
	cause := errors.New("zip: not a valid zip file")
	err := WorkbookError(CodeUnreadable, "a.xlsx", "", cause)

	if err.Cause != cause {
		t.Error("expected cause to be preserved")
	}
	if err.Context["file"] != "a.xlsx" {
		t.Errorf("expected file context, got %v", err.Context["file"])
	}
}

func TestCellErrorCollector(t *testing.T) {
	c := NewCellErrorCollector(2)
	for i := 0; i < 3; i++ {
		c.Add(InvalidCellError(CellContext{File: "a.xlsx", Sheet: "Xns", Row: i + 2, Column: "Amount", Value: "abc"}, "amount", nil))
	}
	c.Add(nil)

	if !c.HasErrors() {
		t.Fatal("expected errors")
	}
	if len(c.Errors()) != 2 {
		t.Errorf("expected 2 retained errors, got %d", len(c.Errors()))
	}
	if c.Count() != 3 {
		t.Errorf("expected count 3, got %d", c.Count())
	}
	if !strings.Contains(c.Errors()[0].Error(), "Xns!Amount2") {
		t.Errorf("expected cell location in message, got %s", c.Errors()[0].Error())
	}
	if c.Summary().ByCode[CodeInvalidCell] != 2 {
		t.Errorf("expected summary to count invalid cells")
	}
}

func TestMissingColumnsError(t *testing.T) {
	err := MissingColumnsError("a.xlsx", "Xns", []string{"Date", "Amount", "Type"}, []string{"date", " Type"})
	if got := err.Context["missing_columns"]; !reflect.DeepEqual(got, []string{"Amount"}) {
		t.Errorf("expected Amount to be missing, got %v", got)
	}
}

func TestErrorSummary(t *testing.T) {
	errs := []*ReconcilerError{
		New(CategoryInput, CodeNoFiles, "a"),
		New(CategoryPairing, CodeSheetMismatch, "b"),
		New(CategoryPairing, CodeSheetMismatch, "c"),
	}
	summary := NewErrorSummary(errs)

	if summary.Total != 3 {
		t.Errorf("expected total 3, got %d", summary.Total)
	}
	if !summary.HasCode(CodeSheetMismatch) {
		t.Error("expected sheet mismatch code")
	}
	if summary.GetExitCode() != 3 {
		t.Errorf("expected highest exit code 3, got %d", summary.GetExitCode())
	}
	if summary.Error() != "3 errors occurred (input: 1, pairing: 2)" {
		t.Errorf("unexpected summary message: %s", summary.Error())
	}
}

func TestEmptyErrorSummary(t *testing.T) {
	summary := NewErrorSummary(nil)
	if summary.Error() != "no errors" || summary.GetExitCode() != 0 {
		t.Errorf("unexpected empty summary: %s / %d", summary.Error(), summary.GetExitCode())
	}
}

func TestAsReconcilerError(t *testing.T) {
	base := New(CategoryIdentity, CodeUnresolvedIdentifier, "x")
	wrapped := fmt.Errorf("loading: %w", base)

	got, ok := AsReconcilerError(wrapped)
	if !ok || got != base {
		t.Fatal("expected to extract the ReconcilerError from the chain")
	}

	if _, ok := AsReconcilerError(errors.New("plain")); ok {
		t.Error("plain errors are not ReconcilerErrors")
	}
}

func TestWrapIfNeeded(t *testing.T) {
	base := New(CategoryPairing, CodeSheetMismatch, "x")
	if WrapIfNeeded(base, CategoryInternal, CodeUnexpectedError, "y") != base {
		t.Error("expected existing ReconcilerError to be returned as-is")
	}

	plain := errors.New("boom")
	wrapped := WrapIfNeeded(plain, CategoryInternal, CodeUnexpectedError, "y")
	if wrapped.Category != CategoryInternal || wrapped.Cause != plain {
		t.Error("expected plain error to be wrapped")
	}
}

func TestNoReferenceSheetsError(t *testing.T) {
	err := NoReferenceSheetsError("final.xlsx")
	if err.Code != CodeNoReferenceData || err.Category != CategoryPairing {
		t.Errorf("unexpected classification %s/%s", err.Category, err.Code)
	}
	if err.Context["label"] != "final.xlsx" {
		t.Errorf("expected label context, got %v", err.Context["label"])
	}
	if err.GetExitCode() != 3 {
		t.Errorf("expected exit code 3, got %d", err.GetExitCode())
	}
}

func TestUnknownBankError(t *testing.T) {
	err := UnknownBankError("a.xlsx", "Moon Bank, India")
	if err.Code != CodeUnknownBank {
		t.Errorf("expected unknown bank code, got %s", err.Code)
	}
	if !strings.Contains(err.Message, "Moon Bank, India") {
		t.Errorf("expected bank in message, got %q", err.Message)
	}
}
