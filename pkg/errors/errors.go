package errors

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// ErrorCategory represents different categories of errors
type ErrorCategory string

const (
	CategoryInput          ErrorCategory = "input"
	CategoryIdentity       ErrorCategory = "identity"
	CategoryPairing        ErrorCategory = "pairing"
	CategoryWorkbook       ErrorCategory = "workbook"
	CategoryStorage        ErrorCategory = "storage"
	CategoryConfiguration  ErrorCategory = "configuration"
	CategoryReconciliation ErrorCategory = "reconciliation"
	CategoryInternal       ErrorCategory = "internal"
)

// ErrorCode represents specific error codes within categories
type ErrorCode string

const (
	// Input errors
	CodeNoFiles            ErrorCode = "no_files"
	CodeUnsupportedFile    ErrorCode = "unsupported_file"
	CodeMultipleReferences ErrorCode = "multiple_reference_files"
	CodeMissingReference   ErrorCode = "missing_reference_file"
	CodeTooFewStatements   ErrorCode = "too_few_statements"
	CodeFileNotFound       ErrorCode = "file_not_found"
	CodeUploadTooLarge     ErrorCode = "upload_too_large"
	CodeMalformedUpload    ErrorCode = "malformed_upload"

	// Identity errors
	CodeUnresolvedIdentifier ErrorCode = "unresolved_identifier"
	CodeDuplicateIdentifier  ErrorCode = "duplicate_identifier"

	// Pairing errors
	CodeSheetMismatch   ErrorCode = "sheet_mismatch"
	CodeNoReferenceData ErrorCode = "no_reference_sheets"

	// Workbook errors
	CodeMissingSheet  ErrorCode = "missing_sheet"
	CodeMissingColumn ErrorCode = "missing_column"
	CodeInvalidCell   ErrorCode = "invalid_cell"
	CodeUnreadable    ErrorCode = "unreadable_workbook"
	CodeWriteFailed   ErrorCode = "write_failed"
	CodeUnknownBank   ErrorCode = "unknown_bank"

	// Storage errors
	CodeStorageUnavailable ErrorCode = "storage_unavailable"
	CodeStorageWrite       ErrorCode = "storage_write"

	// Configuration errors
	CodeInvalidConfig ErrorCode = "invalid_config"
	CodeMissingConfig ErrorCode = "missing_config"

	// Reconciliation errors
	CodeProcessingError ErrorCode = "processing_error"

	// Internal errors
	CodeUnexpectedError ErrorCode = "unexpected_error"
)

// ReconcilerError is the base error type for all application errors
type ReconcilerError struct {
	Category   ErrorCategory     `json:"category"`
	Code       ErrorCode         `json:"code"`
	Message    string            `json:"message"`
	Suggestion string            `json:"suggestion,omitempty"`
	Context    Context           `json:"context,omitempty"`
	Cause      error             `json:"-"`
	StackTrace errors.StackTrace `json:"-"`
}

// Context provides additional information about the error
type Context map[string]interface{}

// Error implements the error interface
func (e *ReconcilerError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%s (suggestion: %s)", e.Message, e.Suggestion)
	}
	return e.Message
}

// Unwrap returns the underlying cause error
func (e *ReconcilerError) Unwrap() error {
	return e.Cause
}

// GetExitCode returns an appropriate exit code for the error
func (e *ReconcilerError) GetExitCode() int {
	switch e.Category {
	case CategoryInput, CategoryWorkbook:
		return 2
	case CategoryIdentity, CategoryPairing:
		return 3
	case CategoryConfiguration:
		return 4
	case CategoryReconciliation, CategoryInternal:
		return 5
	case CategoryStorage:
		return 6
	default:
		return 1
	}
}

// WithContext adds context information to the error
func (e *ReconcilerError) WithContext(key string, value interface{}) *ReconcilerError {
	if e.Context == nil {
		e.Context = make(Context)
	}
	e.Context[key] = value
	return e
}

// WithSuggestion adds a suggestion for fixing the error
func (e *ReconcilerError) WithSuggestion(suggestion string) *ReconcilerError {
	e.Suggestion = suggestion
	return e
}

// New creates a new ReconcilerError
func New(category ErrorCategory, code ErrorCode, message string) *ReconcilerError {
	return &ReconcilerError{
		Category:   category,
		Code:       code,
		Message:    message,
		StackTrace: errors.New("").(stackTracer).StackTrace(),
	}
}

// Wrap wraps an existing error with ReconcilerError context
func Wrap(err error, category ErrorCategory, code ErrorCode, message string) *ReconcilerError {
	if err == nil {
		return nil
	}

	return &ReconcilerError{
		Category:   category,
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: errors.WithStack(err).(stackTracer).StackTrace(),
	}
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// InputError reports a problem with the set of files handed to a run.
func InputError(code ErrorCode, subject string) *ReconcilerError {
	var message, suggestion string

	switch code {
	case CodeNoFiles:
		message = "no files were uploaded"
		suggestion = "upload the statement workbooks together with the final workbook"
	case CodeUnsupportedFile:
		message = fmt.Sprintf("only .xlsx files are allowed: %s", subject)
		suggestion = "convert the file to .xlsx and upload it again"
	case CodeMultipleReferences:
		message = "multiple files contain 'final'; only one final file is allowed"
		suggestion = "keep a single workbook with 'final' in its name"
	case CodeMissingReference:
		message = "no file containing 'final' was found"
		suggestion = "include the curated workbook and put 'final' in its name"
	case CodeTooFewStatements:
		message = "at least two statement files are required in addition to the final file"
		suggestion = "upload one workbook per bank account"
	case CodeFileNotFound:
		message = fmt.Sprintf("file not found: %s", subject)
		suggestion = "check if the file path is correct and the file exists"
	case CodeUploadTooLarge:
		message = fmt.Sprintf("upload exceeds the limit of %s", subject)
		suggestion = "upload fewer workbooks at once or raise max-upload-mb"
	case CodeMalformedUpload:
		message = fmt.Sprintf("could not read the multipart form: %s", subject)
		suggestion = "send the workbooks as multipart/form-data in the \"files\" field"
	default:
		message = fmt.Sprintf("invalid input: %s", subject)
	}

	return New(CategoryInput, code, message).
		WithSuggestion(suggestion).
		WithContext("subject", subject)
}

// UnresolvedIdentifierError lists every identifier that could not be canonicalized.
func UnresolvedIdentifierError(source string, identifiers []string) *ReconcilerError {
	sorted := append([]string(nil), identifiers...)
	sort.Strings(sorted)

	return New(CategoryIdentity, CodeUnresolvedIdentifier,
		fmt.Sprintf("could not resolve %d %s identifier(s): %s", len(sorted), source, strings.Join(sorted, ", "))).
		WithSuggestion("name sheets as XNS-<BANK>-<last 3 or 4 digits>-<CA|OD>").
		WithContext("source", source).
		WithContext("identifiers", sorted)
}

// DuplicateIdentifierError reports two inputs that resolve to the same account.
func DuplicateIdentifierError(canonical string, raw []string) *ReconcilerError {
	return New(CategoryIdentity, CodeDuplicateIdentifier,
		fmt.Sprintf("identifiers %s all resolve to %s", strings.Join(raw, ", "), canonical)).
		WithSuggestion("upload each account only once").
		WithContext("canonical", canonical).
		WithContext("identifiers", raw)
}

// SheetPairingError reports accounts present on one side only. Both lists
// are sorted and carried in the context so callers can itemize them.
func SheetPairingError(missingInReference, missingInStatements []string) *ReconcilerError {
	a := append([]string(nil), missingInReference...)
	b := append([]string(nil), missingInStatements...)
	sort.Strings(a)
	sort.Strings(b)

	var parts []string
	if len(a) > 0 {
		parts = append(parts, fmt.Sprintf("missing in final: %s", strings.Join(a, ", ")))
	}
	if len(b) > 0 {
		parts = append(parts, fmt.Sprintf("missing in statements: %s", strings.Join(b, ", ")))
	}

	return New(CategoryPairing, CodeSheetMismatch,
		"statement and final sheet names do not match: "+strings.Join(parts, "; ")).
		WithSuggestion("make sure every uploaded statement has a matching XNS sheet in the final workbook").
		WithContext("missing_in_final", a).
		WithContext("missing_in_separate", b)
}

// NoReferenceSheetsError reports a final workbook without any XNS sheet.
func NoReferenceSheetsError(label string) *ReconcilerError {
	return New(CategoryPairing, CodeNoReferenceData,
		"final workbook does not contain any XNS sheets").
		WithSuggestion("make sure the final file has XNS sheets matching the separate files").
		WithContext("label", label)
}

// UnknownBankError reports a bank name missing from the bank directory.
func UnknownBankError(file, bank string) *ReconcilerError {
	return New(CategoryWorkbook, CodeUnknownBank,
		fmt.Sprintf("bank %q in %s is not in the bank directory", bank, file)).
		WithSuggestion("add the bank to the bank directory file").
		WithContext("file", file).
		WithContext("bank", bank)
}

// WorkbookError creates an error for workbook reading or writing.
func WorkbookError(code ErrorCode, file, sheet string, err error) *ReconcilerError {
	var message, suggestion string

	switch code {
	case CodeMissingSheet:
		message = fmt.Sprintf("workbook %s has no sheet %q", file, sheet)
		suggestion = "use the statement export that contains the Analysis and Xns sheets"
	case CodeMissingColumn:
		message = fmt.Sprintf("sheet %q of %s is missing required columns", sheet, file)
		suggestion = "verify the header row of the sheet"
	case CodeUnreadable:
		message = fmt.Sprintf("could not read workbook %s", file)
		suggestion = "verify the file is a valid .xlsx workbook"
	case CodeWriteFailed:
		message = fmt.Sprintf("could not write workbook %s", file)
		suggestion = "check that the output directory is writable"
	default:
		message = fmt.Sprintf("workbook error in %s", file)
		suggestion = "check the workbook and try again"
	}

	var result *ReconcilerError
	if err != nil {
		result = Wrap(err, CategoryWorkbook, code, message)
	} else {
		result = New(CategoryWorkbook, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("file", file).
		WithContext("sheet", sheet)
}

// StorageError wraps failures of the tracking ledger.
func StorageError(code ErrorCode, operation string, err error) *ReconcilerError {
	message := fmt.Sprintf("tracking ledger %s failed", operation)
	suggestion := "check the tracking database path and permissions"
	if code == CodeStorageUnavailable {
		message = fmt.Sprintf("tracking ledger unavailable during %s", operation)
	}

	var result *ReconcilerError
	if err != nil {
		result = Wrap(err, CategoryStorage, code, message)
	} else {
		result = New(CategoryStorage, code, message)
	}
	return result.WithSuggestion(suggestion).WithContext("operation", operation)
}

// ConfigurationError creates a configuration-related error
func ConfigurationError(code ErrorCode, setting string, value interface{}, err error) *ReconcilerError {
	var message, suggestion string

	switch code {
	case CodeInvalidConfig:
		message = fmt.Sprintf("invalid configuration for '%s': %v", setting, value)
		suggestion = "check the configuration documentation for valid values"
	case CodeMissingConfig:
		message = fmt.Sprintf("missing required configuration: %s", setting)
		suggestion = "provide this configuration setting or use a config file"
	default:
		message = fmt.Sprintf("configuration error: %s", setting)
		suggestion = "check your configuration and try again"
	}

	var result *ReconcilerError
	if err != nil {
		result = Wrap(err, CategoryConfiguration, code, message)
	} else {
		result = New(CategoryConfiguration, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("setting", setting).
		WithContext("value", value)
}

// InternalError creates an internal error
func InternalError(code ErrorCode, operation string, err error) *ReconcilerError {
	message := fmt.Sprintf("internal error during %s", operation)
	if code == CodeUnexpectedError {
		message = fmt.Sprintf("unexpected error during %s", operation)
	}

	var result *ReconcilerError
	if err != nil {
		result = Wrap(err, CategoryInternal, code, message)
	} else {
		result = New(CategoryInternal, code, message)
	}

	return result.
		WithSuggestion("this is likely a bug - please report it with the error details").
		WithContext("operation", operation)
}

// ErrorSummary provides a summary of multiple errors
type ErrorSummary struct {
	Total        int                   `json:"total"`
	ByCategory   map[ErrorCategory]int `json:"by_category"`
	ByCode       map[ErrorCode]int     `json:"by_code"`
	Errors       []*ReconcilerError    `json:"errors"`
	SampleErrors []*ReconcilerError    `json:"sample_errors,omitempty"`
}

// NewErrorSummary creates a new error summary
func NewErrorSummary(errs []*ReconcilerError) *ErrorSummary {
	summary := &ErrorSummary{
		Total:      len(errs),
		ByCategory: make(map[ErrorCategory]int),
		ByCode:     make(map[ErrorCode]int),
		Errors:     errs,
	}
	if summary.Errors == nil {
		summary.Errors = []*ReconcilerError{}
	}

	for _, err := range errs {
		summary.ByCategory[err.Category]++
		summary.ByCode[err.Code]++
	}

	maxSamples := 5
	if len(errs) > maxSamples {
		summary.SampleErrors = errs[:maxSamples]
	} else {
		summary.SampleErrors = errs
	}

	return summary
}

// Error returns a formatted error message for the summary
func (es *ErrorSummary) Error() string {
	if es.Total == 0 {
		return "no errors"
	}

	if es.Total == 1 {
		return es.Errors[0].Error()
	}

	var categories []string
	for category, count := range es.ByCategory {
		categories = append(categories, fmt.Sprintf("%s: %d", category, count))
	}
	sort.Strings(categories)

	return fmt.Sprintf("%d errors occurred (%s)", es.Total, strings.Join(categories, ", "))
}

// HasCode checks if the summary contains errors with the given code
func (es *ErrorSummary) HasCode(code ErrorCode) bool {
	return es.ByCode[code] > 0
}

// GetExitCode returns the highest priority exit code from all errors
func (es *ErrorSummary) GetExitCode() int {
	if es.Total == 0 {
		return 0
	}

	maxCode := 1
	for _, err := range es.Errors {
		if code := err.GetExitCode(); code > maxCode {
			maxCode = code
		}
	}

	return maxCode
}

// AsReconcilerError extracts a ReconcilerError from an error chain
func AsReconcilerError(err error) (*ReconcilerError, bool) {
	var reconcilerErr *ReconcilerError
	if errors.As(err, &reconcilerErr) {
		return reconcilerErr, true
	}
	return nil, false
}

// WrapIfNeeded wraps an error if it's not already a ReconcilerError
func WrapIfNeeded(err error, category ErrorCategory, code ErrorCode, message string) *ReconcilerError {
	if err == nil {
		return nil
	}

	if reconcilerErr, ok := AsReconcilerError(err); ok {
		return reconcilerErr
	}

	return Wrap(err, category, code, message)
}
