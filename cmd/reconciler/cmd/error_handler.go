package cmd

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"syscall"

	"contra-reconciliation-service/pkg/errors"
	"contra-reconciliation-service/pkg/logger"

	"github.com/fatih/color"
	"github.com/spf13/viper"
)

// CLIErrorHandler provides user-friendly error handling for CLI operations
type CLIErrorHandler struct {
	logger  logger.Logger
	out     io.Writer
	verbose bool
}

// NewCLIErrorHandler creates a new CLI error handler writing to stderr
func NewCLIErrorHandler() *CLIErrorHandler {
	return &CLIErrorHandler{
		logger:  logger.GetGlobalLogger().WithComponent("cli"),
		out:     os.Stderr,
		verbose: viper.GetBool("verbose"),
	}
}

// HandleError prints err and returns the process exit code.
func (h *CLIErrorHandler) HandleError(err error) int {
	if err == nil {
		return 0
	}

	if stderrors.Is(err, errMismatch) {
		fmt.Fprintf(h.out, "%s\n", color.New(color.FgRed).Sprint(err.Error()))
		return 1
	}

	h.logger.WithError(err).Debug("Command failed")

	if reconcilerErr, ok := errors.AsReconcilerError(err); ok {
		return h.handleReconcilerError(reconcilerErr)
	}

	return h.handleGenericError(err)
}

func (h *CLIErrorHandler) handleReconcilerError(err *errors.ReconcilerError) int {
	fmt.Fprintf(h.out, "%s %s\n", color.New(color.FgRed, color.Bold).Sprint("Error:"), err.Message)

	if len(err.Context) > 0 {
		keys := make([]string, 0, len(err.Context))
		for key := range err.Context {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		fmt.Fprintf(h.out, "\nContext:\n")
		for _, key := range keys {
			fmt.Fprintf(h.out, "  %s: %v\n", key, err.Context[key])
		}
	}

	if err.Suggestion != "" {
		fmt.Fprintf(h.out, "\nSuggestion: %s\n", err.Suggestion)
	}

	fmt.Fprintf(h.out, "\n%s\n", categoryHelp(err.Category))

	if h.verbose && err.Cause != nil {
		fmt.Fprintf(h.out, "\nUnderlying error: %v\n", err.Cause)
	}

	return err.GetExitCode()
}

func (h *CLIErrorHandler) handleGenericError(err error) int {
	switch {
	case isFileNotFoundError(err):
		fmt.Fprintf(h.out, "Error: File not found: %v\n", err)
		fmt.Fprintf(h.out, "Suggestion: Check if the file path is correct and the file exists\n")
		return 2
	case isPermissionError(err):
		fmt.Fprintf(h.out, "Error: Permission denied: %v\n", err)
		fmt.Fprintf(h.out, "Suggestion: Check file permissions and ensure you have read access\n")
		return 2
	case isDiskFullError(err):
		fmt.Fprintf(h.out, "Error: Insufficient disk space\n")
		fmt.Fprintf(h.out, "Suggestion: Free up disk space and try again\n")
		return 2
	}

	fmt.Fprintf(h.out, "Error: %v\n", err)
	if !h.verbose {
		fmt.Fprintf(h.out, "\nRun with --verbose for more details\n")
	}
	return 1
}

// categoryHelp returns category-specific help text
func categoryHelp(category errors.ErrorCategory) string {
	switch category {
	case errors.CategoryInput:
		return `Input help:
• Pass at least two statement exports with --statements
• Pass the curated workbook with --final
• Only .xlsx workbooks are accepted`

	case errors.CategoryIdentity:
		return `Sheet name help:
• Final workbook sheets are named like XNS-HDFC-5678-CA
• Use 'reconciler canonicalize NAME' to check how a name is read
• Each account may appear only once per workbook`

	case errors.CategoryPairing:
		return `Pairing help:
• Every statement needs a matching XNS sheet in the final workbook
• Every XNS sheet in the final workbook needs a statement export
• Compare the listed sheets with the uploaded statements`

	case errors.CategoryWorkbook:
		return `Workbook help:
• Statement exports need "Analysis" and "Xns" sheets
• Check the column headers of the named sheet
• Add unknown banks with --bank-directory`

	case errors.CategoryConfiguration:
		return `Configuration help:
• Check your command-line flags and arguments
• Verify configuration file syntax if using --config
• Use 'reconciler reconcile --help' to see all available options`

	case errors.CategoryStorage:
		return `Tracking ledger help:
• Check that the --tracking-db directory is writable
• Run without --tracking-db to skip the ledger`

	default:
		return `For more help:
• Use 'reconciler --help' for general help
• Use 'reconciler reconcile --help' for command-specific help`
	}
}

// Error detection helpers

func isFileNotFoundError(err error) bool {
	return stderrors.Is(err, os.ErrNotExist) || strings.Contains(err.Error(), "no such file or directory")
}

func isPermissionError(err error) bool {
	return stderrors.Is(err, os.ErrPermission) ||
		strings.Contains(err.Error(), "permission denied") ||
		strings.Contains(err.Error(), "access denied")
}

func isDiskFullError(err error) bool {
	if stderrors.Is(err, syscall.ENOSPC) {
		return true
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "no space left") ||
		strings.Contains(errStr, "disk full") ||
		strings.Contains(errStr, "device full")
}
