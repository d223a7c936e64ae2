package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/nodeplay/internal/graph"
	"github.com/roach88/nodeplay/internal/ir"
)

// ValidationIssue is one problem found in a graph file.
type ValidationIssue struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Path    string `json:"path,omitempty"`
	Line    int    `json:"line,omitempty"`
}

// ValidationResult holds validation results for one graph file.
type ValidationResult struct {
	File   string            `json:"file"`
	Valid  bool              `json:"valid"`
	Nodes  int               `json:"nodes"`
	Errors []ValidationIssue `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <graph.json>...",
		Short: "Validate graph files without running them",
		Long: `Validate persisted graph files without running them.

Each file is checked against the graph schema, then for duplicate node
ids, chains to missing nodes, and node classes the registry cannot
create. Templates and the library restriction from --config are
honoured.

Exit codes:
  0 - All graphs valid
  1 - One or more graphs invalid
  2 - Command error (file not found, bad config)`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	cfg, err := LoadConfig(opts.Config)
	if err != nil {
		return outputValidateError(formatter, ErrCodeGeneric, err.Error())
	}
	reg, err := newRegistry(cfg)
	if err != nil {
		return outputValidateError(formatter, ErrCodeGeneric, err.Error())
	}

	results := make([]ValidationResult, 0, len(paths))
	invalid := 0
	for _, path := range paths {
		formatter.VerboseLog("Validating %s", path)
		loadResult, loadErrors := LoadGraph(path, LoadModeCollectAll)
		if loadResult == nil {
			var loadErr *LoadError
			if errors.As(loadErrors[0], &loadErr) {
				if loadErr.Code == ErrCodeNotFound || loadErr.Code == ErrCodeReadFailed {
					return outputValidateError(formatter, loadErr.Code, loadErr.Message)
				}
			}
		}

		result := ValidationResult{File: path}
		for _, e := range loadErrors {
			result.Errors = append(result.Errors, toIssue(e))
		}
		if loadResult != nil {
			result.Nodes = loadResult.NodeCount
			if len(loadErrors) == 0 {
				result.Errors = append(result.Errors, checkClasses(loadResult.Graph, reg)...)
			}
		}
		result.Valid = len(result.Errors) == 0
		if !result.Valid {
			invalid++
		}
		results = append(results, result)
	}

	if invalid > 0 {
		return outputValidationErrors(formatter, results, invalid)
	}
	return outputValidateSuccess(formatter, results)
}

// newRegistry builds the registry a config describes: the standard
// library, any templates, and the library restriction.
func newRegistry(cfg *Config) (*graph.Registry, error) {
	reg := graph.NewRegistry()
	if err := cfg.Register(reg); err != nil {
		return nil, err
	}
	if len(cfg.Library) > 0 {
		reg.SetLibrary(cfg.Library)
	}
	return reg, nil
}

// checkClasses reports every record whose class the registry cannot
// create.
func checkClasses(g ir.GraphRecord, reg *graph.Registry) []ValidationIssue {
	var issues []ValidationIssue
	ir.Walk(g.Nodes, func(r ir.NodeRecord) {
		switch _, res := reg.Lookup(r.ClassName); res {
		case graph.Unknown:
			issues = append(issues, ValidationIssue{
				Code:    ErrCodeUnknownClass,
				Message: fmt.Sprintf("node %q (%d): unknown class %q", r.Name, r.ID, r.ClassName),
			})
		case graph.Excluded:
			issues = append(issues, ValidationIssue{
				Code:    ErrCodeExcludedClass,
				Message: fmt.Sprintf("node %q (%d): class %q is not in the library", r.Name, r.ID, r.ClassName),
			})
		}
	})
	return issues
}

func toIssue(err error) ValidationIssue {
	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		return ValidationIssue{Code: ErrCodeGeneric, Message: err.Error()}
	}
	issue := ValidationIssue{Code: loadErr.Code, Message: loadErr.Message, Path: loadErr.Path}
	if loadErr.Pos.IsValid() {
		issue.Line = loadErr.Pos.Line()
	}
	return issue
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, results []ValidationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(results)
	}

	for _, r := range results {
		fmt.Fprintf(formatter.Writer, "\u2713 %s (%d nodes)\n", r.File, r.Nodes)
	}
	return nil
}

// outputValidateError outputs a command-level error.
func outputValidateError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs every result, failures included.
func outputValidationErrors(formatter *OutputFormatter, results []ValidationResult, invalid int) error {
	failure := NewExitError(ExitFailure, fmt.Sprintf("validation failed for %d of %d file(s)", invalid, len(results)))

	if formatter.Format == "json" {
		var first ValidationIssue
		for _, r := range results {
			if !r.Valid {
				first = r.Errors[0]
				break
			}
		}
		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(CLIResponse{
			Status: "error",
			Data:   results,
			Error:  &CLIError{Code: first.Code, Message: first.Message},
		}); err != nil {
			return err
		}
		return failure
	}

	for _, r := range results {
		if r.Valid {
			fmt.Fprintf(formatter.Writer, "\u2713 %s (%d nodes)\n", r.File, r.Nodes)
			continue
		}
		fmt.Fprintf(formatter.Writer, "\u2717 %s\n", r.File)
		for _, e := range r.Errors {
			loc := ""
			if e.Line > 0 {
				loc = fmt.Sprintf("line %d: ", e.Line)
			}
			if e.Path != "" {
				loc += e.Path + ": "
			}
			fmt.Fprintf(formatter.Writer, "  %s: %s%s\n", e.Code, loc, e.Message)
		}
	}
	return failure
}
