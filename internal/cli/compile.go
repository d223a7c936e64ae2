package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/nodeplay/internal/engine"
	"github.com/roach88/nodeplay/internal/graph"
	"github.com/roach88/nodeplay/internal/ir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output      string // output file path
	Node        string // composite to export as a template
	ClassName   string // template class name
	DisplayName string // template display name
	Minimal     bool   // omit values equal to initial values
}

// CompilationResult describes what compile wrote.
type CompilationResult struct {
	Output    string `json:"output,omitempty"`
	Template  string `json:"template,omitempty"`
	Nodes     int    `json:"nodes"`
	Globals   int    `json:"globals"`
	Bytes     int    `json:"bytes"`
	Canonical string `json:"canonical,omitempty"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <graph.json>",
		Short: "Compile a graph or composite to canonical JSON",
		Long: `Load a graph into the engine and export it as canonical JSON.

Without --node the whole graph is re-exported, normalised by a load and
save round trip. With --node the named composite's nested graph is
compiled into a template record that --config "templates" can register
as a new node class.

Examples:
  nodeplay compile graphs/blink.json -o graphs/blink.canonical.json
  nodeplay compile graphs/blink.json --node Blinker --class Blinker -o templates/blinker.json
  nodeplay compile graphs/blink.json --minimal`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")
	cmd.Flags().StringVar(&opts.Node, "node", "", "composite node to export as a template")
	cmd.Flags().StringVar(&opts.ClassName, "class", "", "template class name (default: node name)")
	cmd.Flags().StringVar(&opts.DisplayName, "display", "", "template display name (default: node name)")
	cmd.Flags().BoolVar(&opts.Minimal, "minimal", false, "omit current values that equal initial values")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	cfg, err := LoadConfig(opts.Config)
	if err != nil {
		return outputCompileError(formatter, ErrCodeGeneric, err.Error())
	}

	loaded, loadErrors := LoadGraph(path, LoadModeFailFast)
	if len(loadErrors) > 0 {
		var le *LoadError
		if errors.As(loadErrors[0], &le) {
			return outputCompileError(formatter, le.Code, le.Error())
		}
		return outputCompileError(formatter, ErrCodeGeneric, loadErrors[0].Error())
	}
	formatter.VerboseLog("Loaded %d node record(s) from %s", loaded.NodeCount, path)

	reg, err := newRegistry(cfg)
	if err != nil {
		return outputCompileError(formatter, ErrCodeGeneric, err.Error())
	}
	eng := engine.New(append(cfg.EngineOptions(),
		engine.WithRegistry(reg),
		engine.WithLogger(newLogger(opts.RootOptions, io.Discard)),
	)...)
	defer eng.Close()

	if errs := eng.Load(loaded.Graph); len(errs) > 0 {
		return outputCompileError(formatter, ErrCodeUnknownClass, errs[0].Error())
	}

	result := &CompilationResult{Output: opts.Output, Globals: len(eng.Globals())}
	var data []byte
	if opts.Node == "" {
		g := eng.Save()
		if opts.Minimal {
			g.Nodes = eng.Root().Export(true)
		}
		ir.Walk(g.Nodes, func(ir.NodeRecord) { result.Nodes++ })
		data, err = ir.CanonicalGraph(g)
	} else {
		var t TemplateRecord
		t, err = compileTemplate(eng, opts)
		if err != nil {
			return outputCompileError(formatter, templateErrorCode(err), err.Error())
		}
		result.Template = t.ClassName
		result.Globals = 0
		ir.Walk(t.Nodes, func(ir.NodeRecord) { result.Nodes++ })
		data, err = canonicalJSON(t)
	}
	if err != nil {
		return outputCompileError(formatter, ErrCodeGeneric, err.Error())
	}
	result.Bytes = len(data)

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, data, 0644); err != nil {
			return outputCompileError(formatter, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err))
		}
		return outputCompileSuccess(formatter, result)
	}

	if formatter.Format == "json" {
		result.Canonical = string(data)
		return formatter.Success(result)
	}
	fmt.Fprintln(formatter.Writer, string(data))
	return nil
}

type templateError struct {
	code string
	msg  string
}

func (e *templateError) Error() string { return e.msg }

func templateErrorCode(err error) string {
	var te *templateError
	if errors.As(err, &te) {
		return te.code
	}
	return ErrCodeGeneric
}

// compileTemplate compiles the named composite's nested graph. Among nodes
// sharing the name, the lowest id wins.
func compileTemplate(eng *engine.Engine, opts *CompileOptions) (TemplateRecord, error) {
	var found *graph.Node
	eng.Root().Walk(func(n *graph.Node) bool {
		if n.Name() == opts.Node && (found == nil || n.ID() < found.ID()) {
			found = n
		}
		return true
	})
	if found == nil {
		return TemplateRecord{}, &templateError{ErrCodeNoNode, fmt.Sprintf("no node named %q", opts.Node)}
	}
	comp := found.Composite()
	if comp == nil {
		return TemplateRecord{}, &templateError{ErrCodeNotComposite, fmt.Sprintf("%s is not a composite", found)}
	}

	className := opts.ClassName
	if className == "" {
		className = strings.ReplaceAll(found.Name(), " ", "")
	}
	displayName := opts.DisplayName
	if displayName == "" {
		displayName = found.Name()
	}
	return TemplateRecord{
		ClassName:   className,
		DisplayName: displayName,
		Nodes:       comp.Compile(opts.Minimal),
	}, nil
}

// canonicalJSON renders any JSON-marshalable value canonically.
func canonicalJSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	value, err := ir.UnmarshalIRValue(raw)
	if err != nil {
		return nil, err
	}
	return ir.MarshalCanonical(value)
}

// outputCompileSuccess outputs successful compilation results.
func outputCompileSuccess(formatter *OutputFormatter, result *CompilationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	what := "graph"
	if result.Template != "" {
		what = fmt.Sprintf("template %s", result.Template)
	}
	fmt.Fprintf(formatter.Writer, "\u2713 Compiled %s: %d nodes, %d bytes\n", what, result.Nodes, result.Bytes)
	fmt.Fprintf(formatter.Writer, "  Output written to: %s\n", result.Output)
	return nil
}

// outputCompileError outputs a compilation error.
func outputCompileError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}
