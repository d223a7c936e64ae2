package cli

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/nodeplay/internal/ir"
)

//go:embed schema/graph.cue
var graphSchema string

// LoadMode controls how errors are handled during graph loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// Error codes
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeReadFailed  = "E002" // File read error
	ErrCodeParseFailed = "E003" // Not valid JSON, or not a graph
	ErrCodeSchema      = "E004" // Schema violation
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // Embedded schema failed to build
	ErrCodeWriteFailed = "E007" // File write error

	// Graph consistency
	ErrCodeDuplicateID   = "E101" // Two nodes share an id
	ErrCodeDanglingChain = "E102" // Chain names a node that does not exist
	ErrCodeUnknownClass  = "E103" // Class not registered
	ErrCodeExcludedClass = "E104" // Class registered but outside the library
	ErrCodeNoNode        = "E105" // Named node not found
	ErrCodeNotComposite  = "E106" // Named node has no nested graph

	// Runs
	ErrCodeNoRun    = "E201" // Run id not in the store
	ErrCodeNoScript = "E202" // Run's script not in the store
)

// LoadResult contains a graph loaded from disk.
type LoadResult struct {
	Graph     ir.GraphRecord
	CUEValue  cue.Value // The unified graph value, for additional checks
	NodeCount int       // Every record, nested ones included
}

// LoadError represents an error that occurred during graph loading.
type LoadError struct {
	Code    string
	Message string
	Path    string    // Field path within the graph, if known
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	msg := e.Message
	if e.Path != "" {
		msg = e.Path + ": " + msg
	}
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, msg)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

// LoadGraph reads a persisted graph, checks it against the embedded schema,
// and checks that ids are unique and every chain ends at a known node.
//
// A nil result means the file could not be read or parsed at all. Schema
// and consistency errors come back with a result, so callers in
// LoadModeCollectAll can report every problem in one pass.
func LoadGraph(path string, mode LoadMode) (*LoadResult, []error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("graph file not found: %s", path)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeReadFailed, Message: fmt.Sprintf("reading graph file: %v", err)}}
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(graphSchema, cue.Filename("graph.cue"))
	if err := schema.Err(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building schema: %v", err)}}
	}

	doc := ctx.CompileBytes(data, cue.Filename(path))
	if err := doc.Err(); err != nil {
		return nil, []error{convertCUEError(ErrCodeParseFailed, path, err)}
	}

	value := schema.LookupPath(cue.ParsePath("#Graph")).Unify(doc)
	var errs []error
	if err := value.Validate(cue.Concrete(true)); err != nil {
		for _, e := range cueerrors.Errors(err) {
			errs = append(errs, convertCUEError(ErrCodeSchema, path, e))
			if mode == LoadModeFailFast {
				break
			}
		}
		return &LoadResult{CUEValue: value}, errs
	}

	g, err := ir.DecodeGraph(data)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeParseFailed, Message: err.Error()}}
	}

	result := &LoadResult{Graph: g, CUEValue: value}
	ir.Walk(g.Nodes, func(ir.NodeRecord) { result.NodeCount++ })

	for _, e := range checkGraph(g) {
		errs = append(errs, e)
		if mode == LoadModeFailFast {
			break
		}
	}
	return result, errs
}

// convertCUEError turns a CUE error into a LoadError, preferring a position
// inside the graph file over one inside the schema.
func convertCUEError(code, path string, err error) *LoadError {
	var ce cueerrors.Error
	if !errors.As(err, &ce) {
		return &LoadError{Code: code, Message: err.Error()}
	}
	format, args := ce.Msg()
	loadErr := &LoadError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Path:    strings.Join(ce.Path(), "."),
		Pos:     ce.Position(),
	}
	for _, p := range append([]token.Pos{ce.Position()}, ce.InputPositions()...) {
		if p.IsValid() && p.Filename() == path {
			loadErr.Pos = p
			break
		}
	}
	return loadErr
}

// checkGraph finds duplicate ids and chains to missing nodes. Chain ids
// are resolved against the whole graph, nested records included.
func checkGraph(g ir.GraphRecord) []*LoadError {
	var errs []*LoadError
	seen := make(map[int64]string)
	ir.Walk(g.Nodes, func(r ir.NodeRecord) {
		if prev, ok := seen[r.ID]; ok {
			errs = append(errs, &LoadError{
				Code:    ErrCodeDuplicateID,
				Message: fmt.Sprintf("node %q reuses id %d of node %q", r.Name, r.ID, prev),
			})
			return
		}
		seen[r.ID] = r.Name
	})

	ir.Walk(g.Nodes, func(r ir.NodeRecord) {
		chains := [][]ir.ChainRecord{r.EntryChains, r.ExitChains, r.InputChains, r.OutputChains}
		for _, list := range chains {
			for _, c := range list {
				for _, id := range []int64{c.InNodeID, c.OutNodeID} {
					if _, ok := seen[id]; !ok {
						errs = append(errs, &LoadError{
							Code:    ErrCodeDanglingChain,
							Message: fmt.Sprintf("node %q (%d): chain %s -> %s references unknown node %d", r.Name, r.ID, c.OutName, c.InName, id),
						})
					}
				}
			}
		}
	})
	return errs
}
