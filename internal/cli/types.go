package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/nodeplay/internal/graph"
)

// TypeInfo describes a registered node class.
type TypeInfo struct {
	ClassName   string `json:"class"`
	DisplayName string `json:"display_name"`
	Category    string `json:"category"`
	Kind        string `json:"kind"`
	Role        string `json:"role,omitempty"`
	Description string `json:"description,omitempty"`
}

// NewTypesCommand creates the types command.
func NewTypesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "types",
		Short: "List node classes",
		Long: `List every node class a graph may use: the standard library, the
composite built-ins, and any templates from --config.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTypes(rootOpts, cmd)
		},
	}
	return cmd
}

func runTypes(opts *RootOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	cfg, err := LoadConfig(opts.Config)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	reg, err := newRegistry(cfg)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to register node types", err)
	}

	types := reg.Types()
	infos := make([]TypeInfo, 0, len(types))
	for _, t := range types {
		if _, res := reg.Lookup(t.ClassName); res != graph.Found {
			continue
		}
		info := TypeInfo{
			ClassName:   t.ClassName,
			DisplayName: t.DisplayName,
			Category:    t.Category,
			Kind:        t.Kind.String(),
			Description: t.Description,
		}
		if t.Role != graph.RoleNone {
			info.Role = t.Role.String()
		}
		infos = append(infos, info)
	}

	if opts.Format == "json" {
		return formatter.Success(infos)
	}

	w := cmd.OutOrStdout()
	for _, info := range infos {
		fmt.Fprintf(w, "%-26s %-10s %-12s %s\n", info.ClassName, info.Kind, info.Category, info.DisplayName)
	}
	return nil
}
