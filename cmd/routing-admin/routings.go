package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aaron-1990/line-routing/pkg/routing"
)

func newGetCmd(opts *rootOpts) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "get <model-id>",
		Short: "Fetch a model's routing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var mr routing.ModelRouting
			if err := opts.client().do(http.MethodGet, "/routings/"+args[0], nil, &mr); err != nil {
				return err
			}
			if asJSON {
				return printJSON(mr)
			}
			printRouting(&mr)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print raw JSON")
	return cmd
}

func newSetCmd(opts *rootOpts) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "set <model-id>",
		Short: "Replace a model's routing from a JSON step file",
		Long: `Replace a model's routing with the steps in a JSON file.

The file holds either a bare step array or an object with a "steps"
field, so a document exported with "routing-admin export" loads as is:

  [
    {"areaCode": "SMT-01", "predecessors": []},
    {"areaCode": "AOI-01", "predecessors": ["SMT-01"]}
  ]

The server validates the replacement and rejects cycles and orphans; a
rejected set leaves the previous routing untouched.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())

			steps, err := readSteps(file)
			if err != nil {
				return err
			}

			var vr routing.ValidationResult
			err = opts.client().do(http.MethodPut, "/routings/"+args[0], stepsPayload{Steps: steps}, &vr)
			if err != nil {
				if rej, ok := rejectedValidation(err); ok {
					printValidation(args[0], rej)
					return fmt.Errorf("routing for %s rejected, previous state kept", args[0])
				}
				return err
			}

			logger.Infof("Routing for %s replaced (%d areas)", args[0], len(steps))
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON file with the routing steps (\"-\" for stdin)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newValidateCmd(opts *rootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <model-id>",
		Short: "Validate a model's stored routing",
		Long: `Check a model's stored routing for cycles and orphan areas. A model
with no routing validates as an empty graph. Exits non-zero when the
routing is invalid so scripts can branch on the result.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var vr routing.ValidationResult
			if err := opts.client().do(http.MethodGet, "/routings/"+args[0]+"/validation", nil, &vr); err != nil {
				return err
			}
			printValidation(args[0], &vr)
			if !vr.IsValid {
				return fmt.Errorf("routing for %s is invalid", args[0])
			}
			return nil
		},
	}
}

func newOrderCmd(opts *rootOpts) *cobra.Command {
	var batches bool
	cmd := &cobra.Command{
		Use:   "order <model-id>",
		Short: "Print a model's execution order",
		Long: `Print the areas of a model's routing in execution order, every
predecessor before its successors. With --batches the order is grouped
into stages whose areas can run in parallel.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if batches {
				var br batchesResponse
				if err := opts.client().do(http.MethodGet, "/routings/"+args[0]+"/batches", nil, &br); err != nil {
					return err
				}
				for i, batch := range br.Batches {
					fmt.Printf("%d: %s\n", i+1, strings.Join(batch, ", "))
				}
				return nil
			}

			var or orderResponse
			if err := opts.client().do(http.MethodGet, "/routings/"+args[0]+"/order", nil, &or); err != nil {
				return err
			}
			for _, area := range or.Order {
				fmt.Println(area)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&batches, "batches", false, "group areas into parallel stages")
	return cmd
}

func newDeleteCmd(opts *rootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <model-id>",
		Short: "Delete a model's routing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.client().do(http.MethodDelete, "/routings/"+args[0], nil, nil); err != nil {
				return err
			}
			loggerFromContext(cmd.Context()).Infof("Routing for %s deleted", args[0])
			return nil
		},
	}
}

func newModelsCmd(opts *rootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List every model with a routing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var mr modelsResponse
			if err := opts.client().do(http.MethodGet, "/routings", nil, &mr); err != nil {
				return err
			}
			for _, model := range mr.Models {
				fmt.Println(model)
			}
			loggerFromContext(cmd.Context()).Debugf("%d models", mr.Count)
			return nil
		},
	}
}

func newExportCmd(opts *rootOpts) *cobra.Command {
	var format, output string
	cmd := &cobra.Command{
		Use:   "export <model-id>",
		Short: "Export a routing as JSON or Graphviz DOT",
		Long: `Export a model's routing. The json format round-trips through
"routing-admin set"; the dot format renders with Graphviz:

  routing-admin export AX-100 --format dot | dot -Tsvg -o ax-100.svg`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var mr routing.ModelRouting
			if err := opts.client().do(http.MethodGet, "/routings/"+args[0], nil, &mr); err != nil {
				return err
			}

			var out []byte
			switch format {
			case "json":
				data, err := json.MarshalIndent(mr, "", "  ")
				if err != nil {
					return err
				}
				out = append(data, '\n')
			case "dot":
				out = []byte(routingDOT(&mr))
			default:
				return fmt.Errorf("unknown format %q (want json or dot)", format)
			}

			if output == "" || output == "-" {
				_, err := os.Stdout.Write(out)
				return err
			}
			if err := os.WriteFile(output, out, 0644); err != nil {
				return err
			}
			loggerFromContext(cmd.Context()).Infof("Exported %s to %s", args[0], output)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "json", "output format: json or dot")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (stdout if empty)")
	return cmd
}

// readSteps loads a step list from path, accepting either a bare JSON
// array or an object with a "steps" field ("-" reads stdin).
func readSteps(path string) ([]routing.Step, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading steps: %w", err)
	}

	var doc struct {
		Steps []routing.Step `json:"steps"`
	}
	if err := json.Unmarshal(data, &doc); err == nil && doc.Steps != nil {
		return doc.Steps, nil
	}

	var steps []routing.Step
	if err := json.Unmarshal(data, &steps); err != nil {
		return nil, fmt.Errorf("parsing steps in %s: %w", path, err)
	}
	return steps, nil
}

// rejectedValidation unwraps a 422 response into its validation result.
func rejectedValidation(err error) (*routing.ValidationResult, bool) {
	var apiErr *apiError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnprocessableEntity {
		return nil, false
	}
	var vr routing.ValidationResult
	if json.Unmarshal(apiErr.Body, &vr) != nil {
		return nil, false
	}
	return &vr, true
}

// printRouting writes a readable routing listing to stdout.
func printRouting(mr *routing.ModelRouting) {
	fmt.Printf("%s (%d areas)\n", mr.ModelID, len(mr.Steps))
	width := 0
	for _, step := range mr.Steps {
		if len(step.AreaCode) > width {
			width = len(step.AreaCode)
		}
	}
	for _, step := range mr.Steps {
		if len(step.Predecessors) == 0 {
			fmt.Printf("  %-*s  (start)\n", width, step.AreaCode)
			continue
		}
		fmt.Printf("  %-*s  <- %s\n", width, step.AreaCode, strings.Join(step.Predecessors, ", "))
	}
}

// printValidation writes a validation report to stdout.
func printValidation(modelID string, vr *routing.ValidationResult) {
	if vr.IsValid {
		fmt.Printf("%s: valid\n", modelID)
		return
	}
	fmt.Printf("%s: INVALID\n", modelID)
	if vr.HasCycle {
		fmt.Printf("  cycle:   %s\n", strings.Join(vr.CycleNodes, " -> "))
	}
	if vr.HasOrphans {
		fmt.Printf("  orphans: %s\n", strings.Join(vr.OrphanNodes, ", "))
	}
}

// validationSummary flattens a failed validation into one line.
func validationSummary(vr *routing.ValidationResult) string {
	var parts []string
	if vr.HasCycle {
		parts = append(parts, "cycle "+strings.Join(vr.CycleNodes, " -> "))
	}
	if vr.HasOrphans {
		parts = append(parts, "orphans "+strings.Join(vr.OrphanNodes, ", "))
	}
	if len(parts) == 0 {
		return "invalid"
	}
	return strings.Join(parts, "; ")
}

// routingDOT renders the routing as a Graphviz digraph, edges pointing
// from each predecessor to its successor in flow order.
func routingDOT(mr *routing.ModelRouting) string {
	var b strings.Builder
	fmt.Fprintf(&b, "digraph %q {\n", mr.ModelID)
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [shape=box];\n")
	for _, step := range mr.Steps {
		fmt.Fprintf(&b, "  %q;\n", step.AreaCode)
	}
	for _, step := range mr.Steps {
		for _, pred := range step.Predecessors {
			fmt.Fprintf(&b, "  %q -> %q;\n", pred, step.AreaCode)
		}
	}
	b.WriteString("}\n")
	return b.String()
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
