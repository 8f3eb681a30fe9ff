// onnx-dataprop runs the ONNX data propagation over a model described in YAML, and prints the
// values it could determine for each tensor.
//
// Usage:
//
//	onnx-dataprop [--opset=15] [--format=text|table|json] [--validate] <model.yaml>
package main

import (
	goflag "flag"
	"fmt"
	"io"
	"os"

	jsoniter "github.com/json-iterator/go"
	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"k8s.io/klog/v2"

	"github.com/gomlx/onnx-dataprop/onnx"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// config holds the command line flags.
type config struct {
	opset       int
	format      string
	validate    bool
	unsupported bool
}

func main() {
	klog.InitFlags(nil)
	pflag.CommandLine.AddGoFlagSet(goflag.CommandLine)
	if err := newRootCmd().Execute(); err != nil {
		klog.Errorf("%+v", err)
		klog.Flush()
		os.Exit(1)
	}
	klog.Flush()
}

func newRootCmd() *cobra.Command {
	cfg := &config{}
	cmd := &cobra.Command{
		Use:   "onnx-dataprop <model.yaml>",
		Short: "onnx-dataprop computes the shape-like data of an ONNX graph ahead of execution",
		Long: `onnx-dataprop reads an ONNX model described in YAML, runs the data propagation over its graph
and prints, for each value it could determine, the list of dimensions: known integers,
symbolic parameters or "?" for unknown.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cfg, args[0], cmd.OutOrStdout())
		},
	}
	flags := cmd.Flags()
	flags.IntVar(&cfg.opset, "opset", onnx.DefaultOpsetVersion,
		"Version of the default operator set, used if the model doesn't import it")
	flags.StringVarP(&cfg.format, "format", "f", "text", "Output format: text, table or json")
	flags.BoolVar(&cfg.validate, "validate", false, "Validate the graph structure before propagating")
	flags.BoolVar(&cfg.unsupported, "unsupported", false, "Also list the nodes without a propagation rule")
	return cmd
}

func run(cfg *config, modelPath string, w io.Writer) error {
	model, err := onnx.ReadFile(modelPath)
	if err != nil {
		return err
	}
	klog.V(1).Infof("%s", model)
	if cfg.validate {
		if err := model.Graph().Validate(); err != nil {
			return errors.WithMessagef(err, "invalid graph in %s", modelPath)
		}
	}

	engine := onnx.NewEngine(nil,
		onnx.WithDefaultOpset(cfg.opset),
		onnx.WithOpsetImports(model.Proto.OpsetImport...))
	generated, err := engine.Run(model.Graph())
	if err != nil {
		return errors.WithMessagef(err, "data propagation of %s failed", modelPath)
	}

	switch cfg.format {
	case "text":
		_, err = io.WriteString(w, generated.String())
	case "table":
		table := tablewriter.NewWriter(w)
		table.SetHeader([]string{"Name", "Rank", "Value", "Provenance"})
		for _, name := range generated.Names() {
			sv := generated[name]
			table.Append([]string{name, fmt.Sprintf("%d", sv.Rank()), sv.String(), engine.Provenance(name).String()})
		}
		table.Render()
	case "json":
		var encoded []byte
		encoded, err = json.MarshalIndent(toJSON(generated), "", "  ")
		if err == nil {
			_, err = fmt.Fprintf(w, "%s\n", encoded)
		}
	default:
		return errors.Errorf("unknown --format=%q, valid values are text, table or json", cfg.format)
	}
	if err != nil {
		return errors.Wrap(err, "failed to write results")
	}

	if cfg.unsupported {
		for _, node := range engine.Unsupported() {
			if _, err := fmt.Fprintf(w, "unsupported: %s\n", node); err != nil {
				return errors.Wrap(err, "failed to write results")
			}
		}
	}
	return nil
}

// toJSON converts the generated values to a JSON friendly form: each dimension is an integer, a
// string (symbolic parameter) or null (unknown).
func toJSON(generated onnx.ShapeMap) map[string][]any {
	result := make(map[string][]any, len(generated))
	for name, sv := range generated {
		dims := make([]any, sv.Rank())
		for ii, dim := range sv.Dims() {
			switch {
			case dim.IsKnown():
				dims[ii], _ = dim.Value()
			case dim.IsSymbolic():
				dims[ii] = dim.Name()
			}
		}
		result[name] = dims
	}
	return result
}
