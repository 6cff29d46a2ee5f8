package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/nihei9/pegrat/arena"
	"github.com/nihei9/pegrat/atom"
	"github.com/nihei9/pegrat/pegdriver"
	"github.com/nihei9/pegrat/pegspec"
	"github.com/spf13/cobra"
)

var parseFlags = struct {
	source *string
	format *string
}{}

const (
	outputFormatTree = "tree"
	outputFormatJSON = "json"
)

func init() {
	cmd := &cobra.Command{
		Use:     "parse <grammar file path>",
		Short:   "Parse a text stream against a JSON grammar",
		Example: `  cat src | pegrat parse grammar.json`,
		Args:    cobra.ExactArgs(1),
		RunE:    runParse,
	}
	parseFlags.source = cmd.Flags().StringP("source", "s", "", "source file path (default stdin)")
	parseFlags.format = cmd.Flags().StringP("format", "f", "tree", "output format: one of tree|json")
	rootCmd.AddCommand(cmd)
}

func runParse(cmd *cobra.Command, args []string) error {
	if *parseFlags.format != outputFormatTree && *parseFlags.format != outputFormatJSON {
		return fmt.Errorf("invalid output format: %v", *parseFlags.format)
	}

	g, err := readGrammar(args[0])
	if err != nil {
		return fmt.Errorf("cannot read grammar: %w", err)
	}

	src := os.Stdin
	if *parseFlags.source != "" {
		f, err := os.Open(*parseFlags.source)
		if err != nil {
			return fmt.Errorf("cannot open source file %s: %w", *parseFlags.source, err)
		}
		defer f.Close()
		src = f
	}
	input, err := io.ReadAll(src)
	if err != nil {
		return fmt.Errorf("cannot read source: %w", err)
	}

	ar, node, err := pegdriver.Parse(g, input)
	if err != nil {
		return err
	}

	switch *parseFlags.format {
	case outputFormatJSON:
		b, err := json.Marshal(describeNode(ar, node))
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, string(b))
	default:
		pegdriver.PrintTree(os.Stdout, ar, node)
	}
	return nil
}

func readGrammar(path string) (*atom.Grammar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	wire := &pegspec.Grammar{}
	if err := json.Unmarshal(data, wire); err != nil {
		return nil, err
	}
	return pegspec.ToAtomGrammar(wire)
}

// describeNode renders an AstNode into a plain JSON-marshalable value for
// the json output format, since AstNode itself is an arena-relative
// reference rather than a self-contained tree.
func describeNode(ar *arena.Arena, node arena.AstNode) interface{} {
	switch node.Kind {
	case arena.KindNil:
		return nil
	case arena.KindBool:
		return node.Bool
	case arena.KindInt:
		return node.Int
	case arena.KindFloat:
		return node.Float
	case arena.KindStringRef:
		s, err := ar.String(node.StrIndex)
		if err != nil {
			return nil
		}
		return s
	case arena.KindInputRef:
		return map[string]int{"offset": node.Offset, "length": node.Length}
	case arena.KindArray:
		elems := ar.ArrayElements(node.Start, node.Count)
		out := make([]interface{}, len(elems))
		for i, e := range elems {
			out[i] = describeNode(ar, e)
		}
		return out
	case arena.KindHash:
		entries := ar.HashEntries(node.Start, node.Count)
		out := make(map[string]interface{}, len(entries))
		for _, e := range entries {
			key, err := ar.String(e.Key)
			if err != nil {
				key = "?"
			}
			out[key] = describeNode(ar, e.Value)
		}
		return out
	default:
		return nil
	}
}
