package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strconv"
	"text/tabwriter"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/pantry/pkg/types"
)

// Output formats.
const (
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

var outputFormats = []string{outputTable, outputJSON, outputYAML}

func validOutput(format string) bool {
	return slices.Contains(outputFormats, format)
}

// quantityPrinter groups digits in the table view.
var quantityPrinter = message.NewPrinter(language.English)

// renderRecords writes recs to w in format.
func renderRecords(w io.Writer, format string, recs []types.Record) error {
	switch format {
	case outputJSON:
		if recs == nil {
			recs = []types.Record{}
		}
		data, err := json.MarshalIndent(recs, "", "  ")
		if err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		_, err = fmt.Fprintf(w, "%s\n", data)
		return err
	case outputYAML:
		if recs == nil {
			recs = []types.Record{}
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(recs); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	default:
		return renderTable(w, recs)
	}
}

func renderTable(w io.Writer, recs []types.Record) error {
	if len(recs) == 0 {
		_, err := fmt.Fprintln(w, "No products.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tQUANTITY")
	for _, r := range recs {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", strconv.FormatInt(r.ID, 10), r.Name, quantityPrinter.Sprintf("%d", r.Quantity))
	}
	return tw.Flush()
}
