package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/gridwright/evosize/pkg/core"
)

// printResult renders the search outcome: a summary line, the statistics of
// the final generation, and one row per result individual with its sized
// attributes and raw objective values.
func printResult(w io.Writer, result *core.Result, variations []core.AttributeVariation, objectives []core.ObjectiveSpec) {
	p := message.NewPrinter(language.English)

	fmt.Fprintf(w, "\nsearch %s after %d generation(s), %d result(s)\n",
		result.Reason, result.Generations, len(result.Individuals))
	if len(result.Stats) > 0 {
		last := result.Stats[len(result.Stats)-1]
		fmt.Fprintln(w, p.Sprintf("final generation: %d/%d valid, aggregate mean %.2f (min %.2f, max %.2f)",
			last.Valid, last.Evaluated, last.Mean, last.Min, last.Max))
	}
	if len(result.Individuals) == 0 {
		return
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	header := []string{"#"}
	for _, av := range variations {
		header = append(header, av.TargetEntity+"."+av.TargetField)
	}
	for _, obj := range objectives {
		header = append(header, obj.Name)
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))

	for i, ind := range result.Individuals {
		row := []string{fmt.Sprintf("%d", i+1)}
		for _, gene := range ind.Genes {
			row = append(row, p.Sprintf("%.6g", gene))
		}
		for j, obj := range objectives {
			if j >= len(ind.Fitness) {
				break
			}
			// Fitness holds signed values; multiplying by the sign
			// restores the raw objective reading.
			row = append(row, p.Sprintf("%.2f", ind.Fitness[j]*obj.Sign))
		}
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	tw.Flush()
}
