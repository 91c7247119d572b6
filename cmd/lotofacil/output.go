package main

import (
	"fmt"
	"io"

	"github.com/aristath/lotofacil/internal/domain"
	"github.com/aristath/lotofacil/internal/modules/occurrences"
	"github.com/aristath/lotofacil/internal/modules/predictions"
	"github.com/aristath/lotofacil/internal/pipeline"
)

func printResult(w io.Writer, res *pipeline.Result) {
	switch res.Mode {
	case pipeline.ModePredict:
		printPredictions(w, res.Predictions)
	case pipeline.ModeReport:
		printOccurrences(w, res.Occurrences)
	default:
		fmt.Fprintf(w, "Ingested %d draws, history has %d\n", res.Ingested, res.HistorySize)
	}
}

func printPredictions(w io.Writer, preds []predictions.Prediction) {
	for j, p := range preds {
		line := fmt.Sprintf("Final Combination %d: [%s]", j+1, domain.FormatNumbers(p.Combination))
		if p.OccurredBefore {
			line += " (Already occurred)"
		}
		fmt.Fprintln(w, line)
	}
}

func printOccurrences(w io.Writer, report []occurrences.Occurrence) {
	for _, o := range report {
		fmt.Fprintf(w, "Number: %d, Occurrences: %d-%d, Percentage: %.2f%%\n", o.Number, o.Count, o.Total, o.Percentage)
	}
}
