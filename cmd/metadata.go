package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/tealeg/xlsx/v2"

	"github.com/ace26597/News-Agent/internal/config"
	"github.com/ace26597/News-Agent/internal/metadata"
	"github.com/ace26597/News-Agent/internal/model"
)

var (
	metadataRuns int
	metadataXLSX string
)

var metadataCmd = &cobra.Command{
	Use:   "metadata",
	Short: "Analyze provider and strategy effectiveness from recorded runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		rows, err := recentMetadataRows(cfg.Metadata, metadataRuns)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			fmt.Println("no recorded runs")
			return nil
		}

		providerPerf := make([]metadata.ProviderPerformance, 0, 4)
		for _, p := range model.AllSources() {
			providerPerf = append(providerPerf, metadata.AnalyzeProviderPerformance(rows, p))
		}
		strategyPerf := sortedStrategies(metadata.AnalyzeStrategyPerformance(rows))

		printReport(rows, providerPerf, strategyPerf)

		if metadataXLSX != "" {
			if err := writeXLSXReport(metadataXLSX, providerPerf, strategyPerf); err != nil {
				return eris.Wrap(err, "write xlsx report")
			}
			fmt.Printf("report written to %s\n", metadataXLSX)
		}
		return nil
	},
}

// recentMetadataRows opens the sink the configuration selects and reads the
// most recent rows back, whichever driver is in use.
func recentMetadataRows(mc config.MetadataConfig, n int) ([]map[string]string, error) {
	rec, err := metadata.Open(mc.Driver, mc.Path, mc.DatabaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "open metadata sink")
	}
	defer func() { _ = rec.Close() }()

	reader, ok := rec.(metadata.RowReader)
	if !ok {
		return nil, eris.Errorf("metadata: driver %q does not support reading rows back", mc.Driver)
	}
	rows, err := reader.RecentRows(n)
	if err != nil {
		return nil, eris.Wrap(err, "read metadata rows")
	}
	return rows, nil
}

func sortedStrategies(byKey map[string]metadata.StrategyPerformance) []metadata.StrategyPerformance {
	out := make([]metadata.StrategyPerformance, 0, len(byKey))
	for _, perf := range byKey {
		out = append(out, perf)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EffectivenessPct != out[j].EffectivenessPct {
			return out[i].EffectivenessPct > out[j].EffectivenessPct
		}
		if out[i].Provider != out[j].Provider {
			return out[i].Provider < out[j].Provider
		}
		return out[i].Strategy < out[j].Strategy
	})
	return out
}

func printReport(rows []map[string]string, providers []metadata.ProviderPerformance, strategies []metadata.StrategyPerformance) {
	fmt.Printf("analyzed %d runs\n\n", len(rows))

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PROVIDER\tRETRIEVED\tKEPT\tEFFECTIVENESS\tAVG RELEVANCE\tAVG/RUN")
	for _, p := range providers {
		fmt.Fprintf(w, "%s\t%d\t%d\t%.1f%%\t%.1f\t%.1f\n",
			p.Provider, p.TotalRetrieved, p.TotalKept, p.EffectivenessPct, p.AvgRelevance, p.AvgPerRun)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "PROVIDER/STRATEGY\tRUNS\tRETRIEVED\tKEPT\tEFFECTIVENESS\tDUPLICATES")
	for _, s := range strategies {
		fmt.Fprintf(w, "%s/%s\t%d\t%d\t%d\t%.1f%%\t%.1f%%\n",
			s.Provider, s.Strategy, s.Occurrences, s.TotalRetrieved, s.TotalKept, s.EffectivenessPct, s.DuplicatePct)
	}
	w.Flush()
}

func writeXLSXReport(path string, providers []metadata.ProviderPerformance, strategies []metadata.StrategyPerformance) error {
	file := xlsx.NewFile()

	providerSheet, err := file.AddSheet("Providers")
	if err != nil {
		return eris.Wrap(err, "add providers sheet")
	}
	header := providerSheet.AddRow()
	for _, col := range []string{"Provider", "Runs", "Retrieved", "Kept", "Effectiveness %", "Avg Relevance", "Avg Per Run"} {
		header.AddCell().Value = col
	}
	for _, p := range providers {
		row := providerSheet.AddRow()
		row.AddCell().Value = string(p.Provider)
		row.AddCell().SetInt(p.RunsAnalyzed)
		row.AddCell().SetInt(p.TotalRetrieved)
		row.AddCell().SetInt(p.TotalKept)
		row.AddCell().SetFloatWithFormat(p.EffectivenessPct, "0.0")
		row.AddCell().SetFloatWithFormat(p.AvgRelevance, "0.0")
		row.AddCell().SetFloatWithFormat(p.AvgPerRun, "0.0")
	}

	strategySheet, err := file.AddSheet("Strategies")
	if err != nil {
		return eris.Wrap(err, "add strategies sheet")
	}
	header = strategySheet.AddRow()
	for _, col := range []string{"Provider", "Strategy", "Runs", "Retrieved", "Kept", "Effectiveness %", "Duplicate %", "Avg Per Run"} {
		header.AddCell().Value = col
	}
	for _, s := range strategies {
		row := strategySheet.AddRow()
		row.AddCell().Value = string(s.Provider)
		row.AddCell().Value = s.Strategy
		row.AddCell().SetInt(s.Occurrences)
		row.AddCell().SetInt(s.TotalRetrieved)
		row.AddCell().SetInt(s.TotalKept)
		row.AddCell().SetFloatWithFormat(s.EffectivenessPct, "0.0")
		row.AddCell().SetFloatWithFormat(s.DuplicatePct, "0.0")
		row.AddCell().SetFloatWithFormat(s.AvgPerRun, "0.0")
	}

	return file.Save(path)
}

func init() {
	metadataCmd.Flags().IntVarP(&metadataRuns, "runs", "n", 50, "number of recent runs to analyze")
	metadataCmd.Flags().StringVar(&metadataXLSX, "xlsx", "", "also write an XLSX report to this path")
	rootCmd.AddCommand(metadataCmd)
}
