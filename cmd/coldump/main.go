// Command coldump is an introspection tool for dictionary-encoded column
// files, in the spirit of cmd/pebble's scan/sync subcommands: a cobra root
// command dispatching to per-concern subcommands, each rendering its
// output with the same libraries replay/sampled_metric.go (asciigraph) and
// cockroachkvs_test.go (tablewriter) use elsewhere in the teacher repo.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/guptarohit/asciigraph"
	"github.com/olekukonko/tablewriter"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/spf13/cobra"

	"github.com/gcwind2007/druid/internal/binfmt"
	"github.com/gcwind2007/druid/internal/config"
	"github.com/gcwind2007/druid/internal/metrics"
	"github.com/gcwind2007/druid/segment"
)

var rootCmd = &cobra.Command{
	Use:   "coldump [command] (flags)",
	Short: "dictionary-encoded column introspection tool",
	Long:  ``,
}

func main() {
	log.SetFlags(0)
	cobra.EnableCommandSorting = false
	rootCmd.AddCommand(dictCmd, cardinalityCmd, hexCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var dictCmd = &cobra.Command{
	Use:   "dict <file>",
	Short: "print the column's dictionary as a table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := config.New()
		lookupLatency := prometheus.NewHistogram(prometheus.HistogramOpts{Name: "coldump_lookup_latency_seconds"})
		cacheHits := prometheus.NewCounter(prometheus.CounterOpts{Name: "coldump_cache_hits_total"})
		cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{Name: "coldump_cache_misses_total"})
		recorder := metrics.NewRecorder(lookupLatency, cacheHits, cacheMisses)

		col, f, err := segment.ReadColumn(args[0], opts.Bitmaps, opts.RTree, opts.CacheSizeBytes, recorder)
		if err != nil {
			return err
		}
		defer f.Close()

		tbl := tablewriter.NewWriter(os.Stdout)
		tbl.SetHeader([]string{"ID", "Value", "Cardinality"})
		for id := 0; id < col.DictionarySize(); id++ {
			name, err := col.LookupName(id)
			if err != nil {
				return err
			}
			bm, err := col.BitmapForID(id)
			if err != nil {
				return err
			}
			tbl.Append([]string{fmt.Sprintf("%d", id), name, fmt.Sprintf("%d", bm.Cardinality())})
		}
		tbl.Render()

		var hits, misses dto.Metric
		_ = cacheHits.Write(&hits)
		_ = cacheMisses.Write(&misses)
		fmt.Fprintf(os.Stderr, "cache hits=%d misses=%d\n",
			int64(hits.GetCounter().GetValue()), int64(misses.GetCounter().GetValue()))
		return nil
	},
}

var cardinalityCmd = &cobra.Command{
	Use:   "cardinality <file>",
	Short: "plot each dictionary value's row count as an ASCII graph",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := config.New()
		col, f, err := segment.ReadColumn(args[0], opts.Bitmaps, opts.RTree, opts.CacheSizeBytes, nil)
		if err != nil {
			return err
		}
		defer f.Close()

		values := make([]float64, col.DictionarySize())
		for id := range values {
			bm, err := col.BitmapForID(id)
			if err != nil {
				return err
			}
			values[id] = float64(bm.Cardinality())
		}
		fmt.Println(asciigraph.Plot(values, asciigraph.Height(15)))
		return nil
	},
}

var hexCmd = &cobra.Command{
	Use:   "hex <file>",
	Short: "hex-dump the raw column bytes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := segment.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		fmt.Print(binfmt.HexDump(f.Bytes(), 16, true))
		return nil
	},
}
