// Command mmvexample is a small cobra CLI for exercising an mmv.Client from
// the command line: export a demo set of metrics, or decode and print an
// already-exported file.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pcpmmv/mmv"
	"github.com/pcpmmv/mmv/internal/mmvcheck"
)

var (
	clientName string
	itemCount  int
)

func runExport(cmd *cobra.Command, args []string) error {
	client, err := mmv.NewClient(clientName, mmv.ProcessFlag)
	if err != nil {
		return err
	}

	counter, err := mmv.NewCounter(1, 0, "mmvexample.requests", "Number of simulated requests")
	if err != nil {
		return err
	}
	client.MustRegister(counter)

	gauge, err := mmv.NewGauge(2, 0, "mmvexample.load", "Simulated load average")
	if err != nil {
		return err
	}
	client.MustRegister(gauge)

	if err := client.Export(); err != nil {
		return err
	}
	defer client.MustStop()

	for i := 0; i < itemCount; i++ {
		counter.Up()
		gauge.MustSet(float64(i) / 10)
	}

	fmt.Printf("exported %q with %d increments\n", clientName, itemCount)
	return nil
}

func runDump(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	snap, err := mmvcheck.Decode(data)
	if err != nil {
		return err
	}

	fmt.Printf("generation: %d toc-entries: %d\n", snap.Header.Generation1, len(snap.Toc))
	for _, m := range snap.Metrics {
		fmt.Printf("metric %-32s item=%-4d type=%d sem=%d\n", m.Name, m.ItemID, m.Type, m.Semantics)
	}
	return nil
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "mmvexample",
		Short: "Exercises the mmv package from the command line",
	}

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Export a demo set of metrics, apply simulated updates, then unmap",
		RunE:  runExport,
	}
	exportCmd.Flags().StringVarP(&clientName, "name", "n", "mmvexample", "export name")
	exportCmd.Flags().IntVarP(&itemCount, "iterations", "i", 5, "number of simulated increments")

	dumpCmd := &cobra.Command{
		Use:   "dump <file>",
		Short: "Decode and print an exported MMV file",
		Args:  cobra.ExactArgs(1),
		RunE:  runDump,
	}

	rootCmd.AddCommand(exportCmd, dumpCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
