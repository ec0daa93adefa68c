package main

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/listing-reconcile/internal/partition"
)

// createGraphCmd prints the partition visiting order and neighbors
func createGraphCmd() *cobra.Command {
	var code string

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Show the department graph",
		RunE: func(cmd *cobra.Command, args []string) error {
			graph, err := partition.LoadGraph(cfg.PartitionGraphFile)
			if err != nil {
				return err
			}

			codes := graph.Order()
			if code != "" {
				if !graph.Contains(code) {
					return fmt.Errorf("unknown department %q", code)
				}
				codes = []string{code}
			}

			tw := table.NewWriter()
			tw.SetStyle(table.StyleRounded)
			tw.AppendHeader(table.Row{"#", "Department", "Neighbors"})
			for i, c := range codes {
				tw.AppendRow(table.Row{i + 1, c, strings.Join(graph.Neighbors(c, 0), ", ")})
			}
			fmt.Println(tw.Render())
			return nil
		},
	}

	cmd.Flags().StringVar(&code, "dept", "", "only show this department")
	return cmd
}
