package cli

import (
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/utkarsh5026/parjoin/pool"
)

func newPartitionCmd() *cobra.Command {
	var n, k int

	cmd := &cobra.Command{
		Use:   "partition",
		Short: "Show how n keys are split into k partitions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			keys := make(map[int]struct{}, max(n, 0))
			for i := range n {
				keys[i] = struct{}{}
			}

			parts, err := pool.PartitionSorted(keys, k)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printSectionHeader(out, "PARTITIONS", fmt.Sprintf("%d keys into %d partitions", n, k))

			table := tablewriter.NewWriter(out)
			table.Header("Partition", "Size", "Keys")
			next := 0
			for i, p := range parts {
				span := "-"
				if len(p) > 0 {
					span = fmt.Sprintf("%d..%d", next, next+len(p)-1)
				}
				next += len(p)
				_ = table.Append(i, len(p), span)
			}
			return table.Render()
		},
	}

	cmd.Flags().IntVarP(&n, "n", "n", 10, "number of keys")
	cmd.Flags().IntVarP(&k, "k", "k", 3, "number of partitions")
	return cmd
}
