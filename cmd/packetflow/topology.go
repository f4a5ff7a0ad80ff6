package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"packetflow/internal/codec"
	"packetflow/internal/loader"
	"packetflow/internal/routing"
)

func newTopologyCmd(c *cli) *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "topology",
		Short: "Inspect and convert topology files",
	}
	cmd.PersistentFlags().StringVar(&path, "file", "", "topology file (default from config, else the built-in diagram)")

	// topologyPath prefers --file over the configured path
	topologyPath := func() string {
		if path != "" {
			return path
		}
		return c.cfg.Topology.Path
	}

	var format, output string
	export := &cobra.Command{
		Use:   "export",
		Short: "Write the topology as JSON or YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			topo, err := loader.LoadTopology(topologyPath())
			if err != nil {
				return err
			}
			if output != "" && !cmd.Flags().Changed("format") {
				return loader.SaveTopology(output, topo)
			}
			enc, err := codec.ForFormat(format)
			if err != nil {
				return err
			}
			if output == "" {
				return enc.Export(topo, cmd.OutOrStdout())
			}
			f, err := os.Create(output)
			if err != nil {
				return err
			}
			defer f.Close()
			return enc.Export(topo, f)
		},
	}
	export.Flags().StringVarP(&format, "format", "f", "yaml", "output format (json or yaml)")
	export.Flags().StringVarP(&output, "output", "o", "", "output file (format from extension unless --format is set)")

	validate := &cobra.Command{
		Use:   "validate FILE",
		Short: "Check a topology file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			topo, err := loader.LoadTopology(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (hub %s, %d nodes, %d edges)\n",
				args[0], topo.Hub(), len(topo.Nodes()), len(topo.Edges()))
			return nil
		},
	}

	route := &cobra.Command{
		Use:   "route SRC DST",
		Short: "Print the hop sequence a packet would follow",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			topo, err := loader.LoadTopology(topologyPath())
			if err != nil {
				return err
			}
			for _, id := range args {
				if _, ok := topo.Node(id); !ok {
					return fmt.Errorf("unknown node %q", id)
				}
			}
			path, err := routing.Route(routing.NewHubRouter(topo.Hub()), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(path, " -> "))
			return nil
		},
	}

	cmd.AddCommand(export, validate, route)
	return cmd
}
