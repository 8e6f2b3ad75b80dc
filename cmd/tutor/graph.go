package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/phrazzld/scry-tutor/internal/graph"
)

func newGraphCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Inspect the concept graph",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "check [path]",
		Short: "Validate a concept graph file and list its concepts",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := g.cfg.Graph.Path
			if len(args) == 1 {
				path = args[0]
			}

			gr, err := graph.LoadFile(path)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, okStyle.Render(fmt.Sprintf("%s: %d concepts, acyclic", path, gr.Len())))
			for _, c := range gr.Concepts() {
				line := conceptStyle.Render(c.ID.String())
				if c.Title != "" {
					line += " " + c.Title
				}
				if len(c.Prerequisites) > 0 {
					pres := make([]string, 0, len(c.Prerequisites))
					for _, p := range c.Prerequisites {
						pres = append(pres, p.String())
					}
					line += mutedStyle.Render(" <- " + strings.Join(pres, ", "))
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	})
	return cmd
}
