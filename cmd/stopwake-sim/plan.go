package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ystepanoff/stopwake/controller"
	"github.com/ystepanoff/stopwake/internal/plan"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Check the bring-up order",
	Long:  "Check the bring-up steps against their prerequisites and print them in order.",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := newConsole()
		steps := controller.Steps()
		p, err := plan.New(steps)
		if err != nil {
			return err
		}
		checkErr := p.Check()
		for i, s := range steps {
			req := "-"
			if len(s.Requires) > 0 {
				req = strings.Join(s.Requires, ", ")
			}
			fmt.Fprintf(out, "%d. %-10s after %-40s before %s\n", i+1, s.Name, req, strings.Join(p.Dependents(s.Name), ", "))
		}
		if checkErr != nil {
			fmt.Fprintln(out, out.status(false, checkErr.Error()))
			return checkErr
		}
		fmt.Fprintln(out, out.status(true, "order ok"))
		return nil
	},
}
