package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Print the statements sync would run without changing anything",
	PreRun: func(cmd *cobra.Command, args []string) {
		bindFlags(cmd, map[string]string{"schema.option": "option"})
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession()
		if err != nil {
			return err
		}
		if err := s.Client.Ping(cmd.Context()); err != nil {
			return fmt.Errorf("failed to connect to db: %w", err)
		}

		actions, err := s.Manager.Plan(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("🔍 Plan (%s, schema %q):\n", s.Manager.Option(), s.Client.Schema())
		if len(actions) == 0 {
			fmt.Println("Nothing to do, all tables are in sync.")
			return nil
		}
		for i, a := range actions {
			stmt, err := s.Client.Statement(a)
			if err != nil {
				return err
			}
			fmt.Printf("[%02d] %s;\n", i+1, stmt)
		}
		return nil
	},
}

func init() {
	RootCmd.AddCommand(planCmd)

	planCmd.Flags().String("option", "", "schema option: create, create-drop or update (overrides config)")
}
