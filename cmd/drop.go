package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"crate-schema/internal/action"
	"crate-schema/internal/apperrors"
	"crate-schema/internal/logging"
)

var dropCmd = &cobra.Command{
	Use:   "drop",
	Short: "Drop the tables of all configured entities",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession()
		if err != nil {
			return err
		}
		if err := s.Client.Ping(cmd.Context()); err != nil {
			return fmt.Errorf("failed to connect to db: %w", err)
		}

		fmt.Printf("🦅 Connected via %s, schema %q\n", DriverName, s.Client.Schema())

		entities := s.Entities.PersistentEntities()
		dropped := 0
		// Reverse registration order.
		for i := len(entities) - 1; i >= 0; i-- {
			e := entities[i]
			err := s.Client.Execute(cmd.Context(), action.DropTable(e.TableName))
			switch {
			case err == nil:
				dropped++
			case apperrors.IsResourceUsage(err):
				Logger.Warn("drop table skipped", zap.String("table", e.TableName), zap.String("reason", logging.SanitizeError(err)))
			default:
				return fmt.Errorf("failed to drop %s: %w", e.TableName, err)
			}
		}

		Logger.Info("dropped tables", zap.Int("dropped", dropped), zap.Int("entities", len(entities)))
		return nil
	},
}

func init() {
	RootCmd.AddCommand(dropCmd)
}
