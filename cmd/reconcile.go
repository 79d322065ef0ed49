package cmd

import (
	"os"

	"github.com/jjenkins/lottosync/internal/service"
	"github.com/jjenkins/lottosync/internal/store"
	"github.com/spf13/cobra"
)

var reconcileDryRun bool

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Merge stored draws that differ only in date spelling",
	Long: `Reconcile finds draws with the same lotto type and numbers whose dates
are equal once normalized (for example "5-Jan-2024" and "2024-01-05"),
keeps one row per group with the date in YYYY-MM-DD form, and deletes the rest.

Running it again afterwards changes nothing.

Examples:
  # Show what would change
  ./lottosync reconcile --dry-run

  # Apply
  ./lottosync reconcile`,
	Run: func(cmd *cobra.Command, args []string) {
		log, closeLog := newLogger()
		defer closeLog()

		db := openStore(cmd, log)
		defer db.Close()

		reconciler := service.NewReconciler(store.NewDrawStore(db), log)
		result, err := reconciler.Reconcile(cmd.Context(), reconcileDryRun)
		if result != nil {
			if reconcileDryRun {
				log.Info("=== Reconcile (dry run) ===")
			} else {
				log.Info("=== Reconcile ===")
			}
			log.Infof("Rows scanned:     %d", result.Rows)
			log.Infof("Duplicate groups: %d", result.Groups)
			log.Infof("Deleted:          %d", result.Deleted)
			log.Infof("Dates rewritten:  %d", result.Rewritten)
			log.Infof("Conflicts:        %d", result.Conflicts)
			log.Infof("Unparseable:      %d", result.Unparseable)
		}
		if err != nil {
			log.Errorf("Reconcile failed: %v", err)
			db.Close()
			closeLog()
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(reconcileCmd)
	reconcileCmd.Flags().BoolVar(&reconcileDryRun, "dry-run", false, "Report changes without writing them")
}
