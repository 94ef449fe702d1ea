package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(&cobra.Command{
		Use:   "prune",
		Short: "Apply the retention policy now",
		Run:   runPrune,
	})

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every entry of the project",
		Run:   runClear,
	}
	clearCmd.Flags().Bool("yes", false, "Confirm deletion")
	RootCmd.AddCommand(clearCmd)
}

func runPrune(cmd *cobra.Command, args []string) {
	m, err := openMemory(cmd)
	if err != nil {
		exitErr("open memory", err)
	}
	defer m.Close()

	ctx := cmd.Context()
	before, _ := m.Count(ctx)
	if err := m.Prune(ctx); err != nil {
		exitErr("prune", err)
	}
	after, _ := m.Count(ctx)
	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"removed":%d,"remaining":%d}`+"\n", before-after, after)
}

func runClear(cmd *cobra.Command, args []string) {
	yes, _ := cmd.Flags().GetBool("yes")
	if !yes {
		exitErr("clear", fmt.Errorf("refusing to delete without --yes"))
	}

	m, err := openMemory(cmd)
	if err != nil {
		exitErr("open memory", err)
	}
	defer m.Close()

	if err := m.Clear(cmd.Context()); err != nil {
		exitErr("clear", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"project":%q}`+"\n", m.ProjectID())
}
