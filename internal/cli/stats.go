package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show storage statistics for the project",
		Run:   runStats,
	})
	RootCmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show which backend and embedding provider are in use",
		Run:   runStatus,
	})
}

func runStats(cmd *cobra.Command, args []string) {
	m, err := openMemory(cmd)
	if err != nil {
		exitErr("open memory", err)
	}
	defer m.Close()

	stats, err := m.Stats(cmd.Context())
	if err != nil {
		exitErr("stats", err)
	}
	printJSON(cmd, stats)
}

func runStatus(cmd *cobra.Command, args []string) {
	m, err := openMemory(cmd)
	if err != nil {
		exitErr("open memory", err)
	}
	defer m.Close()

	printJSON(cmd, map[string]interface{}{
		"project":   m.ProjectID(),
		"storage":   m.StorageType(),
		"embedding": m.EmbeddingProvider(),
		"available": m.IsAvailable(cmd.Context()),
	})
}
