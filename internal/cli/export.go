package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all entries of the project as JSON",
		Run:   runExport,
	}

	cmd.Flags().StringP("out", "o", "", "Write to file instead of stdout")

	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	out, _ := cmd.Flags().GetString("out")

	m, err := openMemory(cmd)
	if err != nil {
		exitErr("open memory", err)
	}
	defer m.Close()

	dump, err := m.Export(cmd.Context())
	if err != nil {
		exitErr("export", err)
	}

	if out == "" {
		printJSON(cmd, dump)
		return
	}
	b, _ := json.MarshalIndent(dump, "", "  ")
	if err := os.WriteFile(out, b, 0o644); err != nil {
		exitErr("write export", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"exported":%d,"file":%q}`+"\n", len(dump.Entries), out)
}
