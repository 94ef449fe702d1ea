package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/project-memory/internal/memory"
)

func init() {
	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import entries from JSON",
		Long:  "Import entries from a file or stdin. Expects the format produced by export; entries get new ids in the target project.",
		Args:  cobra.MaximumNArgs(1),
		Run:   runImport,
	}

	RootCmd.AddCommand(cmd)
}

func runImport(cmd *cobra.Command, args []string) {
	var (
		data []byte
		err  error
	)
	if len(args) == 1 {
		data, err = os.ReadFile(args[0])
	} else {
		data, err = io.ReadAll(cmd.InOrStdin())
	}
	if err != nil {
		exitErr("read input", err)
	}

	var dump memory.Export
	if err := json.Unmarshal(data, &dump); err != nil {
		exitErr("parse JSON", err)
	}

	m, err := openMemory(cmd)
	if err != nil {
		exitErr("open memory", err)
	}
	defer m.Close()

	n, err := m.Import(cmd.Context(), dump.Entries)
	if err != nil {
		exitErr("import", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"imported":%d}`+"\n", n)
}
