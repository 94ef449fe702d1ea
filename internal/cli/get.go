package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Retrieve an entry by id",
		Args:  cobra.ExactArgs(1),
		Run:   runGet,
	}

	RootCmd.AddCommand(cmd)
}

func runGet(cmd *cobra.Command, args []string) {
	m, err := openMemory(cmd)
	if err != nil {
		exitErr("open memory", err)
	}
	defer m.Close()

	e, err := m.Get(cmd.Context(), args[0])
	if err != nil {
		exitErr("get", err)
	}
	if e == nil {
		exitErr("get", fmt.Errorf("entry %s not found in project %s", args[0], m.ProjectID()))
	}
	printJSON(cmd, e)
}
