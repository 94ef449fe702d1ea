package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "context [query]",
		Short: "Render relevant knowledge for a prompt",
		Long:  "Print the entries most relevant to the query plus the most important entries, as a markdown bullet list. Prints nothing when the project has no knowledge.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runContext,
	}

	RootCmd.AddCommand(cmd)
}

func runContext(cmd *cobra.Command, args []string) {
	m, err := openMemory(cmd)
	if err != nil {
		exitErr("open memory", err)
	}
	defer m.Close()

	out, err := m.GetContextForQuery(cmd.Context(), strings.Join(args, " "))
	if err != nil {
		exitErr("context", err)
	}
	fmt.Fprint(cmd.OutOrStdout(), out)
}
