package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/loomnote/loomnote/internal/cli"
	"github.com/loomnote/loomnote/internal/cli/admin"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "loomnoted",
		Short: "Loomnote daemon and CLI",
		Long:  "Loomnote daemon for running the document ingestion and retrieval API server",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.MigrateCmd())
	rootCmd.AddCommand(admin.KnowledgeBaseCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
