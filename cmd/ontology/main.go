package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kailas-cloud/ontology/internal/config"
	"github.com/kailas-cloud/ontology/internal/version"
)

const app = "ontology"

var env string

var rootCmd = &cobra.Command{
	Use:           app,
	Short:         "ontology attributes identity archetypes to a subject's published texts",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s version: %s\n", app, version.String())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&env, "env", "",
		"config environment, selects config/<env>.yaml (default: $ENV or local)")
	rootCmd.AddCommand(serveCmd, attributeCmd, versionCmd)
}

func main() {
	// .env опционален, в проде переменные приходят из окружения
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func resolveEnv() string {
	if env != "" {
		return env
	}
	return config.GetEnv()
}
