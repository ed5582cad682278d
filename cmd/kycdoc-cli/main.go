// kycdoc CLI — инструмент администратора KYC заявок через HTTP API.
//
// Использование:
//
//	kycdoc [--api-url URL] [--json] [--token TOKEN] <command> <subcommand> [flags]
//
// Команды:
//
//	login         Вход администратора
//	applications  Просмотр заявок, решения и документы
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaiso/kycdoc/internal/cli"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var apiURL string
	var jsonOutput bool
	var token string
	var tokenFile string

	rootCmd := &cobra.Command{
		Use:           "kycdoc",
		Short:         "kycdoc CLI — KYC application review tool",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", envOr("KYCDOC_API_URL", "http://localhost:3001"), "API server URL")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "Access token (default: $KYCDOC_TOKEN or saved token)")
	rootCmd.PersistentFlags().StringVar(&tokenFile, "token-file", cli.DefaultTokenPath(), "File with saved access token")

	// Токен: флаг, затем KYCDOC_TOKEN, затем файл после login
	resolveToken := func() string {
		if token != "" {
			return token
		}
		if v := os.Getenv("KYCDOC_TOKEN"); v != "" {
			return v
		}
		saved, err := cli.LoadToken(tokenFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Warning: cannot read token file:", err)
		}
		return saved
	}

	clientFn := func() *cli.Client { return cli.NewClient(apiURL, resolveToken()) }
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }
	tokenPathFn := func() string { return tokenFile }

	rootCmd.AddCommand(
		cli.NewLoginCmd(clientFn, outputFn, tokenPathFn),
		cli.NewApplicationsCmd(clientFn, outputFn),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
