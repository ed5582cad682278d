package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewLoginCmd создаёт команду входа администратора.
// Токен сохраняется в tokenPathFn() и используется остальными командами.
func NewLoginCmd(clientFn func() *Client, outputFn func() *Output, tokenPathFn func() string) *cobra.Command {
	var username string
	var password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in as administrator",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			res, err := client.Login(username, password)
			if err != nil {
				return err
			}

			path := tokenPathFn()
			if err := SaveToken(path, res.Token); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Logged in as %s (token saved to %s)", res.Username, path))
			out.Print(
				[]string{"USERNAME", "EXPIRES"},
				[][]string{{res.Username, res.ExpiresAt}},
				res,
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "admin", "Administrator username")
	cmd.Flags().StringVar(&password, "password", "", "Administrator password")
	cmd.MarkFlagRequired("password")

	return cmd
}
