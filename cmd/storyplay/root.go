package main

import (
	"os"

	"github.com/spf13/cobra"

	"webstories/client"
)

const defaultServer = "http://localhost:5000"

type commandContext struct {
	server string
	token  string
}

func (c *commandContext) session() *client.Session {
	return client.NewSession(c.server, c.token)
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "storyplay",
		Short:         "Browse and play web stories from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	server := os.Getenv("STORIES_URL")
	if server == "" {
		server = defaultServer
	}
	rootCmd.PersistentFlags().StringVar(&ctx.server, "server", server, "Stories API base URL")
	rootCmd.PersistentFlags().StringVar(&ctx.token, "token", os.Getenv("STORIES_TOKEN"), "Bearer token")

	rootCmd.AddCommand(newListCommand(ctx))
	rootCmd.AddCommand(newPlayCommand(ctx))

	return rootCmd
}
