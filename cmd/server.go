package cmd

import (
	"Tunedrop/config"
	"Tunedrop/server"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "启动 Tunedrop 服务",
	Long:  `启动发行管理的 HTTP 服务，提供用户发行向导、管理员审核和实时通知接口`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

func runServer() error {
	return server.Start(config.Load(), envFile)
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
