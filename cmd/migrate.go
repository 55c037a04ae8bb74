package cmd

import (
	"fmt"

	"Tunedrop/config"
	"Tunedrop/db"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "同步数据库表结构",
	Long:  `连接 MySQL 并对用户、订阅、发行、编码、通知和计数器表执行 AutoMigrate。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		if err := db.ConnectGormDB(cfg); err != nil {
			return err
		}
		defer db.CloseGormDB()

		if err := db.AutoMigrate(db.GormDB); err != nil {
			return err
		}
		fmt.Printf("已同步 %d 张表\n", len(db.Models()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
