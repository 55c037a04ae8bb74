package cmd

import (
	"context"
	"fmt"
	"sort"
	"time"

	"Tunedrop/config"
	"Tunedrop/storage"

	"github.com/spf13/cobra"
)

var (
	minioPrefix string
	minioEnsure bool
)

var minioCmd = &cobra.Command{
	Use:   "minio",
	Short: "MinIO存储桶管理",
	Long:  `查看封面和音频存储桶的统计信息，可选地在桶不存在时创建它。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		fmt.Printf("MinIO配置: %s, Bucket: %s\n", cfg.MinioEndpoint, cfg.MinioBucket)

		store, err := storage.NewMediaStore(cfg)
		if err != nil {
			return fmt.Errorf("创建MinIO客户端失败: %w", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		if minioEnsure {
			if err := store.EnsureBucket(ctx); err != nil {
				return err
			}
			fmt.Println("存储桶已就绪")
		}

		stats, err := store.Stats(ctx, minioPrefix)
		if err != nil {
			return err
		}
		fmt.Printf("\n对象数: %d, 总大小: %.2f MB\n", stats.Objects, float64(stats.TotalSize)/1024/1024)

		prefixes := make([]string, 0, len(stats.ByPrefix))
		for p := range stats.ByPrefix {
			prefixes = append(prefixes, p)
		}
		sort.Strings(prefixes)
		for _, p := range prefixes {
			fmt.Printf("  %-10s %d\n", p, stats.ByPrefix[p])
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(minioCmd)

	minioCmd.Flags().StringVarP(&minioPrefix, "prefix", "p", "", "只统计该前缀下的对象")
	minioCmd.Flags().BoolVarP(&minioEnsure, "ensure", "e", false, "存储桶不存在时创建")

	minioCmd.Example = `  # 统计整个存储桶
  tunedrop minio

  # 只看封面
  tunedrop minio -p "cover/"

  # 首次部署时创建存储桶
  tunedrop minio -e`
}
