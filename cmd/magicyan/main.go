// Package main 是简历导出服务的入口。
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "magicyan",
	Short: "简历导出与打印服务",
	Long:  "magicyan 提供服务端简历渲染：无头浏览器导出 PDF/截图、打印页渲染面、跨上下文数据交接与客户端打印降级。",
}

func main() {
	// 存在 .env 时加载，缺失不报错
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
