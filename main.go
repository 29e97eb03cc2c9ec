package main

import (
	"os"

	_ "snpfreq-service/docs"
)

// @title SNP 人群频率查询服务 API
// @version 1.0
// @description 按 rsID 查询 dbSNP 人群等位基因频率，计算 Hardy-Weinberg 基因型频率并生成报告
// @BasePath /
func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
