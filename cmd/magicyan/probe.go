package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"magicyan/internal/config"
	"magicyan/internal/probe"
)

var probeURL string

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "探测服务端渲染通道是否可用",
	RunE: func(_ *cobra.Command, _ []string) error {
		return runProbe()
	},
}

func init() {
	probeCmd.Flags().StringVar(&probeURL, "url", "", "健康检查地址，缺省按配置推导")
	rootCmd.AddCommand(probeCmd)
}

func runProbe() error {
	cfg := config.MustLoad()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	target := probeURL
	if target == "" {
		target = fmt.Sprintf("http://127.0.0.1:%d/api/pdf/health", cfg.API.Port)
		if cfg.API.PublicBaseURL != "" {
			target = cfg.API.PublicBaseURL + "/api/pdf/health"
		}
	}

	p := probe.New(target, cfg.Probe.Timeout(), cfg.Probe.CacheTTL(), probe.OverrideNone, logger)
	if p.Probe(context.Background()) {
		fmt.Printf("render channel available: %s\n", target)
		return nil
	}
	fmt.Printf("render channel unavailable: %s\n", target)
	os.Exit(1)
	return nil
}
