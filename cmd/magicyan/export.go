package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"magicyan/internal/browser"
	"magicyan/internal/config"
	"magicyan/internal/export"
	"magicyan/internal/resume"
)

var (
	exportOrigin string
	exportOutput string
	exportImage  bool
)

var exportCmd = &cobra.Command{
	Use:   "export <resume.json>",
	Short: "将简历文件渲染为 PDF 或截图",
	Long:  "读取简历 JSON（或 .magicyan 文件），驱动无头浏览器对指定 origin 的打印页做一次性渲染，产物写入本地文件。",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return runExport(args[0])
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportOrigin, "origin", "", "打印页的对外地址（必填），如 https://resume.example.com")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "输出文件路径，缺省按简历标题生成")
	exportCmd.Flags().BoolVar(&exportImage, "image", false, "输出 JPEG 截图而不是 PDF")
	_ = exportCmd.MarkFlagRequired("origin")
	rootCmd.AddCommand(exportCmd)
}

func runExport(path string) error {
	cfg := config.MustLoad()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read resume file: %w", err)
	}

	doc, err := parseResumeContent(content)
	if err != nil {
		return err
	}

	factory := browser.NewFactory(cfg.Engine.ResolvedExecutablePath(), logger)
	orchestrator := export.NewOrchestrator(factory, logger, cfg.Site.Secret)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	var art *export.Artifact
	if exportImage {
		art, err = orchestrator.RenderImage(ctx, doc, exportOrigin)
	} else {
		art, err = orchestrator.RenderPDF(ctx, doc, exportOrigin)
	}
	if err != nil {
		return fmt.Errorf("render resume: %w", err)
	}

	output := exportOutput
	if output == "" {
		output = resume.SanitizeFilename(art.SuggestedFilename)
	}
	if err := os.WriteFile(output, art.Bytes, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	fmt.Printf("written %s (%d bytes)\n", output, len(art.Bytes))
	return nil
}

// parseResumeContent 兼容两种输入：裸文档 JSON 与带版本信封的简历文件。
func parseResumeContent(content []byte) (*resume.Document, error) {
	if doc, err := resume.ImportFile(content, time.Now()); err == nil {
		return doc, nil
	}

	var doc resume.Document
	if err := json.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("parse resume content: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}
