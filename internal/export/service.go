package export

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"magicyan/internal/artifact"
	"magicyan/internal/fallback"
	"magicyan/internal/metrics"
	"magicyan/internal/resume"
)

// ModeServer 表示服务端渲染成功，产物按令牌取件。
const ModeServer = "server"

// ModeFallback 表示降级到客户端打印路径。
const ModeFallback = "fallback"

// FallbackInstructions 是降级打印时给用户的操作提示。
const FallbackInstructions = "请在打印对话框中关闭页眉和页脚，并勾选背景图形。"

// AvailabilityProber 判定服务端渲染通道当前是否可用。
type AvailabilityProber interface {
	Probe(ctx context.Context) bool
}

// Renderer 执行一次服务端渲染。
type Renderer interface {
	RenderPDF(ctx context.Context, doc *resume.Document, origin string) (*Artifact, error)
}

// Result 是一次导出请求的结论。
type Result struct {
	Mode string `json:"mode"`
	// 服务端路径字段。
	Token    string `json:"token,omitempty"`
	Filename string `json:"filename,omitempty"`
	URL      string `json:"url,omitempty"`
	// 降级路径字段。
	Reason       string `json:"reason,omitempty"`
	PrintURL     string `json:"printUrl,omitempty"`
	Instructions string `json:"instructions,omitempty"`
}

// Service 驱动完整的导出决策：探测、服务端渲染、失败降级。
// 服务端路径的任何失败都不会让导出整体失败，而是给出降级指引。
type Service struct {
	prober     AvailabilityProber
	renderer   Renderer
	store      artifact.Store
	controller *fallback.Controller
	logger     *slog.Logger

	forceClientPrint bool
	forceServerPDF   bool
}

// NewService 创建导出服务。两个 force 开关互斥，由配置层保证。
func NewService(
	prober AvailabilityProber,
	renderer Renderer,
	store artifact.Store,
	controller *fallback.Controller,
	logger *slog.Logger,
	forceClientPrint, forceServerPDF bool,
) *Service {
	return &Service{
		prober:           prober,
		renderer:         renderer,
		store:            store,
		controller:       controller,
		logger:           logger,
		forceClientPrint: forceClientPrint,
		forceServerPDF:   forceServerPDF,
	}
}

// Export 执行一次导出尝试。返回服务端取件结果或降级指引。
func (s *Service) Export(ctx context.Context, doc *resume.Document, origin string) (*Result, error) {
	origin = strings.TrimRight(strings.TrimSpace(origin), "/")
	if origin == "" {
		return nil, &OriginError{Msg: "cannot resolve render origin"}
	}

	gen := s.controller.NewAttempt()
	log := s.logger.With(slog.Uint64("generation", gen))

	available := s.decideAvailability(ctx)
	s.controller.ProbeCompleted(gen, available)
	if !available {
		log.Info("server render channel unavailable, falling back to client print")
		return s.fallbackResult(gen, origin, "channel_unavailable"), nil
	}

	art, err := s.renderer.RenderPDF(ctx, doc, origin)
	if err != nil {
		log.Warn("server render failed, falling back to client print", slog.Any("error", err))
		s.controller.ServerFailed(gen)
		return s.fallbackResult(gen, origin, "render_failed"), nil
	}

	token, err := artifact.NewToken()
	if err != nil {
		return nil, err
	}
	entry := artifact.Entry{
		Bytes:     art.Bytes,
		MIMEType:  art.MIMEType,
		Filename:  art.SuggestedFilename,
		CreatedAt: time.Now(),
	}
	if err := s.store.Put(ctx, token, entry); err != nil {
		return nil, fmt.Errorf("store rendered artifact: %w", err)
	}

	if !s.controller.ServerSucceeded(gen, token, art.SuggestedFilename) {
		// 结果已被新一轮尝试作废，丢弃产物避免旧令牌外流。
		log.Info("render result superseded by newer attempt, discarding")
		_ = s.store.Delete(ctx, token)
		return nil, fmt.Errorf("export attempt superseded")
	}

	log.Info("server render stored", slog.String("filename", art.SuggestedFilename))
	return &Result{
		Mode:     ModeServer,
		Token:    token,
		Filename: art.SuggestedFilename,
		URL:      "/api/pdf/" + url.PathEscape(art.SuggestedFilename) + "?token=" + url.QueryEscape(token),
	}, nil
}

func (s *Service) decideAvailability(ctx context.Context) bool {
	switch {
	case s.forceClientPrint:
		return false
	case s.forceServerPDF:
		return true
	default:
		available := s.prober.Probe(ctx)
		metrics.ObserveProbe(available)
		return available
	}
}

func (s *Service) fallbackResult(gen uint64, origin, reason string) *Result {
	s.controller.ClientPrintReady(gen)
	return &Result{
		Mode:         ModeFallback,
		Reason:       reason,
		PrintURL:     origin + PrintSurfacePath,
		Instructions: FallbackInstructions,
	}
}
