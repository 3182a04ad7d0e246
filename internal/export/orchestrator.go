package export

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"magicyan/internal/auth"
	"magicyan/internal/resume"
)

// SessionStorageKey 是打印页从 sessionStorage 读取简历数据的键名。
const SessionStorageKey = "resumeData"

// GateCookieName 是站点门禁 Cookie 的名称。
const GateCookieName = "site_auth"

// PrintSurfacePath 是打印页相对 origin 的路径。
const PrintSurfacePath = "/print"

// Session 是一次渲染会话：一个独占的浏览器进程里打开的一个页面。
// 实现方负责把各步骤的引擎错误归类为本包的错误类型。
type Session interface {
	// SetAuthCookie 在导航前向渲染 origin 注入门禁 Cookie。
	SetAuthCookie(name, value, originURL string) error
	// InjectSessionStorage 在任何页面脚本执行前写入 sessionStorage，
	// 避免超长 URL（431）以及 postMessage 竞态。
	InjectSessionStorage(key string, payload []byte) error
	// Navigate 以 DOM 解析完成为就绪信号导航到打印页。
	Navigate(ctx context.Context, url string) error
	// AwaitRenderReady 依次执行各渲染就绪等待；每步有界且超时后继续。
	AwaitRenderReady(ctx context.Context)
	// CapturePDF 按页面自身的 @page 规则做分页打印捕获。
	CapturePDF(ctx context.Context) ([]byte, error)
	// CaptureScreenshot 截取整理好的画布为 JPEG。
	CaptureScreenshot(ctx context.Context, quality int) ([]byte, error)
	// Close 优雅关闭浏览器，超时则按 PID 强杀。
	Close(ctx context.Context) error
}

// SessionFactory 解析引擎并拉起隔离的浏览器进程。
type SessionFactory interface {
	NewSession(ctx context.Context) (Session, error)
}

// Orchestrator 驱动无头浏览器完成 渲染-等待-打印 的线性状态机。
// 每次调用独占一个浏览器进程，进程随调用结束销毁，不做池化。
type Orchestrator struct {
	factory    SessionFactory
	logger     *slog.Logger
	siteSecret string

	// retryDelay 是瞬态截取失败后的重试间隔，测试中可缩短。
	retryDelay time.Duration
	now        func() time.Time
}

// NewOrchestrator 创建编排器。siteSecret 为空表示部署未启用门禁。
func NewOrchestrator(factory SessionFactory, logger *slog.Logger, siteSecret string) *Orchestrator {
	return &Orchestrator{
		factory:    factory,
		logger:     logger,
		siteSecret: siteSecret,
		retryDelay: 300 * time.Millisecond,
		now:        time.Now,
	}
}

// RenderPDF 将文档渲染为 PDF 产物。origin 是打印页的对外地址。
func (o *Orchestrator) RenderPDF(ctx context.Context, doc *resume.Document, origin string) (*Artifact, error) {
	filename := resume.PDFFilename(doc.Title, o.now())
	return o.render(ctx, doc, origin, filename, "application/pdf", func(ctx context.Context, sess Session) ([]byte, error) {
		return sess.CapturePDF(ctx)
	})
}

// RenderImage 将文档渲染为 JPEG 截图产物。
func (o *Orchestrator) RenderImage(ctx context.Context, doc *resume.Document, origin string) (*Artifact, error) {
	const screenshotQuality = 90
	filename := strings.TrimSuffix(resume.PDFFilename(doc.Title, o.now()), ".pdf") + ".jpg"
	return o.render(ctx, doc, origin, filename, "image/jpeg", func(ctx context.Context, sess Session) ([]byte, error) {
		return sess.CaptureScreenshot(ctx, screenshotQuality)
	})
}

type captureFunc func(ctx context.Context, sess Session) ([]byte, error)

func (o *Orchestrator) render(
	ctx context.Context,
	doc *resume.Document,
	origin string,
	filename string,
	mimeType string,
	capture captureFunc,
) (_ *Artifact, retErr error) {
	origin = strings.TrimRight(strings.TrimSpace(origin), "/")
	if origin == "" {
		return nil, &OriginError{Msg: "cannot resolve render origin"}
	}

	log := o.logger.With(slog.String("origin", origin), slog.String("filename", filename))

	payload, err := o.preparePayload(ctx, doc)
	if err != nil {
		return nil, err
	}

	sess, err := o.factory.NewSession(ctx)
	if err != nil {
		return nil, err
	}
	// 进程销毁必须覆盖所有退出路径，这是整个子系统最主要的资源泄漏点。
	defer func() {
		if err := sess.Close(ctx); err != nil {
			log.Warn("close render session failed", slog.Any("error", err))
		}
	}()

	if o.siteSecret != "" {
		if err := o.injectGateCookie(sess, origin); err != nil {
			// 非致命：继续渲染，未鉴权时后续步骤自然失败。
			log.Warn("auth cookie injection failed, continuing", slog.Any("error", err))
		}
	}

	if err := sess.InjectSessionStorage(SessionStorageKey, payload); err != nil {
		return nil, fmt.Errorf("inject print data: %w", err)
	}

	targetURL := origin + PrintSurfacePath
	log.Info("navigating to print surface", slog.String("url", targetURL))
	if err := sess.Navigate(ctx, targetURL); err != nil {
		return nil, err
	}

	sess.AwaitRenderReady(ctx)

	data, err := capture(ctx, sess)
	if err != nil && IsTransientCapture(err) {
		// 引擎中途导航/崩溃的瞬态失败只重试一次。
		log.Warn("transient capture failure, retrying once", slog.Any("error", err))
		select {
		case <-time.After(o.retryDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		data, err = capture(ctx, sess)
	}
	if err != nil {
		return nil, err
	}

	log.Info("render completed", slog.Int("bytes", len(data)))
	return &Artifact{
		Bytes:             data,
		MIMEType:          mimeType,
		SuggestedFilename: filename,
	}, nil
}

func (o *Orchestrator) injectGateCookie(sess Session, origin string) error {
	token, err := auth.MintGateToken(o.siteSecret, auth.GateTokenTTL)
	if err != nil {
		return &AuthInjectionError{Err: err}
	}
	if err := sess.SetAuthCookie(GateCookieName, token, origin); err != nil {
		return &AuthInjectionError{Err: err}
	}
	return nil
}

// preparePayload 序列化文档并尽力将远端头像内联为 data URL，
// 避免网络或拦截导致的图片缺失。
func (o *Orchestrator) preparePayload(ctx context.Context, doc *resume.Document) ([]byte, error) {
	prepared := *doc
	if prepared.Avatar != "" {
		if inlined, ok := inlineRemoteAvatar(ctx, prepared.Avatar); ok {
			prepared.Avatar = inlined
		}
	}
	payload, err := json.Marshal(&prepared)
	if err != nil {
		return nil, fmt.Errorf("marshal resume data: %w", err)
	}
	return payload, nil
}
