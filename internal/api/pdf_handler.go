package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"

	"magicyan/internal/api/middleware"
	"magicyan/internal/artifact"
	"magicyan/internal/errcode"
	"magicyan/internal/export"
	"magicyan/internal/metrics"
	"magicyan/internal/resume"
)

// pdfTokenCookie 是取件令牌 Cookie 的名称。
const pdfTokenCookie = "pdfToken"

// cacheExpiredMessage 与前端取件失败提示保持一致。
const cacheExpiredMessage = "PDF cache expired. Please regenerate."

// 请求体大小上限。简历数据远小于此，超限视为恶意请求。
const maxDocumentBodyBytes = 8 << 20

// documentRenderer 执行一次服务端渲染，产出 PDF 或截图。
type documentRenderer interface {
	RenderPDF(ctx context.Context, doc *resume.Document, origin string) (*export.Artifact, error)
	RenderImage(ctx context.Context, doc *resume.Document, origin string) (*export.Artifact, error)
}

// engineChecker 执行一次最小的引擎健康检查。
type engineChecker interface {
	Check(ctx context.Context) error
}

// PDFHandler 负责渲染产物的生成、取件与引擎健康检查。
type PDFHandler struct {
	renderer      documentRenderer
	checker       engineChecker
	store         artifact.Store
	logger        *slog.Logger
	publicBaseURL string
	cacheTTL      time.Duration
}

// NewPDFHandler 构造 PDF 处理器。
func NewPDFHandler(
	renderer documentRenderer,
	checker engineChecker,
	store artifact.Store,
	logger *slog.Logger,
	publicBaseURL string,
	cacheTTL time.Duration,
) *PDFHandler {
	return &PDFHandler{
		renderer:      renderer,
		checker:       checker,
		store:         store,
		logger:        logger,
		publicBaseURL: publicBaseURL,
		cacheTTL:      cacheTTL,
	}
}

// GeneratePDF 渲染 PDF 并以 303 重定向到取件地址。
// 令牌同时走重定向查询参数与 Cookie 两条路，取件时任一可用。
func (h *PDFHandler) GeneratePDF(c *gin.Context) {
	h.generate(c, h.renderer.RenderPDF)
}

// GenerateImage 渲染 JPEG 截图并直接返回图片字节。
func (h *PDFHandler) GenerateImage(c *gin.Context) {
	log := middleware.LoggerFromContext(c)

	doc, ok := parseDocumentRequest(c)
	if !ok {
		return
	}
	origin := resolveOrigin(c, h.publicBaseURL)

	start := time.Now()
	art, err := h.renderer.RenderImage(c.Request.Context(), doc, origin)
	if err != nil {
		metrics.ObserveRender("failure", time.Since(start))
		h.renderError(c, log, err)
		return
	}
	metrics.ObserveRender("success", time.Since(start))

	c.Header("Content-Disposition", resume.ContentDisposition(art.SuggestedFilename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, art.MIMEType, art.Bytes)
}

func (h *PDFHandler) generate(c *gin.Context, render func(context.Context, *resume.Document, string) (*export.Artifact, error)) {
	log := middleware.LoggerFromContext(c)

	doc, ok := parseDocumentRequest(c)
	if !ok {
		return
	}
	origin := resolveOrigin(c, h.publicBaseURL)

	start := time.Now()
	art, err := render(c.Request.Context(), doc, origin)
	if err != nil {
		metrics.ObserveRender("failure", time.Since(start))
		h.renderError(c, log, err)
		return
	}
	metrics.ObserveRender("success", time.Since(start))

	token, err := artifact.NewToken()
	if err != nil {
		log.Error("generate retrieval token failed", slog.Any("error", err))
		Internal(c, "failed to store rendered document")
		return
	}
	entry := artifact.Entry{
		Bytes:     art.Bytes,
		MIMEType:  art.MIMEType,
		Filename:  art.SuggestedFilename,
		CreatedAt: time.Now(),
	}
	if err := h.store.Put(c.Request.Context(), token, entry); err != nil {
		log.Error("store rendered document failed", slog.Any("error", err))
		Internal(c, "failed to store rendered document")
		return
	}

	maxAge := int(h.cacheTTL.Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(pdfTokenCookie, token, maxAge, "/api/pdf", "", false, true)

	location := "/api/pdf/" + url.PathEscape(art.SuggestedFilename) + "?token=" + url.QueryEscape(token)
	log.Info("pdf rendered and cached", slog.String("filename", art.SuggestedFilename))
	c.Redirect(http.StatusSeeOther, location)
}

// RetrievePDF 按令牌取回渲染产物。令牌优先取查询参数，其次取 Cookie。
func (h *PDFHandler) RetrievePDF(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		if cookie, err := c.Cookie(pdfTokenCookie); err == nil {
			token = cookie
		}
	}
	if token == "" {
		ErrorWithCode(c, http.StatusNotFound, errcode.CacheExpired, cacheExpiredMessage)
		return
	}

	entry, err := h.store.Get(c.Request.Context(), token)
	if errors.Is(err, artifact.ErrNotFound) {
		ErrorWithCode(c, http.StatusNotFound, errcode.CacheExpired, cacheExpiredMessage)
		return
	}
	if err != nil {
		middleware.LoggerFromContext(c).Error("fetch cached document failed", slog.Any("error", err))
		Internal(c, "failed to fetch cached document")
		return
	}

	c.Header("Content-Disposition", resume.ContentDisposition(entry.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, entry.MIMEType, entry.Bytes)
}

// Health 做一次最小的引擎 启动+销毁 循环。
func (h *PDFHandler) Health(c *gin.Context) {
	if err := h.checker.Check(c.Request.Context()); err != nil {
		middleware.LoggerFromContext(c).Warn("render engine health check failed", slog.Any("error", err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// parseDocumentRequest 解析请求中的简历文档：JSON 请求体直读，
// 表单请求取 resumeData 字段。解析或校验失败返回 400。
func parseDocumentRequest(c *gin.Context) (*resume.Document, bool) {
	var raw []byte

	if value := c.PostForm("resumeData"); value != "" {
		raw = []byte(value)
	} else {
		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxDocumentBodyBytes))
		if err != nil {
			BadRequest(c, "failed to read request body")
			return nil, false
		}
		raw = body
	}
	if len(raw) == 0 {
		BadRequest(c, "resume data is required")
		return nil, false
	}

	var doc resume.Document
	if err := json.Unmarshal(unwrapDocumentPayload(raw), &doc); err != nil {
		BadRequest(c, "invalid resume data")
		return nil, false
	}
	if err := doc.Validate(); err != nil {
		BadRequest(c, err.Error())
		return nil, false
	}
	return &doc, true
}

// unwrapDocumentPayload 兼容 {"resumeData": {...}} 包装形式的请求体：
// 包装字段存在则取其内容，否则按文档 JSON 直读。
func unwrapDocumentPayload(raw []byte) []byte {
	var envelope struct {
		ResumeData json.RawMessage `json:"resumeData"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil &&
		len(envelope.ResumeData) > 0 && string(envelope.ResumeData) != "null" {
		return envelope.ResumeData
	}
	return raw
}

func (h *PDFHandler) renderError(c *gin.Context, log *slog.Logger, err error) {
	switch {
	case export.IsEngineUnavailable(err):
		log.Warn("render engine unavailable", slog.Any("error", err))
		// 错误文本点明缺失的可执行文件与对应的环境变量。
		Error(c, http.StatusServiceUnavailable, err.Error())
	default:
		log.Error("server render failed", slog.Any("error", err))
		Internal(c, "failed to render document")
	}
}
