package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"magicyan/internal/api/middleware"
	"magicyan/internal/render"
)

// RenderHandler 负责打印页外壳与简历画布片段的渲染。
type RenderHandler struct {
	logger *slog.Logger
}

// NewRenderHandler 构造渲染处理器。
func NewRenderHandler(logger *slog.Logger) *RenderHandler {
	return &RenderHandler{logger: logger}
}

// PrintSurface 返回打印页外壳。页面脚本自行取数并回填画布。
func (h *RenderHandler) PrintSurface(c *gin.Context) {
	page, err := render.PrintShellPage("简历打印")
	if err != nil {
		middleware.LoggerFromContext(c).Error("render print shell failed", slog.Any("error", err))
		Internal(c, "failed to render print page")
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
}

// RenderFragment 将文档渲染为简历画布的 HTML 片段。
func (h *RenderHandler) RenderFragment(c *gin.Context) {
	doc, ok := parseDocumentRequest(c)
	if !ok {
		return
	}
	fragment, err := render.RenderFragment(doc)
	if err != nil {
		middleware.LoggerFromContext(c).Error("render resume fragment failed", slog.Any("error", err))
		Internal(c, "failed to render resume")
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(fragment))
}
