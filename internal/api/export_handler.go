package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"magicyan/internal/api/middleware"
	"magicyan/internal/export"
)

// ExportHandler 负责完整的导出决策端点：探测、服务端渲染、失败降级。
type ExportHandler struct {
	service       *export.Service
	logger        *slog.Logger
	publicBaseURL string
}

// NewExportHandler 构造导出处理器。
func NewExportHandler(service *export.Service, logger *slog.Logger, publicBaseURL string) *ExportHandler {
	return &ExportHandler{service: service, logger: logger, publicBaseURL: publicBaseURL}
}

// Export 执行一次导出尝试。服务端路径返回取件令牌，
// 降级路径返回打印页地址与操作提示，两种情况都是 200。
func (h *ExportHandler) Export(c *gin.Context) {
	log := middleware.LoggerFromContext(c)

	doc, ok := parseDocumentRequest(c)
	if !ok {
		return
	}
	origin := resolveOrigin(c, h.publicBaseURL)

	result, err := h.service.Export(c.Request.Context(), doc, origin)
	if err != nil {
		log.Error("export attempt failed", slog.Any("error", err))
		Internal(c, "export failed")
		return
	}
	c.JSON(http.StatusOK, result)
}
