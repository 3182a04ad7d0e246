package api

import (
	"github.com/gin-gonic/gin"

	"magicyan/internal/api/middleware"
)

// Handlers 聚合路由需要的全部处理器。
type Handlers struct {
	PDF     *PDFHandler
	Export  *ExportHandler
	Render  *RenderHandler
	Handoff *HandoffHandler
	File    *FileHandler
}

// RegisterRoutes 注册全部业务路由。
// siteSecret 非空时打印页启用门禁；健康与指标端点始终放行。
func RegisterRoutes(router *gin.Engine, h Handlers, siteSecret string) {
	// 打印页是无头浏览器与降级打印共用的渲染面。
	router.GET("/print", middleware.SiteGateMiddleware(siteSecret), h.Render.PrintSurface)

	apiGroup := router.Group("/api")
	{
		// /api/pdf/health 与 /api/pdf/:filename 在同一段上，
		// Gin 的路由树不允许静态段与参数段并存，在处理器里分流。
		apiGroup.GET("/pdf/:filename", func(c *gin.Context) {
			if c.Param("filename") == "health" {
				h.PDF.Health(c)
				return
			}
			h.PDF.RetrievePDF(c)
		})
		apiGroup.POST("/pdf/:filename", h.PDF.GeneratePDF)
		apiGroup.POST("/image/:filename", h.PDF.GenerateImage)
	}

	v1 := router.Group("/v1")
	{
		v1.POST("/render", h.Render.RenderFragment)
		v1.POST("/export", h.Export.Export)

		v1.POST("/handoff", h.Handoff.OpenSession)
		// /v1/handoff/ws 与 /v1/handoff/:id 同段，同样在处理器里分流。
		v1.GET("/handoff/:id", func(c *gin.Context) {
			if c.Param("id") == "ws" {
				h.Handoff.HandleConnection(c)
				return
			}
			h.Handoff.GetDocument(c)
		})

		resumeGroup := v1.Group("/resume")
		{
			resumeGroup.POST("/export", h.File.ExportFile)
			resumeGroup.POST("/import", h.File.ImportFile)
		}
	}
}
