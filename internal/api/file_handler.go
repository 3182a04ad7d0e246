package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"magicyan/internal/api/middleware"
	"magicyan/internal/resume"
)

// 简历文件的下载扩展名与媒体类型。
const (
	resumeFileExtension = ".magicyan"
	resumeFileMIMEType  = "application/json"
)

// FileHandler 负责简历文件的导出与导入。
type FileHandler struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewFileHandler 构造文件处理器。
func NewFileHandler(logger *slog.Logger) *FileHandler {
	return &FileHandler{logger: logger, now: time.Now}
}

// ExportFile 把请求中的文档打包成带版本信封的简历文件。
func (h *FileHandler) ExportFile(c *gin.Context) {
	doc, ok := parseDocumentRequest(c)
	if !ok {
		return
	}

	content, err := resume.ExportFile(*doc, h.now())
	if err != nil {
		var validationErr *resume.ValidationError
		if errors.As(err, &validationErr) {
			BadRequest(c, validationErr.Error())
			return
		}
		middleware.LoggerFromContext(c).Error("export resume file failed", slog.Any("error", err))
		Internal(c, "failed to export resume file")
		return
	}

	filename := strings.TrimSuffix(resume.PDFFilename(doc.Title, h.now()), ".pdf") + resumeFileExtension
	c.Header("Content-Disposition", resume.ContentDisposition(filename))
	c.Data(http.StatusOK, resumeFileMIMEType, content)
}

// ImportFile 解析上传的简历文件并返回规整后的文档。
// 旧版文件格式在这里完成布局兼容升级。
func (h *FileHandler) ImportFile(c *gin.Context) {
	content, ok := h.readUpload(c)
	if !ok {
		return
	}

	doc, err := resume.ImportFile(content, h.now())
	if err != nil {
		var validationErr *resume.ValidationError
		if errors.As(err, &validationErr) {
			BadRequest(c, validationErr.Error())
			return
		}
		middleware.LoggerFromContext(c).Warn("import resume file failed", slog.Any("error", err))
		BadRequest(c, "invalid resume file")
		return
	}
	c.JSON(http.StatusOK, doc)
}

// readUpload 读取上传内容：multipart 的 file 字段优先，否则取请求体。
func (h *FileHandler) readUpload(c *gin.Context) ([]byte, bool) {
	if file, err := c.FormFile("file"); err == nil {
		f, err := file.Open()
		if err != nil {
			BadRequest(c, "failed to read uploaded file")
			return nil, false
		}
		defer f.Close()
		content, err := io.ReadAll(io.LimitReader(f, maxDocumentBodyBytes))
		if err != nil {
			BadRequest(c, "failed to read uploaded file")
			return nil, false
		}
		return content, true
	}

	content, err := io.ReadAll(io.LimitReader(c.Request.Body, maxDocumentBodyBytes))
	if err != nil || len(content) == 0 {
		BadRequest(c, "resume file is required")
		return nil, false
	}
	return content, true
}
