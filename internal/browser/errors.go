package browser

import (
	"strings"

	"github.com/go-rod/rod/lib/cdp"

	"magicyan/internal/export"
)

// transientMarkers 是引擎进程中途导航或崩溃时 CDP 报错的特征子串。
// 这类失败换一次调用通常就能成功，归为瞬态。
var transientMarkers = []string{
	"target closed",
	"execution context was destroyed",
	"session closed",
	"cannot find context with specified id",
}

// classifyCaptureError 将截取阶段的引擎错误归类为 export.CaptureError，
// 并判定是否瞬态。CDP 错误优先按错误码文本判断，其余按子串兜底。
func classifyCaptureError(err error) *export.CaptureError {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	if cdpErr, ok := err.(*cdp.Error); ok {
		msg = strings.ToLower(cdpErr.Message)
	}
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return &export.CaptureError{Transient: true, Err: err}
		}
	}
	return &export.CaptureError{Err: err}
}
