package export

import (
	"errors"
	"fmt"
)

// EngineUnavailableError 表示无法解析到可用的浏览器可执行文件，
// 在边界层映射为 503。
type EngineUnavailableError struct {
	Hint string
}

func (e *EngineUnavailableError) Error() string {
	if e.Hint == "" {
		return "render engine executable not found (set ENGINE_PATH)"
	}
	return "render engine executable not found: " + e.Hint
}

// IsEngineUnavailable 判断错误是否属于引擎不可用。
func IsEngineUnavailable(err error) bool {
	var target *EngineUnavailableError
	return errors.As(err, &target)
}

// NavigationTimeoutError 表示导航未在限定时间内到达 DOM 解析完成。
type NavigationTimeoutError struct {
	URL string
	Err error
}

func (e *NavigationTimeoutError) Error() string {
	return fmt.Sprintf("navigate %s: %v", e.URL, e.Err)
}

func (e *NavigationTimeoutError) Unwrap() error { return e.Err }

// CaptureError 表示截取 PDF/截图失败。Transient 的分类由引擎层
// （internal/browser）一次性完成，编排层只看这个标记决定是否重试。
type CaptureError struct {
	Transient bool
	Err       error
}

func (e *CaptureError) Error() string { return fmt.Sprintf("capture: %v", e.Err) }

func (e *CaptureError) Unwrap() error { return e.Err }

// IsTransientCapture 判断错误是否属于可重试一次的瞬态截取失败。
func IsTransientCapture(err error) bool {
	var capErr *CaptureError
	return errors.As(err, &capErr) && capErr.Transient
}

// AuthInjectionError 表示门禁 Cookie 注入失败。非致命：渲染继续，
// 后续可能因未鉴权而失败。
type AuthInjectionError struct {
	Err error
}

func (e *AuthInjectionError) Error() string { return fmt.Sprintf("inject auth cookie: %v", e.Err) }

func (e *AuthInjectionError) Unwrap() error { return e.Err }

// OriginError 表示无法从请求推导出打印页自身的地址，
// 在引擎启动前即失败，避免白白拉起进程。
type OriginError struct {
	Msg string
}

func (e *OriginError) Error() string { return e.Msg }
