package browser

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"magicyan/internal/export"
)

// 渲染就绪等待的各步时限。每步超时后继续而不是中断整次渲染。
const (
	navigateTimeout     = 60 * time.Second
	containerTimeout    = 20 * time.Second
	containerGrace      = 500 * time.Millisecond
	networkIdleQuiet    = 300 * time.Millisecond
	networkIdleTimeout  = 10 * time.Second
	richTextTimeout     = 30 * time.Second
	fontsReadyTimeout   = 5 * time.Second
	gracefulCloseWindow = 2 * time.Second
)

// printContainerSelector 是打印页根容器。
const printContainerSelector = ".resume-content"

// Session 包装一个 rod 页面与其独占的浏览器进程，实现 export.Session。
type Session struct {
	launch  *launcher.Launcher
	browser *rod.Browser
	page    *rod.Page
	logger  *slog.Logger

	closeOnce sync.Once
	closeErr  error
}

// SetAuthCookie 在导航前向渲染 origin 注入门禁 Cookie。
func (s *Session) SetAuthCookie(name, value, originURL string) error {
	return s.page.SetCookies([]*proto.NetworkCookieParam{{
		Name:  name,
		Value: value,
		URL:   originURL,
		Path:  "/",
	}})
}

// InjectSessionStorage 注册在任何页面脚本执行前运行的写入脚本。
// 通过 strconv.Quote 保证注入内容的脚本安全。
func (s *Session) InjectSessionStorage(key string, payload []byte) error {
	script := fmt.Sprintf(
		`try { window.sessionStorage.setItem(%s, %s); } catch (e) {}`,
		strconv.Quote(key),
		strconv.Quote(string(payload)),
	)
	_, err := proto.PageAddScriptToEvaluateOnNewDocument{Source: script}.Call(s.page)
	if err != nil {
		return fmt.Errorf("add script to evaluate on new document: %w", err)
	}
	return nil
}

// Navigate 导航到打印页，以 DOM 解析完成（而非 load）为最早就绪信号。
func (s *Session) Navigate(ctx context.Context, url string) error {
	navCtx, cancel := context.WithTimeout(ctx, navigateTimeout)
	defer cancel()

	page := s.page.Context(navCtx)
	wait := page.WaitEvent(&proto.PageDomContentEventFired{})

	if err := page.Navigate(url); err != nil {
		if navCtx.Err() != nil {
			return &export.NavigationTimeoutError{URL: url, Err: navCtx.Err()}
		}
		return fmt.Errorf("navigate: %w", err)
	}

	wait()
	if navCtx.Err() != nil {
		return &export.NavigationTimeoutError{URL: url, Err: navCtx.Err()}
	}
	return nil
}

// AwaitRenderReady 依次等待：根容器出现、网络空闲、富文本叶子节点、
// 字体就绪。每步有界，超时或出错都继续往下走。
func (s *Session) AwaitRenderReady(ctx context.Context) {
	log := s.logger

	// 1. 根打印容器。没等到就稍作停顿继续，避免直接失败。
	if _, err := s.page.Context(ctx).Timeout(containerTimeout).Element(printContainerSelector); err != nil {
		log.Warn("print container did not appear, continuing", slog.Any("error", err))
		time.Sleep(containerGrace)
	}

	// 2. 网络空闲，安静窗口 300ms；超时则退化为固定短延迟。
	idleCtx, cancel := context.WithTimeout(ctx, networkIdleTimeout)
	wait := s.page.Context(idleCtx).WaitRequestIdle(networkIdleQuiet, nil, nil, nil)
	wait()
	if idleCtx.Err() != nil {
		log.Warn("network did not go idle, continuing")
		time.Sleep(networkIdleQuiet)
	}
	cancel()

	// 3. 富文本渲染完成：容器内出现段落/列表/链接等叶子节点。
	if err := s.page.Context(ctx).Timeout(richTextTimeout).Wait(rod.Eval(`() => {
	  const root = document.querySelector('.resume-content');
	  if (!root) return false;
	  return !!root.querySelector('.rich-text p, .rich-text li, .rich-text a, .rich-text span, .resume-module p, .resume-module li');
	}`)); err != nil {
		log.Warn("rich text leaves not detected, continuing", slog.Any("error", err))
	}

	// 4. 等待 WebFont/系统字体就绪，避免回退字体度量导致排版差异。
	if _, err := s.page.Context(ctx).Timeout(fontsReadyTimeout).Eval(`() => {
	  if (document && document.fonts && document.fonts.ready) {
	    return Promise.race([
	      document.fonts.ready.then(() => true),
	      new Promise((resolve) => setTimeout(() => resolve(true), 3000))
	    ]);
	  }
	  return true;
	}`); err != nil {
		log.Warn("document.fonts.ready wait failed, continuing", slog.Any("error", err))
	}
}

// CapturePDF 按页面自身的 @page 规则做分页打印捕获，开启背景图形，
// 不强制边距（避免双重边距产生空白页）。
func (s *Session) CapturePDF(ctx context.Context) ([]byte, error) {
	reader, err := s.page.Context(ctx).PDF(&proto.PagePrintToPDF{
		PrintBackground:   true,
		PreferCSSPageSize: true,
	})
	if err != nil {
		return nil, classifyCaptureError(err)
	}
	defer func() {
		_ = reader.Close()
	}()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, classifyCaptureError(err)
	}
	return data, nil
}

// CaptureScreenshot 优先截取根容器，失败则整页截取。
func (s *Session) CaptureScreenshot(ctx context.Context, quality int) ([]byte, error) {
	page := s.page.Context(ctx)

	if element, err := page.Timeout(5 * time.Second).Element(printContainerSelector); err == nil {
		if data, shotErr := element.Screenshot(proto.PageCaptureScreenshotFormatJpeg, quality); shotErr == nil {
			return data, nil
		}
	}

	data, err := page.Screenshot(true, &proto.PageCaptureScreenshot{
		Format:  proto.PageCaptureScreenshotFormatJpeg,
		Quality: &quality,
	})
	if err != nil {
		return nil, classifyCaptureError(err)
	}
	return data, nil
}

// Close 优雅关闭浏览器进程；窗口内未完成则按 PID 强杀。
// 无论前序步骤成败都必须执行，且只执行一次。
func (s *Session) Close(_ context.Context) error {
	s.closeOnce.Do(func() {
		done := make(chan error, 1)
		go func() {
			if s.page != nil {
				_ = s.page.Close()
			}
			done <- s.browser.Close()
		}()

		select {
		case err := <-done:
			s.closeErr = err
		case <-time.After(gracefulCloseWindow):
			s.logger.Warn("graceful browser close timed out, killing process")
			s.launch.Kill()
			s.closeErr = nil
		}
		s.launch.Cleanup()
	})
	return s.closeErr
}
