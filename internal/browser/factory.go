package browser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"magicyan/internal/export"
)

// 固定视口与像素密度，保证栅格化输出与打印尺寸一致。
const (
	viewportWidth      = 1200
	viewportHeight     = 1600
	deviceScaleFactor  = 2.0
	browserConnTimeout = 90 * time.Second
)

// Factory 负责解析浏览器可执行文件并拉起隔离的无头进程。
// 实现 export.SessionFactory。
type Factory struct {
	// ExecutablePath 为显式覆盖路径，优先于自动探测。
	ExecutablePath string
	Logger         *slog.Logger
}

// NewFactory 创建会话工厂。
func NewFactory(executablePath string, logger *slog.Logger) *Factory {
	return &Factory{ExecutablePath: executablePath, Logger: logger}
}

// ResolveExecutable 返回生效的浏览器可执行文件路径。
// 显式覆盖优先；否则探测系统已安装的浏览器。
func (f *Factory) ResolveExecutable() (string, error) {
	if f.ExecutablePath != "" {
		return f.ExecutablePath, nil
	}
	if path, ok := launcher.LookPath(); ok {
		return path, nil
	}
	return "", &export.EngineUnavailableError{Hint: "no browser executable found (set ENGINE_PATH)"}
}

// NewSession 启动一个独占的无头浏览器进程并打开空白页。
// 每次渲染独占一个进程：并发导出各自拉起进程，不做池化/排队，
// 高并发下的资源耗尽是已知的运维约束。
func (f *Factory) NewSession(ctx context.Context) (export.Session, error) {
	path, err := f.ResolveExecutable()
	if err != nil {
		return nil, err
	}

	launch := launcher.New().
		Headless(true).
		NoSandbox(true).
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Bin(path)

	controlURL, err := launch.Launch()
	if err != nil {
		launch.Cleanup()
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx).Timeout(browserConnTimeout)
	if err := browser.Connect(); err != nil {
		launch.Kill()
		launch.Cleanup()
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = browser.Close()
		launch.Kill()
		launch.Cleanup()
		return nil, fmt.Errorf("create page: %w", err)
	}

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             viewportWidth,
		Height:            viewportHeight,
		DeviceScaleFactor: deviceScaleFactor,
	}); err != nil {
		_ = browser.Close()
		launch.Kill()
		launch.Cleanup()
		return nil, fmt.Errorf("set viewport: %w", err)
	}

	if err := (proto.EmulationSetEmulatedMedia{Media: "print"}).Call(page); err != nil {
		_ = browser.Close()
		launch.Kill()
		launch.Cleanup()
		return nil, fmt.Errorf("set emulated media to print: %w", err)
	}

	return &Session{
		launch:  launch,
		browser: browser,
		page:    page,
		logger:  f.Logger,
	}, nil
}

// Check 做一次最小的 启动+销毁 循环，供健康检查使用。
func (f *Factory) Check(ctx context.Context) error {
	sess, err := f.NewSession(ctx)
	if err != nil {
		return err
	}
	return sess.Close(ctx)
}
