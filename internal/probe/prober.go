package probe

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Override 强制探测结论，跳过真实探测。用于部署级开关与演练。
type Override int

const (
	// OverrideNone 不干预，走真实探测与缓存。
	OverrideNone Override = iota
	// OverrideAvailable 无条件视为可用。
	OverrideAvailable
	// OverrideUnavailable 无条件视为不可用。
	OverrideUnavailable
)

// AvailabilityRecord 是一次探测的结论与时间。
type AvailabilityRecord struct {
	OK        bool
	CheckedAt time.Time
}

// Prober 判定服务端渲染通道当前是否可用。
// 结论短期缓存，探测失败不是错误而是"不可用"的结论，Probe 永不返回 error。
type Prober struct {
	healthURL string
	client    *http.Client
	cacheTTL  time.Duration
	override  Override
	logger    *slog.Logger
	now       func() time.Time

	mu     sync.Mutex
	cached *AvailabilityRecord
}

// New 创建探测器。healthURL 是渲染通道的健康检查地址。
func New(healthURL string, timeout, cacheTTL time.Duration, override Override, logger *slog.Logger) *Prober {
	return &Prober{
		healthURL: healthURL,
		client:    &http.Client{Timeout: timeout},
		cacheTTL:  cacheTTL,
		override:  override,
		logger:    logger,
		now:       time.Now,
	}
}

// Probe 返回渲染通道是否可用。强制开关优先；否则命中缓存直接返回，
// 未命中才发起一次有界的健康请求。
func (p *Prober) Probe(ctx context.Context) bool {
	switch p.override {
	case OverrideAvailable:
		return true
	case OverrideUnavailable:
		return false
	}

	p.mu.Lock()
	if p.cached != nil && p.now().Sub(p.cached.CheckedAt) < p.cacheTTL {
		ok := p.cached.OK
		p.mu.Unlock()
		return ok
	}
	p.mu.Unlock()

	ok := p.check(ctx)

	p.mu.Lock()
	p.cached = &AvailabilityRecord{OK: ok, CheckedAt: p.now()}
	p.mu.Unlock()
	return ok
}

// ForceRefresh 丢弃缓存结论，下一次 Probe 重新探测。
func (p *Prober) ForceRefresh() {
	p.mu.Lock()
	p.cached = nil
	p.mu.Unlock()
}

// Last 返回最近一次探测记录，没有则返回 nil。
func (p *Prober) Last() *AvailabilityRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cached == nil {
		return nil
	}
	rec := *p.cached
	return &rec
}

func (p *Prober) check(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.healthURL, nil)
	if err != nil {
		p.logger.Warn("build probe request failed", slog.Any("error", err))
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Info("render channel probe failed", slog.Any("error", err))
		return false
	}
	defer resp.Body.Close()

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	if !ok {
		p.logger.Info("render channel unhealthy", slog.Int("status", resp.StatusCode))
	}
	return ok
}
