package artifact

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrNotFound 表示令牌不存在或产物已过期。两种情况对外不可区分。
var ErrNotFound = errors.New("artifact not found or expired")

// Entry 是一份待取的渲染产物。
type Entry struct {
	Bytes     []byte
	MIMEType  string
	Filename  string
	CreatedAt time.Time
}

// Store 是一次性产物缓存。产物按令牌存取，过期即消失。
type Store interface {
	Put(ctx context.Context, token string, entry Entry) error
	Get(ctx context.Context, token string) (Entry, error)
	Delete(ctx context.Context, token string) error
}

// NewToken 生成不可猜测的取件令牌：16 字节随机数加毫秒时间戳。
func NewToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(buf) + strconv.FormatInt(time.Now().UnixMilli(), 36), nil
}

type memoryEntry struct {
	entry     Entry
	expiresAt time.Time
}

// MemoryStore 是进程内的产物缓存，重启即失效。
// 单实例部署的默认选择。
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time

	sweeper *cron.Cron
	logger  *slog.Logger
}

// NewMemoryStore 创建内存缓存。ttl 是产物从写入到过期的时长。
func NewMemoryStore(ttl time.Duration, logger *slog.Logger) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
		logger:  logger,
	}
}

// StartSweeper 启动周期清扫，回收已过期的产物内存。
// 读取路径本身把过期视为不存在，清扫只是兜底释放。
func (s *MemoryStore) StartSweeper() error {
	if s.sweeper != nil {
		return nil
	}
	c := cron.New()
	if _, err := c.AddFunc("@every 1m", s.sweep); err != nil {
		return fmt.Errorf("register artifact sweeper: %w", err)
	}
	c.Start()
	s.sweeper = c
	return nil
}

// StopSweeper 停止清扫任务。
func (s *MemoryStore) StopSweeper() {
	if s.sweeper != nil {
		s.sweeper.Stop()
		s.sweeper = nil
	}
}

func (s *MemoryStore) sweep() {
	now := s.now()
	s.mu.Lock()
	removed := 0
	for token, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, token)
			removed++
		}
	}
	remaining := len(s.entries)
	s.mu.Unlock()
	if removed > 0 {
		s.logger.Debug("swept expired artifacts",
			slog.Int("removed", removed),
			slog.Int("remaining", remaining))
	}
}

func (s *MemoryStore) Put(_ context.Context, token string, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[token] = memoryEntry{entry: entry, expiresAt: s.now().Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, token string) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[token]
	if !ok || s.now().After(e.expiresAt) {
		delete(s.entries, token)
		return Entry{}, ErrNotFound
	}
	return e.entry, nil
}

func (s *MemoryStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, token)
	return nil
}
