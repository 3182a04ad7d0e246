package fallback

import (
	"fmt"
	"log/slog"
	"sync"
)

// State 是一次导出尝试所处的阶段。
type State int

const (
	// StateIdle 表示当前没有进行中的导出尝试。
	StateIdle State = iota
	// StateProbing 正在探测服务端渲染通道。
	StateProbing
	// StateServerRendering 服务端渲染进行中。
	StateServerRendering
	// StateServerSucceeded 服务端渲染完成，产物可取。终态。
	StateServerSucceeded
	// StateClientFallback 已切换到客户端打印路径。
	StateClientFallback
	// StateClientPrintReady 客户端打印页已就绪。终态。
	StateClientPrintReady
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateProbing:
		return "probing"
	case StateServerRendering:
		return "serverRendering"
	case StateServerSucceeded:
		return "serverSucceeded"
	case StateClientFallback:
		return "clientFallback"
	case StateClientPrintReady:
		return "clientPrintReady"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// validTransitions 是显式迁移表。表外迁移一律拒绝，
// 杜绝从终态被晚到事件拉回中间态。
var validTransitions = map[State][]State{
	StateIdle:            {StateProbing},
	StateProbing:         {StateServerRendering, StateClientFallback},
	StateServerRendering: {StateServerSucceeded, StateClientFallback},
	StateClientFallback:  {StateClientPrintReady},
}

// Outcome 是一次成功导出尝试的结果。
type Outcome struct {
	Generation uint64
	// Token 为服务端路径的取件令牌；客户端路径为空。
	Token    string
	Filename string
	State    State
}

// Controller 驱动单个文档的导出降级状态机。
// 每次新的尝试递增代数；旧代数的事件一律丢弃，
// 已有的好结果不会被晚到的失败覆盖。
type Controller struct {
	mu         sync.Mutex
	state      State
	generation uint64
	lastGood   *Outcome
	logger     *slog.Logger
}

// NewController 创建状态机。
func NewController(logger *slog.Logger) *Controller {
	return &Controller{state: StateIdle, logger: logger}
}

// NewAttempt 开始一次新的导出尝试，作废所有在途的旧代数事件。
func (c *Controller) NewAttempt() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.state = StateProbing
	c.logger.Debug("export attempt started",
		slog.Uint64("generation", c.generation))
	return c.generation
}

// State 返回当前状态。
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Generation 返回当前代数。
func (c *Controller) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// LastGood 返回最近一次成功结果，没有则为 nil。
func (c *Controller) LastGood() *Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastGood == nil {
		return nil
	}
	out := *c.lastGood
	return &out
}

// ProbeCompleted 记录探测结论：可用进入服务端渲染，不可用直接降级。
func (c *Controller) ProbeCompleted(gen uint64, available bool) bool {
	next := StateClientFallback
	if available {
		next = StateServerRendering
	}
	return c.transition(gen, next, nil)
}

// ServerSucceeded 记录服务端渲染成功与取件令牌。
func (c *Controller) ServerSucceeded(gen uint64, token, filename string) bool {
	out := &Outcome{Generation: gen, Token: token, Filename: filename, State: StateServerSucceeded}
	return c.transition(gen, StateServerSucceeded, out)
}

// ServerFailed 记录服务端渲染失败，切换到客户端打印路径。
// 同代已有成功结果时晚到的失败被丢弃。
func (c *Controller) ServerFailed(gen uint64) bool {
	return c.transition(gen, StateClientFallback, nil)
}

// ClientPrintReady 记录客户端打印页已就绪。
func (c *Controller) ClientPrintReady(gen uint64) bool {
	out := &Outcome{Generation: gen, State: StateClientPrintReady}
	return c.transition(gen, StateClientPrintReady, out)
}

func (c *Controller) transition(gen uint64, next State, good *Outcome) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		c.logger.Debug("stale export event discarded",
			slog.Uint64("event_generation", gen),
			slog.Uint64("current_generation", c.generation),
			slog.String("target", next.String()))
		return false
	}
	if !allowed(c.state, next) {
		c.logger.Debug("export transition rejected",
			slog.String("from", c.state.String()),
			slog.String("to", next.String()))
		return false
	}

	c.state = next
	if good != nil {
		c.lastGood = good
	}
	return true
}

func allowed(from, to State) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
