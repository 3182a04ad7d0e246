package handoff

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// 会话生命周期参数。文档在整个会话存续期内保留，
// 打印页刷新后重连仍能拿到同一份数据。
const (
	// ReadyTimeout 是发起方提交文档后等待打印页就绪的窗口。
	ReadyTimeout = 5 * time.Second
	// SessionTTL 是交接会话的总存续时长。
	SessionTTL = 10 * time.Minute
)

// ErrSessionNotFound 表示会话不存在或已过期。
var ErrSessionNotFound = errors.New("handoff session not found or expired")

// ErrUnauthorizedSender 表示消息来自未登记的端口，已被丢弃。
var ErrUnauthorizedSender = errors.New("handoff message from unregistered port")

// Port 是交接通道的一端。实现方负责传输细节（WebSocket、测试信道）。
type Port interface {
	Send(msg Message) error
}

type session struct {
	id        string
	opener    Port
	surface   Port
	doc       []byte
	readySeen bool

	readyTimer *time.Timer
	expiry     *time.Timer
}

// Broker 在发起方与打印页之间中转交接会话。
// 只转发协议内的消息类型，且只接受已登记端口发来的消息。
type Broker struct {
	mu       sync.Mutex
	sessions map[string]*session
	logger   *slog.Logger

	readyTimeout time.Duration
	sessionTTL   time.Duration
}

// NewBroker 创建交接中转器。
func NewBroker(logger *slog.Logger) *Broker {
	return &Broker{
		sessions:     make(map[string]*session),
		logger:       logger,
		readyTimeout: ReadyTimeout,
		sessionTTL:   SessionTTL,
	}
}

// OpenSession 创建一个新的交接会话并返回其标识。
func (b *Broker) OpenSession() string {
	id := uuid.NewString()
	s := &session{id: id}

	b.mu.Lock()
	b.sessions[id] = s
	b.mu.Unlock()

	s.expiry = time.AfterFunc(b.sessionTTL, func() { b.expire(id) })
	b.logger.Debug("handoff session opened", slog.String("session_id", id))
	return id
}

// AttachOpener 将发起方端口挂到会话上，并启动就绪等待窗口。
func (b *Broker) AttachOpener(id string, p Port) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	s.opener = p
	if s.readyTimer == nil && !s.readySeen {
		s.readyTimer = time.AfterFunc(b.readyTimeout, func() { b.readyTimedOut(id) })
	}
	return nil
}

// AttachSurface 将打印页端口挂到会话上。刷新重连会替换旧端口；
// 旧端口随后发来的消息会因身份不符被丢弃。
func (b *Broker) AttachSurface(id string, p Port) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	s.surface = p
	return nil
}

// HandleMessage 处理某端口在会话上发来的一条消息。
// 发送端口必须与会话上登记的端口一致，否则丢弃。
func (b *Broker) HandleMessage(id string, from Port, msg Message) error {
	b.mu.Lock()
	s, ok := b.sessions[id]
	if !ok {
		b.mu.Unlock()
		return ErrSessionNotFound
	}

	switch msg.Type {
	case TypeReady:
		if from != s.surface {
			b.mu.Unlock()
			b.logger.Warn("ready signal from unregistered port dropped", slog.String("session_id", id))
			return ErrUnauthorizedSender
		}
		s.readySeen = true
		if s.readyTimer != nil {
			s.readyTimer.Stop()
		}
		doc := s.doc
		opener := s.opener
		surface := s.surface
		b.mu.Unlock()

		if doc != nil {
			if err := surface.Send(Message{Type: TypeDocumentData, Payload: doc}); err != nil {
				b.logger.Warn("deliver document to surface failed", slog.String("session_id", id), slog.Any("error", err))
			}
		}
		if opener != nil {
			_ = opener.Send(Message{Type: TypeReady})
		}
		return nil

	case TypeDocumentData:
		if from != s.opener {
			b.mu.Unlock()
			b.logger.Warn("document payload from unregistered port dropped", slog.String("session_id", id))
			return ErrUnauthorizedSender
		}
		s.doc = msg.Payload
		surface := s.surface
		ready := s.readySeen
		b.mu.Unlock()

		if ready && surface != nil {
			if err := surface.Send(Message{Type: TypeDocumentData, Payload: msg.Payload}); err != nil {
				b.logger.Warn("forward document to surface failed", slog.String("session_id", id), slog.Any("error", err))
			}
		}
		return nil

	default:
		b.mu.Unlock()
		return ErrUnauthorizedSender
	}
}

// Document 返回会话上保留的文档负载，供刷新后的打印页直接拉取。
func (b *Broker) Document(id string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s.doc, nil
}

func (b *Broker) readyTimedOut(id string) {
	b.mu.Lock()
	s, ok := b.sessions[id]
	if !ok || s.readySeen {
		b.mu.Unlock()
		return
	}
	opener := s.opener
	// 通知后摘掉发起方端口，后续就绪信号不再回送。
	s.opener = nil
	b.mu.Unlock()

	b.logger.Info("print surface did not become ready in time", slog.String("session_id", id))
	if opener != nil {
		_ = opener.Send(Message{Type: TypeStalled})
	}
}

func (b *Broker) expire(id string) {
	b.mu.Lock()
	s, ok := b.sessions[id]
	if ok {
		if s.readyTimer != nil {
			s.readyTimer.Stop()
		}
		delete(b.sessions, id)
	}
	b.mu.Unlock()
	if ok {
		b.logger.Debug("handoff session expired", slog.String("session_id", id))
	}
}

// CloseSession 立即回收会话。
func (b *Broker) CloseSession(id string) {
	b.mu.Lock()
	s, ok := b.sessions[id]
	if ok {
		if s.readyTimer != nil {
			s.readyTimer.Stop()
		}
		if s.expiry != nil {
			s.expiry.Stop()
		}
		delete(b.sessions, id)
	}
	b.mu.Unlock()
}
