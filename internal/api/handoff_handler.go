package api

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"magicyan/internal/api/middleware"
	"magicyan/internal/errcode"
	"magicyan/internal/handoff"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsPingInterval = 30 * time.Second
)

// HandoffHandler 负责交接会话的创建与 WebSocket 中转。
type HandoffHandler struct {
	broker   *handoff.Broker
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// NewHandoffHandler 构造交接处理器。同源校验放行无 Origin 的连接
// （无头浏览器与原生客户端不带 Origin 头）。
func NewHandoffHandler(broker *handoff.Broker, logger *slog.Logger) *HandoffHandler {
	h := &HandoffHandler{broker: broker, logger: logger}
	h.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			u, err := url.Parse(origin)
			if err != nil {
				return false
			}
			return strings.EqualFold(u.Host, r.Host)
		},
	}
	return h
}

// OpenSession 创建一个新的交接会话，返回会话标识与打印页地址。
func (h *HandoffHandler) OpenSession(c *gin.Context) {
	id := h.broker.OpenSession()
	c.JSON(http.StatusOK, gin.H{
		"sessionId":  id,
		"surfaceUrl": "/print?session=" + url.QueryEscape(id),
	})
}

// GetDocument 返回会话上保留的文档，供刷新后的打印页直接拉取。
func (h *HandoffHandler) GetDocument(c *gin.Context) {
	doc, err := h.broker.Document(c.Param("id"))
	if err != nil || doc == nil {
		ErrorWithCode(c, http.StatusNotFound, errcode.HandoffStall, "handoff session has no document")
		return
	}
	c.Data(http.StatusOK, "application/json", doc)
}

// wsPort 把一条 WebSocket 连接适配成交接端口。
// gorilla 的写入不允许并发，用互斥锁串行化。
type wsPort struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (p *wsPort) Send(msg handoff.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_ = p.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return p.conn.WriteJSON(msg)
}

func (p *wsPort) ping() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout))
}

// HandleConnection 升级连接并把两端消息交给中转器。
// role 取 opener 或 surface，session 为已创建的会话标识。
func (h *HandoffHandler) HandleConnection(c *gin.Context) {
	sessionID := c.Query("session")
	role := c.Query("role")
	if sessionID == "" || (role != "opener" && role != "surface") {
		BadRequest(c, "session and role are required")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("upgrade websocket failed", slog.Any("error", err))
		return
	}
	defer conn.Close()

	log := middleware.LoggerFromContext(c).With(
		slog.String("session_id", sessionID),
		slog.String("role", role),
	)

	port := &wsPort{conn: conn}
	if role == "opener" {
		err = h.broker.AttachOpener(sessionID, port)
	} else {
		err = h.broker.AttachSurface(sessionID, port)
	}
	if err != nil {
		log.Warn("attach handoff port failed", slog.Any("error", err))
		_ = port.Send(handoff.Message{Type: handoff.TypeStalled})
		return
	}

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if err := port.ping(); err != nil {
					return
				}
			}
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Info("handoff connection closed", slog.Any("error", err))
			}
			return
		}
		msg, err := handoff.ParseMessage(raw)
		if err != nil {
			log.Warn("invalid handoff message dropped", slog.Any("error", err))
			continue
		}
		if err := h.broker.HandleMessage(sessionID, port, msg); err != nil {
			log.Warn("handoff message rejected", slog.Any("error", err))
		}
	}
}
