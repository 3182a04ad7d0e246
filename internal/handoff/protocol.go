package handoff

import (
	"encoding/json"
	"fmt"
)

// 跨上下文交接协议的消息类型。
const (
	// TypeReady 由打印页发出，表示其脚本已就绪、可以接收文档。
	TypeReady = "ready"
	// TypeDocumentData 携带完整文档负载，由发起方提交、由服务端转发给打印页。
	TypeDocumentData = "documentData"
	// TypeStalled 由服务端发给发起方：打印页超时未就绪。
	TypeStalled = "stalled"
)

// Message 是交接通道上的区分联合体。Payload 只在 documentData 上出现。
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ParseMessage 解析并校验一条入站消息。未知类型与缺失负载都被拒绝，
// 不会透传给对端。
func ParseMessage(raw []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return Message{}, fmt.Errorf("decode handoff message: %w", err)
	}
	switch msg.Type {
	case TypeReady:
		return Message{Type: TypeReady}, nil
	case TypeDocumentData:
		if len(msg.Payload) == 0 {
			return Message{}, fmt.Errorf("documentData message without payload")
		}
		return msg, nil
	default:
		return Message{}, fmt.Errorf("unknown handoff message type %q", msg.Type)
	}
}
