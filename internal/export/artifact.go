package export

// Artifact 是一次成功渲染的产物：字节流加交付所需的元信息。
// 生命周期：由编排器或截图器产出，短暂存入带 TTL 的令牌缓存，
// 被结果交付消费一次后即可淘汰。
type Artifact struct {
	Bytes             []byte
	MIMEType          string
	SuggestedFilename string
}
