package errcode

// 错误码约定：
// - 0：无错误
// - 4xxx：业务可恢复/告警类错误（例如缓存过期需重新生成）
// - 5xxx：系统错误（需要中断流程）
const (
	OK           = 0
	CacheExpired = 4041
	HandoffStall = 4081
	SystemError  = 5000
)
