package constants

import "time"

// 缓存相关常量
const (
	// 签名缓存：按 (sessionId, model) 保存最近一次 thought/tool 签名
	SignatureCacheTTL      = 30 * time.Minute
	SignatureCacheCapacity = 256

	// 工具名缓存：sanitized → original
	ToolNameCacheTTL      = 30 * time.Minute
	ToolNameCacheCapacity = 512

	// 周期性 TTL 清扫间隔
	CacheSweepInterval = 10 * time.Minute

	// 模型列表缓存的动态 TTL 上限
	ModelListTTLHighPressure     = 15 * time.Minute
	ModelListTTLCriticalPressure = 5 * time.Minute

	// 账号文件读缓存（合并突发读取）
	AccountFileReadCacheTTL = 1 * time.Second
)

// 对象池容量，按压力等级索引：行缓冲 / 工具调用骨架 / 流式块骨架
var (
	LineBufferPoolCaps = [4]int{30, 20, 10, 5}
	ToolCallPoolCaps   = [4]int{15, 10, 5, 3}
	ChunkPoolCaps      = [4]int{5, 3, 2, 1}
)
