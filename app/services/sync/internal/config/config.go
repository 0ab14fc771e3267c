package config

import (
	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/stores/cache"
	"github.com/zeromicro/go-zero/core/stores/redis"
	"github.com/zeromicro/go-zero/core/stores/sqlx"
	"github.com/zeromicro/go-zero/rest"
)

type Config struct {
	rest.RestConf

	MysqlConf sqlx.SqlConf
	RedisConf redis.RedisConf
	CacheConf cache.CacheConf

	AsynqConf       AsynqRedisConf
	AsynqServerConf AsynqServerConf

	KafkaConf KafkaConf
	FlowsConf FlowsConf

	LogConf logx.LogConf

	// DebounceSeconds is the window between the first admitted webhook and
	// the scheduled drain.
	DebounceSeconds int `json:",default=15"`
	BatchSize       int `json:",default=100"`

	CatalogSyncSpec string `json:",default=@every 6h"`
	CleanupSpec     string `json:",default=@every 24h"`

	SnowflakeNode int64 `json:",optional"`
}

type AsynqRedisConf struct {
	Addr string `json:",optional"`
}

type AsynqServerConf struct {
	Concurrency int
	Queues      map[string]int
}

type KafkaConf struct {
	Broker        []string `json:",optional"`
	ProductsTopic string   `json:",optional"`
}

type FlowsConf struct {
	BaseUrl string `json:",optional"`
	Token   string `json:",optional"`
}
