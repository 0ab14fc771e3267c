package main

import (
	"flag"
	"fmt"

	"MarketLink/app/services/sync/internal/bootstrap"
	"MarketLink/app/services/sync/internal/config"
	"MarketLink/app/services/sync/internal/handler"
	"MarketLink/app/services/sync/internal/svc"

	"github.com/zeromicro/go-zero/core/conf"
	"github.com/zeromicro/go-zero/rest"
)

var configFile = flag.String("f", "etc/sync.yaml", "the config file")

func main() {
	flag.Parse()

	var c config.Config
	conf.MustLoad(*configFile, &c)

	ctx := svc.NewServiceContext(c)

	server := rest.MustNewServer(c.RestConf)
	defer server.Stop()
	handler.RegisterHandlers(server, ctx)

	stopAsynq := bootstrap.StartAsynq(ctx)
	defer stopAsynq()

	stopScheduler := bootstrap.StartScheduler(ctx)
	defer stopScheduler()

	fmt.Printf("Starting server at %s:%d...\n", c.Host, c.Port)
	server.Start()
}
