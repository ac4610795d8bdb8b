// Code scaffolded in the style of goctl. Safe to edit.
package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/zeromicro/go-zero/core/conf"
	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/rest"
	"github.com/zeromicro/go-zero/rest/httpx"

	"github.com/suleymanmyradov/payment-auth-gateway/internal/config"
	"github.com/suleymanmyradov/payment-auth-gateway/internal/gwerrors"
	"github.com/suleymanmyradov/payment-auth-gateway/internal/handler"
	"github.com/suleymanmyradov/payment-auth-gateway/internal/svc"
)

var configFile = flag.String("f", "etc/gateway.yaml", "the config file")

func main() {
	flag.Parse()

	var c config.Config
	conf.MustLoad(*configFile, &c)

	httpx.SetErrorHandlerCtx(errorHandler)

	server := rest.MustNewServer(c.RestConf, rest.WithCors("*"))
	defer server.Stop()

	ctx, err := svc.NewServiceContext(c)
	if err != nil {
		logx.Must(err)
	}
	handler.RegisterHandlers(server, ctx)

	ctx.Scheduler.Start()
	defer ctx.Scheduler.Stop()
	defer ctx.Notifier.Close()

	fmt.Printf("Starting payment auth gateway at %s:%d...\n", c.Host, c.Port)
	server.Start()
}

// errorHandler maps every *gwerrors.Error raised in a handler/logic
// call to the standard {errorCode, message, requestId, timestamp}
// body of spec §7; anything else surfaces as an opaque internal error.
func errorHandler(_ context.Context, err error) (int, any) {
	kind := gwerrors.KindOf(err)
	message := "internal error"
	var gwErr *gwerrors.Error
	if e, ok := err.(*gwerrors.Error); ok {
		gwErr = e
		message = gwErr.Message
	}

	return gwerrors.HTTPStatus(kind), gwerrors.Body{
		ErrorCode: gwerrors.ErrorCode(kind),
		Message:   message,
		RequestID: uuid.NewString(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}
