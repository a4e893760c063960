package service

import (
	"context"
	stdhttp "net/http"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/transport/http"
	"github.com/google/wire"
)

// ProviderSet is service providers.
var ProviderSet = wire.NewSet(NewSlotService)

// Reply 统一响应，code 为 0 表示成功
type Reply struct {
	Code    int32  `json:"code"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func ok(data any) *Reply {
	return &Reply{Code: 0, Message: "success", Data: data}
}

// fail 业务错误以 200 返回，code 取 kratos 错误码
func fail(err error) *Reply {
	e := errors.FromError(err)
	return &Reply{Code: e.Code, Reason: e.Reason, Message: e.Message}
}

// handle 绑定请求并经过中间件链执行 fn；GET 从 query 绑定
func handle[Req any](operation string, fn func(context.Context, *Req) (*Reply, error)) http.HandlerFunc {
	return func(ctx http.Context) error {
		var in Req
		bind := ctx.Bind
		if ctx.Request().Method == stdhttp.MethodGet {
			bind = ctx.BindQuery
		}
		if err := bind(&in); err != nil {
			return err
		}
		http.SetOperation(ctx, operation)
		h := ctx.Middleware(func(c context.Context, req any) (any, error) {
			return fn(c, req.(*Req))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		return ctx.Result(stdhttp.StatusOK, out)
	}
}
