package auth

import "context"

// Identity 是通过鉴权的调用方。
// 字段直接来自 token 载荷，请求期间不会回查用户表：改名或停用账号后，
// 旧 token 在过期前仍然携带旧的 Email/Name。
type Identity struct {
	UserID string
	Email  string
	Name   string
}

type identityKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func GetIdentity(ctx context.Context) (Identity, bool) {
	v := ctx.Value(identityKey{})
	id, ok := v.(Identity)
	return id, ok
}

// CallerID 返回调用方用户 ID，匿名时为 ""
func CallerID(ctx context.Context) string {
	id, _ := GetIdentity(ctx)
	return id.UserID
}
