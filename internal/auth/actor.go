package auth

import (
	"context"

	"github.com/AbodeTech/Liquidity-sub001/internal/types"
)

// Actor 经过会话边界认证的操作者
// 引擎信任该身份,自身不做任何凭证校验
type Actor struct {
	ID   string
	Role types.Role
}

// IsAdministrator 是否为管理员
func (a Actor) IsAdministrator() bool {
	return a.Role == types.RoleAdministrator
}

// actorKey context 键类型,避免与其他包冲突
type actorKey struct{}

// WithActor 把操作者写入 context
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext 从 context 读取操作者
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(Actor)
	return actor, ok
}
