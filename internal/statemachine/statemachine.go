package statemachine

import (
	"github.com/AbodeTech/Liquidity-sub001/internal/errs"
	"github.com/AbodeTech/Liquidity-sub001/internal/types"
)

// transition 一条合法的状态转换边
type transition struct {
	from types.ApplicationStatus
	to   types.ApplicationStatus
}

// transitions 申请生命周期状态机
// submitted -> under_review -> approved/rejected,终态不可离开,
// submitted 不允许直达终态
var transitions = map[transition]types.Role{
	{types.StatusSubmitted, types.StatusUnderReview}:  types.RoleAdministrator,
	{types.StatusUnderReview, types.StatusApproved}:   types.RoleAdministrator,
	{types.StatusUnderReview, types.StatusRejected}:   types.RoleAdministrator,
}

// CanTransition 纯谓词:指定角色能否执行 from -> to 转换
// 生命周期引擎在每次转换前咨询该守卫
func CanTransition(role types.Role, from, to types.ApplicationStatus) bool {
	required, ok := transitions[transition{from, to}]
	if !ok {
		return false
	}
	return role == required
}

// Validate 校验转换并返回符合错误分类的原因
// 角色不符返回 Forbidden,边不存在返回 InvalidTransition
func Validate(role types.Role, from, to types.ApplicationStatus) error {
	required, ok := transitions[transition{from, to}]
	if !ok {
		if from.IsTerminal() {
			return errs.InvalidTransition("application is in terminal status %q", from)
		}
		return errs.InvalidTransition("cannot transition from %q to %q", from, to)
	}
	if role != required {
		return errs.Forbidden("role %q may not transition application from %q to %q", role, from, to)
	}
	return nil
}
