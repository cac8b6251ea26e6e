package statemachine

import (
	"testing"

	"github.com/AbodeTech/Liquidity-sub001/internal/errs"
	"github.com/AbodeTech/Liquidity-sub001/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestCanTransitionHappyPath(t *testing.T) {
	// 管理员沿主线推进
	assert.True(t, CanTransition(types.RoleAdministrator, types.StatusSubmitted, types.StatusUnderReview))
	assert.True(t, CanTransition(types.RoleAdministrator, types.StatusUnderReview, types.StatusApproved))
	assert.True(t, CanTransition(types.RoleAdministrator, types.StatusUnderReview, types.StatusRejected))
}

func TestCanTransitionRejectsApplicant(t *testing.T) {
	// 申请人对任何转换都无权限
	assert.False(t, CanTransition(types.RoleApplicant, types.StatusSubmitted, types.StatusUnderReview))
	assert.False(t, CanTransition(types.RoleApplicant, types.StatusUnderReview, types.StatusApproved))
	assert.False(t, CanTransition(types.RoleApplicant, types.StatusUnderReview, types.StatusRejected))
}

func TestCanTransitionRejectsSkips(t *testing.T) {
	// submitted 不允许直达终态
	assert.False(t, CanTransition(types.RoleAdministrator, types.StatusSubmitted, types.StatusApproved))
	assert.False(t, CanTransition(types.RoleAdministrator, types.StatusSubmitted, types.StatusRejected))
	// 回退不存在
	assert.False(t, CanTransition(types.RoleAdministrator, types.StatusUnderReview, types.StatusSubmitted))
}

func TestTerminalStatesAreImmutable(t *testing.T) {
	for _, terminal := range []types.ApplicationStatus{types.StatusApproved, types.StatusRejected} {
		for _, to := range types.AllStatuses() {
			assert.False(t, CanTransition(types.RoleAdministrator, terminal, to),
				"terminal status %s must not allow transition to %s", terminal, to)
		}
	}
}

func TestValidateErrorKinds(t *testing.T) {
	// 边不存在 -> INVALID_TRANSITION
	err := Validate(types.RoleAdministrator, types.StatusSubmitted, types.StatusApproved)
	assert.True(t, errs.IsKind(err, errs.KindInvalidTransition))

	// 终态 -> INVALID_TRANSITION
	err = Validate(types.RoleAdministrator, types.StatusApproved, types.StatusUnderReview)
	assert.True(t, errs.IsKind(err, errs.KindInvalidTransition))

	// 边存在但角色不符 -> FORBIDDEN
	err = Validate(types.RoleApplicant, types.StatusSubmitted, types.StatusUnderReview)
	assert.True(t, errs.IsKind(err, errs.KindForbidden))

	// 合法转换无错误
	assert.NoError(t, Validate(types.RoleAdministrator, types.StatusUnderReview, types.StatusRejected))
}
