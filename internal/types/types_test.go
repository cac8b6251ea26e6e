package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplicationStatusValid(t *testing.T) {
	for _, s := range AllStatuses() {
		assert.True(t, s.Valid())
	}
	assert.False(t, ApplicationStatus("draft").Valid())
	assert.False(t, ApplicationStatus("").Valid())
}

func TestApplicationStatusOrdinalMonotonic(t *testing.T) {
	// 状态历史校验依赖顺序值单调不减
	assert.Less(t, StatusSubmitted.Ordinal(), StatusUnderReview.Ordinal())
	assert.Less(t, StatusUnderReview.Ordinal(), StatusApproved.Ordinal())
	assert.Equal(t, StatusApproved.Ordinal(), StatusRejected.Ordinal())
	assert.Equal(t, 0, ApplicationStatus("bogus").Ordinal())
}

func TestApplicationStatusTerminal(t *testing.T) {
	assert.True(t, StatusApproved.IsTerminal())
	assert.True(t, StatusRejected.IsTerminal())
	assert.False(t, StatusSubmitted.IsTerminal())
	assert.False(t, StatusUnderReview.IsTerminal())
}

func TestApplicationStatusUnmarshalRejectsUnknown(t *testing.T) {
	var s ApplicationStatus
	err := json.Unmarshal([]byte(`"under_review"`), &s)
	require.NoError(t, err)
	assert.Equal(t, StatusUnderReview, s)

	err = json.Unmarshal([]byte(`"pending"`), &s)
	assert.Error(t, err)
}

func TestLoanTypeUnmarshalRejectsUnknown(t *testing.T) {
	var lt LoanType
	require.NoError(t, json.Unmarshal([]byte(`"rent"`), &lt))
	assert.Equal(t, LoanTypeRent, lt)

	assert.Error(t, json.Unmarshal([]byte(`"mortgage"`), &lt))
}

func TestDocumentTypeValid(t *testing.T) {
	assert.True(t, DocumentIDCard.Valid())
	assert.True(t, DocumentLandTitle.Valid())
	assert.False(t, DocumentType("selfie").Valid())
}

func TestRoleAndOwnerKind(t *testing.T) {
	assert.True(t, RoleApplicant.Valid())
	assert.True(t, RoleAdministrator.Valid())
	assert.False(t, Role("reviewer").Valid())

	assert.True(t, OwnerDraft.Valid())
	assert.True(t, OwnerApplication.Valid())
	assert.False(t, OwnerKind("template").Valid())
}
