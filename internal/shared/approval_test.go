package shared

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApprovalLogValidate(t *testing.T) {
	valid := ApprovalLog{Kind: "deposits", ItemID: "7", ActorID: "1", Action: ApprovalApprove}
	require.NoError(t, valid.validate())

	missingActor := valid
	missingActor.ActorID = ""
	assert.Error(t, missingActor.validate())

	unknown := valid
	unknown.Action = "ESCALATE"
	assert.ErrorContains(t, unknown.validate(), "ESCALATE")
}

func TestAuditLogValidate(t *testing.T) {
	assert.Error(t, AuditLog{Entity: "products", EntityID: "1"}.validate())
	assert.NoError(t, AuditLog{Action: "content.create", Entity: "products", EntityID: "1"}.validate())
}

func TestRecordersRequirePool(t *testing.T) {
	var recorder *ApprovalRecorder
	assert.Error(t, recorder.Record(context.Background(), ApprovalLog{}))
	_, err := NewApprovalRecorder(nil, nil).List(context.Background(), "deposits", "7")
	assert.Error(t, err)
	assert.Error(t, NewAuditLogger(nil).Record(context.Background(), AuditLog{}))
}
