package audit_test

import (
	"testing"

	"github.com/dimaum1001/sistema-restaurante/internal/audit"
	"github.com/dimaum1001/sistema-restaurante/internal/database/dbtest"
	"github.com/dimaum1001/sistema-restaurante/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAndList(t *testing.T) {
	db := dbtest.Open(t)

	write := func(tenant, entity string, id uint) {
		require.NoError(t, audit.Write(db, audit.Entry{
			TenantID:   tenant,
			Actor:      audit.Actor{UserID: 7, UserName: "Ana"},
			EntityType: entity,
			EntityID:   id,
			Action:     models.AuditActionCreate,
			After:      map[string]any{"id": id},
		}))
	}
	write("casa-a", "payable", 1)
	write("casa-a", "stock_move", 2)
	write("casa-b", "payable", 3)

	logs, err := audit.List(db, "casa-a", audit.Filter{})
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "stock_move", logs[0].EntityType)
	assert.JSONEq(t, `{"id":2}`, logs[0].AfterData)

	logs, err = audit.List(db, "casa-a", audit.Filter{EntityType: "payable"})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, uint(1), logs[0].EntityID)
	assert.Equal(t, "Ana", logs[0].UserName)
}
