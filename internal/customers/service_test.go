package customers_test

import (
	"context"
	"testing"

	"github.com/dimaum1001/sistema-restaurante/internal/apperr"
	"github.com/dimaum1001/sistema-restaurante/internal/audit"
	"github.com/dimaum1001/sistema-restaurante/internal/customers"
	"github.com/dimaum1001/sistema-restaurante/internal/database/dbtest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const tenant = "casa-a"

var actor = audit.Actor{UserID: 3, UserName: "Garçom"}

func TestCustomers(t *testing.T) {
	db := dbtest.Open(t)
	svc := customers.NewService(db, zap.NewNop())
	ctx := context.Background()

	var verr *apperr.ValidationError
	_, err := svc.Create(ctx, tenant, actor, customers.Input{Name: " "})
	require.ErrorAs(t, err, &verr)
	_, err = svc.Create(ctx, tenant, actor, customers.Input{Name: "Rita", Email: "rita.example.com"})
	require.ErrorAs(t, err, &verr)

	rita, err := svc.Create(ctx, tenant, actor, customers.Input{
		Name:      "  Rita Lopes ",
		Phone:     "11 99999-0001",
		Email:     "rita@example.com",
		Allergies: "amendoim",
	})
	require.NoError(t, err)
	assert.Equal(t, "Rita Lopes", rita.Name)
	_, err = svc.Create(ctx, tenant, actor, customers.Input{Name: "Bruno", Phone: "11 98888-0002"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, "casa-b", actor, customers.Input{Name: "Alguém"})
	require.NoError(t, err)

	list, err := svc.List(ctx, tenant, customers.ListFilter{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Bruno", list[0].Name)

	list, err = svc.List(ctx, tenant, customers.ListFilter{Search: "rita"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	list, err = svc.List(ctx, tenant, customers.ListFilter{Search: "98888"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Bruno", list[0].Name)

	got, err := svc.Get(ctx, tenant, rita.ID)
	require.NoError(t, err)
	assert.Equal(t, "amendoim", got.Allergies)

	_, err = svc.Get(ctx, "casa-b", rita.ID)
	var nf *apperr.NotFoundError
	assert.ErrorAs(t, err, &nf)

	logs, err := audit.List(db, tenant, audit.Filter{EntityType: "customer"})
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.NotContains(t, logs[0].Description+logs[1].Description, "@")
}
