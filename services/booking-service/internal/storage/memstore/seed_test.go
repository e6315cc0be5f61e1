package memstore

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/md-rashed-zaman/autobook/services/booking-service/internal/model"
)

func TestLoadSeed(t *testing.T) {
	s := New()
	err := s.LoadSeed(strings.NewReader(`{
		"users": [{"id": "cust-1", "first_name": "Ana", "email": "ana@example.com", "role": "customer"}],
		"services": [
			{"id": "svc-oil", "name": "Oil change", "duration_minutes": 30, "price": "39.00"},
			{"id": "svc-old", "name": "Retired", "duration_minutes": 60, "is_active": false}
		],
		"vehicles": [{"id": "veh-1", "owner_id": "cust-1", "make": "Toyota", "year": 2019}]
	}`))
	require.NoError(t, err)

	ctx := context.Background()
	u, ok, err := s.GetUser(ctx, "cust-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, model.RoleCustomer, u.Role)
	assert.Equal(t, "Ana", u.FullName())

	svc, ok, _ := s.GetService(ctx, "svc-oil")
	require.True(t, ok)
	assert.True(t, svc.IsActive)
	svc, _, _ = s.GetService(ctx, "svc-old")
	assert.False(t, svc.IsActive)

	v, ok, _ := s.GetVehicle(ctx, "veh-1")
	require.True(t, ok)
	assert.Equal(t, "cust-1", v.OwnerID)
}

func TestLoadSeedRejects(t *testing.T) {
	cases := map[string]string{
		"unknown field": `{"services": [], "plans": []}`,
		"bad role":      `{"users": [{"id": "u", "role": "mechanic"}]}`,
		"zero duration": `{"services": [{"id": "s", "duration_minutes": 0}]}`,
		"not json":      `services:`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, New().LoadSeed(strings.NewReader(doc)))
		})
	}
}
