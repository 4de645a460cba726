package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/smarttransit/booking-engine/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFleet_RouteLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.fleet.CreateRoute(ctx, env.admin, models.RouteRequest{Origin: "Butwal", Destination: " butwal "})
	assert.True(t, models.IsValidation(err))

	_, err = env.fleet.CreateRoute(ctx, env.client, models.RouteRequest{Origin: "Butwal", Destination: "Chitwan"})
	assert.True(t, models.IsForbidden(err))

	route, err := env.fleet.CreateRoute(ctx, env.admin, models.RouteRequest{Origin: " Butwal", Destination: "Chitwan "})
	require.NoError(t, err)
	assert.Equal(t, "Butwal - Chitwan", route.Name)

	updated, err := env.fleet.UpdateRoute(ctx, env.admin, route.ID, models.RouteRequest{Origin: "Butwal", Destination: "Narayanghat", Name: "Express"})
	require.NoError(t, err)
	assert.Equal(t, "Express", updated.Name)

	require.NoError(t, env.fleet.DeleteRoute(ctx, env.admin, route.ID))
	assert.True(t, models.IsNotFound(env.fleet.DeleteRoute(ctx, env.admin, route.ID)))

	assert.Equal(t, 1, env.auditCount(AuditRouteCreate))
	assert.Equal(t, 1, env.auditCount(AuditRouteUpdate))
	assert.Equal(t, 1, env.auditCount(AuditRouteDelete))
}

func TestFleet_DeleteReferencedRouteAndBus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	schedule := env.seedSchedule(t, "2/2", 8, 500, 96*time.Hour)

	assert.True(t, models.IsConflict(env.fleet.DeleteRoute(ctx, env.admin, schedule.RouteID)))
	assert.True(t, models.IsConflict(env.fleet.DeleteBus(ctx, env.admin, schedule.BusID)))
	assert.Zero(t, env.auditCount(AuditRouteDelete))
}

func TestFleet_BusValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.fleet.CreateBus(ctx, env.admin, models.BusRequest{Name: "", LayoutType: "2/2", SeatCount: 40})
	assert.True(t, models.IsValidation(err))
	_, err = env.fleet.CreateBus(ctx, env.admin, models.BusRequest{Name: "Hiace", LayoutType: "5/5", SeatCount: 40})
	assert.True(t, models.IsValidation(err))

	bus, err := env.fleet.CreateBus(ctx, env.admin, models.BusRequest{Name: "Hiace", LayoutType: "2/1", SeatCount: 15})
	require.NoError(t, err)
	assert.Equal(t, "2/1", bus.LayoutType)

	_, err = env.fleet.UpdateBus(ctx, env.admin, uuid.New(), models.BusRequest{Name: "Hiace", LayoutType: "2/1", SeatCount: 15})
	assert.True(t, models.IsNotFound(err))
}

func TestFleet_CreateSchedule(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	route, err := env.fleet.CreateRoute(ctx, env.admin, models.RouteRequest{Origin: "Kathmandu", Destination: "Janakpur"})
	require.NoError(t, err)
	bus, err := env.fleet.CreateBus(ctx, env.admin, models.BusRequest{Name: "Night Rider", LayoutType: "2/2", SeatCount: 30})
	require.NoError(t, err)

	req := models.CreateScheduleRequest{RouteID: route.ID, BusID: bus.ID, DepartureAt: env.clock.Now().Add(24 * time.Hour), Fare: 1499.999}

	past := req
	past.DepartureAt = env.clock.Now().Add(-time.Minute)
	_, err = env.fleet.CreateSchedule(ctx, env.admin, past)
	assert.True(t, models.IsValidation(err))

	negative := req
	negative.Fare = -1
	_, err = env.fleet.CreateSchedule(ctx, env.admin, negative)
	assert.True(t, models.IsValidation(err))

	missingBus := req
	missingBus.BusID = uuid.New()
	_, err = env.fleet.CreateSchedule(ctx, env.admin, missingBus)
	assert.True(t, models.IsNotFound(err))

	detail, err := env.fleet.CreateSchedule(ctx, env.admin, req)
	require.NoError(t, err)
	assert.Equal(t, 1500.0, detail.Fare)
	assert.Equal(t, 30, detail.AvailableSeats)
	assert.Equal(t, "Night Rider", detail.Bus.Name)
	assert.Equal(t, 1, env.auditCount(AuditScheduleCreate))

	got, err := env.fleet.GetSchedule(ctx, env.client, detail.ID)
	require.NoError(t, err)
	assert.Equal(t, detail.ID, got.ID)
}
