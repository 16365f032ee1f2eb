package subscriptions_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jrsteele09/go-portal-session/internal/config"
	"github.com/jrsteele09/go-portal-session/recordserver"
	"github.com/jrsteele09/go-portal-session/records"
	"github.com/jrsteele09/go-portal-session/subscriptions"
	"github.com/jrsteele09/go-portal-session/users"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func TestTerms(t *testing.T) {
	tests := []struct {
		id       records.ID
		wantType users.PlanType
		wantLen  time.Duration
	}{
		{"1", users.PlanMonthly, 30 * 24 * time.Hour},
		{"2", users.PlanAnnual, 365 * 24 * time.Hour},
		{"7", users.PlanAnnual, 365 * 24 * time.Hour},
		{"0", users.PlanAnnual, 365 * 24 * time.Hour},
	}
	for _, tt := range tests {
		planType, length := subscriptions.Terms(subscriptions.Plan{ID: tt.id})
		require.Equal(t, tt.wantType, planType, "plan %d", tt.id)
		require.Equal(t, tt.wantLen, length, "plan %d", tt.id)
	}
}

func TestApplySubscription(t *testing.T) {
	user := users.User{ID: "u1", PlanType: users.PlanNone}

	got := subscriptions.ApplySubscription(user, subscriptions.Plan{ID: subscriptions.MonthlyPlanID}, now)
	require.True(t, got.IsSubscribed)
	require.Equal(t, users.PlanMonthly, got.PlanType)
	require.Equal(t, now.Add(30*24*time.Hour), *got.SubscriptionEndDate)

	require.False(t, user.IsSubscribed, "input is not modified")
	require.Nil(t, user.SubscriptionEndDate)
}

func TestApplyTrial(t *testing.T) {
	t.Run("first trial", func(t *testing.T) {
		got, err := subscriptions.ApplyTrial(users.User{ID: "u1"}, now, subscriptions.DefaultTrialDuration)
		require.NoError(t, err)
		require.True(t, got.IsSubscribed)
		require.True(t, got.HasUsedTrial)
		require.Equal(t, users.PlanTrial, got.PlanType)
		require.Equal(t, now.Add(3*time.Minute), *got.SubscriptionEndDate)
		require.True(t, got.SubscriptionActive(now.Add(2*time.Minute)))
		require.False(t, got.SubscriptionActive(now.Add(4*time.Minute)))
	})

	t.Run("second trial is refused", func(t *testing.T) {
		_, err := subscriptions.ApplyTrial(users.User{ID: "u1", HasUsedTrial: true}, now, time.Minute)
		require.ErrorIs(t, err, subscriptions.ErrTrialUsed)
	})
}

func TestFind(t *testing.T) {
	plans := subscriptions.DefaultPlans()
	require.Len(t, plans, 2)

	annual, ok := subscriptions.Find(plans, subscriptions.AnnualPlanID)
	require.True(t, ok)
	require.Equal(t, "£99/year", annual.Price)
	require.True(t, annual.IsAnnual)

	_, ok = subscriptions.Find(plans, "42")
	require.False(t, ok)
}

func TestCatalog_Plans(t *testing.T) {
	ctx := context.Background()

	newCatalog := func(t *testing.T, store *recordserver.Store) *subscriptions.Catalog {
		srv := httptest.NewServer(recordserver.New(config.New(), store, recordserver.WithLogger(zerolog.Nop())))
		t.Cleanup(srv.Close)
		client, err := records.New(srv.URL, nil)
		require.NoError(t, err)
		return subscriptions.NewCatalog(client)
	}

	t.Run("missing collection falls back", func(t *testing.T) {
		plans, err := newCatalog(t, recordserver.NewMemoryStore()).Plans(ctx)
		require.NoError(t, err)
		require.Equal(t, subscriptions.DefaultPlans(), plans)
	})

	t.Run("store plans win", func(t *testing.T) {
		store := recordserver.NewMemoryStore()
		_, err := store.Create(subscriptions.Collection, recordserver.Record{"id": 1, "title": "Team", "price": "£50/monthly"})
		require.NoError(t, err)

		plans, err := newCatalog(t, store).Plans(ctx)
		require.NoError(t, err)
		require.Len(t, plans, 1)
		require.Equal(t, subscriptions.MonthlyPlanID, plans[0].ID)
		require.Equal(t, "Team", plans[0].Title)
	})

	t.Run("numeric ids from json-server", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`[{"id":1,"title":"Monthly","price":"£5/monthly"},{"id":2,"title":"Annual","isAnnual":true}]`))
		}))
		t.Cleanup(srv.Close)
		client, err := records.New(srv.URL, nil)
		require.NoError(t, err)

		plans, err := subscriptions.NewCatalog(client).Plans(ctx)
		require.NoError(t, err)
		require.Len(t, plans, 2)

		monthly, ok := subscriptions.Find(plans, subscriptions.MonthlyPlanID)
		require.True(t, ok)
		planType, _ := subscriptions.Terms(monthly)
		require.Equal(t, users.PlanMonthly, planType)

		annual, ok := subscriptions.Find(plans, subscriptions.AnnualPlanID)
		require.True(t, ok)
		planType, _ = subscriptions.Terms(annual)
		require.Equal(t, users.PlanAnnual, planType)
	})

	t.Run("server failure surfaces", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		t.Cleanup(srv.Close)
		client, err := records.New(srv.URL, nil)
		require.NoError(t, err)

		_, err = subscriptions.NewCatalog(client).Plans(ctx)
		require.Error(t, err)
	})
}
