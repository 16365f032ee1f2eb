// Package subscriptions holds the plan catalog and the rules that turn a chosen plan or
// a trial into subscription fields on a user record.
package subscriptions

import (
	"context"
	"time"

	"github.com/jrsteele09/go-portal-session/records"
	"github.com/pkg/errors"
)

// Collection is the record store collection the pricing view reads
const Collection = "pricing"

const (
	MonthlyPlanID records.ID = "1"
	AnnualPlanID  records.ID = "2"
)

const (
	MonthlyDuration      = 30 * 24 * time.Hour
	AnnualDuration       = 365 * 24 * time.Hour
	DefaultTrialDuration = 3 * time.Minute
)

type Plan struct {
	ID        records.ID `json:"id"`
	Title     string     `json:"title"`
	Price     string     `json:"price"`
	Period    string     `json:"period"`
	Trial     string     `json:"trial"`
	TrialNote string     `json:"trialNote"`
	Features  []string   `json:"features"`
	IsAnnual  bool       `json:"isAnnual"`
}

var defaultFeatures = []string{
	"Daily vehicle checks",
	"Full history & export",
	"Expiry date reminders",
	"Useful Link",
	"Cancel anytime.",
}

// DefaultPlans is the catalog used when the record store has no pricing collection
func DefaultPlans() []Plan {
	return []Plan{
		{
			ID:        MonthlyPlanID,
			Title:     "Monthly Subscription",
			Price:     "£5/monthly",
			Period:    "Per Month",
			Trial:     "10-Day FREE Trial",
			TrialNote: "No payment required",
			Features:  append([]string(nil), defaultFeatures...),
		},
		{
			ID:        AnnualPlanID,
			Title:     "Annual Subscription",
			Price:     "£99/year",
			Period:    "Annual",
			Trial:     "10-Day FREE Trial",
			TrialNote: "No payment required",
			Features:  append([]string(nil), defaultFeatures...),
			IsAnnual:  true,
		},
	}
}

// Catalog reads plans from the pricing collection of the record store
type Catalog struct {
	plans records.Collection[Plan]
}

func NewCatalog(client *records.Client) *Catalog {
	return &Catalog{plans: records.NewCollection[Plan](client, Collection)}
}

// Plans lists the store's plans, falling back to DefaultPlans when the store has none
// or does not serve the pricing collection.
func (c *Catalog) Plans(ctx context.Context) ([]Plan, error) {
	plans, err := c.plans.List(ctx, nil)
	if err != nil {
		if records.IsNotFound(err) {
			return DefaultPlans(), nil
		}
		return nil, errors.Wrap(err, "[Catalog.Plans] list pricing")
	}
	if len(plans) == 0 {
		return DefaultPlans(), nil
	}
	return plans, nil
}

// Find returns the plan with id from plans
func Find(plans []Plan, id records.ID) (Plan, bool) {
	for _, p := range plans {
		if p.ID == id {
			return p, true
		}
	}
	return Plan{}, false
}
