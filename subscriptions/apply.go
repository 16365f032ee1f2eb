package subscriptions

import (
	"time"

	"github.com/jrsteele09/go-portal-session/internal/utils"
	"github.com/jrsteele09/go-portal-session/users"
	"github.com/pkg/errors"
)

var ErrTrialUsed = errors.New("free trial already used")

// Terms maps a plan to the plan type and length it grants. Plan 1 is monthly; every
// other id is annual.
func Terms(plan Plan) (users.PlanType, time.Duration) {
	if plan.ID == MonthlyPlanID {
		return users.PlanMonthly, MonthlyDuration
	}
	return users.PlanAnnual, AnnualDuration
}

// ApplyTrial returns a copy of user on a trial ending now+length. It fails when the
// account has had a trial before.
func ApplyTrial(user users.User, now time.Time, length time.Duration) (users.User, error) {
	if user.HasUsedTrial {
		return user, ErrTrialUsed
	}
	user.IsSubscribed = true
	user.PlanType = users.PlanTrial
	user.HasUsedTrial = true
	user.SubscriptionEndDate = utils.Ptr(now.Add(length).UTC())
	return user, nil
}

// ApplySubscription returns a copy of user subscribed to plan from now
func ApplySubscription(user users.User, plan Plan, now time.Time) users.User {
	planType, length := Terms(plan)
	user.IsSubscribed = true
	user.PlanType = planType
	user.SubscriptionEndDate = utils.Ptr(now.Add(length).UTC())
	return user
}
