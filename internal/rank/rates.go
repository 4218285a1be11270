package rank

import (
	"github.com/luchovc/agency-portal/internal/credits"
)

// GlobalRateSource yields the portal-wide credit rate from system config.
type GlobalRateSource interface {
	GlobalRate() (credits.Rate, error)
}

// RateResolver answers rate lookups for the timer: the role's rank override
// when configured, the global rate otherwise. Unknown roles fall back to the
// global rate so a dangling role never blocks time tracking.
type RateResolver struct {
	repo   Repository
	global GlobalRateSource
}

func NewRateResolver(repo Repository, global GlobalRateSource) *RateResolver {
	return &RateResolver{repo: repo, global: global}
}

func (rr *RateResolver) RateForRole(role string) (credits.Rate, error) {
	global, err := rr.global.GlobalRate()
	if err != nil {
		return credits.Rate{}, err
	}

	rk, err := rr.repo.GetByName(role)
	if err != nil || rk == nil {
		return global, nil
	}
	return rk.CreditRate(global), nil
}
