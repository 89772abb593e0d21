package suppliers

import (
	"github.com/sparkmate/dealscraper/internal/catalog"
)

// Registrations returns every supported supplier in registration order.
// The batch runner visits suppliers in exactly this order.
func Registrations(deps Deps) []catalog.Registration {
	htmlProfiles := []siteProfile{
		screwfixProfile(),
		toolstationProfile(),
		cefProfile(),
		electricalDirectProfile(),
		rsComponentsProfile(),
		tlcProfile(),
		edmundsonProfile(),
		yesssProfile(),
		electricCenterProfile(),
	}

	regs := make([]catalog.Registration, 0, len(htmlProfiles)+2)
	for _, profile := range htmlProfiles {
		regs = append(regs, catalog.Registration{
			Slug:    profile.slug,
			Factory: factoryFor(profile, deps),
		})
	}
	regs = append(regs,
		catalog.Registration{
			Slug: SlugRexel,
			Factory: func() (catalog.Scraper, error) {
				return NewRexel(deps)
			},
		},
		catalog.Registration{
			Slug: SlugCouponAggregator,
			Factory: func() (catalog.Scraper, error) {
				return NewCouponAggregator(deps, nil)
			},
		},
	)
	return regs
}
