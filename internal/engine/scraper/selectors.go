package scraper

// CSS locators for the Google Maps web UI. Kept together so a markup change
// is a one-file fix.
const (
	mapsURL = "https://www.google.com/maps"

	SearchBoxSelector   = `input#searchboxinput`
	ResultFeedSelector  = `div[role="feed"]`
	ListingLinkSelector = `a[href*="https://www.google.com/maps/place"]`
	ConsentSelector     = `button[aria-label="Accept all"], button[aria-label="Reject all"]`

	// Place panel
	AddressSelector        = `button[data-item-id="address"] div.fontBodyMedium`
	WebsiteSelector        = `a[data-item-id="authority"] div.fontBodyMedium`
	PhoneSelector          = `button[data-item-id*="phone:tel:"] div.fontBodyMedium`
	ReviewsAverageSelector = `div.F7nice > span:nth-of-type(1) > span`
	ReviewsCountSelector   = `div.F7nice > span:nth-of-type(2) > span > span`
	CategorySelector       = `div.fontBodyMedium button.DkEaL`
	PriceSelector          = `span.mgr77e > span > span:nth-of-type(2)`
)
