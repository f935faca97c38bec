package detail

// Selectors locate each field in the rendered detail page. The defaults track
// the ticketing site's generated class names and break whenever its markup changes.
type Selectors struct {
	Title string `json:"title"`
	// DateTimeXPath addresses the fragment holding both date and time.
	DateTimeXPath string `json:"date_time_xpath"`
	// Date and Time are CSS selectors evaluated inside that fragment.
	Date  string `json:"date"`
	Time  string `json:"time"`
	Venue string `json:"venue"`
	// VenueName and VenueLocation are evaluated inside the Venue element.
	VenueName     string `json:"venue_name"`
	VenueLocation string `json:"venue_location"`
	Poster        string `json:"poster"`
}

// DefaultSelectors returns the selectors for the current detail-page markup.
func DefaultSelectors() Selectors {
	return Selectors{
		Title:         "span.Text-sc-1t0gn2o-0.kaSbtQ",
		DateTimeXPath: `//*[@id="__next"]/div[2]/header/div/div[2]/div[2]/div/ul/li[2]/div/div[2]`,
		Date:          "a.Link__AnchorWrapper-k7o46r-1.hPUJuC span.Text-sc-1t0gn2o-0.Link__StyledLink-k7o46r-0.dnlnmy",
		Time:          "div.Box-omzyfs-0.fLfEte span.Text-sc-1t0gn2o-0.esJZBM",
		Venue:         "div.Box-omzyfs-0.Alignment-sc-1fjm9oq-0.gNjGdd",
		VenueName:     "a.Link__AnchorWrapper-k7o46r-1.hPUJuC span.Text-sc-1t0gn2o-0.Link__StyledLink-k7o46r-0.dnlnmy",
		VenueLocation: "ul.Grid__GridStyled-sc-1l00ugd-0.itbbwg.grid li.Column-sc-18hsrnn-0.eOmuPi span.Text-sc-1t0gn2o-0.esJZBM",
		Poster:        "img.Image-y331ct-0.lfjdse",
	}
}
