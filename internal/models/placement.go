package models

import "time"

type PageType string

const (
	PageHomepage PageType = "homepage"
	PageArticle  PageType = "article"
	PageCategory PageType = "category"
	PageArchive  PageType = "archive"
	PageSearch   PageType = "search"
	PageAuthor   PageType = "author"
	PageAll      PageType = "all"
)

// Position values are free-form tags; these are the ones the site templates
// know how to render.
const (
	PositionTop          = "top"
	PositionSidebar      = "sidebar"
	PositionFooter       = "footer"
	PositionInline       = "inline"
	PositionStickyTop    = "sticky-top"
	PositionStickyBottom = "sticky-bottom"
	PositionFloating     = "floating"
	PositionInterstitial = "interstitial"
)

// Placement is a named ad slot on the site with size, position and
// rotation constraints.
type Placement struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	PageType PageType `json:"pageType"`
	Position string   `json:"position"`

	AllowedSizes []string `json:"allowedSizes"`
	MinWidth     int      `json:"minWidth,omitempty"`
	MaxWidth     int      `json:"maxWidth,omitempty"`

	MaxBanners       int      `json:"maxBanners"`
	Rotation         Rotation `json:"rotation"`
	RotationInterval int      `json:"rotationInterval,omitempty"` // seconds

	DeviceTarget string `json:"deviceTarget"` // all, desktop, mobile, tablet

	Enabled         bool `json:"enabled"`
	LazyLoad        bool `json:"lazyLoad"`
	RefreshEnabled  bool `json:"refreshEnabled"`
	RefreshInterval int  `json:"refreshInterval,omitempty"` // seconds

	ShowLabel      bool   `json:"showLabel"`
	LabelText      string `json:"labelText,omitempty"`
	ContainerClass string `json:"containerClass,omitempty"`

	Priority int `json:"priority"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// AllowsSize reports whether a banner of the given size key may be
// delivered through this placement.
func (p *Placement) AllowsSize(size string) bool {
	for _, s := range p.AllowedSizes {
		if s == size {
			return true
		}
	}
	return false
}

// DefaultPlacements returns the slot set installed on first run.
func DefaultPlacements(now time.Time) []Placement {
	base := Placement{
		Enabled:         true,
		LazyLoad:        true,
		ShowLabel:       true,
		LabelText:       "Advertisement",
		DeviceTarget:    "all",
		Priority:        5,
		RefreshInterval: 30,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	mk := func(id, name string, pt PageType, pos string, sizes []string, max int, rot Rotation, desc string) Placement {
		p := base
		p.ID = id
		p.Name = name
		p.PageType = pt
		p.Position = pos
		p.AllowedSizes = sizes
		p.MaxBanners = max
		p.Rotation = rot
		p.Description = desc
		return p
	}

	mobile := mk("mobile-sticky", "Mobile Sticky Bottom", PageAll, PositionStickyBottom,
		[]string{"mobile-banner"}, 1, RotationWeighted, "Sticky banner for mobile devices")
	mobile.DeviceTarget = "mobile"

	return []Placement{
		mk("homepage-top-leaderboard", "Homepage Top Leaderboard", PageHomepage, PositionTop,
			[]string{"leaderboard", "billboard"}, 3, RotationWeighted, "Premium placement above main content"),
		mk("article-sidebar", "Article Sidebar", PageArticle, PositionSidebar,
			[]string{"medium-rectangle", "half-page", "skyscraper"}, 2, RotationWeighted, "Sidebar placement on article pages"),
		mk("article-inline", "Article Inline", PageArticle, PositionInline,
			[]string{"medium-rectangle", "large-rectangle"}, 2, RotationSequential, "Inline placement within article content"),
		mk("footer-global", "Footer Global Banner", PageAll, PositionFooter,
			[]string{"billboard", "leaderboard"}, 1, RotationRandom, "Global footer placement on all pages"),
		mobile,
		mk("category-header", "Category Page Header", PageCategory, PositionTop,
			[]string{"leaderboard", "billboard"}, 2, RotationWeighted, "Header placement on category archive pages"),
		mk("between-articles", "Between Articles", PageArchive, PositionInline,
			[]string{"medium-rectangle", "large-rectangle"}, 3, RotationSequential, "Inserted between article listings"),
	}
}
