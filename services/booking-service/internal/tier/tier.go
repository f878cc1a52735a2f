package tier

// Tier is a membership tier. The value set is closed: raw strings coming in
// from transport or storage go through Normalize before they reach any
// policy decision.
type Tier string

const (
	AdHoc          Tier = "ad-hoc"
	OnceAWeek      Tier = "once-a-week"
	TwiceAWeek     Tier = "twice-a-week"
	ThreePlusAWeek Tier = "three-plus-a-week"

	// Weekly is a legacy value still present on old member records. It is
	// accounted with the same quota policy as AdHoc.
	Weekly Tier = "weekly"
)

// Normalize maps a raw tier string onto the closed tier set. Unrecognized
// values fall back to AdHoc; the second return reports whether the input was
// a known tier. The fallback is product policy, callers should log when it
// kicks in.
func Normalize(raw string) (Tier, bool) {
	switch Tier(raw) {
	case AdHoc, OnceAWeek, TwiceAWeek, ThreePlusAWeek, Weekly:
		return Tier(raw), true
	default:
		return AdHoc, false
	}
}

// Allowed reports whether a member of tier t may book an activity restricted
// to the given allow-list. A nil or empty list means the activity is open to
// all tiers.
func Allowed(t Tier, allowed []Tier) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if a == t {
			return true
		}
	}
	return false
}

// Catalog maps tiers to weekly booking quotas. A tier with no entry is
// unlimited. Catalogs are built once at startup and never mutated after.
type Catalog struct {
	limits map[Tier]int
}

// Unlimited marks a tier as having no weekly cap in override maps.
const Unlimited = -1

// DefaultCatalog returns the built-in quota catalog: once-a-week 1,
// twice-a-week 2, everything else (ad-hoc, three-plus-a-week, legacy weekly)
// unlimited.
func DefaultCatalog() *Catalog {
	return NewCatalog(nil)
}

// NewCatalog builds a catalog from the defaults plus the given overrides.
// An override of Unlimited (or any negative value) removes the cap.
func NewCatalog(overrides map[Tier]int) *Catalog {
	limits := map[Tier]int{
		OnceAWeek:  1,
		TwiceAWeek: 2,
	}
	for t, limit := range overrides {
		if limit < 0 {
			delete(limits, t)
			continue
		}
		limits[t] = limit
	}
	return &Catalog{limits: limits}
}

// QuotaFor returns the weekly booking limit for t. When unlimited is true the
// limit is meaningless. A limit of 0 is a real cap that permits nothing.
func (c *Catalog) QuotaFor(t Tier) (limit int, unlimited bool) {
	limit, ok := c.limits[t]
	if !ok {
		return 0, true
	}
	return limit, false
}
