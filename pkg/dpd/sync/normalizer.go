package sync

import (
	"regexp"
	"sort"
	"strings"
)

// NormalizedAddress is the canonical form of a free-text
// country/region/city triple. Codes are empty when the reference tables
// have no match; normalization never fails, it degrades to best-effort
// names with empty codes.
type NormalizedAddress struct {
	CountryCode string
	CountryName string
	RegionCode  string
	RegionName  string
	CityName    string
	CityAbbr    string
	IsCity      bool
}

// RegionCodeSource resolves the region code table for one country. A nil
// or empty table leaves region codes unresolved.
type RegionCodeSource func(countryCode string) map[string]string

// CityAliases folds known satellite or district towns into a parent city.
// Keys: parent city name; values: lowercased alias name mapped to the
// lowercased region names the folding applies to.
type CityAliases map[string]map[string][]string

// Normalizer canonicalizes free-text geographic names so rows from
// differently formatted sources match the same stored location.
type Normalizer struct {
	regionCodes RegionCodeSource
	aliases     CityAliases
}

// NormalizerOption configures a Normalizer.
type NormalizerOption func(*Normalizer)

// WithRegionCodes installs a region code table source.
func WithRegionCodes(source RegionCodeSource) NormalizerOption {
	return func(n *Normalizer) { n.regionCodes = source }
}

// WithCityAliases installs the alias folding table.
func WithCityAliases(aliases CityAliases) NormalizerOption {
	return func(n *Normalizer) { n.aliases = aliases }
}

// NewNormalizer creates a Normalizer. Without options the region code
// tables are empty and no alias folding happens.
func NewNormalizer(opts ...NormalizerOption) *Normalizer {
	n := &Normalizer{}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize canonicalizes a country/region/city triple. Each stage feeds
// the next: the resolved country selects the region code table, the
// normalized region participates in city alias folding.
func (n *Normalizer) Normalize(country, region, city string) NormalizedAddress {
	out := n.normalizeCountry(country)
	n.normalizeRegion(&out, region)
	n.normalizeCity(&out, city)
	return out
}

func (n *Normalizer) normalizeCountry(country string) NormalizedAddress {
	return NormalizedAddress{
		CountryName: replaceYo(country),
		CountryCode: countryCodeByName(country),
	}
}

func (n *Normalizer) normalizeRegion(out *NormalizedAddress, region string) {
	region, _ = regionAbbrs.trim(region)

	out.RegionName = replaceYo(region)
	if n.regionCodes != nil {
		out.RegionCode = n.regionCodes(out.CountryCode)[strings.ToLower(region)]
	}
}

func (n *Normalizer) normalizeCity(out *NormalizedAddress, city string) {
	city, abbr := settlementAbbrs.trim(city)
	city = n.foldAlias(city, out.RegionName)

	out.CityName = replaceYo(city)
	out.CityAbbr = abbr
	out.IsCity = cityAbbrs.contains(abbr)
}

// foldAlias merges district towns into their parent city when the alias
// table pairs them with the current region.
func (n *Normalizer) foldAlias(city, regionName string) string {
	cityLower := strings.ToLower(city)
	regionLower := strings.ToLower(regionName)

	for parent, aliases := range n.aliases {
		regions, ok := aliases[cityLower]
		if !ok {
			continue
		}
		for _, r := range regions {
			if r == regionLower {
				return parent
			}
		}
	}
	return city
}

// replaceYo substitutes the look-alike Cyrillic letter with its standard
// form so spellings with and without it compare equal.
func replaceYo(s string) string {
	return strings.ReplaceAll(s, "ё", "е")
}

// countryList maps ISO codes to the lowercased native country names used
// by the carrier's data.
var countryList = map[string]string{
	"RU": "россия",
	"KZ": "казахстан",
	"BY": "беларусь",
	"AM": "армения",
	"KG": "киргизия",
}

func countryCodeByName(name string) string {
	lower := strings.ToLower(name)
	for code, n := range countryList {
		if n == lower {
			return code
		}
	}
	return ""
}

// ============================================================================
// Abbreviation stripping
// ============================================================================

// abbrSet strips administrative-division or settlement-type abbreviations
// from a string as whole words. Candidates are evaluated longest first so
// no short abbreviation shadows a longer one ("автономный округ" wins over
// a bare "округ"-like fragment).
type abbrSet struct {
	tokens   []string
	patterns []*regexp.Regexp
}

var whitespaceRun = regexp.MustCompile(`\s{2,}`)

func newAbbrSet(tokens ...string) *abbrSet {
	sorted := make([]string, len(tokens))
	copy(sorted, tokens)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len([]rune(sorted[i])) > len([]rune(sorted[j]))
	})

	set := &abbrSet{tokens: sorted}
	for _, token := range sorted {
		// \b is ASCII-only in RE2, so word boundaries around Cyrillic are
		// matched explicitly: nothing letter/digit-like on either side.
		pattern := `(?i)(^|[^\p{L}\p{N}_])` + regexp.QuoteMeta(token) + `($|[^\p{L}\p{N}_])`
		set.patterns = append(set.patterns, regexp.MustCompile(pattern))
	}
	return set
}

// trim removes the longest matching abbreviation and returns the cleaned
// remainder plus the stripped token (empty when nothing matched).
func (s *abbrSet) trim(text string) (string, string) {
	for i, re := range s.patterns {
		if !re.MatchString(text) {
			continue
		}
		for re.MatchString(text) {
			text = re.ReplaceAllString(text, "$1$2")
		}
		text = strings.Trim(text, " .")
		text = whitespaceRun.ReplaceAllString(text, " ")
		return strings.TrimSpace(text), s.tokens[i]
	}
	return text, ""
}

func (s *abbrSet) contains(token string) bool {
	if token == "" {
		return false
	}
	for _, t := range s.tokens {
		if t == token {
			return true
		}
	}
	return false
}

var regionAbbrs = newAbbrSet(
	"автономный округ",
	"область",
	"аобл",
	"обл",
	"АО",
	"республика",
	"респ",
	"край",
	"г",
)

var cityAbbrs = newAbbrSet(
	"город",
	"г",
)

var villageAbbrs = newAbbrSet(
	"посёлок городского типа",
	"поселок городского типа",
	"пгт",
	"деревня",
	"дер",
	"д",
	"село",
	"с",
	"поселок",
	"посёлок",
	"п",
	"станция",
	"ст",
	"аул",
	"станица",
	"ст-ца",
	"снт",
	"рзд",
	"сл",
	"дп",
	"х",
	"жилрайон",
	"тер",
	"ж/д_ст",
	"тер сдт",
	"нп",
	"у",
	"массив",
	"автодорога",
	"м",
	"городок",
	"дск",
	"платф",
	"починок",
	"промзона",
	"агрогородок",
)

// settlementAbbrs combines city and village abbreviations for the city
// normalization stage.
var settlementAbbrs = newAbbrSet(append(append([]string{},
	cityAbbrs.tokens...), villageAbbrs.tokens...)...)
