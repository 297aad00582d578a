package normalizer

import (
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/project-jmr/go-warehouse/internal/domain"
)

// Normalizer converts RawOffer records to normalized Offer format
type Normalizer struct{}

// NewNormalizer creates a new normalizer
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// NormalizeOffer converts a semi-structured offer record to a typed Offer.
// Field names vary per scraping site (titre/title, via/source, ...) and
// shapes vary per enrichment pass (sector as string or list, skills as
// list or comma-joined string, location as free text or object).
// Only a missing job_url is an error; every other malformed field
// degrades to its zero value.
func (n *Normalizer) NormalizeOffer(raw domain.RawOffer) (*domain.Offer, error) {
	jobURL := strings.TrimSpace(getString(raw, "job_url", "url"))
	if jobURL == "" {
		return nil, fmt.Errorf("offer has no job_url")
	}

	offer := &domain.Offer{
		JobURL:         jobURL,
		Title:          getString(raw, "titre", "title"),
		Source:         NormalizeText(getString(raw, "via", "source", "source_name")),
		Contract:       NormalizeText(getString(raw, "contrat", "contract", "contract_type")),
		WorkType:       NormalizeText(getString(raw, "type_travail", "work_type")),
		Company:        NormalizeText(getString(raw, "company_name", "companie", "company")),
		Profile:        NormalizeText(getString(raw, "profile")),
		EducationLevel: NormalizeText(getString(raw, "education_level", "niveau_etudes")),
		Seniority:      NormalizeText(getString(raw, "seniority", "niveau_experience")),
		SalaryRange:    getString(raw, "salary_range", "salaire"),
		Description:    getString(raw, "description", "job_description"),
	}

	offer.PublicationDate = NormalizeDate(getString(raw, "publication_date", "date_publication"))

	for _, sec := range getStringArray(raw, "sector", "secteur") {
		if s := NormalizeText(sec); s != "" {
			offer.Sectors = append(offer.Sectors, s)
		}
	}

	offer.HardSkills = parseSkills(firstValue(raw, "hard_skills"))
	offer.SoftSkills = parseSkills(firstValue(raw, "soft_skills"))
	offer.Location = parseLocationValue(raw["location"])

	if val, ok := raw["is_data_profile"]; ok {
		if b, ok := val.(bool); ok {
			offer.IsDataProfile = &b
		}
	}

	return offer, nil
}

// asciiFold decomposes accented runes and drops the combining marks
var asciiFold = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeText strips accents, folds to lowercase ASCII and trims
// whitespace. Empty input yields an empty string, never an error.
func NormalizeText(s string) string {
	if s == "" {
		return ""
	}
	folded, _, err := transform.String(asciiFold, s)
	if err != nil {
		folded = s
	}
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if r < 128 {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(strings.ToLower(b.String()))
}

// monthNames maps French and English month names (and their 3-letter
// prefixes) to month numbers
var monthNames = buildMonthNames()

func buildMonthNames() map[string]time.Month {
	m := map[string]time.Month{
		"janvier": time.January, "fevrier": time.February, "mars": time.March,
		"avril": time.April, "mai": time.May, "juin": time.June,
		"juillet": time.July, "aout": time.August, "septembre": time.September,
		"octobre": time.October, "novembre": time.November, "decembre": time.December,
		"january": time.January, "february": time.February, "march": time.March,
		"april": time.April, "may": time.May, "june": time.June,
		"july": time.July, "august": time.August, "september": time.September,
		"october": time.October, "november": time.November, "december": time.December,
	}
	for name, month := range m {
		if len(name) > 3 {
			m[name[:3]] = month
		}
	}
	return m
}

// dateFormats accepts ISO plus the localized forms seen across sites.
// Non-padded layouts also match zero-padded input.
var dateFormats = []string{
	"2006-1-2",
	"2-1-2006",
	"2/1/2006",
	"2006/1/2",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2 January 2006",
}

var (
	relativeRe  = regexp.MustCompile(`(\d+)\s+(jours?|days?|semaines?|weeks?|mois|months?)\s+ago`)
	dayMonthRe  = regexp.MustCompile(`^(\d{1,2})\s+([A-Za-z]+)(-\d{1,2}:\d{2})?`)
	frenchAgoRe = regexp.MustCompile(`il y a\s+(\d+)\s+(jours?|semaines?|mois)`)
)

// NormalizeDate parses a publication date across the formats and relative
// expressions the scrapers produce. Unparseable input yields nil and is
// logged, never an error.
func NormalizeDate(s string) *time.Time {
	return NormalizeDateAt(s, time.Now())
}

// NormalizeDateAt is NormalizeDate with an explicit reference instant for
// relative expressions ("today", "3 days ago", ...).
func NormalizeDateAt(s string, now time.Time) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	key := strings.ToLower(s)
	today := dateOnly(now)

	if strings.Contains(key, "aujourd") || strings.Contains(key, "today") {
		return &today
	}
	if strings.Contains(key, "hier") || strings.Contains(key, "yesterday") {
		d := today.AddDate(0, 0, -1)
		return &d
	}

	match := relativeRe.FindStringSubmatch(key)
	if match == nil {
		// French phrasing "il y a N jours"
		match = frenchAgoRe.FindStringSubmatch(key)
	}
	if match != nil {
		num, _ := strconv.Atoi(match[1])
		unit := match[2]
		var d time.Time
		switch {
		case strings.HasPrefix(unit, "jour") || strings.HasPrefix(unit, "day"):
			d = today.AddDate(0, 0, -num)
		case strings.HasPrefix(unit, "semaine") || strings.HasPrefix(unit, "week"):
			d = today.AddDate(0, 0, -num*7)
		default: // mois / month
			d = today.AddDate(0, 0, -num*30)
		}
		return &d
	}

	for _, format := range dateFormats {
		if t, err := time.Parse(format, s); err == nil {
			d := dateOnly(t)
			return &d
		}
	}

	// "15 juillet" style day + localized month name, optional time suffix
	if m := dayMonthRe.FindStringSubmatch(s); m != nil {
		day, _ := strconv.Atoi(m[1])
		if month, ok := monthNames[strings.ToLower(m[2])]; ok && day >= 1 && day <= 31 {
			d := time.Date(now.Year(), month, day, 0, 0, 0, 0, time.UTC)
			if d.Day() == day { // reject overflow like "31 february"
				return &d
			}
		}
	}

	log.Printf("Could not parse date string: %q", s)
	return nil
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// remoteTokens mark an offer as remote and are excluded from city inference
var remoteTokens = []string{"remote", "teletravail", "a distance"}

// knownCountries are full country names too long for the short-token rule
var knownCountries = map[string]bool{
	"france": true, "germany": true, "usa": true,
	"canada": true, "uk": true, "royaume-uni": true,
}

// ParseLocation parses a free-text location into {city, region, country,
// remote}. Absent input yields an all-zero Location, not an error.
func ParseLocation(s string) domain.Location {
	var loc domain.Location
	if strings.TrimSpace(s) == "" {
		return loc
	}

	normalized := NormalizeText(s)

	if containsAny(normalized, remoteTokens) {
		loc.Remote = true
		for _, part := range strings.Split(normalized, ",") {
			if !containsAny(part, remoteTokens) {
				loc.City = strings.TrimSpace(part)
				break
			}
		}
		return loc
	}

	var parts []string
	for _, part := range strings.Split(s, ",") {
		if p := NormalizeText(part); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		log.Printf("Could not parse a meaningful location from: %q", s)
		return loc
	}

	loc.City = parts[0]
	if len(parts) > 1 {
		last := parts[len(parts)-1]
		if len(last) <= 4 || knownCountries[last] {
			loc.Country = last
		} else {
			loc.Region = last
		}
	}
	if len(parts) > 2 {
		loc.Region = parts[1]
	}
	return loc
}

// parseLocationValue handles the two location encodings: free text, or a
// structured {city, region, country, remote} object from enrichment
func parseLocationValue(val any) domain.Location {
	switch v := val.(type) {
	case string:
		return ParseLocation(v)
	case map[string]any:
		loc := domain.Location{
			City:    NormalizeText(getString(v, "city", "ville")),
			Region:  NormalizeText(getString(v, "region")),
			Country: NormalizeText(getString(v, "country", "pays")),
		}
		if b, ok := v["remote"].(bool); ok {
			loc.Remote = b
		}
		return loc
	}
	return domain.Location{}
}

// parseSkills accepts a skill list or a comma-joined string and returns
// normalized, de-duplicated skill names
func parseSkills(val any) []string {
	var items []string
	switch v := val.(type) {
	case nil:
		return nil
	case []string:
		items = v
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				items = append(items, s)
			}
		}
	case string:
		items = strings.Split(v, ",")
	}

	seen := make(map[string]bool, len(items))
	var skills []string
	for _, item := range items {
		s := NormalizeText(item)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		skills = append(skills, s)
	}
	return skills
}

// getString tries multiple keys and returns the first non-empty value
func getString(data map[string]any, keys ...string) string {
	for _, key := range keys {
		if val, ok := data[key]; ok {
			switch v := val.(type) {
			case string:
				if v != "" {
					return strings.TrimSpace(v)
				}
			case float64:
				return strconv.FormatFloat(v, 'f', -1, 64)
			case int:
				return strconv.Itoa(v)
			}
		}
	}
	return ""
}

// getStringArray tries multiple keys and returns the first value coerced
// to a string slice (a bare string becomes a single-element slice)
func getStringArray(data map[string]any, keys ...string) []string {
	for _, key := range keys {
		val, ok := data[key]
		if !ok || val == nil {
			continue
		}
		switch v := val.(type) {
		case []string:
			return v
		case []any:
			var result []string
			for _, item := range v {
				if s, ok := item.(string); ok {
					result = append(result, s)
				}
			}
			if len(result) > 0 {
				return result
			}
		case string:
			if v != "" {
				return []string{v}
			}
		}
	}
	return nil
}

func firstValue(data map[string]any, keys ...string) any {
	for _, key := range keys {
		if val, ok := data[key]; ok && val != nil {
			return val
		}
	}
	return nil
}

func containsAny(s string, tokens []string) bool {
	for _, tok := range tokens {
		if strings.Contains(s, tok) {
			return true
		}
	}
	return false
}
