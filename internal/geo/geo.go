// Package geo resolves a best-effort, human-readable location label from a
// client IP and user agent. The result is purely advisory and never used for
// access control; every failure path degrades to a less specific label.
package geo

import (
	"net"
	"regexp"
	"strings"

	"github.com/cbejar93/astroSocial-sub001/internal/logger"
	"github.com/oschwald/geoip2-golang"
	"go.uber.org/zap"
)

// UnknownLocation is the terminal fallback label.
const UnknownLocation = "Unknown"

// Resolver maps request attributes to a display location. Implementations
// must not return errors; inconclusive lookups fall through to a coarser
// label.
type Resolver interface {
	Resolve(ip, userAgent string) string
}

// New picks the resolver once at startup: the MaxMind-backed one when a
// database path is configured and readable, otherwise the locale-only
// fallback.
func New(mmdbPath string) Resolver {
	if mmdbPath == "" {
		return &localeResolver{}
	}
	reader, err := geoip2.Open(mmdbPath)
	if err != nil {
		logger.Log.Warn("GeoIP database unavailable, falling back to user-agent locale",
			zap.String("path", mmdbPath),
			zap.Error(err))
		return &localeResolver{}
	}
	logger.Log.Info("GeoIP database loaded", zap.String("path", mmdbPath))
	return &maxmindResolver{reader: reader}
}

// maxmindResolver looks the IP up in a MaxMind City database and falls back
// to the user-agent locale when the lookup is inconclusive.
type maxmindResolver struct {
	reader *geoip2.Reader
}

func (r *maxmindResolver) Resolve(ip, userAgent string) string {
	if parsed := normalizeIP(ip); parsed != nil {
		if record, err := r.reader.City(parsed); err == nil {
			city := record.City.Names["en"]
			country := record.Country.Names["en"]
			switch {
			case city != "" && country != "":
				return city + ", " + country
			case country != "":
				return country
			}
		}
	}
	return resolveFromUserAgent(userAgent)
}

// Close releases the underlying database handle.
func (r *maxmindResolver) Close() error {
	return r.reader.Close()
}

// localeResolver is the null-object geo backend: user-agent locale or bust.
type localeResolver struct{}

func (r *localeResolver) Resolve(ip, userAgent string) string {
	return resolveFromUserAgent(userAgent)
}

// normalizeIP strips brackets, a port suffix and the IPv4-in-IPv6 prefix,
// returning nil when nothing parseable remains.
func normalizeIP(raw string) net.IP {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	if host, _, err := net.SplitHostPort(s); err == nil {
		s = host
	}
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	s = strings.TrimPrefix(s, "::ffff:")
	return net.ParseIP(s)
}

// localeTag matches BCP 47-ish tags like "en-US" or "pt_BR" embedded in a
// user-agent string.
var localeTag = regexp.MustCompile(`\b[a-z]{2}[-_]([A-Z]{2})\b`)

// resolveFromUserAgent extracts a region code from the user agent and maps
// it to a country name.
func resolveFromUserAgent(userAgent string) string {
	if userAgent == "" {
		return UnknownLocation
	}
	m := localeTag.FindStringSubmatch(userAgent)
	if m == nil {
		return UnknownLocation
	}
	if name, ok := regionNames[m[1]]; ok {
		return name
	}
	return UnknownLocation
}

// regionNames covers the regions seen in practice; anything else stays
// Unknown rather than echoing a raw code to dashboards.
var regionNames = map[string]string{
	"US": "United States",
	"GB": "United Kingdom",
	"CA": "Canada",
	"AU": "Australia",
	"NZ": "New Zealand",
	"IE": "Ireland",
	"DE": "Germany",
	"FR": "France",
	"ES": "Spain",
	"IT": "Italy",
	"PT": "Portugal",
	"NL": "Netherlands",
	"BE": "Belgium",
	"CH": "Switzerland",
	"AT": "Austria",
	"SE": "Sweden",
	"NO": "Norway",
	"DK": "Denmark",
	"FI": "Finland",
	"PL": "Poland",
	"CZ": "Czechia",
	"RU": "Russia",
	"UA": "Ukraine",
	"TR": "Turkey",
	"BR": "Brazil",
	"MX": "Mexico",
	"AR": "Argentina",
	"CL": "Chile",
	"CO": "Colombia",
	"JP": "Japan",
	"KR": "South Korea",
	"CN": "China",
	"TW": "Taiwan",
	"HK": "Hong Kong",
	"SG": "Singapore",
	"IN": "India",
	"ID": "Indonesia",
	"PH": "Philippines",
	"TH": "Thailand",
	"VN": "Vietnam",
	"MY": "Malaysia",
	"IL": "Israel",
	"SA": "Saudi Arabia",
	"AE": "United Arab Emirates",
	"ZA": "South Africa",
	"NG": "Nigeria",
	"EG": "Egypt",
}
