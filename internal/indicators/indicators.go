// Package indicators extracts IoCs from report text by pattern matching.
// This runs independently of the ML mapping path and imposes no ordering.
package indicators

import (
	"regexp"
	"sort"
	"strings"

	"github.com/veridian-labs/ttpmap-core/internal/core/domain"
)

var (
	md5Re    = regexp.MustCompile(`\b[a-fA-F0-9]{32}\b`)
	sha1Re   = regexp.MustCompile(`\b[a-fA-F0-9]{40}\b`)
	sha256Re = regexp.MustCompile(`\b[a-fA-F0-9]{64}\b`)
	ipv4Re   = regexp.MustCompile(`\b(?:(?:25[0-5]|2[0-4]\d|1?\d?\d)\.){3}(?:25[0-5]|2[0-4]\d|1?\d?\d)\b`)
	urlRe    = regexp.MustCompile(`\bhttps?://[^\s"'<>)\]]+`)
	emailRe  = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	domainRe = regexp.MustCompile(`\b(?:[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.)+(?:com|net|org|io|ru|cn|info|biz|top|xyz|onion|gov|mil|edu)\b`)
)

// refanger normalizes defanged notation common in threat reports so the
// patterns above still match: hxxp://evil[.]example → http://evil.example.
var refanger = strings.NewReplacer(
	"hxxp://", "http://",
	"hxxps://", "https://",
	"[.]", ".",
	"(.)", ".",
	"[:]", ":",
	"[@]", "@",
)

// Extract returns the IoCs found in text, deduplicated per type.
// Hash matches are reported once, under the narrowest type that fits (a
// SHA-256 is not also reported as two MD5-sized substrings because the
// patterns are word-bounded).
func Extract(reportID, text string) []*domain.Indicator {
	refanged := refanger.Replace(text)

	found := make(map[domain.IndicatorType]map[string]struct{})
	add := func(t domain.IndicatorType, values []string, normalize bool) {
		if len(values) == 0 {
			return
		}
		set := found[t]
		if set == nil {
			set = make(map[string]struct{})
			found[t] = set
		}
		for _, v := range values {
			if normalize {
				v = strings.ToLower(v)
			}
			set[v] = struct{}{}
		}
	}

	add(domain.IndicatorSHA256, sha256Re.FindAllString(refanged, -1), true)
	add(domain.IndicatorSHA1, sha1Re.FindAllString(refanged, -1), true)
	add(domain.IndicatorMD5, md5Re.FindAllString(refanged, -1), true)
	add(domain.IndicatorIPv4, ipv4Re.FindAllString(refanged, -1), false)
	add(domain.IndicatorURL, urlRe.FindAllString(refanged, -1), false)
	add(domain.IndicatorEmail, emailRe.FindAllString(refanged, -1), true)

	// Domains: skip values already captured as part of a URL or email.
	domains := domainRe.FindAllString(refanged, -1)
	filtered := domains[:0]
	for _, d := range domains {
		if containsValue(found[domain.IndicatorURL], d) || containsValue(found[domain.IndicatorEmail], d) {
			continue
		}
		filtered = append(filtered, d)
	}
	add(domain.IndicatorDomain, filtered, true)

	// Shorter hashes nested in longer ones are noise from substring overlap.
	pruneNested(found, domain.IndicatorSHA256, domain.IndicatorSHA1)
	pruneNested(found, domain.IndicatorSHA256, domain.IndicatorMD5)
	pruneNested(found, domain.IndicatorSHA1, domain.IndicatorMD5)

	var out []*domain.Indicator
	for _, t := range []domain.IndicatorType{
		domain.IndicatorMD5, domain.IndicatorSHA1, domain.IndicatorSHA256,
		domain.IndicatorIPv4, domain.IndicatorDomain, domain.IndicatorURL,
		domain.IndicatorEmail,
	} {
		values := make([]string, 0, len(found[t]))
		for v := range found[t] {
			values = append(values, v)
		}
		sort.Strings(values)
		for _, v := range values {
			out = append(out, &domain.Indicator{
				ID:       domain.GenerateID(),
				ReportID: reportID,
				Type:     t,
				Value:    v,
			})
		}
	}
	return out
}

func containsValue(set map[string]struct{}, needle string) bool {
	needle = strings.ToLower(needle)
	for v := range set {
		if strings.Contains(strings.ToLower(v), needle) {
			return true
		}
	}
	return false
}

func pruneNested(found map[domain.IndicatorType]map[string]struct{}, longer, shorter domain.IndicatorType) {
	for long := range found[longer] {
		for short := range found[shorter] {
			if strings.Contains(long, short) {
				delete(found[shorter], short)
			}
		}
	}
}
