// Package validator decides whether submitted URLs point at a supported video host.
//
// Validation is purely syntactic. No network access happens here.
package validator

import (
	"net/url"
	"strings"

	"github.com/kkdai/youtube/v2"
	"github.com/samber/lo"
)

// HostKind selects the path rule applied to a host.
type HostKind int

const (
	// ShortLink hosts carry the video id as the whole path (youtu.be/<id>).
	ShortLink HostKind = iota
	// LongForm hosts need a watch, embed or legacy /v/ path.
	LongForm
)

// HostRule allow-lists a domain and all of its subdomains.
type HostRule struct {
	Domain string
	Kind   HostKind
}

// DefaultRules is the allow-list used when none is configured.
var DefaultRules = []HostRule{
	{Domain: "youtube.com", Kind: LongForm},
	{Domain: "www.youtube.com", Kind: LongForm},
	{Domain: "m.youtube.com", Kind: LongForm},
	{Domain: "youtu.be", Kind: ShortLink},
	{Domain: "youtube-nocookie.com", Kind: LongForm},
	{Domain: "www.youtube-nocookie.com", Kind: LongForm},
}

var longFormMarkers = []string{"/watch", "/embed/", "/v/"}

// Validator holds an allow-list of video hosts.
type Validator struct {
	rules []HostRule
}

// New creates a validator for the given rules. An empty list means DefaultRules.
func New(rules []HostRule) *Validator {
	if len(rules) == 0 {
		rules = DefaultRules
	}
	normalized := lo.Map(rules, func(r HostRule, _ int) HostRule {
		return HostRule{Domain: strings.ToLower(strings.TrimSpace(r.Domain)), Kind: r.Kind}
	})
	return &Validator{rules: normalized}
}

// NewFromHosts builds the rules from separate short-link and long-form host lists.
func NewFromHosts(shortLinkHosts, videoHosts []string) *Validator {
	rules := make([]HostRule, 0, len(shortLinkHosts)+len(videoHosts))
	for _, h := range shortLinkHosts {
		rules = append(rules, HostRule{Domain: h, Kind: ShortLink})
	}
	for _, h := range videoHosts {
		rules = append(rules, HostRule{Domain: h, Kind: LongForm})
	}
	return New(rules)
}

// IsWellFormedURL reports whether s is an absolute URL with a scheme and a host.
func IsWellFormedURL(s string) bool {
	_, ok := parse(s)
	return ok
}

func parse(s string) (*url.URL, bool) {
	u, err := url.Parse(s)
	if err != nil {
		return nil, false
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, false
	}
	return u, true
}

// IsRecognizedVideoURL reports whether s is well-formed, on an allow-listed host,
// and has the path shape that host uses for single videos.
func (v *Validator) IsRecognizedVideoURL(s string) bool {
	u, ok := parse(s)
	if !ok {
		return false
	}

	rule, ok := v.match(strings.ToLower(u.Hostname()))
	if !ok {
		return false
	}

	switch rule.Kind {
	case ShortLink:
		return strings.Trim(u.Path, "/") != ""
	case LongForm:
		return lo.SomeBy(longFormMarkers, func(marker string) bool {
			return strings.Contains(u.Path, marker)
		})
	default:
		return false
	}
}

// match returns the most specific rule covering host.
func (v *Validator) match(host string) (HostRule, bool) {
	if host == "" {
		return HostRule{}, false
	}
	candidates := lo.Filter(v.rules, func(r HostRule, _ int) bool {
		return host == r.Domain || strings.HasSuffix(host, "."+r.Domain)
	})
	if len(candidates) == 0 {
		return HostRule{}, false
	}
	return lo.MaxBy(candidates, func(a, b HostRule) bool {
		return len(a.Domain) > len(b.Domain)
	}), true
}

// VideoID extracts the video id from a recognized URL, or "" when it cannot.
func VideoID(s string) string {
	id, err := youtube.ExtractVideoID(s)
	if err != nil {
		return ""
	}
	return id
}
