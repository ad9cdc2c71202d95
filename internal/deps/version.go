// Package deps reconciles dependency version descriptors and applies
// dependency changes to a project's package.json.
package deps

import (
	"strconv"
	"strings"

	"golang.org/x/mod/semver"
)

// channelRank orders the named release channels. Higher is newer. "next"
// outranks "latest", so an incoming "latest" never replaces an existing
// "next" while an incoming "next" does replace "latest".
var channelRank = map[string]int{
	"*":        2,
	"next":     1,
	"latest":   0,
	"previous": -1,
	"legacy":   -2,
}

// IsChannel reports whether v is a named release channel.
func IsChannel(v string) bool {
	_, ok := channelRank[strings.TrimSpace(v)]
	return ok
}

// Reconcile reports whether incoming should replace existing.
//
// Two channels compare by rank. A channel on exactly one side always wins
// for incoming. Otherwise both sides are reduced to the lowest version they
// admit and compared as semantic versions; if either side cannot be read,
// incoming wins.
func Reconcile(incoming, existing string) bool {
	incoming, existing = strings.TrimSpace(incoming), strings.TrimSpace(existing)
	inRank, inChannel := channelRank[incoming]
	exRank, exChannel := channelRank[existing]
	switch {
	case inChannel && exChannel:
		return inRank > exRank
	case inChannel || exChannel:
		return true
	}

	in, ok := MinVersion(incoming)
	if !ok {
		return true
	}
	ex, ok := MinVersion(existing)
	if !ok {
		return true
	}
	return semver.Compare(in, ex) > 0
}

// MinVersion returns the lowest version satisfying a version or range, in
// canonical "vMAJOR.MINOR.PATCH[-PRERELEASE]" form. It understands
// v-prefixes, partial and wildcard versions, caret and tilde ranges,
// comparator sets, hyphen ranges and || alternatives.
func MinVersion(r string) (string, bool) {
	r = strings.TrimSpace(r)
	if r == "" || r == "*" || r == "x" || r == "X" {
		return "v0.0.0", true
	}

	var best string
	for _, alt := range strings.Split(r, "||") {
		v, ok := minOfSet(strings.TrimSpace(alt))
		if !ok {
			return "", false
		}
		if best == "" || semver.Compare(v, best) < 0 {
			best = v
		}
	}
	return best, true
}

// minOfSet handles one alternative: a hyphen range or a space separated
// comparator set whose lower bounds all have to hold.
func minOfSet(set string) (string, bool) {
	if set == "" {
		return "v0.0.0", true
	}
	if lo, _, ok := strings.Cut(set, " - "); ok {
		p, ok := parsePartial(strings.TrimSpace(lo))
		if !ok {
			return "", false
		}
		return p.floor(), true
	}

	lower := "v0.0.0"
	for _, c := range comparators(set) {
		v, ok := lowerBound(c)
		if !ok {
			return "", false
		}
		if semver.Compare(v, lower) > 0 {
			lower = v
		}
	}
	return lower, true
}

// comparators splits a set on whitespace, joining a bare operator with the
// version that follows it (">= 1.2.3").
func comparators(set string) []string {
	var out []string
	pending := ""
	for _, f := range strings.Fields(set) {
		if strings.Trim(f, "<>=~^") == "" {
			pending += f
			continue
		}
		out = append(out, pending+f)
		pending = ""
	}
	if pending != "" {
		out = append(out, pending)
	}
	return out
}

func lowerBound(c string) (string, bool) {
	op := ""
	for _, prefix := range []string{">=", "<=", "~>", ">", "<", "=", "^", "~"} {
		if strings.HasPrefix(c, prefix) {
			op, c = prefix, c[len(prefix):]
			break
		}
	}
	p, ok := parsePartial(strings.TrimSpace(c))
	if !ok {
		return "", false
	}
	switch op {
	case "<", "<=":
		return "v0.0.0", true
	case ">":
		return p.next(), true
	}
	return p.floor(), true
}

type partial struct {
	nums []int
	pre  string
}

// parsePartial reads "1", "1.2", "1.2.x", "v1.2.3-beta.1+build" and the like.
func parsePartial(s string) (partial, bool) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "="), "v")
	s = strings.TrimPrefix(s, "V")
	if s == "" {
		return partial{}, false
	}
	if i := strings.IndexByte(s, '+'); i >= 0 {
		s = s[:i]
	}
	core, pre, _ := strings.Cut(s, "-")

	var p partial
	parts := strings.Split(core, ".")
	if len(parts) > 3 {
		return partial{}, false
	}
	for _, part := range parts {
		if part == "x" || part == "X" || part == "*" {
			break
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return partial{}, false
		}
		p.nums = append(p.nums, n)
	}
	if len(p.nums) == 3 {
		p.pre = pre
	}
	return p, true
}

func (p partial) floor() string {
	nums := [3]int{}
	copy(nums[:], p.nums)
	v := "v" + strconv.Itoa(nums[0]) + "." + strconv.Itoa(nums[1]) + "." + strconv.Itoa(nums[2])
	if p.pre != "" {
		v += "-" + p.pre
	}
	if !semver.IsValid(v) {
		return "v" + strconv.Itoa(nums[0]) + "." + strconv.Itoa(nums[1]) + "." + strconv.Itoa(nums[2])
	}
	return v
}

// next returns the lowest version strictly greater than p.
func (p partial) next() string {
	nums := [3]int{}
	copy(nums[:], p.nums)
	switch len(p.nums) {
	case 0:
		return "v0.0.0"
	case 1:
		nums[0]++
		nums[1], nums[2] = 0, 0
	case 2:
		nums[1]++
		nums[2] = 0
	default:
		if p.pre != "" {
			return p.floor() + ".0"
		}
		nums[2]++
	}
	return "v" + strconv.Itoa(nums[0]) + "." + strconv.Itoa(nums[1]) + "." + strconv.Itoa(nums[2])
}
