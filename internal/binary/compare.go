package binary

import (
	"sort"
	"strconv"
	"strings"
)

// CompareVersions orders dotted driver versions. Each component is a
// number optionally followed by a suffix; a bare number ranks above the
// same number with a suffix (1.2 > 1.2b) and suffixes compare lexically.
// Missing trailing components count as zero, and a leading "v" or "v." is
// ignored. It returns -1, 0 or +1.
func CompareVersions(a, b string) int {
	ta := versionTokens(a)
	tb := versionTokens(b)
	for i := 0; i < len(ta) || i < len(tb); i++ {
		var x, y versionToken
		if i < len(ta) {
			x = ta[i]
		}
		if i < len(tb) {
			y = tb[i]
		}
		if c := x.compare(y); c != 0 {
			return c
		}
	}
	return 0
}

// SortVersions sorts versions ascending in place.
func SortVersions(versions []string) {
	sort.SliceStable(versions, func(i, j int) bool {
		return CompareVersions(versions[i], versions[j]) < 0
	})
}

// MaxVersion returns the highest version, or "" for an empty slice.
func MaxVersion(versions []string) string {
	best := ""
	for _, v := range versions {
		if best == "" || CompareVersions(v, best) > 0 {
			best = v
		}
	}
	return best
}

type versionToken struct {
	number int
	suffix string
}

func (t versionToken) compare(o versionToken) int {
	switch {
	case t.number < o.number:
		return -1
	case t.number > o.number:
		return 1
	}
	switch {
	case t.suffix == o.suffix:
		return 0
	case t.suffix == "":
		return 1
	case o.suffix == "":
		return -1
	case t.suffix < o.suffix:
		return -1
	default:
		return 1
	}
}

func versionTokens(v string) []versionToken {
	v = strings.TrimPrefix(strings.TrimSpace(v), "v")
	v = strings.TrimPrefix(v, ".")
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ".")
	tokens := make([]versionToken, 0, len(parts))
	for _, p := range parts {
		i := 0
		for i < len(p) && p[i] >= '0' && p[i] <= '9' {
			i++
		}
		n, _ := strconv.Atoi(p[:i])
		tokens = append(tokens, versionToken{number: n, suffix: p[i:]})
	}
	// Trailing zero components do not change ordering.
	for len(tokens) > 0 && tokens[len(tokens)-1] == (versionToken{}) {
		tokens = tokens[:len(tokens)-1]
	}
	return tokens
}

// browserMajor returns the leading numeric component of a browser version.
func browserMajor(v string) string {
	v = strings.TrimPrefix(v, "v")
	if i := strings.IndexByte(v, '.'); i >= 0 {
		return v[:i]
	}
	return v
}

// NearestCompatible maps an installed browser version onto one of the
// published driver versions: an exact match wins, otherwise the next
// higher version sharing the browser's major, otherwise the next lower
// version. It returns "" when published is empty.
func NearestCompatible(published []string, browser string) string {
	if len(published) == 0 {
		return ""
	}
	for _, v := range published {
		if v == browser {
			return v
		}
	}

	sorted := make([]string, len(published))
	copy(sorted, published)
	SortVersions(sorted)

	idx := sort.Search(len(sorted), func(i int) bool {
		return CompareVersions(sorted[i], browser) >= 0
	})
	major := browserMajor(browser)
	if idx < len(sorted) && browserMajor(sorted[idx]) == major {
		return sorted[idx]
	}
	if idx > 0 {
		return sorted[idx-1]
	}
	return sorted[0]
}
