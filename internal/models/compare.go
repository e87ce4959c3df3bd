package models

import "strings"

// CompareAuths orders an account's auth list: usable auths first, then by
// provider and display name.
func CompareAuths(a, b *Auth) int {
	if a.Disabled != b.Disabled {
		if a.Disabled {
			return 1
		}
		return -1
	}
	if a.Banned != b.Banned {
		if a.Banned {
			return 1
		}
		return -1
	}
	if c := strings.Compare(a.Provider, b.Provider); c != 0 {
		return c
	}
	return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
}

// ComparePonies orders an account's character list by name, id as tiebreak.
func ComparePonies(a, b *Pony) int {
	if c := strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)); c != 0 {
		return c
	}
	return strings.Compare(a.ID, b.ID)
}

// CompareOriginRefs orders resolved origins most-recently-seen first.
func CompareOriginRefs(a, b *OriginRef) int {
	if a.Last.After(b.Last) {
		return -1
	}
	if b.Last.After(a.Last) {
		return 1
	}
	return strings.Compare(a.Origin.ID, b.Origin.ID)
}
