package store

import (
	"slices"

	"admin-mirror/internal/models"
)

// Per-kind in-memory sources. Clones copy only the persisted projection;
// derived fields (OriginsRefs, Auths, reverse edges) always start empty on a
// freshly-fetched record.

func NewMemoryAccounts() *MemorySource[*models.Account] {
	return NewMemorySource(cloneAccount, matchIDs[*models.Account])
}

func NewMemoryOrigins() *MemorySource[*models.Origin] {
	return NewMemorySource(cloneOrigin, matchIDs[*models.Origin])
}

func NewMemoryAuths() *MemorySource[*models.Auth] {
	return NewMemorySource(cloneAuth, func(a *models.Auth, f Filter) bool {
		if f.Account != "" && a.Account != f.Account {
			return false
		}
		return matchIDs(a, f)
	})
}

func NewMemoryPonies() *MemorySource[*models.Pony] {
	return NewMemorySource(clonePony, func(p *models.Pony, f Filter) bool {
		if f.Account != "" && p.Account != f.Account {
			return false
		}
		return matchIDs(p, f)
	})
}

func NewMemoryEvents() *MemorySource[*models.Event] {
	return NewMemorySource(cloneEvent, matchIDs[*models.Event])
}

func matchIDs[T Record](rec T, f Filter) bool {
	if len(f.IDs) == 0 {
		return true
	}
	return slices.Contains(f.IDs, rec.GetID())
}

func cloneAccount(a *models.Account) *models.Account {
	c := *a
	c.Emails = append([]string(nil), a.Emails...)
	c.Roles = append([]string(nil), a.Roles...)
	c.Origins = append([]models.OriginCite(nil), a.Origins...)
	if a.Counters != nil {
		c.Counters = make(map[string]int, len(a.Counters))
		for k, v := range a.Counters {
			c.Counters[k] = v
		}
	}
	c.NameLower = ""
	c.OriginsRefs = nil
	c.Auths = nil
	return &c
}

func cloneOrigin(o *models.Origin) *models.Origin {
	c := *o
	c.Accounts = nil
	c.Synthesized = false
	return &c
}

func cloneAuth(a *models.Auth) *models.Auth {
	c := *a
	return &c
}

func clonePony(p *models.Pony) *models.Pony {
	c := *p
	return &c
}

func cloneEvent(e *models.Event) *models.Event {
	c := *e
	return &c
}
