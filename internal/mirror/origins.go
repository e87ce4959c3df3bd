package mirror

import (
	"slices"

	"admin-mirror/internal/models"
)

// GetOrCreateOrigin resolves an origin by IP, synthesizing a placeholder
// record when no real one has loaded yet.
func (s *AdminService) GetOrCreateOrigin(cite models.OriginCite) *models.Origin {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getOrCreateOrigin(cite)
}

func (s *AdminService) getOrCreateOrigin(cite models.OriginCite) *models.Origin {
	if o, ok := s.origins.itemsMap[cite.IP]; ok {
		if o.Country == "" {
			o.Country = cite.Country
		}
		return o
	}
	return s.origins.add(&models.Origin{
		ID:          cite.IP,
		Country:     cite.Country,
		Synthesized: true,
	})
}

func (s *AdminService) originUpdated(old, fresh *models.Origin) {
	old.Country = fresh.Country
	old.Flags = fresh.Flags
	old.UpdatedAt = fresh.UpdatedAt
	// A real store record arrived; the origin is no longer a placeholder and
	// survives even with zero referencing accounts.
	old.Synthesized = false
}

// updateOriginRefs recomputes an account's resolved origin list and keeps
// the Origin.Accounts reverse edges exactly symmetric. Both sides change
// together, inside the lock, before any subscriber sees either.
func (s *AdminService) updateOriginRefs(a *models.Account, cites []models.OriginCite) {
	previous := a.OriginsRefs

	refs := make([]*models.OriginRef, 0, len(cites))
	seen := make(map[string]bool, len(cites))
	for _, cite := range cites {
		if cite.IP == "" || seen[cite.IP] {
			continue
		}
		seen[cite.IP] = true
		refs = append(refs, &models.OriginRef{
			Origin: s.getOrCreateOrigin(cite),
			Last:   cite.Last,
		})
	}
	slices.SortFunc(refs, models.CompareOriginRefs)
	a.OriginsRefs = refs

	current := make(map[string]bool, len(refs))
	for _, ref := range refs {
		current[ref.Origin.ID] = true
	}

	// Drop the back-edge from origins no longer cited. Placeholders left
	// with no accounts are evicted outright; real origins only re-trigger.
	for _, ref := range previous {
		o := ref.Origin
		if current[o.ID] {
			continue
		}
		removeAccountEntry(o, a)
		if len(o.Accounts) == 0 && o.Synthesized {
			s.origins.discard(o.ID)
		} else {
			s.origins.trigger(o.ID, o)
		}
	}

	for _, ref := range refs {
		o := ref.Origin
		if !containsAccount(o.Accounts, a) {
			o.Accounts = append(o.Accounts, a)
			s.origins.trigger(o.ID, o)
		}
	}

	if w := s.originsLists[a.ID]; w != nil {
		w.Replace(a.OriginsRefs)
	}
}

// SubscribeToAccountOrigins materializes the per-account origins wrapper on
// first subscribe. The caller must call CleanupOriginsList once the last
// subscriber is gone; the wrapper is not torn down automatically.
func (s *AdminService) SubscribeToAccountOrigins(accountID string, fn func([]*models.OriginInfo)) *ListSubscription[*models.OriginInfo] {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts.itemsMap[accountID]
	if !ok {
		return nil
	}
	w := s.originsLists[accountID]
	if w == nil {
		w = NewObservableList(acct.OriginsRefs, models.CleanOriginRef)
		s.originsLists[accountID] = w
	}
	return w.Subscribe(fn)
}

// CleanupOriginsList discards the wrapper once nothing subscribes to it.
func (s *AdminService) CleanupOriginsList(accountID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := s.originsLists[accountID]
	if w == nil || w.HasSubscribers() {
		return
	}
	delete(s.originsLists, accountID)
}

func removeAccountEntry(o *models.Origin, a *models.Account) {
	for i, existing := range o.Accounts {
		if existing == a {
			o.Accounts = append(o.Accounts[:i], o.Accounts[i+1:]...)
			return
		}
	}
}

func containsAccount(accounts []*models.Account, a *models.Account) bool {
	for _, existing := range accounts {
		if existing == a {
			return true
		}
	}
	return false
}
