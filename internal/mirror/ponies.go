package mirror

import (
	"context"

	"admin-mirror/internal/models"
	"admin-mirror/internal/store"
)

// ignorePony suppresses speculative adds during live polls: a character is
// only worth holding in memory while its account's pony list is
// materialized. Fetch bypasses this, which is how SubscribeToAccountPonies
// force-loads an account's characters.
func (s *AdminService) ignorePony(p *models.Pony) bool {
	return s.poniesLists[p.Account] == nil
}

func (s *AdminService) ponyAdded(p *models.Pony) {
	s.placePony(p)
}

func (s *AdminService) ponyUpdated(old, fresh *models.Pony) {
	moved := old.Account != fresh.Account
	if moved {
		s.detachPony(old)
	}
	*old = *fresh
	if moved {
		s.placePony(old)
	} else if w := s.poniesLists[old.Account]; w != nil {
		w.Replace(w.Items())
	}
}

func (s *AdminService) ponyDeleted(p *models.Pony) {
	s.detachPony(p)
}

func (s *AdminService) placePony(p *models.Pony) {
	if p.Account != "" {
		if acct, ok := s.accounts.itemsMap[p.Account]; ok {
			s.attachPony(acct, p)
			return
		}
	}
	s.unassignedPonies[p.ID] = p
}

func (s *AdminService) attachPony(acct *models.Account, p *models.Pony) {
	w := s.poniesLists[acct.ID]
	if w == nil {
		// Nobody materialized this account's list; with the buffer entry
		// gone the character is unreferenced and must not stay pinned.
		s.cleanupPony(p)
		return
	}
	for _, existing := range w.Items() {
		if existing.ID == p.ID {
			s.log.Warn("duplicate_pony_attach", "account", acct.ID, "pony", p.ID)
			return
		}
	}
	w.PushOrdered(p, models.ComparePonies)
}

func (s *AdminService) detachPony(p *models.Pony) {
	if _, ok := s.unassignedPonies[p.ID]; ok {
		delete(s.unassignedPonies, p.ID)
		return
	}
	if w := s.poniesLists[p.Account]; w != nil {
		w.Remove(p)
	}
}

// SubscribeToAccountPonies materializes the per-account pony wrapper and
// force-loads the account's characters past the normal ignore rule. The
// caller must pair the last unsubscribe with CleanupPoniesList; this is
// manual reference counting, not garbage collection.
func (s *AdminService) SubscribeToAccountPonies(ctx context.Context, accountID string, fn func([]*models.PonyInfo)) (*ListSubscription[*models.PonyInfo], error) {
	s.mu.Lock()
	if _, ok := s.accounts.itemsMap[accountID]; !ok {
		s.mu.Unlock()
		return nil, nil
	}
	w := s.poniesLists[accountID]
	created := w == nil
	if created {
		w = NewObservableList(nil, models.CleanPony)
		s.poniesLists[accountID] = w
	}
	sub := w.Subscribe(fn)
	s.mu.Unlock()

	if created {
		if err := s.ponies.Fetch(ctx, store.Filter{Account: accountID}); err != nil {
			return sub, err
		}
	}
	return sub, nil
}

// CleanupPoniesList discards the wrapper once its last subscriber is gone
// and offers every pony it held to cleanupPony for eviction.
func (s *AdminService) CleanupPoniesList(accountID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := s.poniesLists[accountID]
	if w == nil || w.HasSubscribers() {
		return
	}
	delete(s.poniesLists, accountID)
	for _, p := range w.Items() {
		s.cleanupPony(p)
	}
}

// cleanupPony evicts a character from the ponies list entirely when no
// materialized account list holds it and nothing subscribes to it directly.
// Eviction uses discard: no deletion notification, the record still exists
// at the source.
func (s *AdminService) cleanupPony(p *models.Pony) {
	if s.ponies.hasSubscriptions(p.ID) {
		return
	}
	if w := s.poniesLists[p.Account]; w != nil {
		for _, existing := range w.Items() {
			if existing == p {
				return
			}
		}
	}
	if _, ok := s.unassignedPonies[p.ID]; ok {
		return
	}
	s.ponies.discard(p.ID)
}
