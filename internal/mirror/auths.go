package mirror

import (
	"slices"

	"admin-mirror/internal/models"
)

func (s *AdminService) authAdded(auth *models.Auth) {
	s.placeAuth(auth)
}

func (s *AdminService) authUpdated(old, fresh *models.Auth) {
	moved := old.Account != fresh.Account
	if moved {
		s.detachAuth(old)
	}
	prevOwner := old.Account
	*old = *fresh
	if moved {
		s.placeAuth(old)
		return
	}
	// Same owner: ordering fields may have changed, re-sort in place.
	if acct, ok := s.accounts.itemsMap[prevOwner]; ok && prevOwner != "" {
		slices.SortFunc(acct.Auths, models.CompareAuths)
		if w := s.authsLists[acct.ID]; w != nil {
			w.Replace(append([]*models.Auth(nil), acct.Auths...))
		}
	}
}

func (s *AdminService) authDeleted(auth *models.Auth) {
	s.detachAuth(auth)
}

// placeAuth routes an auth to its account's relationship list, or to the
// unassigned buffer when the account is unset or not loaded yet.
func (s *AdminService) placeAuth(auth *models.Auth) {
	if auth.Account != "" {
		if acct, ok := s.accounts.itemsMap[auth.Account]; ok {
			s.attachAuth(acct, auth)
			return
		}
	}
	s.unassignedAuths[auth.ID] = auth
}

// attachAuth inserts the auth into the account's owned list, keeping order.
// A duplicate id means the store reported the same child twice across
// overlapping polls; warn and keep the list intact.
func (s *AdminService) attachAuth(acct *models.Account, auth *models.Auth) {
	for _, existing := range acct.Auths {
		if existing.ID == auth.ID {
			s.log.Warn("duplicate_auth_attach", "account", acct.ID, "auth", auth.ID)
			return
		}
	}
	acct.Auths = insertSorted(acct.Auths, auth, models.CompareAuths)
	if w := s.authsLists[acct.ID]; w != nil {
		w.PushOrdered(auth, models.CompareAuths)
	}
}

func (s *AdminService) detachAuth(auth *models.Auth) {
	if _, ok := s.unassignedAuths[auth.ID]; ok {
		delete(s.unassignedAuths, auth.ID)
		return
	}
	acct, ok := s.accounts.itemsMap[auth.Account]
	if !ok {
		return
	}
	for i, existing := range acct.Auths {
		if existing == auth {
			acct.Auths = append(acct.Auths[:i], acct.Auths[i+1:]...)
			break
		}
	}
	if w := s.authsLists[acct.ID]; w != nil {
		w.Remove(auth)
	}
}

// SubscribeToAccountAuths materializes the per-account auths wrapper on
// first subscribe and delivers the current snapshot immediately.
func (s *AdminService) SubscribeToAccountAuths(accountID string, fn func([]*models.AuthInfo)) *ListSubscription[*models.AuthInfo] {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts.itemsMap[accountID]
	if !ok {
		return nil
	}
	w := s.authsLists[accountID]
	if w == nil {
		w = NewObservableList(append([]*models.Auth(nil), acct.Auths...), models.CleanAuth)
		s.authsLists[accountID] = w
	}
	return w.Subscribe(fn)
}

func insertSorted[T any](items []T, item T, compare func(a, b T) int) []T {
	pos := len(items)
	for i, existing := range items {
		if compare(item, existing) < 0 {
			pos = i
			break
		}
	}
	items = append(items, item)
	copy(items[pos+1:], items[pos:])
	items[pos] = item
	return items
}
