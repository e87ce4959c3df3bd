package mirror

import "admin-mirror/internal/models"

// Cleaned lookup surface for the API layer: snapshots taken under the
// service lock, safe to serialize without racing the poll loops.

func (s *AdminService) GetAccountInfo(id string) (*models.AccountInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts.itemsMap[id]
	if !ok {
		return nil, false
	}
	return models.CleanAccount(acct), true
}

func (s *AdminService) GetAccountAuthInfos(id string) ([]*models.AuthInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts.itemsMap[id]
	if !ok {
		return nil, false
	}
	infos := make([]*models.AuthInfo, len(acct.Auths))
	for i, auth := range acct.Auths {
		infos[i] = models.CleanAuth(auth)
	}
	return infos, true
}

func (s *AdminService) GetOriginInfo(ip string) (*models.OriginInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.origins.itemsMap[ip]
	if !ok {
		return nil, false
	}
	return models.CleanOrigin(o), true
}

func (s *AdminService) GetAuthInfo(id string) (*models.AuthInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.auths.itemsMap[id]
	if !ok {
		return nil, false
	}
	return models.CleanAuth(a), true
}

func (s *AdminService) GetPonyInfo(id string) (*models.PonyInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.ponies.itemsMap[id]
	if !ok {
		return nil, false
	}
	return models.CleanPony(p), true
}

func (s *AdminService) GetEventInfo(id string) (*models.EventInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events.itemsMap[id]
	if !ok {
		return nil, false
	}
	return models.CleanEvent(e), true
}

func (s *AdminService) AccountInfosByEmailName(name string) []*models.AccountInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cleanAccounts(s.byEmail[name])
}

func (s *AdminService) AccountInfosByNoteRef(id string) []*models.AccountInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cleanAccounts(s.byNoteRef[id])
}

func (s *AdminService) AccountInfosByBrowserID(id string) []*models.AccountInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cleanAccounts(s.byBrowserID[id])
}

func cleanAccounts(accounts []*models.Account) []*models.AccountInfo {
	infos := make([]*models.AccountInfo, len(accounts))
	for i, acct := range accounts {
		infos[i] = models.CleanAccount(acct)
	}
	return infos
}
