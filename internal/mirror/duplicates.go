package mirror

import (
	"context"
	"slices"
	"time"

	"admin-mirror/internal/models"
)

const (
	// duplicateCheckDepth bounds the origin-graph walk: origins of the
	// starting account and of its direct siblings are expanded, a third
	// level is visited but not expanded. Deep enough for
	// account -> shared IP -> account -> shared IP -> account chains,
	// cheap enough for high-fan-out origins like shared NATs.
	duplicateCheckDepth = 3

	// duplicateMinAge keeps two registrations from the same multi-tab
	// signup burst from being merged into each other.
	duplicateMinAge = time.Hour
)

func (s *AdminService) queueDuplicateCheck(id string) {
	if n := len(s.duplicatesQueue); n > 0 && s.duplicatesQueue[n-1] == id {
		return
	}
	s.duplicatesQueue = append(s.duplicatesQueue, id)
}

// duplicateFilter is the cheap pre-filter: accounts with no shared-origin
// and no browser-fingerprint signal cannot have graph-detectable duplicates.
func (s *AdminService) duplicateFilter(a *models.Account) bool {
	return a.LastBrowserID != "" || len(a.OriginsRefs) > 0
}

// GetDuplicates returns the ranked potential-duplicate candidates for an
// account: siblings reached through the bounded origin-graph walk plus
// accounts sharing its browser fingerprint.
func (s *AdminService) GetDuplicates(a *models.Account) []*models.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getDuplicates(a)
}

func (s *AdminService) getDuplicates(a *models.Account) []*models.Account {
	seenAccounts := map[string]bool{a.ID: true}
	seenOrigins := map[string]bool{}
	var candidates []*models.Account
	s.collectDuplicates(&candidates, seenAccounts, seenOrigins, a, 1)

	if a.LastBrowserID != "" {
		for _, b := range s.byBrowserID[a.LastBrowserID] {
			if !seenAccounts[b.ID] {
				seenAccounts[b.ID] = true
				candidates = append(candidates, b)
			}
		}
	}

	slices.SortFunc(candidates, func(x, y *models.Account) int {
		sx, sy := s.duplicateScore(a, x), s.duplicateScore(a, y)
		if sx != sy {
			return sy - sx
		}
		if x.CreatedAt.After(y.CreatedAt) {
			return -1
		}
		if y.CreatedAt.After(x.CreatedAt) {
			return 1
		}
		return 0
	})
	return candidates
}

// collectDuplicates walks account -> cited origin -> sibling account edges,
// visiting each account and each origin at most once. depth counts visited
// account levels; a node at the depth limit is collected but not expanded.
func (s *AdminService) collectDuplicates(out *[]*models.Account, seenAccounts, seenOrigins map[string]bool, acc *models.Account, depth int) {
	if depth >= duplicateCheckDepth {
		return
	}
	for _, ref := range acc.OriginsRefs {
		o := ref.Origin
		if seenOrigins[o.ID] {
			continue
		}
		seenOrigins[o.ID] = true
		for _, sibling := range o.Accounts {
			if seenAccounts[sibling.ID] {
				continue
			}
			seenAccounts[sibling.ID] = true
			*out = append(*out, sibling)
			s.collectDuplicates(out, seenAccounts, seenOrigins, sibling, depth+1)
		}
	}
}

// duplicateScore ranks a candidate's signal strength against the triggering
// account. Browser fingerprint beats note references beats shared email
// names beats raw origin overlap.
func (s *AdminService) duplicateScore(a, candidate *models.Account) int {
	score := 0
	if a.LastBrowserID != "" && a.LastBrowserID == candidate.LastBrowserID {
		score += 80
	}
	if noteReferences(a, candidate) || noteReferences(candidate, a) {
		score += 40
	}
	if sharedEmailNames(a, candidate) > 0 {
		score += 20
	}
	score += sharedOrigins(a, candidate)
	return score
}

func noteReferences(a, b *models.Account) bool {
	return slices.Contains(models.NoteRefs(a.Note), b.ID)
}

func sharedEmailNames(a, b *models.Account) int {
	names := emailNameSet(a.Emails)
	shared := 0
	for name := range emailNameSet(b.Emails) {
		if names[name] {
			shared++
		}
	}
	return shared
}

func sharedOrigins(a, b *models.Account) int {
	ips := make(map[string]bool, len(a.OriginsRefs))
	for _, ref := range a.OriginsRefs {
		ips[ref.Origin.ID] = true
	}
	shared := 0
	for _, ref := range b.OriginsRefs {
		if ips[ref.Origin.ID] {
			shared++
		}
	}
	return shared
}

// MergePotentialDuplicates drains the work queue (newest first), finds the
// first account with a confident duplicate, and delegates the merge to the
// external collaborator. The account with the older last visit is merged
// away; ties keep the triggering account. Returns the surviving id, or ""
// when the queue drained without a merge.
//
// Not safe to run concurrently with itself; callers serialize sweeps.
func (s *AdminService) MergePotentialDuplicates(ctx context.Context) (string, error) {
	for {
		s.mu.Lock()
		n := len(s.duplicatesQueue)
		if n == 0 {
			s.mu.Unlock()
			return "", nil
		}
		id := s.duplicatesQueue[n-1]
		s.duplicatesQueue = s.duplicatesQueue[:n-1]

		// Re-resolve: the account may be gone since it was queued.
		acct, ok := s.accounts.itemsMap[id]
		if !ok || !s.duplicateFilter(acct) {
			s.mu.Unlock()
			continue
		}

		threshold := time.Now().Add(-duplicateMinAge)
		var pick *models.Account
		for _, candidate := range s.getDuplicates(acct) {
			if candidate.CreatedAt.Before(threshold) {
				pick = candidate
				break
			}
		}
		if pick == nil {
			s.mu.Unlock()
			continue
		}

		keep, away := acct, pick
		if pick.LastVisit.After(acct.LastVisit) {
			keep, away = pick, acct
		}
		keepID, awayID := keep.ID, away.ID
		s.mu.Unlock()

		if err := s.merger.MergeAccounts(ctx, keepID, awayID, "duplicate account", false, true); err != nil {
			return "", err
		}
		s.log.Info("duplicate_accounts_merged", "keep", keepID, "merged", awayID)
		return keepID, nil
	}
}
