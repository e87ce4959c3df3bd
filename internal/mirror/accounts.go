package mirror

import (
	"strings"

	"admin-mirror/internal/models"
)

func fixAccount(a *models.Account) error {
	a.Name = strings.TrimSpace(a.Name)
	a.NameLower = strings.ToLower(a.Name)
	return nil
}

func (s *AdminService) accountAdded(a *models.Account) {
	for _, email := range a.Emails {
		addIndexEntry(s.byEmail, models.EmailName(email), a)
	}
	for _, ref := range models.NoteRefs(a.Note) {
		if ref != a.ID {
			addIndexEntry(s.byNoteRef, ref, a)
		}
	}
	addIndexEntry(s.byBrowserID, a.LastBrowserID, a)

	s.updateOriginRefs(a, a.Origins)
	s.queueDuplicateCheck(a.ID)
}

func (s *AdminService) accountUpdated(old, fresh *models.Account) {
	s.diffEmailIndex(old, old.Emails, fresh.Emails)
	s.diffNoteIndex(old, old.Note, fresh.Note)
	if old.LastBrowserID != fresh.LastBrowserID {
		removeIndexEntry(s.byBrowserID, old.LastBrowserID, old)
		addIndexEntry(s.byBrowserID, fresh.LastBrowserID, old)
	}

	copyAccountFields(old, fresh)
	s.updateOriginRefs(old, old.Origins)
	s.queueDuplicateCheck(old.ID)
}

func (s *AdminService) accountDeleted(a *models.Account) {
	for _, email := range a.Emails {
		removeIndexEntry(s.byEmail, models.EmailName(email), a)
	}
	for _, ref := range models.NoteRefs(a.Note) {
		if ref != a.ID {
			removeIndexEntry(s.byNoteRef, ref, a)
		}
	}
	removeIndexEntry(s.byBrowserID, a.LastBrowserID, a)

	// Clear the reverse edges before the account object goes away.
	s.updateOriginRefs(a, nil)

	// Its auths go back to the unassigned buffer; a later merge or reload
	// decides where they belong.
	for _, auth := range a.Auths {
		s.unassignedAuths[auth.ID] = auth
	}
	a.Auths = nil
	delete(s.authsLists, a.ID)

	if w := s.poniesLists[a.ID]; w != nil {
		delete(s.poniesLists, a.ID)
		for _, p := range w.Items() {
			s.cleanupPony(p)
		}
	}
	delete(s.originsLists, a.ID)

	s.spamCounters.Remove(a.ID)
	s.reportCounters.Remove(a.ID)
}

// assignUnassigned retries resolving buffered orphans after every accounts
// cycle that processed records.
func (s *AdminService) assignUnassigned() {
	for id, auth := range s.unassignedAuths {
		if auth.Account == "" {
			continue
		}
		if acct, ok := s.accounts.itemsMap[auth.Account]; ok {
			delete(s.unassignedAuths, id)
			s.attachAuth(acct, auth)
		}
	}
	for id, pony := range s.unassignedPonies {
		if pony.Account == "" {
			continue
		}
		if acct, ok := s.accounts.itemsMap[pony.Account]; ok {
			delete(s.unassignedPonies, id)
			s.attachPony(acct, pony)
		}
	}
}

func (s *AdminService) diffEmailIndex(a *models.Account, oldEmails, newEmails []string) {
	oldKeys := emailNameSet(oldEmails)
	newKeys := emailNameSet(newEmails)
	for key := range oldKeys {
		if !newKeys[key] {
			removeIndexEntry(s.byEmail, key, a)
		}
	}
	for key := range newKeys {
		if !oldKeys[key] {
			addIndexEntry(s.byEmail, key, a)
		}
	}
}

func (s *AdminService) diffNoteIndex(a *models.Account, oldNote, newNote string) {
	if oldNote == newNote {
		return
	}
	oldRefs := refSet(models.NoteRefs(oldNote), a.ID)
	newRefs := refSet(models.NoteRefs(newNote), a.ID)
	for ref := range oldRefs {
		if !newRefs[ref] {
			removeIndexEntry(s.byNoteRef, ref, a)
		}
	}
	for ref := range newRefs {
		if !oldRefs[ref] {
			addIndexEntry(s.byNoteRef, ref, a)
		}
	}
}

func emailNameSet(emails []string) map[string]bool {
	set := make(map[string]bool, len(emails))
	for _, email := range emails {
		if name := models.EmailName(email); name != "" {
			set[name] = true
		}
	}
	return set
}

func refSet(refs []string, self string) map[string]bool {
	set := make(map[string]bool, len(refs))
	for _, ref := range refs {
		if ref != self {
			set[ref] = true
		}
	}
	return set
}

func addIndexEntry(index map[string][]*models.Account, key string, a *models.Account) {
	if key == "" {
		return
	}
	for _, existing := range index[key] {
		if existing == a {
			return
		}
	}
	index[key] = append(index[key], a)
}

func removeIndexEntry(index map[string][]*models.Account, key string, a *models.Account) {
	if key == "" {
		return
	}
	entries := index[key]
	for i, existing := range entries {
		if existing == a {
			entries = append(entries[:i], entries[i+1:]...)
			break
		}
	}
	if len(entries) == 0 {
		delete(index, key)
	} else {
		index[key] = entries
	}
}

// copyAccountFields merges the persisted projection onto the retained mirror
// object, leaving derived state (refs, auth list, lowered name source) to
// the callers that maintain it.
func copyAccountFields(dst, src *models.Account) {
	dst.Name = src.Name
	dst.NameLower = src.NameLower
	dst.CreatedAt = src.CreatedAt
	dst.UpdatedAt = src.UpdatedAt
	dst.LastVisit = src.LastVisit
	dst.BirthDate = src.BirthDate
	dst.Emails = src.Emails
	dst.IgnoresCount = src.IgnoresCount
	dst.Counters = src.Counters
	dst.MuteUntil = src.MuteUntil
	dst.ShadowUntil = src.ShadowUntil
	dst.BanUntil = src.BanUntil
	dst.Flags = src.Flags
	dst.Roles = src.Roles
	dst.CharacterCount = src.CharacterCount
	dst.SupporterCents = src.SupporterCents
	dst.LastBrowserID = src.LastBrowserID
	dst.Note = src.Note
	dst.Alert = src.Alert
	dst.Origins = src.Origins
}
