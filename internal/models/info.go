package models

import "time"

// The *Info shapes are the cleaned, subscriber-facing snapshots. Unlike the
// mirror records they are safe to retain: every Clean* call builds a fresh
// value with no live references back into the cache.

type AccountInfo struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	CreatedAt      time.Time `json:"createdAt"`
	LastVisit      time.Time `json:"lastVisit"`
	Emails         []string  `json:"emails"`
	Flags          int       `json:"flags"`
	Roles          []string  `json:"roles"`
	CharacterCount int       `json:"characterCount"`
	SupporterCents int       `json:"supporterCents"`
	Note           string    `json:"note"`
	Alert          string    `json:"alert,omitempty"`
	MuteUntil      time.Time `json:"muteUntil"`
	ShadowUntil    time.Time `json:"shadowUntil"`
	BanUntil       time.Time `json:"banUntil"`
	AuthCount      int       `json:"authCount"`
	OriginCount    int       `json:"originCount"`
}

func CleanAccount(a *Account) *AccountInfo {
	return &AccountInfo{
		ID:             a.ID,
		Name:           a.Name,
		CreatedAt:      a.CreatedAt,
		LastVisit:      a.LastVisit,
		Emails:         append([]string(nil), a.Emails...),
		Flags:          a.Flags,
		Roles:          append([]string(nil), a.Roles...),
		CharacterCount: a.CharacterCount,
		SupporterCents: a.SupporterCents,
		Note:           a.Note,
		Alert:          a.Alert,
		MuteUntil:      a.MuteUntil,
		ShadowUntil:    a.ShadowUntil,
		BanUntil:       a.BanUntil,
		AuthCount:      len(a.Auths),
		OriginCount:    len(a.OriginsRefs),
	}
}

type OriginInfo struct {
	IP           string    `json:"ip"`
	Country      string    `json:"country"`
	Flags        int       `json:"flags"`
	AccountCount int       `json:"accountCount"`
	Last         time.Time `json:"last,omitempty"`
}

func CleanOrigin(o *Origin) *OriginInfo {
	return &OriginInfo{
		IP:           o.ID,
		Country:      o.Country,
		Flags:        o.Flags,
		AccountCount: len(o.Accounts),
	}
}

// CleanOriginRef carries the per-account last-seen timestamp alongside the
// shared origin fields.
func CleanOriginRef(r *OriginRef) *OriginInfo {
	info := CleanOrigin(r.Origin)
	info.Last = r.Last
	return info
}

type AuthInfo struct {
	ID       string    `json:"id"`
	Provider string    `json:"provider"`
	Name     string    `json:"name"`
	URL      string    `json:"url,omitempty"`
	Disabled bool      `json:"disabled"`
	Banned   bool      `json:"banned"`
	Pledged  int       `json:"pledged"`
	LastUsed time.Time `json:"lastUsed"`
}

func CleanAuth(a *Auth) *AuthInfo {
	return &AuthInfo{
		ID:       a.ID,
		Provider: a.Provider,
		Name:     a.Name,
		URL:      a.URL,
		Disabled: a.Disabled,
		Banned:   a.Banned,
		Pledged:  a.Pledged,
		LastUsed: a.LastUsed,
	}
}

type PonyInfo struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Flags    int       `json:"flags"`
	LastUsed time.Time `json:"lastUsed"`
}

func CleanPony(p *Pony) *PonyInfo {
	return &PonyInfo{ID: p.ID, Name: p.Name, Flags: p.Flags, LastUsed: p.LastUsed}
}

type EventInfo struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	Message   string    `json:"message"`
	Desc      string    `json:"desc,omitempty"`
	Account   string    `json:"account,omitempty"`
	Pony      string    `json:"pony,omitempty"`
	Origin    string    `json:"origin,omitempty"`
}

func CleanEvent(e *Event) *EventInfo {
	return &EventInfo{
		ID:        e.ID,
		CreatedAt: e.CreatedAt,
		Message:   e.Message,
		Desc:      e.Desc,
		Account:   e.Account,
		Pony:      e.Pony,
		Origin:    e.Origin,
	}
}
