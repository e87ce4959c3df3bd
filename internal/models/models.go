package models

import "time"

// Kind names accepted by the removed-item RPC surface.
const (
	KindAccounts = "accounts"
	KindOrigins  = "origins"
	KindAuths    = "auths"
	KindPonies   = "ponies"
	KindEvents   = "events"
)

// Account flag bits (moderation).
const (
	AccountFlagBanned     = 1 << 0
	AccountFlagMuted      = 1 << 1
	AccountFlagShadowed   = 1 << 2
	AccountFlagDuplicates = 1 << 3
)

// OriginCite is one origin entry as persisted on the account record.
type OriginCite struct {
	IP      string    `json:"ip"`
	Country string    `json:"country"`
	Last    time.Time `json:"last"`
}

// Account is the mirrored projection of an account record plus the derived
// state maintained by the admin service. Derived fields are never persisted.
type Account struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
	LastVisit      time.Time      `json:"lastVisit"`
	BirthDate      time.Time      `json:"birthDate"`
	Emails         []string       `json:"emails"`
	IgnoresCount   int            `json:"ignoresCount"`
	Counters       map[string]int `json:"counters"`
	MuteUntil      time.Time      `json:"muteUntil"`
	ShadowUntil    time.Time      `json:"shadowUntil"`
	BanUntil       time.Time      `json:"banUntil"`
	Flags          int            `json:"flags"`
	Roles          []string       `json:"roles"`
	CharacterCount int            `json:"characterCount"`
	SupporterCents int            `json:"supporterCents"`
	LastBrowserID  string         `json:"lastBrowserId"`
	Note           string         `json:"note"`
	Alert          string         `json:"alert"`
	Origins        []OriginCite   `json:"origins"`

	// derived, maintained in-memory only
	NameLower   string       `json:"-"`
	OriginsRefs []*OriginRef `json:"-"`
	Auths       []*Auth      `json:"-"`
}

func (a *Account) GetID() string           { return a.ID }
func (a *Account) GetUpdatedAt() time.Time { return a.UpdatedAt }

// OriginRef is a resolved origin citation: the shared Origin record plus the
// last time this account was seen on it.
type OriginRef struct {
	Origin *Origin
	Last   time.Time
}

// Origin is keyed by the IP address itself; Accounts is the reverse edge to
// every currently-loaded account that cites it. Synthesized marks a
// placeholder created on first citation before (or without) a store record.
type Origin struct {
	ID        string    `json:"ip"`
	Country   string    `json:"country"`
	Flags     int       `json:"flags"`
	UpdatedAt time.Time `json:"updatedAt"`

	// derived
	Accounts    []*Account `json:"-"`
	Synthesized bool       `json:"-"`
}

func (o *Origin) GetID() string           { return o.ID }
func (o *Origin) GetUpdatedAt() time.Time { return o.UpdatedAt }

// Auth is a social-login link. Account may be empty while unassigned.
type Auth struct {
	ID        string    `json:"id"`
	Account   string    `json:"account"`
	Provider  string    `json:"provider"`
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	Disabled  bool      `json:"disabled"`
	Banned    bool      `json:"banned"`
	Pledged   int       `json:"pledged"`
	LastUsed  time.Time `json:"lastUsed"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (a *Auth) GetID() string           { return a.ID }
func (a *Auth) GetUpdatedAt() time.Time { return a.UpdatedAt }

// Pony is a character record. Never trusted across restarts: the ponies list
// is noStore and always re-fetched in full.
type Pony struct {
	ID        string    `json:"id"`
	Account   string    `json:"account"`
	Name      string    `json:"name"`
	Flags     int       `json:"flags"`
	LastUsed  time.Time `json:"lastUsed"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (p *Pony) GetID() string           { return p.ID }
func (p *Pony) GetUpdatedAt() time.Time { return p.UpdatedAt }

// Event is a read-only feed entry; no cross-indexing.
type Event struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Message   string    `json:"message"`
	Desc      string    `json:"desc"`
	Account   string    `json:"account,omitempty"`
	Pony      string    `json:"pony,omitempty"`
	Origin    string    `json:"origin,omitempty"`
}

func (e *Event) GetID() string           { return e.ID }
func (e *Event) GetUpdatedAt() time.Time { return e.UpdatedAt }
