package mirror

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"admin-mirror/internal/models"
	"admin-mirror/internal/store"
)

// Merger is the external account-consolidation collaborator invoked by the
// duplicate sweep.
type Merger interface {
	MergeAccounts(ctx context.Context, keepID, mergeID, reason string, allowAdmin, creatingDuplicates bool) error
}

// Stores bundles the five backing collections.
type Stores struct {
	Accounts store.Source[*models.Account]
	Origins  store.Source[*models.Origin]
	Auths    store.Source[*models.Auth]
	Ponies   store.Source[*models.Pony]
	Events   store.Source[*models.Event]
}

// Config tunes the service; zero values fall back to defaults.
type Config struct {
	PollInterval   time.Duration
	StartStagger   time.Duration
	CounterTimeout time.Duration
}

const (
	defaultStartStagger   = 100 * time.Millisecond
	defaultCounterTimeout = time.Hour
)

// AdminService owns the five live lists and every cross-entity structure
// hanging off them: secondary indexes, unassigned buffers, origin reverse
// edges, lazily materialized per-account lists, and the duplicate queue.
//
// One mutex guards all of it; the lists share it through Options.Lock.
// Lifecycle hooks run with the lock held and only touch unlocked helpers.
type AdminService struct {
	log    *slog.Logger
	mu     sync.Mutex
	merger Merger

	accounts *LiveList[*models.Account]
	origins  *LiveList[*models.Origin]
	auths    *LiveList[*models.Auth]
	ponies   *LiveList[*models.Pony]
	events   *LiveList[*models.Event]

	unassignedAuths  map[string]*models.Auth
	unassignedPonies map[string]*models.Pony

	byEmail     map[string][]*models.Account
	byNoteRef   map[string][]*models.Account
	byBrowserID map[string][]*models.Account

	authsLists   map[string]*ObservableList[*models.Auth, *models.AuthInfo]
	poniesLists  map[string]*ObservableList[*models.Pony, *models.PonyInfo]
	originsLists map[string]*ObservableList[*models.OriginRef, *models.OriginInfo]

	eventsFeed *ObservableList[*models.Event, *models.EventInfo]

	duplicatesQueue []string

	spamCounters   *CounterService[string]
	reportCounters *CounterService[string]

	stagger     time.Duration
	startTimers []*time.Timer
}

func New(log *slog.Logger, stores Stores, merger Merger, cfg Config) *AdminService {
	if cfg.StartStagger <= 0 {
		cfg.StartStagger = defaultStartStagger
	}
	if cfg.CounterTimeout <= 0 {
		cfg.CounterTimeout = defaultCounterTimeout
	}

	s := &AdminService{
		log:              log,
		merger:           merger,
		unassignedAuths:  make(map[string]*models.Auth),
		unassignedPonies: make(map[string]*models.Pony),
		byEmail:          make(map[string][]*models.Account),
		byNoteRef:        make(map[string][]*models.Account),
		byBrowserID:      make(map[string][]*models.Account),
		authsLists:       make(map[string]*ObservableList[*models.Auth, *models.AuthInfo]),
		poniesLists:      make(map[string]*ObservableList[*models.Pony, *models.PonyInfo]),
		originsLists:     make(map[string]*ObservableList[*models.OriginRef, *models.OriginInfo]),
		spamCounters:     NewCounterService[string](cfg.CounterTimeout),
		reportCounters:   NewCounterService[string](cfg.CounterTimeout),
		stagger:          cfg.StartStagger,
	}
	s.eventsFeed = NewObservableList(nil, models.CleanEvent)

	s.events = NewLiveList(log, stores.Events, Options[*models.Event]{
		Kind:     models.KindEvents,
		Fields:   []string{"created_at", "message", "description", "account", "pony", "origin"},
		Interval: cfg.PollInterval,
		Lock:     &s.mu,
		Clean:    func(e *models.Event) any { return models.CleanEvent(e) },
		OnAdd:    s.eventAdded,
		OnUpdate: s.eventUpdated,
		OnDelete: s.eventDeleted,
	})

	s.ponies = NewLiveList(log, stores.Ponies, Options[*models.Pony]{
		Kind:     models.KindPonies,
		Fields:   []string{"account", "name", "flags", "last_used", "created_at"},
		Interval: cfg.PollInterval,
		NoStore:  true,
		Lock:     &s.mu,
		Clean:    func(p *models.Pony) any { return models.CleanPony(p) },
		Ignore:   s.ignorePony,
		OnAdd:    s.ponyAdded,
		OnUpdate: s.ponyUpdated,
		OnDelete: s.ponyDeleted,
	})

	s.origins = NewLiveList(log, stores.Origins, Options[*models.Origin]{
		Kind:     models.KindOrigins,
		Fields:   []string{"country", "flags"},
		Interval: cfg.PollInterval,
		Lock:     &s.mu,
		Clean:    func(o *models.Origin) any { return models.CleanOrigin(o) },
		OnUpdate: s.originUpdated,
		OnSubscribeToMissing: func(ip string) *models.Origin {
			return &models.Origin{ID: ip, Synthesized: true}
		},
	})

	s.auths = NewLiveList(log, stores.Auths, Options[*models.Auth]{
		Kind: models.KindAuths,
		Fields: []string{
			"account", "provider", "name", "url", "disabled", "banned",
			"pledged", "last_used",
		},
		Interval: cfg.PollInterval,
		Lock:     &s.mu,
		Clean:    func(a *models.Auth) any { return models.CleanAuth(a) },
		OnAdd:    s.authAdded,
		OnUpdate: s.authUpdated,
		OnDelete: s.authDeleted,
	})

	s.accounts = NewLiveList(log, stores.Accounts, Options[*models.Account]{
		Kind: models.KindAccounts,
		Fields: []string{
			"name", "created_at", "last_visit", "birth_date", "emails",
			"ignores_count", "counters", "mute_until", "shadow_until",
			"ban_until", "flags", "roles", "character_count",
			"supporter_cents", "last_browser_id", "note", "alert", "origins",
		},
		Interval:         cfg.PollInterval,
		Lock:             &s.mu,
		Clean:            func(a *models.Account) any { return models.CleanAccount(a) },
		Fix:              fixAccount,
		OnAdd:            s.accountAdded,
		OnUpdate:         s.accountUpdated,
		OnDelete:         s.accountDeleted,
		OnAddedOrUpdated: s.assignUnassigned,
		// Auths only start polling once accounts finished their first full
		// load, so an auth arriving early always has a place to land.
		OnFinished: func() { s.auths.Start() },
	})

	return s
}

// Start brings the lists up in dependency order: events first, then ponies,
// origins and accounts on staggered delays. Accounts must start last; their
// OnFinished hook starts the auths list.
func (s *AdminService) Start() {
	s.spamCounters.Start()
	s.reportCounters.Start()

	s.events.Start()
	s.startTimers = []*time.Timer{
		time.AfterFunc(s.stagger, s.ponies.Start),
		time.AfterFunc(2*s.stagger, s.origins.Start),
		time.AfterFunc(3*s.stagger, s.accounts.Start),
	}
}

func (s *AdminService) Stop() {
	for _, t := range s.startTimers {
		t.Stop()
	}
	s.startTimers = nil

	s.accounts.Stop()
	s.auths.Stop()
	s.origins.Stop()
	s.ponies.Stop()
	s.events.Stop()

	s.spamCounters.Stop()
	s.reportCounters.Stop()
}

// List accessors; returned records are live objects, not snapshots.

func (s *AdminService) Accounts() *LiveList[*models.Account] { return s.accounts }
func (s *AdminService) Origins() *LiveList[*models.Origin]   { return s.origins }
func (s *AdminService) Auths() *LiveList[*models.Auth]       { return s.auths }
func (s *AdminService) Ponies() *LiveList[*models.Pony]      { return s.ponies }
func (s *AdminService) Events() *LiveList[*models.Event]     { return s.events }

// RemovedItem informs the cache that another process deleted a record,
// without going through this process's own Remove path.
func (s *AdminService) RemovedItem(kind, id string) {
	switch kind {
	case models.KindAccounts:
		s.accounts.Removed(id)
	case models.KindOrigins:
		s.origins.Removed(id)
	case models.KindAuths:
		s.auths.Removed(id)
	case models.KindPonies:
		s.ponies.Removed(id)
	case models.KindEvents:
		s.events.Removed(id)
	default:
		s.log.Warn("unknown_entity_kind", "kind", kind, "id", id)
	}
}

// Secondary index lookups. The returned slices are copies; the accounts they
// point at are live.

func (s *AdminService) GetAccountsByEmailName(name string) []*models.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*models.Account(nil), s.byEmail[name]...)
}

func (s *AdminService) GetAccountsByNoteRef(id string) []*models.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*models.Account(nil), s.byNoteRef[id]...)
}

func (s *AdminService) GetAccountsByBrowserID(id string) []*models.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*models.Account(nil), s.byBrowserID[id]...)
}

// SubscribeToEvents delivers the event feed snapshot on every feed change,
// immediately on subscribe.
func (s *AdminService) SubscribeToEvents(fn func([]*models.EventInfo)) *ListSubscription[*models.EventInfo] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eventsFeed.Subscribe(fn)
}

// TrackSpam accumulates a spam-flagged message for the account and returns
// the running count inside the counter window.
func (s *AdminService) TrackSpam(accountID, message string) int {
	return s.spamCounters.Add(accountID, 1, message)
}

// TrackReport counts a report action against the account.
func (s *AdminService) TrackReport(accountID string) int {
	return s.reportCounters.Add(accountID, 1)
}

func (s *AdminService) SpamCounter(accountID string) *Counter[string] {
	return s.spamCounters.Get(accountID)
}

func (s *AdminService) ReportCounter(accountID string) *Counter[string] {
	return s.reportCounters.Get(accountID)
}

// Event hooks: the feed mirrors the events list, newest first.

func (s *AdminService) eventAdded(e *models.Event) {
	s.eventsFeed.PushOrdered(e, func(a, b *models.Event) int {
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		if b.CreatedAt.After(a.CreatedAt) {
			return 1
		}
		return 0
	})
}

func (s *AdminService) eventUpdated(old, fresh *models.Event) {
	*old = *fresh
	s.eventsFeed.Replace(s.eventsFeed.Items())
}

func (s *AdminService) eventDeleted(e *models.Event) {
	s.eventsFeed.Remove(e)
}
