package spawn

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/realm/internal/game/dice"
	"github.com/cory-johannsen/realm/internal/game/inventory"
	"github.com/cory-johannsen/realm/internal/game/npc"
	"github.com/cory-johannsen/realm/internal/game/schedule"
	"github.com/cory-johannsen/realm/internal/game/world"
)

var (
	// ErrNotFound is returned for unknown, removed or expired instances.
	ErrNotFound = errors.New("instance not found")
	// ErrMonsterDead is returned when acting on a monster that is already dead.
	ErrMonsterDead = errors.New("monster is already dead")
)

// DefaultLookupTimeout bounds template lookups made by the registry.
const DefaultLookupTimeout = 2 * time.Second

// Templates resolves monster and item templates.
type Templates interface {
	MonsterTemplate(ctx context.Context, id string) (*npc.Template, error)
	ItemTemplate(ctx context.Context, id string) (*inventory.Template, error)
}

// SpawnHook observes every monster placed into a zone, at population time
// and on respawn. It is called without registry locks held.
type SpawnHook func(m MonsterView)

// Options configures a Registry. Zero values select defaults.
type Options struct {
	LookupTimeout time.Duration
	OnSpawn       SpawnHook
}

// zoneState holds one zone's instances. mu serializes every read-modify-write
// of the zone.
type zoneState struct {
	id       string
	mu       sync.Mutex
	monsters map[string]*npc.Instance
	items    map[string]inventory.GroundItem
	respawns map[string]pendingRespawn
	// populated is set once a population of the zone has started.
	populated bool
	closed    bool
}

type pendingRespawn struct {
	templateID string
	boss       bool
	task       schedule.Task
}

// Registry owns the monster and ground-item instances of every zone.
//
// Lock order: a zone's mu before Registry.mu. Registry.mu is never held while
// acquiring a zone lock.
type Registry struct {
	templates Templates
	instancer *Instancer
	sched     schedule.Scheduler
	src       dice.Source
	logger    *zap.Logger
	timeout   time.Duration
	onSpawn   SpawnHook

	mu    sync.RWMutex
	zones map[string]*zoneState
	index map[string]*zoneState
}

// NewRegistry builds an empty Registry.
//
// Precondition: every argument must be non-nil.
func NewRegistry(templates Templates, instancer *Instancer, sched schedule.Scheduler, src dice.Source, logger *zap.Logger, opts Options) *Registry {
	if opts.LookupTimeout <= 0 {
		opts.LookupTimeout = DefaultLookupTimeout
	}
	return &Registry{
		templates: templates,
		instancer: instancer,
		sched:     sched,
		src:       src,
		logger:    logger,
		timeout:   opts.LookupTimeout,
		onSpawn:   opts.OnSpawn,
		zones:     make(map[string]*zoneState),
		index:     make(map[string]*zoneState),
	}
}

func (r *Registry) zone(zoneID string, create bool) *zoneState {
	r.mu.RLock()
	z := r.zones[zoneID]
	r.mu.RUnlock()
	if z != nil || !create {
		return z
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if z = r.zones[zoneID]; z == nil {
		z = &zoneState{
			id:       zoneID,
			monsters: make(map[string]*npc.Instance),
			items:    make(map[string]inventory.GroundItem),
			respawns: make(map[string]pendingRespawn),
		}
		r.zones[zoneID] = z
	}
	return z
}

// locate returns the zone holding instanceID, locked. The caller must unlock.
func (r *Registry) locate(instanceID string) (*zoneState, error) {
	r.mu.RLock()
	z := r.index[instanceID]
	r.mu.RUnlock()
	if z == nil {
		return nil, fmt.Errorf("%q: %w", instanceID, ErrNotFound)
	}
	z.mu.Lock()
	if z.closed {
		z.mu.Unlock()
		return nil, fmt.Errorf("%q: %w", instanceID, ErrNotFound)
	}
	return z, nil
}

// Caller holds z.mu.
func (r *Registry) indexAdd(z *zoneState, ids ...string) {
	r.mu.Lock()
	for _, id := range ids {
		r.index[id] = z
	}
	r.mu.Unlock()
}

// Caller holds z.mu.
func (r *Registry) indexRemove(ids ...string) {
	r.mu.Lock()
	for _, id := range ids {
		delete(r.index, id)
	}
	r.mu.Unlock()
}

func (r *Registry) lookupCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

// PopulateResult lists what PopulateZone placed.
type PopulateResult struct {
	Monsters []MonsterView
	Items    []ItemView
}

// PopulateZone spawns between min and max instances for every monster and
// resource rule of z. Boss templates are capped at one live or respawning
// instance per zone. Unknown templates are logged and skipped.
//
// Precondition: z must be non-nil.
// Postcondition: Returns the spawned instances; a non-nil error only when ctx
// is done.
func (r *Registry) PopulateZone(ctx context.Context, z *world.Zone) (PopulateResult, error) {
	zs := r.zone(z.ID, true)
	zs.mu.Lock()
	zs.populated = true
	zs.mu.Unlock()
	return r.populate(ctx, zs, z)
}

// EnsurePopulated populates z unless a population of it already started.
// Of several concurrent callers exactly one populates.
//
// Postcondition: populated reports whether this call did the work. A failed
// population leaves the zone eligible for the next call.
func (r *Registry) EnsurePopulated(ctx context.Context, z *world.Zone) (res PopulateResult, populated bool, err error) {
	zs := r.zone(z.ID, true)
	zs.mu.Lock()
	if zs.populated || zs.closed {
		zs.mu.Unlock()
		return PopulateResult{}, false, nil
	}
	zs.populated = true
	zs.mu.Unlock()

	res, err = r.populate(ctx, zs, z)
	if err != nil {
		zs.mu.Lock()
		zs.populated = false
		zs.mu.Unlock()
		return res, true, err
	}
	return res, true, nil
}

func (r *Registry) populate(ctx context.Context, zs *zoneState, z *world.Zone) (PopulateResult, error) {
	var res PopulateResult

	for _, rule := range z.Monsters {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		lctx, cancel := r.lookupCtx(ctx)
		tmpl, err := r.templates.MonsterTemplate(lctx, rule.Template)
		cancel()
		if err != nil {
			r.logger.Warn("skipping monster spawn rule",
				zap.String("zone", z.ID), zap.String("template", rule.Template), zap.Error(err))
			continue
		}
		n := dice.Between(r.src, rule.Min, rule.Max)

		zs.mu.Lock()
		if zs.closed {
			zs.mu.Unlock()
			break
		}
		if tmpl.Boss {
			n = min(n, 1-zs.bossCount(tmpl.ID))
		}
		var ids []string
		var spawned []MonsterView
		for i := 0; i < n; i++ {
			m := r.instancer.SpawnMonster(tmpl, z.ID)
			zs.monsters[m.ID] = m
			ids = append(ids, m.ID)
			spawned = append(spawned, ViewOfMonster(m))
		}
		r.indexAdd(zs, ids...)
		zs.mu.Unlock()

		for _, v := range spawned {
			r.notifySpawn(v)
		}
		res.Monsters = append(res.Monsters, spawned...)
	}

	for _, rule := range z.Resources {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		lctx, cancel := r.lookupCtx(ctx)
		tmpl, err := r.templates.ItemTemplate(lctx, rule.Template)
		cancel()
		if err != nil {
			r.logger.Warn("skipping resource spawn rule",
				zap.String("zone", z.ID), zap.String("template", rule.Template), zap.Error(err))
			continue
		}
		n := dice.Between(r.src, rule.Min, rule.Max)
		items := make([]inventory.GroundItem, 0, n)
		for i := 0; i < n; i++ {
			items = append(items, r.instancer.SpawnItem(tmpl, z.ID, 1))
		}
		if err := r.AddItems(z.ID, items...); err != nil {
			return res, err
		}
		for _, it := range items {
			res.Items = append(res.Items, ViewOfItem(it))
		}
	}

	r.logger.Info("zone populated",
		zap.String("zone", z.ID),
		zap.Int("monsters", len(res.Monsters)),
		zap.Int("items", len(res.Items)))
	return res, nil
}

// bossCount counts alive or respawning instances of templateID. Caller holds mu.
func (zs *zoneState) bossCount(templateID string) int {
	n := 0
	for _, m := range zs.monsters {
		if m.TemplateID == templateID && m.Alive {
			n++
		}
	}
	for _, p := range zs.respawns {
		if p.templateID == templateID && p.boss {
			n++
		}
	}
	return n
}

func (r *Registry) notifySpawn(v MonsterView) {
	if r.onSpawn != nil {
		r.onSpawn(v)
	}
}

// ListLiveMonsters returns the alive monsters of zoneID ordered by spawn time then id.
func (r *Registry) ListLiveMonsters(zoneID string) []MonsterView {
	zs := r.zone(zoneID, false)
	if zs == nil {
		return nil
	}
	zs.mu.Lock()
	live := make([]*npc.Instance, 0, len(zs.monsters))
	for _, m := range zs.monsters {
		if m.Alive {
			live = append(live, m)
		}
	}
	sort.Slice(live, func(i, j int) bool {
		if !live[i].SpawnedAt.Equal(live[j].SpawnedAt) {
			return live[i].SpawnedAt.Before(live[j].SpawnedAt)
		}
		return live[i].ID < live[j].ID
	})
	out := make([]MonsterView, len(live))
	for i, m := range live {
		out[i] = ViewOfMonster(m)
	}
	zs.mu.Unlock()
	return out
}

// ListLiveItems returns the non-expired ground items of zoneID ordered by id.
// Expired items are pruned.
func (r *Registry) ListLiveItems(zoneID string) []ItemView {
	zs := r.zone(zoneID, false)
	if zs == nil {
		return nil
	}
	now := r.sched.Now()
	zs.mu.Lock()
	var expired []string
	out := make([]ItemView, 0, len(zs.items))
	for id, it := range zs.items {
		if it.Expired(now) {
			expired = append(expired, id)
			continue
		}
		out = append(out, ViewOfItem(it))
	}
	for _, id := range expired {
		delete(zs.items, id)
	}
	if len(expired) > 0 {
		r.indexRemove(expired...)
	}
	zs.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// GetMonster returns a copy of the monster instance. Dead monsters awaiting
// respawn are returned with Alive false.
func (r *Registry) GetMonster(instanceID string) (*npc.Instance, error) {
	zs, err := r.locate(instanceID)
	if err != nil {
		return nil, err
	}
	defer zs.mu.Unlock()
	m, ok := zs.monsters[instanceID]
	if !ok {
		return nil, fmt.Errorf("monster %q: %w", instanceID, ErrNotFound)
	}
	return m.Clone(), nil
}

// GetItem returns a copy of the ground item. Expired items are pruned and
// reported as ErrNotFound.
func (r *Registry) GetItem(instanceID string) (inventory.GroundItem, error) {
	now := r.sched.Now()
	zs, err := r.locate(instanceID)
	if err != nil {
		return nil, err
	}
	defer zs.mu.Unlock()
	it, ok := zs.items[instanceID]
	if !ok {
		return nil, fmt.Errorf("item %q: %w", instanceID, ErrNotFound)
	}
	if it.Expired(now) {
		delete(zs.items, instanceID)
		r.indexRemove(instanceID)
		return nil, fmt.Errorf("item %q expired: %w", instanceID, ErrNotFound)
	}
	return it.Copy(), nil
}

// DamageOutcome is the result of ApplyDamage. Monster is a copy taken after
// the hit.
type DamageOutcome struct {
	Monster *npc.Instance
	Killed  bool
}

// ApplyDamage lowers the monster's health by amount. When the hit kills, the
// death is recorded inside the same critical section, so concurrent attackers
// observe exactly one kill.
//
// Postcondition: Returns ErrNotFound or ErrMonsterDead without mutation when
// the monster is missing or already dead.
func (r *Registry) ApplyDamage(instanceID string, amount int, attackerID string) (DamageOutcome, error) {
	now := r.sched.Now()
	zs, err := r.locate(instanceID)
	if err != nil {
		return DamageOutcome{}, err
	}
	defer zs.mu.Unlock()
	m, ok := zs.monsters[instanceID]
	if !ok {
		return DamageOutcome{}, fmt.Errorf("monster %q: %w", instanceID, ErrNotFound)
	}
	if !m.Alive {
		return DamageOutcome{}, fmt.Errorf("monster %q: %w", instanceID, ErrMonsterDead)
	}
	killed := m.ApplyDamage(amount, now)
	if killed {
		r.recordDeathLocked(zs, m, attackerID, now)
	}
	return DamageOutcome{Monster: m.Clone(), Killed: killed}, nil
}

// RecordMonsterDeath marks the monster dead, stamps the killer and either
// schedules its respawn or removes it.
//
// Postcondition: Returns a copy of the dead instance, or ErrMonsterDead when
// it was already dead.
func (r *Registry) RecordMonsterDeath(instanceID, killerID string) (*npc.Instance, error) {
	now := r.sched.Now()
	zs, err := r.locate(instanceID)
	if err != nil {
		return nil, err
	}
	defer zs.mu.Unlock()
	m, ok := zs.monsters[instanceID]
	if !ok {
		return nil, fmt.Errorf("monster %q: %w", instanceID, ErrNotFound)
	}
	if !m.Alive {
		return nil, fmt.Errorf("monster %q: %w", instanceID, ErrMonsterDead)
	}
	m.CurrentHealth = 0
	m.Alive = false
	r.recordDeathLocked(zs, m, killerID, now)
	return m.Clone(), nil
}

// Caller holds zs.mu.
func (r *Registry) recordDeathLocked(zs *zoneState, m *npc.Instance, killerID string, now time.Time) {
	m.DiedAt = now
	m.KilledBy = killerID
	delay := m.RespawnDelay()
	if delay <= 0 {
		delete(zs.monsters, m.ID)
		r.indexRemove(m.ID)
		return
	}
	deadID, templateID := m.ID, m.TemplateID
	task := r.sched.After(delay, func() { r.respawn(zs, deadID, templateID) })
	zs.respawns[deadID] = pendingRespawn{templateID: templateID, boss: m.Boss, task: task}
}

// respawn replaces the dead instance deadID with a fresh one from templateID.
// It is a no-op when the zone was torn down or the task was cancelled.
func (r *Registry) respawn(zs *zoneState, deadID, templateID string) {
	zs.mu.Lock()
	if _, pending := zs.respawns[deadID]; zs.closed || !pending {
		zs.mu.Unlock()
		return
	}
	delete(zs.respawns, deadID)
	zs.mu.Unlock()

	ctx, cancel := r.lookupCtx(context.Background())
	tmpl, err := r.templates.MonsterTemplate(ctx, templateID)
	cancel()

	zs.mu.Lock()
	if zs.closed {
		zs.mu.Unlock()
		return
	}
	delete(zs.monsters, deadID)
	r.indexRemove(deadID)
	if err != nil {
		zs.mu.Unlock()
		r.logger.Warn("respawn skipped",
			zap.String("zone", zs.id), zap.String("template", templateID), zap.Error(err))
		return
	}
	fresh := r.instancer.SpawnMonster(tmpl, zs.id)
	zs.monsters[fresh.ID] = fresh
	r.indexAdd(zs, fresh.ID)
	view := ViewOfMonster(fresh)
	zs.mu.Unlock()

	r.logger.Debug("monster respawned",
		zap.String("zone", zs.id), zap.String("replaces", deadID), zap.String("instance", fresh.ID))
	r.notifySpawn(view)
}

// CollectItem atomically removes and returns a ground item. Of several
// concurrent collectors exactly one succeeds; the rest get ErrNotFound.
func (r *Registry) CollectItem(instanceID string) (inventory.GroundItem, error) {
	now := r.sched.Now()
	zs, err := r.locate(instanceID)
	if err != nil {
		return nil, err
	}
	defer zs.mu.Unlock()
	it, ok := zs.items[instanceID]
	if !ok {
		return nil, fmt.Errorf("item %q: %w", instanceID, ErrNotFound)
	}
	delete(zs.items, instanceID)
	r.indexRemove(instanceID)
	if it.Expired(now) {
		return nil, fmt.Errorf("item %q expired: %w", instanceID, ErrNotFound)
	}
	return it, nil
}

// AddItems registers ground items (loot, gold, returned pickups) in zoneID.
//
// Postcondition: Returns an error when zoneID was torn down concurrently.
func (r *Registry) AddItems(zoneID string, items ...inventory.GroundItem) error {
	if len(items) == 0 {
		return nil
	}
	zs := r.zone(zoneID, true)
	zs.mu.Lock()
	defer zs.mu.Unlock()
	if zs.closed {
		return fmt.Errorf("zone %q is closed", zoneID)
	}
	ids := make([]string, 0, len(items))
	for _, it := range items {
		zs.items[it.InstanceID()] = it
		ids = append(ids, it.InstanceID())
	}
	r.indexAdd(zs, ids...)
	return nil
}

// UpdateMonster merges patch into a live or dead monster and returns a copy.
// A patch that kills the monster is recorded like any other death; one that
// revives it cancels the pending respawn.
func (r *Registry) UpdateMonster(instanceID string, patch npc.Patch) (*npc.Instance, error) {
	zs, err := r.locate(instanceID)
	if err != nil {
		return nil, err
	}
	defer zs.mu.Unlock()
	m, ok := zs.monsters[instanceID]
	if !ok {
		return nil, fmt.Errorf("monster %q: %w", instanceID, ErrNotFound)
	}
	wasAlive := m.Alive
	m.Apply(patch)
	switch {
	case wasAlive && !m.Alive:
		r.recordDeathLocked(zs, m, "", r.sched.Now())
	case !wasAlive && m.Alive:
		if p, ok := zs.respawns[m.ID]; ok {
			p.task.Stop()
			delete(zs.respawns, m.ID)
		}
		m.DiedAt = time.Time{}
		m.KilledBy = ""
	}
	return m.Clone(), nil
}

// PendingRespawns returns the number of scheduled respawns in zoneID.
func (r *Registry) PendingRespawns(zoneID string) int {
	zs := r.zone(zoneID, false)
	if zs == nil {
		return 0
	}
	zs.mu.Lock()
	defer zs.mu.Unlock()
	return len(zs.respawns)
}

// Populated reports whether a population of zoneID started since it was last
// torn down.
func (r *Registry) Populated(zoneID string) bool {
	zs := r.zone(zoneID, false)
	if zs == nil {
		return false
	}
	zs.mu.Lock()
	defer zs.mu.Unlock()
	return zs.populated && !zs.closed
}

// Zones returns the ids of zones that hold state, sorted.
func (r *Registry) Zones() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.zones))
	for id := range r.zones {
		out = append(out, id)
	}
	r.mu.RUnlock()
	sort.Strings(out)
	return out
}

// TeardownZone cancels the zone's pending respawns and drops its state. Tasks
// that fire afterwards are no-ops.
func (r *Registry) TeardownZone(zoneID string) {
	r.mu.Lock()
	zs := r.zones[zoneID]
	delete(r.zones, zoneID)
	r.mu.Unlock()
	if zs == nil {
		return
	}

	zs.mu.Lock()
	zs.closed = true
	ids := make([]string, 0, len(zs.monsters)+len(zs.items))
	for id := range zs.monsters {
		ids = append(ids, id)
	}
	for id := range zs.items {
		ids = append(ids, id)
	}
	cancelled := 0
	for _, p := range zs.respawns {
		if p.task.Stop() {
			cancelled++
		}
	}
	zs.monsters, zs.items, zs.respawns = nil, nil, nil
	r.indexRemove(ids...)
	zs.mu.Unlock()

	r.logger.Info("zone torn down", zap.String("zone", zoneID), zap.Int("respawns_cancelled", cancelled))
}

// Close tears down every zone.
func (r *Registry) Close() {
	for _, id := range r.Zones() {
		r.TeardownZone(id)
	}
}
