package combat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/looplab/fsm"
	"go.uber.org/zap"

	"github.com/cory-johannsen/realm/internal/game/dice"
)

var (
	ErrNoPendingInput      = errors.New("combat: no input is pending")
	ErrNotYourTurn         = errors.New("combat: not this combatant's turn")
	ErrWrongInput          = errors.New("combat: pending request asks for a different input")
	ErrInvalidChit         = errors.New("combat: invalid chit")
	ErrInvalidTarget       = errors.New("combat: invalid target")
	ErrInvalidAction       = errors.New("combat: invalid action")
	ErrCombatDone          = errors.New("combat: combat is over")
	ErrEndCombatNotAllowed = errors.New("combat: enemies remain")
)

// DieRoller rolls one six-sided die from the pool named by purpose.
type DieRoller interface {
	Roll(purpose dice.Purpose) int
}

// Location is the clearing a session is fought in. The session takes every
// occupant when combat starts and puts survivors back when it ends.
type Location interface {
	LocationID() string
	Occupants() []*Combatant
	Take(c *Combatant)
	Put(c *Combatant)
}

// TreasureKeeper is a Location that holds treasure for native groups. Treasure
// destroyed during combat is handed to it when the session ends.
type TreasureKeeper interface {
	ReturnTreasure(byGroup map[string][]*Armor)
}

// Rules holds the tunable constants of a session.
type Rules struct {
	// QuietRoundsToEnd is the number of consecutive rounds without activity
	// after which combat ends.
	QuietRoundsToEnd int
}

// DefaultRules returns the standard rules.
func DefaultRules() Rules { return Rules{QuietRoundsToEnd: 2} }

type spellCast struct {
	casterID string
	targetID string
}

// Session is one combat encounter. It is single-threaded: callers must
// serialize EndPhase and every input method.
type Session struct {
	ID string

	loc     Location
	roller  DieRoller
	sink    Sink
	logger  *zap.Logger
	rules   Rules
	machine *fsm.FSM
	now     func() time.Time
	onDone  func(Summary)

	round          int
	quietRounds    int
	activity       bool
	allowEndCombat bool

	// index points into actors, the per-phase snapshot being iterated.
	index      int
	actors     []*Combatant
	combatants []*Combatant
	byID       map[string]*Combatant
	known      map[string]*Combatant
	sheets     []*CombatSheet

	pending   *Pending
	spells    []spellCast
	queued    []effect
	destroyed []*Armor
	returned  map[string][]*Armor

	log     []Event
	summary Summary
}

// NewSession prepares a session for loc. Call Start to begin combat.
//
// Precondition: loc, roller and logger must be non-nil; sink may be nil.
func NewSession(loc Location, roller DieRoller, sink Sink, logger *zap.Logger, rules Rules) *Session {
	if sink == nil {
		sink = NopSink{}
	}
	if rules.QuietRoundsToEnd < 1 {
		rules.QuietRoundsToEnd = DefaultRules().QuietRoundsToEnd
	}
	id := uuid.NewString()
	logger = logger.With(zap.String("session", id), zap.String("clearing", loc.LocationID()))
	return &Session{
		ID:       id,
		loc:      loc,
		roller:   roller,
		sink:     sink,
		logger:   logger,
		rules:    rules,
		machine:  newPhaseMachine(logger),
		now:      time.Now,
		index:    -1,
		byID:     make(map[string]*Combatant),
		known:    make(map[string]*Combatant),
		returned: make(map[string][]*Armor),
	}
}

// Start takes the clearing's occupants into combat, opens a sheet for every
// character and runs the session up to the first suspension point.
func (s *Session) Start() {
	s.summary = Summary{
		ID:         s.ID,
		ClearingID: s.loc.LocationID(),
		Spoils:     make(map[string]Spoils),
		StartedAt:  s.now(),
	}
	for _, c := range s.loc.Occupants() {
		s.loc.Take(c)
		s.join(c)
	}
	s.logger.Info("combat started", zap.Int("combatants", len(s.combatants)))
	s.enter(PhasePreStartRound)
	s.EndPhase()
}

func (s *Session) join(c *Combatant) {
	s.combatants = append(s.combatants, c)
	s.byID[c.ID] = c
	s.known[c.ID] = c
	if c.IsCharacter() {
		sh := &CombatSheet{Owner: c.ID, Character: newCharacterData(c.Character)}
		s.sheets = append(s.sheets, sh)
		c.data = sh.Character
		c.sheetOwner = c.ID
	}
}

// Phase returns the current phase.
func (s *Session) Phase() Phase { return phasesByName[s.machine.Current()] }

// Done reports whether the session reached CombatDone.
func (s *Session) Done() bool { return s.Phase() == PhaseCombatDone }

// Round returns the current round number, starting at 1.
func (s *Session) Round() int { return s.round }

// QuietRounds returns the number of consecutive rounds without activity.
func (s *Session) QuietRounds() int { return s.quietRounds }

// AllowEndCombat reports whether EndCombat may be called.
func (s *Session) AllowEndCombat() bool { return s.allowEndCombat }

// Pending returns a copy of the outstanding request, or nil.
func (s *Session) Pending() *Pending {
	if s.pending == nil {
		return nil
	}
	p := *s.pending
	return &p
}

// Combatants returns the combatants still in combat, in session order.
func (s *Session) Combatants() []*Combatant {
	out := make([]*Combatant, len(s.combatants))
	copy(out, s.combatants)
	return out
}

// Combatant returns the combatant with the given ID if it is still in combat.
func (s *Session) Combatant(id string) (*Combatant, bool) {
	c, ok := s.byID[id]
	return c, ok
}

// Sheets returns the current combat sheets.
func (s *Session) Sheets() []*CombatSheet {
	out := make([]*CombatSheet, len(s.sheets))
	copy(out, s.sheets)
	return out
}

// Sheet returns the sheet owned by ownerID, or nil.
func (s *Session) Sheet(ownerID string) *CombatSheet { return s.sheetFor(ownerID) }

// Log returns the narrative so far.
func (s *Session) Log() []Event {
	out := make([]Event, len(s.log))
	copy(out, s.log)
	return out
}

// Summary returns the encounter record; complete once Done.
func (s *Session) Summary() Summary { return s.summary }

// DestroyedItems returns non-treasure armor destroyed during the encounter.
func (s *Session) DestroyedItems() []*Armor { return s.destroyed }

// ReturnedItems returns destroyed treasure armor keyed by the native group it
// went back to.
func (s *Session) ReturnedItems() map[string][]*Armor { return s.returned }

// Friends returns the controlled combatants: characters and their hirelings.
func (s *Session) Friends() []*Combatant {
	var out []*Combatant
	for _, c := range s.combatants {
		if c.IsControlled() {
			out = append(out, c)
		}
	}
	return out
}

// Enemies returns the uncontrolled hostile denizens.
func (s *Session) Enemies() []*Combatant {
	var out []*Combatant
	for _, c := range s.combatants {
		if c.IsDenizen() && !c.IsControlled() && c.Denizen.Hostile {
			out = append(out, c)
		}
	}
	return out
}

// AttackType returns the direction c attacks from this round. A denizen that
// only sits in a defender box attacks from the direction paired with its box.
func (s *Session) AttackType(c *Combatant) AttackType {
	if c.IsCharacter() {
		if c.data != nil {
			return c.data.AttackType
		}
		return AttackNone
	}
	sh := s.sheetFor(c.sheetOwner)
	if sh == nil {
		return AttackNone
	}
	if i := sh.attackerIndex(c.ID); i >= 0 {
		return sh.Attackers[i].Attack
	}
	if i := sh.defenderIndex(c.ID); i >= 0 {
		return sh.Defenders[i].Defense.Pair()
	}
	if sh.DefenderTarget != nil && sh.DefenderTarget.ID == c.ID {
		return sh.DefenderTarget.Defense.Pair()
	}
	return AttackNone
}

// DefenseType returns the maneuver c defends with this round. A denizen that
// only sits in an attacker box defends with the maneuver paired with its box.
func (s *Session) DefenseType(c *Combatant) DefenseType {
	if c.IsCharacter() {
		if c.data != nil {
			return c.data.ManeuverType
		}
		return DefenseNone
	}
	sh := s.sheetFor(c.sheetOwner)
	if sh == nil {
		return DefenseNone
	}
	if i := sh.defenderIndex(c.ID); i >= 0 {
		return sh.Defenders[i].Defense
	}
	if sh.DefenderTarget != nil && sh.DefenderTarget.ID == c.ID {
		return sh.DefenderTarget.Defense
	}
	if i := sh.attackerIndex(c.ID); i >= 0 {
		return sh.Attackers[i].Attack.Pair()
	}
	return DefenseNone
}

// EndPhase drives the session forward. In a per-combatant phase it moves to
// the next eligible combatant and suspends there awaiting input; when none
// remain it advances the phase and runs the new phase's setup. Calling it
// after CombatDone is a no-op.
func (s *Session) EndPhase() {
	if s.Done() {
		return
	}
	s.pending = nil
	for {
		phase := s.Phase()
		if phase == PhaseCombatDone {
			return
		}
		if phase.iterates() {
			if actor := s.nextActor(phase); actor != nil {
				if s.perform(phase, actor) {
					continue
				}
				return
			}
		}
		s.advance(phase)
	}
}

func (s *Session) nextActor(phase Phase) *Combatant {
	for s.index+1 < len(s.actors) {
		s.index++
		if c := s.actors[s.index]; s.eligible(phase, c) {
			return c
		}
	}
	return nil
}

func (s *Session) eligible(phase Phase, c *Combatant) bool {
	if !s.inCombat(c) {
		return false
	}
	switch phase {
	case PhaseLure:
		return c.IsDenizen() && c.IsControlled() && !c.hasLured && len(s.lureOptions(c)) > 0
	case PhaseTakeAction, PhaseSelectAttackAndManeuver:
		return c.IsCharacter()
	case PhaseSelectTarget:
		return c.IsControlled() && c.target == "" && len(s.targetOptions(c)) > 0
	case PhaseResolveAttacks:
		return true
	case PhaseFatigueChits:
		return c.data != nil && (c.data.PendingWounds > 0 || c.data.FatigueDue > 0)
	default:
		return false
	}
}

// perform runs actor's step. It returns true when the step completed without
// input, false when the session is now suspended on a prompt.
func (s *Session) perform(phase Phase, actor *Combatant) bool {
	switch phase {
	case PhaseResolveAttacks:
		s.ResolveNextAttack(actor)
		return true
	case PhaseFatigueChits:
		return s.performFatigue(actor)
	case PhaseLure:
		s.prompt(Pending{Phase: phase, ActorID: actor.ID, Kind: InputLure, Options: ids(s.lureOptions(actor))})
	case PhaseSelectTarget:
		s.prompt(Pending{Phase: phase, ActorID: actor.ID, Kind: InputTarget, Options: ids(s.targetOptions(actor))})
	case PhaseTakeAction:
		s.prompt(Pending{Phase: phase, ActorID: actor.ID, Kind: InputAction, Options: s.actionOptions(actor)})
	case PhaseSelectAttackAndManeuver:
		s.prompt(Pending{
			Phase:     phase,
			ActorID:   actor.ID,
			Kind:      InputAttackManeuver,
			Options:   chitIDs(actor, ChitFight),
			Maneuvers: chitIDs(actor, ChitMove),
		})
	}
	return false
}

func (s *Session) prompt(p Pending) {
	s.pending = &p
	s.sink.Prompt(p)
}

func (s *Session) advance(phase Phase) {
	if phase == PhaseResolveAttacks {
		s.ApplyDamageEffects()
	}
	event := eventAdvance
	if phase == PhaseDisengage && s.quietRounds < s.rules.QuietRoundsToEnd {
		event = eventNewRound
	}
	if err := s.machine.Event(context.Background(), event); err != nil {
		s.logger.Error("phase transition failed; ending combat",
			zap.String("phase", phase.String()),
			zap.String("event", event),
			zap.Error(err),
		)
		s.machine.SetState(PhaseCombatDone.String())
	}
	s.index = -1
	s.enter(s.Phase())
}

func (s *Session) enter(phase Phase) {
	s.actors = s.Combatants()
	switch phase {
	case PhasePreStartRound:
		s.round++
		s.activity = false
		s.emit(Event{Kind: EventInfo, Narrative: fmt.Sprintf("Round %d begins.", s.round)})
	case PhaseStartRound:
		s.startRound()
	case PhaseRandomAssignment:
		s.AssignEnemies()
	case PhaseSelectTarget:
		s.flipNativeHorses()
		s.assignDefaultTargets()
	case PhaseActivateSpells:
		s.activateSpells()
	case PhaseSelectAttackAndManeuver:
		s.ensureDefenderSheets()
	case PhaseRandomizeAttacks:
		s.randomizeAttacks()
	case PhaseResolveAttacks:
		s.startAttackResolution()
	case PhaseFatigueChits:
		s.assessFatigue()
	case PhaseDisengage:
		s.disengage()
	case PhaseCombatDone:
		s.teardown()
	}
}

// expect returns the pending request if it belongs to actorID.
func (s *Session) expect(actorID string, kinds ...InputKind) (*Pending, error) {
	if s.Done() {
		return nil, ErrCombatDone
	}
	if s.pending == nil {
		return nil, ErrNoPendingInput
	}
	if s.pending.ActorID != actorID {
		return nil, fmt.Errorf("%w: waiting on %s", ErrNotYourTurn, s.pending.ActorID)
	}
	for _, k := range kinds {
		if s.pending.Kind == k {
			return s.pending, nil
		}
	}
	return nil, fmt.Errorf("%w: pending %s", ErrWrongInput, s.pending.Kind)
}

// resolicit steps the index back so EndPhase re-enters the same combatant's
// step and prompts again.
func (s *Session) resolicit(err error) error {
	actor := ""
	if s.pending != nil {
		actor = s.pending.ActorID
	}
	s.logger.Warn("invalid selection; asking again",
		zap.String("phase", s.Phase().String()),
		zap.String("actor", actor),
		zap.Error(err),
	)
	s.index--
	s.EndPhase()
	return err
}

// Pass ends the pending actor's step without a (further) selection. Pending
// wounds and fatigue cannot be passed.
func (s *Session) Pass(actorID string) error {
	p, err := s.expect(actorID, InputLure, InputTarget, InputAction, InputSpellTarget, InputAttackManeuver, InputChit)
	if err != nil {
		return err
	}
	if p.Kind == InputChit {
		return s.resolicit(fmt.Errorf("%w: wounds and fatigue must be assigned", ErrInvalidChit))
	}
	s.EndPhase()
	return nil
}

// OnControllableSelected feeds a combatant selection to whichever request is
// pending: a lure, a target pick or a spell target.
func (s *Session) OnControllableSelected(selectorID, targetID string) error {
	p, err := s.expect(selectorID, InputLure, InputTarget, InputSpellTarget)
	if err != nil {
		return err
	}
	switch p.Kind {
	case InputLure:
		return s.Lure(selectorID, targetID)
	case InputTarget:
		return s.SelectTarget(selectorID, targetID)
	default:
		return s.selectSpellTarget(selectorID, targetID)
	}
}

// TakeAction applies a character's take-action choice.
func (s *Session) TakeAction(actorID string, action Action) error {
	if _, err := s.expect(actorID, InputAction); err != nil {
		return err
	}
	actor := s.byID[actorID]
	switch action {
	case ActionPass:
	case ActionRunAway:
		s.activity = true
		s.emit(Event{Kind: EventFlee, ActorID: actor.ID, Narrative: fmt.Sprintf("%s runs away.", actor.Name)})
		s.summary.Fled = append(s.summary.Fled, actor.Name)
		s.remove(actor)
	case ActionAlertWeapon:
		w := actor.weapon()
		if w == nil {
			return s.resolicit(fmt.Errorf("%w: %s has no weapon to alert", ErrInvalidAction, actor.Name))
		}
		w.Alerted = !w.Alerted
		s.emit(Event{Kind: EventInfo, ActorID: actor.ID, Narrative: fmt.Sprintf("%s alerts the %s.", actor.Name, w.Name)})
	case ActionCastSpell:
		opts := s.spellTargetOptions(actor)
		if len(opts) == 0 {
			return s.resolicit(fmt.Errorf("%w: nothing to cast at", ErrInvalidAction))
		}
		s.prompt(Pending{Phase: PhaseTakeAction, ActorID: actor.ID, Kind: InputSpellTarget, Options: ids(opts)})
		return nil
	default:
		return s.resolicit(fmt.Errorf("%w: %q", ErrInvalidAction, action))
	}
	s.EndPhase()
	return nil
}

// SetAttack records a character's attack chit and direction.
func (s *Session) SetAttack(playerID, chitID string, t AttackType) error {
	if _, err := s.expect(playerID, InputAttackManeuver); err != nil {
		return err
	}
	actor := s.byID[playerID]
	chit := actor.Character.Chit(chitID)
	switch {
	case chit == nil, chit.Kind != ChitFight, chit.State != ChitActive:
		return s.resolicit(fmt.Errorf("%w: %q is not an active fight chit", ErrInvalidChit, chitID))
	case chit == actor.data.ManeuverChit:
		return s.resolicit(fmt.Errorf("%w: %q is already played", ErrInvalidChit, chitID))
	case t == AttackNone:
		return s.resolicit(fmt.Errorf("%w: attack needs a direction", ErrInvalidChit))
	}
	actor.data.AttackChit = chit
	actor.data.AttackType = t
	s.finishSelection(actor)
	return nil
}

// SetManeuver records a character's move chit and maneuver.
func (s *Session) SetManeuver(playerID, chitID string, t DefenseType) error {
	if _, err := s.expect(playerID, InputAttackManeuver); err != nil {
		return err
	}
	actor := s.byID[playerID]
	chit := actor.Character.Chit(chitID)
	switch {
	case chit == nil, chit.Kind != ChitMove, chit.State != ChitActive:
		return s.resolicit(fmt.Errorf("%w: %q is not an active move chit", ErrInvalidChit, chitID))
	case chit == actor.data.AttackChit:
		return s.resolicit(fmt.Errorf("%w: %q is already played", ErrInvalidChit, chitID))
	case t == DefenseNone:
		return s.resolicit(fmt.Errorf("%w: maneuver needs a direction", ErrInvalidChit))
	}
	actor.data.ManeuverChit = chit
	actor.data.ManeuverType = t
	s.finishSelection(actor)
	return nil
}

func (s *Session) finishSelection(actor *Combatant) {
	d := actor.data
	attackDone := d.AttackChit != nil || len(chitIDs(actor, ChitFight)) == 0
	maneuverDone := d.ManeuverChit != nil || len(chitIDs(actor, ChitMove)) == 0
	if attackDone && maneuverDone {
		s.EndPhase()
	}
}

// EndCombat ends the session early. Allowed only when no enemies remained at
// the start of the round.
func (s *Session) EndCombat() error {
	if s.Done() {
		return ErrCombatDone
	}
	if !s.allowEndCombat {
		return ErrEndCombatNotAllowed
	}
	s.pending = nil
	if err := s.machine.Event(context.Background(), eventEnd); err != nil {
		return fmt.Errorf("ending combat: %w", err)
	}
	s.enter(PhaseCombatDone)
	return nil
}

func (s *Session) emit(e Event) {
	e.Round = s.round
	e.Phase = s.Phase()
	s.log = append(s.log, e)
	s.sink.Notify(e)
}

func (s *Session) inCombat(c *Combatant) bool {
	return c != nil && s.byID[c.ID] == c
}

func (s *Session) targetOf(c *Combatant) *Combatant {
	if c.target == "" {
		return nil
	}
	return s.byID[c.target]
}

func (s *Session) sheetFor(ownerID string) *CombatSheet {
	if ownerID == "" {
		return nil
	}
	for _, sh := range s.sheets {
		if sh.Owner == ownerID {
			return sh
		}
	}
	return nil
}

func (s *Session) deleteSheet(ownerID string) {
	for i, sh := range s.sheets {
		if sh.Owner == ownerID {
			s.sheets = append(s.sheets[:i], s.sheets[i+1:]...)
			return
		}
	}
}

func (s *Session) actionOptions(actor *Combatant) []string {
	opts := []string{string(ActionPass), string(ActionRunAway)}
	if actor.weapon() != nil {
		opts = append(opts, string(ActionAlertWeapon))
	}
	if len(s.spellTargetOptions(actor)) > 0 {
		opts = append(opts, string(ActionCastSpell))
	}
	return opts
}

func ids(cs []*Combatant) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.ID
	}
	return out
}

func chitIDs(c *Combatant, kind ChitKind) []string {
	var out []string
	for _, ch := range c.Character.Chits {
		if ch.Kind == kind && ch.State == ChitActive {
			out = append(out, ch.ID)
		}
	}
	return out
}

func appendUnique(list []string, id string) []string {
	for _, v := range list {
		if v == id {
			return list
		}
	}
	return append(list, id)
}
