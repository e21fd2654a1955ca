// Package autopilot drives a combat session to completion by answering every
// pending request, asking Lua hooks first and falling back to fixed defaults.
package autopilot

import (
	"context"
	"errors"
	"fmt"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/realm/internal/game/combat"
	"github.com/cory-johannsen/realm/internal/scripting"
)

// Hook names looked up in the decision script.
const (
	HookLure     = "choose_lure"
	HookTarget   = "choose_target"
	HookAction   = "choose_action"
	HookAttack   = "choose_attack"
	HookManeuver = "choose_maneuver"
	HookChit     = "choose_chit"
)

// passChoice is the script answer that declines a lure or target request.
const passChoice = "pass"

var (
	// ErrRoundLimit is returned when a session outlives the driver's round cap.
	ErrRoundLimit = errors.New("autopilot: round limit reached")
	// ErrStalled is returned when a live session has nothing pending.
	ErrStalled = errors.New("autopilot: session is live but has no pending input")
)

// Driver answers a session's prompts until combat ends.
//
// A Driver runs one session at a time; Run must not be called concurrently.
type Driver struct {
	scripts   *scripting.Manager
	logger    *zap.Logger
	maxRounds int
	session   *combat.Session
}

// New creates a Driver. scripts may be nil, in which case every decision uses
// the default. maxRounds <= 0 disables the round cap.
//
// Precondition: logger must be non-nil.
func New(scripts *scripting.Manager, logger *zap.Logger, maxRounds int) *Driver {
	d := &Driver{scripts: scripts, logger: logger, maxRounds: maxRounds}
	if scripts != nil {
		scripts.QueryCombatant = d.describe
	}
	return d
}

// Run answers s's pending requests until s reaches CombatDone.
//
// Precondition: s has been started.
// Postcondition: Returns nil once s is done; ErrRoundLimit when the round cap
// is exceeded and combat cannot be ended; ctx.Err() when ctx is cancelled.
func (d *Driver) Run(ctx context.Context, s *combat.Session) error {
	d.session = s
	defer func() { d.session = nil }()
	for !s.Done() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.maxRounds > 0 && s.Round() > d.maxRounds {
			if err := s.EndCombat(); err != nil {
				return fmt.Errorf("%w after %d rounds: %w", ErrRoundLimit, d.maxRounds, err)
			}
			return nil
		}
		p := s.Pending()
		if p == nil {
			return ErrStalled
		}
		if err := d.answer(s, p); err != nil {
			return err
		}
	}
	return nil
}

// answer tries the scripted choice; when the script has no opinion or the
// session rejects its choice, the default choice is applied to the fresh
// prompt.
func (d *Driver) answer(s *combat.Session, p *combat.Pending) error {
	scripted, err := d.scripted(s, p)
	if err == nil && scripted {
		return nil
	}
	if err != nil {
		d.logger.Warn("scripted choice rejected; using default",
			zap.String("actor", p.ActorID),
			zap.Stringer("input", p.Kind),
			zap.Error(err),
		)
		if p = s.Pending(); p == nil {
			return nil
		}
	}
	if err := d.fallback(s, p); err != nil {
		return fmt.Errorf("autopilot: default %s for %s: %w", p.Kind, p.ActorID, err)
	}
	return nil
}

// scripted applies the script's choice for p. It reports false when no hook
// answered.
func (d *Driver) scripted(s *combat.Session, p *combat.Pending) (bool, error) {
	if d.scripts == nil {
		return false, nil
	}
	switch p.Kind {
	case combat.InputLure:
		choice, ok := d.choose(HookLure, s, p)
		if !ok {
			return false, nil
		}
		if choice == passChoice {
			return true, s.Pass(p.ActorID)
		}
		return true, s.OnControllableSelected(p.ActorID, choice)
	case combat.InputTarget, combat.InputSpellTarget:
		choice, ok := d.choose(HookTarget, s, p)
		if !ok {
			return false, nil
		}
		if choice == passChoice {
			return true, s.Pass(p.ActorID)
		}
		return true, s.OnControllableSelected(p.ActorID, choice)
	case combat.InputAction:
		choice, ok := d.choose(HookAction, s, p)
		if !ok {
			return false, nil
		}
		return true, s.TakeAction(p.ActorID, combat.Action(choice))
	case combat.InputAttackManeuver:
		return d.scriptedAttackManeuver(s, p)
	case combat.InputChit:
		choice, ok := d.choose(HookChit, s, p)
		if !ok {
			return false, nil
		}
		return true, s.SelectChit(p.ActorID, choice)
	}
	return false, nil
}

func (d *Driver) scriptedAttackManeuver(s *combat.Session, p *combat.Pending) (bool, error) {
	attackChit, attackDir, hasAttack := d.play(HookAttack, s, p)
	maneuverChit, maneuverDir, hasManeuver := d.play(HookManeuver, s, p)
	if !hasAttack && !hasManeuver {
		return false, nil
	}
	actor := p.ActorID
	if hasAttack && len(p.Options) > 0 {
		dir, ok := combat.ParseAttackType(attackDir)
		if !ok {
			return true, fmt.Errorf("unknown attack direction %q", attackDir)
		}
		if err := s.SetAttack(actor, attackChit, dir); err != nil {
			return true, err
		}
		if !stillSelecting(s, actor) {
			return true, nil
		}
	}
	if hasManeuver && len(p.Maneuvers) > 0 {
		dir, ok := combat.ParseDefenseType(maneuverDir)
		if !ok {
			return true, fmt.Errorf("unknown maneuver %q", maneuverDir)
		}
		if err := s.SetManeuver(actor, maneuverChit, dir); err != nil {
			return true, err
		}
		if !stillSelecting(s, actor) {
			return true, nil
		}
	}
	// Only half the selection was scripted; the default completes it.
	return true, d.fallback(s, s.Pending())
}

func stillSelecting(s *combat.Session, actor string) bool {
	cur := s.Pending()
	return cur != nil && cur.ActorID == actor && cur.Kind == combat.InputAttackManeuver
}

// fallback applies the default choice for p:
//   - lure, target, spell target and chit: the first option
//   - action: pass
//   - attack/maneuver: the first fight chit thrusting and the first move chit
//     charging, the maneuver that a thrust intercepts
func (d *Driver) fallback(s *combat.Session, p *combat.Pending) error {
	if p == nil {
		return nil
	}
	switch p.Kind {
	case combat.InputLure, combat.InputTarget, combat.InputSpellTarget:
		if len(p.Options) == 0 {
			return s.Pass(p.ActorID)
		}
		return s.OnControllableSelected(p.ActorID, p.Options[0])
	case combat.InputAction:
		return s.TakeAction(p.ActorID, combat.ActionPass)
	case combat.InputAttackManeuver:
		return d.defaultAttackManeuver(s, p)
	case combat.InputChit:
		if len(p.Options) == 0 {
			return s.Pass(p.ActorID)
		}
		return s.SelectChit(p.ActorID, p.Options[0])
	}
	return fmt.Errorf("unhandled input %s", p.Kind)
}

func (d *Driver) defaultAttackManeuver(s *combat.Session, p *combat.Pending) error {
	actor := p.ActorID
	data := d.data(s, actor)
	needAttack := len(p.Options) > 0 && (data == nil || data.AttackChit == nil)
	needManeuver := len(p.Maneuvers) > 0 && (data == nil || data.ManeuverChit == nil)
	if !needAttack && !needManeuver {
		return s.Pass(actor)
	}
	if needAttack {
		if err := s.SetAttack(actor, p.Options[0], combat.Thrust); err != nil {
			return err
		}
	}
	if needManeuver {
		return s.SetManeuver(actor, p.Maneuvers[0], combat.Thrust.Pair())
	}
	return nil
}

func (d *Driver) data(s *combat.Session, id string) *combat.CharacterData {
	c, ok := s.Combatant(id)
	if !ok {
		return nil
	}
	return c.Data()
}

// request builds the table every hook receives.
func (d *Driver) request(s *combat.Session, p *combat.Pending) *lua.LTable {
	return d.scripts.NewRecord(map[string]any{
		"round":     s.Round(),
		"phase":     p.Phase.String(),
		"kind":      p.Kind.String(),
		"actor":     p.ActorID,
		"options":   p.Options,
		"maneuvers": p.Maneuvers,
	})
}

// choose calls hook and returns its string answer. A missing hook, an error
// or a non-string answer reports false.
func (d *Driver) choose(hook string, s *combat.Session, p *combat.Pending) (string, bool) {
	ret, err := d.scripts.CallHook(hook, d.request(s, p))
	if err != nil {
		return "", false
	}
	str, ok := ret.(lua.LString)
	if !ok || str == "" {
		return "", false
	}
	return string(str), true
}

// play calls an attack or maneuver hook, which answers with a table
// {chit = "...", direction = "..."}.
func (d *Driver) play(hook string, s *combat.Session, p *combat.Pending) (chit, dir string, ok bool) {
	ret, err := d.scripts.CallHook(hook, d.request(s, p))
	if err != nil {
		return "", "", false
	}
	t, isTable := ret.(*lua.LTable)
	if !isTable {
		return "", "", false
	}
	chit = lua.LVAsString(t.RawGetString("chit"))
	dir = lua.LVAsString(t.RawGetString("direction"))
	return chit, dir, chit != "" && dir != ""
}

// describe backs engine.combat.query_combatant for the running session.
func (d *Driver) describe(id string) map[string]any {
	if d.session == nil {
		return nil
	}
	c, ok := d.session.Combatant(id)
	if !ok {
		return nil
	}
	fields := map[string]any{
		"id":          c.ID,
		"name":        c.Name,
		"dead":        c.Dead,
		"controlled":  c.IsControlled(),
		"target":      c.TargetID(),
		"sheet_owner": c.SheetOwnerID(),
		"attack":      d.session.AttackType(c).String(),
		"defense":     d.session.DefenseType(c).String(),
	}
	switch {
	case c.IsCharacter():
		fields["kind"] = "character"
		wounded := 0
		for _, ch := range c.Character.Chits {
			if ch.State == combat.ChitWounded {
				wounded++
			}
		}
		fields["wounded_chits"] = wounded
		fields["hostile"] = false
	default:
		fields["kind"] = "denizen"
		fields["hostile"] = c.Denizen.Hostile
		fields["red_side"] = c.IsRedSideMonster()
	}
	return fields
}
