// Package darc implements Distributed Access Right Controls.
//
// In most of our projects we need some kind of access control to
// protect resources. Instead of having a simple password or public key
// for authentication, we want to have access control that can be
// evolved and delegated. So instead of a fixed list of identities that
// are allowed to access a resource, a darc is an evolving description
// of who is allowed or not to access it.
//
// A darc holds a set of rules that map actions to expressions over
// identities. It can be updated by performing an evolution: a new
// version with BaseID pointing to the start of the chain and PrevID to
// the previous version. The base ID stays constant over the whole
// chain and is how other darcs and contracts reference the policy.
//
// Delegation is expressed with darc identities: a rule that contains
// "darc:<base-id>" is satisfied by whoever satisfies the "_sign" rule
// of that other darc. RuleMatch resolves such identities recursively
// through a caller-supplied GetDarc callback.
package darc

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"go.dedis.ch/byzclient/darc/expression"
	"go.dedis.ch/protobuf"
	"golang.org/x/xerrors"
)

const evolve = Action("_evolve")
const sign = Action("_sign")

// Errors of the rule-matching algorithm. A rule that exists but is not
// satisfied by the signers is not an error, RuleMatch reports it with
// an empty identity set instead.
var (
	// ErrRuleNotFound is returned when the requested action has no
	// rule in the darc.
	ErrRuleNotFound = xerrors.New("this rule doesn't exist")
	// ErrMultiSignerUnsupported is returned when more than one signer
	// is given to RuleMatch. Multi-signature rules are a known current
	// limitation and must not be silently approximated.
	ErrMultiSignerUnsupported = xerrors.New("only one signer is currently supported")
	// ErrExprUnsupported is returned for expressions using AND or
	// parentheses, which RuleMatch cannot evaluate correctly.
	ErrExprUnsupported = xerrors.New("cannot handle AND or parentheses in rule matching")
	// ErrDelegationCycle is returned when following darc identities
	// comes back to a darc that is already being evaluated.
	ErrDelegationCycle = xerrors.New("cyclic delegation between darcs")
)

// InitRules initialises a set of rules with the default actions
// "_evolve" and "_sign". Owners are joined with logical-AND under
// "_evolve" and signers are joined with logical-OR under "_sign". If
// other expressions are needed, set the rules manually.
func InitRules(owners []Identity, signers []Identity) Rules {
	ownerIDs := make([]string, len(owners))
	for i, o := range owners {
		ownerIDs[i] = o.String()
	}
	signerIDs := make([]string, len(signers))
	for i, s := range signers {
		signerIDs[i] = s.String()
	}
	var r Rules
	r.List = []Rule{
		{Action: evolve, Expr: expression.InitAndExpr(ownerIDs...)},
		{Action: sign, Expr: expression.InitOrExpr(signerIDs...)},
	}
	return r
}

// Get returns the expression for the given action.
func (r Rules) Get(a Action) (expression.Expr, bool) {
	for _, rule := range r.List {
		if rule.Action == a {
			return rule.Expr, true
		}
	}
	return nil, false
}

// Contains checks if the action a is in the rules.
func (r Rules) Contains(a Action) bool {
	_, ok := r.Get(a)
	return ok
}

// AddRule adds a new action-expression pair, the action must not exist.
func (r *Rules) AddRule(a Action, expr expression.Expr) error {
	if r.Contains(a) {
		return xerrors.Errorf("action '%v' already exists", a)
	}
	r.List = append(r.List, Rule{Action: a, Expr: expr})
	return nil
}

// UpdateRule updates an existing action-expression pair, it cannot be
// the evolve or sign action.
func (r *Rules) UpdateRule(a Action, expr expression.Expr) error {
	if isDefault(a) {
		return xerrors.Errorf("cannot update action %s", a)
	}
	return r.updateRule(a, expr)
}

// DeleteRule deletes an action, it cannot be the evolve or sign action.
func (r *Rules) DeleteRule(a Action) error {
	if isDefault(a) {
		return xerrors.Errorf("cannot delete action %s", a)
	}
	for i, rule := range r.List {
		if rule.Action == a {
			r.List = append(r.List[:i], r.List[i+1:]...)
			return nil
		}
	}
	return xerrors.Errorf("DeleteRule: action '%v' does not exist", a)
}

// AppendToRule adds the identity to the rule of the given action. If
// the action has no rule yet, a new one is created holding only the
// identity; otherwise " <op> " and the identity string are appended to
// the existing expression. Only expression.OR is guaranteed to be
// understood by RuleMatch, AND is stored but advisory there.
func (r *Rules) AppendToRule(a Action, id Identity, op string) {
	for i, rule := range r.List {
		if rule.Action == a {
			r.List[i].Expr = expression.Expr(
				fmt.Sprintf("%s %s %s", rule.Expr, op, id.String()))
			return
		}
	}
	r.List = append(r.List, Rule{Action: a, Expr: expression.Expr(id.String())})
}

// GetEvolutionExpr returns the expression of the "_evolve" action.
func (r Rules) GetEvolutionExpr() expression.Expr {
	expr, _ := r.Get(evolve)
	return expr
}

// GetSignExpr returns the expression of the "_sign" action.
func (r Rules) GetSignExpr() expression.Expr {
	expr, _ := r.Get(sign)
	return expr
}

// UpdateEvolution will update the "_evolve" action, which allows
// identities that satisfy the expression to evolve the darc. Take
// extreme care when using this function.
func (r *Rules) UpdateEvolution(expr expression.Expr) error {
	return r.updateRule(evolve, expr)
}

// UpdateSign will update the "_sign" action, which allows identities
// that satisfy the expression to sign on behalf of the darc.
func (r *Rules) UpdateSign(expr expression.Expr) error {
	return r.updateRule(sign, expr)
}

// Clone returns a deep copy of the rules, sharing no state with the
// original.
func (r Rules) Clone() Rules {
	var c Rules
	c.List = make([]Rule, len(r.List))
	for i, rule := range r.List {
		c.List[i] = Rule{
			Action: rule.Action,
			Expr:   append(expression.Expr{}, rule.Expr...),
		}
	}
	return c
}

func (r *Rules) updateRule(a Action, expr expression.Expr) error {
	for i, rule := range r.List {
		if rule.Action == a {
			r.List[i].Expr = expr
			return nil
		}
	}
	return xerrors.Errorf("updateRule: action '%v' does not exist", a)
}

func isDefault(action Action) bool {
	return action == evolve || action == sign
}

// NewDarc initialises a genesis darc (version 0) with the given rules.
// Its BaseID and PrevID stay empty, the darc ID itself is the base of
// the new chain.
func NewDarc(rules Rules, desc []byte) *Darc {
	return &Darc{
		Version:     0,
		Description: desc,
		Rules:       rules,
	}
}

// Copy returns a deep copy of the darc.
func (d *Darc) Copy() *Darc {
	return &Darc{
		Version:     d.Version,
		Description: copyBytes(d.Description),
		BaseID:      copyBytes(d.BaseID),
		PrevID:      copyBytes(d.PrevID),
		Rules:       d.Rules.Clone(),
	}
}

// Equal returns true if both darcs have the same ID.
func (d *Darc) Equal(d2 *Darc) bool {
	return d.GetID().Equal(d2.GetID())
}

// GetID returns the darc ID, a digest of the invariant fields. It is
// never stored, always recomputed.
func (d Darc) GetID() ID {
	h := sha256.New()
	verBytes := make([]byte, 8)
	binary.LittleEndian.PutUint64(verBytes, d.Version)
	h.Write(verBytes)
	h.Write(d.Description)
	if len(d.BaseID) > 0 {
		h.Write(d.BaseID)
	}
	if len(d.PrevID) > 0 {
		h.Write(d.PrevID)
	}
	for _, rule := range d.Rules.List {
		h.Write([]byte(rule.Action))
		h.Write(rule.Expr)
	}
	return h.Sum(nil)
}

// GetBaseID returns the base ID, or the ID of this darc if it is the
// first one of its chain. It is constant over all versions of a darc.
func (d Darc) GetBaseID() ID {
	if d.Version == 0 {
		return d.GetID()
	}
	return d.BaseID
}

// GetIdentityString returns the string representation of the darc
// identity of this darc version.
func (d Darc) GetIdentityString() string {
	return NewIdentityDarc(d.GetID()).String()
}

// Evolve returns the next version of the darc so that it can be
// changed and proposed to the ledger. The receiver is left untouched:
// the new darc has Version+1, BaseID set to the chain base, PrevID set
// to the current ID and an independent copy of the rules.
func (d *Darc) Evolve() *Darc {
	return &Darc{
		Version:     d.Version + 1,
		Description: copyBytes(d.Description),
		BaseID:      d.GetBaseID(),
		PrevID:      d.GetID(),
		Rules:       d.Rules.Clone(),
	}
}

// SanityCheck verifies that d is a valid successor of prev.
func (d Darc) SanityCheck(prev *Darc) error {
	if len(d.BaseID) == 0 {
		return xerrors.New("empty base ID")
	}
	if !d.GetBaseID().Equal(prev.GetBaseID()) {
		return xerrors.New("base IDs are not equal")
	}
	if d.Version != prev.Version+1 {
		return xerrors.Errorf("incorrect version, new version should be %d but it is %d",
			prev.Version+1, d.Version)
	}
	if !d.PrevID.Equal(prev.GetID()) {
		return xerrors.New("prev ID is wrong")
	}
	return nil
}

// ToProto returns a protobuf representation of the darc.
func (d *Darc) ToProto() ([]byte, error) {
	if d == nil {
		return nil, xerrors.New("darc is nil")
	}
	b, err := protobuf.Encode(d)
	if err != nil {
		return nil, xerrors.Errorf("encoding darc: %v", err)
	}
	return b, nil
}

// NewDarcFromProto interprets a protobuf representation of a darc and
// returns it.
func NewDarcFromProto(buf []byte) (*Darc, error) {
	d := &Darc{}
	if err := protobuf.Decode(buf, d); err != nil {
		return nil, xerrors.Errorf("decoding darc: %v", err)
	}
	return d, nil
}

// String returns a human-readable representation of the darc.
func (d Darc) String() string {
	s := fmt.Sprintf("ID:\t%x\nBase:\t%x\nPrev:\t%x\nVer:\t%d\nRules:",
		d.GetID(), d.GetBaseID(), d.PrevID, d.Version)
	for _, rule := range d.Rules.List {
		s += fmt.Sprintf("\n\t%s - \"%s\"", rule.Action, rule.Expr)
	}
	return s
}

// RuleMatch checks whether the given action can be performed by the
// signers and returns the set of identities that match the rule. An
// empty set with a nil error means the rule exists but is not
// satisfied - callers must never treat that as authorized, but it is
// not an evaluation failure either.
//
// Darc identities in the expression are resolved with getDarc and
// matched against the "_sign" rule of the fetched darc, recursively.
// Delegation chains are followed depth-first in expression order; a
// cycle yields ErrDelegationCycle instead of recursing forever.
//
// Current limitations, reported as explicit errors: only a single
// signer is supported (ErrMultiSignerUnsupported) and only OR
// expressions can be evaluated (ErrExprUnsupported). For full AND/OR
// evaluation over a set of signers, see Darc.CheckRequest.
func (d Darc) RuleMatch(ctx context.Context, action Action, signers []Identity,
	getDarc GetDarc) ([]Identity, error) {
	return d.ruleMatch(ctx, action, signers, getDarc,
		map[string]bool{hex.EncodeToString(d.GetBaseID()): true})
}

func (d Darc) ruleMatch(ctx context.Context, action Action, signers []Identity,
	getDarc GetDarc, visited map[string]bool) ([]Identity, error) {
	expr, ok := d.Rules.Get(action)
	if !ok {
		return nil, ErrRuleNotFound
	}
	if len(signers) != 1 {
		return nil, ErrMultiSignerUnsupported
	}
	if strings.ContainsAny(string(expr), "&()") {
		return nil, ErrExprUnsupported
	}
	signerStr := signers[0].String()
	for _, candidate := range strings.Split(string(expr), "|") {
		candidate = strings.TrimSpace(candidate)
		if candidate == signerStr {
			return signers, nil
		}
		if !strings.HasPrefix(candidate, "darc:") {
			continue
		}
		id, err := ParseIdentity(candidate)
		if err != nil {
			return nil, xerrors.Errorf("parsing identity '%s': %v", candidate, err)
		}
		key := hex.EncodeToString(id.Darc.ID)
		if visited[key] {
			return nil, ErrDelegationCycle
		}
		visited[key] = true
		next, err := getDarc(ctx, id.Darc.ID)
		if err != nil {
			return nil, xerrors.Errorf("fetching darc %s: %w", candidate, err)
		}
		matched, err := next.ruleMatch(ctx, sign, signers, getDarc, visited)
		// only a revisit on the current path is a cycle, two branches
		// delegating to the same darc are fine
		delete(visited, key)
		if err != nil {
			return nil, err
		}
		if len(matched) == 1 {
			return signers, nil
		}
	}
	return nil, nil
}

// CheckRequest verifies that the request is valid against the darc:
// the base IDs correspond, the action exists, all signatures verify
// and the identities of the signers satisfy the rule expression.
// Unlike RuleMatch, this evaluates the full expression language
// (AND, OR and parentheses) over any number of signers, resolving
// darc identities through getDarc.
func (d *Darc) CheckRequest(ctx context.Context, r *Request, getDarc GetDarc) error {
	if !d.GetBaseID().Equal(r.BaseID) {
		return xerrors.Errorf("base id mismatch: request %x, darc %x",
			r.BaseID, d.GetBaseID())
	}
	expr, ok := d.Rules.Get(r.Action)
	if !ok {
		return xerrors.Errorf("action '%v': %w", r.Action, ErrRuleNotFound)
	}
	if len(r.Signatures) == 0 {
		return xerrors.New("no signatures - nothing to verify")
	}
	if len(r.Signatures) != len(r.Identities) {
		return xerrors.Errorf("signatures and identities have unequal length - %d != %d",
			len(r.Signatures), len(r.Identities))
	}
	digest := r.Hash()
	for i, id := range r.Identities {
		if err := id.Verify(digest, r.Signatures[i]); err != nil {
			return xerrors.Errorf("signature %d: %v", i, err)
		}
	}
	return evalExpr(ctx, expr, getDarc,
		map[string]bool{hex.EncodeToString(d.GetBaseID()): true},
		r.GetIdentityStrings()...)
}

// evalExpr evaluates the expression against the given identity
// strings. A darc identity evaluates to true if the "_sign" rule of
// the latest darc of that chain is satisfied, checked recursively.
// The visited set holds the base IDs on the current delegation path, a
// revisit means the delegation is cyclic and aborts the evaluation
// with ErrDelegationCycle.
func evalExpr(ctx context.Context, expr expression.Expr, getDarc GetDarc,
	visited map[string]bool, ids ...string) error {
	var cycleErr error
	Y := expression.InitParser(func(s string) bool {
		if strings.HasPrefix(s, "darc:") {
			id, err := ParseIdentity(s)
			if err != nil {
				return false
			}
			key := hex.EncodeToString(id.Darc.ID)
			if visited[key] {
				cycleErr = ErrDelegationCycle
				return false
			}
			next, err := getDarc(ctx, id.Darc.ID)
			if err != nil {
				return false
			}
			signExpr, ok := next.Rules.Get(sign)
			if !ok {
				return false
			}
			visited[key] = true
			err = evalExpr(ctx, signExpr, getDarc, visited, ids...)
			delete(visited, key)
			if xerrors.Is(err, ErrDelegationCycle) {
				cycleErr = err
			}
			return err == nil
		}
		for _, id := range ids {
			if id == s {
				return true
			}
		}
		return false
	})
	res, err := expression.Evaluate(Y, expr)
	if err != nil {
		return xerrors.Errorf("evaluation failed on '%s': %v", expr, err)
	}
	if cycleErr != nil {
		return cycleErr
	}
	if !res {
		return xerrors.Errorf("expression '%s' evaluated to false", expr)
	}
	return nil
}

// IsNull returns true if this ID is not initialised.
func (id ID) IsNull() bool {
	return id == nil
}

// Equal compares with another darc ID.
func (id ID) Equal(other ID) bool {
	return bytes.Equal([]byte(id), []byte(other))
}

func copyBytes(in []byte) []byte {
	if in == nil {
		return nil
	}
	return append([]byte{}, in...)
}
