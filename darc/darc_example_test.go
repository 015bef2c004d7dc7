package darc_test

import (
	"context"
	"fmt"

	"go.dedis.ch/byzclient/darc"
	"go.dedis.ch/byzclient/darc/expression"
)

func Example() {
	// An organisation darc holds the keys of the members.
	member := darc.NewSignerEd25519(nil, nil)
	org := darc.NewDarc(darc.InitRules(
		[]darc.Identity{member.Identity()},
		[]darc.Identity{member.Identity()}), []byte("organisation"))

	// A resource darc does not name the member directly, it delegates
	// to the organisation.
	admin := darc.NewSignerEd25519(nil, nil)
	res := darc.NewDarc(darc.InitRules(
		[]darc.Identity{admin.Identity()},
		[]darc.Identity{admin.Identity()}), []byte("resource"))
	res.Rules.AppendToRule("spawn:coin",
		darc.NewIdentityDarc(org.GetBaseID()), expression.OR)

	// The member satisfies the rule through the delegation.
	getDarc := func(ctx context.Context, baseID darc.ID) (*darc.Darc, error) {
		return org, nil
	}
	matched, err := res.RuleMatch(context.Background(), "spawn:coin",
		[]darc.Identity{member.Identity()}, getDarc)
	fmt.Println(err, len(matched))

	// Changing the policy means evolving the darc, the original stays
	// untouched and the chain keeps its base ID.
	res2 := res.Evolve()
	fmt.Println(res2.Version, res2.GetBaseID().Equal(res.GetBaseID()))

	// Output:
	// <nil> 1
	// 1 true
}
