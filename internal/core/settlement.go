package core

type (
	// Balance is one member's position against the room's equal share.
	// Spent is exact cents; Share and Net are in currency units because an
	// equal split rarely lands on a whole cent. Positive Net means the
	// member is owed money, negative means they owe; zero is settled.
	Balance struct {
		MemberID string
		Spent    Money
		Share    float64
		Net      float64
	}

	// Settlement is the per-member view over the approved ledger.
	Settlement struct {
		Total      Money
		EqualShare float64
		Balances   []Balance
	}

	// PairwiseBalance compares the raw approved spend of two members. It is
	// a simple difference of totals, not a transfer-minimizing settlement:
	// Net = SpentA - SpentB, so a positive Net means MemberB owes MemberA
	// that amount.
	PairwiseBalance struct {
		MemberA string
		MemberB string
		SpentA  Money
		SpentB  Money
		Net     Money
	}
)

// Settled reports whether the member's spend exactly matches their share.
func (b Balance) Settled() bool {
	return b.Net == 0
}

// Owes spells out the direction of the pairwise debt. even is true when the
// two members have spent the same amount.
func (p PairwiseBalance) Owes() (debtor, creditor string, amount Money, even bool) {
	switch {
	case p.Net.Cents > 0:
		return p.MemberB, p.MemberA, p.Net, false
	case p.Net.Cents < 0:
		return p.MemberA, p.MemberB, p.Net.Abs(), false
	default:
		return "", "", Money{}, true
	}
}

// ComputeSettlement derives per-member balances from the approved subset of
// the ledger. An empty member list yields an equal share of zero rather than
// a division by zero; an empty approved set yields all-zero balances.
func ComputeSettlement(expenses []Expense, members []Member) Settlement {
	approved := Approved(expenses)

	spentBy := make(map[string]int64, len(members))
	var total int64
	for _, e := range approved {
		spentBy[e.AddedBy] += e.Amount.Cents
		total += e.Amount.Cents
	}

	s := Settlement{Total: Money{Cents: total}}
	if len(members) > 0 {
		s.EqualShare = float64(total) / float64(len(members)) / 100.0
	}

	s.Balances = make([]Balance, 0, len(members))
	for _, m := range members {
		spent := Money{Cents: spentBy[m.ID]}
		s.Balances = append(s.Balances, Balance{
			MemberID: m.ID,
			Spent:    spent,
			Share:    s.EqualShare,
			Net:      spent.Units() - s.EqualShare,
		})
	}
	return s
}

// ComputePairwise restricts the approved ledger to expenses added by either
// of the two members and reports the difference of their totals. Unknown
// member IDs simply contribute nothing; "no data" is a valid answer here,
// not an error.
func ComputePairwise(expenses []Expense, memberA, memberB string) PairwiseBalance {
	var spentA, spentB int64
	for _, e := range Approved(expenses) {
		switch e.AddedBy {
		case memberA:
			spentA += e.Amount.Cents
		case memberB:
			spentB += e.Amount.Cents
		}
	}
	return PairwiseBalance{
		MemberA: memberA,
		MemberB: memberB,
		SpentA:  Money{Cents: spentA},
		SpentB:  Money{Cents: spentB},
		Net:     Money{Cents: spentA - spentB},
	}
}
