package billing

import (
	"github.com/shopspring/decimal"
)

// TestRef is the audit view of a booked test.
type TestRef struct {
	Name      string          `json:"name"`
	Category  string          `json:"category"`
	NetAmount decimal.Decimal `json:"netAmount"`
}

// Key is the normalized category:name identity of the test.
func (t TestRef) Key() string {
	return LineKey(t.Category, t.Name)
}

// Diff describes how an edit changed the tests on an invoice.
type Diff struct {
	Added   []TestRef       `json:"addedTests"`
	Removed []TestRef       `json:"removedTests"`
	Delta   decimal.Decimal `json:"delta"`
}

// DiffTests compares two test lists by Key. Added keeps the order of after,
// Removed the order of before.
func DiffTests(before, after []TestRef) Diff {
	inBefore := make(map[string]struct{}, len(before))
	for _, t := range before {
		inBefore[t.Key()] = struct{}{}
	}
	inAfter := make(map[string]struct{}, len(after))
	for _, t := range after {
		inAfter[t.Key()] = struct{}{}
	}

	d := Diff{Added: []TestRef{}, Removed: []TestRef{}}
	for _, t := range after {
		if _, ok := inBefore[t.Key()]; !ok {
			d.Added = append(d.Added, t)
		}
	}
	for _, t := range before {
		if _, ok := inAfter[t.Key()]; !ok {
			d.Removed = append(d.Removed, t)
		}
	}
	d.Delta = SumRefs(after).Sub(SumRefs(before))
	return d
}

// SumRefs adds up net amounts.
func SumRefs(refs []TestRef) decimal.Decimal {
	total := decimal.Zero
	for _, t := range refs {
		total = total.Add(t.NetAmount)
	}
	return total
}

// Refs converts lines to their audit view.
func Refs(lines []Line) []TestRef {
	refs := make([]TestRef, 0, len(lines))
	for _, l := range lines {
		refs = append(refs, TestRef{Name: l.Name, Category: l.Category, NetAmount: l.NetAmount()})
	}
	return refs
}
