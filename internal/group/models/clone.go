package models

import (
	"maps"
	"slices"

	id "tandapool/pkg/domain"
)

// Clone deep-copies the aggregate. Stores hand out clones so callers can
// mutate freely and persist atomically.
func (g *Group) Clone() *Group {
	out := *g
	out.Members = maps.Clone(g.Members)
	out.SubgroupSizes = maps.Clone(g.SubgroupSizes)
	out.Periods = make(map[id.PeriodIndex]*Period, len(g.Periods))
	for index, p := range g.Periods {
		out.Periods[index] = p.Clone()
	}
	return &out
}

// Clone deep-copies a period record.
func (p *Period) Clone() *Period {
	out := *p
	out.Payments = slices.Clone(p.Payments)
	out.Claims = slices.Clone(p.Claims)
	out.Defections = maps.Clone(p.Defections)
	return &out
}
