package krm

// IsPassive reports whether an entity is dormant: its revision is overdue and
// it has neither a total limit nor any total exposure.
func IsPassive(limit LimitRecord, risk RiskRecord) bool {
	return limit.RevisionOverdue && limit.Total.IsZero() && risk.Total.IsZero()
}

// IdentifyPassive returns the passive entities, sorted. Only entities with a
// limit record can be passive; a missing risk record counts as zero exposure.
func IdentifyPassive(limits map[EntityID]LimitRecord, risks map[EntityID]RiskRecord) []EntityID {
	passive := make(map[EntityID]struct{})
	for id, l := range limits {
		if IsPassive(l, risks[id]) {
			passive[id] = struct{}{}
		}
	}
	return sortedIDs(passive)
}

// Partition splits every entity of limits and risks into active and passive,
// both sorted.
func Partition(limits map[EntityID]LimitRecord, risks map[EntityID]RiskRecord) (active, passive []EntityID) {
	passive = IdentifyPassive(limits, risks)
	skip := make(map[EntityID]bool, len(passive))
	for _, id := range passive {
		skip[id] = true
	}

	active = make([]EntityID, 0)
	for _, id := range Entities(limits, risks) {
		if !skip[id] {
			active = append(active, id)
		}
	}
	return active, passive
}
