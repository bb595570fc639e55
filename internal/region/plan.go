package region

import "go.uber.org/zap"

// savePlan splits a batch into the writes SaveRegions must perform.
type savePlan struct {
	inserts    []Region
	updates    []Region
	unchanged  int
	duplicates int
}

// writes returns the records to upsert, inserts first.
func (p savePlan) writes() []Region {
	out := make([]Region, 0, len(p.inserts)+len(p.updates))
	out = append(out, p.inserts...)
	return append(out, p.updates...)
}

func (p savePlan) result() *SaveResult {
	return &SaveResult{
		Inserted:   len(p.inserts),
		Updated:    len(p.updates),
		Unchanged:  p.unchanged,
		Duplicates: p.duplicates,
	}
}

// dedupe collapses repeated codes within a batch. The first occurrence fixes
// the position, the last occurrence supplies the values.
func dedupe(regions []Region) ([]Region, int) {
	index := make(map[string]int, len(regions))
	out := make([]Region, 0, len(regions))
	var dups int
	for _, r := range regions {
		if i, ok := index[r.NUTSID]; ok {
			out[i] = r
			dups++
			zap.L().Warn("region: duplicate code in batch, keeping last occurrence",
				zap.String("nuts_id", r.NUTSID),
			)
			continue
		}
		index[r.NUTSID] = len(out)
		out = append(out, r)
	}
	return out, dups
}

// planSave classifies a batch against the records already stored.
func planSave(regions []Region, existing map[string]Region) savePlan {
	batch, dups := dedupe(regions)
	p := savePlan{duplicates: dups}
	for _, r := range batch {
		stored, ok := existing[r.NUTSID]
		switch {
		case !ok:
			r.Version = 1
			p.inserts = append(p.inserts, r)
		case sameAttributes(r, stored):
			p.unchanged++
		default:
			r.Version = stored.Version + 1
			p.updates = append(p.updates, r)
		}
	}
	return p
}

// codes returns the distinct NUTS codes of a batch in order.
func codes(regions []Region) []string {
	seen := make(map[string]bool, len(regions))
	out := make([]string, 0, len(regions))
	for _, r := range regions {
		if seen[r.NUTSID] {
			continue
		}
		seen[r.NUTSID] = true
		out = append(out, r.NUTSID)
	}
	return out
}
