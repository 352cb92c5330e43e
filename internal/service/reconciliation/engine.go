// Package reconciliation projects raw member documents into the canonical
// member view: one record per member number, ordered by member number.
package reconciliation

import (
	"sort"
	"strings"

	"coop-ledger/internal/pkg/store/models"

	"go.mongodb.org/mongo-driver/bson"
)

// Coerce decodes a raw member document, defaulting every ledger field to 0
// and every identity field to a trimmed string.
func Coerce(raw bson.M) models.Member {
	return models.DecodeMember(raw)
}

// Canonicalize coerces, deduplicates and sorts a snapshot. The input is not
// modified and the result depends only on the snapshot passed in.
func Canonicalize(raws []bson.M) []models.Member {
	members := make([]models.Member, 0, len(raws))
	for _, raw := range raws {
		members = append(members, Coerce(raw))
	}
	canonical := Dedupe(members)
	Sort(canonical)
	return canonical
}

// Dedupe keeps one member per member number. A later duplicate wins only
// when it carries an updatedAt strictly after the current winner's, or the
// current winner has none. Otherwise the first one seen stays.
func Dedupe(members []models.Member) []models.Member {
	index := make(map[string]int, len(members))
	out := make([]models.Member, 0, len(members))
	for _, m := range members {
		i, seen := index[m.MemberNumber]
		if !seen {
			index[m.MemberNumber] = len(out)
			out = append(out, m)
			continue
		}
		if supersedes(m, out[i]) {
			out[i] = m
		}
	}
	return out
}

func supersedes(candidate, current models.Member) bool {
	if candidate.UpdatedAt == nil {
		return false
	}
	if current.UpdatedAt == nil {
		return true
	}
	return candidate.UpdatedAt.After(*current.UpdatedAt)
}

// Sort orders members by LessMemberNumber.
func Sort(members []models.Member) {
	sort.SliceStable(members, func(i, j int) bool {
		return LessMemberNumber(members[i].MemberNumber, members[j].MemberNumber)
	})
}

// LessMemberNumber is a total order on member numbers. Numeric member numbers
// come first in ascending value, with "7" before "007". Everything else
// follows in byte order.
func LessMemberNumber(a, b string) bool {
	an, bn := isNumeric(a), isNumeric(b)
	switch {
	case an && !bn:
		return true
	case !an && bn:
		return false
	case !an && !bn:
		return a < b
	}

	at, bt := trimZeros(a), trimZeros(b)
	if len(at) != len(bt) {
		return len(at) < len(bt)
	}
	if at != bt {
		return at < bt
	}
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func trimZeros(s string) string {
	t := strings.TrimLeft(s, "0")
	if t == "" {
		return "0"
	}
	return t
}
