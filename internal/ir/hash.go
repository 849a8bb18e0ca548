package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
)

// Hash computes a stable content hash of a schema, suited to detecting
// that a plan was generated against a since-changed source schema; no
// other package in this module calls it (grounded on the teacher's schema_hash.go source-schema-hash
// check in internal/planner/planner.go's GeneratePlanWithHash).
func Hash(s *SqlSchema) (string, error) {
	cp := canonicalize(s)
	data, err := json.Marshal(cp)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// canonicalize returns a copy of the schema with every arena sorted into
// a deterministic order, so that two structurally identical schemas
// assembled in different catalog orders hash identically.
func canonicalize(s *SqlSchema) *SqlSchema {
	out := *s
	out.Tables = append([]Table(nil), s.Tables...)
	sort.Slice(out.Tables, func(i, j int) bool { return out.Tables[i].Name < out.Tables[j].Name })

	out.Columns = append([]Column(nil), s.Columns...)
	sort.Slice(out.Columns, func(i, j int) bool {
		if out.Columns[i].TableID != out.Columns[j].TableID {
			return out.Columns[i].TableID < out.Columns[j].TableID
		}
		return out.Columns[i].Name < out.Columns[j].Name
	})

	out.Indexes = append([]Index(nil), s.Indexes...)
	sort.Slice(out.Indexes, func(i, j int) bool { return out.Indexes[i].Name < out.Indexes[j].Name })

	out.ForeignKeys = append([]ForeignKey(nil), s.ForeignKeys...)
	sort.Slice(out.ForeignKeys, func(i, j int) bool {
		return out.ForeignKeys[i].ConstraintName < out.ForeignKeys[j].ConstraintName
	})

	return &out
}
