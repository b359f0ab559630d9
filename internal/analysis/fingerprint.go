package analysis

// IdentityPolicy selects the attributes that partition a fingerprint group
// before identities are counted. With IncludeClientIP set, two people on
// the same test only conflict when they also came from the same address,
// which suits deployments where shared lab machines are expected.
type IdentityPolicy struct {
	IncludeClientIP bool `json:"includeClientIp"`
}

// Group is one device signature and every session that carried it.
type Group struct {
	Signature   string    `json:"-"`
	Members     []Session `json:"results"`
	IsAnomalous bool      `json:"isAnomalous"`
}

// GroupByFingerprint clusters sessions by device-fingerprint hash and marks
// a cluster anomalous when, inside any one policy sub-bucket, the same
// signature was used by more than one distinct person. Sessions without a
// hash neither form nor join groups. Single-member groups stay in the map
// for completeness but are never anomalous; anomaly-facing reports should
// filter them out. Inputs are never mutated.
func GroupByFingerprint(sessions []Session, policy IdentityPolicy) map[string]Group {
	grouped := make(map[string][]Session)
	for _, s := range sessions {
		if s.FingerprintHash == "" {
			continue
		}
		grouped[s.FingerprintHash] = append(grouped[s.FingerprintHash], s)
	}

	out := make(map[string]Group, len(grouped))
	for hash, members := range grouped {
		out[hash] = Group{
			Signature:   hash,
			Members:     members,
			IsAnomalous: len(members) >= 2 && identityConflict(members, policy),
		}
	}
	return out
}

// identityConflict reports whether any sub-bucket of the group holds two or
// more distinct normalized identities.
func identityConflict(members []Session, policy IdentityPolicy) bool {
	buckets := make(map[string]map[string]struct{})
	for _, m := range members {
		key := m.TestType
		if policy.IncludeClientIP {
			key = m.ClientIP + "|" + m.TestType
		}

		ids := buckets[key]
		if ids == nil {
			ids = make(map[string]struct{})
			buckets[key] = ids
		}
		ids[m.User.Normalized()] = struct{}{}
		if len(ids) > 1 {
			return true
		}
	}
	return false
}
