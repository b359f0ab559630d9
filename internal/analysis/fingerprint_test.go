package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fpSession(id, hash, testType, ip, last, first string) Session {
	return Session{
		SessionID:       id,
		FingerprintHash: hash,
		TestType:        testType,
		ClientIP:        ip,
		User:            Identity{LastName: last, FirstName: first},
	}
}

func TestIdentityNormalized(t *testing.T) {
	tests := []struct {
		name string
		id   Identity
		want string
	}{
		{"plain", Identity{LastName: "Smith", FirstName: "John"}, "smith john"},
		{"whitespace", Identity{LastName: "  Smith ", FirstName: " John  "}, "smith john"},
		{"case", Identity{LastName: "SMITH", FirstName: "jOhN"}, "smith john"},
		{"empty first", Identity{LastName: "Smith"}, "smith"},
		{"empty both", Identity{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.id.Normalized())
		})
	}
}

func TestGroupByFingerprintClusters(t *testing.T) {
	sessions := []Session{
		fpSession("s1", "hashA", "grammar", "", "Smith", "John"),
		fpSession("s2", "hashA", "grammar", "", "Smith", "John"),
		fpSession("s3", "hashB", "grammar", "", "Jones", "Mary"),
	}

	groups := GroupByFingerprint(sessions, IdentityPolicy{})
	require.Len(t, groups, 2)
	assert.Len(t, groups["hashA"].Members, 2)
	assert.Len(t, groups["hashB"].Members, 1)
	assert.Equal(t, "hashA", groups["hashA"].Signature)
}

func TestGroupByFingerprintExcludesMissingHash(t *testing.T) {
	sessions := []Session{
		fpSession("s1", "", "grammar", "", "Smith", "John"),
		fpSession("s2", "hashA", "grammar", "", "Jones", "Mary"),
	}

	groups := GroupByFingerprint(sessions, IdentityPolicy{})
	require.Len(t, groups, 1)
	assert.NotContains(t, groups, "")
}

func TestGroupByFingerprintSingleMemberNeverAnomalous(t *testing.T) {
	groups := GroupByFingerprint([]Session{
		fpSession("s1", "hashA", "grammar", "", "Smith", "John"),
	}, IdentityPolicy{})

	assert.False(t, groups["hashA"].IsAnomalous)
}

func TestGroupByFingerprintAnomalyRules(t *testing.T) {
	tests := []struct {
		name     string
		policy   IdentityPolicy
		sessions []Session
		want     bool
	}{
		{
			name:   "two identities one test",
			policy: IdentityPolicy{},
			sessions: []Session{
				fpSession("s1", "h", "grammar", "", "Smith", "John"),
				fpSession("s2", "h", "grammar", "", "Jones", "Mary"),
			},
			want: true,
		},
		{
			name:   "same person twice",
			policy: IdentityPolicy{},
			sessions: []Session{
				fpSession("s1", "h", "grammar", "", "Smith", "John"),
				fpSession("s2", "h", "grammar", "", "Smith", "John"),
			},
			want: false,
		},
		{
			name:   "name varies only in case and spacing",
			policy: IdentityPolicy{},
			sessions: []Session{
				fpSession("s1", "h", "grammar", "", "Smith", "John"),
				fpSession("s2", "h", "grammar", "", " SMITH ", "john  "),
			},
			want: false,
		},
		{
			name:   "two identities on different tests",
			policy: IdentityPolicy{},
			sessions: []Session{
				fpSession("s1", "h", "grammar", "", "Smith", "John"),
				fpSession("s2", "h", "math", "", "Jones", "Mary"),
			},
			want: false,
		},
		{
			name:   "ip policy separates different addresses",
			policy: IdentityPolicy{IncludeClientIP: true},
			sessions: []Session{
				fpSession("s1", "h", "grammar", "10.0.0.1", "Smith", "John"),
				fpSession("s2", "h", "grammar", "10.0.0.2", "Jones", "Mary"),
			},
			want: false,
		},
		{
			name:   "ip policy still flags shared address",
			policy: IdentityPolicy{IncludeClientIP: true},
			sessions: []Session{
				fpSession("s1", "h", "grammar", "10.0.0.1", "Smith", "John"),
				fpSession("s2", "h", "grammar", "10.0.0.1", "Jones", "Mary"),
			},
			want: true,
		},
		{
			name:   "conflict among three members",
			policy: IdentityPolicy{},
			sessions: []Session{
				fpSession("s1", "h", "grammar", "", "Smith", "John"),
				fpSession("s2", "h", "grammar", "", "Smith", "John"),
				fpSession("s3", "h", "grammar", "", "Jones", "Mary"),
			},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			groups := GroupByFingerprint(tt.sessions, tt.policy)
			require.Contains(t, groups, "h")
			assert.Equal(t, tt.want, groups["h"].IsAnomalous)
		})
	}
}

func TestGroupByFingerprintDoesNotMutateInput(t *testing.T) {
	sessions := []Session{
		fpSession("s1", "h", "grammar", "", "Smith", "John"),
		fpSession("s2", "h", "grammar", "", "Jones", "Mary"),
	}
	before := make([]Session, len(sessions))
	copy(before, sessions)

	GroupByFingerprint(sessions, IdentityPolicy{})
	assert.Equal(t, before, sessions)
}
