package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatches(t *testing.T) {
	type testCase struct {
		name     string
		domain   string
		patterns []string
		expected bool
	}

	tests := []testCase{
		{
			name:     "exact match",
			domain:   "example.com",
			patterns: []string{"example.com"},
			expected: true,
		},
		{
			name:     "subdomain of plain pattern",
			domain:   "shop.example.com",
			patterns: []string{"example.com"},
			expected: true,
		},
		{
			name:     "wildcard matches base domain",
			domain:   "example.com",
			patterns: []string{"*.example.com"},
			expected: true,
		},
		{
			name:     "wildcard matches subdomain",
			domain:   "deep.sub.example.com",
			patterns: []string{"*.example.com"},
			expected: true,
		},
		{
			name:     "suffix without dot boundary does not match",
			domain:   "notexample.com",
			patterns: []string{"example.com"},
			expected: false,
		},
		{
			name:     "case normalized",
			domain:   "Example.COM",
			patterns: []string{"example.com"},
			expected: true,
		},
		{
			name:     "empty domain never matches",
			domain:   "",
			patterns: []string{"example.com", "*.example.com"},
			expected: false,
		},
		{
			name:     "empty pattern list",
			domain:   "example.com",
			patterns: nil,
			expected: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Matches(tc.domain, tc.patterns))
		})
	}
}

func TestPolicyHighRisk(t *testing.T) {
	p := New(nil, nil)

	assert.True(t, p.IsHighRisk("chase.com"))
	assert.True(t, p.IsHighRisk("www.chase.com"))
	assert.True(t, p.IsHighRisk("mybank.example.org"), "substring match on 'bank'")
	assert.False(t, p.IsHighRisk("example.com"))
	assert.False(t, p.IsHighRisk(""))

	var nilPolicy *Policy
	assert.False(t, nilPolicy.IsHighRisk("chase.com"))
	assert.False(t, nilPolicy.IsApproved("example.com"))
	assert.False(t, nilPolicy.IsDenied("example.com"))
}

func TestDomain(t *testing.T) {
	assert.Equal(t, "example.com", Domain("https://example.com/path?q=1"))
	assert.Equal(t, "shop.example.com", Domain("http://shop.example.com:8080/"))
	assert.Equal(t, "", Domain(""))
	assert.Equal(t, "", Domain("about:blank"))
}

func TestContextEmbedding(t *testing.T) {
	p := New([]string{"example.com"}, nil)
	ctx := WithPolicy(nil, p)
	assert.Same(t, p, FromContext(ctx))
	assert.Nil(t, FromContext(nil))
}
