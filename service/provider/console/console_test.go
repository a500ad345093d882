package console

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/starks-and-wolves/ai-browser-secure/model/action"
)

func TestDecide(t *testing.T) {
	type testCase struct {
		name     string
		input    string
		expected action.Decision
	}

	tests := []testCase{
		{name: "approve", input: "y\n", expected: action.Approve},
		{name: "approve uppercase", input: "Y\n", expected: action.Approve},
		{name: "approve with whitespace", input: "  y  \n", expected: action.Approve},
		{name: "deny", input: "n\n", expected: action.Deny},
		{name: "session grant", input: "s\n", expected: action.ApproveAllSession},
		{name: "domain grant", input: "d\n", expected: action.ApproveAllDomain},
		{name: "unrecognized answer denies", input: "maybe\n", expected: action.Deny},
		{name: "empty line denies", input: "\n", expected: action.Deny},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var out bytes.Buffer
			p := NewWithIO(strings.NewReader(tc.input), &out)
			decision, err := p.Decide(context.Background(), &action.Request{
				Type:        action.Navigation,
				Description: "Navigate to https://example.com",
				URL:         "https://example.com",
			})
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, decision)
			assert.Contains(t, out.String(), "SECURITY APPROVAL REQUIRED")
			assert.Contains(t, out.String(), "[y/n/s/d]")
		})
	}
}

func TestDecideEOFDenies(t *testing.T) {
	var out bytes.Buffer
	p := NewWithIO(strings.NewReader(""), &out)
	decision, err := p.Decide(context.Background(), &action.Request{Type: action.Navigation})
	assert.NoError(t, err)
	assert.Equal(t, action.Deny, decision)
}

// blockedReader never produces input, standing in for an unattended terminal.
type blockedReader struct{}

func (blockedReader) Read([]byte) (int, error) {
	select {}
}

func TestDecideTimeoutDenies(t *testing.T) {
	var out bytes.Buffer
	p := NewWithIO(blockedReader{}, &out).WithTimeout(20 * time.Millisecond)
	decision, err := p.Decide(context.Background(), &action.Request{Type: action.Navigation})
	assert.NoError(t, err)
	assert.Equal(t, action.Deny, decision)
}

func TestDecideContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := NewWithIO(blockedReader{}, io.Discard)
	decision, err := p.Decide(ctx, &action.Request{Type: action.Navigation})
	assert.Error(t, err)
	assert.Equal(t, action.Deny, decision)
}
