package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrompter_Confirm(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    bool
		wantErr error
	}{
		{name: "yes", input: "y\n", want: true},
		{name: "full yes", input: "YES\n", want: true},
		{name: "no", input: "n\n"},
		{name: "empty means no", input: "\n"},
		{name: "retry on garbage", input: "maybe\ny\n", want: true},
		{name: "input ends", input: "", wantErr: ErrInputTerminated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			p := NewCLIPrompter(strings.NewReader(tt.input), &out)

			got, err := p.Confirm(context.Background(), "Write 3 rows?")
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Contains(t, out.String(), "Write 3 rows?")
		})
	}
}

func TestPrompter_RetryPrintsError(t *testing.T) {
	var out bytes.Buffer
	p := NewCLIPrompter(strings.NewReader("x\nc\n"), &out)

	got, err := p.Choose(context.Background(), "Action", []string{"c", "i", "s"})
	require.NoError(t, err)
	assert.Equal(t, "c", got)
	assert.Contains(t, out.String(), "Invalid choice")
}

func TestPrompter_Ask(t *testing.T) {
	p := NewCLIPrompter(strings.NewReader("\n社交\n"), &bytes.Buffer{})
	ctx := context.Background()

	got, err := p.Ask(ctx, "Purpose", "日常")
	require.NoError(t, err)
	assert.Equal(t, "日常", got, "empty answer keeps the default")

	got, err = p.Ask(ctx, "Purpose", "日常")
	require.NoError(t, err)
	assert.Equal(t, "社交", got)
}

func TestPrompter_Cancelled(t *testing.T) {
	p := NewCLIPrompter(strings.NewReader("y\n"), &bytes.Buffer{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Confirm(ctx, "Continue?")
	assert.ErrorIs(t, err, ErrInputCancelled)
}
