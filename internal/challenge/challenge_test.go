package challenge

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ans/pkg/domain"
	dErrors "ans/pkg/domain-errors"
)

func TestBuildAt(t *testing.T) {
	t.Run("produces the four-line template", func(t *testing.T) {
		msg := BuildAt(domain.ActionLock, "escrow-123", 1700000000000)
		assert.Equal(t, "ANS Protocol\nAction: lock\nEscrow: escrow-123\nTimestamp: 1700000000000", msg)
	})

	t.Run("is deterministic for identical inputs", func(t *testing.T) {
		a := BuildAt(domain.ActionRelease, "e1", 42)
		b := BuildAt(domain.ActionRelease, "e1", 42)
		assert.Equal(t, a, b)
	})

	t.Run("distinct actions produce distinct messages", func(t *testing.T) {
		assert.NotEqual(t,
			BuildAt(domain.ActionLock, "e1", 42),
			BuildAt(domain.ActionRefund, "e1", 42),
		)
	})
}

func TestBuild(t *testing.T) {
	msg := Build(domain.ActionConfirm, "escrow-9")
	ts, err := ExtractTimestamp(msg)
	require.NoError(t, err)
	assert.Positive(t, ts)
}

func TestExtractTimestamp(t *testing.T) {
	t.Run("round-trips through BuildAt", func(t *testing.T) {
		msg := BuildAt(domain.ActionDispute, "escrow-7", 1712345678901)
		ts, err := ExtractTimestamp(msg)
		require.NoError(t, err)
		assert.Equal(t, int64(1712345678901), ts)
	})

	t.Run("rejects a message with no timestamp line", func(t *testing.T) {
		_, err := ExtractTimestamp("ANS Protocol\nAction: lock\nEscrow: e1")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeMalformedChallenge))
	})

	t.Run("rejects a timestamp embedded mid-line", func(t *testing.T) {
		_, err := ExtractTimestamp("prefix Timestamp: 1700000000000")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeMalformedChallenge))
	})

	t.Run("rejects non-digit timestamps", func(t *testing.T) {
		_, err := ExtractTimestamp("ANS Protocol\nTimestamp: soon")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeMalformedChallenge))
	})

	t.Run("rejects trailing whitespace on the timestamp line", func(t *testing.T) {
		_, err := ExtractTimestamp("ANS Protocol\nTimestamp: 1700000000000 ")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeMalformedChallenge))
	})

	t.Run("rejects digits that overflow int64", func(t *testing.T) {
		msg := fmt.Sprintf("ANS Protocol\nTimestamp: %s", "99999999999999999999999999")
		_, err := ExtractTimestamp(msg)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeMalformedChallenge))
	})
}
