package helpers

import (
	"context"
	"testing"

	"github.com/Dohessiekan/FinSight-Front-Back-sub001/internal/aggregates"
	"github.com/Dohessiekan/FinSight-Front-Back-sub001/internal/classifier"
	"github.com/Dohessiekan/FinSight-Front-Back-sub001/internal/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertCountsBalanced checks that the labelled counts add up to the total
func AssertCountsBalanced(t *testing.T, c aggregates.Counts) {
	t.Helper()
	assert.Equal(t, c.Total, c.Benign+c.Suspicious+c.Fraud, "label counts must sum to total")
}

// AssertRollupsMatchLedger checks the user rollups and the global rollup
// against a recount of every user's ledger.
func AssertRollupsMatchLedger(t *testing.T, ctx context.Context, led ledger.RepositoryInterface, rollups aggregates.RepositoryInterface, userIDs ...string) {
	t.Helper()

	var global aggregates.Counts
	for _, userID := range userIDs {
		messages, err := led.ListByUser(ctx, userID, 10000, 0)
		require.NoError(t, err)

		var want aggregates.Counts
		for _, m := range messages {
			want.Total++
			switch m.Label {
			case classifier.LabelFraud:
				want.Fraud++
			case classifier.LabelSuspicious:
				want.Suspicious++
			default:
				want.Benign++
			}
		}

		rollup, err := rollups.GetUserRollup(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, want, rollup.Counts, "user %s rollup", userID)
		AssertCountsBalanced(t, rollup.Counts)

		global.Total += want.Total
		global.Benign += want.Benign
		global.Suspicious += want.Suspicious
		global.Fraud += want.Fraud
	}

	g, err := rollups.GetGlobalRollup(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, global, g.Counts, "global rollup")
}
