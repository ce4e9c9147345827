package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkflowForwardOnly(t *testing.T) {
	wf := Workflow{}

	cases := []struct {
		name string
		from Status
		to   Status
		want error
	}{
		{"placed to confirmed", StatusPlaced, StatusConfirmed, nil},
		{"confirmed to shipping", StatusConfirmed, StatusShipping, nil},
		{"shipping to completed", StatusShipping, StatusCompleted, nil},
		{"skip a step", StatusPlaced, StatusShipping, ErrInvalidTransition},
		{"skip to completed", StatusPlaced, StatusCompleted, ErrInvalidTransition},
		{"backwards", StatusShipping, StatusConfirmed, ErrInvalidTransition},
		{"stay put", StatusConfirmed, StatusConfirmed, ErrInvalidTransition},
		{"out of completed", StatusCompleted, StatusShipping, ErrInvalidTransition},
		{"unknown target", StatusPlaced, Status("CANCELLED"), ErrInvalidStatus},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := wf.Check(tc.from, tc.to)
			if tc.want == nil {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, tc.want)
			}
		})
	}
}

func TestWorkflowFullLifecycle(t *testing.T) {
	// Placed -> Confirmed -> Shipping -> Completed, then a rewind attempt
	wf := Workflow{}
	cur := StatusPlaced
	for _, next := range []Status{StatusConfirmed, StatusShipping, StatusCompleted} {
		require.NoError(t, wf.Check(cur, next))
		cur = next
	}
	require.ErrorIs(t, wf.Check(cur, StatusConfirmed), ErrInvalidTransition)
}

func TestWorkflowAllowRewind(t *testing.T) {
	wf := Workflow{AllowRewind: true}

	// the legacy laxity: any valid non-terminal hop is fine
	assert.NoError(t, wf.Check(StatusShipping, StatusConfirmed))
	assert.NoError(t, wf.Check(StatusPlaced, StatusCompleted))

	// but completed stays terminal and the set stays closed
	assert.ErrorIs(t, wf.Check(StatusCompleted, StatusConfirmed), ErrInvalidTransition)
	assert.ErrorIs(t, wf.Check(StatusPlaced, Status("REFUNDED")), ErrInvalidStatus)
	assert.ErrorIs(t, wf.Check(StatusShipping, StatusShipping), ErrInvalidTransition)
}

func TestStatusHelpers(t *testing.T) {
	assert.True(t, StatusPlaced.Valid())
	assert.True(t, StatusCompleted.Valid())
	assert.False(t, Status("PAID").Valid())

	assert.True(t, StatusCompleted.Terminal())
	assert.False(t, StatusShipping.Terminal())
}

func TestValidPaymentMethod(t *testing.T) {
	assert.True(t, ValidPaymentMethod(PaymentCOD))
	assert.True(t, ValidPaymentMethod(PaymentOnline))
	assert.False(t, ValidPaymentMethod("cod"))
	assert.False(t, ValidPaymentMethod(""))
}
