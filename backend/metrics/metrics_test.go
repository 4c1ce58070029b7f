package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRegisterIsIdempotent(t *testing.T) {
	assert.NotPanics(t, Register)
	assert.NotPanics(t, Register)
}

func TestSubmissionsByOutcome(t *testing.T) {
	before := testutil.ToFloat64(SubmissionsTotal.WithLabelValues("CooldownActive"))
	SubmissionsTotal.WithLabelValues("CooldownActive").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(SubmissionsTotal.WithLabelValues("CooldownActive")))
}
