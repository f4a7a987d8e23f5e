package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaymentsMode_DefaultsToMock(t *testing.T) {
	t.Setenv("PAYMENTS_MODE", "")
	assert.Equal(t, "mock", paymentsMode())
}

func TestPaymentsMode_AcceptsMock(t *testing.T) {
	t.Setenv("PAYMENTS_MODE", "mock")
	assert.Equal(t, "mock", paymentsMode())
}
