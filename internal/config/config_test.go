package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestValidate_RejectsZeroNStates(t *testing.T) {
	c := Default()
	c.NStates = 0
	require.Error(t, c.Validate())
}

func TestValidate_RejectsOutOfRangeMixtureProbability(t *testing.T) {
	c := Default()
	c.MixtureProbability = 1.5
	require.Error(t, c.Validate())
}
