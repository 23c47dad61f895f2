package envelope

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"typedcode/internal/hwattest"
)

func TestWithHardwareBinding_NoBinderIsNoOp(t *testing.T) {
	env := buildTestEnvelope(t)
	require.NoError(t, WithHardwareBinding(env, nil))
	assert.Nil(t, env.Hardware)
}

func TestWithHardwareBinding_UnavailableProviderIsNoOp(t *testing.T) {
	env := buildTestEnvelope(t)
	binder := hwattest.NewBinder(hwattest.NoOpProvider{})
	require.NoError(t, WithHardwareBinding(env, binder))
	assert.Nil(t, env.Hardware)
}

func TestWithHardwareBinding_BindsToSoftwareProvider(t *testing.T) {
	env := buildTestEnvelope(t)
	binder := hwattest.NewBinder(hwattest.NewSoftwareProvider([]byte("test-host")))

	require.NoError(t, WithHardwareBinding(env, binder))
	require.NotNil(t, env.Hardware)
	assert.NoError(t, hwattest.VerifyBinding(env.Hardware))
}
