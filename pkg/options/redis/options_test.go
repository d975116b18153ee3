package redisopts_test

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redisopts "github.com/kart-io/docintel/pkg/options/redis"
)

func TestNewOptionsDefaults(t *testing.T) {
	o := redisopts.NewOptions()
	assert.Equal(t, "127.0.0.1:6379", o.Addr())
	assert.Equal(t, 5*time.Second, o.DialTimeout)
	assert.Equal(t, 3*time.Second, o.ReadTimeout)
	assert.Equal(t, 3*time.Second, o.WriteTimeout)
	assert.Equal(t, 4*time.Second, o.PoolTimeout)
	assert.Empty(t, o.Validate())
}

func TestStringRedactsPassword(t *testing.T) {
	o := redisopts.NewOptions()
	o.Password = "hunter2"
	s := o.String()
	assert.NotContains(t, s, "hunter2")
	assert.Contains(t, s, "[REDACTED]")

	o.Password = ""
	assert.NotContains(t, o.String(), "[REDACTED]")
}

func TestValidatePasswordEnvFallback(t *testing.T) {
	t.Setenv("REDIS_PASSWORD", "from-env")
	o := redisopts.NewOptions()
	require.Empty(t, o.Validate())
	assert.Equal(t, "from-env", o.Password)
}

func TestValidateRejectsBadValues(t *testing.T) {
	o := redisopts.NewOptions()
	o.Port = 0
	o.ReadTimeout = 0
	errs := o.Validate()
	assert.Len(t, errs, 2)
}

func TestAddFlagsRegistersTimeouts(t *testing.T) {
	o := redisopts.NewOptions()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	o.AddFlags(fs)

	require.NoError(t, fs.Parse([]string{
		"--redis.dial-timeout=9s",
		"--redis.pool-timeout=7s",
	}))
	assert.Equal(t, 9*time.Second, o.DialTimeout)
	assert.Equal(t, 7*time.Second, o.PoolTimeout)
}
