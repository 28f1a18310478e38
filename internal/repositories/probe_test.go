package repositories

import (
	"context"
	"testing"

	"go-logstore/internal/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type panickingGateway struct{ database.Gateway }

func (panickingGateway) Open(context.Context, string) (database.Handle, error) {
	panic("driver exploded")
}

func TestProbe_SQLiteSucceeds(t *testing.T) {
	gw := database.NewSQLiteGateway(t.TempDir(), nil)

	res := Probe(context.Background(), gw, "probe.db")
	require.NoError(t, res.Err)
	assert.True(t, res.Success)
	assert.Equal(t, database.DriverSQLite, res.Driver)
	assert.NotEmpty(t, res.Platform)

	// repeatable against the same file
	again := Probe(context.Background(), gw, "probe.db")
	assert.True(t, again.Success)
}

func TestProbe_DisabledFails(t *testing.T) {
	res := Probe(context.Background(), database.NewDisabledGateway(), "probe.db")
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, database.ErrGatewayDisabled)
}

func TestProbe_StatementFailureIsReported(t *testing.T) {
	gw := &faultyGateway{Gateway: database.NewSQLiteGateway(t.TempDir(), nil)}
	gw.failing.Store(true)

	res := Probe(context.Background(), gw, "probe.db")
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, errInjected)
	assert.Contains(t, res.Err.Error(), "create")
}

func TestProbe_RecoversFromPanic(t *testing.T) {
	gw := panickingGateway{database.NewDisabledGateway()}

	var res ProbeResult
	assert.NotPanics(t, func() {
		res = Probe(context.Background(), gw, "probe.db")
	})
	assert.False(t, res.Success)
	assert.Contains(t, res.Err.Error(), "driver exploded")
}
