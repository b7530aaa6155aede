package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pnl_forecast/pkg/core/projection"
)

func TestRunChecks(t *testing.T) {
	ok := projection.Result{Projections: []projection.Projection{
		{Month: "2024-02", Revenue: 50000, COGS: 17500, Opex: 14200, EBIT: 18300, OperatingMarginPct: 36.6},
		{Month: "2024-03", Revenue: 0, Opex: 500, EBIT: -500},
	}}
	assert.NoError(t, runChecks(ok))

	bad := projection.Result{Projections: []projection.Projection{
		{Month: "2024-02", Revenue: 100, COGS: 10, Opex: 10, EBIT: 70},
	}}
	err := runChecks(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2024-02")

	badMargin := projection.Result{Projections: []projection.Projection{
		{Month: "2024-02", Revenue: 100, COGS: 10, Opex: 10, EBIT: 80, OperatingMarginPct: 50},
	}}
	assert.Error(t, runChecks(badMargin))
}

func TestRunChecksOnEngineOutput(t *testing.T) {
	res := projection.NewEngine(projection.DefaultConfig()).Compute(projection.Request{
		TargetMonth: "2024-01",
		Horizon:     12,
	})
	assert.NoError(t, runChecks(res))
}

func TestReadPayload(t *testing.T) {
	b, err := readPayload(`{"horizon": 3}`, "")
	require.NoError(t, err)
	assert.JSONEq(t, `{"horizon": 3}`, string(b))

	path := filepath.Join(t.TempDir(), "req.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"target_month": "2024-01"}`), 0o600))
	b, err = readPayload("", path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "2024-01")

	_, err = readPayload("", "")
	assert.Error(t, err)
}
