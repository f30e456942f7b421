package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crm-quote-print/config"
)

func TestInitialize_RenderOnly(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := config.Load("")
	require.NoError(t, err)

	a, err := Initialize(context.Background(), cfg, nil, Options{})
	require.NoError(t, err)
	defer a.Close()

	require.NotNil(t, a.Controllers)
	assert.NotNil(t, a.Controllers.Invoice)
	assert.Nil(t, a.host)
	assert.False(t, a.dbOpen)
}

func TestInitialize_BadDriveCredentialsAreNotFatal(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("GOOGLE_CREDENTIALS", "/does/not/exist.json")
	cfg, err := config.Load("")
	require.NoError(t, err)

	a, err := Initialize(context.Background(), cfg, nil, Options{})
	require.NoError(t, err)
	defer a.Close()

	assert.NotNil(t, a.Controllers.Invoice)
}

func TestInitialize_InvalidTimezone(t *testing.T) {
	cfg := &config.Config{}
	cfg.Print.Timezone = "Mars/Olympus"

	_, err := Initialize(context.Background(), cfg, nil, Options{})
	assert.Error(t, err)
}

func TestClose_Idempotent(t *testing.T) {
	a := &App{}
	assert.NotPanics(t, func() {
		a.Close()
		a.Close()
	})
}
