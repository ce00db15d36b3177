package bootstrap

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appconfig "github.com/amanahealth/clinic-concierge/internal/config"
	"github.com/amanahealth/clinic-concierge/internal/convstore"
	"github.com/amanahealth/clinic-concierge/pkg/logging"
)

func TestBuildRedisClientDisabledWithoutAddr(t *testing.T) {
	client := BuildRedisClient(context.Background(), &appconfig.Config{RedisAddr: " "}, logging.Default(), false)
	assert.Nil(t, client)
}

func TestBuildRedisClientVerifyPing(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := &appconfig.Config{RedisAddr: mr.Addr()}
	client := BuildRedisClient(context.Background(), cfg, logging.Default(), true)
	require.NotNil(t, client)
	defer client.Close()

	require.NoError(t, client.Ping(context.Background()).Err())
}

func TestBuildRedisClientVerifyFailureReturnsNil(t *testing.T) {
	cfg := &appconfig.Config{RedisAddr: "127.0.0.1:1"}
	client := BuildRedisClient(context.Background(), cfg, logging.Default(), true)
	assert.Nil(t, client)
}

func TestBuildDialogManagerRejectsMissingSettings(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	full := appconfig.Config{
		OpenAIAPIKey:     "sk-test",
		InsuranceBaseURL: "https://verify.example",
		StripeSecretKey:  "sk_test_123",
	}

	cases := []struct {
		name   string
		db     *sql.DB
		mutate func(*appconfig.Config)
	}{
		{name: "no database", db: nil, mutate: func(*appconfig.Config) {}},
		{name: "no openai key", db: db, mutate: func(c *appconfig.Config) { c.OpenAIAPIKey = "" }},
		{name: "no insurance url", db: db, mutate: func(c *appconfig.Config) { c.InsuranceBaseURL = "" }},
		{name: "no stripe key", db: db, mutate: func(c *appconfig.Config) { c.StripeSecretKey = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := full
			tc.mutate(&cfg)
			mgr, err := BuildDialogManager(tc.db, convstore.NewMemoryStore(), &cfg, logging.Default())
			require.Error(t, err)
			assert.Nil(t, mgr)
		})
	}
}

func TestBuildDialogManagerFullConfig(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	cfg := &appconfig.Config{
		OpenAIAPIKey:     "sk-test",
		OpenAIModel:      "gpt-4o",
		InsuranceBaseURL: "https://verify.example",
		StripeSecretKey:  "sk_test_123",
	}

	mgr, err := BuildDialogManager(db, convstore.NewMemoryStore(), cfg, logging.Default())
	require.NoError(t, err)
	require.NotNil(t, mgr)
}

func TestBuildDialogStoreFallsBackToMemory(t *testing.T) {
	cfg := &appconfig.Config{StateTTL: time.Hour}

	store := BuildDialogStore(nil, nil, cfg, logging.Default())
	require.NotNil(t, store)
	assert.IsType(t, &convstore.MemoryStore{}, store)
}
