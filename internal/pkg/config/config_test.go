package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/book-escrow/internal/order-service/domain"
)

const sample = `
env: staging
server:
  http_addr: ":8081"
  order_service_addr: "order-service:9090"
auth:
  jwt_secret: from-file
engine:
  pending_ttl: 15m
  sweep_interval: 30s
kafka:
  brokers: ["kafka:9092"]
  topics:
    order.completed: bookmarket.payouts
seed:
  users:
    - id: u1
      email: ana@example.rs
  books:
    - id: b1
      seller_id: u1
      title: Seobe
      author: Miloš Crnjanski
      condition: dobro
      price: 800
`

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "escrow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 10*time.Second, cfg.Engine.PaymentTimeout)
}

func TestLoad_FileThenEnv(t *testing.T) {
	t.Setenv("ESCROW_AUTH_JWT_SECRET", "from-env")
	t.Setenv("ESCROW_ENGINE_SWEEP_BATCH_SIZE", "25")
	t.Setenv("ESCROW_PAYMENT_DECLINE_ABOVE", "5000")

	cfg, err := Load(writeFile(t, sample))
	require.NoError(t, err)

	assert.Equal(t, "staging", cfg.Env)
	assert.Equal(t, ":8081", cfg.Server.HTTPAddr)
	assert.Equal(t, ":9090", cfg.Server.GRPCAddr, "default kept")
	assert.Equal(t, "order-service:9090", cfg.Server.OrderServiceAddr)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
	assert.Equal(t, 15*time.Minute, cfg.Engine.PendingTTL)
	assert.Equal(t, 30*time.Second, cfg.Engine.SweepInterval)
	assert.Equal(t, 25, cfg.Engine.SweepBatchSize)
	assert.Equal(t, int64(5000), cfg.Payment.DeclineAbove)
	assert.Equal(t, []string{"kafka:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "bookmarket.payouts", cfg.Kafka.Topics["order.completed"])
	require.Len(t, cfg.Seed.Users, 1)
	require.Len(t, cfg.Seed.Books, 1)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "engine: [not, a, map]"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "engine:\n  sweep_interval: 0s\n"))
	assert.ErrorContains(t, err, "sweep_interval")

	t.Setenv("ESCROW_ENGINE_PENDING_TTL", "soon")
	_, err = Load("")
	assert.Error(t, err)
}

func TestSeed_DomainBooks(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	seed := Seed{Books: []SeedBook{{ID: "b1", SellerID: "u1", Title: "Seobe", Condition: "kao-novo", Price: 800}}}

	books, err := seed.DomainBooks(now)
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, domain.ConditionLikeNew, books[0].Condition)
	assert.Equal(t, domain.DeliveryPost, books[0].DeliveryOption)
	assert.Equal(t, domain.PaymentCard, books[0].PaymentMethod)
	assert.Equal(t, now, books[0].CreatedAt)

	seed.Books[0].Condition = "izlizano"
	_, err = seed.DomainBooks(now)
	assert.Error(t, err)

	users := Seed{Users: []SeedUser{{ID: "u1", Name: "Ana"}}}.DomainUsers(now)
	assert.Equal(t, "Ana", users[0].Name)
}
