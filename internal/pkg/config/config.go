// Package config resolves runtime configuration in priority order:
// built-in defaults, then an optional YAML file, then ESCROW_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/jcmexdev/book-escrow/internal/order-service/domain"
)

// EnvPrefix is prepended to every environment override, e.g.
// ESCROW_SERVER_HTTP_ADDR or ESCROW_ENGINE_PENDING_TTL.
const EnvPrefix = "ESCROW"

type Config struct {
	Env      string `yaml:"env" envconfig:"ENV"`
	LogLevel string `yaml:"log_level" envconfig:"LOG_LEVEL"`

	Server    Server    `yaml:"server" envconfig:"SERVER"`
	Auth      Auth      `yaml:"auth" envconfig:"AUTH"`
	Engine    Engine    `yaml:"engine" envconfig:"ENGINE"`
	Payment   Payment   `yaml:"payment" envconfig:"PAYMENT"`
	Storage   Storage   `yaml:"storage" envconfig:"STORAGE"`
	Redis     Redis     `yaml:"redis" envconfig:"REDIS"`
	Kafka     Kafka     `yaml:"kafka" envconfig:"KAFKA"`
	Telemetry Telemetry `yaml:"telemetry" envconfig:"TELEMETRY"`

	Seed Seed `yaml:"seed" ignored:"true"`
}

type Server struct {
	HTTPAddr string `yaml:"http_addr" envconfig:"HTTP_ADDR"`
	GRPCAddr string `yaml:"grpc_addr" envconfig:"GRPC_ADDR"`
	// OrderServiceAddr is where the api-gateway dials the order-service.
	// Empty runs the engine inside the gateway process.
	OrderServiceAddr string        `yaml:"order_service_addr" envconfig:"ORDER_SERVICE_ADDR"`
	ShutdownTimeout  time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
}

type Auth struct {
	JWTSecret string        `yaml:"jwt_secret" envconfig:"JWT_SECRET"`
	TokenTTL  time.Duration `yaml:"token_ttl" envconfig:"TOKEN_TTL"`
}

type Engine struct {
	PaymentTimeout time.Duration `yaml:"payment_timeout" envconfig:"PAYMENT_TIMEOUT"`
	PendingTTL     time.Duration `yaml:"pending_ttl" envconfig:"PENDING_TTL"`
	SweepInterval  time.Duration `yaml:"sweep_interval" envconfig:"SWEEP_INTERVAL"`
	SweepBatchSize int           `yaml:"sweep_batch_size" envconfig:"SWEEP_BATCH_SIZE"`
}

type Payment struct {
	Delay        time.Duration `yaml:"delay" envconfig:"DELAY"`
	DeclineAbove int64         `yaml:"decline_above" envconfig:"DECLINE_ABOVE"`
}

// Storage paths are SQLite files; empty keeps the data in memory.
type Storage struct {
	OrdersPath  string `yaml:"orders_path" envconfig:"ORDERS_PATH"`
	SagaLogPath string `yaml:"saga_log_path" envconfig:"SAGA_LOG_PATH"`
}

// Redis backs the payment idempotency cache; empty uses an in-process cache.
type Redis struct {
	Addr string `yaml:"addr" envconfig:"ADDR"`
}

// Kafka receives order events; no brokers means events are only logged.
type Kafka struct {
	Brokers []string          `yaml:"brokers" envconfig:"BROKERS"`
	Topic   string            `yaml:"topic" envconfig:"TOPIC"`
	Topics  map[string]string `yaml:"topics" envconfig:"TOPICS"`
}

type Telemetry struct {
	ServiceName string `yaml:"service_name" envconfig:"SERVICE_NAME"`
	// OTLPEndpoint is the collector host:port; empty disables span export.
	OTLPEndpoint string `yaml:"otlp_endpoint" envconfig:"OTLP_ENDPOINT"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Env:      "local",
		LogLevel: "info",
		Server: Server{
			HTTPAddr:        ":8080",
			GRPCAddr:        ":9090",
			ShutdownTimeout: 5 * time.Second,
		},
		Auth: Auth{TokenTTL: 24 * time.Hour},
		Engine: Engine{
			PaymentTimeout: 10 * time.Second,
			PendingTTL:     30 * time.Minute,
			SweepInterval:  time.Minute,
			SweepBatchSize: 100,
		},
		Payment: Payment{
			Delay:        200 * time.Millisecond,
			DeclineAbove: 100_000,
		},
		Kafka:     Kafka{Topic: "bookmarket.orders"},
		Telemetry: Telemetry{ServiceName: "book-escrow"},
	}
}

// Load resolves configuration: defaults -> file at path (when non-empty) -> env.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.Engine.PaymentTimeout <= 0 {
		errs = append(errs, errors.New("engine.payment_timeout must be positive"))
	}
	if c.Engine.PendingTTL <= 0 {
		errs = append(errs, errors.New("engine.pending_ttl must be positive"))
	}
	if c.Engine.SweepInterval <= 0 {
		errs = append(errs, errors.New("engine.sweep_interval must be positive"))
	}
	if c.Engine.SweepBatchSize <= 0 {
		errs = append(errs, errors.New("engine.sweep_batch_size must be positive"))
	}
	if c.Payment.Delay < 0 {
		errs = append(errs, errors.New("payment.delay must not be negative"))
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		errs = append(errs, errors.New("kafka.topic is required with brokers"))
	}
	for i, b := range c.Seed.Books {
		if b.ID == "" || b.SellerID == "" {
			errs = append(errs, fmt.Errorf("seed.books[%d]: id and seller_id are required", i))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// Seed lists users and listings loaded at startup; the marketplace has no
// user registration of its own.
type Seed struct {
	Users []SeedUser `yaml:"users"`
	Books []SeedBook `yaml:"books"`
}

type SeedUser struct {
	ID         string `yaml:"id"`
	Email      string `yaml:"email"`
	Name       string `yaml:"name"`
	City       string `yaml:"city"`
	IsBusiness bool   `yaml:"is_business"`
	IsVerified bool   `yaml:"is_verified"`
}

type SeedBook struct {
	ID             string `yaml:"id"`
	SellerID       string `yaml:"seller_id"`
	Title          string `yaml:"title"`
	Author         string `yaml:"author"`
	Description    string `yaml:"description"`
	Condition      string `yaml:"condition"`
	Price          int64  `yaml:"price"`
	IsDonation     bool   `yaml:"is_donation"`
	DeliveryOption string `yaml:"delivery_option"`
	PaymentMethod  string `yaml:"payment_method"`
	City           string `yaml:"city"`
	Category       string `yaml:"category"`
}

func (s Seed) DomainUsers(now time.Time) []domain.User {
	out := make([]domain.User, 0, len(s.Users))
	for _, u := range s.Users {
		out = append(out, domain.User{
			ID:         u.ID,
			Email:      u.Email,
			Name:       u.Name,
			City:       u.City,
			IsBusiness: u.IsBusiness,
			IsVerified: u.IsVerified,
			CreatedAt:  now,
		})
	}
	return out
}

// DomainBooks converts seed listings, accepting condition aliases and
// defaulting delivery to post and payment to card.
func (s Seed) DomainBooks(now time.Time) ([]domain.Book, error) {
	out := make([]domain.Book, 0, len(s.Books))
	for _, b := range s.Books {
		cond, ok := domain.ParseCondition(b.Condition)
		if !ok {
			return nil, fmt.Errorf("config: seed book %s: unknown condition %q", b.ID, b.Condition)
		}
		book := domain.Book{
			ID:             b.ID,
			Title:          b.Title,
			Author:         b.Author,
			Description:    b.Description,
			Condition:      cond,
			Price:          b.Price,
			IsDonation:     b.IsDonation,
			DeliveryOption: domain.DeliveryOption(b.DeliveryOption),
			PaymentMethod:  domain.PaymentMethod(b.PaymentMethod),
			City:           b.City,
			SellerID:       b.SellerID,
			Category:       b.Category,
			CreatedAt:      now,
		}
		if book.DeliveryOption == "" {
			book.DeliveryOption = domain.DeliveryPost
		}
		if book.PaymentMethod == "" {
			book.PaymentMethod = domain.PaymentCard
		}
		if !book.DeliveryOption.Valid() || !book.PaymentMethod.Valid() {
			return nil, fmt.Errorf("config: seed book %s: invalid delivery or payment option", b.ID)
		}
		out = append(out, book)
	}
	return out, nil
}
