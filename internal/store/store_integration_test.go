package store

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	crmerrors "github.com/abgdnv/gocrm/internal/errors"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const skipIntegrationTests = "CRM_SKIP_INTEGRATION_TESTS"

// PgStoreSuite is a test suite for the PostgreSQL Store implementation.
type PgStoreSuite struct {
	suite.Suite
	pgContainer *postgres.PostgresContainer
	dbPool      *pgxpool.Pool
	store       Store
	logger      *slog.Logger
	ctx         context.Context
}

// SetupSuite starts a PostgreSQL container, applies the migrations and wires
// the store under test.
func (s *PgStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	var err error
	s.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	dbName := "crm_db"
	dbUser := "user"
	dbPassword := "password"

	// 1. Start a PostgreSQL container and wait until it accepts connections.
	s.pgContainer, err = postgres.Run(s.ctx,
		"postgres:17.5-alpine",
		postgres.WithDatabase(dbName),
		postgres.WithUsername(dbUser),
		postgres.WithPassword(dbPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Minute),
		),
		testcontainers.WithWaitStrategy(
			wait.ForListeningPort("5432/tcp"),
		),
	)
	require.NoError(s.T(), err, "Failed to run PostgreSQL container")

	// 2. Get the connection string from the container
	connStr, err := s.pgContainer.ConnectionString(s.ctx, "sslmode=disable")
	require.NoError(s.T(), err, "Failed to get connection string from container")

	// 3. Create a pgxpool instance and ping until the database answers.
	s.dbPool, err = pgxpool.New(s.ctx, connStr)
	require.NoError(s.T(), err, "Failed to create pgxpool")

	for i := range 10 {
		s.logger.Info("Pinging PostgreSQL database", "attempt", i+1)
		err = s.dbPool.Ping(s.ctx)
		if err == nil {
			break
		}
		time.Sleep(time.Second * 2)
	}
	require.NoError(s.T(), err, "Failed to connect to PostgreSQL after retries")

	// 4. Apply the schema migrations.
	wd, _ := os.Getwd()
	migrationsPath := filepath.Join(wd, "../../deploy/migrations/crm")
	sourceURL := "file://" + migrationsPath
	m, err := migrate.New(sourceURL, connStr)
	require.NoError(s.T(), err, "Failed to create migrate instance")
	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		_, _ = m.Close()
		require.NoError(s.T(), err, "Failed to apply migrations")
	}
	s.logger.Info("Migrations applied for integration tests")

	s.store = NewPgStore(s.dbPool)
	s.logger.Info("Initialization complete for PgStoreSuite")
}

// TearDownSuite cleans up resources after all tests in the suite have run.
func (s *PgStoreSuite) TearDownSuite() {
	s.logger.Info("Tearing down suite...")
	if s.dbPool != nil {
		s.dbPool.Close()
		s.logger.Info("DB pool closed.")
	}
	if s.pgContainer != nil {
		s.logger.Info("Terminating PostgreSQL container...")
		err := s.pgContainer.Terminate(s.ctx)
		if err != nil {
			s.logger.Warn("failed to terminate PostgreSQL container", "error", err)
		} else {
			s.logger.Info("PostgreSQL container terminated.")
		}
	}
}

// SetupTest empties all tables before each test.
func (s *PgStoreSuite) SetupTest() {
	_, err := s.dbPool.Exec(s.ctx, "TRUNCATE TABLE order_products, orders, products, customers CASCADE")
	require.NoError(s.T(), err, "Failed to truncate tables")
}

// TestPgStoreIntegration runs the PgStore integration tests.
func TestPgStoreIntegration(t *testing.T) {
	// Skip integration tests if the environment variable is set
	if os.Getenv(skipIntegrationTests) == "1" {
		t.Skip("Skipping integration tests based on " + skipIntegrationTests + " env var")
	}
	suite.Run(t, new(PgStoreSuite))
}

func (s *PgStoreSuite) createTestCustomer(name, email string) *Customer {
	s.T().Helper()
	customer, err := s.store.CreateCustomer(s.ctx, CreateCustomerParams{Name: name, Email: email})
	require.NoError(s.T(), err, "createTestCustomer helper failed to create customer")
	return customer
}

func (s *PgStoreSuite) createTestProduct(name, price string, stock int32) *Product {
	s.T().Helper()
	product, err := s.store.CreateProduct(s.ctx, CreateProductParams{
		Name:  name,
		Price: decimal.RequireFromString(price),
		Stock: stock,
	})
	require.NoError(s.T(), err, "createTestProduct helper failed to create product")
	return product
}

func (s *PgStoreSuite) TestCreateCustomer() {
	s.SetupTest()
	// given / when
	created := s.createTestCustomer("Alice", "alice@example.com")

	// then
	require.NotZero(s.T(), created.ID, "Created customer ID should not be zero")
	require.Equal(s.T(), "Alice", created.Name)
	require.Equal(s.T(), "alice@example.com", created.Email)
	require.Empty(s.T(), created.Phone, "Phone should be empty when not provided")
	require.NotZero(s.T(), created.CreatedAt, "CreatedAt should be set")

	fetched, err := s.store.CustomerByID(s.ctx, created.ID)
	require.NoError(s.T(), err)
	require.Equal(s.T(), created.ID, fetched.ID)
	require.WithinDuration(s.T(), created.CreatedAt, fetched.CreatedAt, time.Second)
}

func (s *PgStoreSuite) TestCustomerByID_NotFound() {
	s.SetupTest()
	// given (no customers created)

	// when
	_, err := s.store.CustomerByID(s.ctx, uuid.New())

	// then
	require.ErrorIs(s.T(), err, crmerrors.ErrCustomerNotFound)
}

func (s *PgStoreSuite) TestEmailExists() {
	s.SetupTest()
	// given
	s.createTestCustomer("Alice", "alice@example.com")

	// when / then
	exists, err := s.store.EmailExists(s.ctx, "alice@example.com")
	require.NoError(s.T(), err)
	assert.True(s.T(), exists)

	exists, err = s.store.EmailExists(s.ctx, "bob@example.com")
	require.NoError(s.T(), err)
	assert.False(s.T(), exists)
}

func (s *PgStoreSuite) TestCreateProduct_PriceRoundTrip() {
	s.SetupTest()
	// given / when
	created := s.createTestProduct("Widget", "19.99", 5)

	// then: NUMERIC must preserve the exact decimal value
	require.True(s.T(), created.Price.Equal(decimal.RequireFromString("19.99")),
		"expected price 19.99, got %s", created.Price)

	fetched, err := s.store.ProductByID(s.ctx, created.ID)
	require.NoError(s.T(), err)
	require.True(s.T(), fetched.Price.Equal(decimal.RequireFromString("19.99")))
	require.Equal(s.T(), int32(5), fetched.Stock)
}

func (s *PgStoreSuite) TestProductsByIDs() {
	s.SetupTest()
	// given
	p1 := s.createTestProduct("Widget", "10.00", 1)
	p2 := s.createTestProduct("Gadget", "5.00", 1)

	// when: one unknown id mixed in
	products, err := s.store.ProductsByIDs(s.ctx, []uuid.UUID{p1.ID, p2.ID, uuid.New()})

	// then
	require.NoError(s.T(), err)
	require.Len(s.T(), products, 2, "Unknown IDs should be silently absent")
}

func (s *PgStoreSuite) TestRestockLowStock() {
	s.SetupTest()
	// given
	low := s.createTestProduct("Low", "10.00", 3)
	s.createTestProduct("High", "10.00", 50)

	// when
	updated, err := s.store.RestockLowStock(s.ctx)

	// then
	require.NoError(s.T(), err)
	require.Len(s.T(), updated, 1)
	require.Equal(s.T(), low.ID, updated[0].ID)
	require.Equal(s.T(), int32(13), updated[0].Stock)

	// second run is a no-op
	updated, err = s.store.RestockLowStock(s.ctx)
	require.NoError(s.T(), err)
	require.Empty(s.T(), updated)
}

func (s *PgStoreSuite) TestCreateOrder() {
	s.SetupTest()
	// given
	customer := s.createTestCustomer("Alice", "alice@example.com")
	p1 := s.createTestProduct("Widget", "10.00", 1)
	p2 := s.createTestProduct("Gadget", "5.00", 1)
	orderDate := time.Now().UTC().Truncate(time.Second)

	// when
	created, err := s.store.CreateOrder(s.ctx, CreateOrderParams{
		CustomerID:  customer.ID,
		ProductIDs:  []uuid.UUID{p1.ID, p2.ID},
		OrderDate:   orderDate,
		TotalAmount: decimal.RequireFromString("15.00"),
	})

	// then
	require.NoError(s.T(), err, "CreateOrder should not return an error")
	require.NotZero(s.T(), created.ID)
	require.True(s.T(), created.TotalAmount.Equal(decimal.RequireFromString("15.00")))

	fetched, err := s.store.OrderByID(s.ctx, created.ID)
	require.NoError(s.T(), err)
	require.Equal(s.T(), created.ID, fetched.ID)
	require.Equal(s.T(), customer.ID, fetched.CustomerID)
	require.ElementsMatch(s.T(), []uuid.UUID{p1.ID, p2.ID}, fetched.ProductIDs)
	require.WithinDuration(s.T(), orderDate, fetched.OrderDate, time.Second)
}

func (s *PgStoreSuite) TestCreateOrder_UnknownProductRollsBack() {
	s.SetupTest()
	// given
	customer := s.createTestCustomer("Alice", "alice@example.com")
	p1 := s.createTestProduct("Widget", "10.00", 1)

	// when: the second association violates the FK, the whole insert must roll back
	_, err := s.store.CreateOrder(s.ctx, CreateOrderParams{
		CustomerID:  customer.ID,
		ProductIDs:  []uuid.UUID{p1.ID, uuid.New()},
		OrderDate:   time.Now(),
		TotalAmount: decimal.RequireFromString("10.00"),
	})

	// then
	require.ErrorIs(s.T(), err, crmerrors.ErrCreateOrder)
	orders, listErr := s.store.OrdersSince(s.ctx, time.Time{})
	require.NoError(s.T(), listErr)
	require.Empty(s.T(), orders, "No order row should survive the rollback")
}

func (s *PgStoreSuite) TestOrdersSince() {
	s.SetupTest()
	// given
	customer := s.createTestCustomer("Alice", "alice@example.com")
	p1 := s.createTestProduct("Widget", "10.00", 1)
	now := time.Now().UTC().Truncate(time.Second)
	boundary := now.Add(-7 * 24 * time.Hour)
	for _, orderDate := range []time.Time{boundary, boundary.Add(-time.Second)} {
		_, err := s.store.CreateOrder(s.ctx, CreateOrderParams{
			CustomerID:  customer.ID,
			ProductIDs:  []uuid.UUID{p1.ID},
			OrderDate:   orderDate,
			TotalAmount: decimal.RequireFromString("10.00"),
		})
		require.NoError(s.T(), err)
	}

	// when
	summaries, err := s.store.OrdersSince(s.ctx, boundary)

	// then: the cutoff is inclusive
	require.NoError(s.T(), err)
	require.Len(s.T(), summaries, 1)
	assert.Equal(s.T(), "Alice", summaries[0].CustomerName)
	assert.Equal(s.T(), "alice@example.com", summaries[0].CustomerEmail)
}

func (s *PgStoreSuite) TestWithinTx_RollsBackOnError() {
	s.SetupTest()
	// given
	sentinel := errors.New("abort")

	// when: the callback writes then fails
	err := s.store.WithinTx(s.ctx, func(tx Store) error {
		if _, err := tx.CreateCustomer(s.ctx, CreateCustomerParams{Name: "Alice", Email: "alice@example.com"}); err != nil {
			return err
		}
		return sentinel
	})

	// then: the write must not be visible outside the transaction
	require.ErrorIs(s.T(), err, sentinel)
	exists, checkErr := s.store.EmailExists(s.ctx, "alice@example.com")
	require.NoError(s.T(), checkErr)
	assert.False(s.T(), exists, "Rolled-back write must not be visible")
}
