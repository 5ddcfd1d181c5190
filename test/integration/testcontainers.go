package integration

import (
	"context"
	"database/sql"
	"encoding/base64"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/doodlesbykumbi/identity-in-go/pkg/provisioning"
	"github.com/doodlesbykumbi/identity-in-go/pkg/server"
	"github.com/doodlesbykumbi/identity-in-go/pkg/server/endpoints"
	"github.com/doodlesbykumbi/identity-in-go/pkg/slosilo"
	gormstore "github.com/doodlesbykumbi/identity-in-go/pkg/store/gorm"
	"github.com/doodlesbykumbi/identity-in-go/pkg/store/mirror"
)

const mirrorDatabase = "identity_mirror"

// TestContext holds all the resources needed for integration tests
type TestContext struct {
	DB            *gorm.DB
	RawDB         *sql.DB
	MirrorDB      *sql.DB
	Container     testcontainers.Container
	ServerURL     string
	DatabaseURL   string
	MirrorURL     string
	DataKey       []byte
	Cipher        slosilo.SymmetricCipher
	HTTPClient    *http.Client
	Cancel        context.CancelFunc
	ServerProcess *exec.Cmd
	InlineServer  *server.Server
}

// NewTestContext starts PostgreSQL in a container, migrates the primary and
// mirror databases, and starts an identity server against them.
// Modes:
//   - Binary mode (default): Set IDENTITY_BINARY to the path of the identityctl binary
//   - Inline mode: Set IDENTITY_INLINE=1 to run the server in-process (no binary needed)
func NewTestContext(ctx context.Context) (*TestContext, error) {
	projectRoot, err := findProjectRoot()
	if err != nil {
		return nil, fmt.Errorf("failed to find project root: %w", err)
	}
	migrationsDir := filepath.Join(projectRoot, "db", "migrations")

	inlineMode := os.Getenv("IDENTITY_INLINE") == "1"
	binaryPath := os.Getenv("IDENTITY_BINARY")

	if !inlineMode && binaryPath == "" {
		return nil, fmt.Errorf("Either IDENTITY_BINARY or IDENTITY_INLINE=1 is required.\n\nBinary mode:\n  go build -o identityctl ./cmd/identityctl\n  INTEGRATION_TEST=1 IDENTITY_BINARY=$(pwd)/identityctl go test -v ./test/integration/...\n\nInline mode:\n  INTEGRATION_TEST=1 IDENTITY_INLINE=1 go test -v ./test/integration/...")
	}

	if !inlineMode {
		if _, err := os.Stat(binaryPath); err != nil {
			return nil, fmt.Errorf("IDENTITY_BINARY path does not exist: %s", binaryPath)
		}
		log.Printf("Using binary: %s", binaryPath)
	} else {
		log.Println("Using inline server mode")
	}

	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("identity_test"),
		tcpostgres.WithUsername("identity"),
		tcpostgres.WithPassword("identity"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	tc := &TestContext{Container: pgContainer, HTTPClient: &http.Client{Timeout: 30 * time.Second}}
	if err := tc.setup(ctx, migrationsDir, inlineMode, binaryPath); err != nil {
		tc.Close(ctx)
		return nil, err
	}
	return tc, nil
}

func (tc *TestContext) setup(ctx context.Context, migrationsDir string, inlineMode bool, binaryPath string) error {
	host, err := tc.Container.Host(ctx)
	if err != nil {
		return fmt.Errorf("failed to get container host: %w", err)
	}
	port, err := tc.Container.MappedPort(ctx, "5432")
	if err != nil {
		return fmt.Errorf("failed to get container port: %w", err)
	}
	tc.DatabaseURL = fmt.Sprintf("postgres://identity:identity@%s:%s/identity_test?sslmode=disable", host, port.Port())
	tc.MirrorURL = fmt.Sprintf("postgres://identity:identity@%s:%s/%s?sslmode=disable", host, port.Port(), mirrorDatabase)

	tc.DB, err = gorm.Open(gormpostgres.New(gormpostgres.Config{
		DSN:                  tc.DatabaseURL,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	tc.RawDB, err = tc.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get raw db: %w", err)
	}

	// The mirror lives in its own database
	if _, err := tc.RawDB.Exec("CREATE DATABASE " + mirrorDatabase); err != nil {
		return fmt.Errorf("failed to create mirror database: %w", err)
	}
	tc.MirrorDB, err = sql.Open("postgres", tc.MirrorURL)
	if err != nil {
		return fmt.Errorf("failed to connect to mirror database: %w", err)
	}

	if err := runMigrations(tc.RawDB, filepath.Join(migrationsDir, "primary")); err != nil {
		return fmt.Errorf("failed to migrate primary database: %w", err)
	}
	if err := runMigrations(tc.MirrorDB, filepath.Join(migrationsDir, "mirror")); err != nil {
		return fmt.Errorf("failed to migrate mirror database: %w", err)
	}

	tc.DataKey, err = slosilo.RandomBytes(32)
	if err != nil {
		return err
	}
	tc.Cipher, err = slosilo.NewSymmetric(tc.DataKey)
	if err != nil {
		return fmt.Errorf("failed to create cipher: %w", err)
	}

	serverPort := "18080"
	tc.ServerURL = fmt.Sprintf("http://127.0.0.1:%s", serverPort)

	if inlineMode {
		tc.InlineServer, tc.Cancel, err = startInlineServer(tc.DB, tc.MirrorDB, tc.Cipher, serverPort)
	} else {
		tc.ServerProcess, tc.Cancel, err = startBinary(binaryPath, tc.DatabaseURL, tc.MirrorURL, tc.DataKey, serverPort)
	}
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	if err := waitForServer(tc.ServerURL, 30*time.Second); err != nil {
		return fmt.Errorf("server failed to become ready: %w", err)
	}
	return nil
}

// NewStores builds the postgres-backed provisioning stores over the test databases
func (tc *TestContext) NewStores() (provisioning.Stores, error) {
	keys, err := gormstore.NewSigningKeyStore(tc.DB, tc.Cipher)
	if err != nil {
		return provisioning.Stores{}, err
	}
	return provisioning.Stores{
		SigningKeys:       keys,
		Security:          gormstore.NewTenantSecurityStore(tc.DB),
		PermittableGroups: gormstore.NewPermittableGroupStore(tc.DB),
		Mirror:            mirror.NewStoreWithDB(tc.MirrorDB),
		Roles:             gormstore.NewRoleStore(tc.DB),
		Users:             gormstore.NewUserStore(tc.DB),
	}, nil
}

// startInlineServer starts the server in-process (no binary needed)
func startInlineServer(db *gorm.DB, mirrorDB *sql.DB, cipher slosilo.SymmetricCipher, port string) (*server.Server, context.CancelFunc, error) {
	tc := &TestContext{DB: db, MirrorDB: mirrorDB, Cipher: cipher}
	stores, err := tc.NewStores()
	if err != nil {
		return nil, nil, err
	}

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	registry := prometheus.NewRegistry()
	p, err := provisioning.NewProvisioner(stores,
		provisioning.WithLogger(logger),
		provisioning.WithMetrics(provisioning.NewMetrics(registry)),
	)
	if err != nil {
		return nil, nil, err
	}

	s := server.NewServer(p, stores.SigningKeys, gormstore.NewHealthStore(db), registry, "127.0.0.1", port)
	endpoints.RegisterAll(s)

	listener, err := net.Listen("tcp", "127.0.0.1:"+port)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create listener on port %s: %w", port, err)
	}
	go func() {
		_ = s.StartWithListener(listener)
	}()

	cancel := func() {
		ctx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		_ = s.Shutdown(ctx)
	}
	return s, cancel, nil
}

// startBinary starts the identityctl server binary
func startBinary(binaryPath, dbURL, mirrorURL string, dataKey []byte, port string) (*exec.Cmd, context.CancelFunc, error) {
	ctx, cancel := context.WithCancel(context.Background())

	// Use --no-migrate since we already ran migrations in the test setup
	cmd := exec.CommandContext(ctx, binaryPath, "server", "--no-migrate", "-b", "127.0.0.1", "-p", port)
	cmd.Env = append(os.Environ(),
		"DATABASE_URL="+dbURL,
		"MIRROR_DATABASE_URL="+mirrorURL,
		"IDENTITY_DATA_KEY="+base64.StdEncoding.EncodeToString(dataKey),
		"IDENTITY_AUDIT_ENABLED=false",
	)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, nil, fmt.Errorf("failed to start binary: %w", err)
	}

	return cmd, cancel, nil
}

// waitForServer polls the server until it responds or times out
func waitForServer(serverURL string, timeout time.Duration) error {
	client := &http.Client{Timeout: 2 * time.Second}
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		resp, err := client.Get(serverURL + "/")
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(100 * time.Millisecond)
	}

	return fmt.Errorf("server did not become ready within %v", timeout)
}

// Close cleans up all test resources
func (tc *TestContext) Close(ctx context.Context) {
	if tc.Cancel != nil {
		tc.Cancel()
	}
	if tc.ServerProcess != nil && tc.ServerProcess.Process != nil {
		_ = tc.ServerProcess.Process.Kill()
		_ = tc.ServerProcess.Wait()
	}
	if tc.MirrorDB != nil {
		_ = tc.MirrorDB.Close()
	}
	if tc.RawDB != nil {
		_ = tc.RawDB.Close()
	}
	if tc.Container != nil {
		_ = tc.Container.Terminate(ctx)
	}
}

// findProjectRoot locates the project root directory
func findProjectRoot() (string, error) {
	paths := []string{
		"../..",
		"..",
		".",
	}

	for _, p := range paths {
		goMod := filepath.Join(p, "go.mod")
		if _, err := os.Stat(goMod); err == nil {
			return filepath.Abs(p)
		}
	}

	return "", fmt.Errorf("project root not found (looking for go.mod)")
}

// runMigrations executes the up migrations of a directory in version order
func runMigrations(db *sql.DB, migrationsDir string) error {
	files, err := filepath.Glob(filepath.Join(migrationsDir, "*.up.sql"))
	if err != nil {
		return err
	}
	sort.Strings(files)

	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", file, err)
		}

		if _, err := db.Exec(string(content)); err != nil {
			return fmt.Errorf("migration %s: %w", strings.TrimSuffix(filepath.Base(file), ".up.sql"), err)
		}
	}

	return nil
}
