package registry

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	appsheet "github.com/shibukawa/appsheet"
	"github.com/shibukawa/appsheet/client"
	"github.com/shibukawa/appsheet/mock"
)

// Backend selects which client implementation a manager constructs.
type Backend int

const (
	// BackendHTTP talks to the hosted API.
	BackendHTTP Backend = iota
	// BackendMock uses the in-memory store.
	BackendMock
)

// Options configures manager construction.
type Options struct {
	Backend Backend
	// DataProvider seeds mock connections; ignored for BackendHTTP.
	DataProvider mock.DataProvider
	// Logger is passed to HTTP clients; default no-op.
	Logger *zap.Logger
	// ClientOptions are appended to every HTTP client.
	ClientOptions []client.Option
	// MockOptions are appended to every mock connection.
	MockOptions []mock.Option
}

// Manager builds and owns the connection registry for a schema document.
type Manager struct {
	registry *Registry
	opts     Options
}

// NewManager validates the schema and builds one client handle per
// connection. A structurally invalid schema fails construction; no
// connections are registered.
func NewManager(schema *appsheet.SchemaConfig, opts Options) (*Manager, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	m := &Manager{registry: NewRegistry(), opts: opts}

	if err := m.Reload(schema); err != nil {
		return nil, err
	}

	return m, nil
}

// Reload replaces every registered connection from a freshly loaded
// schema. The registry is rebuilt wholesale; handles from before the
// reload keep working against their old configuration.
func (m *Manager) Reload(schema *appsheet.SchemaConfig) error {
	if result := appsheet.ValidateSchema(schema); !result.Valid {
		return result.Err()
	}

	conns := make(map[string]appsheet.Connection, len(schema.Connections))

	for name, def := range schema.Connections {
		switch m.opts.Backend {
		case BackendMock:
			mockOpts := append([]mock.Option{}, m.opts.MockOptions...)
			if m.opts.DataProvider != nil {
				mockOpts = append(mockOpts, mock.WithDataProvider(m.opts.DataProvider))
			}

			conns[name] = mock.NewConnection(def, mockOpts...)
		default:
			clientOpts := append([]client.Option{client.WithLogger(m.opts.Logger.Named(name))}, m.opts.ClientOptions...)
			conns[name] = client.NewConnection(def, clientOpts...)
		}
	}

	m.registry.ReplaceAll(conns)

	return nil
}

// Connection returns the handle registered under a connection name.
func (m *Manager) Connection(name string) (appsheet.Connection, error) {
	return m.registry.Get(name)
}

// Table resolves a connection and schema table name to a table client.
func (m *Manager) Table(connection, table string) (appsheet.TableAPI, error) {
	conn, err := m.registry.Get(connection)
	if err != nil {
		return nil, err
	}

	return conn.Table(table)
}

// Names lists registered connection names.
func (m *Manager) Names() []string {
	return m.registry.Names()
}

// HealthCheck probes every registered connection concurrently and combines
// the failures. There is no ordering guarantee between probes.
func (m *Manager) HealthCheck(ctx context.Context) error {
	names := m.registry.Names()

	var (
		mu       sync.Mutex
		combined error
		wg       sync.WaitGroup
	)

	for _, name := range names {
		conn, err := m.registry.Get(name)
		if err != nil {
			combined = multierr.Append(combined, err)
			continue
		}

		wg.Add(1)

		go func(name string, conn appsheet.Connection) {
			defer wg.Done()

			if err := conn.HealthCheck(ctx); err != nil {
				mu.Lock()
				combined = multierr.Append(combined, fmt.Errorf("connection %q: %w", name, err))
				mu.Unlock()
			}
		}(name, conn)
	}

	wg.Wait()

	return combined
}
