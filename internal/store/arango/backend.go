package arango

import (
	"context"
	"encoding/json"
	"fmt"

	driver "github.com/arangodb/go-driver"
	arangohttp "github.com/arangodb/go-driver/http"

	"github.com/agenthands/reviewgraph/internal/config"
)

// backend is the slice of the ArangoDB API the store relies on.
type backend interface {
	query(ctx context.Context, aql string, bindVars map[string]interface{}) ([]json.RawMessage, error)
	importDocuments(ctx context.Context, collection string, docs interface{}) (driver.ImportDocumentStatistics, error)
	ensureCollection(ctx context.Context, name string, edge bool) error
	ensurePersistentIndex(ctx context.Context, collection string, fields []string) error
	ensureGraph(ctx context.Context, name string, defs []driver.EdgeDefinition) error
}

type dbBackend struct {
	db driver.Database
}

// openDatabase connects and creates the database when it does not exist yet.
func openDatabase(ctx context.Context, cfg config.ArangoConfig) (driver.Database, error) {
	conn, err := arangohttp.NewConnection(arangohttp.ConnectionConfig{Endpoints: []string{cfg.URL}})
	if err != nil {
		return nil, fmt.Errorf("failed to create arango connection: %w", err)
	}
	client, err := driver.NewClient(driver.ClientConfig{
		Connection:     conn,
		Authentication: driver.BasicAuthentication(cfg.User, cfg.Password),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create arango client: %w", err)
	}

	exists, err := client.DatabaseExists(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to arango at %s: %w", cfg.URL, err)
	}
	if !exists {
		return client.CreateDatabase(ctx, cfg.Database, nil)
	}
	return client.Database(ctx, cfg.Database)
}

func (b *dbBackend) query(ctx context.Context, aql string, bindVars map[string]interface{}) ([]json.RawMessage, error) {
	cursor, err := b.db.Query(ctx, aql, bindVars)
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	var out []json.RawMessage
	for {
		var doc json.RawMessage
		_, err := cursor.ReadDocument(ctx, &doc)
		if driver.IsNoMoreDocuments(err) {
			break
		}
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, nil
}

func (b *dbBackend) importDocuments(ctx context.Context, collection string, docs interface{}) (driver.ImportDocumentStatistics, error) {
	col, err := b.db.Collection(ctx, collection)
	if err != nil {
		return driver.ImportDocumentStatistics{}, err
	}
	return col.ImportDocuments(ctx, docs, &driver.ImportDocumentOptions{
		OnDuplicate: driver.ImportOnDuplicateUpdate,
	})
}

func (b *dbBackend) ensureCollection(ctx context.Context, name string, edge bool) error {
	exists, err := b.db.CollectionExists(ctx, name)
	if err != nil || exists {
		return err
	}
	opts := &driver.CreateCollectionOptions{}
	if edge {
		opts.Type = driver.CollectionTypeEdge
	}
	_, err = b.db.CreateCollection(ctx, name, opts)
	return err
}

func (b *dbBackend) ensurePersistentIndex(ctx context.Context, collection string, fields []string) error {
	col, err := b.db.Collection(ctx, collection)
	if err != nil {
		return err
	}
	_, _, err = col.EnsurePersistentIndex(ctx, fields, nil)
	return err
}

func (b *dbBackend) ensureGraph(ctx context.Context, name string, defs []driver.EdgeDefinition) error {
	exists, err := b.db.GraphExists(ctx, name)
	if err != nil || exists {
		return err
	}
	_, err = b.db.CreateGraph(ctx, name, &driver.CreateGraphOptions{EdgeDefinitions: defs})
	return err
}
