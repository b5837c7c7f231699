package dbclient

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"marketnav/internal/domain"
	"marketnav/internal/etl"
)

// rowField keeps the insertion order of mirrored rows.
const rowField = "_row"

// mongoConnector implements Connector for MongoDB. A table maps to a
// collection of flat documents.
type mongoConnector struct {
	client *mongo.Client
	dbName string
}

func newMongoConnector(conn *domain.DatabaseConnection, password string) (*mongoConnector, error) {
	uri := buildMongoURI(conn, password)
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	return &mongoConnector{client: client, dbName: mongoDatabaseName(conn, uri)}, nil
}

// buildMongoURI accepts either a full connection string in Host or a plain
// hostname.
func buildMongoURI(conn *domain.DatabaseConnection, password string) string {
	if strings.HasPrefix(conn.Host, "mongodb+srv://") || strings.HasPrefix(conn.Host, "mongodb://") {
		uri := conn.Host
		// Atlas connection strings ship with a password placeholder.
		if password != "" {
			uri = strings.ReplaceAll(uri, "<password>", password)
			uri = strings.ReplaceAll(uri, "<db_password>", password)
		}
		return uri
	}

	port := conn.Port
	if port == 0 {
		port = 27017
	}
	if conn.Username != "" {
		return fmt.Sprintf("mongodb://%s:%s@%s:%d", conn.Username, password, conn.Host, port)
	}
	return fmt.Sprintf("mongodb://%s:%d", conn.Host, port)
}

// mongoDatabaseName prefers the configured database, then the URI path.
func mongoDatabaseName(conn *domain.DatabaseConnection, uri string) string {
	if conn.Database != "" {
		return conn.Database
	}
	rest := uri
	for _, prefix := range []string{"mongodb+srv://", "mongodb://"} {
		rest = strings.TrimPrefix(rest, prefix)
	}
	if at := strings.Index(rest, "@"); at != -1 {
		rest = rest[at+1:]
	}
	if slash := strings.Index(rest, "/"); slash != -1 {
		path := rest[slash+1:]
		if q := strings.Index(path, "?"); q != -1 {
			path = path[:q]
		}
		if path != "" {
			return path
		}
	}
	return "test"
}

func (m *mongoConnector) TestConnection(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return m.client.Ping(ctx, nil)
}

func (m *mongoConnector) ReplaceTable(ctx context.Context, name string, t *etl.Table) (int, error) {
	coll := m.client.Database(m.dbName).Collection(name)
	if err := coll.Drop(ctx); err != nil {
		return 0, fmt.Errorf("drop collection: %w", err)
	}
	if t.Len() == 0 {
		return 0, nil
	}

	res, err := coll.InsertMany(ctx, mirrorDocuments(t))
	if err != nil {
		return 0, fmt.Errorf("insert documents: %w", err)
	}
	return len(res.InsertedIDs), nil
}

// mirrorDocuments turns each row into a flat document. The leading _row
// field records the row's position, since collections have no order.
func mirrorDocuments(t *etl.Table) []any {
	docs := make([]any, 0, t.Len())
	for i, rec := range t.Records {
		doc := make(bson.D, 0, len(t.Schema.Fields)+1)
		doc = append(doc, bson.E{Key: rowField, Value: int64(i)})
		for _, f := range t.Schema.Fields {
			doc = append(doc, bson.E{Key: f.Name, Value: columnValue(f, rec.Data[f.Name])})
		}
		docs = append(docs, doc)
	}
	return docs
}

func (m *mongoConnector) CountRows(ctx context.Context, name string) (int64, error) {
	n, err := m.client.Database(m.dbName).Collection(name).CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return n, nil
}

// Columns samples the first document of the collection.
func (m *mongoConnector) Columns(ctx context.Context, name string) ([]ColumnInfo, error) {
	coll := m.client.Database(m.dbName).Collection(name)
	var doc bson.D
	err := coll.FindOne(ctx, bson.D{}, options.FindOne().SetSort(bson.D{{Key: rowField, Value: 1}})).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sample document: %w", err)
	}

	var cols []ColumnInfo
	for _, elem := range doc {
		if elem.Key == "_id" || elem.Key == rowField {
			continue
		}
		cols = append(cols, ColumnInfo{Name: elem.Key, Type: bsonTypeName(elem.Value)})
	}
	return cols, nil
}

func bsonTypeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case float64:
		return "double"
	case int32, int64:
		return "long"
	case string:
		return "string"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func (m *mongoConnector) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}
