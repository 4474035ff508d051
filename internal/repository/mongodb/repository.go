package mongodb

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rafidhia/implantstock/internal/domain/models"
	"github.com/rafidhia/implantstock/internal/repository"
)

const (
	historyCollection = "stock_history"
	kpiCollection     = "kpi_snapshots"
)

// Repository implements the audit log on MongoDB and additionally stores the
// daily KPI snapshots written by the scheduler.
type Repository struct {
	client *mongo.Client
	dbName string
}

var _ repository.AuditLog = (*Repository)(nil)

// auditDoc is the stored shape of one raw history entry. The timestamp and
// change list stay strings on purpose: the log is the flat unstructured form,
// reconstruction happens on read.
type auditDoc struct {
	Timestamp string `bson:"ts"`
	Action    string `bson:"action"`
	RowID     int64  `bson:"row_id"`
	Actor     string `bson:"actor,omitempty"`
	Changes   string `bson:"changes"`
}

// NewRepository connects and pings the target MongoDB deployment.
func NewRepository(ctx context.Context, uri string, dbName string) (*Repository, error) {
	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &Repository{client: client, dbName: dbName}, nil
}

// Append records one committed mutation. The change list is serialized to a
// JSON string so the stored form matches what the aggregator's parse ladder
// expects.
func (r *Repository) Append(ctx context.Context, record models.HistoryRecord) error {
	changes, err := json.Marshal(record.Changes)
	if err != nil {
		return fmt.Errorf("encode change list: %w", err)
	}

	doc := auditDoc{
		Timestamp: record.Timestamp.UTC().Format(time.RFC3339),
		Action:    string(record.Action),
		RowID:     record.RowID,
		Actor:     record.Actor,
		Changes:   string(changes),
	}

	collection := r.client.Database(r.dbName).Collection(historyCollection)
	if _, err := collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to insert history entry: %w", err)
	}
	return nil
}

// Query returns raw history entries, optionally narrowed by row and action.
func (r *Repository) Query(ctx context.Context, filter repository.AuditQuery) ([]models.RawHistoryEntry, error) {
	query := bson.M{}
	if filter.RowID != 0 {
		query["row_id"] = filter.RowID
	}
	if filter.Action != "" {
		query["action"] = filter.Action
	}

	collection := r.client.Database(r.dbName).Collection(historyCollection)
	cursor, err := collection.Find(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []auditDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode history entries: %w", err)
	}

	entries := make([]models.RawHistoryEntry, 0, len(docs))
	for _, doc := range docs {
		entries = append(entries, models.RawHistoryEntry{
			Timestamp: doc.Timestamp,
			Action:    doc.Action,
			RowID:     doc.RowID,
			Actor:     doc.Actor,
			Changes:   doc.Changes,
		})
	}
	return entries, nil
}

// SaveKPISnapshot stores the daily ledger summary.
func (r *Repository) SaveKPISnapshot(ctx context.Context, snapshot models.KPISnapshot) error {
	collection := r.client.Database(r.dbName).Collection(kpiCollection)
	if _, err := collection.InsertOne(ctx, snapshot); err != nil {
		return fmt.Errorf("failed to insert kpi snapshot: %w", err)
	}
	return nil
}

// Close closes the MongoDB connection.
func (r *Repository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}
