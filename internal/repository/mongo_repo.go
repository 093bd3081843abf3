package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/timmy/memegen/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoMemeStore stores meme records as documents in a MongoDB collection.
// Documents keep _id as an ObjectID; the record id is its hex form.
type MongoMemeStore struct {
	client *mongo.Client
	col    *mongo.Collection
	now    func() time.Time
}

// memeDocument is the stored shape of a meme.
type memeDocument struct {
	ID        primitive.ObjectID `bson:"_id"`
	ImageURL  string             `bson:"imageUrl"`
	Captions  []string           `bson:"captions"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

func (d *memeDocument) toDomain() *domain.Meme {
	captions := domain.StringArray(d.Captions)
	if captions == nil {
		captions = domain.StringArray{}
	}
	return &domain.Meme{
		ID:        d.ID.Hex(),
		ImageURL:  d.ImageURL,
		Captions:  captions,
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}
}

// idFilter matches a document by the hex form of its ObjectID.
// Ids that are not valid ObjectIDs cannot exist in the collection.
func idFilter(id string) (bson.M, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrNotFound
	}
	return bson.M{"_id": oid}, nil
}

// NewMongoMemeStore creates the store and ensures the createdAt index exists.
func NewMongoMemeStore(ctx context.Context, client *mongo.Client, col *mongo.Collection) (*MongoMemeStore, error) {
	idx := mongo.IndexModel{Keys: bson.D{{Key: "createdAt", Value: -1}}}
	if _, err := col.Indexes().CreateOne(ctx, idx); err != nil {
		return nil, translateMongoError(err)
	}
	return &MongoMemeStore{client: client, col: col, now: time.Now}, nil
}

// Create inserts a new meme document.
func (m *MongoMemeStore) Create(ctx context.Context, imageURL string, captions []string) (*domain.Meme, error) {
	// Mongo keeps millisecond precision; truncate so the returned record matches what is stored.
	now := m.now().UTC().Truncate(time.Millisecond)
	doc := &memeDocument{
		ID:        primitive.NewObjectID(),
		ImageURL:  imageURL,
		Captions:  append([]string(nil), captions...),
		CreatedAt: now,
		UpdatedAt: now,
	}
	meme := doc.toDomain()
	if err := meme.Validate(); err != nil {
		return nil, err
	}
	if _, err := m.col.InsertOne(ctx, doc); err != nil {
		return nil, translateMongoError(err)
	}
	return meme, nil
}

// GetByID retrieves a meme document by id.
func (m *MongoMemeStore) GetByID(ctx context.Context, id string) (*domain.Meme, error) {
	filter, err := idFilter(id)
	if err != nil {
		return nil, err
	}
	var doc memeDocument
	if err := m.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, translateMongoError(err)
	}
	return doc.toDomain(), nil
}

// List returns a page of memes sorted by createdAt descending.
func (m *MongoMemeStore) List(ctx context.Context, page, limit int) (*domain.MemePage, error) {
	page, limit = NormalizePage(page, limit)
	result := &domain.MemePage{Memes: []domain.Meme{}, Page: page, Limit: limit}

	total, err := m.col.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, translateMongoError(err)
	}
	result.Total = total
	skip, ok := pageOffset(page, limit, total)
	if !ok {
		return result, nil
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(skip).
		SetLimit(int64(limit))
	cur, err := m.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, translateMongoError(err)
	}
	var docs []memeDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, translateMongoError(err)
	}
	for i := range docs {
		result.Memes = append(result.Memes, *docs[i].toDomain())
	}
	return result, nil
}

// DeleteByID removes a meme document and returns it.
func (m *MongoMemeStore) DeleteByID(ctx context.Context, id string) (*domain.Meme, error) {
	filter, err := idFilter(id)
	if err != nil {
		return nil, err
	}
	var doc memeDocument
	if err := m.col.FindOneAndDelete(ctx, filter).Decode(&doc); err != nil {
		return nil, translateMongoError(err)
	}
	return doc.toDomain(), nil
}

// Ping checks the server connection.
func (m *MongoMemeStore) Ping(ctx context.Context) error {
	if err := m.client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistenceUnavailable, err)
	}
	return nil
}

// Close disconnects the client.
func (m *MongoMemeStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

func translateMongoError(err error) error {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return domain.ErrNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %v", domain.ErrPersistenceUnavailable, err)
	}
}
