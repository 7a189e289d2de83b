package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ayush/expense-tracker/backend/internal/models"
)

// MongoExpenseStore handles expense document CRUD in MongoDB.
type MongoExpenseStore struct {
	col *mongo.Collection
}

func NewMongoExpenseStore(db *mongo.Database) *MongoExpenseStore {
	return &MongoExpenseStore{col: db.Collection("expenses")}
}

// EnsureIndexes creates the owner/date index used by ListByUser.
func (s *MongoExpenseStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user", Value: 1}, {Key: "date", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("mongo expenses index: %w", err)
	}
	return nil
}

// Insert stores e and fills in its generated id.
func (s *MongoExpenseStore) Insert(ctx context.Context, e *models.Expense) error {
	res, err := s.col.InsertOne(ctx, e)
	if err != nil {
		return fmt.Errorf("mongo insert expense: %w", err)
	}
	e.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

// ListByUser returns the user's expenses, newest first.
func (s *MongoExpenseStore) ListByUser(ctx context.Context, userID string) ([]models.Expense, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}})
	cur, err := s.col.Find(ctx, bson.M{"user": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo find expenses: %w", err)
	}
	defer cur.Close(ctx)

	docs := []models.Expense{}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongo decode expenses: %w", err)
	}
	return docs, nil
}

func (s *MongoExpenseStore) GetByID(ctx context.Context, id string) (*models.Expense, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	var e models.Expense
	if err := s.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&e); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("mongo find expense: %w", err)
	}
	return &e, nil
}

// Update applies the non-nil fields of patch and returns the updated document.
func (s *MongoExpenseStore) Update(ctx context.Context, id string, patch models.UpdateExpenseRequest) (*models.Expense, error) {
	set := bson.M{}
	if patch.Title != nil {
		set["title"] = *patch.Title
	}
	if patch.Amount != nil {
		set["amount"] = *patch.Amount
	}
	if patch.Category != nil {
		set["category"] = *patch.Category
	}
	if len(set) == 0 {
		return s.GetByID(ctx, id)
	}
	return s.findAndSet(ctx, id, set)
}

// SetReceiptKey records the object key of the expense's receipt file.
func (s *MongoExpenseStore) SetReceiptKey(ctx context.Context, id, key string) (*models.Expense, error) {
	return s.findAndSet(ctx, id, bson.M{"receipt_key": key})
}

func (s *MongoExpenseStore) findAndSet(ctx context.Context, id string, set bson.M) (*models.Expense, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var e models.Expense
	err = s.col.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts).Decode(&e)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("mongo update expense: %w", err)
	}
	return &e, nil
}

func (s *MongoExpenseStore) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	res, err := s.col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("mongo delete expense: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// MongoUserStore keeps registered users in MongoDB.
type MongoUserStore struct {
	col *mongo.Collection
}

func NewMongoUserStore(db *mongo.Database) *MongoUserStore {
	return &MongoUserStore{col: db.Collection("users")}
}

// EnsureIndexes creates the unique email index.
func (s *MongoUserStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("mongo users index: %w", err)
	}
	return nil
}

// CreateUser inserts u, assigning a fresh ObjectID hex as its id.
func (s *MongoUserStore) CreateUser(ctx context.Context, u *models.User) error {
	if u.ID == "" {
		u.ID = primitive.NewObjectID().Hex()
	}
	if _, err := s.col.InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("mongo insert user: %w", err)
	}
	return nil
}

func (s *MongoUserStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"email": email})
}

func (s *MongoUserStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *MongoUserStore) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var u models.User
	if err := s.col.FindOne(ctx, filter).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("mongo find user: %w", err)
	}
	return &u, nil
}
