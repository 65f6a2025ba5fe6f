package billing

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/Abin-Raju-19/fiteness-pro/pkg/entitlement"
)

// recordDoc is the persisted shape of a subscription record. The
// collection is the platform's user collection; this store touches only
// the billing fields of each document.
type recordDoc struct {
	ID                     string    `bson:"_id"`
	Email                  string    `bson:"email,omitempty"`
	Name                   string    `bson:"name,omitempty"`
	Plan                   string    `bson:"subscription_plan,omitempty"`
	Status                 string    `bson:"subscription_status,omitempty"`
	Provider               string    `bson:"subscription_provider,omitempty"`
	ProviderSubscriptionID string    `bson:"provider_subscription_id,omitempty"`
	ProviderCustomerID     string    `bson:"provider_customer_id,omitempty"`
	UpdatedAt              time.Time `bson:"subscription_updated_at,omitempty"`
	AIPlansUsed            int64     `bson:"ai_plans_used"`
	TrainerChatsUsed       int64     `bson:"trainer_chats_used"`
}

func (d *recordDoc) toRecord() (*Record, error) {
	userID, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, errors.Join(ErrUserNotFound, err)
	}
	return &Record{
		UserID:                 userID,
		Email:                  d.Email,
		Name:                   d.Name,
		Plan:                   planFromDoc(d.Plan),
		Status:                 Status(d.Status),
		Provider:               d.Provider,
		ProviderSubscriptionID: d.ProviderSubscriptionID,
		ProviderCustomerID:     d.ProviderCustomerID,
		UpdatedAt:              d.UpdatedAt,
		AIPlansUsed:            d.AIPlansUsed,
		TrainerChatsUsed:       d.TrainerChatsUsed,
	}, nil
}

func planFromDoc(s string) entitlement.PlanCode {
	if s == "" {
		return entitlement.PlanFree
	}
	return entitlement.PlanCode(s)
}

// MongoStore implements Store over a MongoDB user collection.
type MongoStore struct {
	coll *mongo.Collection
}

// NewMongoStore wraps the given collection. Callers are expected to
// have a unique index on provider_customer_id (sparse) in place.
func NewMongoStore(coll *mongo.Collection) *MongoStore {
	return &MongoStore{coll: coll}
}

func (s *MongoStore) Get(ctx context.Context, userID uuid.UUID) (*Record, error) {
	var doc recordDoc
	err := s.coll.FindOne(ctx, bson.M{"_id": userID.String()}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc.toRecord()
}

func (s *MongoStore) FindByCustomerID(ctx context.Context, customerID string) (*Record, error) {
	var doc recordDoc
	err := s.coll.FindOne(ctx, bson.M{"provider_customer_id": customerID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc.toRecord()
}

// Save applies the record only when no newer write exists: the filter
// matches documents whose subscription_updated_at is absent or not
// after the incoming one. When a newer write is present the filter
// matches nothing and the upsert collides with the _id index; that
// duplicate-key error is the stale-writer signal and is swallowed
// (last-write-wins).
func (s *MongoStore) Save(ctx context.Context, rec *Record) error {
	filter := bson.M{
		"_id": rec.UserID.String(),
		"$or": bson.A{
			bson.M{"subscription_updated_at": bson.M{"$exists": false}},
			bson.M{"subscription_updated_at": bson.M{"$lte": rec.UpdatedAt}},
		},
	}
	update := bson.M{"$set": bson.M{
		"subscription_plan":        string(rec.Plan),
		"subscription_status":      string(rec.Status),
		"subscription_provider":    rec.Provider,
		"provider_subscription_id": rec.ProviderSubscriptionID,
		"subscription_updated_at":  rec.UpdatedAt,
	}}

	_, err := s.coll.UpdateOne(ctx, filter, update, options.UpdateOne().SetUpsert(true))
	if mongo.IsDuplicateKeyError(err) {
		return nil
	}
	return err
}

// SetCustomerID writes the remote customer reference only when none is
// set. A concurrent writer that lost the race leaves the stored value
// untouched, keeping the reference immutable once assigned.
func (s *MongoStore) SetCustomerID(ctx context.Context, userID uuid.UUID, customerID string) error {
	filter := bson.M{
		"_id": userID.String(),
		"$or": bson.A{
			bson.M{"provider_customer_id": bson.M{"$exists": false}},
			bson.M{"provider_customer_id": ""},
		},
	}
	_, err := s.coll.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"provider_customer_id": customerID}})
	return err
}

func (s *MongoStore) IncrementUsage(ctx context.Context, userID uuid.UUID, feature Feature) error {
	field, ok := usageField(feature)
	if !ok {
		return errors.New("billing: unknown usage feature")
	}
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": userID.String()}, bson.M{"$inc": bson.M{field: 1}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *MongoStore) ResetUsage(ctx context.Context, userID uuid.UUID) error {
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": userID.String()}, bson.M{"$set": bson.M{
		"ai_plans_used":           int64(0),
		"trainer_chats_used":      int64(0),
		"subscription_updated_at": time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

func usageField(f Feature) (string, bool) {
	switch f {
	case FeatureAIPlans:
		return "ai_plans_used", true
	case FeatureTrainerChats:
		return "trainer_chats_used", true
	default:
		return "", false
	}
}
