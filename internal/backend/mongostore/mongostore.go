// Package mongostore implements service.Store on MongoDB. Each user's tasks
// live in their own collection, users.<uid>.tasks, and subscriptions follow
// that collection's change stream. Change streams need a replica set.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"remindo/internal/backend/feed"
	"remindo/internal/logging"
	"remindo/internal/service"
)

// DefaultTimeout bounds each round trip.
const DefaultTimeout = 5 * time.Second

// taskDoc is the stored document shape.
type taskDoc struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	Text       string             `bson:"text"`
	ReminderAt *time.Time         `bson:"reminder_at,omitempty"`
	CreatedAt  time.Time          `bson:"created_at"`
}

func (d taskDoc) task() service.Task {
	t := service.Task{ID: d.ID.Hex(), Text: d.Text, CreatedAt: d.CreatedAt}
	if d.ReminderAt != nil {
		at := d.ReminderAt.Local()
		t.ReminderAt = &at
	}
	return t
}

// Store is a MongoDB-backed task store.
type Store struct {
	client  *mongo.Client
	db      *mongo.Database
	timeout time.Duration
	log     zerolog.Logger
}

// Open connects to uri and selects database.
func Open(ctx context.Context, uri, database string, timeout time.Duration) (*Store, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to reach mongo: %w", err)
	}

	return &Store{
		client:  client,
		db:      client.Database(database),
		timeout: timeout,
		log:     logging.For("mongostore"),
	}, nil
}

// CollectionName returns the collection holding a user's tasks.
func CollectionName(userID string) string {
	return "users." + userID + ".tasks"
}

func (s *Store) tasks(userID string) *mongo.Collection {
	return s.db.Collection(CollectionName(userID))
}

// Close implements service.Store.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Add implements service.Store.
func (s *Store) Add(ctx context.Context, userID string, p service.Patch) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var t service.Task
	p.Apply(&t)
	doc := taskDoc{
		ID:         primitive.NewObjectID(),
		Text:       t.Text,
		ReminderAt: t.ReminderAt,
		CreatedAt:  time.Now().UTC(),
	}
	if _, err := s.tasks(userID).InsertOne(ctx, doc); err != nil {
		return "", err
	}
	return doc.ID.Hex(), nil
}

// updateDoc renders p as a MongoDB update document.
func updateDoc(p service.Patch) bson.M {
	set := bson.M{}
	unset := bson.M{}
	if p.Text != nil {
		set["text"] = *p.Text
	}
	if p.SetReminder {
		if p.Reminder == nil {
			unset["reminder_at"] = ""
		} else {
			set["reminder_at"] = p.Reminder.UTC()
		}
	}

	update := bson.M{}
	if len(set) > 0 {
		update["$set"] = set
	}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	return update
}

// Update implements service.Store.
func (s *Store) Update(ctx context.Context, userID, taskID string, p service.Patch) error {
	oid, err := primitive.ObjectIDFromHex(taskID)
	if err != nil {
		return service.ErrNotFound
	}
	update := updateDoc(p)
	if len(update) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.tasks(userID).UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return service.ErrNotFound
	}
	return nil
}

// Delete implements service.Store.
func (s *Store) Delete(ctx context.Context, userID, taskID string) error {
	oid, err := primitive.ObjectIDFromHex(taskID)
	if err != nil {
		return service.ErrNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.tasks(userID).DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return service.ErrNotFound
	}
	return nil
}

// Subscribe implements service.Store.
func (s *Store) Subscribe(ctx context.Context, userID string) (service.Subscription, error) {
	coll := s.tasks(userID)
	stream, err := coll.Watch(ctx, mongo.Pipeline{})
	if err != nil {
		return nil, fmt.Errorf("failed to open change stream: %w", err)
	}

	subCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	f := feed.New(func() {
		cancel()
		<-done
	})

	go func() {
		defer close(done)
		s.follow(subCtx, f, userID, stream, func(ctx context.Context) error {
			return s.push(ctx, f, userID)
		})
	}()

	return f, nil
}

// changeStream is the part of *mongo.ChangeStream that follow reads.
type changeStream interface {
	Next(ctx context.Context) bool
	Err() error
	Close(ctx context.Context) error
}

// follow pushes a snapshot now and after every change event. The feed is
// closed when the stream ends for any reason other than ctx being done.
func (s *Store) follow(ctx context.Context, f *feed.Feed, userID string, stream changeStream, refresh func(context.Context) error) {
	defer stream.Close(context.Background())

	// The stream is open before the first read so no write is missed.
	if err := refresh(ctx); err != nil {
		s.log.Error().Err(err).Str("user", userID).Msg("initial snapshot")
		go f.Close()
		return
	}

	for stream.Next(ctx) {
		if err := refresh(ctx); err != nil && ctx.Err() == nil {
			s.log.Warn().Err(err).Str("user", userID).Msg("snapshot read failed")
		}
	}
	if ctx.Err() != nil {
		return
	}
	if err := stream.Err(); err != nil && !errors.Is(err, context.Canceled) {
		s.log.Error().Err(err).Str("user", userID).Msg("change stream")
	} else {
		s.log.Warn().Str("user", userID).Msg("change stream ended")
	}
	go f.Close()
}

func (s *Store) push(ctx context.Context, f *feed.Feed, userID string) error {
	tasks, err := s.list(ctx, userID)
	if err != nil {
		return err
	}
	f.Push(service.Snapshot{UserID: userID, Tasks: tasks, At: time.Now()})
	return nil
}

// list reads the user's tasks in creation order.
func (s *Store) list(ctx context.Context, userID string) ([]service.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := s.tasks(userID).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []taskDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	tasks := make([]service.Task, 0, len(docs))
	for _, d := range docs {
		tasks = append(tasks, d.task())
	}
	return tasks, nil
}
