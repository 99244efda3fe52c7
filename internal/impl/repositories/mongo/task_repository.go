package repositories_mongo

import (
	"context"

	"github.com/drujensen/tasktracker/internal/domain/entities"
	"github.com/drujensen/tasktracker/internal/domain/errs"
	"github.com/drujensen/tasktracker/internal/domain/interfaces"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// taskDocument is the stored form of a task. Position keeps insertion order.
type taskDocument struct {
	ID          string `bson:"_id"`
	Position    int    `bson:"position"`
	Title       string `bson:"title"`
	Description string `bson:"description"`
	DueDate     string `bson:"due_date"`
}

type MongoTaskRepository struct {
	collection *mongo.Collection
}

func NewMongoTaskRepository(collection *mongo.Collection) *MongoTaskRepository {
	return &MongoTaskRepository{
		collection: collection,
	}
}

func (r *MongoTaskRepository) Name() string {
	return "mongo:" + r.collection.Name()
}

func (r *MongoTaskRepository) ReplaceTasks(ctx context.Context, tasks []*entities.Task) error {
	if _, err := r.collection.DeleteMany(ctx, bson.M{}); err != nil {
		return errs.InternalErrorf("failed to clear tasks: %v", err)
	}

	if len(tasks) == 0 {
		return nil
	}

	docs := make([]interface{}, len(tasks))
	for i, task := range tasks {
		docs[i] = toDocument(i, task)
	}

	if _, err := r.collection.InsertMany(ctx, docs); err != nil {
		return errs.InternalErrorf("failed to insert tasks: %v", err)
	}

	return nil
}

func (r *MongoTaskRepository) ListTasks(ctx context.Context) ([]*entities.Task, error) {
	cursor, err := r.collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "position", Value: 1}}))
	if err != nil {
		return nil, errs.InternalErrorf("failed to list tasks: %v", err)
	}
	defer cursor.Close(ctx)

	tasks := []*entities.Task{}
	for cursor.Next(ctx) {
		var doc taskDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, errs.InternalErrorf("failed to decode task: %v", err)
		}
		task, err := fromDocument(doc)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}

	if err := cursor.Err(); err != nil {
		return nil, errs.InternalErrorf("failed to list tasks: %v", err)
	}

	return tasks, nil
}

func toDocument(position int, task *entities.Task) taskDocument {
	return taskDocument{
		ID:          task.ID,
		Position:    position,
		Title:       task.Title,
		Description: task.Description,
		DueDate:     task.FormattedDueDate(),
	}
}

func fromDocument(doc taskDocument) (*entities.Task, error) {
	task, err := entities.NewTaskFromFormatted(doc.Title, doc.Description, doc.DueDate)
	if err != nil {
		return nil, err
	}
	if doc.ID != "" {
		task.ID = doc.ID
	}
	return task, nil
}

var _ interfaces.TaskRepository = (*MongoTaskRepository)(nil)
