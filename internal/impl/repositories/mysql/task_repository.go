package repositories_mysql

import (
	"context"
	"database/sql"
	"time"

	"github.com/drujensen/tasktracker/internal/domain/entities"
	"github.com/drujensen/tasktracker/internal/domain/errs"
	"github.com/drujensen/tasktracker/internal/domain/interfaces"

	"github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

const createTasksTable = `CREATE TABLE IF NOT EXISTS tasks (
    id CHAR(36) PRIMARY KEY,
    position INT NOT NULL,
    title VARCHAR(255) NOT NULL,
    description TEXT,
    due_date DATE NOT NULL,
    KEY idx_position (position)
)`

type MySQLTaskRepository struct {
	db     *sql.DB
	dbName string
	logger *zap.Logger
}

// ParseDSN parses a go-sql-driver DSN and forces parseTime so DATE
// columns scan into time.Time.
func ParseDSN(dsn string) (*mysql.Config, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, errs.ValidationErrorf("invalid MySQL DSN: %w", err)
	}
	cfg.ParseTime = true
	if cfg.Loc == nil {
		cfg.Loc = time.UTC
	}
	return cfg, nil
}

// NewMySQLTaskRepository opens the database, pings it and creates the tasks
// table when it does not exist yet.
func NewMySQLTaskRepository(ctx context.Context, dsn string, logger *zap.Logger) (*MySQLTaskRepository, error) {
	cfg, err := ParseDSN(dsn)
	if err != nil {
		return nil, err
	}

	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, errs.InternalErrorf("failed to create MySQL connector: %v", err)
	}

	db := sql.OpenDB(connector)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		logger.Error("Failed to ping MySQL", zap.Error(err))
		return nil, errs.InternalErrorf("failed to connect to MySQL: %v", err)
	}

	r := &MySQLTaskRepository{db: db, dbName: cfg.DBName, logger: logger}
	if err := r.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("Successfully connected to MySQL", zap.String("database", cfg.DBName))
	return r, nil
}

func (r *MySQLTaskRepository) migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createTasksTable); err != nil {
		return errs.InternalErrorf("failed to create tasks table: %v", err)
	}
	return nil
}

func (r *MySQLTaskRepository) Close() error {
	return r.db.Close()
}

func (r *MySQLTaskRepository) Name() string {
	return "mysql:" + r.dbName
}

func (r *MySQLTaskRepository) ReplaceTasks(ctx context.Context, tasks []*entities.Task) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errs.InternalErrorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM tasks`); err != nil {
		return errs.InternalErrorf("failed to clear tasks: %v", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO tasks (id, position, title, description, due_date) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return errs.InternalErrorf("failed to prepare insert: %v", err)
	}
	defer stmt.Close()

	for i, task := range tasks {
		if _, err := stmt.ExecContext(ctx, insertArgs(i, task)...); err != nil {
			return errs.InternalErrorf("failed to insert task %s: %v", task.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errs.InternalErrorf("failed to commit tasks: %v", err)
	}
	return nil
}

func (r *MySQLTaskRepository) ListTasks(ctx context.Context) ([]*entities.Task, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, title, description, due_date FROM tasks ORDER BY position`)
	if err != nil {
		return nil, errs.InternalErrorf("failed to list tasks: %v", err)
	}
	defer rows.Close()

	tasks := []*entities.Task{}
	for rows.Next() {
		var (
			id, title   string
			description sql.NullString
			dueDate     time.Time
		)
		if err := rows.Scan(&id, &title, &description, &dueDate); err != nil {
			return nil, errs.InternalErrorf("failed to scan task: %v", err)
		}
		tasks = append(tasks, taskFromRow(id, title, description, dueDate))
	}

	if err := rows.Err(); err != nil {
		return nil, errs.InternalErrorf("failed to list tasks: %v", err)
	}
	return tasks, nil
}

func insertArgs(position int, task *entities.Task) []any {
	due := task.DueDate
	return []any{
		task.ID,
		position,
		task.Title,
		task.Description,
		time.Date(due.Year(), due.Month(), due.Day(), 0, 0, 0, 0, time.UTC),
	}
}

func taskFromRow(id, title string, description sql.NullString, dueDate time.Time) *entities.Task {
	task := entities.NewTask(title, description.String, time.Date(dueDate.Year(), dueDate.Month(), dueDate.Day(), 0, 0, 0, 0, time.UTC))
	if id != "" {
		task.ID = id
	}
	return task
}

var _ interfaces.TaskRepository = (*MySQLTaskRepository)(nil)
