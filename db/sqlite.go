package db

import (
	"database/sql"
	"errors"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

var database *sql.DB

var ErrNoTrainingRuns = errors.New("no training runs recorded")

// InitDB opens the SQLite database and creates the training_log table.
func InitDB(path string) error {
	conn, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return err
	}

	query := `
    CREATE TABLE IF NOT EXISTS training_log (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        model_path TEXT NOT NULL,
        dataset_path TEXT NOT NULL,
        model_format TEXT NOT NULL,
        model_version INTEGER NOT NULL,
        n_estimators INTEGER NOT NULL,
        random_state INTEGER NOT NULL,
        total_rows INTEGER NOT NULL,
        train_rows INTEGER NOT NULL,
        test_rows INTEGER NOT NULL,
        duration_ms INTEGER NOT NULL,
        trained_at DATETIME NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_training_log_trained_at ON training_log(trained_at);
    `
	if _, err := conn.Exec(query); err != nil {
		conn.Close()
		return err
	}
	if database != nil {
		database.Close()
	}
	database = conn
	return nil
}

func Close() error {
	if database == nil {
		return nil
	}
	err := database.Close()
	database = nil
	return err
}

type TrainingRun struct {
	ModelPath    string        `json:"model_path"`
	DatasetPath  string        `json:"dataset_path"`
	ModelFormat  string        `json:"model_format"`
	ModelVersion int           `json:"model_version"`
	NumTrees     int           `json:"n_estimators"`
	Seed         int64         `json:"random_state"`
	Rows         int           `json:"rows"`
	TrainRows    int           `json:"train_rows"`
	TestRows     int           `json:"test_rows"`
	Duration     time.Duration `json:"duration"`
	TrainedAt    time.Time     `json:"trained_at"`
}

func RecordTrainingRun(run TrainingRun) error {
	if database == nil {
		return errors.New("database not initialized")
	}
	_, err := database.Exec(`
        INSERT INTO training_log (
            model_path, dataset_path, model_format, model_version, n_estimators, random_state,
            total_rows, train_rows, test_rows, duration_ms, trained_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `,
		run.ModelPath,
		run.DatasetPath,
		run.ModelFormat,
		run.ModelVersion,
		run.NumTrees,
		run.Seed,
		run.Rows,
		run.TrainRows,
		run.TestRows,
		run.Duration.Milliseconds(),
		run.TrainedAt.UTC(),
	)
	return err
}

// LatestTrainingRun returns the most recent run for modelPath.
func LatestTrainingRun(modelPath string) (*TrainingRun, error) {
	runs, err := LoadTrainingLog(modelPath, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, ErrNoTrainingRuns
	}
	return &runs[0], nil
}

// LoadTrainingLog lists runs newest first. An empty modelPath lists every model.
func LoadTrainingLog(modelPath string, limit int) ([]TrainingRun, error) {
	if database == nil {
		return nil, errors.New("database not initialized")
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := database.Query(`
        SELECT model_path, dataset_path, model_format, model_version, n_estimators, random_state,
               total_rows, train_rows, test_rows, duration_ms, trained_at
        FROM training_log
        WHERE ? = '' OR model_path = ?
        ORDER BY trained_at DESC, id DESC
        LIMIT ?
    `, modelPath, modelPath, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]TrainingRun, 0)
	for rows.Next() {
		var run TrainingRun
		var durationMS int64
		if err := rows.Scan(
			&run.ModelPath, &run.DatasetPath, &run.ModelFormat, &run.ModelVersion, &run.NumTrees, &run.Seed,
			&run.Rows, &run.TrainRows, &run.TestRows, &durationMS, &run.TrainedAt,
		); err != nil {
			return nil, err
		}
		run.Duration = time.Duration(durationMS) * time.Millisecond
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
