package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"media-saver/pkg/models"
)

// SQLite implements the HistoryStore interface using SQLite
type SQLite struct {
	db *gorm.DB
}

// NewSQLite creates a new SQLite history store
func NewSQLite(path string) (*SQLite, error) {
	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("error creating database directory: %w", err)
	}

	// Connect to database
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}

	// Auto migrate
	if err := db.AutoMigrate(
		&models.ConversionTask{},
		&models.BatchTask{},
	); err != nil {
		return nil, fmt.Errorf("error migrating database: %w", err)
	}

	return &SQLite{db: db}, nil
}

// SaveTask saves a conversion task
func (s *SQLite) SaveTask(task *models.ConversionTask) error {
	return s.db.Save(task).Error
}

// GetTask retrieves a conversion task
func (s *SQLite) GetTask(id string) (*models.ConversionTask, error) {
	var task models.ConversionTask
	if err := s.db.Where("id = ?", id).First(&task).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &task, nil
}

// ListTasks lists conversion tasks with filters
func (s *SQLite) ListTasks(filter models.TaskFilter) ([]*models.ConversionTask, error) {
	var tasks []*models.ConversionTask
	query := s.db.Model(&models.ConversionTask{})

	// Apply filters
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	if filter.BatchID != nil {
		query = query.Where("batch_id = ?", *filter.BatchID)
	}

	if filter.StartDate != nil {
		query = query.Where("created_at >= ?", *filter.StartDate)
	}

	if filter.EndDate != nil {
		query = query.Where("created_at <= ?", *filter.EndDate)
	}

	// Apply ordering
	if filter.OrderBy != "" {
		order := filter.OrderBy
		if filter.OrderDesc {
			order += " DESC"
		} else {
			order += " ASC"
		}
		query = query.Order(order)
	} else {
		query = query.Order("created_at DESC")
	}

	// Apply pagination
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	if err := query.Find(&tasks).Error; err != nil {
		return nil, err
	}

	return tasks, nil
}

// SaveBatch saves a batch and all of its tasks
func (s *SQLite) SaveBatch(batch *models.BatchTask) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(batch).Error; err != nil {
			return err
		}
		for _, task := range batch.Tasks {
			if err := tx.Save(task).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// GetBatch retrieves a batch with its tasks
func (s *SQLite) GetBatch(id string) (*models.BatchTask, error) {
	var batch models.BatchTask
	if err := s.db.Where("id = ?", id).First(&batch).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}

	tasks, err := s.ListTasks(models.TaskFilter{BatchID: &id, OrderBy: "created_at"})
	if err != nil {
		return nil, err
	}
	batch.Tasks = tasks

	return &batch, nil
}

// ListBatches returns the most recent batches
func (s *SQLite) ListBatches(limit int) ([]*models.BatchTask, error) {
	var batches []*models.BatchTask
	query := s.db.Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&batches).Error; err != nil {
		return nil, err
	}
	return batches, nil
}

// GetStats returns aggregate conversion statistics
func (s *SQLite) GetStats() (*models.Stats, error) {
	stats := &models.Stats{}

	// Total tasks
	if err := s.db.Model(&models.ConversionTask{}).Count(&stats.TotalTasks).Error; err != nil {
		return nil, err
	}

	// Successful tasks
	if err := s.db.Model(&models.ConversionTask{}).
		Where("status = ?", models.StatusSuccess).
		Count(&stats.SuccessfulTasks).Error; err != nil {
		return nil, err
	}

	// Failed tasks
	if err := s.db.Model(&models.ConversionTask{}).
		Where("status = ?", models.StatusFailed).
		Count(&stats.FailedTasks).Error; err != nil {
		return nil, err
	}

	// Tasks today
	today := time.Now().Truncate(24 * time.Hour)
	if err := s.db.Model(&models.ConversionTask{}).
		Where("created_at >= ?", today).
		Count(&stats.TasksToday).Error; err != nil {
		return nil, err
	}

	// Total batches
	if err := s.db.Model(&models.BatchTask{}).Count(&stats.TotalBatches).Error; err != nil {
		return nil, err
	}

	// Calculate success rate over finished tasks only
	finished := stats.SuccessfulTasks + stats.FailedTasks
	if finished > 0 {
		stats.SuccessRate = float64(stats.SuccessfulTasks) / float64(finished) * 100
	}

	return stats, nil
}

// CleanupOldTasks removes finished tasks older than the cutoff
func (s *SQLite) CleanupOldTasks(olderThan time.Duration) error {
	cutoff := time.Now().Add(-olderThan)
	return s.db.Where("created_at < ? AND status IN ?", cutoff,
		[]models.TaskStatus{models.StatusSuccess, models.StatusFailed}).
		Delete(&models.ConversionTask{}).Error
}

// GetRecentTasks returns the most recent successful conversions
func (s *SQLite) GetRecentTasks(limit int) ([]*models.ConversionTask, error) {
	var tasks []*models.ConversionTask
	if err := s.db.Where("status = ?", models.StatusSuccess).
		Order("completed_at DESC").
		Limit(limit).
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// SearchTasks searches tasks by title or source URL
func (s *SQLite) SearchTasks(query string, limit int) ([]*models.ConversionTask, error) {
	var tasks []*models.ConversionTask
	if err := s.db.Where("title LIKE ? OR source_url LIKE ?", "%"+query+"%", "%"+query+"%").
		Order("created_at DESC").
		Limit(limit).
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// Close closes the storage connection
func (s *SQLite) Close() error {
	db, err := s.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}
