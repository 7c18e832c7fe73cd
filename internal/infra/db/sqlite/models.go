package sqlite

import "time"

type scanRecordRow struct {
	ID            string    `gorm:"primaryKey;size:36"`
	ScanType      string    `gorm:"size:8;not null;uniqueIndex:uq_scan_type_key,priority:1"`
	ScanKey       string    `gorm:"size:2048;not null;uniqueIndex:uq_scan_type_key,priority:2"`
	OriginalInput string    `gorm:"type:text"`
	Status        string    `gorm:"size:16;not null"`
	Score         int       `gorm:"not null"`
	Summary       string    `gorm:"type:text;not null"`
	Reasons       string    `gorm:"type:text;not null"` // JSON array
	RawResponse   string    `gorm:"type:text;not null"` // JSON object
	CreatedAt     time.Time `gorm:"not null;index"`
}

func (scanRecordRow) TableName() string { return "scan_results" }

type scanErrorRow struct {
	ID          int64     `gorm:"primaryKey;autoIncrement"`
	ScanType    string    `gorm:"size:8;not null;index:idx_scan_errors_key,priority:1"`
	ScanKey     string    `gorm:"size:2048;not null;index:idx_scan_errors_key,priority:2"`
	Kind        string    `gorm:"size:32;not null"`
	StatusCode  int
	Message     string    `gorm:"type:text;not null"`
	DetailsJSON string    `gorm:"type:text"`
	CreatedAt   time.Time `gorm:"not null"`
}

func (scanErrorRow) TableName() string { return "scan_errors" }

type analysisRow struct {
	ID         string    `gorm:"primaryKey;size:36"`
	ScanID     string    `gorm:"size:36;not null;index"`
	Model      string    `gorm:"size:64"`
	ResultJSON string    `gorm:"type:text;not null"`
	CreatedAt  time.Time `gorm:"not null"`
}

func (analysisRow) TableName() string { return "scan_analyses" }
