package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	// Use UUID v7 for time-ordered, sortable IDs
	// Falls back to v4 if v7 is not available (for compatibility)
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// RunID identifies one full tracking-analysis run.
type RunID ID

// NewRunID mints a fresh run identifier.
func NewRunID() RunID {
	return RunID(NewID())
}

func (id RunID) String() string { return ID(id).String() }

// ParseRunID parses a string into RunID
func ParseRunID(s string) (RunID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("run ID cannot be empty")
	}
	return RunID(s), nil
}

// WaveID names one fielding of the survey ("W1", "W2", ...). Wave IDs come
// from configuration, not generation; ordering is the configured order.
type WaveID string

func (id WaveID) String() string { return string(id) }

// QuestionCode is the stable cross-wave identifier of a tracked question.
// Individual waves may field the question under a different column name.
type QuestionCode string

func (c QuestionCode) String() string { return string(c) }

// SegmentName names one banner segment ("Total", "Male", "18-34", ...).
type SegmentName string

func (s SegmentName) String() string { return string(s) }

// TotalSegment is the implicit all-respondents segment present in every run.
const TotalSegment SegmentName = "Total"

// ParseWaveID parses a string into WaveID
func ParseWaveID(s string) (WaveID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("wave ID cannot be empty")
	}
	return WaveID(strings.TrimSpace(s)), nil
}

// ParseQuestionCode parses a string into QuestionCode
func ParseQuestionCode(s string) (QuestionCode, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("question code cannot be empty")
	}
	return QuestionCode(strings.TrimSpace(s)), nil
}
