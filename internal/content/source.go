package content

import "time"

// Status values shared by modules, categories and learning objects.
const (
	StatusReady       = "ready"
	StatusUnlisted    = "unlisted"
	StatusHidden      = "hidden"
	StatusMaintenance = "maintenance"
)

// GradingMode selects which submission counts for an exercise.
type GradingMode string

const (
	GradingBest GradingMode = "best"
	GradingLast GradingMode = "last"
)

// Schedule holds the submission window shared by a module and its exercises.
type Schedule struct {
	OpeningTime time.Time `json:"opening_time"`
	ClosingTime time.Time `json:"closing_time"`
	LateAllowed bool      `json:"late_allowed"`
	LateTime    time.Time `json:"late_time"`
	LatePercent int       `json:"late_percent"`
}

// ModuleSource is one course module as read from the data provider.
type ModuleSource struct {
	ID           int64
	Order        int
	Status       string
	URL          string
	Name         string
	PointsToPass int
	Schedule     Schedule
	// ModelAnswerID is the chapter holding the module's model solutions.
	ModelAnswerID *int64
}

type CategorySource struct {
	ID              int64
	Name            string
	Status          string
	PointsToPass    int
	ConfirmTheLevel bool
}

// LearningObjectSource is a chapter or an exercise. Only submittable objects
// carry points.
type LearningObjectSource struct {
	ID             int64
	ModuleID       int64
	CategoryID     int64
	ParentID       *int64
	Order          int
	Status         string
	URL            string
	Name           string
	Submittable    bool
	MaxPoints      int
	PointsToPass   int
	MaxSubmissions int
	Difficulty     string
	MinGroupSize   int
	MaxGroupSize   int
	GradingMode    GradingMode
}

// Source is everything the builder needs for one course instance.
type Source struct {
	CourseID        int64
	Modules         []ModuleSource
	Categories      []CategorySource
	LearningObjects []LearningObjectSource
	Watermark       time.Time
}
