package domain

import (
	"math"
	"time"
)

// Role of a jitter account.
type Role string

const (
	RoleJitter Role = "ROLE_JITTER"
	RoleAdmin  Role = "ROLE_ADMIN"
)

// Jitter is a user account. Usernames are unique and case-insensitive.
type Jitter struct {
	ID       int64
	Username string
	// Password holds the bcrypt hash, never the plain credential.
	Password string
	FullName string
	Email    string
	Role     Role
}

// Judgment is the graded attitude of a jittle message.
type Judgment string

const (
	JudgmentVeryNegative Judgment = "VERY_NEGATIVE"
	JudgmentNegative     Judgment = "NEGATIVE"
	JudgmentNeutral      Judgment = "NEUTRAL"
	JudgmentNone         Judgment = "NONE"
	JudgmentPositive     Judgment = "POSITIVE"
	JudgmentVeryPositive Judgment = "VERY_POSITIVE"
)

// TargetQueue routes a jittle through the grading workflow.
type TargetQueue string

const (
	QueueTrainRaw    TargetQueue = "TRAIN_RAW"
	QueueTrainGraded TargetQueue = "TRAIN_GRADED"
	QueueBuildMap    TargetQueue = "BUILD_MAP"
	QueueViewRaw     TargetQueue = "VIEW_RAW"
	QueueViewGraded  TargetQueue = "VIEW_GRADED"
)

// ValidQueue reports whether q is one of the five workflow queues.
func ValidQueue(q TargetQueue) bool {
	switch q {
	case QueueTrainRaw, QueueTrainGraded, QueueBuildMap, QueueViewRaw, QueueViewGraded:
		return true
	}
	return false
}

// Jittle is a short message owned by a jitter, held in a target queue and
// graded by the sentiment model. Judgment and queue are always set once
// persisted.
type Jittle struct {
	ID         int64
	Jitter     Jitter
	Message    string
	PostedTime time.Time
	Author     string
	Judgment   Judgment
	TQueue     TargetQueue
	Country    string
	Latitude   float32
	Longitude  float32
}

// NewJittle builds a jittle with the domain defaults: judgment NONE,
// coordinates NaN until a location is known.
func NewJittle(id int64, jitter Jitter, message string, postedTime time.Time,
	author string, queue TargetQueue, country string) Jittle {
	return Jittle{
		ID:         id,
		Jitter:     jitter,
		Message:    message,
		PostedTime: postedTime,
		Author:     author,
		Judgment:   JudgmentNone,
		TQueue:     queue,
		Country:    country,
		Latitude:   float32(math.NaN()),
		Longitude:  float32(math.NaN()),
	}
}
