package errors

import "errors"

var (
	ErrLessonNotFound = errors.New("lesson not found")

	ErrSessionNotFound = errors.New("course session not found")

	ErrInvalidID = errors.New("invalid ID format")

	ErrStaleStatus = errors.New("session status changed concurrently")

	// ErrNoEnrollment means the student holds no active booking for the lesson.
	ErrNoEnrollment = errors.New("no active enrollment for lesson")
)
