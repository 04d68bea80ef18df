package validator

import (
	"testing"

	"tutorhub/pkg/logger"
	"tutorhub/pkg/model"
)

func testValidator() *LessonValidator {
	log := logger.New(logger.Config{
		Level:   "error",
		Format:  logger.JSON,
		Service: "validator-test",
	})
	return NewLessonValidator(log)
}

func validLesson() *model.Lesson {
	return &model.Lesson{
		TeacherID:     "64a000000000000000000099",
		Title:         "Algebra II",
		Kind:          model.LessonKindIndividual,
		DurationMin:   60,
		PriceCents:    4000,
		TotalSessions: 0,
	}
}

func TestValidate_ValidLessons(t *testing.T) {
	v := testValidator()

	individual := validLesson()
	if err := v.Validate(individual); err != nil {
		t.Errorf("individual lesson should be valid: %v", err)
	}

	course := validLesson()
	course.Kind = model.LessonKindGroupCourse
	course.TotalSessions = 12
	if err := v.Validate(course); err != nil {
		t.Errorf("group course should be valid: %v", err)
	}
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*model.Lesson)
	}{
		{"missing teacher", func(l *model.Lesson) { l.TeacherID = "" }},
		{"malformed teacher id", func(l *model.Lesson) { l.TeacherID = "not-an-oid" }},
		{"short title", func(l *model.Lesson) { l.Title = "x" }},
		{"unknown kind", func(l *model.Lesson) { l.Kind = "workshop" }},
		{"duration too short", func(l *model.Lesson) { l.DurationMin = 3 }},
		{"duration too long", func(l *model.Lesson) { l.DurationMin = 481 }},
		{"free lesson", func(l *model.Lesson) { l.PriceCents = 0 }},
		{"too many sessions", func(l *model.Lesson) {
			l.Kind = model.LessonKindGroupCourse
			l.TotalSessions = 51
		}},
		{"single session course", func(l *model.Lesson) {
			l.Kind = model.LessonKindGroupCourse
			l.TotalSessions = 1
		}},
		{"individual with sessions", func(l *model.Lesson) {
			l.TotalSessions = 8
		}},
	}

	v := testValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lesson := validLesson()
			tt.mutate(lesson)
			if err := v.Validate(lesson); err == nil {
				t.Errorf("expected validation to fail")
			}
		})
	}
}
