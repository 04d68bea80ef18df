package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"tutorhub/internal/courses/service"
	apperrors "tutorhub/pkg/errors"
	httputil "tutorhub/pkg/http"
	"tutorhub/pkg/logger"
	"tutorhub/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type CourseHandler struct {
	lessons  service.LessonService
	sessions service.SessionService
	log      *logger.Logger
}

func NewCourseHandler(lessons service.LessonService, sessions service.SessionService, log *logger.Logger) *CourseHandler {
	return &CourseHandler{
		lessons:  lessons,
		sessions: sessions,
		log:      log,
	}
}

type scheduleRequest struct {
	StartTime time.Time `json:"start_time"`
}

type recordingRequest struct {
	RecordingURL string `json:"recording_url"`
}

func (h *CourseHandler) CreateLesson(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var lesson model.Lesson
	if err := json.NewDecoder(r.Body).Decode(&lesson); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		})
		return
	}

	if err := h.lessons.Create(r.Context(), &lesson); err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteCreated(w, lesson)
}

func (h *CourseHandler) GetLessonByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	lesson, err := h.lessons.GetByID(r.Context(), ps.ByName("id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, lesson)
}

func (h *CourseHandler) GetAllLessons(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	lessons, total, err := h.lessons.GetAll(r.Context(), limit, offset)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WritePaginated(w, lessons, total, limit, offset)
}

func (h *CourseHandler) GetLessonsByTeacher(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	lessons, total, err := h.lessons.GetByTeacher(r.Context(), ps.ByName("teacherId"), limit, offset)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WritePaginated(w, lessons, total, limit, offset)
}

func (h *CourseHandler) UpdateLesson(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var updates model.LessonUpdate
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		})
		return
	}

	if err := h.lessons.Update(r.Context(), ps.ByName("id"), &updates); err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *CourseHandler) GetSessionsByLesson(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	sessions, err := h.sessions.GetByLesson(r.Context(), ps.ByName("id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, sessions)
}

func (h *CourseHandler) GetSessionsForStudent(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	views, err := h.sessions.ForStudent(r.Context(), ps.ByName("id"), ps.ByName("studentId"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, views)
}

func (h *CourseHandler) ScheduleSession(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		})
		return
	}
	if req.StartTime.IsZero() {
		httputil.WriteError(w, apperrors.InvalidInput("start_time is required"))
		return
	}

	session, err := h.sessions.Schedule(r.Context(), ps.ByName("id"), req.StartTime)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, session)
}

func (h *CourseHandler) ActivateSession(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	session, err := h.sessions.Activate(r.Context(), ps.ByName("id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, session)
}

func (h *CourseHandler) CompleteSession(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	session, err := h.sessions.Complete(r.Context(), ps.ByName("id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, session)
}

func (h *CourseHandler) AttachRecording(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req recordingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		})
		return
	}

	session, err := h.sessions.AttachRecording(r.Context(), ps.ByName("id"), req.RecordingURL)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, session)
}

func (h *CourseHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/lessons", h.CreateLesson)
	router.GET("/api/v1/lessons", h.GetAllLessons)
	router.GET("/api/v1/lessons/id/:id", h.GetLessonByID)
	router.GET("/api/v1/lessons/teacher/:teacherId", h.GetLessonsByTeacher)
	router.PATCH("/api/v1/lessons/id/:id", h.UpdateLesson)

	router.GET("/api/v1/lessons/id/:id/sessions", h.GetSessionsByLesson)
	router.GET("/api/v1/lessons/id/:id/sessions/student/:studentId", h.GetSessionsForStudent)

	router.POST("/api/v1/sessions/id/:id/schedule", h.ScheduleSession)
	router.POST("/api/v1/sessions/id/:id/activate", h.ActivateSession)
	router.POST("/api/v1/sessions/id/:id/complete", h.CompleteSession)
	router.POST("/api/v1/sessions/id/:id/recording", h.AttachRecording)

	h.log.Info("Course routes registered")
}
