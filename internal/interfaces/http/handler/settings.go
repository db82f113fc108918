package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ledger/backend/internal/infrastructure/backup"
	"github.com/ledger/backend/internal/infrastructure/scheduler"
	"github.com/ledger/backend/internal/infrastructure/settings"
	"github.com/ledger/backend/internal/interfaces/http/dto"
	"golang.org/x/text/language"
)

// SettingsStore is the user preference storage
type SettingsStore interface {
	LanguageSource
	SetLanguage(tag language.Tag) error
	Load() (settings.Settings, error)
}

// BackupLister lists the backups on disk
type BackupLister interface {
	Name() string
	List() ([]backup.File, error)
}

// JobTrigger runs a registered job now
type JobTrigger interface {
	Trigger(ctx context.Context, name string) (scheduler.Run, error)
	NextRun(name string) (time.Time, bool)
}

// SettingsHandler handles user settings and backups
type SettingsHandler struct {
	BaseHandler
	store   SettingsStore
	backups BackupLister
	jobs    JobTrigger
}

// NewSettingsHandler creates a new SettingsHandler. backups and jobs may be
// nil when backups are disabled.
func NewSettingsHandler(store SettingsStore, backups BackupLister, jobs JobTrigger) *SettingsHandler {
	return &SettingsHandler{
		BaseHandler: BaseHandler{languages: store},
		store:       store,
		backups:     backups,
		jobs:        jobs,
	}
}

// LanguageRequest is the body of a language change
type LanguageRequest struct {
	Language string `json:"language" binding:"required" example:"id-ID"`
}

// BackupsResponse lists backups with the next scheduled one
type BackupsResponse struct {
	Files   []backup.File `json:"files"`
	NextRun *time.Time    `json:"next_run,omitempty"`
}

// RunResponse describes a finished job run
type RunResponse struct {
	ID          string     `json:"id"`
	Job         string     `json:"job"`
	Status      string     `json:"status"`
	Attempts    int        `json:"attempts"`
	Error       string     `json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Get godoc
// @Summary      Get settings
// @Tags         settings
// @Success      200 {object} dto.Response{data=settings.Settings}
// @Router       /settings [get]
func (h *SettingsHandler) Get(c *gin.Context) {
	s, err := h.store.Load()
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, s)
}

// SetLanguage godoc
// @Summary      Change the language
// @Description  Affects name collation and currency formatting
// @Tags         settings
// @Param        request body LanguageRequest true "BCP 47 tag"
// @Success      200 {object} dto.Response{data=settings.Settings}
// @Router       /settings/language [put]
func (h *SettingsHandler) SetLanguage(c *gin.Context) {
	var req LanguageRequest
	if !h.BindJSON(c, &req) {
		return
	}
	tag, err := language.Parse(req.Language)
	if err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeValidationFormat, "Invalid language tag")
		return
	}
	if err := h.store.SetLanguage(tag); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Get(c)
}

// ListBackups godoc
// @Summary      List backups
// @Tags         settings
// @Success      200 {object} dto.Response{data=BackupsResponse}
// @Failure      503 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /settings/backups [get]
func (h *SettingsHandler) ListBackups(c *gin.Context) {
	if h.backups == nil {
		h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeUnavailable, "Backups are disabled")
		return
	}
	files, err := h.backups.List()
	if err != nil {
		h.HandleError(c, err)
		return
	}
	resp := BackupsResponse{Files: files}
	if resp.Files == nil {
		resp.Files = []backup.File{}
	}
	if h.jobs != nil {
		if next, ok := h.jobs.NextRun(h.backups.Name()); ok {
			resp.NextRun = &next
		}
	}
	h.Success(c, resp)
}

// RunBackup godoc
// @Summary      Take a backup now
// @Tags         settings
// @Success      200 {object} dto.Response{data=RunResponse}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      503 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /settings/backups [post]
func (h *SettingsHandler) RunBackup(c *gin.Context) {
	if h.backups == nil || h.jobs == nil {
		h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeUnavailable, "Backups are disabled")
		return
	}
	run, err := h.jobs.Trigger(context.WithoutCancel(c.Request.Context()), h.backups.Name())
	switch {
	case errors.Is(err, scheduler.ErrJobAlreadyRunning):
		h.Error(c, http.StatusConflict, dto.ErrCodeConflict, "A backup is already running")
		return
	case errors.Is(err, scheduler.ErrSchedulerNotRunning), errors.Is(err, scheduler.ErrJobNotFound):
		h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeUnavailable, "Backups are not scheduled")
		return
	case err != nil:
		h.HandleError(c, err)
		return
	}
	// a failed run is reported with its error, not as a failed request
	h.Success(c, RunResponse{
		ID:          run.ID.String(),
		Job:         run.Job,
		Status:      string(run.Status),
		Attempts:    run.Attempts,
		Error:       run.Error,
		StartedAt:   run.StartedAt,
		CompletedAt: run.CompletedAt,
	})
}
