package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
	transcriptionapp "github.com/ribotflow/backend/internal/application/transcription"
	"github.com/ribotflow/backend/internal/domain/shared"
)

// AudioService is the call recording use case consumed by AudioHandler
type AudioService interface {
	Upload(ctx context.Context, tenantID, userID uuid.UUID, req transcriptionapp.UploadAudioRequest, file transcriptionapp.AudioFile) (*transcriptionapp.AudioJobResponse, error)
	GetByID(ctx context.Context, tenantID, jobID uuid.UUID) (*transcriptionapp.AudioJobResponse, error)
	List(ctx context.Context, tenantID uuid.UUID, filter transcriptionapp.AudioJobListFilter) (shared.Page[transcriptionapp.AudioJobResponse], error)
	Update(ctx context.Context, tenantID, jobID uuid.UUID, req transcriptionapp.UpdateAudioJobRequest) (*transcriptionapp.AudioJobResponse, error)
	Delete(ctx context.Context, tenantID, jobID uuid.UUID) error
	Retry(ctx context.Context, tenantID, jobID uuid.UUID) (*transcriptionapp.AudioJobResponse, error)
	AudioURL(ctx context.Context, tenantID, jobID uuid.UUID) (*transcriptionapp.AudioURLResponse, error)
}

// AudioHandler handles call recording and transcription endpoints
type AudioHandler struct {
	BaseHandler
	audioService AudioService
}

// NewAudioHandler creates a new AudioHandler
func NewAudioHandler(audioService AudioService) *AudioHandler {
	return &AudioHandler{audioService: audioService}
}

// Upload godoc
// @Summary      Upload a recording for transcription
// @Description  Stores the recording and queues a transcription job. The title defaults to the file name.
// @Tags         audio
// @Accept       multipart/form-data
// @Produce      json
// @Param        file formData file true "Recording"
// @Param        title formData string false "Title"
// @Param        contact_id formData string false "Contact ID"
// @Success      201 {object} APIResponse[transcriptionapp.AudioJobResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      413 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /audio-jobs [post]
func (h *AudioHandler) Upload(c *gin.Context) {
	tenantID, userID, ok := h.caller(c)
	if !ok {
		return
	}
	var req transcriptionapp.UploadAudioRequest
	if err := c.ShouldBindWith(&req, binding.FormMultipart); err != nil {
		h.bindError(c, err)
		return
	}
	file, header, ok := h.formFile(c, "file")
	if !ok {
		return
	}
	defer file.Close()

	resp, err := h.audioService.Upload(c.Request.Context(), tenantID, userID, req, transcriptionapp.AudioFile{
		FileName:    header.Filename,
		ContentType: contentType(header, file),
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// GetByID godoc
// @Summary      Get a transcription job
// @Tags         audio
// @Produce      json
// @Param        id path string true "Job ID"
// @Success      200 {object} APIResponse[transcriptionapp.AudioJobResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /audio-jobs/{id} [get]
func (h *AudioHandler) GetByID(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.audioService.GetByID(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// List godoc
// @Summary      List transcription jobs
// @Description  List items omit the transcript
// @Tags         audio
// @Produce      json
// @Param        search query string false "Search title"
// @Param        status query string false "Job status"
// @Param        contact_id query string false "Contact ID"
// @Param        page query int false "Page" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Success      200 {object} APIResponse[[]transcriptionapp.AudioJobResponse]
// @Security     BearerAuth
// @Router       /audio-jobs [get]
func (h *AudioHandler) List(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	var filter transcriptionapp.AudioJobListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	page, err := h.audioService.List(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	respondPage(c, page)
}

// Update godoc
// @Summary      Rename a job or link it to a contact
// @Tags         audio
// @Accept       json
// @Produce      json
// @Param        id path string true "Job ID"
// @Param        request body transcriptionapp.UpdateAudioJobRequest true "Changes"
// @Success      200 {object} APIResponse[transcriptionapp.AudioJobResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /audio-jobs/{id} [put]
func (h *AudioHandler) Update(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req transcriptionapp.UpdateAudioJobRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.audioService.Update(c.Request.Context(), tenantID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Delete godoc
// @Summary      Delete a job and its recording
// @Tags         audio
// @Param        id path string true "Job ID"
// @Success      204
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /audio-jobs/{id} [delete]
func (h *AudioHandler) Delete(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	if err := h.audioService.Delete(c.Request.Context(), tenantID, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Retry godoc
// @Summary      Queue a failed job again
// @Tags         audio
// @Produce      json
// @Param        id path string true "Job ID"
// @Success      200 {object} APIResponse[transcriptionapp.AudioJobResponse]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /audio-jobs/{id}/retry [post]
func (h *AudioHandler) Retry(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.audioService.Retry(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// AudioURL godoc
// @Summary      Get a temporary URL for the recording
// @Tags         audio
// @Produce      json
// @Param        id path string true "Job ID"
// @Success      200 {object} APIResponse[transcriptionapp.AudioURLResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /audio-jobs/{id}/audio-url [get]
func (h *AudioHandler) AudioURL(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.audioService.AudioURL(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
