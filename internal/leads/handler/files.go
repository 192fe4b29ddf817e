package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"nashcrm_backend/platform/httpkit"
)

// UploadFile accepts one multipart file under the "file" field and
// attaches it to the lead.
func (h *Handler) UploadFile(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "file field is required", err.Error())
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "cannot read uploaded file", nil)
		return
	}
	defer func() {
		_ = src.Close()
	}()

	var uploadedBy *uuid.UUID
	if identity := httpkit.GetIdentity(c); identity.IsAuthenticated() {
		uid := identity.UserID()
		uploadedBy = &uid
	}

	contentType := fileHeader.Header.Get("Content-Type")
	resp, err := h.svc.AttachFile(c.Request.Context(), id, fileHeader.Filename, contentType,
		src, fileHeader.Size, uploadedBy)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, resp)
}

func (h *Handler) ListFiles(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	files, err := h.svc.ListFiles(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"items": files})
}

// FileDownloadURL returns a presigned link instead of proxying bytes
// through the API.
func (h *Handler) FileDownloadURL(c *gin.Context) {
	fileID, ok := parseFileID(c)
	if !ok {
		return
	}

	link, err := h.svc.FileDownloadURL(c.Request.Context(), fileID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, link)
}

func (h *Handler) DeleteFile(c *gin.Context) {
	fileID, ok := parseFileID(c)
	if !ok {
		return
	}

	if httpkit.HandleError(c, h.svc.DeleteFile(c.Request.Context(), fileID)) {
		return
	}
	c.Status(http.StatusNoContent)
}

func parseFileID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("fileID"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return uuid.Nil, false
	}
	return id, true
}
