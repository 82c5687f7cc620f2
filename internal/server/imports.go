package server

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	importjobdomain "github.com/smallbiznis/catalogd/internal/importjob/domain"
	"go.uber.org/zap"
)

// UploadProducts accepts a CSV file, records a pending import job and
// queues the pipeline run. The caller polls /api/tasks/:id or
// /api/imports/:id for progress.
func (s *Server) UploadProducts(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		AbortWithError(c, newValidationError("file", "invalid_file", "no file provided"))
		return
	}

	if !strings.HasSuffix(strings.ToLower(fileHeader.Filename), ".csv") {
		AbortWithError(c, newValidationError("file", "invalid_file", "file must be a CSV"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		AbortWithError(c, err)
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	job, err := s.importSvc.Create(c.Request.Context(), fileHeader.Filename)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	taskID, err := s.queue.Enqueue(c.Request.Context(), importjobdomain.TaskKindImport, importjobdomain.ImportTaskPayload{
		JobID:   job.ID,
		Content: string(content),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.importSvc.AttachTask(c.Request.Context(), job.ID, taskID); err != nil {
		s.log.Warn("attach task to import job",
			zap.String("job_id", job.ID),
			zap.String("task_id", taskID),
			zap.Error(err))
	}

	c.JSON(http.StatusAccepted, gin.H{
		"job_id":  job.ID,
		"task_id": taskID,
		"status":  "Upload started",
	})
}

func (s *Server) GetImportJob(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	resp, err := s.importSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// GetTaskStatus reports queue-side state for any queued task, with
// progress meta while running and the handler result once finished.
func (s *Server) GetTaskStatus(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	st, err := s.queue.QueryStatus(id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp := gin.H{
		"task_id": id,
		"state":   st.State,
	}
	for k, v := range st.Meta {
		resp[k] = v
	}
	for k, v := range st.Result {
		resp[k] = v
	}
	if st.Error != "" {
		resp["error"] = st.Error
	}

	c.JSON(http.StatusOK, resp)
}
