package handlers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/meghashyamc/ragconsole/logger"
	"github.com/meghashyamc/ragconsole/services/index"
	"github.com/meghashyamc/ragconsole/validation"
)

const uploadFormField = "files"

type uploadedFile struct {
	Filename string `json:"filename" validate:"required,valid_filename"`
}

type deleteRequest struct {
	Filename string `uri:"filename" json:"filename" validate:"required,valid_filename"`
}

func SetupIndex(router *gin.Engine, logger logger.Logger, service *index.Service, validator *validation.Validator) {
	group := router.Group("/api/docs")
	group.GET("", handleList(service, logger))
	group.POST("/upload", handleUpload(service, logger, validator))
	group.DELETE("/clear", handleClear(service, logger))
	group.DELETE("/:filename", handleDelete(service, logger, validator))
}

// handleUpload indexes every file of the multipart "files" field. Files that
// fail are reported in the result instead of failing the request.
func handleUpload(service *index.Service, logger logger.Logger, validator *validation.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		form, err := c.MultipartForm()
		if err != nil {
			logger.Warn("could not read multipart upload", "err", err.Error())
			c.Abort()
			writeResponse(c, nil, http.StatusUnprocessableEntity, []string{"failed to extract uploaded files"})
			return
		}

		headers := form.File[uploadFormField]
		if len(headers) == 0 {
			logger.Warn("upload request has no files")
			c.Abort()
			writeResponse(c, nil, http.StatusNotAcceptable, []string{"missing required field 'files'"})
			return
		}

		var rejected []*multipart.FileHeader
		var rejectedErrs []error
		files := make([]index.File, 0, len(headers))
		for _, header := range headers {
			if err := validator.Validate(uploadedFile{Filename: header.Filename}); err != nil {
				rejected = append(rejected, header)
				rejectedErrs = append(rejectedErrs, err)
				continue
			}
			files = append(files, index.File{Name: header.Filename, Open: openHeader(header)})
		}

		result := service.Upload(c.Request.Context(), files)
		for i, header := range rejected {
			result.AddFailure(header.Filename, rejectedErrs[i])
		}

		c.JSON(http.StatusOK, result)
	}
}

func openHeader(header *multipart.FileHeader) func() (io.ReadCloser, error) {
	return func() (io.ReadCloser, error) {
		return header.Open()
	}
}

func handleList(service *index.Service, logger logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		documents, err := service.List()
		if err != nil {
			logger.Error("could not list documents", "err", err.Error())
			c.Abort()
			writeResponse(c, nil, http.StatusInternalServerError, []string{err.Error()})
			return
		}

		writeResponse(c, documents, http.StatusOK, nil)
	}
}

func handleDelete(service *index.Service, logger logger.Logger, validator *validation.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		request := deleteRequest{}
		if err := c.ShouldBindUri(&request); err != nil {
			logger.Warn("could not extract filename from delete request", "err", err.Error())
			c.Abort()
			writeResponse(c, nil, http.StatusUnprocessableEntity, []string{"failed to extract request path parameters"})
			return
		}

		if err := validator.Validate(request); err != nil {
			logger.Warn("could not validate delete request", "err", err.Error())
			c.Abort()
			writeResponse(c, nil, http.StatusNotAcceptable, []string{err.Error()})
			return
		}

		if err := service.Delete(request.Filename); err != nil {
			if errors.Is(err, index.ErrDocumentNotFound) {
				c.Abort()
				writeResponse(c, nil, http.StatusNotFound, []string{err.Error()})
				return
			}
			logger.Error("could not delete document", "filename", request.Filename, "err", err.Error())
			c.Abort()
			writeResponse(c, nil, http.StatusInternalServerError, []string{err.Error()})
			return
		}

		writeResponse(c, nil, http.StatusNoContent, nil)
	}
}

func handleClear(service *index.Service, logger logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := service.Clear(); err != nil {
			logger.Error("could not clear index", "err", err.Error())
			c.JSON(http.StatusInternalServerError, clearResponse{Success: false, Error: err.Error()})
			return
		}

		c.JSON(http.StatusOK, clearResponse{Success: true, Message: "index cleared"})
	}
}
