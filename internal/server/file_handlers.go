package server

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/mx-wll/kinderkreisel/internal/imaging"
	"github.com/mx-wll/kinderkreisel/internal/kkerror"
	"github.com/mx-wll/kinderkreisel/internal/storage"
)

// MaxUploadSize caps a single picture upload.
const MaxUploadSize = 10 << 20 // 10 MiB

// files contains all blob handlers.
type files struct {
	blobs storage.BlobStore
}

///// Upload
////
//

// Upload normalizes a picture and stores it as a blob.
func (h *files) Upload(c echo.Context) error {
	header, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, kkerror.New("Could not get uploaded file."))
	}
	if header.Size > MaxUploadSize {
		return c.JSON(http.StatusRequestEntityTooLarge, kkerror.New("File is too large."))
	}

	file, err := header.Open()
	if err != nil {
		return err
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, MaxUploadSize))
	if err != nil {
		return err
	}

	normalized, err := imaging.Process(data)
	if err != nil {
		return c.JSON(http.StatusBadRequest, kkerror.New(err.Error()))
	}

	id, err := h.blobs.Put(normalized, "jpg")
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"storage_id": id,
		"url":        "/files/" + id,
	})
}

///// Show
////
//

// Show serves a stored blob.
func (h *files) Show(c echo.Context) error {
	path, err := h.blobs.Path(c.Param("id"))
	if err != nil {
		return kkerror.NotFound("File not found.")
	}

	return c.File(path)
}
