package gateway

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/gallery-widget/gateway/internal/storage"
)

// UploadResponse is returned after a successful upload.
type UploadResponse struct {
	Success  bool   `json:"success" example:"true"`
	Filename string `json:"filename" example:"albums/cat.jpg"`
	Message  string `json:"message" example:"upload succeeded"`
}

// DeleteResponse is returned after a delete, whether or not the key existed.
type DeleteResponse struct {
	Success bool   `json:"success" example:"true"`
	Message string `json:"message" example:"delete succeeded"`
}

// StatusResponse describes the running service.
type StatusResponse struct {
	Status   string   `json:"status" example:"ok"`
	Service  string   `json:"service" example:"Gallery Widget Object Gateway"`
	Features []string `json:"features"`
}

func (g *Gateway) preflight(*http.Request) (*Result, error) {
	return &Result{Status: http.StatusOK}, nil
}

// upload godoc
//
//	@Summary		Upload image
//	@Description	Store the multipart file under filename, replacing any existing object.
//	@Tags			objects
//	@Accept			mpfd
//	@Produce		json
//	@Param			file		formData	file	true	"Image bytes"
//	@Param			filename	formData	string	true	"Object key"
//	@Param			contentType	formData	string	false	"Stored content type (default image/jpeg)"
//	@Success		200			{object}	UploadResponse
//	@Failure		400			{object}	response.ErrorBody
//	@Failure		500			{object}	response.ErrorBody
//	@Router			/ [post]
func (g *Gateway) upload(r *http.Request) (*Result, error) {
	if g.store == nil {
		return nil, errStoreUnbound()
	}

	req, err := parseUpload(r)
	if err != nil {
		return nil, err
	}
	defer req.close()

	if err := g.store.Put(r.Context(), req.Filename, req.File, req.Size, req.ContentType); err != nil {
		return nil, err
	}
	log.Printf("stored %q (%s)", req.Filename, req.ContentType)

	return &Result{
		Status: http.StatusOK,
		Body:   UploadResponse{Success: true, Filename: req.Filename, Message: "upload succeeded"},
	}, nil
}

// delete godoc
//
//	@Summary		Delete image
//	@Description	Remove the object stored under filename. Deleting a missing key succeeds.
//	@Tags			objects
//	@Accept			json
//	@Produce		json
//	@Param			request	body		deleteRequest	true	"Object key"
//	@Success		200		{object}	DeleteResponse
//	@Failure		400		{object}	response.ErrorBody
//	@Failure		500		{object}	response.ErrorBody
//	@Router			/ [delete]
func (g *Gateway) delete(r *http.Request) (*Result, error) {
	if g.store == nil {
		return nil, errStoreUnbound()
	}

	req, err := parseDelete(r)
	if err != nil {
		return nil, err
	}

	if err := g.store.Delete(r.Context(), req.Filename); err != nil {
		return nil, err
	}
	log.Printf("deleted %q", req.Filename)

	return &Result{
		Status: http.StatusOK,
		Body:   DeleteResponse{Success: true, Message: "delete succeeded"},
	}, nil
}

// transform godoc
//
//	@Summary		Fetch image
//	@Description	Stream the stored bytes back unchanged. format only selects the Content-Type header; quality is accepted for future resizing.
//	@Tags			objects
//	@Produce		image/webp,image/avif,image/jpeg
//	@Param			key		query		string	true	"Object key"
//	@Param			quality	query		string	false	"Quality hint"	default(50)
//	@Param			format	query		string	false	"webp, avif or anything else for jpeg"	default(webp)
//	@Success		200		{file}		binary
//	@Failure		400		{object}	response.ErrorBody
//	@Failure		404		{object}	response.ErrorBody
//	@Failure		500		{object}	response.ErrorBody
//	@Router			/transform [get]
func (g *Gateway) transform(r *http.Request) (*Result, error) {
	req, err := parseTransform(r)
	if err != nil {
		return nil, err
	}
	if g.store == nil {
		return nil, errStoreUnbound()
	}

	obj, err := g.store.Get(r.Context(), req.Key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, errNotFound(fmt.Sprintf("image %q not found", req.Key))
	}
	if err != nil {
		return nil, errReadFailed(err)
	}
	defer obj.Body.Close()

	data, err := io.ReadAll(obj.Body)
	if err != nil {
		return nil, errReadFailed(err)
	}

	// Bytes are returned untouched; conversion is left to the client or CDN.
	h := http.Header{}
	h.Set("Cache-Control", "public, max-age=31536000")
	h.Set("Content-Disposition", `inline; filename="`+basename(req.Key)+`"`)
	h.Set("Accept-CH", "DPR, Viewport-Width, Width")
	h.Set("Content-Length", strconv.Itoa(len(data)))

	return &Result{
		Status:      http.StatusOK,
		Raw:         data,
		ContentType: imageContentType(req.Format),
		Header:      h,
	}, nil
}

// status godoc
//
//	@Summary		Service status
//	@Description	Liveness probe listing supported features. Needs no object store.
//	@Tags			status
//	@Produce		json
//	@Success		200	{object}	StatusResponse
//	@Router			/ [get]
func (g *Gateway) status(*http.Request) (*Result, error) {
	return &Result{
		Status: http.StatusOK,
		Body:   StatusResponse{Status: "ok", Service: ServiceName, Features: Features},
	}, nil
}
