package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gabriel-vasile/mimetype"

	"github.com/leeforge/picpipe/http/binding"
	"github.com/leeforge/picpipe/http/responder"
	"github.com/leeforge/picpipe/media/processor"
	"github.com/leeforge/picpipe/media/queue"
)

// Response headers set by the resize endpoint.
const (
	HeaderImageSize    = "X-Image-Size"
	HeaderWithinBudget = "X-Image-Within-Budget"
	HeaderCompressLvl  = "X-Compress-Level"
)

type jobForm struct {
	MimeType      string `form:"mimetype"`
	MaxPixel      int    `form:"maxPixel" validate:"gte=0"`
	MaxByte       int    `form:"maxByte" validate:"gte=0"`
	Thumb         bool   `form:"thumb"`
	CompressLevel int    `form:"compressLevel" validate:"gte=0"`
	CompressTries int    `form:"compressTries" validate:"gte=0"`
	Name          string `form:"name"`
	Bucket        string `form:"bucket"`
	Colors        bool   `form:"colors"`
	Async         bool   `form:"async"`
}

// job turns the form and upload into an ImageJob. The MIME type falls back
// to the part's Content-Type, then to sniffing the bytes.
func (f jobForm) job(up binding.Upload) processor.ImageJob {
	mime := f.MimeType
	if mime == "" {
		mime = up.ContentType
	}
	if (mime == "" || mime == "application/octet-stream") && len(up.Data) > 0 {
		mime = mimetype.Detect(up.Data).String()
	}
	name := f.Name
	if name == "" {
		name = up.Filename
	}
	return processor.ImageJob{
		Buffer:        up.Data,
		MimeType:      mime,
		MaxPixel:      f.MaxPixel,
		MaxByte:       f.MaxByte,
		Thumb:         f.Thumb,
		CompressLevel: f.CompressLevel,
		CompressTries: f.CompressTries,
		Name:          name,
		Bucket:        f.Bucket,
	}
}

func (s *Server) bind(w http.ResponseWriter, r *http.Request) (jobForm, processor.ImageJob, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUpload)
	var form jobForm
	up, err := binding.Multipart(r, s.opts.MaxUpload, binding.DefaultFileField, &form)
	if err != nil {
		responder.FromError(w, r, err)
		return jobForm{}, processor.ImageJob{}, false
	}
	return form, s.pipeline.Defaults().Apply(form.job(up)), true
}

// jobView is the JSON shape of a finished job.
type jobView struct {
	Name          string   `json:"name,omitempty"`
	Bucket        string   `json:"bucket,omitempty"`
	MimeType      string   `json:"mimetype"`
	Size          int      `json:"size"`
	MaxByte       int      `json:"maxByte"`
	WithinBudget  bool     `json:"withinBudget"`
	CompressLevel int      `json:"compressLevel,omitempty"`
	ETag          string   `json:"etag,omitempty"`
	PicColors     []string `json:"picColors,omitempty"`
	ColorAverage  string   `json:"colorAverage,omitempty"`
}

func viewOf(job processor.ImageJob) jobView {
	return jobView{
		Name:          job.Name,
		Bucket:        job.Bucket,
		MimeType:      job.MimeType,
		Size:          job.Size,
		MaxByte:       job.MaxByte,
		WithinBudget:  job.Size <= job.MaxByte,
		CompressLevel: job.CompressLevel,
		ETag:          job.ETag,
		PicColors:     job.PicColors,
		ColorAverage:  job.ColorAverage,
	}
}

// handleResize answers with the processed image bytes.
func (s *Server) handleResize(w http.ResponseWriter, r *http.Request) {
	_, job, ok := s.bind(w, r)
	if !ok {
		return
	}

	out, err := s.pipeline.ResizeAndCompress(r.Context(), job)
	if err != nil {
		responder.FromError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", out.MimeType)
	w.Header().Set("Content-Length", strconv.Itoa(len(out.Buffer)))
	w.Header().Set(HeaderImageSize, strconv.Itoa(out.Size))
	w.Header().Set(HeaderWithinBudget, strconv.FormatBool(out.Size <= out.MaxByte))
	if !out.Thumb {
		w.Header().Set(HeaderCompressLvl, strconv.Itoa(out.CompressLevel))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out.Buffer)
}

// handleUpload stores the image. With maxPixel set it is resized and
// compressed first; otherwise the bytes are stored as sent.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	form, job, ok := s.bind(w, r)
	if !ok {
		return
	}
	if form.Async && s.opts.Queue != nil {
		s.enqueueUpload(w, r, form, job)
		return
	}

	out, err := s.pipeline.Process(r.Context(), job, uploadSteps(form))
	if err != nil {
		responder.FromError(w, r, err)
		return
	}
	responder.Created(w, r, viewOf(out))
}

// uploadSteps resizes only when the form names a target size; otherwise
// the image is stored as sent.
func uploadSteps(form jobForm) processor.Steps {
	return processor.Steps{Colors: form.Colors, Upload: true, SkipResize: form.MaxPixel == 0}
}

// enqueueUpload validates up front, since the worker only logs failures,
// and answers 202 with the job ID.
func (s *Server) enqueueUpload(w http.ResponseWriter, r *http.Request, form jobForm, job processor.ImageJob) {
	steps := uploadSteps(form)
	modes := []processor.Mode{processor.ModeResize, processor.ModeUpload}
	if steps.SkipResize {
		modes = modes[1:]
	}
	for _, mode := range modes {
		if err := processor.Validate(job, mode).Err(); err != nil {
			responder.FromError(w, r, err)
			return
		}
	}

	id, err := s.opts.Queue.Submit(queue.Job{Image: job, Steps: steps})
	switch {
	case errors.Is(err, queue.ErrQueueFull), errors.Is(err, queue.ErrStopped):
		responder.WriteError(w, r, http.StatusServiceUnavailable, responder.NewError(responder.ErrCodeServiceBusy, err.Error()))
		return
	case err != nil:
		responder.FromError(w, r, err)
		return
	}
	responder.Write(w, r, http.StatusAccepted, map[string]string{"jobId": id})
}

// handleColors samples the palette of the uploaded image.
func (s *Server) handleColors(w http.ResponseWriter, r *http.Request) {
	_, job, ok := s.bind(w, r)
	if !ok {
		return
	}

	out, err := s.pipeline.ColorPull(r.Context(), job)
	if err != nil {
		responder.FromError(w, r, err)
		return
	}
	responder.OK(w, r, map[string]any{
		"picColors":    out.PicColors,
		"colorAverage": out.ColorAverage,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	responder.OK(w, r, map[string]string{"status": "ok"})
}
