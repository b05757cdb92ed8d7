package binding

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type resizeForm struct {
	MaxPixel int    `form:"maxPixel" validate:"gte=0"`
	MaxByte  int    `form:"maxByte" validate:"gte=0"`
	Thumb    bool   `form:"thumb"`
	MimeType string `form:"mimetype"`
}

func multipartRequest(t *testing.T, fields map[string]string, file []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if file != nil {
		fw, err := mw.CreateFormFile("file", "a.jpg")
		require.NoError(t, err)
		_, err = fw.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestMultipartDecodesFieldsAndFile(t *testing.T) {
	req := multipartRequest(t, map[string]string{
		"maxPixel": "800",
		"thumb":    "true",
		"mimetype": "image/jpeg",
	}, []byte{0xFF, 0xD8, 0xFF, 0x00})

	var form resizeForm
	up, err := Multipart(req, 1<<20, "", &form)
	require.NoError(t, err)

	assert.Equal(t, 800, form.MaxPixel)
	assert.True(t, form.Thumb)
	assert.Equal(t, "image/jpeg", form.MimeType)
	assert.Equal(t, "a.jpg", up.Filename)
	assert.Equal(t, []byte{0xFF, 0xD8, 0xFF, 0x00}, up.Data)
}

func TestMultipartMissingFileIsEmpty(t *testing.T) {
	req := multipartRequest(t, map[string]string{"maxPixel": "10"}, nil)

	var form resizeForm
	up, err := Multipart(req, 1<<20, "file", &form)
	require.NoError(t, err)
	assert.Empty(t, up.Data)
}

func TestMultipartRejectsNonMultipart(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString("{}"))
	req.Header.Set("Content-Type", "application/json")

	_, err := Multipart(req, 1<<20, "", &resizeForm{})
	var be *BindError
	assert.ErrorAs(t, err, &be)
}

func TestFormValidationErrors(t *testing.T) {
	var form resizeForm
	err := Form(map[string][]string{"maxPixel": {"-5"}}, &form)

	var ve ValidationErrors
	require.ErrorAs(t, err, &ve)
	require.Len(t, ve, 1)
	assert.Equal(t, "maxPixel", ve[0].Field)
	assert.Equal(t, "must be greater than or equal to 0", ve[0].Message)
}

func TestFormRejectsBadNumbers(t *testing.T) {
	err := Form(map[string][]string{"maxPixel": {"wide"}}, &resizeForm{})
	var be *BindError
	assert.ErrorAs(t, err, &be)
}
