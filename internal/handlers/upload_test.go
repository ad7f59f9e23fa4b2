package handlers

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uploadEngine(limits uploadLimits) *gin.Engine {
	engine := gin.New()
	engine.POST("/upload", func(c *gin.Context) {
		header, ok := receiveFile(c, limits)
		if !ok {
			return
		}
		c.String(http.StatusOK, header.Filename)
	})
	return engine
}

func multipartBody(t *testing.T, field, fileName string, content io.Reader) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, fileName)
	require.NoError(t, err)
	_, err = io.Copy(part, content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestReceiveFile(t *testing.T) {
	limits := uploadLimits{field: "file", maxSize: 1 << 10, missingMsg: "请上传文件", tooBigMsg: "文件太大"}
	engine := uploadEngine(limits)

	post := func(body io.Reader, contentType string, contentLength int64) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/upload", body)
		req.Header.Set("Content-Type", contentType)
		req.ContentLength = contentLength
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		return w
	}

	t.Run("file within the limit", func(t *testing.T) {
		body, ct := multipartBody(t, "file", "a.csv", strings.NewReader("姓名,学号\n"))
		w := post(body, ct, int64(body.Len()))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "a.csv", w.Body.String())
	})

	t.Run("missing file part", func(t *testing.T) {
		body, ct := multipartBody(t, "other", "a.csv", strings.NewReader("x"))
		w := post(body, ct, int64(body.Len()))
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "请上传文件", decode(t, w)["message"])
	})

	t.Run("file over the limit but inside the body cap", func(t *testing.T) {
		body, ct := multipartBody(t, "file", "a.csv", bytes.NewReader(make([]byte, 2<<10)))
		w := post(body, ct, int64(body.Len()))
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "文件太大", decode(t, w)["message"])
	})

	t.Run("declared body over the cap", func(t *testing.T) {
		body, ct := multipartBody(t, "file", "a.csv", bytes.NewReader(make([]byte, 2<<20)))
		w := post(body, ct, int64(body.Len()))
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "文件太大", decode(t, w)["message"])
		assert.Equal(t, "INVALID_FILE", decode(t, w)["code"])
	})

	t.Run("chunked body over the cap", func(t *testing.T) {
		body, ct := multipartBody(t, "file", "a.csv", bytes.NewReader(make([]byte, 2<<20)))
		w := post(body, ct, -1)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "文件太大", decode(t, w)["message"])
	})
}
