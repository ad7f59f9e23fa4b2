package handlers

import (
	"bytes"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yyup/kindergarten-service/internal/events"
	"github.com/yyup/kindergarten-service/internal/models"
	"github.com/yyup/kindergarten-service/internal/repositories"
)

func TestCheckinRoutes(t *testing.T) {
	srv := newTestServer(t)
	manager := srv.tokenFor(t, models.RoleTeacher, models.PermActivityCheckinManage)

	w := srv.do(t, http.MethodPost, "/api/activity-checkins", srv.tokenFor(t, models.RoleTeacher), map[string]interface{}{})
	require.Equal(t, http.StatusForbidden, w.Code)

	w = srv.do(t, http.MethodPost, "/api/activity-checkins", manager, map[string]interface{}{})
	require.Equal(t, http.StatusCreated, w.Code)
	data := dataOf(t, w)
	assert.NotZero(t, data["id"])
	assert.NotEmpty(t, data["createTime"])

	published := srv.publisher.GetPublishedEvents()
	require.Len(t, published, 1)
	assert.Equal(t, events.CheckinCreated, published[0].Type)

	t.Run("lists are empty pages", func(t *testing.T) {
		for _, path := range []string{"/api/activity-checkins", "/api/activity-checkins/by-activity/3"} {
			w := srv.do(t, http.MethodGet, path, manager, nil)
			require.Equal(t, http.StatusOK, w.Code)
			page := dataOf(t, w)
			assert.Equal(t, []interface{}{}, page["items"])
			assert.Equal(t, float64(0), page["total"])
		}
	})

	t.Run("batch requires registration ids", func(t *testing.T) {
		w := srv.do(t, http.MethodPost, "/api/activity-checkins/batch", manager, map[string]interface{}{})
		require.Equal(t, http.StatusBadRequest, w.Code)

		w = srv.do(t, http.MethodPost, "/api/activity-checkins/batch", manager, map[string]interface{}{"registrationIds": []int{1, 2}})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, float64(2), dataOf(t, w)["successCount"])
	})

	t.Run("records are never readable", func(t *testing.T) {
		w := srv.do(t, http.MethodGet, "/api/activity-checkins/5", manager, nil)
		require.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("stats are zeroed", func(t *testing.T) {
		w := srv.do(t, http.MethodGet, "/api/activity-checkins/5/stats", manager, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, float64(5), dataOf(t, w)["activityId"])
	})
}

func TestActivityRoutes(t *testing.T) {
	srv := newTestServer(t)
	teacher := srv.tokenFor(t, models.RoleTeacher, models.PermActivityCreate)

	w := srv.do(t, http.MethodPost, "/api/activities", teacher, map[string]interface{}{
		"title":     "春游",
		"type":      "outdoor",
		"startTime": "2026-04-01T09:00:00Z",
		"endTime":   "2026-04-01T15:00:00Z",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "draft", dataOf(t, w)["status"])

	w = srv.do(t, http.MethodGet, "/api/activities/statistics", teacher, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = srv.do(t, http.MethodPut, "/api/activities/1/status", teacher, map[string]interface{}{"status": "done"})
	assert.Equal(t, http.StatusForbidden, w.Code, "teachers lack activity:update")

	admin := srv.tokenFor(t, models.RoleAdmin)
	w = srv.do(t, http.MethodPut, "/api/activities/1/status", admin, map[string]interface{}{"status": "done"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNotificationRoutes(t *testing.T) {
	srv := newTestServer(t)
	parent := srv.token(t, models.Identity{UserID: "p1", Role: models.RoleParent})

	w := srv.do(t, http.MethodGet, "/api/notifications/unread/count", parent, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"message":"操作成功","data":{"unread_count":0}}`, w.Body.String())

	principal := srv.tokenFor(t, models.RolePrincipal)
	w = srv.do(t, http.MethodPost, "/api/notifications", principal, map[string]interface{}{
		"title":       "放假通知",
		"content":     "国庆放假七天",
		"type":        "notice",
		"receiverIds": []string{"p1", "p2"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, float64(2), dataOf(t, w)["count"])

	w = srv.do(t, http.MethodGet, "/api/notifications/unread/count", parent, nil)
	assert.Equal(t, float64(1), dataOf(t, w)["unread_count"])

	w = srv.do(t, http.MethodGet, "/api/notifications", parent, nil)
	require.Equal(t, http.StatusOK, w.Code)
	items := dataOf(t, w)["items"].([]interface{})
	require.Len(t, items, 1)
	id := formatID(items[0].(map[string]interface{})["id"].(float64))

	other := srv.token(t, models.Identity{UserID: "p3", Role: models.RoleParent})
	w = srv.do(t, http.MethodGet, "/api/notifications/"+id, other, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = srv.do(t, http.MethodPut, "/api/notifications/"+id+"/read", parent, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = srv.do(t, http.MethodPut, "/api/notifications/read-all", parent, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), dataOf(t, w)["updated"])
}

func TestTaskAttachmentUpload(t *testing.T) {
	srv := newTestServer(t)
	teacher := srv.tokenFor(t, models.RoleTeacher)

	w := srv.do(t, http.MethodPost, "/api/tasks", teacher, map[string]interface{}{"title": "布置教室"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := formatID(dataOf(t, w)["id"].(float64))

	upload := func(fileName, contentType, content string) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="file"; filename="`+fileName+`"`)
		h.Set("Content-Type", contentType)
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/tasks/"+id+"/attachments", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		return srv.send(req, teacher)
	}

	w = upload("plan.pdf", "application/pdf", "%PDF-1.4")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "plan.pdf", dataOf(t, w)["fileName"])

	w = upload("run.exe", "application/x-msdownload", "MZ")
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_FILE", decode(t, w)["code"])

	w = srv.do(t, http.MethodGet, "/api/tasks/"+id+"/attachments", teacher, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["data"], 1)

	w = srv.do(t, http.MethodPut, "/api/tasks/"+id+"/status", teacher, map[string]interface{}{"status": "completed"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotNil(t, dataOf(t, w)["completedAt"])
}

func TestAIChatStream(t *testing.T) {
	message := map[string]interface{}{
		"messages": []map[string]string{{"role": "user", "content": "讲个故事"}},
	}

	t.Run("chunks arrive in order and end with DONE", func(t *testing.T) {
		srv := newTestServer(t, withStreamer(&fakeStreamer{chunks: []string{"从前", "有座山"}}))
		w := srv.do(t, http.MethodPost, "/api/ai/chat/stream", srv.tokenFor(t, models.RoleParent), message)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
		assert.Equal(t, []string{
			`data: {"content":"从前"}`,
			`data: {"content":"有座山"}`,
			`data: [DONE]`,
		}, sseLines(w.Body.String()))
	})

	t.Run("upstream failure is reported in-stream", func(t *testing.T) {
		srv := newTestServer(t, withStreamer(&fakeStreamer{chunks: []string{"从前"}, err: errors.New("reset")}))
		w := srv.do(t, http.MethodPost, "/api/ai/chat/stream", srv.tokenFor(t, models.RoleParent), message)

		lines := sseLines(w.Body.String())
		require.Len(t, lines, 3)
		assert.Contains(t, lines[1], `"error"`)
		assert.Equal(t, "data: [DONE]", lines[2])
	})

	t.Run("no provider is a 503 before streaming", func(t *testing.T) {
		srv := newTestServer(t)
		w := srv.do(t, http.MethodPost, "/api/ai/chat/stream", srv.tokenFor(t, models.RoleParent), message)
		require.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "SERVICE_UNAVAILABLE", decode(t, w)["code"])
	})

	t.Run("empty conversation is rejected", func(t *testing.T) {
		srv := newTestServer(t, withStreamer(&fakeStreamer{}))
		w := srv.do(t, http.MethodPost, "/api/ai/chat/stream", srv.tokenFor(t, models.RoleParent), map[string]interface{}{})
		require.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func sseLines(body string) []string {
	var lines []string
	for _, line := range strings.Split(body, "\n") {
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func TestAIShortcutRoutes(t *testing.T) {
	srv := newTestServer(t)
	parent := srv.token(t, models.Identity{UserID: "p1", Role: models.RoleParent})

	w := srv.do(t, http.MethodGet, "/api/ai/models", parent, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = srv.do(t, http.MethodPost, "/api/ai/shortcuts", parent, map[string]interface{}{"name": "睡前故事", "prompt": "讲一个睡前故事"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = srv.do(t, http.MethodPost, "/api/ai/shortcuts", parent, map[string]interface{}{"name": "睡前故事", "prompt": "x"})
	require.Equal(t, http.StatusConflict, w.Code)

	w = srv.do(t, http.MethodGet, "/api/ai/shortcuts", parent, nil)
	assert.Equal(t, float64(1), dataOf(t, w)["total"])

	w = srv.do(t, http.MethodGet, "/api/ai/analysis/3", parent, nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestPublicMetadataRoutes(t *testing.T) {
	srv := newTestServer(t)
	srv.repo.AddTable(testSchema, "students",
		repositories.ColumnInfo{Name: "id", DataType: "bigint"},
		repositories.ColumnInfo{Name: "name", DataType: "character varying"},
	)

	w := srv.do(t, http.MethodGet, "/api/db-metadata/tables?tenant=KINDERGARTEN", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []interface{}{"students"}, dataOf(t, w)["tables"])

	w = srv.do(t, http.MethodGet, "/api/db-metadata/tables/students/columns", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, dataOf(t, w)["columns"], 2)

	w = srv.do(t, http.MethodGet, "/api/db-metadata/tables/missing/columns", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = srv.do(t, http.MethodGet, "/api/db-metadata/tables?tenant=public", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = srv.do(t, http.MethodGet, "/api/documents/formats", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decode(t, w)["data"])
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	w := srv.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, map[string]interface{}{"database": "up", "redis": "up"}, body["checks"])

	srv.repo.PingErr = errors.New("down")
	w = srv.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
