package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"bizdesk/internal/clipboard"
	"bizdesk/internal/config"
	"bizdesk/internal/models"
	"bizdesk/internal/reveal"
	"bizdesk/internal/service/workspace"
	"bizdesk/internal/storage"
	"bizdesk/internal/upload"
	"bizdesk/internal/worker"
)

func TestEntitiesAndValidation(t *testing.T) {
	router, _ := newTestServer(t, &memoryClipboard{})

	resp := doJSONRequest(t, router, http.MethodGet, "/api/entities", nil, nil)
	assertStatus(t, resp, http.StatusOK)
	var list struct {
		Entities []models.Entity `json:"entities"`
	}
	decodeJSON(t, resp.Body.Bytes(), &list)
	if len(list.Entities) != 3 || list.Entities[0].Name != "Main Restaurant LLC" {
		t.Fatalf("unexpected entities: %+v", list.Entities)
	}

	resp = doJSONRequest(t, router, http.MethodPost, "/api/entities", map[string]string{"name": ""}, nil)
	assertStatus(t, resp, http.StatusBadRequest)
	var verr struct {
		Fields map[string]string `json:"fields"`
	}
	decodeJSON(t, resp.Body.Bytes(), &verr)
	if verr.Fields["name"] == "" {
		t.Fatalf("expected name field error, got %s", resp.Body.String())
	}

	resp = doJSONRequest(t, router, http.MethodGet, "/api/entities/missing", nil, nil)
	assertStatus(t, resp, http.StatusNotFound)

	resp = doJSONRequest(t, router, http.MethodPost, "/api/folders", map[string]string{"name": "licenses"}, nil)
	assertStatus(t, resp, http.StatusConflict)

	resp = doJSONRequest(t, router, http.MethodGet, "/api/search?q=chase&filter=bogus", nil, nil)
	assertStatus(t, resp, http.StatusBadRequest)
}

func TestAccountSecretsMaskedUntilRevealed(t *testing.T) {
	router, _ := newTestServer(t, &memoryClipboard{})

	resp := doJSONRequest(t, router, http.MethodGet, "/api/accounts/a1", nil, nil)
	assertStatus(t, resp, http.StatusOK)
	var acct models.BankAccount
	decodeJSON(t, resp.Body.Bytes(), &acct)
	if acct.Password != reveal.Mask("x") {
		t.Fatalf("password should be masked without a view: %+v", acct)
	}
	if acct.AccountNumber != "••••••••7890" {
		t.Fatalf("account number should keep its last four digits, got %q", acct.AccountNumber)
	}
	if acct.Username != "admin_rest" {
		t.Fatalf("username should stay visible: %q", acct.Username)
	}

	viewID := openView(t, router)
	resp = doJSONRequest(t, router, http.MethodPost, "/api/views/"+viewID+"/reveal",
		map[string]string{"field_key": "account:a1:password"}, nil)
	assertStatus(t, resp, http.StatusOK)

	resp = doJSONRequest(t, router, http.MethodGet, "/api/accounts/a1?view="+viewID, nil, nil)
	assertStatus(t, resp, http.StatusOK)
	decodeJSON(t, resp.Body.Bytes(), &acct)
	if acct.Password != "securePassword123" {
		t.Fatalf("password should be revealed, got %q", acct.Password)
	}
	if acct.AccountNumber != "••••••••7890" {
		t.Fatalf("account number should still be masked, got %q", acct.AccountNumber)
	}

	resp = doJSONRequest(t, router, http.MethodPost, "/api/views/"+viewID+"/reveal",
		map[string]string{"field_key": "account:a1:account_number"}, nil)
	assertStatus(t, resp, http.StatusOK)
	resp = doJSONRequest(t, router, http.MethodGet, "/api/accounts/a1?view="+viewID, nil, nil)
	assertStatus(t, resp, http.StatusOK)
	decodeJSON(t, resp.Body.Bytes(), &acct)
	if acct.AccountNumber != "1234567890" {
		t.Fatalf("account number should be revealed, got %q", acct.AccountNumber)
	}

	resp = doJSONRequest(t, router, http.MethodGet, "/api/accounts/a1?view=unknown", nil, nil)
	assertStatus(t, resp, http.StatusNotFound)

	resp = doJSONRequest(t, router, http.MethodPost, "/api/views/"+viewID+"/reveal",
		map[string]string{"field_key": "password"}, nil)
	assertStatus(t, resp, http.StatusBadRequest)
}

func TestCopyWritesClipboard(t *testing.T) {
	clip := &memoryClipboard{}
	router, _ := newTestServer(t, clip)
	viewID := openView(t, router)

	resp := doJSONRequest(t, router, http.MethodPost, "/api/views/"+viewID+"/copy",
		map[string]string{"field_key": "portal:gov2:password"}, nil)
	assertStatus(t, resp, http.StatusOK)
	if clip.text() != "MuqeemPass2023" {
		t.Fatalf("clipboard holds %q", clip.text())
	}

	resp = doJSONRequest(t, router, http.MethodGet, "/api/views/"+viewID+"/copy?field_key=portal:gov2:password", nil, nil)
	assertStatus(t, resp, http.StatusOK)
	var state struct {
		Copied bool `json:"copied"`
	}
	decodeJSON(t, resp.Body.Bytes(), &state)
	if !state.Copied {
		t.Fatalf("field should show copied")
	}

	resp = doJSONRequest(t, router, http.MethodPost, "/api/views/"+viewID+"/copy",
		map[string]string{"field_key": "portal:gov2:url"}, nil)
	assertStatus(t, resp, http.StatusBadRequest)
}

func TestCopyWithoutClipboard(t *testing.T) {
	router, _ := newTestServer(t, nil)
	viewID := openView(t, router)
	resp := doJSONRequest(t, router, http.MethodPost, "/api/views/"+viewID+"/copy",
		map[string]string{"field_key": "account:a1:password"}, nil)
	assertStatus(t, resp, http.StatusServiceUnavailable)
}

func TestUploadJSONCompletesIntoFolder(t *testing.T) {
	router, _ := newTestServer(t, &memoryClipboard{})
	viewID := openView(t, router)

	resp := doJSONRequest(t, router, http.MethodPost, "/api/views/"+viewID+"/uploads", map[string]any{
		"entity_id": "1",
		"folder":    "Licenses",
		"files": []map[string]any{
			{"name": "Trade License 2024.pdf", "size": 1536},
			{"name": "Stamp.png", "size": 2048},
		},
	}, nil)
	assertStatus(t, resp, http.StatusAccepted)
	var batch upload.BatchSnapshot
	decodeJSON(t, resp.Body.Bytes(), &batch)
	if batch.ID == "" || len(batch.Tasks) != 2 || batch.Tasks[0].SizeLabel != "1.5 kB" {
		t.Fatalf("unexpected batch: %+v", batch)
	}

	snap := waitBatch(t, router, viewID, batch.ID)
	if snap.State != upload.StateComplete {
		t.Fatalf("expected complete batch, got %s", snap.State)
	}

	resp = doJSONRequest(t, router, http.MethodGet, "/api/documents?folder=Licenses", nil, nil)
	assertStatus(t, resp, http.StatusOK)
	var docs struct {
		Documents []models.Document `json:"documents"`
	}
	decodeJSON(t, resp.Body.Bytes(), &docs)
	if len(docs.Documents) != 4 {
		t.Fatalf("expected 4 documents, got %d", len(docs.Documents))
	}
	if docs.Documents[0].Name != "Trade License 2024.pdf" || docs.Documents[1].Type != models.DocumentImage {
		t.Fatalf("uploaded documents should come first: %+v", docs.Documents[:2])
	}
}

func TestUploadMultipartUsesFileHeaders(t *testing.T) {
	router, _ := newTestServer(t, &memoryClipboard{})
	viewID := openView(t, router)

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	_ = mw.WriteField("folder", "Receipts")
	part, err := mw.CreateFormFile("files", "receipt.xlsx")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	part.Write([]byte("not really a spreadsheet"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/views/"+viewID+"/uploads", body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assertStatus(t, rec, http.StatusAccepted)

	var batch upload.BatchSnapshot
	decodeJSON(t, rec.Body.Bytes(), &batch)
	if len(batch.Tasks) != 1 || batch.Tasks[0].FileName != "receipt.xlsx" || batch.Tasks[0].Size != 24 {
		t.Fatalf("unexpected batch: %+v", batch)
	}
	if snap := waitBatch(t, router, viewID, batch.ID); len(snap.Documents) != 1 || snap.Documents[0].Type != models.DocumentSheet {
		t.Fatalf("unexpected documents: %+v", snap.Documents)
	}
}

func TestUploadRejectsBadRequests(t *testing.T) {
	router, _ := newTestServer(t, &memoryClipboard{})
	viewID := openView(t, router)

	resp := doJSONRequest(t, router, http.MethodPost, "/api/views/"+viewID+"/uploads",
		map[string]any{"folder": "Licenses", "files": []any{}}, nil)
	assertStatus(t, resp, http.StatusBadRequest)

	resp = doJSONRequest(t, router, http.MethodPost, "/api/views/"+viewID+"/uploads",
		map[string]any{"folder": "Nowhere", "files": []map[string]any{{"name": "a.pdf", "size": 1}}}, nil)
	assertStatus(t, resp, http.StatusNotFound)

	resp = doJSONRequest(t, router, http.MethodPost, "/api/views/"+viewID+"/uploads",
		map[string]any{"folder": "Licenses", "files": []map[string]any{{"name": "", "size": 1}}}, nil)
	assertStatus(t, resp, http.StatusBadRequest)

	resp = doJSONRequest(t, router, http.MethodGet, "/api/views/"+viewID+"/uploads/missing", nil, nil)
	assertStatus(t, resp, http.StatusNotFound)
}

func TestCancelUploadCreatesNoDocuments(t *testing.T) {
	router, _ := newTestServerWithTick(t, &memoryClipboard{}, time.Hour)
	viewID := openView(t, router)

	resp := doJSONRequest(t, router, http.MethodPost, "/api/views/"+viewID+"/uploads", map[string]any{
		"folder": "Identity",
		"files":  []map[string]any{{"name": "passport.jpg", "size": 100}},
	}, nil)
	assertStatus(t, resp, http.StatusAccepted)
	var batch upload.BatchSnapshot
	decodeJSON(t, resp.Body.Bytes(), &batch)

	resp = doJSONRequest(t, router, http.MethodDelete, "/api/views/"+viewID+"/uploads/"+batch.ID, nil, nil)
	assertStatus(t, resp, http.StatusOK)
	decodeJSON(t, resp.Body.Bytes(), &batch)
	if batch.State != upload.StateAborted {
		t.Fatalf("expected aborted batch, got %s", batch.State)
	}

	resp = doJSONRequest(t, router, http.MethodGet, "/api/documents?folder=Identity", nil, nil)
	assertStatus(t, resp, http.StatusOK)
	var docs struct {
		Documents []models.Document `json:"documents"`
	}
	decodeJSON(t, resp.Body.Bytes(), &docs)
	if len(docs.Documents) != 0 {
		t.Fatalf("cancelled upload created documents: %+v", docs.Documents)
	}
}

func TestEventStreamEndsWhenViewCloses(t *testing.T) {
	clip := &memoryClipboard{}
	router, _ := newTestServer(t, clip)
	srv := httptest.NewServer(router)
	defer srv.Close()

	viewID := openView(t, router)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/views/"+viewID+"/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("unexpected content type %q", ct)
	}

	events := make(chan string, 16)
	go func() {
		defer close(events)
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			if line := scanner.Text(); strings.HasPrefix(line, "event: ") {
				events <- strings.TrimPrefix(line, "event: ")
			}
		}
	}()

	expectEvent(t, events, "ready")
	copyResp := doJSONRequest(t, router, http.MethodPost, "/api/views/"+viewID+"/copy",
		map[string]string{"field_key": "account:a2:username"}, nil)
	assertStatus(t, copyResp, http.StatusOK)
	expectEvent(t, events, string(worker.EventCopied))

	closeResp := doJSONRequest(t, router, http.MethodDelete, "/api/views/"+viewID, nil, nil)
	assertStatus(t, closeResp, http.StatusNoContent)
	expectEvent(t, events, "closed")

	again := doJSONRequest(t, router, http.MethodDelete, "/api/views/"+viewID, nil, nil)
	assertStatus(t, again, http.StatusNotFound)
}

func expectEvent(t *testing.T, events <-chan string, want string) {
	t.Helper()
	timeout := time.After(3 * time.Second)
	for {
		select {
		case got, ok := <-events:
			if !ok {
				t.Fatalf("stream ended before %q", want)
			}
			if got == want {
				return
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %q", want)
		}
	}
}

func waitBatch(t *testing.T, router *gin.Engine, viewID, batchID string) upload.BatchSnapshot {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		resp := doJSONRequest(t, router, http.MethodGet, "/api/views/"+viewID+"/uploads/"+batchID, nil, nil)
		assertStatus(t, resp, http.StatusOK)
		var snap upload.BatchSnapshot
		decodeJSON(t, resp.Body.Bytes(), &snap)
		if snap.State == upload.StateComplete && len(snap.Documents) > 0 {
			return snap
		}
		if snap.State == upload.StateAborted {
			return snap
		}
		if time.Now().After(deadline) {
			t.Fatalf("batch %s did not finish: %+v", batchID, snap)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

type memoryClipboard struct {
	mu   sync.Mutex
	last string
}

func (m *memoryClipboard) WriteText(_ context.Context, text string) error {
	m.mu.Lock()
	m.last = text
	m.mu.Unlock()
	return nil
}

func (m *memoryClipboard) text() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

func newTestServer(t *testing.T, clip *memoryClipboard) (*gin.Engine, *workspace.Service) {
	return newTestServerWithTick(t, clip, 5*time.Millisecond)
}

func newTestServerWithTick(t *testing.T, clip *memoryClipboard, tick time.Duration) (*gin.Engine, *workspace.Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := storage.Open("sqlite3", config.Default())
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := storage.Migrate(db, "sqlite3"); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	svc, err := workspace.NewService(db, "handler-test-secret")
	if err != nil {
		t.Fatalf("workspace: %v", err)
	}
	svc.SetClock(func() time.Time { return time.Date(2023, 12, 15, 10, 0, 0, 0, time.UTC) })
	if _, err := svc.Seed(context.Background()); err != nil {
		t.Fatalf("seed: %v", err)
	}

	var writer clipboard.Writer
	if clip != nil {
		writer = clip
	}
	manager := worker.NewManager(svc, worker.DispatcherConfig{MinWorkers: 1, MaxWorkers: 2, QueueSize: 8}, worker.Options{
		Clipboard:       writer,
		ClipboardExpiry: time.Minute,
		Upload:          upload.Options{TickInterval: tick, MinStep: 50, MaxStep: 50},
	})
	t.Cleanup(manager.Shutdown)

	router := gin.New()
	NewHandler(svc, manager, nil).RegisterRoutes(router)
	return router, svc
}

func openView(t *testing.T, router *gin.Engine) string {
	t.Helper()
	resp := doJSONRequest(t, router, http.MethodPost, "/api/views", nil, nil)
	assertStatus(t, resp, http.StatusCreated)
	var body struct {
		ViewID string `json:"view_id"`
	}
	decodeJSON(t, resp.Body.Bytes(), &body)
	if body.ViewID == "" {
		t.Fatalf("expected view id")
	}
	return body.ViewID
}

func doJSONRequest(t *testing.T, router *gin.Engine, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, data []byte, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("decode json: %v", err)
	}
}

func assertStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("unexpected status %d, body: %s", rec.Code, rec.Body.String())
	}
}
