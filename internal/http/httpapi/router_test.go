package httpapi

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"brandstudio/internal/domain"
	"brandstudio/internal/http/handlers"
	"brandstudio/internal/providers/image"
	"brandstudio/internal/providers/strategy"
	"brandstudio/internal/providers/style"
	"brandstudio/internal/session"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDRfake")

type generateFunc func(ctx context.Context, req image.Request) (*image.Result, error)

func (f generateFunc) Generate(ctx context.Context, req image.Request) (*image.Result, error) {
	return f(ctx, req)
}

func okGenerator(context.Context, image.Request) (*image.Result, error) {
	return &image.Result{MIMEType: "image/png", Data: pngBytes}, nil
}

type testServer struct {
	handler  http.Handler
	sessions *session.Manager
}

func newTestServer(t *testing.T, gen generateFunc) *testServer {
	t.Helper()
	mgr := session.NewManager(session.Dependencies{
		Analyzer:  strategy.Static{},
		Suggester: style.Static{},
		Generator: gen,
		Logger:    zerolog.Nop(),
	}, time.Hour)
	t.Cleanup(mgr.Close)
	app := handlers.NewApp(mgr, zerolog.Nop(), 1<<20, []string{"https://studio.example.com"})
	app.Now = func() time.Time { return time.UnixMilli(1700000000000) }
	return &testServer{
		handler: NewRouter(app, Options{
			Logger:          zerolog.Nop(),
			CORSOrigins:     []string{"https://studio.example.com"},
			DefaultLocale:   "vi",
			RateLimitPerMin: 1000,
		}),
		sessions: mgr,
	}
}

func (s *testServer) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case []byte:
		reader = bytes.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decodeSnapshot(t *testing.T, rec *httptest.ResponseRecorder) session.Snapshot {
	t.Helper()
	var snap session.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode snapshot: %v\n%s", err, rec.Body.String())
	}
	return snap
}

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Session *session.Snapshot `json:"session"`
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorEnvelope {
	t.Helper()
	var env errorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode error: %v\n%s", err, rec.Body.String())
	}
	return env
}

// createReady creates a session with a product image and applied suggestions.
func (s *testServer) createReady(t *testing.T, headers ...string) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/v1/sessions", nil, headers...)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}
	id := decodeSnapshot(t, rec).ID

	rec = s.do(t, http.MethodPut, "/v1/sessions/"+id+"/assets/product", map[string]string{
		"data":     "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes),
		"filename": "product.png",
	}, headers...)
	if rec.Code != http.StatusOK {
		t.Fatalf("upload status = %d: %s", rec.Code, rec.Body.String())
	}
	sess, err := s.sessions.Get(id)
	if err != nil {
		t.Fatalf("session lookup: %v", err)
	}
	sess.WaitSuggestions()
	return id
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, okGenerator)
	rec := srv.do(t, http.MethodGet, "/v1/healthz", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Fatalf("health = %d %s", rec.Code, rec.Body.String())
	}
}

func TestCreateSessionNegotiatesLocale(t *testing.T) {
	srv := newTestServer(t, okGenerator)
	rec := srv.do(t, http.MethodPost, "/v1/sessions", nil, "Accept-Language", "en-US,en;q=0.9")
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d", rec.Code)
	}
	snap := decodeSnapshot(t, rec)
	if snap.Locale != "en" || snap.Phase != session.PhaseIdle {
		t.Fatalf("snapshot = %+v", snap)
	}
	if snap.Params != domain.DefaultParams() {
		t.Fatalf("params = %+v", snap.Params)
	}
	if rec.Header().Get("Location") != "/v1/sessions/"+snap.ID {
		t.Fatalf("Location = %q", rec.Header().Get("Location"))
	}
}

func TestStudioFlow(t *testing.T) {
	srv := newTestServer(t, okGenerator)
	id := srv.createReady(t)
	base := "/v1/sessions/" + id

	snap := decodeSnapshot(t, srv.do(t, http.MethodGet, base, nil))
	if len(snap.Styles) != 4 || snap.Phase != session.PhaseReady {
		t.Fatalf("styles = %v phase = %s", snap.Styles, snap.Phase)
	}
	if snap.Advisory == "" {
		t.Fatal("fallback styles should carry an advisory")
	}

	rec := srv.do(t, http.MethodPatch, base+"/params", map[string]string{"aspect_ratio": "9:16", "overlay_text": "Giảm giá"})
	if rec.Code != http.StatusOK {
		t.Fatalf("params status = %d: %s", rec.Code, rec.Body.String())
	}
	if got := decodeSnapshot(t, rec).Params.AspectRatio; got != domain.AspectPortrait {
		t.Fatalf("aspect = %q", got)
	}

	rec = srv.do(t, http.MethodPost, base+"/generate", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("generate status = %d: %s", rec.Code, rec.Body.String())
	}
	snap = decodeSnapshot(t, rec)
	if len(snap.Images) != 4 || snap.Selected == nil || snap.Selected.Style != snap.Styles[0] {
		t.Fatalf("images = %+v selected = %+v", snap.Images, snap.Selected)
	}

	rec = srv.do(t, http.MethodGet, base+"/images/1/download", nil)
	if rec.Code != http.StatusOK || !bytes.Equal(rec.Body.Bytes(), pngBytes) {
		t.Fatalf("download = %d", rec.Code)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.HasPrefix(cd, "attachment;") || !strings.Contains(cd, "1700000000000.png") {
		t.Fatalf("Content-Disposition = %q", cd)
	}
	if rec := srv.do(t, http.MethodGet, base+"/images/9/download", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("missing image status = %d", rec.Code)
	}

	rec = srv.do(t, http.MethodGet, base+"/images.zip", nil)
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "application/zip" {
		t.Fatalf("zip = %d %q", rec.Code, rec.Header().Get("Content-Type"))
	}

	rec = srv.do(t, http.MethodPut, base+"/selection", map[string]string{"style": snap.Styles[2]})
	if rec.Code != http.StatusOK || decodeSnapshot(t, rec).Selected.Style != snap.Styles[2] {
		t.Fatalf("select = %d %s", rec.Code, rec.Body.String())
	}

	rec = srv.do(t, http.MethodPost, base+"/regenerate", map[string]string{"style": snap.Styles[2]})
	if rec.Code != http.StatusOK {
		t.Fatalf("regenerate status = %d: %s", rec.Code, rec.Body.String())
	}
	if sel := decodeSnapshot(t, rec).Selected; sel == nil || sel.Style != snap.Styles[2] {
		t.Fatalf("selection after regenerate = %+v", sel)
	}

	rec = srv.do(t, http.MethodPut, base+"/selection", map[string]string{"style": "Nope"})
	if rec.Code != http.StatusUnprocessableEntity || decodeError(t, rec).Error.Code != "style_not_generated" {
		t.Fatalf("unknown selection = %d %s", rec.Code, rec.Body.String())
	}

	rec = srv.do(t, http.MethodPost, base+"/reset", nil)
	snap = decodeSnapshot(t, rec)
	if len(snap.Images) != 0 || len(snap.Assets) != 0 || snap.Phase != session.PhaseIdle {
		t.Fatalf("reset snapshot = %+v", snap)
	}

	if rec := srv.do(t, http.MethodDelete, base, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	if rec := srv.do(t, http.MethodGet, base, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete = %d", rec.Code)
	}
}

func TestGenerateValidationErrorsAreLocalized(t *testing.T) {
	srv := newTestServer(t, okGenerator)
	rec := srv.do(t, http.MethodPost, "/v1/sessions", nil, "X-Locale", "en")
	id := decodeSnapshot(t, rec).ID

	rec = srv.do(t, http.MethodPost, "/v1/sessions/"+id+"/generate", nil, "X-Locale", "en")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", rec.Code)
	}
	env := decodeError(t, rec)
	if env.Error.Code != "product_required" || env.Error.Message != "Please upload a Product image to continue." {
		t.Fatalf("error = %+v", env.Error)
	}

	rec = srv.do(t, http.MethodPost, "/v1/sessions/"+id+"/generate", nil)
	if msg := decodeError(t, rec).Error.Message; msg != "Vui lòng tải lên ảnh Sản Phẩm để tiếp tục." {
		t.Fatalf("vi message = %q", msg)
	}
}

func TestGenerateFailureReturnsBadGateway(t *testing.T) {
	srv := newTestServer(t, func(context.Context, image.Request) (*image.Result, error) {
		return nil, domain.ErrNoImageReturned
	})
	id := srv.createReady(t)

	rec := srv.do(t, http.MethodPost, "/v1/sessions/"+id+"/generate", nil)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	env := decodeError(t, rec)
	if env.Error.Code != "batch_failed" {
		t.Fatalf("code = %q", env.Error.Code)
	}
	if env.Session == nil || len(env.Session.Images) != 0 || env.Session.Generating {
		t.Fatalf("session = %+v", env.Session)
	}
}

func TestUnknownSession(t *testing.T) {
	srv := newTestServer(t, okGenerator)
	rec := srv.do(t, http.MethodGet, "/v1/sessions/does-not-exist", nil)
	if rec.Code != http.StatusNotFound || decodeError(t, rec).Error.Code != "session_not_found" {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
}

func TestUploadValidation(t *testing.T) {
	srv := newTestServer(t, okGenerator)
	id := decodeSnapshot(t, srv.do(t, http.MethodPost, "/v1/sessions", nil)).ID
	base := "/v1/sessions/" + id

	tests := []struct {
		name string
		path string
		body any
		code string
	}{
		{"unknown slot", base + "/assets/banner", map[string]string{"data": base64.StdEncoding.EncodeToString(pngBytes)}, "invalid_asset"},
		{"not an image", base + "/assets/logo", map[string]string{"data": base64.StdEncoding.EncodeToString([]byte("hello"))}, "invalid_asset"},
		{"bad base64", base + "/assets/logo", map[string]string{"data": "***"}, "invalid_asset"},
		{"too large", base + "/assets/logo", map[string]string{"data": base64.StdEncoding.EncodeToString(append(append([]byte{}, pngBytes...), make([]byte, 1<<20)...))}, "invalid_asset"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := srv.do(t, http.MethodPut, tc.path, tc.body)
			if rec.Code != http.StatusBadRequest || decodeError(t, rec).Error.Code != tc.code {
				t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestMultipartUpload(t *testing.T) {
	srv := newTestServer(t, okGenerator)
	id := decodeSnapshot(t, srv.do(t, http.MethodPost, "/v1/sessions", nil)).ID

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "logo.png")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	_, _ = fw.Write(pngBytes)
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPut, "/v1/sessions/"+id+"/assets/logo", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	asset, ok := decodeSnapshot(t, rec).Assets[domain.SlotLogo]
	if !ok || asset.Filename != "logo.png" || asset.MIMEType != "image/png" || asset.Bytes != len(pngBytes) {
		t.Fatalf("logo asset = %+v", asset)
	}

	rec = srv.do(t, http.MethodDelete, "/v1/sessions/"+id+"/assets/logo", nil)
	if _, ok := decodeSnapshot(t, rec).Assets[domain.SlotLogo]; ok {
		t.Fatal("logo not cleared")
	}
}

func TestAnalyzeEndpoint(t *testing.T) {
	srv := newTestServer(t, okGenerator)
	id := decodeSnapshot(t, srv.do(t, http.MethodPost, "/v1/sessions", nil)).ID
	base := "/v1/sessions/" + id

	if rec := srv.do(t, http.MethodPost, base+"/analyze", nil); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("empty analyze status = %d", rec.Code)
	}
	rec := srv.do(t, http.MethodPost, base+"/analyze", map[string]string{"article": "Khai trương cửa hàng mới"})
	if rec.Code != http.StatusOK {
		t.Fatalf("analyze status = %d: %s", rec.Code, rec.Body.String())
	}
	snap := decodeSnapshot(t, rec)
	if snap.Strategy == nil || !snap.Strategy.NeedsHuman || !snap.ShowModelUpload {
		t.Fatalf("strategy = %+v show = %v", snap.Strategy, snap.ShowModelUpload)
	}

	rec = srv.do(t, http.MethodPut, base+"/model-override", map[string]bool{"enabled": true})
	if !decodeSnapshot(t, rec).ModelUploadOverride {
		t.Fatal("override not applied")
	}
	if rec := srv.do(t, http.MethodPost, base+"/styles/refresh", nil); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("refresh without product = %d", rec.Code)
	}
}

func TestEventsStream(t *testing.T) {
	srv := newTestServer(t, okGenerator)
	ts := httptest.NewServer(srv.handler)
	defer ts.Close()

	sess := srv.sessions.Create("vi")
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/sessions/" + sess.ID() + "/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"https://studio.example.com"}})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var first session.Snapshot
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read initial snapshot: %v", err)
	}
	if first.ID != sess.ID() {
		t.Fatalf("initial snapshot id = %q", first.ID)
	}

	// wait until the handler has subscribed before mutating
	deadline := time.Now().Add(2 * time.Second)
	for srv.sessions.Hub().Subscribers(sess.ID()) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	sess.SetModelUploadOverride(true)

	var next session.Snapshot
	if err := conn.ReadJSON(&next); err != nil {
		t.Fatalf("read update: %v", err)
	}
	if !next.ModelUploadOverride || next.Version <= first.Version {
		t.Fatalf("update = %+v", next)
	}

	if err := srv.sessions.Delete(sess.ID()); err != nil {
		t.Fatalf("delete: %v", err)
	}
	_, _, err = conn.ReadMessage()
	var closeErr *websocket.CloseError
	if !errors.As(err, &closeErr) || closeErr.Code != websocket.CloseGoingAway {
		t.Fatalf("expected going-away close, got %v", err)
	}
}

func TestEventsRejectsForeignOrigin(t *testing.T) {
	srv := newTestServer(t, okGenerator)
	ts := httptest.NewServer(srv.handler)
	defer ts.Close()

	sess := srv.sessions.Create("vi")
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/sessions/" + sess.ID() + "/events"
	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"https://evil.example.com"}})
	if err == nil {
		t.Fatal("expected handshake failure")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("response = %+v", resp)
	}
}

func TestEventsRotateLoadingMessage(t *testing.T) {
	var clock atomic.Int64
	clock.Store(time.UnixMilli(1700000000000).UnixNano())
	release := make(chan struct{})
	mgr := session.NewManager(session.Dependencies{
		Analyzer:  strategy.Static{},
		Suggester: style.Static{},
		Generator: generateFunc(func(ctx context.Context, req image.Request) (*image.Result, error) {
			<-release
			return okGenerator(ctx, req)
		}),
		Logger: zerolog.Nop(),
		Now:    func() time.Time { return time.Unix(0, clock.Load()) },
	}, time.Hour)
	t.Cleanup(mgr.Close)
	app := handlers.NewApp(mgr, zerolog.Nop(), 1<<20, nil)
	app.LoadingRefresh = 10 * time.Millisecond
	ts := httptest.NewServer(NewRouter(app, Options{Logger: zerolog.Nop(), DefaultLocale: "vi"}))
	defer ts.Close()

	sess := mgr.Create("vi")
	img, err := domain.DecodeUpload(domain.SlotProduct, "product.png", "", pngBytes)
	if err != nil {
		t.Fatalf("DecodeUpload: %v", err)
	}
	sess.SetAsset(domain.SlotProduct, img)
	sess.WaitSuggestions()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/sessions/" + sess.ID() + "/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	readUntil := func(match func(session.Snapshot) bool) session.Snapshot {
		t.Helper()
		for {
			var snap session.Snapshot
			if err := conn.ReadJSON(&snap); err != nil {
				t.Fatalf("read snapshot: %v", err)
			}
			if match(snap) {
				return snap
			}
		}
	}
	readUntil(func(s session.Snapshot) bool { return s.ID == sess.ID() })

	done := make(chan error, 1)
	go func() {
		_, err := sess.Generate(context.Background())
		done <- err
	}()

	msgs := domain.LoadingMessages["vi"]
	first := readUntil(func(s session.Snapshot) bool { return s.Generating })
	if first.LoadingMessage != msgs[0] {
		t.Fatalf("first loading message = %q, want %q", first.LoadingMessage, msgs[0])
	}

	// no state change, only time passes
	clock.Add(int64(session.LoadingMessageInterval))
	next := readUntil(func(s session.Snapshot) bool { return s.Generating && s.LoadingMessage != first.LoadingMessage })
	if next.LoadingMessage != msgs[1] {
		t.Fatalf("rotated loading message = %q, want %q", next.LoadingMessage, msgs[1])
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("Generate: %v", err)
	}
}
