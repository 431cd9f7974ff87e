package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/foxxcyber/trade-basket/internal/cache"
	"github.com/foxxcyber/trade-basket/internal/catalog"
	"github.com/foxxcyber/trade-basket/internal/config"
	"github.com/foxxcyber/trade-basket/internal/database"
	"github.com/foxxcyber/trade-basket/internal/middleware"
	"github.com/foxxcyber/trade-basket/internal/models"
	"github.com/foxxcyber/trade-basket/internal/services"
)

const testSecret = "test-secret"

type staticCatalog struct {
	supplier models.Supplier
	products []models.CatalogProduct
}

func (s staticCatalog) Supplier() models.Supplier { return s.supplier }

func (s staticCatalog) Search(context.Context, string) ([]models.CatalogProduct, error) {
	return s.products, nil
}

type fakeStore struct {
	mu          sync.Mutex
	saved       []*database.SaveComparisonRequest
	comparisons map[uuid.UUID]*models.SavedComparison
	uploads     map[uuid.UUID]*models.PhotoUpload
	suppliers   map[uuid.UUID]*models.Supplier
	upserted    []models.UpsertProductRequest
	photos      int
	extracted   int
	createCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		suppliers:   make(map[uuid.UUID]*models.Supplier),
		comparisons: make(map[uuid.UUID]*models.SavedComparison),
		uploads:     make(map[uuid.UUID]*models.PhotoUpload),
	}
}

func (f *fakeStore) SaveComparison(_ context.Context, req *database.SaveComparisonRequest) (*models.SavedComparison, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, req)
	return &models.SavedComparison{ID: uuid.New(), UserID: req.UserID, Result: req.Result}, nil
}

func (f *fakeStore) ListComparisons(context.Context, string, int, int) ([]*models.SavedComparisonSummary, int, error) {
	return []*models.SavedComparisonSummary{}, 0, nil
}

func (f *fakeStore) GetComparison(_ context.Context, id uuid.UUID, userID string) (*models.SavedComparison, error) {
	if c, ok := f.comparisons[id]; ok && c.UserID == userID {
		return c, nil
	}
	return nil, database.ErrComparisonNotFound
}

func (f *fakeStore) DeleteComparison(context.Context, uuid.UUID, string) error {
	return database.ErrComparisonNotFound
}

func (f *fakeStore) ListSuppliers(context.Context) ([]*models.SupplierWithStats, error) {
	return nil, nil
}

func (f *fakeStore) GetSupplierByID(_ context.Context, id uuid.UUID) (*models.Supplier, error) {
	if s, ok := f.suppliers[id]; ok {
		return s, nil
	}
	return nil, database.ErrSupplierNotFound
}

func (f *fakeStore) CreateSupplier(_ context.Context, req *models.CreateSupplierRequest) (*models.Supplier, error) {
	f.createCalls++
	for _, s := range f.suppliers {
		if s.Slug == req.Slug {
			return nil, database.ErrSupplierExists
		}
	}
	s := &models.Supplier{ID: uuid.New(), Name: req.Name, Slug: req.Slug, CatalogType: req.CatalogType, Endpoint: req.Endpoint, Enabled: true}
	f.suppliers[s.ID] = s
	return s, nil
}

func (f *fakeStore) UpdateSupplier(_ context.Context, id uuid.UUID, _ *models.UpdateSupplierRequest) (*models.Supplier, error) {
	return f.GetSupplierByID(context.Background(), id)
}

func (f *fakeStore) DeleteSupplier(_ context.Context, id uuid.UUID) error {
	if _, ok := f.suppliers[id]; !ok {
		return database.ErrSupplierNotFound
	}
	delete(f.suppliers, id)
	return nil
}

func (f *fakeStore) UpsertSupplierProducts(_ context.Context, _ uuid.UUID, products []models.UpsertProductRequest) (int, error) {
	f.upserted = append(f.upserted, products...)
	return len(products), nil
}

func (f *fakeStore) CreatePhotoUpload(_ context.Context, req *models.CreatePhotoUploadRequest) (*models.PhotoUpload, error) {
	f.photos++
	return &models.PhotoUpload{ID: uuid.New(), S3Key: req.S3Key, Status: models.PhotoStatusPending}, nil
}

func (f *fakeStore) GetPhotoUpload(_ context.Context, id uuid.UUID) (*models.PhotoUpload, error) {
	if p, ok := f.uploads[id]; ok {
		return p, nil
	}
	return nil, database.ErrPhotoNotFound
}

func (f *fakeStore) MarkPhotoExtracted(context.Context, uuid.UUID, string) error {
	f.extracted++
	return nil
}

func (f *fakeStore) MarkPhotoFailed(context.Context, uuid.UUID, string) error {
	return nil
}

type fakeArchive struct {
	uploads []string
}

func (a *fakeArchive) UploadPhoto(_ context.Context, key string, image []byte, contentType string) (*services.UploadResult, error) {
	a.uploads = append(a.uploads, key)
	return &services.UploadResult{Bucket: "material-photos", Key: key, Size: int64(len(image)), ContentType: contentType}, nil
}

func (a *fakeArchive) GetPresignedURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://storage.example.com/" + key + "?sig=abc", nil
}

func (a *fakeArchive) GetBucketName() string { return "material-photos" }

type countingResetter struct{ resets int }

func (r *countingResetter) Reset() { r.resets++ }

type fakeExtractor struct {
	text string
	err  error
}

func (f fakeExtractor) ExtractText(context.Context, []byte, string) (string, error) {
	return f.text, f.err
}

type testEnv struct {
	app      *fiber.App
	store    *fakeStore
	cache    *cache.Memory
	resetter *countingResetter
}

func newTestEnv(t *testing.T, extractor services.TextExtractor) *testEnv {
	t.Helper()
	return newTestEnvWithPhotos(t, extractor, nil)
}

func newTestEnvWithPhotos(t *testing.T, extractor services.TextExtractor, photos PhotoArchive) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	supplier := models.Supplier{ID: uuid.New(), Name: "Sparky Direct", Slug: "sparky-direct", CatalogType: models.CatalogTypeDatabase}
	catalogs := catalog.List{staticCatalog{
		supplier: supplier,
		products: []models.CatalogProduct{
			{ProductID: "te25", Name: "2.5mm Twin & Earth Cable", Price: decimal.RequireFromString("1.05"), StockStatus: models.StockInStock},
			{ProductID: "ds13", Name: "Double Socket Outlet 13A", Price: decimal.RequireFromString("4.20"), StockStatus: models.StockInStock},
		},
	}}

	lookups := cache.NewMemory(time.Minute)
	svc := services.NewComparisonService(
		services.NewMaterialsParser(0),
		services.NewSupplierMatcher(services.MatcherConfig{}, lookups, logger),
		services.NewBasketOptimiser(decimal.Zero),
		catalogs,
		extractor,
		logger,
	)

	env := &testEnv{
		app:      fiber.New(fiber.Config{ErrorHandler: ErrorHandler}),
		store:    newFakeStore(),
		cache:    lookups,
		resetter: &countingResetter{},
	}
	h := New(Deps{
		Config:   &config.Config{JWTSecret: testSecret, PhotoRetention: time.Hour},
		Service:  svc,
		Store:    env.store,
		Cache:    lookups,
		Catalogs: env.resetter,
		Photos:   photos,
		Logger:   logger,
	})
	h.Routes(env.app, nil)
	return env
}

func token(t *testing.T, subject string, role models.Role) string {
	t.Helper()
	claims := middleware.JWTClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return "Bearer " + signed
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func (e *testEnv) do(t *testing.T, method, path, auth string, body any) (int, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	return e.send(t, req)
}

func (e *testEnv) send(t *testing.T, req *http.Request) (int, envelope) {
	t.Helper()

	resp, err := e.app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp.StatusCode, env
}

func TestParseMaterials(t *testing.T) {
	env := newTestEnv(t, nil)

	status, resp := env.do(t, http.MethodPost, "/api/materials/parse", "", map[string]string{"content": "10m 2.5mm cable\n5x socket outlets"})
	if status != fiber.StatusOK || !resp.Success {
		t.Fatalf("status = %d, error = %q", status, resp.Error)
	}
	var parsed models.ParseMaterialsResponse
	if err := json.Unmarshal(resp.Data, &parsed); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if parsed.TotalParsed != 2 || parsed.Items[0].Unit != "m" {
		t.Errorf("parsed = %+v", parsed)
	}

	status, resp = env.do(t, http.MethodPost, "/api/materials/parse", "", map[string]string{"content": "   "})
	if status != fiber.StatusUnprocessableEntity || resp.Success {
		t.Errorf("blank list: status = %d, want 422", status)
	}

	status, _ = env.do(t, http.MethodPost, "/api/materials/parse", "", map[string]string{"content": strings.Repeat("a", maxContentBytes+1)})
	if status != fiber.StatusRequestEntityTooLarge {
		t.Errorf("oversized list: status = %d, want 413", status)
	}
}

func TestCompareAnonymous(t *testing.T) {
	env := newTestEnv(t, nil)

	status, resp := env.do(t, http.MethodPost, "/api/compare", "", models.CompareRequest{Content: "10m 2.5mm cable\n5x socket outlets"})
	if status != fiber.StatusOK {
		t.Fatalf("status = %d, error = %q", status, resp.Error)
	}

	var result models.ComparisonResponse
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if result.ID != nil {
		t.Error("anonymous comparisons should not be saved")
	}
	if len(result.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(result.Items))
	}
	if got := result.OptimisedBasket.Total.StringFixed(2); got != "31.50" {
		t.Errorf("total = %s, want 31.50", got)
	}
	if len(env.store.saved) != 0 {
		t.Errorf("store saved %d comparisons", len(env.store.saved))
	}
}

func TestCompareSavesForSignedInUser(t *testing.T) {
	env := newTestEnv(t, nil)

	status, resp := env.do(t, http.MethodPost, "/api/compare", token(t, "user-1", models.RoleUser), models.CompareRequest{
		Content: "4 double socket outlets",
		Title:   "Kitchen rewire",
	})
	if status != fiber.StatusOK {
		t.Fatalf("status = %d, error = %q", status, resp.Error)
	}

	var result models.ComparisonResponse
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if result.ID == nil {
		t.Error("expected a saved comparison id")
	}
	if len(env.store.saved) != 1 {
		t.Fatalf("saved = %d, want 1", len(env.store.saved))
	}
	saved := env.store.saved[0]
	if saved.UserID != "user-1" || saved.Title != "Kitchen rewire" || saved.Source != models.SourceText {
		t.Errorf("saved = %+v", saved)
	}
}

func TestComparisonsRequireAuth(t *testing.T) {
	env := newTestEnv(t, nil)

	if status, _ := env.do(t, http.MethodGet, "/api/comparisons", "", nil); status != fiber.StatusUnauthorized {
		t.Errorf("list without token: status = %d, want 401", status)
	}

	auth := token(t, "user-1", models.RoleUser)
	if status, _ := env.do(t, http.MethodGet, "/api/comparisons?limit=500", auth, nil); status != fiber.StatusOK {
		t.Errorf("list: status = %d, want 200", status)
	}
	if status, _ := env.do(t, http.MethodGet, "/api/comparisons/not-a-uuid", auth, nil); status != fiber.StatusBadRequest {
		t.Errorf("bad id: status = %d, want 400", status)
	}
	if status, _ := env.do(t, http.MethodGet, "/api/comparisons/"+uuid.NewString(), auth, nil); status != fiber.StatusNotFound {
		t.Errorf("unknown id: status = %d, want 404", status)
	}
	if status, _ := env.do(t, http.MethodDelete, "/api/comparisons/"+uuid.NewString(), auth, nil); status != fiber.StatusNotFound {
		t.Errorf("delete unknown id: status = %d, want 404", status)
	}
}

func TestAdminCache(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	env.cache.Set(ctx, cache.CatalogKey("sparky-direct", "2.5mm cable"), []string{"x"})
	env.cache.Set(ctx, cache.CatalogKey("other", "2.5mm cable"), []string{"y"})

	if status, _ := env.do(t, http.MethodDelete, "/api/admin/cache", token(t, "user-1", models.RoleUser), nil); status != fiber.StatusForbidden {
		t.Errorf("non-admin: status = %d, want 403", status)
	}

	admin := token(t, "admin-1", models.RoleAdmin)
	status, resp := env.do(t, http.MethodDelete, "/api/admin/cache/suppliers/sparky-direct", admin, nil)
	if status != fiber.StatusOK || !strings.Contains(string(resp.Data), `"removed":1`) {
		t.Errorf("supplier invalidation: status = %d, data = %s", status, resp.Data)
	}

	status, resp = env.do(t, http.MethodDelete, "/api/admin/cache", admin, nil)
	if status != fiber.StatusOK || !strings.Contains(string(resp.Data), `"removed":1`) {
		t.Errorf("clear: status = %d, data = %s", status, resp.Data)
	}
}

func TestCreateSupplierValidation(t *testing.T) {
	env := newTestEnv(t, nil)
	admin := token(t, "admin-1", models.RoleAdmin)

	tests := []struct {
		name string
		req  models.CreateSupplierRequest
		want int
	}{
		{"missing name", models.CreateSupplierRequest{Slug: "cef", CatalogType: models.CatalogTypeDatabase}, fiber.StatusBadRequest},
		{"bad slug", models.CreateSupplierRequest{Name: "CEF", Slug: "C E F", CatalogType: models.CatalogTypeDatabase}, fiber.StatusBadRequest},
		{"unknown type", models.CreateSupplierRequest{Name: "CEF", Slug: "cef", CatalogType: "ftp"}, fiber.StatusBadRequest},
		{"api without endpoint", models.CreateSupplierRequest{Name: "CEF", Slug: "cef", CatalogType: models.CatalogTypeJSONAPI}, fiber.StatusBadRequest},
		{"negative rate", models.CreateSupplierRequest{Name: "CEF", Slug: "cef", CatalogType: models.CatalogTypeDatabase, RateLimitRPS: -1}, fiber.StatusBadRequest},
		{"valid", models.CreateSupplierRequest{Name: "CEF", Slug: "cef", CatalogType: models.CatalogTypeDatabase}, fiber.StatusCreated},
		{"duplicate", models.CreateSupplierRequest{Name: "CEF", Slug: "cef", CatalogType: models.CatalogTypeDatabase}, fiber.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, resp := env.do(t, http.MethodPost, "/api/admin/suppliers", admin, tt.req)
			if status != tt.want {
				t.Errorf("status = %d, want %d (error %q)", status, tt.want, resp.Error)
			}
		})
	}

	if env.store.createCalls != 2 {
		t.Errorf("store reached %d times, want 2", env.store.createCalls)
	}
	if env.resetter.resets != 1 {
		t.Errorf("catalog registry reset %d times, want 1", env.resetter.resets)
	}
}

func TestUpsertSupplierProducts(t *testing.T) {
	env := newTestEnv(t, nil)
	admin := token(t, "admin-1", models.RoleAdmin)

	dbSupplier := &models.Supplier{ID: uuid.New(), Slug: "wholesale", CatalogType: models.CatalogTypeDatabase}
	apiSupplier := &models.Supplier{ID: uuid.New(), Slug: "api", CatalogType: models.CatalogTypeJSONAPI}
	env.store.suppliers[dbSupplier.ID] = dbSupplier
	env.store.suppliers[apiSupplier.ID] = apiSupplier

	body := models.UpsertProductsRequest{Products: []models.UpsertProductRequest{
		{ProductCode: "TE25", Name: "2.5mm T&E", Price: decimal.RequireFromString("1.05")},
		{ProductCode: "", Name: "no code", Price: decimal.RequireFromString("1")},
		{ProductCode: "NEG", Name: "negative", Price: decimal.RequireFromString("-1")},
	}}

	status, _ := env.do(t, http.MethodPost, "/api/admin/suppliers/"+apiSupplier.ID.String()+"/products", admin, body)
	if status != fiber.StatusBadRequest {
		t.Errorf("api supplier: status = %d, want 400", status)
	}

	status, resp := env.do(t, http.MethodPost, "/api/admin/suppliers/"+dbSupplier.ID.String()+"/products", admin, body)
	if status != fiber.StatusOK {
		t.Fatalf("status = %d, error = %q", status, resp.Error)
	}
	var result models.UpsertProductsResponse
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if result.Upserted != 1 || len(result.Errors) != 2 {
		t.Errorf("result = %+v", result)
	}
}

func photoRequest(t *testing.T, image []byte, fields map[string]string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("image", "list.png")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	part.Write(image)
	for k, v := range fields {
		w.WriteField(k, v)
	}
	w.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/compare/photo", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestComparePhoto(t *testing.T) {
	status, resp := newTestEnv(t, nil).send(t, photoRequest(t, pngHeader, nil))
	if status != fiber.StatusNotImplemented {
		t.Errorf("without extractor: status = %d, want 501 (error %q)", status, resp.Error)
	}

	env := newTestEnv(t, fakeExtractor{text: "5x socket outlets"})
	status, resp = env.send(t, photoRequest(t, pngHeader, map[string]string{"suppliers": "sparky-direct"}))
	if status != fiber.StatusOK {
		t.Fatalf("status = %d, error = %q", status, resp.Error)
	}
	var result models.ComparisonResponse
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if result.ExtractedText != "5x socket outlets" || len(result.Items) != 1 {
		t.Errorf("result = %+v", result)
	}

	status, _ = env.send(t, photoRequest(t, []byte("plain text, not an image"), nil))
	if status != fiber.StatusBadRequest {
		t.Errorf("non-image upload: status = %d, want 400", status)
	}

	failing := newTestEnv(t, fakeExtractor{err: errors.New("model overloaded")})
	if status, _ := failing.send(t, photoRequest(t, pngHeader, nil)); status != fiber.StatusBadGateway {
		t.Errorf("extraction failure: status = %d, want 502", status)
	}
}

func TestComparePhotoArchivesUpload(t *testing.T) {
	archive := &fakeArchive{}
	env := newTestEnvWithPhotos(t, fakeExtractor{text: "10m 2.5mm cable"}, archive)

	req := photoRequest(t, pngHeader, map[string]string{"title": "Board change"})
	req.Header.Set("Authorization", token(t, "user-1", models.RoleUser))
	status, resp := env.send(t, req)
	if status != fiber.StatusOK {
		t.Fatalf("status = %d, error = %q", status, resp.Error)
	}

	if len(archive.uploads) != 1 || !strings.HasPrefix(archive.uploads[0], "photos/user-1/") {
		t.Errorf("uploads = %v", archive.uploads)
	}
	if env.store.photos != 1 || env.store.extracted != 1 {
		t.Errorf("photo records = %d, extracted = %d", env.store.photos, env.store.extracted)
	}

	var result models.ComparisonResponse
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if !strings.HasPrefix(result.PhotoURL, "https://storage.example.com/photos/user-1/") {
		t.Errorf("photo url = %q", result.PhotoURL)
	}
	if len(env.store.saved) != 1 || env.store.saved[0].PhotoID == nil || env.store.saved[0].Source != models.SourcePhoto {
		t.Errorf("saved = %+v", env.store.saved)
	}
}

func TestGetComparisonLinksPhoto(t *testing.T) {
	env := newTestEnvWithPhotos(t, nil, &fakeArchive{})

	live := &models.PhotoUpload{ID: uuid.New(), S3Key: "photos/user-1/2026/10/a.png", ExpiresAt: time.Now().Add(time.Hour)}
	expired := &models.PhotoUpload{ID: uuid.New(), S3Key: "photos/user-1/2026/01/b.png", ExpiresAt: time.Now().Add(-time.Hour)}
	env.store.uploads[live.ID] = live
	env.store.uploads[expired.ID] = expired

	withLive := &models.SavedComparison{ID: uuid.New(), UserID: "user-1", PhotoID: &live.ID}
	withExpired := &models.SavedComparison{ID: uuid.New(), UserID: "user-1", PhotoID: &expired.ID}
	env.store.comparisons[withLive.ID] = withLive
	env.store.comparisons[withExpired.ID] = withExpired

	auth := token(t, "user-1", models.RoleUser)
	photoURL := func(id uuid.UUID) string {
		status, resp := env.do(t, http.MethodGet, "/api/comparisons/"+id.String(), auth, nil)
		if status != fiber.StatusOK {
			t.Fatalf("status = %d, error = %q", status, resp.Error)
		}
		var body struct {
			PhotoURL string `json:"photo_url"`
		}
		if err := json.Unmarshal(resp.Data, &body); err != nil {
			t.Fatalf("decode data: %v", err)
		}
		return body.PhotoURL
	}

	if got := photoURL(withLive.ID); !strings.Contains(got, live.S3Key) {
		t.Errorf("live photo url = %q", got)
	}
	if got := photoURL(withExpired.ID); got != "" {
		t.Errorf("expired photo should not be linked, got %q", got)
	}

	// Another user's comparison is not visible
	other := token(t, "user-2", models.RoleUser)
	if status, _ := env.do(t, http.MethodGet, "/api/comparisons/"+withLive.ID.String(), other, nil); status != fiber.StatusNotFound {
		t.Errorf("other user: status = %d, want 404", status)
	}
}
