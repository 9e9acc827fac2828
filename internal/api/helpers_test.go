package api_test

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/logger"
	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/router"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/storage"
	"github.com/pageza/foodgram/backend/internal/testhelpers"
)

var pngImage = "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a})

func init() {
	gin.SetMode(gin.TestMode)
}

type testAPI struct {
	router *gin.Engine
	db     *gorm.DB
	auth   *service.AuthService
}

func setupTestAPI(t *testing.T) *testAPI {
	t.Helper()
	db := testhelpers.SetupTestDatabase(t)
	log := logger.NewNop()

	denylist := service.NewMemoryDenylist(time.Hour)
	auth := service.NewAuthService(db, denylist, "api-test-secret", time.Hour, log)
	catalog := service.NewCatalogService(db, log)

	mediaRoot := t.TempDir()
	services := router.Services{
		Auth:     auth,
		Users:    service.NewUserService(db, log),
		Recipes:  service.NewRecipeService(db, storage.NewLocalStore(mediaRoot, "/media"), log),
		Shopping: service.NewShoppingService(db, log),
		Catalog:  catalog,
	}
	r := router.SetupRouter(db, services, router.Options{
		CORSOrigins: []string{"http://localhost:3000"},
		PageSize:    6,
		MediaURL:    "/media",
		MediaRoot:   mediaRoot,
	}, log)

	return &testAPI{router: r, db: db, auth: auth}
}

func (a *testAPI) token(t *testing.T, user *models.User) string {
	t.Helper()
	token, err := a.auth.GenerateToken(user)
	require.NoError(t, err)
	return token
}

// do performs a request; body is JSON encoded unless nil, token is sent with
// the "Token" scheme unless empty.
func (a *testAPI) do(t *testing.T, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func requireStatus(t *testing.T, w *httptest.ResponseRecorder, status int) {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())
}


func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
