package compileservice

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tensorfuse/fusegen/internal/pipeline"
	"github.com/tensorfuse/fusegen/pkg/model"
	"github.com/tensorfuse/fusegen/pkg/utils"
)

const serverTestFusionJSON = `{
  "axes": [{"name": "a0", "extent": {"kind": "const", "n": 8}}],
  "tensors": [{"name": "tv0", "domain": ["a0"], "mem_type": "Global"}],
  "inputs": ["tv0"],
  "outputs": ["tv0"]
}`

func newTestServer() *Server {
	return NewServer(":0", pipeline.New("test-version"), nil, nil, nil, utils.NewDefaultLogger(utils.LevelError, nil))
}

func TestServer_HandleLower_Success(t *testing.T) {
	s := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/lower", strings.NewReader(`{"duid":"doc-1","ir_payload":`+jsonString(serverTestFusionJSON)+`}`))
	rec := httptest.NewRecorder()

	s.handleLower(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp model.LowerResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "doc-1", resp.DocUUID)
	assert.Empty(t, resp.Error)
}

func TestServer_HandleLower_InvalidJSON(t *testing.T) {
	s := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/lower", strings.NewReader("not json"))
	rec := httptest.NewRecorder()

	s.handleLower(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_HandleLower_WrongMethod(t *testing.T) {
	s := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/lower", nil)
	rec := httptest.NewRecorder()

	s.handleLower(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestServer_HandleDebugIdGraph_MissingDocParam(t *testing.T) {
	s := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/debug/idgraph", nil)
	rec := httptest.NewRecorder()

	s.handleDebugIdGraph(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_HandleDebugIdGraph_NoStorage(t *testing.T) {
	s := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/debug/idgraph?doc=doc-1", nil)
	rec := httptest.NewRecorder()

	s.handleDebugIdGraph(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestServer_HandleHealthz_NoDB(t *testing.T) {
	s := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	s.handleHealthz(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_Shutdown_NeverStarted(t *testing.T) {
	s := newTestServer()
	assert.NoError(t, s.Shutdown(context.Background()))
}

func jsonString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
