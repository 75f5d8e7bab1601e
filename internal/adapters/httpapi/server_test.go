package httpapi_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taigaharvest/saphouse-go/internal/adapters/httpapi"
	"github.com/taigaharvest/saphouse-go/internal/adapters/persistence"
	appbatch "github.com/taigaharvest/saphouse-go/internal/application/batch"
	"github.com/taigaharvest/saphouse-go/internal/domain/shared"
	"github.com/taigaharvest/saphouse-go/internal/infrastructure/config"
	"github.com/taigaharvest/saphouse-go/test/helpers"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()

	db := helpers.NewTestDB(t)
	clock := shared.NewMockClock(time.Date(2025, 3, 20, 8, 0, 0, 0, time.UTC))

	ledger := persistence.NewGormUnitLedger(db)
	processingRepo := persistence.NewGormProcessingRepository(db)
	packagingRepo := persistence.NewGormPackagingRepository(db)
	labelingRepo := persistence.NewGormLabelingRepository(db)
	draftRepo := persistence.NewGormDraftRepository(db)
	eventLog := persistence.NewGormEventLog(db)

	services := httpapi.Services{
		Lifecycle:  appbatch.NewLifecycleService(processingRepo, packagingRepo, labelingRepo, ledger, eventLog, clock),
		Assignment: appbatch.NewAssignmentService(processingRepo, ledger, eventLog, clock),
		Linker:     appbatch.NewLinkerService(processingRepo, packagingRepo, labelingRepo, eventLog, clock),
		Drafts:     appbatch.NewDraftService(draftRepo, ledger, clock),
		Queries:    appbatch.NewQueryService(processingRepo, packagingRepo, labelingRepo, eventLog),
	}

	cfg := config.ServerConfig{Host: "127.0.0.1", Port: 0}
	server := httpapi.NewServer(cfg, services, nil)
	return server.Handler()
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Actor", "tester")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	return recorder
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), dst))
}

type errorEnvelope struct {
	Error struct {
		Code    string   `json:"code"`
		Message string   `json:"message"`
		Field   string   `json:"field"`
		UnitIDs []string `json:"unitIds"`
	} `json:"error"`
}

func createBatch(t *testing.T, handler http.Handler, line string) map[string]interface{} {
	t.Helper()
	recorder := doJSON(t, handler, http.MethodPost, "/v1/processing-batches",
		map[string]string{"productLine": line})
	require.Equal(t, http.StatusCreated, recorder.Code)
	var batch map[string]interface{}
	decodeBody(t, recorder, &batch)
	return batch
}

func recordDraft(t *testing.T, handler http.Handler, line string, count int) []string {
	t.Helper()
	units := make([]map[string]interface{}, 0, count)
	for i := 0; i < count; i++ {
		units = append(units, map[string]interface{}{
			"containerType": "bucket",
			"quantity":      float64(10 + i),
		})
	}
	recorder := doJSON(t, handler, http.MethodPost, "/v1/drafts", map[string]interface{}{
		"productLine": line,
		"collectedOn": "2025-03-19",
		"units":       units,
	})
	require.Equal(t, http.StatusCreated, recorder.Code)

	var draft struct {
		Units []struct {
			ID string `json:"id"`
		} `json:"units"`
	}
	decodeBody(t, recorder, &draft)
	require.Len(t, draft.Units, count)
	ids := make([]string, 0, count)
	for _, u := range draft.Units {
		ids = append(ids, u.ID)
	}
	return ids
}

func TestHealthz(t *testing.T) {
	handler := newTestServer(t)

	recorder := doJSON(t, handler, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, recorder.Code)
}

func TestCreateProcessingBatch(t *testing.T) {
	handler := newTestServer(t)

	batch := createBatch(t, handler, "sap")
	assert.Equal(t, "01", batch["number"])
	assert.Equal(t, "in_progress", batch["status"])
	assert.Equal(t, "tester", batch["createdBy"])
}

func TestCreateProcessingBatch_UnknownLine(t *testing.T) {
	handler := newTestServer(t)

	recorder := doJSON(t, handler, http.MethodPost, "/v1/processing-batches",
		map[string]string{"productLine": "maple"})
	require.Equal(t, http.StatusBadRequest, recorder.Code)

	var envelope errorEnvelope
	decodeBody(t, recorder, &envelope)
	assert.Equal(t, "validation_failed", envelope.Error.Code)
}

func TestCreateProcessingBatch_MalformedBody(t *testing.T) {
	handler := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/processing-batches",
		bytes.NewReader([]byte("{not json")))
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	require.Equal(t, http.StatusBadRequest, recorder.Code)

	var envelope errorEnvelope
	decodeBody(t, recorder, &envelope)
	assert.Equal(t, "validation_failed", envelope.Error.Code)
}

func TestGetProcessingBatch_NotFound(t *testing.T) {
	handler := newTestServer(t)

	recorder := doJSON(t, handler, http.MethodGet, "/v1/processing-batches/missing", nil)
	require.Equal(t, http.StatusNotFound, recorder.Code)

	var envelope errorEnvelope
	decodeBody(t, recorder, &envelope)
	assert.Equal(t, "not_found", envelope.Error.Code)
}

func TestSetUnits(t *testing.T) {
	handler := newTestServer(t)
	batch := createBatch(t, handler, "sap")
	unitIDs := recordDraft(t, handler, "sap", 2)

	recorder := doJSON(t, handler, http.MethodPut,
		fmt.Sprintf("/v1/processing-batches/%s/units", batch["id"]),
		map[string]interface{}{"unitIds": unitIDs})
	require.Equal(t, http.StatusOK, recorder.Code)

	var updated struct {
		UnitCount     int     `json:"unitCount"`
		TotalQuantity float64 `json:"totalQuantity"`
	}
	decodeBody(t, recorder, &updated)
	assert.Equal(t, 2, updated.UnitCount)
	assert.InDelta(t, 21, updated.TotalQuantity, 0.0001)

	// Claimed units are no longer listed as free
	recorder = doJSON(t, handler, http.MethodGet, "/v1/raw-units?productLine=sap", nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	var free []map[string]interface{}
	decodeBody(t, recorder, &free)
	assert.Empty(t, free)
}

func TestSetUnits_ClaimConflict(t *testing.T) {
	handler := newTestServer(t)
	holder := createBatch(t, handler, "sap")
	contender := createBatch(t, handler, "sap")
	unitIDs := recordDraft(t, handler, "sap", 2)

	recorder := doJSON(t, handler, http.MethodPut,
		fmt.Sprintf("/v1/processing-batches/%s/units", holder["id"]),
		map[string]interface{}{"unitIds": unitIDs[:1]})
	require.Equal(t, http.StatusOK, recorder.Code)

	recorder = doJSON(t, handler, http.MethodPut,
		fmt.Sprintf("/v1/processing-batches/%s/units", contender["id"]),
		map[string]interface{}{"unitIds": unitIDs})
	require.Equal(t, http.StatusBadRequest, recorder.Code)

	var envelope errorEnvelope
	decodeBody(t, recorder, &envelope)
	assert.Equal(t, "conflict", envelope.Error.Code)
	assert.Equal(t, unitIDs[:1], envelope.Error.UnitIDs)
}

func TestSetUnits_UnknownUnits(t *testing.T) {
	handler := newTestServer(t)
	batch := createBatch(t, handler, "sap")

	recorder := doJSON(t, handler, http.MethodPut,
		fmt.Sprintf("/v1/processing-batches/%s/units", batch["id"]),
		map[string]interface{}{"unitIds": []string{"ghost-1"}})
	require.Equal(t, http.StatusBadRequest, recorder.Code)

	var envelope errorEnvelope
	decodeBody(t, recorder, &envelope)
	assert.Equal(t, "units_not_found", envelope.Error.Code)
	assert.Equal(t, []string{"ghost-1"}, envelope.Error.UnitIDs)
}

func TestSubmitReopenFlow(t *testing.T) {
	handler := newTestServer(t)
	batch := createBatch(t, handler, "sap")
	batchPath := fmt.Sprintf("/v1/processing-batches/%s", batch["id"])

	recorder := doJSON(t, handler, http.MethodPost, batchPath+"/submit", nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	// Derive packaging from the completed batch
	recorder = doJSON(t, handler, http.MethodPost, "/v1/packaging-batches", map[string]interface{}{
		"sourceBatchId": batch["id"],
		"bottles":       map[string]interface{}{"quantity": 50, "unitCost": 0.8},
	})
	require.Equal(t, http.StatusCreated, recorder.Code)
	var pkg map[string]interface{}
	decodeBody(t, recorder, &pkg)
	assert.Equal(t, "sap", pkg["productLine"])

	// Reopening the source cascades the packaging batch away
	recorder = doJSON(t, handler, http.MethodPost, batchPath+"/reopen", nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var reopened struct {
		Batch struct {
			Status string `json:"status"`
		} `json:"batch"`
		DeletedDownstreamIDs []string `json:"deletedDownstreamIds"`
	}
	decodeBody(t, recorder, &reopened)
	assert.Equal(t, "in_progress", reopened.Batch.Status)
	assert.Equal(t, []string{pkg["id"].(string)}, reopened.DeletedDownstreamIDs)

	recorder = doJSON(t, handler, http.MethodGet,
		fmt.Sprintf("/v1/packaging-batches/%s", pkg["id"]), nil)
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestReopenInProgress_Rejected(t *testing.T) {
	handler := newTestServer(t)
	batch := createBatch(t, handler, "herb")

	recorder := doJSON(t, handler, http.MethodPost,
		fmt.Sprintf("/v1/processing-batches/%s/reopen", batch["id"]), nil)
	require.Equal(t, http.StatusBadRequest, recorder.Code)

	var envelope errorEnvelope
	decodeBody(t, recorder, &envelope)
	assert.Equal(t, "invalid_transition", envelope.Error.Code)
}

func TestDeriveBeforeSubmit_Rejected(t *testing.T) {
	handler := newTestServer(t)
	batch := createBatch(t, handler, "sap")

	recorder := doJSON(t, handler, http.MethodPost, "/v1/packaging-batches",
		map[string]interface{}{"sourceBatchId": batch["id"]})
	require.Equal(t, http.StatusBadRequest, recorder.Code)

	var envelope errorEnvelope
	decodeBody(t, recorder, &envelope)
	assert.Equal(t, "invalid_transition", envelope.Error.Code)
}

func TestDeleteProcessingBatch(t *testing.T) {
	handler := newTestServer(t)
	batch := createBatch(t, handler, "sap")
	batchPath := fmt.Sprintf("/v1/processing-batches/%s", batch["id"])

	recorder := doJSON(t, handler, http.MethodDelete, batchPath, nil)
	assert.Equal(t, http.StatusNoContent, recorder.Code)

	recorder = doJSON(t, handler, http.MethodGet, batchPath, nil)
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestEligibleSources(t *testing.T) {
	handler := newTestServer(t)
	batch := createBatch(t, handler, "herb")

	recorder := doJSON(t, handler, http.MethodGet, "/v1/packaging-batches/eligible-sources", nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	var sources []map[string]interface{}
	decodeBody(t, recorder, &sources)
	assert.Empty(t, sources)

	recorder = doJSON(t, handler, http.MethodPost,
		fmt.Sprintf("/v1/processing-batches/%s/submit", batch["id"]), nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	recorder = doJSON(t, handler, http.MethodGet, "/v1/packaging-batches/eligible-sources", nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	decodeBody(t, recorder, &sources)
	require.Len(t, sources, 1)
	assert.Equal(t, batch["id"], sources[0]["id"])
}

func TestListFreeUnits_RequiresLine(t *testing.T) {
	handler := newTestServer(t)

	recorder := doJSON(t, handler, http.MethodGet, "/v1/raw-units", nil)
	require.Equal(t, http.StatusBadRequest, recorder.Code)

	var envelope errorEnvelope
	decodeBody(t, recorder, &envelope)
	assert.Equal(t, "validation_failed", envelope.Error.Code)
	assert.Equal(t, "productLine", envelope.Error.Field)
}

func TestBatchEvents(t *testing.T) {
	handler := newTestServer(t)
	batch := createBatch(t, handler, "sap")

	recorder := doJSON(t, handler, http.MethodPost,
		fmt.Sprintf("/v1/processing-batches/%s/submit", batch["id"]), nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	recorder = doJSON(t, handler, http.MethodGet,
		fmt.Sprintf("/v1/batches/%s/events", batch["id"]), nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var events []struct {
		Action string `json:"action"`
		Actor  string `json:"actor"`
	}
	decodeBody(t, recorder, &events)
	require.Len(t, events, 2)
	assert.Equal(t, "created", events[0].Action)
	assert.Equal(t, "submitted", events[1].Action)
	assert.Equal(t, "tester", events[0].Actor)
}

func TestRateLimit(t *testing.T) {
	handler := newRateLimitedServer(t)

	first := doJSON(t, handler, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, first.Code)

	var limited bool
	for i := 0; i < 5; i++ {
		recorder := doJSON(t, handler, http.MethodGet, "/healthz", nil)
		if recorder.Code == http.StatusTooManyRequests {
			limited = true
			break
		}
	}
	assert.True(t, limited)
}

func newRateLimitedServer(t *testing.T) http.Handler {
	t.Helper()

	cfg := config.ServerConfig{
		Host: "127.0.0.1",
		Port: 0,
		RateLimit: config.RateLimitConfig{
			Enabled:  true,
			Requests: 1,
			Burst:    1,
		},
	}
	server := httpapi.NewServer(cfg, httpapi.Services{}, nil)
	return server.Handler()
}
