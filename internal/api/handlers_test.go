package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spendtrail/spendtrail/internal/category"
	"github.com/spendtrail/spendtrail/internal/ingest"
	"github.com/spendtrail/spendtrail/internal/model"
	"github.com/spendtrail/spendtrail/internal/pipeline"
	"github.com/spendtrail/spendtrail/internal/store"
	"github.com/spendtrail/spendtrail/internal/store/filestore"
	mock_store "github.com/spendtrail/spendtrail/internal/store/mocks"
)

const (
	token = "tok-alice"
	owner = "alice"
)

const statement = "Date,Narration,Chq,Withdrawal,Deposit,Balance\n" +
	"01/01/2023,UPI-AMAZON-PAY,,0,500,10500\n" +
	"02/01/2023,SALARY CREDIT,,0,50000,60500\n"

var quiet = zerolog.New(io.Discard)

func newRouter(t *testing.T, st store.Store, labeler category.Labeler) http.Handler {
	t.Helper()
	resolver := category.NewResolver(labeler, time.Second, quiet)
	p := pipeline.New(pipeline.Options{
		Ingestor: ingest.NewIngestor(ingest.NewConverter(resolver), 2, quiet),
		Store:    st,
	})
	h := NewTransactionsHandler(p, st, 1<<20)
	return NewRouter(h, RouterOptions{Tokens: map[string]string{token: owner}, Log: quiet})
}

func do(t *testing.T, h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	if req.Header.Get("Authorization") == "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func uploadRequest(t *testing.T, field, name string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(field, name)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/transactions/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func message(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	msg, _ := body["message"].(string)
	return msg
}

func record(desc, amount string, d time.Time, cat model.Category, dir model.Direction) model.Record {
	return model.Record{
		ID:        uuid.New(),
		CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Transaction: model.Transaction{
			Owner: owner, Date: d, Description: desc,
			Amount: decimal.RequireFromString(amount), Category: cat, Direction: dir,
		},
	}
}

func TestUpload_SavesAndLists(t *testing.T) {
	st := filestore.New(t.TempDir())
	h := newRouter(t, st, category.Static(model.CategoryShopping))

	rec := do(t, h, uploadRequest(t, "file", "jan.csv", []byte(statement)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var up struct {
		Message string `json:"message"`
		Saved   int    `json:"saved"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &up))
	assert.Equal(t, "Upload successful", up.Message)
	assert.Equal(t, 2, up.Saved)

	rec = do(t, h, httptest.NewRequest(http.MethodGet, "/api/transactions", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 2)
	assert.Equal(t, "SALARY CREDIT", list[0]["description"])
	assert.Equal(t, "credit", list[0]["type"])
	assert.Equal(t, float64(50000), list[0]["amount"])
	assert.Equal(t, "UPI-AMAZON-PAY", list[1]["description"])
	assert.Equal(t, "debit", list[1]["type"])
	assert.Equal(t, "Shopping", list[1]["category"])
	assert.Equal(t, owner, list[1]["userId"])
	assert.Equal(t, "2023-01-01T00:00:00Z", list[1]["date"])
}

func TestUpload_NoFile(t *testing.T) {
	ctrl := gomock.NewController(t)
	h := newRouter(t, mock_store.NewMockStore(ctrl), category.Static(model.CategoryOther))

	rec := do(t, h, uploadRequest(t, "document", "jan.csv", []byte(statement)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No file uploaded", message(t, rec))

	rec = do(t, h, httptest.NewRequest(http.MethodPost, "/api/transactions/upload", strings.NewReader("x")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No file uploaded", message(t, rec))
}

func TestUpload_Unreadable(t *testing.T) {
	ctrl := gomock.NewController(t)
	h := newRouter(t, mock_store.NewMockStore(ctrl), category.Static(model.CategoryOther))

	rec := do(t, h, uploadRequest(t, "file", "jan.xlsx", []byte("not a workbook")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Unsupported or unreadable file", message(t, rec))
}

func TestUpload_TooLarge(t *testing.T) {
	ctrl := gomock.NewController(t)
	h := newRouter(t, mock_store.NewMockStore(ctrl), category.Static(model.CategoryOther))

	big := bytes.Repeat([]byte("a"), 3<<19)
	rec := do(t, h, uploadRequest(t, "file", "big.csv", big))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestUpload_StoreFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	st := mock_store.NewMockStore(ctrl)
	st.EXPECT().Append(gomock.Any(), gomock.Any()).Return(nil, errors.New("connection refused"))
	h := newRouter(t, st, category.Static(model.CategoryOther))

	rec := do(t, h, uploadRequest(t, "file", "jan.csv", []byte(statement)))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Server error", message(t, rec))
}

func TestUpload_EmptySheetSavesNothing(t *testing.T) {
	ctrl := gomock.NewController(t)
	h := newRouter(t, mock_store.NewMockStore(ctrl), category.Static(model.CategoryOther))

	rec := do(t, h, uploadRequest(t, "file", "jan.csv", []byte("Date,Narration\n")))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Upload successful","saved":0}`, rec.Body.String())
}

// blockingLabeler waits for the request to go away.
type blockingLabeler struct{ started chan struct{} }

func (b blockingLabeler) Label(ctx context.Context, _ string, _ decimal.Decimal) (string, error) {
	select {
	case b.started <- struct{}{}:
	default:
	}
	<-ctx.Done()
	return "", ctx.Err()
}

func TestUpload_ClientGoneStoresNothing(t *testing.T) {
	ctrl := gomock.NewController(t)
	st := mock_store.NewMockStore(ctrl)
	lab := blockingLabeler{started: make(chan struct{}, 1)}
	h := newRouter(t, st, lab)

	ctx, cancel := context.WithCancel(context.Background())
	req := uploadRequest(t, "file", "jan.csv", []byte(statement)).WithContext(ctx)
	go func() {
		<-lab.started
		cancel()
	}()

	rec := do(t, h, req)
	assert.Empty(t, rec.Body.String())
}

func TestList_DateRange(t *testing.T) {
	ctrl := gomock.NewController(t)
	st := mock_store.NewMockStore(ctrl)
	from := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2023, 1, 31, 0, 0, 0, 0, time.UTC)
	st.EXPECT().List(gomock.Any(), owner, model.DateRange{From: from, To: to}).Return(nil, nil)
	st.EXPECT().List(gomock.Any(), owner, model.DateRange{}).Return(nil, nil)
	h := newRouter(t, st, nil)

	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/api/transactions?startDate=2023-01-01&endDate=2023-01-31", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	// Only one bound: no filtering.
	rec = do(t, h, httptest.NewRequest(http.MethodGet, "/api/transactions/?startDate=2023-01-01", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, httptest.NewRequest(http.MethodGet, "/api/transactions?startDate=soon&endDate=later", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSummary(t *testing.T) {
	ctrl := gomock.NewController(t)
	st := mock_store.NewMockStore(ctrl)
	st.EXPECT().Summary(gomock.Any(), owner, model.DateRange{}).Return([]model.CategoryTotal{
		{Category: model.CategoryBills, Total: decimal.RequireFromString("1200.50"), Count: 2},
		{Category: model.CategoryFood, Total: decimal.RequireFromString("99"), Count: 5},
	}, nil)
	h := newRouter(t, st, nil)

	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/api/transactions/summary", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"_id":"Bills","total":1200.5,"count":2},{"_id":"Food","total":99,"count":5}]`, rec.Body.String())
}

func TestSummary_StoreError(t *testing.T) {
	ctrl := gomock.NewController(t)
	st := mock_store.NewMockStore(ctrl)
	st.EXPECT().Summary(gomock.Any(), owner, gomock.Any()).Return(nil, errors.New("boom"))
	h := newRouter(t, st, nil)

	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/api/transactions/summary", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Server error", message(t, rec))
}

func TestExport(t *testing.T) {
	ctrl := gomock.NewController(t)
	st := mock_store.NewMockStore(ctrl)
	st.EXPECT().List(gomock.Any(), owner, model.DateRange{}).Return([]model.Record{
		record("SALARY CREDIT", "50000", time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC), model.CategoryOther, model.Credit),
	}, nil)
	h := newRouter(t, st, nil)

	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/api/transactions/export", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `attachment; filename="expense_report_`)
	assert.Equal(t, "Date,Description,Category,Amount,Type\n02/01/2023,SALARY CREDIT,Other,50000.00,credit\n", rec.Body.String())
}

func TestDeleteAll(t *testing.T) {
	ctrl := gomock.NewController(t)
	st := mock_store.NewMockStore(ctrl)
	st.EXPECT().DeleteAll(gomock.Any(), owner).Return(int64(7), nil)
	h := newRouter(t, st, nil)

	rec := do(t, h, httptest.NewRequest(http.MethodDelete, "/api/transactions/all", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"All transactions deleted","deleted":7}`, rec.Body.String())
}

func TestAuthRequired(t *testing.T) {
	ctrl := gomock.NewController(t)
	h := newRouter(t, mock_store.NewMockStore(ctrl), nil)

	for _, path := range []string{"/api/transactions", "/api/transactions/summary", "/api/transactions/export"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", "Bearer wrong")
		rec := do(t, h, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestHealth(t *testing.T) {
	ctrl := gomock.NewController(t)
	h := newRouter(t, mock_store.NewMockStore(ctrl), nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Authorization", "none")
	rec := do(t, h, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestNotFoundAndMethod(t *testing.T) {
	ctrl := gomock.NewController(t)
	h := newRouter(t, mock_store.NewMockStore(ctrl), nil)

	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, httptest.NewRequest(http.MethodGet, "/api/transactions/all", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
