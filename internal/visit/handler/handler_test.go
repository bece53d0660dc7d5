package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"caretrail/internal/platform/middleware"
	"caretrail/internal/visit/engine"
	"caretrail/internal/visit/handler/mocks"
	"caretrail/internal/visit/models"
	id "caretrail/pkg/domain"
	dErrors "caretrail/pkg/domain-errors"
	"caretrail/pkg/testutil"
)

//go:generate mockgen -source=handler.go -destination=mocks/handler-mocks.go -package=mocks Service

// staticValidator accepts any bearer token and returns fixed claims; auth
// internals are covered by the jwt package's own tests.
type staticValidator struct {
	actorID string
}

func (v staticValidator) ValidateToken(string) (*middleware.JWTClaims, error) {
	return &middleware.JWTClaims{ActorID: v.actorID, Role: "caregiver"}, nil
}

func newTestHandler(t *testing.T) (chi.Router, *mocks.MockService) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	mockService := mocks.NewMockService(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	h := New(mockService, logger, nil, staticValidator{actorID: uuid.NewString()})
	r := chi.NewRouter()
	h.Register(r)
	return r, mockService
}

func authed(req *http.Request) *http.Request {
	req.Header.Set("Authorization", "Bearer test-token")
	return req
}

func sampleRecord(visitID id.VisitID, status id.VisitStatus) *models.VisitRecord {
	return &models.VisitRecord{
		ID:       visitID,
		OrgID:    id.OrgID(uuid.New()),
		BranchID: id.BranchID(uuid.New()),
		ClientID: id.ClientID(uuid.New()),
		Schedule: models.Schedule{
			ServiceDate: time.Date(2025, time.March, 3, 0, 0, 0, 0, time.UTC),
			StartTime:   "09:00",
			EndTime:     "11:00",
			Duration:    2 * time.Hour,
		},
		Status:        status,
		IntegrityHash: "abc123",
		PreviousHash:  "def456",
		Version:       2,
	}
}

func TestHandleCheckIn(t *testing.T) {
	router, mockService := newTestHandler(t)
	visitID := id.NewVisitID()

	t.Run("happy path", func(t *testing.T) {
		ts := time.Date(2025, time.March, 3, 14, 2, 0, 0, time.UTC)
		mockService.EXPECT().
			CheckIn(gomock.Any(), visitID, &models.LocationFix{Latitude: 42.65, Longitude: -73.75}, ts).
			Return(sampleRecord(visitID, id.StatusCheckedIn), nil)

		req := testutil.NewJSONRequest(t, http.MethodPost, "/visits/"+visitID.String()+"/check-in", map[string]any{
			"timestamp": "2025-03-03T14:02:00Z",
			"latitude":  42.65,
			"longitude": -73.75,
		})
		rr := testutil.DoRequest(router, authed(req))

		testutil.AssertStatusOK(t, rr)
		testutil.AssertJSONContains(t, rr, "status", "CHECKED_IN")
		testutil.AssertJSONContains(t, rr, "visit_id", visitID.String())
	})

	t.Run("missing fix still accepted", func(t *testing.T) {
		ts := time.Date(2025, time.March, 3, 14, 2, 0, 0, time.UTC)
		mockService.EXPECT().
			CheckIn(gomock.Any(), visitID, nil, ts).
			Return(sampleRecord(visitID, id.StatusCheckedIn), nil)

		req := testutil.NewJSONRequest(t, http.MethodPost, "/visits/"+visitID.String()+"/check-in", map[string]any{
			"timestamp": "2025-03-03T14:02:00Z",
		})
		rr := testutil.DoRequest(router, authed(req))
		testutil.AssertStatusOK(t, rr)
	})

	t.Run("missing timestamp rejected", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/visits/"+visitID.String()+"/check-in", map[string]any{
			"latitude": 1.0, "longitude": 2.0,
		})
		rr := testutil.DoRequest(router, authed(req))
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, string(dErrors.CodeBadRequest))
	})

	t.Run("malformed visit id rejected", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/visits/not-a-uuid/check-in", map[string]any{
			"timestamp": "2025-03-03T14:02:00Z",
		})
		rr := testutil.DoRequest(router, authed(req))
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})

	t.Run("unauthenticated rejected", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/visits/"+visitID.String()+"/check-in", map[string]any{
			"timestamp": "2025-03-03T14:02:00Z",
		})
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatus(t, rr, http.StatusUnauthorized)
	})
}

func TestCheckInThenCheckOutFlow(t *testing.T) {
	testutil.Given(t, "a scheduled visit", func(t *testing.T) {
		router, mockService := newTestHandler(t)
		visitID := id.NewVisitID()
		inAt := time.Date(2025, time.March, 3, 9, 1, 0, 0, time.UTC)
		outAt := time.Date(2025, time.March, 3, 11, 4, 0, 0, time.UTC)

		testutil.When(t, "the caregiver checks in and later checks out", func(t *testing.T) {
			mockService.EXPECT().
				CheckIn(gomock.Any(), visitID, gomock.Any(), inAt).
				Return(sampleRecord(visitID, id.StatusCheckedIn), nil)
			mockService.EXPECT().
				CheckOut(gomock.Any(), visitID, gomock.Any(), outAt).
				Return(sampleRecord(visitID, id.StatusCheckedOut), nil)

			inReq := testutil.NewJSONRequest(t, http.MethodPost, "/visits/"+visitID.String()+"/check-in", map[string]any{
				"timestamp": "2025-03-03T09:01:00Z", "latitude": 42.65, "longitude": -73.75,
			})
			inRR := testutil.DoRequest(router, authed(inReq))

			outReq := testutil.NewJSONRequest(t, http.MethodPost, "/visits/"+visitID.String()+"/check-out", map[string]any{
				"timestamp": "2025-03-03T11:04:00Z", "latitude": 42.65, "longitude": -73.75,
			})
			outRR := testutil.DoRequest(router, authed(outReq))

			testutil.Then(t, "both transitions succeed and report their status", func(t *testing.T) {
				testutil.AssertStatusOK(t, inRR)
				testutil.AssertJSONContains(t, inRR, "status", "CHECKED_IN")
				testutil.AssertStatusOK(t, outRR)
				testutil.AssertJSONContains(t, outRR, "status", "CHECKED_OUT")
				testutil.AssertJSONContains(t, outRR, "visit_id", visitID.String())
			})
		})
	})
}

func TestHandleCheckOut_InvalidTransition(t *testing.T) {
	router, mockService := newTestHandler(t)
	visitID := id.NewVisitID()

	mockService.EXPECT().
		CheckOut(gomock.Any(), visitID, gomock.Any(), gomock.Any()).
		Return(nil, dErrors.New(dErrors.CodeInvalidTransition,
			"visit %s: check_out not permitted from status SCHEDULED", visitID))

	req := testutil.NewJSONRequest(t, http.MethodPost, "/visits/"+visitID.String()+"/check-out", map[string]any{
		"timestamp": "2025-03-03T16:00:00Z",
		"latitude":  42.65,
		"longitude": -73.75,
	})
	rr := testutil.DoRequest(router, authed(req))

	testutil.AssertStatusAndError(t, rr, http.StatusConflict, string(dErrors.CodeInvalidTransition))
	body := testutil.UnmarshalErrorResponse(t, rr)
	assert.Contains(t, body["message"], visitID.String())
	assert.Contains(t, body["message"], "SCHEDULED")
}

func TestHandleVerify(t *testing.T) {
	router, mockService := newTestHandler(t)
	visitID := id.NewVisitID()

	t.Run("verified", func(t *testing.T) {
		mockService.EXPECT().Verify(gomock.Any(), visitID).
			Return(sampleRecord(visitID, id.StatusVerified), nil)

		req := testutil.NewRequest(t, http.MethodPost, "/visits/"+visitID.String()+"/verify")
		rr := testutil.DoRequest(router, authed(req))
		testutil.AssertStatusOK(t, rr)
		testutil.AssertJSONContains(t, rr, "status", "VERIFIED")
	})

	t.Run("not found", func(t *testing.T) {
		mockService.EXPECT().Verify(gomock.Any(), visitID).
			Return(nil, dErrors.New(dErrors.CodeNotFound, "visit %s", visitID))

		req := testutil.NewRequest(t, http.MethodPost, "/visits/"+visitID.String()+"/verify")
		rr := testutil.DoRequest(router, authed(req))
		testutil.AssertStatusAndError(t, rr, http.StatusNotFound, string(dErrors.CodeNotFound))
	})
}

func TestHandleResolve(t *testing.T) {
	router, mockService := newTestHandler(t)
	visitID := id.NewVisitID()

	t.Run("close with note", func(t *testing.T) {
		mockService.EXPECT().
			Resolve(gomock.Any(), visitID, id.StatusClosed, "could not substantiate").
			Return(sampleRecord(visitID, id.StatusClosed), nil)

		req := testutil.NewJSONRequest(t, http.MethodPost, "/visits/"+visitID.String()+"/resolve", map[string]any{
			"target_status":   "CLOSED",
			"resolution_note": "could not substantiate",
		})
		rr := testutil.DoRequest(router, authed(req))
		testutil.AssertStatusOK(t, rr)
		testutil.AssertJSONContains(t, rr, "status", "CLOSED")
	})

	t.Run("bogus target status rejected before the engine", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/visits/"+visitID.String()+"/resolve", map[string]any{
			"target_status":   "DELETED",
			"resolution_note": "n",
		})
		rr := testutil.DoRequest(router, authed(req))
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, string(dErrors.CodeBadRequest))
	})
}

func TestHandleGet(t *testing.T) {
	router, mockService := newTestHandler(t)
	visitID := id.NewVisitID()

	mockService.EXPECT().Get(gomock.Any(), visitID).
		Return(sampleRecord(visitID, id.StatusScheduled), nil)

	req := testutil.NewRequest(t, http.MethodGet, "/visits/"+visitID.String())
	rr := testutil.DoRequest(router, authed(req))

	testutil.AssertStatusOK(t, rr)
	resp := testutil.UnmarshalResponse[map[string]any](t, rr)
	assert.Equal(t, "SCHEDULED", (*resp)["status"])
	assert.Equal(t, float64(2), (*resp)["version"])
	assert.Equal(t, "abc123", (*resp)["integrity_hash"])
}

func TestHandleAuditExport(t *testing.T) {
	router, mockService := newTestHandler(t)
	visitID := id.NewVisitID()

	t.Run("returns chain entries", func(t *testing.T) {
		mockService.EXPECT().ExportAuditTrail(gomock.Any(), visitID).
			Return(&engine.AuditExport{
				VisitID:     visitID.String(),
				GenesisSeed: "seed",
				Entries: []engine.ExportEntry{
					{Version: 1, Status: "SCHEDULED", IntegrityHash: "h1", PreviousHash: "seed", CanonicalBase64: "e30="},
				},
			}, nil)

		req := testutil.NewRequest(t, http.MethodGet, "/visits/"+visitID.String()+"/audit-export")
		rr := testutil.DoRequest(router, authed(req))

		testutil.AssertStatusOK(t, rr)
		export := testutil.UnmarshalResponse[engine.AuditExport](t, rr)
		require.Len(t, export.Entries, 1)
		assert.Equal(t, "h1", export.Entries[0].IntegrityHash)
	})

	t.Run("broken chain surfaces as integrity mismatch", func(t *testing.T) {
		mockService.EXPECT().ExportAuditTrail(gomock.Any(), visitID).
			Return(nil, dErrors.Wrap(dErrors.CodeIntegrityMismatch, errors.New("chain link broken"), "visit %s", visitID))

		req := testutil.NewRequest(t, http.MethodGet, "/visits/"+visitID.String()+"/audit-export")
		rr := testutil.DoRequest(router, authed(req))
		testutil.AssertStatusAndError(t, rr, http.StatusInternalServerError, string(dErrors.CodeIntegrityMismatch))
	})
}
