package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/stampcard-app/stampcard/stampcard/auth"
	"github.com/stampcard-app/stampcard/stampcard/database/models"
	"github.com/stampcard-app/stampcard/stampcard/database/repositories"
	"github.com/stampcard-app/stampcard/stampcard/database/repositories/mock"
	"github.com/stampcard-app/stampcard/stampcard/services"
	"github.com/stampcard-app/stampcard/stampcard/web/handlers"
	"github.com/stampcard-app/stampcard/stampcard/web/middleware"
)

type testEnv struct {
	app         *fiber.App
	programs    *mock.MockProgramRepository
	memberships *mock.MockMembershipRepository
	token       string
	user        *auth.UserRef
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctrl := gomock.NewController(t)
	programs := mock.NewMockProgramRepository(ctrl)
	memberships := mock.NewMockMembershipRepository(ctrl)

	session := auth.NewSession(auth.NewMemoryVerifier(), "test-secret", time.Hour)
	user := &auth.UserRef{ID: "u_test", Phone: "+14155550100"}
	token, err := session.IssueToken(user)
	require.NoError(t, err)

	webApp := &handlers.WebApp{
		Session:        session,
		ProgramRepo:    programs,
		MembershipRepo: memberships,
		Registration:   services.NewRegistrationService(programs, memberships),
		Checkin:        services.NewCheckinService(programs, memberships),
		Redemption:     services.NewRedemptionService(memberships),
		Search:         services.NewSearchService(programs),
		AdminPhones:    map[string]bool{"+14155550100": true},
	}

	app := fiber.New()
	api := app.Group("/api/v1")
	api.Get("/programs/search", handlers.SearchPrograms(webApp))

	membershipsGroup := api.Group("/memberships", middleware.AuthRequired(webApp))
	membershipsGroup.Get("/", handlers.ListMemberships(webApp))
	membershipsGroup.Post("/", handlers.RegisterMembership(webApp))
	membershipsGroup.Post("/:id/checkin", handlers.Checkin(webApp))
	membershipsGroup.Delete("/:id", handlers.Redeem(webApp))

	return &testEnv{
		app:         app,
		programs:    programs,
		memberships: memberships,
		token:       token,
		user:        user,
	}
}

func (e *testEnv) request(t *testing.T, method, path string, body interface{}, withAuth bool) (*http.Response, map[string]interface{}) {
	t.Helper()

	var buf io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		buf = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if withAuth {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)

	var parsed map[string]interface{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &parsed))
	}
	return resp, parsed
}

// errMessage digs the human-readable message out of an error envelope.
func errMessage(body map[string]interface{}) string {
	errObj, ok := body["error"].(map[string]interface{})
	if !ok {
		return ""
	}
	msg, _ := errObj["message"].(string)
	return msg
}

func testProgram() *models.Program {
	return &models.Program{
		ID:             "prog-1",
		Title:          "Noodle House",
		TargetCheckins: 8,
		Reward:         "Free ramen",
		Code:           "NOODLE8",
		CheckinCode:    "secret-stamp",
	}
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t)

	t.Run("missing token", func(t *testing.T) {
		resp, body := env.request(t, http.MethodGet, "/api/v1/memberships/", nil, false)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, false, body["success"])
	})

	t.Run("garbage token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/memberships/", nil)
		req.Header.Set("Authorization", "Bearer not-a-token")
		resp, err := env.app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestListMemberships(t *testing.T) {
	env := newTestEnv(t)
	env.memberships.EXPECT().
		GetByPhone(gomock.Any(), "+14155550100").
		Return([]*models.Membership{
			{ID: "mem-1", Title: "Noodle House", Phone: "+14155550100", CurrentCheckins: 3, TargetCheckins: 8, Status: models.MembershipStatusInProgress},
		}, nil)

	resp, body := env.request(t, http.MethodGet, "/api/v1/memberships/", nil, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])

	data, ok := body["data"].([]interface{})
	require.True(t, ok, "data should be a list")
	require.Len(t, data, 1)
	first := data[0].(map[string]interface{})
	assert.Equal(t, "mem-1", first["id"])
}

func TestRegisterMembership(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		env := newTestEnv(t)
		env.programs.EXPECT().
			GetByCode(gomock.Any(), "NOODLE8").
			Return(testProgram(), nil)
		env.memberships.EXPECT().
			Create(gomock.Any(), gomock.Any()).
			Return(nil)

		resp, body := env.request(t, http.MethodPost, "/api/v1/memberships/",
			map[string]string{"code": "NOODLE8"}, true)
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		data := body["data"].(map[string]interface{})
		assert.Equal(t, float64(1), data["current_checkins"])
		assert.Equal(t, models.MembershipStatusInProgress, data["status"])
	})

	t.Run("unknown code", func(t *testing.T) {
		env := newTestEnv(t)
		env.programs.EXPECT().
			GetByCode(gomock.Any(), "NOPE").
			Return(nil, repositories.ErrProgramNotFound)

		resp, body := env.request(t, http.MethodPost, "/api/v1/memberships/",
			map[string]string{"code": "NOPE"}, true)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "No matching restaurant found for the code provided", errMessage(body))
	})

	t.Run("missing code", func(t *testing.T) {
		env := newTestEnv(t)
		resp, _ := env.request(t, http.MethodPost, "/api/v1/memberships/",
			map[string]string{}, true)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestCheckin(t *testing.T) {
	membership := func() *models.Membership {
		return &models.Membership{
			ID:              "mem-1",
			Phone:           "+14155550100",
			CurrentCheckins: 3,
			TargetCheckins:  8,
			Status:          models.MembershipStatusInProgress,
			ProgramID:       "prog-1",
		}
	}

	t.Run("success", func(t *testing.T) {
		env := newTestEnv(t)
		env.memberships.EXPECT().
			GetByID(gomock.Any(), "mem-1").
			Return(membership(), nil)
		env.programs.EXPECT().
			GetByID(gomock.Any(), "prog-1").
			Return(testProgram(), nil)
		updated := membership()
		updated.CurrentCheckins = 4
		env.memberships.EXPECT().
			AdvanceCheckin(gomock.Any(), "mem-1").
			Return(updated, false, nil)

		resp, body := env.request(t, http.MethodPost, "/api/v1/memberships/mem-1/checkin",
			map[string]string{"code": "secret-stamp"}, true)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "Check-in successful.", body["message"])
	})

	t.Run("wrong code", func(t *testing.T) {
		env := newTestEnv(t)
		env.memberships.EXPECT().
			GetByID(gomock.Any(), "mem-1").
			Return(membership(), nil)
		env.programs.EXPECT().
			GetByID(gomock.Any(), "prog-1").
			Return(testProgram(), nil)

		resp, body := env.request(t, http.MethodPost, "/api/v1/memberships/mem-1/checkin",
			map[string]string{"code": "guess"}, true)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "Check-in code is not correct", errMessage(body))
	})

	t.Run("someone else's membership", func(t *testing.T) {
		env := newTestEnv(t)
		other := membership()
		other.Phone = "+14155550199"
		env.memberships.EXPECT().
			GetByID(gomock.Any(), "mem-1").
			Return(other, nil)

		resp, _ := env.request(t, http.MethodPost, "/api/v1/memberships/mem-1/checkin",
			map[string]string{"code": "secret-stamp"}, true)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("already complete", func(t *testing.T) {
		env := newTestEnv(t)
		done := membership()
		done.CurrentCheckins = 8
		done.Status = models.MembershipStatusCompleted
		env.memberships.EXPECT().
			GetByID(gomock.Any(), "mem-1").
			Return(done, nil)

		resp, _ := env.request(t, http.MethodPost, "/api/v1/memberships/mem-1/checkin",
			map[string]string{"code": "secret-stamp"}, true)
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})
}

func TestRedeem(t *testing.T) {
	env := newTestEnv(t)
	env.memberships.EXPECT().
		GetByID(gomock.Any(), "mem-1").
		Return(&models.Membership{
			ID:              "mem-1",
			Phone:           "+14155550100",
			CurrentCheckins: 8,
			TargetCheckins:  8,
			Status:          models.MembershipStatusCompleted,
		}, nil)
	env.memberships.EXPECT().
		Delete(gomock.Any(), "mem-1").
		Return(nil)

	resp, body := env.request(t, http.MethodDelete, "/api/v1/memberships/mem-1", nil, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Reward redeemed", body["message"])
}

func TestSearchPrograms(t *testing.T) {
	env := newTestEnv(t)
	env.programs.EXPECT().
		GetAll(gomock.Any()).
		Return([]*models.Program{testProgram()}, nil)

	resp, body := env.request(t, http.MethodGet, "/api/v1/programs/search?q=noodle", nil, false)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	data, ok := body["data"].([]interface{})
	require.True(t, ok)
	require.Len(t, data, 1)
	first := data[0].(map[string]interface{})
	assert.Equal(t, "Noodle House", first["title"])
	// The stamping secret must never leave the server.
	assert.NotContains(t, first, "checkin_code")
}
