package rest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/reengageai/reengage"
	"github.com/reengageai/reengage/inmem"
	"github.com/reengageai/reengage/mock"
	"github.com/stretchr/testify/assert"
)

func TestActivityController(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	store := inmem.NewActivityStore()
	store.Put(reengage.MemberActivity{UserId: "user_1", CompanyId: "biz_1",
		Status: reengage.StatusAtRisk, LastActiveAt: now.AddDate(0, 0, -30)})

	app := newTestApp()
	controller := &ActivityController{
		Recorder: &reengage.Recorder{Store: store, Now: func() time.Time { return now }},
	}
	controller.InstallTo(IdentityAuthorizer(testVerifier()), app)

	resp, err := app.Test(withToken(jsonRequest("POST", "/activity", `{"companyId":"biz_1"}`), validToken))
	if !assert.NoError(err) {
		return
	}
	assert.Equal(fiber.StatusOK, resp.StatusCode)
	assert.Equal(`{"success":true}`, readBody(t, resp))

	row, err := store.ByKey(ctx, reengage.Key{UserId: "user_1", CompanyId: "biz_1"})
	if assert.NoError(err) {
		assert.Equal(reengage.StatusActive, row.Status)
		assert.Equal(now, row.LastActiveAt)
	}
}

func TestActivityControllerRejections(t *testing.T) {
	store := inmem.NewActivityStore()
	app := newTestApp()
	controller := &ActivityController{Recorder: &reengage.Recorder{Store: store}}
	controller.InstallTo(IdentityAuthorizer(testVerifier()), app)

	cases := []struct {
		name   string
		token  string
		body   string
		status int
		error  string
	}{
		{"no token", "", `{"companyId":"biz_1"}`, fiber.StatusUnauthorized, "Unauthorized"},
		{"bad token", "forged", `{"companyId":"biz_1"}`, fiber.StatusUnauthorized, "Unauthorized"},
		{"no company", validToken, `{}`, fiber.StatusBadRequest, "Company ID required"},
		{"empty company", validToken, `{"companyId":""}`, fiber.StatusBadRequest, "Company ID required"},
		{"broken json", validToken, `{"companyId":`, fiber.StatusBadRequest, "Company ID required"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)
			req := jsonRequest("POST", "/activity", tc.body)
			if tc.token != "" {
				withToken(req, tc.token)
			}
			resp, err := app.Test(req)
			if !assert.NoError(err) {
				return
			}
			assert.Equal(tc.status, resp.StatusCode)
			assert.Equal(JsonErrorMessageResponse(tc.error), readBody(t, resp))
		})
	}

	rows, err := store.All(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 0, len(rows))
}

func TestActivityControllerDatabaseError(t *testing.T) {
	assert := assert.New(t)

	store := &mock.ActivityStore{TouchFn: func(ctx context.Context, key reengage.Key, at time.Time) error {
		return errors.New("connection refused")
	}}
	app := newTestApp()
	controller := &ActivityController{Recorder: &reengage.Recorder{Store: store}}
	controller.InstallTo(IdentityAuthorizer(testVerifier()), app)

	resp, err := app.Test(withToken(jsonRequest("POST", "/activity", `{"companyId":"biz_1"}`), validToken))
	if !assert.NoError(err) {
		return
	}
	assert.Equal(fiber.StatusInternalServerError, resp.StatusCode)
	assert.Equal(JsonErrorMessageResponse("Database error"), readBody(t, resp))
}
