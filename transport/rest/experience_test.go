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

func TestExperienceController(t *testing.T) {
	assert := assert.New(t)

	store := inmem.NewActivityStore()
	store.Put(reengage.MemberActivity{UserId: "user_1", CompanyId: "biz_1", Status: reengage.StatusAtRisk,
		LastActiveAt: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)})

	app := newTestApp()
	controller := &ExperienceController{Directory: testDirectory(), Activities: store}
	controller.InstallTo(IdentityAuthorizer(testVerifier()), app)

	resp, err := app.Test(withToken(newRequest("GET", "/experiences/exp_1", nil), validToken))
	if assert.NoError(err) {
		assert.Equal(fiber.StatusOK, resp.StatusCode)
		assert.JSONEq(`{"experienceId":"exp_1","experienceName":"Lounge","companyId":"biz_1",`+
			`"accessLevel":"customer","userName":"Ada","memberStatus":"at_risk"}`, readBody(t, resp))
	}

	// admin without an activity row yet
	resp, err = app.Test(withToken(newRequest("GET", "/experiences/exp_1", nil), "admin-token"))
	if assert.NoError(err) {
		assert.Equal(fiber.StatusOK, resp.StatusCode)
		assert.JSONEq(`{"experienceId":"exp_1","experienceName":"Lounge","companyId":"biz_1",`+
			`"accessLevel":"admin","userName":"there","memberStatus":""}`, readBody(t, resp))
	}
}

func TestExperienceControllerAccess(t *testing.T) {
	app := newTestApp()
	controller := &ExperienceController{Directory: testDirectory()}
	controller.InstallTo(IdentityAuthorizer(testVerifier()), app)

	cases := []struct {
		name   string
		path   string
		token  string
		status int
	}{
		{"anonymous", "/experiences/exp_1", "", fiber.StatusUnauthorized},
		{"bad token", "/experiences/exp_1", "forged", fiber.StatusUnauthorized},
		{"no access", "/experiences/exp_1", outsiderToken, fiber.StatusForbidden},
		{"unknown experience", "/experiences/exp_404", validToken, fiber.StatusForbidden},
		{"customer", "/experiences/exp_1", validToken, fiber.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := newRequest("GET", tc.path, nil)
			if tc.token != "" {
				withToken(req, tc.token)
			}
			resp, err := app.Test(req)
			if assert.NoError(t, err) {
				assert.Equal(t, tc.status, resp.StatusCode)
			}
		})
	}
}

func TestExperienceControllerActivityReadFailure(t *testing.T) {
	assert := assert.New(t)

	store := &mock.ActivityStore{ByKeyFn: func(ctx context.Context, key reengage.Key) (reengage.MemberActivity, error) {
		return reengage.MemberActivity{}, errors.New("connection refused")
	}}
	app := newTestApp()
	controller := &ExperienceController{Directory: testDirectory(), Activities: store}
	controller.InstallTo(IdentityAuthorizer(testVerifier()), app)

	// the company id matters more to the beacon than the status
	resp, err := app.Test(withToken(newRequest("GET", "/experiences/exp_1", nil), validToken))
	if assert.NoError(err) {
		assert.Equal(fiber.StatusOK, resp.StatusCode)
		assert.Contains(readBody(t, resp), `"companyId":"biz_1"`)
	}
}
