package users

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/sahzadahmad246/potholemap/testutils"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestMain(m *testing.M) {
	testutils.InitTestMain()

	log.SetOutput(io.Discard)

	exitCode := m.Run()

	log.SetOutput(os.Stdout)

	os.Exit(exitCode)
}

func TestGetMyProfile_Success(t *testing.T) {
	_, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	userID := "abc12345-e89b-12d3-a456-426614174000"

	mock.ExpectQuery(`SELECT (.+) FROM "users" WHERE id = (.+)`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "name", "role"}).
			AddRow(userID, "alice@example.com", "Alice", "USER"))

	mock.ExpectQuery(`SELECT "pothole_id" FROM "user_pothole_refs" WHERE user_id = (.+) AND kind = (.+)`).
		WillReturnRows(sqlmock.NewRows([]string{"pothole_id"}).
			AddRow("pothole1").
			AddRow("pothole2"))

	mock.ExpectQuery(`SELECT "pothole_id" FROM "user_pothole_refs" WHERE user_id = (.+) AND kind = (.+)`).
		WillReturnRows(sqlmock.NewRows([]string{"pothole_id"}).AddRow("pothole3"))

	mock.ExpectQuery(`SELECT "pothole_id" FROM "pothole_upvotes" WHERE user_id = (.+)`).
		WillReturnRows(sqlmock.NewRows([]string{"pothole_id"}).AddRow("pothole2"))

	mock.ExpectQuery(`SELECT "pothole_id" FROM "spam_reports" WHERE user_id = (.+)`).
		WillReturnRows(sqlmock.NewRows([]string{"pothole_id"}))

	mock.ExpectQuery(`SELECT "pothole_id" FROM "repair_votes" WHERE user_id = (.+) AND kind = (.+)`).
		WillReturnRows(sqlmock.NewRows([]string{"pothole_id"}).AddRow("pothole3"))

	mock.ExpectQuery(`SELECT "pothole_id" FROM "repair_votes" WHERE user_id = (.+) AND kind = (.+)`).
		WillReturnRows(sqlmock.NewRows([]string{"pothole_id"}))

	r := testutils.SetupTestRouter()
	r.GET("/users/me", func(c *gin.Context) {
		c.Set("user_id", userID)
		GetMyProfile(c)
	})

	req, _ := http.NewRequest(http.MethodGet, "/users/me", nil)
	resp := httptest.NewRecorder()

	r.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusOK, resp.Code)

	var respBody map[string]interface{}
	json.Unmarshal(resp.Body.Bytes(), &respBody)

	user := respBody["user"].(map[string]interface{})
	assert.Equal(t, userID, user["id"])

	assert.Len(t, respBody["reportedPotholes"], 2)
	assert.Len(t, respBody["commentedPotholes"], 1)
	assert.Len(t, respBody["upvotedPotholes"], 1)
	assert.Len(t, respBody["spamReportedPotholes"], 0)
	assert.Len(t, respBody["repairUpvotes"], 1)
	assert.Len(t, respBody["repairDownvotes"], 0)
}

func TestGetMyProfile_Unauthorized(t *testing.T) {
	r := testutils.SetupTestRouter()
	r.GET("/users/me", GetMyProfile)

	req, _ := http.NewRequest(http.MethodGet, "/users/me", nil)
	resp := httptest.NewRecorder()

	r.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}
