package repair

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/sahzadahmad246/potholemap/testutils"
	"github.com/sahzadahmad246/potholemap/utils"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestMain(m *testing.M) {
	testutils.InitTestMain()

	log.SetOutput(io.Discard)

	exitCode := m.Run()

	log.SetOutput(os.Stdout)

	os.Exit(exitCode)
}

func stubImageUploads(t *testing.T) (*int, *int) {
	uploads := 0
	deletes := 0

	originalUpload := utils.UploadImage
	originalDelete := utils.DeleteImage

	utils.UploadImage = func(file *multipart.FileHeader, folder string, prefix string) (string, string, error) {
		uploads++
		return "https://res.cloudinary.com/demo/repair.jpg", "pothole_repair_claims/repair_test", nil
	}
	utils.DeleteImage = func(publicID string) error {
		deletes++
		return nil
	}

	t.Cleanup(func() {
		utils.UploadImage = originalUpload
		utils.DeleteImage = originalDelete
	})

	return &uploads, &deletes
}

func newClaimRequest(t *testing.T, potholeID string, note string) *http.Request {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("image", "repair.jpg")
	if err != nil {
		t.Fatalf("Error creating the multipart file: %s", err)
	}
	part.Write([]byte("fake image data"))

	if note != "" {
		writer.WriteField("note", note)
	}
	writer.Close()

	req, _ := http.NewRequest(http.MethodPost, "/potholes/"+potholeID+"/repair-claim", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func setupClaimRouter(userID string) *gin.Engine {
	r := testutils.SetupTestRouter()
	r.POST("/potholes/:id/repair-claim", func(c *gin.Context) {
		c.Set("user_id", userID)
		SubmitRepairClaim(c)
	})
	return r
}

func TestSubmitRepairClaim_Success(t *testing.T) {
	_, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	uploads, deletes := stubImageUploads(t)

	potholeID := "123e4567-e89b-12d3-a456-426614174000"
	userID := "abc12345-e89b-12d3-a456-426614174000"

	mock.ExpectQuery(`SELECT (.+) FROM "potholes" WHERE id = (.+) AND deleted = (.+)`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status"}).AddRow(potholeID, "active"))

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM "potholes" WHERE id = (.+) FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status"}).AddRow(potholeID, "under_review"))
	mock.ExpectExec(`DELETE FROM "repair_votes" WHERE pothole_id = (.+)`).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`DELETE FROM "repair_claims" WHERE pothole_id = (.+)`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO "repair_claims" (.+) RETURNING`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("claim123"))
	mock.ExpectExec(`UPDATE "potholes" SET (.+)`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	mock.ExpectQuery(`SELECT (.+) FROM "repair_claims" WHERE id = (.+)`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "pothole_id", "submitted_by", "image_url"}).
			AddRow("claim123", potholeID, userID, "https://res.cloudinary.com/demo/repair.jpg"))
	mock.ExpectQuery(`SELECT (.+) FROM "users" WHERE "users"\."id" (.+)`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(userID, "Alice"))

	resp := httptest.NewRecorder()
	setupClaimRouter(userID).ServeHTTP(resp, newClaimRequest(t, potholeID, "Filled with asphalt"))

	assert.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, 1, *uploads)
	assert.Equal(t, 0, *deletes)

	var claim map[string]interface{}
	json.Unmarshal(resp.Body.Bytes(), &claim)
	assert.Equal(t, "claim123", claim["id"])
}

func TestSubmitRepairClaim_AlreadyRepaired(t *testing.T) {
	_, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	uploads, _ := stubImageUploads(t)

	potholeID := "123e4567-e89b-12d3-a456-426614174000"
	userID := "abc12345-e89b-12d3-a456-426614174000"

	mock.ExpectQuery(`SELECT (.+) FROM "potholes" WHERE id = (.+) AND deleted = (.+)`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status"}).AddRow(potholeID, "repaired"))

	resp := httptest.NewRecorder()
	setupClaimRouter(userID).ServeHTTP(resp, newClaimRequest(t, potholeID, ""))

	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.Equal(t, 0, *uploads)

	var respBody map[string]string
	json.Unmarshal(resp.Body.Bytes(), &respBody)
	assert.Contains(t, respBody["error"], "already marked as repaired")
}

func TestSubmitRepairClaim_RepairedInsideUnitReleasesImage(t *testing.T) {
	_, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	uploads, deletes := stubImageUploads(t)

	potholeID := "123e4567-e89b-12d3-a456-426614174000"
	userID := "abc12345-e89b-12d3-a456-426614174000"

	mock.ExpectQuery(`SELECT (.+) FROM "potholes" WHERE id = (.+) AND deleted = (.+)`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status"}).AddRow(potholeID, "active"))

	// A concurrent claim wins between the pre-check and the lock
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM "potholes" WHERE id = (.+) FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status"}).AddRow(potholeID, "repaired"))
	mock.ExpectRollback()

	resp := httptest.NewRecorder()
	setupClaimRouter(userID).ServeHTTP(resp, newClaimRequest(t, potholeID, ""))

	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.Equal(t, 1, *uploads)
	assert.Equal(t, 1, *deletes)
}

func TestSubmitRepairClaim_MissingImage(t *testing.T) {
	_, _, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	potholeID := "123e4567-e89b-12d3-a456-426614174000"
	userID := "abc12345-e89b-12d3-a456-426614174000"

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	writer.WriteField("note", "no photo")
	writer.Close()

	req, _ := http.NewRequest(http.MethodPost, "/potholes/"+potholeID+"/repair-claim", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp := httptest.NewRecorder()

	setupClaimRouter(userID).ServeHTTP(resp, req)

	assert.Equal(t, http.StatusBadRequest, resp.Code)

	var respBody map[string]string
	json.Unmarshal(resp.Body.Bytes(), &respBody)
	assert.Contains(t, respBody["error"], "Image is required")
}

func setupVoteRouter(userID string) *gin.Engine {
	r := testutils.SetupTestRouter()
	r.POST("/potholes/:id/repair-claim/upvote", func(c *gin.Context) {
		c.Set("user_id", userID)
		ToggleRepairUpvote(c)
	})
	r.POST("/potholes/:id/repair-claim/downvote", func(c *gin.Context) {
		c.Set("user_id", userID)
		ToggleRepairDownvote(c)
	})
	return r
}

func expectClaimReload(mock sqlmock.Sqlmock, potholeID string, userID string, voteKind string) {
	mock.ExpectQuery(`SELECT (.+) FROM "repair_claims" WHERE pothole_id = (.+)`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "pothole_id", "submitted_by"}).
			AddRow("claim123", potholeID, "submitter1"))
	mock.ExpectQuery(`SELECT (.+) FROM "users" WHERE "users"\."id" (.+)`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow("submitter1", "Bob"))

	voteRows := sqlmock.NewRows([]string{"id", "pothole_id", "user_id", "kind"})
	if voteKind != "" {
		voteRows.AddRow("vote123", potholeID, userID, voteKind)
	}
	mock.ExpectQuery(`SELECT (.+) FROM "repair_votes" WHERE "repair_votes"\."pothole_id" (.+)`).
		WillReturnRows(voteRows)
	if voteKind != "" {
		mock.ExpectQuery(`SELECT (.+) FROM "users" WHERE "users"\."id" (.+)`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(userID, "Alice"))
	}
}

func TestToggleRepairUpvote_Add(t *testing.T) {
	_, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	potholeID := "123e4567-e89b-12d3-a456-426614174000"
	userID := "abc12345-e89b-12d3-a456-426614174000"

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM "potholes" WHERE id = (.+) AND deleted = (.+) FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status"}).AddRow(potholeID, "repaired"))
	mock.ExpectQuery(`SELECT (.+) FROM "repair_claims" WHERE pothole_id = (.+)`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "pothole_id"}).AddRow("claim123", potholeID))
	mock.ExpectQuery(`SELECT (.+) FROM "repair_votes" WHERE pothole_id = (.+) AND user_id = (.+)`).
		WillReturnError(gorm.ErrRecordNotFound)
	mock.ExpectQuery(`INSERT INTO "repair_votes" (.+) RETURNING "id"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("vote123"))
	mock.ExpectCommit()

	expectClaimReload(mock, potholeID, userID, "up")

	req, _ := http.NewRequest(http.MethodPost, "/potholes/"+potholeID+"/repair-claim/upvote", nil)
	resp := httptest.NewRecorder()

	setupVoteRouter(userID).ServeHTTP(resp, req)

	assert.Equal(t, http.StatusOK, resp.Code)

	var respBody map[string]interface{}
	json.Unmarshal(resp.Body.Bytes(), &respBody)
	assert.Equal(t, "Upvote added successfully", respBody["message"])
	assert.NotNil(t, respBody["repairClaim"])
}

func TestToggleRepairUpvote_Remove(t *testing.T) {
	_, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	potholeID := "123e4567-e89b-12d3-a456-426614174000"
	userID := "abc12345-e89b-12d3-a456-426614174000"

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM "potholes" WHERE id = (.+) AND deleted = (.+) FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status"}).AddRow(potholeID, "repaired"))
	mock.ExpectQuery(`SELECT (.+) FROM "repair_claims" WHERE pothole_id = (.+)`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "pothole_id"}).AddRow("claim123", potholeID))
	mock.ExpectQuery(`SELECT (.+) FROM "repair_votes" WHERE pothole_id = (.+) AND user_id = (.+)`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "pothole_id", "user_id", "kind"}).
			AddRow("vote123", potholeID, userID, "up"))
	mock.ExpectExec(`DELETE FROM "repair_votes" WHERE "repair_votes"\."id" = (.+)`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	expectClaimReload(mock, potholeID, userID, "")

	req, _ := http.NewRequest(http.MethodPost, "/potholes/"+potholeID+"/repair-claim/upvote", nil)
	resp := httptest.NewRecorder()

	setupVoteRouter(userID).ServeHTTP(resp, req)

	assert.Equal(t, http.StatusOK, resp.Code)

	var respBody map[string]interface{}
	json.Unmarshal(resp.Body.Bytes(), &respBody)
	assert.Equal(t, "Upvote removed successfully", respBody["message"])
}

func TestToggleRepairDownvote_SwitchFromUpvote(t *testing.T) {
	_, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	potholeID := "123e4567-e89b-12d3-a456-426614174000"
	userID := "abc12345-e89b-12d3-a456-426614174000"

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM "potholes" WHERE id = (.+) AND deleted = (.+) FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status"}).AddRow(potholeID, "repaired"))
	mock.ExpectQuery(`SELECT (.+) FROM "repair_claims" WHERE pothole_id = (.+)`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "pothole_id"}).AddRow("claim123", potholeID))
	mock.ExpectQuery(`SELECT (.+) FROM "repair_votes" WHERE pothole_id = (.+) AND user_id = (.+)`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "pothole_id", "user_id", "kind"}).
			AddRow("vote123", potholeID, userID, "up"))
	mock.ExpectExec(`DELETE FROM "repair_votes" WHERE "repair_votes"\."id" = (.+)`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO "repair_votes" (.+) RETURNING "id"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("vote456"))
	mock.ExpectCommit()

	expectClaimReload(mock, potholeID, userID, "down")

	body, _ := json.Marshal(map[string]string{"note": "Still a bump there"})
	req, _ := http.NewRequest(http.MethodPost, "/potholes/"+potholeID+"/repair-claim/downvote", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()

	setupVoteRouter(userID).ServeHTTP(resp, req)

	assert.Equal(t, http.StatusOK, resp.Code)

	var respBody map[string]interface{}
	json.Unmarshal(resp.Body.Bytes(), &respBody)
	assert.Equal(t, "Downvote added successfully", respBody["message"])
}

func TestToggleRepairUpvote_RetriesOnVoteRace(t *testing.T) {
	_, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	potholeID := "123e4567-e89b-12d3-a456-426614174000"
	userID := "abc12345-e89b-12d3-a456-426614174000"

	// First attempt loses the insert race on the (pothole, user) unique pair
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM "potholes" WHERE id = (.+) AND deleted = (.+) FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status"}).AddRow(potholeID, "repaired"))
	mock.ExpectQuery(`SELECT (.+) FROM "repair_claims" WHERE pothole_id = (.+)`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "pothole_id"}).AddRow("claim123", potholeID))
	mock.ExpectQuery(`SELECT (.+) FROM "repair_votes" WHERE pothole_id = (.+) AND user_id = (.+)`).
		WillReturnError(gorm.ErrRecordNotFound)
	mock.ExpectQuery(`INSERT INTO "repair_votes" (.+) RETURNING "id"`).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint \"idx_repair_vote_pair\""})
	mock.ExpectRollback()

	// The retry sees the committed concurrent vote and toggles it off
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM "potholes" WHERE id = (.+) AND deleted = (.+) FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status"}).AddRow(potholeID, "repaired"))
	mock.ExpectQuery(`SELECT (.+) FROM "repair_claims" WHERE pothole_id = (.+)`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "pothole_id"}).AddRow("claim123", potholeID))
	mock.ExpectQuery(`SELECT (.+) FROM "repair_votes" WHERE pothole_id = (.+) AND user_id = (.+)`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "pothole_id", "user_id", "kind"}).
			AddRow("vote123", potholeID, userID, "up"))
	mock.ExpectExec(`DELETE FROM "repair_votes" WHERE "repair_votes"\."id" = (.+)`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	expectClaimReload(mock, potholeID, userID, "")

	req, _ := http.NewRequest(http.MethodPost, "/potholes/"+potholeID+"/repair-claim/upvote", nil)
	resp := httptest.NewRecorder()

	setupVoteRouter(userID).ServeHTTP(resp, req)

	assert.Equal(t, http.StatusOK, resp.Code)

	var respBody map[string]interface{}
	json.Unmarshal(resp.Body.Bytes(), &respBody)
	assert.Equal(t, "Upvote removed successfully", respBody["message"])

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestToggleRepairUpvote_ConflictAfterRetry(t *testing.T) {
	_, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	potholeID := "123e4567-e89b-12d3-a456-426614174000"
	userID := "abc12345-e89b-12d3-a456-426614174000"

	for i := 0; i < 2; i++ {
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT (.+) FROM "potholes" WHERE id = (.+) AND deleted = (.+) FOR UPDATE`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "status"}).AddRow(potholeID, "repaired"))
		mock.ExpectQuery(`SELECT (.+) FROM "repair_claims" WHERE pothole_id = (.+)`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "pothole_id"}).AddRow("claim123", potholeID))
		mock.ExpectQuery(`SELECT (.+) FROM "repair_votes" WHERE pothole_id = (.+) AND user_id = (.+)`).
			WillReturnError(gorm.ErrRecordNotFound)
		mock.ExpectQuery(`INSERT INTO "repair_votes" (.+) RETURNING "id"`).
			WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint \"idx_repair_vote_pair\""})
		mock.ExpectRollback()
	}

	req, _ := http.NewRequest(http.MethodPost, "/potholes/"+potholeID+"/repair-claim/upvote", nil)
	resp := httptest.NewRecorder()

	setupVoteRouter(userID).ServeHTTP(resp, req)

	assert.Equal(t, http.StatusConflict, resp.Code)

	var respBody map[string]string
	json.Unmarshal(resp.Body.Bytes(), &respBody)
	assert.Contains(t, respBody["error"], "Concurrent vote detected")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestToggleRepairUpvote_NoClaim(t *testing.T) {
	_, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	potholeID := "123e4567-e89b-12d3-a456-426614174000"
	userID := "abc12345-e89b-12d3-a456-426614174000"

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM "potholes" WHERE id = (.+) AND deleted = (.+) FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status"}).AddRow(potholeID, "active"))
	mock.ExpectQuery(`SELECT (.+) FROM "repair_claims" WHERE pothole_id = (.+)`).
		WillReturnError(gorm.ErrRecordNotFound)
	mock.ExpectRollback()

	req, _ := http.NewRequest(http.MethodPost, "/potholes/"+potholeID+"/repair-claim/upvote", nil)
	resp := httptest.NewRecorder()

	setupVoteRouter(userID).ServeHTTP(resp, req)

	assert.Equal(t, http.StatusNotFound, resp.Code)

	var respBody map[string]string
	json.Unmarshal(resp.Body.Bytes(), &respBody)
	assert.Contains(t, respBody["error"], "No repair claim exists")
}

func TestToggleRepairDownvote_NoteTooLong(t *testing.T) {
	_, _, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	potholeID := "123e4567-e89b-12d3-a456-426614174000"
	userID := "abc12345-e89b-12d3-a456-426614174000"

	body, _ := json.Marshal(map[string]string{"note": strings.Repeat("a", 201)})
	req, _ := http.NewRequest(http.MethodPost, "/potholes/"+potholeID+"/repair-claim/downvote", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()

	setupVoteRouter(userID).ServeHTTP(resp, req)

	assert.Equal(t, http.StatusBadRequest, resp.Code)

	var respBody map[string]string
	json.Unmarshal(resp.Body.Bytes(), &respBody)
	assert.Contains(t, respBody["error"], "200 characters")
}
