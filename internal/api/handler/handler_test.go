package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"tutorhub/backend/internal/api/validate"
	"tutorhub/backend/internal/dto"
	"tutorhub/backend/internal/scheduling"
	"tutorhub/backend/internal/service"
	"tutorhub/backend/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
	if err := validate.Register(16); err != nil {
		panic(err)
	}
}

// ═══════════════════════════════════════════════════════════
// Mock Services
// ═══════════════════════════════════════════════════════════

// ── Mock AuthService ──

type mockAuthService struct {
	registerResult   *dto.UserResponse
	registerErr      error
	loginResult      *dto.TokenResponse
	loginErr         error
	refreshResult    *dto.TokenResponse
	refreshErr       error
	logoutErr        error
	logoutJTI        string
	getCurrentResult *dto.UserDetailResponse
	getCurrentErr    error
}

func (m *mockAuthService) Register(_ context.Context, _ *dto.RegisterRequest) (*dto.UserResponse, error) {
	return m.registerResult, m.registerErr
}
func (m *mockAuthService) Login(_ context.Context, _ *dto.LoginRequest) (*dto.TokenResponse, error) {
	return m.loginResult, m.loginErr
}
func (m *mockAuthService) RefreshToken(_ context.Context, _ string) (*dto.TokenResponse, error) {
	return m.refreshResult, m.refreshErr
}
func (m *mockAuthService) Logout(_ context.Context, jti string, _ time.Time) error {
	m.logoutJTI = jti
	return m.logoutErr
}
func (m *mockAuthService) GetCurrentUser(_ context.Context, _ string) (*dto.UserDetailResponse, error) {
	return m.getCurrentResult, m.getCurrentErr
}

// ── Mock ScheduleService ──

type mockScheduleService struct {
	validateResult *dto.ValidateScheduleResponse
	expandResult   []dto.SessionResponse
	expandErr      error
}

func (m *mockScheduleService) Validate(_ context.Context, _ *dto.ValidateScheduleRequest) *dto.ValidateScheduleResponse {
	return m.validateResult
}
func (m *mockScheduleService) Expand(_ context.Context, _ *dto.ExpandScheduleRequest) ([]dto.SessionResponse, error) {
	return m.expandResult, m.expandErr
}

// ── Mock ClassService ──

type mockClassService struct {
	createResult  *dto.ClassResponse
	createErr     error
	submitResult  *dto.SubmitClassResponse
	submitErr     error
	submitReq     *dto.SubmitClassRequest
	getResult     *dto.ClassResponse
	getErr        error
	listResult    []dto.ClassResponse
	listTotal     int64
	listRole      string
	previewResult []dto.SessionResponse
	previewErr    error
	closeResult   *dto.CloseClassResponse
	closeErr      error
}

func (m *mockClassService) Create(_ context.Context, _ *dto.CreateClassRequest, _ string) (*dto.ClassResponse, error) {
	return m.createResult, m.createErr
}
func (m *mockClassService) UpdateSlots(_ context.Context, _ string, _ *dto.UpdateSlotsRequest, _ string) (*dto.ClassResponse, error) {
	return m.createResult, m.createErr
}
func (m *mockClassService) CheckConflicts(_ context.Context, _ string, _ string) (*dto.ConflictCheckResponse, error) {
	return &dto.ConflictCheckResponse{Valid: true, Conflicts: []scheduling.ConflictDescriptor{}}, nil
}
func (m *mockClassService) Submit(_ context.Context, _ string, req *dto.SubmitClassRequest, _ string) (*dto.SubmitClassResponse, error) {
	m.submitReq = req
	return m.submitResult, m.submitErr
}
func (m *mockClassService) GetByID(_ context.Context, _ string, _, _ string) (*dto.ClassResponse, error) {
	return m.getResult, m.getErr
}
func (m *mockClassService) List(_ context.Context, _ *dto.ClassListRequest, _, role string) ([]dto.ClassResponse, int64, error) {
	m.listRole = role
	return m.listResult, m.listTotal, nil
}
func (m *mockClassService) PreviewSessions(_ context.Context, _ string, _ *dto.PreviewSessionsRequest, _, _ string) ([]dto.SessionResponse, error) {
	return m.previewResult, m.previewErr
}
func (m *mockClassService) Close(_ context.Context, _ string, _ *dto.CloseClassRequest, _, _ string) (*dto.CloseClassResponse, error) {
	return m.closeResult, m.closeErr
}

// ── Mock RegistrationService ──

type mockRegistrationService struct {
	registerResult *dto.RegistrationResponse
	registerErr    error
	registerReq    *dto.RegisterClassRequest
	withdrawErr    error
}

func (m *mockRegistrationService) Register(_ context.Context, _ string, req *dto.RegisterClassRequest, _ string) (*dto.RegistrationResponse, error) {
	m.registerReq = req
	return m.registerResult, m.registerErr
}
func (m *mockRegistrationService) Withdraw(_ context.Context, _ string, _ string) error {
	return m.withdrawErr
}
func (m *mockRegistrationService) ListMine(_ context.Context, _ string, _ *dto.RegistrationListRequest) ([]dto.RegistrationResponse, error) {
	return []dto.RegistrationResponse{}, nil
}
func (m *mockRegistrationService) CheckConflicts(_ context.Context, _ string, _ string) (*dto.ConflictCheckResponse, error) {
	return &dto.ConflictCheckResponse{Valid: true}, nil
}

// ── Mock SessionService ──

type mockSessionService struct {
	listResult []dto.SessionResponse
	listErr    error
	result     *dto.SessionResponse
	err        error
}

func (m *mockSessionService) ListByClass(_ context.Context, _ string, _ *dto.SessionListRequest) ([]dto.SessionResponse, error) {
	return m.listResult, m.listErr
}
func (m *mockSessionService) ListMine(_ context.Context, _, _ string, _ *dto.SessionListRequest) ([]dto.SessionResponse, error) {
	return m.listResult, m.listErr
}
func (m *mockSessionService) Complete(_ context.Context, _ string, _, _ string) (*dto.SessionResponse, error) {
	return m.result, m.err
}
func (m *mockSessionService) Cancel(_ context.Context, _ string, _ *dto.CancelSessionRequest, _, _ string) (*dto.SessionResponse, error) {
	return m.result, m.err
}

// ── Mock ExportService ──

type mockExportService struct {
	buf      *bytes.Buffer
	filename string
	err      error
}

func (m *mockExportService) ExportClassSessions(_ context.Context, _ string, _, _ string) (*bytes.Buffer, string, error) {
	return m.buf, m.filename, m.err
}

// ── Mock SemesterService ──

type mockSemesterService struct {
	getResult   *dto.SemesterResponse
	getErr      error
	getCalled   bool
	createErr   error
	activateErr error
	activatedID string
}

func (m *mockSemesterService) Create(_ context.Context, req *dto.CreateSemesterRequest, _ string) (*dto.SemesterResponse, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	return &dto.SemesterResponse{ID: "sem-new", Name: req.Name}, nil
}
func (m *mockSemesterService) GetByID(_ context.Context, _ string) (*dto.SemesterResponse, error) {
	m.getCalled = true
	return m.getResult, m.getErr
}
func (m *mockSemesterService) GetCurrent(_ context.Context) (*dto.SemesterResponse, error) {
	return m.getResult, m.getErr
}
func (m *mockSemesterService) List(_ context.Context) ([]dto.SemesterResponse, error) {
	return nil, nil
}
func (m *mockSemesterService) Activate(_ context.Context, id string, _ string) error {
	m.activatedID = id
	return m.activateErr
}

// ── Mock CalendarService ──

type mockCalendarService struct {
	data []byte
	err  error
}

func (m *mockCalendarService) ExportMine(_ context.Context, _, _ string) ([]byte, error) {
	return m.data, m.err
}

// ═══════════════════════════════════════════════════════════
// Test Helpers
// ═══════════════════════════════════════════════════════════

func setAuthAs(c *gin.Context, userID, role string) {
	c.Set("user_id", userID)
	c.Set("role", role)
	c.Set("token_jti", "test-jti")
	c.Set("token_exp", time.Now().Add(15*time.Minute))
}

func setAuth(c *gin.Context) {
	setAuthAs(c, "test-user-id", "tutor")
}

func jsonBody(v interface{}) io.Reader {
	b, _ := json.Marshal(v)
	return bytes.NewReader(b)
}

func parseResponse(w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	json.Unmarshal(w.Body.Bytes(), &resp)
	return resp
}

// serve 注册单个路由并发起请求，auth 为 true 时注入测试身份
func serve(method, path, target string, body io.Reader, auth bool, h gin.HandlerFunc) *httptest.ResponseRecorder {
	r := gin.New()
	r.Handle(method, path, func(c *gin.Context) {
		if auth {
			setAuth(c)
		}
		h(c)
	})

	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func conflictsOf(t *testing.T, w *httptest.ResponseRecorder) []scheduling.ConflictDescriptor {
	t.Helper()
	var body struct {
		Data struct {
			Conflicts []scheduling.ConflictDescriptor `json:"conflicts"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("解析响应失败: %v", err)
	}
	return body.Data.Conflicts
}

// ═══════════════════════════════════════════════════════════
// AuthHandler Tests
// ═══════════════════════════════════════════════════════════

func TestAuthHandler_Login_Success(t *testing.T) {
	mock := &mockAuthService{
		loginResult: &dto.TokenResponse{AccessToken: "test-access-token", RefreshToken: "test-refresh-token", ExpiresIn: 900},
	}
	h := NewAuthHandler(mock)

	w := serve("POST", "/auth/login", "/auth/login", jsonBody(dto.LoginRequest{
		Email:    "tutor@example.com",
		Password: "Test1234",
	}), false, h.Login)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 0 {
		t.Errorf("expected code 0, got %d", resp.Code)
	}
}

func TestAuthHandler_Login_BadJSON(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	w := serve("POST", "/auth/login", "/auth/login", bytes.NewReader([]byte("invalid json")), false, h.Login)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{loginErr: service.ErrInvalidCredentials})

	w := serve("POST", "/auth/login", "/auth/login", jsonBody(dto.LoginRequest{
		Email:    "tutor@example.com",
		Password: "wrong",
	}), false, h.Login)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 11001 {
		t.Errorf("expected error code 11001, got %d", resp.Code)
	}
}

func TestAuthHandler_Register_EmailTaken(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{registerErr: service.ErrEmailTaken})

	w := serve("POST", "/auth/register", "/auth/register", jsonBody(dto.RegisterRequest{
		Name:     "李同学",
		Email:    "mentee@example.com",
		Password: "Passw0rd!",
		Role:     "mentee",
	}), false, h.Register)

	if w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w.Code)
	}
}

func TestAuthHandler_Register_RejectsCoordinatorRole(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	w := serve("POST", "/auth/register", "/auth/register", jsonBody(dto.RegisterRequest{
		Name:     "管理员",
		Email:    "coord@example.com",
		Password: "Passw0rd!",
		Role:     "coordinator",
	}), false, h.Register)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestAuthHandler_RefreshToken_MissingToken(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	w := serve("POST", "/auth/refresh", "/auth/refresh", jsonBody(map[string]string{}), false, h.RefreshToken)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestAuthHandler_RefreshToken_Revoked(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{refreshErr: service.ErrRefreshTokenBad})

	w := serve("POST", "/auth/refresh", "/auth/refresh", jsonBody(dto.RefreshTokenRequest{RefreshToken: "old"}), false, h.RefreshToken)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestAuthHandler_Logout_PassesJTI(t *testing.T) {
	mock := &mockAuthService{}
	h := NewAuthHandler(mock)

	w := serve("POST", "/auth/logout", "/auth/logout", nil, true, h.Logout)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if mock.logoutJTI != "test-jti" {
		t.Errorf("expected jti test-jti, got %q", mock.logoutJTI)
	}
}

func TestAuthHandler_GetCurrentUser_NoAuth(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	w := serve("GET", "/auth/me", "/auth/me", nil, false, h.GetCurrentUser)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// ScheduleHandler Tests
// ═══════════════════════════════════════════════════════════

func TestScheduleHandler_Validate_InvalidIsStill200(t *testing.T) {
	mock := &mockScheduleService{validateResult: &dto.ValidateScheduleResponse{
		Valid: false,
		Conflicts: []scheduling.ConflictDescriptor{
			{Kind: scheduling.KindSelfConflict, Message: "周一 第2-4节 与 第4-6节 重叠"},
		},
		CrossConflicts: []scheduling.ConflictDescriptor{},
	}}
	h := NewScheduleHandler(mock)

	w := serve("POST", "/schedule/validate", "/schedule/validate", jsonBody(dto.ValidateScheduleRequest{
		Slots: []scheduling.TimeSlot{{DayOfWeek: 1, StartPeriod: 2, EndPeriod: 4}, {DayOfWeek: 1, StartPeriod: 4, EndPeriod: 6}},
	}), true, h.Validate)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"valid":false`) {
		t.Errorf("expected valid=false in body, got %s", w.Body.String())
	}
}

func TestScheduleHandler_Expand_WeeksOverLimit(t *testing.T) {
	h := NewScheduleHandler(&mockScheduleService{})

	w := serve("POST", "/schedule/expand", "/schedule/expand", jsonBody(map[string]interface{}{
		"class":       map[string]interface{}{"schedule_slots": []map[string]int{{"day_of_week": 1, "start_period": 2, "end_period": 3}}},
		"weeks":       17,
		"anchor_date": "2026-03-02",
	}), true, h.Expand)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 from weekcount binding, got %d", w.Code)
	}
}

func TestScheduleHandler_Expand_InvalidSchedule(t *testing.T) {
	verr := &scheduling.ValidationError{Conflicts: []scheduling.ConflictDescriptor{
		{Kind: scheduling.KindOutOfRange, Message: "星期 9 超出范围"},
	}}
	h := NewScheduleHandler(&mockScheduleService{expandErr: verr})

	w := serve("POST", "/schedule/expand", "/schedule/expand", jsonBody(map[string]interface{}{
		"class":       map[string]interface{}{},
		"weeks":       4,
		"anchor_date": "2026-03-02",
	}), true, h.Expand)

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", w.Code)
	}
	if got := conflictsOf(t, w); len(got) != 1 || got[0].Kind != scheduling.KindOutOfRange {
		t.Errorf("expected out_of_range descriptor, got %+v", got)
	}
}

func TestScheduleHandler_Expand_InvalidWeekCount400(t *testing.T) {
	verr := &scheduling.ValidationError{Conflicts: []scheduling.ConflictDescriptor{
		{Kind: scheduling.KindInvalidWeekCount, Message: "展开周数必须为正数"},
	}}
	h := NewScheduleHandler(&mockScheduleService{expandErr: verr})

	w := serve("POST", "/schedule/expand", "/schedule/expand", jsonBody(map[string]interface{}{
		"class":       map[string]interface{}{},
		"weeks":       4,
		"anchor_date": "2026-03-02",
	}), true, h.Expand)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 16007 {
		t.Errorf("expected code 16007, got %d", resp.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// ClassHandler Tests
// ═══════════════════════════════════════════════════════════

func validCreateClassBody(weeks int) io.Reader {
	return jsonBody(map[string]interface{}{
		"class_code":     "MATH101-01",
		"subject_id":     "7f1c6a8e-3b7a-4a53-9a3e-0d5f1c2b9a11",
		"semester_id":    "2b0e4f8a-6c1d-4e3b-8f2a-9d7c5b3a1e22",
		"week_count":     weeks,
		"capacity":       10,
		"schedule_slots": []map[string]int{{"day_of_week": 1, "start_period": 2, "end_period": 4}},
	})
}

func TestClassHandler_Create_Success(t *testing.T) {
	mock := &mockClassService{createResult: &dto.ClassResponse{ID: "cls-1", Status: "draft"}}
	h := NewClassHandler(mock)

	w := serve("POST", "/classes", "/classes", validCreateClassBody(12), true, h.CreateClass)

	if w.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
}

func TestClassHandler_Create_WeekCountTag(t *testing.T) {
	h := NewClassHandler(&mockClassService{})

	for _, weeks := range []int{0, 17} {
		w := serve("POST", "/classes", "/classes", validCreateClassBody(weeks), true, h.CreateClass)
		if w.Code != http.StatusBadRequest {
			t.Errorf("week_count=%d: expected 400, got %d", weeks, w.Code)
		}
	}
}

func TestClassHandler_Create_InvalidSchedule422(t *testing.T) {
	verr := &scheduling.ValidationError{Conflicts: []scheduling.ConflictDescriptor{
		{Kind: scheduling.KindSelfConflict, Day: 1, NewRange: "2-4", ConflictingRange: "4-6"},
	}}
	h := NewClassHandler(&mockClassService{createErr: verr})

	w := serve("POST", "/classes", "/classes", validCreateClassBody(12), true, h.CreateClass)

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 16004 {
		t.Errorf("expected code 16004, got %d", resp.Code)
	}
	if got := conflictsOf(t, w); len(got) != 1 || got[0].NewRange != "2-4" {
		t.Errorf("expected self_conflict descriptor in data.conflicts, got %+v", got)
	}
}

func TestClassHandler_Submit_CrossConflict409(t *testing.T) {
	verr := &scheduling.ValidationError{Conflicts: []scheduling.ConflictDescriptor{
		{Kind: scheduling.KindCrossConflict, ConflictingClassID: "cls-old", Day: 1, NewRange: "2-4", ConflictingRange: "3-5"},
	}}
	h := NewClassHandler(&mockClassService{submitErr: verr})

	w := serve("POST", "/classes/:id/submit", "/classes/cls-1/submit", nil, true, h.SubmitClass)

	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
	if got := conflictsOf(t, w); len(got) != 1 || got[0].ConflictingClassID != "cls-old" {
		t.Errorf("expected cross_conflict descriptor, got %+v", got)
	}
}

func TestClassHandler_Submit_EmptyBodyAllowed(t *testing.T) {
	mock := &mockClassService{submitResult: &dto.SubmitClassResponse{SessionCount: 8}}
	h := NewClassHandler(mock)

	w := serve("POST", "/classes/:id/submit", "/classes/cls-1/submit", nil, true, h.SubmitClass)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if mock.submitReq == nil || mock.submitReq.AnchorDate != "" {
		t.Errorf("expected empty anchor date, got %+v", mock.submitReq)
	}
}

func TestClassHandler_Submit_NotDraft(t *testing.T) {
	h := NewClassHandler(&mockClassService{submitErr: service.ErrClassNotDraft})

	w := serve("POST", "/classes/:id/submit", "/classes/cls-1/submit", jsonBody(dto.SubmitClassRequest{AnchorDate: "2026-03-02"}), true, h.SubmitClass)

	if w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w.Code)
	}
}

func TestClassHandler_Close(t *testing.T) {
	mock := &mockClassService{closeResult: &dto.CloseClassResponse{
		Class:             dto.ClassResponse{ID: "cls-1", Status: "closed"},
		CancelledSessions: 3,
	}}
	h := NewClassHandler(mock)

	w := serve("PUT", "/classes/:id/close", "/classes/cls-1/close", nil, true, h.CloseClass)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"cancelled_sessions":3`) {
		t.Errorf("expected cancelled_sessions in body, got %s", w.Body.String())
	}
}

func TestClassHandler_Close_NotSubmitted(t *testing.T) {
	h := NewClassHandler(&mockClassService{closeErr: service.ErrClassNotSubmitted})

	w := serve("PUT", "/classes/:id/close", "/classes/cls-1/close", jsonBody(dto.CloseClassRequest{Reason: "学期结束"}), true, h.CloseClass)

	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 16010 {
		t.Errorf("expected code 16010, got %d", resp.Code)
	}
}

func TestClassHandler_Get_NotFound(t *testing.T) {
	h := NewClassHandler(&mockClassService{getErr: service.ErrClassNotFound})

	w := serve("GET", "/classes/:id", "/classes/ghost", nil, true, h.GetClass)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestClassHandler_List_PassesRole(t *testing.T) {
	mock := &mockClassService{listResult: []dto.ClassResponse{{ID: "cls-1"}}, listTotal: 1}
	h := NewClassHandler(mock)

	w := serve("GET", "/classes", "/classes?page=1&page_size=10", nil, true, h.ListClasses)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if mock.listRole != "tutor" {
		t.Errorf("expected role tutor, got %q", mock.listRole)
	}
}

// ═══════════════════════════════════════════════════════════
// RegistrationHandler Tests
// ═══════════════════════════════════════════════════════════

func TestRegistrationHandler_Register_NeedsAcknowledgement(t *testing.T) {
	verr := &scheduling.ValidationError{Conflicts: []scheduling.ConflictDescriptor{
		{Kind: scheduling.KindCrossConflict, ConflictingClassID: "cls-a"},
	}}
	err := fmt.Errorf("%w: %w", service.ErrConflictsNotAcknowledged, verr)
	h := NewRegistrationHandler(&mockRegistrationService{registerErr: err})

	w := serve("POST", "/classes/:id/registrations", "/classes/cls-b/registrations", nil, true, h.Register)

	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 17004 {
		t.Errorf("expected code 17004, got %d", resp.Code)
	}
	if got := conflictsOf(t, w); len(got) != 1 || got[0].ConflictingClassID != "cls-a" {
		t.Errorf("expected conflicts list for acknowledgement, got %+v", got)
	}
}

func TestRegistrationHandler_Register_Acknowledged(t *testing.T) {
	mock := &mockRegistrationService{registerResult: &dto.RegistrationResponse{ID: "reg-1", ConflictsAcknowledged: true}}
	h := NewRegistrationHandler(mock)

	w := serve("POST", "/classes/:id/registrations", "/classes/cls-b/registrations",
		jsonBody(dto.RegisterClassRequest{AcknowledgeConflicts: true}), true, h.Register)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	if !mock.registerReq.AcknowledgeConflicts {
		t.Error("expected acknowledge_conflicts to be forwarded")
	}
}

func TestRegistrationHandler_Register_Full(t *testing.T) {
	h := NewRegistrationHandler(&mockRegistrationService{registerErr: service.ErrClassFull})

	w := serve("POST", "/classes/:id/registrations", "/classes/cls-b/registrations", nil, true, h.Register)

	if w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 17003 {
		t.Errorf("expected code 17003, got %d", resp.Code)
	}
}

func TestRegistrationHandler_Withdraw_Forbidden(t *testing.T) {
	h := NewRegistrationHandler(&mockRegistrationService{withdrawErr: service.ErrRegistrationForbidden})

	w := serve("DELETE", "/registrations/:id", "/registrations/reg-1", nil, true, h.Withdraw)

	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// SessionHandler Tests
// ═══════════════════════════════════════════════════════════

func TestSessionHandler_ListMine_BadDate(t *testing.T) {
	h := NewSessionHandler(&mockSessionService{})

	w := serve("GET", "/sessions/me", "/sessions/me?from=03-02", nil, true, h.ListMine)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestSessionHandler_Complete_Errors(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{service.ErrSessionForbidden, http.StatusForbidden},
		{service.ErrSessionInvalidTransition, http.StatusConflict},
		{service.ErrSessionNotStarted, http.StatusBadRequest},
		{service.ErrSessionNotFound, http.StatusNotFound},
	}
	for _, tc := range cases {
		h := NewSessionHandler(&mockSessionService{err: tc.err})
		w := serve("PUT", "/sessions/:id/complete", "/sessions/sess-1/complete", nil, true, h.Complete)
		if w.Code != tc.want {
			t.Errorf("%v: expected %d, got %d", tc.err, tc.want, w.Code)
		}
	}
}

func TestSessionHandler_Cancel_RequiresReason(t *testing.T) {
	h := NewSessionHandler(&mockSessionService{})

	w := serve("PUT", "/sessions/:id/cancel", "/sessions/sess-1/cancel", jsonBody(map[string]string{}), true, h.Cancel)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// Export / Calendar Tests
// ═══════════════════════════════════════════════════════════

func TestExportHandler_Success(t *testing.T) {
	mock := &mockExportService{buf: bytes.NewBufferString("xlsx"), filename: "课次表_MATH101-01.xlsx"}
	h := NewExportHandler(mock)

	w := serve("GET", "/export/classes/:id/sessions.xlsx", "/export/classes/cls-1/sessions.xlsx", nil, true, h.ExportClassSessions)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != xlsxContentType {
		t.Errorf("unexpected content type %s", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "filename*=UTF-8''") {
		t.Errorf("unexpected content disposition %s", cd)
	}
}

func TestExportHandler_NoSessions(t *testing.T) {
	h := NewExportHandler(&mockExportService{err: service.ErrExportNoSessions})

	w := serve("GET", "/export/classes/:id/sessions.xlsx", "/export/classes/cls-1/sessions.xlsx", nil, true, h.ExportClassSessions)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestCalendarHandler_ExportMine(t *testing.T) {
	h := NewCalendarHandler(&mockCalendarService{data: []byte("BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n")})

	w := serve("GET", "/calendar/me.ics", "/calendar/me.ics", nil, true, h.ExportMine)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Errorf("unexpected content type %s", ct)
	}
}

// ═══════════════════════════════════════════════════════════
// SemesterHandler Tests
// ═══════════════════════════════════════════════════════════

func TestSemesterHandler_Get_EmptyID(t *testing.T) {
	mock := &mockSemesterService{}
	h := NewSemesterHandler(mock)

	w := serve("GET", "/semesters/", "/semesters/", nil, true, h.GetSemester)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 10001 {
		t.Errorf("expected code 10001, got %d", resp.Code)
	}
	if mock.getCalled {
		t.Error("empty id must not reach the service")
	}
}

func TestSemesterHandler_Get_Success(t *testing.T) {
	mock := &mockSemesterService{getResult: &dto.SemesterResponse{ID: "sem-1", Name: "2026 春季学期", Weeks: 16}}
	h := NewSemesterHandler(mock)

	w := serve("GET", "/semesters/:id", "/semesters/sem-1", nil, true, h.GetSemester)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"weeks":16`) {
		t.Errorf("expected weeks in body, got %s", w.Body.String())
	}
}

func TestSemesterHandler_Create_Overlap409(t *testing.T) {
	h := NewSemesterHandler(&mockSemesterService{createErr: service.ErrSemesterOverlap})

	body := jsonBody(dto.CreateSemesterRequest{Name: "2026 夏季学期", StartDate: "2026-06-01", EndDate: "2026-08-30"})
	w := serve("POST", "/semesters", "/semesters", body, true, h.CreateSemester)

	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 14003 {
		t.Errorf("expected code 14003, got %d", resp.Code)
	}
}

func TestSemesterHandler_Activate(t *testing.T) {
	mock := &mockSemesterService{}
	h := NewSemesterHandler(mock)

	w := serve("PUT", "/semesters/:id/activate", "/semesters/sem-2/activate", nil, true, h.ActivateSemester)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if mock.activatedID != "sem-2" {
		t.Errorf("expected sem-2 to be activated, got %q", mock.activatedID)
	}
}

func TestSemesterHandler_Activate_NotFound(t *testing.T) {
	h := NewSemesterHandler(&mockSemesterService{activateErr: service.ErrSemesterNotFound})

	w := serve("PUT", "/semesters/:id/activate", "/semesters/ghost/activate", nil, true, h.ActivateSemester)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 14001 {
		t.Errorf("expected code 14001, got %d", resp.Code)
	}
}
