package mock

import (
	context "context"
	reflect "reflect"

	gomock "go.uber.org/mock/gomock"

	models "github.com/stampcard-app/stampcard/stampcard/database/models"
)

// MockProgramRepository is a mock of ProgramRepository interface.
type MockProgramRepository struct {
	ctrl     *gomock.Controller
	recorder *MockProgramRepositoryMockRecorder
	isgomock struct{}
}

// MockProgramRepositoryMockRecorder is the mock recorder for MockProgramRepository.
type MockProgramRepositoryMockRecorder struct {
	mock *MockProgramRepository
}

// NewMockProgramRepository creates a new mock instance.
func NewMockProgramRepository(ctrl *gomock.Controller) *MockProgramRepository {
	mock := &MockProgramRepository{ctrl: ctrl}
	mock.recorder = &MockProgramRepositoryMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockProgramRepository) EXPECT() *MockProgramRepositoryMockRecorder {
	return m.recorder
}

// Create mocks base method.
func (m *MockProgramRepository) Create(ctx context.Context, program *models.Program) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Create", ctx, program)
	ret0, _ := ret[0].(error)
	return ret0
}

// Create indicates an expected call of Create.
func (mr *MockProgramRepositoryMockRecorder) Create(ctx, program any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Create", reflect.TypeOf((*MockProgramRepository)(nil).Create), ctx, program)
}

// Delete mocks base method.
func (m *MockProgramRepository) Delete(ctx context.Context, id string) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Delete", ctx, id)
	ret0, _ := ret[0].(error)
	return ret0
}

// Delete indicates an expected call of Delete.
func (mr *MockProgramRepositoryMockRecorder) Delete(ctx, id any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Delete", reflect.TypeOf((*MockProgramRepository)(nil).Delete), ctx, id)
}

// GetAll mocks base method.
func (m *MockProgramRepository) GetAll(ctx context.Context) ([]*models.Program, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "GetAll", ctx)
	ret0, _ := ret[0].([]*models.Program)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// GetAll indicates an expected call of GetAll.
func (mr *MockProgramRepositoryMockRecorder) GetAll(ctx any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetAll", reflect.TypeOf((*MockProgramRepository)(nil).GetAll), ctx)
}

// GetByCode mocks base method.
func (m *MockProgramRepository) GetByCode(ctx context.Context, code string) (*models.Program, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "GetByCode", ctx, code)
	ret0, _ := ret[0].(*models.Program)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// GetByCode indicates an expected call of GetByCode.
func (mr *MockProgramRepositoryMockRecorder) GetByCode(ctx, code any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetByCode", reflect.TypeOf((*MockProgramRepository)(nil).GetByCode), ctx, code)
}

// GetByID mocks base method.
func (m *MockProgramRepository) GetByID(ctx context.Context, id string) (*models.Program, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "GetByID", ctx, id)
	ret0, _ := ret[0].(*models.Program)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// GetByID indicates an expected call of GetByID.
func (mr *MockProgramRepositoryMockRecorder) GetByID(ctx, id any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetByID", reflect.TypeOf((*MockProgramRepository)(nil).GetByID), ctx, id)
}

// UpdateImageURL mocks base method.
func (m *MockProgramRepository) UpdateImageURL(ctx context.Context, id, imageURL string) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "UpdateImageURL", ctx, id, imageURL)
	ret0, _ := ret[0].(error)
	return ret0
}

// UpdateImageURL indicates an expected call of UpdateImageURL.
func (mr *MockProgramRepositoryMockRecorder) UpdateImageURL(ctx, id, imageURL any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "UpdateImageURL", reflect.TypeOf((*MockProgramRepository)(nil).UpdateImageURL), ctx, id, imageURL)
}

// MockMembershipRepository is a mock of MembershipRepository interface.
type MockMembershipRepository struct {
	ctrl     *gomock.Controller
	recorder *MockMembershipRepositoryMockRecorder
	isgomock struct{}
}

// MockMembershipRepositoryMockRecorder is the mock recorder for MockMembershipRepository.
type MockMembershipRepositoryMockRecorder struct {
	mock *MockMembershipRepository
}

// NewMockMembershipRepository creates a new mock instance.
func NewMockMembershipRepository(ctrl *gomock.Controller) *MockMembershipRepository {
	mock := &MockMembershipRepository{ctrl: ctrl}
	mock.recorder = &MockMembershipRepositoryMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockMembershipRepository) EXPECT() *MockMembershipRepositoryMockRecorder {
	return m.recorder
}

// AdvanceCheckin mocks base method.
func (m *MockMembershipRepository) AdvanceCheckin(ctx context.Context, id string) (*models.Membership, bool, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "AdvanceCheckin", ctx, id)
	ret0, _ := ret[0].(*models.Membership)
	ret1, _ := ret[1].(bool)
	ret2, _ := ret[2].(error)
	return ret0, ret1, ret2
}

// AdvanceCheckin indicates an expected call of AdvanceCheckin.
func (mr *MockMembershipRepositoryMockRecorder) AdvanceCheckin(ctx, id any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "AdvanceCheckin", reflect.TypeOf((*MockMembershipRepository)(nil).AdvanceCheckin), ctx, id)
}

// Create mocks base method.
func (m *MockMembershipRepository) Create(ctx context.Context, membership *models.Membership) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Create", ctx, membership)
	ret0, _ := ret[0].(error)
	return ret0
}

// Create indicates an expected call of Create.
func (mr *MockMembershipRepositoryMockRecorder) Create(ctx, membership any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Create", reflect.TypeOf((*MockMembershipRepository)(nil).Create), ctx, membership)
}

// Delete mocks base method.
func (m *MockMembershipRepository) Delete(ctx context.Context, id string) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Delete", ctx, id)
	ret0, _ := ret[0].(error)
	return ret0
}

// Delete indicates an expected call of Delete.
func (mr *MockMembershipRepositoryMockRecorder) Delete(ctx, id any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Delete", reflect.TypeOf((*MockMembershipRepository)(nil).Delete), ctx, id)
}

// GetByID mocks base method.
func (m *MockMembershipRepository) GetByID(ctx context.Context, id string) (*models.Membership, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "GetByID", ctx, id)
	ret0, _ := ret[0].(*models.Membership)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// GetByID indicates an expected call of GetByID.
func (mr *MockMembershipRepositoryMockRecorder) GetByID(ctx, id any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetByID", reflect.TypeOf((*MockMembershipRepository)(nil).GetByID), ctx, id)
}

// GetByPhone mocks base method.
func (m *MockMembershipRepository) GetByPhone(ctx context.Context, phone string) ([]*models.Membership, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "GetByPhone", ctx, phone)
	ret0, _ := ret[0].([]*models.Membership)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// GetByPhone indicates an expected call of GetByPhone.
func (mr *MockMembershipRepositoryMockRecorder) GetByPhone(ctx, phone any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetByPhone", reflect.TypeOf((*MockMembershipRepository)(nil).GetByPhone), ctx, phone)
}
